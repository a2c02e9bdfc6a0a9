package postgres

import (
	"rental-system/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const propertyColumns = `id::text, landlord_id, title, description, location, address,
	latitude, longitude, geohash, price, deposit, prepaid_rent, utilities,
	bedrooms, bathrooms, size, property_type, images, amenities,
	pets_allowed, furnished, available, available_from, created_at, updated_at`

// scanProperty reads one row selected with propertyColumns.
func scanProperty(row pgx.Row) (domain.Property, error) {
	var (
		p            domain.Property
		propertyType string
		images       []string
		amenities    []string
	)
	err := row.Scan(
		&p.ID, &p.LandlordID, &p.Title, &p.Description, &p.Location, &p.Address,
		&p.Latitude, &p.Longitude, &p.Geohash, &p.Price, &p.Deposit, &p.PrepaidRent, &p.Utilities,
		&p.Bedrooms, &p.Bathrooms, &p.Size, &propertyType, &images, &amenities,
		&p.PetsAllowed, &p.Furnished, &p.Available, &p.AvailableFrom, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Property{}, err
	}
	p.PropertyType = domain.PropertyType(propertyType)
	p.Images = nonNil(images)
	p.Amenities = nonNil(amenities)
	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

const insertColumns = `landlord_id, title, description, location, address,
	latitude, longitude, geohash, price, deposit, prepaid_rent, utilities,
	bedrooms, bathrooms, size, property_type, images, amenities,
	pets_allowed, furnished, available, available_from`

// insertArgs lists the writable fields of p in insertColumns order.
func insertArgs(p domain.Property) []interface{} {
	return []interface{}{
		p.LandlordID, p.Title, p.Description, p.Location, p.Address,
		p.Latitude, p.Longitude, p.Geohash, p.Price, p.Deposit, p.PrepaidRent, p.Utilities,
		p.Bedrooms, p.Bathrooms, p.Size, string(p.PropertyType), nonNil(p.Images), nonNil(p.Amenities),
		p.PetsAllowed, p.Furnished, p.Available, p.AvailableFrom,
	}
}

const conversationColumns = `id::text, property_id::text, landlord_id, tenant_id, last_message_at`

func scanConversation(row pgx.Row) (domain.Conversation, error) {
	var c domain.Conversation
	if err := row.Scan(&c.ID, &c.PropertyID, &c.LandlordID, &c.TenantID, &c.LastMessageAt); err != nil {
		return domain.Conversation{}, err
	}
	c.Messages = []domain.Message{}
	return c, nil
}

const messageColumns = `id::text, conversation_id::text, sender_id, content, read, created_at`

func scanMessage(row pgx.Row) (domain.Message, error) {
	var m domain.Message
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Read, &m.CreatedAt); err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

// validUUID guards uuid columns: a malformed id can never match a row.
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
