package domain

import "time"

// MaxMessageLength caps message content, counted in characters.
const MaxMessageLength = 1000

// Conversation threads messages between one landlord and one tenant about one property.
type Conversation struct {
	ID            string
	PropertyID    string
	LandlordID    string
	TenantID      string
	LastMessageAt time.Time
	Messages      []Message
}

// Message is a single entry in a conversation.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	ReceiverID     string
	PropertyID     string
	Content        string
	CreatedAt      time.Time
	Read           bool
}

// HasParticipant reports whether userID is the landlord or the tenant.
func (c Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.LandlordID == userID || c.TenantID == userID)
}

// Counterparty returns the other participant, or "" if userID is not part of the conversation.
func (c Conversation) Counterparty(userID string) string {
	switch userID {
	case c.LandlordID:
		return c.TenantID
	case c.TenantID:
		return c.LandlordID
	}
	return ""
}

// UnreadFor counts messages addressed to userID that are still unread.
func (c Conversation) UnreadFor(userID string) int {
	n := 0
	for _, m := range c.Messages {
		if m.SenderID != userID && !m.Read {
			n++
		}
	}
	return n
}
