package port

import (
	"context"
	"rental-system/internal/core/domain"
	"time"
)

// ConversationRepositoryPort is the persistent store for conversations and their messages.
type ConversationRepositoryPort interface {
	// ListForUser returns conversations where userID is landlord or tenant,
	// newest activity first, each with its messages oldest first.
	ListForUser(ctx context.Context, userID string) ([]domain.Conversation, error)
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	// FindByParticipants treats (a, b) as an unordered pair. Returns domain.ErrNotFound if absent.
	FindByParticipants(ctx context.Context, propertyID, a, b string) (*domain.Conversation, error)
	// Create inserts c, or returns the existing row for the same (property, landlord, tenant).
	Create(ctx context.Context, c domain.Conversation) (*domain.Conversation, error)
	InsertMessage(ctx context.Context, m domain.Message) (*domain.Message, error)
	TouchLastMessageAt(ctx context.Context, conversationID string, at time.Time) error
	// MarkRead flags every unread message not sent by readerID and returns how many changed.
	MarkRead(ctx context.Context, conversationID, readerID string) (int64, error)
}
