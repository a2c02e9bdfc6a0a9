package usecases_port

import (
	"context"
	"rental-system/internal/core/domain"
)

type ConversationClientPort interface {
	FetchConversations(ctx context.Context) ([]domain.Conversation, error)
	SendMessage(ctx context.Context, content, propertyID, receiverID string) (*domain.Message, error)
	MarkAsRead(ctx context.Context, conversationID string) error
}
