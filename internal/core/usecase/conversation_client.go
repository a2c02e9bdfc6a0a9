package usecase

import (
	"context"
	"errors"
	"fmt"
	"rental-system/internal/contextkeys"
	"rental-system/internal/core/domain"
	"rental-system/internal/core/port"
	"rental-system/internal/core/port/usecases_port"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// ConversationState is a snapshot of one user's conversations.
type ConversationState struct {
	Conversations []domain.Conversation
	Loading       bool
	Error         string
}

// ConversationClient lists conversations and sends messages for the calling user.
type ConversationClient struct {
	conversations port.ConversationRepositoryPort
	properties    port.PropertyRepositoryPort
	events        port.EventPublisherPort
	now           func() time.Time

	state stateTracker

	mu     sync.RWMutex
	byUser map[string][]domain.Conversation
}

var _ usecases_port.ConversationClientPort = (*ConversationClient)(nil)

// NewConversationClient wires the client. events and now may be nil.
func NewConversationClient(
	conversations port.ConversationRepositoryPort,
	properties port.PropertyRepositoryPort,
	events port.EventPublisherPort,
	now func() time.Time,
) *ConversationClient {
	if events == nil {
		events = NoopEventPublisher{}
	}
	if now == nil {
		now = time.Now
	}
	return &ConversationClient{
		conversations: conversations,
		properties:    properties,
		events:        events,
		now:           now,
		byUser:        make(map[string][]domain.Conversation),
	}
}

// State returns the cached conversations of userID plus the loading flag and last error.
func (c *ConversationClient) State(userID string) ConversationState {
	loading, lastErr := c.state.snapshot()
	c.mu.RLock()
	defer c.mu.RUnlock()
	convs := slices.Clone(c.byUser[userID])
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return ConversationState{Conversations: convs, Loading: loading, Error: lastErr}
}

// FetchConversations returns the caller's conversations, most recent activity
// first, messages oldest first. An anonymous caller gets an empty list.
func (c *ConversationClient) FetchConversations(ctx context.Context) ([]domain.Conversation, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "FetchConversations",
	})

	user, ok := contextkeys.UserFromContext(ctx)
	if !ok {
		ucLogger.Debug("Anonymous caller, no conversations", nil)
		return []domain.Conversation{}, nil
	}
	ucLogger = ucLogger.WithFields(port.Fields{"user_id": user.UserID})
	ucLogger.Info("Use case started", nil)

	c.state.begin()
	convs, err := c.refresh(ctx, user.UserID)
	c.state.end(err)
	if err != nil {
		ucLogger.Error("Repository returned an error", err, nil)
		return nil, err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"count": len(convs)})
	return convs, nil
}

// refresh reloads userID's conversations into the cache.
func (c *ConversationClient) refresh(ctx context.Context, userID string) ([]domain.Conversation, error) {
	convs, err := c.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, domain.Transport(fmt.Errorf("failed to list conversations: %w", err))
	}
	convs = orderConversations(convs)

	c.mu.Lock()
	c.byUser[userID] = convs
	c.mu.Unlock()

	return slices.Clone(convs), nil
}

// orderConversations fills the derived message fields and enforces both orderings.
func orderConversations(convs []domain.Conversation) []domain.Conversation {
	out := make([]domain.Conversation, 0, len(convs))
	for _, conv := range convs {
		msgs := slices.Clone(conv.Messages)
		for i := range msgs {
			msgs[i].ConversationID = conv.ID
			msgs[i].PropertyID = conv.PropertyID
			msgs[i].ReceiverID = conv.Counterparty(msgs[i].SenderID)
		}
		slices.SortStableFunc(msgs, func(a, b domain.Message) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
		if msgs == nil {
			msgs = []domain.Message{}
		}
		conv.Messages = msgs
		out = append(out, conv)
	}
	slices.SortStableFunc(out, func(a, b domain.Conversation) int {
		return b.LastMessageAt.Compare(a.LastMessageAt)
	})
	return out
}

func validateMessage(content, propertyID, senderID, receiverID string) error {
	var errs domain.ValidationErrors
	switch {
	case content == "":
		errs = append(errs, domain.FieldError{Field: "content", Message: "is required"})
	case utf8.RuneCountInString(content) > domain.MaxMessageLength:
		errs = append(errs, domain.FieldError{
			Field:   "content",
			Message: fmt.Sprintf("must be at most %d characters", domain.MaxMessageLength),
		})
	}
	if propertyID == "" {
		errs = append(errs, domain.FieldError{Field: "property_id", Message: "is required"})
	}
	switch receiverID {
	case "":
		errs = append(errs, domain.FieldError{Field: "receiver_id", Message: "is required"})
	case senderID:
		errs = append(errs, domain.FieldError{Field: "receiver_id", Message: "must differ from the sender"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SendMessage posts content to the conversation between the caller and
// receiverID about propertyID, creating that conversation on first contact.
func (c *ConversationClient) SendMessage(ctx context.Context, content, propertyID, receiverID string) (*domain.Message, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "SendMessage",
		"property_id": propertyID,
		"receiver_id": receiverID,
	})
	ucLogger.Info("Use case started", nil)

	c.state.begin()
	msg, err := c.sendMessage(ctx, ucLogger, content, propertyID, receiverID)
	c.state.end(err)
	if err != nil {
		return nil, err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"message_id": msg.ID})
	return msg, nil
}

func (c *ConversationClient) sendMessage(ctx context.Context, ucLogger port.LoggerPort, content, propertyID, receiverID string) (*domain.Message, error) {
	user, ok := contextkeys.UserFromContext(ctx)
	if !ok {
		return nil, domain.ErrNotAuthenticated
	}
	ucLogger = ucLogger.WithFields(port.Fields{"user_id": user.UserID})

	content = strings.TrimSpace(content)
	if err := validateMessage(content, propertyID, user.UserID, receiverID); err != nil {
		ucLogger.Warn("Message rejected", port.Fields{"error": err.Error()})
		return nil, err
	}

	conv, err := c.findOrCreate(ctx, ucLogger, propertyID, user.UserID, receiverID)
	if err != nil {
		return nil, err
	}

	sentAt := c.now()
	msg, err := c.conversations.InsertMessage(ctx, domain.Message{
		ConversationID: conv.ID,
		SenderID:       user.UserID,
		Content:        content,
		CreatedAt:      sentAt,
	})
	if err != nil {
		err = domain.Transport(fmt.Errorf("failed to insert message: %w", err))
		ucLogger.Error("Repository returned an error", err, nil)
		return nil, err
	}
	msg.ReceiverID = conv.Counterparty(user.UserID)
	msg.PropertyID = conv.PropertyID

	// The message is stored; a stale last_message_at only affects ordering.
	if err := c.conversations.TouchLastMessageAt(ctx, conv.ID, msg.CreatedAt); err != nil {
		ucLogger.Warn("Failed to update last_message_at", port.Fields{"conversation_id": conv.ID, "error": err.Error()})
	}

	if _, err := c.refresh(ctx, user.UserID); err != nil {
		ucLogger.Warn("Failed to refresh conversations after send", port.Fields{"error": err.Error()})
	}

	if err := c.events.Publish(ctx, port.EventMessageSent, domain.MessageSentEvent{
		MessageID:      msg.ID,
		ConversationID: conv.ID,
		PropertyID:     conv.PropertyID,
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		SentAt:         msg.CreatedAt.UTC(),
	}); err != nil {
		ucLogger.Warn("Failed to publish event", port.Fields{"event_type": port.EventMessageSent, "error": err.Error()})
	}

	return msg, nil
}

// findOrCreate looks the conversation up by property and unordered participant
// pair. On a miss the property decides who is landlord and who is tenant.
func (c *ConversationClient) findOrCreate(ctx context.Context, ucLogger port.LoggerPort, propertyID, senderID, receiverID string) (*domain.Conversation, error) {
	conv, err := c.conversations.FindByParticipants(ctx, propertyID, senderID, receiverID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		err = domain.Transport(fmt.Errorf("failed to look up conversation: %w", err))
		ucLogger.Error("Repository returned an error", err, nil)
		return nil, err
	}

	prop, err := c.properties.GetByID(ctx, propertyID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("property %s: %w", propertyID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, domain.Transport(fmt.Errorf("failed to load property %s: %w", propertyID, err))
	}

	var landlordID, tenantID string
	switch prop.LandlordID {
	case receiverID:
		landlordID, tenantID = receiverID, senderID
	case senderID:
		landlordID, tenantID = senderID, receiverID
	default:
		return nil, fmt.Errorf("%w: neither participant owns property %s", domain.ErrForbidden, propertyID)
	}

	conv, err = c.conversations.Create(ctx, domain.Conversation{
		PropertyID:    propertyID,
		LandlordID:    landlordID,
		TenantID:      tenantID,
		LastMessageAt: c.now(),
	})
	if err != nil {
		err = domain.Transport(fmt.Errorf("failed to create conversation: %w", err))
		ucLogger.Error("Repository returned an error", err, nil)
		return nil, err
	}
	ucLogger.Info("Conversation started", port.Fields{"conversation_id": conv.ID})
	return conv, nil
}

// MarkAsRead flags every message in the conversation not sent by the caller as
// read. Repeating it changes nothing; an anonymous caller is ignored.
func (c *ConversationClient) MarkAsRead(ctx context.Context, conversationID string) error {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":        "MarkConversationAsRead",
		"conversation_id": conversationID,
	})

	user, ok := contextkeys.UserFromContext(ctx)
	if !ok {
		ucLogger.Debug("Anonymous caller, nothing to mark", nil)
		return nil
	}
	ucLogger = ucLogger.WithFields(port.Fields{"user_id": user.UserID})
	ucLogger.Info("Use case started", nil)

	c.state.begin()
	changed, err := c.markAsRead(ctx, conversationID, user.UserID)
	c.state.end(err)
	if err != nil {
		ucLogger.Error("Failed to mark conversation as read", err, nil)
		return err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"marked": changed})
	return nil
}

func (c *ConversationClient) markAsRead(ctx context.Context, conversationID, userID string) (int64, error) {
	conv, err := c.conversations.GetByID(ctx, conversationID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, domain.Transport(fmt.Errorf("failed to load conversation: %w", err))
	}
	if !conv.HasParticipant(userID) {
		return 0, fmt.Errorf("%w: not a participant of conversation %s", domain.ErrForbidden, conversationID)
	}

	changed, err := c.conversations.MarkRead(ctx, conversationID, userID)
	if err != nil {
		return 0, domain.Transport(fmt.Errorf("failed to mark messages read: %w", err))
	}

	c.mu.Lock()
	convs := c.byUser[userID]
	for i := range convs {
		if convs[i].ID != conversationID {
			continue
		}
		// Copy on write: earlier snapshots share the old backing array.
		msgs := slices.Clone(convs[i].Messages)
		for j := range msgs {
			if msgs[j].SenderID != userID {
				msgs[j].Read = true
			}
		}
		convs[i].Messages = msgs
	}
	c.mu.Unlock()

	return changed, nil
}
