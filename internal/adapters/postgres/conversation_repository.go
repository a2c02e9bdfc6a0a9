package postgres

import (
	"context"
	"errors"
	"fmt"
	"rental-system/internal/contextkeys"
	"rental-system/internal/core/domain"
	"rental-system/internal/core/port"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConversationRepository implements port.ConversationRepositoryPort
// on the conversations and messages tables.
type PostgresConversationRepository struct {
	pool *pgxpool.Pool
}

var _ port.ConversationRepositoryPort = (*PostgresConversationRepository)(nil)

func NewPostgresConversationRepository(pool *pgxpool.Pool) (*PostgresConversationRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresConversationRepository{pool: pool}, nil
}

func (r *PostgresConversationRepository) logger(ctx context.Context, method string, fields port.Fields) port.LoggerPort {
	base := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresConversationRepository",
		"method":    method,
	})
	if len(fields) > 0 {
		return base.WithFields(fields)
	}
	return base
}

// ListForUser loads the conversations first, then all their messages in one query.
func (r *PostgresConversationRepository) ListForUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	repoLogger := r.logger(ctx, "ListForUser", port.Fields{"user_id": userID})

	convQuery := "SELECT " + conversationColumns + ` FROM conversations
		WHERE landlord_id = $1 OR tenant_id = $1
		ORDER BY last_message_at DESC, id ASC`
	rows, err := r.pool.Query(ctx, convQuery, userID)
	if err != nil {
		repoLogger.Error("Failed to query conversations", err, port.Fields{"query": convQuery})
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	convs := make([]domain.Conversation, 0)
	index := make(map[string]int)
	ids := make([]string, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			repoLogger.Error("Failed to scan conversation row", err, nil)
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		index[c.ID] = len(convs)
		ids = append(ids, c.ID)
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		repoLogger.Error("Error during conversations iteration", err, nil)
		return nil, fmt.Errorf("error during conversations iteration: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return convs, nil
	}

	msgQuery := "SELECT " + messageColumns + ` FROM messages
		WHERE conversation_id = ANY($1::uuid[])
		ORDER BY created_at ASC, id ASC`
	msgRows, err := r.pool.Query(ctx, msgQuery, ids)
	if err != nil {
		repoLogger.Error("Failed to query messages", err, port.Fields{"query": msgQuery})
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		m, err := scanMessage(msgRows)
		if err != nil {
			repoLogger.Error("Failed to scan message row", err, nil)
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if i, ok := index[m.ConversationID]; ok {
			c := &convs[i]
			m.PropertyID = c.PropertyID
			m.ReceiverID = c.Counterparty(m.SenderID)
			c.Messages = append(c.Messages, m)
		}
	}
	if err := msgRows.Err(); err != nil {
		repoLogger.Error("Error during messages iteration", err, nil)
		return nil, fmt.Errorf("error during messages iteration: %w", err)
	}

	repoLogger.Debug("Conversations fetched", port.Fields{"count": len(convs)})
	return convs, nil
}

// GetByID returns the conversation header without messages.
func (r *PostgresConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	repoLogger := r.logger(ctx, "GetByID", port.Fields{"conversation_id": id})

	if !validUUID(id) {
		return nil, domain.ErrNotFound
	}

	query := "SELECT " + conversationColumns + " FROM conversations WHERE id = $1"
	c, err := scanConversation(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		repoLogger.Error("Failed to get conversation", err, port.Fields{"query": query})
		return nil, fmt.Errorf("failed to get conversation %s: %w", id, err)
	}
	return &c, nil
}

func (r *PostgresConversationRepository) FindByParticipants(ctx context.Context, propertyID, a, b string) (*domain.Conversation, error) {
	repoLogger := r.logger(ctx, "FindByParticipants", port.Fields{"property_id": propertyID})

	if !validUUID(propertyID) {
		return nil, domain.ErrNotFound
	}

	query := "SELECT " + conversationColumns + ` FROM conversations
		WHERE property_id = $1
		  AND ((landlord_id = $2 AND tenant_id = $3) OR (landlord_id = $3 AND tenant_id = $2))
		LIMIT 1`
	c, err := scanConversation(r.pool.QueryRow(ctx, query, propertyID, a, b))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		repoLogger.Error("Failed to find conversation", err, port.Fields{"query": query})
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return &c, nil
}

// Create is idempotent on (property_id, landlord_id, tenant_id): a concurrent
// first message from the other side gets the same row back.
func (r *PostgresConversationRepository) Create(ctx context.Context, c domain.Conversation) (*domain.Conversation, error) {
	repoLogger := r.logger(ctx, "Create", port.Fields{
		"property_id": c.PropertyID,
		"landlord_id": c.LandlordID,
		"tenant_id":   c.TenantID,
	})

	query := `INSERT INTO conversations (property_id, landlord_id, tenant_id, last_message_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (property_id, landlord_id, tenant_id)
		DO UPDATE SET property_id = EXCLUDED.property_id
		RETURNING ` + conversationColumns

	created, err := scanConversation(r.pool.QueryRow(ctx, query, c.PropertyID, c.LandlordID, c.TenantID, c.LastMessageAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			repoLogger.Warn("Conversation references a missing property", nil)
			return nil, domain.ErrNotFound
		}
		repoLogger.Error("Failed to create conversation", err, nil)
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	repoLogger.Debug("Conversation ready", port.Fields{"conversation_id": created.ID})
	return &created, nil
}

func (r *PostgresConversationRepository) InsertMessage(ctx context.Context, m domain.Message) (*domain.Message, error) {
	repoLogger := r.logger(ctx, "InsertMessage", port.Fields{"conversation_id": m.ConversationID})

	query := `INSERT INTO messages (conversation_id, sender_id, content, read, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + messageColumns

	created, err := scanMessage(r.pool.QueryRow(ctx, query, m.ConversationID, m.SenderID, m.Content, m.Read, m.CreatedAt))
	if err != nil {
		repoLogger.Error("Failed to insert message", err, nil)
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return &created, nil
}

func (r *PostgresConversationRepository) TouchLastMessageAt(ctx context.Context, conversationID string, at time.Time) error {
	repoLogger := r.logger(ctx, "TouchLastMessageAt", port.Fields{"conversation_id": conversationID})

	query := "UPDATE conversations SET last_message_at = $2 WHERE id = $1"
	if _, err := r.pool.Exec(ctx, query, conversationID, at); err != nil {
		repoLogger.Error("Failed to update last_message_at", err, port.Fields{"query": query})
		return fmt.Errorf("failed to update last_message_at: %w", err)
	}
	return nil
}

func (r *PostgresConversationRepository) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	repoLogger := r.logger(ctx, "MarkRead", port.Fields{"conversation_id": conversationID})

	query := `UPDATE messages SET read = TRUE
		WHERE conversation_id = $1 AND sender_id <> $2 AND read = FALSE`
	cmdTag, err := r.pool.Exec(ctx, query, conversationID, readerID)
	if err != nil {
		repoLogger.Error("Failed to mark messages read", err, port.Fields{"query": query})
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	repoLogger.Debug("Messages marked read", port.Fields{"count": cmdTag.RowsAffected()})
	return cmdTag.RowsAffected(), nil
}
