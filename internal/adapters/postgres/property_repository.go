package postgres

import (
	"context"
	"errors"
	"fmt"
	"rental-system/internal/contextkeys"
	"rental-system/internal/core/domain"
	"rental-system/internal/core/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPropertyRepository implements port.PropertyRepositoryPort on the properties table.
type PostgresPropertyRepository struct {
	pool *pgxpool.Pool
}

var _ port.PropertyRepositoryPort = (*PostgresPropertyRepository)(nil)

func NewPostgresPropertyRepository(pool *pgxpool.Pool) (*PostgresPropertyRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresPropertyRepository{pool: pool}, nil
}

func (r *PostgresPropertyRepository) logger(ctx context.Context, method string, fields port.Fields) port.LoggerPort {
	base := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresPropertyRepository",
		"method":    method,
	})
	if len(fields) > 0 {
		return base.WithFields(fields)
	}
	return base
}

// List returns every listing, newest first.
func (r *PostgresPropertyRepository) List(ctx context.Context) ([]domain.Property, error) {
	repoLogger := r.logger(ctx, "List", nil)

	query := "SELECT " + propertyColumns + " FROM properties ORDER BY created_at DESC, id ASC"
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		repoLogger.Error("Failed to query properties", err, port.Fields{"query": query})
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	props := make([]domain.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			repoLogger.Error("Failed to scan property row", err, nil)
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		repoLogger.Error("Error during properties iteration", err, nil)
		return nil, fmt.Errorf("error during properties iteration: %w", err)
	}

	repoLogger.Debug("Properties fetched", port.Fields{"count": len(props)})
	return props, nil
}

func (r *PostgresPropertyRepository) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	repoLogger := r.logger(ctx, "GetByID", port.Fields{"listing_id": id})

	if !validUUID(id) {
		return nil, domain.ErrNotFound
	}

	query := "SELECT " + propertyColumns + " FROM properties WHERE id = $1"
	p, err := scanProperty(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		repoLogger.Debug("Property not found", nil)
		return nil, domain.ErrNotFound
	}
	if err != nil {
		repoLogger.Error("Failed to get property", err, port.Fields{"query": query})
		return nil, fmt.Errorf("failed to get property %s: %w", id, err)
	}
	return &p, nil
}

func (r *PostgresPropertyRepository) Insert(ctx context.Context, p domain.Property) (*domain.Property, error) {
	repoLogger := r.logger(ctx, "Insert", port.Fields{"landlord_id": p.LandlordID})

	query := fmt.Sprintf(`INSERT INTO properties (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING %s`, insertColumns, propertyColumns)

	created, err := scanProperty(r.pool.QueryRow(ctx, query, insertArgs(p)...))
	if err != nil {
		repoLogger.Error("Failed to insert property", err, nil)
		return nil, fmt.Errorf("failed to insert property: %w", err)
	}

	repoLogger.Info("Property inserted", port.Fields{"listing_id": created.ID})
	return &created, nil
}

func (r *PostgresPropertyRepository) Update(ctx context.Context, id string, patch domain.PropertyPatch) error {
	repoLogger := r.logger(ctx, "Update", port.Fields{"listing_id": id})

	if !validUUID(id) {
		return domain.ErrNotFound
	}

	query, args, ok := buildPropertyUpdate(id, patch)
	if !ok {
		repoLogger.Debug("Empty patch, nothing to update", nil)
		return nil
	}

	cmdTag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		repoLogger.Error("Failed to update property", err, port.Fields{"query": query})
		return fmt.Errorf("failed to update property %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		repoLogger.Warn("Attempted to update a property that does not exist", nil)
		return domain.ErrNotFound
	}

	repoLogger.Debug("Property updated", nil)
	return nil
}

func (r *PostgresPropertyRepository) Delete(ctx context.Context, id string) error {
	repoLogger := r.logger(ctx, "Delete", port.Fields{"listing_id": id})

	if !validUUID(id) {
		return domain.ErrNotFound
	}

	query := "DELETE FROM properties WHERE id = $1"
	cmdTag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		repoLogger.Error("Failed to delete property", err, port.Fields{"query": query})
		return fmt.Errorf("failed to delete property %s: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		repoLogger.Warn("Attempted to delete a property that did not exist", nil)
	} else {
		repoLogger.Info("Property deleted", nil)
	}
	return nil
}
