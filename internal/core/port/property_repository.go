package port

import (
	"context"
	"rental-system/internal/core/domain"
)

// PropertyRepositoryPort is the persistent store for listings.
// GetByID returns domain.ErrNotFound when no row matches.
type PropertyRepositoryPort interface {
	List(ctx context.Context) ([]domain.Property, error)
	GetByID(ctx context.Context, id string) (*domain.Property, error)
	// Insert stores p and returns the row as persisted, with id and timestamps filled in.
	Insert(ctx context.Context, p domain.Property) (*domain.Property, error)
	Update(ctx context.Context, id string, patch domain.PropertyPatch) error
	Delete(ctx context.Context, id string) error
}
