package port

import (
	"context"
	"rental-system/internal/core/domain"
)

// ListingCachePort caches single listings by id. A miss is (nil, nil).
type ListingCachePort interface {
	Get(ctx context.Context, id string) (*domain.Property, error)
	Set(ctx context.Context, p domain.Property) error
	Invalidate(ctx context.Context, id string) error
}
