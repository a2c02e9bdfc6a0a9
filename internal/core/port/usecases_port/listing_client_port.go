package usecases_port

import (
	"context"
	"rental-system/internal/core/domain"
)

// ListingState is a snapshot of the listing client's shared state.
type ListingState struct {
	Properties []domain.Property
	Loading    bool
	Error      string
}

// CreateListingResult is the created listing plus the outcome of each write step
// (one per image upload, then the record insert).
type CreateListingResult struct {
	Property domain.Property
	Steps    domain.StepReport
}

type ListingClientPort interface {
	FetchAll(ctx context.Context) []domain.Property
	GetByID(ctx context.Context, id string) (*domain.Property, error)
	Create(ctx context.Context, form domain.ListingForm, images []domain.ImageFile) (*CreateListingResult, error)
	Update(ctx context.Context, id string, patch domain.PropertyPatch) (*domain.Property, error)
	Delete(ctx context.Context, id string) (domain.StepReport, error)
	State() ListingState
}
