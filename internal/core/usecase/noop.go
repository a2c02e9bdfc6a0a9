package usecase

import (
	"context"
	"rental-system/internal/core/domain"
	"rental-system/internal/core/port"
)

// NoopListingCache never hits. Used when redis is disabled.
type NoopListingCache struct{}

var _ port.ListingCachePort = NoopListingCache{}

func (NoopListingCache) Get(context.Context, string) (*domain.Property, error) { return nil, nil }
func (NoopListingCache) Set(context.Context, domain.Property) error            { return nil }
func (NoopListingCache) Invalidate(context.Context, string) error              { return nil }

// NoopEventPublisher drops every event. Used when rabbitmq is disabled.
type NoopEventPublisher struct{}

var _ port.EventPublisherPort = NoopEventPublisher{}

func (NoopEventPublisher) Publish(context.Context, string, any) error { return nil }
