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
	"sync"
	"time"
)

type ListingClientConfig struct {
	MaxImageBytes       int64
	PlaceholderImageURL string
	// Now defaults to time.Now.
	Now func() time.Time
}

// ListingClient owns the shared listing collection and every write to listings.
type ListingClient struct {
	repo      port.PropertyRepositoryPort
	storage   port.ObjectStoragePort
	cache     port.ListingCachePort
	events    port.EventPublisherPort
	validator *ListingValidator
	cfg       ListingClientConfig

	state stateTracker

	mu         sync.RWMutex
	properties []domain.Property
}

var _ usecases_port.ListingClientPort = (*ListingClient)(nil)

// NewListingClient wires the client. cache and events may be nil.
func NewListingClient(
	repo port.PropertyRepositoryPort,
	storage port.ObjectStoragePort,
	cache port.ListingCachePort,
	events port.EventPublisherPort,
	cfg ListingClientConfig,
) *ListingClient {
	if cache == nil {
		cache = NoopListingCache{}
	}
	if events == nil {
		events = NoopEventPublisher{}
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}
	if cfg.PlaceholderImageURL == "" {
		cfg.PlaceholderImageURL = domain.DefaultPlaceholderImage
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ListingClient{
		repo:       repo,
		storage:    storage,
		cache:      cache,
		events:     events,
		validator:  NewListingValidator(cfg.Now),
		cfg:        cfg,
		properties: []domain.Property{},
	}
}

func (c *ListingClient) now() time.Time { return c.cfg.Now() }

// State returns a copy of the collection plus the loading flag and last error.
func (c *ListingClient) State() usecases_port.ListingState {
	loading, lastErr := c.state.snapshot()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return usecases_port.ListingState{
		Properties: slices.Clone(c.properties),
		Loading:    loading,
		Error:      lastErr,
	}
}

// FetchAll replaces the collection with every listing, newest first.
// A failure is recorded in State and yields an empty slice rather than an error.
func (c *ListingClient) FetchAll(ctx context.Context) []domain.Property {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "FetchAllListings",
	})
	ucLogger.Info("Use case started", nil)

	c.state.begin()
	props, err := c.repo.List(ctx)
	if err != nil {
		err = domain.Transport(fmt.Errorf("failed to fetch listings: %w", err))
		ucLogger.Error("Repository returned an error", err, nil)
		c.state.end(err)
		return []domain.Property{}
	}
	if props == nil {
		props = []domain.Property{}
	}

	c.mu.Lock()
	c.properties = props
	c.mu.Unlock()
	c.state.end(nil)

	ucLogger.Info("Use case finished successfully", port.Fields{"count": len(props)})
	return slices.Clone(props)
}

// GetByID returns one listing or domain.ErrNotFound. A missing listing is
// not recorded as a failure in State.
func (c *ListingClient) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "GetListingByID",
		"listing_id": id,
	})
	ucLogger.Info("Use case started", nil)

	if cached, err := c.cache.Get(ctx, id); err != nil {
		ucLogger.Warn("Listing cache read failed", port.Fields{"error": err.Error()})
	} else if cached != nil {
		ucLogger.Debug("Listing served from cache", nil)
		return cached, nil
	}

	c.state.begin()
	p, err := c.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		c.state.end(nil)
		ucLogger.Info("Listing not found", nil)
		return nil, domain.ErrNotFound
	}
	if err != nil {
		err = domain.Transport(fmt.Errorf("failed to get listing %s: %w", id, err))
		ucLogger.Error("Repository returned an error", err, nil)
		c.state.end(err)
		return nil, err
	}
	c.state.end(nil)

	if err := c.cache.Set(ctx, *p); err != nil {
		ucLogger.Warn("Listing cache write failed", port.Fields{"error": err.Error()})
	}

	ucLogger.Info("Use case finished successfully", nil)
	return p, nil
}

// Create validates form, uploads images one by one, and inserts the listing with
// whichever images made it. A failed upload does not stop the others; a listing
// with no surviving images gets the placeholder.
func (c *ListingClient) Create(ctx context.Context, form domain.ListingForm, images []domain.ImageFile) (*usecases_port.CreateListingResult, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "CreateListing",
		"images":   len(images),
	})
	ucLogger.Info("Use case started", nil)

	c.state.begin()
	result, err := c.create(ctx, ucLogger, form, images)
	c.state.end(err)
	if err != nil {
		return nil, err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{
		"listing_id":      result.Property.ID,
		"images_uploaded": result.Steps.Succeeded(domain.StepUploadImage),
	})
	return result, nil
}

func (c *ListingClient) create(ctx context.Context, ucLogger port.LoggerPort, form domain.ListingForm, images []domain.ImageFile) (*usecases_port.CreateListingResult, error) {
	user, ok := contextkeys.UserFromContext(ctx)
	if !ok {
		ucLogger.Warn("Unauthenticated create attempt", nil)
		return nil, domain.ErrNotAuthenticated
	}
	ucLogger = ucLogger.WithFields(port.Fields{"user_id": user.UserID})

	form = normalizeForm(form)
	if err := c.validator.ValidateForm(form); err != nil {
		ucLogger.Warn("Listing form rejected", port.Fields{"error": err.Error()})
		return nil, err
	}

	urls := make([]string, 0, len(images))
	steps := make([]step, 0, len(images)+1)
	for _, img := range images {
		steps = append(steps, step{
			name:   domain.StepUploadImage,
			target: img.Name,
			policy: domain.ContinueOnFailure,
			run: func(ctx context.Context) error {
				url, err := c.uploadImage(ctx, user.UserID, img)
				if err != nil {
					return err
				}
				urls = append(urls, url)
				return nil
			},
		})
	}

	var created *domain.Property
	steps = append(steps, step{
		name:   domain.StepInsertListing,
		policy: domain.AbortOnFailure,
		run: func(ctx context.Context) error {
			if len(urls) == 0 {
				urls = append(urls, c.cfg.PlaceholderImageURL)
			}
			p := form.ToProperty(user.UserID, urls)
			p.Geohash = geohashOf(p)

			var err error
			created, err = c.repo.Insert(ctx, p)
			if err != nil {
				return domain.Transport(fmt.Errorf("failed to insert listing: %w", err))
			}
			return nil
		},
	})

	report, err := runSteps(ctx, ucLogger, steps)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.properties = append([]domain.Property{*created}, c.properties...)
	c.mu.Unlock()

	c.publish(ctx, ucLogger, port.EventListingCreated, domain.NewListingEvent(*created, c.now()))

	return &usecases_port.CreateListingResult{Property: *created, Steps: report}, nil
}

// Update writes only the fields present in patch and merges them into the
// cached copy without a re-fetch. Only the owning landlord may update.
func (c *ListingClient) Update(ctx context.Context, id string, patch domain.PropertyPatch) (*domain.Property, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "UpdateListing",
		"listing_id": id,
	})
	ucLogger.Info("Use case started", nil)

	c.state.begin()
	updated, err := c.update(ctx, ucLogger, id, patch)
	c.state.end(err)
	if err != nil {
		return nil, err
	}

	ucLogger.Info("Use case finished successfully", nil)
	return updated, nil
}

func (c *ListingClient) update(ctx context.Context, ucLogger port.LoggerPort, id string, patch domain.PropertyPatch) (*domain.Property, error) {
	user, ok := contextkeys.UserFromContext(ctx)
	if !ok {
		return nil, domain.ErrNotAuthenticated
	}

	patch = normalizePatch(patch)
	if err := c.validator.ValidatePatch(patch); err != nil {
		ucLogger.Warn("Listing patch rejected", port.Fields{"error": err.Error()})
		return nil, err
	}

	existing, err := c.loadOwned(ctx, id, user.UserID)
	if err != nil {
		return nil, err
	}

	if err := c.checkPatchImages(existing.LandlordID, patch.Images); err != nil {
		ucLogger.Warn("Listing patch rejected", port.Fields{"error": err.Error()})
		return nil, err
	}

	if patch.Latitude != nil || patch.Longitude != nil {
		gh := geohashOf(existing.Apply(patch))
		patch.Geohash = &gh
	}

	if err := c.repo.Update(ctx, id, patch); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		err = domain.Transport(fmt.Errorf("failed to update listing %s: %w", id, err))
		ucLogger.Error("Repository returned an error", err, nil)
		return nil, err
	}

	updated := existing.Apply(patch)
	updated.UpdatedAt = c.now()

	c.mu.Lock()
	for i := range c.properties {
		if c.properties[i].ID == id {
			c.properties[i] = c.properties[i].Apply(patch)
			c.properties[i].UpdatedAt = updated.UpdatedAt
		}
	}
	c.mu.Unlock()

	c.invalidate(ctx, ucLogger, id)
	c.publish(ctx, ucLogger, port.EventListingUpdated, domain.NewListingEvent(updated, c.now()))

	return &updated, nil
}

// Delete removes every image of the listing from storage, continuing past
// failures, then deletes the record. The listing leaves the collection only
// when the record deletion succeeded.
func (c *ListingClient) Delete(ctx context.Context, id string) (domain.StepReport, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "DeleteListing",
		"listing_id": id,
	})
	ucLogger.Info("Use case started", nil)

	c.state.begin()
	report, err := c.delete(ctx, ucLogger, id)
	c.state.end(err)
	if err != nil {
		return report, err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{
		"images_removed": report.Succeeded(domain.StepRemoveImage),
		"failed_steps":   len(report.Failed()),
	})
	return report, nil
}

func (c *ListingClient) delete(ctx context.Context, ucLogger port.LoggerPort, id string) (domain.StepReport, error) {
	user, ok := contextkeys.UserFromContext(ctx)
	if !ok {
		return domain.StepReport{}, domain.ErrNotAuthenticated
	}

	existing, err := c.loadOwned(ctx, id, user.UserID)
	if err != nil {
		return domain.StepReport{}, err
	}

	steps := make([]step, 0, len(existing.Images)+1)
	for _, url := range existing.Images {
		objectPath, ours := c.storage.ObjectPath(url)
		if !ours {
			// Placeholder or external URL, nothing stored for it.
			ucLogger.Debug("Skipping image not held in storage", port.Fields{"url": url})
			continue
		}
		if !ownsObject(existing.LandlordID, objectPath) {
			ucLogger.Warn("Skipping image owned by another landlord", port.Fields{"object_path": objectPath})
			continue
		}
		steps = append(steps, step{
			name:   domain.StepRemoveImage,
			target: objectPath,
			policy: domain.ContinueOnFailure,
			run: func(ctx context.Context) error {
				if err := c.storage.Remove(ctx, objectPath); err != nil {
					return domain.Transport(fmt.Errorf("failed to remove image %s: %w", objectPath, err))
				}
				return nil
			},
		})
	}
	steps = append(steps, step{
		name:   domain.StepDeleteListing,
		target: id,
		policy: domain.AbortOnFailure,
		run: func(ctx context.Context) error {
			if err := c.repo.Delete(ctx, id); err != nil {
				return domain.Transport(fmt.Errorf("failed to delete listing %s: %w", id, err))
			}
			return nil
		},
	})

	report, err := runSteps(ctx, ucLogger, steps)
	if err != nil {
		return report, err
	}

	c.mu.Lock()
	c.properties = slices.DeleteFunc(c.properties, func(p domain.Property) bool { return p.ID == id })
	c.mu.Unlock()

	c.invalidate(ctx, ucLogger, id)
	c.publish(ctx, ucLogger, port.EventListingDeleted, domain.NewListingEvent(*existing, c.now()))

	return report, nil
}

// loadOwned fetches the listing and checks userID is its landlord.
func (c *ListingClient) loadOwned(ctx context.Context, id, userID string) (*domain.Property, error) {
	existing, err := c.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.Transport(fmt.Errorf("failed to load listing %s: %w", id, err))
	}
	if existing.LandlordID != userID {
		return nil, fmt.Errorf("%w: listing %s belongs to another landlord", domain.ErrForbidden, id)
	}
	return existing, nil
}

func (c *ListingClient) invalidate(ctx context.Context, logger port.LoggerPort, id string) {
	if err := c.cache.Invalidate(ctx, id); err != nil {
		logger.Warn("Listing cache invalidation failed", port.Fields{"error": err.Error()})
	}
}

// publish is best effort: the write already happened.
func (c *ListingClient) publish(ctx context.Context, logger port.LoggerPort, eventType string, payload any) {
	if err := c.events.Publish(ctx, eventType, payload); err != nil {
		logger.Warn("Failed to publish event", port.Fields{"event_type": eventType, "error": err.Error()})
	}
}
