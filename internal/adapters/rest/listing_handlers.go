package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"rental-system/internal/contextkeys"
	"rental-system/internal/contracts"
	"rental-system/internal/core/domain"
	"rental-system/internal/core/port"
	"rental-system/internal/core/port/usecases_port"
	"rental-system/internal/core/search"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	maxListingJSONBytes = 64 << 10
	maxImagesPerListing = 20
)

type ListingHandler struct {
	client        usecases_port.ListingClientPort
	maxImageBytes int64
}

func NewListingHandler(client usecases_port.ListingClientPort, maxImageBytes int64) *ListingHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = 5 << 20
	}
	return &ListingHandler{client: client, maxImageBytes: maxImageBytes}
}

// ListListings handles GET /api/v1/listings: fetch, then filter and sort in memory.
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ListListings"})

	filters, order, err := parseSearchQuery(r)
	if errors.Is(err, errMineUnauthenticated) {
		WriteJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if err != nil {
		logger.Warn("Invalid search query", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	all := h.client.FetchAll(r.Context())
	result := search.Apply(all, filters, order)

	resp := ListingsResponse{
		Data:  toPropertyResponses(result),
		Total: len(result),
		Sort:  string(order),
	}
	if len(all) == 0 {
		resp.Error = h.client.State().Error
	}

	RespondWithJSON(w, http.StatusOK, resp)
}

// ListingStatus handles GET /api/v1/listings/status.
func (h *ListingHandler) ListingStatus(w http.ResponseWriter, r *http.Request) {
	state := h.client.State()
	RespondWithJSON(w, http.StatusOK, ListingStatusResponse{
		Loading: state.Loading,
		Error:   state.Error,
		Count:   len(state.Properties),
	})
}

// GetListing handles GET /api/v1/listings/{id}.
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetListing", "listing_id": id})

	p, err := h.client.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, logger, err, "Failed to retrieve listing")
		return
	}
	RespondWithJSON(w, http.StatusOK, toPropertyResponse(*p))
}

// FilterOptions handles GET /api/v1/filters/options.
func (h *ListingHandler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	all := h.client.FetchAll(r.Context())
	RespondWithJSON(w, http.StatusOK, toFilterOptionsResponse(search.Options(all)))
}

// CreateListing handles POST /api/v1/listings. It takes either a JSON body or a
// multipart form with a "listing" JSON part and any number of "images" files.
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "CreateListing"})

	r.Body = http.MaxBytesReader(w, r.Body, maxImagesPerListing*h.maxImageBytes+maxListingJSONBytes+(1<<20))

	var (
		raw    []byte
		images []domain.ImageFile
		err    error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var closeAll func()
		raw, images, closeAll, err = h.readMultipart(r)
		if closeAll != nil {
			defer closeAll()
		}
	} else {
		raw, err = io.ReadAll(io.LimitReader(r.Body, maxListingJSONBytes+1))
		if err == nil && len(raw) > maxListingJSONBytes {
			err = fmt.Errorf("listing JSON exceeds %d bytes", maxListingJSONBytes)
		}
	}
	if err != nil {
		logger.Warn("Failed to read create listing request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	form, err := decodeListingForm(raw)
	if err != nil {
		logger.Warn("Listing JSON rejected", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.client.Create(r.Context(), form, images)
	if err != nil {
		writeDomainError(w, logger, err, "Failed to create listing")
		return
	}

	RespondWithJSON(w, http.StatusCreated, CreateListingResponse{
		Listing:        toPropertyResponse(result.Property),
		ImagesUploaded: result.Steps.Succeeded(domain.StepUploadImage),
		FailedSteps:    toStepFailures(result.Steps),
	})
}

func decodeListingForm(raw []byte) (domain.ListingForm, error) {
	if err := contracts.ValidateListingForm(raw); err != nil {
		return domain.ListingForm{}, err
	}

	var req createListingRequest
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&req); err != nil {
		return domain.ListingForm{}, fmt.Errorf("invalid listing JSON: %w", err)
	}
	availableFrom, err := parseDate(req.AvailableFrom)
	if err != nil {
		return domain.ListingForm{}, fmt.Errorf("available_from: %w", err)
	}

	form := req.ListingForm
	form.AvailableFrom = availableFrom
	return form, nil
}

// readMultipart returns the listing JSON and the opened image files.
// The caller must run closeAll once the images have been consumed.
func (h *ListingHandler) readMultipart(r *http.Request) ([]byte, []domain.ImageFile, func(), error) {
	// Files beyond the 8MiB memory limit are spooled to disk by the parser.
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	raw := []byte(r.FormValue("listing"))
	if len(raw) == 0 {
		return nil, nil, nil, errors.New(`multipart form has no "listing" part`)
	}

	headers := r.MultipartForm.File["images"]
	if len(headers) > maxImagesPerListing {
		return nil, nil, nil, fmt.Errorf("at most %d images per listing", maxImagesPerListing)
	}

	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
		_ = r.MultipartForm.RemoveAll()
	}

	images := make([]domain.ImageFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, nil, closeAll, fmt.Errorf("failed to open image %q: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		images = append(images, domain.ImageFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return raw, images, closeAll, nil
}

// UpdateListing handles PATCH /api/v1/listings/{id}.
func (h *ListingHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "UpdateListing", "listing_id": id})

	var req updateListingRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxListingJSONBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logger.Warn("Failed to decode update request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	patch := req.PropertyPatch
	if req.AvailableFrom != nil {
		t, err := parseDate(*req.AvailableFrom)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "available_from: "+err.Error())
			return
		}
		patch.AvailableFrom = &t
	}

	updated, err := h.client.Update(r.Context(), id, patch)
	if err != nil {
		writeDomainError(w, logger, err, "Failed to update listing")
		return
	}
	RespondWithJSON(w, http.StatusOK, toPropertyResponse(*updated))
}

// DeleteListing handles DELETE /api/v1/listings/{id}. Image cleanup failures
// do not fail the request; they are reported in failed_steps.
func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "DeleteListing", "listing_id": id})

	report, err := h.client.Delete(r.Context(), id)
	if err != nil {
		writeDomainError(w, logger, err, "Failed to delete listing")
		return
	}

	RespondWithJSON(w, http.StatusOK, DeleteListingResponse{
		Deleted:       true,
		ImagesRemoved: report.Succeeded(domain.StepRemoveImage),
		FailedSteps:   toStepFailures(report),
	})
}
