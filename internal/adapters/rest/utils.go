package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"rental-system/internal/contextkeys"
	"rental-system/internal/core/domain"
	"rental-system/internal/core/port"
	"strconv"
	"strings"
	"time"
)

// WriteJSONError sends {"error": message} with the given status.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// RespondWithJSON sends payload as JSON.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// writeDomainError maps a use case error onto a status code.
func writeDomainError(w http.ResponseWriter, logger port.LoggerPort, err error, fallback string) {
	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		RespondWithJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "Validation failed", Details: verrs})
	case errors.Is(err, domain.ErrValidation):
		WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNotAuthenticated):
		WriteJSONError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, domain.ErrForbidden):
		WriteJSONError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, domain.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrTransport):
		logger.Error("Upstream failure", err, nil)
		WriteJSONError(w, http.StatusBadGateway, fallback)
	default:
		logger.Error("Unexpected error", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, fallback)
	}
}

// parseDate accepts a calendar date ("2026-11-01") or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither YYYY-MM-DD nor RFC 3339", s)
	}
	return t, nil
}

func queryFloat(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%s must be a finite number", name)
	}
	return &v, nil
}

func queryInt(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", name)
	}
	return &v, nil
}

func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &t, nil
}

// errMineUnauthenticated is returned for mine=true on an anonymous request.
var errMineUnauthenticated = errors.New("mine=true requires authentication")

// queryPropertyType accepts any known type in any case, or "all" to disable the filter.
func queryPropertyType(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("property_type"))
	if raw == "" || strings.EqualFold(raw, domain.PropertyTypeAll) {
		return "", nil
	}
	t, err := domain.ParsePropertyType(raw)
	if err != nil {
		return "", fmt.Errorf("property_type: %w", err)
	}
	return string(t), nil
}

// queryLandlord resolves landlord_id and mine=true into one landlord filter.
func queryLandlord(r *http.Request) (string, error) {
	q := r.URL.Query()
	landlordID := strings.TrimSpace(q.Get("landlord_id"))

	raw := strings.TrimSpace(q.Get("mine"))
	if raw == "" {
		return landlordID, nil
	}
	mine, err := strconv.ParseBool(raw)
	if err != nil {
		return "", errors.New("mine must be true or false")
	}
	if !mine {
		return landlordID, nil
	}
	user, ok := contextkeys.UserFromContext(r.Context())
	if !ok {
		return "", errMineUnauthenticated
	}
	if landlordID != "" && landlordID != user.UserID {
		return "", errors.New("landlord_id conflicts with mine=true")
	}
	return user.UserID, nil
}

// parseSearchQuery reads the listing filters and sort order from the query string.
func parseSearchQuery(r *http.Request) (domain.SearchFilters, domain.SortOrder, error) {
	q := r.URL.Query()
	filters := domain.SearchFilters{
		Query:    q.Get("q"),
		Location: q.Get("location"),
	}

	var err error
	if filters.PropertyType, err = queryPropertyType(r); err != nil {
		return filters, "", err
	}
	if filters.LandlordID, err = queryLandlord(r); err != nil {
		return filters, "", err
	}
	if filters.MinPrice, err = queryFloat(r, "min_price"); err != nil {
		return filters, "", err
	}
	if filters.MaxPrice, err = queryFloat(r, "max_price"); err != nil {
		return filters, "", err
	}
	if filters.Bedrooms, err = queryInt(r, "bedrooms"); err != nil {
		return filters, "", err
	}
	if filters.MinSize, err = queryFloat(r, "min_size"); err != nil {
		return filters, "", err
	}
	if filters.AvailableBy, err = queryDate(r, "available_by"); err != nil {
		return filters, "", err
	}

	order, err := domain.ParseSortOrder(q.Get("sort"))
	if err != nil {
		return filters, "", err
	}
	return filters, order, nil
}
