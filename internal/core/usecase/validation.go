package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"rental-system/internal/core/domain"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ListingValidator checks listing forms and patches before any network call.
type ListingValidator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewListingValidator builds a validator. now decides what "today" is for available_from.
func NewListingValidator(now func() time.Time) *ListingValidator {
	if now == nil {
		now = time.Now
	}
	v := &ListingValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      now,
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.validate.RegisterValidation("property_type", validatePropertyType)
	_ = v.validate.RegisterValidation("not_in_past", v.validateNotInPast)

	return v
}

// ValidateForm returns domain.ValidationErrors listing every rejected field, or nil.
func (v *ListingValidator) ValidateForm(form domain.ListingForm) error {
	return v.toDomain(v.validate.Struct(form))
}

// ValidatePatch checks only the fields present in the patch.
func (v *ListingValidator) ValidatePatch(patch domain.PropertyPatch) error {
	if patch.IsEmpty() {
		return domain.ValidationErrors{{Field: "patch", Message: "no fields to update"}}
	}
	return v.toDomain(v.validate.Struct(patch))
}

func validatePropertyType(fl validator.FieldLevel) bool {
	return slices.Contains(domain.PropertyTypes, domain.PropertyType(fl.Field().String()))
}

// validateNotInPast accepts any moment from the start of today onwards.
func (v *ListingValidator) validateNotInPast(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	now := v.now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return !t.Before(startOfToday)
}

func (v *ListingValidator) toDomain(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	out := make(domain.ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, domain.FieldError{
			Field:   fieldPath(fe),
			Message: messageFor(fe),
		})
	}
	return out
}

// fieldPath drops the struct name prefix: "ListingForm.amenities[2]" -> "amenities[2]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "latitude":
		return "must be a latitude between -90 and 90"
	case "longitude":
		return "must be a longitude between -180 and 180"
	case "property_type":
		names := make([]string, 0, len(domain.PropertyTypes))
		for _, t := range domain.PropertyTypes {
			names = append(names, string(t))
		}
		return "must be one of " + strings.Join(names, ", ")
	case "not_in_past":
		return "must not be in the past"
	}
	return "is invalid (" + fe.Tag() + ")"
}
