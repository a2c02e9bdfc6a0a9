package contracts

import (
	"strings"
	"testing"
)

func TestGenerateKeyFromPath(t *testing.T) {
	cases := map[string]string{
		"events/listing-created/v1.json": "ListingCreatedEvent/1.0.0",
		"events/message-sent/v2.json":    "MessageSentEvent/2.0.0",
		"forms/listing/v1.json":          "ListingForm/1.0.0",
		"other/listing/v1.json":          "",
		"events/v1.json":                 "",
	}
	for path, want := range cases {
		if got := generateKeyFromPath(path); got != want {
			t.Errorf("generateKeyFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestEmbeddedSchemasCompiled(t *testing.T) {
	for _, key := range []string{
		"ListingCreatedEvent/1.0.0",
		"ListingUpdatedEvent/1.0.0",
		"ListingDeletedEvent/1.0.0",
		"MessageSentEvent/1.0.0",
		"ListingForm/1.0.0",
	} {
		if _, ok := compiledSchemas[key]; !ok {
			t.Errorf("schema %s not registered", key)
		}
	}
}

func TestValidateEvent(t *testing.T) {
	valid := `{"listing_id":"0b7e5f4c-8d0e-4c35-9c2c-0c8f2a1d9e11","landlord_id":"u1","price":12000,"occurred_at":"2026-10-17T10:00:00Z"}`
	if err := ValidateEvent("listing.created", EventVersion, []byte(valid)); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	missing := `{"landlord_id":"u1","occurred_at":"2026-10-17T10:00:00Z"}`
	if err := ValidateEvent("listing.created", EventVersion, []byte(missing)); err == nil {
		t.Fatal("event without listing_id accepted")
	}

	if err := ValidateEvent("listing.archived", EventVersion, []byte(valid)); err == nil ||
		!strings.Contains(err.Error(), "not found") {
		t.Fatalf("unknown event type: got %v", err)
	}

	if err := ValidateEvent("listing.created", EventVersion, []byte("{")); err == nil {
		t.Fatal("malformed JSON accepted")
	}
}

func TestValidateListingForm(t *testing.T) {
	form := `{
		"title": "Bright flat",
		"description": "Two rooms close to the lakes and the metro.",
		"price": 12000,
		"location": "København N",
		"property_type": "apartment",
		"size": 65,
		"bedrooms": 2,
		"bathrooms": 1,
		"deposit": 36000,
		"amenities": ["balcony"],
		"available_from": "2026-11-01"
	}`
	if err := ValidateListingForm([]byte(form)); err != nil {
		t.Fatalf("valid form rejected: %v", err)
	}

	wrongType := strings.Replace(form, `"bedrooms": 2`, `"bedrooms": "two"`, 1)
	if err := ValidateListingForm([]byte(wrongType)); err == nil {
		t.Fatal("string bedrooms accepted")
	}

	extra := strings.Replace(form, `"price": 12000,`, `"price": 12000, "owner": "me",`, 1)
	if err := ValidateListingForm([]byte(extra)); err == nil {
		t.Fatal("unknown field accepted")
	}
}
