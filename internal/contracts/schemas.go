package contracts

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"rental-system/schemas"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EventVersion is the schema version every published event conforms to.
const EventVersion = "1.0.0"

const listingFormKey = "ListingForm/1.0.0"

var compiledSchemas = make(map[string]*jsonschema.Schema)

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	// All schemas are added first so they can $ref each other.
	var paths []string
	err := fs.WalkDir(schemas.SchemasFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		file, err := schemas.SchemasFS.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		if err := compiler.AddResource(path, file); err != nil {
			return fmt.Errorf("add schema resource %s: %w", path, err)
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("contracts: loading embedded schemas: %v", err))
	}

	for _, path := range paths {
		schema, err := compiler.Compile(path)
		if err != nil {
			panic(fmt.Sprintf("contracts: compiling schema %s: %v", path, err))
		}
		compiledSchemas[generateKeyFromPath(path)] = schema
	}
}

// generateKeyFromPath turns "events/listing-created/v1.json" into
// "ListingCreatedEvent/1.0.0" and "forms/listing/v1.json" into "ListingForm/1.0.0".
func generateKeyFromPath(path string) string {
	trimmed := strings.TrimSuffix(path, ".json")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 3 {
		return ""
	}

	var suffix string
	switch parts[0] {
	case "events":
		suffix = "Event"
	case "forms":
		suffix = "Form"
	default:
		return ""
	}

	version := strings.TrimPrefix(parts[2], "v") + ".0.0"
	return fmt.Sprintf("%s%s/%s", pascalCase(strings.Split(parts[1], "-")), suffix, version)
}

func pascalCase(words []string) string {
	caser := cases.Title(language.English)
	var b strings.Builder
	for _, w := range words {
		b.WriteString(caser.String(w))
	}
	return b.String()
}

// EventSchemaName maps an event type such as "listing.created" to "ListingCreatedEvent".
func EventSchemaName(eventType string) string {
	return pascalCase(strings.Split(eventType, ".")) + "Event"
}

// ValidateEvent checks body against the schema registered for the event type and version.
func ValidateEvent(eventType, eventVersion string, body []byte) error {
	key := fmt.Sprintf("%s/%s", EventSchemaName(eventType), eventVersion)
	return validate(key, body)
}

// ValidateListingForm checks the JSON of a submitted listing form for shape and types.
// Value ranges are enforced later by the listing validator.
func ValidateListingForm(body []byte) error {
	return validate(listingFormKey, body)
}

func validate(key string, body []byte) error {
	schema, ok := compiledSchemas[key]
	if !ok {
		return fmt.Errorf("schema %s not found", key)
	}

	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("body is not valid JSON: %w", err)
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}
	return nil
}
