// Package schemas holds the JSON schemas of published events and accepted forms.
package schemas

import "embed"

//go:embed events forms
var SchemasFS embed.FS
