// Package seed embeds the default reference document.
package seed

import (
	_ "embed"

	"sunquote/backend/services/quote-service/internal/refdata"
)

//go:embed reference.yaml
var referenceYAML []byte

// Name labels the embedded document in logs.
const Name = "seed:reference.yaml"

// Reference returns a copy of the embedded YAML.
func Reference() []byte {
	out := make([]byte, len(referenceYAML))
	copy(out, referenceYAML)
	return out
}

// Source serves the embedded document.
func Source() *refdata.StaticSource {
	return refdata.NewStaticSource(Name, Reference())
}
