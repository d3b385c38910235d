package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/grovetools/vdd/pkg/models"
)

//go:generate sh -c "cd .. && go run ./tools/schema-generator/"

// Generate reflects the monitor types into a JSON Schema document.
func Generate() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	schema := r.Reflect(&models.Topology{})
	schema.Title = "Virtual Display Driver Topology"
	schema.Description = "The monitors persisted for the virtual display driver."

	return json.MarshalIndent(schema, "", "  ")
}
