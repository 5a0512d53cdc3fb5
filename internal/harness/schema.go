package harness

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema reflects the scenario file format into a JSON Schema document, for
// editor completion and validation of scenario YAML.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	s := reflector.Reflect(&Scenario{})
	s.Title = "gonogo scenario"
	s.Description = "A scripted sequence of go/no-go trials run against a recorded hardware link."
	return s
}

// SchemaJSON returns Schema as indented JSON.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}
