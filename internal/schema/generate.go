// Package schema generates JSON-schema fragments from Go input structs and
// validates inbound call_tool arguments against a JSON-schema subset, per
// the tool plane's "implement or embed a small validator; do not require a
// full Draft-2020 engine" design note.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Generate reflects a Go struct into a JSON-schema object, stripped of the
// top-level $schema/$id fields so it can be embedded directly as a tool's
// parameter_schema.
func Generate(inputType any) (map[string]any, error) {
	reflector := &jsonschema.Reflector{DoNotReference: true}
	s := reflector.Reflect(inputType)

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	delete(m, "$schema")
	delete(m, "$id")
	return m, nil
}
