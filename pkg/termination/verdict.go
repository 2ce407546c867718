package termination

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// verdictSchema is the JSON Schema the judge's answer must satisfy. Both
// fields are mandatory and strictly typed; anything else is a parse failure.
const verdictSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["is_done", "reason"],
  "properties": {
    "is_done": {
      "type": "boolean",
      "description": "Whether the goal has been reached"
    },
    "reason": {
      "type": "string",
      "description": "The reason for the decision"
    }
  }
}`

// verdict is the judge's two-field answer.
type verdict struct {
	IsDone bool   `json:"is_done"`
	Reason string `json:"reason"`
}

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadVerdictSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(verdictSchema))
	})
	return compiledSchema, schemaErr
}

// decodeVerdict performs the strict-schema decode of the judge's raw text.
// Every failure path returns an error for the caller to fold into a
// non-terminal verdict; it never panics and never partially decodes.
func decodeVerdict(raw string) (verdict, error) {
	schema, err := loadVerdictSchema()
	if err != nil {
		return verdict{}, fmt.Errorf("verdict schema invalid: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		// Not valid JSON at all
		return verdict{}, fmt.Errorf("verdict is not valid JSON: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return verdict{}, fmt.Errorf("verdict does not match schema: %s", errs[0].String())
		}
		return verdict{}, fmt.Errorf("verdict does not match schema")
	}

	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return verdict{}, fmt.Errorf("verdict decode failed: %w", err)
	}

	return v, nil
}
