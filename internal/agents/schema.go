package agents

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/xeipuuv/gojsonschema"
)

// ErrSchemaMismatch is returned when a model reply does not match the expected shape
var ErrSchemaMismatch = errors.New("model output does not match schema")

// schemas for the structured agent outputs
var (
	categorySchema     = mustSchema(categorySchemaDoc())
	queriesSchema      = mustSchema(`{"type":"object","required":["queries"],"properties":{"queries":{"type":"array","items":{"type":"string"}}}}`)
	writerSchema       = mustSchema(`{"type":"object","required":["email"],"properties":{"email":{"type":"string","minLength":1}}}`)
	reviewSchema       = mustSchema(`{"type":"object","required":["feedback","send"],"properties":{"feedback":{"type":"string"},"send":{"type":"boolean"}}}`)
	samsaraQuerySchema = mustSchema(samsaraQuerySchemaDoc())
)

func categorySchemaDoc() string {
	return objectSchema(map[string]interface{}{
		"category": map[string]interface{}{"type": "string", "enum": core.Categories},
	}, "category")
}

func samsaraQuerySchemaDoc() string {
	return objectSchema(map[string]interface{}{
		"query_type":      map[string]interface{}{"type": "string", "enum": core.SamsaraQueryTypes},
		"identifiers":     map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
		"additional_info": map[string]interface{}{"type": "object"},
	}, "query_type")
}

func objectSchema(properties map[string]interface{}, required ...string) string {
	doc, err := json.Marshal(map[string]interface{}{
		"type":       "object",
		"required":   required,
		"properties": properties,
	})
	if err != nil {
		panic(err)
	}
	return string(doc)
}

func mustSchema(doc string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("invalid agent schema: %v", err))
	}
	return schema
}

// extractJSON returns the outermost JSON object in a model reply
func extractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object in response", ErrSchemaMismatch)
	}
	candidate := trimmed[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", fmt.Errorf("%w: malformed JSON in response", ErrSchemaMismatch)
	}
	return candidate, nil
}

// decode validates a model reply against schema and unmarshals it into out
func decode(schema *gojsonschema.Schema, text string, out interface{}) error {
	doc, err := extractJSON(text)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(problems, "; "))
	}

	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return fmt.Errorf("failed to decode model output: %w", err)
	}
	return nil
}
