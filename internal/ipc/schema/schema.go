package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalid marks a params payload rejected by a method schema.
var ErrInvalid = errors.New("invalid params")

// Schema validates the params of engine calls that carry structured
// payloads. Methods without a registered schema pass unchecked.
type Schema struct {
	schemas map[string]*gojsonschema.Schema
}

//go:embed add_download.json
var addDownloadSchema json.RawMessage

//go:embed set_speed_limit.json
var setSpeedLimitSchema json.RawMessage

//go:embed update_settings.json
var updateSettingsSchema json.RawMessage

func New() (*Schema, error) {
	sources := map[string]json.RawMessage{
		"add_download":    addDownloadSchema,
		"set_speed_limit": setSpeedLimitSchema,
		"update_settings": updateSettingsSchema,
	}

	schemas := make(map[string]*gojsonschema.Schema, len(sources))
	for method, src := range sources {
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(src))
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", method, err)
		}
		schemas[method] = s
	}

	return &Schema{schemas: schemas}, nil
}

// Validate checks params against the schema registered for method,
// if any. It returns a single error naming every violated constraint.
func (s *Schema) Validate(method string, params map[string]any) error {
	schema, ok := s.schemas[method]
	if !ok {
		return nil
	}

	if params == nil {
		params = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return err
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}

	return fmt.Errorf("%w for %s: %s", ErrInvalid, method, strings.Join(messages, "; "))
}
