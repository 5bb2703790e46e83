// Package registryfile decodes the static registry documents (blueprints,
// clusters, presets). Documents may be YAML or TOML and are validated against
// a JSON schema before being bound to Go types.
package registryfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every decode or validation failure.
var ErrInvalid = errors.New("registryfile: invalid document")

// Format is the syntax of a registry document.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// FormatOf picks the format from a file extension. Anything that is not
// .toml is treated as YAML.
func FormatOf(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".toml") {
		return TOML
	}
	return YAML
}

// Decode parses data, validates it against schema and binds it into v using
// v's json tags.
func Decode(format Format, data []byte, schema []byte, v any) error {
	var doc map[string]any
	switch format {
	case TOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%w: toml: %v", ErrInvalid, err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%w: yaml: %v", ErrInvalid, err)
		}
	}
	if doc == nil {
		doc = map[string]any{}
	}

	if len(schema) > 0 {
		result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewGoLoader(doc))
		if err != nil {
			return fmt.Errorf("%w: schema: %v", ErrInvalid, err)
		}
		if !result.Valid() {
			var problems []string
			for _, desc := range result.Errors() {
				problems = append(problems, desc.String())
			}
			return fmt.Errorf("%w:\n%s", ErrInvalid, strings.Join(problems, "\n"))
		}
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// DecodeFile reads path and decodes it with the format implied by its extension.
func DecodeFile(path string, schema []byte, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := Decode(FormatOf(path), data, schema, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
