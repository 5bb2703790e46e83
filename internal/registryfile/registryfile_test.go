package registryfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = []byte(`{
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "values": {"type": "array", "items": {"type": "string"}, "uniqueItems": true}
        }
      }
    }
  }
}`)

type testDoc struct {
	Items []struct {
		ID     string   `json:"id"`
		Values []string `json:"values"`
	} `json:"items"`
}

func TestDecodeYAML(t *testing.T) {
	var doc testDoc
	err := Decode(YAML, []byte("items:\n  - id: a\n    values: [x, y]\n"), testSchema, &doc)
	require.NoError(t, err)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "a", doc.Items[0].ID)
	assert.Equal(t, []string{"x", "y"}, doc.Items[0].Values)
}

func TestDecodeTOML(t *testing.T) {
	var doc testDoc
	err := Decode(TOML, []byte("[[items]]\nid = \"b\"\nvalues = [\"z\"]\n"), testSchema, &doc)
	require.NoError(t, err)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "b", doc.Items[0].ID)
}

func TestDecodeSchemaViolation(t *testing.T) {
	var doc testDoc
	err := Decode(YAML, []byte("items:\n  - id: a\n    values: [x, x]\n"), testSchema, &doc)
	assert.ErrorIs(t, err, ErrInvalid)

	err = Decode(YAML, []byte("other: 1\n"), testSchema, &doc)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecodeSyntaxError(t *testing.T) {
	var doc testDoc
	assert.ErrorIs(t, Decode(YAML, []byte("items: [\n"), testSchema, &doc), ErrInvalid)
	assert.ErrorIs(t, Decode(TOML, []byte("items = [[\n"), testSchema, &doc), ErrInvalid)
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[items]]\nid = \"c\"\n"), 0o644))

	var doc testDoc
	require.NoError(t, DecodeFile(path, testSchema, &doc))
	assert.Equal(t, "c", doc.Items[0].ID)

	assert.Error(t, DecodeFile(filepath.Join(t.TempDir(), "missing.yaml"), testSchema, &doc))
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, TOML, FormatOf("blueprints.TOML"))
	assert.Equal(t, YAML, FormatOf("blueprints.yaml"))
	assert.Equal(t, YAML, FormatOf("blueprints.yml"))
}
