package materialize

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlIndent is the fixed indentation width for structured output.
const yamlIndent = 2

// MarshalStable serializes v as structured text with stable key ordering
// and fixed indentation. The encoder never emits anchors or aliases, so
// shared sub-structures in the input serialize as plain duplicated values
// and repeated runs are byte-identical.
func MarshalStable(v interface{}) ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(yamlIndent)

	if err := enc.Encode(v); err != nil {
		enc.Close()

		return nil, fmt.Errorf("serializing structured value: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("serializing structured value: %w", err)
	}

	return buf.Bytes(), nil
}

// verbatimBytes coerces a payload value written without serialization.
func verbatimBytes(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	default:
		return nil, fmt.Errorf("verbatim payload must be text, got %T", v)
	}
}
