package registration

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

var knownFields = map[string]bool{
	"student_name":   true,
	"email":          true,
	"transaction_id": true,
}

// SchemaError is returned by Decode when the stored document does not have the
// expected shape: a sequence of mappings with exactly the record keys.
type SchemaError struct {
	Line   int
	Index  int
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid registrations document (line %d): %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("invalid registration #%d (line %d): %s", e.Index, e.Line, e.Reason)
}

// Encode renders the list as a YAML sequence with two-space indentation.
// An empty list is written as "[]".
func Encode(list List) ([]byte, error) {
	if list == nil {
		list = List{}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(list); err != nil {
		return nil, fmt.Errorf("encoding registrations: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encoding registrations: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a stored document. Empty content and an explicit null both
// decode to an empty list.
func Decode(data []byte) (List, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing registrations: %w", err)
	}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		return List{}, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return List{}, nil
	}
	if root.Kind != yaml.SequenceNode {
		return nil, &SchemaError{Line: root.Line, Index: -1, Reason: "top level is not a sequence"}
	}

	list := make(List, 0, len(root.Content))
	for i, entry := range root.Content {
		if entry.Kind != yaml.MappingNode {
			return nil, &SchemaError{Line: entry.Line, Index: i, Reason: "entry is not a mapping"}
		}
		for j := 0; j+1 < len(entry.Content); j += 2 {
			key := entry.Content[j]
			if !knownFields[key.Value] {
				return nil, &SchemaError{Line: key.Line, Index: i, Reason: fmt.Sprintf("unknown field %q", key.Value)}
			}
			if entry.Content[j+1].Kind != yaml.ScalarNode {
				return nil, &SchemaError{Line: key.Line, Index: i, Reason: fmt.Sprintf("field %q is not a scalar", key.Value)}
			}
		}

		var r Record
		if err := entry.Decode(&r); err != nil {
			return nil, &SchemaError{Line: entry.Line, Index: i, Reason: err.Error()}
		}
		if err := r.Validate(); err != nil {
			return nil, &SchemaError{Line: entry.Line, Index: i, Reason: err.Error()}
		}
		list = append(list, r)
	}

	return list, nil
}
