package registration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func recordGen() *rapid.Generator[Record] {
	field := rapid.StringMatching(`[a-zA-Z0-9@.:#' "_-]{1,24}`)
	return rapid.Custom(func(t *rapid.T) Record {
		return Record{
			StudentName:   field.Draw(t, "student_name"),
			Email:         field.Draw(t, "email"),
			TransactionID: field.Draw(t, "transaction_id"),
		}
	})
}

func TestEncode_FieldOrderAndIndent(t *testing.T) {
	list := List{
		{StudentName: "A", Email: "a@x.com", TransactionID: "T1"},
		{StudentName: "B", Email: "b@x.com", TransactionID: "T2"},
	}

	data, err := Encode(list)
	require.NoError(t, err)

	expected := "- student_name: A\n" +
		"  email: a@x.com\n" +
		"  transaction_id: T1\n" +
		"- student_name: B\n" +
		"  email: b@x.com\n" +
		"  transaction_id: T2\n"
	assert.Equal(t, expected, string(data))
}

func TestEncode_Empty(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestEncode_NumericLookingIDStaysString(t *testing.T) {
	data, err := Encode(List{{StudentName: "A", Email: "a@x.com", TransactionID: "12345"}})
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "12345", decoded[0].TransactionID)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected List
	}{
		{name: "empty content", input: "", expected: List{}},
		{name: "whitespace", input: "\n  \n", expected: List{}},
		{name: "explicit null", input: "null\n", expected: List{}},
		{name: "empty sequence", input: "[]\n", expected: List{}},
		{
			name:  "written by another tool",
			input: "- student_name: A\n  email: a@x.com\n  transaction_id: 'T1'\n",
			expected: List{
				{StudentName: "A", Email: "a@x.com", TransactionID: "T1"},
			},
		},
		{
			name:  "key order does not matter",
			input: "- transaction_id: T1\n  email: a@x.com\n  student_name: A\n",
			expected: List{
				{StudentName: "A", Email: "a@x.com", TransactionID: "T1"},
			},
		},
		{
			name:  "unquoted number",
			input: "- student_name: A\n  email: a@x.com\n  transaction_id: 42\n",
			expected: List{
				{StudentName: "A", Email: "a@x.com", TransactionID: "42"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := Decode([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, list)
		})
	}
}

func TestDecode_SchemaViolations(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "top level mapping", input: "student_name: A\n"},
		{name: "top level scalar", input: "hello\n"},
		{name: "entry is scalar", input: "- T1\n"},
		{name: "unknown field", input: "- student_name: A\n  email: a@x.com\n  transaction_id: T1\n  paid: true\n"},
		{name: "missing field", input: "- student_name: A\n  email: a@x.com\n"},
		{name: "empty field", input: "- student_name: ''\n  email: a@x.com\n  transaction_id: T1\n"},
		{name: "nested value", input: "- student_name: [A, B]\n  email: a@x.com\n  transaction_id: T1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			require.Error(t, err)

			var schemaErr *SchemaError
			assert.True(t, errors.As(err, &schemaErr), "expected SchemaError, got %v", err)
		})
	}
}

func TestDecode_MalformedYAML(t *testing.T) {
	_, err := Decode([]byte("- student_name: [unterminated\n"))
	require.Error(t, err)

	var schemaErr *SchemaError
	assert.False(t, errors.As(err, &schemaErr))
}

func TestCodec_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		list := List(rapid.SliceOf(recordGen()).Draw(t, "list"))

		data, err := Encode(list)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}

		decoded, err := Decode(data)
		if err != nil {
			t.Fatalf("decode %q: %v", data, err)
		}

		if len(decoded) != len(list) {
			t.Fatalf("length mismatch: got %d, want %d", len(decoded), len(list))
		}
		for i := range list {
			if decoded[i] != list[i] {
				t.Fatalf("record %d mismatch: got %+v, want %+v", i, decoded[i], list[i])
			}
		}
	})
}
