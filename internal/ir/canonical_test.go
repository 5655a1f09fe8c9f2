package ir

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalObjectSortedKeys(t *testing.T) {
	obj := objNode{
		"zebra": intNode(1),
		"alpha": intNode(2),
		"beta":  boolNode(true),
	}

	assert.Equal(t, `{"alpha":2,"beta":true,"zebra":1}`, string(MarshalCanonical(testCanon{obj})))
}

func TestCanonicalUTF16Ordering(t *testing.T) {
	// U+E000 vs U+10000 - UTF-16 order differs from UTF-8
	obj := objNode{
		"\uE000":     intNode(1), // UTF-16: 0xE000
		"\U00010000": intNode(2), // UTF-16: 0xD800, 0xDC00 (surrogate pair)
	}

	expected := `{"` + "\U00010000" + `":2,"` + "\uE000" + `":1}`
	assert.Equal(t, expected, string(MarshalCanonical(testCanon{obj})))
}

func TestCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "hello", `"hello"`},
		{"html not escaped", "<a & b>", `"<a & b>"`},
		{"quote", `say "hi"`, `"say \"hi\""`},
		{"backslash", `a\b`, `"a\\b"`},
		{"newline", "a\nb", `"a\nb"`},
		{"control", "a\x01b", `"a\u0001b"`},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := objNode{"s": strNode(tt.input)}
			assert.Equal(t, `{"s":`+tt.expected+`}`, string(MarshalCanonical(testCanon{obj})))
		})
	}
}

func TestCanonicalNFCNormalization(t *testing.T) {
	composed := objNode{"caf\u00e9": strNode("caf\u00e9")}
	decomposed := objNode{"cafe\u0301": strNode("cafe\u0301")}

	assert.Equal(t, MarshalCanonical(testCanon{composed}), MarshalCanonical(testCanon{decomposed}))
}

func TestCanonicalOmitsAbsentOptionalFields(t *testing.T) {
	ref := &SchemaTypeRef{
		ID:       uuid.MustParse("00000000-0000-0000-0000-000000000105"),
		ModuleID: uuid.MustParse("00000000-0000-0000-0000-0000000000f0"),
		Name:     "std::int64",
		IsScalar: true,
	}

	out := string(MarshalCanonical(ref))
	assert.NotContains(t, out, "material_type")
	assert.NotContains(t, out, "base_type")
	assert.NotContains(t, out, "children")
	assert.NotContains(t, out, "element_name")
	assert.NotContains(t, out, "null")
	assert.Contains(t, out, `"name":"std::int64"`)
}

func TestCanonicalCollectionKeepsSubtypeOrder(t *testing.T) {
	a := &SchemaTypeRef{ID: uuid.New(), Name: "std::int64", ElementName: "a", IsScalar: true}
	b := &SchemaTypeRef{ID: uuid.New(), Name: "std::str", ElementName: "b", IsScalar: true}

	ab := &CollectionTypeRef{ID: uuid.New(), Name: "t", Collection: CollectionTuple, Subtypes: []TypeRef{a, b}}
	ba := &CollectionTypeRef{ID: ab.ID, Name: "t", Collection: CollectionTuple, Subtypes: []TypeRef{b, a}}

	require.NotEqual(t, ab.Key(), ba.Key(), "tuple element order is significant")
}

// testCanon adapts a raw node for MarshalCanonical in tests.
type testCanon struct{ obj objNode }

func (c testCanon) canonical() objNode { return c.obj }
