package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Type
		expectErr bool
	}{
		{"xsd document", "xsd/XsdDocument", TypeXsdDocument, false},
		{"core document", "core/Document", TypeDocument, false},
		{"custom model", "invoice/Invoice", Type{"invoice", "Invoice"}, false},
		{"missing type", "xsd", Type{}, true},
		{"missing model", "/XsdDocument", Type{}, true},
		{"too many segments", "a/b/c", Type{}, true},
		{"empty", "", Type{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseType(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypeForName(t *testing.T) {
	got, ok := TypeForName("ElementDeclaration")
	require.True(t, ok)
	assert.Equal(t, TypeElementDeclaration, got)

	_, ok = TypeForName("NoSuchThing")
	assert.False(t, ok)
}

func TestIsDerivedType(t *testing.T) {
	assert.True(t, IsDerivedType(TypeElementDeclaration))
	assert.True(t, IsDerivedType(TypeMessage))
	assert.False(t, IsDerivedType(TypeXsdDocument))
	assert.False(t, IsDerivedType(Type{"invoice", "Invoice"}))
}

func TestIsDocumentType(t *testing.T) {
	assert.True(t, IsDocumentType(TypeXsdDocument))
	assert.True(t, IsDocumentType(TypeDocument))
	// User-defined types are uploadable documents.
	assert.True(t, IsDocumentType(Type{"invoice", "Invoice"}))
	assert.False(t, IsDocumentType(TypeElementDeclaration))
}

func TestPropertiesPreserveOrder(t *testing.T) {
	a := &Artifact{}
	a.SetProperty("c", "3")
	a.SetProperty("a", "1")
	a.SetProperty("b", "2")
	a.SetProperty("a", "updated")

	require.Len(t, a.Properties, 3)
	assert.Equal(t, []Property{{"c", "3"}, {"a", "updated"}, {"b", "2"}}, a.Properties)

	v, ok := a.Property("a")
	require.True(t, ok)
	assert.Equal(t, "updated", v)

	a.RemoveProperty("a")
	_, ok = a.Property("a")
	assert.False(t, ok)
	assert.Equal(t, []Property{{"c", "3"}, {"b", "2"}}, a.Properties)
}

func TestCloneIsDeep(t *testing.T) {
	a := &Artifact{
		UUID:        "u1",
		Type:        TypeXsdDocument,
		Name:        "orders.xsd",
		Properties:  []Property{{"ns", "urn:orders"}},
		Classifiers: []string{"http://example.org/regions#EU"},
		Document:    &DocumentFacet{ContentType: "application/xml", ContentSize: 10, ContentHash: "ab"},
		Relationships: []Relationship{
			{Name: "importedBy", Kind: KindGeneric, MaxCardinality: -1, Targets: []string{"u2"}},
		},
	}

	c := a.Clone()
	c.SetProperty("ns", "changed")
	c.Classifiers[0] = "changed"
	c.Document.ContentHash = "changed"
	c.Relationships[0].Targets[0] = "changed"

	v, _ := a.Property("ns")
	assert.Equal(t, "urn:orders", v)
	assert.Equal(t, "http://example.org/regions#EU", a.Classifiers[0])
	assert.Equal(t, "ab", a.Document.ContentHash)
	assert.Equal(t, "u2", a.Relationships[0].Targets[0])
}

func TestSystemProperty(t *testing.T) {
	a := &Artifact{
		UUID:        "u1",
		Name:        "orders.xsd",
		Description: "orders schema",
		Derived:     true,
		DerivedFrom: "u0",
		Document:    &DocumentFacet{ContentType: "application/xml", ContentHash: "beef"},
	}

	for name, want := range map[string]string{
		"uuid":        "u1",
		"name":        "orders.xsd",
		"description": "orders schema",
		"derivedFrom": "u0",
		"contentType": "application/xml",
		"contentHash": "beef",
	} {
		v, ok := a.SystemProperty(name)
		require.True(t, ok, name)
		assert.Equal(t, want, v, name)
	}

	_, ok := a.SystemProperty("nope")
	assert.False(t, ok)
}
