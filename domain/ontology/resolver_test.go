package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regionsOntology(t *testing.T) *Ontology {
	t.Helper()
	o := &Ontology{
		UUID:  "ont-1",
		Base:  "http://example.org/regions",
		Label: "Regions",
		Classes: []*Class{
			{
				ID: "World",
				Children: []*Class{
					{
						ID: "Europe",
						Children: []*Class{
							{ID: "Germany"},
							{ID: "France"},
						},
					},
					{ID: "Asia"},
				},
			},
		},
	}
	require.NoError(t, o.Normalize())
	return o
}

func TestNormalizeAssignsURIs(t *testing.T) {
	o := regionsOntology(t)
	c, _ := o.FindClass("http://example.org/regions#Germany")
	require.NotNil(t, c)
	assert.Equal(t, "http://example.org/regions#Germany", c.URI)
}

func TestNormalizeRejectsDuplicateIDs(t *testing.T) {
	o := &Ontology{
		Base: "http://example.org/x",
		Classes: []*Class{
			{ID: "A", Children: []*Class{{ID: "A"}}},
		},
	}
	assert.Error(t, o.Normalize())
}

func TestResolveReturnsLineageLeafFirst(t *testing.T) {
	r := NewResolver([]*Ontology{regionsOntology(t)})

	canon, lineage, err := r.Resolve("http://example.org/regions#Germany")
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/regions#Germany", canon)
	assert.Equal(t, []string{
		"http://example.org/regions#Germany",
		"http://example.org/regions#Europe",
		"http://example.org/regions#World",
	}, lineage)
}

func TestResolveAcceptsBareID(t *testing.T) {
	r := NewResolver([]*Ontology{regionsOntology(t)})

	canon, lineage, err := r.Resolve("Asia")
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/regions#Asia", canon)
	assert.Len(t, lineage, 2)
}

func TestResolveUnknownClassifier(t *testing.T) {
	r := NewResolver([]*Ontology{regionsOntology(t)})

	_, _, err := r.Resolve("http://example.org/regions#Atlantis")
	assert.Error(t, err)
}

func TestNormalizeAllDeduplicates(t *testing.T) {
	r := NewResolver([]*Ontology{regionsOntology(t)})

	resolved, normalized, err := r.NormalizeAll([]string{
		"http://example.org/regions#Germany",
		"http://example.org/regions#France",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://example.org/regions#Germany",
		"http://example.org/regions#France",
	}, resolved)
	// Shared ancestors appear once.
	assert.Equal(t, []string{
		"http://example.org/regions#Germany",
		"http://example.org/regions#Europe",
		"http://example.org/regions#World",
		"http://example.org/regions#France",
	}, normalized)
}
