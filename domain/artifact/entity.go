// Package artifact defines the canonical in-memory artifact model: typed
// artifacts, ordered custom properties, classifications, and relationship
// edges. Storage adapters map these onto their own representations.
package artifact

import (
	"slices"
	"time"
)

// Property is one custom name/value pair. Property order on an artifact is
// preserved and names are unique.
type Property struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Relationship is a directed edge from its owning artifact to an ordered
// list of target artifacts. Target order is significant for some
// relationship types (e.g. WSDL message parts).
type Relationship struct {
	Name string           `json:"name"`
	Kind RelationshipKind `json:"kind"`

	// Cardinality bounds; -1 means unbounded. A relationship with
	// MinCardinality > 0 cannot exist with zero targets.
	MinCardinality int `json:"minCardinality"`
	MaxCardinality int `json:"maxCardinality"`

	Targets []string `json:"targets"`
}

// DocumentFacet carries the content metadata present only on document-kind
// artifacts.
type DocumentFacet struct {
	ContentType string `json:"contentType"`
	ContentSize int64  `json:"contentSize"`
	// ContentHash is the lowercase hex SHA-256 of the content, computed
	// once at persist/update-content time.
	ContentHash string `json:"contentHash"`
}

// Artifact is a stored, typed unit of metadata, optionally backed by binary
// content. A flat struct with facets replaces the original's deep type
// hierarchy: Document is set for document-kind artifacts, Derived/
// DerivedFrom form the derived facet.
type Artifact struct {
	UUID string `json:"uuid"`
	Type Type   `json:"type"`

	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version,omitempty"`

	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedBy string    `json:"lastModifiedBy"`
	ModifiedAt time.Time `json:"lastModifiedAt"`

	Properties []Property `json:"properties,omitempty"`

	// Classifiers holds resolved absolute ontology-class URIs; Normalized
	// additionally contains every ancestor class URI up to the root, for
	// broader queries.
	Classifiers []string `json:"classifiedBy,omitempty"`
	Normalized  []string `json:"normalizedClassifiedBy,omitempty"`

	// Trashed marks a soft-deleted artifact. Trashed artifacts resolve for
	// no read or query operation.
	Trashed bool `json:"trashed,omitempty"`

	// Derived facet. Derived artifacts are owned by their source document
	// and deleted with it; Derived implies DerivedFrom != "".
	Derived     bool   `json:"derived,omitempty"`
	DerivedFrom string `json:"derivedFrom,omitempty"`

	Document *DocumentFacet `json:"document,omitempty"`

	Relationships []Relationship `json:"relationships,omitempty"`
}

// Property returns the value of the named custom property.
func (a *Artifact) Property(name string) (string, bool) {
	for _, p := range a.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// SetProperty sets or replaces a custom property, preserving insertion
// order for new names.
func (a *Artifact) SetProperty(name, value string) {
	for i, p := range a.Properties {
		if p.Name == name {
			a.Properties[i].Value = value
			return
		}
	}
	a.Properties = append(a.Properties, Property{Name: name, Value: value})
}

// RemoveProperty deletes a custom property if present.
func (a *Artifact) RemoveProperty(name string) {
	for i, p := range a.Properties {
		if p.Name == name {
			a.Properties = slices.Delete(a.Properties, i, i+1)
			return
		}
	}
}

// Relationship returns the relationship with the given name, if any.
func (a *Artifact) Relationship(name string) (*Relationship, bool) {
	for i := range a.Relationships {
		if a.Relationships[i].Name == name {
			return &a.Relationships[i], true
		}
	}
	return nil, false
}

// RemoveRelationship deletes the named relationship node entirely.
func (a *Artifact) RemoveRelationship(name string) {
	for i := range a.Relationships {
		if a.Relationships[i].Name == name {
			a.Relationships = slices.Delete(a.Relationships, i, i+1)
			return
		}
	}
}

// Clone returns a deep copy. Audit snapshotting relies on clones never
// aliasing the original's slices.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	c := *a
	c.Properties = slices.Clone(a.Properties)
	c.Classifiers = slices.Clone(a.Classifiers)
	c.Normalized = slices.Clone(a.Normalized)
	if a.Document != nil {
		doc := *a.Document
		c.Document = &doc
	}
	c.Relationships = make([]Relationship, len(a.Relationships))
	for i, r := range a.Relationships {
		c.Relationships[i] = r
		c.Relationships[i].Targets = slices.Clone(r.Targets)
	}
	return &c
}

// SystemProperty resolves the built-in property names addressable from the
// query language alongside custom properties.
func (a *Artifact) SystemProperty(name string) (string, bool) {
	switch name {
	case "uuid":
		return a.UUID, true
	case "name":
		return a.Name, true
	case "description":
		return a.Description, true
	case "version":
		return a.Version, true
	case "createdBy":
		return a.CreatedBy, true
	case "lastModifiedBy":
		return a.ModifiedBy, true
	case "createdTimestamp":
		return a.CreatedAt.UTC().Format(time.RFC3339), true
	case "lastModifiedTimestamp":
		return a.ModifiedAt.UTC().Format(time.RFC3339), true
	case "contentType":
		if a.Document != nil {
			return a.Document.ContentType, true
		}
	case "contentHash":
		if a.Document != nil {
			return a.Document.ContentHash, true
		}
	case "derivedFrom":
		return a.DerivedFrom, a.Derived
	}
	return "", false
}
