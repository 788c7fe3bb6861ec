// Package ontology models hierarchical classification taxonomies and
// resolves artifact classifiers against them.
package ontology

import (
	"strings"
	"time"

	"github.com/artifexhq/artifex/pkg/apperror"
)

// Ontology is a named classification taxonomy: a base URI plus a tree of
// classes. Class ownership is strictly hierarchical; cycles cannot be
// expressed.
type Ontology struct {
	UUID    string `json:"uuid" yaml:"uuid"`
	Base    string `json:"base" yaml:"base"`
	Label   string `json:"label" yaml:"label"`
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`

	CreatedBy  string    `json:"createdBy,omitempty" yaml:"-"`
	CreatedAt  time.Time `json:"createdAt,omitempty" yaml:"-"`
	ModifiedBy string    `json:"lastModifiedBy,omitempty" yaml:"-"`
	ModifiedAt time.Time `json:"lastModifiedAt,omitempty" yaml:"-"`

	Classes []*Class `json:"classes" yaml:"classes"`
}

// Class is one node of the taxonomy tree.
type Class struct {
	ID      string `json:"id" yaml:"id"`
	URI     string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`

	Children []*Class `json:"children,omitempty" yaml:"children,omitempty"`
}

// Normalize fills in each class URI as base#id where absent and validates
// the tree: ids must be non-empty and unique within the ontology.
func (o *Ontology) Normalize() error {
	if o.Base == "" {
		return apperror.ErrValidation.WithMessage("ontology base URI is required")
	}
	seen := map[string]bool{}
	var walk func(cs []*Class) error
	walk = func(cs []*Class) error {
		for _, c := range cs {
			if c.ID == "" {
				return apperror.ErrValidation.WithMessage("ontology class id is required")
			}
			if seen[c.ID] {
				return apperror.ErrValidation.WithMessagef("duplicate ontology class id %q", c.ID)
			}
			seen[c.ID] = true
			if c.URI == "" {
				c.URI = o.Base + "#" + c.ID
			}
			if err := walk(c.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(o.Classes)
}

// FindClass locates the class with the given URI, also accepting the bare
// class id for classes under this ontology's base. Returns the class and
// the URIs of the class and all its ancestors, leaf first.
func (o *Ontology) FindClass(uri string) (*Class, []string) {
	target := uri
	if !strings.Contains(uri, "#") && !strings.Contains(uri, "/") {
		target = o.Base + "#" + uri
	}

	var found *Class
	var lineage []string
	var walk func(cs []*Class, ancestors []string)
	walk = func(cs []*Class, ancestors []string) {
		for _, c := range cs {
			path := append(append([]string{}, ancestors...), c.URI)
			if c.URI == target {
				found = c
				// Leaf first, then ancestors up to the root.
				lineage = make([]string, 0, len(path))
				for i := len(path) - 1; i >= 0; i-- {
					lineage = append(lineage, path[i])
				}
				return
			}
			walk(c.Children, path)
			if found != nil {
				return
			}
		}
	}
	walk(o.Classes, nil)
	return found, lineage
}
