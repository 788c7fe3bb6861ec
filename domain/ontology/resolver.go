package ontology

import (
	"slices"

	"github.com/artifexhq/artifex/pkg/apperror"
)

// Resolver resolves classifier URIs against a set of ontologies.
type Resolver struct {
	ontologies []*Ontology
}

// NewResolver builds a resolver over the given ontologies.
func NewResolver(onts []*Ontology) *Resolver {
	return &Resolver{ontologies: onts}
}

// Resolve finds the class the URI names and returns its canonical URI plus
// the normalized set: the class URI and every ancestor URI up to the root,
// leaf first. An unresolvable URI is a validation error; artifacts never
// carry unresolved classifiers.
func (r *Resolver) Resolve(uri string) (string, []string, error) {
	for _, o := range r.ontologies {
		c, lineage := o.FindClass(uri)
		if c != nil {
			return c.URI, lineage, nil
		}
	}
	return "", nil, apperror.ErrClassifierNotFound.WithMessagef("classifier %q does not resolve to any ontology class", uri)
}

// NormalizeAll resolves a slice of classifier URIs and returns the canonical
// URIs plus the deduplicated union of all normalized sets. Input order is
// preserved; ancestor URIs follow in first-seen order.
func (r *Resolver) NormalizeAll(uris []string) (resolved, normalized []string, err error) {
	for _, uri := range uris {
		canon, lineage, err := r.Resolve(uri)
		if err != nil {
			return nil, nil, err
		}
		if !slices.Contains(resolved, canon) {
			resolved = append(resolved, canon)
		}
		for _, u := range lineage {
			if !slices.Contains(normalized, u) {
				normalized = append(normalized, u)
			}
		}
	}
	return resolved, normalized, nil
}
