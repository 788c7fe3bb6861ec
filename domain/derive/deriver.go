// Package derive hosts the content-derivation pipeline: per-type deriver
// plugins, the two-phase derive/link execution, and the link context used
// to resolve artifacts across deriver boundaries.
package derive

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/artifexhq/artifex/domain/artifact"
	"github.com/artifexhq/artifex/domain/relation"
	"github.com/artifexhq/artifex/pkg/apperror"
	"github.com/artifexhq/artifex/pkg/logger"
)

// Relation is an edge declared during the Derive phase, before UUIDs are
// assigned, so endpoints are artifact pointers.
type Relation struct {
	Source *artifact.Artifact
	Name   string

	MinCardinality int
	MaxCardinality int

	Targets []*artifact.Artifact
}

// Result is one deriver's Derive-phase output.
type Result struct {
	Derived   []*artifact.Artifact
	Relations []Relation
}

// Deriver parses content of one artifact type into derived artifacts and
// relationships. Derive must not assume ordering relative to other
// derivers; cross-deriver edges belong in Link, which runs after the full
// set is materialized with UUIDs.
type Deriver interface {
	Name() string
	Derive(primary *artifact.Artifact, content []byte) (*Result, error)
	Link(ctx context.Context, lc *LinkContext, primary *artifact.Artifact, derived []*artifact.Artifact) error
}

// Registry holds the ordered derivers per artifact type.
type Registry struct {
	derivers map[artifact.Type][]Deriver
}

// NewRegistry builds a registry preloaded with the built-in derivers.
func NewRegistry() *Registry {
	r := &Registry{derivers: map[artifact.Type][]Deriver{}}
	r.Register(artifact.TypeXsdDocument, NewXsdDeriver())
	r.Register(artifact.TypeWsdlDocument, NewWsdlDeriver())
	r.Register(artifact.TypeJsonSchemaDocument, NewJsonSchemaDeriver())
	return r
}

// Register appends a deriver for the given type, after any already there.
func (r *Registry) Register(t artifact.Type, d Deriver) {
	r.derivers[t] = append(r.derivers[t], d)
}

// For returns the derivers registered for a type, in registration order.
func (r *Registry) For(t artifact.Type) []Deriver {
	return r.derivers[t]
}

// Framework runs the two-phase pipeline over all derivers applicable to a
// primary artifact.
type Framework struct {
	registry *Registry
	log      *slog.Logger
}

func NewFramework(registry *Registry, log *slog.Logger) *Framework {
	return &Framework{registry: registry, log: log.With(logger.Scope("derive"))}
}

// Derivation is the combined Derive-phase output for one primary artifact.
// Derived artifacts have UUIDs assigned and the derived facet set; declared
// relations are already materialized as modeled edges on their owners.
type Derivation struct {
	Derived []*artifact.Artifact
}

// Derive runs phase one: every deriver for the primary's type parses the
// content. Any deriver failure aborts the whole derivation.
func (f *Framework) Derive(primary *artifact.Artifact, content []byte) (*Derivation, error) {
	var all []*artifact.Artifact
	var relations []Relation

	for _, d := range f.registry.For(primary.Type) {
		res, err := d.Derive(primary, content)
		if err != nil {
			return nil, apperror.ErrDeriver.
				WithMessagef("deriver %s failed for artifact %s", d.Name(), primary.UUID).
				WithInternal(err)
		}
		if res == nil {
			continue
		}
		all = append(all, res.Derived...)
		relations = append(relations, res.Relations...)
		f.log.Debug("derived artifacts",
			slog.String("deriver", d.Name()),
			slog.String("artifact_uuid", primary.UUID),
			slog.Int("count", len(res.Derived)),
		)
	}

	for _, da := range all {
		if da.UUID == "" {
			da.UUID = uuid.NewString()
		}
		da.Derived = true
		da.DerivedFrom = primary.UUID
		da.CreatedBy = primary.CreatedBy
		da.CreatedAt = primary.ModifiedAt
		da.ModifiedBy = primary.ModifiedBy
		da.ModifiedAt = primary.ModifiedAt
	}

	// Declared edges become modeled relationships once every endpoint has
	// a UUID.
	for _, rel := range relations {
		targets := make([]string, len(rel.Targets))
		for i, t := range rel.Targets {
			targets[i] = t.UUID
		}
		if err := relation.SetModeled(rel.Source, rel.Name, rel.MinCardinality, rel.MaxCardinality, targets); err != nil {
			return nil, err
		}
	}

	return &Derivation{Derived: all}, nil
}

// Link runs phase two across the full materialized set.
func (f *Framework) Link(ctx context.Context, lc *LinkContext, primary *artifact.Artifact, derived []*artifact.Artifact) error {
	for _, d := range f.registry.For(primary.Type) {
		if err := d.Link(ctx, lc, primary, derived); err != nil {
			return apperror.ErrDeriver.
				WithMessagef("deriver %s failed linking artifact %s", d.Name(), primary.UUID).
				WithInternal(err)
		}
	}
	return nil
}

// qname splits a prefixed XML name into prefix and local part.
func qname(s string) (prefix, local string) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:]
		}
	}
	return "", s
}
