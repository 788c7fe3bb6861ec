package derive

import (
	"context"

	"github.com/artifexhq/artifex/domain/artifact"
)

// Finder looks up already-persisted artifacts by type and exact property
// values. The storage layer implements it.
type Finder interface {
	FindByTypeAndProps(ctx context.Context, t artifact.Type, props map[string]string) ([]*artifact.Artifact, error)
}

// LinkContext lets a Link phase resolve artifacts across deriver
// boundaries: first against the in-flight batch, then against the store.
// It is scoped to exactly one derivation call and never retained.
type LinkContext struct {
	finder Finder
	batch  []*artifact.Artifact
	arena  map[string]*artifact.Artifact
}

// NewLinkContext builds the context for one derivation: batch is the
// in-flight set (primary plus all derived artifacts, UUIDs assigned).
func NewLinkContext(finder Finder, batch []*artifact.Artifact) *LinkContext {
	lc := &LinkContext{
		finder: finder,
		batch:  batch,
		arena:  make(map[string]*artifact.Artifact, len(batch)),
	}
	for _, a := range batch {
		lc.arena[a.UUID] = a
	}
	return lc
}

// Find returns artifacts of the given type whose properties all match.
// In-flight artifacts shadow persisted ones with the same UUID.
func (lc *LinkContext) Find(ctx context.Context, t artifact.Type, props map[string]string) ([]*artifact.Artifact, error) {
	var out []*artifact.Artifact
	seen := map[string]bool{}

	for _, a := range lc.batch {
		if a.Type == t && matchProps(a, props) {
			out = append(out, a)
			seen[a.UUID] = true
		}
	}

	if lc.finder != nil {
		persisted, err := lc.finder.FindByTypeAndProps(ctx, t, props)
		if err != nil {
			return nil, err
		}
		for _, a := range persisted {
			if seen[a.UUID] {
				continue
			}
			lc.arena[a.UUID] = a
			out = append(out, a)
		}
	}
	return out, nil
}

// Get resolves a UUID from the per-call arena only; it never hits the
// store.
func (lc *LinkContext) Get(uuid string) (*artifact.Artifact, bool) {
	a, ok := lc.arena[uuid]
	return a, ok
}

func matchProps(a *artifact.Artifact, props map[string]string) bool {
	for k, want := range props {
		got, ok := a.Property(k)
		if !ok || got != want {
			return false
		}
	}
	return true
}
