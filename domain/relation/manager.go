// Package relation maintains the relationship graph: edge updates with
// replace-all semantics, cardinality enforcement, delete-safety, and
// reverse-relationship views.
package relation

import (
	"slices"

	"github.com/artifexhq/artifex/domain/artifact"
	"github.com/artifexhq/artifex/pkg/apperror"
)

// Reference is one incoming edge onto a target artifact, as reported by
// the store: the owning artifact, the relationship name, and its kind.
type Reference struct {
	SourceUUID string                    `json:"sourceUuid"`
	SourceType artifact.Type             `json:"sourceType"`
	SourceName string                    `json:"sourceName"`
	Name       string                    `json:"relationshipName"`
	Kind       artifact.RelationshipKind `json:"kind"`
	TargetUUID string                    `json:"targetUuid"`
}

// SetGeneric replaces all targets of the named user-declared relationship
// on a. An empty target list removes the relationship node. Names owned by
// derivers cannot be set this way.
func SetGeneric(a *artifact.Artifact, name string, targets []string) error {
	if name == "" {
		return apperror.ErrValidation.WithMessage("relationship name is required")
	}
	if existing, ok := a.Relationship(name); ok && existing.Kind != artifact.KindGeneric {
		return apperror.ErrRelationshipConflict.WithMessagef(
			"relationship %q is %s and cannot be modified directly", name, existing.Kind)
	}
	if slices.Contains(targets, a.UUID) {
		return apperror.ErrValidation.WithMessagef("relationship %q cannot target its own artifact", name)
	}

	if len(targets) == 0 {
		a.RemoveRelationship(name)
		return nil
	}
	seen := map[string]bool{}
	for _, tgt := range targets {
		if tgt == "" {
			return apperror.ErrValidation.WithMessagef("relationship %q has an empty target", name)
		}
		if seen[tgt] {
			return apperror.ErrValidation.WithMessagef("relationship %q lists target %s twice", name, tgt)
		}
		seen[tgt] = true
	}

	if existing, ok := a.Relationship(name); ok {
		existing.Targets = slices.Clone(targets)
		return nil
	}
	a.Relationships = append(a.Relationships, artifact.Relationship{
		Name:           name,
		Kind:           artifact.KindGeneric,
		MinCardinality: 0,
		MaxCardinality: -1,
		Targets:        slices.Clone(targets),
	})
	return nil
}

// SetModeled replaces all targets of a deriver-declared relationship,
// enforcing the declared cardinality. An empty target list removes the
// node regardless of MinCardinality: a required relationship with no
// targets cannot exist, so it is deleted.
func SetModeled(a *artifact.Artifact, name string, minCard, maxCard int, targets []string) error {
	if len(targets) == 0 {
		a.RemoveRelationship(name)
		return nil
	}
	if maxCard >= 0 && len(targets) > maxCard {
		return apperror.ErrRelationshipConflict.WithMessagef(
			"relationship %q allows at most %d targets, got %d", name, maxCard, len(targets))
	}
	if existing, ok := a.Relationship(name); ok {
		existing.Kind = artifact.KindModeled
		existing.MinCardinality = minCard
		existing.MaxCardinality = maxCard
		existing.Targets = slices.Clone(targets)
		return nil
	}
	a.Relationships = append(a.Relationships, artifact.Relationship{
		Name:           name,
		Kind:           artifact.KindModeled,
		MinCardinality: minCard,
		MaxCardinality: maxCard,
		Targets:        slices.Clone(targets),
	})
	return nil
}

// CheckDeletable decides whether the artifact group (a primary plus its
// derived set, keyed by UUID) may be deleted. Generic and modeled edges
// from outside the group block the delete; edges between group members and
// derived back-references never do.
func CheckDeletable(group map[string]bool, refs []Reference) error {
	for _, ref := range refs {
		if ref.Kind == artifact.KindDerived {
			continue
		}
		if group[ref.SourceUUID] {
			continue
		}
		return apperror.ErrRelationshipConflict.WithMessagef(
			"artifact %s is targeted by relationship %q of artifact %s",
			ref.TargetUUID, ref.Name, ref.SourceUUID)
	}
	return nil
}

// DetachAll removes every edge in refs from its owning artifact, dropping
// only the blocked targets and deleting relationship nodes that end up
// empty. Used by force deletes. The caller supplies the owners and
// persists them afterwards.
func DetachAll(owners map[string]*artifact.Artifact, refs []Reference, removed map[string]bool) {
	for _, ref := range refs {
		owner := owners[ref.SourceUUID]
		if owner == nil {
			continue
		}
		rel, ok := owner.Relationship(ref.Name)
		if !ok {
			continue
		}
		rel.Targets = slices.DeleteFunc(rel.Targets, func(t string) bool { return removed[t] })
		if len(rel.Targets) == 0 {
			owner.RemoveRelationship(ref.Name)
		}
	}
}

// ReverseEntry is one row of the reverse-relationship view for a target.
type ReverseEntry struct {
	Name       string                    `json:"relationshipName"`
	Kind       artifact.RelationshipKind `json:"kind"`
	SourceUUID string                    `json:"sourceUuid"`
	SourceType artifact.Type             `json:"sourceType"`
	SourceName string                    `json:"sourceName"`
}

// Reverse builds the reverse-relationship view of a target: every incoming
// edge from a non-trashed owner, plus a synthesized relatedDocument entry
// for each derived artifact whose source is the target.
func Reverse(refs []Reference, derivedChildren []*artifact.Artifact) []ReverseEntry {
	out := make([]ReverseEntry, 0, len(refs)+len(derivedChildren))
	for _, ref := range refs {
		out = append(out, ReverseEntry{
			Name:       ref.Name,
			Kind:       ref.Kind,
			SourceUUID: ref.SourceUUID,
			SourceType: ref.SourceType,
			SourceName: ref.SourceName,
		})
	}
	for _, d := range derivedChildren {
		out = append(out, ReverseEntry{
			Name:       "relatedDocument",
			Kind:       artifact.KindDerived,
			SourceUUID: d.UUID,
			SourceType: d.Type,
			SourceName: d.Name,
		})
	}
	return out
}
