package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/artifexhq/artifex/domain/artifact"
	"github.com/artifexhq/artifex/domain/audit"
	"github.com/artifexhq/artifex/domain/derive"
	"github.com/artifexhq/artifex/domain/ontology"
	"github.com/artifexhq/artifex/domain/relation"
	"github.com/artifexhq/artifex/internal/config"
	"github.com/artifexhq/artifex/pkg/apperror"
	"github.com/artifexhq/artifex/pkg/logger"
	"github.com/artifexhq/artifex/pkg/metrics"
)

// Service is the repository facade. Each public method is one transaction:
// it either fully succeeds or leaves no visible partial state.
type Service struct {
	store     Store
	framework *derive.Framework
	metrics   *metrics.Metrics
	log       *slog.Logger

	auditing     bool
	auditDerived bool
}

func NewService(store Store, framework *derive.Framework, cfg *config.Config, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		store:        store,
		framework:    framework,
		metrics:      m,
		log:          log.With(logger.Scope("repository")),
		auditing:     cfg.Repository.Auditing,
		auditDerived: cfg.Repository.AuditDerived,
	}
}

func (s *Service) observe(op string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.Observe(op, start, err)
	}
}

// PersistArtifact stores a new artifact, derives its content, links the
// derived set, and records audit entries.
func (s *Service) PersistArtifact(ctx context.Context, a *artifact.Artifact, content []byte) (out *artifact.Artifact, err error) {
	defer func(start time.Time) { s.observe("persist_artifact", start, err) }(time.Now())

	if a.Type.IsZero() {
		return nil, apperror.ErrValidation.WithMessage("artifact type is required")
	}
	if artifact.IsDerivedType(a.Type) {
		return nil, apperror.ErrValidation.WithMessagef(
			"artifacts of derived type %s cannot be created directly", a.Type)
	}
	if a.Derived || a.DerivedFrom != "" {
		return nil, apperror.ErrValidation.WithMessage("the derived facet is assigned by derivation, not by callers")
	}

	who := Actor(ctx)
	now := time.Now().UTC()

	a = a.Clone()
	if a.UUID == "" {
		a.UUID = uuid.NewString()
	}
	a.CreatedBy, a.CreatedAt = who, now
	a.ModifiedBy, a.ModifiedAt = who, now
	a.Trashed = false

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		taken, err := tx.ArtifactExists(ctx, a.UUID)
		if err != nil {
			return err
		}
		if taken {
			return apperror.ErrConflict.WithMessagef("artifact %s already exists", a.UUID)
		}

		if err := s.resolveClassifiers(ctx, tx, a); err != nil {
			return err
		}
		if err := s.applyGenericRelationships(ctx, tx, a, a.Relationships, nil); err != nil {
			return err
		}

		var derived []*artifact.Artifact
		if artifact.IsDocumentType(a.Type) && content != nil {
			s.attachContentFacet(a, content)
			d, err := s.framework.Derive(a, content)
			if err != nil {
				return err
			}
			derived = d.Derived
		} else if content != nil {
			return apperror.ErrValidation.WithMessagef("artifacts of type %s do not carry content", a.Type)
		}

		if err := tx.PersistArtifact(ctx, a); err != nil {
			return err
		}
		if content != nil {
			if err := tx.SetContent(ctx, a.UUID, content); err != nil {
				return err
			}
		}
		for _, da := range derived {
			if err := tx.PersistArtifact(ctx, da); err != nil {
				return err
			}
		}

		// Link phase runs over the fully materialized set; edges it forms
		// require a second write of the touched artifacts.
		if len(derived) > 0 {
			lc := derive.NewLinkContext(tx, append([]*artifact.Artifact{a}, derived...))
			if err := s.framework.Link(ctx, lc, a, derived); err != nil {
				return err
			}
			if err := tx.UpdateArtifact(ctx, a); err != nil {
				return err
			}
			for _, da := range derived {
				if err := tx.UpdateArtifact(ctx, da); err != nil {
					return err
				}
			}
		}

		if s.auditing {
			if err := tx.AddAuditEntry(ctx, audit.CreationEntry(a, who, now)); err != nil {
				return err
			}
			if s.auditDerived {
				for _, da := range derived {
					if err := tx.AddAuditEntry(ctx, audit.CreationEntry(da, who, now)); err != nil {
						return err
					}
				}
			}
		}

		s.log.Info("artifact persisted",
			slog.String("uuid", a.UUID),
			slog.String("type", a.Type.String()),
			slog.Int("derived", len(derived)),
		)
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return a, nil
}

// GetArtifact loads a non-trashed artifact by UUID.
func (s *Service) GetArtifact(ctx context.Context, uuidStr string) (out *artifact.Artifact, err error) {
	defer func(start time.Time) { s.observe("get_artifact", start, err) }(time.Now())

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		out, err = tx.GetArtifact(ctx, uuidStr)
		return err
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return out, nil
}

// GetContent returns the stored content bytes of a document artifact.
func (s *Service) GetContent(ctx context.Context, uuidStr string) (data []byte, err error) {
	defer func(start time.Time) { s.observe("get_content", start, err) }(time.Now())

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetArtifact(ctx, uuidStr); err != nil {
			return err
		}
		data, err = tx.GetContent(ctx, uuidStr)
		return err
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return data, nil
}

// UpdateArtifact applies metadata changes: name, description, version,
// custom properties, classifiers, and generic relationships. Identity,
// the derived facet, content, and deriver-owned relationships are
// untouchable here.
func (s *Service) UpdateArtifact(ctx context.Context, in *artifact.Artifact) (out *artifact.Artifact, err error) {
	defer func(start time.Time) { s.observe("update_artifact", start, err) }(time.Now())

	if in.UUID == "" {
		return nil, apperror.ErrValidation.WithMessage("artifact uuid is required")
	}
	who := Actor(ctx)
	now := time.Now().UTC()

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		existing, err := tx.GetArtifact(ctx, in.UUID)
		if err != nil {
			return err
		}
		before := existing.Clone()

		existing.Name = in.Name
		existing.Description = in.Description
		existing.Version = in.Version
		existing.Properties = nil
		for _, p := range in.Properties {
			existing.SetProperty(p.Name, p.Value)
		}

		existing.Classifiers = in.Classifiers
		if err := s.resolveClassifiers(ctx, tx, existing); err != nil {
			return err
		}
		if err := s.applyGenericRelationships(ctx, tx, existing, in.Relationships, before); err != nil {
			return err
		}

		existing.ModifiedBy, existing.ModifiedAt = who, now
		if err := tx.UpdateArtifact(ctx, existing); err != nil {
			return err
		}

		if s.auditing {
			if e := audit.DiffEntry(before, existing, who, now); e != nil {
				if err := tx.AddAuditEntry(ctx, e); err != nil {
					return err
				}
			}
		}
		out = existing
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return out, nil
}

// DeleteArtifact soft-deletes an artifact and its derived set. Without
// force, generic or modeled relationships targeting the group from outside
// it block the delete; with force those edges are detached first.
func (s *Service) DeleteArtifact(ctx context.Context, uuidStr string, force bool) (err error) {
	defer func(start time.Time) { s.observe("delete_artifact", start, err) }(time.Now())

	who := Actor(ctx)
	now := time.Now().UTC()

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		primary, err := tx.GetArtifact(ctx, uuidStr)
		if err != nil {
			return err
		}
		if primary.Derived {
			return apperror.ErrValidation.WithMessagef(
				"artifact %s is derived; delete its source document %s instead", uuidStr, primary.DerivedFrom)
		}

		derived, err := tx.ListDerived(ctx, uuidStr)
		if err != nil {
			return err
		}
		group := map[string]bool{primary.UUID: true}
		for _, d := range derived {
			group[d.UUID] = true
		}

		refs, err := tx.Referencing(ctx, keys(group))
		if err != nil {
			return err
		}

		if force {
			if err := s.detachReferences(ctx, tx, group, refs, who, now); err != nil {
				return err
			}
		} else if err := relation.CheckDeletable(group, refs); err != nil {
			return err
		}

		for _, a := range append([]*artifact.Artifact{primary}, derived...) {
			a.Trashed = true
			a.ModifiedBy, a.ModifiedAt = who, now
			if err := tx.UpdateArtifact(ctx, a); err != nil {
				return err
			}
			if s.auditing && (!a.Derived || s.auditDerived) {
				if err := tx.AddAuditEntry(ctx, audit.DeletionEntry(a, who, now)); err != nil {
					return err
				}
			}
		}

		s.log.Info("artifact deleted",
			slog.String("uuid", uuidStr),
			slog.Bool("force", force),
			slog.Int("derived", len(derived)),
		)
		return nil
	})
	return apperror.Wrap(err)
}

// UpdateContent replaces a document artifact's content: the previous
// derived set is destroyed and re-derived from the new bytes. Outside
// references to the old derived set block the update.
func (s *Service) UpdateContent(ctx context.Context, uuidStr string, content []byte) (out *artifact.Artifact, err error) {
	defer func(start time.Time) { s.observe("update_content", start, err) }(time.Now())

	if content == nil {
		return nil, apperror.ErrValidation.WithMessage("content is required")
	}
	who := Actor(ctx)
	now := time.Now().UTC()

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		primary, err := tx.GetArtifact(ctx, uuidStr)
		if err != nil {
			return err
		}
		if !artifact.IsDocumentType(primary.Type) {
			return apperror.ErrValidation.WithMessagef("artifact %s has no content to update", uuidStr)
		}
		var before *artifact.Artifact
		if s.auditing {
			before = primary.Clone()
		}

		oldDerived, err := tx.ListDerived(ctx, uuidStr)
		if err != nil {
			return err
		}
		group := map[string]bool{primary.UUID: true}
		oldSet := map[string]bool{}
		for _, d := range oldDerived {
			group[d.UUID] = true
			oldSet[d.UUID] = true
		}

		// Only references onto the derived set matter: the primary itself
		// survives content replacement.
		refs, err := tx.Referencing(ctx, keys(oldSet))
		if err != nil {
			return err
		}
		if err := relation.CheckDeletable(group, refs); err != nil {
			return err
		}

		// The old derived set is gone for good; purge rather than trash so
		// the UUIDs stop resolving entirely.
		relation.DetachAll(map[string]*artifact.Artifact{primary.UUID: primary}, refs, oldSet)
		for _, d := range oldDerived {
			if err := tx.PurgeArtifact(ctx, d.UUID); err != nil {
				return err
			}
		}

		s.attachContentFacet(primary, content)
		d, err := s.framework.Derive(primary, content)
		if err != nil {
			return err
		}
		primary.ModifiedBy, primary.ModifiedAt = who, now

		if err := tx.SetContent(ctx, primary.UUID, content); err != nil {
			return err
		}
		for _, da := range d.Derived {
			if err := tx.PersistArtifact(ctx, da); err != nil {
				return err
			}
		}
		if err := tx.UpdateArtifact(ctx, primary); err != nil {
			return err
		}

		if len(d.Derived) > 0 {
			lc := derive.NewLinkContext(tx, append([]*artifact.Artifact{primary}, d.Derived...))
			if err := s.framework.Link(ctx, lc, primary, d.Derived); err != nil {
				return err
			}
			if err := tx.UpdateArtifact(ctx, primary); err != nil {
				return err
			}
			for _, da := range d.Derived {
				if err := tx.UpdateArtifact(ctx, da); err != nil {
					return err
				}
			}
		}

		if s.auditing {
			if e := audit.DiffEntry(before, primary, who, now); e != nil {
				if err := tx.AddAuditEntry(ctx, e); err != nil {
					return err
				}
			}
			if s.auditDerived {
				for _, da := range d.Derived {
					if err := tx.AddAuditEntry(ctx, audit.CreationEntry(da, who, now)); err != nil {
						return err
					}
				}
			}
		}

		s.log.Info("artifact content updated",
			slog.String("uuid", uuidStr),
			slog.Int("derived_old", len(oldDerived)),
			slog.Int("derived_new", len(d.Derived)),
		)
		out = primary
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return out, nil
}

// DeleteContent removes a document artifact's content and its derived set,
// subject to the same safety check as UpdateContent.
func (s *Service) DeleteContent(ctx context.Context, uuidStr string) (err error) {
	defer func(start time.Time) { s.observe("delete_content", start, err) }(time.Now())

	who := Actor(ctx)
	now := time.Now().UTC()

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		primary, err := tx.GetArtifact(ctx, uuidStr)
		if err != nil {
			return err
		}
		if primary.Document == nil {
			return apperror.ErrContentNotFound.WithMessagef("artifact %s has no content", uuidStr)
		}
		var before *artifact.Artifact
		if s.auditing {
			before = primary.Clone()
		}

		oldDerived, err := tx.ListDerived(ctx, uuidStr)
		if err != nil {
			return err
		}
		group := map[string]bool{primary.UUID: true}
		oldSet := map[string]bool{}
		for _, d := range oldDerived {
			group[d.UUID] = true
			oldSet[d.UUID] = true
		}
		refs, err := tx.Referencing(ctx, keys(oldSet))
		if err != nil {
			return err
		}
		if err := relation.CheckDeletable(group, refs); err != nil {
			return err
		}
		relation.DetachAll(map[string]*artifact.Artifact{primary.UUID: primary}, refs, oldSet)
		for _, d := range oldDerived {
			if err := tx.PurgeArtifact(ctx, d.UUID); err != nil {
				return err
			}
		}

		if err := tx.DeleteContent(ctx, primary.UUID); err != nil {
			return err
		}
		primary.Document = nil
		primary.ModifiedBy, primary.ModifiedAt = who, now
		if err := tx.UpdateArtifact(ctx, primary); err != nil {
			return err
		}

		if s.auditing {
			if e := audit.DiffEntry(before, primary, who, now); e != nil {
				if err := tx.AddAuditEntry(ctx, e); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return apperror.Wrap(err)
}

// ReverseRelationships returns every non-trashed edge pointing at the
// artifact, plus synthesized entries for its derived children.
func (s *Service) ReverseRelationships(ctx context.Context, uuidStr string) (entries []relation.ReverseEntry, err error) {
	defer func(start time.Time) { s.observe("reverse_relationships", start, err) }(time.Now())

	err = s.store.InTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetArtifact(ctx, uuidStr); err != nil {
			return err
		}
		refs, err := tx.Referencing(ctx, []string{uuidStr})
		if err != nil {
			return err
		}
		children, err := tx.ListDerived(ctx, uuidStr)
		if err != nil {
			return err
		}
		entries = relation.Reverse(refs, children)
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return entries, nil
}

// resolveClassifiers validates the artifact's classifier URIs against the
// stored ontologies and fills the normalized set.
func (s *Service) resolveClassifiers(ctx context.Context, tx Tx, a *artifact.Artifact) error {
	if len(a.Classifiers) == 0 {
		a.Classifiers, a.Normalized = nil, nil
		return nil
	}
	onts, err := tx.ListOntologies(ctx)
	if err != nil {
		return err
	}
	resolved, normalized, err := ontology.NewResolver(onts).NormalizeAll(a.Classifiers)
	if err != nil {
		return err
	}
	a.Classifiers, a.Normalized = resolved, normalized
	return nil
}

// applyGenericRelationships replaces the artifact's generic relationships
// with the incoming set, validating kinds and that every target resolves.
// Deriver-owned relationships from the current state are preserved.
func (s *Service) applyGenericRelationships(ctx context.Context, tx Tx, a *artifact.Artifact, incoming []artifact.Relationship, current *artifact.Artifact) error {
	if current != nil {
		// Keep only non-generic edges from the stored state; the incoming
		// payload fully replaces the generic ones.
		a.Relationships = nil
		for _, r := range current.Relationships {
			if r.Kind != artifact.KindGeneric {
				a.Relationships = append(a.Relationships, r)
			}
		}
	} else {
		a.Relationships = nil
	}

	for _, r := range incoming {
		if r.Kind != "" && r.Kind != artifact.KindGeneric {
			return apperror.ErrValidation.WithMessagef(
				"relationship %q: %s relationships are deriver-owned", r.Name, r.Kind)
		}
		for _, tgt := range r.Targets {
			if _, err := tx.GetArtifact(ctx, tgt); err != nil {
				if apperror.IsNotFound(err) {
					return apperror.ErrValidation.WithMessagef(
						"relationship %q targets unknown artifact %s", r.Name, tgt)
				}
				return err
			}
		}
		if err := relation.SetGeneric(a, r.Name, r.Targets); err != nil {
			return err
		}
	}
	return nil
}

// detachReferences removes, for a force delete, every outside edge onto
// the group, rewriting the owning artifacts.
func (s *Service) detachReferences(ctx context.Context, tx Tx, group map[string]bool, refs []relation.Reference, who string, now time.Time) error {
	owners := map[string]*artifact.Artifact{}
	for _, ref := range refs {
		if ref.Kind == artifact.KindDerived || group[ref.SourceUUID] {
			continue
		}
		if _, ok := owners[ref.SourceUUID]; ok {
			continue
		}
		owner, err := tx.GetArtifact(ctx, ref.SourceUUID)
		if err != nil {
			return err
		}
		owners[ref.SourceUUID] = owner
	}
	relation.DetachAll(owners, refs, group)
	for _, owner := range owners {
		owner.ModifiedBy, owner.ModifiedAt = who, now
		if err := tx.UpdateArtifact(ctx, owner); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) attachContentFacet(a *artifact.Artifact, content []byte) {
	sum := sha256.Sum256(content)
	contentType := "application/octet-stream"
	if a.Document != nil && a.Document.ContentType != "" {
		contentType = a.Document.ContentType
	}
	a.Document = &artifact.DocumentFacet{
		ContentType: contentType,
		ContentSize: int64(len(content)),
		ContentHash: hex.EncodeToString(sum[:]),
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
