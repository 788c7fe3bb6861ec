// Package memory is the in-memory reference implementation of the
// persistence port and query backend. It backs unit tests and the
// memory storage driver.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artifexhq/artifex/domain/artifact"
	"github.com/artifexhq/artifex/domain/audit"
	"github.com/artifexhq/artifex/domain/ontology"
	"github.com/artifexhq/artifex/domain/relation"
	"github.com/artifexhq/artifex/domain/repository"
	"github.com/artifexhq/artifex/domain/storedquery"
	"github.com/artifexhq/artifex/pkg/apperror"
)

// Store keeps everything in maps. Transactions clone the whole state and
// swap it back in on commit, so a failed transaction leaves no trace.
// Transactions serialize; this is a reference implementation, not a
// concurrent engine.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	artifacts     map[string]*artifact.Artifact
	content       map[string][]byte
	ontologies    map[string]*ontology.Ontology
	storedQueries map[string]*storedquery.StoredQuery
	audits        []*audit.Entry
	auditSeq      int64
}

func NewStore() *Store {
	return &Store{state: &state{
		artifacts:     map[string]*artifact.Artifact{},
		content:       map[string][]byte{},
		ontologies:    map[string]*ontology.Ontology{},
		storedQueries: map[string]*storedquery.StoredQuery{},
	}}
}

func (s *state) clone() *state {
	c := &state{
		artifacts:     make(map[string]*artifact.Artifact, len(s.artifacts)),
		content:       make(map[string][]byte, len(s.content)),
		ontologies:    make(map[string]*ontology.Ontology, len(s.ontologies)),
		storedQueries: make(map[string]*storedquery.StoredQuery, len(s.storedQueries)),
		audits:        make([]*audit.Entry, len(s.audits)),
		auditSeq:      s.auditSeq,
	}
	for k, v := range s.artifacts {
		c.artifacts[k] = v.Clone()
	}
	for k, v := range s.content {
		data := make([]byte, len(v))
		copy(data, v)
		c.content[k] = data
	}
	for k, v := range s.ontologies {
		c.ontologies[k] = cloneOntology(v)
	}
	for k, v := range s.storedQueries {
		sq := *v
		sq.PropertyNames = append([]string(nil), v.PropertyNames...)
		c.storedQueries[k] = &sq
	}
	copy(c.audits, s.audits)
	return c
}

// InTransaction runs fn against a cloned state, committing the clone on
// nil return.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &tx{state: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

type tx struct {
	state *state
}

func (t *tx) PersistArtifact(ctx context.Context, a *artifact.Artifact) error {
	if _, ok := t.state.artifacts[a.UUID]; ok {
		return apperror.ErrConflict.WithMessagef("artifact %s already exists", a.UUID)
	}
	t.state.artifacts[a.UUID] = a.Clone()
	return nil
}

func (t *tx) GetArtifact(ctx context.Context, id string) (*artifact.Artifact, error) {
	a, ok := t.state.artifacts[id]
	if !ok || a.Trashed {
		return nil, apperror.ErrArtifactNotFound.WithMessagef("artifact %s not found", id)
	}
	return a.Clone(), nil
}

func (t *tx) ArtifactExists(ctx context.Context, id string) (bool, error) {
	_, ok := t.state.artifacts[id]
	return ok, nil
}

func (t *tx) UpdateArtifact(ctx context.Context, a *artifact.Artifact) error {
	if _, ok := t.state.artifacts[a.UUID]; !ok {
		return apperror.ErrArtifactNotFound.WithMessagef("artifact %s not found", a.UUID)
	}
	t.state.artifacts[a.UUID] = a.Clone()
	return nil
}

func (t *tx) PurgeArtifact(ctx context.Context, id string) error {
	delete(t.state.artifacts, id)
	delete(t.state.content, id)
	kept := t.state.audits[:0]
	for _, e := range t.state.audits {
		if e.ArtifactUUID != id {
			kept = append(kept, e)
		}
	}
	t.state.audits = kept
	return nil
}

func (t *tx) ListDerived(ctx context.Context, sourceUUID string) ([]*artifact.Artifact, error) {
	var out []*artifact.Artifact
	for _, a := range t.state.artifacts {
		if a.Derived && a.DerivedFrom == sourceUUID && !a.Trashed {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out, nil
}

func (t *tx) Referencing(ctx context.Context, targetUUIDs []string) ([]relation.Reference, error) {
	targets := map[string]bool{}
	for _, id := range targetUUIDs {
		targets[id] = true
	}
	var out []relation.Reference
	for _, a := range t.state.artifacts {
		if a.Trashed {
			continue
		}
		for _, rel := range a.Relationships {
			for _, tgt := range rel.Targets {
				if targets[tgt] {
					out = append(out, relation.Reference{
						SourceUUID: a.UUID,
						SourceType: a.Type,
						SourceName: a.Name,
						Name:       rel.Name,
						Kind:       rel.Kind,
						TargetUUID: tgt,
					})
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceUUID != out[j].SourceUUID {
			return out[i].SourceUUID < out[j].SourceUUID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (t *tx) FindByTypeAndProps(ctx context.Context, typ artifact.Type, props map[string]string) ([]*artifact.Artifact, error) {
	var out []*artifact.Artifact
	for _, a := range t.state.artifacts {
		if a.Trashed || a.Type != typ {
			continue
		}
		match := true
		for k, want := range props {
			got, ok := a.Property(k)
			if !ok || got != want {
				match = false
				break
			}
		}
		if match {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out, nil
}

func (t *tx) GetContent(ctx context.Context, id string) ([]byte, error) {
	data, ok := t.state.content[id]
	if !ok {
		return nil, apperror.ErrContentNotFound.WithMessagef("artifact %s has no content", id)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (t *tx) SetContent(ctx context.Context, id string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)
	t.state.content[id] = stored
	return nil
}

func (t *tx) DeleteContent(ctx context.Context, id string) error {
	delete(t.state.content, id)
	return nil
}

func (t *tx) PersistOntology(ctx context.Context, o *ontology.Ontology) error {
	if _, ok := t.state.ontologies[o.UUID]; ok {
		return apperror.ErrConflict.WithMessagef("ontology %s already exists", o.UUID)
	}
	t.state.ontologies[o.UUID] = cloneOntology(o)
	return nil
}

func (t *tx) GetOntology(ctx context.Context, id string) (*ontology.Ontology, error) {
	o, ok := t.state.ontologies[id]
	if !ok {
		return nil, apperror.ErrOntologyNotFound.WithMessagef("ontology %s not found", id)
	}
	return cloneOntology(o), nil
}

func (t *tx) ListOntologies(ctx context.Context) ([]*ontology.Ontology, error) {
	out := make([]*ontology.Ontology, 0, len(t.state.ontologies))
	for _, o := range t.state.ontologies {
		out = append(out, cloneOntology(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Base < out[j].Base })
	return out, nil
}

func (t *tx) UpdateOntology(ctx context.Context, o *ontology.Ontology) error {
	if _, ok := t.state.ontologies[o.UUID]; !ok {
		return apperror.ErrOntologyNotFound.WithMessagef("ontology %s not found", o.UUID)
	}
	t.state.ontologies[o.UUID] = cloneOntology(o)
	return nil
}

func (t *tx) DeleteOntology(ctx context.Context, id string) error {
	if _, ok := t.state.ontologies[id]; !ok {
		return apperror.ErrOntologyNotFound.WithMessagef("ontology %s not found", id)
	}
	delete(t.state.ontologies, id)
	return nil
}

func (t *tx) PersistStoredQuery(ctx context.Context, sq *storedquery.StoredQuery) error {
	if _, ok := t.state.storedQueries[sq.QueryName]; ok {
		return apperror.ErrConflict.WithMessagef("stored query %s already exists", sq.QueryName)
	}
	cp := *sq
	t.state.storedQueries[sq.QueryName] = &cp
	return nil
}

func (t *tx) GetStoredQuery(ctx context.Context, name string) (*storedquery.StoredQuery, error) {
	sq, ok := t.state.storedQueries[name]
	if !ok {
		return nil, apperror.ErrStoredQueryNotFound.WithMessagef("stored query %s not found", name)
	}
	cp := *sq
	return &cp, nil
}

func (t *tx) ListStoredQueries(ctx context.Context) ([]*storedquery.StoredQuery, error) {
	out := make([]*storedquery.StoredQuery, 0, len(t.state.storedQueries))
	for _, sq := range t.state.storedQueries {
		cp := *sq
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueryName < out[j].QueryName })
	return out, nil
}

func (t *tx) UpdateStoredQuery(ctx context.Context, sq *storedquery.StoredQuery) error {
	if _, ok := t.state.storedQueries[sq.QueryName]; !ok {
		return apperror.ErrStoredQueryNotFound.WithMessagef("stored query %s not found", sq.QueryName)
	}
	cp := *sq
	t.state.storedQueries[sq.QueryName] = &cp
	return nil
}

func (t *tx) DeleteStoredQuery(ctx context.Context, name string) error {
	if _, ok := t.state.storedQueries[name]; !ok {
		return apperror.ErrStoredQueryNotFound.WithMessagef("stored query %s not found", name)
	}
	delete(t.state.storedQueries, name)
	return nil
}

func (t *tx) AddAuditEntry(ctx context.Context, e *audit.Entry) error {
	if e.UUID == "" {
		e.UUID = uuid.NewString()
	}
	if e.When.IsZero() {
		e.When = time.Now().UTC()
	}
	t.state.auditSeq++
	e.Seq = t.state.auditSeq
	cp := *e
	cp.Items = append([]audit.Item(nil), e.Items...)
	t.state.audits = append(t.state.audits, &cp)
	return nil
}

func (t *tx) ArtifactAuditEntries(ctx context.Context, artifactUUID string) ([]*audit.Entry, error) {
	return t.auditEntries(func(e *audit.Entry) bool { return e.ArtifactUUID == artifactUUID }), nil
}

func (t *tx) UserAuditEntries(ctx context.Context, who string) ([]*audit.Entry, error) {
	return t.auditEntries(func(e *audit.Entry) bool { return e.Who == who }), nil
}

// auditEntries filters and orders newest first.
func (t *tx) auditEntries(keep func(*audit.Entry) bool) []*audit.Entry {
	var out []*audit.Entry
	for _, e := range t.state.audits {
		if keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	return out
}

func cloneOntology(o *ontology.Ontology) *ontology.Ontology {
	c := *o
	c.Classes = cloneClasses(o.Classes)
	return &c
}

func cloneClasses(cs []*ontology.Class) []*ontology.Class {
	if cs == nil {
		return nil
	}
	out := make([]*ontology.Class, len(cs))
	for i, c := range cs {
		cp := *c
		cp.Children = cloneClasses(c.Children)
		out[i] = &cp
	}
	return out
}
