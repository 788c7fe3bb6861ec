// Package repository is the transactional facade over the persistence
// port: every public operation runs as one atomic unit of work
// coordinating derivation, relationship integrity, querying, and auditing.
package repository

import (
	"context"

	"github.com/artifexhq/artifex/domain/artifact"
	"github.com/artifexhq/artifex/domain/audit"
	"github.com/artifexhq/artifex/domain/ontology"
	"github.com/artifexhq/artifex/domain/query"
	"github.com/artifexhq/artifex/domain/relation"
	"github.com/artifexhq/artifex/domain/storedquery"
)

// Store is the persistence port. InTransaction runs fn as one atomic unit:
// commit on nil return, full rollback on any error. Nothing partially
// persists.
type Store interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the per-transaction surface of the persistence port. All reads
// exclude trashed artifacts unless stated otherwise.
type Tx interface {
	query.Backend

	// PersistArtifact inserts a new artifact row.
	PersistArtifact(ctx context.Context, a *artifact.Artifact) error
	// GetArtifact loads a non-trashed artifact by UUID.
	GetArtifact(ctx context.Context, uuid string) (*artifact.Artifact, error)
	// ArtifactExists reports whether the UUID is taken, trashed included.
	ArtifactExists(ctx context.Context, uuid string) (bool, error)
	// UpdateArtifact replaces an artifact row, trashed included.
	UpdateArtifact(ctx context.Context, a *artifact.Artifact) error
	// PurgeArtifact hard-deletes an artifact row, its content, and its
	// audit trail. Used when re-derivation replaces a derived set.
	PurgeArtifact(ctx context.Context, uuid string) error
	// ListDerived returns the non-trashed derived artifacts of a source.
	ListDerived(ctx context.Context, sourceUUID string) ([]*artifact.Artifact, error)
	// Referencing returns every relationship edge from a non-trashed
	// owner targeting any of the given UUIDs.
	Referencing(ctx context.Context, targetUUIDs []string) ([]relation.Reference, error)
	// FindByTypeAndProps returns non-trashed artifacts of the exact type
	// whose custom properties all match.
	FindByTypeAndProps(ctx context.Context, t artifact.Type, props map[string]string) ([]*artifact.Artifact, error)

	GetContent(ctx context.Context, uuid string) ([]byte, error)
	SetContent(ctx context.Context, uuid string, data []byte) error
	DeleteContent(ctx context.Context, uuid string) error

	PersistOntology(ctx context.Context, o *ontology.Ontology) error
	GetOntology(ctx context.Context, uuid string) (*ontology.Ontology, error)
	ListOntologies(ctx context.Context) ([]*ontology.Ontology, error)
	UpdateOntology(ctx context.Context, o *ontology.Ontology) error
	DeleteOntology(ctx context.Context, uuid string) error

	PersistStoredQuery(ctx context.Context, sq *storedquery.StoredQuery) error
	GetStoredQuery(ctx context.Context, name string) (*storedquery.StoredQuery, error)
	ListStoredQueries(ctx context.Context) ([]*storedquery.StoredQuery, error)
	UpdateStoredQuery(ctx context.Context, sq *storedquery.StoredQuery) error
	DeleteStoredQuery(ctx context.Context, name string) error

	// AddAuditEntry assigns the entry UUID and sequence and persists it.
	AddAuditEntry(ctx context.Context, e *audit.Entry) error
	// ArtifactAuditEntries returns an artifact's entries, newest first.
	ArtifactAuditEntries(ctx context.Context, artifactUUID string) ([]*audit.Entry, error)
	// UserAuditEntries returns a user's entries across artifacts, newest
	// first.
	UserAuditEntries(ctx context.Context, who string) ([]*audit.Entry, error)
}

type actorKey struct{}

// WithActor records the acting user on the context; audit entries and
// createdBy/lastModifiedBy fields carry it.
func WithActor(ctx context.Context, who string) context.Context {
	return context.WithValue(ctx, actorKey{}, who)
}

// Actor returns the acting user, defaulting to "anonymous".
func Actor(ctx context.Context) string {
	if who, ok := ctx.Value(actorKey{}).(string); ok && who != "" {
		return who
	}
	return "anonymous"
}
