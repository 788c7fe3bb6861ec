package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/artifexhq/artifex/domain/artifact"
	"github.com/artifexhq/artifex/domain/audit"
	"github.com/artifexhq/artifex/domain/ontology"
	"github.com/artifexhq/artifex/domain/relation"
	"github.com/artifexhq/artifex/domain/repository"
	"github.com/artifexhq/artifex/domain/storedquery"
	"github.com/artifexhq/artifex/internal/database"
	"github.com/artifexhq/artifex/pkg/apperror"
)

// Store implements the persistence port over PostgreSQL.
type Store struct {
	db bun.IDB
}

func NewStore(db bun.IDB) *Store {
	return &Store{db: db}
}

// InTransaction maps the port's transaction contract onto a database
// transaction.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return database.RunInTx(ctx, s.db, func(ctx context.Context, dbTx bun.Tx) error {
		return fn(ctx, &pgTx{db: dbTx})
	})
}

type pgTx struct {
	db bun.Tx
}

func dbErr(err error, op string) error {
	return apperror.ErrDatabase.WithMessagef("%s failed", op).WithInternal(err)
}

func (t *pgTx) PersistArtifact(ctx context.Context, a *artifact.Artifact) error {
	if _, err := t.db.NewInsert().Model(toArtifactRow(a)).Exec(ctx); err != nil {
		return dbErr(err, "insert artifact")
	}
	return t.insertRelationships(ctx, a)
}

func (t *pgTx) insertRelationships(ctx context.Context, a *artifact.Artifact) error {
	rows := toRelationshipRows(a)
	if len(rows) == 0 {
		return nil
	}
	if _, err := t.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return dbErr(err, "insert relationships")
	}
	return nil
}

func (t *pgTx) loadRelationships(ctx context.Context, ownerUUIDs []string) (map[string][]relationshipRow, error) {
	if len(ownerUUIDs) == 0 {
		return map[string][]relationshipRow{}, nil
	}
	var rows []relationshipRow
	err := t.db.NewSelect().Model(&rows).
		Where("owner_uuid IN (?)", bun.In(ownerUUIDs)).
		Order("owner_uuid", "position").
		Scan(ctx)
	if err != nil {
		return nil, dbErr(err, "load relationships")
	}
	byOwner := map[string][]relationshipRow{}
	for _, r := range rows {
		byOwner[r.OwnerUUID] = append(byOwner[r.OwnerUUID], r)
	}
	return byOwner, nil
}

func (t *pgTx) GetArtifact(ctx context.Context, id string) (*artifact.Artifact, error) {
	row := new(artifactRow)
	err := t.db.NewSelect().Model(row).
		Where("a.uuid = ?", id).
		Where("a.trashed = false").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrArtifactNotFound.WithMessagef("artifact %s not found", id)
	}
	if err != nil {
		return nil, dbErr(err, "select artifact")
	}
	rels, err := t.loadRelationships(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return fromArtifactRow(row, rels[id]), nil
}

func (t *pgTx) ArtifactExists(ctx context.Context, id string) (bool, error) {
	exists, err := t.db.NewSelect().Model((*artifactRow)(nil)).
		Where("a.uuid = ?", id).
		Exists(ctx)
	if err != nil {
		return false, dbErr(err, "check artifact exists")
	}
	return exists, nil
}

func (t *pgTx) UpdateArtifact(ctx context.Context, a *artifact.Artifact) error {
	res, err := t.db.NewUpdate().Model(toArtifactRow(a)).WherePK().Exec(ctx)
	if err != nil {
		return dbErr(err, "update artifact")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperror.ErrArtifactNotFound.WithMessagef("artifact %s not found", a.UUID)
	}
	// Relationship rows are replaced wholesale; they are few per artifact.
	if _, err := t.db.NewDelete().Model((*relationshipRow)(nil)).
		Where("owner_uuid = ?", a.UUID).Exec(ctx); err != nil {
		return dbErr(err, "delete relationships")
	}
	return t.insertRelationships(ctx, a)
}

func (t *pgTx) PurgeArtifact(ctx context.Context, id string) error {
	for _, del := range []func() (sql.Result, error){
		func() (sql.Result, error) {
			return t.db.NewDelete().Model((*relationshipRow)(nil)).Where("owner_uuid = ?", id).Exec(ctx)
		},
		func() (sql.Result, error) {
			return t.db.NewDelete().Model((*contentRow)(nil)).Where("uuid = ?", id).Exec(ctx)
		},
		func() (sql.Result, error) {
			return t.db.NewDelete().Model((*auditRow)(nil)).Where("artifact_uuid = ?", id).Exec(ctx)
		},
		func() (sql.Result, error) {
			return t.db.NewDelete().Model((*artifactRow)(nil)).Where("uuid = ?", id).Exec(ctx)
		},
	} {
		if _, err := del(); err != nil {
			return dbErr(err, "purge artifact")
		}
	}
	return nil
}

func (t *pgTx) ListDerived(ctx context.Context, sourceUUID string) ([]*artifact.Artifact, error) {
	var rows []artifactRow
	err := t.db.NewSelect().Model(&rows).
		Where("a.derived = true").
		Where("a.derived_from = ?", sourceUUID).
		Where("a.trashed = false").
		Order("a.uuid").
		Scan(ctx)
	if err != nil {
		return nil, dbErr(err, "list derived artifacts")
	}
	return t.assemble(ctx, rows)
}

func (t *pgTx) assemble(ctx context.Context, rows []artifactRow) ([]*artifact.Artifact, error) {
	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].UUID
	}
	rels, err := t.loadRelationships(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*artifact.Artifact, len(rows))
	for i := range rows {
		out[i] = fromArtifactRow(&rows[i], rels[rows[i].UUID])
	}
	return out, nil
}

func (t *pgTx) Referencing(ctx context.Context, targetUUIDs []string) ([]relation.Reference, error) {
	if len(targetUUIDs) == 0 {
		return nil, nil
	}
	var rows []struct {
		relationshipRow
		SourceModel string `bun:"source_model"`
		SourceType  string `bun:"source_type"`
		SourceName  string `bun:"source_name"`
	}
	err := t.db.NewSelect().Model((*relationshipRow)(nil)).
		ColumnExpr("r.*").
		ColumnExpr("a.model AS source_model, a.type AS source_type, a.name AS source_name").
		Join("JOIN artifacts AS a ON a.uuid = r.owner_uuid").
		Where("a.trashed = false").
		Where("r.targets && ?", pgdialect.Array(targetUUIDs)).
		Order("r.owner_uuid", "r.name").
		Scan(ctx, &rows)
	if err != nil {
		return nil, dbErr(err, "find referencing relationships")
	}

	targets := map[string]bool{}
	for _, id := range targetUUIDs {
		targets[id] = true
	}
	var out []relation.Reference
	for _, r := range rows {
		for _, tgt := range r.Targets {
			if targets[tgt] {
				out = append(out, relation.Reference{
					SourceUUID: r.OwnerUUID,
					SourceType: artifact.Type{Model: r.SourceModel, Type: r.SourceType},
					SourceName: r.SourceName,
					Name:       r.Name,
					Kind:       artifact.RelationshipKind(r.Kind),
					TargetUUID: tgt,
				})
			}
		}
	}
	return out, nil
}

func (t *pgTx) FindByTypeAndProps(ctx context.Context, typ artifact.Type, props map[string]string) ([]*artifact.Artifact, error) {
	// Deterministic clause order keeps generated SQL stable for the
	// query-debug log.
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows []artifactRow
	q := t.db.NewSelect().Model(&rows).
		Where("a.trashed = false").
		Where("a.model = ?", typ.Model).
		Where("a.type = ?", typ.Type)
	for _, name := range names {
		q = q.Where("a.properties->>? = ?", name, props[name])
	}
	if err := q.Order("a.uuid").Scan(ctx); err != nil {
		return nil, dbErr(err, "find artifacts by properties")
	}
	return t.assemble(ctx, rows)
}

func (t *pgTx) GetContent(ctx context.Context, id string) ([]byte, error) {
	row := new(contentRow)
	err := t.db.NewSelect().Model(row).Where("c.uuid = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrContentNotFound.WithMessagef("artifact %s has no content", id)
	}
	if err != nil {
		return nil, dbErr(err, "select content")
	}
	return row.Data, nil
}

func (t *pgTx) SetContent(ctx context.Context, id string, data []byte) error {
	row := &contentRow{UUID: id, Data: data}
	if utf8.Valid(data) {
		row.Text = string(data)
	}
	_, err := t.db.NewInsert().Model(row).
		On("CONFLICT (uuid) DO UPDATE").
		Set("data = EXCLUDED.data, text = EXCLUDED.text").
		Exec(ctx)
	if err != nil {
		return dbErr(err, "upsert content")
	}
	return nil
}

func (t *pgTx) DeleteContent(ctx context.Context, id string) error {
	if _, err := t.db.NewDelete().Model((*contentRow)(nil)).Where("uuid = ?", id).Exec(ctx); err != nil {
		return dbErr(err, "delete content")
	}
	return nil
}

func (t *pgTx) PersistOntology(ctx context.Context, o *ontology.Ontology) error {
	if _, err := t.db.NewInsert().Model(toOntologyRow(o)).Exec(ctx); err != nil {
		return dbErr(err, "insert ontology")
	}
	return nil
}

func (t *pgTx) GetOntology(ctx context.Context, id string) (*ontology.Ontology, error) {
	row := new(ontologyRow)
	err := t.db.NewSelect().Model(row).Where("o.uuid = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrOntologyNotFound.WithMessagef("ontology %s not found", id)
	}
	if err != nil {
		return nil, dbErr(err, "select ontology")
	}
	return fromOntologyRow(row), nil
}

func (t *pgTx) ListOntologies(ctx context.Context) ([]*ontology.Ontology, error) {
	var rows []ontologyRow
	if err := t.db.NewSelect().Model(&rows).Order("base").Scan(ctx); err != nil {
		return nil, dbErr(err, "list ontologies")
	}
	out := make([]*ontology.Ontology, len(rows))
	for i := range rows {
		out[i] = fromOntologyRow(&rows[i])
	}
	return out, nil
}

func (t *pgTx) UpdateOntology(ctx context.Context, o *ontology.Ontology) error {
	res, err := t.db.NewUpdate().Model(toOntologyRow(o)).WherePK().Exec(ctx)
	if err != nil {
		return dbErr(err, "update ontology")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperror.ErrOntologyNotFound.WithMessagef("ontology %s not found", o.UUID)
	}
	return nil
}

func (t *pgTx) DeleteOntology(ctx context.Context, id string) error {
	res, err := t.db.NewDelete().Model((*ontologyRow)(nil)).Where("uuid = ?", id).Exec(ctx)
	if err != nil {
		return dbErr(err, "delete ontology")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperror.ErrOntologyNotFound.WithMessagef("ontology %s not found", id)
	}
	return nil
}

func (t *pgTx) PersistStoredQuery(ctx context.Context, sq *storedquery.StoredQuery) error {
	if _, err := t.db.NewInsert().Model(toStoredQueryRow(sq)).Exec(ctx); err != nil {
		return dbErr(err, "insert stored query")
	}
	return nil
}

func (t *pgTx) GetStoredQuery(ctx context.Context, name string) (*storedquery.StoredQuery, error) {
	row := new(storedQueryRow)
	err := t.db.NewSelect().Model(row).Where("sq.name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrStoredQueryNotFound.WithMessagef("stored query %s not found", name)
	}
	if err != nil {
		return nil, dbErr(err, "select stored query")
	}
	return fromStoredQueryRow(row), nil
}

func (t *pgTx) ListStoredQueries(ctx context.Context) ([]*storedquery.StoredQuery, error) {
	var rows []storedQueryRow
	if err := t.db.NewSelect().Model(&rows).Order("name").Scan(ctx); err != nil {
		return nil, dbErr(err, "list stored queries")
	}
	out := make([]*storedquery.StoredQuery, len(rows))
	for i := range rows {
		out[i] = fromStoredQueryRow(&rows[i])
	}
	return out, nil
}

func (t *pgTx) UpdateStoredQuery(ctx context.Context, sq *storedquery.StoredQuery) error {
	res, err := t.db.NewUpdate().Model(toStoredQueryRow(sq)).WherePK().Exec(ctx)
	if err != nil {
		return dbErr(err, "update stored query")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperror.ErrStoredQueryNotFound.WithMessagef("stored query %s not found", sq.QueryName)
	}
	return nil
}

func (t *pgTx) DeleteStoredQuery(ctx context.Context, name string) error {
	res, err := t.db.NewDelete().Model((*storedQueryRow)(nil)).Where("name = ?", name).Exec(ctx)
	if err != nil {
		return dbErr(err, "delete stored query")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperror.ErrStoredQueryNotFound.WithMessagef("stored query %s not found", name)
	}
	return nil
}

func (t *pgTx) AddAuditEntry(ctx context.Context, e *audit.Entry) error {
	if e.UUID == "" {
		e.UUID = uuid.NewString()
	}
	if e.When.IsZero() {
		e.When = time.Now().UTC()
	}
	row := &auditRow{
		UUID:         e.UUID,
		ArtifactUUID: e.ArtifactUUID,
		Type:         e.Type,
		Who:          e.Who,
		When:         e.When,
		Items:        e.Items,
	}
	err := t.db.NewInsert().Model(row).
		ExcludeColumn("seq").
		Returning("seq").
		Scan(ctx)
	if err != nil {
		return dbErr(err, "insert audit entry")
	}
	e.Seq = row.Seq
	return nil
}

func (t *pgTx) ArtifactAuditEntries(ctx context.Context, artifactUUID string) ([]*audit.Entry, error) {
	return t.auditEntries(ctx, "ae.artifact_uuid = ?", artifactUUID)
}

func (t *pgTx) UserAuditEntries(ctx context.Context, who string) ([]*audit.Entry, error) {
	return t.auditEntries(ctx, "ae.who = ?", who)
}

func (t *pgTx) auditEntries(ctx context.Context, where string, arg any) ([]*audit.Entry, error) {
	var rows []auditRow
	err := t.db.NewSelect().Model(&rows).
		Where(where, arg).
		Order("seq DESC").
		Scan(ctx)
	if err != nil {
		return nil, dbErr(err, "list audit entries")
	}
	out := make([]*audit.Entry, len(rows))
	for i := range rows {
		out[i] = fromAuditRow(&rows[i])
	}
	return out, nil
}
