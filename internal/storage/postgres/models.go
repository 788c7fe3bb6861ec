// Package postgres is the relational implementation of the persistence
// port and query backend, built on bun over pgx. The predicate tree is
// rendered to SQL over a JSONB property column.
package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/artifexhq/artifex/domain/artifact"
	"github.com/artifexhq/artifex/domain/audit"
	"github.com/artifexhq/artifex/domain/ontology"
	"github.com/artifexhq/artifex/domain/storedquery"
)

type artifactRow struct {
	bun.BaseModel `bun:"table:artifacts,alias:a"`

	UUID        string `bun:"uuid,pk"`
	Model       string `bun:"model,notnull"`
	Type        string `bun:"type,notnull"`
	Name        string `bun:"name"`
	Description string `bun:"description"`
	Version     string `bun:"version"`

	CreatedBy  string    `bun:"created_by"`
	CreatedAt  time.Time `bun:"created_at"`
	ModifiedBy string    `bun:"last_modified_by"`
	ModifiedAt time.Time `bun:"last_modified_at"`

	// Properties holds the custom name/value pairs; PropertyOrder
	// preserves their insertion order, which JSONB objects cannot.
	Properties    map[string]string `bun:"properties,type:jsonb"`
	PropertyOrder []string          `bun:"property_order,array"`

	Classifiers []string `bun:"classifiers,array"`
	Normalized  []string `bun:"normalized_classifiers,array"`

	Trashed     bool   `bun:"trashed,notnull"`
	Derived     bool   `bun:"derived,notnull"`
	DerivedFrom string `bun:"derived_from"`

	HasContent  bool   `bun:"has_content,notnull"`
	ContentType string `bun:"content_type"`
	ContentSize int64  `bun:"content_size"`
	ContentHash string `bun:"content_hash"`
}

type relationshipRow struct {
	bun.BaseModel `bun:"table:artifact_relationships,alias:r"`

	ID        int64  `bun:"id,pk,autoincrement"`
	OwnerUUID string `bun:"owner_uuid,notnull"`
	Name      string `bun:"name,notnull"`
	Kind      string `bun:"kind,notnull"`

	MinCardinality int `bun:"min_cardinality,notnull"`
	MaxCardinality int `bun:"max_cardinality,notnull"`

	Position int      `bun:"position,notnull"`
	Targets  []string `bun:"targets,array"`
}

type contentRow struct {
	bun.BaseModel `bun:"table:artifact_content,alias:c"`

	UUID string `bun:"uuid,pk"`
	Data []byte `bun:"data"`
	// Text is the content decoded as UTF-8 where possible, kept for
	// full-text matches().
	Text string `bun:"text"`
}

type ontologyRow struct {
	bun.BaseModel `bun:"table:ontologies,alias:o"`

	UUID    string `bun:"uuid,pk"`
	Base    string `bun:"base,notnull"`
	Label   string `bun:"label"`
	Comment string `bun:"comment"`

	CreatedBy  string    `bun:"created_by"`
	CreatedAt  time.Time `bun:"created_at"`
	ModifiedBy string    `bun:"last_modified_by"`
	ModifiedAt time.Time `bun:"last_modified_at"`

	Classes []*ontology.Class `bun:"classes,type:jsonb"`
}

type storedQueryRow struct {
	bun.BaseModel `bun:"table:stored_queries,alias:sq"`

	Name          string   `bun:"name,pk"`
	Expression    string   `bun:"expression,notnull"`
	PropertyNames []string `bun:"property_names,array"`

	CreatedBy  string    `bun:"created_by"`
	CreatedAt  time.Time `bun:"created_at"`
	ModifiedBy string    `bun:"last_modified_by"`
	ModifiedAt time.Time `bun:"last_modified_at"`
}

type auditRow struct {
	bun.BaseModel `bun:"table:audit_entries,alias:ae"`

	UUID         string       `bun:"uuid,pk"`
	ArtifactUUID string       `bun:"artifact_uuid,notnull"`
	Type         string       `bun:"type,notnull"`
	Who          string       `bun:"who,notnull"`
	When         time.Time    `bun:"happened_at"`
	Seq          int64        `bun:"seq,autoincrement"`
	Items        []audit.Item `bun:"items,type:jsonb"`
}

func toArtifactRow(a *artifact.Artifact) *artifactRow {
	row := &artifactRow{
		UUID:        a.UUID,
		Model:       a.Type.Model,
		Type:        a.Type.Type,
		Name:        a.Name,
		Description: a.Description,
		Version:     a.Version,
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt,
		ModifiedBy:  a.ModifiedBy,
		ModifiedAt:  a.ModifiedAt,
		Classifiers: a.Classifiers,
		Normalized:  a.Normalized,
		Trashed:     a.Trashed,
		Derived:     a.Derived,
		DerivedFrom: a.DerivedFrom,
	}
	row.Properties = make(map[string]string, len(a.Properties))
	row.PropertyOrder = make([]string, 0, len(a.Properties))
	for _, p := range a.Properties {
		row.Properties[p.Name] = p.Value
		row.PropertyOrder = append(row.PropertyOrder, p.Name)
	}
	if a.Document != nil {
		row.HasContent = true
		row.ContentType = a.Document.ContentType
		row.ContentSize = a.Document.ContentSize
		row.ContentHash = a.Document.ContentHash
	}
	return row
}

func fromArtifactRow(row *artifactRow, rels []relationshipRow) *artifact.Artifact {
	a := &artifact.Artifact{
		UUID:        row.UUID,
		Type:        artifact.Type{Model: row.Model, Type: row.Type},
		Name:        row.Name,
		Description: row.Description,
		Version:     row.Version,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		ModifiedBy:  row.ModifiedBy,
		ModifiedAt:  row.ModifiedAt,
		Classifiers: row.Classifiers,
		Normalized:  row.Normalized,
		Trashed:     row.Trashed,
		Derived:     row.Derived,
		DerivedFrom: row.DerivedFrom,
	}
	for _, name := range row.PropertyOrder {
		if v, ok := row.Properties[name]; ok {
			a.Properties = append(a.Properties, artifact.Property{Name: name, Value: v})
		}
	}
	if row.HasContent {
		a.Document = &artifact.DocumentFacet{
			ContentType: row.ContentType,
			ContentSize: row.ContentSize,
			ContentHash: row.ContentHash,
		}
	}
	for _, r := range rels {
		a.Relationships = append(a.Relationships, artifact.Relationship{
			Name:           r.Name,
			Kind:           artifact.RelationshipKind(r.Kind),
			MinCardinality: r.MinCardinality,
			MaxCardinality: r.MaxCardinality,
			Targets:        r.Targets,
		})
	}
	return a
}

func toRelationshipRows(a *artifact.Artifact) []relationshipRow {
	rows := make([]relationshipRow, 0, len(a.Relationships))
	for i, r := range a.Relationships {
		rows = append(rows, relationshipRow{
			OwnerUUID:      a.UUID,
			Name:           r.Name,
			Kind:           string(r.Kind),
			MinCardinality: r.MinCardinality,
			MaxCardinality: r.MaxCardinality,
			Position:       i,
			Targets:        r.Targets,
		})
	}
	return rows
}

func toOntologyRow(o *ontology.Ontology) *ontologyRow {
	return &ontologyRow{
		UUID:       o.UUID,
		Base:       o.Base,
		Label:      o.Label,
		Comment:    o.Comment,
		CreatedBy:  o.CreatedBy,
		CreatedAt:  o.CreatedAt,
		ModifiedBy: o.ModifiedBy,
		ModifiedAt: o.ModifiedAt,
		Classes:    o.Classes,
	}
}

func fromOntologyRow(row *ontologyRow) *ontology.Ontology {
	return &ontology.Ontology{
		UUID:       row.UUID,
		Base:       row.Base,
		Label:      row.Label,
		Comment:    row.Comment,
		CreatedBy:  row.CreatedBy,
		CreatedAt:  row.CreatedAt,
		ModifiedBy: row.ModifiedBy,
		ModifiedAt: row.ModifiedAt,
		Classes:    row.Classes,
	}
}

func toStoredQueryRow(sq *storedquery.StoredQuery) *storedQueryRow {
	return &storedQueryRow{
		Name:          sq.QueryName,
		Expression:    sq.QueryExpression,
		PropertyNames: sq.PropertyNames,
		CreatedBy:     sq.CreatedBy,
		CreatedAt:     sq.CreatedAt,
		ModifiedBy:    sq.ModifiedBy,
		ModifiedAt:    sq.ModifiedAt,
	}
}

func fromStoredQueryRow(row *storedQueryRow) *storedquery.StoredQuery {
	return &storedquery.StoredQuery{
		QueryName:       row.Name,
		QueryExpression: row.Expression,
		PropertyNames:   row.PropertyNames,
		CreatedBy:       row.CreatedBy,
		CreatedAt:       row.CreatedAt,
		ModifiedBy:      row.ModifiedBy,
		ModifiedAt:      row.ModifiedAt,
	}
}

func fromAuditRow(row *auditRow) *audit.Entry {
	return &audit.Entry{
		UUID:         row.UUID,
		ArtifactUUID: row.ArtifactUUID,
		Type:         row.Type,
		Who:          row.Who,
		When:         row.When,
		Seq:          row.Seq,
		Items:        row.Items,
	}
}
