package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/artifexhq/artifex/domain/query"
	"github.com/artifexhq/artifex/pkg/apperror"
)

// systemColumns maps query-addressable system properties to SQL
// expressions over the artifacts table.
var systemColumns = map[string]string{
	"uuid":           "a.uuid",
	"name":           "a.name",
	"description":    "a.description",
	"version":        "a.version",
	"createdBy":      "a.created_by",
	"lastModifiedBy": "a.last_modified_by",
	"contentType":    "a.content_type",
	"contentHash":    "a.content_hash",
	"derivedFrom":    "a.derived_from",
}

// timestampColumns need their string operand cast back to a timestamp.
var timestampColumns = map[string]string{
	"createdTimestamp":      "a.created_at",
	"lastModifiedTimestamp": "a.last_modified_at",
}

const numericPattern = `^-?[0-9]+(\.[0-9]+)?$`

// sqlRenderer turns a resolved predicate tree into one SQL boolean
// expression with positional bun placeholders.
type sqlRenderer struct {
	args []any
}

func (r *sqlRenderer) render(n query.Node) (string, error) {
	switch v := n.(type) {
	case *query.And:
		return r.renderJunction(v.Terms, " AND ")
	case *query.Or:
		return r.renderJunction(v.Terms, " OR ")
	case *query.Not:
		inner, err := r.render(v.Term)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case *query.Exists:
		return r.renderExists(v)
	case *query.Compare:
		return r.renderCompare(v)
	case *query.Classified:
		return r.renderClassified(v)
	case *query.Matches:
		return r.renderMatches(v)
	}
	return "", apperror.ErrInternal.WithMessage("unknown predicate node")
}

func (r *sqlRenderer) renderJunction(terms []query.Node, sep string) (string, error) {
	parts := make([]string, len(terms))
	for i, term := range terms {
		p, err := r.render(term)
		if err != nil {
			return "", err
		}
		parts[i] = "(" + p + ")"
	}
	return strings.Join(parts, sep), nil
}

// propertyExpr returns the SQL text expression for a property name.
func propertyExpr(name string) string {
	if col, ok := systemColumns[name]; ok {
		return col
	}
	if col, ok := timestampColumns[name]; ok {
		return "to_char(" + col + " AT TIME ZONE 'UTC', 'YYYY-MM-DD\"T\"HH24:MI:SS\"Z\"')"
	}
	return fmt.Sprintf("a.properties->>'%s'", strings.ReplaceAll(name, "'", "''"))
}

func (r *sqlRenderer) renderExists(e *query.Exists) (string, error) {
	if _, ok := timestampColumns[e.Property]; ok {
		return "TRUE", nil
	}
	return "COALESCE(" + propertyExpr(e.Property) + ", '') <> ''", nil
}

func (r *sqlRenderer) renderCompare(c *query.Compare) (string, error) {
	op, ok := map[query.Op]string{
		query.OpEq: "=", query.OpNe: "<>",
		query.OpLt: "<", query.OpLe: "<=",
		query.OpGt: ">", query.OpGe: ">=",
	}[c.Op]
	if !ok {
		return "", apperror.ErrInternal.WithMessagef("unknown operator %q", c.Op)
	}

	if col, isTS := timestampColumns[c.Property]; isTS {
		r.args = append(r.args, c.Value.Str)
		return col + " " + op + " (?::timestamptz)", nil
	}

	expr := propertyExpr(c.Property)
	if c.Value.Kind == query.LitNumber {
		// Non-numeric stored values never match a numeric comparison.
		r.args = append(r.args, c.Value.Num)
		return "(" + expr + " ~ '" + numericPattern + "' AND (" + expr + ")::numeric " + op + " ?)", nil
	}
	r.args = append(r.args, c.Value.Str)
	return "(" + expr + " IS NOT NULL AND " + expr + " " + op + " ?)", nil
}

func (r *sqlRenderer) renderClassified(c *query.Classified) (string, error) {
	uris := make([]string, len(c.URIs))
	for i, u := range c.URIs {
		uris[i] = u.Str
	}
	r.args = append(r.args, pgdialect.Array(uris))
	if c.All {
		return "a.normalized_classifiers @> ?", nil
	}
	return "a.normalized_classifiers && ?", nil
}

func (r *sqlRenderer) renderMatches(m *query.Matches) (string, error) {
	pattern := "%" + escapeLike(m.Pattern.Str) + "%"
	r.args = append(r.args, pattern)
	if m.Property != "" {
		return "COALESCE(" + propertyExpr(m.Property) + ", '') ILIKE ?", nil
	}
	return "EXISTS (SELECT 1 FROM artifact_content AS c WHERE c.uuid = a.uuid AND c.text ILIKE ?)", nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// ExecuteQuery renders the request to SQL, runs the count and the page
// select, and returns the materialized page as an ArtifactSet.
func (t *pgTx) ExecuteQuery(ctx context.Context, req query.Request) (query.ArtifactSet, error) {
	renderer := &sqlRenderer{}
	var predicate string
	if req.Predicate != nil {
		var err error
		predicate, err = renderer.render(req.Predicate)
		if err != nil {
			return nil, err
		}
	}

	b := &selectBuilder{tx: t, req: req}
	total, err := b.count(ctx, predicate, renderer.args)
	if err != nil {
		return nil, err
	}

	var rows []artifactRow
	if err := b.page(ctx, &rows, predicate, renderer.args); err != nil {
		return nil, err
	}
	arts, err := t.assemble(ctx, rows)
	if err != nil {
		return nil, err
	}
	return query.NewSliceSet(arts, int64(total)), nil
}

// selectBuilder carries the selector/trashed filtering shared by the
// count and page queries.
type selectBuilder struct {
	tx  *pgTx
	req query.Request
}

func (b *selectBuilder) base(rows any) *bun.SelectQuery {
	q := b.tx.db.NewSelect()
	if rows != nil {
		q = q.Model(rows)
	} else {
		q = q.Model((*artifactRow)(nil))
	}
	q = q.Where("a.trashed = false")
	if b.req.Selector.Model != "" {
		q = q.Where("a.model = ?", b.req.Selector.Model)
	}
	if b.req.Selector.Type != "" {
		q = q.Where("a.type = ?", b.req.Selector.Type)
	}
	return q
}

func (b *selectBuilder) count(ctx context.Context, predicate string, args []any) (int, error) {
	q := b.base(nil)
	if predicate != "" {
		q = q.Where(predicate, args...)
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, dbErr(err, "count query")
	}
	return n, nil
}

func (b *selectBuilder) page(ctx context.Context, rows *[]artifactRow, predicate string, args []any) error {
	q := b.base(rows)
	if predicate != "" {
		q = q.Where(predicate, args...)
	}

	orderBy := b.req.OrderBy
	if orderBy == "" {
		orderBy = "uuid"
	}
	dir := "DESC"
	if b.req.Ascending {
		dir = "ASC"
	}
	q = q.OrderExpr(propertyExpr(orderBy) + " " + dir + ", a.uuid ASC")

	if b.req.Offset > 0 {
		q = q.Offset(b.req.Offset)
	}
	if b.req.Limit > 0 {
		q = q.Limit(b.req.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return dbErr(err, "page query")
	}
	return nil
}
