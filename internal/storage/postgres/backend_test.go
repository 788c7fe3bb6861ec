package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifexhq/artifex/domain/query"
)

func render(t *testing.T, expr string) (string, []any) {
	t.Helper()
	q, err := query.New(expr, "", true)
	require.NoError(t, err)
	req, err := q.Resolve(0, 0, nil)
	require.NoError(t, err)
	r := &sqlRenderer{}
	sql, err := r.render(req.Predicate)
	require.NoError(t, err)
	return sql, r.args
}

func TestRenderExists(t *testing.T) {
	sql, args := render(t, "/artifex[@owner]")
	assert.Equal(t, "COALESCE(a.properties->>'owner', '') <> ''", sql)
	assert.Empty(t, args)
}

func TestRenderSystemColumn(t *testing.T) {
	sql, args := render(t, "/artifex[@name = 'orders.xsd']")
	assert.Equal(t, "(a.name IS NOT NULL AND a.name = ?)", sql)
	assert.Equal(t, []any{"orders.xsd"}, args)
}

func TestRenderNumericComparison(t *testing.T) {
	sql, args := render(t, "/artifex[@size > 10]")
	assert.Contains(t, sql, "::numeric > ?")
	assert.Contains(t, sql, numericPattern)
	assert.Equal(t, []any{float64(10)}, args)
}

func TestRenderNotWrapsConjunction(t *testing.T) {
	sql, _ := render(t, "/artifex[not(@a and @b)]")
	assert.Equal(t,
		"NOT ((COALESCE(a.properties->>'a', '') <> '') AND (COALESCE(a.properties->>'b', '') <> ''))",
		sql)
}

func TestRenderTimestamp(t *testing.T) {
	sql, args := render(t, "/artifex[@createdTimestamp >= '2025-06-01T00:00:00Z']")
	assert.Equal(t, "a.created_at >= (?::timestamptz)", sql)
	assert.Equal(t, []any{"2025-06-01T00:00:00Z"}, args)
}

func TestRenderMatches(t *testing.T) {
	sql, args := render(t, "/artifex[matches(@description, '50%')]")
	assert.Equal(t, "COALESCE(a.description, '') ILIKE ?", sql)
	assert.Equal(t, []any{`%50\%%`}, args)

	sql, _ = render(t, "/artifex[matches('order')]")
	assert.Contains(t, sql, "artifact_content")
	assert.Contains(t, sql, "c.text ILIKE ?")
}

func TestRenderClassified(t *testing.T) {
	sql, args := render(t, "/artifex[classifiedByAllOf('u1', 'u2')]")
	assert.Equal(t, "a.normalized_classifiers @> ?", sql)
	require.Len(t, args, 1)

	sql, _ = render(t, "/artifex[classifiedByAnyOf('u1')]")
	assert.Equal(t, "a.normalized_classifiers && ?", sql)
}

func TestRenderPropertyNameQuoting(t *testing.T) {
	r := &sqlRenderer{}
	sql, err := r.render(&query.Exists{Property: "o'brien"})
	require.NoError(t, err)
	assert.Contains(t, sql, "a.properties->>'o''brien'")
}
