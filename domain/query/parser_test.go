package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifexhq/artifex/domain/artifact"
)

func mustType(s string) artifact.Type {
	t, err := artifact.ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParsePaths(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want Selector
	}{
		{"root wildcard", "/artifex", Selector{}},
		{"model", "/artifex/xsd", Selector{Model: "xsd"}},
		{"model and type", "/artifex/xsd/XsdDocument", Selector{Model: "xsd", Type: "XsdDocument"}},
		{"type shorthand resolves model", "//XsdDocument", Selector{Model: "xsd", Type: "XsdDocument"}},
		{"unknown type shorthand", "//Invoice", Selector{Type: "Invoice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, pred, n, err := parseExpression(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel)
			assert.Nil(t, pred)
			assert.Zero(t, n)
		})
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	for _, expr := range []string{
		"",
		"artifex",
		"/sramp",
		"/artifex[",
		"/artifex[@p",
		"/artifex[@p =]",
		"/artifex[@p = 'x' garbage]",
		"/artifex[unknownFn('x')]",
		"/artifex[matches(3)]",
		"/artifex[@p = 'unterminated]",
		"/artifex/a/b/c",
	} {
		_, _, _, err := parseExpression(expr)
		assert.Error(t, err, expr)
	}
}

func TestParsePredicates(t *testing.T) {
	_, pred, _, err := parseExpression("/artifex/xsd/XsdDocument[@targetNamespace = 'urn:orders']")
	require.NoError(t, err)
	cmp, ok := pred.(*Compare)
	require.True(t, ok)
	assert.Equal(t, "targetNamespace", cmp.Property)
	assert.Equal(t, OpEq, cmp.Op)
	assert.Equal(t, Literal{Kind: LitString, Str: "urn:orders"}, cmp.Value)
}

func TestParsePrecedenceAndBindsTighterThanOr(t *testing.T) {
	_, pred, _, err := parseExpression("/artifex[@a or @b and @c]")
	require.NoError(t, err)

	or, ok := pred.(*Or)
	require.True(t, ok)
	require.Len(t, or.Terms, 2)
	_, ok = or.Terms[0].(*Exists)
	assert.True(t, ok)
	and, ok := or.Terms[1].(*And)
	require.True(t, ok)
	assert.Len(t, and.Terms, 2)
}

func TestParseNotWrapsWholeConjunction(t *testing.T) {
	_, pred, _, err := parseExpression("/artifex[not(@a and @b)]")
	require.NoError(t, err)

	not, ok := pred.(*Not)
	require.True(t, ok)
	and, ok := not.Term.(*And)
	require.True(t, ok)
	assert.Len(t, and.Terms, 2)
}

func TestParseFunctions(t *testing.T) {
	_, pred, _, err := parseExpression(
		"/artifex[classifiedByAllOf('u1', 'u2') and matches(@description, 'order') and matches('invoice')]")
	require.NoError(t, err)

	and, ok := pred.(*And)
	require.True(t, ok)
	require.Len(t, and.Terms, 3)

	cls, ok := and.Terms[0].(*Classified)
	require.True(t, ok)
	assert.True(t, cls.All)
	assert.Len(t, cls.URIs, 2)

	m1, ok := and.Terms[1].(*Matches)
	require.True(t, ok)
	assert.Equal(t, "description", m1.Property)

	m2, ok := and.Terms[2].(*Matches)
	require.True(t, ok)
	assert.Empty(t, m2.Property)
}

func TestParamIndexingIsDepthFirst(t *testing.T) {
	_, pred, n, err := parseExpression("/artifex[(@a = ? or @b = ?) and @c = ?]")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	and := pred.(*And)
	or := and.Terms[0].(*Or)
	assert.Equal(t, 0, or.Terms[0].(*Compare).Value.Index)
	assert.Equal(t, 1, or.Terms[1].(*Compare).Value.Index)
	assert.Equal(t, 2, and.Terms[1].(*Compare).Value.Index)
}

func TestQueryBindAndResolve(t *testing.T) {
	q, err := New("/artifex[@name = ? and @createdTimestamp >= ?]", "name", true)
	require.NoError(t, err)
	require.Equal(t, 2, q.ParamCount())

	// Unbound parameters fail resolution.
	_, err = q.Resolve(0, 10, nil)
	assert.Error(t, err)

	require.NoError(t, q.SetString("orders.xsd"))
	require.NoError(t, q.SetDate(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))

	req, err := q.Resolve(5, 10, []string{"owner"})
	require.NoError(t, err)
	assert.Equal(t, 5, req.Offset)
	assert.Equal(t, "name", req.OrderBy)

	and := req.Predicate.(*And)
	assert.Equal(t, Literal{Kind: LitString, Str: "orders.xsd"}, and.Terms[0].(*Compare).Value)
	assert.Equal(t, "2025-06-01T00:00:00Z", and.Terms[1].(*Compare).Value.Str)

	// Over-binding is rejected.
	assert.Error(t, q.SetString("extra"))
}

func TestSelectorMatches(t *testing.T) {
	assert.True(t, Selector{}.Matches(mustType("xsd/XsdDocument")))
	assert.True(t, Selector{Model: "xsd"}.Matches(mustType("xsd/XsdDocument")))
	assert.False(t, Selector{Model: "wsdl"}.Matches(mustType("xsd/XsdDocument")))
	assert.True(t, Selector{Type: "XsdDocument"}.Matches(mustType("xsd/XsdDocument")))
	assert.False(t, Selector{Type: "WsdlDocument"}.Matches(mustType("xsd/XsdDocument")))
}

func TestSliceSetIteration(t *testing.T) {
	set := NewSliceSet(nil, 0)
	assert.False(t, set.Next())
	assert.NoError(t, set.Close())
}
