package storedquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	sq := &StoredQuery{QueryName: "byOwner", QueryExpression: "/artifex[@owner = '${owner}']"}
	assert.NoError(t, sq.Validate())

	assert.Error(t, (&StoredQuery{QueryExpression: "/artifex"}).Validate())
	assert.Error(t, (&StoredQuery{QueryName: "x"}).Validate())
}

func TestExpand(t *testing.T) {
	sq := &StoredQuery{
		QueryName:       "byOwner",
		QueryExpression: "/artifex/xsd[@owner = '${owner}' and @tier = '${tier}']",
	}

	out, err := sq.Expand(map[string]string{"owner": "team-a", "tier": "gold"})
	require.NoError(t, err)
	assert.Equal(t, "/artifex/xsd[@owner = 'team-a' and @tier = 'gold']", out)
}

func TestExpandMissingParam(t *testing.T) {
	sq := &StoredQuery{QueryName: "q", QueryExpression: "/artifex[@owner = '${owner}']"}
	_, err := sq.Expand(nil)
	assert.Error(t, err)
}

func TestExpandEscapesQuotes(t *testing.T) {
	sq := &StoredQuery{QueryName: "q", QueryExpression: "/artifex[@name = '${n}']"}
	out, err := sq.Expand(map[string]string{"n": "o'brien"})
	require.NoError(t, err)
	assert.Equal(t, "/artifex[@name = 'o''brien']", out)
}

func TestExpandUnterminatedPlaceholder(t *testing.T) {
	sq := &StoredQuery{QueryName: "q", QueryExpression: "/artifex[@name = '${n']"}
	_, err := sq.Expand(map[string]string{"n": "x"})
	assert.Error(t, err)
}
