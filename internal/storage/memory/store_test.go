package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifexhq/artifex/domain/artifact"
	"github.com/artifexhq/artifex/domain/query"
	"github.com/artifexhq/artifex/domain/repository"
)

func seed(t *testing.T, s *Store, arts ...*artifact.Artifact) {
	t.Helper()
	err := s.InTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		for _, a := range arts {
			if err := tx.PersistArtifact(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	s := NewStore()
	boom := errors.New("boom")

	err := s.InTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		if err := tx.PersistArtifact(ctx, &artifact.Artifact{UUID: "u1", Type: artifact.TypeDocument}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.InTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.GetArtifact(ctx, "u1")
		return err
	})
	assert.Error(t, err)
}

func TestTransactionCommits(t *testing.T) {
	s := NewStore()
	seed(t, s, &artifact.Artifact{UUID: "u1", Type: artifact.TypeDocument, Name: "doc"})

	err := s.InTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		a, err := tx.GetArtifact(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "doc", a.Name)
		return nil
	})
	require.NoError(t, err)
}

func TestGetArtifactExcludesTrashed(t *testing.T) {
	s := NewStore()
	seed(t, s, &artifact.Artifact{UUID: "u1", Type: artifact.TypeDocument, Trashed: true})

	err := s.InTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.GetArtifact(ctx, "u1")
		assert.Error(t, err)

		taken, err := tx.ArtifactExists(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, taken)
		return nil
	})
	require.NoError(t, err)
}

func runQuery(t *testing.T, s *Store, expr string, orderBy string, asc bool, offset, limit int) ([]*artifact.Artifact, int64) {
	t.Helper()
	q, err := query.New(expr, orderBy, asc)
	require.NoError(t, err)
	req, err := q.Resolve(offset, limit, nil)
	require.NoError(t, err)

	var page []*artifact.Artifact
	var total int64
	err = s.InTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		set, err := tx.ExecuteQuery(ctx, req)
		if err != nil {
			return err
		}
		page, total, err = query.Collect(set)
		return err
	})
	require.NoError(t, err)
	return page, total
}

func queryFixture(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	a1 := &artifact.Artifact{UUID: "a1", Type: artifact.TypeDocument, Name: "one"}
	a1.SetProperty("size", "10")
	a2 := &artifact.Artifact{UUID: "a2", Type: artifact.TypeDocument, Name: "two"}
	a2.SetProperty("size", "9")
	a3 := &artifact.Artifact{UUID: "a3", Type: artifact.TypeXsdDocument, Name: "three"}
	seed(t, s, a1, a2, a3)
	return s
}

func TestQuerySelectorFiltering(t *testing.T) {
	s := queryFixture(t)

	_, total := runQuery(t, s, "/artifex", "", true, 0, 0)
	assert.EqualValues(t, 3, total)

	_, total = runQuery(t, s, "/artifex/core", "", true, 0, 0)
	assert.EqualValues(t, 2, total)

	page, total := runQuery(t, s, "//XsdDocument", "", true, 0, 0)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "a3", page[0].UUID)
}

func TestQueryComparisonOperators(t *testing.T) {
	s := queryFixture(t)

	page, _ := runQuery(t, s, "/artifex[@name = 'two']", "", true, 0, 0)
	require.Len(t, page, 1)
	assert.Equal(t, "a2", page[0].UUID)

	// Numeric literals compare numerically: 9 < 10.
	page, _ = runQuery(t, s, "/artifex[@size > 9]", "", true, 0, 0)
	require.Len(t, page, 1)
	assert.Equal(t, "a1", page[0].UUID)

	page, _ = runQuery(t, s, "/artifex[@size >= 9]", "", true, 0, 0)
	assert.Len(t, page, 2)

	page, _ = runQuery(t, s, "/artifex[@name != 'two']", "", true, 0, 0)
	assert.Len(t, page, 2)

	// Missing property never matches a comparison.
	page, _ = runQuery(t, s, "/artifex[@size = 'x']", "", true, 0, 0)
	assert.Empty(t, page)
}

func TestQueryOrderingAndPaging(t *testing.T) {
	s := queryFixture(t)

	page, total := runQuery(t, s, "/artifex", "name", true, 0, 2)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "one", page[0].Name)
	assert.Equal(t, "three", page[1].Name)

	page, _ = runQuery(t, s, "/artifex", "name", false, 0, 1)
	require.Len(t, page, 1)
	assert.Equal(t, "two", page[0].Name)

	page, total = runQuery(t, s, "/artifex", "name", true, 2, 10)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "two", page[0].Name)

	page, _ = runQuery(t, s, "/artifex", "name", true, 99, 10)
	assert.Empty(t, page)
}

func TestQueryMatchesOverContent(t *testing.T) {
	s := queryFixture(t)
	err := s.InTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.SetContent(ctx, "a1", []byte("The Quick Brown Fox"))
	})
	require.NoError(t, err)

	page, _ := runQuery(t, s, "/artifex[matches('quick brown')]", "", true, 0, 0)
	require.Len(t, page, 1)
	assert.Equal(t, "a1", page[0].UUID)

	page, _ = runQuery(t, s, "/artifex[matches(@name, 'TWO')]", "", true, 0, 0)
	require.Len(t, page, 1)
	assert.Equal(t, "a2", page[0].UUID)
}

func TestQueryClassifiers(t *testing.T) {
	s := NewStore()
	a := &artifact.Artifact{
		UUID: "c1", Type: artifact.TypeDocument,
		Classifiers: []string{"http://x#Germany"},
		Normalized:  []string{"http://x#Germany", "http://x#Europe", "http://x#World"},
	}
	seed(t, s, a)

	page, _ := runQuery(t, s, "/artifex[classifiedByAnyOf('http://x#Europe', 'http://x#Mars')]", "", true, 0, 0)
	assert.Len(t, page, 1)

	page, _ = runQuery(t, s, "/artifex[classifiedByAllOf('http://x#Europe', 'http://x#Mars')]", "", true, 0, 0)
	assert.Empty(t, page)

	page, _ = runQuery(t, s, "/artifex[classifiedByAllOf('http://x#Europe', 'http://x#World')]", "", true, 0, 0)
	assert.Len(t, page, 1)
}
