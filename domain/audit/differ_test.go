package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifexhq/artifex/domain/artifact"
)

func TestCreationEntry(t *testing.T) {
	a := &artifact.Artifact{
		UUID:        "u1",
		Type:        artifact.TypeXsdDocument,
		Name:        "orders.xsd",
		Description: "orders schema",
		Classifiers: []string{"http://example.org/regions#EU"},
		Document:    &artifact.DocumentFacet{ContentType: "application/xml", ContentSize: 42, ContentHash: "ab"},
	}
	a.SetProperty("owner", "team-a")

	e := CreationEntry(a, "alice", time.Now())
	require.Equal(t, TypeArtifactAdd, e.Type)
	assert.Equal(t, "alice", e.Who)

	added, ok := e.Item(ItemPropertyAdded)
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"name":        "orders.xsd",
		"description": "orders schema",
		"owner":       "team-a",
		"contentType": "application/xml",
		"contentSize": "42",
		"contentHash": "ab",
	}, added.Properties)

	cls, ok := e.Item(ItemClassifiersAdded)
	require.True(t, ok)
	assert.Contains(t, cls.Properties, "http://example.org/regions#EU")
}

func TestDiffEntry(t *testing.T) {
	before := &artifact.Artifact{
		UUID:        "u1",
		Name:        "orders.xsd",
		Classifiers: []string{"c1", "c2"},
	}
	before.SetProperty("owner", "team-a")
	before.SetProperty("tier", "gold")

	after := before.Clone()
	after.Name = "orders-v2.xsd"
	after.SetProperty("owner", "team-b")
	after.RemoveProperty("tier")
	after.SetProperty("reviewed", "yes")
	after.Classifiers = []string{"c2", "c3"}

	e := DiffEntry(before, after, "bob", time.Now())
	require.NotNil(t, e)
	assert.Equal(t, TypeArtifactUpdate, e.Type)

	added, ok := e.Item(ItemPropertyAdded)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"reviewed": "yes"}, added.Properties)

	changed, ok := e.Item(ItemPropertyChanged)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"name": "orders-v2.xsd", "owner": "team-b"}, changed.Properties)

	removed, ok := e.Item(ItemPropertyRemoved)
	require.True(t, ok)
	assert.Contains(t, removed.Properties, "tier")

	clsAdded, ok := e.Item(ItemClassifiersAdded)
	require.True(t, ok)
	assert.Contains(t, clsAdded.Properties, "c3")

	clsRemoved, ok := e.Item(ItemClassifiersRemoved)
	require.True(t, ok)
	assert.Contains(t, clsRemoved.Properties, "c1")
}

func TestDiffEntryNoChanges(t *testing.T) {
	a := &artifact.Artifact{UUID: "u1", Name: "same"}
	assert.Nil(t, DiffEntry(a, a.Clone(), "bob", time.Now()))
}

func TestDiffEntryContentReplacement(t *testing.T) {
	before := &artifact.Artifact{
		UUID:     "u1",
		Name:     "orders.xsd",
		Document: &artifact.DocumentFacet{ContentType: "application/xml", ContentSize: 10, ContentHash: "aa"},
	}
	after := before.Clone()
	after.Document.ContentSize = 20
	after.Document.ContentHash = "bb"

	e := DiffEntry(before, after, "bob", time.Now())
	require.NotNil(t, e)
	changed, ok := e.Item(ItemPropertyChanged)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"contentSize": "20", "contentHash": "bb"}, changed.Properties)
}
