package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifexhq/artifex/domain/artifact"
)

func TestSetGenericReplacesAllTargets(t *testing.T) {
	a := &artifact.Artifact{UUID: "u1"}
	require.NoError(t, SetGeneric(a, "documents", []string{"u2", "u3"}))
	require.NoError(t, SetGeneric(a, "documents", []string{"u4"}))

	rel, ok := a.Relationship("documents")
	require.True(t, ok)
	assert.Equal(t, artifact.KindGeneric, rel.Kind)
	assert.Equal(t, []string{"u4"}, rel.Targets)
}

func TestSetGenericEmptyRemovesNode(t *testing.T) {
	a := &artifact.Artifact{UUID: "u1"}
	require.NoError(t, SetGeneric(a, "documents", []string{"u2"}))
	require.NoError(t, SetGeneric(a, "documents", nil))

	_, ok := a.Relationship("documents")
	assert.False(t, ok)
}

func TestSetGenericRejectsSelfAndDuplicates(t *testing.T) {
	a := &artifact.Artifact{UUID: "u1"}
	assert.Error(t, SetGeneric(a, "documents", []string{"u1"}))
	assert.Error(t, SetGeneric(a, "documents", []string{"u2", "u2"}))
	assert.Error(t, SetGeneric(a, "", []string{"u2"}))
}

func TestSetGenericCannotTouchModeled(t *testing.T) {
	a := &artifact.Artifact{UUID: "u1"}
	require.NoError(t, SetModeled(a, "part", 1, -1, []string{"u2"}))

	err := SetGeneric(a, "part", []string{"u3"})
	assert.Error(t, err)
}

func TestSetModeledCardinality(t *testing.T) {
	a := &artifact.Artifact{UUID: "u1"}
	assert.Error(t, SetModeled(a, "element", 0, 1, []string{"u2", "u3"}))

	require.NoError(t, SetModeled(a, "element", 0, 1, []string{"u2"}))
	rel, ok := a.Relationship("element")
	require.True(t, ok)
	assert.Equal(t, artifact.KindModeled, rel.Kind)

	// A required relationship with no targets is removed outright.
	require.NoError(t, SetModeled(a, "element", 1, -1, nil))
	_, ok = a.Relationship("element")
	assert.False(t, ok)
}

func TestCheckDeletable(t *testing.T) {
	group := map[string]bool{"a": true, "d1": true}

	// Edge from outside the group blocks.
	err := CheckDeletable(group, []Reference{
		{SourceUUID: "b", Name: "uses", Kind: artifact.KindGeneric, TargetUUID: "a"},
	})
	assert.Error(t, err)

	// In-group edges and derived back-references never block.
	err = CheckDeletable(group, []Reference{
		{SourceUUID: "d1", Name: "includes", Kind: artifact.KindModeled, TargetUUID: "a"},
		{SourceUUID: "x", Name: "relatedDocument", Kind: artifact.KindDerived, TargetUUID: "a"},
	})
	assert.NoError(t, err)
}

func TestDetachAll(t *testing.T) {
	owner := &artifact.Artifact{UUID: "b"}
	require.NoError(t, SetGeneric(owner, "uses", []string{"a", "c"}))
	require.NoError(t, SetGeneric(owner, "audits", []string{"a"}))

	removed := map[string]bool{"a": true}
	DetachAll(map[string]*artifact.Artifact{"b": owner}, []Reference{
		{SourceUUID: "b", Name: "uses", TargetUUID: "a"},
		{SourceUUID: "b", Name: "audits", TargetUUID: "a"},
	}, removed)

	rel, ok := owner.Relationship("uses")
	require.True(t, ok)
	assert.Equal(t, []string{"c"}, rel.Targets)

	_, ok = owner.Relationship("audits")
	assert.False(t, ok)
}

func TestReverseSynthesizesDerivedEntries(t *testing.T) {
	refs := []Reference{
		{SourceUUID: "b", SourceType: artifact.TypeDocument, SourceName: "doc-b", Name: "uses", Kind: artifact.KindGeneric},
	}
	children := []*artifact.Artifact{
		{UUID: "d1", Type: artifact.TypeElementDeclaration, Name: "order"},
	}

	entries := Reverse(refs, children)
	require.Len(t, entries, 2)
	assert.Equal(t, "uses", entries[0].Name)
	assert.Equal(t, "relatedDocument", entries[1].Name)
	assert.Equal(t, artifact.KindDerived, entries[1].Kind)
	assert.Equal(t, "d1", entries[1].SourceUUID)
}
