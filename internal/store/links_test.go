package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordsync/internal/mapping"
)

func TestResolveReferencesLinksPresentDestinations(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveObject(ctx, createTestObject("Folder", "f1")))

	note := createTestObject("Note", "n1")
	res, err := s.ResolveReferences(ctx, note, map[string]mapping.PendingReference{
		"folder": pendingTo("Folder", "f1"),
		"author": pendingTo("Person", "p1"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"folder"}, res.Linked)
	assert.Equal(t, []string{"author"}, res.Parked)
	assert.Equal(t, map[string]string{"folder": "f1"}, note.ToOne)

	stored, err := s.LoadObject(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"folder": "f1"}, stored.ToOne)

	pending, err := s.PendingLinks(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, PendingLink{
		SourceID:     "n1",
		Relationship: "author",
		DestEntity:   "Person",
		Reference:    pendingTo("Person", "p1").Reference,
	}, pending[0])
}

func TestResolveReferencesRequiresMatchingEntity(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveObject(ctx, createTestObject("Tag", "f1")))

	res, err := s.ResolveReferences(ctx, createTestObject("Note", "n1"), map[string]mapping.PendingReference{
		"folder": pendingTo("Folder", "f1"),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Linked)
	assert.Equal(t, []string{"folder"}, res.Parked)
}

func TestResolveReferencesSelfReference(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	folder := createTestObject("Folder", "f1")
	res, err := s.ResolveReferences(ctx, folder, map[string]mapping.PendingReference{
		"parent": pendingTo("Folder", "f1"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"parent"}, res.Linked)
	assert.Equal(t, "f1", folder.ToOne["parent"])
}

func TestResolveReferencesReplacesStaleLink(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveObject(ctx, createTestObject("Folder", "f1")))

	note := createTestObject("Note", "n1")
	note.Link("folder", "f1")
	require.NoError(t, s.SaveObject(ctx, note))

	// The record now points at a folder that has not arrived yet.
	res, err := s.ResolveReferences(ctx, note, map[string]mapping.PendingReference{
		"folder": pendingTo("Folder", "f2"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"folder"}, res.Parked)

	stored, err := s.LoadObject(ctx, "n1")
	require.NoError(t, err)
	assert.Empty(t, stored.ToOne)
}

func TestResolvePending(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.ResolveReferences(ctx, createTestObject("Note", "n2"), map[string]mapping.PendingReference{
		"folder": pendingTo("Folder", "f1"),
		"author": pendingTo("Person", "p1"),
	})
	require.NoError(t, err)
	_, err = s.ResolveReferences(ctx, createTestObject("Note", "n1"), map[string]mapping.PendingReference{
		"folder": pendingTo("Folder", "f1"),
	})
	require.NoError(t, err)

	resolved, err := s.ResolvePending(ctx)
	require.NoError(t, err)
	assert.Empty(t, resolved, "nothing has arrived yet")

	require.NoError(t, s.SaveObject(ctx, createTestObject("Folder", "f1")))

	resolved, err = s.ResolvePending(ctx)
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, "n1", resolved[0].SourceID)
	assert.Equal(t, "n2", resolved[1].SourceID)

	for _, id := range []string{"n1", "n2"} {
		note, err := s.LoadObject(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "f1", note.ToOne["folder"])
	}

	n, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the author is still missing")
}

func TestSaveObjectDropsSatisfiedPending(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	note := createTestObject("Note", "n1")
	_, err := s.ResolveReferences(ctx, note, map[string]mapping.PendingReference{
		"folder": pendingTo("Folder", "f1"),
	})
	require.NoError(t, err)

	note.Link("folder", "f9")
	require.NoError(t, s.SaveObject(ctx, note))

	n, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
