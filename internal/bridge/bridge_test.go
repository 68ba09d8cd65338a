package bridge

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordsync/internal/ir"
	"github.com/roach88/recordsync/internal/local"
	"github.com/roach88/recordsync/internal/mapping"
	"github.com/roach88/recordsync/internal/record"
	"github.com/roach88/recordsync/internal/schema"
	"github.com/roach88/recordsync/internal/store"
	"github.com/roach88/recordsync/internal/testutil"
)

func testModel() *schema.Model {
	return schema.NewModel(
		schema.Entity{
			Name:       "Folder",
			Attributes: []schema.Attribute{{Name: "name", Type: schema.TypeString}},
			Relationships: []schema.Relationship{
				{Name: "notes", Destination: "Note", ToMany: true, Inverse: "folder", DeleteRule: schema.DeleteRuleCascade},
			},
		},
		schema.Entity{
			Name: "Note",
			Attributes: []schema.Attribute{
				{Name: "title", Type: schema.TypeString},
				{Name: "rank", Type: schema.TypeInt, Optional: true},
			},
			Relationships: []schema.Relationship{
				{Name: "folder", Destination: "Folder", Inverse: "notes", DeleteRule: schema.DeleteRuleNullify},
				{Name: "author", Destination: "Person", DeleteRule: schema.DeleteRuleNullify},
			},
		},
		schema.Entity{
			Name:       "Person",
			Attributes: []schema.Attribute{{Name: "name", Type: schema.TypeString}},
		},
	)
}

type fixture struct {
	store  *store.Store
	bridge *Bridge
	clock  *testutil.DeterministicClock
	logs   *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "bridge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewDeterministicClock()
	logs := &bytes.Buffer{}
	b, err := New(st, local.NewRegistry(testModel()), mapping.DefaultConfig(),
		WithClock(clock),
		WithLogger(slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	)
	require.NoError(t, err)
	return &fixture{store: st, bridge: b, clock: clock, logs: logs}
}

func recordID(name string) ir.RecordID {
	return ir.RecordID{RecordName: name, Zone: mapping.DefaultConfig().ZoneID()}
}

func noteRecord(name, title string) *record.Record {
	rec := record.WithSystemFields("Note", recordID(name), record.SystemFields{
		ChangeTag:  "7a",
		CreatedAt:  1700000000000,
		ModifiedAt: 1700000001000,
		CreatedBy:  "_creator",
	})
	rec.Set("title", ir.IRString(title))
	return rec
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(nil, nil, mapping.Config{ZoneName: "Notes"})
	require.Error(t, err)
	assert.True(t, mapping.HasCode(err, mapping.ErrCodeInvalidConfig))
}

func TestApplyCreatesObject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.bridge.Apply(ctx, noteRecord("n1", "Hello"))
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.True(t, res.Changed)
	assert.Empty(t, res.Linked)
	assert.Empty(t, res.Pending)
	assert.Equal(t, "Note", res.Object.Entity)
	assert.True(t, testutil.Epoch.Equal(res.Object.ModifiedAt))

	stored, err := f.store.LookupObject(ctx, "Note", "n1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("Hello"), stored.Get("title"))
	assert.NotEmpty(t, stored.SystemFields)

	assert.Contains(t, f.logs.String(), `"msg":"record applied"`)
}

func TestApplyResolvesReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := record.New("Folder", recordID("f1"))
	folder.Set("name", ir.IRString("Inbox"))
	_, err := f.bridge.Apply(ctx, folder)
	require.NoError(t, err)

	note := noteRecord("n1", "Hello")
	note.Set("folder", ir.NewReference(recordID("f1"), ir.DeleteActionDeleteSelf))
	note.Set("author", ir.NewReference(recordID("p1"), ir.DeleteActionDeleteSelf))

	res, err := f.bridge.Apply(ctx, note)
	require.NoError(t, err)
	assert.Equal(t, []string{"folder"}, res.Linked)
	assert.Equal(t, []string{"author"}, res.Pending)

	person := record.New("Person", recordID("p1"))
	person.Set("name", ir.IRString("Ada"))
	_, err = f.bridge.Apply(ctx, person)
	require.NoError(t, err)

	resolved, err := f.bridge.ResolvePending(ctx)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "author", resolved[0].Relationship)

	stored, err := f.store.LoadObject(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"folder": "f1", "author": "p1"}, stored.ToOne)
}

func TestApplyTwiceIsUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.bridge.Apply(ctx, noteRecord("n1", "Hello"))
	require.NoError(t, err)

	second, err := f.bridge.Apply(ctx, noteRecord("n1", "Hello"))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.False(t, second.Changed)
	assert.True(t, first.Object.ModifiedAt.Equal(second.Object.ModifiedAt))

	third, err := f.bridge.Apply(ctx, noteRecord("n1", "Hello again"))
	require.NoError(t, err)
	assert.True(t, third.Changed)
	assert.True(t, third.Object.ModifiedAt.After(first.Object.ModifiedAt))
}

func TestApplyThenProjectPreservesSystemFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := noteRecord("n1", "Hello")
	in.Set("rank", ir.IRInt(3))
	_, err := f.bridge.Apply(ctx, in)
	require.NoError(t, err)

	out, err := f.bridge.Project(ctx, "Note", "n1")
	require.NoError(t, err)

	assert.Equal(t, in.Type(), out.Type())
	assert.Equal(t, in.ID(), out.ID())
	assert.Equal(t, in.System(), out.System())
	assert.Equal(t, in.Fields(), out.Fields())
}

func TestApplyRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	otherZone := record.New("Note", ir.RecordID{RecordName: "n1", Zone: ir.ZoneID{ZoneName: "Other", OwnerName: "me"}})
	_, err := f.bridge.Apply(ctx, otherZone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs to zone Other/me")

	_, err = f.bridge.Apply(ctx, record.New("Tag", recordID("t1")))
	require.Error(t, err)
	assert.True(t, mapping.HasCode(err, mapping.ErrCodeMissingEntityName))

	folder := record.New("Folder", recordID("x1"))
	folder.Set("name", ir.IRString("Inbox"))
	_, err = f.bridge.Apply(ctx, folder)
	require.NoError(t, err)
	_, err = f.bridge.Apply(ctx, noteRecord("x1", "Hello"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local object is a Folder")

	bad := record.New("Note", recordID("n2"))
	bad.Set("title", ir.IRInt(5))
	_, err = f.bridge.Apply(ctx, bad)
	require.Error(t, err)
	assert.True(t, mapping.HasCode(err, mapping.ErrCodeTypeMismatch))
	_, err = f.store.LoadObject(ctx, "n2")
	assert.ErrorIs(t, err, store.ErrNotFound, "nothing is saved when hydration fails")
}

func TestApplyRequiresAttributes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	untitled := record.New("Note", recordID("n1"))
	untitled.Set("rank", ir.IRInt(2))
	_, err := f.bridge.Apply(ctx, untitled)
	require.Error(t, err)
	assert.True(t, mapping.HasCode(err, mapping.ErrCodeMissingAttribute))
	_, err = f.store.LoadObject(ctx, "n1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.bridge.Apply(ctx, noteRecord("n1", "Hello"))
	require.NoError(t, err)

	rankOnly := record.New("Note", recordID("n1"))
	rankOnly.Set("rank", ir.IRInt(4))
	_, err = f.bridge.Apply(ctx, rankOnly)
	require.NoError(t, err, "absent keys leave the stored title in place")

	stored, err := f.store.LoadObject(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("Hello"), stored.Get("title"))
	assert.Equal(t, ir.IRInt(4), stored.Get("rank"))
}

func TestProjectGolden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note := local.NewObjectWithID("Note", "n1", f.clock)
	note.Set("title", ir.IRString("Hello"))
	note.Link("folder", "f1")
	require.NoError(t, f.store.SaveObject(ctx, note))

	rec, err := f.bridge.Project(ctx, "Note", "n1")
	require.NoError(t, err)

	data, err := rec.MarshalJSON()
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "project_note", data)
}

func TestProjectMissingObject(t *testing.T) {
	f := newFixture(t)

	_, err := f.bridge.Project(context.Background(), "Note", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProjectAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"n2", "n1"} {
		_, err := f.bridge.Apply(ctx, noteRecord(id, "Note "+id))
		require.NoError(t, err)
	}

	records, err := f.bridge.ProjectAll(ctx, "Note")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "n1", records[0].ID().RecordName)
	assert.Equal(t, ir.IRString("Note n2"), records[1].Get("title"))
}
