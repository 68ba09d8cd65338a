package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordsync/internal/ir"
)

const noteYAML = `
record_type: Note
record_name: abc123
zone_name: Notes
owner_name: __defaultOwner__
system:
  change_tag: 3f
  created_at: 1700000000000
  extra:
    zone_etag: e9
fields:
  title: Hello
  rank: 2
  pinned: true
  subtitle: null
  folder:
    $ref:
      record_name: folder-1
      zone_name: Notes
      owner_name: __defaultOwner__
      action: none
`

func TestParseDocumentYAML(t *testing.T) {
	r, err := ParseDocument([]byte(noteYAML))
	require.NoError(t, err)

	assert.Equal(t, "Note", r.Type())
	assert.Equal(t, testID("abc123"), r.ID())
	assert.Equal(t, ir.IRString("Hello"), r.Get("title"))
	assert.Equal(t, ir.IRInt(2), r.Get("rank"))
	assert.Equal(t, ir.IRBool(true), r.Get("pinned"))
	assert.False(t, r.Has("subtitle"), "null fields are absent")

	ref, ok := r.Reference("folder")
	require.True(t, ok)
	assert.Equal(t, ir.NewReference(testID("folder-1"), ir.DeleteActionNone), ref)

	assert.Equal(t, SystemFields{
		ChangeTag: "3f",
		CreatedAt: 1700000000000,
		Extra:     ir.IRObject{"zone_etag": ir.IRString("e9")},
	}, r.System())
}

func TestParseDocumentJSON(t *testing.T) {
	data := `{"record_type":"Note","record_name":"abc123","zone_name":"Notes",` +
		`"owner_name":"__defaultOwner__","fields":{"title":"Hello"}}`

	r, err := ParseDocument([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("Hello"), r.Get("title"))
	assert.True(t, r.System().IsZero())
}

func TestParseDocumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		message string
	}{
		{"empty", "", "empty record document"},
		{"unknown key", "record_type: Note\nrecord_name: a\ncolour: red\n", "failed to parse"},
		{"missing type", "record_name: a\n", "record_type is required"},
		{"missing name", "record_type: Note\n", "record_name is required"},
		{"float field", "record_type: Note\nrecord_name: a\nfields:\n  score: 1.5\n", "floats are not supported"},
		{"bad ref", "record_type: Note\nrecord_name: a\nfields:\n  folder:\n    $ref: x\n", "$ref must be an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.yaml")
	require.NoError(t, os.WriteFile(path, []byte(noteYAML), 0o644))

	r, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", r.ID().RecordName)

	_, err = LoadDocument(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRecordMarshalJSON(t *testing.T) {
	r := New("Note", testID("abc123"))
	r.Set("title", ir.IRString("Hello"))

	data, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t,
		`{"fields":{"title":"Hello"},"owner_name":"__defaultOwner__","record_name":"abc123","record_type":"Note","zone_name":"Notes"}`,
		string(data))

	r.SetSystem(SystemFields{ChangeTag: "3f"})
	data, err = r.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"system":{"change_tag":"3f"}`)
}

func TestRecordMarshalJSONParsesBack(t *testing.T) {
	r, err := ParseDocument([]byte(noteYAML))
	require.NoError(t, err)

	data, err := r.MarshalJSON()
	require.NoError(t, err)

	back, err := ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, r.Fields(), back.Fields())
	assert.Equal(t, r.System(), back.System())
	assert.Equal(t, r.ID(), back.ID())
}
