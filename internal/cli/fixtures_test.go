package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const notesModel = `package notes

entity: Folder: {
	attributes: {
		name: "string"
	}
	relationships: {
		notes: {
			destination: "Note"
			to_many:     true
			inverse:     "folder"
			delete_rule: "cascade"
		}
	}
}

entity: Note: {
	attributes: {
		title: "string"
		rank:  {type: "int", optional: true}
	}
	relationships: {
		folder: {
			destination: "Folder"
			inverse:     "notes"
		}
	}
}
`

const folderDoc = `record_type: Folder
record_name: f1
zone_name: RecordSyncZone
owner_name: __defaultOwner__
fields:
  name: Inbox
`

const noteDoc = `record_type: Note
record_name: n1
zone_name: RecordSyncZone
owner_name: __defaultOwner__
system:
  change_tag: "1"
fields:
  title: Hello
  folder:
    $ref:
      record_name: f1
      zone_name: RecordSyncZone
      owner_name: __defaultOwner__
      action: none
`

// workspace is a model directory, a database path and a directory for
// record documents, all under t.TempDir().
type workspace struct {
	modelDir string
	db       string
	docs     string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	root := t.TempDir()
	ws := &workspace{
		modelDir: filepath.Join(root, "model"),
		db:       filepath.Join(root, "local.db"),
		docs:     filepath.Join(root, "docs"),
	}
	require.NoError(t, os.MkdirAll(ws.modelDir, 0755))
	require.NoError(t, os.MkdirAll(ws.docs, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(ws.modelDir, "notes.cue"), []byte(notesModel), 0644))
	return ws
}

// doc writes a record document and returns its path.
func (ws *workspace) doc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(ws.docs, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// storeArgs are the --model and --db flags for ws.
func (ws *workspace) storeArgs(args ...string) []string {
	return append(args, "--model", ws.modelDir, "--db", ws.db)
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// hydrate applies a document through a fresh hydrate command.
func (ws *workspace) hydrate(t *testing.T, name, content string) string {
	t.Helper()
	out, _, err := execute(NewHydrateCommand(&RootOptions{Format: "text"}), ws.storeArgs(ws.doc(t, name, content))...)
	require.NoError(t, err)
	return out
}
