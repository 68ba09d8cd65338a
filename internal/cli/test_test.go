package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: folder_arrives
description: a folder record creates a folder
model: ../model
steps:
  - apply:
      record_type: Folder
      record_name: f1
      fields:
        name: Inbox
    expect:
      created: true
assertions:
  - type: object_count
    entity: Folder
    count: 1
`

const failingScenario = `name: folder_missing
description: expects a folder that never arrives
model: ../model
steps:
  - resolve: true
assertions:
  - type: object_count
    entity: Folder
    count: 1
`

// scenarioDir lays out model/ and scenarios/ under a temp dir and returns
// the scenarios directory.
func scenarioDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "model"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "model", "notes.cue"), []byte(notesModel), 0644))

	dir := filepath.Join(root, "scenarios")
	require.NoError(t, os.Mkdir(dir, 0755))
	for name, src := range scenarios {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
	}
	return dir
}

func TestTestCommandPasses(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"folder.yaml": passingScenario})

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ folder_arrives")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFails(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"folder.yaml":  passingScenario,
		"missing.yaml": failingScenario,
	})

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ folder_missing")
	assert.Contains(t, out, "Expected: 1 Folder object(s)")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandGolden(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"folder.yaml": passingScenario})
	golden := filepath.Join(dir, "golden", "folder.golden")

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ folder_arrives (golden updated)")

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"folder_arrives","trace":[{"changed":true,"created":true,"linked":[],"pending":[],"record":"f1","record_type":"Folder","seq":1,"step":"apply"}]}`+"\n", string(data))

	_, _, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0644))
	out, _, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandFilter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"folder.yaml":  passingScenario,
		"missing.yaml": failingScenario,
	})

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--filter", "fold*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")
	assert.NotContains(t, out, "folder_missing")
}

func TestTestCommandJSON(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"missing.yaml": failingScenario})

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "folder_missing", resp.Data.Scenarios[0].Name)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
	assert.Equal(t, ErrCodeScenarioFailed, resp.Error.Code)
}

func TestTestCommandBadScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"broken.yaml": "name: broken\n"})

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandEmptyDirectory(t *testing.T) {
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandMissingDirectory(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
