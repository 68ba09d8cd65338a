package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/recordsync/internal/record"
)

// HydrateResult is the outcome of applying one record document.
type HydrateResult struct {
	RecordType string   `json:"record_type"`
	RecordName string   `json:"record_name"`
	Created    bool     `json:"created"`
	Changed    bool     `json:"changed"`
	Linked     []string `json:"linked"`
	Pending    []string `json:"pending"`
}

// NewHydrateCommand creates the hydrate command.
func NewHydrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hydrate <record-file>",
		Short: "Apply a record document to the local store",
		Long: `Apply a YAML or JSON record document to the local store.

The local object named by the record is created when absent. Attribute
values are written, system fields archived, and each reference either
linked to a stored object or parked until its destination arrives.

Example:
  recordsync hydrate ./note.yaml --model ./model --db ./local.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHydrate(opts, args[0], cmd)
		},
	}

	addStoreFlags(cmd, opts)

	return cmd
}

func runHydrate(opts *StoreOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	rec, err := record.LoadDocument(path)
	if err != nil {
		_ = formatter.Error(ErrCodeBadDocument, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read record document", err)
	}
	formatter.VerboseLog("Read %s record %s", rec.Type(), rec.ID())

	sess, err := openSession(opts, formatter.Logger())
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open session", err)
	}
	defer sess.Close()

	res, err := sess.bridge.Apply(cmd.Context(), rec)
	if err != nil {
		return formatter.Fail(ExitFailure, "hydration failed", err)
	}

	result := HydrateResult{
		RecordType: rec.Type(),
		RecordName: rec.ID().RecordName,
		Created:    res.Created,
		Changed:    res.Changed,
		Linked:     nonNil(res.Linked),
		Pending:    nonNil(res.Pending),
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	state := "updated"
	switch {
	case result.Created:
		state = "created"
	case !result.Changed:
		state = "unchanged"
	}
	fmt.Fprintf(formatter.Writer, "✓ %s %s %s\n", result.RecordType, result.RecordName, state)
	if len(result.Linked) > 0 {
		fmt.Fprintf(formatter.Writer, "  linked: %s\n", strings.Join(result.Linked, ", "))
	}
	if len(result.Pending) > 0 {
		fmt.Fprintf(formatter.Writer, "  pending: %s\n", strings.Join(result.Pending, ", "))
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
