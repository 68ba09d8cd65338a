package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/recordsync/internal/store"
)

// ResolveResult lists references linked by a resolve pass and those still
// waiting for their destination.
type ResolveResult struct {
	Resolved  []store.PendingLink `json:"resolved"`
	Remaining []store.PendingLink `json:"remaining"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Link parked references whose destinations have arrived",
		Long: `Retry every parked reference in the local store.

A reference is parked when a record names an object that is not stored
yet. Once that object has been hydrated, resolve links it.

Example:
  recordsync resolve --model ./model --db ./local.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, cmd)
		},
	}

	addStoreFlags(cmd, opts)

	return cmd
}

func runResolve(opts *StoreOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	sess, err := openSession(opts, formatter.Logger())
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open session", err)
	}
	defer sess.Close()

	ctx := cmd.Context()
	resolved, err := sess.bridge.ResolvePending(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, "resolve failed", err)
	}
	remaining, err := sess.store.PendingLinks(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, "listing pending references failed", err)
	}

	result := ResolveResult{Resolved: resolved, Remaining: remaining}
	if result.Resolved == nil {
		result.Resolved = []store.PendingLink{}
	}
	if result.Remaining == nil {
		result.Remaining = []store.PendingLink{}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d reference(s) resolved, %d pending\n", len(result.Resolved), len(result.Remaining))
	for _, l := range result.Resolved {
		fmt.Fprintf(formatter.Writer, "  linked %s.%s -> %s\n", l.SourceID, l.Relationship, l.Reference.RecordID.RecordName)
	}
	for _, l := range result.Remaining {
		fmt.Fprintf(formatter.Writer, "  waiting %s.%s -> %s %s\n", l.SourceID, l.Relationship, l.DestEntity, l.Reference.RecordID.RecordName)
	}
	return nil
}
