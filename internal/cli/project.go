package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/recordsync/internal/record"
	"github.com/roach88/recordsync/internal/store"
)

// ProjectOptions holds flags for the project command.
type ProjectOptions struct {
	StoreOptions
	All bool
}

// NewProjectCommand creates the project command.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProjectOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "project <entity> [local-id]",
		Short: "Print the record a local object projects to",
		Long: `Project a stored local object onto a remote record and print it.

The record carries the object's attributes and a reference for every set
to-one relationship. With --all every object of the entity is projected,
ordered by local identifier.

Examples:
  recordsync project Note 018f2a7c-0000-7000-8000-000000000001 --model ./model --db ./local.db
  recordsync project Note --all --model ./model --db ./local.db --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProject(opts, args, cmd)
		},
	}

	addStoreFlags(cmd, &opts.StoreOptions)
	cmd.Flags().BoolVar(&opts.All, "all", false, "project every object of the entity")

	return cmd
}

func runProject(opts *ProjectOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	entity := args[0]
	switch {
	case opts.All && len(args) == 2:
		return formatter.Fail(ExitCommandError, "invalid arguments", errors.New("--all takes no local id"))
	case !opts.All && len(args) == 1:
		return formatter.Fail(ExitCommandError, "invalid arguments", errors.New("local id is required without --all"))
	}

	sess, err := openSession(&opts.StoreOptions, formatter.Logger())
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open session", err)
	}
	defer sess.Close()

	ctx := cmd.Context()

	if opts.All {
		records, err := sess.bridge.ProjectAll(ctx, entity)
		if err != nil {
			return formatter.Fail(ExitFailure, "projection failed", err)
		}
		formatter.VerboseLog("Projected %d %s object(s)", len(records), entity)
		return outputRecords(formatter, records, true)
	}

	rec, err := sess.bridge.Project(ctx, entity, args[1])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return formatter.Fail(ExitFailure, fmt.Sprintf("no %s with local id %q", entity, args[1]), err)
		}
		return formatter.Fail(ExitFailure, "projection failed", err)
	}
	return outputRecords(formatter, []*record.Record{rec}, false)
}

// outputRecords prints records as canonical JSON documents, one per line
// in text mode. In JSON mode the payload is a list when asList is set and
// the single record otherwise.
func outputRecords(formatter *OutputFormatter, records []*record.Record, asList bool) error {
	if formatter.Format == "json" {
		if asList {
			return formatter.Success(records)
		}
		return formatter.Success(records[0])
	}

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to encode record", err)
		}
		fmt.Fprintln(formatter.Writer, string(data))
	}
	return nil
}
