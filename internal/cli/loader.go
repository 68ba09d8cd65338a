package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/recordsync/internal/bridge"
	"github.com/roach88/recordsync/internal/compiler"
	"github.com/roach88/recordsync/internal/local"
	"github.com/roach88/recordsync/internal/mapping"
	"github.com/roach88/recordsync/internal/schema"
	"github.com/roach88/recordsync/internal/store"
)

// StoreOptions holds the flags of commands that work on a local store.
type StoreOptions struct {
	*RootOptions
	ModelDir string
	Database string
	Zone     string
	Owner    string
}

// addStoreFlags registers --model, --db, --zone and --owner on cmd.
func addStoreFlags(cmd *cobra.Command, opts *StoreOptions) {
	cmd.Flags().StringVar(&opts.ModelDir, "model", "", "directory of CUE model files (required)")
	_ = cmd.MarkFlagRequired("model")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Zone, "zone", mapping.DefaultZoneName, "record zone name")
	cmd.Flags().StringVar(&opts.Owner, "owner", mapping.DefaultOwnerName, "record zone owner name")
}

// session is an opened model, store and bridge.
type session struct {
	model  *schema.Model
	store  *store.Store
	bridge *bridge.Bridge
}

// openSession loads the model, opens (creating if needed) the database
// and wires a bridge over both. Failures are ExitErrors: an invalid model
// or zone is ExitFailure, anything else ExitCommandError.
func openSession(opts *StoreOptions, logger *slog.Logger) (*session, error) {
	model, err := compiler.LoadModel(opts.ModelDir)
	if err != nil {
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			return nil, WrapExitError(ExitCommandError, "failed to load model", err)
		}
		return nil, WrapExitError(ExitFailure, "failed to load model", err)
	}
	logger.Debug("model loaded", "dir", opts.ModelDir, "entities", model.Names())

	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	cfg := mapping.Config{ZoneName: opts.Zone, OwnerName: opts.Owner}
	b, err := bridge.New(st, local.NewRegistry(model), cfg, bridge.WithLogger(logger))
	if err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitFailure, "invalid zone", err)
	}
	logger.Debug("database ready", "path", opts.Database, "zone", opts.Zone, "owner", opts.Owner)

	return &session{model: model, store: st, bridge: b}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}
