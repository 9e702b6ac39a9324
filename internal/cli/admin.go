package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-sync/internal/app"
	"github.com/vovakirdan/wirechat-sync/internal/auth"
	"github.com/vovakirdan/wirechat-sync/internal/store"
	"github.com/vovakirdan/wirechat-sync/internal/store/sqlite"
)

// withStore opens the configured database for the duration of fn.
func withStore(rootOpts *RootOptions, fn func(st *sqlite.SQLiteStore) error) error {
	cfg, logger, err := rootOpts.load()
	if err != nil {
		return err
	}
	rootOpts.cfg = cfg

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close store")
		}
	}()

	return fn(st)
}

// NewEmotesCommand creates the emotes command group. Running servers pick
// up changes on their next catalog read.
func NewEmotesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emotes",
		Short: "Manage the emote catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List emote aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(rootOpts, func(st *sqlite.SQLiteStore) error {
				catalog, err := st.GetEmoteCatalog(contextOrBackground(cmd))
				if err != nil {
					return err
				}
				for _, alias := range slices.Sorted(maps.Keys(catalog)) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", alias, catalog[alias])
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <alias> <ref>",
		Short: "Add or replace an emote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, func(st *sqlite.SQLiteStore) error {
				return st.SetEmote(contextOrBackground(cmd), args[0], args[1])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <alias>",
		Short: "Remove an emote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, func(st *sqlite.SQLiteStore) error {
				err := st.DeleteEmote(contextOrBackground(cmd), args[0])
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("emote %q not found", args[0])
				}
				return err
			})
		},
	})

	return cmd
}

// NewAccountsCommand creates the accounts command group. Deactivating an
// account sends its live connections a reload on the next tick.
func NewAccountsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
	}

	setStatus := func(use, short string, status store.AccountStatus) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <username>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(rootOpts, func(st *sqlite.SQLiteStore) error {
					authService := auth.NewService(st, app.JWTConfig(&rootOpts.cfg))
					account, err := authService.SetAccountStatus(contextOrBackground(cmd), args[0], status)
					if err != nil {
						if errors.Is(err, store.ErrNotFound) {
							return fmt.Errorf("account %q not found", args[0])
						}
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", account.Username, account.Status)
					return nil
				})
			},
		}
	}

	cmd.AddCommand(setStatus("deactivate", "Deactivate an account", store.AccountStatusDeactivated))
	cmd.AddCommand(setStatus("activate", "Reactivate an account", store.AccountStatusActive))

	return cmd
}
