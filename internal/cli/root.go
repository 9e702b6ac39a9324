package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-sync/internal/config"
	"github.com/vovakirdan/wirechat-sync/internal/log"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	// cfg is the configuration resolved by the running command.
	cfg config.Config
}

// NewRootCommand creates the root command of the server binary.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "wirechat",
		Short:         "WireChat sync server",
		Long:          "Real-time chat server that keeps connected clients in sync with the room log.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log level (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewEmotesCommand(opts))
	cmd.AddCommand(NewAccountsCommand(opts))

	return cmd
}

// load resolves configuration and builds the logger for a command.
func (o *RootOptions) load() (config.Config, *zerolog.Logger, error) {
	bootstrap := log.New(o.levelOr("info"))
	cfg, path, err := config.Load(bootstrap, o.ConfigPath)
	if err != nil {
		return cfg, bootstrap, err
	}

	logger := log.New(o.levelOr(cfg.LogLevel))
	logger.Debug().Str("config", path).Msg("configuration loaded")
	return cfg, logger, nil
}

func (o *RootOptions) levelOr(fallback string) string {
	if o.LogLevel != "" {
		return o.LogLevel
	}
	return fallback
}
