package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-irc/internal/app"
	"github.com/vovakirdan/wirechat-irc/internal/config"
	ilog "github.com/vovakirdan/wirechat-irc/internal/log"
)

type options struct {
	configPath string
	overrides  config.Config
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "ircd",
		Short:        "Multi-user IRC chat server",
		Long:         `A small IRC server: nicknames, single-channel membership, channel and private messages, with an optional admin HTTP endpoint and WebSocket gateway.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml")
	flags.StringVar(&opts.overrides.Addr, "addr", "", "IRC listen address")
	flags.StringVar(&opts.overrides.HTTPAddr, "http-addr", "", "admin HTTP listen address (empty disables)")
	flags.StringVar(&opts.overrides.ServerName, "server-name", "", "server name used as message prefix")
	flags.StringVar(&opts.overrides.LogLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&opts.overrides.DatabasePath, "db", "", "SQLite path for the session audit log")
	flags.IntVar(&opts.overrides.SendQueue, "send-queue", 0, "outbound lines buffered per client")
	flags.DurationVar(&opts.overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")

	return cmd
}

func run(ctx context.Context, opts options) error {
	bootLevel := opts.overrides.LogLevel
	if bootLevel == "" {
		bootLevel = "info"
	}
	logger := ilog.New(bootLevel)

	cfg, path, err := config.Load(logger, opts.configPath)
	if err != nil {
		return err
	}
	cfg.UpdateFrom(opts.overrides)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger = ilog.New(cfg.LogLevel)
	logger.Info().
		Str("config", path).
		Str("addr", cfg.Addr).
		Str("server_name", cfg.ServerName).
		Msg("starting ircd")

	application, err := app.New(&cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
