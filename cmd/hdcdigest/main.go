package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stugorf/hdc-digest/internal/app"
	"github.com/stugorf/hdc-digest/internal/config"
	"github.com/stugorf/hdc-digest/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfgPath string
	root := &cobra.Command{
		Use:           "hdcdigest",
		Short:         "Hyperdimensional computing research digest",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default $HDC_DIGEST_CONFIG)")

	loader := func(tune func(*config.Config)) (*app.Application, *slog.Logger, error) {
		path := cfgPath
		if path == "" {
			path = os.Getenv("HDC_DIGEST_CONFIG")
		}
		cfg := config.LoadFrom(path)
		if tune != nil {
			tune(&cfg)
		}
		logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			return nil, logger, err
		}
		return application, logger, nil
	}

	root.AddCommand(
		runCMD(loader),
		trendsCMD(loader),
		serveCMD(loader),
		queryCMD(loader),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type appLoader func(tune func(*config.Config)) (*app.Application, *slog.Logger, error)

// loadHistory loads the application for commands that read stored history.
// Without a database each invocation starts from an empty store, so those
// commands refuse to run instead of reporting nothing.
func loadHistory(load appLoader) (*app.Application, error) {
	application, _, err := load(nil)
	if err != nil {
		return nil, err
	}
	if !application.Persistent() {
		_ = application.Close()
		return nil, app.ErrNoHistory
	}
	return application, nil
}
