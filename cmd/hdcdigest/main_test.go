package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stugorf/hdc-digest/internal/app"
	"github.com/stugorf/hdc-digest/internal/config"
)

func TestLoadHistoryRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_DSN", "")

	loader := func(tune func(*config.Config)) (*app.Application, *slog.Logger, error) {
		cfg := config.LoadFrom("")
		cfg.Database.DSN = ""
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		application, err := app.New(context.Background(), cfg, logger)
		return application, logger, err
	}

	_, err := loadHistory(loader)
	if !errors.Is(err, app.ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}
}

func TestLoadHistoryPropagatesLoadError(t *testing.T) {
	boom := errors.New("bad config")
	loader := func(func(*config.Config)) (*app.Application, *slog.Logger, error) {
		return nil, nil, boom
	}

	if _, err := loadHistory(loader); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
}
