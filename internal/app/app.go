// Package app wires configuration, logging, the store and the planner
// service behind the nexttask command line.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/nhle/nexttask/internal/model"
	"github.com/nhle/nexttask/internal/planner"
	"github.com/nhle/nexttask/internal/store"
)

// App holds the dependencies shared by every command.
type App struct {
	cfg      *model.AppConfig
	dayStart civil.Time
	store    *store.SQLiteStore
	svc      *planner.Service
	logger   *slog.Logger
	out      io.Writer
	now      func() time.Time
}

// Open builds an App from cfg: it sets up the logger, opens the database
// and constructs the planner service.
func Open(cfg *model.AppConfig, out, logOut io.Writer) (*App, error) {
	logger, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}

	dayStart, err := cfg.DayStart()
	if err != nil {
		return nil, err
	}

	if dir := dbDir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path, store.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	logger.Debug("database opened", "path", cfg.Database.Path)

	return &App{
		cfg:      cfg,
		dayStart: dayStart,
		store:    s,
		svc:      planner.New(s, dayStart, logger),
		logger:   logger,
		out:      out,
		now:      time.Now,
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.store.Close()
}

// newLogger builds a slog logger from the log section of the config.
func newLogger(cfg model.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("parsing log.level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log.format %q (want text or json)", cfg.Format)
	}
}

func dbDir(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return ""
	}
	return filepath.Dir(path)
}
