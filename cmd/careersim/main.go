// Command careersim runs the construction career simulation: a tick loop,
// an HTTP API and, on a terminal, an interactive console.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/talgya/career-clicker/internal/api"
	"github.com/talgya/career-clicker/internal/catalog"
	"github.com/talgya/career-clicker/internal/config"
	"github.com/talgya/career-clicker/internal/console"
	"github.com/talgya/career-clicker/internal/engine"
	"github.com/talgya/career-clicker/internal/persistence"
)

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newLogger(w io.Writer, tty bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if tty {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	// Logs go to stderr while the console owns stdout.
	interactive := cfg.ConsoleEnabled(isTerminal(os.Stdin))
	logOut := os.Stdout
	if interactive {
		logOut = os.Stderr
	}
	slog.SetDefault(newLogger(logOut, isTerminal(logOut), cfg.SlogLevel()))

	// ── Content ───────────────────────────────────────────────────────
	content := catalog.Default()
	if cfg.ContentPath != "" {
		c, err := catalog.LoadFile(cfg.ContentPath)
		if err != nil {
			slog.Error("failed to load content", "path", cfg.ContentPath, "error", err)
			os.Exit(1)
		}
		content = c
		slog.Info("content loaded", "path", cfg.ContentPath, "jobs", len(c.Jobs))
	}
	game := engine.NewGame(content)

	// ── Storage ───────────────────────────────────────────────────────
	var store persistence.Store
	var history api.HistorySource
	if cfg.InMemory() {
		slog.Warn("CAREER_DB_PATH not set, saves kept in memory only")
		store = persistence.NewMemoryStore()
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			slog.Error("failed to create data directory", "error", err)
			os.Exit(1)
		}
		db, err := persistence.Open(cfg.DBPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.DBPath)
		store, history = db, db
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	saves := persistence.NewSaves(store, cfg.SaveKey, game)
	session := engine.NewSession(game, saves.Load(ctx))

	// ── Tick scheduler ────────────────────────────────────────────────
	sched := engine.NewScheduler(game, session, saves.Save)
	sched.Interval = cfg.TickInterval
	sched.TickSeconds = cfg.TickSeconds
	sched.Autosave = cfg.AutosaveInterval
	sched.Start(ctx)

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.APIPort > 0 {
		if cfg.AdminKey == "" {
			slog.Warn("CAREER_ADMIN_KEY not set, admin POST endpoints will be disabled")
		}
		apiServer := &api.Server{
			Session:     session,
			Scheduler:   sched,
			Saves:       saves,
			History:     history,
			Port:        cfg.APIPort,
			AdminKey:    cfg.AdminKey,
			CORSOrigins: cfg.CORSOrigins,
		}
		apiServer.Start(ctx)
	}

	// ── Run ───────────────────────────────────────────────────────────
	if interactive {
		if err := console.New(session, os.Stdin, os.Stdout).Run(ctx); err != nil {
			slog.Error("console stopped", "error", err)
		}
		stop()
	} else {
		slog.Info("running headless (Ctrl+C to stop)")
		<-ctx.Done()
	}
	slog.Info("shutting down")
	sched.Stop()

	// Final save on shutdown.
	st := session.Snapshot()
	if err := saves.Save(context.Background(), st); err != nil {
		slog.Error("final save failed", "error", err)
		return
	}
	slog.Info("final save complete", "day", st.Day, "stage", st.Stage)
}
