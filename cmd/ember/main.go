package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"ember/internal/clock"
	"ember/internal/config"
	"ember/internal/journal"
	"ember/internal/kernel"
	"ember/internal/logger"
)

var (
	// Version is stamped at build time.
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
)

type Globals struct {
	Config   string `help:"Path to ember.toml. Searched for upwards from the working directory when empty." type:"path"`
	LogLevel string `help:"Log level: debug, info, warn, error." default:"" env:"EMBER_LOG_LEVEL"`
	LogFile  string `help:"Log file path (if not set, logs to stderr)."`
	NoColor  bool   `help:"Disable coloured log output."`
}

type cli struct {
	Globals `embed:""`

	Run     runCmd     `cmd:"" default:"1" help:"Boot a node and drive its timers until interrupted."`
	Events  eventsCmd  `cmd:"" help:"Print journalled events as JSON lines."`
	Version versionCmd `cmd:"" help:"Display version information and exit."`
}

type runCmd struct {
	StatusAddr string `help:"Serve the control plane on this address, e.g. 127.0.0.1:7070."`
}

type eventsCmd struct {
	Kind  string `help:"Only events of this kind (timer_started, timer_cancelled, timer_fired, message_sent)."`
	After int64  `help:"Only events with an id greater than this."`
	Limit int    `help:"Maximum number of events." default:"100"`
}

type versionCmd struct{}

func main() {
	var args cli
	ctx := kong.Parse(&args,
		kong.Name("ember"),
		kong.Description("Runtime core node: processes, mailboxes and timers."),
		kong.UsageOnError(),
	)

	loggerOptions := &slog.HandlerOptions{
		AddSource: false,
		Level:     logLevelFromString(args.LogLevel),
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, loggerOptions)))

	ctx.FatalIfErrorf(ctx.Run(&args.Globals))
}

func (versionCmd) Run(*Globals) error {
	fmt.Printf("ember version 'v%s' %s %s\n", Version, BuildDate, Commit)
	return nil
}

func (g *Globals) load() (*config.Configuration, error) {
	var (
		cfg *config.Configuration
		err error
	)
	if g.Config != "" {
		cfg, err = config.Load(g.Config)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		return nil, err
	}
	cfg.Version, cfg.BuildDate, cfg.Commit = Version, BuildDate, Commit
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogFile != "" {
		cfg.Log.File = g.LogFile
	}
	if g.NoColor {
		cfg.Log.Color = false
	}
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory for '%s': %w", cfg.Log.File, err)
		}
	}
	if err := logger.Configure(cfg.Log.File, cfg.Log.Color); err != nil {
		return nil, err
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	return cfg, nil
}

func (r *runCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	k := kernel.NewKernel(cfg, clock.NewSystem())

	if cfg.Journal.DSN != "" {
		j, err := journal.Open(ctx, cfg.Journal.Driver, cfg.Journal.DSN)
		if err != nil {
			return err
		}
		defer j.Close()
		k.SetRecorder(j)
		slog.Info("journal open", "driver", cfg.Journal.Driver)
	}

	if r.StatusAddr != "" {
		srv := &http.Server{
			Addr:              r.StatusAddr,
			Handler:           kernel.NewControlPlane(k).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("control plane stopped", "addr", r.StatusAddr, "error", err)
			}
		}()
		defer func() {
			shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdown)
		}()
		slog.Info("control plane listening", "addr", r.StatusAddr)
	}

	slog.Info("node started", "node", cfg.Node.Name, "incarnation", k.Incarnation.String(), "version", Version)
	if err := k.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("node stopped", "sent", k.Sent.Load(), "dropped", k.Dropped.Load())
	return nil
}

func (e *eventsCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	defer logger.Close()
	if cfg.Journal.DSN == "" {
		return errors.New("no journal configured: set journal.dsn or EMBER_JOURNAL_DSN")
	}

	ctx := context.Background()
	j, err := journal.Open(ctx, cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		return err
	}
	defer j.Close()

	events, err := j.Events(ctx, journal.Filter{
		Kind:    journal.Kind(e.Kind),
		AfterID: e.After,
		Limit:   e.Limit,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

func logLevelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelError
	}
}
