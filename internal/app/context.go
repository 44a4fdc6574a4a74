// Package app assembles the event bus, the derived-state components and the
// mutation engine into one running context.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pulseline/internal/config"
	"pulseline/internal/db"
	"pulseline/internal/engine"
	"pulseline/internal/events"
	"pulseline/internal/logging"
	"pulseline/internal/metrics"
	"pulseline/internal/migrate"
	"pulseline/internal/notify"
	"pulseline/internal/progress"
	"pulseline/internal/repo"
	"pulseline/internal/statuslog"
)

type Options struct {
	Log      *slog.Logger
	Observer metrics.Observer
	Now      func() time.Time
}

// Context holds every wired component sharing one database and bus.
type Context struct {
	DB       *sql.DB
	Repo     repo.Repo
	Bus      *events.Bus
	Engine   engine.Engine
	Progress *progress.Aggregator
	Status   *statuslog.Tracker
	Notify   *notify.Service
	Log      *slog.Logger
}

// Wire builds the components on conn and subscribes them to a fresh bus.
func Wire(conn *sql.DB, opts Options) *Context {
	log := logging.OrDiscard(opts.Log)
	obs := opts.Observer
	if obs == nil {
		obs = metrics.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	r := repo.Repo{DB: conn}
	bus := events.NewBus()

	agg := progress.New(r, bus, log, obs)
	agg.Subscribe(bus)
	tracker := statuslog.New(r, log, obs)
	tracker.Subscribe(bus)
	svc := notify.New(r, log, obs)
	svc.Now = now
	svc.RegisterDefaults(r)
	svc.Subscribe(bus)

	eng := engine.New(conn, bus, agg)
	eng.Now = now
	return &Context{DB: conn, Repo: r, Bus: bus, Engine: eng, Progress: agg, Status: tracker, Notify: svc, Log: log}
}

// Open opens and migrates the configured database, then wires the components.
// Metrics are registered on reg when enabled in cfg.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger, reg prometheus.Registerer) (*Context, error) {
	conn, err := db.Open(db.Config{Path: cfg.Database.Path})
	if err != nil {
		return nil, err
	}
	version, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log = logging.OrDiscard(log)
	log.Debug("database ready", "path", cfg.Database.Path, "schema_version", version)

	var obs metrics.Observer = metrics.Nop()
	if cfg.Metrics.Enabled && reg != nil {
		p, err := metrics.NewPrometheus(cfg.Metrics.Namespace, reg)
		if err != nil {
			conn.Close()
			return nil, err
		}
		obs = p
	}
	return Wire(conn, Options{Log: log, Observer: obs}), nil
}

func (c *Context) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
