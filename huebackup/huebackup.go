// Package huebackup wires the mirror, snapshot, behavior and zone scene
// packages into one application.
package huebackup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/exp/slog"

	"github.com/aldld/huebackup/behavior"
	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"github.com/aldld/huebackup/mirror"
	"github.com/aldld/huebackup/persist"
	"github.com/aldld/huebackup/snapshot"
	"github.com/aldld/huebackup/zonescene"
)

const eventBufferSize = 8

// EventSource streams bridge events until ctx is done.
type EventSource interface {
	Events(ctx context.Context, filter hue.EventFilter, out chan<- hue.Event) error
}

type App struct {
	log    *slog.Logger
	config Config

	backend persist.Backend
	closers []func() error
	events  EventSource

	Gateway   *mirror.Gateway
	Snapshots *snapshot.Snapshotter
	Behaviors *behavior.Builder
	Zones     *zonescene.Programmer
}

// New connects to the bridge named in config and loads the cached mirror.
func New(ctx context.Context, log *slog.Logger, config Config) (*App, error) {
	client := hue.NewClient(log, hue.Config{
		Addr:   config.Bridge.Addr,
		AppKey: config.Bridge.AppKey,
	})
	return newApp(ctx, log, config, client, client)
}

func newApp(ctx context.Context, log *slog.Logger, config Config, bridge mirror.Bridge, events EventSource) (*App, error) {
	a := &App{log: log, config: config, events: events}

	backend, err := a.openBackend(config.Cache)
	if err != nil {
		return nil, err
	}
	a.backend = backend

	store := mirror.NewStore(backend)
	if err := store.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load cache: %w", err)
	}
	a.Gateway = mirror.NewGateway(log, bridge, store, config.Cache.MaxAge.Duration)

	snapshots := backend
	if config.Snapshots.Dir != "" {
		snapshots = persist.NewDir(config.Snapshots.Dir)
	}
	a.Snapshots = snapshot.NewSnapshotter(log, a.Gateway, snapshots)
	a.Behaviors = behavior.NewBuilder(log, a.Gateway)
	a.Zones = zonescene.NewProgrammer(log, a.Gateway, a.Behaviors)

	log.Debug("application ready",
		slog.String("cache_dir", config.Cache.Dir),
		slog.String("backend", config.Cache.Backend),
		slog.Duration("max_age", config.Cache.MaxAge.Duration),
	)
	return a, nil
}

func (a *App) openBackend(c CacheConfig) (persist.Backend, error) {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	switch c.Backend {
	case BackendSQLite:
		db, err := persist.OpenSQLite(filepath.Join(c.Dir, sqliteFile))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return db, nil
	default:
		return persist.NewDir(c.Dir), nil
	}
}

func (a *App) Config() Config { return a.config }

// Close releases the persistence backend.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func filterEvent(event hue.Event) bool {
	for _, res := range event.Data {
		if mirror.Mirrored(res.Type) {
			return true
		}
	}
	return false
}

// Follow keeps the mirror current from the bridge event stream until ctx is
// done. The mirror is refreshed first when it is empty or stale.
func (a *App) Follow(ctx context.Context) error {
	if err := a.Gateway.EnsureFresh(ctx, false); err != nil {
		if !hueerr.IsWarning(err) {
			return err
		}
		a.log.Warn("following with an out of date mirror", slog.Any("error", err))
	}
	a.log.Info("following bridge events")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bridgeEvents := make(chan hue.Event, eventBufferSize)
	errc := make(chan error, 1)
	go func() {
		errc <- a.events.Events(ctx, filterEvent, bridgeEvents)
	}()

	for {
		select {
		case event := <-bridgeEvents:
			a.log.Debug("handling event",
				slog.String("id", event.ID),
				slog.String("type", event.Type),
				slog.Int("resources", len(event.Data)),
			)
			if err := a.Gateway.ApplyEvent(ctx, event); err != nil {
				a.log.Warn("event not applied", slog.String("id", event.ID), slog.Any("error", err))
			}
		case err := <-errc:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
