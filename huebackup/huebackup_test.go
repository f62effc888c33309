package huebackup

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lmittmann/tint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/mirror/mirrortest"
)

func testLogger() *slog.Logger {
	return slog.New(tint.NewHandler(io.Discard, nil))
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"HUE_BRIDGE_ADDR", "HUE_APP_KEY", "HUEBACKUP_CACHE_DIR"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[logger]
level = "debug"

[bridge]
addr = "192.168.1.2"
app_key = "from-file"

[cache]
dir = "/tmp/hb"
backend = "sqlite"
max_age = "90m"
`), 0o644))

	t.Setenv("HUE_APP_KEY", "from-env")
	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, config.Logger.SlogLevel())
	assert.Equal(t, "192.168.1.2", config.Bridge.Addr)
	assert.Equal(t, "from-env", config.Bridge.AppKey)
	assert.Equal(t, "/tmp/hb", config.Cache.Dir)
	assert.Equal(t, BackendSQLite, config.Cache.Backend)
	assert.Equal(t, 90*time.Minute, config.Cache.MaxAge.Duration)
	assert.NoError(t, config.RequireBridge())
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, BackendDir, config.Cache.Backend)
	assert.Equal(t, 24*time.Hour, config.Cache.MaxAge.Duration)
	assert.NotEmpty(t, config.Cache.Dir)
	assert.Equal(t, slog.LevelInfo, config.Logger.SlogLevel())
	assert.ErrorContains(t, config.RequireBridge(), "HUE_BRIDGE_ADDR")
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	for name, body := range map[string]string{
		"backend": "[cache]\nbackend = \"postgres\"\n",
		"max_age": "[cache]\nmax_age = \"soon\"\n",
		"syntax":  "[cache\n",
	} {
		path := filepath.Join(dir, name+".toml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err, name)
	}
}

// fakeEvents replays a fixed list of events, then blocks like the bridge
// stream does.
type fakeEvents struct {
	events []hue.Event
}

func (f *fakeEvents) Events(ctx context.Context, filter hue.EventFilter, out chan<- hue.Event) error {
	for _, ev := range f.events {
		if filter != nil && !filter(ev) {
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func eventResource(rtype hue.ResourceType, id, raw string) hue.EventResource {
	return hue.EventResource{Header: hue.Header{ID: id, Type: rtype}, Raw: json.RawMessage(raw)}
}

func newTestApp(t *testing.T, backend string, events EventSource) (*App, *mirrortest.Bridge) {
	t.Helper()
	config := DefaultConfig()
	config.Cache.Dir = t.TempDir()
	config.Cache.Backend = backend

	bridge := mirrortest.NewBridge()
	mirrortest.SeedHome(bridge)
	app, err := newApp(context.Background(), testLogger(), config, bridge, events)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app, bridge
}

func TestAppBackends(t *testing.T) {
	for _, backend := range []string{BackendDir, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			app, _ := newTestApp(t, backend, nil)

			require.NoError(t, app.Gateway.EnsureFresh(ctx, false))
			snap, err := app.Snapshots.Save(ctx, "living")
			require.NoError(t, err)

			entries, err := app.Snapshots.List(ctx, "")
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, snap.Key(), entries[0].Key)

			sw, err := app.Behaviors.FindSwitch("office")
			require.NoError(t, err)
			assert.Equal(t, "bi-office", sw.Behavior.ID)
		})
	}
}

func TestAppReopensCache(t *testing.T) {
	ctx := context.Background()
	config := DefaultConfig()
	config.Cache.Dir = t.TempDir()

	bridge := mirrortest.NewBridge()
	mirrortest.SeedHome(bridge)
	app, err := newApp(ctx, testLogger(), config, bridge, nil)
	require.NoError(t, err)
	require.NoError(t, app.Gateway.Refresh(ctx))
	require.NoError(t, app.Close())

	// A bridge that fails every list proves the second app reads the cache.
	bridge.Fail["list"] = true
	app, err = newApp(ctx, testLogger(), config, bridge, nil)
	require.NoError(t, err)
	defer app.Close()

	assert.False(t, app.Gateway.Stale())
	_, err = app.Gateway.Store().FindRoom("office")
	assert.NoError(t, err)
}

func TestFollowAppliesEvents(t *testing.T) {
	events := &fakeEvents{events: []hue.Event{
		{ID: "e1", Type: "update", Data: []hue.EventResource{
			eventResource(hue.RTypeLight, "l-lamp1", `{"id":"l-lamp1","type":"light","on":{"on":false}}`),
		}},
		{ID: "e2", Type: "update", Data: []hue.EventResource{
			eventResource(hue.RTypeGroupedLight, "g-living", `{"id":"g-living","type":"grouped_light","on":{"on":false}}`),
		}},
		{ID: "e3", Type: "delete", Data: []hue.EventResource{
			eventResource(hue.RTypeScene, "s-cl01", `{"id":"s-cl01","type":"scene"}`),
		}},
	}}
	app, _ := newTestApp(t, BackendDir, events)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Follow(ctx) }()

	store := app.Gateway.Store()
	require.Eventually(t, func() bool {
		return !store.Has(hue.RTypeScene, "s-cl01")
	}, 2*time.Second, 10*time.Millisecond)

	var lamp hue.Light
	require.NoError(t, store.Decode(hue.RTypeLight, "l-lamp1", &lamp))
	require.NotNil(t, lamp.On)
	assert.False(t, lamp.On.On)
	assert.Equal(t, "Lamp one", lamp.Metadata.Name)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestFilterEvent(t *testing.T) {
	assert.True(t, filterEvent(hue.Event{Data: []hue.EventResource{eventResource(hue.RTypeScene, "s", `{}`)}}))
	assert.False(t, filterEvent(hue.Event{Data: []hue.EventResource{eventResource(hue.RTypeGroupedLight, "g", `{}`)}}))
}
