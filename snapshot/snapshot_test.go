package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"github.com/aldld/huebackup/mirror"
	"github.com/aldld/huebackup/mirror/mirrortest"
	"github.com/aldld/huebackup/persist"
	"github.com/lmittmann/tint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type fixture struct {
	bridge  *mirrortest.Bridge
	backend persist.Backend
	gw      *mirror.Gateway
	snaps   *Snapshotter
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(tint.NewHandler(io.Discard, nil))
	f := &fixture{
		bridge:  mirrortest.NewBridge(),
		backend: persist.NewDir(t.TempDir()),
		clock:   time.Date(2024, 5, 4, 18, 30, 0, 0, time.Local),
	}
	mirrortest.SeedHome(f.bridge)

	f.gw = mirror.NewGateway(log, f.bridge, mirror.NewStore(f.backend), 0)
	require.NoError(t, f.gw.Refresh(context.Background()))

	snaps := NewSnapshotter(log, f.gw, f.backend)
	snaps.now = func() time.Time { return f.clock }
	f.snaps = snaps
	return f
}

func refs(s *Snapshot) []string {
	var out []string
	for _, r := range s.Resources {
		out = append(out, r.Ref().String())
	}
	return out
}

func TestCaptureClosure(t *testing.T) {
	f := newFixture(t)

	snap, err := f.snaps.Save(context.Background(), "living")
	require.NoError(t, err)

	assert.Equal(t, Room{ID: "r-living", Name: "Living room"}, snap.Room)
	assert.Equal(t, []string{
		"room/r-living",
		"device/d-lamp1", "device/d-lamp2", "device/d-switch",
		"light/l-lamp1", "light/l-lamp2",
		"button/b-1", "button/b-2", "button/b-3", "button/b-4",
		"device_power/p-switch",
		"scene/s-night", "scene/s-read", "scene/s-relax",
		"behavior_instance/bi-living",
	}, refs(snap))
	require.NotEmpty(t, snap.ID)
	assert.Equal(t, "snapshots/2024-05-04_18-30-00_"+shortID(snap.ID)+"_Living_room.json", snap.Key())
}

func TestSavesInTheSameSecondCoexist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.snaps.Save(ctx, "living")
	require.NoError(t, err)
	require.NoError(t, f.gw.Update(ctx, hue.RTypeScene, "s-read", map[string]any{"speed": 0.9}))
	second, err := f.snaps.Save(ctx, "living")
	require.NoError(t, err)
	require.NotEqual(t, first.Key(), second.Key())

	entries, err := f.snaps.List(ctx, "living")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	loaded, err := f.snaps.Load(ctx, first.Key())
	require.NoError(t, err)
	assert.Equal(t, first.ID, loaded.ID)
	assert.False(t, Diff(loaded, second).Empty())
}

func TestSaveNeverOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.snaps.Save(ctx, "living")
	require.NoError(t, err)
	before, err := f.backend.Load(ctx, first.Key())
	require.NoError(t, err)

	// Same second, same id: the key is already taken.
	f.snaps.newID = func() string { return first.ID }
	_, err = f.snaps.Save(ctx, "living")
	assert.ErrorIs(t, err, hueerr.ErrInvariant)

	after, err := f.backend.Load(ctx, first.Key())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestParseKey(t *testing.T) {
	e, ok := parseKey("snapshots/2024-05-04_18-30-00_0a1b2c3d_Living_room.json")
	require.True(t, ok)
	assert.Equal(t, "0a1b2c3d", e.ShortID)
	assert.Equal(t, "Living_room", e.Slug)
	assert.Equal(t, time.Date(2024, 5, 4, 18, 30, 0, 0, time.Local), e.SavedAt)

	for _, key := range []string{
		"snapshots/2024-05-04_18-30-00_Living_room.json",
		"snapshots/2024-05-04_18-30-00_ZZZZZZZZ_Living.json",
		"snapshots/2024-05-04_18-30-00_0a1b2c3d_.json",
		"audit/2024-05-04_18-30-00_0a1b2c3d_x.json",
	} {
		_, ok := parseKey(key)
		assert.False(t, ok, key)
	}
}

func TestCaptureNewFormatRoom(t *testing.T) {
	f := newFixture(t)

	snap, err := f.snaps.Save(context.Background(), "office")
	require.NoError(t, err)
	_, ok := snap.Find(hue.RTypeScene, "s-office")
	assert.True(t, ok)
	_, ok = snap.Find(hue.RTypeBehaviorInstance, "bi-office")
	assert.True(t, ok)
}

func TestSaveAmbiguousAndUnknownRoom(t *testing.T) {
	f := newFixture(t)

	_, err := f.snaps.Save(context.Background(), "o")
	var amb *hueerr.AmbiguousError
	require.True(t, errors.As(err, &amb))
	assert.ElementsMatch(t, []string{"Living room", "Office"}, amb.Candidates)

	_, err = f.snaps.Save(context.Background(), "Ofice")
	var nf *hueerr.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Contains(t, nf.Suggestions, "Office")
}

func TestDanglingSceneReferenceIsFatal(t *testing.T) {
	f := newFixture(t)
	f.bridge.Add(`{"id":"bi-broken","type":"behavior_instance","script_id":"x","enabled":true,"metadata":{"name":"broken"},
		"configuration":{"device":{"rid":"d-switch","rtype":"device"},
		"button1":{"on_short_release":{"recall_single_extended":{"actions":[{"action":{"recall":{"rid":"s-gone","rtype":"scene"}}}]}}}}}`)
	require.NoError(t, f.gw.Refresh(context.Background()))

	_, err := f.snaps.Save(context.Background(), "Living room")
	var inv *hueerr.InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, []string{"bi-broken", "s-gone"}, inv.IDs)

	entries, err := f.snaps.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiffOfConsecutiveSavesIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.snaps.Save(ctx, "living")
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Minute)
	b, err := f.snaps.Save(ctx, "living")
	require.NoError(t, err)

	assert.True(t, Diff(a, b).Empty())
}

func TestDiffIgnoresEphemeralFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.snaps.Save(ctx, "living")
	require.NoError(t, err)

	event := hue.Event{Type: "update", Data: []hue.EventResource{
		{Header: hue.Header{ID: "p-switch", Type: hue.RTypeDevicePower},
			Raw: json.RawMessage(`{"id":"p-switch","type":"device_power","power_state":{"battery_level":3}}`)},
		{Header: hue.Header{ID: "l-lamp1", Type: hue.RTypeLight},
			Raw: json.RawMessage(`{"id":"l-lamp1","type":"light","on":{"on":false},"dimming":{"brightness":5}}`)},
		{Header: hue.Header{ID: "s-read", Type: hue.RTypeScene},
			Raw: json.RawMessage(`{"id":"s-read","type":"scene","status":{"active":"static"}}`)},
	}}
	require.NoError(t, f.gw.ApplyEvent(ctx, event))

	live, err := f.snaps.Live(saved)
	require.NoError(t, err)
	assert.True(t, Diff(saved, live).Empty())
}

func TestDiffReportsFieldDeltas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.snaps.Save(ctx, "living")
	require.NoError(t, err)

	require.NoError(t, f.gw.Update(ctx, hue.RTypeScene, "s-relax", map[string]any{
		"metadata": map[string]string{"name": "Chill"},
		"speed":    0.2,
	}))
	require.NoError(t, f.gw.Update(ctx, hue.RTypeRoom, "r-living", map[string]any{
		"children": []hue.ResourceRef{{ID: "d-switch", Type: hue.RTypeDevice}, {ID: "d-lamp1", Type: hue.RTypeDevice}},
	}))

	live, err := f.snaps.Live(saved)
	require.NoError(t, err)
	report := Diff(saved, live)

	assert.Empty(t, report.Added)
	assert.Equal(t, []Item{{Type: hue.RTypeDevice, ID: "d-lamp2", Name: "Lamp two"}, {Type: hue.RTypeLight, ID: "l-lamp2", Name: "Lamp two"}}, report.Removed)
	require.Len(t, report.Changed, 2)
	assert.Equal(t, "r-living", report.Changed[0].ID)
	assert.Equal(t, "children", report.Changed[0].Fields[0].Path)
	change := report.Changed[1]
	assert.Equal(t, "s-relax", change.ID)
	assert.Equal(t, "Chill", change.Name)
	require.Len(t, change.Fields, 2)
	assert.Equal(t, "metadata.name", change.Fields[0].Path)
	assert.JSONEq(t, `"Relax"`, string(change.Fields[0].Old))
	assert.JSONEq(t, `"Chill"`, string(change.Fields[0].New))
	assert.Equal(t, "speed", change.Fields[1].Path)

	back := Diff(live, saved)
	assert.Equal(t, report.Removed, back.Added)
}

func TestDiffAbsentField(t *testing.T) {
	a := &Snapshot{Resources: []Resource{{Type: hue.RTypeScene, ID: "s", Doc: json.RawMessage(`{"id":"s","type":"scene","palette":{"color":[]}}`)}}}
	b := &Snapshot{Resources: []Resource{{Type: hue.RTypeScene, ID: "s", Doc: json.RawMessage(`{"id":"s","type":"scene"}`)}}}

	report := Diff(a, b)
	require.Len(t, report.Changed, 1)
	assert.Equal(t, []FieldDelta{{Path: "palette", Old: json.RawMessage(`{"color":[]}`)}}, report.Changed[0].Fields)
}

func TestRestoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.snaps.Save(ctx, "living")
	require.NoError(t, err)

	require.NoError(t, f.gw.Update(ctx, hue.RTypeScene, "s-relax", map[string]any{
		"metadata": map[string]string{"name": "Chill"},
		"actions":  []any{},
	}))
	require.NoError(t, f.gw.Update(ctx, hue.RTypeBehaviorInstance, "bi-living", map[string]any{
		"enabled":       false,
		"configuration": map[string]any{"device": map[string]string{"rid": "d-switch", "rtype": "device"}},
	}))

	var shown Report
	result, err := f.snaps.Restore(ctx, saved, RestoreOptions{Confirm: func(r Report) bool {
		shown = r
		return true
	}})
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Len(t, result.Restored, 4)
	// The stripped configuration no longer pulls its scenes into the live view.
	assert.Len(t, shown.Added, 3)
	assert.Len(t, shown.Changed, 1)

	f.clock = f.clock.Add(time.Minute)
	again, err := f.snaps.Save(ctx, "living")
	require.NoError(t, err)
	assert.True(t, Diff(saved, again).Empty(), "%+v", Diff(saved, again))

	var b hue.BehaviorInstance
	require.NoError(t, json.Unmarshal(mustDoc(t, f.bridge, hue.RTypeBehaviorInstance, "bi-living"), &b))
	assert.True(t, b.Enabled)
}

func mustDoc(t *testing.T, b *mirrortest.Bridge, rtype hue.ResourceType, id string) json.RawMessage {
	t.Helper()
	doc, ok := b.Doc(rtype, id)
	require.True(t, ok, "%s/%s missing on bridge", rtype, id)
	return doc
}

func TestRestoreRecreatesDeletedSceneAndRemaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.snaps.Save(ctx, "living")
	require.NoError(t, err)

	// Deleting a referenced scene removes the behavior on a real bridge too.
	require.NoError(t, f.gw.Delete(ctx, hue.RTypeScene, "s-night"))
	require.NoError(t, f.gw.Delete(ctx, hue.RTypeBehaviorInstance, "bi-living"))
	f.bridge.ResetCalls()

	result, err := f.snaps.Restore(ctx, saved, RestoreOptions{Yes: true})
	require.NoError(t, err)
	require.True(t, result.OK(), "%v", result.Err())

	var created []mirrortest.Call
	for _, c := range f.bridge.Calls() {
		if c.Op == "create" {
			created = append(created, c)
		}
	}
	require.Len(t, created, 2)
	assert.Equal(t, hue.RTypeScene, created[0].Type)
	assert.Equal(t, hue.RTypeBehaviorInstance, created[1].Type)

	var body struct {
		ScriptID      string          `json:"script_id"`
		Configuration json.RawMessage `json:"configuration"`
	}
	require.NoError(t, json.Unmarshal(created[1].Body, &body))
	assert.Equal(t, "67d9395b-4403-42cc-b5f0-740b699d67c6", body.ScriptID)
	ids, err := hue.ReferencedIDs(body.Configuration, hue.RTypeScene)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s-read", "s-relax", created[0].ID}, ids)

	var sceneBody map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(created[0].Body, &sceneBody))
	assert.Contains(t, sceneBody, "group")
	assert.NotContains(t, sceneBody, "status")
}

func TestRestoreNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.snaps.Save(ctx, "living")
	require.NoError(t, err)

	_, err = f.snaps.Restore(ctx, saved, RestoreOptions{})
	assert.ErrorIs(t, err, ErrNotConfirmed)
	_, err = f.snaps.Restore(ctx, saved, RestoreOptions{Confirm: func(Report) bool { return false }})
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Empty(t, f.bridge.Calls())
}

func TestRestoreSkipsBehaviorsOfFailedScenes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.snaps.Save(ctx, "living")
	require.NoError(t, err)
	f.bridge.Fail["update/scene"] = true

	result, err := f.snaps.Restore(ctx, saved, RestoreOptions{Yes: true})
	require.NoError(t, err)
	assert.False(t, result.OK())
	require.Len(t, result.Failed, 4)
	assert.ErrorIs(t, result.Failed[0].Err, hueerr.ErrRemote)
	assert.ErrorIs(t, result.Failed[3].Err, hueerr.ErrInvariant)
	assert.Equal(t, "bi-living", result.Failed[3].ID)
	assert.Empty(t, f.bridge.Calls())
	assert.Error(t, result.Err())
}

func TestListLatestAndResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.snaps.Save(ctx, "living")
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Hour)
	second, err := f.snaps.Save(ctx, "living")
	require.NoError(t, err)
	_, err = f.snaps.Save(ctx, "office")
	require.NoError(t, err)

	all, err := f.snaps.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	living, err := f.snaps.List(ctx, "living room")
	require.NoError(t, err)
	require.Len(t, living, 2)
	assert.Equal(t, second.Key(), living[0].Key)
	assert.Equal(t, first.Key(), living[1].Key)

	latest, err := f.snaps.Latest(ctx, "Living")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	byKey, err := f.snaps.Resolve(ctx, first.Key())
	require.NoError(t, err)
	assert.Equal(t, first.ID, byKey.ID)
	assert.True(t, Diff(first, byKey).Empty())

	_, err = f.snaps.Latest(ctx, "garage")
	assert.ErrorIs(t, err, hueerr.ErrNotFound)
}

func TestLoadRejectsInvalidDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := "snapshots/2024-01-01_00-00-00_Bad.json"

	require.NoError(t, f.backend.Save(ctx, key, []byte(`{"id":"x","version":1,"room":{"id":"r","name":"Bad"},"resources":[]}`)))
	_, err := f.snaps.Load(ctx, key)
	assert.Error(t, err)

	_, err = f.snaps.Load(ctx, "snapshots/2024-01-01_00-00-00_Missing.json")
	assert.ErrorIs(t, err, hueerr.ErrNotFound)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "Living_room", Slug("Living room"))
	assert.Equal(t, "Kü_che-1", Slug("Kü/che-1"))
	assert.Equal(t, "a_b_c", Slug("a.b/c"))
}
