package behavior

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oldConfig = `{
	"device":{"rid":"d1","rtype":"device"},
	"button1":{"on_short_release":{"recall_single_extended":{"actions":[{"action":{"recall":{"rid":"s1","rtype":"scene"}}}]}}},
	"button3":{"on_repeat":{"action":"dim_up"}},
	"model_id":"RWL021"
}`

const newConfig = `{
	"device":{"rid":"d1","rtype":"device"},
	"buttons":{
		"btn-a":{"on_repeat":{"action":"dim_down"}},
		"btn-b":{"on_long_press":{"action":"all_off"}}
	}
}`

func TestParseConfigurationDetectsFormat(t *testing.T) {
	old, err := ParseConfiguration(json.RawMessage(oldConfig))
	require.NoError(t, err)
	assert.Equal(t, FormatOld, old.Format)
	assert.Equal(t, hue.ResourceRef{ID: "d1", Type: hue.RTypeDevice}, old.Device)
	assert.Equal(t, []string{"button1", "button3"}, old.Keys())
	assert.Contains(t, old.Extra, "model_id")

	cfg, err := ParseConfiguration(json.RawMessage(newConfig))
	require.NoError(t, err)
	assert.Equal(t, FormatNew, cfg.Format)
	assert.Equal(t, []string{"btn-a", "btn-b"}, cfg.Keys())

	empty, err := ParseConfiguration(json.RawMessage(`{"device":{"rid":"d1","rtype":"device"}}`))
	require.NoError(t, err)
	assert.Equal(t, FormatOld, empty.Format)
}

func TestParseConfigurationRejectsMixedFormats(t *testing.T) {
	_, err := ParseConfiguration(json.RawMessage(`{"buttons":{},"button2":{}}`))
	var inv *hueerr.InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, []string{"button2"}, inv.IDs)
}

func TestConfigurationRoundTrip(t *testing.T) {
	for name, doc := range map[string]string{"old": oldConfig, "new": newConfig} {
		t.Run(name, func(t *testing.T) {
			cfg, err := ParseConfiguration(json.RawMessage(doc))
			require.NoError(t, err)

			out, err := json.Marshal(cfg)
			require.NoError(t, err)
			assert.JSONEq(t, doc, string(out))

			again, err := ParseConfiguration(out)
			require.NoError(t, err)
			assert.True(t, cfg.Equal(again))
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg, err := ParseConfiguration(json.RawMessage(oldConfig))
	require.NoError(t, err)

	clone := cfg.Clone()
	clone.Buttons["button1"] = SingleScene("other")
	clone.Buttons["button3"]["on_repeat"][2] = 'X'

	assert.False(t, cfg.Equal(clone))
	assert.Contains(t, string(cfg.Buttons["button1"]["on_short_release"]), `"s1"`)
	assert.JSONEq(t, `{"action":"dim_up"}`, string(cfg.Buttons["button3"]["on_repeat"]))
}

func TestWireShapes(t *testing.T) {
	tests := []struct {
		name string
		got  ButtonConfig
		want string
	}{
		{
			name: "scene cycle",
			got:  SceneCycle([]string{"s1", "s2"}),
			want: `{"on_short_release":{"scene_cycle_extended":{"repeat_timeout":{"seconds":3},"slots":[
				[{"action":{"recall":{"rid":"s1","rtype":"scene"}}}],
				[{"action":{"recall":{"rid":"s2","rtype":"scene"}}}]],"with_off":{"enabled":false}}}}`,
		},
		{
			name: "time based sorted",
			got: TimeBased([]ResolvedSlot{
				{Hour: 20, Minute: 0, SceneID: "night"},
				{Hour: 7, Minute: 30, SceneID: "day"},
				{Hour: 7, Minute: 5, SceneID: "early"},
			}),
			want: `{"on_short_release":{"time_based_extended":{"repeat_timeout":{"seconds":3},"slots":[
				{"start_time":{"hour":7,"minute":5},"actions":[{"action":{"recall":{"rid":"early","rtype":"scene"}}}]},
				{"start_time":{"hour":7,"minute":30},"actions":[{"action":{"recall":{"rid":"day","rtype":"scene"}}}]},
				{"start_time":{"hour":20,"minute":0},"actions":[{"action":{"recall":{"rid":"night","rtype":"scene"}}}]}],
				"with_off":{"enabled":true}}}}`,
		},
		{
			name: "single scene",
			got:  SingleScene("s1"),
			want: `{"on_short_release":{"recall_single_extended":{"actions":[{"action":{"recall":{"rid":"s1","rtype":"scene"}}}]}}}`,
		},
		{
			name: "dim with where",
			got:  Dim(DimDown, &hue.ResourceRef{ID: "z1", Type: hue.RTypeZone}),
			want: `{"on_repeat":{"action":"dim_down"},"where":[{"group":{"rid":"z1","rtype":"zone"}}]}`,
		},
		{
			name: "long press action",
			got:  LongPressAction("Home Off"),
			want: `{"on_long_press":{"action":"home_off"}}`,
		},
		{
			name: "long press scene",
			got:  LongPressScene("s9"),
			want: `{"on_long_press":{"recall":{"rid":"s9","rtype":"scene"}}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.got)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestDecodeBuiltConfigs(t *testing.T) {
	ids, ok := SceneCycle([]string{"a", "b", "c"}).CycleScenes()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	_, ok = SingleScene("a").CycleScenes()
	assert.False(t, ok)

	slots, ok := TimeBased([]ResolvedSlot{{Hour: 22, SceneID: "n"}, {Hour: 6, SceneID: "d"}}).Schedule()
	require.True(t, ok)
	assert.Equal(t, []ResolvedSlot{{Hour: 6, SceneID: "d"}, {Hour: 22, SceneID: "n"}}, slots)

	lines := SingleScene("s1").Merge(LongPressAction("all off")).Describe(func(id string) string { return "Scene " + id })
	assert.Equal(t, []string{"on_long_press: all off", "on_short_release: scene: Scene s1"}, lines)
}

func TestParseTimeSlot(t *testing.T) {
	slot, err := ParseTimeSlot("07:30=Good morning")
	require.NoError(t, err)
	assert.Equal(t, TimeSlot{Hour: 7, Minute: 30, Scene: "Good morning"}, slot)
	assert.Equal(t, "07:30=Good morning", slot.String())

	for _, bad := range []string{"7:30", "24:00=Night", "12:60=Noon", "ab:00=X", "10:00=", "1000=X"} {
		_, err := ParseTimeSlot(bad)
		assert.ErrorIs(t, err, ErrInvalidAction, bad)
	}
}

func TestButtonActionValidate(t *testing.T) {
	valid := []ButtonAction{
		{Button: 1, Scene: "Read"},
		{Button: 2, Cycle: []string{"Read", "Relax"}},
		{Button: 3, Dim: DimUp, Where: "lounge"},
		{Button: 4, LongPress: "all off"},
		{Button: 4, Dim: DimDown, LongPress: "Nightlight"},
		{Button: 1, Schedule: []string{"07:00=Read", "21:00=Relax"}},
	}
	for _, a := range valid {
		assert.NoError(t, a.Validate(), "%+v", a)
	}

	invalid := []ButtonAction{
		{Button: 0, Scene: "Read"},
		{Button: 5, Scene: "Read"},
		{Button: 1},
		{Button: 1, Scene: "Read", Dim: DimUp},
		{Button: 1, Cycle: []string{}},
		{Button: 1, Dim: "sideways"},
		{Button: 1, Scene: "Read", Where: "lounge"},
		{Button: 1, Schedule: []string{"25:00=Read"}},
	}
	for _, a := range invalid {
		assert.ErrorIs(t, a.Validate(), ErrInvalidAction, "%+v", a)
	}
}

func TestParseActionSet(t *testing.T) {
	set, err := ParseActionSet([]byte(`
switch: Living switch
buttons:
  - button: 1
    cycle: [Read, Relax]
  - button: 2
    schedule: ["07:00=Read", "21:30=Nightlight"]
  - button: 4
    dim: down
    long_press: all off
`))
	require.NoError(t, err)
	assert.Equal(t, "Living switch", set.Switch)
	require.Len(t, set.Buttons, 3)
	assert.Equal(t, []string{"Read", "Relax"}, set.Buttons[0].Cycle)
	assert.Equal(t, "all off", set.Buttons[2].LongPress)

	_, err = ParseActionSet([]byte("switch: x\nbuttons:\n  - button: 1\n    scene: A\n  - button: 1\n    scene: B\n"))
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = ParseActionSet([]byte("switch: x\n"))
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestActiveSlot(t *testing.T) {
	slots := []ResolvedSlot{
		{Hour: 21, Minute: 0, SceneID: "night"},
		{Hour: 7, Minute: 0, SceneID: "day"},
		{Hour: 18, Minute: 30, SceneID: "evening"},
	}
	at := func(h, m int) time.Time { return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC) }

	cases := map[time.Time]string{
		at(3, 0):   "night",
		at(7, 0):   "day",
		at(12, 0):  "day",
		at(18, 30): "evening",
		at(23, 59): "night",
	}
	for tm, want := range cases {
		got, ok := ActiveSlot(slots, tm)
		require.True(t, ok)
		assert.Equal(t, want, got.SceneID, tm.Format("15:04"))
	}

	_, ok := ActiveSlot(nil, at(1, 0))
	assert.False(t, ok)
}

func TestCyclerWrapsAndResets(t *testing.T) {
	c := newCycler([]string{"read", "relax"})
	t0 := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "read", c.press(t0))
	assert.Equal(t, "relax", c.press(t0.Add(time.Second)))
	assert.Equal(t, "read", c.press(t0.Add(2*time.Second)))
	assert.Equal(t, "read", c.press(t0.Add(time.Minute)))
	assert.Equal(t, "relax", c.press(t0.Add(time.Minute+time.Second)))
}
