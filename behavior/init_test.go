package behavior

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hallDocs = []string{
	`{"id":"r-hall","type":"room","metadata":{"name":"Hall"},"children":[{"rid":"d-hall","rtype":"device"}]}`,
	`{"id":"d-hall","type":"device","metadata":{"name":"Hall switch"},"product_data":{"model_id":"RWL022"},
	  "services":[{"rid":"hb-2","rtype":"button"},{"rid":"hb-1","rtype":"button"},{"rid":"hb-3","rtype":"button"},{"rid":"hb-4","rtype":"button"}]}`,
	`{"id":"hb-1","type":"button","owner":{"rid":"d-hall","rtype":"device"},"metadata":{"control_id":1}}`,
	`{"id":"hb-2","type":"button","owner":{"rid":"d-hall","rtype":"device"},"metadata":{"control_id":2}}`,
	`{"id":"hb-3","type":"button","owner":{"rid":"d-hall","rtype":"device"},"metadata":{"control_id":3}}`,
	`{"id":"hb-4","type":"button","owner":{"rid":"d-hall","rtype":"device"},"metadata":{"control_id":4}}`,
}

func TestInitSwitchDefaultsToOldFormat(t *testing.T) {
	b, bridge, gw := newTestBuilder(t, hallDocs...)
	ctx := context.Background()

	_, err := b.FindSwitch("hall")
	require.ErrorIs(t, err, hueerr.ErrNotFound)

	plan, err := b.PrepareInit("hall", DefaultFormat)
	require.NoError(t, err)
	assert.Equal(t, hue.ResourceRef{ID: "r-hall", Type: hue.RTypeRoom}, plan.Where)
	assert.Equal(t, []string{"button1", "button2", "button3", "button4"}, plan.Config.Keys())
	assert.JSONEq(t, `"RWL022"`, string(plan.Config.Extra["model_id"]))

	sw, err := b.Init(ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, "new-1", sw.Behavior.ID)

	calls := bridge.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, hue.RTypeBehaviorInstance, calls[0].Type)
	var body struct {
		ScriptID      string          `json:"script_id"`
		Enabled       bool            `json:"enabled"`
		Configuration json.RawMessage `json:"configuration"`
	}
	require.NoError(t, json.Unmarshal(calls[0].Body, &body))
	assert.Equal(t, ButtonScriptID, body.ScriptID)
	assert.True(t, body.Enabled)

	cfg := liveConfig(t, gw, "new-1")
	assert.Equal(t, FormatOld, cfg.Format)
	ids, ok := cfg.Buttons["button1"].CycleScenes()
	assert.True(t, ok)
	assert.Empty(t, ids)

	// The new switch can be programmed right away.
	found, err := b.FindSwitch("hall")
	require.NoError(t, err)
	assert.Equal(t, "new-1", found.Behavior.ID)
	built, err := b.Build(found, []ButtonAction{{Button: 1, Cycle: []string{"CL01"}}})
	require.NoError(t, err)
	require.NoError(t, b.Apply(ctx, built))
	ids, _ = liveConfig(t, gw, "new-1").Buttons["button1"].CycleScenes()
	assert.Equal(t, []string{"s-cl01"}, ids)
}

func TestInitSwitchNewFormatKeysByButtonID(t *testing.T) {
	b, _, _ := newTestBuilder(t, hallDocs...)

	plan, err := b.PrepareInit("Hall switch", FormatNew)
	require.NoError(t, err)
	assert.Equal(t, []string{"hb-1", "hb-2", "hb-3", "hb-4"}, plan.Config.Keys())

	out, err := json.Marshal(plan.Config)
	require.NoError(t, err)
	assert.JSONEq(t, `{
	  "device":{"rid":"d-hall","rtype":"device"},
	  "model_id":"RWL022",
	  "where":[{"group":{"rid":"r-hall","rtype":"room"}}],
	  "buttons":{
	    "hb-1":{"on_short_release":{"scene_cycle_extended":{"repeat_timeout":{"seconds":3},"slots":[],"with_off":{"enabled":false}}},"where":[{"group":{"rid":"r-hall","rtype":"room"}}]},
	    "hb-2":{"on_short_release":{"scene_cycle_extended":{"repeat_timeout":{"seconds":3},"slots":[],"with_off":{"enabled":false}}},"where":[{"group":{"rid":"r-hall","rtype":"room"}}]},
	    "hb-3":{"on_short_release":{"scene_cycle_extended":{"repeat_timeout":{"seconds":3},"slots":[],"with_off":{"enabled":false}}},"where":[{"group":{"rid":"r-hall","rtype":"room"}}]},
	    "hb-4":{"on_short_release":{"scene_cycle_extended":{"repeat_timeout":{"seconds":3},"slots":[],"with_off":{"enabled":false}}},"where":[{"group":{"rid":"r-hall","rtype":"room"}}]}
	  }
	}`, string(out))
}

func TestInitSwitchRejections(t *testing.T) {
	b, bridge, _ := newTestBuilder(t)

	_, err := b.PrepareInit("Living switch", DefaultFormat)
	var inv *hueerr.InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, []string{"bi-living"}, inv.IDs)

	// Lamps have no buttons.
	_, err = b.PrepareInit("Lamp one", DefaultFormat)
	assert.ErrorIs(t, err, hueerr.ErrNotFound)

	assert.Empty(t, bridge.Calls())
}

func TestInitSwitchOutsideAnyRoomUsesHomeGroup(t *testing.T) {
	b, _, _ := newTestBuilder(t,
		hallDocs[1], hallDocs[2], hallDocs[3], hallDocs[4], hallDocs[5],
		`{"id":"bi-home","type":"behavior_instance","script_id":"x","enabled":true,"metadata":{"name":"Home"},
		  "configuration":{"where":[{"group":{"rid":"bh-1","rtype":"bridge_home"}}]}}`,
	)

	plan, err := b.PrepareInit("hall", DefaultFormat)
	require.NoError(t, err)
	assert.Equal(t, hue.ResourceRef{ID: "bh-1", Type: hue.RTypeBridgeHome}, plan.Where)
	assert.Empty(t, plan.RoomID)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("New")
	require.NoError(t, err)
	assert.Equal(t, FormatNew, f)
	f, err = ParseFormat(" old")
	require.NoError(t, err)
	assert.Equal(t, FormatOld, f)

	_, err = ParseFormat("v2")
	assert.ErrorIs(t, err, ErrInvalidAction)
}
