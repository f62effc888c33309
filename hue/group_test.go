package hue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBehaviorInstanceDeviceRef(t *testing.T) {
	var b BehaviorInstance
	require.NoError(t, json.Unmarshal([]byte(`{
		"id":"b1","script_id":"x","enabled":true,
		"configuration":{"device":{"rid":"d1","rtype":"device"},"button1":{}},
		"metadata":{"name":"Office dimmer"}
	}`), &b))

	ref, ok := b.DeviceRef()
	require.True(t, ok)
	assert.Equal(t, ResourceRef{ID: "d1", Type: RTypeDevice}, ref)

	_, ok = BehaviorInstance{Configuration: json.RawMessage(`{"when":{}}`)}.DeviceRef()
	assert.False(t, ok)
}

func TestGroupChildrenOf(t *testing.T) {
	g := Group{Children: []ResourceRef{
		{ID: "d1", Type: RTypeDevice},
		{ID: "l1", Type: RTypeLight},
		{ID: "d2", Type: RTypeDevice},
	}}
	assert.Equal(t, []string{"d1", "d2"}, g.ChildrenOf(RTypeDevice))
	assert.Equal(t, []string{"l1"}, g.ChildrenOf(RTypeLight))
}

func TestReferencedIDsAndRemap(t *testing.T) {
	cfg := json.RawMessage(`{
		"device":{"rid":"d1","rtype":"device"},
		"button1":{"on_short_release":{"scene_cycle_extended":{"slots":[
			[{"action":{"recall":{"rid":"s1","rtype":"scene"}}}],
			[{"action":{"recall":{"rid":"s2","rtype":"scene"}}}],
			[{"action":{"recall":{"rid":"s1","rtype":"scene"}}}]
		]}}},
		"button2":{"where":[{"group":{"rid":"z1","rtype":"zone"}}]}
	}`)

	ids, err := ReferencedIDs(cfg, RTypeScene)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)

	remapped, err := RemapReferences(cfg, RTypeScene, map[string]string{"s1": "n1", "z1": "nope"})
	require.NoError(t, err)
	ids, err = ReferencedIDs(remapped, RTypeScene)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "s2"}, ids)

	zones, err := ReferencedIDs(remapped, RTypeZone)
	require.NoError(t, err)
	assert.Equal(t, []string{"z1"}, zones)
}
