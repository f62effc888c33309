package behavior

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aldld/huebackup/hue"
	"golang.org/x/exp/maps"
)

// CycleScenes returns the scene ids of a scene cycle short press in slot
// order.
func (b ButtonConfig) CycleScenes() ([]string, bool) {
	var short struct {
		Cycle *sceneCycle `json:"scene_cycle_extended"`
	}
	if json.Unmarshal(b[eventShortRelease], &short) != nil || short.Cycle == nil {
		return nil, false
	}
	var ids []string
	for _, slot := range short.Cycle.Slots {
		for _, a := range slot {
			ids = append(ids, a.Action.Recall.ID)
		}
	}
	return ids, true
}

// Schedule returns the slots of a time based short press in emitted order.
func (b ButtonConfig) Schedule() ([]ResolvedSlot, bool) {
	var short struct {
		Time *timeBased `json:"time_based_extended"`
	}
	if json.Unmarshal(b[eventShortRelease], &short) != nil || short.Time == nil {
		return nil, false
	}
	slots := make([]ResolvedSlot, 0, len(short.Time.Slots))
	for _, s := range short.Time.Slots {
		rs := ResolvedSlot{Hour: s.StartTime.Hour, Minute: s.StartTime.Minute}
		if len(s.Actions) > 0 {
			rs.SceneID = s.Actions[0].Action.Recall.ID
		}
		slots = append(slots, rs)
	}
	return slots, true
}

// Describe renders each event of a button as one line, using name to show
// scenes.
func (b ButtonConfig) Describe(name func(sceneID string) string) []string {
	if name == nil {
		name = func(id string) string { return id }
	}
	keys := maps.Keys(b)
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		lines = append(lines, k+": "+describeEvent(k, b[k], name))
	}
	return lines
}

func describeEvent(event string, value json.RawMessage, name func(string) string) string {
	if event == fieldWhere {
		var groups []whereGroup
		if json.Unmarshal(value, &groups) != nil {
			return string(value)
		}
		refs := make([]string, len(groups))
		for i, g := range groups {
			refs[i] = g.Group.String()
		}
		return "only " + strings.Join(refs, ", ")
	}

	var v struct {
		Action string           `json:"action"`
		Recall *hue.ResourceRef `json:"recall"`
		Cycle  *sceneCycle      `json:"scene_cycle_extended"`
		Time   *timeBased       `json:"time_based_extended"`
		Single *recallSingle    `json:"recall_single_extended"`
	}
	if json.Unmarshal(value, &v) != nil {
		return string(value)
	}

	switch {
	case v.Cycle != nil:
		var names []string
		for _, slot := range v.Cycle.Slots {
			for _, a := range slot {
				names = append(names, name(a.Action.Recall.ID))
			}
		}
		return "scene cycle: " + strings.Join(names, " -> ")
	case v.Time != nil:
		var parts []string
		for _, s := range v.Time.Slots {
			scene := "?"
			if len(s.Actions) > 0 {
				scene = name(s.Actions[0].Action.Recall.ID)
			}
			parts = append(parts, fmt.Sprintf("%02d:%02d %s", s.StartTime.Hour, s.StartTime.Minute, scene))
		}
		return "time based: " + strings.Join(parts, ", ")
	case v.Single != nil && len(v.Single.Actions) > 0:
		return "scene: " + name(v.Single.Actions[0].Action.Recall.ID)
	case v.Recall != nil:
		return "scene: " + name(v.Recall.ID)
	case v.Action != "":
		return strings.ReplaceAll(v.Action, "_", " ")
	}
	return string(value)
}
