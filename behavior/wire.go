package behavior

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aldld/huebackup/hue"
)

const (
	eventShortRelease = "on_short_release"
	eventRepeat       = "on_repeat"
	eventLongPress    = "on_long_press"
	fieldWhere        = "where"

	repeatTimeoutSeconds = 3
)

type seconds struct {
	Seconds int `json:"seconds"`
}

type enabled struct {
	Enabled bool `json:"enabled"`
}

type recall struct {
	Recall hue.ResourceRef `json:"recall"`
}

type recallAction struct {
	Action recall `json:"action"`
}

type sceneCycle struct {
	RepeatTimeout seconds          `json:"repeat_timeout"`
	Slots         [][]recallAction `json:"slots"`
	WithOff       enabled          `json:"with_off"`
}

type startTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

type timeSlot struct {
	StartTime startTime      `json:"start_time"`
	Actions   []recallAction `json:"actions"`
}

type timeBased struct {
	RepeatTimeout seconds    `json:"repeat_timeout"`
	Slots         []timeSlot `json:"slots"`
	WithOff       enabled    `json:"with_off"`
}

type recallSingle struct {
	Actions []recallAction `json:"actions"`
}

type whereGroup struct {
	Group hue.ResourceRef `json:"group"`
}

func sceneRef(id string) hue.ResourceRef {
	return hue.ResourceRef{ID: id, Type: hue.RTypeScene}
}

func recallScene(id string) recallAction {
	return recallAction{Action: recall{Recall: sceneRef(id)}}
}

func raw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("behavior: encode %T: %v", v, err))
	}
	return b
}

// SceneCycle recalls the scenes in order on repeated short presses. Each
// slot is a list holding a single recall action.
func SceneCycle(sceneIDs []string) ButtonConfig {
	slots := make([][]recallAction, len(sceneIDs))
	for i, id := range sceneIDs {
		slots[i] = []recallAction{recallScene(id)}
	}
	return ButtonConfig{eventShortRelease: raw(map[string]sceneCycle{
		"scene_cycle_extended": {
			RepeatTimeout: seconds{repeatTimeoutSeconds},
			Slots:         slots,
			WithOff:       enabled{false},
		},
	})}
}

// ResolvedSlot is a time slot whose scene has been resolved to an id.
type ResolvedSlot struct {
	Hour    int
	Minute  int
	SceneID string
}

// TimeBased recalls the scene of the slot in force at press time. Slots are
// emitted sorted by time of day.
func TimeBased(slots []ResolvedSlot) ButtonConfig {
	sorted := append([]ResolvedSlot(nil), slots...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Hour != sorted[j].Hour {
			return sorted[i].Hour < sorted[j].Hour
		}
		return sorted[i].Minute < sorted[j].Minute
	})

	out := make([]timeSlot, len(sorted))
	for i, s := range sorted {
		out[i] = timeSlot{
			StartTime: startTime{Hour: s.Hour, Minute: s.Minute},
			Actions:   []recallAction{recallScene(s.SceneID)},
		}
	}
	return ButtonConfig{eventShortRelease: raw(map[string]timeBased{
		"time_based_extended": {
			RepeatTimeout: seconds{repeatTimeoutSeconds},
			Slots:         out,
			WithOff:       enabled{true},
		},
	})}
}

func SingleScene(sceneID string) ButtonConfig {
	return ButtonConfig{eventShortRelease: raw(map[string]recallSingle{
		"recall_single_extended": {Actions: []recallAction{recallScene(sceneID)}},
	})}
}

// Dim dims up or down while the button is held. A non-nil where limits it to
// one room or zone.
func Dim(direction string, where *hue.ResourceRef) ButtonConfig {
	bc := ButtonConfig{eventRepeat: raw(map[string]string{"action": "dim_" + direction})}
	if where != nil {
		bc[fieldWhere] = raw([]whereGroup{{Group: *where}})
	}
	return bc
}

// NormalizeLongPress turns "All off" into "all_off".
func NormalizeLongPress(action string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(action), " ", "_"))
}

// LongPressAction binds a built-in action such as all_off to a long press.
func LongPressAction(action string) ButtonConfig {
	return ButtonConfig{eventLongPress: raw(map[string]string{"action": NormalizeLongPress(action)})}
}

// LongPressScene recalls a scene on a long press.
func LongPressScene(sceneID string) ButtonConfig {
	return ButtonConfig{eventLongPress: raw(recall{Recall: sceneRef(sceneID)})}
}
