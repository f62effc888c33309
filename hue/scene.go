package hue

import "encoding/json"

type Scene struct {
	ID          string        `json:"id"`
	IDv1        string        `json:"id_v1,omitempty"`
	Actions     []SceneAction `json:"actions"`
	Metadata    Metadata      `json:"metadata"`
	Group       ResourceRef   `json:"group"`
	AutoDynamic bool          `json:"auto_dynamic"`
	Speed       *float64      `json:"speed,omitempty"`
}

// SceneAction keeps the per-light action as raw JSON so that fields this
// package does not model survive a copy unchanged.
type SceneAction struct {
	Target ResourceRef     `json:"target"`
	Action json.RawMessage `json:"action"`
}

type Action struct {
	On               *LightOn                `json:"on,omitempty"`
	Dimming          *DimmingAction          `json:"dimming,omitempty"`
	Color            *ColorAction            `json:"color,omitempty"`
	ColorTemperature *ColorTemperatureAction `json:"color_temperature,omitempty"`
}

type DimmingAction struct {
	Brightness float64 `json:"brightness"`
}

type ColorAction struct {
	XY XY `json:"xy"`
}

type ColorTemperatureAction struct {
	Mirek int `json:"mirek"`
}

// RawAction encodes a typed action for use in a SceneAction.
func RawAction(a Action) json.RawMessage {
	b, _ := json.Marshal(a)
	return b
}

// SceneCreate is the POST body for a new scene.
type SceneCreate struct {
	Metadata    Metadata      `json:"metadata"`
	Group       ResourceRef   `json:"group"`
	Actions     []SceneAction `json:"actions"`
	AutoDynamic bool          `json:"auto_dynamic"`
	Speed       float64       `json:"speed"`
}
