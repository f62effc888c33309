package hue

import "encoding/json"

// Group is a room or a zone. Rooms list devices as children, zones usually
// list lights.
type Group struct {
	ID       string        `json:"id"`
	Type     ResourceType  `json:"type"`
	Metadata Metadata      `json:"metadata"`
	Children []ResourceRef `json:"children"`
	Services []ResourceRef `json:"services,omitempty"`
}

func (g Group) ChildrenOf(rtype ResourceType) []string {
	var ids []string
	for _, c := range g.Children {
		if c.Type == rtype {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

type ProductData struct {
	ModelID     string `json:"model_id"`
	ProductName string `json:"product_name,omitempty"`
}

type Device struct {
	ID          string        `json:"id"`
	IDv1        string        `json:"id_v1,omitempty"`
	Metadata    Metadata      `json:"metadata"`
	ProductData ProductData   `json:"product_data"`
	Services    []ResourceRef `json:"services"`
}

func (d Device) ServicesOf(rtype ResourceType) []string {
	var ids []string
	for _, s := range d.Services {
		if s.Type == rtype {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

type ButtonMetadata struct {
	ControlID int `json:"control_id"`
}

type Button struct {
	ID       string         `json:"id"`
	Owner    ResourceRef    `json:"owner"`
	Metadata ButtonMetadata `json:"metadata"`
}

type PowerState struct {
	BatteryState string `json:"battery_state,omitempty"`
	BatteryLevel *int   `json:"battery_level,omitempty"`
}

type DevicePower struct {
	ID         string      `json:"id"`
	Owner      ResourceRef `json:"owner"`
	PowerState PowerState  `json:"power_state"`
}

// BehaviorInstance is a bridge automation. Configuration stays raw; the
// behavior package owns its two structural variants.
type BehaviorInstance struct {
	ID            string          `json:"id"`
	ScriptID      string          `json:"script_id"`
	Enabled       bool            `json:"enabled"`
	Configuration json.RawMessage `json:"configuration"`
	Metadata      Metadata        `json:"metadata"`
	Status        string          `json:"status,omitempty"`
}

// DeviceRef returns configuration.device, the device the instance is bound to.
func (b BehaviorInstance) DeviceRef() (ResourceRef, bool) {
	var cfg struct {
		Device *ResourceRef `json:"device"`
	}
	if len(b.Configuration) == 0 || json.Unmarshal(b.Configuration, &cfg) != nil || cfg.Device == nil {
		return ResourceRef{}, false
	}
	return *cfg.Device, cfg.Device.ID != ""
}
