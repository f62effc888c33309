package hue

import (
	"encoding/json"
	"sort"
)

type ResourceType string

const (
	RTypeDevice                     ResourceType = "device"
	RTypeBridgeHome                 ResourceType = "bridge_home"
	RTypeRoom                       ResourceType = "room"
	RTypeZone                       ResourceType = "zone"
	RTypeLight                      ResourceType = "light"
	RTypeButton                     ResourceType = "button"
	RTypeRelativeRotary             ResourceType = "relative_rotary"
	RTypeTemperature                ResourceType = "temperature"
	RTypeLightLevel                 ResourceType = "light_level"
	RTypeMotion                     ResourceType = "motion"
	RTypeEntertainment              ResourceType = "entertainment"
	RTypeGroupedLight               ResourceType = "grouped_light"
	RTypeDevicePower                ResourceType = "device_power"
	RTypeZigbeeBridgeConnectivity   ResourceType = "zigbee_bridge_connectivity"
	RTypeZigbeeConnectivity         ResourceType = "zigbee_connectivity"
	RTypeZgpConnectivity            ResourceType = "zgp_connectivity"
	RTypeBridge                     ResourceType = "bridge"
	RTypeZigbeeDeviceDiscovery      ResourceType = "zigbee_device_discovery"
	RTypeHomekit                    ResourceType = "homekit"
	RTypeMatter                     ResourceType = "matter"
	RTypeMatterFabric               ResourceType = "matter_fabric"
	RTypeScene                      ResourceType = "scene"
	RTypeEntertainmentConfiguration ResourceType = "entertainment_configuration"
	RTypePublicImage                ResourceType = "public_image"
	RTypeAuthV1                     ResourceType = "auth_v1"
	RTypeBehaviorScript             ResourceType = "behavior_script"
	RTypeBehaviorInstance           ResourceType = "behavior_instance"
	RTypeGeofence                   ResourceType = "geofence"
	RTypeGeofenceClient             ResourceType = "geofence_client"
	RTypeGeolocation                ResourceType = "geolocation"
	RTypeSmartScene                 ResourceType = "smart_scene"
)

// Header is the part every resource document shares.
type Header struct {
	ID   string       `json:"id"`
	Type ResourceType `json:"type"`
}

type ResourceRef struct {
	ID   string       `json:"rid"`
	Type ResourceType `json:"rtype"`
}

func (r ResourceRef) String() string {
	return string(r.Type) + "/" + r.ID
}

type Metadata struct {
	Name      string `json:"name"`
	Archetype string `json:"archetype,omitempty"`
}

// ReferencedIDs walks a JSON document and returns the ids of every
// {rid, rtype} reference of the given type, deduplicated in order of
// appearance.
func ReferencedIDs(doc json.RawMessage, rtype ResourceType) ([]string, error) {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, err
	}
	var ids []string
	seen := make(map[string]bool)
	walkRefs(v, func(ref map[string]any) {
		if ref["rtype"] != string(rtype) {
			return
		}
		id, _ := ref["rid"].(string)
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	})
	return ids, nil
}

// RemapReferences rewrites the rid of every reference of the given type found
// in ids, leaving everything else as is.
func RemapReferences(doc json.RawMessage, rtype ResourceType, ids map[string]string) (json.RawMessage, error) {
	if len(ids) == 0 {
		return doc, nil
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, err
	}
	walkRefs(v, func(ref map[string]any) {
		if ref["rtype"] != string(rtype) {
			return
		}
		if id, ok := ref["rid"].(string); ok {
			if to, ok := ids[id]; ok {
				ref["rid"] = to
			}
		}
	})
	return json.Marshal(v)
}

func walkRefs(v any, fn func(map[string]any)) {
	switch t := v.(type) {
	case map[string]any:
		if _, ok := t["rid"]; ok {
			fn(t)
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkRefs(t[k], fn)
		}
	case []any:
		for _, e := range t {
			walkRefs(e, fn)
		}
	}
}
