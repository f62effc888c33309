package mirror

import (
	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/match"
)

func groupName(g hue.Group) string { return g.Metadata.Name }

// FindRoom resolves a room by name.
func (s *Store) FindRoom(query string) (hue.Group, error) {
	rooms, err := s.Rooms()
	if err != nil {
		return hue.Group{}, err
	}
	return match.ByName("room", query, rooms, groupName)
}

func (s *Store) FindZone(query string) (hue.Group, error) {
	zones, err := s.Zones()
	if err != nil {
		return hue.Group{}, err
	}
	return match.ByName("zone", query, zones, groupName)
}

// FindGroup resolves a name against rooms and zones together.
func (s *Store) FindGroup(query string) (hue.Group, error) {
	rooms, err := s.Rooms()
	if err != nil {
		return hue.Group{}, err
	}
	zones, err := s.Zones()
	if err != nil {
		return hue.Group{}, err
	}
	return match.ByName("room or zone", query, append(rooms, zones...), groupName)
}

// LightsIn returns the light ids of a group. Zones list lights directly,
// rooms list devices whose light services are collected.
func (s *Store) LightsIn(g hue.Group) []string {
	ids := g.ChildrenOf(hue.RTypeLight)
	for _, deviceID := range g.ChildrenOf(hue.RTypeDevice) {
		var d hue.Device
		if err := s.Decode(hue.RTypeDevice, deviceID, &d); err != nil {
			continue
		}
		ids = append(ids, d.ServicesOf(hue.RTypeLight)...)
	}
	return ids
}

// ScenesFor returns the scenes whose group is one of groupIDs.
func (s *Store) ScenesFor(groupIDs ...string) ([]hue.Scene, error) {
	scenes, err := s.Scenes()
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		want[id] = true
	}
	var out []hue.Scene
	for _, sc := range scenes {
		if want[sc.Group.ID] {
			out = append(out, sc)
		}
	}
	return out, nil
}

// BehaviorsFor returns the behavior instances bound to a device.
func (s *Store) BehaviorsFor(deviceID string) ([]hue.BehaviorInstance, error) {
	all, err := s.Behaviors()
	if err != nil {
		return nil, err
	}
	var out []hue.BehaviorInstance
	for _, b := range all {
		if ref, ok := b.DeviceRef(); ok && ref.ID == deviceID {
			out = append(out, b)
		}
	}
	return out, nil
}
