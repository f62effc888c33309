// Package zonescene derives zone-wide scenes from existing scenes and
// programs switches with them.
//
// The bridge rejects a zone scene that does not list every light of the
// zone, so a derived scene always carries exactly one action per zone light:
// lights excluded for the button are switched off, lights the source scene
// already sets keep that action, and the rest are switched on.
package zonescene

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
)

const (
	// MaxNameLen is the longest scene name the bridge accepts, in runes.
	MaxNameLen = 32

	DefaultSpeed = 0.6

	excludedSuffix = " -X"
)

var (
	actionOn  = hue.RawAction(hue.Action{On: &hue.LightOn{On: true}})
	actionOff = hue.RawAction(hue.Action{On: &hue.LightOn{On: false}})
)

// DeriveActions returns one action per light of zoneLights, in zone order.
func DeriveActions(source hue.Scene, zoneLights []string, excluded map[string]bool) ([]hue.SceneAction, error) {
	if len(zoneLights) == 0 {
		return nil, &hueerr.InvariantError{Reason: "zone has no lights to cover", IDs: []string{source.ID}}
	}

	byLight := make(map[string]hue.SceneAction, len(source.Actions))
	for _, a := range source.Actions {
		if a.Target.Type == hue.RTypeLight {
			byLight[a.Target.ID] = a
		}
	}

	seen := make(map[string]bool, len(zoneLights))
	actions := make([]hue.SceneAction, 0, len(zoneLights))
	for _, id := range zoneLights {
		if seen[id] {
			continue
		}
		seen[id] = true

		target := hue.ResourceRef{ID: id, Type: hue.RTypeLight}
		switch a, ok := byLight[id]; {
		case excluded[id]:
			actions = append(actions, hue.SceneAction{Target: target, Action: actionOff})
		case ok:
			actions = append(actions, hue.SceneAction{Target: target, Action: append([]byte(nil), a.Action...)})
		default:
			actions = append(actions, hue.SceneAction{Target: target, Action: actionOn})
		}
	}
	return actions, nil
}

// GenerateName returns "<original> (<zone>)", with " -X" appended when some
// lights are excluded. Names longer than MaxNameLen shorten the zone first and
// only cut the original name when even a single zone rune does not fit.
func GenerateName(original, zone string, excluded bool) string {
	zone = strings.TrimSpace(zone)
	suffix := ""
	if excluded {
		suffix = excludedSuffix
	}
	name := fmt.Sprintf("%s (%s)%s", original, zone, suffix)
	if utf8.RuneCountInString(name) <= MaxNameLen {
		return name
	}

	fixed := utf8.RuneCountInString(original) + len(" ()") + len(suffix)
	if room := MaxNameLen - fixed; room >= 1 {
		return fmt.Sprintf("%s (%s)%s", original, trimTo(zone, room), suffix)
	}

	zone = trimTo(zone, 1)
	keep := MaxNameLen - len(" ()") - utf8.RuneCountInString(zone) - len(suffix)
	return fmt.Sprintf("%s (%s)%s", trimTo(original, keep), zone, suffix)
}

// trimTo cuts s to at most n runes and drops trailing spaces.
func trimTo(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return strings.TrimRight(string(r), " ")
}
