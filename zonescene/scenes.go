package zonescene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"github.com/aldld/huebackup/match"
	"golang.org/x/exp/slog"
)

var ErrInvalidEdit = errors.New("invalid scene edit")

// Brightness sets one light of a copied scene to a percentage.
type Brightness struct {
	Light   string
	Percent float64
}

// ParseBrightness parses "LIGHT_NAME=50%". The percent sign is optional.
func ParseBrightness(s string) (Brightness, error) {
	light, val, ok := strings.Cut(s, "=")
	light = strings.TrimSpace(light)
	if !ok || light == "" {
		return Brightness{}, fmt.Errorf("%w: brightness %q must look like LIGHT_NAME=50%%", ErrInvalidEdit, s)
	}
	pct, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(val), "%"), 64)
	if err != nil || pct < 0 || pct > 100 {
		return Brightness{}, fmt.Errorf("%w: brightness %q must be 0-100", ErrInvalidEdit, s)
	}
	return Brightness{Light: light, Percent: pct}, nil
}

// Edits are applied to the copied actions in field order.
type Edits struct {
	TurnOff    []string
	TurnOn     []string
	Brightness []Brightness
	Remove     []string
}

// Empty reports whether the copy is exact.
func (e Edits) Empty() bool {
	return len(e.TurnOff)+len(e.TurnOn)+len(e.Brightness)+len(e.Remove) == 0
}

// DuplicateRequest copies a scene under a new name.
type DuplicateRequest struct {
	Source string
	// Group narrows the source lookup to scenes of one room or zone.
	Group string
	Name  string
	// Zone, when set, makes the copy a scene of that zone covering every
	// zone light. Lights turned off count as excluded.
	Zone  string
	Edits Edits
}

// Duplicate is a prepared copy. ID is set once it exists on the bridge.
type Duplicate struct {
	Source  hue.Scene
	Scene   hue.SceneCreate
	Changes []string
	ID      string
}

func (d *Deriver) lightByName(lights []hue.Light, name string) (hue.Light, error) {
	return match.ByName("light", name, lights, func(l hue.Light) string { return l.Metadata.Name })
}

// PrepareDuplicate resolves the source scene and works out the copy without
// touching the bridge.
func (d *Deriver) PrepareDuplicate(req DuplicateRequest) (*Duplicate, error) {
	store := d.gw.Store()
	candidates, err := store.Scenes()
	if err != nil {
		return nil, err
	}
	if req.Group != "" {
		g, err := store.FindGroup(req.Group)
		if err != nil {
			return nil, err
		}
		if candidates, err = store.ScenesFor(g.ID); err != nil {
			return nil, err
		}
	}
	src, err := match.ByName("scene", req.Source, candidates, func(s hue.Scene) string { return s.Metadata.Name })
	if err != nil {
		return nil, err
	}
	lights, err := store.Lights()
	if err != nil {
		return nil, err
	}

	speed := DefaultSpeed
	if src.Speed != nil {
		speed = *src.Speed
	}
	dup := &Duplicate{
		Source: src,
		Scene: hue.SceneCreate{
			Metadata:    hue.Metadata{Name: strings.TrimSpace(req.Name)},
			Group:       src.Group,
			AutoDynamic: src.AutoDynamic,
			Speed:       speed,
		},
	}

	edits := req.Edits
	if req.Zone != "" {
		if len(edits.Remove) > 0 {
			return nil, fmt.Errorf("%w: a zone scene keeps every zone light, turn lights off instead of removing them", ErrInvalidEdit)
		}
		zone, err := store.FindZone(req.Zone)
		if err != nil {
			return nil, err
		}
		zoneLights := store.LightsIn(zone)
		excluded := make(map[string]bool)
		for _, name := range edits.TurnOff {
			l, err := d.lightByName(lights, name)
			if err != nil {
				return nil, err
			}
			excluded[l.ID] = true
			dup.Changes = append(dup.Changes, "turn off "+l.Metadata.Name)
		}
		if dup.Scene.Actions, err = DeriveActions(src, zoneLights, excluded); err != nil {
			return nil, err
		}
		for id := range excluded {
			if !containsTarget(dup.Scene.Actions, id) {
				return nil, &hueerr.InvariantError{Reason: "light is not in zone " + zone.Metadata.Name, IDs: []string{id}}
			}
		}
		dup.Scene.Group = hue.ResourceRef{ID: zone.ID, Type: hue.RTypeZone}
		if dup.Scene.Metadata.Name == "" {
			dup.Scene.Metadata.Name = GenerateName(src.Metadata.Name, zone.Metadata.Name, len(excluded) > 0)
		}
		edits.TurnOff = nil
	} else {
		dup.Scene.Actions = make([]hue.SceneAction, len(src.Actions))
		for i, a := range src.Actions {
			dup.Scene.Actions[i] = hue.SceneAction{Target: a.Target, Action: append(json.RawMessage(nil), a.Action...)}
		}
	}
	if dup.Scene.Metadata.Name == "" {
		return nil, fmt.Errorf("%w: the copy of %s needs a name", ErrInvalidEdit, src.Metadata.Name)
	}

	if err := d.applyEdits(dup, lights, edits, req.Zone != ""); err != nil {
		return nil, err
	}
	return dup, nil
}

func containsTarget(actions []hue.SceneAction, lightID string) bool {
	return indexOf(actions, lightID) >= 0
}

func indexOf(actions []hue.SceneAction, lightID string) int {
	for i, a := range actions {
		if a.Target.Type == hue.RTypeLight && a.Target.ID == lightID {
			return i
		}
	}
	return -1
}

// applyEdits changes dup's actions in place. In a zone copy every light
// already has an action and no light may be added.
func (d *Deriver) applyEdits(dup *Duplicate, lights []hue.Light, e Edits, zone bool) error {
	actions := dup.Scene.Actions

	resolve := func(name string) (hue.Light, int, error) {
		l, err := d.lightByName(lights, name)
		if err != nil {
			return l, -1, err
		}
		return l, indexOf(actions, l.ID), nil
	}

	for _, name := range e.TurnOff {
		l, i, err := resolve(name)
		if err != nil {
			return err
		}
		if i < 0 {
			actions = append(actions, hue.SceneAction{Target: lightRef(l.ID), Action: actionOff})
			dup.Changes = append(dup.Changes, "turn off "+l.Metadata.Name+" (added)")
			continue
		}
		if actions[i].Action, err = editAction(actions[i].Action, func(f map[string]json.RawMessage) {
			f["on"] = mustRaw(hue.LightOn{On: false})
			delete(f, "dimming")
			delete(f, "color")
			delete(f, "color_temperature")
		}); err != nil {
			return err
		}
		dup.Changes = append(dup.Changes, "turn off "+l.Metadata.Name)
	}

	for _, name := range e.TurnOn {
		l, i, err := resolve(name)
		if err != nil {
			return err
		}
		if i < 0 {
			if zone {
				return &hueerr.InvariantError{Reason: l.Metadata.Name + " is not in the zone", IDs: []string{l.ID}}
			}
			actions = append(actions, hue.SceneAction{
				Target: lightRef(l.ID),
				Action: hue.RawAction(hue.Action{On: &hue.LightOn{On: true}, Dimming: &hue.DimmingAction{Brightness: 100}}),
			})
			dup.Changes = append(dup.Changes, "turn on "+l.Metadata.Name+" (added)")
			continue
		}
		if actions[i].Action, err = editAction(actions[i].Action, func(f map[string]json.RawMessage) {
			f["on"] = mustRaw(hue.LightOn{On: true})
		}); err != nil {
			return err
		}
		dup.Changes = append(dup.Changes, "turn on "+l.Metadata.Name)
	}

	for _, b := range e.Brightness {
		l, i, err := resolve(b.Light)
		if err != nil {
			return err
		}
		if i < 0 {
			return fmt.Errorf("%w: %s is not in the scene, turn it on first", ErrInvalidEdit, l.Metadata.Name)
		}
		if actions[i].Action, err = editAction(actions[i].Action, func(f map[string]json.RawMessage) {
			if _, ok := f["on"]; !ok {
				f["on"] = mustRaw(hue.LightOn{On: true})
			}
			f["dimming"] = mustRaw(hue.DimmingAction{Brightness: b.Percent})
		}); err != nil {
			return err
		}
		dup.Changes = append(dup.Changes, fmt.Sprintf("brightness %s = %g%%", l.Metadata.Name, b.Percent))
	}

	for _, name := range e.Remove {
		l, i, err := resolve(name)
		if err != nil {
			return err
		}
		if i < 0 {
			dup.Changes = append(dup.Changes, l.Metadata.Name+" is not in the scene, not removed")
			continue
		}
		actions = append(actions[:i], actions[i+1:]...)
		dup.Changes = append(dup.Changes, "remove "+l.Metadata.Name)
	}

	if len(actions) == 0 {
		return fmt.Errorf("%w: the copy would have no lights", ErrInvalidEdit)
	}
	dup.Scene.Actions = actions
	return nil
}

func lightRef(id string) hue.ResourceRef { return hue.ResourceRef{ID: id, Type: hue.RTypeLight} }

func mustRaw(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// editAction rewrites the top-level fields of a raw action. Fields it does
// not touch are kept byte for byte.
func editAction(action json.RawMessage, fn func(map[string]json.RawMessage)) (json.RawMessage, error) {
	fields := make(map[string]json.RawMessage)
	if len(action) > 0 {
		if err := json.Unmarshal(action, &fields); err != nil {
			return nil, err
		}
	}
	fn(fields)
	return json.Marshal(fields)
}

// CreateDuplicate creates the prepared copy.
func (d *Deriver) CreateDuplicate(ctx context.Context, dup *Duplicate) error {
	ref, err := d.gw.Create(ctx, hue.RTypeScene, dup.Scene)
	if ref.ID == "" {
		return err
	}
	dup.ID = ref.ID
	d.log.Info("scene duplicated",
		slog.String("source", dup.Source.ID),
		slog.String("name", dup.Scene.Metadata.Name),
		slog.String("id", ref.ID),
		slog.Int("changes", len(dup.Changes)),
	)
	return err
}

// SceneRow is a scene with the name of the room or zone it belongs to.
type SceneRow struct {
	Scene hue.Scene
	Group string
}

// ListScenes returns the scenes whose group name contains group and whose
// name contains name, ignoring case. Empty filters match everything.
func (d *Deriver) ListScenes(group, name string) ([]SceneRow, error) {
	store := d.gw.Store()
	rooms, err := store.Rooms()
	if err != nil {
		return nil, err
	}
	zones, err := store.Zones()
	if err != nil {
		return nil, err
	}
	groupNames := make(map[string]string, len(rooms)+len(zones))
	for _, g := range append(rooms, zones...) {
		groupNames[g.ID] = g.Metadata.Name
	}
	scenes, err := store.Scenes()
	if err != nil {
		return nil, err
	}

	group, name = strings.ToLower(group), strings.ToLower(name)
	var rows []SceneRow
	for _, sc := range scenes {
		g := groupNames[sc.Group.ID]
		if !strings.Contains(strings.ToLower(g), group) || !strings.Contains(strings.ToLower(sc.Metadata.Name), name) {
			continue
		}
		rows = append(rows, SceneRow{Scene: sc, Group: g})
	}
	return rows, nil
}

// SetAutoDynamic switches auto_dynamic to on for the rows that differ and
// returns those. It stops at the first failed update.
func (d *Deriver) SetAutoDynamic(ctx context.Context, rows []SceneRow, on bool) ([]SceneRow, error) {
	var changed []SceneRow
	var warning error
	for _, r := range rows {
		if r.Scene.AutoDynamic == on {
			continue
		}
		if err := d.gw.Update(ctx, hue.RTypeScene, r.Scene.ID, map[string]bool{"auto_dynamic": on}); err != nil {
			if !hueerr.IsWarning(err) {
				return changed, err
			}
			warning = err
		}
		r.Scene.AutoDynamic = on
		changed = append(changed, r)
	}
	d.log.Info("auto dynamic set", slog.Bool("on", on), slog.Int("changed", len(changed)), slog.Int("matched", len(rows)))
	return changed, warning
}
