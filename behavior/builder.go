package behavior

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"github.com/aldld/huebackup/match"
	"github.com/aldld/huebackup/mirror"
	"golang.org/x/exp/slog"
)

// Switch is a device with a behavior instance bound to its buttons.
type Switch struct {
	Device   hue.Device
	RoomID   string
	Behavior hue.BehaviorInstance
	Config   *Configuration
}

func (s Switch) Name() string { return s.Device.Metadata.Name }

type Builder struct {
	log *slog.Logger
	gw  *mirror.Gateway
}

func NewBuilder(log *slog.Logger, gw *mirror.Gateway) *Builder {
	return &Builder{log: log, gw: gw}
}

func hasButtons(cfg *Configuration) bool {
	return len(cfg.Buttons) > 0
}

// Switches lists every device with a button-bound behavior instance.
func (b *Builder) Switches() ([]Switch, error) {
	store := b.gw.Store()
	behaviors, err := store.Behaviors()
	if err != nil {
		return nil, err
	}

	byDevice := make(map[string][]Switch)
	for _, bi := range behaviors {
		ref, ok := bi.DeviceRef()
		if !ok {
			continue
		}
		cfg, err := ParseConfiguration(bi.Configuration)
		if err != nil {
			b.log.Warn("skipping unreadable behavior",
				slog.String("id", bi.ID), slog.Any("error", err))
			continue
		}
		if !hasButtons(cfg) {
			continue
		}
		var d hue.Device
		if err := store.Decode(hue.RTypeDevice, ref.ID, &d); err != nil {
			continue
		}
		roomID, _ := store.RoomOf(d.ID)
		byDevice[d.ID] = append(byDevice[d.ID], Switch{Device: d, RoomID: roomID, Behavior: bi, Config: cfg})
	}

	var out []Switch
	for _, list := range byDevice {
		out = append(out, list...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Device.ID != out[j].Device.ID {
			return out[i].Device.ID < out[j].Device.ID
		}
		return out[i].Behavior.ID < out[j].Behavior.ID
	})
	return out, nil
}

// FindSwitch resolves a switch by device name. A device bound to several
// behavior instances is ambiguous.
func (b *Builder) FindSwitch(query string) (Switch, error) {
	switches, err := b.Switches()
	if err != nil {
		return Switch{}, err
	}
	sw, err := match.ByName("switch", query, switches, Switch.Name)
	var amb *hueerr.AmbiguousError
	if errors.As(err, &amb) {
		amb.Candidates = switchCandidates(switches, amb.Candidates)
	}
	return sw, err
}

// switchCandidates adds the behavior id so one device bound twice shows up
// as two distinct candidates.
func switchCandidates(switches []Switch, names []string) []string {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []string
	for _, s := range switches {
		if want[s.Name()] {
			out = append(out, fmt.Sprintf("%s (behavior %s)", s.Name(), s.Behavior.ID))
		}
	}
	return out
}

// ButtonKey returns the configuration key of button n on sw.
func (b *Builder) ButtonKey(sw Switch, n int) (string, error) {
	if sw.Config.Format == FormatOld {
		return OldKey(n), nil
	}
	buttons, err := b.gw.Store().Buttons()
	if err != nil {
		return "", err
	}
	for _, btn := range buttons {
		if btn.Owner.ID == sw.Device.ID && btn.Metadata.ControlID == n {
			return btn.ID, nil
		}
	}
	return "", &hueerr.NotFoundError{Kind: "button", Query: fmt.Sprintf("%s button %d", sw.Name(), n)}
}

// ButtonNumber is the reverse of ButtonKey.
func (b *Builder) ButtonNumber(sw Switch, key string) (int, bool) {
	if n, ok := OldKeyNumber(key); ok {
		return n, true
	}
	var btn hue.Button
	if err := b.gw.Store().Decode(hue.RTypeButton, key, &btn); err != nil {
		return 0, false
	}
	return btn.Metadata.ControlID, true
}

// sceneScope returns the scenes a switch may recall: those of its room, of
// every zone and of the given extra groups.
func (b *Builder) sceneScope(sw Switch, extra ...string) ([]hue.Scene, error) {
	store := b.gw.Store()
	if sw.RoomID == "" {
		return store.Scenes()
	}
	groups := append([]string{sw.RoomID}, extra...)
	zones, err := store.Zones()
	if err != nil {
		return nil, err
	}
	for _, z := range zones {
		groups = append(groups, z.ID)
	}
	return store.ScenesFor(groups...)
}

// ResolveScene finds one scene by name among scenes.
func (b *Builder) ResolveScene(scenes []hue.Scene, query string) (hue.Scene, error) {
	sc, err := match.ByName("scene", query, scenes, func(s hue.Scene) string { return s.Metadata.Name })
	var amb *hueerr.AmbiguousError
	if errors.As(err, &amb) {
		amb.Candidates = b.qualified(scenes, amb.Candidates)
	}
	return sc, err
}

// qualified adds the group name to candidates so equal scene names can be
// told apart.
func (b *Builder) qualified(scenes []hue.Scene, names []string) []string {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []string
	for _, sc := range scenes {
		if !want[sc.Metadata.Name] {
			continue
		}
		group := sc.Group.ID
		var g hue.Group
		if err := b.gw.Store().Decode(sc.Group.Type, sc.Group.ID, &g); err == nil {
			group = g.Metadata.Name
		}
		out = append(out, fmt.Sprintf("%s (%s, %s)", sc.Metadata.Name, group, sc.ID))
	}
	return out
}

// SceneName returns the name of a cached scene, or its id.
func (b *Builder) SceneName(id string) string {
	var sc hue.Scene
	if err := b.gw.Store().Decode(hue.RTypeScene, id, &sc); err != nil || sc.Metadata.Name == "" {
		return id
	}
	return sc.Metadata.Name
}

// Events builds the button configuration for one action.
func (b *Builder) Events(sw Switch, action ButtonAction) (ButtonConfig, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}

	var where *hue.ResourceRef
	var extra []string
	if action.Where != "" {
		g, err := b.gw.Store().FindGroup(action.Where)
		if err != nil {
			return nil, err
		}
		where = &hue.ResourceRef{ID: g.ID, Type: g.Type}
		extra = append(extra, g.ID)
	}

	scenes, err := b.sceneScope(sw, extra...)
	if err != nil {
		return nil, err
	}
	resolve := func(name string) (string, error) {
		sc, err := b.ResolveScene(scenes, name)
		return sc.ID, err
	}

	events := ButtonConfig{}
	switch {
	case action.Scene != "":
		id, err := resolve(action.Scene)
		if err != nil {
			return nil, err
		}
		events = SingleScene(id)
	case len(action.Cycle) > 0:
		ids := make([]string, len(action.Cycle))
		for i, name := range action.Cycle {
			if ids[i], err = resolve(name); err != nil {
				return nil, err
			}
		}
		events = SceneCycle(ids)
	case len(action.Schedule) > 0:
		slots, err := action.Slots()
		if err != nil {
			return nil, err
		}
		resolved := make([]ResolvedSlot, len(slots))
		for i, s := range slots {
			id, err := resolve(s.Scene)
			if err != nil {
				return nil, err
			}
			resolved[i] = ResolvedSlot{Hour: s.Hour, Minute: s.Minute, SceneID: id}
		}
		events = TimeBased(resolved)
	case action.Dim != "":
		events = Dim(action.Dim, where)
	}

	if action.LongPress != "" {
		var lp ButtonConfig
		switch NormalizeLongPress(action.LongPress) {
		case "all_off", "home_off":
			lp = LongPressAction(action.LongPress)
		default:
			id, err := resolve(action.LongPress)
			if err != nil {
				return nil, err
			}
			lp = LongPressScene(id)
		}
		events = events.Merge(lp)
	}
	return events, nil
}

// ButtonChange is the before and after of one button. Before is nil for a
// button that had no configuration.
type ButtonChange struct {
	Button int
	Key    string
	Before ButtonConfig
	After  ButtonConfig
}

// Plan is a behavior update that has been built but not applied.
type Plan struct {
	Switch  Switch
	Before  *Configuration
	After   *Configuration
	Changes []ButtonChange
}

// ButtonEvents are events to merge into one button.
type ButtonEvents struct {
	Button int
	Events ButtonConfig
}

// Build merges the actions into the switch's current configuration. Each
// action's events replace the same events of its button; other events and
// other buttons are kept as they are. The result keeps the configuration's
// format.
func (b *Builder) Build(sw Switch, actions []ButtonAction) (*Plan, error) {
	events := make([]ButtonEvents, 0, len(actions))
	for _, action := range actions {
		ev, err := b.Events(sw, action)
		if err != nil {
			return nil, err
		}
		events = append(events, ButtonEvents{Button: action.Button, Events: ev})
	}
	return b.Compose(sw, events)
}

// Compose merges already built events into the switch's configuration.
func (b *Builder) Compose(sw Switch, events []ButtonEvents) (*Plan, error) {
	plan := &Plan{Switch: sw, Before: sw.Config, After: sw.Config.Clone()}
	for _, ev := range events {
		key, err := b.ButtonKey(sw, ev.Button)
		if err != nil {
			return nil, err
		}

		before := plan.After.Buttons[key]
		after := before.Merge(ev.Events)
		plan.After.Buttons[key] = after
		plan.Changes = append(plan.Changes, ButtonChange{
			Button: ev.Button,
			Key:    key,
			Before: before,
			After:  after,
		})
	}
	return plan, nil
}

// Preview describes the plan line by line.
func (p *Plan) Preview(sceneName func(id string) string) []string {
	lines := []string{fmt.Sprintf("%s (%s format, behavior %s)",
		p.Switch.Name(), p.After.Format, p.Switch.Behavior.ID)}
	for _, c := range p.Changes {
		lines = append(lines, fmt.Sprintf("button %d (%s)", c.Button, c.Key))
		before := c.Before.Describe(sceneName)
		after := c.After.Describe(sceneName)
		unchanged := make(map[string]bool)
		for _, l := range before {
			unchanged[l] = true
		}
		kept := make(map[string]bool)
		for _, l := range after {
			kept[l] = true
		}
		for _, l := range before {
			if !kept[l] {
				lines = append(lines, "  - "+l)
			}
		}
		for _, l := range after {
			if unchanged[l] {
				lines = append(lines, "    "+l)
			} else {
				lines = append(lines, "  + "+l)
			}
		}
	}
	return lines
}

// Changed reports whether applying the plan would change anything.
func (p *Plan) Changed() bool {
	return !p.Before.Equal(p.After)
}

// Apply writes the new configuration through the gateway.
func (b *Builder) Apply(ctx context.Context, plan *Plan) error {
	cfg, err := json.Marshal(plan.After)
	if err != nil {
		return err
	}
	err = b.gw.Update(ctx, hue.RTypeBehaviorInstance, plan.Switch.Behavior.ID, map[string]any{
		"configuration": json.RawMessage(cfg),
	})
	if err != nil && !hueerr.IsWarning(err) {
		return err
	}
	b.log.Info("behavior updated",
		slog.String("switch", plan.Switch.Name()),
		slog.String("behavior", plan.Switch.Behavior.ID),
		slog.Int("buttons", len(plan.Changes)),
	)
	return err
}
