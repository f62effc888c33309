package zonescene

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aldld/huebackup/behavior"
	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"github.com/aldld/huebackup/match"
	"github.com/aldld/huebackup/mirror"
	"golang.org/x/exp/slog"
)

const pendingPrefix = "pending:"

// Exclusion keeps one light off in the zone scenes of one button.
type Exclusion struct {
	Button int
	Light  string
}

// ParseExclusion parses "BUTTON:LIGHT_NAME".
func ParseExclusion(s string) (Exclusion, error) {
	num, light, ok := strings.Cut(s, ":")
	light = strings.TrimSpace(light)
	if !ok || light == "" {
		return Exclusion{}, fmt.Errorf("%w: exclusion %q must look like BUTTON:LIGHT_NAME", behavior.ErrInvalidAction, s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n < 1 || n > 4 {
		return Exclusion{}, fmt.Errorf("%w: exclusion %q: button must be 1-4", behavior.ErrInvalidAction, s)
	}
	return Exclusion{Button: n, Light: light}, nil
}

// Request describes a zone switch programming run.
type Request struct {
	Zone    string
	Switch  string
	Buttons []int
	// Scenes replaces the scenes currently cycled on every button.
	Scenes     []string
	Exclusions []Exclusion
	// DryRun prepares the run without creating scenes or updating the switch.
	DryRun bool
}

// ButtonResult is the derived scene cycle of one button.
type ButtonResult struct {
	Button   int
	Excluded []string
	Scenes   []*Derived
}

// Result is a prepared programming run. Nothing is written until Execute.
type Result struct {
	Zone    hue.Group
	Switch  behavior.Switch
	Buttons []ButtonResult
	Plan    *behavior.Plan
}

// ToCreate lists derived scenes that do not exist yet, once per name.
func (r *Result) ToCreate() []*Derived {
	seen := make(map[string]bool)
	var out []*Derived
	for _, b := range r.Buttons {
		for _, d := range b.Scenes {
			if d.Pending() && !seen[d.Name] {
				seen[d.Name] = true
				out = append(out, d)
			}
		}
	}
	return out
}

// SceneName names scene ids in the plan, including scenes not created yet.
func (r *Result) SceneName(lookup func(id string) string) func(string) string {
	return func(id string) string {
		if name, ok := strings.CutPrefix(id, pendingPrefix); ok {
			return name + " (new)"
		}
		return lookup(id)
	}
}

type Programmer struct {
	log     *slog.Logger
	gw      *mirror.Gateway
	deriver *Deriver
	builder *behavior.Builder
}

func NewProgrammer(log *slog.Logger, gw *mirror.Gateway, builder *behavior.Builder) *Programmer {
	return &Programmer{
		log:     log,
		gw:      gw,
		deriver: NewDeriver(log, gw),
		builder: builder,
	}
}

func (p *Programmer) Deriver() *Deriver { return p.deriver }

// Prepare resolves the zone, switch, scenes and exclusions and derives every
// zone scene. The plan recalls scenes that still have to be created by a
// placeholder id; Result.SceneName renders them.
func (p *Programmer) Prepare(req Request) (*Result, error) {
	if len(req.Buttons) == 0 {
		return nil, fmt.Errorf("%w: no buttons to program", behavior.ErrInvalidAction)
	}
	store := p.gw.Store()

	zone, err := store.FindZone(req.Zone)
	if err != nil {
		return nil, err
	}
	sw, err := p.builder.FindSwitch(req.Switch)
	if err != nil {
		return nil, err
	}
	excluded, err := p.exclusions(zone, req.Exclusions)
	if err != nil {
		return nil, err
	}

	var override []hue.Scene
	if len(req.Scenes) > 0 {
		all, err := store.Scenes()
		if err != nil {
			return nil, err
		}
		for _, name := range req.Scenes {
			sc, err := p.builder.ResolveScene(all, name)
			if err != nil {
				return nil, err
			}
			override = append(override, sc)
		}
	}

	buttons := append([]int(nil), req.Buttons...)
	sort.Ints(buttons)
	res := &Result{Zone: zone, Switch: sw}
	derivedByName := make(map[string]*Derived)
	for _, n := range buttons {
		sources := override
		if sources == nil {
			if sources, err = p.currentCycle(sw, n); err != nil {
				return nil, err
			}
		}

		br := ButtonResult{Button: n}
		for id := range excluded[n] {
			br.Excluded = append(br.Excluded, id)
		}
		sort.Strings(br.Excluded)

		for _, src := range sources {
			d, err := p.deriver.Derive(src, zone, excluded[n])
			if err != nil {
				return nil, err
			}
			// Two buttons deriving the same name share one scene.
			if prev, ok := derivedByName[d.Name]; ok {
				if !sameActions(prev.Actions, d.Actions) {
					return nil, &hueerr.InvariantError{
						Reason: fmt.Sprintf("zone scene %q would differ between buttons", d.Name),
						IDs:    []string{src.ID},
					}
				}
				d = prev
			}
			derivedByName[d.Name] = d
			br.Scenes = append(br.Scenes, d)
		}
		res.Buttons = append(res.Buttons, br)
	}

	if res.Plan, err = p.compose(res); err != nil {
		return nil, err
	}
	return res, nil
}

func sameActions(a, b []hue.SceneAction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Target != b[i].Target || !bytes.Equal(a[i].Action, b[i].Action) {
			return false
		}
	}
	return true
}

// exclusions resolves light names among the zone's lights, per button.
func (p *Programmer) exclusions(zone hue.Group, list []Exclusion) (map[int]map[string]bool, error) {
	out := make(map[int]map[string]bool)
	if len(list) == 0 {
		return out, nil
	}
	store := p.gw.Store()
	var lights []hue.Light
	for _, id := range store.LightsIn(zone) {
		var l hue.Light
		if err := store.Decode(hue.RTypeLight, id, &l); err != nil {
			return nil, err
		}
		lights = append(lights, l)
	}
	for _, ex := range list {
		l, err := match.ByName("light in "+zone.Metadata.Name, ex.Light, lights, func(l hue.Light) string { return l.Metadata.Name })
		if err != nil {
			return nil, err
		}
		if out[ex.Button] == nil {
			out[ex.Button] = make(map[string]bool)
		}
		out[ex.Button][l.ID] = true
	}
	return out, nil
}

// currentCycle returns the scenes button n currently cycles through.
func (p *Programmer) currentCycle(sw behavior.Switch, n int) ([]hue.Scene, error) {
	key, err := p.builder.ButtonKey(sw, n)
	if err != nil {
		return nil, err
	}
	ids, ok := sw.Config.Buttons[key].CycleScenes()
	if !ok || len(ids) == 0 {
		return nil, &hueerr.NotFoundError{Kind: "scene cycle", Query: fmt.Sprintf("%s button %d", sw.Name(), n)}
	}
	scenes := make([]hue.Scene, 0, len(ids))
	for _, id := range ids {
		var sc hue.Scene
		if err := p.gw.Store().Decode(hue.RTypeScene, id, &sc); err != nil {
			return nil, &hueerr.InvariantError{
				Reason: fmt.Sprintf("button %d recalls a scene that is not cached", n),
				IDs:    []string{sw.Behavior.ID, id},
			}
		}
		scenes = append(scenes, sc)
	}
	return scenes, nil
}

func (p *Programmer) compose(res *Result) (*behavior.Plan, error) {
	events := make([]behavior.ButtonEvents, 0, len(res.Buttons))
	for _, b := range res.Buttons {
		ids := make([]string, len(b.Scenes))
		for i, d := range b.Scenes {
			ids[i] = d.SceneID
			if d.Pending() {
				ids[i] = pendingPrefix + d.Name
			}
		}
		events = append(events, behavior.ButtonEvents{Button: b.Button, Events: behavior.SceneCycle(ids)})
	}
	return p.builder.Compose(res.Switch, events)
}

// Execute creates the missing zone scenes and applies the rebuilt scene
// cycles. A scene creation failure stops before the switch is touched.
func (p *Programmer) Execute(ctx context.Context, res *Result) error {
	var warning error
	for _, d := range res.ToCreate() {
		if err := p.deriver.Ensure(ctx, d); err != nil {
			if !hueerr.IsWarning(err) {
				return err
			}
			warning = err
		}
	}

	plan, err := p.compose(res)
	if err != nil {
		return err
	}
	res.Plan = plan
	if err := p.builder.Apply(ctx, plan); err != nil {
		return err
	}
	p.log.Info("zone switch programmed",
		slog.String("zone", res.Zone.Metadata.Name),
		slog.String("switch", res.Switch.Name()),
		slog.Int("buttons", len(res.Buttons)),
	)
	return warning
}

// Program prepares the run and, unless it is a dry run, executes it.
func (p *Programmer) Program(ctx context.Context, req Request) (*Result, error) {
	res, err := p.Prepare(req)
	if err != nil || req.DryRun {
		return res, err
	}
	return res, p.Execute(ctx, res)
}
