package behavior

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"github.com/aldld/huebackup/match"
	"golang.org/x/exp/slog"
)

const (
	// ButtonScriptID is the bridge's built-in switch program.
	ButtonScriptID = "67d9395b-4403-42cc-b5f0-740b699d67c6"

	// DefaultFormat is used for a switch that has no behavior instance yet.
	DefaultFormat = FormatOld
)

// InitPlan is a behavior instance for an unprogrammed switch. Every button
// starts as an empty scene cycle.
type InitPlan struct {
	Device hue.Device
	RoomID string
	Where  hue.ResourceRef
	Config *Configuration
}

type behaviorCreate struct {
	ScriptID      string         `json:"script_id"`
	Enabled       bool           `json:"enabled"`
	Configuration *Configuration `json:"configuration"`
	Metadata      hue.Metadata   `json:"metadata"`
}

func (b *Builder) deviceButtons(deviceID string) ([]hue.Button, error) {
	buttons, err := b.gw.Store().Buttons()
	if err != nil {
		return nil, err
	}
	var out []hue.Button
	for _, btn := range buttons {
		if btn.Owner.ID == deviceID {
			out = append(out, btn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metadata.ControlID < out[j].Metadata.ControlID })
	return out, nil
}

// PrepareInit builds the first behavior instance of the button device
// matching query. A device that already has one is an
// *hueerr.InvariantError.
func (b *Builder) PrepareInit(query string, format Format) (*InitPlan, error) {
	store := b.gw.Store()
	devices, err := store.Devices()
	if err != nil {
		return nil, err
	}
	var candidates []hue.Device
	for _, d := range devices {
		if len(d.ServicesOf(hue.RTypeButton)) > 0 {
			candidates = append(candidates, d)
		}
	}
	d, err := match.ByName("switch", query, candidates, func(d hue.Device) string { return d.Metadata.Name })
	if err != nil {
		return nil, err
	}

	behaviors, err := store.Behaviors()
	if err != nil {
		return nil, err
	}
	for _, bi := range behaviors {
		if ref, ok := bi.DeviceRef(); ok && ref.ID == d.ID {
			return nil, &hueerr.InvariantError{Reason: d.Metadata.Name + " already has a behavior instance", IDs: []string{bi.ID}}
		}
	}

	where, err := b.initWhere(d.ID)
	if err != nil {
		return nil, err
	}
	buttons, err := b.deviceButtons(d.ID)
	if err != nil {
		return nil, err
	}
	if len(buttons) == 0 {
		return nil, &hueerr.NotFoundError{Kind: "button", Query: d.Metadata.Name}
	}

	cfg := NewConfiguration(format, hue.ResourceRef{ID: d.ID, Type: hue.RTypeDevice})
	cfg.Extra[fieldWhere] = raw([]whereGroup{{Group: where}})
	if d.ProductData.ModelID != "" {
		cfg.Extra["model_id"] = raw(d.ProductData.ModelID)
	}
	for _, btn := range buttons {
		key := btn.ID
		if format == FormatOld {
			key = OldKey(btn.Metadata.ControlID)
		}
		bc := SceneCycle(nil)
		bc[fieldWhere] = cfg.Extra[fieldWhere]
		cfg.Buttons[key] = bc
	}

	roomID, _ := store.RoomOf(d.ID)
	return &InitPlan{Device: d, RoomID: roomID, Where: where, Config: cfg}, nil
}

// initWhere picks the group a new switch acts on: its room, else a zone
// listing the device, else the home group some other switch already uses.
func (b *Builder) initWhere(deviceID string) (hue.ResourceRef, error) {
	store := b.gw.Store()
	if roomID, ok := store.RoomOf(deviceID); ok {
		return hue.ResourceRef{ID: roomID, Type: hue.RTypeRoom}, nil
	}
	zones, err := store.Zones()
	if err != nil {
		return hue.ResourceRef{}, err
	}
	for _, z := range zones {
		for _, id := range z.ChildrenOf(hue.RTypeDevice) {
			if id == deviceID {
				return hue.ResourceRef{ID: z.ID, Type: hue.RTypeZone}, nil
			}
		}
	}

	behaviors, err := store.Behaviors()
	if err != nil {
		return hue.ResourceRef{}, err
	}
	for _, bi := range behaviors {
		var cfg struct {
			Where []whereGroup `json:"where"`
		}
		if json.Unmarshal(bi.Configuration, &cfg) != nil {
			continue
		}
		for _, w := range cfg.Where {
			if w.Group.Type == hue.RTypeBridgeHome {
				return w.Group, nil
			}
		}
	}
	return hue.ResourceRef{}, &hueerr.InvariantError{Reason: "switch is in no room or zone and no home group is known", IDs: []string{deviceID}}
}

// Init creates the behavior instance of plan and returns the new switch. A
// stale-cache warning still comes with a usable switch.
func (b *Builder) Init(ctx context.Context, plan *InitPlan) (Switch, error) {
	ref, err := b.gw.Create(ctx, hue.RTypeBehaviorInstance, behaviorCreate{
		ScriptID:      ButtonScriptID,
		Enabled:       true,
		Configuration: plan.Config,
		Metadata:      hue.Metadata{Name: plan.Device.Metadata.Name},
	})
	if err != nil && !hueerr.IsWarning(err) {
		return Switch{}, err
	}
	b.log.Info("switch initialised",
		slog.String("device", plan.Device.ID),
		slog.String("behavior", ref.ID),
		slog.String("format", plan.Config.Format.String()),
	)

	sw := Switch{
		Device: plan.Device,
		RoomID: plan.RoomID,
		Behavior: hue.BehaviorInstance{
			ID:            ref.ID,
			ScriptID:      ButtonScriptID,
			Enabled:       true,
			Configuration: raw(plan.Config),
			Metadata:      hue.Metadata{Name: plan.Device.Metadata.Name},
		},
		Config: plan.Config.Clone(),
	}
	return sw, err
}
