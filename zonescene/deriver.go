package zonescene

import (
	"context"
	"sort"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"github.com/aldld/huebackup/match"
	"github.com/aldld/huebackup/mirror"
	"golang.org/x/exp/slog"
)

// Derived is a zone scene worked out from a source scene. SceneID is set
// once the scene exists on the bridge, either reused or created.
type Derived struct {
	Source  hue.Scene
	Zone    hue.Group
	Name    string
	Actions []hue.SceneAction
	Speed   float64

	SceneID string
	Reused  bool
	Created bool
}

// Pending reports whether the scene still has to be created.
func (d *Derived) Pending() bool { return d.SceneID == "" }

type Deriver struct {
	log *slog.Logger
	gw  *mirror.Gateway
}

func NewDeriver(log *slog.Logger, gw *mirror.Gateway) *Deriver {
	return &Deriver{log: log, gw: gw}
}

// Derive works out the zone version of source without touching the bridge.
// A scene already named like the result is reused.
func (d *Deriver) Derive(source hue.Scene, zone hue.Group, excluded map[string]bool) (*Derived, error) {
	store := d.gw.Store()
	actions, err := DeriveActions(source, store.LightsIn(zone), excluded)
	if err != nil {
		return nil, err
	}

	speed := DefaultSpeed
	if source.Speed != nil {
		speed = *source.Speed
	}
	derived := &Derived{
		Source:  source,
		Zone:    zone,
		Name:    GenerateName(source.Metadata.Name, zone.Metadata.Name, anyExcluded(actions, excluded)),
		Actions: actions,
		Speed:   speed,
	}

	existing, err := d.findByName(derived.Name, zone.ID)
	if err != nil {
		return nil, err
	}
	if existing != "" {
		derived.SceneID = existing
		derived.Reused = true
	}
	return derived, nil
}

func anyExcluded(actions []hue.SceneAction, excluded map[string]bool) bool {
	for _, a := range actions {
		if excluded[a.Target.ID] {
			return true
		}
	}
	return false
}

// findByName returns the id of a scene with exactly this name, preferring
// one that belongs to the zone.
func (d *Deriver) findByName(name, zoneID string) (string, error) {
	scenes, err := d.gw.Store().Scenes()
	if err != nil {
		return "", err
	}
	var found string
	for _, sc := range scenes {
		if sc.Metadata.Name != name {
			continue
		}
		if sc.Group.ID == zoneID {
			return sc.ID, nil
		}
		if found == "" {
			found = sc.ID
		}
	}
	return found, nil
}

// Ensure creates the scene when it does not exist yet.
func (d *Deriver) Ensure(ctx context.Context, derived *Derived) error {
	if !derived.Pending() {
		return nil
	}
	ref, err := d.gw.Create(ctx, hue.RTypeScene, hue.SceneCreate{
		Metadata:    hue.Metadata{Name: derived.Name},
		Group:       hue.ResourceRef{ID: derived.Zone.ID, Type: hue.RTypeZone},
		Actions:     derived.Actions,
		AutoDynamic: true,
		Speed:       derived.Speed,
	})
	if ref.ID != "" {
		derived.SceneID = ref.ID
		derived.Created = true
		d.log.Info("zone scene created",
			slog.String("name", derived.Name),
			slog.String("id", ref.ID),
			slog.String("zone", derived.Zone.Metadata.Name),
			slog.Int("lights", len(derived.Actions)),
		)
	}
	return err
}

// ReferencingBehaviors returns the ids of behavior instances that recall
// the scene anywhere in their configuration.
func (d *Deriver) ReferencingBehaviors(sceneID string) ([]string, error) {
	behaviors, err := d.gw.Store().Behaviors()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, bi := range behaviors {
		if len(bi.Configuration) == 0 {
			continue
		}
		refs, err := hue.ReferencedIDs(bi.Configuration, hue.RTypeScene)
		if err != nil {
			return nil, err
		}
		for _, id := range refs {
			if id == sceneID {
				ids = append(ids, bi.ID)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// FindScene resolves a scene by name among all cached scenes.
func (d *Deriver) FindScene(query string) (hue.Scene, error) {
	scenes, err := d.gw.Store().Scenes()
	if err != nil {
		return hue.Scene{}, err
	}
	return match.ByName("scene", query, scenes, func(s hue.Scene) string { return s.Metadata.Name })
}

// DeleteScene deletes a scene unless a behavior instance still recalls it;
// the bridge would delete those instances along with the scene.
func (d *Deriver) DeleteScene(ctx context.Context, sceneID string) error {
	if !d.gw.Store().Has(hue.RTypeScene, sceneID) {
		return &hueerr.NotFoundError{Kind: "scene", Query: sceneID}
	}
	users, err := d.ReferencingBehaviors(sceneID)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return &hueerr.InvariantError{
			Reason: "scene " + sceneID + " is still used by behavior instances",
			IDs:    users,
		}
	}
	return d.gw.Delete(ctx, hue.RTypeScene, sceneID)
}
