// Package snapshot captures everything that belongs to one room, compares
// captures and replays a capture against the bridge.
package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"github.com/aldld/huebackup/mirror"
	"github.com/google/uuid"
)

const (
	FormatVersion = 1
	keyPrefix     = "snapshots/"
	keyTimeLayout = "2006-01-02_15-04-05"
	keyIDLen      = 8
)

// Order in which resources appear in a snapshot and are compared.
var typeOrder = map[hue.ResourceType]int{
	hue.RTypeRoom:             0,
	hue.RTypeDevice:           1,
	hue.RTypeLight:            2,
	hue.RTypeButton:           3,
	hue.RTypeDevicePower:      4,
	hue.RTypeScene:            5,
	hue.RTypeBehaviorInstance: 6,
}

type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Resource struct {
	Type hue.ResourceType `json:"type"`
	ID   string           `json:"id"`
	Doc  json.RawMessage  `json:"doc"`
}

func (r Resource) Ref() hue.ResourceRef { return hue.ResourceRef{ID: r.ID, Type: r.Type} }

// Name returns metadata.name, or "" when the document has none.
func (r Resource) Name() string {
	var v struct {
		Metadata *hue.Metadata `json:"metadata"`
	}
	if json.Unmarshal(r.Doc, &v) != nil || v.Metadata == nil {
		return ""
	}
	return v.Metadata.Name
}

// Snapshot is a self-contained capture of a room. It is never modified after
// it was saved.
type Snapshot struct {
	ID        string     `json:"id"`
	Version   int        `json:"version"`
	SavedAt   time.Time  `json:"saved_at"`
	Room      Room       `json:"room"`
	Resources []Resource `json:"resources"`
}

// Key is the persistence key, snapshots/<timestamp>_<short id>_<room slug>.json.
// The short id keeps two captures of a room within the same second apart.
func (s *Snapshot) Key() string {
	return keyPrefix + s.SavedAt.Format(keyTimeLayout) + "_" + shortID(s.ID) + "_" + Slug(s.Room.Name) + ".json"
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > keyIDLen {
		id = id[:keyIDLen]
	}
	return id
}

// Of returns the resources of one type.
func (s *Snapshot) Of(rtype hue.ResourceType) []Resource {
	var out []Resource
	for _, r := range s.Resources {
		if r.Type == rtype {
			out = append(out, r)
		}
	}
	return out
}

func (s *Snapshot) Find(rtype hue.ResourceType, id string) (Resource, bool) {
	for _, r := range s.Resources {
		if r.Type == rtype && r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

// Slug maps a room name to the key-safe form used in snapshot keys.
func Slug(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, name)
}

type closure struct {
	store     *mirror.Store
	resources []Resource
	seen      map[hue.ResourceRef]bool
}

func (c *closure) add(rtype hue.ResourceType, id string) error {
	ref := hue.ResourceRef{ID: id, Type: rtype}
	if c.seen[ref] {
		return nil
	}
	doc, err := c.store.Get(rtype, id)
	if err != nil {
		return err
	}
	c.seen[ref] = true
	c.resources = append(c.resources, Resource{Type: rtype, ID: id, Doc: doc})
	return nil
}

// Capture builds a snapshot of room from the mirror. The closure holds the
// room, its devices, their light, button and battery services, the behavior
// instances bound to those devices and every scene those instances
// reference. A reference that does not resolve is an *hueerr.InvariantError.
func Capture(store *mirror.Store, room hue.Group, now time.Time) (*Snapshot, error) {
	c := &closure{store: store, seen: make(map[hue.ResourceRef]bool)}
	if err := c.add(hue.RTypeRoom, room.ID); err != nil {
		return nil, err
	}

	devices := make(map[string]bool)
	for _, deviceID := range store.DevicesIn(room.ID) {
		var d hue.Device
		if err := store.Decode(hue.RTypeDevice, deviceID, &d); err != nil {
			return nil, &hueerr.InvariantError{Reason: "room lists a device missing from the mirror", IDs: []string{room.ID, deviceID}}
		}
		devices[deviceID] = true
		if err := c.add(hue.RTypeDevice, deviceID); err != nil {
			return nil, err
		}
		for _, rtype := range []hue.ResourceType{hue.RTypeLight, hue.RTypeButton, hue.RTypeDevicePower} {
			for _, id := range d.ServicesOf(rtype) {
				if err := c.add(rtype, id); err != nil {
					return nil, &hueerr.InvariantError{Reason: "device lists a service missing from the mirror", IDs: []string{deviceID, id}}
				}
			}
		}
	}

	behaviors, err := store.Behaviors()
	if err != nil {
		return nil, err
	}
	for _, b := range behaviors {
		ref, ok := b.DeviceRef()
		if !ok || !devices[ref.ID] {
			continue
		}
		if err := c.add(hue.RTypeBehaviorInstance, b.ID); err != nil {
			return nil, err
		}
		sceneIDs, err := hue.ReferencedIDs(b.Configuration, hue.RTypeScene)
		if err != nil {
			return nil, fmt.Errorf("behavior %s: %w", b.ID, err)
		}
		for _, id := range sceneIDs {
			if err := c.add(hue.RTypeScene, id); err != nil {
				return nil, &hueerr.InvariantError{Reason: "behavior references a scene missing from the mirror", IDs: []string{b.ID, id}}
			}
		}
	}

	sortResources(c.resources)
	return &Snapshot{
		ID:        uuid.NewString(),
		Version:   FormatVersion,
		SavedAt:   now.Truncate(time.Second),
		Room:      Room{ID: room.ID, Name: room.Metadata.Name},
		Resources: c.resources,
	}, nil
}

func sortResources(rs []Resource) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Type != rs[j].Type {
			return typeOrder[rs[i].Type] < typeOrder[rs[j].Type]
		}
		return rs[i].ID < rs[j].ID
	})
}
