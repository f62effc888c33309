package snapshot

import (
	"encoding/json"
	"reflect"
	"sort"

	"github.com/aldld/huebackup/hue"
	"golang.org/x/exp/maps"
)

// Top-level fields that describe runtime state rather than configuration.
var ephemeralFields = map[hue.ResourceType][]string{
	hue.RTypeLight: {
		"on", "dimming", "color", "color_temperature", "dynamics", "alert",
		"signaling", "effects", "timed_effects", "gradient", "mode",
	},
	hue.RTypeDevicePower:      {"power_state"},
	hue.RTypeButton:           {"button"},
	hue.RTypeScene:            {"status"},
	hue.RTypeBehaviorInstance: {"status", "state", "last_error"},
}

// Item names one resource in a report.
type Item struct {
	Type hue.ResourceType
	ID   string
	Name string
}

// FieldDelta is one changed field. Path uses dots for nested objects; Old or
// New is nil when the field is absent on that side.
type FieldDelta struct {
	Path string
	Old  json.RawMessage
	New  json.RawMessage
}

type Change struct {
	Item
	Fields []FieldDelta
}

// Report describes how b differs from a.
type Report struct {
	Added   []Item
	Removed []Item
	Changed []Change
}

func (r Report) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Changed) == 0
}

// Diff compares two snapshots by resource identity. It has no side effects.
func Diff(a, b *Snapshot) Report {
	index := func(s *Snapshot) map[hue.ResourceRef]Resource {
		m := make(map[hue.ResourceRef]Resource, len(s.Resources))
		for _, r := range s.Resources {
			m[r.Ref()] = r
		}
		return m
	}
	left, right := index(a), index(b)

	var report Report
	for _, r := range b.Resources {
		if _, ok := left[r.Ref()]; !ok {
			report.Added = append(report.Added, Item{Type: r.Type, ID: r.ID, Name: r.Name()})
		}
	}
	for _, r := range a.Resources {
		other, ok := right[r.Ref()]
		if !ok {
			report.Removed = append(report.Removed, Item{Type: r.Type, ID: r.ID, Name: r.Name()})
			continue
		}
		if deltas := compareDocs(r.Type, r.Doc, other.Doc); len(deltas) > 0 {
			name := other.Name()
			if name == "" {
				name = r.Name()
			}
			report.Changed = append(report.Changed, Change{
				Item:   Item{Type: r.Type, ID: r.ID, Name: name},
				Fields: deltas,
			})
		}
	}

	sortItems(report.Added)
	sortItems(report.Removed)
	sort.SliceStable(report.Changed, func(i, j int) bool {
		return lessItem(report.Changed[i].Item, report.Changed[j].Item)
	})
	return report
}

func lessItem(a, b Item) bool {
	if a.Type != b.Type {
		return typeOrder[a.Type] < typeOrder[b.Type]
	}
	return a.ID < b.ID
}

func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool { return lessItem(items[i], items[j]) })
}

func compareDocs(rtype hue.ResourceType, a, b json.RawMessage) []FieldDelta {
	var left, right map[string]any
	if err := json.Unmarshal(a, &left); err != nil {
		left = map[string]any{}
	}
	if err := json.Unmarshal(b, &right); err != nil {
		right = map[string]any{}
	}
	for _, f := range ephemeralFields[rtype] {
		delete(left, f)
		delete(right, f)
	}

	var deltas []FieldDelta
	compareObjects("", left, right, &deltas)
	return deltas
}

func compareObjects(prefix string, a, b map[string]any, deltas *[]FieldDelta) {
	keys := maps.Keys(a)
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		av, inA := a[k]
		bv, inB := b[k]
		am, aObj := av.(map[string]any)
		bm, bObj := bv.(map[string]any)
		switch {
		case inA && inB && aObj && bObj:
			compareObjects(path, am, bm, deltas)
		case inA && inB && reflect.DeepEqual(av, bv):
		default:
			d := FieldDelta{Path: path}
			if inA {
				d.Old = encodeValue(av)
			}
			if inB {
				d.New = encodeValue(bv)
			}
			*deltas = append(*deltas, d)
		}
	}
}

func encodeValue(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
