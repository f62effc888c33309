package behavior

import (
	"sort"
	"time"
)

func minuteOfDay(t time.Time) int {
	hour, min, _ := t.Clock()
	return 60*hour + min
}

// ActiveSlot returns the slot in force at the time of day of t: the one with
// the latest start not after t. Before the first start of the day the last
// slot of the previous day still applies.
func ActiveSlot(slots []ResolvedSlot, t time.Time) (ResolvedSlot, bool) {
	if len(slots) == 0 {
		return ResolvedSlot{}, false
	}
	sorted := append([]ResolvedSlot(nil), slots...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return 60*sorted[i].Hour+sorted[i].Minute < 60*sorted[j].Hour+sorted[j].Minute
	})

	cur := minuteOfDay(t)
	active := sorted[len(sorted)-1]
	for _, s := range sorted {
		if 60*s.Hour+s.Minute > cur {
			break
		}
		active = s
	}
	return active, true
}

// ButtonSummary is one configured button of a switch.
type ButtonSummary struct {
	// Number is 0 when the key names no known button.
	Number int
	Key    string
	Lines  []string
	// Now is the scene a short press recalls right now, for time based
	// buttons only.
	Now string
}

// Overview describes every configured button of sw by button number.
func (b *Builder) Overview(sw Switch, now time.Time) []ButtonSummary {
	keys := sw.Config.Keys()
	out := make([]ButtonSummary, 0, len(keys))
	for _, key := range keys {
		bc := sw.Config.Buttons[key]
		s := ButtonSummary{Key: key, Lines: bc.Describe(b.SceneName)}
		s.Number, _ = b.ButtonNumber(sw, key)
		if slots, ok := bc.Schedule(); ok {
			if slot, ok := ActiveSlot(slots, now); ok {
				s.Now = b.SceneName(slot.SceneID)
			}
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i].Number == 0) != (out[j].Number == 0) {
			return out[j].Number == 0
		}
		return out[i].Number < out[j].Number
	})
	return out
}
