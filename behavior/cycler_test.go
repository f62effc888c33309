package behavior

import "time"

// cycler replays how the bridge walks a scene cycle: each short press within
// the repeat timeout recalls the next scene, wrapping at the end. A press
// after the timeout starts over at the first scene.
type cycler struct {
	scenes  []string
	timeout time.Duration
	next    int
	last    time.Time
}

func newCycler(sceneIDs []string) *cycler {
	return &cycler{scenes: sceneIDs, timeout: repeatTimeoutSeconds * time.Second}
}

// press returns the scene recalled by a press at t.
func (c *cycler) press(t time.Time) string {
	if len(c.scenes) == 0 {
		return ""
	}
	if !c.last.IsZero() && t.Sub(c.last) > c.timeout {
		c.next = 0
	}
	c.last = t
	id := c.scenes[c.next]
	c.next = (c.next + 1) % len(c.scenes)
	return id
}
