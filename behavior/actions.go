package behavior

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DimUp   = "up"
	DimDown = "down"

	maxButton = 4
)

var ErrInvalidAction = errors.New("invalid button action")

// TimeSlot is one entry of a time based schedule.
type TimeSlot struct {
	Hour   int
	Minute int
	Scene  string
}

func (s TimeSlot) String() string {
	return fmt.Sprintf("%02d:%02d=%s", s.Hour, s.Minute, s.Scene)
}

// ParseTimeSlot parses "HH:MM=Scene name".
func ParseTimeSlot(s string) (TimeSlot, error) {
	clock, scene, ok := strings.Cut(s, "=")
	scene = strings.TrimSpace(scene)
	if !ok || scene == "" {
		return TimeSlot{}, fmt.Errorf("%w: time slot %q must look like HH:MM=Scene", ErrInvalidAction, s)
	}
	hh, mm, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return TimeSlot{}, fmt.Errorf("%w: time slot %q must look like HH:MM=Scene", ErrInvalidAction, s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return TimeSlot{}, fmt.Errorf("%w: hour in %q must be 0-23", ErrInvalidAction, s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return TimeSlot{}, fmt.Errorf("%w: minute in %q must be 0-59", ErrInvalidAction, s)
	}
	return TimeSlot{Hour: hour, Minute: minute, Scene: scene}, nil
}

// ButtonAction is what one button should do. Exactly one short press action
// (Scene, Cycle, Schedule or Dim) may be set; LongPress can be combined with
// any of them or stand alone.
type ButtonAction struct {
	Button   int      `yaml:"button"`
	Scene    string   `yaml:"scene,omitempty"`
	Cycle    []string `yaml:"cycle,omitempty"`
	Schedule []string `yaml:"schedule,omitempty"` // "HH:MM=Scene"
	Dim      string   `yaml:"dim,omitempty"`      // up or down
	// Where restricts dimming to a room or zone.
	Where     string `yaml:"where,omitempty"`
	LongPress string `yaml:"long_press,omitempty"`
}

// Slots parses and validates the schedule.
func (a ButtonAction) Slots() ([]TimeSlot, error) {
	slots := make([]TimeSlot, 0, len(a.Schedule))
	for _, s := range a.Schedule {
		slot, err := ParseTimeSlot(s)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func (a ButtonAction) Validate() error {
	if a.Button < 1 || a.Button > maxButton {
		return fmt.Errorf("%w: button must be 1-%d, got %d", ErrInvalidAction, maxButton, a.Button)
	}

	short := 0
	if a.Scene != "" {
		short++
	}
	if a.Cycle != nil {
		short++
		if len(a.Cycle) == 0 {
			return fmt.Errorf("%w: button %d: scene cycle needs at least one scene", ErrInvalidAction, a.Button)
		}
	}
	if a.Schedule != nil {
		short++
		if len(a.Schedule) == 0 {
			return fmt.Errorf("%w: button %d: schedule needs at least one slot", ErrInvalidAction, a.Button)
		}
		if _, err := a.Slots(); err != nil {
			return fmt.Errorf("button %d: %w", a.Button, err)
		}
	}
	if a.Dim != "" {
		short++
		if a.Dim != DimUp && a.Dim != DimDown {
			return fmt.Errorf("%w: button %d: dim must be %q or %q", ErrInvalidAction, a.Button, DimUp, DimDown)
		}
	}

	switch {
	case short > 1:
		return fmt.Errorf("%w: button %d has more than one short press action", ErrInvalidAction, a.Button)
	case short == 0 && a.LongPress == "":
		return fmt.Errorf("%w: button %d has no action", ErrInvalidAction, a.Button)
	case a.Where != "" && a.Dim == "":
		return fmt.Errorf("%w: button %d: where only applies to dimming", ErrInvalidAction, a.Button)
	}
	return nil
}

// ActionSet is a declarative description of a switch's buttons.
type ActionSet struct {
	Switch  string         `yaml:"switch"`
	Buttons []ButtonAction `yaml:"buttons"`
}

func (s ActionSet) Validate() error {
	if len(s.Buttons) == 0 {
		return fmt.Errorf("%w: no buttons configured", ErrInvalidAction)
	}
	seen := make(map[int]bool)
	for _, b := range s.Buttons {
		if err := b.Validate(); err != nil {
			return err
		}
		if seen[b.Button] {
			return fmt.Errorf("%w: button %d configured twice", ErrInvalidAction, b.Button)
		}
		seen[b.Button] = true
	}
	return nil
}

// LoadActionSet reads and validates a YAML action set:
//
//	switch: Living switch
//	buttons:
//	  - button: 1
//	    cycle: [Read, Relax]
//	  - button: 4
//	    dim: down
//	    long_press: all off
func LoadActionSet(path string) (ActionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ActionSet{}, err
	}
	return ParseActionSet(data)
}

func ParseActionSet(data []byte) (ActionSet, error) {
	var set ActionSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return ActionSet{}, fmt.Errorf("parse action set: %w", err)
	}
	if err := set.Validate(); err != nil {
		return ActionSet{}, err
	}
	return set, nil
}
