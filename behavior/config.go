// Package behavior builds button behavior configurations for switches.
//
// A behavior instance configuration comes in one of two shapes. The old
// format keeps each button under a top-level "button1".."button4" key; the
// new format nests them in a "buttons" object keyed by the id of the
// button resource. Both shapes carry a "device" reference. Configuration
// reads either shape, remembers which one it was and writes it back the same
// way.
package behavior

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/hueerr"
	"golang.org/x/exp/maps"
)

type Format int

const (
	FormatOld Format = iota
	FormatNew
)

func (f Format) String() string {
	if f == FormatNew {
		return "new"
	}
	return "old"
}

// ParseFormat parses "old" or "new".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "old":
		return FormatOld, nil
	case "new":
		return FormatNew, nil
	}
	return FormatOld, fmt.Errorf("%w: format %q must be old or new", ErrInvalidAction, s)
}

var oldButtonKey = regexp.MustCompile(`^button([1-9][0-9]*)$`)

// ButtonConfig maps a button event (on_short_release, on_repeat,
// on_long_press, ...) or "where" to its raw value.
type ButtonConfig map[string]json.RawMessage

func (b ButtonConfig) clone() ButtonConfig {
	out := make(ButtonConfig, len(b))
	for k, v := range b {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Merge overlays the events of other, keeping events other does not set.
func (b ButtonConfig) Merge(other ButtonConfig) ButtonConfig {
	out := b.clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Configuration is a decoded behavior instance configuration.
type Configuration struct {
	Format Format
	Device hue.ResourceRef
	// Buttons is keyed by "buttonN" in the old format and by button
	// resource id in the new one.
	Buttons map[string]ButtonConfig
	// Extra holds every other top-level field unchanged.
	Extra map[string]json.RawMessage
}

// ParseConfiguration detects the format of raw. A configuration with neither
// old nor new button keys is treated as old format; one with both is
// rejected.
func ParseConfiguration(raw json.RawMessage) (*Configuration, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	c := &Configuration{
		Format:  FormatOld,
		Buttons: make(map[string]ButtonConfig),
		Extra:   make(map[string]json.RawMessage),
	}

	var oldKeys []string
	for k, v := range fields {
		switch {
		case k == "device":
			if err := json.Unmarshal(v, &c.Device); err != nil {
				return nil, fmt.Errorf("decode device reference: %w", err)
			}
		case k == "buttons":
			c.Format = FormatNew
			var buttons map[string]ButtonConfig
			if err := json.Unmarshal(v, &buttons); err != nil {
				return nil, fmt.Errorf("decode buttons: %w", err)
			}
			for id, bc := range buttons {
				c.Buttons[id] = bc
			}
		case oldButtonKey.MatchString(k):
			oldKeys = append(oldKeys, k)
			var bc ButtonConfig
			if err := json.Unmarshal(v, &bc); err != nil {
				return nil, fmt.Errorf("decode %s: %w", k, err)
			}
			c.Buttons[k] = bc
		default:
			c.Extra[k] = v
		}
	}

	if c.Format == FormatNew && len(oldKeys) > 0 {
		sort.Strings(oldKeys)
		return nil, &hueerr.InvariantError{Reason: "configuration mixes old and new button formats", IDs: oldKeys}
	}
	return c, nil
}

// NewConfiguration returns an empty configuration for a device.
func NewConfiguration(format Format, device hue.ResourceRef) *Configuration {
	return &Configuration{
		Format:  format,
		Device:  device,
		Buttons: make(map[string]ButtonConfig),
		Extra:   make(map[string]json.RawMessage),
	}
}

func (c *Configuration) Clone() *Configuration {
	out := NewConfiguration(c.Format, c.Device)
	for k, v := range c.Buttons {
		out.Buttons[k] = v.clone()
	}
	for k, v := range c.Extra {
		out.Extra[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Keys returns the button keys in a stable order: old-format keys by
// number, new-format ids alphabetically.
func (c *Configuration) Keys() []string {
	keys := maps.Keys(c.Buttons)
	sort.Slice(keys, func(i, j int) bool {
		ni, iok := OldKeyNumber(keys[i])
		nj, jok := OldKeyNumber(keys[j])
		if iok && jok {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// OldKeyNumber returns N for an old-format key "buttonN".
func OldKeyNumber(key string) (int, bool) {
	m := oldButtonKey.FindStringSubmatch(key)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

func OldKey(n int) string { return "button" + strconv.Itoa(n) }

func (c *Configuration) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(c.Extra)+len(c.Buttons)+1)
	for k, v := range c.Extra {
		fields[k] = v
	}
	if c.Device.ID != "" {
		fields["device"] = c.Device
	}
	if c.Format == FormatNew {
		buttons := make(map[string]ButtonConfig, len(c.Buttons))
		for k, v := range c.Buttons {
			buttons[k] = v
		}
		fields["buttons"] = buttons
	} else {
		for k, v := range c.Buttons {
			fields[k] = v
		}
	}
	return json.Marshal(fields)
}

// Equal compares two configurations by content.
func (c *Configuration) Equal(other *Configuration) bool {
	if c.Format != other.Format {
		return false
	}
	decode := func(cfg *Configuration) (any, bool) {
		b, err := json.Marshal(cfg)
		if err != nil {
			return nil, false
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, false
		}
		return v, true
	}
	a, okA := decode(c)
	b, okB := decode(other)
	return okA && okB && reflect.DeepEqual(a, b)
}
