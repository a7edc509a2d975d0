// Package avatar reconciles avatar configurations against the loaded scene
// and exports the composed avatar.
package avatar

import (
	"fmt"
	"sort"
	"strings"
)

// None marks a slot with no asset selected.
const None = ""

// Configuration maps slot name to asset identifier. A missing key means None.
type Configuration map[string]string

// Get returns the identifier for slot, or None.
func (c Configuration) Get(slot string) string {
	return c[slot]
}

// Clone returns an independent copy, dropping None entries.
func (c Configuration) Clone() Configuration {
	out := make(Configuration, len(c))
	for k, v := range c {
		if v != None {
			out[k] = v
		}
	}
	return out
}

// Equal compares per-slot values over the given slots.
func (c Configuration) Equal(other Configuration, slots []string) bool {
	for _, s := range slots {
		if c.Get(s) != other.Get(s) {
			return false
		}
	}
	return true
}

// Diff returns the slots, in the given order, whose values differ.
func (c Configuration) Diff(other Configuration, slots []string) []string {
	var changed []string
	for _, s := range slots {
		if c.Get(s) != other.Get(s) {
			changed = append(changed, s)
		}
	}
	return changed
}

func (c Configuration) String() string {
	keys := make([]string, 0, len(c))
	for k, v := range c {
		if v != None {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + c[k]
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// ParseAssignments parses "hair=bun,hat=none" into a configuration. "none"
// and "-" clear a slot.
func ParseAssignments(s string) (Configuration, error) {
	cfg := Configuration{}
	s = strings.TrimSpace(s)
	if s == "" {
		return cfg, nil
	}
	for _, field := range strings.Split(s, ",") {
		slot, id, ok := strings.Cut(strings.TrimSpace(field), "=")
		slot, id = strings.TrimSpace(slot), strings.TrimSpace(id)
		if !ok || slot == "" {
			return nil, fmt.Errorf("avatar: bad assignment %q, want slot=id", field)
		}
		if strings.EqualFold(id, "none") || id == "-" {
			id = None
		}
		cfg[slot] = id
	}
	return cfg, nil
}

// Overlay returns base with every slot named in over replaced, None included.
func Overlay(base, over Configuration) Configuration {
	out := base.Clone()
	for k, v := range over {
		if v == None {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
