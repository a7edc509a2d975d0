package parts

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Option is one selectable asset for a slot.
type Option struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

// Slot is a named attachment point and the assets it accepts.
type Slot struct {
	Name     string   `yaml:"name"`
	Required bool     `yaml:"required"`
	Default  string   `yaml:"default"`
	Options  []Option `yaml:"options"`
}

// Catalog lists every slot in display and composition order.
type Catalog struct {
	Slots []Slot `yaml:"slots"`
}

var ErrInvalidCatalog = errors.New("parts: invalid catalog")

// LoadCatalog reads and validates name from dir, falling back to the embedded catalog.
func LoadCatalog(dir, name string) (*Catalog, error) {
	data, err := Load(dir, name)
	if err != nil {
		return nil, fmt.Errorf("parts: load %s: %w", name, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parts: %s: %w", name, err)
	}
	return cat, nil
}

// Parse decodes and validates a catalog.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parts: unmarshal: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate rejects empty or duplicate slot names, duplicate option ids, and
// defaults that are not among the slot's options.
func (c *Catalog) Validate() error {
	if len(c.Slots) == 0 {
		return fmt.Errorf("%w: no slots", ErrInvalidCatalog)
	}
	seen := make(map[string]bool, len(c.Slots))
	for _, s := range c.Slots {
		if s.Name == "" {
			return fmt.Errorf("%w: slot without a name", ErrInvalidCatalog)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate slot %q", ErrInvalidCatalog, s.Name)
		}
		seen[s.Name] = true

		ids := make(map[string]bool, len(s.Options))
		for _, o := range s.Options {
			if o.ID == "" {
				return fmt.Errorf("%w: slot %q has an option without an id", ErrInvalidCatalog, s.Name)
			}
			if ids[o.ID] {
				return fmt.Errorf("%w: slot %q lists %q twice", ErrInvalidCatalog, s.Name, o.ID)
			}
			ids[o.ID] = true
		}
		if s.Default != "" && !ids[s.Default] {
			return fmt.Errorf("%w: slot %q default %q is not an option", ErrInvalidCatalog, s.Name, s.Default)
		}
		if s.Required && s.Default == "" {
			return fmt.Errorf("%w: required slot %q needs a default", ErrInvalidCatalog, s.Name)
		}
	}
	return nil
}

// SlotNames returns the slot names in catalog order.
func (c *Catalog) SlotNames() []string {
	names := make([]string, len(c.Slots))
	for i, s := range c.Slots {
		names[i] = s.Name
	}
	return names
}

// Defaults returns slot -> default id for every slot with a default.
func (c *Catalog) Defaults() map[string]string {
	out := make(map[string]string, len(c.Slots))
	for _, s := range c.Slots {
		if s.Default != "" {
			out[s.Name] = s.Default
		}
	}
	return out
}

// Slot looks a slot up by name.
func (c *Catalog) Slot(name string) (Slot, bool) {
	for _, s := range c.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return Slot{}, false
}

// Has reports whether id is an option of the slot.
func (s Slot) Has(id string) bool {
	for _, o := range s.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Label returns the display label for id, "None" for an empty id.
func (s Slot) Label(id string) string {
	if id == "" {
		return "None"
	}
	for _, o := range s.Options {
		if o.ID == id {
			if o.Label != "" {
				return o.Label
			}
			return o.ID
		}
	}
	return id
}

// Cycle steps from current through the slot's choices and wraps around.
// Optional slots include the empty id ("none") as the first choice.
func (s Slot) Cycle(current string, step int) string {
	choices := make([]string, 0, len(s.Options)+1)
	if !s.Required {
		choices = append(choices, "")
	}
	for _, o := range s.Options {
		choices = append(choices, o.ID)
	}
	if len(choices) == 0 {
		return ""
	}

	idx := 0
	for i, c := range choices {
		if c == current {
			idx = i
			break
		}
	}
	idx = ((idx+step)%len(choices) + len(choices)) % len(choices)
	return choices[idx]
}
