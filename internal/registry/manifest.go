package registry

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ManifestEntry declares one producer in the producers manifest.
type ManifestEntry struct {
	Name     string   `yaml:"name"`
	Category Category `yaml:"category"`
	Priority string   `yaml:"priority"`
	Anchor   Anchor   `yaml:"anchor"`
	Enabled  *bool    `yaml:"enabled,omitempty"`
}

// Manifest is the on-disk declaration of external producers. File order is
// registration order, which fixes tie-break precedence between producers of
// equal priority.
type Manifest struct {
	Producers []ManifestEntry `yaml:"producers"`
}

// LoadManifest reads and validates a producers manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks every manifest entry.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool)
	for i, e := range m.Producers {
		if e.Name == "" {
			return fmt.Errorf("producer %d: missing name", i)
		}
		if seen[e.Name] {
			return fmt.Errorf("producer %q: declared twice", e.Name)
		}
		seen[e.Name] = true

		if !ValidCategory(e.Category) {
			return fmt.Errorf("producer %q: invalid category %q (valid: %v)", e.Name, e.Category, ValidCategories())
		}
		if _, err := ParsePriority(e.Priority); err != nil {
			return fmt.Errorf("producer %q: %w (valid: %v)", e.Name, err, ValidPriorities())
		}
		if !ValidAnchor(e.Anchor) {
			return fmt.Errorf("producer %q: invalid anchor %q (valid: %v)", e.Name, e.Anchor, ValidAnchors())
		}
	}
	return nil
}

// Apply registers every manifest producer in file order and submits an
// initial request for each enabled entry. Entries with enabled=false are
// registered (reserving their tie-break position) but submit nothing.
//
// Apply may run again after a manifest edit: producers already registered
// keep their original tie-break position, and entries now disabled have
// their requests withdrawn.
func (m *Manifest) Apply(r *Registry) error {
	for _, e := range m.Producers {
		if err := r.Register(e.Name); err != nil && !errors.Is(err, ErrDuplicateProducer) {
			return fmt.Errorf("failed to register producer %q: %w", e.Name, err)
		}
		if e.Enabled != nil && !*e.Enabled {
			r.WithdrawAll(e.Name)
			continue
		}
		prio, err := ParsePriority(e.Priority)
		if err != nil {
			return fmt.Errorf("producer %q: %w", e.Name, err)
		}
		if err := r.Submit(e.Name, e.Anchor, Request{Priority: prio, Category: e.Category}); err != nil {
			return fmt.Errorf("failed to submit request for %q: %w", e.Name, err)
		}
	}
	return nil
}
