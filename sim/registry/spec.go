// Package registry holds the read-only environment Spec registry.
//
// A registry is loaded once from a YAML document, validated against an
// embedded JSON Schema, and only ever read afterwards. AsyncEnv performs a
// single lookup at construction time.
package registry

import "fmt"

// MouseTap is the only pointer modality the action converters support.
const MouseTap = "tap"

// Spec describes one named environment.
type Spec struct {
	Name          string   `yaml:"name"`
	Width         int      `yaml:"width"`
	Height        int      `yaml:"height"`
	MouseRequired bool     `yaml:"mouse_required"`
	MouseType     string   `yaml:"mouse_type,omitempty"` // set only when MouseRequired
	KeyWhitelist  []string `yaml:"key_whitelist,omitempty"`
}

// Modality returns a short label for the spec's input modality.
func (s *Spec) Modality() string {
	if s.MouseRequired {
		return "mouse:" + s.MouseType
	}
	return "keys"
}

func (s *Spec) String() string {
	return fmt.Sprintf("%s (%dx%d, %s)", s.Name, s.Width, s.Height, s.Modality())
}
