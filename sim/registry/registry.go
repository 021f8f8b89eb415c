package registry

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed specs.yaml
var defaultDocument []byte

// Document is the top-level structure of a registry YAML file.
// All top-level sections must be listed to satisfy KnownFields(true).
type Document struct {
	Version string  `yaml:"version"`
	Specs   []*Spec `yaml:"specs"`
}

// Registry is an immutable, name-indexed set of Specs.
// Safe for concurrent reads.
type Registry struct {
	version string
	specs   []*Spec
	byName  map[string]*Spec
}

// New builds a Registry from specs, rejecting documents that fail the
// semantic checks.
func New(specs []*Spec) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Spec, len(specs))}
	var errs []error
	for _, s := range specs {
		if err := checkSpec(s); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := r.byName[s.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate spec name %q", s.Name))
			continue
		}
		r.byName[s.Name] = s
		r.specs = append(r.specs, s)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

func checkSpec(s *Spec) error {
	if s == nil {
		return errors.New("nil spec")
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("spec %q: dimensions must be positive, got %dx%d", s.Name, s.Width, s.Height)
	}
	if s.MouseRequired {
		if s.MouseType == "" {
			return fmt.Errorf("spec %q: mouse_required without mouse_type", s.Name)
		}
		return nil
	}
	if s.MouseType != "" {
		return fmt.Errorf("spec %q: mouse_type %q set but mouse_required is false", s.Name, s.MouseType)
	}
	if len(s.KeyWhitelist) == 0 {
		return fmt.Errorf("spec %q: keyboard spec needs a key_whitelist", s.Name)
	}
	return nil
}

// Parse decodes, schema-validates and checks a registry document.
func Parse(data []byte) (*Registry, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse registry YAML: %w", err)
	}
	if err := validateDocument(raw); err != nil {
		return nil, fmt.Errorf("validate registry: %w", err)
	}

	// Strict decoding: unknown keys must fail even when the schema is relaxed.
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode registry YAML: %w", err)
	}
	r, err := New(doc.Specs)
	if err != nil {
		return nil, err
	}
	r.version = doc.Version
	return r, nil
}

// Load reads a registry document from path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Default returns the built-in registry. It panics if the embedded document
// is invalid, which is a build defect.
func Default() *Registry {
	r, err := Parse(defaultDocument)
	if err != nil {
		panic(fmt.Sprintf("embedded registry: %v", err))
	}
	return r
}

// SpecForName returns the named spec, or false if the registry lacks it.
func (r *Registry) SpecForName(name string) (*Spec, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Names returns every spec name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for _, s := range r.specs {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// Specs returns the specs in document order.
// The returned slice must not be modified.
func (r *Registry) Specs() []*Spec {
	return r.specs
}

// Version returns the document's version string, if any.
func (r *Registry) Version() string {
	return r.version
}

// Len returns the number of specs.
func (r *Registry) Len() int {
	return len(r.specs)
}
