// Package passband provides the static passband registry: central wavelengths per method
// plus the display color and marker of every known passband.
package passband

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/schema"
	"gopkg.in/yaml.v3"
)

// Lookup errors.
var (
	ErrUnknownPassband          = errors.New("unknown passband")
	ErrUnknownMethod            = errors.New("unknown central wavelength method")
	ErrMissingWavelengthMapping = errors.New("missing wavelength mapping")
)

// Reserved entry keys that are not wavelength methods.
const (
	colorKey  = "color"
	markerKey = "marker"
)

//go:embed passbands.yaml
var defaultRegistryYAML []byte

// Entry describes a single passband.
type Entry struct {
	Wavelengths map[schema.WavelengthMethod]float64
	Color       string
	Marker      string
}

// Registry maps passband identifiers to their attributes.
// It is never mutated after construction, so concurrent readers need no locking.
type Registry struct {
	entries map[string]Entry
}

var _ contract.PassbandLookup = &Registry{} // Compile-time check

// New builds a registry from entries. Every wavelength must be positive.
func New(entries map[string]Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for name, e := range entries {
		if name == "" {
			return nil, errors.New("passband name cannot be empty")
		}
		if len(e.Wavelengths) == 0 {
			return nil, fmt.Errorf("passband %q has no central wavelengths", name)
		}
		for method, wl := range e.Wavelengths {
			if !(wl > 0) {
				return nil, fmt.Errorf("passband %q method %q: wavelength must be positive, got %v", name, method, wl)
			}
		}
		r.entries[name] = Entry{
			Wavelengths: maps.Clone(e.Wavelengths),
			Color:       e.Color,
			Marker:      e.Marker,
		}
	}
	return r, nil
}

// Default returns the embedded registry.
func Default() *Registry {
	r, err := Parse(defaultRegistryYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded passband registry is invalid: %v", err))
	}
	return r
}

// Load reads a registry from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read passband registry %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse passband registry %s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a registry shaped as {passband: {method: angstrom, color: str, marker: str}}.
func Parse(data []byte) (*Registry, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	entries := make(map[string]Entry, len(raw))
	for name, fields := range raw {
		e := Entry{Wavelengths: make(map[schema.WavelengthMethod]float64)}
		for key, val := range fields {
			switch key {
			case colorKey:
				e.Color = fmt.Sprint(val)
			case markerKey:
				e.Marker = fmt.Sprint(val)
			default:
				wl, ok := toFloat(val)
				if !ok {
					return nil, fmt.Errorf("passband %q method %q: expected a number, got %v", name, key, val)
				}
				e.Wavelengths[schema.WavelengthMethod(key)] = wl
			}
		}
		entries[name] = e
	}
	return New(entries)
}

// Marshal encodes the registry back into its YAML form.
func (r *Registry) Marshal() ([]byte, error) {
	out := make(map[string]map[string]any, len(r.entries))
	for name, e := range r.entries {
		fields := make(map[string]any, len(e.Wavelengths)+2)
		for method, wl := range e.Wavelengths {
			fields[string(method)] = wl
		}
		fields[colorKey] = e.Color
		fields[markerKey] = e.Marker
		out[name] = fields
	}
	return yaml.Marshal(out)
}

// Lookup returns the central wavelength of passband under method.
func (r *Registry) Lookup(passband string, method schema.WavelengthMethod) (float64, error) {
	e, ok := r.entries[passband]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPassband, passband)
	}
	wl, ok := e.Wavelengths[method]
	if !ok {
		return 0, fmt.Errorf("%w: %q for passband %q", ErrUnknownMethod, method, passband)
	}
	return wl, nil
}

// Color returns the display color of passband.
func (r *Registry) Color(passband string) (string, error) {
	e, ok := r.entries[passband]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPassband, passband)
	}
	return e.Color, nil
}

// Marker returns the display marker of passband.
func (r *Registry) Marker(passband string) (string, error) {
	e, ok := r.entries[passband]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPassband, passband)
	}
	return e.Marker, nil
}

// Passbands returns all registered passband names in sorted order.
func (r *Registry) Passbands() []string {
	return slices.Sorted(maps.Keys(r.entries))
}

// Methods returns the wavelength methods known for passband in sorted order.
func (r *Registry) Methods(passband string) ([]schema.WavelengthMethod, error) {
	e, ok := r.entries[passband]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPassband, passband)
	}
	return slices.Sorted(maps.Keys(e.Wavelengths)), nil
}

// Definitions returns every registry entry sorted by passband name.
func (r *Registry) Definitions() []schema.PassbandDefinition {
	defs := make([]schema.PassbandDefinition, 0, len(r.entries))
	for _, name := range r.Passbands() {
		e := r.entries[name]
		defs = append(defs, schema.PassbandDefinition{
			Passband:    name,
			Wavelengths: maps.Clone(e.Wavelengths),
			Color:       e.Color,
			Marker:      e.Marker,
		})
	}
	return defs
}

// toFloat converts the numeric shapes yaml.v3 produces.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
