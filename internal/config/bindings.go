// Package config loads error trigger bindings from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/venkytv/nats-errortrigger/pkg/errortrigger"
)

// DefaultBindingName names the binding used when no file is configured.
const DefaultBindingName = "all-errors"

// File is the top-level structure of a bindings file.
type File struct {
	Bindings []BindingSpec `yaml:"bindings"`
}

// BindingSpec describes one binding. Window and Throttle accept "00:05:00"
// or "5m" notation. An omitted Threshold fires on every failure; an explicit
// one must be at least 1.
type BindingSpec struct {
	Name      string `yaml:"name"`
	Scope     string `yaml:"scope"`
	Function  string `yaml:"function,omitempty"`
	Window    string `yaml:"window,omitempty"`
	Threshold *int   `yaml:"threshold,omitempty"`
	Throttle  string `yaml:"throttle,omitempty"`
}

// Default fires on every failure of every function.
func Default() File {
	return File{Bindings: []BindingSpec{{
		Name:  DefaultBindingName,
		Scope: string(errortrigger.ScopeGlobal),
	}}}
}

// Load reads a bindings file. An empty path yields Default.
func Load(path string) (File, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read bindings file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("failed to parse bindings file %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes bindings from YAML.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, err
	}
	if len(f.Bindings) == 0 {
		return File{}, fmt.Errorf("no bindings defined")
	}
	return f, nil
}

// Resolve converts every spec into a binding whose handler is returned by
// handlerFor.
func (f File) Resolve(handlerFor func(name string) errortrigger.Handler) ([]errortrigger.Binding, error) {
	out := make([]errortrigger.Binding, 0, len(f.Bindings))
	for _, spec := range f.Bindings {
		b, err := spec.Binding(handlerFor(spec.Name))
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Binding converts the spec into a validated binding.
func (s BindingSpec) Binding(h errortrigger.Handler) (errortrigger.Binding, error) {
	window, err := errortrigger.ParseWindow(s.Window)
	if err != nil {
		return errortrigger.Binding{}, fmt.Errorf("binding %q: %w", s.Name, err)
	}
	throttle, err := errortrigger.ParseWindow(s.Throttle)
	if err != nil {
		return errortrigger.Binding{}, fmt.Errorf("binding %q throttle: %w", s.Name, err)
	}

	var threshold int
	if s.Threshold != nil {
		if *s.Threshold < 1 {
			return errortrigger.Binding{}, &errortrigger.ConfigurationError{
				Binding: s.Name,
				Field:   "threshold",
				Reason:  fmt.Sprintf("must be at least 1, got %d", *s.Threshold),
			}
		}
		threshold = *s.Threshold
	}

	scope := errortrigger.Scope(s.Scope)
	if scope == "" {
		scope = errortrigger.ScopeGlobal
		if s.Function != "" {
			scope = errortrigger.ScopeFunction
		}
	}
	b := errortrigger.Binding{
		Name:     s.Name,
		Scope:    scope,
		Function: s.Function,
		Config: errortrigger.TriggerConfig{
			Window:    window,
			Threshold: threshold,
			Throttle:  throttle,
		},
		Handler: h,
	}
	if err := b.Validate(); err != nil {
		return errortrigger.Binding{}, err
	}
	return b, nil
}
