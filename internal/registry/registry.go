// Package registry holds the step descriptors known to one engine instance.
// The scheduler consults it to stamp start nodes with the step type that
// opened a body, and hosts use it to validate descriptors before any graph
// node is recorded.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty/convert"

	"github.com/specialistvlad/stepflow/internal/manifest"
)

// Registry is the set of step descriptors for a single engine instance.
type Registry struct {
	descriptors map[string]*manifest.Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{descriptors: make(map[string]*manifest.Descriptor)}
}

// Add registers a descriptor. Duplicate types are a configuration bug and
// fail fast.
func (r *Registry) Add(d *manifest.Descriptor) error {
	if d == nil || d.Type == "" {
		return fmt.Errorf("registry: descriptor without a type")
	}
	if _, dup := r.descriptors[d.Type]; dup {
		return fmt.Errorf("registry: step %q registered twice", d.Type)
	}
	r.descriptors[d.Type] = d
	return nil
}

// AddAll registers every descriptor from a loaded manifest set, in a stable
// order so duplicate errors are deterministic.
func (r *Registry) AddAll(ds map[string]*manifest.Descriptor) error {
	types := make([]string, 0, len(ds))
	for t := range ds {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		if err := r.Add(ds[t]); err != nil {
			return err
		}
	}
	return nil
}

// Lookup resolves a descriptor by step type.
func (r *Registry) Lookup(stepType string) (*manifest.Descriptor, bool) {
	d, ok := r.descriptors[stepType]
	return d, ok
}

// Types returns all registered step types, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.descriptors))
	for t := range r.descriptors {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Validate performs a strict parity check over the registered descriptors:
// required parameters may not carry defaults, and defaults must convert to
// their declared types. The loader enforces the latter for parsed manifests,
// so a violation here means a descriptor was assembled by hand incorrectly.
func (r *Registry) Validate() error {
	var errs []string
	for _, t := range r.Types() {
		d := r.descriptors[t]
		names := make([]string, 0, len(d.Params))
		for name := range d.Params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := d.Params[name]
			if p.Default == nil {
				continue
			}
			if !p.Optional {
				errs = append(errs, fmt.Sprintf("step '%s': param '%s' has a default but is not optional", t, name))
			}
			if _, err := convert.Convert(*p.Default, p.Type); err != nil {
				errs = append(errs, fmt.Sprintf("step '%s': param '%s': default does not match type '%s': %v", t, name, p.Type.FriendlyName(), err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
