// Package scope implements the chained, read-only variable scope visible to
// one body invocation. A child scope layers invocation-time overrides over its
// parent; lookups that miss the child layer fall through to the parent, and
// layering never mutates the parent.
package scope

import (
	"github.com/zclconf/go-cty/cty"
)

// Override is one context variable supplied at invocation time.
type Override struct {
	Name  string
	Value cty.Value
}

// Scope is one layer of the chain. It is append-only at construction and
// immutable afterwards; a Scope lives exactly as long as the execution unit
// it was built for.
type Scope struct {
	parent *Scope
	vars   map[string]cty.Value
}

// New creates a root scope from the given overrides.
func New(overrides ...Override) *Scope {
	return (*Scope)(nil).With(overrides...)
}

// With layers overrides over s, returning the child scope. s may be nil.
func (s *Scope) With(overrides ...Override) *Scope {
	vars := make(map[string]cty.Value, len(overrides))
	for _, ov := range overrides {
		vars[ov.Name] = ov.Value
	}
	return &Scope{parent: s, vars: vars}
}

// Get resolves a variable, trying this layer first and then delegating up the
// chain.
func (s *Scope) Get(name string) (cty.Value, bool) {
	for layer := s; layer != nil; layer = layer.parent {
		if v, ok := layer.vars[name]; ok {
			return v, true
		}
	}
	return cty.NilVal, false
}

// Layers flattens the chain for persistence, root layer first.
func (s *Scope) Layers() []map[string]cty.Value {
	var chain []*Scope
	for layer := s; layer != nil; layer = layer.parent {
		chain = append(chain, layer)
	}
	layers := make([]map[string]cty.Value, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		vars := make(map[string]cty.Value, len(chain[i].vars))
		for k, v := range chain[i].vars {
			vars[k] = v
		}
		layers = append(layers, vars)
	}
	return layers
}

// FromLayers rebuilds a scope chain produced by Layers.
func FromLayers(layers []map[string]cty.Value) *Scope {
	var s *Scope
	for _, vars := range layers {
		overrides := make([]Override, 0, len(vars))
		for k, v := range vars {
			overrides = append(overrides, Override{Name: k, Value: v})
		}
		s = s.With(overrides...)
	}
	return s
}
