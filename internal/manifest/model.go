// Package manifest loads step descriptors from HCL manifest files. A
// descriptor is the static shape of a step: its type name, whether it takes a
// body, and its typed parameters. The engine core records descriptor types on
// flow-graph start nodes; the step library implementing the behavior behind a
// descriptor lives outside this module.
package manifest

import (
	"github.com/zclconf/go-cty/cty"
)

// Descriptor is the format-agnostic representation of a `step` block.
type Descriptor struct {
	// Type is the step's unique type name, e.g. "retry".
	Type        string
	Description string
	// TakesBody marks steps whose invocation carries a nested body. Only
	// such steps may be handed to the body-invocation scheduler.
	TakesBody bool
	Params    map[string]*Param
}

// Param defines a single typed parameter of a step.
type Param struct {
	Name        string
	Type        cty.Type
	Description string
	Optional    bool
	Default     *cty.Value
}
