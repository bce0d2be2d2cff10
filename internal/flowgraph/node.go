// Package flowgraph models the persisted execution graph: the append-only
// record of body-invocation boundaries. Nodes are looked up by id, never held
// by reference across a suspension boundary, so a reconstructed unit can still
// close the block it opened before a restart.
package flowgraph

import (
	"github.com/google/uuid"
)

// Kind distinguishes the node flavors this core records.
type Kind int

const (
	// KindStepStart opens a body invocation.
	KindStepStart Kind = iota
	// KindStepEnd closes the start node it references.
	KindStepEnd
)

func (k Kind) String() string {
	switch k {
	case KindStepStart:
		return "step-start"
	case KindStepEnd:
		return "step-end"
	default:
		return "unknown"
	}
}

// Node is a single vertex in the persisted execution graph.
type Node struct {
	// ID is the unique identifier of the node; end nodes reference their
	// start node by this id.
	ID string
	// Kind says whether the node opens or closes an invocation.
	Kind Kind
	// StepType references the descriptor of the step that invoked the body.
	// Only set on start nodes.
	StepType string
	// ParentID is the node this one extends: the graph head at creation
	// time. Empty for the first node of a run.
	ParentID string
	// StartID is the id of the start node a step-end node closes. Empty on
	// start nodes.
	StartID string
	// Actions are the markers attached to this node.
	Actions []Action
}

// NewStepStartNode creates the node that opens a body invocation, extending
// parentID.
func NewStepStartNode(stepType, parentID string, actions ...Action) *Node {
	return &Node{
		ID:       uuid.NewString(),
		Kind:     KindStepStart,
		StepType: stepType,
		ParentID: parentID,
		Actions:  actions,
	}
}

// NewStepEndNode creates the node that closes the start node startID,
// extending parentID.
func NewStepEndNode(startID, parentID string, actions ...Action) *Node {
	return &Node{
		ID:       uuid.NewString(),
		Kind:     KindStepEnd,
		ParentID: parentID,
		StartID:  startID,
		Actions:  actions,
	}
}

// AddAction attaches a marker. Only valid before the node is appended to a
// store; stored nodes are immutable.
func (n *Node) AddAction(a Action) {
	if a != nil {
		n.Actions = append(n.Actions, a)
	}
}

// HasBodyInvocation reports whether the node carries the body-invocation
// boundary marker.
func (n *Node) HasBodyInvocation() bool {
	for _, a := range n.Actions {
		if _, ok := a.(BodyInvocationAction); ok {
			return true
		}
	}
	return false
}

// ErrorCause returns the failure cause attached to the node, or nil.
func (n *Node) ErrorCause() error {
	for _, a := range n.Actions {
		if ea, ok := a.(*ErrorAction); ok {
			return ea.Cause
		}
	}
	return nil
}
