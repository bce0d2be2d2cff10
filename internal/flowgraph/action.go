package flowgraph

// Action is an opaque marker attached to a flow node. The engine core only
// needs two concrete markers: the body-invocation boundary and the failure
// cause; hosts may attach their own.
type Action interface {
	ActionKind() string
}

// BodyInvocationAction marks a node as the boundary of a body invocation.
type BodyInvocationAction struct{}

func (BodyInvocationAction) ActionKind() string { return "body-invocation" }

// ErrorAction carries the failure cause of an abnormally completed invocation.
type ErrorAction struct {
	Cause error
}

func (*ErrorAction) ActionKind() string { return "error" }
