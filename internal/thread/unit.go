// Package thread implements execution units and their group: the
// scheduler-visible handles for running or suspended continuations. A unit is
// a coroutine-like computation driven by explicit resume calls from its
// group; while suspended it occupies no goroutine, and its whole live state
// (continuation, graph head, scope) can be snapshotted and rebuilt after a
// process restart.
package thread

import (
	"context"
	"fmt"

	"github.com/specialistvlad/stepflow/internal/cps"
	"github.com/specialistvlad/stepflow/internal/flowgraph"
	"github.com/specialistvlad/stepflow/internal/outcome"
	"github.com/specialistvlad/stepflow/internal/scope"
)

// Unit is a single running or suspended continuation with its own graph head
// and context scope.
type Unit struct {
	id    int32
	group *Group
	cont  *cps.Continuable // nil for root units, which are never resumed
	head  *flowgraph.Head
	scope *scope.Scope
}

// ID returns the unit's group-local identifier.
func (u *Unit) ID() int32 {
	return u.id
}

// Group returns the owning execution group.
func (u *Unit) Group() *Group {
	return u.group
}

// Head returns the unit's own append-only graph frontier.
func (u *Unit) Head() *flowgraph.Head {
	return u.head
}

// Scope returns the context variable scope the unit runs under.
func (u *Unit) Scope() *scope.Scope {
	return u.scope
}

// Resume queues o for delivery into the unit's continuation. It returns
// immediately; the group's driver performs the actual work.
func (u *Unit) Resume(o outcome.Outcome) {
	u.group.enqueue(u.id, o)
}

// key is an unexported context key type, mirroring ctxlog.
type key struct{}

var unitKey = key{}

// WithCurrent embeds the driving unit in the context. The group driver does
// this before every resume so that durable continuations can reach their
// unit's head and scope without holding live references.
func WithCurrent(ctx context.Context, u *Unit) context.Context {
	return context.WithValue(ctx, unitKey, u)
}

// Current extracts the driving unit from the context. Code that runs outside
// a unit (for example a callback fired on the synchronous path before any
// unit exists) must be given one explicitly by its caller.
func Current(ctx context.Context) (*Unit, error) {
	if u, ok := ctx.Value(unitKey).(*Unit); ok {
		return u, nil
	}
	return nil, fmt.Errorf("thread: no execution unit in context")
}
