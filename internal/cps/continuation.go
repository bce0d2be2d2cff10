// Package cps is the continuation engine underneath the body-invocation
// scheduler. A computation is a chain of Continuations driven by a
// Continuable; at any receive point it may yield control back to its driver
// and be resumed arbitrarily later, including after a process restart, which
// is why every continuation that can be live at a suspension point is a
// registered durable kind.
package cps

import (
	"context"

	"github.com/specialistvlad/stepflow/internal/outcome"
)

// Continuation is one step of a suspendable computation. Receive consumes the
// incoming outcome and says what happens next. A non-nil error is an
// engine-level failure (for example a flow-graph write that cannot be
// recorded); it aborts the owning execution unit and is never routed through
// body-level failure handling.
type Continuation interface {
	Receive(ctx context.Context, o outcome.Outcome) (Next, error)
}

// Next describes the transition out of a Receive call.
type Next struct {
	// Outcome to feed into Cont, or the terminal/yielded outcome.
	Outcome outcome.Outcome
	// Cont is the continuation to run next. A nil Cont terminates the
	// computation with Outcome as its result.
	Cont Continuation
	// Yield stops the drive loop before feeding Cont: the computation
	// suspends, Outcome is handed to the driver, and Cont is resumed with
	// whatever outcome arrives later.
	Yield bool
}

// Feed continues immediately into k with outcome o.
func Feed(o outcome.Outcome, k Continuation) Next {
	return Next{Outcome: o, Cont: k}
}

// Yield suspends the computation, handing o to the driver; k receives the
// outcome the driver eventually resumes with.
func Yield(o outcome.Outcome, k Continuation) Next {
	return Next{Outcome: o, Cont: k, Yield: true}
}

// Halt terminates the computation with o as its result.
func Halt(o outcome.Outcome) Next {
	return Next{Outcome: o}
}

// HaltCont terminates the computation with whatever outcome it receives. It is
// the terminal continuation of a top-level program.
type HaltCont struct{}

func (HaltCont) Receive(_ context.Context, o outcome.Outcome) (Next, error) {
	return Halt(o), nil
}

func (HaltCont) DurableKind() string { return "cps.halt" }
