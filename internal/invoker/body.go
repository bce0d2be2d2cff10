package invoker

import (
	"context"
	"errors"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/stepflow/internal/cps"
	"github.com/specialistvlad/stepflow/internal/thread"
)

// BodyReference resolves the executable form of a step's body for the unit
// that is about to run it. Resolution can fail (for example a body compiled
// against state that no longer exists); that failure is engine-level, reported
// to the scheduler's caller rather than through the completion callback.
type BodyReference interface {
	GetBody(u *thread.Unit) (Callable, error)
}

// Callable is a body ready to be evaluated once.
type Callable interface {
	Call(ctx context.Context) Result
}

// Result is the tagged result of a body evaluation. Exactly one branch is
// taken: a synchronous value, a synchronous failure, or a pending invocation
// that must be driven asynchronously by its own execution unit.
type Result struct {
	Value   cty.Value
	Err     error
	Pending *cps.Invocation
}

// ValueBody completes synchronously with a fixed value.
type ValueBody struct {
	Value cty.Value
}

func (b ValueBody) GetBody(*thread.Unit) (Callable, error) { return b, nil }

func (b ValueBody) Call(context.Context) Result {
	return Result{Value: b.Value}
}

// FailBody fails synchronously.
type FailBody struct {
	Message string
}

func (b FailBody) GetBody(*thread.Unit) (Callable, error) { return b, nil }

func (b FailBody) Call(context.Context) Result {
	return Result{Err: errors.New(b.Message)}
}

// ProgramBody suspends into a continuation program driven by a new execution
// unit.
type ProgramBody struct {
	Program cps.Program
}

func (b ProgramBody) GetBody(*thread.Unit) (Callable, error) { return b, nil }

func (b ProgramBody) Call(context.Context) Result {
	return Result{Pending: &cps.Invocation{Program: b.Program}}
}
