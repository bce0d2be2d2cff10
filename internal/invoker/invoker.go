// Package invoker schedules body invocations: it records the start of a body
// in the execution graph, evaluates the body, and either completes on the
// caller's turn or spawns a new execution unit whose continuation closes the
// block and fires the completion callback when the body eventually finishes.
package invoker

import (
	"context"
	"fmt"

	"github.com/specialistvlad/stepflow/internal/cps"
	"github.com/specialistvlad/stepflow/internal/ctxlog"
	"github.com/specialistvlad/stepflow/internal/durable"
	"github.com/specialistvlad/stepflow/internal/flowgraph"
	"github.com/specialistvlad/stepflow/internal/manifest"
	"github.com/specialistvlad/stepflow/internal/outcome"
	"github.com/specialistvlad/stepflow/internal/scope"
	"github.com/specialistvlad/stepflow/internal/thread"
)

// Invoker is a configured, not-yet-started body invocation. Build one with
// New, refine it with the With methods, then Start it once.
type Invoker struct {
	descriptor   *manifest.Descriptor
	body         BodyReference
	callback     Callback
	startActions []flowgraph.Action
	overrides    []scope.Override
}

// New validates and assembles an invocation of the body of the step described
// by desc. The callback must be durable; a callback that cannot survive a
// restart would silently break completion delivery, so it is rejected here
// rather than at suspension time.
func New(desc *manifest.Descriptor, body BodyReference, callback Callback) (*Invoker, error) {
	if desc == nil || desc.Type == "" {
		return nil, fmt.Errorf("invoker: step descriptor is required")
	}
	if !desc.TakesBody {
		return nil, fmt.Errorf("invoker: step %q does not take a body", desc.Type)
	}
	if body == nil {
		return nil, fmt.Errorf("invoker: step %q: body is required", desc.Type)
	}
	if callback == nil {
		return nil, fmt.Errorf("invoker: step %q: completion callback is required", desc.Type)
	}
	if !durable.IsDurable(callback) {
		return nil, fmt.Errorf("invoker: step %q: callback %T is not durable", desc.Type, callback)
	}
	return &Invoker{descriptor: desc, body: body, callback: callback}, nil
}

// WithStartAction attaches an extra marker to the start node, alongside the
// body-invocation marker that is always present.
func (inv *Invoker) WithStartAction(a flowgraph.Action) *Invoker {
	if a != nil {
		inv.startActions = append(inv.startActions, a)
	}
	return inv
}

// WithOverrides layers context variable overrides over the calling unit's
// scope for the duration of the body. Later overrides shadow earlier ones.
func (inv *Invoker) WithOverrides(ovs ...scope.Override) *Invoker {
	inv.overrides = append(inv.overrides, ovs...)
	return inv
}

// StartOnCurrentHead starts the invocation on the calling unit's own graph
// head.
func (inv *Invoker) StartOnCurrentHead(ctx context.Context, current *thread.Unit) error {
	return inv.Start(ctx, current, current.Head(), nil)
}

// Start records the start node on head and evaluates the body. If the body
// completes on this turn the callback fires before Start returns and no new
// unit is created; otherwise a new execution unit is registered with the
// group and kicked off, and the callback fires from that unit when the body
// finishes. The optional extra callback is teed with the configured one, both
// observing the same single completion. A non-nil error is an engine-level
// failure: the execution record could not be extended, or a callback broke
// its contract, and no completion was or will be delivered.
func (inv *Invoker) Start(ctx context.Context, current *thread.Unit, head *flowgraph.Head, extra Callback) error {
	logger := ctxlog.With(ctx, "stepType", inv.descriptor.Type)

	callback := inv.callback
	if extra != nil {
		if !durable.IsDurable(extra) {
			return fmt.Errorf("invoker: step %q: extra callback %T is not durable", inv.descriptor.Type, extra)
		}
		callback = &Tee{First: inv.callback, Second: extra}
	}

	actions := make([]flowgraph.Action, 0, len(inv.startActions)+1)
	actions = append(actions, flowgraph.BodyInvocationAction{})
	actions = append(actions, inv.startActions...)
	start := flowgraph.NewStepStartNode(inv.descriptor.Type, head.ID(), actions...)
	if err := head.SetNewHead(ctx, start); err != nil {
		return fmt.Errorf("invoker: step %q: recording start: %w", inv.descriptor.Type, err)
	}
	logger.Debug("Recorded body-invocation start.", "startID", start.ID)

	callable, err := inv.body.GetBody(current)
	if err != nil {
		return fmt.Errorf("invoker: step %q: resolving body: %w", inv.descriptor.Type, err)
	}

	res := callable.Call(ctx)
	if res.Pending == nil {
		// Synchronous completion: the callback fires on the caller's turn
		// and the block stays open with only its start node recorded.
		cbCtx := thread.WithCurrent(ctx, current)
		if res.Err != nil {
			logger.Debug("Body failed synchronously.", "error", res.Err)
			return callback.OnFailure(cbCtx, res.Err)
		}
		logger.Debug("Body completed synchronously.")
		return callback.OnSuccess(cbCtx, res.Value)
	}

	success := &successAdapter{Callback: callback, StartID: start.ID}
	failure := &failureAdapter{Callback: callback, StartID: start.ID}
	env := cps.NewCallEnv(success).WithHandler(failure)
	entry := res.Pending.Program.Entry(env, success)

	bodyScope := current.Scope().With(inv.overrides...)
	unit := current.Group().AddUnit(cps.NewContinuable(entry), head, bodyScope)
	unit.Resume(outcome.Empty())
	logger.Debug("Body suspended; spawned execution unit.", "unitID", unit.ID(), "startID", start.ID)
	return nil
}
