package invoker

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/specialistvlad/stepflow/internal/cps"
	"github.com/specialistvlad/stepflow/internal/ctxlog"
	"github.com/specialistvlad/stepflow/internal/durable"
	"github.com/specialistvlad/stepflow/internal/flowgraph"
	"github.com/specialistvlad/stepflow/internal/outcome"
	"github.com/specialistvlad/stepflow/internal/thread"
)

// The adapters are the terminal continuations of an asynchronous body: the
// success adapter is the body's return target, the failure adapter its
// outermost failure handler. Each closes the block by appending the step-end
// node, then fires the completion callback, in that order, so a callback
// observer always finds the block closed in the execution record. They
// reference their start node by id, never by pointer, because the adapter may
// fire in a process that reconstructed the graph from persisted state.

type successAdapter struct {
	Callback Callback
	StartID  string
}

func (a *successAdapter) Receive(ctx context.Context, o outcome.Outcome) (cps.Next, error) {
	if err := closeBlock(ctx, a.StartID, nil); err != nil {
		return cps.Next{}, err
	}
	if err := a.Callback.OnSuccess(ctx, o.Val()); err != nil {
		return cps.Next{}, err
	}
	return cps.Halt(o), nil
}

func (a *successAdapter) DurableKind() string { return "invoker.success" }

type failureAdapter struct {
	Callback Callback
	StartID  string
}

func (a *failureAdapter) Receive(ctx context.Context, o outcome.Outcome) (cps.Next, error) {
	cause := o.Cause()
	if cause == nil {
		cause = fmt.Errorf("invoker: failure adapter received a success outcome")
		o = outcome.Failure(cause)
	}
	if err := closeBlock(ctx, a.StartID, &flowgraph.ErrorAction{Cause: cause}); err != nil {
		return cps.Next{}, err
	}
	if err := a.Callback.OnFailure(ctx, cause); err != nil {
		return cps.Next{}, err
	}
	return cps.Halt(o), nil
}

func (a *failureAdapter) DurableKind() string { return "invoker.failure" }

// closeBlock appends the step-end node for startID on the driving unit's head.
// The end node carries the same body-invocation boundary marker as its start
// node. A graph that cannot be extended is an engine-level failure.
func closeBlock(ctx context.Context, startID string, errAction *flowgraph.ErrorAction) error {
	u, err := thread.Current(ctx)
	if err != nil {
		return fmt.Errorf("invoker: closing block for start %s: %w", startID, err)
	}
	head := u.Head()
	if _, err := head.Store().Node(ctx, startID); err != nil {
		return fmt.Errorf("invoker: closing block for start %s: %w", startID, err)
	}
	end := flowgraph.NewStepEndNode(startID, head.ID(), flowgraph.BodyInvocationAction{})
	if errAction != nil {
		end.AddAction(errAction)
	}
	if err := head.SetNewHead(ctx, end); err != nil {
		return fmt.Errorf("invoker: closing block for start %s: %w", startID, err)
	}
	ctxlog.FromContext(ctx).Debug("Closed body-invocation block.", "startID", startID, "endID", end.ID)
	return nil
}

type adapterWire struct {
	Callback []byte `msgpack:"callback"`
	StartID  string `msgpack:"start_id"`
}

func registerAdapter[T durable.Durable](kind string, fields func(T) (Callback, string), build func(Callback, string) durable.Durable) {
	durable.Register(kind, durable.Codec{
		Encode: func(d durable.Durable) ([]byte, error) {
			cb, startID := fields(d.(T))
			cbb, err := marshalCallback(cb)
			if err != nil {
				return nil, err
			}
			return msgpack.Marshal(adapterWire{Callback: cbb, StartID: startID})
		},
		Decode: func(b []byte) (durable.Durable, error) {
			var w adapterWire
			if err := msgpack.Unmarshal(b, &w); err != nil {
				return nil, err
			}
			cb, err := unmarshalCallback(w.Callback)
			if err != nil {
				return nil, err
			}
			return build(cb, w.StartID), nil
		},
	})
}

func init() {
	registerAdapter("invoker.success",
		func(a *successAdapter) (Callback, string) { return a.Callback, a.StartID },
		func(cb Callback, startID string) durable.Durable {
			return &successAdapter{Callback: cb, StartID: startID}
		})
	registerAdapter("invoker.failure",
		func(a *failureAdapter) (Callback, string) { return a.Callback, a.StartID },
		func(cb Callback, startID string) durable.Durable {
			return &failureAdapter{Callback: cb, StartID: startID}
		})
}
