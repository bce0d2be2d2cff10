package invoker

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/stepflow/internal/durable"
	"github.com/specialistvlad/stepflow/internal/outcome"
	"github.com/specialistvlad/stepflow/internal/thread"
)

// Callback receives the terminal outcome of a body invocation, exactly once.
// Implementations must be durable: a suspended body may complete after a
// restart, so the callback is persisted inside the continuation chain and
// rebuilt before it fires. A returned error is an engine-level failure, not a
// body failure.
type Callback interface {
	OnSuccess(ctx context.Context, v cty.Value) error
	OnFailure(ctx context.Context, cause error) error
}

// Tee fans one completion out to two callbacks. Both arms fire even if the
// first returns an error.
type Tee struct {
	First  Callback
	Second Callback
}

func (t *Tee) OnSuccess(ctx context.Context, v cty.Value) error {
	return errors.Join(t.First.OnSuccess(ctx, v), t.Second.OnSuccess(ctx, v))
}

func (t *Tee) OnFailure(ctx context.Context, cause error) error {
	return errors.Join(t.First.OnFailure(ctx, cause), t.Second.OnFailure(ctx, cause))
}

func (t *Tee) DurableKind() string { return "invoker.tee" }

// BoardCallback records the completion on the owning group's board under a
// fixed key. It holds no live references, which makes it trivially durable;
// the group is reached through the unit driving the callback.
type BoardCallback struct {
	Key string `msgpack:"key"`
}

func (b BoardCallback) OnSuccess(ctx context.Context, v cty.Value) error {
	return b.post(ctx, outcome.Value(v))
}

func (b BoardCallback) OnFailure(ctx context.Context, cause error) error {
	return b.post(ctx, outcome.Failure(cause))
}

func (b BoardCallback) post(ctx context.Context, o outcome.Outcome) error {
	u, err := thread.Current(ctx)
	if err != nil {
		return fmt.Errorf("invoker: completion %q: %w", b.Key, err)
	}
	u.Group().SetCompletion(b.Key, o)
	return nil
}

func (b BoardCallback) DurableKind() string { return "invoker.board" }

func marshalCallback(c Callback) ([]byte, error) {
	d, ok := c.(durable.Durable)
	if !ok {
		return nil, fmt.Errorf("invoker: callback %T is not durable", c)
	}
	return durable.Marshal(d)
}

func unmarshalCallback(b []byte) (Callback, error) {
	d, err := durable.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	c, ok := d.(Callback)
	if !ok {
		return nil, fmt.Errorf("invoker: restored %T is not a callback", d)
	}
	return c, nil
}

type teeWire struct {
	First  []byte `msgpack:"first"`
	Second []byte `msgpack:"second"`
}

func init() {
	durable.RegisterSelf[BoardCallback]("invoker.board")

	durable.Register("invoker.tee", durable.Codec{
		Encode: func(d durable.Durable) ([]byte, error) {
			t := d.(*Tee)
			fb, err := marshalCallback(t.First)
			if err != nil {
				return nil, err
			}
			sb, err := marshalCallback(t.Second)
			if err != nil {
				return nil, err
			}
			return msgpack.Marshal(teeWire{First: fb, Second: sb})
		},
		Decode: func(b []byte) (durable.Durable, error) {
			var w teeWire
			if err := msgpack.Unmarshal(b, &w); err != nil {
				return nil, err
			}
			first, err := unmarshalCallback(w.First)
			if err != nil {
				return nil, err
			}
			second, err := unmarshalCallback(w.Second)
			if err != nil {
				return nil, err
			}
			return &Tee{First: first, Second: second}, nil
		},
	})
}
