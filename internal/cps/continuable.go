package cps

import (
	"context"
	"fmt"

	"github.com/specialistvlad/stepflow/internal/durable"
	"github.com/specialistvlad/stepflow/internal/outcome"
)

// Continuable drives a continuation chain. Each Run call trampolines through
// the chain until the computation either terminates or yields; a suspended
// Continuable holds only the continuation it will resume, so it can be
// snapshotted and rebuilt on the other side of a restart.
type Continuable struct {
	k      Continuation
	done   bool
	result outcome.Outcome
}

// NewContinuable wraps the entry continuation of a computation.
func NewContinuable(k Continuation) *Continuable {
	return &Continuable{k: k}
}

// Done reports whether the computation has terminated.
func (c *Continuable) Done() bool {
	return c.done
}

// Result returns the terminal outcome. Only meaningful once Done.
func (c *Continuable) Result() outcome.Outcome {
	return c.result
}

// Run feeds o into the computation and drives it until it terminates or
// suspends. It returns the terminal or yielded outcome, whether the
// computation is done, and a non-nil error only for engine-level failures.
func (c *Continuable) Run(ctx context.Context, o outcome.Outcome) (outcome.Outcome, bool, error) {
	if c.done {
		return outcome.Outcome{}, true, fmt.Errorf("cps: resume of a completed computation")
	}
	k := c.k
	for {
		n, err := k.Receive(ctx, o)
		if err != nil {
			return outcome.Outcome{}, false, err
		}
		if n.Cont == nil {
			c.k = nil
			c.done = true
			c.result = n.Outcome
			return n.Outcome, true, nil
		}
		if n.Yield {
			c.k = n.Cont
			return n.Outcome, false, nil
		}
		k, o = n.Cont, n.Outcome
	}
}

// Snapshot encodes the suspended continuation chain. Snapshotting a completed
// computation is a programming error.
func (c *Continuable) Snapshot() ([]byte, error) {
	if c.done || c.k == nil {
		return nil, fmt.Errorf("cps: snapshot of a completed computation")
	}
	d, ok := c.k.(durable.Durable)
	if !ok {
		return nil, fmt.Errorf("cps: continuation %T is not durable", c.k)
	}
	return durable.Marshal(d)
}

// Restore rebuilds a suspended Continuable from a Snapshot.
func Restore(b []byte) (*Continuable, error) {
	d, err := durable.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	k, ok := d.(Continuation)
	if !ok {
		return nil, fmt.Errorf("cps: restored %T is not a continuation", d)
	}
	return NewContinuable(k), nil
}
