package cps

import (
	"context"
	"errors"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/stepflow/internal/outcome"
)

// Program is a compiled body: Entry returns the continuation that starts it.
// Normal completion feeds the body's result into k; raised failures route
// through env. The compiler that produces programs from author-written
// scripts lives outside this module; the types below are the minimal set a
// host (and this module's own tests) need to exercise the engine.
type Program interface {
	Entry(env *Env, k Continuation) Continuation
}

// Invocation is the explicit suspend signal: a body evaluation that cannot
// complete synchronously hands back the program that must be driven
// asynchronously instead.
type Invocation struct {
	Program Program
}

// Return completes immediately with a fixed value.
type Return struct {
	Value cty.Value
}

func (p Return) Entry(_ *Env, k Continuation) Continuation {
	return &returnCont{Value: p.Value, K: k}
}

type returnCont struct {
	Value cty.Value
	K     Continuation
}

func (c *returnCont) Receive(_ context.Context, _ outcome.Outcome) (Next, error) {
	return Feed(outcome.Value(c.Value), c.K), nil
}

func (c *returnCont) DurableKind() string { return "cps.return" }

// Fail raises a failure into the nearest handler.
type Fail struct {
	Message string
}

func (p Fail) Entry(env *Env, _ Continuation) Continuation {
	return &failCont{Message: p.Message, Env: env}
}

type failCont struct {
	Message string
	Env     *Env
}

func (c *failCont) Receive(_ context.Context, _ outcome.Outcome) (Next, error) {
	return c.Env.Raise(errors.New(c.Message)), nil
}

func (c *failCont) DurableKind() string { return "cps.fail" }

// Await suspends until an outcome arrives from outside, then continues with
// it. A failure outcome is raised instead of being passed along, so external
// cancellation and step failures flow through the body's failure handling.
type Await struct{}

func (Await) Entry(env *Env, k Continuation) Continuation {
	return &awaitCont{Env: env, K: k}
}

type awaitCont struct {
	Env *Env
	K   Continuation
}

func (c *awaitCont) Receive(_ context.Context, o outcome.Outcome) (Next, error) {
	// The first receive is the kick-off; park until the real outcome arrives.
	return Yield(o, &resumeCont{Env: c.Env, K: c.K}), nil
}

func (c *awaitCont) DurableKind() string { return "cps.await" }

type resumeCont struct {
	Env *Env
	K   Continuation
}

func (c *resumeCont) Receive(_ context.Context, o outcome.Outcome) (Next, error) {
	if o.Failed() {
		return c.Env.Raise(o.Cause()), nil
	}
	return Feed(o, c.K), nil
}

func (c *resumeCont) DurableKind() string { return "cps.resume" }

// Seq runs programs in order; the outcome of the last one wins.
type Seq struct {
	Items []Program
}

func (p Seq) Entry(env *Env, k Continuation) Continuation {
	next := k
	for i := len(p.Items) - 1; i >= 0; i-- {
		next = p.Items[i].Entry(env, next)
	}
	return next
}
