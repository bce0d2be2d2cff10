package cps

import (
	"github.com/specialistvlad/stepflow/internal/outcome"
)

// Env is the lexical environment a body program runs in: where a normal
// completion returns and where a raised failure goes. Environments chain like
// nested call frames; they are immutable after construction and durable so
// that a suspended body can be rebuilt after a restart.
type Env struct {
	ReturnTo Continuation
	Handler  Continuation // nil when this frame installs no failure handler
	Parent   *Env
}

// NewCallEnv creates the environment of a function-call frame: normal
// completion flows into returnTo.
func NewCallEnv(returnTo Continuation) *Env {
	return &Env{ReturnTo: returnTo}
}

// WithHandler layers a try-block frame over e, routing raised failures into h.
func (e *Env) WithHandler(h Continuation) *Env {
	return &Env{ReturnTo: e.ReturnTo, Handler: h, Parent: e}
}

// HandlerFor walks the chain to the nearest installed failure handler.
// It returns nil when no frame handles failures.
func (e *Env) HandlerFor() Continuation {
	for f := e; f != nil; f = f.Parent {
		if f.Handler != nil {
			return f.Handler
		}
	}
	return nil
}

// Raise routes a failure to the nearest handler. With no handler installed the
// computation terminates abnormally with the failure as its result.
func (e *Env) Raise(err error) Next {
	o := outcome.Failure(err)
	if h := e.HandlerFor(); h != nil {
		return Feed(o, h)
	}
	return Halt(o)
}

func (e *Env) DurableKind() string { return "cps.env" }
