// Package outcome defines the value-or-failure result passed into and out of
// continuations. An Outcome is immutable: it carries either a produced value
// or a failure cause, never both.
package outcome

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Outcome is the terminal payload of a body evaluation or a resumption.
// The zero value is a successful empty outcome.
type Outcome struct {
	value cty.Value
	cause error
}

// Value wraps a successfully produced value.
func Value(v cty.Value) Outcome {
	return Outcome{value: v}
}

// Failure wraps a failure cause. A nil cause is a programming error and is
// normalized to an opaque failure so that Failed() stays truthful.
func Failure(err error) Outcome {
	if err == nil {
		err = fmt.Errorf("outcome: failure with nil cause")
	}
	return Outcome{cause: err}
}

// Empty is the no-op outcome used to kick a freshly created execution unit
// into motion.
func Empty() Outcome {
	return Outcome{value: cty.NilVal}
}

// Failed reports whether the outcome carries a failure cause.
func (o Outcome) Failed() bool {
	return o.cause != nil
}

// Val returns the produced value. It is cty.NilVal for failures and for the
// empty outcome.
func (o Outcome) Val() cty.Value {
	return o.value
}

// Cause returns the failure cause, or nil for successful outcomes.
func (o Outcome) Cause() error {
	return o.cause
}

func (o Outcome) String() string {
	if o.Failed() {
		return fmt.Sprintf("failure(%v)", o.cause)
	}
	if o.value == cty.NilVal {
		return "empty"
	}
	return fmt.Sprintf("value(%v)", o.value)
}
