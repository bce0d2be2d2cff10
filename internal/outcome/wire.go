package outcome

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/specialistvlad/stepflow/internal/durable"
)

// RestoredError is a failure cause rebuilt from a snapshot. Only the message
// survives persistence; the original error chain does not.
type RestoredError struct {
	Message string
}

func (e *RestoredError) Error() string {
	return e.Message
}

// wire is the durable form of an Outcome.
type wire struct {
	Value  []byte `msgpack:"value"`
	Cause  string `msgpack:"cause"`
	Failed bool   `msgpack:"failed"`
}

// Marshal encodes an outcome for persistence.
func Marshal(o Outcome) ([]byte, error) {
	w := wire{Failed: o.Failed()}
	if o.Failed() {
		w.Cause = o.cause.Error()
	} else {
		vb, err := durable.MarshalValue(o.value)
		if err != nil {
			return nil, fmt.Errorf("outcome: %w", err)
		}
		w.Value = vb
	}
	return msgpack.Marshal(w)
}

// Unmarshal reverses Marshal.
func Unmarshal(b []byte) (Outcome, error) {
	var w wire
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return Outcome{}, fmt.Errorf("outcome: unmarshal: %w", err)
	}
	if w.Failed {
		return Failure(&RestoredError{Message: w.Cause}), nil
	}
	v, err := durable.UnmarshalValue(w.Value)
	if err != nil {
		return Outcome{}, fmt.Errorf("outcome: %w", err)
	}
	return Outcome{value: v}, nil
}
