package durable

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// MarshalValue encodes a cty value together with its type, so that
// dynamically typed engine values survive a round trip. cty.NilVal encodes to
// nil bytes.
func MarshalValue(v cty.Value) ([]byte, error) {
	if v == cty.NilVal {
		return nil, nil
	}
	b, err := ctyjson.Marshal(v, cty.DynamicPseudoType)
	if err != nil {
		return nil, fmt.Errorf("durable: marshal value: %w", err)
	}
	return b, nil
}

// UnmarshalValue reverses MarshalValue.
func UnmarshalValue(b []byte) (cty.Value, error) {
	if len(b) == 0 {
		return cty.NilVal, nil
	}
	v, err := ctyjson.Unmarshal(b, cty.DynamicPseudoType)
	if err != nil {
		return cty.NilVal, fmt.Errorf("durable: unmarshal value: %w", err)
	}
	return v, nil
}
