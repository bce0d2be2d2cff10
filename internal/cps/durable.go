package cps

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/stepflow/internal/durable"
)

// The continuation chain is persisted as nested durable envelopes: each kind
// encodes its concrete fields and the envelopes of the continuations and
// environments it holds.

func marshalCont(k Continuation) ([]byte, error) {
	if k == nil {
		return nil, nil
	}
	d, ok := k.(durable.Durable)
	if !ok {
		return nil, fmt.Errorf("cps: continuation %T is not durable", k)
	}
	return durable.Marshal(d)
}

func unmarshalCont(b []byte) (Continuation, error) {
	if len(b) == 0 {
		return nil, nil
	}
	d, err := durable.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	k, ok := d.(Continuation)
	if !ok {
		return nil, fmt.Errorf("cps: restored %T is not a continuation", d)
	}
	return k, nil
}

func marshalEnv(e *Env) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	return durable.Marshal(e)
}

func unmarshalEnv(b []byte) (*Env, error) {
	if len(b) == 0 {
		return nil, nil
	}
	d, err := durable.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	e, ok := d.(*Env)
	if !ok {
		return nil, fmt.Errorf("cps: restored %T is not an environment", d)
	}
	return e, nil
}

type envWire struct {
	ReturnTo []byte `msgpack:"return_to"`
	Handler  []byte `msgpack:"handler"`
	Parent   []byte `msgpack:"parent"`
}

type contWire struct {
	Env   []byte `msgpack:"env"`
	K     []byte `msgpack:"k"`
	Value []byte `msgpack:"value,omitempty"`
	Msg   string `msgpack:"msg,omitempty"`
}

func (w contWire) decode() (*Env, Continuation, error) {
	env, err := unmarshalEnv(w.Env)
	if err != nil {
		return nil, nil, err
	}
	k, err := unmarshalCont(w.K)
	if err != nil {
		return nil, nil, err
	}
	return env, k, nil
}

func encodeCont(env *Env, k Continuation, value cty.Value, msg string) ([]byte, error) {
	eb, err := marshalEnv(env)
	if err != nil {
		return nil, err
	}
	kb, err := marshalCont(k)
	if err != nil {
		return nil, err
	}
	vb, err := durable.MarshalValue(value)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(contWire{Env: eb, K: kb, Value: vb, Msg: msg})
}

func decodeCont(b []byte) (contWire, *Env, Continuation, cty.Value, error) {
	var w contWire
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return w, nil, nil, cty.NilVal, err
	}
	env, k, err := w.decode()
	if err != nil {
		return w, nil, nil, cty.NilVal, err
	}
	v, err := durable.UnmarshalValue(w.Value)
	if err != nil {
		return w, nil, nil, cty.NilVal, err
	}
	return w, env, k, v, nil
}

func init() {
	durable.RegisterSelf[HaltCont]("cps.halt")

	durable.Register("cps.env", durable.Codec{
		Encode: func(d durable.Durable) ([]byte, error) {
			e := d.(*Env)
			rb, err := marshalCont(e.ReturnTo)
			if err != nil {
				return nil, err
			}
			hb, err := marshalCont(e.Handler)
			if err != nil {
				return nil, err
			}
			pb, err := marshalEnv(e.Parent)
			if err != nil {
				return nil, err
			}
			return msgpack.Marshal(envWire{ReturnTo: rb, Handler: hb, Parent: pb})
		},
		Decode: func(b []byte) (durable.Durable, error) {
			var w envWire
			if err := msgpack.Unmarshal(b, &w); err != nil {
				return nil, err
			}
			ret, err := unmarshalCont(w.ReturnTo)
			if err != nil {
				return nil, err
			}
			h, err := unmarshalCont(w.Handler)
			if err != nil {
				return nil, err
			}
			p, err := unmarshalEnv(w.Parent)
			if err != nil {
				return nil, err
			}
			return &Env{ReturnTo: ret, Handler: h, Parent: p}, nil
		},
	})

	durable.Register("cps.return", durable.Codec{
		Encode: func(d durable.Durable) ([]byte, error) {
			c := d.(*returnCont)
			return encodeCont(nil, c.K, c.Value, "")
		},
		Decode: func(b []byte) (durable.Durable, error) {
			_, _, k, v, err := decodeCont(b)
			if err != nil {
				return nil, err
			}
			return &returnCont{Value: v, K: k}, nil
		},
	})

	durable.Register("cps.fail", durable.Codec{
		Encode: func(d durable.Durable) ([]byte, error) {
			c := d.(*failCont)
			return encodeCont(c.Env, nil, cty.NilVal, c.Message)
		},
		Decode: func(b []byte) (durable.Durable, error) {
			w, env, _, _, err := decodeCont(b)
			if err != nil {
				return nil, err
			}
			return &failCont{Message: w.Msg, Env: env}, nil
		},
	})

	durable.Register("cps.await", durable.Codec{
		Encode: func(d durable.Durable) ([]byte, error) {
			c := d.(*awaitCont)
			return encodeCont(c.Env, c.K, cty.NilVal, "")
		},
		Decode: func(b []byte) (durable.Durable, error) {
			_, env, k, _, err := decodeCont(b)
			if err != nil {
				return nil, err
			}
			return &awaitCont{Env: env, K: k}, nil
		},
	})

	durable.Register("cps.resume", durable.Codec{
		Encode: func(d durable.Durable) ([]byte, error) {
			c := d.(*resumeCont)
			return encodeCont(c.Env, c.K, cty.NilVal, "")
		},
		Decode: func(b []byte) (durable.Durable, error) {
			_, env, k, _, err := decodeCont(b)
			if err != nil {
				return nil, err
			}
			return &resumeCont{Env: env, K: k}, nil
		},
	})
}
