// Package durable is the round-trip contract for engine state that must
// survive a process restart: suspended continuations, context scopes, and
// pending callbacks. Values are encoded as a tagged envelope (a registered
// kind plus a msgpack payload) so that polymorphic chains can be rebuilt
// without holding live references across the suspension boundary.
//
// The byte sink itself (disk, database, object store) belongs to the host;
// this package only guarantees lossless encode/decode.
package durable

import (
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Durable is implemented by any value that can be persisted across a restart.
// The kind names the registered codec used to rebuild it.
type Durable interface {
	DurableKind() string
}

// Codec encodes and decodes one registered durable kind.
type Codec struct {
	Encode func(Durable) ([]byte, error)
	Decode func([]byte) (Durable, error)
}

var (
	mu     sync.RWMutex
	codecs = map[string]Codec{}
)

// Register installs the codec for a kind. Registering the same kind twice is
// a programmer error and panics.
func Register(kind string, c Codec) {
	if kind == "" {
		panic("durable: empty kind")
	}
	if c.Encode == nil || c.Decode == nil {
		panic(fmt.Sprintf("durable: incomplete codec for kind %q", kind))
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := codecs[kind]; dup {
		panic(fmt.Sprintf("durable: kind %q registered twice", kind))
	}
	codecs[kind] = c
}

// RegisterSelf registers a codec that round-trips T directly through msgpack.
// Suitable only for kinds whose fields are all concrete msgpack-able types;
// kinds with nested durable fields need an explicit Codec.
func RegisterSelf[T Durable](kind string) {
	Register(kind, Codec{
		Encode: func(d Durable) ([]byte, error) {
			return msgpack.Marshal(d)
		},
		Decode: func(b []byte) (Durable, error) {
			var v T
			if err := msgpack.Unmarshal(b, &v); err != nil {
				return nil, fmt.Errorf("durable: decode %q: %w", kind, err)
			}
			return v, nil
		},
	})
}

// envelope is the wire form of one durable value.
type envelope struct {
	Kind string `msgpack:"kind"`
	Data []byte `msgpack:"data"`
}

// Marshal encodes a durable value into its tagged envelope.
func Marshal(d Durable) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("durable: cannot marshal nil value")
	}
	kind := d.DurableKind()
	mu.RLock()
	c, ok := codecs[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("durable: kind %q has no registered codec", kind)
	}
	data, err := c.Encode(d)
	if err != nil {
		return nil, fmt.Errorf("durable: encode %q: %w", kind, err)
	}
	return msgpack.Marshal(envelope{Kind: kind, Data: data})
}

// Unmarshal decodes a tagged envelope back into the registered durable type.
func Unmarshal(b []byte) (Durable, error) {
	var env envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("durable: malformed envelope: %w", err)
	}
	mu.RLock()
	c, ok := codecs[env.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("durable: kind %q has no registered codec", env.Kind)
	}
	return c.Decode(env.Data)
}

// IsDurable reports whether a value can be persisted: it must implement
// Durable and name a registered kind. The scheduler uses it to fail fast on
// contract violations such as a non-persistable callback; a kind without a
// codec would otherwise only fail at snapshot time.
func IsDurable(v any) bool {
	d, ok := v.(Durable)
	if !ok {
		return false
	}
	mu.RLock()
	defer mu.RUnlock()
	_, ok = codecs[d.DurableKind()]
	return ok
}
