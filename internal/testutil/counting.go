package testutil

import (
	"context"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/stepflow/internal/durable"
	"github.com/specialistvlad/stepflow/internal/outcome"
)

// The counting callback is durable by holding only its key; firings are
// tallied in process-global state so a callback rebuilt from a snapshot
// still increments the same counter. Tests must use distinct keys.
var (
	countersMu sync.Mutex
	counters   = map[string]int{}
	observed   = map[string]outcome.Outcome{}
)

// CountingCallback tallies every firing under its key and records the last
// observed outcome.
type CountingCallback struct {
	Key string `msgpack:"key"`
}

func (c CountingCallback) OnSuccess(_ context.Context, v cty.Value) error {
	record(c.Key, outcome.Value(v))
	return nil
}

func (c CountingCallback) OnFailure(_ context.Context, cause error) error {
	record(c.Key, outcome.Failure(cause))
	return nil
}

func (c CountingCallback) DurableKind() string { return "testutil.count" }

func record(key string, o outcome.Outcome) {
	countersMu.Lock()
	defer countersMu.Unlock()
	counters[key]++
	observed[key] = o
}

// FireCount returns how many times the callback with the given key fired.
func FireCount(key string) int {
	countersMu.Lock()
	defer countersMu.Unlock()
	return counters[key]
}

// Observed returns the last outcome delivered to the callback with the given
// key.
func Observed(key string) (outcome.Outcome, bool) {
	countersMu.Lock()
	defer countersMu.Unlock()
	o, ok := observed[key]
	return o, ok
}

func init() {
	durable.RegisterSelf[CountingCallback]("testutil.count")
}
