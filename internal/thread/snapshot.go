package thread

import (
	"context"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/stepflow/internal/cps"
	"github.com/specialistvlad/stepflow/internal/ctxlog"
	"github.com/specialistvlad/stepflow/internal/durable"
	"github.com/specialistvlad/stepflow/internal/flowgraph"
	"github.com/specialistvlad/stepflow/internal/outcome"
	"github.com/specialistvlad/stepflow/internal/scope"
)

// The durable state per suspended unit is {continuation snapshot, graph head
// reference, scope chain}; pending callbacks travel inside the continuation
// chain. The node store itself is persisted by the host and is re-attached on
// restore.

type unitWire struct {
	ID    int32               `msgpack:"id"`
	Cont  []byte              `msgpack:"cont"` // nil for root units
	Head  string              `msgpack:"head"`
	Scope []map[string][]byte `msgpack:"scope"`
}

type groupWire struct {
	NextID  int32             `msgpack:"next_id"`
	Units   []unitWire        `msgpack:"units"`
	Results map[int32][]byte  `msgpack:"results"`
	Board   map[string][]byte `msgpack:"board"`
}

// Snapshot encodes the whole group: every suspended unit, terminal results,
// and the completion board. The group must be quiescent; snapshotting with
// undelivered resumes would lose them.
func (g *Group) Snapshot(ctx context.Context) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.queue) != 0 {
		return nil, fmt.Errorf("thread: snapshot with %d undelivered resumes", len(g.queue))
	}

	w := groupWire{
		NextID:  g.nextID,
		Results: make(map[int32][]byte, len(g.results)),
		Board:   make(map[string][]byte, len(g.board)),
	}

	for _, id := range unitIDsLocked(g.units) {
		u := g.units[id]
		uw := unitWire{ID: u.id, Head: u.head.ID()}
		if u.cont != nil {
			cb, err := u.cont.Snapshot()
			if err != nil {
				return nil, fmt.Errorf("thread: unit %d: %w", u.id, err)
			}
			uw.Cont = cb
		}
		layers, err := marshalScope(u.scope)
		if err != nil {
			return nil, fmt.Errorf("thread: unit %d: %w", u.id, err)
		}
		uw.Scope = layers
		w.Units = append(w.Units, uw)
	}

	for id, o := range g.results {
		b, err := outcome.Marshal(o)
		if err != nil {
			return nil, fmt.Errorf("thread: result of unit %d: %w", id, err)
		}
		w.Results[id] = b
	}
	for key, o := range g.board {
		b, err := outcome.Marshal(o)
		if err != nil {
			return nil, fmt.Errorf("thread: completion %q: %w", key, err)
		}
		w.Board[key] = b
	}

	ctxlog.FromContext(ctx).Debug("Group snapshot taken.", "units", len(w.Units))
	return msgpack.Marshal(w)
}

// RestoreGroup rebuilds a group from a Snapshot, re-attaching it to the
// persisted node store.
func RestoreGroup(ctx context.Context, data []byte, store flowgraph.Store) (*Group, error) {
	var w groupWire
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("thread: malformed group snapshot: %w", err)
	}

	g := NewGroup(store)
	g.nextID = w.NextID

	for _, uw := range w.Units {
		var cont *cps.Continuable
		if len(uw.Cont) > 0 {
			c, err := cps.Restore(uw.Cont)
			if err != nil {
				return nil, fmt.Errorf("thread: unit %d: %w", uw.ID, err)
			}
			cont = c
		}
		sc, err := unmarshalScope(uw.Scope)
		if err != nil {
			return nil, fmt.Errorf("thread: unit %d: %w", uw.ID, err)
		}
		g.units[uw.ID] = &Unit{
			id:    uw.ID,
			group: g,
			cont:  cont,
			head:  flowgraph.RestoreHead(store, uw.Head),
			scope: sc,
		}
	}

	for id, b := range w.Results {
		o, err := outcome.Unmarshal(b)
		if err != nil {
			return nil, fmt.Errorf("thread: result of unit %d: %w", id, err)
		}
		g.results[id] = o
	}
	for key, b := range w.Board {
		o, err := outcome.Unmarshal(b)
		if err != nil {
			return nil, fmt.Errorf("thread: completion %q: %w", key, err)
		}
		g.board[key] = o
	}

	ctxlog.FromContext(ctx).Debug("Group restored from snapshot.", "units", len(w.Units))
	return g, nil
}

func unitIDsLocked(units map[int32]*Unit) []int32 {
	out := make([]int32, 0, len(units))
	for id := range units {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func marshalScope(s *scope.Scope) ([]map[string][]byte, error) {
	layers := s.Layers()
	out := make([]map[string][]byte, 0, len(layers))
	for _, layer := range layers {
		enc := make(map[string][]byte, len(layer))
		for name, v := range layer {
			b, err := durable.MarshalValue(v)
			if err != nil {
				return nil, fmt.Errorf("scope variable %q: %w", name, err)
			}
			enc[name] = b
		}
		out = append(out, enc)
	}
	return out, nil
}

func unmarshalScope(layers []map[string][]byte) (*scope.Scope, error) {
	dec := make([]map[string]cty.Value, 0, len(layers))
	for _, layer := range layers {
		vars := make(map[string]cty.Value, len(layer))
		for name, b := range layer {
			v, err := durable.UnmarshalValue(b)
			if err != nil {
				return nil, fmt.Errorf("scope variable %q: %w", name, err)
			}
			vars[name] = v
		}
		dec = append(dec, vars)
	}
	return scope.FromLayers(dec), nil
}
