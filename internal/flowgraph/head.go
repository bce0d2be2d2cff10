package flowgraph

import (
	"context"
	"fmt"
)

// Head is an execution unit's append-only frontier into the graph. Each unit
// owns its own Head; a head is never shared for concurrent mutation. Spawning
// a sibling unit Forks the head so both start from the same frontier node and
// diverge independently from there.
type Head struct {
	store Store
	id    string // id of the frontier node; empty at the origin of a run
}

// NewHead creates a head at the origin of a run.
func NewHead(store Store) *Head {
	return &Head{store: store}
}

// RestoreHead rebuilds a head at a known frontier node, used when reloading a
// persisted unit.
func RestoreHead(store Store, id string) *Head {
	return &Head{store: store, id: id}
}

// ID returns the id of the current frontier node, empty at the origin.
func (h *Head) ID() string {
	return h.id
}

// Store returns the node store this head appends to.
func (h *Head) Store() Store {
	return h.store
}

// Get resolves the current frontier node, nil at the origin.
func (h *Head) Get(ctx context.Context) (*Node, error) {
	if h.id == "" {
		return nil, nil
	}
	return h.store.Node(ctx, h.id)
}

// SetNewHead appends n and advances the frontier to it. The node must extend
// the current frontier; anything else indicates the head was aliased, which
// the append-only contract forbids.
func (h *Head) SetNewHead(ctx context.Context, n *Node) error {
	if n.ParentID != h.id {
		return fmt.Errorf("flowgraph: node %s extends %q, head is at %q", n.ID, n.ParentID, h.id)
	}
	if err := h.store.Append(ctx, n); err != nil {
		return err
	}
	h.id = n.ID
	return nil
}

// Fork returns a new head at the same frontier, for a sibling execution unit.
func (h *Head) Fork() *Head {
	return &Head{store: h.store, id: h.id}
}
