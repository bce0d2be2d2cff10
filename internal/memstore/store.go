// Package memstore provides an ephemeral, thread-safe, in-memory
// implementation of the flowgraph.Store interface.
//
// It backs local execution sessions and tests. The append-order slice is the
// authoritative creation order of nodes, which is what restart recovery and
// the well-formedness checks rely on. Durable hosts substitute their own
// Store implementation; the engine core never assumes this one.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/stepflow/internal/flowgraph"
)

// Store is an in-memory flowgraph.Store. An RWMutex fits the access pattern:
// appends are frequent during a run, while lookups dominate once units start
// closing their blocks.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*flowgraph.Node
	order []string
}

// New creates an empty store.
func New() *Store {
	return &Store{nodes: make(map[string]*flowgraph.Node)}
}

// Append implements flowgraph.Store.
func (s *Store) Append(_ context.Context, n *flowgraph.Node) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("memstore: append of node without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.nodes[n.ID]; dup {
		return fmt.Errorf("memstore: node %s already exists", n.ID)
	}
	if n.ParentID != "" {
		if _, ok := s.nodes[n.ParentID]; !ok {
			return fmt.Errorf("memstore: parent node %s not found", n.ParentID)
		}
	}
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
	return nil
}

// Node implements flowgraph.Store.
func (s *Store) Node(_ context.Context, id string) (*flowgraph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("memstore: %s: %w", id, flowgraph.ErrNotFound)
	}
	return n, nil
}

// Nodes implements flowgraph.Store, returning nodes in append order.
func (s *Store) Nodes(_ context.Context) ([]*flowgraph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*flowgraph.Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out, nil
}
