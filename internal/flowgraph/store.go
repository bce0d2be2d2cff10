package flowgraph

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Store.Node for an unknown id.
var ErrNotFound = errors.New("flowgraph: node not found")

// Store is the persisted node record. Implementations must be fail-fast: an
// append or lookup that cannot be served returns an error instead of
// degrading, because a graph that cannot be extended means the execution
// record is untrustworthy.
type Store interface {
	// Append records a new node. The node's parent must already exist (or
	// be empty for a run's first node) and its id must be unused.
	Append(ctx context.Context, n *Node) error
	// Node resolves a node by id.
	Node(ctx context.Context, id string) (*Node, error)
	// Nodes returns all nodes in append order.
	Nodes(ctx context.Context) ([]*Node, error)
}

// WellFormed checks the graph invariants of a completed run: every step-end
// node closes an existing step-start node, and no start node is closed twice.
func WellFormed(ctx context.Context, s Store) error {
	nodes, err := s.Nodes(ctx)
	if err != nil {
		return err
	}
	starts := make(map[string]bool)
	for _, n := range nodes {
		if n.Kind == KindStepStart {
			starts[n.ID] = false
		}
	}
	for _, n := range nodes {
		if n.Kind != KindStepEnd {
			continue
		}
		closed, ok := starts[n.StartID]
		if !ok {
			return fmt.Errorf("flowgraph: end node %s references unknown start node %s", n.ID, n.StartID)
		}
		if closed {
			return fmt.Errorf("flowgraph: start node %s closed more than once", n.StartID)
		}
		starts[n.StartID] = true
	}
	return nil
}
