package thread

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/stepflow/internal/cps"
	"github.com/specialistvlad/stepflow/internal/ctxlog"
	"github.com/specialistvlad/stepflow/internal/flowgraph"
	"github.com/specialistvlad/stepflow/internal/outcome"
	"github.com/specialistvlad/stepflow/internal/scope"
)

// Group owns every execution unit belonging to one pipeline run. Units are
// driven cooperatively by a single logical driver: resumes are queued, and
// Drain (or the hosting Run loop) delivers them one at a time. Creating a
// unit and recording its start node is therefore atomic from the caller's
// perspective; the unit cannot begin running before the caller's turn ends.
type Group struct {
	store flowgraph.Store

	mu      sync.Mutex
	units   map[int32]*Unit
	nextID  int32
	queue   []task
	wake    chan struct{}
	results map[int32]outcome.Outcome
	board   map[string]outcome.Outcome
	failure error // first engine-level failure; poisons the whole run
}

type task struct {
	unitID int32
	o      outcome.Outcome
}

// NewGroup creates an empty group appending to the given node store.
func NewGroup(store flowgraph.Store) *Group {
	return &Group{
		store:   store,
		units:   make(map[int32]*Unit),
		wake:    make(chan struct{}, 1),
		results: make(map[int32]outcome.Outcome),
		board:   make(map[string]outcome.Outcome),
	}
}

// Store returns the node store shared by all units of this run.
func (g *Group) Store() flowgraph.Store {
	return g.store
}

// AddUnit registers a new execution unit for the given continuation. The unit
// gets its own fork of head, so sibling units extend the same frontier
// without sharing a mutable pointer.
func (g *Group) AddUnit(c *cps.Continuable, head *flowgraph.Head, sc *scope.Scope) *Unit {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addUnitLocked(c, head.Fork(), sc)
}

// RootUnit registers a unit that carries context (head, scope) for top-level
// scheduling but owns no continuation. It is never resumed.
func (g *Group) RootUnit(head *flowgraph.Head, sc *scope.Scope) *Unit {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addUnitLocked(nil, head.Fork(), sc)
}

func (g *Group) addUnitLocked(c *cps.Continuable, head *flowgraph.Head, sc *scope.Scope) *Unit {
	g.nextID++
	u := &Unit{id: g.nextID, group: g, cont: c, head: head, scope: sc}
	g.units[u.id] = u
	return u
}

// Unit resolves a live unit by id.
func (g *Group) Unit(id int32) (*Unit, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.units[id]
	return u, ok
}

// UnitIDs returns the ids of all live units, sorted.
func (g *Group) UnitIDs() []int32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int32, 0, len(g.units))
	for id := range g.units {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LiveUnits returns the number of live (running or suspended) units,
// including root units.
func (g *Group) LiveUnits() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.units)
}

// Result returns the terminal outcome of a completed unit.
func (g *Group) Result(id int32) (outcome.Outcome, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.results[id]
	return o, ok
}

// SetCompletion records an outcome on the group's completion board. Durable
// callbacks write here by key, so the record survives callbacks that cannot
// hold live references.
func (g *Group) SetCompletion(key string, o outcome.Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.board[key] = o
}

// Completion reads a completion board entry.
func (g *Group) Completion(key string) (outcome.Outcome, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.board[key]
	return o, ok
}

// Err returns the first engine-level failure observed while driving units,
// if any. A non-nil Err means the execution record is untrustworthy and the
// whole run must be marked failed.
func (g *Group) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failure
}

func (g *Group) enqueue(unitID int32, o outcome.Outcome) {
	g.mu.Lock()
	g.queue = append(g.queue, task{unitID: unitID, o: o})
	g.mu.Unlock()
	select {
	case g.wake <- struct{}{}:
	default:
	}
}

func (g *Group) dequeue() (task, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) == 0 {
		return task{}, false
	}
	t := g.queue[0]
	g.queue = g.queue[1:]
	return t, true
}

// Drain delivers queued resumes until the queue is empty, then returns the
// group's engine-level failure state. Resumes enqueued while draining (for
// example by a body that spawns a sibling unit) are delivered in the same
// pass, which makes Drain the deterministic driver for tests and embedded
// hosts.
func (g *Group) Drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, ok := g.dequeue()
		if !ok {
			return g.Err()
		}
		g.drive(ctx, t)
	}
}

// Run hosts the group until the context is canceled, delivering resumes as
// they arrive. Suspended units consume no goroutines; the loop parks on the
// wake channel.
func (g *Group) Run(ctx context.Context) error {
	for {
		if err := g.Drain(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.wake:
		}
	}
}

// drive delivers one outcome into one unit, handling termination and
// engine-level failure.
func (g *Group) drive(ctx context.Context, t task) {
	logger := ctxlog.With(ctx, "unitID", t.unitID)

	g.mu.Lock()
	u, ok := g.units[t.unitID]
	g.mu.Unlock()
	if !ok {
		logger.Warn("Dropping resume for unknown or terminated unit.")
		return
	}
	if u.cont == nil {
		logger.Warn("Dropping resume for root unit without continuation.")
		return
	}

	unitCtx := WithCurrent(ctx, u)
	out, done, err := u.cont.Run(unitCtx, t.o)
	if err != nil {
		// The execution record itself could not be extended. Abort the
		// unit and poison the run; the failure is not reported through
		// any step callback.
		logger.Error("Engine failure while driving unit; aborting.", "error", err)
		g.mu.Lock()
		if g.failure == nil {
			g.failure = fmt.Errorf("thread: unit %d aborted: %w", t.unitID, err)
		}
		delete(g.units, t.unitID)
		g.mu.Unlock()
		return
	}
	if done {
		logger.Debug("Unit terminated.", "outcome", out.String())
		g.mu.Lock()
		g.results[t.unitID] = out
		delete(g.units, t.unitID)
		g.mu.Unlock()
		return
	}
	logger.Debug("Unit suspended.")
}
