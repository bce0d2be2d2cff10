// Package engine assembles one pipeline engine instance: the step registry
// loaded from manifests, the persisted execution graph store, and the
// execution group that drives suspended bodies. It is the composition root
// hosts embed; the scheduling itself lives in the invoker and thread
// packages.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/stepflow/internal/cps"
	"github.com/specialistvlad/stepflow/internal/ctxlog"
	"github.com/specialistvlad/stepflow/internal/flowgraph"
	"github.com/specialistvlad/stepflow/internal/invoker"
	"github.com/specialistvlad/stepflow/internal/manifest"
	"github.com/specialistvlad/stepflow/internal/memstore"
	"github.com/specialistvlad/stepflow/internal/outcome"
	"github.com/specialistvlad/stepflow/internal/registry"
	"github.com/specialistvlad/stepflow/internal/scope"
	"github.com/specialistvlad/stepflow/internal/thread"
)

// Engine is one fully wired pipeline engine instance with its own isolated
// logger, registry, node store, and execution group.
type Engine struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	store    flowgraph.Store
	group    *thread.Group
}

// New constructs an Engine from its configuration: it configures the logger,
// loads and validates step descriptors, and creates an empty node store and
// execution group.
func New(outW io.Writer, cfg *Config) (*Engine, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if cfg.ManifestPath != "" {
		descriptors, err := manifest.LoadDir(ctx, cfg.ManifestPath)
		if err != nil {
			return nil, fmt.Errorf("engine: loading manifests: %w", err)
		}
		if err := reg.AddAll(descriptors); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.", "steps", len(reg.Types()))

	store := memstore.New()
	return &Engine{
		outW:     outW,
		logger:   logger,
		registry: reg,
		store:    store,
		group:    thread.NewGroup(store),
	}, nil
}

// Registry returns the engine's step registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Store returns the engine's node store.
func (e *Engine) Store() flowgraph.Store {
	return e.store
}

// Group returns the engine's execution group.
func (e *Engine) Group() *thread.Group {
	return e.group
}

// Context embeds the engine's logger so that all engine components called
// under the returned context log through it.
func (e *Engine) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, e.logger)
}

// Invoker assembles a body invocation for a registered step type.
func (e *Engine) Invoker(stepType string, body invoker.BodyReference, cb invoker.Callback) (*invoker.Invoker, error) {
	desc, ok := e.registry.Lookup(stepType)
	if !ok {
		return nil, fmt.Errorf("engine: step %q is not registered", stepType)
	}
	return invoker.New(desc, body, cb)
}

// StartProgram registers a top-level execution unit running p at the origin
// of the graph and queues its kick-off. The unit's result is available from
// the group once drained.
func (e *Engine) StartProgram(ctx context.Context, p cps.Program, overrides ...scope.Override) *thread.Unit {
	env := cps.NewCallEnv(cps.HaltCont{}).WithHandler(cps.HaltCont{})
	entry := p.Entry(env, cps.HaltCont{})
	unit := e.group.AddUnit(cps.NewContinuable(entry), flowgraph.NewHead(e.store), scope.New(overrides...))
	unit.Resume(outcome.Empty())
	ctxlog.FromContext(e.Context(ctx)).Debug("Top-level program scheduled.", "unitID", unit.ID())
	return unit
}

// Drain runs the execution group until it is quiescent.
func (e *Engine) Drain(ctx context.Context) error {
	return e.group.Drain(e.Context(ctx))
}

// Snapshot captures the durable state of the execution group. The node store
// is the host's to persist; only unit state travels in the snapshot.
func (e *Engine) Snapshot(ctx context.Context) ([]byte, error) {
	return e.group.Snapshot(e.Context(ctx))
}

// Restore replaces the engine's execution group with one rebuilt from a
// Snapshot, re-attached to the engine's node store.
func (e *Engine) Restore(ctx context.Context, data []byte) error {
	g, err := thread.RestoreGroup(e.Context(ctx), data, e.store)
	if err != nil {
		return err
	}
	e.group = g
	return nil
}
