// Package testutil provides the shared harness for engine tests: a
// temp-dir manifest loader, captured log output, and a durable counting
// callback for asserting exactly-once completion delivery.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/stepflow/internal/ctxlog"
	"github.com/specialistvlad/stepflow/internal/engine"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Harness bundles an engine instance with its captured log output.
type Harness struct {
	Engine *engine.Engine
	Logs   *SafeBuffer
}

// NewEngine writes the given manifest files into a temporary directory and
// constructs an engine over them, logging at debug level into a captured
// buffer. Keys of files are paths relative to the manifest root.
func NewEngine(t *testing.T, files map[string]string) *Harness {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	logs := &SafeBuffer{}
	cfg, err := engine.NewConfig(engine.Config{
		ManifestPath: tmpDir,
		LogLevel:     "debug",
		LogFormat:    "text",
	})
	require.NoError(t, err)

	eng, err := engine.New(logs, cfg)
	require.NoError(t, err)

	return &Harness{Engine: eng, Logs: logs}
}

// Context returns a background context carrying a debug logger that writes
// into the returned buffer.
func Context() (context.Context, *SafeBuffer) {
	logs := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger), logs
}
