package orchestrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyforge/keyforge/internal/engine"
	kferrors "github.com/keyforge/keyforge/internal/errors"
	"github.com/keyforge/keyforge/internal/logging"
	"github.com/keyforge/keyforge/internal/materialize"
	"github.com/keyforge/keyforge/internal/result"
)

// stubEngine lets tests choose the engine behavior per run.
type stubEngine struct {
	tree  *result.Tree
	err   error
	panic bool
	runs  int
}

func (s *stubEngine) Process(ctx context.Context, configText string, opts engine.Options) (*result.Tree, error) {
	s.runs++
	if s.panic {
		panic("engine blew up")
	}
	if s.err != nil {
		return nil, s.err
	}

	return s.tree, nil
}

func pointsTree(text string) *result.Tree {
	tree := result.NewTree()
	tree.Raw = result.Value(text)
	tree.Points = result.Value(map[string]interface{}{})
	tree.Units = result.Value(map[string]interface{}{"u": 19.05})

	return tree
}

func newOrchestrator(t *testing.T, eng engine.Engine, opts Options) (*Orchestrator, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "output")
	writer := materialize.NewWriter(root, logging.NewNop())

	return New(eng, writer, logging.NewNop(), opts), root
}

func TestRunSuccessWritesTree(t *testing.T) {
	eng := &stubEngine{tree: pointsTree("points: {}")}
	orch, root := newOrchestrator(t, eng, Options{})

	outcome := orch.Run(context.Background(), "points: {}", engine.NewRegistry())

	require.True(t, outcome.OK())
	assert.FileExists(t, filepath.Join(root, "points", "points.yaml"))
	assert.FileExists(t, filepath.Join(root, "source", "raw.txt"))
}

func TestRunCapturesEngineFailure(t *testing.T) {
	eng := &stubEngine{err: fmt.Errorf("bad zones")}
	orch, root := newOrchestrator(t, eng, Options{})

	outcome := orch.Run(context.Background(), "points: broken", engine.NewRegistry())

	require.False(t, outcome.OK())
	assert.Equal(t, StageGeneration, outcome.Stage)
	assert.True(t, kferrors.IsType(outcome.Err, kferrors.ErrorTypeGeneration))

	// A failed generation must not touch the output root.
	_, err := os.Stat(root)
	assert.True(t, os.IsNotExist(err))
}

func TestRunCapturesEnginePanic(t *testing.T) {
	eng := &stubEngine{panic: true}
	orch, _ := newOrchestrator(t, eng, Options{})

	var outcome Outcome
	assert.NotPanics(t, func() {
		outcome = orch.Run(context.Background(), "points: {}", engine.NewRegistry())
	})
	require.False(t, outcome.OK())
	assert.Equal(t, StageGeneration, outcome.Stage)
}

func TestRunCapturesMaterializationFailure(t *testing.T) {
	tree := result.NewTree()
	tree.Raw = result.Value(42) // not text, verbatim write must fail
	eng := &stubEngine{tree: tree}
	orch, _ := newOrchestrator(t, eng, Options{})

	outcome := orch.Run(context.Background(), "points: {}", engine.NewRegistry())

	require.False(t, outcome.OK())
	assert.Equal(t, StageMaterialization, outcome.Stage)
	assert.True(t, kferrors.IsType(outcome.Err, kferrors.ErrorTypeMaterialization))
}

func TestRunCleanOption(t *testing.T) {
	eng := &stubEngine{tree: pointsTree("points: {}")}
	orch, root := newOrchestrator(t, eng, Options{Clean: true})

	stale := filepath.Join(root, "stale.txt")
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	outcome := orch.Run(context.Background(), "points: {}", engine.NewRegistry())

	require.True(t, outcome.OK())
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}
