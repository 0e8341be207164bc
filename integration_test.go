package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyforge/keyforge/internal/engine"
	"github.com/keyforge/keyforge/internal/logging"
	"github.com/keyforge/keyforge/internal/materialize"
	"github.com/keyforge/keyforge/internal/orchestrate"
	"github.com/keyforge/keyforge/internal/source"
)

// TestPipelineEndToEnd drives the full shell with the reference engine:
// directory config with an injection in, files on disk out.
func TestPipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "footprints"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
points:
  zones:
    matrix: {}
prerender:
  outlines:
    plate:
      svg: "<svg/>"
  pcbs:
    main: "(kicad_pcb)"
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "footprints", "custom.js"), []byte("module.exports = {}"), 0644))

	logger := logging.NewNop()
	ctx := context.Background()
	output := filepath.Join(t.TempDir(), "output")

	writer := materialize.NewWriter(output, logger)
	orch := orchestrate.New(engine.NewReference(), writer, logger, orchestrate.Options{Clean: true})
	cycle := orchestrate.NewCycle(source.NewResolver(logger), orch, dir, logger)

	outcome, err := cycle.Bootstrap(ctx)
	require.NoError(t, err)
	require.True(t, outcome.OK(), "pipeline failed: %v", outcome.Err)

	for _, rel := range []string{
		"source/raw.txt",
		"source/canonical.yaml",
		"points/units.yaml",
		"points/points.yaml",
		"points/demo.yaml",
		"outlines/plate.svg",
		"pcbs/main.kicad_pcb",
	} {
		assert.FileExists(t, filepath.Join(output, filepath.FromSlash(rel)), rel)
	}

	// No case artifacts in the config, so no cases directory either.
	_, err = os.Stat(filepath.Join(output, "cases"))
	assert.True(t, os.IsNotExist(err))

	pcb, err := os.ReadFile(filepath.Join(output, "pcbs", "main.kicad_pcb"))
	require.NoError(t, err)
	assert.Equal(t, "(kicad_pcb)", string(pcb))
}
