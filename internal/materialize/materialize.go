// Package materialize writes a result tree onto a filesystem layout. Two
// writers cover the artifact shapes: Single for one-file payloads and
// Composite for multi-format siblings sharing a base name. Both are no-ops
// for absent payloads and both are idempotent, overwriting prior output.
package materialize

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	kferrors "github.com/keyforge/keyforge/internal/errors"
	"github.com/keyforge/keyforge/internal/logging"
	"github.com/keyforge/keyforge/internal/result"
)

// structuredSuffix marks targets that go through the structured serializer.
const structuredSuffix = ".yaml"

// PCBSuffix is the file extension for materialized pcb artifacts.
const PCBSuffix = ".kicad_pcb"

// Writer materializes payloads under one output root.
type Writer struct {
	root string
	log  logging.Logger
}

// NewWriter creates a writer for the given output root.
func NewWriter(root string, log logging.Logger) *Writer {
	return &Writer{root: root, log: log.WithComponent("materializer")}
}

// Root returns the output root path.
func (w *Writer) Root() string {
	return w.root
}

// Prepare readies the output root for one run: with clean set the entire
// root is removed first, then the root is (re)created either way. This
// runs once per run regardless of which artifacts end up present.
func (w *Writer) Prepare(ctx context.Context, clean bool) error {
	if clean {
		if err := os.RemoveAll(w.root); err != nil {
			return kferrors.NewMaterializationError(w.root, "cleaning output root", err)
		}
		w.log.Debug(ctx, "output root cleaned", "root", w.root)
	}

	if err := os.MkdirAll(w.root, 0755); err != nil {
		return kferrors.NewMaterializationError(w.root, "creating output root", err)
	}

	return nil
}

// Single writes payload to relPath under the root. Targets with the
// structured suffix are serialized; everything else is written verbatim.
// Absent payloads write nothing and create no directories.
func (w *Writer) Single(ctx context.Context, payload result.Payload, relPath string) error {
	if payload.IsAbsent() {
		return nil
	}

	v, ok := payload.Single()
	if !ok {
		return kferrors.NewMaterializationError(relPath, "composite payload given to the single writer", nil)
	}

	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(relPath, structuredSuffix) {
		data, err = MarshalStable(v)
	} else {
		data, err = verbatimBytes(v)
	}
	if err != nil {
		return kferrors.NewMaterializationError(relPath, "encoding payload", err)
	}

	return w.writeFile(ctx, relPath, data)
}

// Composite writes the present formats of payload as sibling files sharing
// relBase. The structured tag serializes to relBase + ".yaml"; the other
// tags are written verbatim as relBase + "." + tag in a fixed order. An
// absent payload writes nothing and creates no directories.
func (w *Writer) Composite(ctx context.Context, payload result.Payload, relBase string) error {
	if payload.IsAbsent() {
		return nil
	}

	if payload.Kind() != result.KindComposite {
		return kferrors.NewMaterializationError(relBase, "single payload given to the composite writer", nil)
	}

	if v, ok := payload.Render(result.FormatYAML); ok {
		data, err := MarshalStable(v)
		if err != nil {
			return kferrors.NewMaterializationError(relBase+structuredSuffix, "encoding payload", err)
		}
		if err := w.writeFile(ctx, relBase+structuredSuffix, data); err != nil {
			return err
		}
	}

	for _, format := range result.RenderOrder {
		v, ok := payload.Render(format)
		if !ok {
			continue
		}

		data, err := verbatimBytes(v)
		if err != nil {
			return kferrors.NewMaterializationError(relBase+"."+string(format), "encoding payload", err)
		}
		if err := w.writeFile(ctx, relBase+"."+string(format), data); err != nil {
			return err
		}
	}

	return nil
}

// WriteTree materializes a complete result tree using the fixed binding
// plan: singletons under source/ and points/, the composite demo under
// points/demo, one composite per outline and case, and one pcb file per
// pcb entry.
func (w *Writer) WriteTree(ctx context.Context, tree *result.Tree) error {
	if err := w.Single(ctx, tree.Raw, "source/raw.txt"); err != nil {
		return err
	}
	if err := w.Single(ctx, tree.Canonical, "source/canonical.yaml"); err != nil {
		return err
	}
	if err := w.Single(ctx, tree.Units, "points/units.yaml"); err != nil {
		return err
	}
	if err := w.Single(ctx, tree.Points, "points/points.yaml"); err != nil {
		return err
	}
	if err := w.Composite(ctx, tree.Demo, "points/demo"); err != nil {
		return err
	}

	for _, name := range sortedNames(tree.Outlines) {
		if err := w.Composite(ctx, tree.Outlines[name], "outlines/"+name); err != nil {
			return err
		}
	}
	for _, name := range sortedNames(tree.Cases) {
		if err := w.Composite(ctx, tree.Cases[name], "cases/"+name); err != nil {
			return err
		}
	}
	for _, name := range sortedNames(tree.PCBs) {
		if err := w.Single(ctx, tree.PCBs[name], "pcbs/"+name+PCBSuffix); err != nil {
			return err
		}
	}

	return nil
}

// writeFile ensures the parent directory exists and overwrites relPath.
func (w *Writer) writeFile(ctx context.Context, relPath string, data []byte) error {
	abs := filepath.Join(w.root, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return kferrors.NewMaterializationError(relPath, "creating parent directory", err)
	}
	if err := os.WriteFile(abs, data, 0644); err != nil {
		return kferrors.NewMaterializationError(relPath, "writing artifact", err)
	}

	w.log.Debug(ctx, "artifact written", "path", relPath, "bytes", len(data))

	return nil
}

func sortedNames(m map[string]result.Payload) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
