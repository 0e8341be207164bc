//go:build property

package archive

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestArchiveProperties validates structural invariants of the archive
// representation over randomized file sets.
func TestArchiveProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	nameGen := gen.RegexMatch(`[a-z][a-z0-9]{0,7}`)

	// Property: archiving a directory and zipping the same tree produce the
	// same file set with the same contents, regardless of layout.
	properties.Property("directory and zip views are equivalent", prop.ForAll(
		func(names []string) bool {
			dir := t.TempDir()
			zipPath := filepath.Join(t.TempDir(), "tree.zip")

			files := make(map[string]string)
			for i, name := range names {
				rel := name + ".txt"
				if i%2 == 1 {
					rel = "sub/" + rel
				}
				if _, dup := files[rel]; dup {
					continue
				}
				files[rel] = "content of " + rel
			}

			for rel, content := range files {
				abs := filepath.Join(dir, filepath.FromSlash(rel))
				if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
					return false
				}
				if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
					return false
				}
			}

			zf, err := os.Create(zipPath)
			if err != nil {
				return false
			}
			zw := zip.NewWriter(zf)
			for rel, content := range files {
				w, err := zw.Create(rel)
				if err != nil {
					return false
				}
				if _, err := w.Write([]byte(content)); err != nil {
					return false
				}
			}
			if err := zw.Close(); err != nil {
				return false
			}
			if err := zf.Close(); err != nil {
				return false
			}

			fromDir, err := FromDir(context.Background(), dir)
			if err != nil {
				return false
			}
			defer fromDir.Close()

			fromZip, err := FromZip(zipPath)
			if err != nil {
				return false
			}
			defer fromZip.Close()

			dirFiles := fromDir.Files()
			zipFiles := fromZip.Files()
			if len(dirFiles) != len(zipFiles) {
				return false
			}
			for i := range dirFiles {
				if dirFiles[i].Path != zipFiles[i].Path {
					return false
				}
				a, err := dirFiles[i].ReadAll()
				if err != nil {
					return false
				}
				b, err := zipFiles[i].ReadAll()
				if err != nil {
					return false
				}
				if a != b {
					return false
				}
			}

			return true
		},
		gen.SliceOfN(6, nameGen),
	))

	// Property: folder entries are unique no matter how many siblings share
	// a parent or in which order they are added.
	properties.Property("folder creation is idempotent", prop.ForAll(
		func(names []string) bool {
			a := New()
			added := make(map[string]bool)
			for _, name := range names {
				rel := "shared/" + name + ".js"
				if added[rel] {
					continue
				}
				added[rel] = true
				if err := a.AddFile(rel, stringSource(name)); err != nil {
					return false
				}
			}
			if len(added) == 0 {
				return true
			}

			folders := 0
			for _, e := range a.Entries() {
				if e.Dir {
					folders++
				}
			}

			return folders == 1
		},
		gen.SliceOfN(8, nameGen),
	))

	properties.TestingRun(t)
}
