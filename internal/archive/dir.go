package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// enumerationConcurrency bounds the number of directories listed at once.
const enumerationConcurrency = 8

// FromDir builds an archive view of the directory tree rooted at root,
// equivalent to what zipping that directory would yield. Enumeration lists
// subdirectories concurrently and imposes no ordering on the entry set.
// File contents stay lazy: each entry opens its file only when read. Any
// enumeration error fails the whole call; partial archives are not returned.
func FromDir(ctx context.Context, root string) (*Archive, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("archiving %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("archiving %s: not a directory", root)
	}

	a := New()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(enumerationConcurrency)

	var enumerate func(dir string) error
	enumerate = func(dir string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		listing, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("listing %s: %w", dir, err)
		}

		for _, de := range listing {
			abs := filepath.Join(dir, de.Name())

			if de.IsDir() {
				// TryGo keeps recursion deadlock-free under the
				// concurrency limit: fall back to listing inline when
				// every worker slot is taken.
				sub := abs
				if !g.TryGo(func() error { return enumerate(sub) }) {
					if err := enumerate(sub); err != nil {
						return err
					}
				}

				continue
			}
			if !de.Type().IsRegular() {
				continue
			}

			rel, err := filepath.Rel(root, abs)
			if err != nil {
				return fmt.Errorf("relativizing %s: %w", abs, err)
			}
			rel = filepath.ToSlash(rel)

			// Entries disappearing between list and archive surface
			// later as open errors; the stat here catches the common
			// permission case eagerly.
			if _, err := os.Stat(abs); err != nil {
				return fmt.Errorf("stat %s: %w", abs, err)
			}

			file := abs
			if err := a.AddFile(rel, func() (io.ReadCloser, error) {
				return os.Open(file)
			}); err != nil {
				return fmt.Errorf("archiving %s: %w", abs, err)
			}
		}

		return nil
	}

	g.Go(func() error { return enumerate(root) })

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return a, nil
}

// IsArchivePath reports whether p carries one of the recognized archive
// extensions: the generic zip suffix or the keyforge bundle suffix.
func IsArchivePath(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".zip", ".kbz":
		return true
	default:
		return false
	}
}
