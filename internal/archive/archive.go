// Package archive provides the unified in-memory archive representation used
// by the source resolver: a set of named byte streams organized by POSIX
// relative path, loadable from a zip container or built from a directory
// tree. Directory entries are implicit, derived from path segments, so an
// archive never carries a folder as a non-folder entry.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
)

// Entry is one member of an Archive: a relative POSIX path plus either a
// lazy byte source or a folder marker.
type Entry struct {
	Path string
	Dir  bool

	// Open yields the entry's byte stream. Nil for folder entries. The
	// stream is lazy so archiving a large directory does not buffer every
	// file at once.
	Open func() (io.ReadCloser, error)
}

// ReadAll drains the entry's byte source into a string.
func (e *Entry) ReadAll() (string, error) {
	if e.Dir || e.Open == nil {
		return "", fmt.Errorf("entry %s has no byte source", e.Path)
	}

	rc, err := e.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// Archive is an in-memory hierarchical collection of named byte streams.
// Paths are unique; adding the same folder twice is a no-op.
type Archive struct {
	mu      sync.Mutex
	entries map[string]*Entry
	closer  io.Closer
}

// New returns an empty archive.
func New() *Archive {
	return &Archive{entries: make(map[string]*Entry)}
}

// AddDir materializes a folder entry, creating intermediate folders as
// needed. Adding an existing folder is idempotent.
func (a *Archive) AddDir(p string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.ensureFolder(normalize(p))
}

// AddFile adds a file entry with a lazy byte source, materializing the
// implied folder chain first. Duplicate file paths are rejected.
func (a *Archive) AddFile(p string, open func() (io.ReadCloser, error)) error {
	norm := normalize(p)
	if norm == "" {
		return fmt.Errorf("empty archive path")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.entries[norm]; ok {
		if existing.Dir {
			return fmt.Errorf("archive path %s already exists as a folder", norm)
		}

		return fmt.Errorf("duplicate archive path %s", norm)
	}

	if parent := path.Dir(norm); parent != "." {
		if err := a.ensureFolder(parent); err != nil {
			return err
		}
	}

	a.entries[norm] = &Entry{Path: norm, Open: open}

	return nil
}

// ensureFolder creates the folder chain for p. Caller holds the lock.
func (a *Archive) ensureFolder(p string) error {
	if p == "" || p == "." {
		return nil
	}

	segments := strings.Split(p, "/")
	for i := range segments {
		prefix := strings.Join(segments[:i+1], "/")
		if existing, ok := a.entries[prefix]; ok {
			if !existing.Dir {
				return fmt.Errorf("archive path %s already exists as a file", prefix)
			}

			continue
		}
		a.entries[prefix] = &Entry{Path: prefix, Dir: true}
	}

	return nil
}

// File returns the non-folder entry at p, if present.
func (a *Archive) File(p string) (*Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[normalize(p)]
	if !ok || e.Dir {
		return nil, false
	}

	return e, true
}

// Entries returns every entry sorted by path. Enumeration during archiving
// is unordered, so consumers get a deterministic view here.
func (a *Archive) Entries() []*Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*Entry, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out
}

// Files returns every non-folder entry sorted by path.
func (a *Archive) Files() []*Entry {
	all := a.Entries()
	out := all[:0]
	for _, e := range all {
		if !e.Dir {
			out = append(out, e)
		}
	}

	return out
}

// Len returns the number of entries, folders included.
func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.entries)
}

// Close releases the backing container, if any. Archives built from
// directories have no backing container and Close is a no-op.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}

	return a.closer.Close()
}

// FromZip opens a zip container as an archive. Entry streams stay lazy and
// are backed by the open container, so the archive must be closed after use.
func FromZip(zipPath string) (*Archive, error) {
	rc, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", zipPath, err)
	}

	a := New()
	a.closer = rc

	for _, f := range rc.File {
		name := f.Name
		if strings.HasSuffix(name, "/") {
			if err := a.AddDir(name); err != nil {
				rc.Close()

				return nil, fmt.Errorf("loading archive %s: %w", zipPath, err)
			}

			continue
		}

		file := f
		if err := a.AddFile(name, func() (io.ReadCloser, error) {
			return file.Open()
		}); err != nil {
			rc.Close()

			return nil, fmt.Errorf("loading archive %s: %w", zipPath, err)
		}
	}

	return a, nil
}

// normalize converts p to a clean POSIX relative path.
func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}

	return p
}
