package source

import (
	"fmt"
	"path"
	"strings"

	"github.com/keyforge/keyforge/internal/archive"
)

// configNames are the recognized config member names at the archive root.
var configNames = []string{"config.yaml", "config.yml"}

// Unpack splits a unified archive into config text plus injections. The
// config is the root-level config.yaml (or .yml); every other file under a
// category folder becomes an injection whose type is the singular form of
// its first path segment and whose name is the remaining path without the
// extension. Root-level strays that are not the config are ignored.
func Unpack(a *archive.Archive) (*UnpackedBundle, error) {
	var configText string
	found := false

	for _, name := range configNames {
		e, ok := a.File(name)
		if !ok {
			continue
		}

		text, err := e.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		configText = text
		found = true

		break
	}

	if !found {
		return nil, fmt.Errorf("archive has no root-level config.yaml")
	}

	bundle := &UnpackedBundle{ConfigText: configText}

	for _, e := range a.Files() {
		if isConfigMember(e.Path) || !strings.Contains(e.Path, "/") {
			continue
		}

		segments := strings.SplitN(e.Path, "/", 2)
		value, err := e.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("reading injection %s: %w", e.Path, err)
		}

		bundle.Injections = append(bundle.Injections, Injection{
			Type:  singular(segments[0]),
			Name:  trimExt(segments[1]),
			Value: value,
		})
	}

	return bundle, nil
}

func isConfigMember(p string) bool {
	for _, name := range configNames {
		if p == name {
			return true
		}
	}

	return false
}

// singular converts a category folder name to an injection type:
// "footprints" -> "footprint".
func singular(category string) string {
	if len(category) > 1 && strings.HasSuffix(category, "s") {
		return strings.TrimSuffix(category, "s")
	}

	return category
}

func trimExt(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}
