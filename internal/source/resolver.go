package source

import (
	"context"
	"os"

	"github.com/keyforge/keyforge/internal/archive"
	kferrors "github.com/keyforge/keyforge/internal/errors"
	"github.com/keyforge/keyforge/internal/logging"
)

// Resolver normalizes the three config source shapes into UnpackedBundles.
type Resolver struct {
	log logging.Logger
}

// NewResolver creates a resolver.
func NewResolver(log logging.Logger) *Resolver {
	return &Resolver{log: log.WithComponent("resolver")}
}

// Resolve inspects configPath and returns its bundle. Archives load
// directly; directories are archived first and then treated identically;
// anything else is read as plain config text with no injections. Every
// injection is registered with reg in encounter order before Resolve
// returns, so a subsequent engine run on the same config text sees them.
func (r *Resolver) Resolve(ctx context.Context, configPath string, reg Injector) (*UnpackedBundle, error) {
	bundle, err := r.load(ctx, configPath)
	if err != nil {
		r.log.Error(ctx, err, "config resolution failed", "path", configPath)

		return nil, kferrors.NewResolutionError(configPath, "resolving config", err)
	}

	for _, inj := range bundle.Injections {
		if err := reg.Inject(inj.Type, inj.Name, inj.Value); err != nil {
			r.log.Error(ctx, err, "injection registration failed",
				"path", configPath, "type", inj.Type, "name", inj.Name)

			return nil, kferrors.NewResolutionError(configPath, "registering injection "+inj.Name, err)
		}
	}

	r.log.Debug(ctx, "config resolved",
		"path", configPath, "injections", len(bundle.Injections))

	return bundle, nil
}

func (r *Resolver) load(ctx context.Context, configPath string) (*UnpackedBundle, error) {
	if archive.IsArchivePath(configPath) {
		a, err := archive.FromZip(configPath)
		if err != nil {
			return nil, err
		}
		defer a.Close()

		return Unpack(a)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		a, err := archive.FromDir(ctx, configPath)
		if err != nil {
			return nil, err
		}
		defer a.Close()

		return Unpack(a)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	return &UnpackedBundle{ConfigText: string(data)}, nil
}
