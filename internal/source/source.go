// Package source resolves a config path — plain file, zip-style archive, or
// directory tree — into the canonical UnpackedBundle the rest of the
// pipeline consumes.
package source

// Injection is an auxiliary named resource bundled alongside the main
// configuration, registered with the engine before processing. Later
// injections of the same (Type, Name) override earlier ones; honoring that
// is the registry's job, the resolver only preserves encounter order.
type Injection struct {
	Type  string
	Name  string
	Value string
}

// UnpackedBundle is the canonical in-memory form of one resolved config:
// the raw config text plus the injections found alongside it, in encounter
// order. Immutable once returned.
type UnpackedBundle struct {
	ConfigText string
	Injections []Injection
}

// Injector receives injections as the resolver encounters them. The engine
// registry implements this.
type Injector interface {
	Inject(injectionType, name, value string) error
}
