// Package result defines the engine's output tree: a fixed-shape record of
// artifacts, where each artifact is either absent, a single value, or a
// composite of sibling renderings keyed by format.
package result

// Format is a rendering format tag for composite artifacts.
type Format string

const (
	FormatYAML  Format = "yaml"
	FormatSVG   Format = "svg"
	FormatDXF   Format = "dxf"
	FormatJSCAD Format = "jscad"
)

// RenderOrder is the fixed write order for the verbatim formats of a
// composite artifact. YAML is handled separately because it goes through
// the structured serializer.
var RenderOrder = []Format{FormatSVG, FormatDXF, FormatJSCAD}

// PayloadKind discriminates the three artifact shapes.
type PayloadKind int

const (
	// KindAbsent is the "not produced" sentinel. Writers treat it as a no-op.
	KindAbsent PayloadKind = iota
	// KindValue is a single serializable value.
	KindValue
	// KindComposite is a mapping of format tag to value, any subset present.
	KindComposite
)

// Payload is one artifact slot of the result tree.
type Payload struct {
	kind    PayloadKind
	value   interface{}
	formats map[Format]interface{}
}

// Absent returns the "not produced" sentinel.
func Absent() Payload {
	return Payload{kind: KindAbsent}
}

// Value wraps a single serializable value.
func Value(v interface{}) Payload {
	return Payload{kind: KindValue, value: v}
}

// Composite wraps a format-to-value mapping. An empty or nil mapping is
// absent: there is nothing to write.
func Composite(formats map[Format]interface{}) Payload {
	if len(formats) == 0 {
		return Payload{kind: KindAbsent}
	}

	copied := make(map[Format]interface{}, len(formats))
	for f, v := range formats {
		copied[f] = v
	}

	return Payload{kind: KindComposite, formats: copied}
}

// Kind returns the payload's shape discriminator.
func (p Payload) Kind() PayloadKind {
	return p.kind
}

// IsAbsent reports whether the payload is the "not produced" sentinel.
func (p Payload) IsAbsent() bool {
	return p.kind == KindAbsent
}

// Single returns the value of a KindValue payload.
func (p Payload) Single() (interface{}, bool) {
	if p.kind != KindValue {
		return nil, false
	}

	return p.value, true
}

// Render returns the value for one format of a KindComposite payload.
func (p Payload) Render(f Format) (interface{}, bool) {
	if p.kind != KindComposite {
		return nil, false
	}
	v, ok := p.formats[f]

	return v, ok
}

// Tree is the engine's complete output for one run.
type Tree struct {
	Raw       Payload
	Canonical Payload
	Units     Payload
	Points    Payload
	Demo      Payload
	Outlines  map[string]Payload
	Cases     map[string]Payload
	PCBs      map[string]Payload
}

// NewTree returns a tree with all singleton slots absent and the named
// artifact maps allocated.
func NewTree() *Tree {
	return &Tree{
		Outlines: make(map[string]Payload),
		Cases:    make(map[string]Payload),
		PCBs:     make(map[string]Payload),
	}
}
