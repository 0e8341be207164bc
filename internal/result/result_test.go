package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbsentSentinel(t *testing.T) {
	p := Absent()

	assert.True(t, p.IsAbsent())
	assert.Equal(t, KindAbsent, p.Kind())

	_, ok := p.Single()
	assert.False(t, ok)
	_, ok = p.Render(FormatSVG)
	assert.False(t, ok)
}

func TestValuePayload(t *testing.T) {
	p := Value("points: {}")

	assert.False(t, p.IsAbsent())
	v, ok := p.Single()
	assert.True(t, ok)
	assert.Equal(t, "points: {}", v)

	_, ok = p.Render(FormatYAML)
	assert.False(t, ok)
}

func TestCompositePayload(t *testing.T) {
	p := Composite(map[Format]interface{}{
		FormatSVG: "<svg/>",
		FormatDXF: "0\nSECTION",
	})

	assert.Equal(t, KindComposite, p.Kind())

	svg, ok := p.Render(FormatSVG)
	assert.True(t, ok)
	assert.Equal(t, "<svg/>", svg)

	_, ok = p.Render(FormatJSCAD)
	assert.False(t, ok)
	_, ok = p.Single()
	assert.False(t, ok)
}

func TestEmptyCompositeIsAbsent(t *testing.T) {
	assert.True(t, Composite(nil).IsAbsent())
	assert.True(t, Composite(map[Format]interface{}{}).IsAbsent())
}

func TestCompositeCopiesInput(t *testing.T) {
	formats := map[Format]interface{}{FormatSVG: "<svg/>"}
	p := Composite(formats)

	formats[FormatSVG] = "mutated"

	v, ok := p.Render(FormatSVG)
	assert.True(t, ok)
	assert.Equal(t, "<svg/>", v)
}

func TestNewTreeAllocatesMaps(t *testing.T) {
	tree := NewTree()

	assert.NotNil(t, tree.Outlines)
	assert.NotNil(t, tree.Cases)
	assert.NotNil(t, tree.PCBs)
	assert.True(t, tree.Raw.IsAbsent())
	assert.True(t, tree.Demo.IsAbsent())
}
