package engine

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/keyforge/keyforge/internal/result"
)

// defaultUnits are the base measurement units every config starts from.
var defaultUnits = map[string]interface{}{
	"u":               19.05,
	"cx":              18,
	"cy":              17,
	"$default_width":  "u-1",
	"$default_height": "u-1",
}

// Reference is a minimal engine implementation. It parses the config,
// echoes the raw and canonical forms, surfaces the units and points
// sections, and passes through any prerendered artifacts the config
// carries under a prerender section. It computes no geometry.
type Reference struct{}

// NewReference creates the reference engine.
func NewReference() *Reference {
	return &Reference{}
}

// Process implements Engine.
func (e *Reference) Process(ctx context.Context, configText string, opts Options) (*result.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logf := opts.Log
	if logf == nil {
		logf = func(string) {}
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(configText), &doc); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("config is empty")
	}

	points, ok := doc["points"]
	if !ok {
		return nil, fmt.Errorf("config must declare a points section")
	}

	if opts.Injections != nil && opts.Injections.Len() > 0 {
		logf(fmt.Sprintf("using %d injected resources", opts.Injections.Len()))
	}

	tree := result.NewTree()
	tree.Raw = result.Value(configText)
	tree.Canonical = result.Value(doc)
	tree.Units = result.Value(e.units(doc))
	tree.Points = result.Value(points)
	tree.Demo = result.Composite(map[result.Format]interface{}{
		result.FormatYAML: points,
	})

	if err := e.prerendered(doc, tree); err != nil {
		return nil, err
	}

	logf("interpreting config")
	if opts.Debug {
		logf(fmt.Sprintf("parsed %d top-level sections", len(doc)))
	}

	return tree, nil
}

// units overlays the config's units section onto the defaults.
func (e *Reference) units(doc map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(defaultUnits))
	for k, v := range defaultUnits {
		merged[k] = v
	}

	section, ok := doc["units"].(map[string]interface{})
	if !ok {
		return merged
	}
	for k, v := range section {
		merged[k] = v
	}

	return merged
}

// prerendered lifts artifacts the config already carries in final form:
//
//	prerender:
//	  outlines: {plate: {svg: "<svg .../>"}}
//	  cases:    {bottom: {jscad: "..."}}
//	  pcbs:     {main: "..."}
func (e *Reference) prerendered(doc map[string]interface{}, tree *result.Tree) error {
	section, ok := doc["prerender"].(map[string]interface{})
	if !ok {
		return nil
	}

	if outlines, ok := section["outlines"].(map[string]interface{}); ok {
		for name, spec := range outlines {
			payload, err := compositeFromSpec(name, spec)
			if err != nil {
				return err
			}
			tree.Outlines[name] = payload
		}
	}

	if cases, ok := section["cases"].(map[string]interface{}); ok {
		for name, spec := range cases {
			payload, err := compositeFromSpec(name, spec)
			if err != nil {
				return err
			}
			tree.Cases[name] = payload
		}
	}

	if pcbs, ok := section["pcbs"].(map[string]interface{}); ok {
		for name, spec := range pcbs {
			text, ok := spec.(string)
			if !ok {
				return fmt.Errorf("prerendered pcb %s must be text", name)
			}
			tree.PCBs[name] = result.Value(text)
		}
	}

	return nil
}

func compositeFromSpec(name string, spec interface{}) (result.Payload, error) {
	m, ok := spec.(map[string]interface{})
	if !ok {
		return result.Absent(), fmt.Errorf("prerendered artifact %s must map formats to text", name)
	}

	formats := make(map[result.Format]interface{}, len(m))
	for tag, v := range m {
		switch result.Format(tag) {
		case result.FormatYAML, result.FormatSVG, result.FormatDXF, result.FormatJSCAD:
			formats[result.Format(tag)] = v
		default:
			return result.Absent(), fmt.Errorf("prerendered artifact %s has unknown format %q", name, tag)
		}
	}

	return result.Composite(formats), nil
}
