// Package mmengine abstracts the external Mermaid rendering engine.
//
// The engine owns parsing and layout of Mermaid source. Everything else in
// this repository treats it as an opaque collaborator: configure a theme,
// hand it source text, get back a serialized SVG or a human-readable error.
package mmengine

import "context"

// ThemeConfig selects the engine-side theme. Values follow mermaid's
// initialize() API: "default" and "dark".
type ThemeConfig struct {
	Theme string `json:"theme"`
}

// Engine renders Mermaid source into SVG.
//
// Configure applies before subsequent Render calls; implementations carry the
// last applied ThemeConfig. Render must fail with the engine's own message on
// invalid source and must not write partial output.
type Engine interface {
	Configure(ThemeConfig) error
	Render(ctx context.Context, id, source string) (svg string, err error)
}
