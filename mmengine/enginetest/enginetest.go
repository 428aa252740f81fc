// Package enginetest provides a scripted Engine for tests.
package enginetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aadish0day/mermaid/mmengine"
)

// Call records one Render invocation along with the theme configured at the
// time of the call.
type Call struct {
	ID     string
	Source string
	Theme  string
}

type Engine struct {
	// RenderFunc computes the render result when set. The default wraps the
	// source in an svg element carrying the render id.
	RenderFunc func(id, source string) (string, error)
	// Delay stalls each render before it completes, for overlap tests.
	Delay time.Duration

	mu    sync.Mutex
	theme mmengine.ThemeConfig
	calls []Call
}

var _ mmengine.Engine = &Engine{}

func New() *Engine {
	return &Engine{theme: mmengine.ThemeConfig{Theme: "default"}}
}

func (e *Engine) Configure(tc mmengine.ThemeConfig) error {
	e.mu.Lock()
	e.theme = tc
	e.mu.Unlock()
	return nil
}

func (e *Engine) Render(ctx context.Context, id, source string) (string, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{ID: id, Source: source, Theme: e.theme.Theme})
	fn := e.RenderFunc
	delay := e.Delay
	e.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if fn != nil {
		return fn(id, source)
	}
	return fmt.Sprintf("<svg id=%q><desc>%s</desc></svg>", id, source), nil
}

func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

func (e *Engine) LastCall() (Call, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.calls) == 0 {
		return Call{}, false
	}
	return e.calls[len(e.calls)-1], true
}
