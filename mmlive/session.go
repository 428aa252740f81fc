// Package mmlive coordinates the live render pipeline.
//
// A Session is the single owner of the diagram source, the theme, the
// mounted artifact and the transient notification. Edits are debounced into
// render calls against the engine; the outcome (SVG or error text) replaces
// the previous one wholesale and is pushed to subscribers.
package mmlive

import (
	"context"
	"sync"
	"time"

	"github.com/aadish0day/mermaid/lib/simplelog"
	"github.com/aadish0day/mermaid/mmengine"
)

type Theme int

const (
	ThemeLight Theme = iota
	ThemeDark
)

func (t Theme) String() string {
	if t == ThemeDark {
		return "dark"
	}
	return "light"
}

// Config maps the theme onto the engine's configuration value.
func (t Theme) Config() mmengine.ThemeConfig {
	if t == ThemeDark {
		return mmengine.ThemeConfig{Theme: "dark"}
	}
	return mmengine.ThemeConfig{Theme: "default"}
}

// ParseTheme accepts the user-facing names.
func ParseTheme(s string) (Theme, bool) {
	switch s {
	case "light":
		return ThemeLight, true
	case "dark":
		return ThemeDark, true
	}
	return ThemeLight, false
}

// Outcome is the result of the most recent render. SVG and Err are mutually
// exclusive; both are empty between issuing a render and its completion.
type Outcome struct {
	Seq int64
	SVG string
	Err string
}

type Notification struct {
	Message   string    `json:"message"`
	IsError   bool      `json:"isError"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Update is the state snapshot pushed to subscribers.
type Update struct {
	SVG          string        `json:"svg"`
	Err          string        `json:"err"`
	Notification *Notification `json:"notification,omitempty"`
}

const (
	// DefaultDebounce is the quiescence interval between the last edit and
	// the render it triggers.
	DefaultDebounce = 500 * time.Millisecond
	// DefaultNotifyTTL is how long a notification stays up before it clears
	// itself.
	DefaultNotifyTTL = 3 * time.Second
)

// SampleDiagram is the initial editor content when no input is given.
const SampleDiagram = `graph TD
    A[Start] --> B{Is it rendering?}
    B -->|Yes| C[Ship it]
    B -->|No| D[Check the syntax]
    D --> B
`

type Opts struct {
	// Source seeds the session. Empty means SampleDiagram.
	Source string
	Theme  Theme

	// Debounce and NotifyTTL default to DefaultDebounce and DefaultNotifyTTL.
	// Tests shrink them.
	Debounce  time.Duration
	NotifyTTL time.Duration
}

type Session struct {
	engine mmengine.Engine
	log    simplelog.Logger

	debounce  time.Duration
	notifyTTL time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	closed     bool
	source     string
	theme      Theme
	outcome    Outcome
	issuedSeq  int64
	pending    *time.Timer
	pendingGen int64

	notif      *Notification
	notifGen   int64
	notifErr   bool // the current notification owns the inline error text
	notifTimer *time.Timer

	subscribers map[chan struct{}]struct{}
}

func NewSession(ctx context.Context, engine mmengine.Engine, log simplelog.Logger, opts *Opts) *Session {
	if opts == nil {
		opts = &Opts{}
	}
	source := opts.Source
	if source == "" {
		source = SampleDiagram
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	notifyTTL := opts.NotifyTTL
	if notifyTTL <= 0 {
		notifyTTL = DefaultNotifyTTL
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		engine:      engine,
		log:         log,
		debounce:    debounce,
		notifyTTL:   notifyTTL,
		ctx:         ctx,
		cancel:      cancel,
		source:      source,
		theme:       opts.Theme,
		subscribers: make(map[chan struct{}]struct{}),
	}
	if err := s.engine.Configure(s.theme.Config()); err != nil {
		s.log.Error("failed to configure engine theme: " + err.Error())
	}
	return s
}

// Start issues the first render immediately, not debounced, so the initial
// content is visible without waiting out a quiescence interval.
func (s *Session) Start() {
	s.renderNow()
}

// Close cancels the pending render token and the notification timer, then
// waits for any in-flight render to drain. No state mutation lands after
// Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.pending != nil {
		s.pending.Stop()
	}
	if s.notifTimer != nil {
		s.notifTimer.Stop()
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

func (s *Session) Theme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// Snapshot returns the current user-visible state.
func (s *Session) Snapshot() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := Update{SVG: s.outcome.SVG, Err: s.outcome.Err}
	if s.notif != nil {
		n := *s.notif
		u.Notification = &n
	}
	return u
}

// Subscribe registers a wakeup channel with capacity 1 so bursts of updates
// coalesce. The channel starts signaled so a new subscriber writes out the
// current state right away.
func (s *Session) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Session) Unsubscribe(ch chan struct{}) {
	s.mu.Lock()
	delete(s.subscribers, ch)
	s.mu.Unlock()
}

func (s *Session) broadcastLocked() {
	for ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
