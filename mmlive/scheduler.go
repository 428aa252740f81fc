package mmlive

import "time"

// SetSource replaces the diagram source and schedules a render for after the
// quiescence interval. Rapid successive edits cancel each other's pending
// render token, so a burst of keystrokes ends in exactly one render of the
// final text.
func (s *Session) SetSource(src string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.source = src
	s.scheduleLocked()
}

// SetTheme re-configures the engine and schedules a re-render even though the
// source is unchanged, since rendering is theme dependent. Setting the theme
// it already has is a no-op.
func (s *Session) SetTheme(th Theme) {
	s.mu.Lock()
	if s.closed || th == s.theme {
		s.mu.Unlock()
		return
	}
	s.theme = th
	s.mu.Unlock()

	// The engine must see the new theme before the render it styles.
	if err := s.engine.Configure(th.Config()); err != nil {
		s.log.Error("failed to configure engine theme: " + err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.scheduleLocked()
}

// scheduleLocked cancels the pending render token, if any, and arms a new
// one tagged with a fresh generation.
func (s *Session) scheduleLocked() {
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pendingGen++
	gen := s.pendingGen
	s.pending = time.AfterFunc(s.debounce, func() { s.firePending(gen) })
}

// firePending runs on the timer goroutine. Stop cannot recall a callback
// that has already fired and is waiting on the mutex, so the generation is
// re-checked under the lock: a superseded token must not render alongside
// the one that replaced it.
func (s *Session) firePending(gen int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.pendingGen {
		return
	}
	s.renderNowLocked()
}
