package mmlive

import "fmt"

// renderNow issues one tagged render immediately, bypassing the debounce.
//
// The mounted artifact is cleared up front so a failed render can never leave
// stale content on display, and each call gets a fresh unique id so an engine
// that caches by id never serves a previous graphic.
func (s *Session) renderNow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderNowLocked()
}

func (s *Session) renderNowLocked() {
	if s.closed {
		return
	}
	s.issuedSeq++
	seq := s.issuedSeq
	src := s.source
	s.outcome.SVG = ""
	s.broadcastLocked()
	s.wg.Add(1)

	go s.execute(seq, src)
}

// execute runs one render against the engine and records the outcome.
//
// Renders are tagged with an issue-order sequence number and the completion
// of a superseded render is discarded: last issued wins, regardless of which
// engine call happens to finish first. Engine failure is absorbed into state
// as the current error text, never propagated to the caller.
func (s *Session) execute(seq int64, src string) {
	defer s.wg.Done()

	id := fmt.Sprintf("mermaid-%d", seq)
	svg, err := s.engine.Render(s.ctx, id, src)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.issuedSeq {
		return
	}
	if err != nil {
		s.log.Error("render failed: " + err.Error())
		s.outcome = Outcome{Seq: seq, Err: err.Error()}
	} else {
		s.log.Debug("rendered " + id)
		s.outcome = Outcome{Seq: seq, SVG: svg}
	}
	s.broadcastLocked()
}
