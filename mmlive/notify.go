package mmlive

import "time"

// Notify replaces the current notification and re-arms the expiry timer. A
// newer notification never queues behind an older one. When isError is set
// the message also takes over the inline error text, and expiry clears that
// error only if this notification set it.
func (s *Session) Notify(message string, isError bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.notifGen++
	gen := s.notifGen
	s.notif = &Notification{
		Message:   message,
		IsError:   isError,
		ExpiresAt: time.Now().Add(s.notifyTTL),
	}
	s.notifErr = isError
	if isError {
		s.outcome.Err = message
	}

	if s.notifTimer != nil {
		s.notifTimer.Stop()
	}
	s.notifTimer = time.AfterFunc(s.notifyTTL, func() {
		s.expireNotification(gen)
	})
	s.broadcastLocked()
}

// expireNotification clears the notification slot. A timer whose
// notification was superseded finds gen stale and must not clear the newer
// one early.
func (s *Session) expireNotification(gen int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.notifGen || s.notif == nil {
		return
	}
	s.notif = nil
	if s.notifErr {
		s.outcome.Err = ""
		s.notifErr = false
	}
	s.broadcastLocked()
}
