package mmlive_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aadish0day/mermaid/mmengine/enginetest"
	"github.com/aadish0day/mermaid/mmlive"
)

func TestNotificationExpires(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, enginetest.New(), &mmlive.Opts{NotifyTTL: 80 * time.Millisecond})

	s.Notify("saved", false)
	n := s.Snapshot().Notification
	require.NotNil(t, n)
	require.Equal(t, "saved", n.Message)
	require.False(t, n.IsError)
	require.False(t, n.ExpiresAt.IsZero())

	require.Eventually(t, func() bool {
		return s.Snapshot().Notification == nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestNewerNotificationResetsExpiry(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, enginetest.New(), &mmlive.Opts{NotifyTTL: 200 * time.Millisecond})

	s.Notify("first", false)
	time.Sleep(120 * time.Millisecond)
	s.Notify("second", false)

	// The first notification's timer fires around now; it must not clear the
	// newer notification early.
	time.Sleep(120 * time.Millisecond)
	n := s.Snapshot().Notification
	require.NotNil(t, n)
	require.Equal(t, "second", n.Message)

	require.Eventually(t, func() bool {
		return s.Snapshot().Notification == nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestErrorNotificationOwnsErrorText(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, enginetest.New(), &mmlive.Opts{NotifyTTL: 80 * time.Millisecond})

	s.Notify("Failed to copy to clipboard", true)
	snap := s.Snapshot()
	require.NotNil(t, snap.Notification)
	require.True(t, snap.Notification.IsError)
	require.Equal(t, "Failed to copy to clipboard", snap.Err)

	// Expiry clears the error text too, since this notification set it.
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.Notification == nil && snap.Err == ""
	}, 2*time.Second, 5*time.Millisecond)
}
