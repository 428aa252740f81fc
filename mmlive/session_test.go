package mmlive_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aadish0day/mermaid/lib/log"
	"github.com/aadish0day/mermaid/lib/simplelog"
	"github.com/aadish0day/mermaid/mmengine/enginetest"
	"github.com/aadish0day/mermaid/mmlive"
)

func newTestSession(t *testing.T, eng *enginetest.Engine, opts *mmlive.Opts) *mmlive.Session {
	t.Helper()
	if opts == nil {
		opts = &mmlive.Opts{}
	}
	if opts.Debounce == 0 {
		opts.Debounce = 50 * time.Millisecond
	}
	ctx := log.WithTB(context.Background(), t)
	s := mmlive.NewSession(ctx, eng, simplelog.FromLibLog(ctx), opts)
	t.Cleanup(s.Close)
	return s
}

func waitForCalls(t *testing.T, eng *enginetest.Engine, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(eng.Calls()) >= n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStartRendersImmediately(t *testing.T) {
	t.Parallel()

	eng := enginetest.New()
	s := newTestSession(t, eng, &mmlive.Opts{Debounce: time.Hour})
	s.Start()

	// The startup render must not wait out the debounce interval.
	waitForCalls(t, eng, 1)
	call, ok := eng.LastCall()
	require.True(t, ok)
	require.Equal(t, "mermaid-1", call.ID)
	require.Equal(t, mmlive.SampleDiagram, call.Source)

	require.Eventually(t, func() bool {
		return s.Snapshot().SVG != ""
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBurstOfEditsRendersOnce(t *testing.T) {
	t.Parallel()

	eng := enginetest.New()
	s := newTestSession(t, eng, nil)
	s.Start()
	waitForCalls(t, eng, 1)

	for i := 0; i < 10; i++ {
		s.SetSource(fmt.Sprintf("graph TD\n    A%d --> B", i))
	}
	waitForCalls(t, eng, 2)

	// No further renders arrive once the burst has settled.
	time.Sleep(150 * time.Millisecond)
	calls := eng.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, "graph TD\n    A9 --> B", calls[1].Source)
	require.Contains(t, s.Snapshot().SVG, "mermaid-2")
}

func TestThemeChangeRerendersUnchangedSource(t *testing.T) {
	t.Parallel()

	eng := enginetest.New()
	s := newTestSession(t, eng, nil)
	s.Start()
	waitForCalls(t, eng, 1)

	s.SetTheme(mmlive.ThemeDark)
	waitForCalls(t, eng, 2)

	calls := eng.Calls()
	require.Equal(t, "default", calls[0].Theme)
	require.Equal(t, "dark", calls[1].Theme)
	require.Equal(t, calls[0].Source, calls[1].Source)

	// Same theme again is not a change.
	s.SetTheme(mmlive.ThemeDark)
	time.Sleep(150 * time.Millisecond)
	require.Len(t, eng.Calls(), 2)
}

func TestRenderFailureClearsDisplay(t *testing.T) {
	t.Parallel()

	eng := enginetest.New()
	eng.RenderFunc = func(id, source string) (string, error) {
		if strings.Contains(source, "bad") {
			return "", errors.New("Parse error on line 2")
		}
		return fmt.Sprintf("<svg id=%q><desc>ok</desc></svg>", id), nil
	}
	s := newTestSession(t, eng, &mmlive.Opts{Source: "bad diagram"})
	s.Start()

	require.Eventually(t, func() bool {
		return s.Snapshot().Err == "Parse error on line 2"
	}, 2*time.Second, 5*time.Millisecond)
	require.Empty(t, s.Snapshot().SVG)
	_, ok := s.Extract()
	require.False(t, ok)

	// The next valid edit self-heals.
	s.SetSource("graph TD\n    A --> B")
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.Err == "" && snap.SVG != ""
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLastIssuedRenderWins(t *testing.T) {
	t.Parallel()

	eng := enginetest.New()
	eng.RenderFunc = func(id, source string) (string, error) {
		if strings.Contains(source, "slow") {
			time.Sleep(200 * time.Millisecond)
		}
		return fmt.Sprintf("<svg id=%q><desc>%s</desc></svg>", id, source), nil
	}
	s := newTestSession(t, eng, &mmlive.Opts{Debounce: 10 * time.Millisecond})
	s.Start()
	waitForCalls(t, eng, 1)

	s.SetSource("slow diagram")
	waitForCalls(t, eng, 2)
	s.SetSource("fast diagram")
	waitForCalls(t, eng, 3)

	require.Eventually(t, func() bool {
		return strings.Contains(s.Snapshot().SVG, "fast diagram")
	}, 2*time.Second, 5*time.Millisecond)

	// The slow render completes after the fast one but was issued earlier, so
	// its result must be discarded.
	time.Sleep(300 * time.Millisecond)
	require.Contains(t, s.Snapshot().SVG, "fast diagram")
}

func TestCloseCancelsPendingRender(t *testing.T) {
	t.Parallel()

	eng := enginetest.New()
	s := newTestSession(t, eng, nil)
	s.Start()
	waitForCalls(t, eng, 1)

	s.SetSource("never rendered")
	s.Close()

	time.Sleep(150 * time.Millisecond)
	require.Len(t, eng.Calls(), 1)
}

func TestSubscribeWakesOnUpdate(t *testing.T) {
	t.Parallel()

	eng := enginetest.New()
	s := newTestSession(t, eng, nil)

	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	// A new subscriber starts signaled so it writes the current state out
	// right away.
	select {
	case <-ch:
	default:
		t.Fatal("expected subscription to start signaled")
	}

	s.Notify("hello", false)
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a wakeup after Notify")
	}
	n := s.Snapshot().Notification
	require.NotNil(t, n)
	require.Equal(t, "hello", n.Message)
}
