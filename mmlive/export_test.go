package mmlive_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aadish0day/mermaid/mmengine/enginetest"
	"github.com/aadish0day/mermaid/mmlive"
)

type recordSaver struct {
	calls int
	name  string
	data  []byte
	mime  string
	err   error
}

func (r *recordSaver) Save(name string, data []byte, mime string) error {
	r.calls++
	r.name = name
	r.data = data
	r.mime = mime
	return r.err
}

type recordClipboard struct {
	calls int
	text  string
	err   error
}

func (r *recordClipboard) WriteText(ctx context.Context, text string) error {
	r.calls++
	r.text = text
	return r.err
}

func renderedSession(t *testing.T) *mmlive.Session {
	t.Helper()
	s := newTestSession(t, enginetest.New(), nil)
	s.Start()
	require.Eventually(t, func() bool {
		_, ok := s.Extract()
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	return s
}

func TestDownloadWithNothingMounted(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, enginetest.New(), nil)
	saver := &recordSaver{}
	s.Download(saver)

	require.Zero(t, saver.calls)
	n := s.Snapshot().Notification
	require.NotNil(t, n)
	require.Equal(t, "No diagram to download", n.Message)
	require.True(t, n.IsError)
}

func TestDownload(t *testing.T) {
	t.Parallel()

	s := renderedSession(t)
	svg, ok := s.Extract()
	require.True(t, ok)

	saver := &recordSaver{}
	s.Download(saver)

	require.Equal(t, 1, saver.calls)
	require.Regexp(t, regexp.MustCompile(`^mermaid-diagram-\d{14}\.svg$`), saver.name)
	require.Equal(t, mmlive.SVGMimeType, saver.mime)
	require.Equal(t, svg, string(saver.data))

	n := s.Snapshot().Notification
	require.NotNil(t, n)
	require.Equal(t, "Diagram downloaded", n.Message)
	require.False(t, n.IsError)
}

func TestDownloadSaveFailure(t *testing.T) {
	t.Parallel()

	s := renderedSession(t)
	saver := &recordSaver{err: errors.New("disk full")}
	s.Download(saver)

	n := s.Snapshot().Notification
	require.NotNil(t, n)
	require.Equal(t, "Failed to save diagram", n.Message)
	require.True(t, n.IsError)
}

func TestCopyWithNothingMounted(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, enginetest.New(), nil)
	cb := &recordClipboard{}
	s.Copy(context.Background(), cb)

	require.Zero(t, cb.calls)
	n := s.Snapshot().Notification
	require.NotNil(t, n)
	require.Equal(t, "No diagram to copy", n.Message)
	require.True(t, n.IsError)
}

func TestCopy(t *testing.T) {
	t.Parallel()

	s := renderedSession(t)
	svg, ok := s.Extract()
	require.True(t, ok)

	cb := &recordClipboard{}
	s.Copy(context.Background(), cb)

	// The clipboard receives the exact serialized artifact text.
	require.Equal(t, svg, cb.text)
	n := s.Snapshot().Notification
	require.NotNil(t, n)
	require.Equal(t, "Copied to clipboard", n.Message)
	require.False(t, n.IsError)
}

func TestCopyWriteFailure(t *testing.T) {
	t.Parallel()

	s := renderedSession(t)
	cb := &recordClipboard{err: errors.New("no clipboard access")}
	s.Copy(context.Background(), cb)

	// Distinct from the "nothing to copy" message so the user can tell the
	// two failures apart.
	n := s.Snapshot().Notification
	require.NotNil(t, n)
	require.Equal(t, "Failed to copy to clipboard", n.Message)
	require.True(t, n.IsError)
}

func TestExportFilename(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 31, 12, 30, 45, 0, time.UTC)
	require.Equal(t, "mermaid-diagram-20260831123045.svg", mmlive.ExportFilename(now))
}
