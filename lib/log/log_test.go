package log_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aadish0day/mermaid/lib/log"
)

// recordingTB captures what the handler hands to the test log.
type recordingTB struct {
	testing.TB
	lines []string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Log(args ...any) {
	r.lines = append(r.lines, fmt.Sprint(args...))
}

func TestWithTB(t *testing.T) {
	t.Parallel()

	rec := &recordingTB{TB: t}
	ctx := log.WithTB(context.Background(), rec)

	log.Debug(ctx, "rendering", "id", "mermaid-1")
	log.Info(ctx, "listening")
	log.Warn(ctx, "engine is slow")
	log.Error(ctx, "render failed")

	require.Len(t, rec.lines, 4)
	joined := strings.Join(rec.lines, "\n")
	require.Contains(t, joined, "level=DEBUG")
	require.Contains(t, joined, "id=mermaid-1")
	require.Contains(t, joined, "level=INFO")
	require.Contains(t, joined, "level=WARN")
	require.Contains(t, joined, "level=ERROR")
	require.Contains(t, joined, "render failed")
	for _, line := range rec.lines {
		require.False(t, strings.HasSuffix(line, "\n"))
	}
}
