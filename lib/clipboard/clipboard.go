// Package clipboard places text on the user's clipboard.
package clipboard

import (
	"context"
	"io"

	"github.com/muesli/termenv"
)

// Clipboard accepts a text payload. Writes may fail for platform or
// permission reasons independent of the caller having something to copy.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// OSC52 copies through the controlling terminal with the OSC 52 escape
// sequence. It reaches the user's system clipboard even over SSH, for
// terminals that support the sequence.
type OSC52 struct {
	out *termenv.Output
}

func NewOSC52(w io.Writer) *OSC52 {
	return &OSC52{out: termenv.NewOutput(w)}
}

func (c *OSC52) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.out.Copy(text)
	return nil
}
