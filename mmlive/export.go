package mmlive

import (
	"context"
	"time"

	"github.com/aadish0day/mermaid/lib/clipboard"
)

// FileSaver receives the exported artifact. In the editor this is the
// browser's download flow; in the CLI it is a plain file write.
type FileSaver interface {
	Save(filename string, data []byte, mimeType string) error
}

const SVGMimeType = "image/svg+xml"

// ExportFilename returns a collision-resistant download name. Repeated
// exports land in distinct files because the timestamp is part of the name.
func ExportFilename(now time.Time) string {
	return "mermaid-diagram-" + now.Format("20060102150405") + ".svg"
}

// Download extracts the mounted artifact and hands it to saver. Every path
// ends in a notification; nothing is retried.
func (s *Session) Download(saver FileSaver) {
	svg, ok := s.Extract()
	if !ok {
		s.Notify("No diagram to download", true)
		return
	}
	name := ExportFilename(time.Now())
	if err := saver.Save(name, []byte(svg), SVGMimeType); err != nil {
		s.log.Error("download failed: " + err.Error())
		s.Notify("Failed to save diagram", true)
		return
	}
	s.Notify("Diagram downloaded", false)
}

// Copy places the exact serialized artifact text on the clipboard. A failing
// clipboard write is reported distinctly from having nothing to copy, so the
// user can tell "there was nothing" apart from "the copy itself failed".
func (s *Session) Copy(ctx context.Context, cb clipboard.Clipboard) {
	svg, ok := s.Extract()
	if !ok {
		s.Notify("No diagram to copy", true)
		return
	}
	if err := cb.WriteText(ctx, svg); err != nil {
		s.log.Error("clipboard write failed: " + err.Error())
		s.Notify("Failed to copy to clipboard", true)
		return
	}
	s.Notify("Copied to clipboard", false)
}
