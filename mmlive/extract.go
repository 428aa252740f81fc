package mmlive

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extract serializes the currently mounted artifact into a self-contained
// SVG document. ok is false when nothing is mounted — after a failed render,
// or before the first render completes — which callers must treat as
// "nothing to export", not as a rendering bug.
func (s *Session) Extract() (svg string, ok bool) {
	s.mu.Lock()
	mounted := s.outcome.SVG
	s.mu.Unlock()
	if strings.TrimSpace(mounted) == "" {
		return "", false
	}
	return serializeSVG(mounted)
}

// serializeSVG locates the svg element within the display markup and
// guarantees the result stands alone as image/svg+xml. The engine may wrap
// its output; only the graphic itself is exported.
func serializeSVG(markup string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", false
	}
	sel := doc.Find("svg").First()
	if sel.Length() == 0 {
		return "", false
	}
	out, err := goquery.OuterHtml(sel)
	if err != nil {
		return "", false
	}
	out = strings.TrimSpace(out)
	if !strings.Contains(out, "xmlns=") {
		out = strings.Replace(out, "<svg", `<svg xmlns="http://www.w3.org/2000/svg"`, 1)
	}
	return out, true
}
