package mmengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"oss.terrastruct.com/util-go/xexec"

	"github.com/aadish0day/mermaid/lib/log"
	timelib "github.com/aadish0day/mermaid/lib/time"
)

// MMDC runs the Mermaid CLI (mmdc) as a subprocess.
//
// The protocol is mmdc's own: source on stdin, SVG on stdout, theme and the
// unique svg id as flags. A non-zero exit surfaces stderr as the render error
// message so the caller sees mermaid's parse diagnostics verbatim.
type MMDC struct {
	path string

	mu    sync.Mutex
	theme ThemeConfig
}

const mmdcPrefix = "mmdc"

// FindMMDC locates the mmdc executable. pathOverride wins when non-empty,
// otherwise $PATH is searched.
func FindMMDC(pathOverride string) (*MMDC, error) {
	if pathOverride != "" {
		return &MMDC{path: pathOverride, theme: ThemeConfig{Theme: "default"}}, nil
	}
	matches, err := xexec.SearchPath(mmdcPrefix)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errors.New(`mmdc not found in $PATH. Install the Mermaid CLI with "npm install -g @mermaid-js/mermaid-cli" or point $MERMAID_PATH at the executable`)
	}
	return &MMDC{path: matches[0], theme: ThemeConfig{Theme: "default"}}, nil
}

func (e *MMDC) Path() string {
	return e.path
}

func (e *MMDC) Configure(tc ThemeConfig) error {
	if tc.Theme == "" {
		tc.Theme = "default"
	}
	e.mu.Lock()
	e.theme = tc
	e.mu.Unlock()
	return nil
}

func (e *MMDC) Render(ctx context.Context, id, source string) (string, error) {
	ctx, cancel := timelib.WithTimeout(ctx, time.Minute)
	defer cancel()

	e.mu.Lock()
	theme := e.theme.Theme
	e.mu.Unlock()

	log.Debug(ctx, "invoking mmdc", "id", id, "theme", theme)
	cmd := exec.CommandContext(ctx, e.path,
		"--input", "-",
		"--output", "-",
		"--outputFormat", "svg",
		"--theme", theme,
		"--svgId", id,
		"--quiet",
	)
	cmd.Stdin = strings.NewReader(source)

	stdout, err := cmd.Output()
	if err != nil {
		ee := &exec.ExitError{}
		if errors.As(err, &ee) && len(ee.Stderr) > 0 {
			return "", fmt.Errorf("%s", bytes.TrimSpace(ee.Stderr))
		}
		return "", err
	}
	return string(stdout), nil
}
