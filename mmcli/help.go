package mmcli

import (
	"fmt"
	"path/filepath"

	"oss.terrastruct.com/util-go/xmain"

	"github.com/aadish0day/mermaid/lib/version"
)

func help(ms *xmain.State) {
	fmt.Fprintf(ms.Stdout, `%[1]s %[2]s
Usage:
  %[1]s [--theme=light] file.mmd [file.svg]
  %[1]s [--watch] file.mmd
  %[1]s --edit

%[1]s renders file.mmd to file.svg using the Mermaid CLI (mmdc).
It defaults to file.svg if an output path is not provided.

Use - to have %[1]s read from stdin or write to stdout.

With no arguments (or --edit), %[1]s serves a live editor in your browser:
type Mermaid source on the left, see the rendered diagram on the right, and
download or copy the SVG. With --watch, the editor also follows changes to
file.mmd on disk.

Flags:
%[3]s
`, filepath.Base(ms.Name), version.Version, ms.Opts.Defaults())
}
