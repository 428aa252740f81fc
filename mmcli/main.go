package mmcli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"oss.terrastruct.com/util-go/xmain"

	"github.com/aadish0day/mermaid/lib/clipboard"
	"github.com/aadish0day/mermaid/lib/log"
	timelib "github.com/aadish0day/mermaid/lib/time"
	"github.com/aadish0day/mermaid/lib/version"
	"github.com/aadish0day/mermaid/mmengine"
	"github.com/aadish0day/mermaid/mmlive"
)

func Run(ctx context.Context, ms *xmain.State) (err error) {
	ctx = log.WithDefault(ctx)

	watchFlag, err := ms.Opts.Bool("MERMAID_WATCH", "watch", "w", false, "serve the live editor and follow changes to the input file. Use $HOST and $PORT to specify the listening address.\n(default localhost:0, which will open on a randomly available local port).")
	if err != nil {
		return err
	}
	editFlag, err := ms.Opts.Bool("MERMAID_EDIT", "edit", "e", false, "serve the live editor without an input file. This is the default when no input is given.")
	if err != nil {
		return err
	}
	hostFlag := ms.Opts.String("HOST", "host", "h", "localhost", "host listening address when used with the editor")
	portFlag := ms.Opts.String("PORT", "port", "p", "0", "port listening address when used with the editor")
	themeFlag := ms.Opts.String("MERMAID_THEME", "theme", "t", "", "the diagram theme, light or dark. Defaults to matching the terminal background.")
	mmdcFlag := ms.Opts.String("MERMAID_PATH", "mmdc", "", "", "path to the mmdc executable. Defaults to searching $PATH.")
	browserFlag := ms.Opts.String("BROWSER", "browser", "", "", "browser executable that the editor opens. Setting to 0 opens no browser.")
	copyFlag, err := ms.Opts.Bool("", "copy", "c", false, "also copy the rendered SVG to the clipboard (one-shot mode)")
	if err != nil {
		return err
	}
	debugFlag, err := ms.Opts.Bool("DEBUG", "debug", "d", false, "print debug logs.")
	if err != nil {
		return err
	}
	timeoutFlag, err := ms.Opts.Int64("MERMAID_TIMEOUT", "timeout", "", 120, "the maximum number of seconds a one-shot render runs for before timing out")
	if err != nil {
		return err
	}
	versionFlag, err := ms.Opts.Bool("", "version", "v", false, "get the version")
	if err != nil {
		return err
	}

	err = ms.Opts.Flags.Parse(ms.Opts.Args)
	if !errors.Is(err, pflag.ErrHelp) && err != nil {
		return xmain.UsageErrorf("failed to parse flags: %v", err)
	}
	if errors.Is(err, pflag.ErrHelp) {
		help(ms)
		return nil
	}

	if *versionFlag {
		fmt.Fprintln(ms.Stdout, version.Version)
		return nil
	}
	if *debugFlag {
		ms.Env.Setenv("DEBUG", "1")
	}
	if *browserFlag != "" {
		ms.Env.Setenv("BROWSER", *browserFlag)
	}

	theme, err := resolveTheme(*themeFlag)
	if err != nil {
		return err
	}

	var inputPath, outputPath string
	args := ms.Opts.Flags.Args()
	switch len(args) {
	case 0:
	case 1:
		inputPath = args[0]
	case 2:
		inputPath = args[0]
		outputPath = args[1]
	default:
		return xmain.UsageErrorf("too many arguments passed")
	}
	if inputPath != "" && inputPath != "-" {
		inputPath = ms.AbsPath(inputPath)
	}

	engine, err := mmengine.FindMMDC(*mmdcFlag)
	if err != nil {
		return err
	}
	ms.Log.Debug.Printf("using mmdc at %s", engine.Path())

	if *editFlag || *watchFlag || inputPath == "" {
		if *watchFlag && inputPath == "" {
			return xmain.UsageErrorf("-w[atch] requires an input path")
		}
		if inputPath == "-" {
			return xmain.UsageErrorf("the editor cannot read input from stdin")
		}
		var source string
		if inputPath != "" {
			input, err := ms.ReadPath(inputPath)
			if err != nil {
				return err
			}
			source = string(input)
		}
		ms.Log.SetTS(true)
		e, err := newEditor(ctx, ms, editorOpts{
			host:      *hostFlag,
			port:      *portFlag,
			inputPath: inputPath,
			watch:     *watchFlag,
			theme:     theme,
			source:    source,
			engine:    engine,
		})
		if err != nil {
			return err
		}
		return e.run()
	}

	// One-shot render.
	if outputPath == "" {
		if inputPath == "-" {
			outputPath = "-"
		} else {
			outputPath = renameExt(inputPath, ".svg")
		}
	}
	if outputPath != "-" {
		outputPath = ms.AbsPath(outputPath)
		err = os.MkdirAll(filepath.Dir(outputPath), 0755)
		if err != nil {
			return err
		}
	}
	if err := engine.Configure(theme.Config()); err != nil {
		return err
	}

	ctx, cancel := timelib.WithTimeout(ctx, time.Duration(*timeoutFlag)*time.Second)
	defer cancel()

	svg, err := renderOnce(ctx, ms, engine, inputPath)
	if err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}
	out := []byte(svg)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	err = ms.WritePath(outputPath, out)
	if err != nil {
		return err
	}
	if *copyFlag {
		cb := clipboard.NewOSC52(os.Stderr)
		if err := cb.WriteText(ctx, svg); err != nil {
			ms.Log.Error.Printf("failed to copy to clipboard: %v", err)
		} else {
			ms.Log.Success.Printf("copied SVG to clipboard")
		}
	}
	ms.Log.Success.Printf("successfully rendered %v to %v", ms.HumanPath(inputPath), ms.HumanPath(outputPath))
	return nil
}

func renderOnce(ctx context.Context, ms *xmain.State, engine mmengine.Engine, inputPath string) (string, error) {
	input, err := ms.ReadPath(inputPath)
	if err != nil {
		return "", err
	}
	// Fresh id per invocation so an engine that caches by id never reuses a
	// previous graphic.
	id := fmt.Sprintf("mermaid-%d", time.Now().UnixNano())
	return engine.Render(ctx, id, string(input))
}

func resolveTheme(flag string) (mmlive.Theme, error) {
	if flag == "" {
		if termenv.HasDarkBackground() {
			return mmlive.ThemeDark, nil
		}
		return mmlive.ThemeLight, nil
	}
	th, ok := mmlive.ParseTheme(flag)
	if !ok {
		return 0, xmain.UsageErrorf("-t[heme] must be light or dark. You provided: %s", flag)
	}
	return th, nil
}
