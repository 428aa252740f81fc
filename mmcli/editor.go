package mmcli

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"

	"oss.terrastruct.com/util-go/xbrowser"
	"oss.terrastruct.com/util-go/xhttp"
	"oss.terrastruct.com/util-go/xmain"

	"github.com/aadish0day/mermaid/lib/clipboard"
	"github.com/aadish0day/mermaid/lib/simplelog"
	timelib "github.com/aadish0day/mermaid/lib/time"
	"github.com/aadish0day/mermaid/lib/urlenc"
	"github.com/aadish0day/mermaid/mmengine"
	"github.com/aadish0day/mermaid/mmlive"
)

// Enabled with the build tag "dev".
// See editor_dev.go
// Controls whether the embedded staticFS is used or if files are served directly from the
// file system. Useful for quick iteration in development.
var devMode = false

//go:embed static
var staticFS embed.FS

type editorOpts struct {
	host      string
	port      string
	inputPath string
	watch     bool
	theme     mmlive.Theme
	source    string
	engine    mmengine.Engine
}

type editor struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	devMode bool

	ms *xmain.State
	editorOpts

	session   *mmlive.Session
	clipboard clipboard.Clipboard

	fw               *fsnotify.Watcher
	l                net.Listener
	staticFileServer http.Handler

	wsclientsMu sync.Mutex
	closing     bool
	wsclientsWG sync.WaitGroup
	wsclients   map[*wsclient]struct{}

	errMu sync.Mutex
	err   error
}

func newEditor(ctx context.Context, ms *xmain.State, opts editorOpts) (*editor, error) {
	ctx, cancel := context.WithCancel(ctx)

	e := &editor{
		ctx:     ctx,
		cancel:  cancel,
		devMode: devMode,

		ms:         ms,
		editorOpts: opts,

		clipboard: clipboard.NewOSC52(os.Stdout),
		wsclients: make(map[*wsclient]struct{}),
	}
	e.session = mmlive.NewSession(ctx, opts.engine, simplelog.FromCmdLog(ms.Log), &mmlive.Opts{
		Source: opts.source,
		Theme:  opts.theme,
	})
	err := e.init()
	if err != nil {
		cancel()
		return nil, err
	}
	return e, nil
}

func (e *editor) init() error {
	if e.watch {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		e.fw = fw
	}
	err := e.initStaticFileServer()
	if err != nil {
		return err
	}
	return e.listen()
}

func (e *editor) initStaticFileServer() error {
	// Serve files directly in dev mode for fast iteration.
	if e.devMode {
		_, file, _, ok := runtime.Caller(0)
		if !ok {
			return errors.New("mermaid: runtime failed to provide path of editor.go")
		}

		staticFilesDir := filepath.Join(filepath.Dir(file), "./static")
		e.staticFileServer = http.FileServer(http.Dir(staticFilesDir))
		return nil
	}

	sfs, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}
	e.staticFileServer = http.FileServer(http.FS(sfs))
	return nil
}

func (e *editor) run() error {
	defer e.close()

	if e.watch {
		e.goFunc(e.watchLoop)
	}

	err := e.goServe()
	if err != nil {
		return err
	}

	// The startup render is immediate, not debounced, so the first page load
	// never waits out a quiescence interval.
	e.session.Start()

	url := fmt.Sprintf("http://%s", e.l.Addr())
	if browser := e.ms.Env.Getenv("BROWSER"); browser != "0" && browser != "false" {
		err = xbrowser.Open(e.ctx, e.ms.Env, url)
		if err != nil {
			e.ms.Log.Warn.Printf("failed to open browser to %v: %v", url, err)
		}
	}

	e.wg.Wait()
	e.close()
	return e.err
}

func (e *editor) close() {
	e.wsclientsMu.Lock()
	if e.closing {
		e.wsclientsMu.Unlock()
		return
	}
	e.closing = true
	e.wsclientsMu.Unlock()

	e.cancel()
	if e.fw != nil {
		err := e.fw.Close()
		e.setErr(err)
	}
	if e.l != nil {
		err := e.l.Close()
		e.setErr(err)
	}

	e.wsclientsWG.Wait()
	// Tears down the pending render token and notification timers so nothing
	// writes to a gone display surface.
	e.session.Close()
}

func (e *editor) setErr(err error) {
	e.errMu.Lock()
	e.err = multierr.Append(e.err, err)
	e.errMu.Unlock()
}

func (e *editor) goFunc(fn func(context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.cancel()

		err := fn(e.ctx)
		e.setErr(err)
	}()
}

// watchLoop follows the input file on disk and feeds its contents into the
// session's scheduler, same as edits arriving from the browser.
//
// File notification APIs are notoriously unreliable; watches are lost when
// editors replace the file on save. The poll ticker and the modtime checks
// catch changes the events missed.
func (e *editor) watchLoop(ctx context.Context) error {
	lastModified := make(map[string]time.Time)

	mt, err := e.ensureAddWatch(ctx, e.inputPath)
	if err != nil {
		return err
	}
	lastModified[e.inputPath] = mt
	e.ms.Log.Info.Printf("watching %v (last modified %v)...", e.ms.HumanPath(e.inputPath), timelib.HumanDate(mt))

	eatBurstTimer := time.NewTimer(0)
	<-eatBurstTimer.C
	pollTicker := time.NewTicker(time.Second * 10)
	defer pollTicker.Stop()

	for {
		select {
		case <-pollTicker.C:
			mt, err := e.ensureAddWatch(ctx, e.inputPath)
			if err != nil {
				return err
			}
			if mt2, ok := lastModified[e.inputPath]; !ok || !mt.Equal(mt2) {
				lastModified[e.inputPath] = mt
				e.reloadInput()
			}
		case ev, ok := <-e.fw.Events:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			e.ms.Log.Debug.Printf("received file system event %v", ev)
			mt, err := e.ensureAddWatch(ctx, ev.Name)
			if err != nil {
				return err
			}
			if ev.Op == fsnotify.Chmod {
				if mt.Equal(lastModified[ev.Name]) {
					// Benign Chmod.
					// See https://github.com/fsnotify/fsnotify/issues/15
					continue
				}
				// We missed changes.
				lastModified[ev.Name] = mt
			}
			// One logical save produces a burst of events. Wait for the burst
			// to settle before reading so a half-written file never reaches
			// the scheduler.
			eatBurstTimer.Reset(time.Millisecond * 16)
		case <-eatBurstTimer.C:
			e.reloadInput()
		case err, ok := <-e.fw.Errors:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			e.ms.Log.Error.Printf("fsnotify error: %v", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *editor) reloadInput() {
	input, err := e.ms.ReadPath(e.inputPath)
	if err != nil {
		e.ms.Log.Error.Printf("failed to read %v: %v", e.ms.HumanPath(e.inputPath), err)
		return
	}
	e.ms.Log.Info.Printf("detected change in %v: rerendering...", e.ms.HumanPath(e.inputPath))
	e.session.SetSource(string(input))
}

func (e *editor) ensureAddWatch(ctx context.Context, path string) (time.Time, error) {
	interval := time.Millisecond * 16
	tc := time.NewTimer(0)
	<-tc.C
	for {
		mt, err := e.addWatch(path)
		if err == nil {
			return mt, nil
		}
		if interval >= time.Second {
			e.ms.Log.Error.Printf("failed to watch %q: %v (retrying in %v)", e.ms.HumanPath(path), err, interval)
		}

		tc.Reset(interval)
		select {
		case <-tc.C:
			if interval < time.Second {
				interval = time.Second
			}
			if interval < time.Second*16 {
				interval *= 2
			}
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		}
	}
}

func (e *editor) addWatch(path string) (time.Time, error) {
	err := e.fw.Add(path)
	if err != nil {
		return time.Time{}, err
	}
	d, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return d.ModTime(), nil
}

func (e *editor) listen() error {
	l, err := net.Listen("tcp", net.JoinHostPort(e.host, e.port))
	if err != nil {
		return err
	}
	e.l = l
	e.ms.Log.Success.Printf("editing on http://%v", e.l.Addr())
	return nil
}

func (e *editor) goServe() error {
	s := xhttp.NewServer(e.ms.Log.Warn, xhttp.Log(e.ms.Log, e.handler()))
	e.goFunc(func(ctx context.Context) error {
		return xhttp.Serve(ctx, time.Second*30, s, e.l)
	})
	return nil
}

func (e *editor) handler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/", e.handleRoot)
	m.Handle("/static/", http.StripPrefix("/static", e.staticFileServer))
	m.Handle("/live", xhttp.HandlerFuncAdapter{Log: e.ms.Log, Func: e.handleLive})
	m.Handle("/export/svg", xhttp.HandlerFuncAdapter{Log: e.ms.Log, Func: e.handleExport})
	m.Handle("/copy", xhttp.HandlerFuncAdapter{Log: e.ms.Log, Func: e.handleCopy})
	m.Handle("/share", xhttp.HandlerFuncAdapter{Log: e.ms.Log, Func: e.handleShare})
	return m
}

func (e *editor) handleRoot(hw http.ResponseWriter, r *http.Request) {
	// Share links carry the encoded source in ?src=.
	if enc := r.URL.Query().Get("src"); enc != "" {
		src, err := urlenc.Decode(enc)
		if err != nil {
			e.ms.Log.Warn.Printf("ignoring bad share link: %v", err)
		} else {
			e.session.SetSource(src)
		}
	}
	hw.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(hw, pageHTML(e.session.Source(), e.session.Theme(), e.devMode))
}

func pageHTML(source string, theme mmlive.Theme, devMode bool) string {
	toggleLabel := "Dark mode"
	if theme == mmlive.ThemeDark {
		toggleLabel = "Light mode"
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Mermaid Editor</title>
	<script src="/static/editor.js" defer></script>
	<link rel="stylesheet" href="/static/editor.css">
</head>
<body class="%[1]s" data-mermaid-dev-mode=%[2]t>
	<header>
		<h1>Mermaid Editor</h1>
		<div id="toolbar">
			<button id="theme-toggle">%[3]s</button>
			<button id="download">Download SVG</button>
			<button id="copy">Copy SVG</button>
			<button id="share">Share</button>
		</div>
	</header>
	<main>
		<textarea id="source" spellcheck="false">%[4]s</textarea>
		<section id="preview">
			<div id="mermaid-err" style="display: none"></div>
			<div id="mermaid-svg-container"></div>
		</section>
	</main>
	<div id="toast" style="display: none"></div>
</body>
</html>`, theme, devMode, toggleLabel, html.EscapeString(source))
}

func (e *editor) handleLive(hw http.ResponseWriter, r *http.Request) error {
	e.wsclientsMu.Lock()
	if e.closing {
		e.wsclientsMu.Unlock()
		return xhttp.Errorf(http.StatusServiceUnavailable, "server shutting down...", "server shutting down...")
	}
	// We must register ourselves before we even upgrade the connection to ensure that
	// e.close() will wait for us. If we instead registered afterwards, then there is a
	// brief period between the hijack and the registration where close may return without
	// waiting for us to finish.
	e.wsclientsWG.Add(1)
	e.wsclientsMu.Unlock()

	c, err := websocket.Accept(hw, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		e.wsclientsWG.Done()
		return err
	}

	go func() {
		defer e.wsclientsWG.Done()
		defer c.Close(websocket.StatusInternalError, "the sky is falling")

		ctx, cancel := context.WithTimeout(e.ctx, time.Hour)
		defer cancel()

		cl := &wsclient{
			e:   e,
			sub: e.session.Subscribe(),
			c:   c,
		}
		defer e.session.Unsubscribe(cl.sub)

		e.wsclientsMu.Lock()
		e.wsclients[cl] = struct{}{}
		e.wsclientsMu.Unlock()
		defer func() {
			e.wsclientsMu.Lock()
			delete(e.wsclients, cl)
			e.wsclientsMu.Unlock()
		}()

		go wsHeartbeat(ctx, cl.c)
		go func() {
			_ = cl.readLoop(ctx)
			cancel()
		}()
		_ = cl.writeLoop(ctx)
	}()
	return nil
}

type wsclient struct {
	e   *editor
	sub chan struct{}
	c   *websocket.Conn
}

// editMsg is what the browser sends: a new source, a theme change, or both.
type editMsg struct {
	Source *string `json:"source"`
	Theme  *string `json:"theme"`
}

func (cl *wsclient) readLoop(ctx context.Context) error {
	for {
		var msg editMsg
		err := wsjson.Read(ctx, cl.c, &msg)
		if err != nil {
			return err
		}
		if msg.Source != nil {
			cl.e.session.SetSource(*msg.Source)
		}
		if msg.Theme != nil {
			if th, ok := mmlive.ParseTheme(*msg.Theme); ok {
				cl.e.session.SetTheme(th)
			}
		}
	}
}

func (cl *wsclient) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-cl.sub:
		case <-ctx.Done():
			cl.c.Close(websocket.StatusGoingAway, "server shutting down...")
			return ctx.Err()
		}

		res := cl.e.session.Snapshot()
		err := cl.write(ctx, &res)
		if err != nil {
			return err
		}
	}
}

func (cl *wsclient) write(ctx context.Context, res *mmlive.Update) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	return wsjson.Write(ctx, cl.c, res)
}

func wsHeartbeat(ctx context.Context, c *websocket.Conn) {
	defer c.Close(websocket.StatusInternalError, "the sky is falling")

	t := time.NewTimer(0)
	<-t.C
	for {
		err := c.Ping(ctx)
		if err != nil {
			return
		}

		t.Reset(time.Second * 30)
		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}
	}
}

// httpFileSaver adapts the browser-mediated download flow to mmlive.FileSaver.
// The suggested filename travels in Content-Disposition; the browser's save
// dialog owns the transfer from there.
type httpFileSaver struct {
	rw    http.ResponseWriter
	wrote bool
}

func (s *httpFileSaver) Save(filename string, data []byte, mimeType string) error {
	s.rw.Header().Set("Content-Type", mimeType)
	s.rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	s.wrote = true
	_, err := s.rw.Write(data)
	return err
}

func (e *editor) handleExport(hw http.ResponseWriter, r *http.Request) error {
	saver := &httpFileSaver{rw: hw}
	e.session.Download(saver)
	if !saver.wrote {
		return xhttp.Errorf(http.StatusNotFound, "no diagram to download", "no diagram to download")
	}
	return nil
}

func (e *editor) handleCopy(hw http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return xhttp.Errorf(http.StatusMethodNotAllowed, "POST required", "POST required")
	}
	e.session.Copy(r.Context(), e.clipboard)
	hw.WriteHeader(http.StatusNoContent)
	return nil
}

func (e *editor) handleShare(hw http.ResponseWriter, r *http.Request) error {
	enc, err := urlenc.Encode(e.session.Source())
	if err != nil {
		return err
	}
	hw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(hw, "http://%s/?src=%s", r.Host, enc)
	return nil
}
