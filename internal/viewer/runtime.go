package viewer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/cctop/cctop/internal/cache"
	"github.com/cctop/cctop/internal/config"
	"github.com/cctop/cctop/internal/model"
	"github.com/cctop/cctop/internal/query"
	"github.com/cctop/cctop/internal/store"
	"github.com/cctop/cctop/internal/viewerstate"
)

// PageSize bounds a single query page; the viewport typically shows far
// fewer rows, leaving headroom for auto-fill (spec.md §4.7).
const PageSize = 500

// Runtime is C10: the raw-mode terminal loop wiring C9 (viewerstate) to
// C6/C8 (query.Engine) (spec.md §4.8). Grounded on the teacher's
// internal/ui.Chat single-loop/signal-driven shutdown idiom, generalized
// from readline's line-editing REPL to single-keystroke dashboard input
// via golang.org/x/term's raw-mode primitives (present across the
// retrieved pack's go.mod manifests), since chzyer/readline's own raw-mode
// internals are unexported and unsuited to per-keystroke dispatch.
type Runtime struct {
	cfg     config.Viewer
	engine  *query.Engine
	machine *viewerstate.Machine
	pidFile string

	// dbErr is set when the store could not be opened (spec.md §7
	// "user-error (viewer) | unreadable database"). A non-nil dbErr puts
	// the runtime in degraded mode: no queries are issued and draw
	// renders an empty table with a status line instead.
	dbErr error

	in  *os.File
	out io.Writer

	width, height int
	events        []model.Event
	totalCount    int
}

// NewRuntime wires a read-only Store, its Engine, and a fresh state
// machine into a Runtime.
func NewRuntime(cfg config.Viewer, st *store.Store, pidFile string) *Runtime {
	c := cache.New(cache.DefaultCapacity)
	return &Runtime{
		cfg:     cfg,
		engine:  query.New(st, c),
		machine: viewerstate.New(),
		pidFile: pidFile,
		in:      os.Stdin,
		out:     os.Stdout,
		width:   80,
		height:  24,
	}
}

// NewDegradedRuntime builds a Runtime with no backing store, for when the
// database could not be opened. It still renders the four regions and
// responds to quit/resize, but the event table stays empty and the
// line below the banner carries dbErr's message (spec.md §7's documented viewer
// fallback: "render an empty table with a clear status").
func NewDegradedRuntime(cfg config.Viewer, pidFile string, dbErr error) *Runtime {
	return &Runtime{
		cfg:     cfg,
		machine: viewerstate.New(),
		pidFile: pidFile,
		dbErr:   dbErr,
		in:      os.Stdin,
		out:     os.Stdout,
		width:   80,
		height:  24,
	}
}

// Run enters raw mode, renders on tick/keystroke/resize, and exits on q
// (outside keyword-editing) or interrupt, restoring the terminal in all
// cases (spec.md §5 "Cancellation").
func (r *Runtime) Run(ctx context.Context) error {
	fd := int(r.in.Fd())
	if !isatty.IsTerminal(r.in.Fd()) {
		return fmt.Errorf("viewer: stdin is not a terminal")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	if w, h, err := term.GetSize(fd); err == nil {
		r.width, r.height = w, h
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	defer signal.Stop(sigCh)

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)

	interval := time.Duration(r.cfg.Display.RefreshIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	keys := make(chan rune)
	keyErr := make(chan error, 1)
	go r.readKeys(keys, keyErr)

	r.refresh()
	r.draw()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-sigCh:
			return nil

		case <-winch:
			if w, h, err := term.GetSize(fd); err == nil {
				r.width, r.height = w, h
			}
			r.draw()

		case err := <-keyErr:
			if err != nil && err != io.EOF {
				return err
			}
			return nil

		case k := <-keys:
			if quit := r.handleKey(k); quit {
				return nil
			}
			r.refresh()
			r.draw()

		case now := <-ticker.C:
			if r.machine.State() == viewerstate.EditingKeywordFilter && r.machine.DebounceElapsed(now) && !r.machine.DBApplied() {
				r.refresh()
			}
			if !r.machine.RefreshSuspended() {
				r.refresh()
			}
			r.autoFill()
			r.draw()
		}
	}
}

// readKeys decodes raw stdin bytes into runes, collapsing the common
// escape sequences (arrow keys) into the same sentinel runes the key
// table dispatches on.
func (r *Runtime) readKeys(out chan<- rune, errCh chan<- error) {
	br := bufio.NewReader(r.in)
	for {
		b, err := br.ReadByte()
		if err != nil {
			errCh <- err
			return
		}
		if b == 0x1b {
			b2, err := br.ReadByte()
			if err != nil || b2 != '[' {
				out <- keyEscape
				continue
			}
			b3, err := br.ReadByte()
			if err != nil {
				continue
			}
			switch b3 {
			case 'A':
				out <- keyUp
			case 'B':
				out <- keyDown
			case 'H':
				out <- keyHome
			case 'F':
				out <- keyEnd
			case '1':
				br.ReadByte() // trailing '~'
				out <- keyHome
			case '4':
				br.ReadByte()
				out <- keyEnd
			case '5':
				br.ReadByte() // trailing '~'
				out <- keyPgUp
			case '6':
				br.ReadByte()
				out <- keyPgDn
			}
			continue
		}
		out <- rune(b)
	}
}

// Sentinel rune values for keys with no printable representation.
const (
	keyEscape rune = 0x1b
	keyUp     rune = -(iota + 1)
	keyDown
	keyPgUp
	keyPgDn
	keyHome
	keyEnd
)

var kindKeys = map[rune]model.Kind{
	'f': model.KindFind,
	'c': model.KindCreate,
	'm': model.KindModify,
	'd': model.KindDelete,
	'v': model.KindMove,
	'r': model.KindRestore,
}

// handleKey dispatches one decoded keystroke per the spec.md §6 key-binding
// table, returning true if the viewer should exit.
func (r *Runtime) handleKey(k rune) bool {
	now := time.Now()

	if k == 3 { // Ctrl-C quits from every state
		return true
	}

	if r.machine.State() == viewerstate.EditingKeywordFilter {
		switch k {
		case '\r', '\n':
			r.machine.Confirm()
			r.invalidateCache()
		case keyEscape:
			r.machine.Cancel()
		case 0x7f, 0x08:
			r.machine.Backspace(now)
		default:
			if k >= 0 {
				r.machine.TypeRune(k, now)
			}
		}
		return false
	}

	if r.machine.State() == viewerstate.EditingKindFilter {
		switch k {
		case '\r', '\n':
			r.machine.Confirm()
			r.invalidateCache()
		case keyEscape:
			r.machine.Cancel()
		case 'q':
			return true
		default:
			if kind, ok := kindKeys[k]; ok {
				r.machine.ToggleKind(kind)
			}
		}
		return false
	}

	switch k {
	case 'q':
		return true
	case ' ':
		r.machine.TogglePause()
	case 'x':
		r.refresh()
	case 'a':
		r.machine.SetMode(viewerstate.ModeAll)
		r.invalidateCache()
	case 'u':
		r.machine.SetMode(viewerstate.ModeLatestPerFile)
		r.invalidateCache()
	case 'f':
		r.machine.EnterKindFilterEditing()
	case '/':
		r.machine.EnterKeywordFilterEditing()
	case keyEscape:
		r.machine.Reset()
		r.invalidateCache()
	case keyUp, 'k':
		r.machine.MoveUp()
	case keyDown, 'j':
		r.machine.MoveDown(len(r.events))
	case keyPgUp:
		for i := 0; i < r.viewportHeight(); i++ {
			r.machine.MoveUp()
		}
	case keyPgDn:
		for i := 0; i < r.viewportHeight(); i++ {
			r.machine.MoveDown(len(r.events))
		}
	case 'g', keyHome:
		for i := 0; i < len(r.events); i++ {
			r.machine.MoveUp()
		}
	case 'G', keyEnd:
		for i := 0; i < len(r.events); i++ {
			r.machine.MoveDown(len(r.events))
		}
	}
	return false
}

// invalidateCache clears the result cache, a no-op in degraded mode
// (spec.md §4.6).
func (r *Runtime) invalidateCache() {
	if r.engine != nil {
		r.engine.InvalidateCache()
	}
}

func (r *Runtime) viewportHeight() int {
	h := r.height - 5 // banner, match-count line, column header, command bar, control region
	if h < 1 {
		return 1
	}
	return h
}

// refresh re-queries the engine for the current mode/filter/keyword. A
// degraded runtime (no engine) is a no-op: the table stays empty.
func (r *Runtime) refresh() {
	if r.engine == nil {
		return
	}
	req := query.Request{
		Mode:    mapMode(r.machine.Mode()),
		Kinds:   r.machine.Kinds(),
		Keyword: r.machine.Keyword(),
		Limit:   PageSize,
		Offset:  0,
	}

	events, err := r.engine.Page(req)
	if err != nil {
		return
	}
	r.events = events

	count, err := r.engine.Count(req)
	if err == nil {
		r.totalCount = count
	}
	r.machine.HasMoreData = len(events) < r.totalCount
}

// autoFill implements the bounded auto-fill loop from spec.md §4.7.
func (r *Runtime) autoFill() {
	if r.engine == nil {
		return
	}
	for i := 0; i < viewerstate.MaxAutoFillRounds; i++ {
		if !r.machine.ShouldAutoFill(len(r.events), r.viewportHeight()) {
			return
		}
		req := query.Request{
			Mode:    mapMode(r.machine.Mode()),
			Kinds:   r.machine.Kinds(),
			Keyword: r.machine.Keyword(),
			Limit:   PageSize,
			Offset:  len(r.events),
		}
		more, err := r.engine.Page(req)
		if err != nil || len(more) == 0 {
			r.machine.HasMoreData = false
			return
		}
		r.events = append(r.events, more...)
	}
}

func mapMode(m viewerstate.ViewMode) query.Mode {
	if m == viewerstate.ModeLatestPerFile {
		return query.ModeLatestPerFile
	}
	return query.ModeAll
}

// draw renders one full frame, polling collector status fresh each time
// (spec.md §4.8). The scroll offset computed here is recorded onto the
// state machine so that refresh-suspension (spec.md §4.7: "while the
// viewport is scrolled away from the top") reflects what's actually on
// screen, not just the selection index.
func (r *Runtime) draw() {
	height := r.viewportHeight()
	start := viewportStart(r.machine.Selected, height, len(r.events))
	r.machine.ViewportStart = start

	status, pid := PollCollectorStatus(r.pidFile)

	var frame string
	if r.dbErr != nil {
		frame = DegradedFrame(status, pid, r.width, r.dbErr)
	} else {
		frame = FullFrame(time.Now(), status, pid, r.width, visibleSlice(r.events, start, height), r.machine.Selected-start, r.cfg.Display.DirectoryMutePaths, r.machine, r.totalCount)
	}

	fmt.Fprint(r.out, "\x1b[2J\x1b[H") // clear screen, home cursor
	fmt.Fprint(r.out, frame)
}

// viewportStart computes the scroll offset of a height-row window
// centered on selected within [0, total).
func viewportStart(selected, height, total int) int {
	if total <= height {
		return 0
	}
	start := selected - height/2
	if start < 0 {
		start = 0
	}
	if start+height > total {
		start = total - height
	}
	return start
}

// visibleSlice returns the window of events starting at start that fits
// the viewport height.
func visibleSlice(events []model.Event, start, height int) []model.Event {
	if len(events) <= height {
		return events
	}
	end := start + height
	if end > len(events) {
		end = len(events)
	}
	return events[start:end]
}
