// Package retrodfrg draws a full-screen, defrag-style terminal view of a running check:
// a title, a few summary lines, a grid of cells and a status block. It knows nothing about
// disks; callers push lines in and redraw.
package retrodfrg

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gdamore/tcell/v2"
)

// ErrInterrupted is returned when the user pressed a stop key.
var ErrInterrupted = errors.New("interrupted by user")

// UI owns the terminal while a check runs.
type UI struct {
	mu       sync.Mutex
	s        tcell.Screen
	stopChan chan struct{}
	once     sync.Once
	onStop   func()

	title        string
	phases       []string
	phaseDoneMap map[string]bool
	summaryLines []string
	legendLines  []string
	statusLines  []string
	mapLines     []string
}

// NewUI takes over the terminal and starts listening for q, Esc and Ctrl-C.
func NewUI() (*UI, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.Wrap(err, "create screen")
	}
	return NewUIWithScreen(s)
}

// NewUIWithScreen is NewUI on a caller-provided screen, e.g. tcell's simulation screen.
func NewUIWithScreen(s tcell.Screen) (*UI, error) {
	if err := s.Init(); err != nil {
		return nil, errors.Wrap(err, "init screen")
	}
	s.DisableMouse()
	s.HideCursor()
	u := &UI{
		s:            s,
		stopChan:     make(chan struct{}),
		phaseDoneMap: make(map[string]bool),
	}
	go u.eventLoop()
	return u, nil
}

// Close restores the terminal. Safe to call more than once.
func (u *UI) Close() {
	u.once.Do(func() { close(u.stopChan) })
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.s == nil {
		return
	}
	u.s.Fini()
	u.s = nil
}

// OnStop registers fn to run once when a stop key is pressed.
func (u *UI) OnStop(fn func()) {
	u.mu.Lock()
	u.onStop = fn
	u.mu.Unlock()
}

// RequestStop marks the UI stopped and runs the OnStop hook. Repeated calls are no-ops.
func (u *UI) RequestStop() {
	u.once.Do(func() {
		close(u.stopChan)
		u.mu.Lock()
		fn, s := u.onStop, u.s
		u.mu.Unlock()
		if fn != nil {
			fn()
		}
		if s != nil {
			_ = s.PostEvent(tcell.NewEventInterrupt(nil))
		}
	})
}

// IsStopped reports whether a stop was requested.
func (u *UI) IsStopped() bool {
	select {
	case <-u.stopChan:
		return true
	default:
		return false
	}
}

// Size returns the screen width and height, zero after Close.
func (u *UI) Size() (width, height int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.s == nil {
		return 0, 0
	}
	return u.s.Size()
}

// MapRows is how many grid rows fit between the header and the status block on a
// screen of height h.
func (u *UI) MapRows(h int) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.mapRows(h)
}

func (u *UI) mapRows(h int) int {
	header := len(u.summaryLines) + len(u.legendLines)
	if u.title != "" {
		header++
	}
	footer := 1 + len(u.statusLines)
	if len(u.phases) > 0 {
		footer += 2
	}
	if footer < 7 {
		footer = 7
	}
	return max(1, h-header-footer)
}

func putStr(s tcell.Screen, x, y int, str string, style tcell.Style) {
	w, _ := s.Size()
	for i, r := range []rune(str) {
		pos := x + i
		if pos >= w {
			break
		}
		s.SetContent(pos, y, r, nil, style)
	}
}

var (
	styleMap    = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleBad    = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleHeader = tcell.StyleDefault.Bold(true)
)

// LayoutAndDraw repaints the whole screen from the current lines.
func (u *UI) LayoutAndDraw() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.s == nil {
		return
	}
	u.s.Clear()
	w, h := u.s.Size()
	y := 0

	if u.title != "" {
		putStr(u.s, 0, y, strings.Repeat("═", w), styleHeader)
		putStr(u.s, max(0, (w-len([]rune(u.title)))/2), y, u.title, styleHeader)
		y++
	}
	for _, lines := range [][]string{u.summaryLines, u.legendLines} {
		for _, line := range lines {
			if y >= h {
				break
			}
			putStr(u.s, 0, y, line, tcell.StyleDefault)
			y++
		}
	}

	if len(u.mapLines) > 0 {
		avail := u.mapRows(h)
		for i := 0; i < len(u.mapLines) && i < avail && y < h; i++ {
			u.drawMapLine(y, u.mapLines[i])
			y++
		}
	}

	if len(u.phases) > 0 && y < h {
		putStr(u.s, 0, y, strings.Repeat("─", w), tcell.StyleDefault)
		putStr(u.s, 2, y, " Phase ", styleHeader)
		y++
		b := strings.Builder{}
		for i, p := range u.phases {
			if i > 0 {
				b.WriteByte(' ')
			}
			mark := ' '
			if u.phaseDoneMap[strings.ToLower(p)] {
				mark = '✓'
			}
			fmt.Fprintf(&b, "[%c]%s", mark, p)
		}
		putStr(u.s, 0, y, b.String(), tcell.StyleDefault)
		y++
	}

	if len(u.statusLines) > 0 && y < h {
		putStr(u.s, 0, y, strings.Repeat("─", w), tcell.StyleDefault)
		putStr(u.s, 2, y, " Status ", styleHeader)
		y++
		for _, line := range u.statusLines {
			if y >= h {
				break
			}
			putStr(u.s, 0, y, line, tcell.StyleDefault)
			y++
		}
	}

	u.s.Show()
}

// drawMapLine paints a grid row, highlighting non-zero cells.
func (u *UI) drawMapLine(y int, line string) {
	w, _ := u.s.Size()
	for x, r := range []rune(line) {
		if x >= w {
			return
		}
		style := styleMap
		if r == cellNonZero {
			style = styleBad
		}
		u.s.SetContent(x, y, r, nil, style)
	}
}

// SetPhases sets the phase labels shown with check marks.
func (u *UI) SetPhases(labels []string) {
	u.mu.Lock()
	u.phases = append([]string(nil), labels...)
	u.mu.Unlock()
}

// SetPhaseDone ticks a phase, matched case-insensitively.
func (u *UI) SetPhaseDone(p string) {
	u.mu.Lock()
	u.phaseDoneMap[strings.ToLower(p)] = true
	u.mu.Unlock()
}

func (u *UI) SetTitle(t string) {
	u.mu.Lock()
	u.title = t
	u.mu.Unlock()
}

func (u *UI) SetSummaryLines(lines []string) {
	u.mu.Lock()
	u.summaryLines = append([]string(nil), lines...)
	u.mu.Unlock()
}

func (u *UI) SetLegend(lines []string) {
	u.mu.Lock()
	u.legendLines = append([]string(nil), lines...)
	u.mu.Unlock()
}

func (u *UI) SetStatusLines(lines []string) {
	u.mu.Lock()
	u.statusLines = append([]string(nil), lines...)
	u.mu.Unlock()
}

// SetMap replaces the grid rows. The UI renders them as given.
func (u *UI) SetMap(lines []string) {
	u.mu.Lock()
	u.mapLines = append([]string(nil), lines...)
	u.mu.Unlock()
}

func (u *UI) eventLoop() {
	u.mu.Lock()
	s := u.s
	u.mu.Unlock()
	if s == nil {
		return
	}
	for {
		select {
		case <-u.stopChan:
			return
		default:
		}
		switch ev := s.PollEvent().(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyCtrlC, ev.Key() == tcell.KeyEscape:
				u.RequestStop()
			case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
				u.RequestStop()
			}
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventInterrupt, nil:
			return
		}
	}
}
