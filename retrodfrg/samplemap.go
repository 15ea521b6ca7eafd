package retrodfrg

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"zerocheck/sampler"
)

const (
	cellUnsampled = '░'
	cellZero      = '█'
	cellNonZero   = 'X'
)

// Grid maps a device's sectors onto a fixed number of cells. Each cell covers an equal
// share of the device and remembers the worst thing sampled in it.
type Grid struct {
	sectors int64
	cells   []rune
}

// NewGrid spreads sectors over n cells.
func NewGrid(sectors int64, n int) *Grid {
	if n < 1 {
		n = 1
	}
	if sectors > 0 && int64(n) > sectors {
		n = int(sectors)
	}
	cells := make([]rune, n)
	for i := range cells {
		cells[i] = cellUnsampled
	}
	return &Grid{sectors: sectors, cells: cells}
}

// Cell is the index of the cell holding sector.
func (g *Grid) Cell(sector int64) int {
	if g.sectors <= 0 || sector < 0 {
		return 0
	}
	if sector >= g.sectors {
		sector = g.sectors - 1
	}
	return int(sector * int64(len(g.cells)) / g.sectors)
}

// Mark records a zero sample. A cell already marked non-zero keeps its mark.
func (g *Grid) Mark(sector int64) {
	i := g.Cell(sector)
	if g.cells[i] != cellNonZero {
		g.cells[i] = cellZero
	}
}

// MarkNonZero records the sector that ended the run.
func (g *Grid) MarkNonZero(sector int64) { g.cells[g.Cell(sector)] = cellNonZero }

// Lines lays the cells out in rows of width runes.
func (g *Grid) Lines(width int) []string {
	if width < 1 {
		width = 1
	}
	var lines []string
	for start := 0; start < len(g.cells); start += width {
		end := min(start+width, len(g.cells))
		lines = append(lines, string(g.cells[start:end]))
	}
	return lines
}

// Progress is the numeric state behind the status block.
type Progress struct {
	Done, Total int64
	Sectors     int64
	LastSector  int64
	Elapsed     time.Duration
}

// StatusLines formats samples done, throughput and an ETA.
func StatusLines(p Progress) []string {
	var rate float64
	if secs := p.Elapsed.Seconds(); secs > 0 {
		rate = float64(p.Done) / secs
	}
	eta := "—"
	if rate > 0 && p.Done < p.Total {
		eta = time.Duration(float64(p.Total-p.Done) / rate * float64(time.Second)).Truncate(time.Second).String()
	}
	pct := 0.0
	if p.Total > 0 {
		pct = float64(p.Done) * 100 / float64(p.Total)
	}
	return []string{
		fmt.Sprintf("Sampled: %s / %s sectors (%.1f%%)", humanize.Comma(p.Done), humanize.Comma(p.Total), pct),
		fmt.Sprintf("Last sector: %d of %s", p.LastSector, humanize.Comma(p.Sectors)),
		fmt.Sprintf("Elapsed: %s   Rate: %.0f samples/s (%s/s)   ETA: %s",
			p.Elapsed.Truncate(time.Second), rate, humanize.IBytes(uint64(rate*sampler.SectorSize)), eta),
	}
}

// SampleMap shows a sampling run on a UI. It implements sampler.Observer.
type SampleMap struct {
	UI *UI
	// Every limits redraws; zero redraws after each sample.
	Every time.Duration

	mu       sync.Mutex
	grid     *Grid
	p        Progress
	start    time.Time
	lastDraw time.Time
	now      func() time.Time
}

// NewSampleMap prepares the UI title and legend for a run on device.
func NewSampleMap(u *UI, device, level string) *SampleMap {
	u.SetTitle(fmt.Sprintf(" ZEROCHECK – %s – %s ", device, strings.ToUpper(level)))
	u.SetLegend([]string{
		fmt.Sprintf("Legend:  %c sampled zero   %c not sampled   %c non-zero data | Q to stop", cellZero, cellUnsampled, cellNonZero),
	})
	u.SetPhases([]string{"Open", "Sample", "Verdict"})
	return &SampleMap{UI: u, Every: 50 * time.Millisecond, now: time.Now}
}

func (m *SampleMap) Start(samples, sectors int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, h := m.UI.Size()
	m.grid = NewGrid(sectors, max(1, w)*m.UI.MapRows(h))
	m.p = Progress{Total: samples, Sectors: sectors, LastSector: -1}
	m.start = m.now()
	m.UI.SetSummaryLines([]string{
		fmt.Sprintf("Device size: %s sectors (%s)   Samples: %s",
			humanize.Comma(sectors), humanize.IBytes(uint64(sectors)*sampler.SectorSize), humanize.Comma(samples)),
	})
	m.UI.SetPhaseDone("Open")
	m.drawLocked(true)
}

func (m *SampleMap) Advance(sector int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grid.Mark(sector)
	m.p.Done++
	m.p.LastSector = sector
	m.drawLocked(false)
}

func (m *SampleMap) Finish(out sampler.Outcome, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grid == nil {
		return
	}
	verdict := "Verdict: all sampled sectors are zero"
	switch {
	case err != nil:
		verdict = "Verdict: check aborted: " + err.Error()
	case out.Result == sampler.NonZeroDetected:
		m.grid.MarkNonZero(out.Sector)
		m.p.LastSector = out.Sector
		verdict = fmt.Sprintf("Verdict: NON-ZERO data at sector %d (byte offset %d)", out.Sector, out.Offset)
	}
	m.UI.SetPhaseDone("Sample")
	if err == nil {
		m.UI.SetPhaseDone("Verdict")
	}
	m.drawLocked(true, verdict)
}

func (m *SampleMap) drawLocked(force bool, extra ...string) {
	now := m.now()
	if !force && m.Every > 0 && now.Sub(m.lastDraw) < m.Every {
		return
	}
	m.lastDraw = now
	m.p.Elapsed = now.Sub(m.start)

	w, _ := m.UI.Size()
	m.UI.SetMap(m.grid.Lines(max(1, w)))
	m.UI.SetStatusLines(append(StatusLines(m.p), extra...))
	m.UI.LayoutAndDraw()
}
