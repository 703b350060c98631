// Package progress reports how far a phase has got. Phases only see the
// Sink interface; the CLI renders it as a bar on stderr.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Sink receives progress for one unit of work at a time.
type Sink interface {
	// Start begins a new unit with the given label and total.
	Start(label string, total int)
	// Add advances the current unit by n.
	Add(n int)
	// Finish ends the current unit.
	Finish()
}

// Nop discards progress.
type Nop struct{}

func (Nop) Start(string, int) {}
func (Nop) Add(int)           {}
func (Nop) Finish()           {}

var labelStyle = lipgloss.NewStyle().Bold(true).Width(24)

// Bar renders a single-line progress bar that redraws in place.
type Bar struct {
	mu    sync.Mutex
	w     io.Writer
	bar   progress.Model
	label string
	total int
	done  int
}

// NewBar returns a Bar drawing to w.
func NewBar(w io.Writer) *Bar {
	return &Bar{
		w:   w,
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// Start implements Sink.
func (b *Bar) Start(label string, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.label = label
	b.total = total
	b.done = 0
	b.render()
}

// Add implements Sink.
func (b *Bar) Add(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.done = min(b.done+n, b.total)
	b.render()
}

// Finish implements Sink.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.done = b.total
	b.render()
	fmt.Fprintln(b.w)
}

func (b *Bar) percent() float64 {
	if b.total <= 0 {
		return 1
	}
	return float64(b.done) / float64(b.total)
}

func (b *Bar) render() {
	fmt.Fprintf(b.w, "\r%s %s %d/%d",
		labelStyle.Render(truncate(b.label, 24)),
		b.bar.ViewAs(b.percent()),
		b.done, b.total,
	)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

var (
	_ Sink = Nop{}
	_ Sink = (*Bar)(nil)
)
