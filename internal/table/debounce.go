package table

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultQuietPeriod is how long search input must stay unchanged before it commits.
const DefaultQuietPeriod = 300 * time.Millisecond

// TickFunc schedules fn after d. tea.Tick is the production implementation;
// tests substitute a virtual clock.
type TickFunc func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd

// DebounceMsg is delivered when a debounce timer fires. Only the timer
// scheduled by the most recent Submit commits.
type DebounceMsg struct {
	owner *owner
	seq   uint64
}

// Debouncer coalesces bursts of text edits into a single committed value.
// It is owned by one goroutine, like the rest of the controller.
type Debouncer struct {
	owner  *owner
	delay  time.Duration
	tick   TickFunc
	seq    uint64
	raw    string
	closed bool
}

// NewDebouncer returns a debouncer with the given quiet period. A nil tick uses tea.Tick.
func NewDebouncer(delay time.Duration, tick TickFunc) *Debouncer {
	if tick == nil {
		tick = tea.Tick
	}
	if delay <= 0 {
		delay = DefaultQuietPeriod
	}
	return &Debouncer{owner: new(owner), delay: delay, tick: tick}
}

// Submit records text as the raw value and (re)starts the quiet period.
func (d *Debouncer) Submit(text string) tea.Cmd {
	d.raw = text
	if d.closed {
		return nil
	}
	d.seq++
	msg := DebounceMsg{owner: d.owner, seq: d.seq}
	return d.tick(d.delay, func(time.Time) tea.Msg { return msg })
}

// Raw returns the text as last typed, before it commits.
func (d *Debouncer) Raw() string { return d.raw }

// Resolve reports the value to commit for msg. It returns false for timers
// superseded by a later Submit, for another debouncer's timers and after Close.
func (d *Debouncer) Resolve(msg DebounceMsg) (string, bool) {
	if d.closed || msg.owner != d.owner || msg.seq != d.seq {
		return "", false
	}
	return d.raw, true
}

// Reset sets the raw value without scheduling a commit and voids pending timers.
func (d *Debouncer) Reset(text string) {
	d.raw = text
	d.seq++
}

// Close voids pending timers. No commit is produced afterwards.
func (d *Debouncer) Close() {
	d.closed = true
}
