package table

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// fakeFetcher serves pages of generated rows and records every query.
type fakeFetcher struct {
	mu      sync.Mutex
	total   int
	queries []Query
	ctxErrs []error // ctx.Err() observed when each call started
	fail    error
}

func (f *fakeFetcher) FetchPage(ctx context.Context, q Query) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.fail != nil {
		return Page{}, f.fail
	}
	var rows []Row
	start := (q.Page - 1) * q.PageSize
	for i := start; i < start+q.PageSize && i < f.total; i++ {
		rows = append(rows, Row{"id": float64(i + 1), "name": fmt.Sprintf("user %d", i+1)})
	}
	return Page{Rows: rows, Total: f.total}, nil
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeMutator struct {
	mu        sync.Mutex
	deleted   []RowID
	bulk      [][]RowID
	exports   int
	deleteErr error
	bulkErr   error
	exportErr error
	data      []byte
}

func (m *fakeMutator) Delete(_ context.Context, id RowID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return m.deleteErr
}

func (m *fakeMutator) BulkDelete(_ context.Context, ids []RowID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulk = append(m.bulk, ids)
	return m.bulkErr
}

func (m *fakeMutator) Export(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exports++
	return m.data, m.exportErr
}

type fakeSink struct {
	name string
	data []byte
	err  error
}

func (s *fakeSink) Deliver(name string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.name, s.data = name, data
	return "/tmp/" + name, nil
}

type fakeDetails struct {
	rows map[RowID]Row
}

func (d *fakeDetails) FetchDetail(_ context.Context, id RowID) (Row, error) {
	r, ok := d.rows[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return r, nil
}

// fakeClock is a virtual timer source for the debouncer.
type fakeClock struct {
	now    time.Duration
	timers []fakeTimer
}

type fakeTimer struct {
	at    time.Duration
	fn    func(time.Time) tea.Msg
	fired bool
}

func (c *fakeClock) Tick(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
	c.timers = append(c.timers, fakeTimer{at: c.now + d, fn: fn})
	return func() tea.Msg { return nil }
}

// Advance moves time forward and returns the messages of timers that fired, in order.
func (c *fakeClock) Advance(d time.Duration) []tea.Msg {
	c.now += d
	sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].at < c.timers[j].at })
	var msgs []tea.Msg
	for i := range c.timers {
		t := &c.timers[i]
		if !t.fired && t.at <= c.now {
			t.fired = true
			msgs = append(msgs, t.fn(time.Unix(0, 0).Add(t.at)))
		}
	}
	return msgs
}

// run executes cmd synchronously.
func run(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

// drive executes cmd and feeds results back until the controller is quiet.
func drive(c *Controller, cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return
		}
		cmd = c.Update(msg)
	}
}

func testColumns() []Column {
	return []Column{
		{ID: "name", Label: "Name", Sortable: true},
		{ID: "email", Label: "Email", Sortable: true},
		{ID: "role", Label: "Role", Render: func(r Row) string { return r.Text("role.name") }},
		{ID: "action", Label: "Actions"},
	}
}
