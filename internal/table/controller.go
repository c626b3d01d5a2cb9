package table

import (
	"context"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/registry/internal/apperr"
	"github.com/JonMunkholm/registry/internal/filter"
)

// Fetcher loads one page for a query.
type Fetcher interface {
	FetchPage(ctx context.Context, q Query) (Page, error)
}

// Mutator performs the collection-level write operations.
type Mutator interface {
	Delete(ctx context.Context, id RowID) error
	BulkDelete(ctx context.Context, ids []RowID) error
	Export(ctx context.Context) ([]byte, error)
}

// DetailFetcher loads a single record.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, id RowID) (Row, error)
}

// FileSink receives exported bytes and returns where they were delivered.
type FileSink interface {
	Deliver(name string, data []byte) (string, error)
}

// State is the fetch lifecycle state.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateSettled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateSettled:
		return "settled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// owner tags the messages of one controller or debouncer. It has a size so
// that every allocation gets a distinct address.
type owner struct{ _ byte }

// Controller is the remote-collection table state machine.
type Controller struct {
	id *owner

	fetcher Fetcher
	mutator Mutator
	details DetailFetcher
	sink    FileSink

	query     Query
	gen       uint64
	state     State
	result    Page
	hasResult bool
	notice    string
	pending   int

	// fetch and mutation failures are tracked separately
	fetchErr    error
	mutationErr error

	columns   *ColumnRegistry
	selection *Selection
	search    *Debouncer

	detail    Detail
	detailSeq uint64

	quiet              time.Duration
	tick               TickFunc
	timeout            time.Duration
	cancelSuperseded   bool
	cancelInflight     context.CancelFunc
	refetchAfterDelete bool
	exportName         string
	logger             *slog.Logger
	closed             bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithColumns sets the column catalog. The first column is primary.
func WithColumns(cols ...Column) Option {
	return func(c *Controller) { c.columns = NewColumnRegistry(cols) }
}

// WithMutator enables delete, bulk delete and export.
func WithMutator(m Mutator) Option {
	return func(c *Controller) { c.mutator = m }
}

// WithDetailFetcher enables FetchDetail.
func WithDetailFetcher(d DetailFetcher) Option {
	return func(c *Controller) { c.details = d }
}

// WithFileSink sets where exports are written.
func WithFileSink(s FileSink) Option {
	return func(c *Controller) { c.sink = s }
}

// WithExportName sets the file name handed to the FileSink.
func WithExportName(name string) Option {
	return func(c *Controller) {
		if name != "" {
			c.exportName = name
		}
	}
}

// WithPageSize sets the initial page size. Unsupported sizes are ignored.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if ValidPageSize(n) {
			c.query.PageSize = n
		}
	}
}

// WithQuietPeriod overrides the search debounce period.
func WithQuietPeriod(d time.Duration) Option {
	return func(c *Controller) { c.quiet = d }
}

// WithTick replaces the timer used for debouncing.
func WithTick(t TickFunc) Option {
	return func(c *Controller) { c.tick = t }
}

// WithRequestTimeout bounds every request the controller issues.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithCancelSuperseded cancels the context of an in-flight fetch when a newer
// one starts. Stale responses are discarded either way.
func WithCancelSuperseded() Option {
	return func(c *Controller) { c.cancelSuperseded = true }
}

// WithRefetchAfterDelete refreshes the page after a single delete instead of
// removing the row locally.
func WithRefetchAfterDelete() Option {
	return func(c *Controller) { c.refetchAfterDelete = true }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an idle controller. Call Init to issue the first fetch.
func New(fetcher Fetcher, opts ...Option) *Controller {
	c := &Controller{
		id:         new(owner),
		fetcher:    fetcher,
		query:      DefaultQuery(),
		columns:    NewColumnRegistry(nil),
		selection:  NewSelection(),
		quiet:      DefaultQuietPeriod,
		exportName: "export.csv",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.search = NewDebouncer(c.quiet, c.tick)
	c.logger = c.logger.With("component", "table")
	return c
}

// Init issues the first fetch.
func (c *Controller) Init() tea.Cmd {
	if c.state != StateIdle {
		return nil
	}
	return c.fetch()
}

// Close stops the controller. Pending debounce timers never commit and
// later messages are ignored.
func (c *Controller) Close() {
	c.closed = true
	c.search.Close()
	if c.cancelInflight != nil {
		c.cancelInflight()
		c.cancelInflight = nil
	}
}

// Update applies a message produced by one of the controller's commands.
// Messages belonging to other controllers are ignored.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	if c.closed {
		return nil
	}
	switch msg := msg.(type) {
	case fetchResultMsg:
		if msg.owner == c.id {
			return c.settle(msg)
		}
	case DebounceMsg:
		if text, ok := c.search.Resolve(msg); ok {
			return c.commitSearch(text)
		}
	case deleteResultMsg:
		if msg.owner == c.id {
			return c.deleted(msg)
		}
	case bulkDeleteResultMsg:
		if msg.owner == c.id {
			return c.bulkDeleted(msg)
		}
	case exportResultMsg:
		if msg.owner == c.id {
			c.exported(msg)
		}
	case detailResultMsg:
		if msg.owner == c.id {
			c.detailLoaded(msg)
		}
	}
	return nil
}

// SetPage moves to page p. Pages below 1 are ignored, and so are pages past
// the end once the current query has settled. While a fetch is in flight the
// total is unknown and any page is accepted.
func (c *Controller) SetPage(p int) tea.Cmd {
	if p < 1 {
		return nil
	}
	if c.state == StateSettled && p > TotalPages(c.result.Total, c.query.PageSize) {
		return nil
	}
	next := c.query
	next.Page = p
	return c.apply(next)
}

// NextPage moves forward one page.
func (c *Controller) NextPage() tea.Cmd { return c.SetPage(c.query.Page + 1) }

// PrevPage moves back one page.
func (c *Controller) PrevPage() tea.Cmd { return c.SetPage(c.query.Page - 1) }

// SetPageSize changes the page size and returns to page 1.
func (c *Controller) SetPageSize(n int) tea.Cmd {
	if !ValidPageSize(n) {
		return nil
	}
	next := c.query
	next.PageSize = n
	next.Page = 1
	return c.apply(next)
}

// SetSort sorts by column key. The active key flips direction; a new key
// starts ascending. Unknown and non-sortable columns are ignored.
func (c *Controller) SetSort(key string) tea.Cmd {
	if !c.sortable(key) {
		return nil
	}
	next := c.query
	if next.SortKey == key {
		next.SortDirection = next.SortDirection.Toggle()
	} else {
		next.SortKey = key
		next.SortDirection = Asc
	}
	return c.apply(next)
}

// SortBy sets key and direction directly. An empty key restores server order.
func (c *Controller) SortBy(key string, dir Direction) tea.Cmd {
	if key != "" && !c.sortable(key) {
		return nil
	}
	if dir != Desc {
		dir = Asc
	}
	next := c.query
	next.SortKey = key
	next.SortDirection = dir
	return c.apply(next)
}

// SetSearchText records raw search input. The text commits into the query
// once it has been left alone for the quiet period.
func (c *Controller) SetSearchText(text string) tea.Cmd {
	if c.closed {
		return nil
	}
	return c.search.Submit(text)
}

// CommitSearch commits text immediately, voiding any pending debounce.
func (c *Controller) CommitSearch(text string) tea.Cmd {
	c.search.Reset(text)
	return c.commitSearch(text)
}

// SetFilter applies f and returns to page 1.
func (c *Controller) SetFilter(f filter.Filter) tea.Cmd {
	tok := f.Encode()
	if tok == c.query.Filter {
		return nil
	}
	next := c.query
	next.Filter = tok
	next.Page = 1
	return c.apply(next)
}

// ClearFilter removes the filter.
func (c *Controller) ClearFilter() tea.Cmd {
	return c.SetFilter(nil)
}

// ToggleColumn flips a column's visibility. It never fetches.
func (c *Controller) ToggleColumn(id string) bool {
	return c.columns.Toggle(id)
}

// ToggleSelect flips selection of id.
func (c *Controller) ToggleSelect(id RowID) {
	c.selection.Toggle(id)
}

// SelectAllVisible clears a non-empty selection, otherwise selects the rows on display.
func (c *Controller) SelectAllVisible() {
	c.selection.ToggleAll(rowIDs(c.result.Rows))
}

// Refresh re-issues the current query under a new generation.
func (c *Controller) Refresh() tea.Cmd {
	if c.closed {
		return nil
	}
	return c.fetch()
}

// Query returns the current query descriptor.
func (c *Controller) Query() Query { return c.query }

// State returns the fetch state.
func (c *Controller) State() State { return c.state }

// Generation returns the generation of the most recent fetch.
func (c *Controller) Generation() uint64 { return c.gen }

// Loading reports whether a fetch is in flight.
func (c *Controller) Loading() bool { return c.state == StateFetching }

// Busy reports whether any mutation is in flight.
func (c *Controller) Busy() bool { return c.pending > 0 }

// Err returns the current error message, "" when none. A failed mutation
// and a failed fetch are both reported, the mutation first.
func (c *Controller) Err() string {
	var parts []string
	for _, err := range []error{c.mutationErr, c.fetchErr} {
		if err != nil {
			parts = append(parts, apperr.Message(err))
		}
	}
	return strings.Join(parts, "; ")
}

// Failure returns the error behind Err, preferring the mutation failure.
func (c *Controller) Failure() error {
	if c.mutationErr != nil {
		return c.mutationErr
	}
	return c.fetchErr
}

// Notice returns the last informational message.
func (c *Controller) Notice() string { return c.notice }

// Result returns the last settled page.
func (c *Controller) Result() Page { return c.result }

// SearchInput returns the raw, possibly uncommitted, search text.
func (c *Controller) SearchInput() string { return c.search.Raw() }

// Columns returns the column registry.
func (c *Controller) Columns() *ColumnRegistry { return c.columns }

// IsSelected reports whether id is selected.
func (c *Controller) IsSelected(id RowID) bool { return c.selection.Has(id) }

// SelectedIDs returns a sorted snapshot of the selection.
func (c *Controller) SelectedIDs() []RowID { return c.selection.IDs() }

// DismissError clears the error and notice slots.
func (c *Controller) DismissError() {
	c.fetchErr = nil
	c.mutationErr = nil
	c.notice = ""
}

func (c *Controller) sortable(key string) bool {
	col, ok := c.columns.Lookup(key)
	return ok && col.Sortable
}

func (c *Controller) commitSearch(text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == c.query.Search {
		return nil
	}
	next := c.query
	next.Search = text
	next.Page = 1
	return c.apply(next)
}

// apply replaces the query and fetches when it differs from the current one.
func (c *Controller) apply(next Query) tea.Cmd {
	if c.closed {
		return nil
	}
	if next.Equal(c.query) && c.state != StateIdle {
		return nil
	}
	c.query = next
	c.notice = ""
	return c.fetch()
}

func (c *Controller) fetch() tea.Cmd {
	c.gen++
	c.state = StateFetching
	c.fetchErr = nil

	ctx := context.Background()
	if c.cancelSuperseded {
		if c.cancelInflight != nil {
			c.cancelInflight()
		}
		ctx, c.cancelInflight = context.WithCancel(ctx)
	}

	owner, gen, q := c.id, c.gen, c.query
	fetcher, timeout := c.fetcher, c.timeout
	c.logger.Debug("fetch started", "generation", gen, "page", q.Page, "per_page", q.PageSize)

	return func() tea.Msg {
		ctx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		page, err := fetcher.FetchPage(ctx, q)
		return fetchResultMsg{owner: owner, gen: gen, page: page, err: err}
	}
}

func (c *Controller) settle(msg fetchResultMsg) tea.Cmd {
	if msg.gen != c.gen {
		c.logger.Debug("stale page discarded", "generation", msg.gen, "current", c.gen)
		return nil
	}
	if c.cancelInflight != nil {
		c.cancelInflight()
		c.cancelInflight = nil
	}
	if msg.err != nil {
		c.state = StateFailed
		c.fetchErr = msg.err
		c.logger.Warn("fetch failed", "generation", msg.gen, "error", msg.err)
		return nil
	}
	c.state = StateSettled
	c.result = msg.page
	c.hasResult = true
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
