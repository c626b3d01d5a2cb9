// Package table keeps a paginated, sorted, filtered, searchable and
// multi-selectable view of a server-held collection consistent with
// asynchronous network responses.
//
// # Model
//
// [Controller] follows the bubbletea architecture. Every action method and
// [Controller.Update] must be called from the goroutine that owns the
// controller; none of them block. Network calls and timers are returned as
// tea.Cmd values which the owner runs (bubbletea does this automatically)
// and whose resulting messages it feeds back into Update. Because all state
// changes happen on one goroutine the controller holds no locks.
//
// # Fetching
//
// The current [Query] is replaced wholesale by every page, page size, sort,
// search or filter change. Each change that produces a different query, and
// every [Controller.Refresh], increments a generation counter and issues one
// fetch tagged with it. Responses carrying an older generation are dropped,
// so a slow response for page 1 can never overwrite page 2. Superseded
// requests are not aborted unless [WithCancelSuperseded] is given.
//
// # Search
//
// Search input goes through a [Debouncer]: the raw text is echoed
// immediately and committed into the query only after the quiet period has
// passed without further edits.
//
// # Mutations
//
// Single deletes remove the row from the last page locally without a
// refetch, leaving the total stale by one. Bulk deletes send every selected
// id in one call and refresh on success. Export hands the server's bytes to
// a [FileSink] untouched.
package table
