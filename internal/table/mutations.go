package table

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/registry/internal/apperr"
)

type fetchResultMsg struct {
	owner *owner
	gen   uint64
	page  Page
	err   error
}

type deleteResultMsg struct {
	owner *owner
	id    RowID
	err   error
}

type bulkDeleteResultMsg struct {
	owner *owner
	ids   []RowID
	err   error
}

type exportResultMsg struct {
	owner *owner
	path  string
	err   error
}

type detailResultMsg struct {
	owner *owner
	seq   uint64
	row   Row
	err   error
}

// Detail is the state of the single-record view.
type Detail struct {
	ID      RowID
	Row     Row
	Open    bool
	Loading bool
	Err     string
}

var errNoSink = errors.New("no export destination configured")

// DeleteRow deletes one record. On success the row is dropped from the
// current page without a refetch and the id leaves the selection.
func (c *Controller) DeleteRow(id RowID) tea.Cmd {
	if c.closed || c.mutator == nil || id == "" {
		return nil
	}
	c.beginMutation()

	owner, m, timeout := c.id, c.mutator, c.timeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(context.Background(), timeout)
		defer cancel()
		return deleteResultMsg{owner: owner, id: id, err: m.Delete(ctx, id)}
	}
}

// BulkDelete deletes every selected id in a single call. Nothing happens
// when the selection is empty.
func (c *Controller) BulkDelete() tea.Cmd {
	if c.closed || c.mutator == nil || c.selection.Len() == 0 {
		return nil
	}
	c.beginMutation()

	ids := c.selection.IDs()
	owner, m, timeout := c.id, c.mutator, c.timeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(context.Background(), timeout)
		defer cancel()
		return bulkDeleteResultMsg{owner: owner, ids: ids, err: m.BulkDelete(ctx, ids)}
	}
}

// Export downloads the collection and hands the bytes to the FileSink.
func (c *Controller) Export() tea.Cmd {
	if c.closed || c.mutator == nil {
		return nil
	}
	c.beginMutation()

	owner, m, sink, name, timeout := c.id, c.mutator, c.sink, c.exportName, c.timeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(context.Background(), timeout)
		defer cancel()
		data, err := m.Export(ctx)
		if err != nil {
			return exportResultMsg{owner: owner, err: err}
		}
		if sink == nil {
			return exportResultMsg{owner: owner, err: errNoSink}
		}
		path, err := sink.Deliver(name, data)
		if err != nil {
			err = fmt.Errorf("save export: %w", err)
		}
		return exportResultMsg{owner: owner, path: path, err: err}
	}
}

// FetchDetail opens the detail view for id and loads it.
func (c *Controller) FetchDetail(id RowID) tea.Cmd {
	if c.closed || c.details == nil || id == "" {
		return nil
	}
	c.detailSeq++
	c.detail = Detail{ID: id, Open: true, Loading: true}

	owner, seq, d, timeout := c.id, c.detailSeq, c.details, c.timeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(context.Background(), timeout)
		defer cancel()
		row, err := d.FetchDetail(ctx, id)
		return detailResultMsg{owner: owner, seq: seq, row: row, err: err}
	}
}

// CloseDetail closes the detail view. A lookup still in flight is ignored.
func (c *Controller) CloseDetail() {
	c.detailSeq++
	c.detail = Detail{}
}

// Detail returns the detail view state.
func (c *Controller) Detail() Detail { return c.detail }

func (c *Controller) beginMutation() {
	c.pending++
	c.mutationErr = nil
	c.notice = ""
}

func (c *Controller) endMutation(err error) bool {
	if c.pending > 0 {
		c.pending--
	}
	if err == nil {
		return true
	}
	if apperr.IsValidation(err) {
		return false
	}
	c.mutationErr = err
	c.logger.Warn("mutation failed", "error", err)
	return false
}

func (c *Controller) deleted(msg deleteResultMsg) tea.Cmd {
	if !c.endMutation(msg.err) {
		return nil
	}
	c.selection.Remove(msg.id)
	c.notice = "Record deleted"
	if c.refetchAfterDelete {
		return c.fetch()
	}
	c.removeRow(msg.id)
	return nil
}

func (c *Controller) bulkDeleted(msg bulkDeleteResultMsg) tea.Cmd {
	if !c.endMutation(msg.err) {
		return nil
	}
	c.selection.Clear()
	c.notice = fmt.Sprintf("%d records deleted", len(msg.ids))
	return c.fetch()
}

func (c *Controller) exported(msg exportResultMsg) {
	if !c.endMutation(msg.err) {
		return
	}
	c.notice = "Exported to " + msg.path
}

func (c *Controller) detailLoaded(msg detailResultMsg) {
	if msg.seq != c.detailSeq {
		return
	}
	c.detail.Loading = false
	if msg.err != nil {
		c.detail.Err = apperr.Message(msg.err)
		return
	}
	c.detail.Row = msg.row
}

// removeRow drops id from the current page. The total is left unchanged.
func (c *Controller) removeRow(id RowID) {
	rows := make([]Row, 0, len(c.result.Rows))
	for _, r := range c.result.Rows {
		if r.ID() != id {
			rows = append(rows, r)
		}
	}
	c.result.Rows = rows
}
