// Package dbtest provides an in-memory database capability for tests.
package dbtest

import (
	"context"
	"errors"
	"sync"

	"sp-service/pkg/db"
)

// Set is one scripted result set. A nil Columns slice models a set without metadata.
type Set struct {
	Columns  []string
	Rows     [][]any
	FetchErr error
}

// Script describes how a fake connection answers.
type Script struct {
	DialErr     error
	CursorErr   error
	CallErr     error
	NextSetErr  error
	CommitErr   error
	RollbackErr error
	CloseErr    error
	Sets        []Set
}

// Dialer hands out fake connections and records everything they do.
type Dialer struct {
	Script Script

	mu     sync.Mutex
	dials  int
	events []string
	calls  []Call
}

type Call struct {
	Procedure string
	Args      []any
}

func NewDialer(s Script) *Dialer {
	return &Dialer{Script: s}
}

func (d *Dialer) Dial(ctx context.Context) (db.Conn, error) {
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()

	if d.Script.DialErr != nil {
		return nil, d.Script.DialErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.record("dial")
	return &conn{d: d}, nil
}

func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// Events returns the ordered driver operations, e.g. "call", "rollback", "close".
func (d *Dialer) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

func (d *Dialer) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

func (d *Dialer) record(event string) {
	d.mu.Lock()
	d.events = append(d.events, event)
	d.mu.Unlock()
}

type conn struct {
	d *Dialer
}

func (c *conn) Cursor() (db.Cursor, error) {
	if c.d.Script.CursorErr != nil {
		return nil, c.d.Script.CursorErr
	}
	c.d.record("cursor")
	return &Cursor{d: c.d, pos: -1}, nil
}

func (c *conn) Commit() error {
	c.d.record("commit")
	return c.d.Script.CommitErr
}

func (c *conn) Rollback() error {
	c.d.record("rollback")
	return c.d.Script.RollbackErr
}

func (c *conn) Close() error {
	c.d.record("close")
	return c.d.Script.CloseErr
}

// Cursor walks the dialer's scripted sets.
type Cursor struct {
	d   *Dialer
	pos int
}

// NewCursor returns a standalone cursor positioned before sets.
func NewCursor(sets ...Set) *Cursor {
	return &Cursor{d: NewDialer(Script{Sets: sets}), pos: -1}
}

func (c *Cursor) Dialer() *Dialer {
	return c.d
}

func (c *Cursor) Call(ctx context.Context, procedure string, args ...any) error {
	c.d.mu.Lock()
	c.d.calls = append(c.d.calls, Call{Procedure: procedure, Args: args})
	c.d.mu.Unlock()
	c.d.record("call")

	if c.d.Script.CallErr != nil {
		return c.d.Script.CallErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.pos = 0
	return nil
}

func (c *Cursor) current() (Set, bool) {
	if c.pos < 0 || c.pos >= len(c.d.Script.Sets) {
		return Set{}, false
	}
	return c.d.Script.Sets[c.pos], true
}

func (c *Cursor) Description() ([]string, error) {
	set, ok := c.current()
	if !ok {
		return nil, nil
	}
	return set.Columns, nil
}

func (c *Cursor) FetchAll() ([][]any, error) {
	set, ok := c.current()
	if !ok {
		return nil, errors.New("no active result set")
	}
	c.d.record("fetch")
	if set.FetchErr != nil {
		return nil, set.FetchErr
	}
	return set.Rows, nil
}

func (c *Cursor) NextSet() (bool, error) {
	if c.d.Script.NextSetErr != nil {
		return false, c.d.Script.NextSetErr
	}
	if c.pos < 0 {
		return false, nil
	}
	c.pos++
	return c.pos < len(c.d.Script.Sets), nil
}

func (c *Cursor) Close() error {
	c.d.record("cursor_close")
	return nil
}
