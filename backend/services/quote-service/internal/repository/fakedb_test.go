package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
)

// fakeDB is an in-memory database/sql driver. Queries are answered from canned tables keyed by
// the table named after FROM; statements are recorded.
type fakeDB struct {
	mu        sync.Mutex
	tables    map[string]fakeTable
	execs     []fakeExec
	failExec  string
	txOptions []driver.TxOptions
	commits   int
	rollbacks int
}

type fakeTable struct {
	columns []string
	rows    [][]driver.Value
}

type fakeExec struct {
	query string
	args  []driver.Value
}

func newFakeDB(t *testing.T, tables map[string]fakeTable) (*fakeDB, *sql.DB) {
	t.Helper()
	f := &fakeDB{tables: tables}
	db := sql.OpenDB(f)
	t.Cleanup(func() { _ = db.Close() })
	return f, db
}

func (f *fakeDB) Connect(context.Context) (driver.Conn, error) { return &fakeConn{db: f}, nil }

func (f *fakeDB) Driver() driver.Driver { return fakeDriver{db: f} }

func (f *fakeDB) statements(prefix string) []fakeExec {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeExec
	for _, e := range f.execs {
		if strings.HasPrefix(e.query, prefix) {
			out = append(out, e)
		}
	}
	return out
}

type fakeDriver struct{ db *fakeDB }

func (d fakeDriver) Open(string) (driver.Conn, error) { return &fakeConn{db: d.db}, nil }

type fakeConn struct{ db *fakeDB }

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("fakedb: prepared statements not supported")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *fakeConn) BeginTx(_ context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.db.mu.Lock()
	c.db.txOptions = append(c.db.txOptions, opts)
	c.db.mu.Unlock()
	return fakeTx{db: c.db}, nil
}

func (c *fakeConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if strings.Contains(query, "NOT EXISTS") {
		empty := len(c.db.tables["products"].rows) == 0
		return &fakeRows{columns: []string{"empty"}, rows: [][]driver.Value{{empty}}}, nil
	}
	name := tableName(query)
	table, ok := c.db.tables[name]
	if !ok {
		return nil, fmt.Errorf("fakedb: relation %q does not exist", name)
	}
	return &fakeRows{columns: table.columns, rows: table.rows}, nil
}

func (c *fakeConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	query = strings.Join(strings.Fields(query), " ")
	if c.db.failExec != "" && strings.HasPrefix(query, c.db.failExec) {
		return nil, errors.New("fakedb: constraint violation")
	}
	values := make([]driver.Value, len(args))
	for i, a := range args {
		values[i] = a.Value
	}
	c.db.execs = append(c.db.execs, fakeExec{query: query, args: values})
	return driver.RowsAffected(1), nil
}

func tableName(query string) string {
	fields := strings.Fields(query)
	for i, f := range fields {
		if strings.EqualFold(f, "FROM") && i+1 < len(fields) {
			return strings.TrimRight(fields[i+1], ")")
		}
	}
	return ""
}

type fakeTx struct{ db *fakeDB }

func (t fakeTx) Commit() error {
	t.db.mu.Lock()
	t.db.commits++
	t.db.mu.Unlock()
	return nil
}

func (t fakeTx) Rollback() error {
	t.db.mu.Lock()
	t.db.rollbacks++
	t.db.mu.Unlock()
	return nil
}

type fakeRows struct {
	columns []string
	rows    [][]driver.Value
	next    int
}

func (r *fakeRows) Columns() []string { return r.columns }

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}
