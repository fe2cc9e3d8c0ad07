package xmat

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"reflect"
	"testing"
)

/* ---------------------------
   In-memory database/sql driver
----------------------------*/

// testSet is one result set served by the test driver. types is optional; when
// present the driver reports it through ColumnTypeScanType.
type testSet struct {
	cols  []string
	types []reflect.Type
	data  [][]driver.Value
}

type DBHandler func(query string, args []driver.NamedValue) (sets []testSet, err error)

type testConnector struct {
	h DBHandler
}

func (c *testConnector) Connect(context.Context) (driver.Conn, error) { return &testConn{h: c.h}, nil }
func (c *testConnector) Driver() driver.Driver                        { return testDriver{} }

type testDriver struct{}

func (testDriver) Open(name string) (driver.Conn, error) {
	return nil, errors.New("testDriver.Open should not be called; use sql.OpenDB with connector")
}

type testConn struct {
	h DBHandler
}

func (c *testConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *testConn) Close() error                        { return nil }
func (c *testConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

func (c *testConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	sets, err := c.h(query, args)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		sets = []testSet{{}}
	}
	return &testRows{sets: sets}, nil
}

type testRows struct {
	sets []testSet
	set  int
	i    int
}

func (r *testRows) cur() *testSet { return &r.sets[r.set] }

func (r *testRows) Columns() []string { return append([]string(nil), r.cur().cols...) }
func (r *testRows) Close() error      { return nil }
func (r *testRows) Next(dest []driver.Value) error {
	s := r.cur()
	if r.i >= len(s.data) {
		return io.EOF
	}
	row := s.data[r.i]
	for i := range dest {
		if i < len(row) {
			dest[i] = row[i]
		} else {
			dest[i] = nil
		}
	}
	r.i++
	return nil
}

func (r *testRows) HasNextResultSet() bool { return r.set+1 < len(r.sets) }

func (r *testRows) NextResultSet() error {
	if !r.HasNextResultSet() {
		return io.EOF
	}
	r.set++
	r.i = 0
	return nil
}

func (r *testRows) ColumnTypeScanType(index int) reflect.Type {
	if s := r.cur(); index < len(s.types) && s.types[index] != nil {
		return s.types[index]
	}
	return reflect.TypeOf(new(any)).Elem()
}

func (r *testRows) ColumnTypeNullable(index int) (nullable, ok bool) {
	if s := r.cur(); index < len(s.types) && s.types[index] != nil {
		return s.types[index].Kind() == reflect.Pointer, true
	}
	return false, false
}

// newTestDB creates a *sql.DB backed by the in-memory test driver.
func newTestDB(t *testing.T, h DBHandler) *sql.DB {
	t.Helper()
	return sql.OpenDB(&testConnector{h: h})
}

// single serves one result set.
func single(cols []string, data ...[]driver.Value) []testSet {
	return []testSet{{cols: cols, data: data}}
}

/* ---------------------------
   In-memory Cursor
----------------------------*/

type memSet struct {
	names []string
	types []reflect.Type
	rows  [][]any
}

// memCursor is a Cursor over literal rows. It starts before the first row of
// the first set.
type memCursor struct {
	sets []memSet
	set  int
	row  int
	err  error
}

func newMemCursor(sets ...memSet) *memCursor {
	return &memCursor{sets: sets, row: -1}
}

// rowCursor is a memCursor already positioned on the single row given.
func rowCursor(names []string, values ...any) *memCursor {
	c := newMemCursor(memSet{names: names, rows: [][]any{values}})
	c.Next()
	return c
}

func (c *memCursor) Next() bool {
	if c.err != nil || c.set >= len(c.sets) {
		return false
	}
	c.row++
	return c.row < len(c.sets[c.set].rows)
}

func (c *memCursor) NextResultSet() bool {
	if c.set+1 >= len(c.sets) {
		return false
	}
	c.set++
	c.row = -1
	return true
}

func (c *memCursor) Err() error      { return c.err }
func (c *memCursor) FieldCount() int { return len(c.sets[c.set].names) }

func (c *memCursor) FieldName(i int) string { return c.sets[c.set].names[i] }

func (c *memCursor) FieldType(i int) reflect.Type {
	if ts := c.sets[c.set].types; i < len(ts) {
		return ts[i]
	}
	return nil
}

func (c *memCursor) IsNull(i int) bool { return c.Value(i) == nil }
func (c *memCursor) Value(i int) any   { return c.sets[c.set].rows[c.row][i] }
