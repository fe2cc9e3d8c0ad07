package xmat

import (
	"database/sql"
	"reflect"
)

// Cursor is a forward-only reader over one or more result sets.
//
// Next advances to the next row of the current result set. NextResultSet
// moves to the following result set and resets the row position; the field
// accessors then describe the new set. Value and IsNull refer to the current
// row and are only meaningful after Next returned true.
type Cursor interface {
	Next() bool
	NextResultSet() bool
	Err() error

	FieldCount() int
	FieldName(i int) string
	// FieldType is the type the driver declares for field i. It may be nil or
	// an interface type when the driver reports nothing useful.
	FieldType(i int) reflect.Type
	IsNull(i int) bool
	Value(i int) any
}

// NullabilityReporter is implemented by cursors that know whether a field may
// hold NULL.
type NullabilityReporter interface {
	FieldNullable(i int) (nullable, ok bool)
}

// FieldDescriptor describes one field of a row shape.
type FieldDescriptor struct {
	Index    int
	Name     string
	Type     reflect.Type
	Nullable bool
}

// RowShape is the ordered list of fields of a result set.
type RowShape []FieldDescriptor

// ReadShape describes the fields of the cursor's current result set.
// Fields are reported nullable unless the cursor says otherwise.
func ReadShape(c Cursor) RowShape {
	nr, _ := c.(NullabilityReporter)
	n := c.FieldCount()
	shape := make(RowShape, n)
	for i := 0; i < n; i++ {
		fd := FieldDescriptor{Index: i, Name: c.FieldName(i), Type: c.FieldType(i), Nullable: true}
		if nr != nil {
			if nullable, ok := nr.FieldNullable(i); ok {
				fd.Nullable = nullable
			}
		}
		shape[i] = fd
	}
	return shape
}

// Names returns the field names in order.
func (s RowShape) Names() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}

// RowsCursor adapts *sql.Rows to Cursor. Each row is scanned into a reused
// []any buffer; database/sql copies []byte values for *any destinations, so
// values handed out by Value stay valid after the next row is read.
//
// RowsCursor does not close the rows; the caller that ran the query owns them.
type RowsCursor struct {
	rows  *sql.Rows
	cols  []string
	types []*sql.ColumnType
	vals  []any
	ptrs  []any
	err   error
}

// NewRowsCursor wraps rows positioned before the first row of a result set.
func NewRowsCursor(rows *sql.Rows) (*RowsCursor, error) {
	c := &RowsCursor{rows: rows}
	if err := c.describe(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *RowsCursor) describe() error {
	cols, err := c.rows.Columns()
	if err != nil {
		return err
	}
	types, err := c.rows.ColumnTypes()
	if err != nil {
		return err
	}
	c.cols = cols
	c.types = types
	c.vals = make([]any, len(cols))
	c.ptrs = make([]any, len(cols))
	for i := range c.vals {
		c.ptrs[i] = &c.vals[i]
	}
	return nil
}

func (c *RowsCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	if err := c.rows.Scan(c.ptrs...); err != nil {
		c.err = err
		return false
	}
	return true
}

func (c *RowsCursor) NextResultSet() bool {
	if c.err != nil || !c.rows.NextResultSet() {
		return false
	}
	if err := c.describe(); err != nil {
		c.err = err
		return false
	}
	return true
}

func (c *RowsCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *RowsCursor) FieldCount() int        { return len(c.cols) }
func (c *RowsCursor) FieldName(i int) string { return c.cols[i] }
func (c *RowsCursor) IsNull(i int) bool      { return c.vals[i] == nil }
func (c *RowsCursor) Value(i int) any        { return c.vals[i] }

func (c *RowsCursor) FieldType(i int) reflect.Type {
	if i >= len(c.types) {
		return nil
	}
	return c.types[i].ScanType()
}

func (c *RowsCursor) FieldNullable(i int) (bool, bool) {
	if i >= len(c.types) {
		return false, false
	}
	return c.types[i].Nullable()
}

// Rows exposes the wrapped *sql.Rows for callers that need driver specifics.
func (c *RowsCursor) Rows() *sql.Rows { return c.rows }
