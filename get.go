package xmat

import (
	"context"
	"database/sql"
	"fmt"
)

// Get runs cmd and materializes the first row of its first result set as T.
// Each level then consumes one further result set, so a single round trip
// can load an object together with its dependent lists.
//
// No row is not an error: the zero value of T is returned. Extra rows of the
// first result set are ignored.
//
// Example:
//
//	type Line struct {
//	    OrderID int64
//	    SKU     string
//	}
//	type Order struct {
//	    ID       int64
//	    Customer struct{ Name string } // filled from column "CustomerName"
//	    Lines    []Line
//	}
//
//	order, err := xmat.Get(ctx, m, db,
//	    xmat.SQL(`SELECT ID, CustomerName FROM orders WHERE ID = $1;
//	              SELECT OrderID, SKU FROM lines WHERE OrderID = $1`, 42),
//	    xmat.Children(func(o *Order) *[]Line { return &o.Lines }),
//	)
func Get[T any](ctx context.Context, m *Mapper, q Querier, cmd Command, levels ...Level[T]) (out T, err error) {
	rows, err := q.QueryContext(ctx, cmd.Text, cmd.Args...)
	if err != nil {
		return out, err
	}
	// Ensure Close error is propagated if no earlier error occurred.
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	c, err := NewRowsCursor(rows)
	if err != nil {
		return out, err
	}
	return One(m, c, cmd.Fingerprint(), levels...)
}

// Scalar runs cmd and converts the first field of the first row to T, which
// must be a scalar type (bool, number, string, []byte, time.Time, a
// sql.Scanner, any, or a pointer to one of these). No row yields the zero
// value.
func Scalar[T any](ctx context.Context, m *Mapper, q Querier, cmd Command) (T, error) {
	if rt := typeFor[T](); !isScalar(rt) {
		var zero T
		return zero, fmt.Errorf("xmat: Scalar needs a scalar type, got %s: %w", rt, ErrConstruction)
	}
	return Get[T](ctx, m, q, cmd)
}

// RawQuery runs cmd and hands the rows to fn without materializing anything.
// The rows are closed when fn returns.
func RawQuery(ctx context.Context, q Querier, cmd Command, fn func(*sql.Rows) error) (err error) {
	rows, err := q.QueryContext(ctx, cmd.Text, cmd.Args...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := fn(rows); err != nil {
		return err
	}
	return rows.Err()
}
