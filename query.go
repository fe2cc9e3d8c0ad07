package xmat

import (
	"context"
)

// Query runs cmd and materializes every row of its first result set as T.
// Each level then consumes one further result set; ChildrenOf picks the
// parent row each child belongs to.
//
// Example:
//
//	orders, err := xmat.Query(ctx, m, db,
//	    xmat.SQL(`SELECT ID, CustomerName FROM orders;
//	              SELECT OrderID, SKU FROM lines ORDER BY OrderID`),
//	    xmat.ChildrenOf(func(os []Order, l Line) *[]Line {
//	        for i := range os {
//	            if os[i].ID == l.OrderID {
//	                return &os[i].Lines
//	            }
//	        }
//	        return nil
//	    }),
//	)
func Query[T any](ctx context.Context, m *Mapper, q Querier, cmd Command, levels ...Level[[]T]) (out []T, err error) {
	rows, err := q.QueryContext(ctx, cmd.Text, cmd.Args...)
	if err != nil {
		return nil, err
	}
	// Propagate rows.Close() error if nothing else failed.
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	c, err := NewRowsCursor(rows)
	if err != nil {
		return nil, err
	}
	return List(m, c, cmd.Fingerprint(), levels...)
}
