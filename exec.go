package xmat

import (
	"context"
	"database/sql"
)

// Exec executes a statement that does not return rows (INSERT, UPDATE, DELETE, DDL).
//
// It forwards to the underlying [Execer]. On success it returns the driver's
// [sql.Result], which may support LastInsertId and RowsAffected depending on
// the database/driver.
//
// Example:
//
//	res, err := xmat.Exec(ctx, db, xmat.SQL(`DELETE FROM lines WHERE OrderID = ?`, 42))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	n, _ := res.RowsAffected()
func Exec(ctx context.Context, e Execer, cmd Command) (sql.Result, error) {
	return e.ExecContext(ctx, cmd.Text, cmd.Args...)
}
