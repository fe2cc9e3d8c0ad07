package xmat

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Exec-only in-test driver -----------------------------------------------

type execHandler func(query string, args []driver.NamedValue) (driver.Result, error)

type execConnector struct{ h execHandler }

func (c *execConnector) Connect(context.Context) (driver.Conn, error) { return &execConn{h: c.h}, nil }
func (c *execConnector) Driver() driver.Driver                        { return testDriver{} }

type execConn struct{ h execHandler }

func (c *execConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *execConn) Close() error                        { return nil }
func (c *execConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

func (c *execConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	return c.h(query, args)
}

func newExecDB(h execHandler) *sql.DB {
	return sql.OpenDB(&execConnector{h: h})
}

// --- Tests -------------------------------------------------------------------

func TestExec_PassesCommand(t *testing.T) {
	const q = `UPDATE lines SET SKU = ? WHERE OrderID > ?`
	db := newExecDB(func(query string, args []driver.NamedValue) (driver.Result, error) {
		assert.Equal(t, q, query)
		// ints are normalized to int64 by database/sql
		require.Len(t, args, 2)
		assert.Equal(t, "sku-9", args[0].Value)
		assert.Equal(t, int64(10), args[1].Value)
		return driver.RowsAffected(3), nil
	})
	defer func() { _ = db.Close() }()

	res, err := Exec(context.Background(), db, SQL(q, "sku-9", 10))
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestExec_Error(t *testing.T) {
	sentinel := errors.New("boom")
	db := newExecDB(func(string, []driver.NamedValue) (driver.Result, error) {
		return nil, sentinel
	})
	defer func() { _ = db.Close() }()

	_, err := Exec(context.Background(), db, SQL(`DELETE FROM orders WHERE ID = ?`, 7))
	assert.ErrorIs(t, err, sentinel)
}

func TestExec_InTransaction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders (CustomerName) VALUES (?)").
		WithArgs("ann").
		WillReturnResult(sqlmock.NewResult(99, 1))
	mock.ExpectQuery("SELECT ID, CustomerName FROM orders WHERE ID = ?").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"ID", "CustomerName"}).AddRow(int64(99), "ann"))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	res, err := Exec(ctx, tx, SQL("INSERT INTO orders (CustomerName) VALUES (?)", "ann"))
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	got, err := Get[order](ctx, NewMapper(), tx, SQL("SELECT ID, CustomerName FROM orders WHERE ID = ?", id))
	require.NoError(t, err)
	assert.Equal(t, "ann", got.Customer.Name)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
