package xmat

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, stmt := range []string{
		`CREATE TABLE orders (ID INTEGER PRIMARY KEY, CustomerName TEXT NOT NULL, Total REAL)`,
		`CREATE TABLE lines (OrderID INTEGER NOT NULL, SKU TEXT NOT NULL)`,
	} {
		_, err := Exec(ctx, db, SQL(stmt))
		require.NoError(t, err)
	}
	return db
}

func TestSQLite_RoundTrip(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	m := NewMapper()

	for _, o := range []struct {
		name  string
		total any
	}{{"ann", 12.5}, {"bob", nil}} {
		_, err := Exec(ctx, db, SQL(`INSERT INTO orders (CustomerName, Total) VALUES (?, ?)`, o.name, o.total))
		require.NoError(t, err)
	}
	for _, l := range []struct {
		id  int
		sku string
	}{{1, "a"}, {2, "b"}, {1, "c"}} {
		_, err := Exec(ctx, db, SQL(`INSERT INTO lines (OrderID, SKU) VALUES (?, ?)`, l.id, l.sku))
		require.NoError(t, err)
	}

	orders, err := Query[order](ctx, m, db, SQL(`SELECT ID, CustomerName, Total FROM orders ORDER BY ID`))
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(1), orders[0].ID)
	assert.Equal(t, "ann", orders[0].Customer.Name)
	assert.Equal(t, 12.5, orders[0].Total)
	assert.Zero(t, orders[1].Total, "NULL leaves the member untouched")

	lines, err := Query[line](ctx, m, db, SQL(`SELECT OrderID, SKU FROM lines WHERE OrderID = ? ORDER BY SKU`, 1))
	require.NoError(t, err)
	assert.Equal(t, []line{{1, "a"}, {1, "c"}}, lines)

	n, err := Scalar[int](ctx, m, db, SQL(`SELECT COUNT(*) FROM lines`))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	name, err := Scalar[*string](ctx, m, db, SQL(`SELECT CustomerName FROM orders WHERE ID = ?`, 99))
	require.NoError(t, err)
	assert.Nil(t, name, "no row yields the zero value")
}

func TestSQLite_SingleResultSetWithLevels(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	_, err := Exec(ctx, db, SQL(`INSERT INTO orders (CustomerName) VALUES ('ann')`))
	require.NoError(t, err)

	got, err := Get(ctx, NewMapper(), db, SQL(`SELECT ID, CustomerName FROM orders`),
		Children(func(o *order) *[]line { return &o.Lines }),
	)
	require.NoError(t, err)
	assert.Equal(t, "ann", got.Customer.Name)
	assert.Nil(t, got.Lines)
}
