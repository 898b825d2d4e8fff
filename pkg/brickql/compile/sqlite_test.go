package compile

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// TestBuild_ExecutesAgainstRealSQLite compiles a plan and runs the
// resulting SQL against an in-memory SQLite database, binding the
// compiled literal params with sql.Named — the same binding style the
// demo binary would use against a real driver connection.
func TestBuild_ExecutesAgainstRealSQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE orders (id INTEGER, customer_id INTEGER, status TEXT);
		INSERT INTO orders (id, customer_id, status) VALUES (1, 10, 'open'), (2, 10, 'closed'), (3, 11, 'open');
	`)
	require.NoError(t, err)

	p := mustParseForCompile(t, `{
		"SELECT": [{"expr": {"col": "orders.id"}}],
		"FROM": {"table": "orders"},
		"WHERE": {"EQ": [{"col": "orders.status"}, {"value": "open"}]},
		"ORDER_BY": [{"expr": {"col": "orders.id"}, "direction": "ASC"}]
	}`)

	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.NoError(t, err)

	merged, err := out.MergeRuntimeParams(nil)
	require.NoError(t, err)

	var namedArgs []any
	for name, value := range merged {
		namedArgs = append(namedArgs, sql.Named(name, value))
	}

	rows, err := db.Query(out.SQL, namedArgs...)
	require.NoError(t, err)
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())

	require.Equal(t, []int{1, 3}, ids)
}

// TestBuild_ExecutesJoinAgainstRealSQLite exercises a relationship JOIN
// end to end, including a runtime-supplied parameter merged in at
// execution time.
func TestBuild_ExecutesJoinAgainstRealSQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE customers (id INTEGER, name TEXT);
		CREATE TABLE orders (id INTEGER, customer_id INTEGER, status TEXT);
		INSERT INTO customers (id, name) VALUES (10, 'acme'), (11, 'globex');
		INSERT INTO orders (id, customer_id, status) VALUES (1, 10, 'open'), (2, 11, 'open');
	`)
	require.NoError(t, err)

	p := mustParseForCompile(t, `{
		"SELECT": [{"expr": {"col": "customers.name"}}],
		"FROM": {"table": "orders"},
		"JOIN": [{"rel": "orders_to_customers", "type": "INNER"}],
		"WHERE": {"EQ": [{"col": "orders.customer_id"}, {"param": "CUSTOMER_ID"}]}
	}`)

	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.NoError(t, err)

	merged, err := out.MergeRuntimeParams(map[string]any{"CUSTOMER_ID": 10})
	require.NoError(t, err)

	var namedArgs []any
	for name, value := range merged {
		namedArgs = append(namedArgs, sql.Named(name, value))
	}

	var name string
	require.NoError(t, db.QueryRow(out.SQL, namedArgs...).Scan(&name))
	require.Equal(t, "acme", name)
}
