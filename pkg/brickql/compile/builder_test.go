package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickql/brickql-go/pkg/brickql/plan"
	"github.com/brickql/brickql-go/pkg/brickql/schema"
)

func compileSnapshot() *schema.Snapshot {
	return &schema.Snapshot{
		Tables: []schema.TableInfo{
			{Name: "orders", Columns: []schema.ColumnInfo{
				{Name: "id"}, {Name: "customer_id"}, {Name: "status"}, {Name: "total"},
			}},
			{Name: "customers", Columns: []schema.ColumnInfo{
				{Name: "id"}, {Name: "name"},
			}},
		},
		Relationships: []schema.RelationshipInfo{
			{Key: "orders_to_customers", From: "orders", FromCol: "customer_id", To: "customers", ToCol: "id"},
		},
	}
}

func mustParseForCompile(t *testing.T, data string) *plan.QueryPlan {
	p, err := plan.Parse([]byte(data))
	require.NoError(t, err)
	return p
}

func TestBuild_SimpleSelectWithLiteralWhere(t *testing.T) {
	p := mustParseForCompile(t, `{"SELECT": [{"expr": {"col": "orders.id"}}], "FROM": {"table": "orders"},
		"WHERE": {"EQ": [{"col": "orders.status"}, {"value": "open"}]}}`)

	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.NoError(t, err)

	assert.Contains(t, out.SQL, `SELECT "orders"."id"`)
	assert.Contains(t, out.SQL, `FROM "orders"`)
	assert.Contains(t, out.SQL, `WHERE "orders"."status" = :param_0`)
	assert.Equal(t, "open", out.Params["param_0"])
	assert.Empty(t, out.RequiredParams)
	assert.Equal(t, "sqlite", out.Dialect)
}

func TestBuild_SelectStarWhenNoItems(t *testing.T) {
	p := mustParseForCompile(t, `{"SELECT": "*", "FROM": {"table": "orders"}}`)
	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "SELECT *")
}

func TestBuild_AliasAndDistinct(t *testing.T) {
	p := mustParseForCompile(t, `{"SELECT": [{"expr": {"col": "orders.status"}, "alias": "s", "distinct": true}],
		"FROM": {"table": "orders"}}`)
	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "SELECT DISTINCT")
	assert.Contains(t, out.SQL, `AS "s"`)
}

func TestBuild_ParamOperandIsRequired(t *testing.T) {
	p := mustParseForCompile(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"WHERE": {"EQ": [{"col": "orders.customer_id"}, {"param": "CUSTOMER"}]}}`)
	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, ":CUSTOMER")
	assert.Equal(t, []string{"CUSTOMER"}, out.RequiredParams)
	assert.Empty(t, out.Params)
}

func TestBuild_RelationshipJoinRendersONClause(t *testing.T) {
	p := mustParseForCompile(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"JOIN": [{"rel": "orders_to_customers", "type": "LEFT"}]}`)
	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, `LEFT JOIN "customers" ON "orders"."customer_id" = "customers"."id"`)
}

func TestBuild_CrossJoinRendersNoONClause(t *testing.T) {
	p := mustParseForCompile(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"JOIN": [{"type": "CROSS", "table": "customers", "alias": "c"}]}`)
	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, `CROSS JOIN "customers" AS "c"`)
}

func TestBuild_GroupByHavingAndOrderBy(t *testing.T) {
	p := mustParseForCompile(t, `{
		"SELECT": [{"expr": {"col": "orders.status"}}, {"expr": {"func": "COUNT", "args": [{"col": "orders.id"}]}, "alias": "cnt"}],
		"FROM": {"table": "orders"},
		"GROUP_BY": [{"col": "orders.status"}],
		"HAVING": {"GT": [{"func": "COUNT", "args": [{"col": "orders.id"}]}, {"value": 1}]},
		"ORDER_BY": [{"expr": {"col": "orders.status"}, "direction": "ASC"}]
	}`)
	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, `GROUP BY "orders"."status"`)
	assert.Contains(t, out.SQL, "HAVING COUNT")
	assert.Contains(t, out.SQL, `ORDER BY "orders"."status" ASC`)
}

func TestBuild_LimitLiteralAndParam(t *testing.T) {
	litPlan := mustParseForCompile(t, `{"SELECT": "*", "FROM": {"table": "orders"}, "LIMIT": {"value": 20}}`)
	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(litPlan)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "LIMIT :param_0")
	assert.Equal(t, 20, out.Params["param_0"])

	paramPlan := mustParseForCompile(t, `{"SELECT": "*", "FROM": {"table": "orders"}, "LIMIT": {"param": "PAGE_SIZE"}}`)
	out2, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(paramPlan)
	require.NoError(t, err)
	assert.Contains(t, out2.SQL, "LIMIT :PAGE_SIZE")
	assert.Equal(t, []string{"PAGE_SIZE"}, out2.RequiredParams)
}

func TestBuild_InSubqueryDelegatesToSharedRuntime(t *testing.T) {
	p := mustParseForCompile(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"WHERE": {"IN": [{"col": "orders.customer_id"},
			{"SELECT": [{"expr": {"col": "customers.id"}}], "FROM": {"table": "customers"},
				"WHERE": {"EQ": [{"col": "customers.name"}, {"value": "acme"}]}}
		]}}`)
	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "IN (")
	assert.Equal(t, "acme", out.Params["param_0"])
}

func TestBuild_RecursiveCTE(t *testing.T) {
	p := mustParseForCompile(t, `{
		"WITH": [{"name": "ancestors", "recursive": true,
			"plan": {"SELECT": "*", "FROM": {"table": "orders"}}}],
		"SELECT": "*",
		"FROM": {"table": "ancestors"}
	}`)
	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "WITH RECURSIVE")
	assert.Contains(t, out.SQL, `"ancestors" AS (`)
}

func TestBuild_SetOperationUnion(t *testing.T) {
	p := mustParseForCompile(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"SET_OP": {"op": "UNION_ALL", "right": {"SELECT": "*", "FROM": {"table": "customers"}}}}`)
	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "UNION ALL")
}

func TestBuild_NamedWindowOverClause(t *testing.T) {
	p := mustParseForCompile(t, `{
		"SELECT": [{"expr": {"func": "ROW_NUMBER", "args": []}, "alias": "rn", "over": {"name": "w"}}],
		"FROM": {"table": "orders"},
		"WINDOW": [{"name": "w", "partition_by": [{"col": "orders.status"}]}]
	}`)
	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, `OVER "w"`)
	assert.Contains(t, out.SQL, `WINDOW "w" AS (PARTITION BY "orders"."status")`)
}

func TestBuild_InlineOverClauseWithPartitionBy(t *testing.T) {
	p := mustParseForCompile(t, `{
		"SELECT": [{"expr": {"func": "ROW_NUMBER", "args": []}, "alias": "rn",
			"over": {"partition_by": [{"col": "orders.status"}]}}],
		"FROM": {"table": "orders"}
	}`)
	out, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, `OVER (PARTITION BY "orders"."status")`)
}

func TestBuild_UnknownRelationshipFailsAtCompileTime(t *testing.T) {
	p := mustParseForCompile(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"JOIN": [{"rel": "ghost_rel", "type": "INNER"}]}`)
	_, err := New(&SQLiteCompiler{}, compileSnapshot()).Build(p)
	require.Error(t, err)
}

func TestCompilerFactory_CreateUnsupportedDialect(t *testing.T) {
	_, err := DefaultCompilerFactory.Create("oracle")
	require.Error(t, err)
}

func TestCompilerFactory_CreateKnownDialects(t *testing.T) {
	for _, name := range []string{"postgres", "sqlite", "mysql"} {
		c, err := DefaultCompilerFactory.Create(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.DialectName())
	}
}

func TestMergeRuntimeParams_MissingRequiredParam(t *testing.T) {
	c := &CompiledSQL{RequiredParams: []string{"TENANT"}, Params: map[string]any{}}
	_, err := c.MergeRuntimeParams(map[string]any{})
	require.Error(t, err)
}

func TestMergeRuntimeParams_SuspiciousValueRejected(t *testing.T) {
	c := &CompiledSQL{RequiredParams: []string{"NAME"}, Params: map[string]any{}}
	_, err := c.MergeRuntimeParams(map[string]any{"NAME": "1' OR '1'='1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suspicious")
}

func TestMergeRuntimeParams_CollisionRejected(t *testing.T) {
	c := &CompiledSQL{Params: map[string]any{"param_0": "open"}}
	_, err := c.MergeRuntimeParams(map[string]any{"param_0": "other"})
	require.Error(t, err)
}

func TestMergeRuntimeParams_SuccessfulMerge(t *testing.T) {
	c := &CompiledSQL{RequiredParams: []string{"TENANT"}, Params: map[string]any{"param_0": "open"}}
	merged, err := c.MergeRuntimeParams(map[string]any{"TENANT": "acme"})
	require.NoError(t, err)
	assert.Equal(t, "open", merged["param_0"])
	assert.Equal(t, "acme", merged["TENANT"])
}
