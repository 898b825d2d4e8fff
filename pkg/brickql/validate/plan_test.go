package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickql/brickql-go/pkg/brickql/dialect"
	"github.com/brickql/brickql-go/pkg/brickql/plan"
	"github.com/brickql/brickql-go/pkg/brickql/schema"
)

func testSnapshot() *schema.Snapshot {
	return &schema.Snapshot{
		Tables: []schema.TableInfo{
			{Name: "orders", Columns: []schema.ColumnInfo{
				{Name: "id", Type: "integer"},
				{Name: "customer_id", Type: "integer"},
				{Name: "status", Type: "text"},
				{Name: "total", Type: "numeric"},
			}},
			{Name: "customers", Columns: []schema.ColumnInfo{
				{Name: "id", Type: "integer"},
				{Name: "name", Type: "text"},
			}},
			{Name: "flags", Columns: []schema.ColumnInfo{
				{Name: "label", Type: "text"},
			}},
		},
		Relationships: []schema.RelationshipInfo{
			{Key: "orders_to_customers", From: "orders", FromCol: "customer_id", To: "customers", ToCol: "id"},
		},
	}
}

func mustParse(t *testing.T, data string) *plan.QueryPlan {
	p, err := plan.Parse([]byte(data))
	require.NoError(t, err)
	return p
}

func TestValidate_SimpleSelectPasses(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": [{"expr": {"col": "orders.status"}}], "FROM": {"table": "orders"},
		"WHERE": {"EQ": [{"col": "orders.status"}, {"value": "open"}]}}`)

	require.NoError(t, New(snap, dial).Validate(p, nil))
}

func TestValidate_UnknownTableRejected(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"table": "ghosts"}}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghosts")
}

func TestValidate_UnknownColumnRejected(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": [{"expr": {"col": "orders.bogus"}}], "FROM": {"table": "orders"}}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
}

func TestValidate_JoinWithoutProfileSupportRejected(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"JOIN": [{"rel": "orders_to_customers", "type": "INNER"}]}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
}

func TestValidate_JoinWithKnownRelationshipPasses(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Joins(4).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"JOIN": [{"rel": "orders_to_customers", "type": "INNER"}]}`)
	require.NoError(t, New(snap, dial).Validate(p, nil))
}

func TestValidate_UnknownRelationshipRejected(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Joins(4).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"JOIN": [{"rel": "no_such_rel", "type": "INNER"}]}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
}

func TestValidate_CrossJoinChecksTableAllowlistNotRelationship(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Joins(4).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"JOIN": [{"type": "CROSS", "table": "flags"}]}`)
	require.NoError(t, New(snap, dial).Validate(p, nil))
}

func TestValidate_JoinDepthExceeded(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Joins(1).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"JOIN": [
			{"rel": "orders_to_customers", "type": "INNER"},
			{"type": "CROSS", "table": "flags"}
		]}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_join_depth")
}

func TestValidate_HavingWithoutGroupByRejected(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Aggregations().Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"HAVING": {"GT": [{"func": "COUNT", "args": [{"col": "orders.id"}]}, {"value": 1}]}}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
}

func TestValidate_LimitExceedsMax(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 10).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"table": "orders"}, "LIMIT": {"value": 50}}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_limit")
}

func TestValidate_NegativeLimitRejected(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"table": "orders"}, "LIMIT": {"value": -1}}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
}

func TestValidate_ZeroLimitAccepted(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"table": "orders"}, "LIMIT": {"value": 0}}`)
	err = New(snap, dial).Validate(p, nil)
	require.NoError(t, err)
}

func TestValidate_NegativeOffsetRejected(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"table": "orders"}, "OFFSET": {"value": -1}}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
}

func TestValidate_ZeroOffsetAccepted(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"table": "orders"}, "OFFSET": {"value": 0}}`)
	err = New(snap, dial).Validate(p, nil)
	require.NoError(t, err)
}

func TestValidate_GroupByCoverageRejectsUngroupedColumn(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Aggregations().Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": [{"expr": {"col": "orders.status"}}, {"expr": {"col": "orders.total"}}],
		"FROM": {"table": "orders"}, "GROUP_BY": [{"col": "orders.status"}]}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GROUP_BY")
}

func TestValidate_GroupByCoverageAcceptsAggregateAndGroupedColumns(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Aggregations().Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": [{"expr": {"col": "orders.status"}}, {"expr": {"func": "COUNT", "args": [{"col": "orders.id"}]}}],
		"FROM": {"table": "orders"}, "GROUP_BY": [{"col": "orders.status"}]}`)
	require.NoError(t, New(snap, dial).Validate(p, nil))
}

func TestValidate_SetOpArityMismatchRejected(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).SetOperations().Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": [{"expr": {"col": "orders.id"}}], "FROM": {"table": "orders"},
		"SET_OP": {"op": "UNION", "right": {"SELECT": [{"expr": {"col": "orders.id"}}, {"expr": {"col": "orders.status"}}], "FROM": {"table": "orders"}}}}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SET_OP")
}

func TestValidate_SetOpArityMatchAccepted(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).SetOperations().Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": [{"expr": {"col": "orders.id"}}], "FROM": {"table": "orders"},
		"SET_OP": {"op": "UNION", "right": {"SELECT": [{"expr": {"col": "orders.id"}}], "FROM": {"table": "orders"}}}}`)
	require.NoError(t, New(snap, dial).Validate(p, nil))
}

func TestValidate_SubqueryInFromRequiresProfileSupport(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"subquery": {"SELECT": "*", "FROM": {"table": "orders"}}, "alias": "o"}}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
}

func TestValidate_SubqueryInFromWithProfileSupportPasses(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Subqueries().Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"subquery": {"SELECT": "*", "FROM": {"table": "orders"}}, "alias": "o"}}`)
	require.NoError(t, New(snap, dial).Validate(p, nil))
}

func TestValidate_WindowFunctionRequiresProfileSupport(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": [{"expr": {"func": "ROW_NUMBER", "args": []}, "alias": "rn", "over": {}}],
		"FROM": {"table": "orders"}}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
}

func TestValidate_AggregateFunctionNotInAllowlistRejected(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": [{"expr": {"func": "SUM", "args": [{"col": "orders.total"}]}}],
		"FROM": {"table": "orders"}}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
}

func TestValidate_OperatorNotInAllowlistRejected(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"WHERE": {"ILIKE": [{"col": "orders.status"}, {"value": "%open%"}]}}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
}

func TestValidate_CTERequiresSubqueriesInProfile(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Build()
	require.NoError(t, err)

	p := mustParse(t, `{
		"WITH": [{"name": "recent", "plan": {"SELECT": "*", "FROM": {"table": "orders"}}}],
		"SELECT": "*",
		"FROM": {"table": "recent"}
	}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
}

func TestValidate_SetOperationRequiresProfileSupport(t *testing.T) {
	snap := testSnapshot()
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 100).Build()
	require.NoError(t, err)

	p := mustParse(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"SET_OP": {"op": "UNION", "right": {"SELECT": "*", "FROM": {"table": "orders"}}}}`)
	err = New(snap, dial).Validate(p, nil)
	require.Error(t, err)
}
