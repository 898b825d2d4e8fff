package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickql/brickql-go/pkg/brickql/dialect"
	"github.com/brickql/brickql-go/pkg/brickql/plan"
	"github.com/brickql/brickql-go/pkg/brickql/schema"
)

func policySnapshot() *schema.Snapshot {
	return &schema.Snapshot{
		Tables: []schema.TableInfo{
			{Name: "orders", Columns: []schema.ColumnInfo{
				{Name: "id", Type: "integer"},
				{Name: "tenant_id", Type: "integer"},
				{Name: "customer_id", Type: "integer"},
				{Name: "status", Type: "text"},
				{Name: "ssn", Type: "text"},
			}},
			{Name: "customers", Columns: []schema.ColumnInfo{
				{Name: "id", Type: "integer"},
				{Name: "name", Type: "text"},
			}},
		},
		Relationships: []schema.RelationshipInfo{
			{Key: "orders_to_customers", From: "orders", FromCol: "customer_id", To: "customers", ToCol: "id"},
		},
	}
}

func policyDialect(t *testing.T, snap *schema.Snapshot) *dialect.Profile {
	dial, err := dialect.Builder(snap.TableNames(), dialect.TargetPostgres, 1000).Joins(4).Build()
	require.NoError(t, err)
	return dial
}

func mustParsePlan(t *testing.T, data string) *plan.QueryPlan {
	p, err := plan.Parse([]byte(data))
	require.NoError(t, err)
	return p
}

func TestEngine_Apply_NoPolicyIsNoop(t *testing.T) {
	snap := policySnapshot()
	p := mustParsePlan(t, `{"SELECT": "*", "FROM": {"table": "orders"}}`)
	out, err := New(&Config{}, snap, policyDialect(t, snap)).Apply(p)
	require.NoError(t, err)
	assert.Nil(t, out.Limit)
}

func TestEngine_Apply_DisallowedTableRejected(t *testing.T) {
	snap := policySnapshot()
	p := mustParsePlan(t, `{"SELECT": "*", "FROM": {"table": "orders"}}`)
	cfg := &Config{AllowedTables: []string{"customers"}}
	_, err := New(cfg, snap, policyDialect(t, snap)).Apply(p)
	require.Error(t, err)
}

func TestEngine_Apply_GlobalDeniedColumnRejected(t *testing.T) {
	snap := policySnapshot()
	p := mustParsePlan(t, `{"SELECT": [{"expr": {"col": "orders.ssn"}}], "FROM": {"table": "orders"}}`)
	cfg := &Config{DeniedColumns: []string{"ssn"}}
	_, err := New(cfg, snap, policyDialect(t, snap)).Apply(p)
	require.Error(t, err)
}

func TestEngine_Apply_PerTableAllowlistRejectsOutsideColumns(t *testing.T) {
	snap := policySnapshot()
	p := mustParsePlan(t, `{"SELECT": [{"expr": {"col": "orders.status"}}], "FROM": {"table": "orders"}}`)
	cfg := &Config{Tables: map[string]TablePolicy{
		"orders": {AllowedColumns: []string{"id"}},
	}}
	_, err := New(cfg, snap, policyDialect(t, snap)).Apply(p)
	require.Error(t, err)
}

func TestEngine_Apply_InjectsMissingParamBoundPredicate(t *testing.T) {
	snap := policySnapshot()
	p := mustParsePlan(t, `{"SELECT": "*", "FROM": {"table": "orders"}}`)
	cfg := &Config{
		InjectMissingParams: true,
		Tables: map[string]TablePolicy{
			"orders": {ParamBoundColumns: map[string]string{"tenant_id": "TENANT"}},
		},
	}
	out, err := New(cfg, snap, policyDialect(t, snap)).Apply(p)
	require.NoError(t, err)
	where, ok := out.Where.(plan.ComparisonPredicate)
	require.True(t, ok)
	assert.Equal(t, plan.OpEQ, where.Op)
	left, ok := where.Left.(plan.ColumnOperand)
	require.True(t, ok)
	assert.Equal(t, "orders.tenant_id", left.Col)
}

func TestEngine_Apply_MissingParamRejectedWhenInjectionDisabled(t *testing.T) {
	snap := policySnapshot()
	p := mustParsePlan(t, `{"SELECT": "*", "FROM": {"table": "orders"}}`)
	cfg := &Config{
		InjectMissingParams: false,
		Tables: map[string]TablePolicy{
			"orders": {ParamBoundColumns: map[string]string{"tenant_id": "TENANT"}},
		},
	}
	_, err := New(cfg, snap, policyDialect(t, snap)).Apply(p)
	require.Error(t, err)
}

func TestEngine_Apply_ExistingParamPredicateSatisfiesRequirement(t *testing.T) {
	snap := policySnapshot()
	p := mustParsePlan(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"WHERE": {"EQ": [{"col": "orders.tenant_id"}, {"param": "TENANT"}]}}`)
	cfg := &Config{
		Tables: map[string]TablePolicy{
			"orders": {ParamBoundColumns: map[string]string{"tenant_id": "TENANT"}},
		},
	}
	out, err := New(cfg, snap, policyDialect(t, snap)).Apply(p)
	require.NoError(t, err)
	assert.Equal(t, p.Where, out.Where)
}

func TestEngine_Apply_ParamBoundInsideOrIsBypass(t *testing.T) {
	snap := policySnapshot()
	p := mustParsePlan(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"WHERE": {"OR": [
			{"EQ": [{"col": "orders.tenant_id"}, {"param": "TENANT"}]},
			{"EQ": [{"col": "orders.status"}, {"value": "open"}]}
		]}}`)
	cfg := &Config{
		Tables: map[string]TablePolicy{
			"orders": {ParamBoundColumns: map[string]string{"tenant_id": "TENANT"}},
		},
	}
	_, err := New(cfg, snap, policyDialect(t, snap)).Apply(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OR")
}

func TestEngine_Apply_ParamBoundInEveryOrBranchIsAccepted(t *testing.T) {
	snap := policySnapshot()
	p := mustParsePlan(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"WHERE": {"OR": [
			{"AND": [{"EQ": [{"col": "orders.tenant_id"}, {"param": "TENANT"}]}, {"EQ": [{"col": "orders.status"}, {"value": "open"}]}]},
			{"AND": [{"EQ": [{"col": "orders.tenant_id"}, {"param": "TENANT"}]}, {"EQ": [{"col": "orders.status"}, {"value": "closed"}]}]}
		]}}`)
	cfg := &Config{
		Tables: map[string]TablePolicy{
			"orders": {ParamBoundColumns: map[string]string{"tenant_id": "TENANT"}},
		},
	}
	out, err := New(cfg, snap, policyDialect(t, snap)).Apply(p)
	require.NoError(t, err)
	assert.Equal(t, p.Where, out.Where)
}

func TestEngine_Apply_DefaultLimitInjectedWhenAbsent(t *testing.T) {
	snap := policySnapshot()
	p := mustParsePlan(t, `{"SELECT": "*", "FROM": {"table": "orders"}}`)
	cfg := &Config{DefaultLimit: 25}
	out, err := New(cfg, snap, policyDialect(t, snap)).Apply(p)
	require.NoError(t, err)
	require.NotNil(t, out.Limit)
	require.NotNil(t, out.Limit.Value)
	assert.Equal(t, 25, *out.Limit.Value)
}

func TestEngine_Apply_ExistingLimitNotOverridden(t *testing.T) {
	snap := policySnapshot()
	p := mustParsePlan(t, `{"SELECT": "*", "FROM": {"table": "orders"}, "LIMIT": {"value": 5}}`)
	cfg := &Config{DefaultLimit: 25}
	out, err := New(cfg, snap, policyDialect(t, snap)).Apply(p)
	require.NoError(t, err)
	assert.Equal(t, 5, *out.Limit.Value)
}

func TestEngine_Apply_RecursesIntoFromSubquery(t *testing.T) {
	snap := policySnapshot()
	p := mustParsePlan(t, `{"SELECT": "*",
		"FROM": {"subquery": {"SELECT": "*", "FROM": {"table": "orders"}}, "alias": "o"}}`)
	cfg := &Config{DefaultLimit: 10}
	out, err := New(cfg, snap, policyDialect(t, snap)).Apply(p)
	require.NoError(t, err)
	require.NotNil(t, out.From.Subquery.Limit)
	assert.Equal(t, 10, *out.From.Subquery.Limit.Value)
}

func TestEngine_Apply_CrossJoinTableCountsTowardAllowlist(t *testing.T) {
	snap := policySnapshot()
	snap.Tables = append(snap.Tables, schema.TableInfo{Name: "flags"})
	p := mustParsePlan(t, `{"SELECT": "*", "FROM": {"table": "orders"},
		"JOIN": [{"type": "CROSS", "table": "flags"}]}`)
	cfg := &Config{AllowedTables: []string{"orders"}}
	_, err := New(cfg, snap, policyDialect(t, snap)).Apply(p)
	require.Error(t, err)
}

func TestScanRuntimeParams_FlagsSuspiciousString(t *testing.T) {
	flagged := ScanRuntimeParams(map[string]any{
		"safe":    "hello",
		"bad":     "1' OR '1'='1",
		"numeric": 42,
	})
	require.Len(t, flagged, 1)
	assert.Equal(t, "bad", flagged[0].ParamName)
}

func TestScanRuntimeParams_EmptyWhenClean(t *testing.T) {
	flagged := ScanRuntimeParams(map[string]any{"tenant": "acme-corp", "limit": 5})
	assert.Empty(t, flagged)
}

func TestConfig_DeniedColumnsFor_MergesGlobalAndPerTable(t *testing.T) {
	cfg := &Config{
		DeniedColumns: []string{"ssn"},
		Tables: map[string]TablePolicy{
			"orders": {DeniedColumns: []string{"internal_notes"}},
		},
	}
	merged := cfg.DeniedColumnsFor("orders")
	assert.ElementsMatch(t, []string{"ssn", "internal_notes"}, merged)
	assert.Equal(t, []string{"ssn"}, cfg.DeniedColumnsFor("customers"))
}
