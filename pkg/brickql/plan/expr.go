// Package plan implements the typed QueryPlan grammar: the operand and
// predicate tagged variants, the clause tree they compose into, and the
// JSON parser that turns an untrusted LLM-emitted document into one.
package plan

// ComparisonOp is one of the binary comparison predicate operators.
type ComparisonOp string

const (
	OpEQ  ComparisonOp = "EQ"
	OpNEQ ComparisonOp = "NEQ"
	OpLT  ComparisonOp = "LT"
	OpLTE ComparisonOp = "LTE"
	OpGT  ComparisonOp = "GT"
	OpGTE ComparisonOp = "GTE"
)

// PatternOp is LIKE or ILIKE.
type PatternOp string

const (
	OpLIKE  PatternOp = "LIKE"
	OpILIKE PatternOp = "ILIKE"
)

// JoinType is the SQL join kind used by a JoinClause.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
)

// SetOpKind is one of UNION / UNION_ALL / INTERSECT / EXCEPT.
type SetOpKind string

const (
	SetOpUnion     SetOpKind = "UNION"
	SetOpUnionAll  SetOpKind = "UNION_ALL"
	SetOpIntersect SetOpKind = "INTERSECT"
	SetOpExcept    SetOpKind = "EXCEPT"
)

// OrderDir is ASC or DESC.
type OrderDir string

const (
	OrderAsc  OrderDir = "ASC"
	OrderDesc OrderDir = "DESC"
)

// Operator classification sets, mirroring the predicate arity table in
// the validator and the dispatch table in the compiler.
var (
	ComparisonOps = map[string]bool{"EQ": true, "NEQ": true, "LT": true, "LTE": true, "GT": true, "GTE": true}
	PatternOps    = map[string]bool{"LIKE": true, "ILIKE": true}
	RangeOps      = map[string]bool{"BETWEEN": true}
	MembershipOps = map[string]bool{"IN": true, "NOT_IN": true}
	NullOps       = map[string]bool{"IS_NULL": true, "IS_NOT_NULL": true}
	ExistsOps     = map[string]bool{"EXISTS": true, "NOT_EXISTS": true}
	LogicalAndOr  = map[string]bool{"AND": true, "OR": true}
	LogicalNot    = map[string]bool{"NOT": true}
)

// AllPredicateOps is the union of every recognised predicate operator key,
// built once at package init so the validator can reject unknown operators
// with a single lookup.
var AllPredicateOps = func() map[string]bool {
	all := map[string]bool{}
	for _, set := range []map[string]bool{
		ComparisonOps, PatternOps, RangeOps, MembershipOps, NullOps, ExistsOps, LogicalAndOr, LogicalNot,
	} {
		for k := range set {
			all[k] = true
		}
	}
	return all
}()

// AggregateFunctions are built-in functions requiring the `aggregations`
// dialect capability regardless of the function allowlist.
var AggregateFunctions = map[string]bool{"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true}

// WindowFunctions are built-in functions requiring the `window_functions`
// dialect capability.
var WindowFunctions = map[string]bool{
	"ROW_NUMBER": true, "RANK": true, "DENSE_RANK": true, "NTILE": true,
	"LAG": true, "LEAD": true, "FIRST_VALUE": true, "LAST_VALUE": true, "NTH_VALUE": true,
}
