// Package dialect defines the DialectProfile capability allowlist: which
// tables, operators, functions, and structural features (joins,
// subqueries, CTEs, set operations, window functions) a given request may
// use. It is built fluently and validated at Build() time so an
// inconsistent profile (e.g. window functions without aggregations) is
// rejected before it can silently reject every query that relies on it.
package dialect

import (
	"github.com/brickql/brickql-go/pkg/brickql/brickqlerr"
	"github.com/brickql/brickql-go/pkg/brickql/plan"
)

// Target is a supported compiler backend.
type Target string

const (
	TargetPostgres Target = "postgres"
	TargetSQLite   Target = "sqlite"
	TargetMySQL    Target = "mysql"
)

var baseOperators = []string{
	"EQ", "NEQ", "GT", "GTE", "LT", "LTE",
	"BETWEEN", "IN", "NOT_IN", "IS_NULL", "IS_NOT_NULL", "LIKE",
	"AND", "OR", "NOT",
}

var joinExtraOperators = []string{"ILIKE"}
var subqueryExtraOperators = []string{"EXISTS", "NOT_EXISTS"}

// AllowedFeatures is the capability allowlist enforced by the validator
// and consulted by the compiler.
type AllowedFeatures struct {
	Tables               []string
	Operators            []string
	Functions            []string
	AllowSubqueries      bool
	AllowCTE             bool
	AllowWindowFunctions bool
	AllowSetOperations   bool
	MaxJoinDepth         int
	MaxLimit             int
}

func (f AllowedFeatures) hasTable(name string) bool {
	for _, t := range f.Tables {
		if t == name {
			return true
		}
	}
	return false
}

// HasOperator reports whether op is in the allowlist.
func (f AllowedFeatures) HasOperator(op string) bool {
	for _, o := range f.Operators {
		if o == op {
			return true
		}
	}
	return false
}

// HasFunction reports whether fn is in the allowlist.
func (f AllowedFeatures) HasFunction(fn string) bool {
	for _, x := range f.Functions {
		if x == fn {
			return true
		}
	}
	return false
}

// HasTable reports whether table is allowlisted.
func (f AllowedFeatures) HasTable(name string) bool {
	return f.hasTable(name)
}

// Profile combines the backend target with the feature allowlist. Always
// created via Builder — never constructed directly.
type Profile struct {
	Target  Target
	Allowed AllowedFeatures
}

// Builder returns a fresh ProfileBuilder. The base profile rejects joins,
// subqueries, CTEs, set operations, window functions and every function
// call; chain feature methods to unlock them. ORDER BY, OFFSET, DISTINCT,
// GROUP BY, HAVING and CASE are not gated by any feature flag.
func Builder(tables []string, target Target, maxLimit int) *ProfileBuilder {
	return &ProfileBuilder{
		tables:    tables,
		target:    target,
		maxLimit:  maxLimit,
		operators: append([]string{}, baseOperators...),
	}
}

// ProfileBuilder composes a Profile one independent feature group at a
// time. Methods may be called in any order and combined freely.
type ProfileBuilder struct {
	tables               []string
	target               Target
	maxLimit             int
	maxJoinDepth         int
	operators            []string
	functions            []string
	allowSubqueries      bool
	allowCTE             bool
	allowWindowFunctions bool
	allowSetOperations   bool
}

func appendMissing(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, x := range list {
			if x == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}

// Joins enables JOIN clauses (inner/left/right/full/cross) up to
// maxJoinDepth, and the ILIKE operator. ORDER BY, OFFSET and DISTINCT are
// accepted with or without it.
func (b *ProfileBuilder) Joins(maxJoinDepth int) *ProfileBuilder {
	b.maxJoinDepth = maxJoinDepth
	b.operators = appendMissing(b.operators, joinExtraOperators...)
	return b
}

// Aggregations adds COUNT/SUM/AVG/MIN/MAX to the allowed functions. GROUP
// BY, HAVING and CASE are accepted with or without it.
func (b *ProfileBuilder) Aggregations() *ProfileBuilder {
	b.functions = appendMissing(b.functions, "COUNT", "SUM", "AVG", "MIN", "MAX")
	return b
}

// Subqueries enables correlated and uncorrelated subqueries: derived
// tables, EXISTS/NOT_EXISTS predicates, and IN subqueries.
func (b *ProfileBuilder) Subqueries() *ProfileBuilder {
	b.allowSubqueries = true
	b.operators = appendMissing(b.operators, subqueryExtraOperators...)
	return b
}

// CTEs enables WITH / WITH RECURSIVE.
func (b *ProfileBuilder) CTEs() *ProfileBuilder {
	b.allowCTE = true
	return b
}

// SetOperations enables UNION, UNION ALL, INTERSECT, EXCEPT.
func (b *ProfileBuilder) SetOperations() *ProfileBuilder {
	b.allowSetOperations = true
	return b
}

// WindowFunctions enables ROW_NUMBER/RANK/DENSE_RANK/NTILE/LAG/LEAD/
// FIRST_VALUE/LAST_VALUE/NTH_VALUE and OVER/PARTITION BY.
func (b *ProfileBuilder) WindowFunctions() *ProfileBuilder {
	b.allowWindowFunctions = true
	for fn := range plan.WindowFunctions {
		b.functions = appendMissing(b.functions, fn)
	}
	return b
}

// Build validates the composed configuration and returns the Profile.
// Returns a ProfileConfigError when a feature dependency is unmet.
func (b *ProfileBuilder) Build() (*Profile, error) {
	if len(b.tables) == 0 {
		return nil, brickqlerr.NewProfileConfigError(
			"profile.no_tables",
			"no tables specified: pass at least one table name to dialect.Builder",
			map[string]any{"missing": []string{"tables"}},
		)
	}

	hasAggregations := false
	for _, fn := range b.functions {
		if plan.AggregateFunctions[fn] {
			hasAggregations = true
			break
		}
	}
	if b.allowWindowFunctions && !hasAggregations {
		return nil, brickqlerr.NewProfileConfigError(
			"profile.window_requires_aggregations",
			"WindowFunctions() requires Aggregations(): aggregate window functions share names with regular aggregates and are unusable without the allowlist Aggregations() adds",
			map[string]any{"missing": []string{"aggregations"}},
		)
	}

	if b.allowCTE && !b.allowSubqueries {
		return nil, brickqlerr.NewProfileConfigError(
			"profile.ctes_require_subqueries",
			"CTEs() requires Subqueries(): CTE bodies can contain correlated subqueries and derived tables, which are rejected without Subqueries()",
			map[string]any{"missing": []string{"subqueries"}},
		)
	}

	return &Profile{
		Target: b.target,
		Allowed: AllowedFeatures{
			Tables:               b.tables,
			Operators:            b.operators,
			Functions:            b.functions,
			AllowSubqueries:      b.allowSubqueries,
			AllowCTE:             b.allowCTE,
			AllowWindowFunctions: b.allowWindowFunctions,
			AllowSetOperations:   b.allowSetOperations,
			MaxJoinDepth:         b.maxJoinDepth,
			MaxLimit:             b.maxLimit,
		},
	}, nil
}
