package validate

import (
	"fmt"

	"github.com/brickql/brickql-go/pkg/brickql/brickqlerr"
	"github.com/brickql/brickql-go/pkg/brickql/plan"
)

// DialectValidator checks plan features against the dialect's
// AllowedFeatures: CTEs, set operations, derived tables, join depth, and
// window functions.
type DialectValidator struct {
	ctx *Context
}

func newDialectValidator(ctx *Context) *DialectValidator {
	return &DialectValidator{ctx: ctx}
}

func dialectViolation(feature, message string) error {
	return brickqlerr.NewValidationError("validate.dialect_violation", message, map[string]any{"feature": feature})
}

// ValidateFeatureFlags raises on the first disabled top-level feature used
// by plan.
func (v *DialectValidator) ValidateFeatureFlags(p *plan.QueryPlan) error {
	allowed := v.ctx.Dialect.Allowed

	if len(p.Join) > 0 && allowed.MaxJoinDepth == 0 {
		return dialectViolation("join", "JOINs are not allowed (max_join_depth=0)")
	}
	if len(p.With) > 0 && !allowed.AllowCTE {
		return dialectViolation("allow_cte", "CTE (WITH) is not enabled in the dialect profile")
	}
	if p.SetOp != nil && !allowed.AllowSetOperations {
		return dialectViolation("allow_set_operations", "set operations (UNION/INTERSECT/EXCEPT) are not enabled")
	}
	if p.From != nil && p.From.Subquery != nil && !allowed.AllowSubqueries {
		return dialectViolation("allow_subqueries", "derived tables (subqueries in FROM) are not enabled")
	}
	return nil
}

// ValidateJoinDepth raises if the number of JOINs exceeds MaxJoinDepth.
func (v *DialectValidator) ValidateJoinDepth(p *plan.QueryPlan) error {
	if len(p.Join) == 0 {
		return nil
	}
	allowed := v.ctx.Dialect.Allowed
	if len(p.Join) > allowed.MaxJoinDepth {
		return dialectViolation("max_join_depth", fmt.Sprintf("query uses %d JOIN(s) but max_join_depth=%d", len(p.Join), allowed.MaxJoinDepth))
	}
	return nil
}

// ValidateWindowFunctions raises if any SELECT item uses OVER without
// window_functions enabled.
func (v *DialectValidator) ValidateWindowFunctions(p *plan.QueryPlan) error {
	if len(p.Select) == 0 || v.ctx.Dialect.Allowed.AllowWindowFunctions {
		return nil
	}
	for _, item := range p.Select {
		if item.Over != nil {
			return dialectViolation("allow_window_functions", "window functions (OVER) are not enabled")
		}
	}
	return nil
}
