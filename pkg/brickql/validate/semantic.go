package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brickql/brickql-go/pkg/brickql/brickqlerr"
	"github.com/brickql/brickql-go/pkg/brickql/plan"
)

// SemanticValidator checks rules that are neither purely structural
// (schema existence) nor purely dialect-flag based: HAVING requires
// GROUP_BY, LIMIT must be a non-negative integer within the dialect's
// maximum.
type SemanticValidator struct {
	ctx *Context
}

func newSemanticValidator(ctx *Context) *SemanticValidator {
	return &SemanticValidator{ctx: ctx}
}

// ValidateHaving raises if HAVING appears without a GROUP_BY clause.
func (v *SemanticValidator) ValidateHaving(p *plan.QueryPlan) error {
	if p.Having != nil && len(p.GroupBy) == 0 {
		return brickqlerr.NewValidationError("validate.having_without_group_by", "HAVING requires GROUP_BY", nil)
	}
	return nil
}

// ValidateLimit raises if a literal LIMIT value is negative or exceeds
// the dialect's MaxLimit. Zero is a valid LIMIT — it's an unusual but
// legal request for no rows.
func (v *SemanticValidator) ValidateLimit(p *plan.QueryPlan) error {
	if p.Limit == nil || p.Limit.Value == nil {
		return nil
	}
	value := *p.Limit.Value
	maxLimit := v.ctx.Dialect.Allowed.MaxLimit
	if value < 0 {
		return brickqlerr.NewValidationError("validate.limit_not_positive", "LIMIT value must not be negative",
			map[string]any{"limit": value})
	}
	if maxLimit > 0 && value > maxLimit {
		return brickqlerr.NewValidationError("validate.limit_exceeds_max", fmt.Sprintf("LIMIT %d exceeds max_limit=%d", value, maxLimit),
			map[string]any{"limit": value, "max_limit": maxLimit})
	}
	return nil
}

// ValidateOffset raises if a literal OFFSET value is negative. OFFSET has
// no dialect-level maximum, so there's nothing to check beyond that.
func (v *SemanticValidator) ValidateOffset(p *plan.QueryPlan) error {
	if p.Offset == nil || p.Offset.Value == nil {
		return nil
	}
	if value := *p.Offset.Value; value < 0 {
		return brickqlerr.NewValidationError("validate.offset_not_positive", "OFFSET value must not be negative",
			map[string]any{"offset": value})
	}
	return nil
}

// ValidateSetOpArity raises if a SET_OP's two branches project a different
// number of SELECT columns. Either branch selecting `*` makes its arity
// unknowable from the plan alone, so that combination is left for the
// compiler/database to reject instead.
func (v *SemanticValidator) ValidateSetOpArity(p *plan.QueryPlan) error {
	if p.SetOp == nil || p.SelectStar || p.SetOp.Right.SelectStar {
		return nil
	}
	left, right := len(p.Select), len(p.SetOp.Right.Select)
	if left != right {
		return brickqlerr.NewValidationError("validate.set_op_column_mismatch",
			fmt.Sprintf("SET_OP branches select %d and %d columns", left, right),
			map[string]any{"left_count": left, "right_count": right})
	}
	return nil
}

// ValidateGroupByCoverage raises if GROUP_BY is present and a SELECT or
// ORDER_BY operand that isn't an aggregate function call doesn't match any
// GROUP_BY entry, by structural equality of their encoded form.
func (v *SemanticValidator) ValidateGroupByCoverage(p *plan.QueryPlan) error {
	if len(p.GroupBy) == 0 {
		return nil
	}
	grouped := make(map[string]bool, len(p.GroupBy))
	for _, g := range p.GroupBy {
		key, err := operandKey(g)
		if err != nil {
			return err
		}
		grouped[key] = true
	}
	for i, item := range p.Select {
		if isAggregateOperand(item.Expr) {
			continue
		}
		key, err := operandKey(item.Expr)
		if err != nil {
			return err
		}
		if !grouped[key] {
			return brickqlerr.NewValidationError("validate.group_by_coverage",
				"SELECT item is neither aggregated nor present in GROUP_BY",
				map[string]any{"path": selectPath(i)})
		}
	}
	for i, o := range p.OrderBy {
		if isAggregateOperand(o.Expr) {
			continue
		}
		key, err := operandKey(o.Expr)
		if err != nil {
			return err
		}
		if !grouped[key] {
			return brickqlerr.NewValidationError("validate.group_by_coverage",
				"ORDER_BY item is neither aggregated nor present in GROUP_BY",
				map[string]any{"path": orderByPath(i)})
		}
	}
	return nil
}

func isAggregateOperand(op plan.Operand) bool {
	f, ok := op.(plan.FuncOperand)
	return ok && plan.AggregateFunctions[strings.ToUpper(f.Func)]
}

func operandKey(op plan.Operand) (string, error) {
	enc, err := plan.EncodeOperand(op)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(enc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
