package validate

import (
	"fmt"

	"github.com/brickql/brickql-go/pkg/brickql/brickqlerr"
	"github.com/brickql/brickql-go/pkg/brickql/plan"
)

// OperandValidator checks the structure of a single Operand: column
// references resolve to a real (or CTE-scoped) table.column, function
// calls honour the allowlist/aggregate/window rules, and CASE arms
// recurse into both the PredicateValidator and itself.
//
// OperandValidator and PredicateValidator are mutually recursive (a CASE
// operand's WHEN condition is a predicate; a predicate's arguments are
// operands). Both are constructed together by newValidatorPair, which
// wires each one's pointer to the other after both structs exist.
type OperandValidator struct {
	ctx      *Context
	cteNames map[string]bool
	pred     *PredicateValidator
}

// PredicateValidator checks the shape of a single-key predicate object:
// operator allowlist membership and per-operator arity. Subqueries nested
// in IN/EXISTS predicates are handed to validateSubquery, which the owning
// PlanValidator wires to its own sub-validation (so a correlated subquery
// is checked against the same schema and dialect as its parent).
type PredicateValidator struct {
	ctx              *Context
	op               *OperandValidator
	validateSubquery func(*plan.QueryPlan) error
}

// newValidatorPair builds an OperandValidator and PredicateValidator that
// reference each other, resolving the circular dependency without either
// type needing a forward-declared stub.
func newValidatorPair(ctx *Context, cteNames map[string]bool) (*OperandValidator, *PredicateValidator) {
	op := &OperandValidator{ctx: ctx, cteNames: cteNames}
	pred := &PredicateValidator{ctx: ctx, op: op}
	op.pred = pred
	return op, pred
}

// SetCTENames replaces the set of in-scope CTE/derived-table names.
func (v *OperandValidator) SetCTENames(names map[string]bool) {
	v.cteNames = names
}

// Validate checks a single Operand.
func (v *OperandValidator) Validate(path string, op plan.Operand) error {
	switch o := op.(type) {
	case plan.ColumnOperand:
		return v.validateColumnRef(path, o.Col)
	case plan.ValueOperand:
		return nil
	case plan.ParamOperand:
		return nil
	case plan.FuncOperand:
		return v.validateFunc(path, o)
	case plan.CaseOperand:
		return v.validateCase(path, o)
	default:
		return brickqlerr.NewValidationError("validate.unknown_operand", fmt.Sprintf("unrecognized operand type %T", op), map[string]any{"path": path})
	}
}

func (v *OperandValidator) validateColumnRef(path, col string) error {
	table, column, ok := splitColumnRef(col)
	if !ok {
		// A bare column name with no table qualifier is accepted as is;
		// it is not resolved against any table here or elsewhere.
		return nil
	}
	if v.cteNames[table] {
		return nil
	}
	t := v.ctx.Snapshot.Table(table)
	if t == nil {
		return brickqlerr.NewValidationError("validate.unknown_table",
			"table '"+table+"' does not exist in the schema snapshot",
			map[string]any{"path": path, "table": table, "allowed_tables": v.ctx.Snapshot.TableNames()})
	}
	if !t.HasColumn(column) {
		return brickqlerr.NewValidationError("validate.unknown_column",
			"column '"+column+"' does not exist on table '"+table+"'",
			map[string]any{"path": path, "table": table, "column": column, "allowed_columns": t.ColumnNames()})
	}
	return nil
}

func splitColumnRef(col string) (table, column string, ok bool) {
	for i := 0; i < len(col); i++ {
		if col[i] == '.' {
			return col[:i], col[i+1:], true
		}
	}
	return "", col, false
}

func (v *OperandValidator) validateFunc(path string, fn plan.FuncOperand) error {
	allowed := v.ctx.Dialect.Allowed
	isAggregate := plan.AggregateFunctions[fn.Func]
	isWindow := plan.WindowFunctions[fn.Func]
	switch {
	case isAggregate && !allowed.HasFunction(fn.Func):
		return brickqlerr.NewValidationError("validate.function_not_allowed",
			"aggregate function '"+fn.Func+"' is not in the dialect's function allowlist",
			map[string]any{"path": path, "func": fn.Func})
	case isWindow && !allowed.AllowWindowFunctions:
		return dialectViolation("allow_window_functions", "window function '"+fn.Func+"' is not enabled")
	case !isAggregate && !isWindow && !allowed.HasFunction(fn.Func):
		return brickqlerr.NewValidationError("validate.function_not_allowed",
			"function '"+fn.Func+"' is not in the dialect's function allowlist",
			map[string]any{"path": path, "func": fn.Func})
	}
	for i, arg := range fn.Args {
		if err := v.Validate(fmt.Sprintf("%s.args[%d]", path, i), arg); err != nil {
			return err
		}
	}
	return nil
}

func (v *OperandValidator) validateCase(path string, c plan.CaseOperand) error {
	for i, when := range c.When {
		if err := v.pred.Validate(when.If); err != nil {
			return err
		}
		if err := v.Validate(fmt.Sprintf("%s.when[%d].then", path, i), when.Then); err != nil {
			return err
		}
	}
	if c.Else != nil {
		if err := v.Validate(path+".else", c.Else); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a single Predicate, recursing into its operand and
// sub-predicate arguments.
func (v *PredicateValidator) Validate(p plan.Predicate) error {
	switch pred := p.(type) {
	case plan.ComparisonPredicate:
		if err := v.assertOperatorAllowed(string(pred.Op)); err != nil {
			return err
		}
		return v.validateOperands(pred.Left, pred.Right)
	case plan.PatternPredicate:
		if err := v.assertOperatorAllowed(string(pred.Op)); err != nil {
			return err
		}
		return v.validateOperands(pred.Left, pred.Right)
	case plan.NullPredicate:
		op := "IS_NULL"
		if pred.Negated {
			op = "IS_NOT_NULL"
		}
		if err := v.assertOperatorAllowed(op); err != nil {
			return err
		}
		return v.op.Validate("$", pred.Operand)
	case plan.BetweenPredicate:
		if err := v.assertOperatorAllowed("BETWEEN"); err != nil {
			return err
		}
		return v.validateOperands(pred.Value, pred.Low, pred.High)
	case plan.InPredicate:
		op := "IN"
		if pred.Negated {
			op = "NOT_IN"
		}
		if err := v.assertOperatorAllowed(op); err != nil {
			return err
		}
		if err := v.op.Validate("$", pred.Left); err != nil {
			return err
		}
		if pred.Subquery != nil {
			if !v.ctx.Dialect.Allowed.AllowSubqueries {
				return dialectViolation("allow_subqueries", "subquery in IN/NOT_IN is not enabled")
			}
			if v.validateSubquery != nil {
				return v.validateSubquery(pred.Subquery)
			}
			return nil
		}
		return v.validateOperands(pred.Values...)
	case plan.ExistsPredicate:
		op := "EXISTS"
		if pred.Negated {
			op = "NOT_EXISTS"
		}
		if err := v.assertOperatorAllowed(op); err != nil {
			return err
		}
		if !v.ctx.Dialect.Allowed.AllowSubqueries {
			return dialectViolation("allow_subqueries", "EXISTS/NOT_EXISTS is not enabled")
		}
		if v.validateSubquery != nil {
			return v.validateSubquery(pred.Subquery)
		}
		return nil
	case plan.LogicalPredicate:
		if err := v.assertOperatorAllowed(pred.Op); err != nil {
			return err
		}
		for _, sub := range pred.Preds {
			if err := v.Validate(sub); err != nil {
				return err
			}
		}
		return nil
	case plan.NotPredicate:
		if err := v.assertOperatorAllowed("NOT"); err != nil {
			return err
		}
		return v.Validate(pred.Pred)
	default:
		return brickqlerr.NewValidationError("validate.unknown_predicate", fmt.Sprintf("unrecognized predicate type %T", p), nil)
	}
}

func (v *PredicateValidator) validateOperands(ops ...plan.Operand) error {
	for _, op := range ops {
		if err := v.op.Validate("$", op); err != nil {
			return err
		}
	}
	return nil
}

func (v *PredicateValidator) assertOperatorAllowed(op string) error {
	if !v.ctx.Dialect.Allowed.HasOperator(op) {
		return brickqlerr.NewValidationError("validate.operator_not_allowed",
			"operator '"+op+"' is not in the dialect's operator allowlist",
			map[string]any{"operator": op})
	}
	return nil
}
