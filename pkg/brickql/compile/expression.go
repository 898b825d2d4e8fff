package compile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brickql/brickql-go/pkg/brickql/brickqlerr"
	"github.com/brickql/brickql-go/pkg/brickql/plan"
)

// RuntimeContext accumulates literal parameter values and referenced
// runtime parameter names during a single compilation run. One instance
// is threaded through every sub-builder and every nested sub-plan (CTEs,
// SET_OP branches, FROM subqueries, correlated IN/EXISTS subqueries), so
// placeholder names stay globally unique across the whole statement.
type RuntimeContext struct {
	Params   map[string]any
	required map[string]bool
	counter  int
}

// NewRuntimeContext returns an empty RuntimeContext.
func NewRuntimeContext() *RuntimeContext {
	return &RuntimeContext{Params: map[string]any{}, required: map[string]bool{}}
}

// AddValue stores a literal value and returns its freshly assigned,
// globally unique placeholder name.
func (r *RuntimeContext) AddValue(value any) string {
	name := fmt.Sprintf("param_%d", r.counter)
	r.counter++
	r.Params[name] = value
	return name
}

// RequireParam records that the statement references a caller-supplied
// runtime parameter by name, so MergeRuntimeParams can later verify it was
// actually supplied.
func (r *RuntimeContext) RequireParam(name string) {
	r.required[name] = true
}

// RequiredParams returns the sorted list of distinct runtime parameter
// names referenced anywhere in the statement.
func (r *RuntimeContext) RequiredParams() []string {
	out := make([]string, 0, len(r.required))
	for name := range r.required {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// Operand builder
// ---------------------------------------------------------------------------

// OperandBuilder compiles a typed Operand node to SQL.
//
// OperandBuilder and PredicateBuilder are mutually recursive — a CASE
// operand's WHEN condition is a predicate, and a predicate's arguments are
// operands — so newBuilderPair constructs both and wires each one's
// pointer to the other.
type OperandBuilder struct {
	ctx     *Context
	runtime *RuntimeContext
	pred    *PredicateBuilder
}

// PredicateBuilder compiles a typed Predicate node to SQL by dispatching
// through DefaultOperatorRegistry. buildSubquery is injected by QueryBuilder
// after construction: it compiles a nested QueryPlan using the same shared
// RuntimeContext as the outer query, so IN/EXISTS subqueries never collide
// on parameter names with the statement around them.
type PredicateBuilder struct {
	ctx           *Context
	runtime       *RuntimeContext
	op            *OperandBuilder
	buildSubquery func(*plan.QueryPlan) (string, error)
	registry      *OperatorRegistry
}

// newBuilderPair builds an OperandBuilder and PredicateBuilder that
// reference each other, resolving the circular dependency without either
// type needing a forward-declared stub.
func newBuilderPair(ctx *Context, runtime *RuntimeContext) (*OperandBuilder, *PredicateBuilder) {
	op := &OperandBuilder{ctx: ctx, runtime: runtime}
	pred := &PredicateBuilder{ctx: ctx, runtime: runtime, op: op, registry: DefaultOperatorRegistry}
	op.pred = pred
	return op, pred
}

// Build compiles a single Operand to a SQL fragment.
func (b *OperandBuilder) Build(op plan.Operand) (string, error) {
	switch o := op.(type) {
	case plan.ColumnOperand:
		return b.buildColRef(o.Col), nil
	case plan.ValueOperand:
		name := b.runtime.AddValue(o.Value)
		return b.ctx.Compiler.ParamPlaceholder(name), nil
	case plan.ParamOperand:
		b.runtime.RequireParam(o.Param)
		return b.ctx.Compiler.ParamPlaceholder(o.Param), nil
	case plan.FuncOperand:
		return b.buildFunc(o)
	case plan.CaseOperand:
		return b.buildCase(o)
	default:
		return "", brickqlerr.NewCompilationError("compile.unknown_operand",
			fmt.Sprintf("unknown operand type %T", op), nil)
	}
}

func (b *OperandBuilder) buildColRef(col string) string {
	quote := b.ctx.Compiler.QuoteIdentifier
	if i := strings.IndexByte(col, '.'); i >= 0 {
		return quote(col[:i]) + "." + quote(col[i+1:])
	}
	return quote(col)
}

func (b *OperandBuilder) buildFunc(fn plan.FuncOperand) (string, error) {
	return b.ctx.Compiler.BuildFuncCall(fn.Func, fn.Args, b.Build)
}

func (b *OperandBuilder) buildCase(c plan.CaseOperand) (string, error) {
	parts := []string{"CASE"}
	for _, when := range c.When {
		cond, err := b.pred.Build(when.If)
		if err != nil {
			return "", err
		}
		then, err := b.Build(when.Then)
		if err != nil {
			return "", err
		}
		parts = append(parts, "WHEN "+cond+" THEN "+then)
	}
	if c.Else != nil {
		elseSQL, err := b.Build(c.Else)
		if err != nil {
			return "", err
		}
		parts = append(parts, "ELSE "+elseSQL)
	}
	parts = append(parts, "END")
	return strings.Join(parts, " "), nil
}

// ---------------------------------------------------------------------------
// Predicate builder
// ---------------------------------------------------------------------------

// Build compiles a single Predicate to a SQL fragment by looking up its
// operator key in the registry and handing off to the registered handler.
func (pb *PredicateBuilder) Build(pred plan.Predicate) (string, error) {
	key := predicateOpKey(pred)
	handler, ok := pb.registry.Get(key)
	if !ok {
		return "", brickqlerr.NewCompilationError("compile.unknown_operator",
			fmt.Sprintf("no registered SQL rendering handler for operator %q", key),
			map[string]any{"operator": key})
	}
	return handler(pb, pred)
}

// predicateOpKey returns the canonical operator key for a concrete
// Predicate value — the same keys used by the parser and validator.
func predicateOpKey(p plan.Predicate) string {
	switch pr := p.(type) {
	case plan.ComparisonPredicate:
		return string(pr.Op)
	case plan.PatternPredicate:
		return string(pr.Op)
	case plan.NullPredicate:
		if pr.Negated {
			return "IS_NOT_NULL"
		}
		return "IS_NULL"
	case plan.BetweenPredicate:
		return "BETWEEN"
	case plan.InPredicate:
		if pr.Negated {
			return "NOT_IN"
		}
		return "IN"
	case plan.ExistsPredicate:
		if pr.Negated {
			return "NOT_EXISTS"
		}
		return "EXISTS"
	case plan.LogicalPredicate:
		return pr.Op
	case plan.NotPredicate:
		return "NOT"
	default:
		return ""
	}
}

// ---------------------------------------------------------------------------
// Built-in operator handlers
// ---------------------------------------------------------------------------

var comparisonSQL = map[plan.ComparisonOp]string{
	plan.OpEQ:  "=",
	plan.OpNEQ: "!=",
	plan.OpGT:  ">",
	plan.OpGTE: ">=",
	plan.OpLT:  "<",
	plan.OpLTE: "<=",
}

func handleComparison(pb *PredicateBuilder, pred plan.Predicate) (string, error) {
	pr := pred.(plan.ComparisonPredicate)
	left, err := pb.op.Build(pr.Left)
	if err != nil {
		return "", err
	}
	right, err := pb.op.Build(pr.Right)
	if err != nil {
		return "", err
	}
	return left + " " + comparisonSQL[pr.Op] + " " + right, nil
}

func handlePattern(pb *PredicateBuilder, pred plan.Predicate) (string, error) {
	pr := pred.(plan.PatternPredicate)
	left, err := pb.op.Build(pr.Left)
	if err != nil {
		return "", err
	}
	right, err := pb.op.Build(pr.Right)
	if err != nil {
		return "", err
	}
	return left + " " + pb.ctx.Compiler.LikeOperator(string(pr.Op)) + " " + right, nil
}

func handleNull(pb *PredicateBuilder, pred plan.Predicate) (string, error) {
	pr := pred.(plan.NullPredicate)
	operand, err := pb.op.Build(pr.Operand)
	if err != nil {
		return "", err
	}
	if pr.Negated {
		return operand + " IS NOT NULL", nil
	}
	return operand + " IS NULL", nil
}

func handleBetween(pb *PredicateBuilder, pred plan.Predicate) (string, error) {
	pr := pred.(plan.BetweenPredicate)
	val, err := pb.op.Build(pr.Value)
	if err != nil {
		return "", err
	}
	low, err := pb.op.Build(pr.Low)
	if err != nil {
		return "", err
	}
	high, err := pb.op.Build(pr.High)
	if err != nil {
		return "", err
	}
	return val + " BETWEEN " + low + " AND " + high, nil
}

func handleIn(pb *PredicateBuilder, pred plan.Predicate) (string, error) {
	pr := pred.(plan.InPredicate)
	left, err := pb.op.Build(pr.Left)
	if err != nil {
		return "", err
	}
	keyword := "IN"
	if pr.Negated {
		keyword = "NOT IN"
	}
	if pr.Subquery != nil {
		if pb.buildSubquery == nil {
			return "", brickqlerr.NewCompilationError("compile.no_subquery_builder", "no subquery build function configured", nil)
		}
		sub, err := pb.buildSubquery(pr.Subquery)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s (\n%s\n)", left, keyword, sub), nil
	}
	vals := make([]string, len(pr.Values))
	for i, v := range pr.Values {
		s, err := pb.op.Build(v)
		if err != nil {
			return "", err
		}
		vals[i] = s
	}
	return fmt.Sprintf("%s %s (%s)", left, keyword, strings.Join(vals, ", ")), nil
}

func handleExists(pb *PredicateBuilder, pred plan.Predicate) (string, error) {
	pr := pred.(plan.ExistsPredicate)
	if pb.buildSubquery == nil {
		return "", brickqlerr.NewCompilationError("compile.no_subquery_builder", "no subquery build function configured", nil)
	}
	sub, err := pb.buildSubquery(pr.Subquery)
	if err != nil {
		return "", err
	}
	keyword := "EXISTS"
	if pr.Negated {
		keyword = "NOT EXISTS"
	}
	return fmt.Sprintf("%s (\n%s\n)", keyword, sub), nil
}

func handleLogical(pb *PredicateBuilder, pred plan.Predicate) (string, error) {
	pr := pred.(plan.LogicalPredicate)
	parts := make([]string, len(pr.Preds))
	for i, sub := range pr.Preds {
		s, err := pb.Build(sub)
		if err != nil {
			return "", err
		}
		parts[i] = "(" + s + ")"
	}
	joiner := " AND "
	if pr.Op == "OR" {
		joiner = " OR "
	}
	return strings.Join(parts, joiner), nil
}

func handleNot(pb *PredicateBuilder, pred plan.Predicate) (string, error) {
	pr := pred.(plan.NotPredicate)
	s, err := pb.Build(pr.Pred)
	if err != nil {
		return "", err
	}
	return "NOT (" + s + ")", nil
}

func init() {
	for _, op := range []plan.ComparisonOp{plan.OpEQ, plan.OpNEQ, plan.OpGT, plan.OpGTE, plan.OpLT, plan.OpLTE} {
		DefaultOperatorRegistry.Register(string(op), handleComparison)
	}
	DefaultOperatorRegistry.Register("LIKE", handlePattern)
	DefaultOperatorRegistry.Register("ILIKE", handlePattern)
	DefaultOperatorRegistry.Register("IS_NULL", handleNull)
	DefaultOperatorRegistry.Register("IS_NOT_NULL", handleNull)
	DefaultOperatorRegistry.Register("BETWEEN", handleBetween)
	DefaultOperatorRegistry.Register("IN", handleIn)
	DefaultOperatorRegistry.Register("NOT_IN", handleIn)
	DefaultOperatorRegistry.Register("EXISTS", handleExists)
	DefaultOperatorRegistry.Register("NOT_EXISTS", handleExists)
	DefaultOperatorRegistry.Register("AND", handleLogical)
	DefaultOperatorRegistry.Register("OR", handleLogical)
	DefaultOperatorRegistry.Register("NOT", handleNot)
}
