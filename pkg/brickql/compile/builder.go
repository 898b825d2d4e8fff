package compile

import (
	"strings"

	"github.com/brickql/brickql-go/pkg/brickql/plan"
	"github.com/brickql/brickql-go/pkg/brickql/schema"
)

// QueryBuilder compiles a validated, policy-approved QueryPlan to
// parameterized SQL for one dialect.
//
// Sub-builder hierarchy
//
//	QueryBuilder
//	  +-- OperandBuilder / PredicateBuilder    (expression.go)
//	  +-- SelectClauseBuilder                  (clauses.go)
//	  +-- FromClauseBuilder                    (clauses.go)
//	  +-- JoinClauseBuilder                     (clauses.go)
//	  +-- WindowClauseBuilder                   (clauses.go)
//	  +-- CteBuilder                            (clauses.go)
//	  +-- SetOpBuilder                          (clauses.go)
//
// A single RuntimeContext is created per Build call and threaded through
// every sub-builder and every nested sub-plan (CTEs, SET_OP branches, FROM
// subqueries, correlated IN/EXISTS subqueries) so literal parameter names
// stay globally unique across the whole statement.
type QueryBuilder struct {
	ctx *Context
}

// New returns a QueryBuilder bound to a dialect compiler and schema
// snapshot (used for resolving JOIN ON clauses).
func New(compiler SQLCompiler, snap *schema.Snapshot) *QueryBuilder {
	return &QueryBuilder{ctx: &Context{Compiler: compiler, Snapshot: snap}}
}

type subBuilders struct {
	op      *OperandBuilder
	pred    *PredicateBuilder
	sel     *SelectClauseBuilder
	from    *FromClauseBuilder
	join    *JoinClauseBuilder
	window  *WindowClauseBuilder
	cte     *CteBuilder
	setOp   *SetOpBuilder
	runtime *RuntimeContext
}

// Build compiles plan to parameterized SQL.
func (qb *QueryBuilder) Build(p *plan.QueryPlan) (*CompiledSQL, error) {
	runtime := NewRuntimeContext()
	sb := qb.makeSubBuilders(runtime)

	sql, err := qb.buildFull(p, sb)
	if err != nil {
		return nil, err
	}
	return &CompiledSQL{
		SQL:            sql,
		Params:         runtime.Params,
		RequiredParams: runtime.RequiredParams(),
		Dialect:        qb.ctx.Compiler.DialectName(),
	}, nil
}

// makeSubBuilders constructs and wires the sub-builder graph for one
// compilation run. Every nested plan shares runtime via the buildFn
// closure so literal parameter names are globally unique.
func (qb *QueryBuilder) makeSubBuilders(runtime *RuntimeContext) *subBuilders {
	op, pred := newBuilderPair(qb.ctx, runtime)

	sb := &subBuilders{
		op:      op,
		pred:    pred,
		sel:     &SelectClauseBuilder{ctx: qb.ctx, op: op},
		join:    &JoinClauseBuilder{ctx: qb.ctx},
		window:  &WindowClauseBuilder{ctx: qb.ctx, op: op},
		runtime: runtime,
	}

	buildFn := func(sub *plan.QueryPlan) (string, error) {
		return qb.buildCoreQuery(sub, sb)
	}
	pred.buildSubquery = buildFn

	sb.from = &FromClauseBuilder{ctx: qb.ctx, buildFn: buildFn}
	sb.cte = &CteBuilder{ctx: qb.ctx, buildFn: buildFn}
	sb.setOp = &SetOpBuilder{buildFn: buildFn}

	return sb
}

// buildFull assembles the CTE prefix and, when present, a SET_OP suffix
// around the core query.
func (qb *QueryBuilder) buildFull(p *plan.QueryPlan, sb *subBuilders) (string, error) {
	cteSQL := ""
	if len(p.With) > 0 {
		s, err := sb.cte.Build(p.With)
		if err != nil {
			return "", err
		}
		cteSQL = s
	}

	var querySQL string
	if p.SetOp != nil {
		left := *p
		left.SetOp = nil
		left.Limit = nil
		left.Offset = nil
		leftSQL, err := qb.buildCoreQuery(&left, sb)
		if err != nil {
			return "", err
		}
		setSQL, err := sb.setOp.Build(p.SetOp)
		if err != nil {
			return "", err
		}
		querySQL = leftSQL + "\n" + setSQL
		if p.Limit != nil {
			querySQL += "\nLIMIT " + limitOffsetSQL(p.Limit.Value, p.Limit.Param, qb.ctx, sb.runtime)
		}
		if p.Offset != nil {
			querySQL += "\nOFFSET " + limitOffsetSQL(p.Offset.Value, p.Offset.Param, qb.ctx, sb.runtime)
		}
	} else {
		s, err := qb.buildCoreQuery(p, sb)
		if err != nil {
			return "", err
		}
		querySQL = s
	}

	if cteSQL == "" {
		return querySQL, nil
	}
	return strings.TrimSpace(cteSQL + "\n" + querySQL), nil
}

// buildCoreQuery renders SELECT ... LIMIT/OFFSET, without CTE prefix or
// SET_OP suffix.
func (qb *QueryBuilder) buildCoreQuery(p *plan.QueryPlan, sb *subBuilders) (string, error) {
	var parts []string

	selSQL, err := sb.sel.Build(p)
	if err != nil {
		return "", err
	}
	parts = append(parts, selSQL)

	if p.From != nil {
		fromSQL, err := sb.from.Build(p.From)
		if err != nil {
			return "", err
		}
		parts = append(parts, "FROM "+fromSQL)
	}

	for _, j := range p.Join {
		joinSQL, err := sb.join.Build(j)
		if err != nil {
			return "", err
		}
		parts = append(parts, joinSQL)
	}

	if p.Where != nil {
		whereSQL, err := sb.pred.Build(p.Where)
		if err != nil {
			return "", err
		}
		parts = append(parts, "WHERE "+whereSQL)
	}

	if len(p.GroupBy) > 0 {
		exprs := make([]string, len(p.GroupBy))
		for i, e := range p.GroupBy {
			s, err := sb.op.Build(e)
			if err != nil {
				return "", err
			}
			exprs[i] = s
		}
		parts = append(parts, "GROUP BY "+strings.Join(exprs, ", "))
	}

	if p.Having != nil {
		havingSQL, err := sb.pred.Build(p.Having)
		if err != nil {
			return "", err
		}
		parts = append(parts, "HAVING "+havingSQL)
	}

	if len(p.Window) > 0 {
		windowSQL, err := sb.window.Build(p.Window)
		if err != nil {
			return "", err
		}
		parts = append(parts, windowSQL)
	}

	if len(p.OrderBy) > 0 {
		orderParts := make([]string, len(p.OrderBy))
		for i, o := range p.OrderBy {
			s, err := sb.op.Build(o.Expr)
			if err != nil {
				return "", err
			}
			orderParts[i] = s + " " + string(o.Dir)
		}
		parts = append(parts, "ORDER BY "+strings.Join(orderParts, ", "))
	}

	if p.Limit != nil {
		parts = append(parts, "LIMIT "+limitOffsetSQL(p.Limit.Value, p.Limit.Param, qb.ctx, sb.runtime))
	}
	if p.Offset != nil {
		parts = append(parts, "OFFSET "+limitOffsetSQL(p.Offset.Value, p.Offset.Param, qb.ctx, sb.runtime))
	}

	return strings.Join(parts, "\n"), nil
}

// limitOffsetSQL renders a LIMIT/OFFSET bound as a placeholder in every
// case: a fixed value is bound through runtime.AddValue so it never
// appears inline in the SQL string, and a runtime-supplied one is
// registered as a required param with the same RuntimeContext as every
// other parameter so MergeRuntimeParams enforces it is supplied.
func limitOffsetSQL(value *int, param *string, ctx *Context, runtime *RuntimeContext) string {
	if value != nil {
		name := runtime.AddValue(*value)
		return ctx.Compiler.ParamPlaceholder(name)
	}
	runtime.RequireParam(*param)
	return ctx.Compiler.ParamPlaceholder(*param)
}
