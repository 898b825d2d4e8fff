package compile

import (
	"fmt"
	"strings"

	"github.com/brickql/brickql-go/pkg/brickql/brickqlerr"
	"github.com/brickql/brickql-go/pkg/brickql/plan"
)

// SelectClauseBuilder builds the `SELECT [DISTINCT] ...` clause.
type SelectClauseBuilder struct {
	ctx *Context
	op  *OperandBuilder
}

func (b *SelectClauseBuilder) Build(p *plan.QueryPlan) (string, error) {
	if p.SelectStar || len(p.Select) == 0 {
		return "SELECT *", nil
	}

	hasDistinct := false
	for _, item := range p.Select {
		if item.Distinct {
			hasDistinct = true
			break
		}
	}
	prefix := "SELECT"
	if hasDistinct {
		prefix = "SELECT DISTINCT"
	}

	items := make([]string, len(p.Select))
	for i, item := range p.Select {
		s, err := b.buildItem(item)
		if err != nil {
			return "", err
		}
		items[i] = s
	}
	return prefix + " " + strings.Join(items, ", "), nil
}

func (b *SelectClauseBuilder) buildItem(item plan.SelectItem) (string, error) {
	exprSQL, err := b.op.Build(item.Expr)
	if err != nil {
		return "", err
	}
	if item.Over != nil {
		overSQL, err := buildOverClause(b.ctx, b.op, *item.Over)
		if err != nil {
			return "", err
		}
		exprSQL = exprSQL + " " + overSQL
	}
	if item.Alias != "" {
		return exprSQL + " AS " + b.ctx.Compiler.QuoteIdentifier(item.Alias), nil
	}
	return exprSQL, nil
}

// buildOverClause renders `OVER <name>` when spec is a bare reference to a
// plan-level named WINDOW (no partition/order/frame of its own), or
// `OVER (...)` with the inline body otherwise.
func buildOverClause(ctx *Context, op *OperandBuilder, spec plan.WindowSpec) (string, error) {
	if spec.Name != "" && len(spec.PartitionBy) == 0 && len(spec.OrderBy) == 0 && spec.Frame == nil {
		return "OVER " + ctx.Compiler.QuoteIdentifier(spec.Name), nil
	}
	body, err := buildWindowSpecBody(op, spec)
	if err != nil {
		return "", err
	}
	return "OVER (" + body + ")", nil
}

func buildWindowSpecBody(op *OperandBuilder, spec plan.WindowSpec) (string, error) {
	var parts []string
	if len(spec.PartitionBy) > 0 {
		exprs := make([]string, len(spec.PartitionBy))
		for i, e := range spec.PartitionBy {
			s, err := op.Build(e)
			if err != nil {
				return "", err
			}
			exprs[i] = s
		}
		parts = append(parts, "PARTITION BY "+strings.Join(exprs, ", "))
	}
	if len(spec.OrderBy) > 0 {
		orderParts := make([]string, len(spec.OrderBy))
		for i, o := range spec.OrderBy {
			s, err := op.Build(o.Expr)
			if err != nil {
				return "", err
			}
			orderParts[i] = s + " " + string(o.Dir)
		}
		parts = append(parts, "ORDER BY "+strings.Join(orderParts, ", "))
	}
	if spec.Frame != nil {
		parts = append(parts, fmt.Sprintf("%s BETWEEN %s AND %s", spec.Frame.Type, spec.Frame.Start, spec.Frame.End))
	}
	return strings.Join(parts, " "), nil
}

// WindowClauseBuilder builds the plan-level `WINDOW name AS (...), ...`
// clause for named window specs declared in QueryPlan.Window.
type WindowClauseBuilder struct {
	ctx *Context
	op  *OperandBuilder
}

func (b *WindowClauseBuilder) Build(specs []plan.WindowSpec) (string, error) {
	parts := make([]string, len(specs))
	for i, spec := range specs {
		body, err := buildWindowSpecBody(b.op, spec)
		if err != nil {
			return "", err
		}
		parts[i] = b.ctx.Compiler.QuoteIdentifier(spec.Name) + " AS (" + body + ")"
	}
	return "WINDOW " + strings.Join(parts, ", "), nil
}

// FromClauseBuilder builds the `FROM <table | subquery>` fragment. For
// subquery FROM clauses, compilation is delegated to buildFn, which shares
// the outer RuntimeContext so literal params get globally unique names.
type FromClauseBuilder struct {
	ctx     *Context
	buildFn func(*plan.QueryPlan) (string, error)
}

func (b *FromClauseBuilder) Build(frm *plan.FromClause) (string, error) {
	quote := b.ctx.Compiler.QuoteIdentifier
	if frm.Table != "" {
		tableSQL := quote(frm.Table)
		if frm.Alias != "" {
			tableSQL += " AS " + quote(frm.Alias)
		}
		return tableSQL, nil
	}
	if frm.Subquery != nil {
		subSQL, err := b.buildFn(frm.Subquery)
		if err != nil {
			return "", err
		}
		alias := frm.Alias
		if alias == "" {
			alias = "_sub"
		}
		return "(\n" + subSQL + "\n) AS " + quote(alias), nil
	}
	return "", brickqlerr.NewCompilationError("compile.invalid_from", "FROM clause has no table or subquery", nil)
}

// JoinClauseBuilder builds a single `JOIN ...` fragment. A relationship
// join resolves its ON condition from the snapshot; a CROSS join has no ON
// condition and names its right-hand table directly.
type JoinClauseBuilder struct {
	ctx *Context
}

func (b *JoinClauseBuilder) Build(join plan.JoinClause) (string, error) {
	quote := b.ctx.Compiler.QuoteIdentifier

	if join.Type == plan.JoinCross {
		tableSQL := quote(join.Table)
		if join.Alias != "" {
			tableSQL += " AS " + quote(join.Alias)
		}
		return "CROSS JOIN " + tableSQL, nil
	}

	rel := b.ctx.Snapshot.Relationship(join.Rel)
	if rel == nil {
		return "", brickqlerr.NewCompilationError("compile.unknown_relationship",
			fmt.Sprintf("relationship %q not found in snapshot", join.Rel), map[string]any{"rel": join.Rel})
	}
	toQualifier := rel.To
	if join.Alias != "" {
		toQualifier = join.Alias
	}
	fromCol := quote(rel.From) + "." + quote(rel.FromCol)
	toCol := quote(toQualifier) + "." + quote(rel.ToCol)
	toTableSQL := quote(rel.To)
	if join.Alias != "" {
		toTableSQL += " AS " + quote(join.Alias)
	}
	return string(join.Type) + " JOIN " + toTableSQL + " ON " + fromCol + " = " + toCol, nil
}

// CteBuilder builds the `WITH [RECURSIVE] name AS (...), ...` block. CTE
// bodies are compiled through buildFn so they share the outer
// RuntimeContext.
type CteBuilder struct {
	ctx     *Context
	buildFn func(*plan.QueryPlan) (string, error)
}

func (b *CteBuilder) Build(ctes []plan.CTEClause) (string, error) {
	recursive := false
	for _, c := range ctes {
		if c.Recursive {
			recursive = true
			break
		}
	}
	keyword := "WITH"
	if recursive {
		keyword = "WITH RECURSIVE"
	}
	quote := b.ctx.Compiler.QuoteIdentifier
	parts := make([]string, len(ctes))
	for i, cte := range ctes {
		body, err := b.buildFn(cte.Plan)
		if err != nil {
			return "", err
		}
		parts[i] = quote(cte.Name) + " AS (\n" + body + "\n)"
	}
	return keyword + " " + strings.Join(parts, ", "), nil
}

// SetOpBuilder builds a `UNION / INTERSECT / EXCEPT <right>` fragment. The
// right-hand query shares the outer RuntimeContext through buildFn, and has
// its own LIMIT/OFFSET stripped since those belong to the combined result.
type SetOpBuilder struct {
	buildFn func(*plan.QueryPlan) (string, error)
}

func (b *SetOpBuilder) Build(setOp *plan.SetOpClause) (string, error) {
	right := *setOp.Right
	right.Limit = nil
	right.Offset = nil
	rightSQL, err := b.buildFn(&right)
	if err != nil {
		return "", err
	}
	keyword := strings.ReplaceAll(string(setOp.Op), "_", " ")
	return keyword + "\n" + rightSQL, nil
}
