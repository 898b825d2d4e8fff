package plan

// CollectTableReferences returns the table named directly in p's own FROM
// clause — not the tables used by JOINs (those are relationship keys, resolved
// against the schema by the caller) and not tables nested inside subqueries,
// CTEs, or the SET_OP right branch (callers recurse into those separately).
func CollectTableReferences(p *QueryPlan) []string {
	if p.From != nil && p.From.Table != "" {
		return []string{p.From.Table}
	}
	return nil
}

// CollectColumnReferences walks every operand and predicate reachable from
// p's own SELECT, WHERE, GROUP_BY, HAVING, ORDER_BY, and WINDOW clauses and
// returns every qualified "table.column" reference found. It does not
// descend into nested QueryPlans (FROM subquery, CTE bodies, IN/EXISTS
// subqueries, SET_OP right branch) — callers walk those separately.
func CollectColumnReferences(p *QueryPlan) []string {
	var refs []string
	add := func(op Operand) { refs = append(refs, operandColumnRefs(op)...) }

	for _, item := range p.Select {
		add(item.Expr)
		if item.Over != nil {
			for _, pb := range item.Over.PartitionBy {
				add(pb)
			}
			for _, ob := range item.Over.OrderBy {
				add(ob.Expr)
			}
		}
	}
	if p.Where != nil {
		refs = append(refs, predicateColumnRefs(p.Where)...)
	}
	for _, g := range p.GroupBy {
		add(g)
	}
	if p.Having != nil {
		refs = append(refs, predicateColumnRefs(p.Having)...)
	}
	for _, o := range p.OrderBy {
		add(o.Expr)
	}
	for _, w := range p.Window {
		for _, pb := range w.PartitionBy {
			add(pb)
		}
		for _, ob := range w.OrderBy {
			add(ob.Expr)
		}
	}
	return refs
}

func operandColumnRefs(op Operand) []string {
	switch o := op.(type) {
	case ColumnOperand:
		return []string{o.Col}
	case FuncOperand:
		var out []string
		for _, a := range o.Args {
			out = append(out, operandColumnRefs(a)...)
		}
		return out
	case CaseOperand:
		var out []string
		for _, w := range o.When {
			out = append(out, predicateColumnRefs(w.If)...)
			out = append(out, operandColumnRefs(w.Then)...)
		}
		if o.Else != nil {
			out = append(out, operandColumnRefs(o.Else)...)
		}
		return out
	default:
		return nil
	}
}

func predicateColumnRefs(p Predicate) []string {
	switch pr := p.(type) {
	case ComparisonPredicate:
		return append(operandColumnRefs(pr.Left), operandColumnRefs(pr.Right)...)
	case PatternPredicate:
		return append(operandColumnRefs(pr.Left), operandColumnRefs(pr.Right)...)
	case NullPredicate:
		return operandColumnRefs(pr.Operand)
	case BetweenPredicate:
		out := operandColumnRefs(pr.Value)
		out = append(out, operandColumnRefs(pr.Low)...)
		out = append(out, operandColumnRefs(pr.High)...)
		return out
	case InPredicate:
		out := operandColumnRefs(pr.Left)
		for _, v := range pr.Values {
			out = append(out, operandColumnRefs(v)...)
		}
		return out
	case LogicalPredicate:
		var out []string
		for _, sub := range pr.Preds {
			out = append(out, predicateColumnRefs(sub)...)
		}
		return out
	case NotPredicate:
		return predicateColumnRefs(pr.Pred)
	default: // ExistsPredicate carries no operands of its own
		return nil
	}
}
