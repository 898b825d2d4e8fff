package policy

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/brickql/brickql-go/pkg/brickql/brickqlerr"
	"github.com/brickql/brickql-go/pkg/brickql/dialect"
	"github.com/brickql/brickql-go/pkg/brickql/plan"
	"github.com/brickql/brickql-go/pkg/brickql/schema"
)

// Engine applies policy rules to a structurally validated QueryPlan.
// Config is the swappable strategy; Engine is the Strategy-pattern context
// that executes it.
type Engine struct {
	config *Config
	snap   *schema.Snapshot
	dial   *dialect.Profile
}

// New returns an Engine bound to a policy config, schema snapshot, and
// dialect profile.
func New(config *Config, snap *schema.Snapshot, dial *dialect.Profile) *Engine {
	return &Engine{config: config, snap: snap, dial: dial}
}

// Apply runs every policy rule in order and returns a (possibly modified)
// QueryPlan, recursing into FROM subqueries, CTE bodies, and the SET_OP
// right branch so that policy is enforced everywhere a table can be
// referenced, not only at the top level.
//
//  1. Table allowlist.
//  2. Denied columns (global + per-table).
//  3. Parameter-bound column injection/verification.
//  4. LIMIT default injection.
func (e *Engine) Apply(p *plan.QueryPlan) (*plan.QueryPlan, error) {
	out := *p // shallow copy: clause pointers/interfaces are replaced, never mutated in place

	if err := e.checkTableAllowlist(&out); err != nil {
		return nil, err
	}
	if err := e.checkDeniedColumns(&out); err != nil {
		return nil, err
	}
	if err := e.enforceParamBoundColumns(&out); err != nil {
		return nil, err
	}
	e.enforceLimit(&out)

	if out.From != nil && out.From.Subquery != nil {
		sub, err := e.Apply(out.From.Subquery)
		if err != nil {
			return nil, err
		}
		fromCopy := *out.From
		fromCopy.Subquery = sub
		out.From = &fromCopy
	}
	if len(out.With) > 0 {
		ctes := make([]plan.CTEClause, len(out.With))
		for i, c := range out.With {
			body, err := e.Apply(c.Plan)
			if err != nil {
				return nil, err
			}
			ctes[i] = plan.CTEClause{Name: c.Name, Plan: body, Recursive: c.Recursive}
		}
		out.With = ctes
	}
	if out.SetOp != nil {
		right, err := e.Apply(out.SetOp.Right)
		if err != nil {
			return nil, err
		}
		out.SetOp = &plan.SetOpClause{Op: out.SetOp.Op, Right: right}
	}

	return &out, nil
}

// ---------------------------------------------------------------------
// Table allowlist
// ---------------------------------------------------------------------

func (e *Engine) checkTableAllowlist(p *plan.QueryPlan) error {
	if len(e.config.AllowedTables) == 0 {
		return nil
	}
	for _, table := range e.collectAllTableRefs(p) {
		if !contains(e.config.AllowedTables, table) {
			return brickqlerr.NewValidationError("policy.disallowed_table",
				fmt.Sprintf("table '%s' is not in the policy's allowed_tables list", table),
				map[string]any{"table": table, "allowed_tables": e.config.AllowedTables})
		}
	}
	return nil
}

// collectAllTableRefs combines FROM table references with JOIN-resolved
// table names (relationship keys require the snapshot to resolve).
func (e *Engine) collectAllTableRefs(p *plan.QueryPlan) []string {
	tables := plan.CollectTableReferences(p)
	for _, join := range p.Join {
		if join.Type == plan.JoinCross {
			tables = append(tables, join.Table)
			continue
		}
		if rel := e.snap.Relationship(join.Rel); rel != nil {
			tables = append(tables, rel.From, rel.To)
		}
	}
	return tables
}

// ---------------------------------------------------------------------
// Denied columns (global + per-table)
// ---------------------------------------------------------------------

func (e *Engine) checkDeniedColumns(p *plan.QueryPlan) error {
	for _, colRef := range plan.CollectColumnReferences(p) {
		if err := e.assertColumnNotDenied(colRef); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) assertColumnNotDenied(colRef string) error {
	table, col, qualified := splitColumnRef(colRef)
	if !qualified {
		return nil // bare column — only qualified refs are policy-checkable
	}

	globallyDenied := contains(e.config.DeniedColumns, colRef) || contains(e.config.DeniedColumns, col)
	perTableDenied := false
	notInAllowlist := false
	if tpol, ok := e.config.Tables[table]; ok {
		perTableDenied = contains(tpol.DeniedColumns, col)
		if len(tpol.AllowedColumns) > 0 {
			notInAllowlist = !contains(tpol.AllowedColumns, col)
		}
	}

	if globallyDenied || perTableDenied || notInAllowlist {
		return brickqlerr.NewValidationError("policy.column_denied",
			fmt.Sprintf("column '%s' on table '%s' is not permitted by policy", col, table),
			map[string]any{"table": table, "column": col, "allowed_columns": e.effectiveAllowedColumns(table)})
	}
	return nil
}

// effectiveAllowedColumns returns the columns a plan may reference for
// table: the table's allowlist if set, else every column known to the
// snapshot, minus the combined deny list either way.
func (e *Engine) effectiveAllowedColumns(table string) []string {
	denied := map[string]bool{}
	for _, c := range e.config.DeniedColumnsFor(table) {
		denied[c] = true
	}
	tpol, hasPolicy := e.config.Tables[table]
	if hasPolicy && len(tpol.AllowedColumns) > 0 {
		var out []string
		for _, c := range tpol.AllowedColumns {
			if !denied[c] {
				out = append(out, c)
			}
		}
		return out
	}
	var out []string
	for _, c := range e.snap.ColumnNames(table) {
		if !denied[c] {
			out = append(out, c)
		}
	}
	return out
}

func splitColumnRef(colRef string) (table, col string, qualified bool) {
	for i := len(colRef) - 1; i >= 0; i-- {
		if colRef[i] == '.' {
			return colRef[:i], colRef[i+1:], true
		}
	}
	return "", colRef, false
}

// ---------------------------------------------------------------------
// Parameter-bound column enforcement
// ---------------------------------------------------------------------

func (e *Engine) enforceParamBoundColumns(p *plan.QueryPlan) error {
	seen := map[string]bool{}
	for _, table := range e.collectAllTableRefs(p) {
		if seen[table] {
			continue
		}
		seen[table] = true
		tpol, ok := e.config.Tables[table]
		if !ok || len(tpol.ParamBoundColumns) == 0 {
			continue
		}
		for col, param := range tpol.ParamBoundColumns {
			if err := e.enforceSingleParam(p, table, col, param); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) enforceSingleParam(p *plan.QueryPlan, table, col, param string) error {
	colRef := table + "." + col
	required := plan.ComparisonPredicate{
		Op:    plan.OpEQ,
		Left:  plan.ColumnOperand{Col: colRef},
		Right: plan.ParamOperand{Param: param},
	}

	if p.Where == nil {
		if !e.config.InjectMissingParams {
			return missingParamError(colRef, param)
		}
		p.Where = required
		return nil
	}

	satisfied, bypass := whereSatisfiesParam(p.Where, colRef, param)
	if bypass {
		return brickqlerr.NewValidationError("policy.or_bypass",
			fmt.Sprintf("WHERE binds %s to param %s only inside an OR branch, which makes the restriction optional", colRef, param),
			map[string]any{"col": colRef, "param": param})
	}
	if satisfied {
		return nil
	}

	if !e.config.InjectMissingParams {
		return missingParamError(colRef, param)
	}
	p.Where = plan.LogicalPredicate{Op: "AND", Preds: []plan.Predicate{p.Where, required}}
	return nil
}

func missingParamError(colRef, param string) error {
	return brickqlerr.NewValidationError("policy.missing_required_param",
		fmt.Sprintf("column %s must be filtered by param %s but no such predicate was found", colRef, param),
		map[string]any{"col": colRef, "param": param})
}

// whereSatisfiesParam reports whether pred already enforces
// `colRef = {param: paramName}`. bypass is true when the binding appears
// in some, but not every, OR branch that references the bound column's
// table: a sibling branch that skips the filter but still reaches that
// table makes the restriction optional, so it is flagged rather than
// silently accepted or silently re-wrapped. An OR where every branch that
// references the table carries the binding is an equivalent restriction,
// not a bypass, and is treated as satisfied.
func whereSatisfiesParam(pred plan.Predicate, colRef, paramName string) (satisfied, bypass bool) {
	table, _, _ := splitColumnRef(colRef)
	switch pr := pred.(type) {
	case plan.ComparisonPredicate:
		if pr.Op != plan.OpEQ {
			return false, false
		}
		col, ok := pr.Left.(plan.ColumnOperand)
		if !ok || col.Col != colRef {
			return false, false
		}
		p, ok := pr.Right.(plan.ParamOperand)
		return ok && p.Param == paramName, false
	case plan.LogicalPredicate:
		switch pr.Op {
		case "AND":
			for _, sub := range pr.Preds {
				s, b := whereSatisfiesParam(sub, colRef, paramName)
				if b {
					return false, true
				}
				if s {
					return true, false
				}
			}
			return false, false
		case "OR":
			anyReferencing := false
			allReferencingSatisfied := true
			for _, sub := range pr.Preds {
				s, b := whereSatisfiesParam(sub, colRef, paramName)
				if b {
					return false, true
				}
				if predicateReferencesTable(sub, table) {
					anyReferencing = true
					if !s {
						allReferencingSatisfied = false
					}
				}
			}
			if !anyReferencing {
				return false, false
			}
			if allReferencingSatisfied {
				return true, false
			}
			return false, true
		}
	}
	return false, false
}

// predicateReferencesTable reports whether pred touches table anywhere in
// its operand tree, used to decide which OR branches whereSatisfiesParam
// must hold accountable for a required binding.
func predicateReferencesTable(pred plan.Predicate, table string) bool {
	switch pr := pred.(type) {
	case plan.ComparisonPredicate:
		return operandReferencesTable(pr.Left, table) || operandReferencesTable(pr.Right, table)
	case plan.PatternPredicate:
		return operandReferencesTable(pr.Left, table) || operandReferencesTable(pr.Right, table)
	case plan.NullPredicate:
		return operandReferencesTable(pr.Operand, table)
	case plan.BetweenPredicate:
		return operandReferencesTable(pr.Value, table) || operandReferencesTable(pr.Low, table) || operandReferencesTable(pr.High, table)
	case plan.InPredicate:
		if operandReferencesTable(pr.Left, table) {
			return true
		}
		for _, v := range pr.Values {
			if operandReferencesTable(v, table) {
				return true
			}
		}
		return false
	case plan.LogicalPredicate:
		for _, sub := range pr.Preds {
			if predicateReferencesTable(sub, table) {
				return true
			}
		}
		return false
	case plan.NotPredicate:
		return predicateReferencesTable(pr.Pred, table)
	}
	return false
}

func operandReferencesTable(op plan.Operand, table string) bool {
	switch o := op.(type) {
	case plan.ColumnOperand:
		t, _, qualified := splitColumnRef(o.Col)
		return qualified && t == table
	case plan.FuncOperand:
		for _, a := range o.Args {
			if operandReferencesTable(a, table) {
				return true
			}
		}
		return false
	case plan.CaseOperand:
		for _, w := range o.When {
			if predicateReferencesTable(w.If, table) || operandReferencesTable(w.Then, table) {
				return true
			}
		}
		if o.Else != nil {
			return operandReferencesTable(o.Else, table)
		}
		return false
	}
	return false
}

// ---------------------------------------------------------------------
// LIMIT default injection
// ---------------------------------------------------------------------

func (e *Engine) enforceLimit(p *plan.QueryPlan) {
	if p.Limit != nil || e.config.DefaultLimit <= 0 {
		return
	}
	value := e.config.DefaultLimit
	p.Limit = &plan.LimitClause{Value: &value}
}

// ---------------------------------------------------------------------
// Runtime parameter injection scanning (defense in depth)
// ---------------------------------------------------------------------

// InjectionResult flags a runtime parameter value that looks like an SQL
// injection attempt, independent of the fact that it will be bound, never
// interpolated, by the compiler.
type InjectionResult struct {
	ParamName   string
	ParamValue  any
	Fingerprint string
}

// ScanRuntimeParams runs every string-valued runtime parameter through
// libinjection as a defense-in-depth check. Because every ValueOperand is
// always bound as a driver parameter and never concatenated into SQL text,
// a positive here cannot itself cause injection — it is a signal that the
// caller's input is suspicious and worth logging or rejecting upstream.
func ScanRuntimeParams(params map[string]any) []InjectionResult {
	var results []InjectionResult
	for name, value := range params {
		str, ok := value.(string)
		if !ok {
			continue
		}
		if isSQLi, fingerprint := libinjection.IsSQLi(str); isSQLi {
			results = append(results, InjectionResult{ParamName: name, ParamValue: value, Fingerprint: string(fingerprint)})
		}
	}
	return results
}

func contains(list []string, item string) bool {
	for _, x := range list {
		if x == item {
			return true
		}
	}
	return false
}
