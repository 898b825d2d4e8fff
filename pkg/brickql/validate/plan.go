package validate

import (
	"strconv"

	"github.com/brickql/brickql-go/pkg/brickql/brickqlerr"
	"github.com/brickql/brickql-go/pkg/brickql/dialect"
	"github.com/brickql/brickql-go/pkg/brickql/plan"
	"github.com/brickql/brickql-go/pkg/brickql/schema"
)

// PlanValidator is the public entry point: it wires together the focused
// sub-validators above and drives validation in the order that lets each
// check assume everything before it already passed (e.g. schema checks
// before the semantic checks that read resolved columns).
type PlanValidator struct {
	snap *schema.Snapshot
	dial *dialect.Profile
	ctx  *Context
}

// New returns a PlanValidator bound to a schema snapshot and dialect
// profile.
func New(snap *schema.Snapshot, dial *dialect.Profile) *PlanValidator {
	return &PlanValidator{snap: snap, dial: dial, ctx: &Context{Snapshot: snap, Dialect: dial}}
}

// Validate checks p and returns the first violation found, or nil.
// cteNames carries CTE/derived-table names already in scope from an
// enclosing query (nil for a top-level call).
func (pv *PlanValidator) Validate(p *plan.QueryPlan, cteNames map[string]bool) error {
	names := unionSet(cteNames, nil)
	for _, c := range p.With {
		names[c.Name] = true
	}

	opValidator, predValidator := newValidatorPair(pv.ctx, names)
	schemaValidator := newSchemaValidator(pv.ctx, names)
	dialectValidator := newDialectValidator(pv.ctx)
	semanticValidator := newSemanticValidator(pv.ctx)
	predValidator.validateSubquery = func(sub *plan.QueryPlan) error {
		return pv.Validate(sub, names)
	}

	if err := dialectValidator.ValidateFeatureFlags(p); err != nil {
		return err
	}
	if err := dialectValidator.ValidateJoinDepth(p); err != nil {
		return err
	}
	if err := dialectValidator.ValidateWindowFunctions(p); err != nil {
		return err
	}

	if err := pv.validateFrom(p, schemaValidator, opValidator, names); err != nil {
		return err
	}
	if err := schemaValidator.ValidateJoins(p); err != nil {
		return err
	}

	if err := pv.validateSelect(p, opValidator); err != nil {
		return err
	}
	if p.Where != nil {
		if err := predValidator.Validate(p.Where); err != nil {
			return err
		}
	}
	for i, g := range p.GroupBy {
		if err := opValidator.Validate(groupByPath(i), g); err != nil {
			return err
		}
	}

	if err := semanticValidator.ValidateHaving(p); err != nil {
		return err
	}
	if p.Having != nil && len(p.GroupBy) > 0 {
		if err := predValidator.Validate(p.Having); err != nil {
			return err
		}
	}

	for i, o := range p.OrderBy {
		if err := opValidator.Validate(orderByPath(i), o.Expr); err != nil {
			return err
		}
	}
	if err := semanticValidator.ValidateGroupByCoverage(p); err != nil {
		return err
	}
	if err := semanticValidator.ValidateLimit(p); err != nil {
		return err
	}
	if err := semanticValidator.ValidateOffset(p); err != nil {
		return err
	}

	for _, c := range p.With {
		if err := pv.Validate(c.Plan, names); err != nil {
			return err
		}
	}
	if p.SetOp != nil {
		if err := semanticValidator.ValidateSetOpArity(p); err != nil {
			return err
		}
		if err := pv.Validate(p.SetOp.Right, names); err != nil {
			return err
		}
	}

	return nil
}

func (pv *PlanValidator) validateFrom(p *plan.QueryPlan, sv *SchemaValidator, ov *OperandValidator, names map[string]bool) error {
	if p.From == nil {
		return nil
	}
	if p.From.Table != "" {
		return sv.AssertTableAllowed(p.From.Table)
	}
	if p.From.Subquery != nil {
		if !pv.dial.Allowed.AllowSubqueries {
			return dialectViolation("allow_subqueries", "subquery in FROM is not enabled")
		}
		if p.From.Alias != "" {
			names[p.From.Alias] = true
			sv.SetCTENames(names)
			ov.SetCTENames(names)
		}
		return pv.Validate(p.From.Subquery, names)
	}
	return brickqlerr.NewValidationError("validate.invalid_from", "FROM clause must specify either 'table' or 'subquery'", nil)
}

func (pv *PlanValidator) validateSelect(p *plan.QueryPlan, ov *OperandValidator) error {
	for i, item := range p.Select {
		if err := ov.Validate(selectPath(i), item.Expr); err != nil {
			return err
		}
		if item.Over != nil {
			for _, pb := range item.Over.PartitionBy {
				if err := ov.Validate(selectPath(i)+".over.partition_by", pb); err != nil {
					return err
				}
			}
			for _, ob := range item.Over.OrderBy {
				if err := ov.Validate(selectPath(i)+".over.order_by", ob.Expr); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func unionSet(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

func selectPath(i int) string  { return indexPath("$.SELECT", i) }
func groupByPath(i int) string { return indexPath("$.GROUP_BY", i) }
func orderByPath(i int) string { return indexPath("$.ORDER_BY", i) }

func indexPath(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}
