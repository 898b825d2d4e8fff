package validate

import (
	"github.com/brickql/brickql-go/pkg/brickql/brickqlerr"
	"github.com/brickql/brickql-go/pkg/brickql/plan"
)

// SchemaValidator checks table and column existence against the schema
// snapshot, and that JOINs use valid relationship keys.
type SchemaValidator struct {
	ctx      *Context
	cteNames map[string]bool
}

func newSchemaValidator(ctx *Context, cteNames map[string]bool) *SchemaValidator {
	return &SchemaValidator{ctx: ctx, cteNames: cteNames}
}

// SetCTENames replaces the set of virtual names this validator treats as
// in-scope table names (CTEs and derived-table aliases).
func (v *SchemaValidator) SetCTENames(names map[string]bool) {
	v.cteNames = names
}

// AssertTableAllowed returns a validate.unknown_table ValidationError if table is neither a real
// table in the snapshot nor an in-scope CTE/derived-table name.
func (v *SchemaValidator) AssertTableAllowed(table string) error {
	if v.cteNames[table] {
		return nil
	}
	if v.ctx.Snapshot.Table(table) == nil {
		return brickqlerr.NewValidationError("validate.unknown_table",
			"table '"+table+"' does not exist in the schema snapshot",
			map[string]any{"table": table, "allowed_tables": v.ctx.Snapshot.TableNames()})
	}
	return nil
}

// ValidateFrom checks the FROM clause's table existence.
func (v *SchemaValidator) ValidateFrom(p *plan.QueryPlan) error {
	if p.From == nil {
		return nil
	}
	if p.From.Table != "" {
		return v.AssertTableAllowed(p.From.Table)
	}
	if p.From.Subquery == nil {
		return brickqlerr.NewValidationError("validate.invalid_from",
			"FROM clause must specify either 'table' or 'subquery'", nil)
	}
	return nil
}

// ValidateJoins checks that every JOIN relationship key exists and that
// both sides of the relationship are allowed tables.
func (v *SchemaValidator) ValidateJoins(p *plan.QueryPlan) error {
	for _, join := range p.Join {
		if join.Type == plan.JoinCross {
			if err := v.AssertTableAllowed(join.Table); err != nil {
				return err
			}
			continue
		}
		rel := v.ctx.Snapshot.Relationship(join.Rel)
		if rel == nil {
			return brickqlerr.NewValidationError("validate.unknown_relationship",
				"join relationship '"+join.Rel+"' does not exist in the schema snapshot",
				map[string]any{"key": join.Rel, "allowed_relationships": v.ctx.Snapshot.RelationshipKeys()})
		}
		if err := v.AssertTableAllowed(rel.From); err != nil {
			return err
		}
		if err := v.AssertTableAllowed(rel.To); err != nil {
			return err
		}
	}
	return nil
}
