// Package policy applies row- and column-level access rules to a
// structurally validated QueryPlan before it reaches the compiler: table
// allowlists, column allow/deny lists, parameter-bound tenant columns, and
// LIMIT defaults. The schema.Snapshot stays a pure structural description
// of the database; policy lives entirely in this package's Config.
package policy

// TablePolicy is a single table's runtime policy rules.
type TablePolicy struct {
	// ParamBoundColumns maps a column name to the runtime parameter it must
	// be filtered on, e.g. {"tenant_id": "TENANT"} requires every plan
	// touching this table to filter tenant_id by {"param": "TENANT"}.
	ParamBoundColumns map[string]string
	// AllowedColumns, when non-empty, is the only columns this table's plan
	// may reference. Empty means all columns are allowed (subject to
	// DeniedColumns).
	AllowedColumns []string
	// DeniedColumns are forbidden on this table regardless of AllowedColumns.
	DeniedColumns []string
}

// Config is the runtime policy applied to every request.
type Config struct {
	Tables map[string]TablePolicy
	// AllowedTables, when non-empty, is the only tables a plan may reference.
	AllowedTables []string
	// DeniedColumns are forbidden across every table.
	DeniedColumns []string
	// InjectMissingParams controls whether a missing param-bound predicate is
	// injected automatically (true) or rejected with
	// policy.missing_required_param (false).
	InjectMissingParams bool
	// DefaultLimit is injected when the plan has no LIMIT clause; 0 disables
	// injection.
	DefaultLimit int
}

// DeniedColumnsFor returns the de-duplicated column deny list for table,
// merging the global list with that table's TablePolicy.DeniedColumns.
func (c *Config) DeniedColumnsFor(table string) []string {
	seen := map[string]bool{}
	var out []string
	for _, col := range c.DeniedColumns {
		if !seen[col] {
			seen[col] = true
			out = append(out, col)
		}
	}
	if tpol, ok := c.Tables[table]; ok {
		for _, col := range tpol.DeniedColumns {
			if !seen[col] {
				seen[col] = true
				out = append(out, col)
			}
		}
	}
	return out
}
