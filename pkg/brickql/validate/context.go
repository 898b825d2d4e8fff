// Package validate checks a parsed QueryPlan against a schema.Snapshot and
// a dialect.Profile: dialect feature flags, table/column existence, join
// relationship keys, operand/predicate structure, and HAVING/LIMIT
// semantics. It never renders SQL and never applies policy — both of
// those happen in later pipeline stages.
package validate

import (
	"github.com/brickql/brickql-go/pkg/brickql/dialect"
	"github.com/brickql/brickql-go/pkg/brickql/schema"
)

// Context packages the (snapshot, dialect) pair threaded through every
// sub-validator, replacing what would otherwise be a pair of constructor
// arguments repeated on every type in this package.
type Context struct {
	Snapshot *schema.Snapshot
	Dialect  *dialect.Profile
}
