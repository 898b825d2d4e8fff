package compile

import (
	"strings"

	"github.com/brickql/brickql-go/pkg/brickql/plan"
)

// SQLiteCompiler compiles a QueryPlan to SQLite-flavoured parameterized
// SQL, using the named-parameter style go-sqlite3 accepts directly.
//
// SQLite has no ILIKE; it is mapped to LIKE, whose ASCII case-folding is
// already case-insensitive by default.
type SQLiteCompiler struct{}

func (c *SQLiteCompiler) DialectName() string { return "sqlite" }

func (c *SQLiteCompiler) ParamPlaceholder(name string) string { return ":" + name }

func (c *SQLiteCompiler) LikeOperator(op string) string { return "LIKE" }

func (c *SQLiteCompiler) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (c *SQLiteCompiler) BuildFuncCall(funcName string, args []plan.Operand, buildArg func(plan.Operand) (string, error)) (string, error) {
	return DefaultBuildFuncCall(funcName, args, buildArg)
}
