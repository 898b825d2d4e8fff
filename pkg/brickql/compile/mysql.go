package compile

import (
	"strings"

	"github.com/brickql/brickql-go/pkg/brickql/brickqlerr"
	"github.com/brickql/brickql-go/pkg/brickql/plan"
)

// noMySQLEquivalent lists date_part fields Postgres supports that have no
// EXTRACT unit in MySQL: rewriting them would silently emit invalid SQL, so
// they are rejected at compile time instead.
var noMySQLEquivalent = map[string]bool{"DOW": true, "DOY": true, "EPOCH": true}

// MySQLCompiler compiles a QueryPlan to MySQL-flavoured parameterized SQL
// using the %(name)s placeholder style go-sql-driver/mysql's named-parameter
// interpolation mode accepts.
//
// MySQL has no ILIKE; it is mapped to LIKE, which is already
// case-insensitive for non-binary TEXT/VARCHAR columns by default.
// Identifiers are backtick-quoted rather than double-quoted.
type MySQLCompiler struct{}

func (c *MySQLCompiler) DialectName() string { return "mysql" }

func (c *MySQLCompiler) ParamPlaceholder(name string) string { return "%(" + name + ")s" }

func (c *MySQLCompiler) LikeOperator(op string) string { return "LIKE" }

func (c *MySQLCompiler) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (c *MySQLCompiler) BuildFuncCall(funcName string, args []plan.Operand, buildArg func(plan.Operand) (string, error)) (string, error) {
	if strings.ToUpper(funcName) == "DATE_PART" {
		return buildExtract(args, buildArg)
	}
	return DefaultBuildFuncCall(funcName, args, buildArg)
}

// buildExtract translates DATE_PART(field, col) to MySQL's
// EXTRACT(unit FROM expr), since MySQL has no DATE_PART function. Postgres's
// field argument is a quoted string literal like 'year'; this strips that
// quoting and upper-cases the unit keyword MySQL expects unquoted.
func buildExtract(args []plan.Operand, buildArg func(plan.Operand) (string, error)) (string, error) {
	if len(args) < 2 {
		parts := make([]string, len(args))
		for i, a := range args {
			s, err := buildArg(a)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "DATE_PART(" + strings.Join(parts, ", ") + ")", nil
	}

	var unit string
	if v, ok := args[0].(plan.ValueOperand); ok {
		if s, ok := v.Value.(string); ok {
			unit = strings.ToUpper(s)
		}
	}
	if unit == "" {
		s, err := buildArg(args[0])
		if err != nil {
			return "", err
		}
		unit = strings.ToUpper(strings.Trim(s, `'"`))
	}
	if noMySQLEquivalent[unit] {
		return "", brickqlerr.NewCompilationError("compile.unsupported_datepart_field",
			"date_part field '"+strings.ToLower(unit)+"' has no MySQL EXTRACT equivalent",
			map[string]any{"field": strings.ToLower(unit)})
	}

	source, err := buildArg(args[1])
	if err != nil {
		return "", err
	}
	return "EXTRACT(" + unit + " FROM " + source + ")", nil
}
