package compile

import (
	"strings"

	"github.com/brickql/brickql-go/pkg/brickql/plan"
)

// PostgresCompiler compiles a QueryPlan to Postgres-flavoured parameterized
// SQL using the %(name)s placeholder style pgx/psycopg-family drivers
// recognize as named parameters.
type PostgresCompiler struct{}

func (c *PostgresCompiler) DialectName() string { return "postgres" }

func (c *PostgresCompiler) ParamPlaceholder(name string) string { return "%(" + name + ")s" }

func (c *PostgresCompiler) LikeOperator(op string) string { return op } // LIKE and ILIKE both native

func (c *PostgresCompiler) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (c *PostgresCompiler) BuildFuncCall(funcName string, args []plan.Operand, buildArg func(plan.Operand) (string, error)) (string, error) {
	if strings.ToUpper(funcName) == "DATE_PART" {
		return buildDatePart(args, buildArg)
	}
	return DefaultBuildFuncCall(funcName, args, buildArg)
}

// buildDatePart special-cases DATE_PART's two arguments:
//
//  1. The field-name argument (e.g. "year") must be an inline SQL string
//     literal. Passing it as a bound parameter leaves its type as
//     `unknown`, which Postgres cannot resolve to a date_part overload.
//  2. The source expression gets an explicit ::TIMESTAMP cast so the call
//     resolves even when the underlying column is stored as TEXT.
func buildDatePart(args []plan.Operand, buildArg func(plan.Operand) (string, error)) (string, error) {
	parts := make([]string, len(args))
	for i, arg := range args {
		switch {
		case i == 0:
			if v, ok := arg.(plan.ValueOperand); ok {
				if s, ok := v.Value.(string); ok {
					parts[i] = "'" + strings.ReplaceAll(s, "'", "''") + "'"
					continue
				}
			}
			s, err := buildArg(arg)
			if err != nil {
				return "", err
			}
			parts[i] = s
		case i == 1:
			s, err := buildArg(arg)
			if err != nil {
				return "", err
			}
			parts[i] = s + "::TIMESTAMP"
		default:
			s, err := buildArg(arg)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
	}
	return "DATE_PART(" + strings.Join(parts, ", ") + ")", nil
}
