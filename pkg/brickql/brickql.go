// Package brickql is the top-level entry point for the query plan
// pipeline: parse a JSON-encoded QueryPlan, validate it against a schema
// snapshot and dialect profile, apply row/column policy, and compile the
// result to parameterized SQL for one target dialect.
package brickql

import (
	"time"

	"go.uber.org/zap"

	"github.com/brickql/brickql-go/pkg/brickql/compile"
	"github.com/brickql/brickql-go/pkg/brickql/dialect"
	"github.com/brickql/brickql-go/pkg/brickql/plan"
	"github.com/brickql/brickql-go/pkg/brickql/policy"
	"github.com/brickql/brickql-go/pkg/brickql/schema"
	"github.com/brickql/brickql-go/pkg/brickql/validate"
	"github.com/brickql/brickql-go/pkg/logging"
)

// ValidateAndCompile runs the full pipeline against a JSON-encoded
// QueryPlan: parse, validate, apply policy, compile. Every stage returns a
// *brickqlerr.Error identifying exactly which stage rejected the plan and
// why.
func ValidateAndCompile(planJSON []byte, snap *schema.Snapshot, dial *dialect.Profile, pol *policy.Config) (*compile.CompiledSQL, error) {
	p, err := plan.Parse(planJSON)
	if err != nil {
		return nil, err
	}

	if err := validate.New(snap, dial).Validate(p, nil); err != nil {
		return nil, err
	}

	policed, err := policy.New(pol, snap, dial).Apply(p)
	if err != nil {
		return nil, err
	}

	compiler, err := compile.DefaultCompilerFactory.Create(string(dial.Target))
	if err != nil {
		return nil, err
	}
	return compile.New(compiler, snap).Build(policed)
}

// Logging wraps ValidateAndCompile and writes one structured log line per
// call: an error line with the error, duration and dialect, or a success
// line with the compiled SQL (passed through pkg/logging's SanitizeQuery),
// the param count, the required param names, duration and dialect. The
// core pipeline stays logger-free and I/O-free; param values are never
// logged.
func Logging(logger *zap.Logger, planJSON []byte, snap *schema.Snapshot, dial *dialect.Profile, pol *policy.Config) (*compile.CompiledSQL, error) {
	start := time.Now()
	compiled, err := ValidateAndCompile(planJSON, snap, dial, pol)
	duration := time.Since(start)

	if err != nil {
		logger.Error("validate_and_compile failed",
			zap.Error(err),
			zap.Duration("duration", duration),
			zap.String("dialect", string(dial.Target)),
		)
		return nil, err
	}

	logger.Info("validate_and_compile succeeded",
		zap.String("sql", logging.SanitizeQuery(compiled.SQL)),
		zap.Int("param_count", len(compiled.Params)),
		zap.Strings("required_params", compiled.RequiredParams),
		zap.Duration("duration", duration),
		zap.String("dialect", compiled.Dialect),
	)
	return compiled, nil
}
