package compile

import (
	"fmt"

	"github.com/brickql/brickql-go/pkg/brickql/brickqlerr"
	"github.com/brickql/brickql-go/pkg/brickql/policy"
)

// CompiledSQL is the output of a successful compilation.
type CompiledSQL struct {
	// SQL is the compiled statement with named placeholders.
	SQL string
	// Params holds literal values lifted out of `{"value": ...}` operands,
	// keyed by the synthetic names the compiler assigned them
	// ("param_0", "param_1", ...). These are always present; the caller
	// never supplies them.
	Params map[string]any
	// RequiredParams are the runtime-supplied parameter names referenced
	// via `{"param": NAME}` operands anywhere in the statement (including
	// CTEs, subqueries, and SET_OP branches). The caller must supply every
	// one of these in MergeRuntimeParams.
	RequiredParams []string
	// Dialect is the target dialect name ("postgres", "sqlite", "mysql").
	Dialect string
}

// MergeRuntimeParams combines the compiled literal params with
// caller-supplied runtime values into a single map ready for query
// execution.
//
// Unlike a naive `{**params, **runtime}` merge, this rejects two failure
// modes that would otherwise execute the wrong query silently: a runtime
// param the statement requires having no value supplied, and a
// runtime key colliding with one of the compiler's own literal param
// names (which would silently overwrite a literal value).
func (c *CompiledSQL) MergeRuntimeParams(runtime map[string]any) (map[string]any, error) {
	for _, name := range c.RequiredParams {
		if _, ok := runtime[name]; !ok {
			return nil, brickqlerr.NewCompilationError("runtime.missing_param",
				fmt.Sprintf("statement requires runtime param %q but none was supplied", name),
				map[string]any{"param": name})
		}
	}

	if flagged := policy.ScanRuntimeParams(runtime); len(flagged) > 0 {
		fingerprints := make([]string, len(flagged))
		for i, f := range flagged {
			fingerprints[i] = f.ParamName + ":" + f.Fingerprint
		}
		return nil, brickqlerr.NewCompilationError("runtime.suspicious_param",
			"one or more runtime parameters resemble a SQL injection payload",
			map[string]any{"flagged": fingerprints})
	}

	merged := make(map[string]any, len(c.Params)+len(runtime))
	for k, v := range c.Params {
		merged[k] = v
	}
	for k, v := range runtime {
		if _, exists := merged[k]; exists {
			return nil, brickqlerr.NewCompilationError("runtime.param_collision",
				fmt.Sprintf("runtime param %q collides with a name already bound by the compiler", k),
				map[string]any{"param": k})
		}
		merged[k] = v
	}
	return merged, nil
}
