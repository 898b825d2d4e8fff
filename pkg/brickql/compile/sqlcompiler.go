// Package compile turns a validated, policy-approved QueryPlan into
// parameterized SQL for a specific dialect. Dialect-specific behaviour
// (placeholder style, LIKE support, identifier quoting, function
// rendering) is delegated to an injected SQLCompiler; clause-shaped
// rendering lives in the focused sub-builders in clauses.go and
// expression.go.
package compile

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/brickql/brickql-go/pkg/brickql/brickqlerr"
	"github.com/brickql/brickql-go/pkg/brickql/plan"
)

// SQLCompiler is the dialect-specific strategy the QueryBuilder delegates
// to for everything that differs between Postgres, SQLite, and MySQL.
type SQLCompiler interface {
	// ParamPlaceholder returns the SQL placeholder for a named parameter.
	ParamPlaceholder(name string) string
	// LikeOperator returns the SQL keyword for a LIKE/ILIKE operator;
	// dialects without ILIKE fall back to LIKE.
	LikeOperator(op string) string
	// QuoteIdentifier returns a properly quoted table/column identifier.
	QuoteIdentifier(name string) string
	// DialectName returns the canonical dialect name.
	DialectName() string
	// BuildFuncCall renders a function call. buildArg compiles a single
	// argument operand to SQL; most dialects delegate straight to
	// DefaultBuildFuncCall, overriding only for functions (e.g. DATE_PART)
	// whose SQL shape differs by dialect.
	BuildFuncCall(funcName string, args []plan.Operand, buildArg func(plan.Operand) (string, error)) (string, error)
}

// DefaultBuildFuncCall renders `FUNC(arg1, arg2, ...)` with the function
// name upper-cased. Every compiler falls back to this for functions it
// does not special-case.
func DefaultBuildFuncCall(funcName string, args []plan.Operand, buildArg func(plan.Operand) (string, error)) (string, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		s, err := buildArg(a)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.ToUpper(funcName) + "(" + strings.Join(parts, ", ") + ")", nil
}

// ---------------------------------------------------------------------------
// Compiler factory
// ---------------------------------------------------------------------------

// CompilerFactory is a registry mapping dialect target names to SQLCompiler
// constructors, so a new dialect can be added without editing the
// top-level pipeline entry point.
type CompilerFactory struct {
	mu        sync.RWMutex
	compilers map[string]func() SQLCompiler
}

// NewCompilerFactory returns an empty factory.
func NewCompilerFactory() *CompilerFactory {
	return &CompilerFactory{compilers: map[string]func() SQLCompiler{}}
}

// Register adds (or replaces) the constructor for a dialect target name.
func (f *CompilerFactory) Register(name string, ctor func() SQLCompiler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compilers[name] = ctor
}

// Create instantiates the compiler registered for name.
func (f *CompilerFactory) Create(name string) (SQLCompiler, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ctor, ok := f.compilers[name]
	if !ok {
		return nil, brickqlerr.NewCompilationError("compile.unsupported_dialect",
			fmt.Sprintf("unsupported dialect target %q; registered targets: %v", name, f.registeredTargetsLocked()),
			map[string]any{"target": name, "registered_targets": f.registeredTargetsLocked()})
	}
	return ctor(), nil
}

// RegisteredTargets returns the sorted list of registered dialect names.
func (f *CompilerFactory) RegisteredTargets() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.registeredTargetsLocked()
}

func (f *CompilerFactory) registeredTargetsLocked() []string {
	out := make([]string, 0, len(f.compilers))
	for name := range f.compilers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultCompilerFactory is the process-wide factory pre-populated with the
// three built-in compilers; extensions register additional dialects here.
var DefaultCompilerFactory = NewCompilerFactory()

func init() {
	DefaultCompilerFactory.Register("postgres", func() SQLCompiler { return &PostgresCompiler{} })
	DefaultCompilerFactory.Register("sqlite", func() SQLCompiler { return &SQLiteCompiler{} })
	DefaultCompilerFactory.Register("mysql", func() SQLCompiler { return &MySQLCompiler{} })
}

// ---------------------------------------------------------------------------
// Operator registry
// ---------------------------------------------------------------------------

// OperatorHandler renders a single typed Predicate node to SQL, delegating
// nested operand/predicate/subquery compilation back through pb.
type OperatorHandler func(pb *PredicateBuilder, pred plan.Predicate) (string, error)

// OperatorRegistry maps a predicate operator key (e.g. "EQ", "BETWEEN",
// "NOT_IN") to the handler that renders it. Built-in operators are
// registered in expression.go's init(); callers may register additional
// operators (e.g. "REGEXP") without touching PredicateBuilder itself.
type OperatorRegistry struct {
	mu       sync.RWMutex
	handlers map[string]OperatorHandler
}

// NewOperatorRegistry returns an empty registry.
func NewOperatorRegistry() *OperatorRegistry {
	return &OperatorRegistry{handlers: map[string]OperatorHandler{}}
}

// Register adds (or replaces) the handler for an operator key.
func (r *OperatorRegistry) Register(name string, handler OperatorHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Get returns the handler registered for name, if any.
func (r *OperatorRegistry) Get(name string) (OperatorHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// RegisteredOperators returns the sorted list of registered operator keys.
func (r *OperatorRegistry) RegisteredOperators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultOperatorRegistry is the process-wide registry every PredicateBuilder
// consults unless constructed with a different one.
var DefaultOperatorRegistry = NewOperatorRegistry()
