package plan

import (
	"fmt"

	"github.com/brickql/brickql-go/pkg/brickql/brickqlerr"
)

// newParseErrorf builds a ParseError carrying the jq-style path, the
// offending value, and what was expected — the shape §4.1 requires for
// every structurally ill-formed input. The code is always `parse.malformed`;
// callers needing a more specific code (e.g. `parse.unknown_clause`) use
// brickqlerr.NewParseError directly.
func newParseErrorf(path string, got any, expected string, format string, args ...any) *brickqlerr.Error {
	return brickqlerr.NewParseError(
		"parse.malformed",
		fmt.Sprintf(format, args...),
		map[string]any{"path": path, "got": got, "expected": expected},
	)
}

// newParseErrorCode is like newParseErrorf but lets the caller name the
// specific parse.<kind> code (e.g. "parse.unknown_clause").
func newParseErrorCode(code, path string, got any, expected string, format string, args ...any) *brickqlerr.Error {
	return brickqlerr.NewParseError(
		code,
		fmt.Sprintf(format, args...),
		map[string]any{"path": path, "got": got, "expected": expected},
	)
}
