package compile

import "github.com/brickql/brickql-go/pkg/brickql/schema"

// Context packages the (compiler, snapshot) pair every clause-level and
// expression-level sub-builder needs, replacing what would otherwise be a
// repeated two-field data clump across every builder constructor.
type Context struct {
	Compiler SQLCompiler
	Snapshot *schema.Snapshot
}
