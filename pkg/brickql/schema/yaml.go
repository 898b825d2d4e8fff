package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// LoadSnapshotYAML decodes a flat YAML fixture directly into a Snapshot —
// a flat-file alternative to constructing Snapshot/TableInfo/ColumnInfo
// literals by hand, used by the demo binary and by tests that need a
// schema fixture on disk. It does not infer anything; pass the result
// through InferRelationships if the fixture omits Relationships.
func LoadSnapshotYAML(data []byte) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := yaml.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("schema: invalid snapshot YAML: %w", err)
	}
	return snap, nil
}
