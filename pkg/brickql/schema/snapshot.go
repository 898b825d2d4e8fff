// Package schema models the subset of a database schema the planner is
// allowed to reference: tables, columns, and named relationships. A
// SchemaSnapshot is produced by the caller, never by brickQL itself, and
// is injected into both validation and (optionally) prompt assembly.
package schema

// ColumnInfo describes a single column.
type ColumnInfo struct {
	Name     string
	Type     string
	Nullable bool
}

// RelationshipInfo is a named, pre-defined JOIN relationship between two
// tables. Plans reference relationships by Key; they never supply ad-hoc
// ON clauses.
type RelationshipInfo struct {
	Key      string
	From     string
	FromCol  string
	To       string
	ToCol    string
}

// TableInfo describes a single table visible to the planner.
type TableInfo struct {
	Name          string
	Columns       []ColumnInfo
	Relationships []string
}

// ColumnNames returns every column name on the table, in declared order.
func (t TableInfo) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether the table declares a column with this name.
func (t TableInfo) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Snapshot is the schema the planner may reference: every table, column,
// and relationship key named in it is in bounds; anything else is not.
type Snapshot struct {
	Tables        []TableInfo
	Relationships []RelationshipInfo
}

// Table returns the TableInfo for name, or nil if it is not in the snapshot.
func (s *Snapshot) Table(name string) *TableInfo {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Relationship returns the RelationshipInfo for key, or nil if unknown.
func (s *Snapshot) Relationship(key string) *RelationshipInfo {
	for i := range s.Relationships {
		if s.Relationships[i].Key == key {
			return &s.Relationships[i]
		}
	}
	return nil
}

// Column returns the ColumnInfo for a table.column pair, or nil if either
// the table or the column is unknown.
func (s *Snapshot) Column(table, column string) *ColumnInfo {
	t := s.Table(table)
	if t == nil {
		return nil
	}
	for i := range t.Columns {
		if t.Columns[i].Name == column {
			return &t.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns the column names for table, or an empty slice if
// the table is unknown — callers never need to nil-check a TableInfo.
func (s *Snapshot) ColumnNames(table string) []string {
	t := s.Table(table)
	if t == nil {
		return nil
	}
	return t.ColumnNames()
}

// TableNames returns every table name in the snapshot.
func (s *Snapshot) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// RelationshipKeys returns every relationship key in the snapshot.
func (s *Snapshot) RelationshipKeys() []string {
	keys := make([]string, len(s.Relationships))
	for i, r := range s.Relationships {
		keys[i] = r.Key
	}
	return keys
}
