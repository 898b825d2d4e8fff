package schema

import "fmt"

// InferRelationships returns a copy of snap with relationships inferred
// from column naming conventions, for schemas that omit real foreign-key
// declarations. For every column whose name ends in "_id", it looks for a
// table named {prefix} or {prefix}s (prefix being the part before "_id")
// that has an "id" column, and synthesizes a relationship to it.
// Relationships already present are preserved; only new ones are added.
func InferRelationships(snap *Snapshot) *Snapshot {
	tableMap := make(map[string]*TableInfo, len(snap.Tables))
	for i := range snap.Tables {
		tableMap[snap.Tables[i].Name] = &snap.Tables[i]
	}
	existingKeys := make(map[string]bool, len(snap.Relationships))
	for _, r := range snap.Relationships {
		existingKeys[r.Key] = true
	}

	pairCount := map[[2]string]int{}
	for _, t := range snap.Tables {
		seen := map[[2]string]bool{}
		for _, c := range t.Columns {
			to := resolveCandidateTable(c.Name, tableMap)
			if to == "" {
				continue
			}
			pair := [2]string{t.Name, to}
			if !seen[pair] {
				pairCount[pair]++
				seen[pair] = true
			}
		}
	}

	var newRels []RelationshipInfo
	extraKeys := map[string][]string{}

	for _, t := range snap.Tables {
		for _, c := range t.Columns {
			to := resolveCandidateTable(c.Name, tableMap)
			if to == "" {
				continue
			}
			key := relKey(t.Name, c.Name, to, pairCount)
			if existingKeys[key] {
				continue
			}
			existingKeys[key] = true
			newRels = append(newRels, RelationshipInfo{
				Key: key, From: t.Name, FromCol: c.Name, To: to, ToCol: "id",
			})
			extraKeys[t.Name] = append(extraKeys[t.Name], key)
			if to != t.Name {
				extraKeys[to] = append(extraKeys[to], key)
			}
		}
	}

	if len(newRels) == 0 {
		return snap
	}

	out := &Snapshot{Relationships: append(append([]RelationshipInfo{}, snap.Relationships...), newRels...)}
	for _, t := range snap.Tables {
		out.Tables = append(out.Tables, TableInfo{
			Name:          t.Name,
			Columns:       t.Columns,
			Relationships: append(append([]string{}, t.Relationships...), extraKeys[t.Name]...),
		})
	}
	return out
}

func resolveCandidateTable(colName string, tableMap map[string]*TableInfo) string {
	const suffix = "_id"
	if len(colName) <= len(suffix) || colName[len(colName)-len(suffix):] != suffix {
		return ""
	}
	prefix := colName[:len(colName)-len(suffix)]
	for _, candidate := range []string{prefix, prefix + "s"} {
		if t, ok := tableMap[candidate]; ok && t.HasColumn("id") {
			return candidate
		}
	}
	return ""
}

// relKey builds the {to}__{from} relationship key, disambiguating with the
// FK column name when the relationship is self-referential or when multiple
// columns on the same table point at the same parent.
func relKey(from, fromCol, to string, pairCount map[[2]string]int) string {
	ambiguous := from == to || pairCount[[2]string{from, to}] > 1
	if ambiguous {
		return fmt.Sprintf("%s__%s__%s", to, from, fromCol)
	}
	return fmt.Sprintf("%s__%s", to, from)
}
