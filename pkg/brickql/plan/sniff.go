package plan

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// RawSQLSniff is a read-only diagnostic summary of a raw SQL string:
// the tables it reads and the column names it selects, according to the
// real Postgres grammar. It carries no structured plan and is never fed back
// into Parse, Validate, Apply, or Build.
type RawSQLSniff struct {
	Tables  []string
	Columns []string
}

// SniffRawSQL parses query with the Postgres grammar and reports the
// FROM/JOIN tables and the last name segment of each column reference that
// is a whole SELECT-list item or the whole WHERE clause; columns inside
// expressions, comparisons and subqueries are not collected. It is meant
// for callers migrating a raw-SQL
// reporting tool onto structured plans who want to sanity-check that the
// new plan references the same tables the old query did. It is diagnostic
// only: a parse failure here does not mean anything about the QueryPlan
// pipeline, which never calls this function itself.
func SniffRawSQL(query string) (*RawSQLSniff, error) {
	result, err := pg_query.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("plan: failed to parse raw SQL for sniffing: %w", err)
	}
	if len(result.Stmts) == 0 {
		return nil, fmt.Errorf("plan: no statements found in query")
	}

	sniff := &RawSQLSniff{}
	seenTables := map[string]bool{}
	seenColumns := map[string]bool{}

	for _, rawStmt := range result.Stmts {
		selectStmt := rawStmt.Stmt.GetSelectStmt()
		if selectStmt == nil {
			continue
		}
		for _, fromItem := range selectStmt.GetFromClause() {
			sniffFromItem(fromItem, sniff, seenTables)
		}
		for _, target := range selectStmt.GetTargetList() {
			resTarget := target.GetResTarget()
			if resTarget == nil {
				continue
			}
			sniffColumnRef(resTarget.GetVal().GetColumnRef(), sniff, seenColumns)
		}
		sniffColumnRef(selectStmt.GetWhereClause().GetColumnRef(), sniff, seenColumns)
	}

	return sniff, nil
}

func sniffFromItem(node *pg_query.Node, sniff *RawSQLSniff, seen map[string]bool) {
	if rangeVar := node.GetRangeVar(); rangeVar != nil {
		name := rangeVar.GetRelname()
		if name != "" && !seen[name] {
			seen[name] = true
			sniff.Tables = append(sniff.Tables, name)
		}
		return
	}
	if joinExpr := node.GetJoinExpr(); joinExpr != nil {
		sniffFromItem(joinExpr.GetLarg(), sniff, seen)
		sniffFromItem(joinExpr.GetRarg(), sniff, seen)
	}
}

func sniffColumnRef(columnRef *pg_query.ColumnRef, sniff *RawSQLSniff, seen map[string]bool) {
	if columnRef == nil {
		return
	}
	fields := columnRef.GetFields()
	if len(fields) == 0 {
		return
	}
	last := fields[len(fields)-1].GetString_()
	if last == nil {
		return
	}
	name := last.GetSval()
	if name == "" || seen[name] {
		return
	}
	seen[name] = true
	sniff.Columns = append(sniff.Columns, name)
}
