package plan

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SelectItem is one `{expr, alias?, distinct?, over?}` SELECT entry.
type SelectItem struct {
	Expr     Operand
	Alias    string
	Distinct bool
	Over     *WindowSpec
}

// FromClause is `{table}` or `{subquery, alias}`.
type FromClause struct {
	Table    string
	Subquery *QueryPlan
	Alias    string
}

// JoinClause is `{rel, type, alias?}` for a relationship-keyed join, or
// `{table, type: CROSS, alias?}` for a CROSS join — a Cartesian product has
// no relationship to resolve, so it names its right-hand table directly.
type JoinClause struct {
	Rel   string
	Table string
	Type  JoinType
	Alias string
}

// OrderByItem is `{expr, dir}`.
type OrderByItem struct {
	Expr Operand
	Dir  OrderDir
}

// LimitClause / OffsetClause are `{value: int}` or `{param: NAME}`.
type LimitClause struct {
	Value *int
	Param *string
}

// OffsetClause mirrors LimitClause.
type OffsetClause struct {
	Value *int
	Param *string
}

// WindowFrame is the `{type, start, end}` frame bound of a window spec.
type WindowFrame struct {
	Type  string
	Start string
	End   string
}

// WindowSpec is a named (or inline `over`) window definition.
type WindowSpec struct {
	Name        string
	PartitionBy []Operand
	OrderBy     []OrderByItem
	Frame       *WindowFrame
}

// SetOpClause is `{op, right}`.
type SetOpClause struct {
	Op    SetOpKind
	Right *QueryPlan
}

// CTEClause is one `{name, plan, recursive?}` entry of the WITH list.
type CTEClause struct {
	Name      string
	Plan      *QueryPlan
	Recursive bool
}

// QueryPlan is the typed tree mirroring the SELECT grammar (§3.5).
type QueryPlan struct {
	TraceID    string
	With       []CTEClause
	Select     []SelectItem
	SelectStar bool
	From       *FromClause
	Join       []JoinClause
	Where      Predicate
	GroupBy    []Operand
	Having     Predicate
	Window     []WindowSpec
	OrderBy    []OrderByItem
	Limit      *LimitClause
	Offset     *OffsetClause
	SetOp      *SetOpClause
}

var knownClauses = map[string]bool{
	"WITH": true, "SELECT": true, "FROM": true, "JOIN": true, "WHERE": true,
	"GROUP_BY": true, "HAVING": true, "WINDOW": true, "ORDER_BY": true,
	"LIMIT": true, "OFFSET": true, "SET_OP": true,
}

var cteKeys = map[string]bool{"name": true, "plan": true, "recursive": true}
var selectItemKeys = map[string]bool{"expr": true, "alias": true, "distinct": true, "over": true}
var fromKeys = map[string]bool{"table": true, "subquery": true, "alias": true}
var joinKeys = map[string]bool{"rel": true, "table": true, "type": true, "alias": true}
var orderByKeys = map[string]bool{"expr": true, "direction": true, "dir": true}
var limitOffsetKeys = map[string]bool{"value": true, "param": true}
var windowSpecKeys = map[string]bool{"name": true, "partition_by": true, "order_by": true, "frame": true}
var windowFrameKeys = map[string]bool{"type": true, "start": true, "end": true}
var setOpKeys = map[string]bool{"op": true, "right": true}

// rejectUnknownKeys raises a ParseError for any key of obj not in allowed,
// enforcing §6.2's "unknown keys at any level are a ParseError" at every
// nesting level, not just the top-level clause map.
func rejectUnknownKeys(path string, obj map[string]any, allowed map[string]bool) error {
	for key := range obj {
		if !allowed[key] {
			return newParseErrorCode("parse.unknown_key", path+"."+key, key, "a known key", "unknown key %q", key)
		}
	}
	return nil
}

// Parse decodes raw JSON bytes into a QueryPlan, producing a ParseError on
// any structurally ill-formed input. The parser does not consult the
// schema — it only knows the grammar.
func Parse(data []byte) (*QueryPlan, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, newParseErrorCode("parse.invalid_json", "$", nil, "well-formed JSON", "invalid JSON: %v", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, newParseErrorCode("parse.invalid_plan", "$", raw, "a QueryPlan object", "top level must be a JSON object")
	}
	plan, err := decodeQueryPlan("$", obj)
	if err != nil {
		return nil, err
	}
	plan.TraceID = uuid.NewString()
	return plan, nil
}

func decodeQueryPlan(path string, obj map[string]any) (*QueryPlan, error) {
	for key := range obj {
		if !knownClauses[key] {
			return nil, newParseErrorCode("parse.unknown_clause", path+"."+key, key, "one of "+clauseList(),
				"unknown clause %q", key)
		}
	}

	plan := &QueryPlan{}

	if raw, ok := obj["WITH"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, newParseErrorCode("parse.invalid_with", path+".WITH", raw, "array of CTE entries", "WITH must be an array")
		}
		for i, c := range list {
			cte, err := decodeCTE(fmt.Sprintf("%s.WITH[%d]", path, i), c)
			if err != nil {
				return nil, err
			}
			plan.With = append(plan.With, cte)
		}
	}

	if raw, ok := obj["SELECT"]; ok {
		if s, isStr := raw.(string); isStr {
			if s != "*" {
				return nil, newParseErrorCode("parse.invalid_select", path+".SELECT", raw, `"*" or array of select items`, "SELECT string must be \"*\"")
			}
			plan.SelectStar = true
		} else {
			list, ok := raw.([]any)
			if !ok || len(list) == 0 {
				return nil, newParseErrorCode("parse.invalid_select", path+".SELECT", raw, "non-empty array of select items", "SELECT must be a non-empty array or \"*\"")
			}
			seenAlias := map[string]bool{}
			for i, item := range list {
				si, err := decodeSelectItem(fmt.Sprintf("%s.SELECT[%d]", path, i), item)
				if err != nil {
					return nil, err
				}
				if si.Alias != "" {
					if seenAlias[si.Alias] {
						return nil, newParseErrorCode("parse.duplicate_alias", fmt.Sprintf("%s.SELECT[%d].alias", path, i), si.Alias, "a unique alias", "duplicate SELECT alias %q", si.Alias)
					}
					seenAlias[si.Alias] = true
				}
				plan.Select = append(plan.Select, si)
			}
		}
	}

	if raw, ok := obj["FROM"]; ok {
		from, err := decodeFrom(path+".FROM", raw)
		if err != nil {
			return nil, err
		}
		plan.From = from
	}

	if raw, ok := obj["JOIN"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, newParseErrorCode("parse.invalid_join", path+".JOIN", raw, "array of join clauses", "JOIN must be an array")
		}
		for i, j := range list {
			jc, err := decodeJoin(fmt.Sprintf("%s.JOIN[%d]", path, i), j)
			if err != nil {
				return nil, err
			}
			plan.Join = append(plan.Join, jc)
		}
	}

	if raw, ok := obj["WHERE"]; ok {
		where, err := DecodePredicate(path+".WHERE", raw)
		if err != nil {
			return nil, err
		}
		plan.Where = where
	}

	if raw, ok := obj["GROUP_BY"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, newParseErrorCode("parse.invalid_group_by", path+".GROUP_BY", raw, "array of operands", "GROUP_BY must be an array")
		}
		for i, g := range list {
			op, err := DecodeOperand(fmt.Sprintf("%s.GROUP_BY[%d]", path, i), g)
			if err != nil {
				return nil, err
			}
			plan.GroupBy = append(plan.GroupBy, op)
		}
	}

	if raw, ok := obj["HAVING"]; ok {
		having, err := DecodePredicate(path+".HAVING", raw)
		if err != nil {
			return nil, err
		}
		plan.Having = having
	}

	if raw, ok := obj["WINDOW"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, newParseErrorCode("parse.invalid_window", path+".WINDOW", raw, "array of window specs", "WINDOW must be an array")
		}
		for i, w := range list {
			spec, err := decodeWindowSpec(fmt.Sprintf("%s.WINDOW[%d]", path, i), w, true)
			if err != nil {
				return nil, err
			}
			plan.Window = append(plan.Window, *spec)
		}
	}

	if raw, ok := obj["ORDER_BY"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, newParseErrorCode("parse.invalid_order_by", path+".ORDER_BY", raw, "array of order-by items", "ORDER_BY must be an array")
		}
		for i, o := range list {
			item, err := decodeOrderByItem(fmt.Sprintf("%s.ORDER_BY[%d]", path, i), o)
			if err != nil {
				return nil, err
			}
			plan.OrderBy = append(plan.OrderBy, item)
		}
	}

	if raw, ok := obj["LIMIT"]; ok {
		lim, err := decodeLimitOffset(path+".LIMIT", raw)
		if err != nil {
			return nil, err
		}
		plan.Limit = &LimitClause{Value: lim.Value, Param: lim.Param}
	}

	if raw, ok := obj["OFFSET"]; ok {
		off, err := decodeLimitOffset(path+".OFFSET", raw)
		if err != nil {
			return nil, err
		}
		plan.Offset = &OffsetClause{Value: off.Value, Param: off.Param}
	}

	if raw, ok := obj["SET_OP"]; ok {
		so, err := decodeSetOp(path+".SET_OP", raw)
		if err != nil {
			return nil, err
		}
		plan.SetOp = so
	}

	return plan, nil
}

func clauseList() string {
	return "WITH, SELECT, FROM, JOIN, WHERE, GROUP_BY, HAVING, WINDOW, ORDER_BY, LIMIT, OFFSET, SET_OP"
}

func decodeCTE(path string, raw any) (CTEClause, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return CTEClause{}, newParseErrorCode("parse.invalid_cte", path, raw, "object with name/plan", "CTE entry must be an object")
	}
	if err := rejectUnknownKeys(path, obj, cteKeys); err != nil {
		return CTEClause{}, err
	}
	name, ok := obj["name"].(string)
	if !ok || name == "" {
		return CTEClause{}, newParseErrorCode("parse.invalid_cte", path+".name", obj["name"], "non-empty string", "CTE entry requires a non-empty name")
	}
	planRaw, ok := obj["plan"].(map[string]any)
	if !ok {
		return CTEClause{}, newParseErrorCode("parse.invalid_cte", path+".plan", obj["plan"], "a QueryPlan object", "CTE entry requires a 'plan' object")
	}
	body, err := decodeQueryPlan(path+".plan", planRaw)
	if err != nil {
		return CTEClause{}, err
	}
	recursive, _ := obj["recursive"].(bool)
	return CTEClause{Name: name, Plan: body, Recursive: recursive}, nil
}

func decodeSelectItem(path string, raw any) (SelectItem, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return SelectItem{}, newParseErrorCode("parse.invalid_select_item", path, raw, `{"expr": Operand, ...}`, "SELECT item must be an object")
	}
	if err := rejectUnknownKeys(path, obj, selectItemKeys); err != nil {
		return SelectItem{}, err
	}
	exprRaw, ok := obj["expr"]
	if !ok {
		return SelectItem{}, newParseErrorCode("parse.invalid_select_item", path+".expr", nil, "Operand", "SELECT item missing 'expr'")
	}
	expr, err := DecodeOperand(path+".expr", exprRaw)
	if err != nil {
		return SelectItem{}, err
	}
	alias, _ := obj["alias"].(string)
	distinct, _ := obj["distinct"].(bool)
	item := SelectItem{Expr: expr, Alias: alias, Distinct: distinct}
	if overRaw, ok := obj["over"]; ok {
		spec, err := decodeWindowSpec(path+".over", overRaw, false)
		if err != nil {
			return SelectItem{}, err
		}
		item.Over = spec
	}
	return item, nil
}

func decodeFrom(path string, raw any) (*FromClause, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, newParseErrorCode("parse.invalid_from", path, raw, `{"table": ...} or {"subquery": ..., "alias": ...}`, "FROM must be an object")
	}
	if err := rejectUnknownKeys(path, obj, fromKeys); err != nil {
		return nil, err
	}
	if table, ok := obj["table"].(string); ok {
		alias, _ := obj["alias"].(string)
		return &FromClause{Table: table, Alias: alias}, nil
	}
	if subRaw, ok := obj["subquery"].(map[string]any); ok {
		alias, _ := obj["alias"].(string)
		if alias == "" {
			return nil, newParseErrorCode("parse.invalid_from", path+".alias", nil, "non-empty string", "FROM subquery requires an alias")
		}
		sub, err := decodeQueryPlan(path+".subquery", subRaw)
		if err != nil {
			return nil, err
		}
		return &FromClause{Subquery: sub, Alias: alias}, nil
	}
	return nil, newParseErrorCode("parse.invalid_from", path, raw, "'table' or 'subquery' key", "FROM clause must specify 'table' or 'subquery'")
}

var joinTypes = map[string]JoinType{
	"INNER": JoinInner, "LEFT": JoinLeft, "RIGHT": JoinRight, "FULL": JoinFull, "CROSS": JoinCross,
}

func decodeJoin(path string, raw any) (JoinClause, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return JoinClause{}, newParseErrorCode("parse.invalid_join", path, raw, "join clause object", "JOIN entry must be an object")
	}
	if err := rejectUnknownKeys(path, obj, joinKeys); err != nil {
		return JoinClause{}, err
	}
	typeStr, ok := obj["type"].(string)
	if !ok {
		return JoinClause{}, newParseErrorCode("parse.invalid_join", path+".type", obj["type"], "INNER|LEFT|RIGHT|FULL|CROSS", "JOIN entry requires 'type'")
	}
	jt, ok := joinTypes[typeStr]
	if !ok {
		return JoinClause{}, newParseErrorCode("parse.invalid_join", path+".type", typeStr, "INNER|LEFT|RIGHT|FULL|CROSS", "unknown join type %q", typeStr)
	}
	alias, _ := obj["alias"].(string)
	if jt == JoinCross {
		table, ok := obj["table"].(string)
		if !ok || table == "" {
			return JoinClause{}, newParseErrorCode("parse.invalid_join", path+".table", obj["table"], "non-empty string", "CROSS JOIN requires 'table'")
		}
		return JoinClause{Table: table, Type: jt, Alias: alias}, nil
	}
	rel, ok := obj["rel"].(string)
	if !ok || rel == "" {
		return JoinClause{}, newParseErrorCode("parse.invalid_join", path+".rel", obj["rel"], "non-empty string", "non-CROSS JOIN requires 'rel'")
	}
	return JoinClause{Rel: rel, Type: jt, Alias: alias}, nil
}

func decodeOrderByItem(path string, raw any) (OrderByItem, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return OrderByItem{}, newParseErrorCode("parse.invalid_order_by", path, raw, `{"expr": Operand, "direction"?: ASC|DESC}`, "ORDER_BY item must be an object")
	}
	if err := rejectUnknownKeys(path, obj, orderByKeys); err != nil {
		return OrderByItem{}, err
	}
	exprRaw, ok := obj["expr"]
	if !ok {
		return OrderByItem{}, newParseErrorCode("parse.invalid_order_by", path+".expr", nil, "Operand", "ORDER_BY item missing 'expr'")
	}
	expr, err := DecodeOperand(path+".expr", exprRaw)
	if err != nil {
		return OrderByItem{}, err
	}
	dir := OrderAsc
	if dirRaw, ok := obj["direction"].(string); ok {
		switch dirRaw {
		case "ASC":
			dir = OrderAsc
		case "DESC":
			dir = OrderDesc
		default:
			return OrderByItem{}, newParseErrorCode("parse.invalid_order_by", path+".direction", dirRaw, "ASC|DESC", "unknown direction %q", dirRaw)
		}
	} else if dirRaw, ok := obj["dir"].(string); ok {
		switch dirRaw {
		case "ASC":
			dir = OrderAsc
		case "DESC":
			dir = OrderDesc
		default:
			return OrderByItem{}, newParseErrorCode("parse.invalid_order_by", path+".dir", dirRaw, "ASC|DESC", "unknown direction %q", dirRaw)
		}
	}
	return OrderByItem{Expr: expr, Dir: dir}, nil
}

func decodeLimitOffsetValue(path string, raw any) (*int, *string, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, nil, newParseErrorCode("parse.invalid_limit", path, raw, `{"value": int} or {"param": NAME}`, "must be an object")
	}
	if err := rejectUnknownKeys(path, obj, limitOffsetKeys); err != nil {
		return nil, nil, err
	}
	if v, ok := obj["value"]; ok {
		var n int
		switch num := v.(type) {
		case float64:
			if num != float64(int(num)) {
				return nil, nil, newParseErrorCode("parse.invalid_limit", path+".value", v, "non-negative integer", "value must be an integer")
			}
			n = int(num)
		case int:
			n = num
		default:
			return nil, nil, newParseErrorCode("parse.invalid_limit", path+".value", v, "non-negative integer", "value must be an integer")
		}
		return &n, nil, nil
	}
	if p, ok := obj["param"].(string); ok {
		return nil, &p, nil
	}
	return nil, nil, newParseErrorCode("parse.invalid_limit", path, raw, "'value' or 'param' key", "must specify 'value' or 'param'")
}

type limitOffsetResult struct {
	Value *int
	Param *string
}

func decodeLimitOffset(path string, raw any) (limitOffsetResult, error) {
	v, p, err := decodeLimitOffsetValue(path, raw)
	if err != nil {
		return limitOffsetResult{}, err
	}
	return limitOffsetResult{Value: v, Param: p}, nil
}

func decodeWindowSpec(path string, raw any, requireName bool) (*WindowSpec, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, newParseErrorCode("parse.invalid_window", path, raw, "window spec object", "window spec must be an object")
	}
	if err := rejectUnknownKeys(path, obj, windowSpecKeys); err != nil {
		return nil, err
	}
	name, _ := obj["name"].(string)
	if requireName && name == "" {
		return nil, newParseErrorCode("parse.invalid_window", path+".name", obj["name"], "non-empty string", "named window spec requires 'name'")
	}
	spec := &WindowSpec{Name: name}
	if pbRaw, ok := obj["partition_by"].([]any); ok {
		for i, p := range pbRaw {
			op, err := DecodeOperand(fmt.Sprintf("%s.partition_by[%d]", path, i), p)
			if err != nil {
				return nil, err
			}
			spec.PartitionBy = append(spec.PartitionBy, op)
		}
	}
	if obRaw, ok := obj["order_by"].([]any); ok {
		for i, o := range obRaw {
			item, err := decodeOrderByItem(fmt.Sprintf("%s.order_by[%d]", path, i), o)
			if err != nil {
				return nil, err
			}
			spec.OrderBy = append(spec.OrderBy, item)
		}
	}
	if frameRaw, ok := obj["frame"].(map[string]any); ok {
		if err := rejectUnknownKeys(path+".frame", frameRaw, windowFrameKeys); err != nil {
			return nil, err
		}
		frameType, _ := frameRaw["type"].(string)
		start, _ := frameRaw["start"].(string)
		end, _ := frameRaw["end"].(string)
		spec.Frame = &WindowFrame{Type: frameType, Start: start, End: end}
	}
	return spec, nil
}

var setOpKinds = map[string]SetOpKind{
	"UNION": SetOpUnion, "UNION_ALL": SetOpUnionAll, "INTERSECT": SetOpIntersect, "EXCEPT": SetOpExcept,
}

func decodeSetOp(path string, raw any) (*SetOpClause, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, newParseErrorCode("parse.invalid_set_op", path, raw, `{"op": ..., "right": QueryPlan}`, "SET_OP must be an object")
	}
	if err := rejectUnknownKeys(path, obj, setOpKeys); err != nil {
		return nil, err
	}
	opStr, ok := obj["op"].(string)
	if !ok {
		return nil, newParseErrorCode("parse.invalid_set_op", path+".op", obj["op"], "UNION|UNION_ALL|INTERSECT|EXCEPT", "SET_OP requires 'op'")
	}
	kind, ok := setOpKinds[opStr]
	if !ok {
		return nil, newParseErrorCode("parse.invalid_set_op", path+".op", opStr, "UNION|UNION_ALL|INTERSECT|EXCEPT", "unknown set operator %q", opStr)
	}
	rightRaw, ok := obj["right"].(map[string]any)
	if !ok {
		return nil, newParseErrorCode("parse.invalid_set_op", path+".right", obj["right"], "a QueryPlan object", "SET_OP requires 'right'")
	}
	right, err := decodeQueryPlan(path+".right", rightRaw)
	if err != nil {
		return nil, err
	}
	return &SetOpClause{Op: kind, Right: right}, nil
}

// EncodeQueryPlan serialises a QueryPlan back to its JSON grammar form.
func EncodeQueryPlan(p *QueryPlan) (any, error) {
	out := map[string]any{}

	if len(p.With) > 0 {
		list := make([]any, len(p.With))
		for i, c := range p.With {
			body, err := EncodeQueryPlan(c.Plan)
			if err != nil {
				return nil, err
			}
			entry := map[string]any{"name": c.Name, "plan": body}
			if c.Recursive {
				entry["recursive"] = true
			}
			list[i] = entry
		}
		out["WITH"] = list
	}

	if p.SelectStar {
		out["SELECT"] = "*"
	} else if len(p.Select) > 0 {
		list := make([]any, len(p.Select))
		for i, item := range p.Select {
			enc, err := EncodeOperand(item.Expr)
			if err != nil {
				return nil, err
			}
			entry := map[string]any{"expr": enc}
			if item.Alias != "" {
				entry["alias"] = item.Alias
			}
			if item.Distinct {
				entry["distinct"] = true
			}
			if item.Over != nil {
				over, err := encodeWindowSpec(item.Over)
				if err != nil {
					return nil, err
				}
				entry["over"] = over
			}
			list[i] = entry
		}
		out["SELECT"] = list
	}

	if p.From != nil {
		from := map[string]any{}
		if p.From.Table != "" {
			from["table"] = p.From.Table
		} else if p.From.Subquery != nil {
			sub, err := EncodeQueryPlan(p.From.Subquery)
			if err != nil {
				return nil, err
			}
			from["subquery"] = sub
		}
		if p.From.Alias != "" {
			from["alias"] = p.From.Alias
		}
		out["FROM"] = from
	}

	if len(p.Join) > 0 {
		list := make([]any, len(p.Join))
		for i, j := range p.Join {
			entry := map[string]any{"type": string(j.Type)}
			if j.Rel != "" {
				entry["rel"] = j.Rel
			}
			if j.Table != "" {
				entry["table"] = j.Table
			}
			if j.Alias != "" {
				entry["alias"] = j.Alias
			}
			list[i] = entry
		}
		out["JOIN"] = list
	}

	if p.Where != nil {
		enc, err := EncodePredicate(p.Where)
		if err != nil {
			return nil, err
		}
		out["WHERE"] = enc
	}

	if len(p.GroupBy) > 0 {
		list := make([]any, len(p.GroupBy))
		for i, g := range p.GroupBy {
			enc, err := EncodeOperand(g)
			if err != nil {
				return nil, err
			}
			list[i] = enc
		}
		out["GROUP_BY"] = list
	}

	if p.Having != nil {
		enc, err := EncodePredicate(p.Having)
		if err != nil {
			return nil, err
		}
		out["HAVING"] = enc
	}

	if len(p.Window) > 0 {
		list := make([]any, len(p.Window))
		for i, w := range p.Window {
			enc, err := encodeWindowSpec(&w)
			if err != nil {
				return nil, err
			}
			list[i] = enc
		}
		out["WINDOW"] = list
	}

	if len(p.OrderBy) > 0 {
		list := make([]any, len(p.OrderBy))
		for i, o := range p.OrderBy {
			enc, err := EncodeOperand(o.Expr)
			if err != nil {
				return nil, err
			}
			list[i] = map[string]any{"expr": enc, "direction": string(o.Dir)}
		}
		out["ORDER_BY"] = list
	}

	if p.Limit != nil {
		out["LIMIT"] = encodeLimitOffset(p.Limit.Value, p.Limit.Param)
	}
	if p.Offset != nil {
		out["OFFSET"] = encodeLimitOffset(p.Offset.Value, p.Offset.Param)
	}

	if p.SetOp != nil {
		right, err := EncodeQueryPlan(p.SetOp.Right)
		if err != nil {
			return nil, err
		}
		out["SET_OP"] = map[string]any{"op": string(p.SetOp.Op), "right": right}
	}

	return out, nil
}

func encodeLimitOffset(value *int, param *string) map[string]any {
	if value != nil {
		return map[string]any{"value": *value}
	}
	return map[string]any{"param": *param}
}

func encodeWindowSpec(spec *WindowSpec) (map[string]any, error) {
	out := map[string]any{}
	if spec.Name != "" {
		out["name"] = spec.Name
	}
	if len(spec.PartitionBy) > 0 {
		list := make([]any, len(spec.PartitionBy))
		for i, p := range spec.PartitionBy {
			enc, err := EncodeOperand(p)
			if err != nil {
				return nil, err
			}
			list[i] = enc
		}
		out["partition_by"] = list
	}
	if len(spec.OrderBy) > 0 {
		list := make([]any, len(spec.OrderBy))
		for i, o := range spec.OrderBy {
			enc, err := EncodeOperand(o.Expr)
			if err != nil {
				return nil, err
			}
			list[i] = map[string]any{"expr": enc, "direction": string(o.Dir)}
		}
		out["order_by"] = list
	}
	if spec.Frame != nil {
		out["frame"] = map[string]any{"type": spec.Frame.Type, "start": spec.Frame.Start, "end": spec.Frame.End}
	}
	return out, nil
}
