package plan

import "fmt"

// Predicate is the boolean-expression tree (§3.4): the operator is the
// single key of a JSON object, its value the argument list. Each concrete
// type below is one operator family.
type Predicate interface {
	predicateNode()
}

// ComparisonPredicate is EQ/NEQ/LT/LTE/GT/GTE — exactly two operands.
type ComparisonPredicate struct {
	Op    ComparisonOp
	Left  Operand
	Right Operand
}

// PatternPredicate is LIKE/ILIKE — exactly two operands.
type PatternPredicate struct {
	Op    PatternOp
	Left  Operand
	Right Operand
}

// NullPredicate is IS_NULL/IS_NOT_NULL — exactly one operand.
type NullPredicate struct {
	Negated bool // true for IS_NOT_NULL
	Operand Operand
}

// BetweenPredicate is BETWEEN — exactly three operands.
type BetweenPredicate struct {
	Value Operand
	Low   Operand
	High  Operand
}

// InPredicate is IN/NOT_IN — a left operand plus either a literal list of
// operands or a subquery.
type InPredicate struct {
	Negated  bool // true for NOT_IN
	Left     Operand
	Values   []Operand
	Subquery *QueryPlan // non-nil iff Values is empty
}

// LogicalPredicate is AND/OR — an n-ary (≥2) list of sub-predicates.
type LogicalPredicate struct {
	Op    string // "AND" or "OR"
	Preds []Predicate
}

// NotPredicate is NOT — exactly one sub-predicate.
type NotPredicate struct {
	Pred Predicate
}

// ExistsPredicate is EXISTS/NOT_EXISTS — a single subquery.
type ExistsPredicate struct {
	Negated  bool // true for NOT_EXISTS
	Subquery *QueryPlan
}

func (ComparisonPredicate) predicateNode() {}
func (PatternPredicate) predicateNode()    {}
func (NullPredicate) predicateNode()       {}
func (BetweenPredicate) predicateNode()    {}
func (InPredicate) predicateNode()         {}
func (LogicalPredicate) predicateNode()    {}
func (NotPredicate) predicateNode()        {}
func (ExistsPredicate) predicateNode()     {}

// DecodePredicate parses a single JSON-decoded predicate value into its
// tagged variant by inspecting the single operator key.
func DecodePredicate(path string, raw any) (Predicate, error) {
	obj, ok := raw.(map[string]any)
	if !ok || len(obj) != 1 {
		return nil, newParseErrorCode("parse.invalid_predicate", path, raw, "single-key predicate object",
			"predicate must be a single-key object")
	}
	var op string
	var args any
	for k, v := range obj {
		op, args = k, v
	}
	if !AllPredicateOps[op] {
		return nil, newParseErrorCode("parse.unknown_operator", path, op, "a registered predicate operator",
			"unknown predicate operator %q", op)
	}

	switch {
	case ComparisonOps[op]:
		ops, err := decodeOperandList(path+"."+op, args, 2)
		if err != nil {
			return nil, err
		}
		return ComparisonPredicate{Op: ComparisonOp(op), Left: ops[0], Right: ops[1]}, nil
	case PatternOps[op]:
		ops, err := decodeOperandList(path+"."+op, args, 2)
		if err != nil {
			return nil, err
		}
		return PatternPredicate{Op: PatternOp(op), Left: ops[0], Right: ops[1]}, nil
	case RangeOps[op]:
		ops, err := decodeOperandList(path+"."+op, args, 3)
		if err != nil {
			return nil, err
		}
		return BetweenPredicate{Value: ops[0], Low: ops[1], High: ops[2]}, nil
	case NullOps[op]:
		operand, err := DecodeOperand(path+"."+op, args)
		if err != nil {
			return nil, err
		}
		return NullPredicate{Negated: op == "IS_NOT_NULL", Operand: operand}, nil
	case MembershipOps[op]:
		return decodeInPredicate(path+"."+op, op == "NOT_IN", args)
	case ExistsOps[op]:
		sub, err := decodeSubquery(path+"."+op, args)
		if err != nil {
			return nil, err
		}
		return ExistsPredicate{Negated: op == "NOT_EXISTS", Subquery: sub}, nil
	case LogicalAndOr[op]:
		list, ok := args.([]any)
		if !ok || len(list) < 2 {
			return nil, newParseErrorCode("parse.bad_arity", path+"."+op, args, "array of >=2 predicates",
				"%s requires at least 2 sub-predicates", op)
		}
		preds := make([]Predicate, 0, len(list))
		for i, p := range list {
			decoded, err := DecodePredicate(fmt.Sprintf("%s.%s[%d]", path, op, i), p)
			if err != nil {
				return nil, err
			}
			preds = append(preds, decoded)
		}
		return LogicalPredicate{Op: op, Preds: preds}, nil
	case LogicalNot[op]:
		sub, err := DecodePredicate(path+".NOT", args)
		if err != nil {
			return nil, err
		}
		return NotPredicate{Pred: sub}, nil
	default:
		return nil, newParseErrorCode("parse.unknown_operator", path, op, "a registered predicate operator",
			"unhandled predicate operator %q", op)
	}
}

func decodeOperandList(path string, args any, count int) ([]Operand, error) {
	list, ok := args.([]any)
	if !ok || len(list) != count {
		return nil, newParseErrorCode("parse.bad_arity", path, args, fmt.Sprintf("array of exactly %d operands", count),
			"expected exactly %d operands, got %v", count, args)
	}
	out := make([]Operand, count)
	for i, a := range list {
		op, err := DecodeOperand(fmt.Sprintf("%s[%d]", path, i), a)
		if err != nil {
			return nil, err
		}
		out[i] = op
	}
	return out, nil
}

func decodeInPredicate(path string, negated bool, args any) (Predicate, error) {
	list, ok := args.([]any)
	if !ok || len(list) < 2 {
		return nil, newParseErrorCode("parse.bad_arity", path, args, "array of left-operand + >=1 value/subquery",
			"IN/NOT_IN requires at least 2 elements")
	}
	left, err := DecodeOperand(path+"[0]", list[0])
	if err != nil {
		return nil, err
	}
	rest := list[1:]
	if len(rest) == 1 {
		if obj, ok := rest[0].(map[string]any); ok {
			if _, isPlan := obj["SELECT"]; isPlan {
				sub, err := decodeSubquery(path+"[1]", rest[0])
				if err != nil {
					return nil, err
				}
				return InPredicate{Negated: negated, Left: left, Subquery: sub}, nil
			}
		}
	}
	values := make([]Operand, 0, len(rest))
	for i, v := range rest {
		op, err := DecodeOperand(fmt.Sprintf("%s[%d]", path, i+1), v)
		if err != nil {
			return nil, err
		}
		values = append(values, op)
	}
	return InPredicate{Negated: negated, Left: left, Values: values}, nil
}

func decodeSubquery(path string, raw any) (*QueryPlan, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, newParseErrorCode("parse.invalid_subquery", path, raw, "a QueryPlan object",
			"subquery must be a QueryPlan object")
	}
	return decodeQueryPlan(path, obj)
}

// EncodePredicate serialises a Predicate back to its JSON grammar form.
func EncodePredicate(p Predicate) (any, error) {
	switch pr := p.(type) {
	case ComparisonPredicate:
		return encodeBinary(string(pr.Op), pr.Left, pr.Right)
	case PatternPredicate:
		return encodeBinary(string(pr.Op), pr.Left, pr.Right)
	case NullPredicate:
		op := "IS_NULL"
		if pr.Negated {
			op = "IS_NOT_NULL"
		}
		enc, err := EncodeOperand(pr.Operand)
		if err != nil {
			return nil, err
		}
		return map[string]any{op: enc}, nil
	case BetweenPredicate:
		val, err := encodeOperandSlice(pr.Value, pr.Low, pr.High)
		if err != nil {
			return nil, err
		}
		return map[string]any{"BETWEEN": val}, nil
	case InPredicate:
		op := "IN"
		if pr.Negated {
			op = "NOT_IN"
		}
		left, err := EncodeOperand(pr.Left)
		if err != nil {
			return nil, err
		}
		args := []any{left}
		if pr.Subquery != nil {
			sub, err := EncodeQueryPlan(pr.Subquery)
			if err != nil {
				return nil, err
			}
			args = append(args, sub)
		} else {
			for _, v := range pr.Values {
				enc, err := EncodeOperand(v)
				if err != nil {
					return nil, err
				}
				args = append(args, enc)
			}
		}
		return map[string]any{op: args}, nil
	case LogicalPredicate:
		list := make([]any, len(pr.Preds))
		for i, sub := range pr.Preds {
			enc, err := EncodePredicate(sub)
			if err != nil {
				return nil, err
			}
			list[i] = enc
		}
		return map[string]any{pr.Op: list}, nil
	case NotPredicate:
		enc, err := EncodePredicate(pr.Pred)
		if err != nil {
			return nil, err
		}
		return map[string]any{"NOT": enc}, nil
	case ExistsPredicate:
		op := "EXISTS"
		if pr.Negated {
			op = "NOT_EXISTS"
		}
		sub, err := EncodeQueryPlan(pr.Subquery)
		if err != nil {
			return nil, err
		}
		return map[string]any{op: sub}, nil
	default:
		return nil, fmt.Errorf("unknown predicate type %T", p)
	}
}

func encodeBinary(op string, left, right Operand) (any, error) {
	l, err := EncodeOperand(left)
	if err != nil {
		return nil, err
	}
	r, err := EncodeOperand(right)
	if err != nil {
		return nil, err
	}
	return map[string]any{op: []any{l, r}}, nil
}

func encodeOperandSlice(ops ...Operand) ([]any, error) {
	out := make([]any, len(ops))
	for i, o := range ops {
		enc, err := EncodeOperand(o)
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}
