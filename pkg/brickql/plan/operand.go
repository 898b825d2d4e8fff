package plan

import (
	"encoding/json"
	"fmt"

	"github.com/brickql/brickql-go/pkg/brickql/brickqlerr"
)

var (
	colOperandKeys   = map[string]bool{"col": true}
	valueOperandKeys = map[string]bool{"value": true}
	paramOperandKeys = map[string]bool{"param": true}
	funcOperandKeys  = map[string]bool{"func": true, "args": true}
	caseOperandKeys  = map[string]bool{"case": true}
	caseBodyKeys     = map[string]bool{"when": true, "else": true}
	caseWhenKeys     = map[string]bool{"if": true, "condition": true, "then": true}
)

// Operand is the scalar-expression tree (§3.3): a column reference, a
// literal value, a runtime parameter, a function call, or a CASE
// expression. Each concrete type is a tagged variant discriminated by a
// single JSON key; DecodeOperand inspects that key to build the right one.
type Operand interface {
	operandNode()
}

// ColumnOperand is a `{"col": "table.column"}` bound column reference.
type ColumnOperand struct {
	Col string
}

// ValueOperand is a `{"value": ...}` literal, always bound as a fresh
// parameter by the compiler — never interpolated into the SQL string.
type ValueOperand struct {
	Value any
}

// ParamOperand is a `{"param": "NAME"}` runtime-supplied parameter.
type ParamOperand struct {
	Param string
}

// FuncOperand is a `{"func": NAME, "args": [...]}` function call.
type FuncOperand struct {
	Func string
	Args []Operand
}

// CaseWhenClause is one `{"if": Predicate, "then": Operand}` arm of a CASE.
type CaseWhenClause struct {
	If   Predicate
	Then Operand
}

// CaseOperand is a `{"case": {"when": [...], "else": Operand?}}` conditional
// expression. `If` is a predicate tree, never an operand.
type CaseOperand struct {
	When []CaseWhenClause
	Else Operand
}

func (ColumnOperand) operandNode() {}
func (ValueOperand) operandNode()  {}
func (ParamOperand) operandNode()  {}
func (FuncOperand) operandNode()   {}
func (CaseOperand) operandNode()   {}

// DecodeOperand parses a single JSON-decoded operand value (already run
// through json.Unmarshal into `any`) into its tagged variant. It is the
// parser's single discriminator-key dispatch point for operands.
func DecodeOperand(path string, raw any) (Operand, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, newParseErrorf(path, raw, "operand object", "operand must be a JSON object")
	}
	switch {
	case has(obj, "col"):
		if err := rejectUnknownKeys(path, obj, colOperandKeys); err != nil {
			return nil, err
		}
		col, ok := obj["col"].(string)
		if !ok {
			return nil, newParseErrorf(path+".col", obj["col"], "string", "col must be a string")
		}
		return ColumnOperand{Col: col}, nil
	case has(obj, "value"):
		if err := rejectUnknownKeys(path, obj, valueOperandKeys); err != nil {
			return nil, err
		}
		return ValueOperand{Value: obj["value"]}, nil
	case has(obj, "param"):
		if err := rejectUnknownKeys(path, obj, paramOperandKeys); err != nil {
			return nil, err
		}
		p, ok := obj["param"].(string)
		if !ok {
			return nil, newParseErrorf(path+".param", obj["param"], "string", "param must be a string")
		}
		return ParamOperand{Param: p}, nil
	case has(obj, "func"):
		if err := rejectUnknownKeys(path, obj, funcOperandKeys); err != nil {
			return nil, err
		}
		name, ok := obj["func"].(string)
		if !ok {
			return nil, newParseErrorf(path+".func", obj["func"], "string", "func must be a string")
		}
		rawArgs, _ := obj["args"].([]any)
		args := make([]Operand, 0, len(rawArgs))
		for i, a := range rawArgs {
			op, err := DecodeOperand(fmt.Sprintf("%s.args[%d]", path, i), a)
			if err != nil {
				return nil, err
			}
			args = append(args, op)
		}
		return FuncOperand{Func: name, Args: args}, nil
	case has(obj, "case"):
		if err := rejectUnknownKeys(path, obj, caseOperandKeys); err != nil {
			return nil, err
		}
		return decodeCaseOperand(path+".case", obj["case"])
	case has(obj, "SELECT"):
		return nil, brickqlerr.NewValidationError("validate.scalar_subquery_unsupported",
			"a subquery cannot appear as a scalar operand; only IN/EXISTS may reference a subquery",
			map[string]any{"path": path})
	default:
		return nil, newParseErrorf(path, raw, "one of col|value|param|func|case", "unknown operand tag")
	}
}

func decodeCaseOperand(path string, raw any) (Operand, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, newParseErrorf(path, raw, "case body object", "case body must be a JSON object")
	}
	if err := rejectUnknownKeys(path, obj, caseBodyKeys); err != nil {
		return nil, err
	}
	rawWhen, ok := obj["when"].([]any)
	if !ok || len(rawWhen) == 0 {
		return nil, newParseErrorf(path+".when", obj["when"], "non-empty array", "case requires a non-empty when list")
	}
	whens := make([]CaseWhenClause, 0, len(rawWhen))
	for i, w := range rawWhen {
		wObj, ok := w.(map[string]any)
		if !ok {
			return nil, newParseErrorf(fmt.Sprintf("%s.when[%d]", path, i), w, "object", "when entry must be an object")
		}
		if err := rejectUnknownKeys(fmt.Sprintf("%s.when[%d]", path, i), wObj, caseWhenKeys); err != nil {
			return nil, err
		}
		condRaw, ok := wObj["if"]
		if !ok {
			condRaw, ok = wObj["condition"]
		}
		if !ok {
			return nil, newParseErrorf(fmt.Sprintf("%s.when[%d].if", path, i), nil, "predicate", "when entry missing 'if'")
		}
		cond, err := DecodePredicate(fmt.Sprintf("%s.when[%d].if", path, i), condRaw)
		if err != nil {
			return nil, err
		}
		thenRaw, ok := wObj["then"]
		if !ok {
			return nil, newParseErrorf(fmt.Sprintf("%s.when[%d].then", path, i), nil, "operand", "when entry missing 'then'")
		}
		then, err := DecodeOperand(fmt.Sprintf("%s.when[%d].then", path, i), thenRaw)
		if err != nil {
			return nil, err
		}
		whens = append(whens, CaseWhenClause{If: cond, Then: then})
	}
	var elseOperand Operand
	if raw, ok := obj["else"]; ok && raw != nil {
		var err error
		elseOperand, err = DecodeOperand(path+".else", raw)
		if err != nil {
			return nil, err
		}
	}
	return CaseOperand{When: whens, Else: elseOperand}, nil
}

// EncodeOperand serialises an Operand back to its JSON grammar form, used
// for the parse/serialize round-trip and for debugging/error details.
func EncodeOperand(op Operand) (any, error) {
	switch o := op.(type) {
	case ColumnOperand:
		return map[string]any{"col": o.Col}, nil
	case ValueOperand:
		return map[string]any{"value": o.Value}, nil
	case ParamOperand:
		return map[string]any{"param": o.Param}, nil
	case FuncOperand:
		args := make([]any, len(o.Args))
		for i, a := range o.Args {
			enc, err := EncodeOperand(a)
			if err != nil {
				return nil, err
			}
			args[i] = enc
		}
		return map[string]any{"func": o.Func, "args": args}, nil
	case CaseOperand:
		whens := make([]any, len(o.When))
		for i, w := range o.When {
			cond, err := EncodePredicate(w.If)
			if err != nil {
				return nil, err
			}
			then, err := EncodeOperand(w.Then)
			if err != nil {
				return nil, err
			}
			whens[i] = map[string]any{"if": cond, "then": then}
		}
		body := map[string]any{"when": whens}
		if o.Else != nil {
			elseEnc, err := EncodeOperand(o.Else)
			if err != nil {
				return nil, err
			}
			body["else"] = elseEnc
		}
		return map[string]any{"case": body}, nil
	default:
		return nil, fmt.Errorf("unknown operand type %T", op)
	}
}

func has(obj map[string]any, key string) bool {
	_, ok := obj[key]
	return ok
}

// MarshalOperandJSON is a convenience wrapper for tests and callers that
// want raw JSON bytes rather than the `any` tree EncodeOperand returns.
func MarshalOperandJSON(op Operand) ([]byte, error) {
	v, err := EncodeOperand(op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
