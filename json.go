package symkern

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// ============================================================
// JSON serialization
// ============================================================

// ToJSON encodes e as a tagged JSON object.
func ToJSON(e Expr) (string, error) {
	b, err := json.Marshal(e.toJSON())
	return string(b), err
}

// ParseJSON decodes the output of ToJSON.
func ParseJSON(data []byte) (Expr, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return FromJSON(m)
}

// FromJSON decodes an expression object as produced by ToJSON after a
// round trip through encoding/json.
func FromJSON(data map[string]interface{}) (Expr, error) {
	if data == nil {
		return nil, fmt.Errorf("expression must be an object")
	}
	typAny, ok := data["type"]
	if !ok {
		return nil, fmt.Errorf("missing 'type' field")
	}
	typ, ok := typAny.(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("field 'type' must be a non-empty string")
	}

	subObj := func(field string) (map[string]interface{}, error) {
		v, ok := data[field]
		if !ok {
			return nil, fmt.Errorf("%s: missing %q", typ, field)
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an object", typ, field)
		}
		return m, nil
	}

	subObjArray := func(field string) ([]map[string]interface{}, error) {
		v, ok := data[field]
		if !ok {
			return nil, fmt.Errorf("%s: missing %q", typ, field)
		}
		raw, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an array", typ, field)
		}
		out := make([]map[string]interface{}, len(raw))
		for i, it := range raw {
			m, ok := it.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%s: %q[%d] must be an object", typ, field, i)
			}
			out[i] = m
		}
		return out, nil
	}

	subString := func(field string) (string, error) {
		v, ok := data[field]
		if !ok {
			return "", fmt.Errorf("%s: missing %q", typ, field)
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return "", fmt.Errorf("%s: %q must be a non-empty string", typ, field)
		}
		return s, nil
	}

	subNumber := func(field string) (float64, error) {
		v, ok := data[field]
		if !ok {
			return 0, fmt.Errorf("%s: missing %q", typ, field)
		}
		n, ok := v.(float64)
		if !ok {
			return 0, fmt.Errorf("%s: %q must be a number", typ, field)
		}
		return n, nil
	}

	subBigFloat := func(field string, prec uint) (*big.Float, error) {
		s, err := subString(field)
		if err != nil {
			return nil, err
		}
		f, _, err := big.ParseFloat(s, 10, prec, big.ToNearestEven)
		if err != nil {
			return nil, fmt.Errorf("%s: %q: %w", typ, field, err)
		}
		return f, nil
	}

	switch typ {
	case "int":
		val, err := subString("value")
		if err != nil {
			return nil, err
		}
		n, ok := new(big.Int).SetString(val, 10)
		if !ok {
			return nil, fmt.Errorf("invalid int value: %s", val)
		}
		return &Int{val: n}, nil

	case "rat":
		val, err := subString("value")
		if err != nil {
			return nil, err
		}
		r, ok := new(big.Rat).SetString(val)
		if !ok {
			return nil, fmt.Errorf("invalid rat value: %s", val)
		}
		return RatOf(r), nil

	case "real":
		f, err := subNumber("value")
		if err != nil {
			return nil, err
		}
		return R(f), nil

	case "complex":
		re, err := subNumber("re")
		if err != nil {
			return nil, err
		}
		im, err := subNumber("im")
		if err != nil {
			return nil, err
		}
		return C(re, im), nil

	case "bigreal":
		p, err := subNumber("prec")
		if err != nil {
			return nil, err
		}
		f, err := subBigFloat("value", uint(p))
		if err != nil {
			return nil, err
		}
		return &BigReal{val: f}, nil

	case "bigcomplex":
		p, err := subNumber("prec")
		if err != nil {
			return nil, err
		}
		re, err := subBigFloat("re", uint(p))
		if err != nil {
			return nil, err
		}
		im, err := subBigFloat("im", uint(p))
		if err != nil {
			return nil, err
		}
		return &BigComplex{re: re, im: im}, nil

	case "sym":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		return S(name), nil

	case "str":
		v, ok := data["value"].(string)
		if !ok {
			return nil, fmt.Errorf("str: 'value' must be a string")
		}
		return Str(v), nil

	case "blank":
		b := &Blank{}
		if name, ok := data["name"].(string); ok {
			b.name = name
		}
		if head, ok := data["head"].(string); ok {
			b.head = head
		}
		if k, ok := data["kind"].(float64); ok {
			if k < 0 || k > float64(BlankNullSequence) {
				return nil, fmt.Errorf("blank: invalid kind %v", k)
			}
			b.kind = BlankKind(k)
		}
		if opt, ok := data["optional"].(bool); ok {
			b.optional = opt
		}
		if _, ok := data["default"]; ok {
			m, err := subObj("default")
			if err != nil {
				return nil, err
			}
			def, err := FromJSON(m)
			if err != nil {
				return nil, fmt.Errorf("blank: default: %w", err)
			}
			b.def = def
		}
		if b.optional && b.kind != BlankOne {
			return nil, fmt.Errorf("blank: sequence blanks cannot be optional")
		}
		return b, nil

	case "call":
		headM, err := subObj("head")
		if err != nil {
			return nil, err
		}
		head, err := FromJSON(headM)
		if err != nil {
			return nil, fmt.Errorf("call: head: %w", err)
		}
		objs, err := subObjArray("args")
		if err != nil {
			return nil, err
		}
		args := make([]Expr, len(objs))
		for i, o := range objs {
			e, err := FromJSON(o)
			if err != nil {
				return nil, fmt.Errorf("call: args[%d]: %w", i, err)
			}
			args[i] = e
		}
		return newCall(head, args), nil
	}
	return nil, fmt.Errorf("unknown expression type: %s", typ)
}
