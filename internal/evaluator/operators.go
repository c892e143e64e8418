package evaluator

import (
	"math"

	"zonescript/internal/object"
	"zonescript/internal/token"
)

// isTruthy: null is false, numbers are true when non-zero, strings and lists
// when non-empty, everything else is true.
func isTruthy(obj object.Object) bool {
	switch o := obj.(type) {
	case *object.Null:
		return false
	case *object.Boolean:
		return o.Value
	case *object.Number:
		return o.Value != 0
	case *object.String:
		return o.Value != ""
	case *object.List:
		return len(o.Elements) > 0
	default:
		return true
	}
}

// IsTruthy is exported for natives and the REPL.
func IsTruthy(obj object.Object) bool { return isTruthy(obj) }

// Equal compares the type tag first. Scalars compare by value, handles by
// kind and identity, everything else by reference.
func Equal(a, b object.Object) bool {
	if a.Type() != b.Type() {
		return false
	}

	switch left := a.(type) {
	case *object.Null:
		return true
	case *object.Boolean:
		return left.Value == b.(*object.Boolean).Value
	case *object.Number:
		return left.Value == b.(*object.Number).Value
	case *object.String:
		return left.Value == b.(*object.String).Value
	case *object.Handle:
		return left.Key() == b.(*object.Handle).Key()
	case *object.ScopeRef:
		return left.Env == b.(*object.ScopeRef).Env
	case *object.RegionValue:
		return left.Region == b.(*object.RegionValue).Region
	default:
		return a == b
	}
}

func typeName(obj object.Object) string {
	if obj == nil {
		return "nothing"
	}
	return string(obj.Type())
}

func evalUnary(pos token.Token, operator string, operand object.Object) (object.Object, error) {
	switch operator {
	case "!":
		return object.Bool(!isTruthy(operand)), nil
	case "-":
		n, ok := operand.(*object.Number)
		if !ok {
			return nil, newRuntimeError(pos, ErrTypeMismatch, "unknown operator: -%s", typeName(operand))
		}
		return &object.Number{Value: -n.Value}, nil
	}
	return nil, newRuntimeError(pos, ErrTypeMismatch, "unknown operator: %s%s", operator, typeName(operand))
}

func evalBinary(pos token.Token, operator string, left, right object.Object) (object.Object, error) {
	switch operator {
	case "&&":
		return object.Bool(isTruthy(left) && isTruthy(right)), nil
	case "||":
		return object.Bool(isTruthy(left) || isTruthy(right)), nil
	case "==":
		return object.Bool(Equal(left, right)), nil
	case "!=":
		return object.Bool(!Equal(left, right)), nil
	case "+":
		ln, lok := left.(*object.Number)
		rn, rok := right.(*object.Number)
		if lok && rok {
			return &object.Number{Value: ln.Value + rn.Value}, nil
		}
		return &object.String{Value: left.Inspect() + right.Inspect()}, nil
	}

	if ln, ok := left.(*object.Number); ok {
		if rn, ok := right.(*object.Number); ok {
			return evalNumberBinary(pos, operator, ln.Value, rn.Value)
		}
	}

	if ls, ok := left.(*object.String); ok {
		if rs, ok := right.(*object.String); ok {
			switch operator {
			case "<":
				return object.Bool(ls.Value < rs.Value), nil
			case "<=":
				return object.Bool(ls.Value <= rs.Value), nil
			case ">":
				return object.Bool(ls.Value > rs.Value), nil
			case ">=":
				return object.Bool(ls.Value >= rs.Value), nil
			}
		}
	}

	return nil, newRuntimeError(pos, ErrTypeMismatch,
		"unsupported operand types: %s %s %s", typeName(left), operator, typeName(right))
}

func evalNumberBinary(pos token.Token, operator string, l, r float64) (object.Object, error) {
	switch operator {
	case "-":
		return &object.Number{Value: l - r}, nil
	case "*":
		return &object.Number{Value: l * r}, nil
	case "/":
		if r == 0 {
			return nil, newRuntimeError(pos, ErrDivisionByZero, "division by zero")
		}
		return &object.Number{Value: l / r}, nil
	case "%":
		if r == 0 {
			return nil, newRuntimeError(pos, ErrDivisionByZero, "modulo by zero")
		}
		return &object.Number{Value: math.Mod(l, r)}, nil
	case "<":
		return object.Bool(l < r), nil
	case "<=":
		return object.Bool(l <= r), nil
	case ">":
		return object.Bool(l > r), nil
	case ">=":
		return object.Bool(l >= r), nil
	}
	return nil, newRuntimeError(pos, ErrTypeMismatch, "unknown operator: NUMBER %s NUMBER", operator)
}
