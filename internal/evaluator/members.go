package evaluator

import (
	"math"
	"unicode/utf8"

	"zonescript/internal/object"
	"zonescript/internal/token"
)

// member resolves obj.name. Scope references expose players, region and
// name, and fall back to the target scope's own variables.
func (t *task) member(pos token.Token, obj object.Object, name string) (object.Object, error) {
	switch o := obj.(type) {
	case *object.ScopeRef:
		switch name {
		case "players":
			players := o.Env.Players()
			elements := make([]object.Object, len(players))
			for i, p := range players {
				elements[i] = p
			}
			return &object.List{Elements: elements}, nil
		case "region":
			if r, ok := o.Env.Region(); ok {
				return &object.RegionValue{Region: r}, nil
			}
			return object.NULL, nil
		case "name":
			return &object.String{Value: o.Env.Name}, nil
		}
		val, err := o.Env.Get(name)
		if err != nil {
			return nil, wrapError(pos, err)
		}
		return val, nil

	case *object.Handle:
		if val, ok := o.Ref.Property(name); ok {
			return val, nil
		}

	case *object.RegionValue:
		if val, ok := o.Property(name); ok {
			return val, nil
		}

	case *object.List:
		if name == "length" {
			return &object.Number{Value: float64(len(o.Elements))}, nil
		}

	case *object.String:
		if name == "length" {
			return &object.Number{Value: float64(utf8.RuneCountInString(o.Value))}, nil
		}
	}

	return nil, newRuntimeError(pos, ErrUnknownProperty, "%s has no property '%s'", typeName(obj), name)
}

// evalIndex reads list[i] or string[i] with an integral, in-range index.
func evalIndex(pos token.Token, left, index object.Object) (object.Object, error) {
	n, ok := index.(*object.Number)
	if !ok {
		return nil, newRuntimeError(pos, ErrTypeMismatch, "index must be a number, got %s", typeName(index))
	}
	if n.Value != math.Trunc(n.Value) {
		return nil, newRuntimeError(pos, ErrTypeMismatch, "index must be a whole number, got %s", n.Inspect())
	}
	i := int(n.Value)

	switch l := left.(type) {
	case *object.List:
		if i < 0 || i >= len(l.Elements) {
			return nil, newRuntimeError(pos, ErrOutOfRange, "index %d out of range for list of length %d", i, len(l.Elements))
		}
		return l.Elements[i], nil

	case *object.String:
		runes := []rune(l.Value)
		if i < 0 || i >= len(runes) {
			return nil, newRuntimeError(pos, ErrOutOfRange, "index %d out of range for string of length %d", i, len(runes))
		}
		return &object.String{Value: string(runes[i])}, nil
	}

	return nil, newRuntimeError(pos, ErrTypeMismatch, "index operator not supported: %s", typeName(left))
}
