package native

import (
	"math"
	"sort"
	"strings"

	"zonescript/internal/evaluator"
	"zonescript/internal/object"
)

// fnAppend mutates the list in place and returns it.
func fnAppend() *object.Native {
	return &object.Native{
		Signature: "append(list, values...)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) < 1 {
				return nil, arityError("append(list, values...)", len(args))
			}
			list, err := listArg("append", args, 0)
			if err != nil {
				return nil, err
			}
			list.Elements = append(list.Elements, args[1:]...)
			return list, nil
		},
	}
}

// fnRemove deletes the element at index and returns it.
func fnRemove() *object.Native {
	return &object.Native{
		Signature: "remove(list, index)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 2 {
				return nil, arityError("remove(list, index)", len(args))
			}
			list, err := listArg("remove", args, 0)
			if err != nil {
				return nil, err
			}
			index, err := numberArg("remove", args, 1)
			if err != nil {
				return nil, err
			}
			i := int(index)
			if float64(i) != index || i < 0 || i >= len(list.Elements) {
				return nil, evaluator.Errorf(evaluator.ErrOutOfRange,
					"index %s out of range for list of length %d", object.FormatNumber(index), len(list.Elements))
			}
			removed := list.Elements[i]
			list.Elements = append(list.Elements[:i], list.Elements[i+1:]...)
			return removed, nil
		},
	}
}

func fnContains() *object.Native {
	return &object.Native{
		Signature: "contains(list|string, value)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 2 {
				return nil, arityError("contains(list|string, value)", len(args))
			}
			switch haystack := args[0].(type) {
			case *object.List:
				for _, el := range haystack.Elements {
					if evaluator.Equal(el, args[1]) {
						return object.TRUE, nil
					}
				}
				return object.FALSE, nil
			case *object.String:
				needle, err := stringArg("contains", args, 1)
				if err != nil {
					return nil, err
				}
				return object.Bool(strings.Contains(haystack.Value, needle)), nil
			}
			return nil, argError(1, "contains", object.LIST_OBJ, args[0])
		},
	}
}

// fnRange builds [0, n) or [start, end) with a step of one.
func fnRange() *object.Native {
	return &object.Native{
		Signature: "range(end) or range(start, end)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 1 && len(args) != 2 {
				return nil, arityError("range(end) or range(start, end)", len(args))
			}
			var start, end float64
			var err error
			if len(args) == 1 {
				if end, err = numberArg("range", args, 0); err != nil {
					return nil, err
				}
			} else {
				if start, err = numberArg("range", args, 0); err != nil {
					return nil, err
				}
				if end, err = numberArg("range", args, 1); err != nil {
					return nil, err
				}
			}
			start, end = math.Ceil(start), math.Ceil(end)
			if end-start > maxRange {
				return nil, evaluator.Errorf(evaluator.ErrOutOfRange,
					"range of %s elements exceeds the limit of %d", object.FormatNumber(end-start), maxRange)
			}

			elements := []object.Object{}
			for v := start; v < end; v++ {
				elements = append(elements, &object.Number{Value: v})
			}
			return &object.List{Elements: elements}, nil
		},
	}
}

const maxRange = 1_000_000

// fnSort returns a sorted copy. Without a comparator numbers and strings
// sort naturally; a comparator returns a negative number when a < b.
func fnSort() *object.Native {
	return &object.Native{
		Signature: "sort(list, comparator?)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 1 && len(args) != 2 {
				return nil, arityError("sort(list, comparator?)", len(args))
			}
			list, err := listArg("sort", args, 0)
			if err != nil {
				return nil, err
			}

			sorted := make([]object.Object, len(list.Elements))
			copy(sorted, list.Elements)

			var sortErr error
			less := func(a, b object.Object) bool {
				if sortErr != nil {
					return false
				}
				if len(args) == 2 {
					result, err := ctx.Call(args[1], []object.Object{a, b})
					if err != nil {
						sortErr = err
						return false
					}
					n, ok := result.(*object.Number)
					if !ok {
						sortErr = evaluator.Errorf(evaluator.ErrTypeMismatch,
							"comparator to `sort` must return a NUMBER, got=%s", result.Type())
						return false
					}
					return n.Value < 0
				}
				switch av := a.(type) {
				case *object.Number:
					if bv, ok := b.(*object.Number); ok {
						return av.Value < bv.Value
					}
				case *object.String:
					if bv, ok := b.(*object.String); ok {
						return av.Value < bv.Value
					}
				}
				sortErr = evaluator.Errorf(evaluator.ErrTypeMismatch,
					"cannot compare %s with %s", a.Type(), b.Type())
				return false
			}

			sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
			if sortErr != nil {
				return nil, sortErr
			}
			return &object.List{Elements: sorted}, nil
		},
	}
}
