package native

import (
	"math"
	"math/rand/v2"

	"zonescript/internal/evaluator"
	"zonescript/internal/object"
)

func fnFloor() *object.Native {
	return &object.Native{
		Signature: "floor(number)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 1 {
				return nil, arityError("floor(number)", len(args))
			}
			n, err := numberArg("floor", args, 0)
			if err != nil {
				return nil, err
			}
			return &object.Number{Value: math.Floor(n)}, nil
		},
	}
}

func fnAbs() *object.Native {
	return &object.Native{
		Signature: "abs(number)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 1 {
				return nil, arityError("abs(number)", len(args))
			}
			n, err := numberArg("abs", args, 0)
			if err != nil {
				return nil, err
			}
			return &object.Number{Value: math.Abs(n)}, nil
		},
	}
}

// fnRandom returns an integer in [min, max).
func fnRandom() *object.Native {
	return &object.Native{
		Signature: "random(min, max)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 2 {
				return nil, arityError("random(min, max)", len(args))
			}
			lo, err := numberArg("random", args, 0)
			if err != nil {
				return nil, err
			}
			hi, err := numberArg("random", args, 1)
			if err != nil {
				return nil, err
			}
			lo, hi = math.Ceil(lo), math.Floor(hi)
			if hi <= lo {
				return nil, evaluator.Errorf(evaluator.ErrOutOfRange,
					"random expects min < max, got %s and %s", object.FormatNumber(lo), object.FormatNumber(hi))
			}
			return &object.Number{Value: lo + float64(rand.Int64N(int64(hi-lo)))}, nil
		},
	}
}
