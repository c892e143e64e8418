package native

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"zonescript/internal/evaluator"
	"zonescript/internal/object"
)

func fnPrint(out io.Writer) *object.Native {
	return &object.Native{
		Signature: "print(values...)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			parts := make([]string, len(args))
			for i, arg := range args {
				parts[i] = arg.Inspect()
			}
			line := strings.Join(parts, " ")
			ctx.Logger().Debug("print", slog.String("text", line))
			if _, err := fmt.Fprintln(out, line); err != nil {
				return nil, err
			}
			return object.NULL, nil
		},
	}
}

func fnLen() *object.Native {
	return &object.Native{
		Signature: "len(value)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 1 {
				return nil, arityError("len(value)", len(args))
			}
			switch arg := args[0].(type) {
			case *object.String:
				return &object.Number{Value: float64(len([]rune(arg.Value)))}, nil
			case *object.List:
				return &object.Number{Value: float64(len(arg.Elements))}, nil
			case *object.ScopeRef:
				return &object.Number{Value: float64(len(arg.Env.Players()))}, nil
			}
			return nil, evaluator.Errorf(evaluator.ErrTypeMismatch,
				"argument to `len` not supported, got=%s", args[0].Type())
		},
	}
}

func fnStr() *object.Native {
	return &object.Native{
		Signature: "str(value)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 1 {
				return nil, arityError("str(value)", len(args))
			}
			return &object.String{Value: args[0].Inspect()}, nil
		},
	}
}

func fnNum() *object.Native {
	return &object.Native{
		Signature: "num(value)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 1 {
				return nil, arityError("num(value)", len(args))
			}
			switch arg := args[0].(type) {
			case *object.Number:
				return arg, nil
			case *object.Boolean:
				if arg.Value {
					return &object.Number{Value: 1}, nil
				}
				return &object.Number{Value: 0}, nil
			case *object.String:
				v, err := strconv.ParseFloat(strings.TrimSpace(arg.Value), 64)
				if err != nil {
					return nil, evaluator.Errorf(evaluator.ErrTypeMismatch,
						"cannot convert %q to a number", arg.Value)
				}
				return &object.Number{Value: v}, nil
			}
			return nil, evaluator.Errorf(evaluator.ErrTypeMismatch,
				"cannot convert %s to a number", args[0].Type())
		},
	}
}

func fnType() *object.Native {
	return &object.Native{
		Signature: "type(value)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 1 {
				return nil, arityError("type(value)", len(args))
			}
			return &object.String{Value: strings.ToLower(string(args[0].Type()))}, nil
		},
	}
}

func fnWait() *object.Native {
	return &object.Native{
		Signature: "wait(ticks)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 1 {
				return nil, arityError("wait(ticks)", len(args))
			}
			ticks, err := numberArg("wait", args, 0)
			if err != nil {
				return nil, err
			}
			if ticks < 0 {
				return nil, evaluator.Errorf(evaluator.ErrOutOfRange,
					"wait expects a non-negative tick count, got=%s", object.FormatNumber(ticks))
			}
			// Scheduling belongs to the host; the core only validates.
			ctx.Logger().Debug("wait", slog.Float64("ticks", ticks))
			return object.NULL, nil
		},
	}
}
