package native

import (
	"strings"

	"zonescript/internal/object"
)

func fnLower() *object.Native {
	return &object.Native{
		Signature: "lower(string)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 1 {
				return nil, arityError("lower(string)", len(args))
			}
			s, err := stringArg("lower", args, 0)
			if err != nil {
				return nil, err
			}
			return &object.String{Value: strings.ToLower(s)}, nil
		},
	}
}

func fnUpper() *object.Native {
	return &object.Native{
		Signature: "upper(string)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 1 {
				return nil, arityError("upper(string)", len(args))
			}
			s, err := stringArg("upper", args, 0)
			if err != nil {
				return nil, err
			}
			return &object.String{Value: strings.ToUpper(s)}, nil
		},
	}
}

func fnSplit() *object.Native {
	return &object.Native{
		Signature: "split(string, separator)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 2 {
				return nil, arityError("split(string, separator)", len(args))
			}
			s, err := stringArg("split", args, 0)
			if err != nil {
				return nil, err
			}
			sep, err := stringArg("split", args, 1)
			if err != nil {
				return nil, err
			}
			parts := strings.Split(s, sep)
			elements := make([]object.Object, len(parts))
			for i, p := range parts {
				elements[i] = &object.String{Value: p}
			}
			return &object.List{Elements: elements}, nil
		},
	}
}

func fnJoin() *object.Native {
	return &object.Native{
		Signature: "join(list, separator)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 2 {
				return nil, arityError("join(list, separator)", len(args))
			}
			list, err := listArg("join", args, 0)
			if err != nil {
				return nil, err
			}
			sep, err := stringArg("join", args, 1)
			if err != nil {
				return nil, err
			}
			parts := make([]string, len(list.Elements))
			for i, el := range list.Elements {
				parts[i] = el.Inspect()
			}
			return &object.String{Value: strings.Join(parts, sep)}, nil
		},
	}
}
