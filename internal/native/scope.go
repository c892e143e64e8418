package native

import (
	"zonescript/internal/evaluator"
	"zonescript/internal/object"
)

func fnAddPlayer() *object.Native {
	return &object.Native{
		Signature: "addPlayer(scope, player)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			ref, player, err := scopeAndPlayer("addPlayer", args)
			if err != nil {
				return nil, err
			}
			return object.Bool(ref.Env.AddPlayer(player)), nil
		},
	}
}

func fnRemovePlayer() *object.Native {
	return &object.Native{
		Signature: "removePlayer(scope, player)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			ref, player, err := scopeAndPlayer("removePlayer", args)
			if err != nil {
				return nil, err
			}
			return object.Bool(ref.Env.RemovePlayer(player)), nil
		},
	}
}

func fnHasPlayer() *object.Native {
	return &object.Native{
		Signature: "hasPlayer(scope, player)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			ref, player, err := scopeAndPlayer("hasPlayer", args)
			if err != nil {
				return nil, err
			}
			return object.Bool(ref.Env.HasPlayer(player)), nil
		},
	}
}

// fnInRegion tests a positioned handle, or explicit coordinates in the
// scope's world, against the nearest region of the scope.
func fnInRegion() *object.Native {
	return &object.Native{
		Signature: "inRegion(scope, target) or inRegion(scope, x, y, z)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 2 && len(args) != 4 {
				return nil, arityError("inRegion(scope, target) or inRegion(scope, x, y, z)", len(args))
			}
			ref, err := scopeArg("inRegion", args, 0)
			if err != nil {
				return nil, err
			}
			r, ok := ref.Env.NearestRegion()
			if !ok {
				return object.FALSE, nil
			}

			if len(args) == 4 {
				var coords [3]float64
				for i := range coords {
					if coords[i], err = numberArg("inRegion", args, i+1); err != nil {
						return nil, err
					}
				}
				return object.Bool(r.Contains(r.World, coords[0], coords[1], coords[2])), nil
			}

			handle, ok := args[1].(*object.Handle)
			if !ok {
				return nil, argError(2, "inRegion", object.LOCATION_OBJ, args[1])
			}
			pos, ok := handle.Ref.(object.Positioned)
			if !ok {
				return nil, evaluator.Errorf(evaluator.ErrTypeMismatch,
					"%s has no position", handle.Type())
			}
			world, x, y, z := pos.Position()
			return object.Bool(r.Contains(world, x, y, z)), nil
		},
	}
}

func scopeAndPlayer(fn string, args []object.Object) (*object.ScopeRef, *object.Handle, error) {
	if len(args) != 2 {
		return nil, nil, arityError(fn+"(scope, player)", len(args))
	}
	ref, err := scopeArg(fn, args, 0)
	if err != nil {
		return nil, nil, err
	}
	player, err := playerArg(fn, args, 1)
	if err != nil {
		return nil, nil, err
	}
	return ref, player, nil
}
