package evaluator

import (
	"errors"
	"log/slog"

	"zonescript/internal/ast"
	"zonescript/internal/object"
	"zonescript/internal/token"
)

// evalCall looks an identifier callee up among the natives before the
// script's own variables.
func (t *task) evalCall(node *ast.CallExpression) (object.Object, error) {
	var fn object.Object
	if ident, ok := node.Function.(*ast.Identifier); ok {
		if native, ok := t.ev.natives[ident.Value]; ok {
			fn = native
		}
	}
	if fn == nil {
		callee, err := t.eval(node.Function)
		if err != nil {
			return nil, err
		}
		fn = callee
	}

	args, err := t.evalExpressions(node.Arguments)
	if err != nil {
		return nil, err
	}

	return t.applyFunction(node.Token, fn, args)
}

func (t *task) applyFunction(pos token.Token, fn object.Object, args []object.Object) (object.Object, error) {
	if t.depth >= t.ev.maxDepth {
		return nil, newRuntimeError(pos, ErrCallDepth, "maximum call depth of %d exceeded", t.ev.maxDepth)
	}
	t.depth++
	defer func() { t.depth-- }()

	switch f := fn.(type) {
	case *object.Function:
		return t.callFunction(pos, f, args)
	case *object.Native:
		return t.callNative(pos, f, args)
	}

	return nil, newRuntimeError(pos, ErrNotCallable, "%s is not callable", typeName(fn))
}

func (t *task) callFunction(pos token.Token, fn *object.Function, args []object.Object) (object.Object, error) {
	if len(args) != len(fn.Parameters) {
		return nil, newRuntimeError(pos, ErrArity,
			"wrong number of arguments to %s. got=%d, want=%d", fn.Name, len(args), len(fn.Parameters))
	}

	env := object.NewEnclosedEnvironment(fn.Env, fn.Name)
	for i, param := range fn.Parameters {
		if err := env.Define(param.Value, args[i]); err != nil {
			return nil, wrapError(param.Token, err)
		}
	}

	out, err := t.execBlockIn(fn.Body, env)
	if err != nil {
		return nil, err
	}

	switch out.Flow {
	case FlowReturn:
		return out.Value, nil
	case FlowBreak, FlowContinue:
		return nil, escapeError(out)
	}
	return object.NULL, nil
}

func (t *task) callNative(pos token.Token, native *object.Native, args []object.Object) (object.Object, error) {
	if native.Gated && t.ev.authorizer != nil {
		if err := t.ev.authorizer.Authorize(native.Name); err != nil {
			t.ev.logger.Warn("native call denied",
				slog.String("function", native.Name),
				slog.Int("line", pos.Line))
			if errors.Is(err, ErrPermissionDenied) {
				return nil, wrapError(pos, err)
			}
			return nil, newRuntimeError(pos, errors.Join(ErrPermissionDenied, err), "%s", err.Error())
		}
	}

	saved := t.pos
	t.pos = pos
	defer func() { t.pos = saved }()

	result, err := native.Fn(t, args...)
	if err != nil {
		return nil, wrapError(pos, err)
	}
	if result == nil {
		return object.NULL, nil
	}
	return result, nil
}
