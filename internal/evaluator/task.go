package evaluator

import (
	"errors"
	"log/slog"

	"zonescript/internal/ast"
	"zonescript/internal/object"
	"zonescript/internal/region"
	"zonescript/internal/token"
)

// task is one synchronous execution: a top-level run, an event dispatch or
// a REPL line. It implements object.EvaluatorContext for natives.
type task struct {
	ev       *Evaluator
	envStack []*object.Environment
	depth    int
	pos      token.Token // position of the innermost call, for natives
}

func newTask(ev *Evaluator, env *object.Environment) *task {
	return &task{ev: ev, envStack: []*object.Environment{env}}
}

func (t *task) CurrentEnv() *object.Environment {
	return t.envStack[len(t.envStack)-1]
}

func (t *task) PushEnv(env *object.Environment) {
	t.envStack = append(t.envStack, env)
}

func (t *task) PopEnv() {
	t.envStack = t.envStack[:len(t.envStack)-1]
}

func (t *task) Global() *object.Environment { return t.ev.global }
func (t *task) DefaultWorld() string        { return t.ev.defaultWorld }
func (t *task) Logger() *slog.Logger        { return t.ev.logger }

// Call lets natives invoke script functions and other natives.
func (t *task) Call(fn object.Object, args []object.Object) (object.Object, error) {
	return t.applyFunction(t.pos, fn, args)
}

func (t *task) execStatements(statements []ast.Statement) (Outcome, error) {
	for _, stmt := range statements {
		out, err := t.execStatement(stmt)
		if err != nil {
			return Outcome{}, err
		}
		if out.Flow != FlowNormal {
			return out, nil
		}
	}
	return normal(object.NULL), nil
}

// execBlockIn runs block with env pushed as the current scope.
func (t *task) execBlockIn(block *ast.BlockStatement, env *object.Environment) (Outcome, error) {
	t.PushEnv(env)
	defer t.PopEnv()
	return t.execStatements(block.Statements)
}

func (t *task) execStatement(stmt ast.Statement) (Outcome, error) {
	switch node := stmt.(type) {
	case *ast.ExpressionStatement:
		val, err := t.eval(node.Expression)
		if err != nil {
			return Outcome{}, err
		}
		return normal(val), nil

	case *ast.VariableDeclaration:
		return t.execVariableDeclaration(node)

	case *ast.FunctionDeclaration:
		fn := &object.Function{
			Name:       node.Name.Value,
			Parameters: node.Parameters,
			Body:       node.Body,
			Env:        t.CurrentEnv(),
		}
		if err := t.CurrentEnv().Define(fn.Name, fn); err != nil {
			return Outcome{}, wrapError(node.Token, err)
		}
		return normal(object.NULL), nil

	case *ast.ReturnStatement:
		var val object.Object = object.NULL
		if node.ReturnValue != nil {
			v, err := t.eval(node.ReturnValue)
			if err != nil {
				return Outcome{}, err
			}
			val = v
		}
		return Outcome{Flow: FlowReturn, Value: val, Pos: node.Token}, nil

	case *ast.IfStatement:
		return t.execIf(node)

	case *ast.WhileStatement:
		return t.execWhile(node)

	case *ast.ForStatement:
		return t.execFor(node)

	case *ast.BreakStatement:
		return Outcome{Flow: FlowBreak, Value: object.NULL, Pos: node.Token}, nil

	case *ast.ContinueStatement:
		return Outcome{Flow: FlowContinue, Value: object.NULL, Pos: node.Token}, nil

	case *ast.TryStatement:
		return t.execTry(node)

	case *ast.EventHandler:
		t.ev.registerHandler(node.EventName.Value, node.Body)
		return normal(object.NULL), nil

	case *ast.BlockStatement:
		return t.execStatements(node.Statements)
	}

	return Outcome{}, newRuntimeError(stmt.Pos(), ErrTypeMismatch, "unsupported statement %T", stmt)
}

func (t *task) execVariableDeclaration(node *ast.VariableDeclaration) (Outcome, error) {
	var val object.Object = object.NULL
	if node.Value != nil {
		v, err := t.eval(node.Value)
		if err != nil {
			return Outcome{}, err
		}
		val = v
	}

	env := t.CurrentEnv()
	var err error
	if node.Constant {
		err = env.DefineConst(node.Name.Value, val)
	} else {
		err = env.Define(node.Name.Value, val)
	}
	if err != nil {
		return Outcome{}, wrapError(node.Token, err)
	}
	return normal(val), nil
}

// execIf runs the chosen branch in the current scope.
func (t *task) execIf(node *ast.IfStatement) (Outcome, error) {
	cond, err := t.eval(node.Condition)
	if err != nil {
		return Outcome{}, err
	}

	if isTruthy(cond) {
		return t.execStatements(node.Consequence.Statements)
	}

	switch alt := node.Alternative.(type) {
	case *ast.IfStatement:
		return t.execIf(alt)
	case *ast.BlockStatement:
		return t.execStatements(alt.Statements)
	}
	return normal(object.NULL), nil
}

func (t *task) execWhile(node *ast.WhileStatement) (Outcome, error) {
	for {
		cond, err := t.eval(node.Condition)
		if err != nil {
			return Outcome{}, err
		}
		if !isTruthy(cond) {
			return normal(object.NULL), nil
		}

		body := object.NewEnclosedEnvironment(t.CurrentEnv(), "while")
		out, err := t.execBlockIn(node.Body, body)
		if err != nil {
			return Outcome{}, err
		}
		switch out.Flow {
		case FlowBreak:
			return normal(object.NULL), nil
		case FlowReturn:
			return out, nil
		}
	}
}

// execFor iterates a list. `for x in s.players` runs each iteration in a
// child of the scope s refers to, so the body sees that scope's names.
func (t *task) execFor(node *ast.ForStatement) (Outcome, error) {
	parent := t.CurrentEnv()

	var iterable object.Object
	if member, ok := node.Iterable.(*ast.MemberExpression); ok && member.Property.Value == "players" {
		target, err := t.eval(member.Object)
		if err != nil {
			return Outcome{}, err
		}
		if ref, ok := target.(*object.ScopeRef); ok {
			parent = ref.Env
		}
		iterable, err = t.member(member.Token, target, member.Property.Value)
		if err != nil {
			return Outcome{}, err
		}
	} else {
		var err error
		iterable, err = t.eval(node.Iterable)
		if err != nil {
			return Outcome{}, err
		}
	}

	list, ok := iterable.(*object.List)
	if !ok {
		return Outcome{}, newRuntimeError(node.Iterable.Pos(), ErrNotIterable,
			"cannot iterate over %s", typeName(iterable))
	}
	items := append([]object.Object(nil), list.Elements...)

	for _, item := range items {
		body := object.NewEnclosedEnvironment(parent, "for")
		if err := body.Set(node.Variable.Value, item); err != nil {
			return Outcome{}, wrapError(node.Variable.Token, err)
		}

		out, err := t.execBlockIn(node.Body, body)
		if err != nil {
			return Outcome{}, err
		}
		switch out.Flow {
		case FlowBreak:
			return normal(object.NULL), nil
		case FlowReturn:
			return out, nil
		}
	}

	return normal(object.NULL), nil
}

// execTry runs the try block in the current scope. A runtime error runs
// the catch block in a child scope with the error message bound.
func (t *task) execTry(node *ast.TryStatement) (Outcome, error) {
	out, err := t.execStatements(node.TryBlock.Statements)
	if err == nil {
		return out, nil
	}

	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		return Outcome{}, err
	}

	t.ev.logger.Debug("caught runtime error", slog.Any("error", rtErr))

	catchEnv := object.NewEnclosedEnvironment(t.CurrentEnv(), "catch")
	if node.ErrorVariable != nil {
		if err := catchEnv.Define(node.ErrorVariable.Value, &object.String{Value: rtErr.Message()}); err != nil {
			return Outcome{}, wrapError(node.ErrorVariable.Token, err)
		}
	}
	return t.execBlockIn(node.CatchBlock, catchEnv)
}

func (t *task) eval(expr ast.Expression) (object.Object, error) {
	switch node := expr.(type) {
	case *ast.NumberLiteral:
		return &object.Number{Value: node.Value}, nil

	case *ast.StringLiteral:
		return t.interpolate(node)

	case *ast.BooleanLiteral:
		return object.Bool(node.Value), nil

	case *ast.NullLiteral:
		return object.NULL, nil

	case *ast.Identifier:
		return t.evalIdentifier(node)

	case *ast.ListLiteral:
		elements, err := t.evalExpressions(node.Elements)
		if err != nil {
			return nil, err
		}
		return &object.List{Elements: elements}, nil

	case *ast.UnaryExpression:
		operand, err := t.eval(node.Operand)
		if err != nil {
			return nil, err
		}
		return evalUnary(node.Token, node.Operator, operand)

	case *ast.BinaryExpression:
		// both operands are always evaluated, && and || included
		left, err := t.eval(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := t.eval(node.Right)
		if err != nil {
			return nil, err
		}
		return evalBinary(node.Token, node.Operator, left, right)

	case *ast.AssignmentExpression:
		return t.evalAssignment(node)

	case *ast.CallExpression:
		return t.evalCall(node)

	case *ast.MemberExpression:
		obj, err := t.eval(node.Object)
		if err != nil {
			return nil, err
		}
		return t.member(node.Token, obj, node.Property.Value)

	case *ast.IndexExpression:
		left, err := t.eval(node.Left)
		if err != nil {
			return nil, err
		}
		index, err := t.eval(node.Index)
		if err != nil {
			return nil, err
		}
		return evalIndex(node.Token, left, index)

	case *ast.ScopeCreation:
		return t.evalScopeCreation(node)
	}

	return nil, newRuntimeError(expr.Pos(), ErrTypeMismatch, "unsupported expression %T", expr)
}

func (t *task) evalExpressions(exps []ast.Expression) ([]object.Object, error) {
	result := make([]object.Object, 0, len(exps))
	for _, e := range exps {
		val, err := t.eval(e)
		if err != nil {
			return nil, err
		}
		result = append(result, val)
	}
	return result, nil
}

// evalIdentifier resolves variables first, then natives as values.
func (t *task) evalIdentifier(node *ast.Identifier) (object.Object, error) {
	if val, ok := t.CurrentEnv().Lookup(node.Value); ok {
		return val, nil
	}
	if native, ok := t.ev.natives[node.Value]; ok {
		return native, nil
	}
	return nil, newRuntimeError(node.Token, object.ErrUndefinedVariable, "undefined variable '%s'", node.Value)
}

func (t *task) evalAssignment(node *ast.AssignmentExpression) (object.Object, error) {
	val, err := t.eval(node.Value)
	if err != nil {
		return nil, err
	}

	switch target := node.Target.(type) {
	case *ast.Identifier:
		if err := t.CurrentEnv().Set(target.Value, val); err != nil {
			return nil, wrapError(node.Token, err)
		}
		return val, nil

	case *ast.MemberExpression:
		obj, err := t.eval(target.Object)
		if err != nil {
			return nil, err
		}
		ref, ok := obj.(*object.ScopeRef)
		if !ok {
			return nil, newRuntimeError(node.Token, ErrTypeMismatch,
				"cannot assign property '%s' on %s", target.Property.Value, typeName(obj))
		}
		if err := ref.Env.Set(target.Property.Value, val); err != nil {
			return nil, wrapError(node.Token, err)
		}
		return val, nil
	}

	return nil, newRuntimeError(node.Token, ErrTypeMismatch, "invalid assignment target %s", node.Target.String())
}

// evalScopeCreation builds a spatial child of the current scope. Its world
// is inherited from the nearest region up the chain.
func (t *task) evalScopeCreation(node *ast.ScopeCreation) (object.Object, error) {
	var bounds [6]float64
	for i, expr := range node.Bounds {
		val, err := t.eval(expr)
		if err != nil {
			return nil, err
		}
		n, ok := val.(*object.Number)
		if !ok {
			return nil, newRuntimeError(expr.Pos(), ErrTypeMismatch,
				"scope coordinate %d must be a number, got %s", i+1, typeName(val))
		}
		bounds[i] = n.Value
	}

	current := t.CurrentEnv()
	world := t.ev.defaultWorld
	if r, ok := current.NearestRegion(); ok {
		world = r.World
	}
	r := region.FromBounds(bounds, world)

	if t.ev.boundary != nil && !t.ev.boundary.ContainsRegion(r) {
		return nil, newRuntimeError(node.Token, ErrOutOfRange,
			"scope %s is outside the allowed boundary %s", r, *t.ev.boundary)
	}

	env := object.NewEnclosedEnvironment(current, "scope")
	env.SetRegion(r)
	return &object.ScopeRef{Env: env}, nil
}
