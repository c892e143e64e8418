package evaluator

import (
	"log/slog"
	"sort"
	"sync"

	"zonescript/internal/ast"
	"zonescript/internal/object"
	"zonescript/internal/region"
)

const defaultMaxCallDepth = 256

// Authorizer decides whether a gated native may be called.
type Authorizer interface {
	Authorize(function string) error
}

// AuthorizerFunc adapts a plain function to Authorizer.
type AuthorizerFunc func(function string) error

func (f AuthorizerFunc) Authorize(function string) error { return f(function) }

type Options struct {
	Name         string // used for the global scope and in logs
	DefaultWorld string
	Natives      []*object.Native
	Authorizer   Authorizer
	// Boundary, when set, becomes the global scope's region and every
	// scope(...) region must lie inside it.
	Boundary     *region.Region
	MaxCallDepth int
	Logger       *slog.Logger
}

// Evaluator owns one script's global scope, its natives and its event
// handlers. Each Run or TriggerEvent executes on its own task; scopes guard
// their own state.
type Evaluator struct {
	name         string
	global       *object.Environment
	natives      map[string]*object.Native
	authorizer   Authorizer
	boundary     *region.Region
	defaultWorld string
	maxDepth     int
	logger       *slog.Logger

	mu       sync.RWMutex
	handlers map[string]*ast.BlockStatement
}

func New(opts Options) *Evaluator {
	if opts.Name == "" {
		opts.Name = "global"
	}
	if opts.DefaultWorld == "" {
		opts.DefaultWorld = "world"
	}
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = defaultMaxCallDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Evaluator{
		name:         opts.Name,
		global:       object.NewEnvironment(opts.Name),
		natives:      make(map[string]*object.Native, len(opts.Natives)),
		authorizer:   opts.Authorizer,
		boundary:     opts.Boundary,
		defaultWorld: opts.DefaultWorld,
		maxDepth:     opts.MaxCallDepth,
		logger:       logger.With(slog.String("script", opts.Name)),
		handlers:     make(map[string]*ast.BlockStatement),
	}

	for _, n := range opts.Natives {
		e.natives[n.Name] = n
	}
	if opts.Boundary != nil {
		e.global.SetRegion(*opts.Boundary)
	}

	return e
}

func (e *Evaluator) Global() *object.Environment { return e.global }
func (e *Evaluator) DefaultWorld() string        { return e.defaultWorld }
func (e *Evaluator) Logger() *slog.Logger        { return e.logger }

// Native looks up a native function by name.
func (e *Evaluator) Native(name string) (*object.Native, bool) {
	n, ok := e.natives[name]
	return n, ok
}

// Run executes a program's top-level statements in the global scope. A
// top-level return ends the run with its value; otherwise the value of the
// last expression statement is returned.
func (e *Evaluator) Run(program *ast.Program) (object.Object, error) {
	t := newTask(e, e.global)

	var last object.Object = object.NULL
	for _, stmt := range program.Statements {
		out, err := t.execStatement(stmt)
		if err != nil {
			return nil, err
		}
		switch out.Flow {
		case FlowReturn:
			return out.Value, nil
		case FlowBreak, FlowContinue:
			return nil, escapeError(out)
		}
		if _, ok := stmt.(*ast.ExpressionStatement); ok {
			last = out.Value
		}
	}

	return last, nil
}

// TriggerEvent runs the handler registered for name, if any. Context
// entries are defined in a fresh child of the global scope that is
// discarded afterwards.
func (e *Evaluator) TriggerEvent(name string, context map[string]object.Object) error {
	e.mu.RLock()
	body, ok := e.handlers[name]
	e.mu.RUnlock()

	if !ok {
		e.logger.Debug("no handler for event", slog.String("event", name))
		return nil
	}

	env := object.NewEnclosedEnvironment(e.global, "on "+name)
	for _, key := range object.SortedKeys(context) {
		if err := env.Define(key, context[key]); err != nil {
			return wrapError(body.Token, err).With(slog.String("event", name))
		}
	}

	e.logger.Debug("dispatching event", slog.String("event", name), slog.Int("context", len(context)))

	t := newTask(e, env)
	out, err := t.execStatements(body.Statements)
	if err != nil {
		return wrapError(body.Token, err).With(slog.String("event", name))
	}
	if out.Flow == FlowBreak || out.Flow == FlowContinue {
		return escapeError(out).With(slog.String("event", name))
	}
	return nil
}

// HasHandler reports whether an `on name` handler is registered.
func (e *Evaluator) HasHandler(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.handlers[name]
	return ok
}

// Handlers lists the registered event names in lexical order.
func (e *Evaluator) Handlers() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.handlers))
	for name := range e.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// registerHandler keeps the last registration for a name.
func (e *Evaluator) registerHandler(name string, body *ast.BlockStatement) {
	e.mu.Lock()
	_, replaced := e.handlers[name]
	e.handlers[name] = body
	e.mu.Unlock()

	e.logger.Debug("registered handler", slog.String("event", name), slog.Bool("replaced", replaced))
}

func escapeError(out Outcome) *RuntimeError {
	return newRuntimeError(out.Pos, ErrFlowEscape, "'%s' outside of a loop", out.Flow)
}
