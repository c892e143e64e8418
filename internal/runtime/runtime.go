// Package runtime loads scripts under their policies and dispatches host
// events to them.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"zonescript/internal/evaluator"
	"zonescript/internal/future"
	"zonescript/internal/messages"
	"zonescript/internal/object"
	"zonescript/internal/parser"
	"zonescript/internal/policy"
)

type Options struct {
	Policies     *policy.Registry
	Catalog      *messages.Catalog
	Natives      []*object.Native
	DefaultWorld string
	QueueSize    int
	MaxCallDepth int
	Logger       *slog.Logger
}

type Runtime struct {
	opts    Options
	scripts *xsync.MapOf[string, *Script]
	// serializes Load and Unload of the same names
	mu     sync.Mutex
	logger *slog.Logger
}

func New(opts Options) *Runtime {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Catalog == nil {
		opts.Catalog = messages.New("en")
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 64
	}
	return &Runtime{
		opts:    opts,
		scripts: xsync.NewMapOf[string, *Script](),
		logger:  opts.Logger.With(slog.String("component", "runtime")),
	}
}

// Load parses source and runs its top level under the policy called name.
// Nothing is registered unless every step succeeds. Persistent variables
// stored in the policy overwrite the top-level values afterwards.
func (r *Runtime) Load(ctx context.Context, name, source string) (*Script, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scripts.Load(name); ok {
		return nil, fmt.Errorf("%w: %s", ErrScriptLoaded, name)
	}

	script, err := r.load(ctx, name, source)
	if err != nil {
		r.logger.Error(r.opts.Catalog.Sprintf(messages.ScriptLoadFailed, name, err),
			slog.String("script", name), slog.Any("error", err))
		return nil, err
	}

	r.scripts.Store(name, script)
	r.logger.Info(r.opts.Catalog.Sprintf(messages.ScriptLoaded, name, len(script.Handlers())),
		slog.String("script", name))
	return script, nil
}

func (r *Runtime) load(ctx context.Context, name, source string) (*Script, error) {
	p, err := r.opts.Policies.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	program, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}

	boundary := p.Region()
	logger := r.opts.Logger.With(slog.String("script", name))
	ev := evaluator.New(evaluator.Options{
		Name:         name,
		DefaultWorld: r.opts.DefaultWorld,
		Natives:      r.opts.Natives,
		Authorizer:   r.gate(name),
		Boundary:     &boundary,
		MaxCallDepth: r.opts.MaxCallDepth,
		Logger:       logger,
	})

	script := newScript(name, source, ev, r.opts.QueueSize, r.opts.Catalog, logger)
	if _, err := script.run(ctx, program); err != nil {
		script.stop()
		return nil, err
	}

	if err := restore(ev.Global(), p.Variables, logger); err != nil {
		script.stop()
		return nil, err
	}
	return script, nil
}

// restore assigns stored values to persistent variables. Variables that
// were never saved keep their top-level value.
func restore(global *object.Environment, vars map[string]any, logger *slog.Logger) error {
	for _, key := range object.SortedKeys(vars) {
		if vars[key] == nil {
			continue
		}
		value, err := object.FromPrimitive(vars[key])
		if err != nil {
			return fmt.Errorf("%w: variable %s: %v", policy.ErrMalformedPolicy, key, err)
		}
		if global.IsConst(key) {
			logger.Warn("persistent variable is a constant, keeping its declared value", slog.String("variable", key))
			continue
		}
		if err := global.Set(key, value); err != nil {
			return err
		}
		logger.Debug("restored persistent variable", slog.String("variable", key))
	}
	return nil
}

// Unload stops the script after its pending work and saves the current
// values of its persistent variables.
func (r *Runtime) Unload(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	script, ok := r.scripts.LoadAndDelete(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrScriptNotLoaded, name)
	}
	script.stop()

	err := r.snapshot(ctx, script)
	r.logger.Info(r.opts.Catalog.Sprintf(messages.ScriptUnloaded, name), slog.String("script", name))
	return err
}

func (r *Runtime) snapshot(ctx context.Context, script *Script) error {
	p, err := r.opts.Policies.Get(ctx, script.name)
	if errors.Is(err, policy.ErrPolicyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	values := map[string]any{}
	global := script.ev.Global()
	for name := range p.Variables {
		obj, ok := global.GetLocal(name)
		if !ok {
			continue
		}
		value, ok := object.ToPrimitive(obj)
		if !ok {
			script.logger.Warn("persistent variable holds a value that cannot be stored",
				slog.String("variable", name), slog.String("type", string(obj.Type())))
			continue
		}
		values[name] = value
	}

	_, err = r.opts.Policies.SetVariables(ctx, script.name, values)
	return err
}

// Reload unloads name if it is loaded and loads source in its place. On
// failure the old script stays unloaded.
func (r *Runtime) Reload(ctx context.Context, name, source string) (*Script, error) {
	if err := r.Unload(ctx, name); err != nil && !errors.Is(err, ErrScriptNotLoaded) {
		return nil, err
	}
	return r.Load(ctx, name, source)
}

func (r *Runtime) Script(name string) (*Script, bool) {
	return r.scripts.Load(name)
}

// Names lists the loaded scripts in lexical order.
func (r *Runtime) Names() []string {
	names := []string{}
	r.scripts.Range(func(name string, _ *Script) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Trigger dispatches an event to every loaded script with a handler for it
// and waits for all of them. It returns how many scripts were dispatched
// to and the joined handler errors.
func (r *Runtime) Trigger(ctx context.Context, event string, vars map[string]object.Object) (int, error) {
	var pending []*future.Future[object.Object]
	for _, name := range r.Names() {
		script, ok := r.scripts.Load(name)
		if !ok || !script.HasHandler(event) {
			continue
		}
		pending = append(pending, script.dispatch(ctx, event, vars))
	}

	_, err := future.AwaitAll(ctx, pending...)
	r.logger.Debug(r.opts.Catalog.Sprintf(messages.EventDispatched, event, len(pending)),
		slog.String("event", event))
	return len(pending), err
}

// TriggerScript dispatches an event to one script.
func (r *Runtime) TriggerScript(ctx context.Context, name, event string, vars map[string]object.Object) error {
	script, ok := r.scripts.Load(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrScriptNotLoaded, name)
	}
	_, err := script.dispatch(ctx, event, vars).Await(ctx)
	return err
}

// Eval runs additional source in a loaded script's global scope.
func (r *Runtime) Eval(ctx context.Context, name, source string) (object.Object, error) {
	script, ok := r.scripts.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotLoaded, name)
	}
	program, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	return script.run(ctx, program)
}

// Close unloads every script.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	for _, name := range r.Names() {
		if err := r.Unload(ctx, name); err != nil && !errors.Is(err, ErrScriptNotLoaded) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// gate checks gated natives against the live policy, so grants and
// revocations apply to loaded scripts.
func (r *Runtime) gate(script string) evaluator.Authorizer {
	return evaluator.AuthorizerFunc(func(function string) error {
		allowed, err := r.opts.Policies.Allowed(script, function)
		if err != nil {
			return evaluator.Errorf(evaluator.ErrPermissionDenied, "%s", err.Error())
		}
		if !allowed {
			return evaluator.Errorf(evaluator.ErrPermissionDenied, "%s",
				r.opts.Catalog.Sprintf(messages.PermissionDenied, script, function))
		}
		return nil
	})
}
