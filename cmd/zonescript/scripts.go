package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"zonescript/internal/diag"
	"zonescript/internal/host"
	"zonescript/internal/messages"
	"zonescript/internal/native"
	"zonescript/internal/object"
	"zonescript/internal/policy"
	"zonescript/internal/runtime"
)

// HostFlags select the host the commands run scripts against.
type HostFlags struct {
	State string `help:"YAML file with the worlds, players and entities of the simulated host." name:"world" type:"existingfile"`
}

func (w HostFlags) sim(e *env) (*host.Sim, error) {
	if w.State == "" {
		sim := host.NewSim(e.logger)
		sim.AddWorld(e.cfg.DefaultWorld)
		return sim, nil
	}
	return host.LoadState(w.State, e.logger)
}

func newRuntime(e *env, registry *policy.Registry, sim *host.Sim) *runtime.Runtime {
	return runtime.New(runtime.Options{
		Policies:     registry,
		Catalog:      e.catalog,
		Natives:      append(native.Builtins(e.out), sim.Natives()...),
		DefaultWorld: e.cfg.DefaultWorld,
		QueueSize:    e.cfg.QueueSize,
		Logger:       e.logger,
	})
}

// scriptSource pairs a policy name with the file holding its script.
type scriptSource struct {
	Name string
	Path string
}

// parseScriptSources accepts name=path, or a bare path named after its
// file.
func parseScriptSources(args []string) ([]scriptSource, error) {
	sources := make([]scriptSource, 0, len(args))
	for _, arg := range args {
		name, path, ok := strings.Cut(arg, "=")
		if !ok {
			path = arg
			name = strings.TrimSuffix(baseName(path), ".zs")
		}
		if name == "" || path == "" {
			return nil, fmt.Errorf("invalid script %q, expected name=path", arg)
		}
		sources = append(sources, scriptSource{Name: name, Path: path})
	}
	return sources, nil
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// loadScripts loads every source; the first failure is reported with its
// source excerpt and stops.
func loadScripts(ctx context.Context, e *env, rt *runtime.Runtime, sources []scriptSource) error {
	for _, s := range sources {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return err
		}
		if _, err := rt.Load(ctx, s.Name, string(data)); err != nil {
			fmt.Fprintln(e.errOut, diag.Error(err, string(data)))
			return fmt.Errorf("loading %s: %w", s.Path, err)
		}
	}
	return nil
}

// report prints handler failures with the failing handler's source.
func report(e *env, rt *runtime.Runtime, err error) {
	var handlerErr *runtime.HandlerError
	if errors.As(err, &handlerErr) {
		src := ""
		if script, ok := rt.Script(handlerErr.Script); ok {
			src = script.Source()
		}
		fmt.Fprintln(e.errOut, diag.Error(err, src))
		return
	}
	fmt.Fprintln(e.errOut, diag.Error(err, ""))
}

func printInboxes(e *env, sim *host.Sim) {
	for _, name := range sim.Players() {
		for _, msg := range sim.Inbox(name) {
			fmt.Fprintln(e.out, diag.Notice(fmt.Sprintf("[%s] %s", name, msg)))
		}
	}
}

type RunCmd struct {
	Host HostFlags `embed:""`

	Script string   `arg:"" help:"Script file, optionally as policy=path." name:"script"`
	Events []string `help:"Events to dispatch after loading, in order." name:"event" short:"e"`
	Vars   []string `help:"Event variables as key=value; @name is a player, #id an entity." name:"var"`
}

func (c *RunCmd) Run(ctx context.Context, e *env) error {
	sources, err := parseScriptSources([]string{c.Script})
	if err != nil {
		return err
	}
	registry, err := e.registry(ctx)
	if err != nil {
		return err
	}
	sim, err := c.Host.sim(e)
	if err != nil {
		return err
	}

	rt := newRuntime(e, registry, sim)
	defer closeRuntime(ctx, e, rt)

	if err := loadScripts(ctx, e, rt, sources); err != nil {
		return err
	}

	vars, err := sim.ResolveAll(c.Vars)
	if err != nil {
		return err
	}
	for _, event := range c.Events {
		if err := rt.TriggerScript(ctx, sources[0].Name, event, vars); err != nil {
			report(e, rt, err)
		}
	}

	printInboxes(e, sim)
	return nil
}

type TriggerCmd struct {
	Host HostFlags `embed:""`

	Event   string   `arg:"" help:"Event name."`
	Scripts []string `arg:"" help:"Script files, optionally as policy=path." name:"script"`
	Vars    []string `help:"Event variables as key=value; @name is a player, #id an entity." name:"var"`
}

func (c *TriggerCmd) Run(ctx context.Context, e *env) error {
	sources, err := parseScriptSources(c.Scripts)
	if err != nil {
		return err
	}
	registry, err := e.registry(ctx)
	if err != nil {
		return err
	}
	sim, err := c.Host.sim(e)
	if err != nil {
		return err
	}

	rt := newRuntime(e, registry, sim)
	defer closeRuntime(ctx, e, rt)

	if err := loadScripts(ctx, e, rt, sources); err != nil {
		return err
	}

	vars, err := sim.ResolveAll(c.Vars)
	if err != nil {
		return err
	}
	e.logger.Debug("triggering", slog.String("event", c.Event), slog.String("vars", describeVars(vars)))

	n, err := rt.Trigger(ctx, c.Event, vars)
	e.printf(messages.EventDispatched, c.Event, n)
	if err != nil {
		report(e, rt, err)
	}

	printInboxes(e, sim)
	return nil
}

// closeRuntime unloads every script, which saves persistent variables.
func closeRuntime(ctx context.Context, e *env, rt *runtime.Runtime) {
	if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
		e.logger.Error("unloading scripts", slog.Any("error", err))
	}
}

// describeVars renders resolved event variables for the log.
func describeVars(vars map[string]object.Object) string {
	parts := make([]string, 0, len(vars))
	for _, key := range object.SortedKeys(vars) {
		parts = append(parts, key+"="+vars[key].Inspect())
	}
	return strings.Join(parts, " ")
}
