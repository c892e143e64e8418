package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"zonescript/internal/diag"
	"zonescript/internal/evaluator"
	"zonescript/internal/host"
	"zonescript/internal/native"
	"zonescript/internal/object"
	"zonescript/internal/parser"
	"zonescript/internal/repl"
)

const historyFile = ".zonescript_history"

type ReplCmd struct {
	Host HostFlags `embed:""`

	Script string `help:"Run the shell inside the script loaded under this policy." short:"s"`
	File   string `help:"Source to load before the first prompt." short:"f" type:"existingfile"`
}

// shell is what the REPL evaluates against: a script loaded under a
// policy, or a standalone evaluator without one.
type shell struct {
	eval     repl.EvalFunc
	trigger  func(ctx context.Context, event string, vars map[string]object.Object) error
	handlers func() []string
}

func (c *ReplCmd) Run(ctx context.Context, e *env) error {
	sim, err := c.Host.sim(e)
	if err != nil {
		return err
	}

	preload := ""
	if c.File != "" {
		data, err := os.ReadFile(c.File)
		if err != nil {
			return err
		}
		preload = string(data)
	}

	var sh shell
	if c.Script != "" {
		registry, err := e.registry(ctx)
		if err != nil {
			return err
		}
		rt := newRuntime(e, registry, sim)
		defer closeRuntime(ctx, e, rt)

		script, err := rt.Load(ctx, c.Script, preload)
		if err != nil {
			fmt.Fprintln(e.errOut, diag.Error(err, preload))
			return err
		}
		sh = shell{
			eval: func(ctx context.Context, src string) (object.Object, error) {
				return rt.Eval(ctx, c.Script, src)
			},
			trigger: func(ctx context.Context, event string, vars map[string]object.Object) error {
				return rt.TriggerScript(ctx, c.Script, event, vars)
			},
			handlers: script.Handlers,
		}
	} else {
		e.logger.Info("no policy selected, gated natives are unrestricted")
		ev := evaluator.New(evaluator.Options{
			Name:         "repl",
			DefaultWorld: e.cfg.DefaultWorld,
			Natives:      append(native.Builtins(e.out), sim.Natives()...),
			Logger:       e.logger,
		})
		sh = shell{
			eval: func(_ context.Context, src string) (object.Object, error) {
				program, err := parser.Parse(src)
				if err != nil {
					return nil, err
				}
				return ev.Run(program)
			},
			trigger: func(_ context.Context, event string, vars map[string]object.Object) error {
				return ev.TriggerEvent(event, vars)
			},
			handlers: ev.Handlers,
		}
		if preload != "" {
			if _, err := sh.eval(ctx, preload); err != nil {
				fmt.Fprintln(e.errOut, diag.Error(err, preload))
				return err
			}
		}
	}

	session := repl.New(sh.eval, e.out, e.logger)
	session.Handle("on", repl.Command{
		Help: "list event handlers",
		Run: func(_ context.Context, _ []string, out io.Writer) error {
			_, err := fmt.Fprintln(out, strings.Join(sh.handlers(), " "))
			return err
		},
	})
	session.Handle("fire", repl.Command{
		Help: "dispatch an event: :fire Event key=value...",
		Run: func(ctx context.Context, args []string, out io.Writer) error {
			if len(args) == 0 {
				return errors.New("usage: :fire Event key=value...")
			}
			vars, err := sim.ResolveAll(args[1:])
			if err != nil {
				return err
			}
			if err := sh.trigger(ctx, args[0], vars); err != nil {
				return err
			}
			printInboxes(&env{out: out}, sim)
			return nil
		},
	})
	session.Handle("who", repl.Command{
		Help: "list online players",
		Run: func(_ context.Context, _ []string, out io.Writer) error {
			_, err := fmt.Fprintln(out, strings.Join(sim.Players(), " "))
			return err
		},
	})

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintf(e.out, "zonescript %s, :help for commands\n", Version)
	return session.Run(ctx, ln)
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(home, historyFile)
}

var _ repl.Prompter = (*liner.State)(nil)

