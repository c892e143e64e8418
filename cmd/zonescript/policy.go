package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"

	"zonescript/internal/messages"
	"zonescript/internal/policy"
)

type PolicyCmd struct {
	Create PolicyCreateCmd `cmd:"" help:"Create a whitelist policy."`
	Delete PolicyDeleteCmd `cmd:"" help:"Delete a policy."`
	Grant  PolicyGrantCmd  `cmd:"" help:"Add functions to the policy's list."`
	Revoke PolicyRevokeCmd `cmd:"" help:"Remove functions from the policy's list."`
	Mode   PolicyModeCmd   `cmd:"" help:"Switch between whitelist and blacklist."`
	VarAdd PolicyVarAddCmd `cmd:"" name:"var-add" help:"Make a script variable persistent."`
	VarRm  PolicyVarRmCmd  `cmd:"" name:"var-rm" help:"Stop persisting a script variable."`
	Show   PolicyShowCmd   `cmd:"" help:"Print a policy."`
	List   PolicyListCmd   `cmd:"" help:"List policies."`
	Check  PolicyCheckCmd  `cmd:"" help:"Report whether a policy allows a function."`
}

type PolicyCreateCmd struct {
	Name   string    `arg:""`
	Owner  string    `arg:""`
	Bounds []float64 `help:"Region corners as x1,y1,z1,x2,y2,z2." required:""`
	World  string    `help:"World of the region; the default world when empty."`
}

func (c *PolicyCreateCmd) Run(ctx context.Context, e *env) error {
	if len(c.Bounds) != 6 {
		return fmt.Errorf("%w: --bounds needs 6 numbers, got %d", policy.ErrMalformedPolicy, len(c.Bounds))
	}
	world := c.World
	if world == "" {
		world = e.cfg.DefaultWorld
	}
	registry, err := e.registry(ctx)
	if err != nil {
		return err
	}

	p := policy.New(c.Name, c.Owner, [6]float64(c.Bounds), world)
	if err := registry.Create(ctx, p); err != nil {
		return err
	}
	e.printf(messages.PolicyCreated, c.Name, c.Owner)
	return nil
}

type PolicyDeleteCmd struct {
	Name string `arg:""`
}

func (c *PolicyDeleteCmd) Run(ctx context.Context, e *env) error {
	registry, err := e.registry(ctx)
	if err != nil {
		return err
	}
	if err := registry.Delete(ctx, c.Name); err != nil {
		return notFound(e, c.Name, err)
	}
	e.printf(messages.PolicyDeleted, c.Name)
	return nil
}

type PolicyGrantCmd struct {
	Name      string   `arg:""`
	Functions []string `arg:""`
}

func (c *PolicyGrantCmd) Run(ctx context.Context, e *env) error {
	return eachFunction(ctx, e, c.Name, c.Functions, messages.FunctionGranted,
		func(r *policy.Registry, fn string) (bool, error) { return r.Grant(ctx, c.Name, fn) })
}

type PolicyRevokeCmd struct {
	Name      string   `arg:""`
	Functions []string `arg:""`
}

func (c *PolicyRevokeCmd) Run(ctx context.Context, e *env) error {
	return eachFunction(ctx, e, c.Name, c.Functions, messages.FunctionRevoked,
		func(r *policy.Registry, fn string) (bool, error) { return r.Revoke(ctx, c.Name, fn) })
}

func eachFunction(ctx context.Context, e *env, name string, functions []string, done messages.Key,
	apply func(r *policy.Registry, fn string) (bool, error)) error {
	registry, err := e.registry(ctx)
	if err != nil {
		return err
	}
	for _, fn := range functions {
		changed, err := apply(registry, fn)
		if err != nil {
			return notFound(e, name, err)
		}
		if !changed {
			e.printf(messages.NothingChanged)
			continue
		}
		e.printf(done, fn, name)
	}
	return nil
}

type PolicyModeCmd struct {
	Name string `arg:""`
	Mode string `arg:"" enum:"whitelist,blacklist"`
}

func (c *PolicyModeCmd) Run(ctx context.Context, e *env) error {
	registry, err := e.registry(ctx)
	if err != nil {
		return err
	}
	mode := policy.ParseMode(c.Mode, e.logger)
	changed, err := registry.SetMode(ctx, c.Name, mode)
	if err != nil {
		return notFound(e, c.Name, err)
	}
	if !changed {
		e.printf(messages.NothingChanged)
		return nil
	}
	e.printf(messages.ModeChanged, c.Name, mode)
	return nil
}

type PolicyVarAddCmd struct {
	Name     string `arg:""`
	Variable string `arg:""`
}

func (c *PolicyVarAddCmd) Run(ctx context.Context, e *env) error {
	registry, err := e.registry(ctx)
	if err != nil {
		return err
	}
	changed, err := registry.AddPersistentVar(ctx, c.Name, c.Variable)
	if err != nil {
		return notFound(e, c.Name, err)
	}
	if !changed {
		e.printf(messages.NothingChanged)
		return nil
	}
	e.printf(messages.VariableAdded, c.Variable, c.Name)
	return nil
}

type PolicyVarRmCmd struct {
	Name     string `arg:""`
	Variable string `arg:""`
}

func (c *PolicyVarRmCmd) Run(ctx context.Context, e *env) error {
	registry, err := e.registry(ctx)
	if err != nil {
		return err
	}
	changed, err := registry.RemovePersistentVar(ctx, c.Name, c.Variable)
	if err != nil {
		return notFound(e, c.Name, err)
	}
	if !changed {
		e.printf(messages.NothingChanged)
		return nil
	}
	e.printf(messages.VariableRemoved, c.Variable, c.Name)
	return nil
}

// policyView is the printed form of a policy.
type policyView struct {
	Name       string         `yaml:"name"`
	Owner      string         `yaml:"owner"`
	World      string         `yaml:"world"`
	Boundaries []float64      `yaml:"boundaries,flow"`
	Mode       string         `yaml:"mode"`
	Functions  []string       `yaml:"functions"`
	Variables  map[string]any `yaml:"variables"`
}

type PolicyShowCmd struct {
	Name string `arg:""`
}

func (c *PolicyShowCmd) Run(ctx context.Context, e *env) error {
	registry, err := e.registry(ctx)
	if err != nil {
		return err
	}
	p, err := registry.Get(ctx, c.Name)
	if err != nil {
		return notFound(e, c.Name, err)
	}

	data, err := yaml.Marshal(policyView{
		Name:       p.Name,
		Owner:      p.Owner,
		World:      p.World,
		Boundaries: p.Bounds[:],
		Mode:       string(p.Mode),
		Functions:  p.Functions,
		Variables:  p.Variables,
	})
	if err != nil {
		return err
	}
	fmt.Fprint(e.out, string(data))
	return nil
}

type PolicyListCmd struct{}

func (c *PolicyListCmd) Run(ctx context.Context, e *env) error {
	registry, err := e.registry(ctx)
	if err != nil {
		return err
	}
	for _, name := range registry.Names() {
		p, err := registry.Get(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "%-16s %-12s %-9s %s\n", p.Name, p.Owner, p.Mode, p.Region())
	}
	return nil
}

type PolicyCheckCmd struct {
	Name     string `arg:""`
	Function string `arg:""`
}

func (c *PolicyCheckCmd) Run(ctx context.Context, e *env) error {
	registry, err := e.registry(ctx)
	if err != nil {
		return err
	}
	allowed, err := registry.Allowed(c.Name, c.Function)
	if err != nil {
		return notFound(e, c.Name, err)
	}
	if allowed {
		e.printf(messages.PermissionAllowed, c.Name, c.Function)
	} else {
		e.printf(messages.PermissionRefused, c.Name, c.Function)
	}
	return nil
}

// notFound replaces a missing-policy error with the operator message.
func notFound(e *env, name string, err error) error {
	if errors.Is(err, policy.ErrPolicyNotFound) {
		return fmt.Errorf("%s: %w", e.catalog.Sprintf(messages.PolicyNotFound, name), policy.ErrPolicyNotFound)
	}
	return err
}
