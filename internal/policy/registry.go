package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry is the in-memory view of a Store. Reads are lock-free; every
// mutation is applied to a copy, saved, then published.
type Registry struct {
	store    Store
	policies *xsync.MapOf[string, *Policy]
	mu       sync.Mutex
	logger   *slog.Logger
}

func NewRegistry(store Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:    store,
		policies: xsync.NewMapOf[string, *Policy](),
		logger:   logger.With(slog.String("component", "policy")),
	}
}

// LoadAll reads every stored policy. Records that fail to load are
// reported in the joined error; the others are still registered.
func (r *Registry) LoadAll(ctx context.Context) error {
	names, err := r.store.List(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, name := range names {
		p, err := r.store.Load(ctx, name)
		if err != nil {
			r.logger.Error("failed to load policy", slog.String("policy", name), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		r.policies.Store(name, p)
	}
	r.logger.Info("policies loaded", slog.Int("count", len(names)-len(errs)), slog.Int("failed", len(errs)))
	return errors.Join(errs...)
}

// Get returns a copy of the named policy, loading it from the store on a
// miss.
func (r *Registry) Get(ctx context.Context, name string) (*Policy, error) {
	if p, ok := r.policies.Load(name); ok {
		return p.Clone(), nil
	}
	p, err := r.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	r.policies.Store(name, p)
	return p.Clone(), nil
}

// Names lists the registered policies in lexical order.
func (r *Registry) Names() []string {
	names := []string{}
	r.policies.Range(func(name string, _ *Policy) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

func (r *Registry) Create(ctx context.Context, p *Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.policies.Load(p.Name); ok {
		return fmt.Errorf("%w: %s", ErrPolicyExists, p.Name)
	}
	if _, err := r.store.Load(ctx, p.Name); err == nil {
		return fmt.Errorf("%w: %s", ErrPolicyExists, p.Name)
	} else if !errors.Is(err, ErrPolicyNotFound) {
		return err
	}

	stored := p.Clone()
	if err := r.store.Save(ctx, stored); err != nil {
		return err
	}
	r.policies.Store(p.Name, stored)
	r.logger.Info("policy created", slog.String("policy", p.Name), slog.String("owner", p.Owner))
	return nil
}

func (r *Registry) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, name); err != nil {
		return err
	}
	r.policies.Delete(name)
	r.logger.Info("policy deleted", slog.String("policy", name))
	return nil
}

func (r *Registry) Grant(ctx context.Context, name, function string) (bool, error) {
	return r.update(ctx, name, func(p *Policy) bool { return p.Grant(function) })
}

func (r *Registry) Revoke(ctx context.Context, name, function string) (bool, error) {
	return r.update(ctx, name, func(p *Policy) bool { return p.Revoke(function) })
}

func (r *Registry) SetMode(ctx context.Context, name string, mode Mode) (bool, error) {
	return r.update(ctx, name, func(p *Policy) bool {
		if p.Mode == mode {
			return false
		}
		p.Mode = mode
		return true
	})
}

func (r *Registry) AddPersistentVar(ctx context.Context, name, variable string) (bool, error) {
	return r.update(ctx, name, func(p *Policy) bool { return p.AddPersistentVar(variable) })
}

func (r *Registry) RemovePersistentVar(ctx context.Context, name, variable string) (bool, error) {
	return r.update(ctx, name, func(p *Policy) bool { return p.RemovePersistentVar(variable) })
}

// SetVariables stores values for variables that are already declared
// persistent. Other keys are ignored.
func (r *Registry) SetVariables(ctx context.Context, name string, values map[string]any) (bool, error) {
	return r.update(ctx, name, func(p *Policy) bool {
		changed := false
		for k, v := range values {
			old, ok := p.Variables[k]
			if !ok || old == v {
				continue
			}
			p.Variables[k] = v
			changed = true
		}
		return changed
	})
}

func (r *Registry) update(ctx context.Context, name string, apply func(p *Policy) bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.policies.Load(name)
	if !ok {
		loaded, err := r.store.Load(ctx, name)
		if err != nil {
			return false, err
		}
		current = loaded
	}

	next := current.Clone()
	if !apply(next) {
		r.policies.Store(name, current)
		return false, nil
	}
	if err := r.store.Save(ctx, next); err != nil {
		return false, err
	}
	r.policies.Store(name, next)
	r.logger.Debug("policy updated", slog.String("policy", name))
	return true, nil
}

// Allowed checks a gated function against the registered copy of a
// policy without touching the store.
func (r *Registry) Allowed(name, function string) (bool, error) {
	p, ok := r.policies.Load(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrPolicyNotFound, name)
	}
	return p.HasPermission(function), nil
}
