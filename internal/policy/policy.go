package policy

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"zonescript/internal/object"
	"zonescript/internal/region"
)

var (
	ErrMalformedPolicy = errors.New("malformed policy")
	ErrPolicyNotFound  = errors.New("policy not found")
	ErrPolicyExists    = errors.New("policy already exists")
)

type Mode string

const (
	Whitelist Mode = "WHITELIST"
	Blacklist Mode = "BLACKLIST"
)

// ParseMode is case-insensitive. Anything unrecognized falls back to
// Whitelist with a warning.
func ParseMode(s string, logger *slog.Logger) Mode {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case Whitelist:
		return Whitelist
	case Blacklist:
		return Blacklist
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("invalid policy mode, using WHITELIST", slog.String("mode", s))
	return Whitelist
}

// Policy is the security record of one script: where it may act and which
// gated functions it may call.
type Policy struct {
	Name      string
	Owner     string
	Bounds    [6]float64
	World     string
	Mode      Mode
	Functions []string
	// Variables holds the persistent variables; the key set is the list of
	// names that survive a reload, values are nil, bool, float64 or string.
	Variables map[string]any
}

// New builds a whitelist policy with no granted functions.
func New(name, owner string, bounds [6]float64, world string) *Policy {
	return &Policy{
		Name:      name,
		Owner:     owner,
		Bounds:    bounds,
		World:     world,
		Mode:      Whitelist,
		Functions: []string{},
		Variables: map[string]any{},
	}
}

// HasPermission reports whether a gated function may be called.
func (p *Policy) HasPermission(function string) bool {
	listed := slices.Contains(p.Functions, function)
	if p.Mode == Blacklist {
		return !listed
	}
	return listed
}

// Grant adds function to the list and reports whether it was absent.
func (p *Policy) Grant(function string) bool {
	if slices.Contains(p.Functions, function) {
		return false
	}
	p.Functions = append(p.Functions, function)
	return true
}

// Revoke removes function from the list and reports whether it was present.
func (p *Policy) Revoke(function string) bool {
	i := slices.Index(p.Functions, function)
	if i < 0 {
		return false
	}
	p.Functions = slices.Delete(p.Functions, i, i+1)
	return true
}

// AddPersistentVar declares name as persistent with a null value.
func (p *Policy) AddPersistentVar(name string) bool {
	if _, ok := p.Variables[name]; ok {
		return false
	}
	if p.Variables == nil {
		p.Variables = map[string]any{}
	}
	p.Variables[name] = nil
	return true
}

func (p *Policy) RemovePersistentVar(name string) bool {
	if _, ok := p.Variables[name]; !ok {
		return false
	}
	delete(p.Variables, name)
	return true
}

// Region is the sandbox boundary of the policy.
func (p *Policy) Region() region.Region {
	return region.FromBounds(p.Bounds, p.World)
}

// Clone returns a deep copy.
func (p *Policy) Clone() *Policy {
	c := *p
	c.Functions = slices.Clone(p.Functions)
	c.Variables = make(map[string]any, len(p.Variables))
	for k, v := range p.Variables {
		c.Variables[k] = v
	}
	return &c
}

// Validate checks the fields every stored policy must carry.
func (p *Policy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrMalformedPolicy)
	}
	if strings.ContainsAny(p.Name, `/\`) || p.Name == "." || p.Name == ".." {
		return fmt.Errorf("%w: invalid name %q", ErrMalformedPolicy, p.Name)
	}
	if p.Owner == "" {
		return fmt.Errorf("%w: %s: missing owner", ErrMalformedPolicy, p.Name)
	}
	if p.Mode != Whitelist && p.Mode != Blacklist {
		return fmt.Errorf("%w: %s: invalid mode %q", ErrMalformedPolicy, p.Name, p.Mode)
	}
	for k, v := range p.Variables {
		if _, err := object.FromPrimitive(v); err != nil {
			return fmt.Errorf("%w: %s: variable %s: %v", ErrMalformedPolicy, p.Name, k, err)
		}
	}
	return nil
}
