package object

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"zonescript/internal/region"
)

var (
	ErrDuplicateDefinition = errors.New("already defined in this scope")
	ErrConstViolation      = errors.New("cannot assign to constant")
	ErrUndefinedVariable   = errors.New("undefined variable")
)

var nextID atomic.Uint64

// Environment is one node of the lexical and spatial scope tree. Each
// environment guards its own state with its own lock and never holds two
// environment locks at once.
type Environment struct {
	ID    uint64
	Name  string
	Outer *Environment

	bindings  map[string]Object
	constants map[string]struct{}

	players     map[string]*Handle
	playerOrder []string

	region *region.Region

	mu sync.RWMutex
}

func nextEnvID() uint64 {
	return nextID.Add(1)
}

func NewEnvironment(name string) *Environment {
	return &Environment{
		ID:        nextEnvID(),
		Name:      name,
		bindings:  make(map[string]Object),
		constants: make(map[string]struct{}),
		players:   make(map[string]*Handle),
	}
}

// NewEnclosedEnvironment creates a child of outer.
func NewEnclosedEnvironment(outer *Environment, name string) *Environment {
	env := NewEnvironment(name)
	env.Outer = outer
	return env
}

// Define binds name at this level only.
func (e *Environment) Define(name string, val Object) error {
	return e.define(name, val, false)
}

// DefineConst binds name at this level and marks it immutable.
func (e *Environment) DefineConst(name string, val Object) error {
	return e.define(name, val, true)
}

func (e *Environment) define(name string, val Object, constant bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.bindings[name]; exists {
		return fmt.Errorf("%w: '%s'", ErrDuplicateDefinition, name)
	}

	e.bindings[name] = val
	if constant {
		e.constants[name] = struct{}{}
	}
	return nil
}

// Set updates the nearest existing binding of name. When no level binds
// it, the name is created here, in the innermost level.
func (e *Environment) Set(name string, val Object) error {
	for env := e; env != nil; env = env.Outer {
		done, err := env.assignLocal(name, val)
		if done {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// another writer may have created it meanwhile
	if _, isConst := e.constants[name]; isConst {
		return fmt.Errorf("%w '%s'", ErrConstViolation, name)
	}
	e.bindings[name] = val
	return nil
}

// assignLocal writes name if it is bound at this level. done reports
// whether the binding was found here.
func (e *Environment) assignLocal(name string, val Object) (done bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.bindings[name]; !exists {
		return false, nil
	}
	if _, isConst := e.constants[name]; isConst {
		return true, fmt.Errorf("%w '%s'", ErrConstViolation, name)
	}
	e.bindings[name] = val
	return true, nil
}

// Get resolves name through this level and its ancestors.
func (e *Environment) Get(name string) (Object, error) {
	if val, ok := e.Lookup(name); ok {
		return val, nil
	}
	return nil, fmt.Errorf("%w '%s'", ErrUndefinedVariable, name)
}

// Lookup is Get without the error.
func (e *Environment) Lookup(name string) (Object, bool) {
	for env := e; env != nil; env = env.Outer {
		if val, ok := env.GetLocal(name); ok {
			return val, true
		}
	}
	return nil, false
}

// GetLocal reads name from this level only.
func (e *Environment) GetLocal(name string) (Object, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	val, ok := e.bindings[name]
	return val, ok
}

// IsConst reports whether name is a constant at this level.
func (e *Environment) IsConst(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.constants[name]
	return ok
}

// Names lists the names bound at this level in lexical order.
func (e *Environment) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return SortedKeys(e.bindings)
}

// Region returns this level's region. It is never inherited.
func (e *Environment) Region() (region.Region, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.region == nil {
		return region.Region{}, false
	}
	return *e.region, true
}

func (e *Environment) SetRegion(r region.Region) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.region = &r
}

// NearestRegion walks up to the first ancestor that owns a region.
func (e *Environment) NearestRegion() (region.Region, bool) {
	for env := e; env != nil; env = env.Outer {
		if r, ok := env.Region(); ok {
			return r, true
		}
	}
	return region.Region{}, false
}

// AddPlayer subscribes a player to this scope. It reports false if the
// player was already present.
func (e *Environment) AddPlayer(p *Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := p.Key()
	if _, exists := e.players[key]; exists {
		return false
	}
	e.players[key] = p
	e.playerOrder = append(e.playerOrder, key)
	return true
}

// RemovePlayer unsubscribes a player. It reports false if the player was
// not present.
func (e *Environment) RemovePlayer(p *Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := p.Key()
	if _, exists := e.players[key]; !exists {
		return false
	}
	delete(e.players, key)
	for i, k := range e.playerOrder {
		if k == key {
			e.playerOrder = append(e.playerOrder[:i:i], e.playerOrder[i+1:]...)
			break
		}
	}
	return true
}

func (e *Environment) HasPlayer(p *Handle) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.players[p.Key()]
	return ok
}

// Players returns a snapshot of the roster in subscription order.
func (e *Environment) Players() []*Handle {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*Handle, 0, len(e.playerOrder))
	for _, key := range e.playerOrder {
		out = append(out, e.players[key])
	}
	return out
}
