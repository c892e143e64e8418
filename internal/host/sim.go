package host

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/goccy/go-yaml"

	"zonescript/internal/object"
)

// State is the on-disk description of a simulated world.
type State struct {
	Worlds   []string      `yaml:"worlds"`
	Players  []PlayerState `yaml:"players"`
	Entities []EntityState `yaml:"entities"`
}

type PlayerState struct {
	Name      string         `yaml:"name"`
	World     string         `yaml:"world"`
	Position  [3]float64     `yaml:"position"`
	Health    float64        `yaml:"health"`
	Inventory map[string]int `yaml:"inventory,omitempty"`
}

type EntityState struct {
	ID       string     `yaml:"id"`
	Kind     string     `yaml:"kind"`
	World    string     `yaml:"world"`
	Position [3]float64 `yaml:"position"`
}

type player struct {
	name      string
	world     string
	x, y, z   float64
	health    float64
	inventory map[string]int
	inbox     []string
}

type entity struct {
	id      string
	kind    string
	world   string
	x, y, z float64
	alive   bool
}

// Sim is an in-memory host: players, entities and worlds that scripts can
// read through handles and change through gated natives.
type Sim struct {
	mu       sync.RWMutex
	worlds   map[string]bool
	players  map[string]*player
	entities map[string]*entity
	nextID   int
	logger   *slog.Logger
}

func NewSim(logger *slog.Logger) *Sim {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sim{
		worlds:   map[string]bool{},
		players:  map[string]*player{},
		entities: map[string]*entity{},
		logger:   logger.With(slog.String("component", "host")),
	}
}

// LoadState reads a YAML world description into a new Sim.
func LoadState(path string, logger *slog.Logger) (*Sim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world %s: %w", path, err)
	}
	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decoding world %s: %w", path, err)
	}

	sim := NewSim(logger)
	for _, w := range state.Worlds {
		sim.AddWorld(w)
	}
	for _, p := range state.Players {
		if p.Name == "" {
			return nil, fmt.Errorf("world %s: player without a name", path)
		}
		h := sim.AddPlayer(p.Name, p.World, p.Position[0], p.Position[1], p.Position[2])
		sim.mu.Lock()
		pl := sim.players[h.Ref.ID()]
		if p.Health > 0 {
			pl.health = p.Health
		}
		for material, amount := range p.Inventory {
			pl.inventory[material] += amount
		}
		sim.mu.Unlock()
	}
	for _, e := range state.Entities {
		sim.addEntity(e.ID, e.Kind, e.World, e.Position[0], e.Position[1], e.Position[2])
	}
	return sim, nil
}

// Snapshot returns the current state, suitable for writing back as YAML.
func (s *Sim) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{Worlds: object.SortedKeys(s.worlds)}
	for _, name := range object.SortedKeys(s.players) {
		p := s.players[name]
		inv := make(map[string]int, len(p.inventory))
		for k, v := range p.inventory {
			inv[k] = v
		}
		state.Players = append(state.Players, PlayerState{
			Name: p.name, World: p.world, Position: [3]float64{p.x, p.y, p.z},
			Health: p.health, Inventory: inv,
		})
	}
	for _, id := range object.SortedKeys(s.entities) {
		e := s.entities[id]
		if !e.alive {
			continue
		}
		state.Entities = append(state.Entities, EntityState{
			ID: e.id, Kind: e.kind, World: e.world, Position: [3]float64{e.x, e.y, e.z},
		})
	}
	return state
}

func (s *Sim) AddWorld(name string) *object.Handle {
	s.mu.Lock()
	s.worlds[name] = true
	s.mu.Unlock()
	return &object.Handle{Kind: object.WorldHandle, Ref: worldRef{sim: s, name: name}}
}

// AddPlayer places a player, replacing any previous state under the name.
func (s *Sim) AddPlayer(name, world string, x, y, z float64) *object.Handle {
	s.mu.Lock()
	s.worlds[world] = true
	s.players[name] = &player{
		name: name, world: world, x: x, y: y, z: z,
		health: 20, inventory: map[string]int{},
	}
	s.mu.Unlock()
	return s.playerHandle(name)
}

// Player returns a handle for an online player.
func (s *Sim) Player(name string) (*object.Handle, bool) {
	s.mu.RLock()
	_, ok := s.players[name]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return s.playerHandle(name), true
}

// Players lists online player names in lexical order.
func (s *Sim) Players() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return object.SortedKeys(s.players)
}

// Inbox returns the messages delivered to a player so far.
func (s *Sim) Inbox(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[name]
	if !ok {
		return nil
	}
	return append([]string(nil), p.inbox...)
}

// Inventory returns a copy of a player's inventory.
func (s *Sim) Inventory(name string) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[name]
	if !ok {
		return nil
	}
	inv := make(map[string]int, len(p.inventory))
	for k, v := range p.inventory {
		inv[k] = v
	}
	return inv
}

// Entities lists living entity IDs in lexical order.
func (s *Sim) Entities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []string{}
	for id, e := range s.entities {
		if e.alive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *Sim) playerHandle(name string) *object.Handle {
	return &object.Handle{Kind: object.PlayerHandle, Ref: playerRef{sim: s, name: name}}
}

func (s *Sim) addEntity(id, kind, world string, x, y, z float64) *object.Handle {
	s.mu.Lock()
	if id == "" {
		s.nextID++
		id = fmt.Sprintf("%s-%d", kind, s.nextID)
	}
	s.worlds[world] = true
	s.entities[id] = &entity{id: id, kind: kind, world: world, x: x, y: y, z: z, alive: true}
	s.mu.Unlock()
	return &object.Handle{Kind: object.EntityHandle, Ref: entityRef{sim: s, id: id}}
}
