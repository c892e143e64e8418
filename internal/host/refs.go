package host

import (
	"fmt"

	"zonescript/internal/object"
)

type playerRef struct {
	sim  *Sim
	name string
}

func (r playerRef) ID() string     { return r.name }
func (r playerRef) String() string { return r.name }

func (r playerRef) Position() (string, float64, float64, float64) {
	r.sim.mu.RLock()
	defer r.sim.mu.RUnlock()
	p, ok := r.sim.players[r.name]
	if !ok {
		return "", 0, 0, 0
	}
	return p.world, p.x, p.y, p.z
}

func (r playerRef) Property(name string) (object.Object, bool) {
	r.sim.mu.RLock()
	defer r.sim.mu.RUnlock()

	p, ok := r.sim.players[r.name]
	if !ok {
		if name == "name" {
			return &object.String{Value: r.name}, true
		}
		if name == "online" {
			return object.FALSE, true
		}
		return nil, false
	}

	switch name {
	case "name":
		return &object.String{Value: p.name}, true
	case "online":
		return object.TRUE, true
	case "health":
		return &object.Number{Value: p.health}, true
	case "world":
		return &object.String{Value: p.world}, true
	case "x":
		return &object.Number{Value: p.x}, true
	case "y":
		return &object.Number{Value: p.y}, true
	case "z":
		return &object.Number{Value: p.z}, true
	case "location":
		return locationHandle(p.world, p.x, p.y, p.z), true
	}
	return nil, false
}

// locationRef is a value: two locations with the same coordinates are equal.
type locationRef struct {
	world   string
	x, y, z float64
}

func locationHandle(world string, x, y, z float64) *object.Handle {
	return &object.Handle{Kind: object.LocationHandle, Ref: locationRef{world: world, x: x, y: y, z: z}}
}

func (r locationRef) ID() string {
	return fmt.Sprintf("%s@%s,%s,%s", r.world,
		object.FormatNumber(r.x), object.FormatNumber(r.y), object.FormatNumber(r.z))
}
func (r locationRef) String() string { return r.ID() }

func (r locationRef) Position() (string, float64, float64, float64) {
	return r.world, r.x, r.y, r.z
}

func (r locationRef) Property(name string) (object.Object, bool) {
	switch name {
	case "world":
		return &object.String{Value: r.world}, true
	case "x":
		return &object.Number{Value: r.x}, true
	case "y":
		return &object.Number{Value: r.y}, true
	case "z":
		return &object.Number{Value: r.z}, true
	}
	return nil, false
}

type itemRef struct {
	material string
	amount   int
}

func (r itemRef) ID() string     { return fmt.Sprintf("%s*%d", r.material, r.amount) }
func (r itemRef) String() string { return r.ID() }

func (r itemRef) Property(name string) (object.Object, bool) {
	switch name {
	case "material":
		return &object.String{Value: r.material}, true
	case "amount":
		return &object.Number{Value: float64(r.amount)}, true
	}
	return nil, false
}

type entityRef struct {
	sim *Sim
	id  string
}

func (r entityRef) ID() string     { return r.id }
func (r entityRef) String() string { return r.id }

func (r entityRef) Position() (string, float64, float64, float64) {
	r.sim.mu.RLock()
	defer r.sim.mu.RUnlock()
	e, ok := r.sim.entities[r.id]
	if !ok {
		return "", 0, 0, 0
	}
	return e.world, e.x, e.y, e.z
}

func (r entityRef) Property(name string) (object.Object, bool) {
	r.sim.mu.RLock()
	defer r.sim.mu.RUnlock()

	e, ok := r.sim.entities[r.id]
	if !ok {
		return nil, false
	}
	switch name {
	case "id":
		return &object.String{Value: e.id}, true
	case "kind":
		return &object.String{Value: e.kind}, true
	case "alive":
		return object.Bool(e.alive), true
	case "location":
		return locationHandle(e.world, e.x, e.y, e.z), true
	}
	return nil, false
}

type worldRef struct {
	sim  *Sim
	name string
}

func (r worldRef) ID() string     { return r.name }
func (r worldRef) String() string { return r.name }

func (r worldRef) Property(name string) (object.Object, bool) {
	switch name {
	case "name":
		return &object.String{Value: r.name}, true
	case "players":
		r.sim.mu.RLock()
		names := object.SortedKeys(r.sim.players)
		elements := []object.Object{}
		for _, n := range names {
			if r.sim.players[n].world == r.name {
				elements = append(elements, r.sim.playerHandle(n))
			}
		}
		r.sim.mu.RUnlock()
		return &object.List{Elements: elements}, true
	}
	return nil, false
}
