package host

import (
	"log/slog"
	"sort"

	"zonescript/internal/evaluator"
	"zonescript/internal/object"
)

// Natives returns the game functions backed by this Sim. All of them are
// gated by the calling script's policy.
func (s *Sim) Natives() []*object.Native {
	natives := map[string]*object.Native{
		"player":   s.fnPlayer(),
		"location": s.fnLocation(),
		"world":    s.fnWorld(),
		"item":     s.fnItem(),
		"message":  s.fnMessage(),
		"give":     s.fnGive(),
		"kill":     s.fnKill(),
		"teleport": s.fnTeleport(),
		"spawn":    s.fnSpawn(),
	}

	names := make([]string, 0, len(natives))
	for name, n := range natives {
		n.Name = name
		n.Gated = true
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]*object.Native, 0, len(names))
	for _, name := range names {
		list = append(list, natives[name])
	}
	return list
}

func (s *Sim) fnPlayer() *object.Native {
	return &object.Native{
		Signature: "player(name)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 1 {
				return nil, arityError("player(name)", len(args))
			}
			name, ok := args[0].(*object.String)
			if !ok {
				return nil, argError(1, "player", object.STRING_OBJ, args[0])
			}
			if h, ok := s.Player(name.Value); ok {
				return h, nil
			}
			return object.NULL, nil
		},
	}
}

// fnLocation defaults the world to the one of the nearest region, then to
// the evaluator's default world.
func (s *Sim) fnLocation() *object.Native {
	return &object.Native{
		Signature: "location(x, y, z, world?)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 3 && len(args) != 4 {
				return nil, arityError("location(x, y, z, world?)", len(args))
			}
			var coords [3]float64
			for i := range coords {
				n, ok := args[i].(*object.Number)
				if !ok {
					return nil, argError(i+1, "location", object.NUMBER_OBJ, args[i])
				}
				coords[i] = n.Value
			}

			world := ctx.DefaultWorld()
			if r, ok := ctx.CurrentEnv().NearestRegion(); ok {
				world = r.World
			}
			if len(args) == 4 {
				w, ok := args[3].(*object.String)
				if !ok {
					return nil, argError(4, "location", object.STRING_OBJ, args[3])
				}
				world = w.Value
			}
			return locationHandle(world, coords[0], coords[1], coords[2]), nil
		},
	}
}

func (s *Sim) fnWorld() *object.Native {
	return &object.Native{
		Signature: "world(name)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 1 {
				return nil, arityError("world(name)", len(args))
			}
			name, ok := args[0].(*object.String)
			if !ok {
				return nil, argError(1, "world", object.STRING_OBJ, args[0])
			}
			s.mu.RLock()
			known := s.worlds[name.Value]
			s.mu.RUnlock()
			if !known {
				return object.NULL, nil
			}
			return &object.Handle{Kind: object.WorldHandle, Ref: worldRef{sim: s, name: name.Value}}, nil
		},
	}
}

func (s *Sim) fnItem() *object.Native {
	return &object.Native{
		Signature: "item(material, amount)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 2 {
				return nil, arityError("item(material, amount)", len(args))
			}
			material, ok := args[0].(*object.String)
			if !ok {
				return nil, argError(1, "item", object.STRING_OBJ, args[0])
			}
			amount, err := amountArg("item", args, 1)
			if err != nil {
				return nil, err
			}
			return &object.Handle{Kind: object.ItemHandle, Ref: itemRef{material: material.Value, amount: amount}}, nil
		},
	}
}

func (s *Sim) fnMessage() *object.Native {
	return &object.Native{
		Signature: "message(player, text)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 2 {
				return nil, arityError("message(player, text)", len(args))
			}
			p, err := s.playerArg("message", args, 0)
			if err != nil {
				return nil, err
			}
			text := args[1].Inspect()
			p.inbox = append(p.inbox, text)
			s.mu.Unlock()

			s.logger.Info("message", slog.String("player", p.name), slog.String("text", text))
			return object.NULL, nil
		},
	}
}

// fnGive accepts an item handle or a material and amount.
func (s *Sim) fnGive() *object.Native {
	return &object.Native{
		Signature: "give(player, item) or give(player, material, amount)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 2 && len(args) != 3 {
				return nil, arityError("give(player, item) or give(player, material, amount)", len(args))
			}

			var it itemRef
			if len(args) == 2 {
				h, ok := args[1].(*object.Handle)
				if !ok || h.Kind != object.ItemHandle {
					return nil, argError(2, "give", object.ITEM_OBJ, args[1])
				}
				it = h.Ref.(itemRef)
			} else {
				material, ok := args[1].(*object.String)
				if !ok {
					return nil, argError(2, "give", object.STRING_OBJ, args[1])
				}
				amount, err := amountArg("give", args, 2)
				if err != nil {
					return nil, err
				}
				it = itemRef{material: material.Value, amount: amount}
			}

			p, err := s.playerArg("give", args, 0)
			if err != nil {
				return nil, err
			}
			p.inventory[it.material] += it.amount
			total := p.inventory[it.material]
			s.mu.Unlock()

			s.logger.Info("give", slog.String("player", p.name),
				slog.String("material", it.material), slog.Int("amount", it.amount))
			return &object.Number{Value: float64(total)}, nil
		},
	}
}

// fnKill sets a player's health to zero or removes an entity. It reports
// whether anything changed.
func (s *Sim) fnKill() *object.Native {
	return &object.Native{
		Signature: "kill(target)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 1 {
				return nil, arityError("kill(target)", len(args))
			}
			h, ok := args[0].(*object.Handle)
			if !ok || (h.Kind != object.PlayerHandle && h.Kind != object.EntityHandle) {
				return nil, argError(1, "kill", object.ENTITY_OBJ, args[0])
			}

			s.mu.Lock()
			defer s.mu.Unlock()

			changed := false
			switch h.Kind {
			case object.PlayerHandle:
				if p, ok := s.players[h.Ref.ID()]; ok && p.health > 0 {
					p.health = 0
					changed = true
				}
			case object.EntityHandle:
				if e, ok := s.entities[h.Ref.ID()]; ok && e.alive {
					e.alive = false
					changed = true
				}
			}
			s.logger.Info("kill", slog.String("target", h.Key()), slog.Bool("changed", changed))
			return object.Bool(changed), nil
		},
	}
}

func (s *Sim) fnTeleport() *object.Native {
	return &object.Native{
		Signature: "teleport(player, location)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 2 {
				return nil, arityError("teleport(player, location)", len(args))
			}
			dest, err := destinationArg(ctx, "teleport", args, 1)
			if err != nil {
				return nil, err
			}

			p, err := s.playerArg("teleport", args, 0)
			if err != nil {
				return nil, err
			}
			p.world, p.x, p.y, p.z = dest.world, dest.x, dest.y, dest.z
			s.worlds[dest.world] = true
			s.mu.Unlock()

			s.logger.Info("teleport", slog.String("player", p.name), slog.String("to", dest.ID()))
			return object.NULL, nil
		},
	}
}

func (s *Sim) fnSpawn() *object.Native {
	return &object.Native{
		Signature: "spawn(kind, location)",
		Fn: func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) != 2 {
				return nil, arityError("spawn(kind, location)", len(args))
			}
			kind, ok := args[0].(*object.String)
			if !ok {
				return nil, argError(1, "spawn", object.STRING_OBJ, args[0])
			}
			dest, err := destinationArg(ctx, "spawn", args, 1)
			if err != nil {
				return nil, err
			}
			h := s.addEntity("", kind.Value, dest.world, dest.x, dest.y, dest.z)
			s.logger.Info("spawn", slog.String("entity", h.Ref.ID()), slog.String("at", dest.ID()))
			return h, nil
		},
	}
}

// playerArg resolves an online player and returns with the Sim write lock
// held. The caller must unlock.
func (s *Sim) playerArg(fn string, args []object.Object, i int) (*player, error) {
	h, ok := args[i].(*object.Handle)
	if !ok || h.Kind != object.PlayerHandle {
		return nil, argError(i+1, fn, object.PLAYER_OBJ, args[i])
	}
	s.mu.Lock()
	p, ok := s.players[h.Ref.ID()]
	if !ok {
		s.mu.Unlock()
		return nil, evaluator.Errorf(evaluator.ErrOutOfRange, "player %s is not online", h.Ref.ID())
	}
	return p, nil
}

// destinationArg reads a location that must lie inside the script's
// sandbox when it has one.
func destinationArg(ctx object.EvaluatorContext, fn string, args []object.Object, i int) (locationRef, error) {
	h, ok := args[i].(*object.Handle)
	if !ok || h.Kind != object.LocationHandle {
		return locationRef{}, argError(i+1, fn, object.LOCATION_OBJ, args[i])
	}
	loc := h.Ref.(locationRef)
	if bounds, ok := ctx.Global().Region(); ok && !bounds.Contains(loc.world, loc.x, loc.y, loc.z) {
		return locationRef{}, evaluator.Errorf(evaluator.ErrOutOfRange,
			"%s is outside of %s", loc.ID(), bounds)
	}
	return loc, nil
}

func amountArg(fn string, args []object.Object, i int) (int, error) {
	n, ok := args[i].(*object.Number)
	if !ok {
		return 0, argError(i+1, fn, object.NUMBER_OBJ, args[i])
	}
	amount := int(n.Value)
	if float64(amount) != n.Value || amount < 1 {
		return 0, evaluator.Errorf(evaluator.ErrOutOfRange,
			"amount to `%s` must be a positive whole number, got=%s", fn, object.FormatNumber(n.Value))
	}
	return amount, nil
}

func arityError(signature string, got int) error {
	return evaluator.Errorf(evaluator.ErrArity,
		"wrong number of arguments to %s. got=%d", signature, got)
}

func argError(position int, fn string, want object.ObjectType, got object.Object) error {
	return evaluator.Errorf(evaluator.ErrTypeMismatch,
		"argument %d to `%s` must be a %s, got=%s", position, fn, want, got.Type())
}
