package host

import (
	"fmt"
	"strconv"
	"strings"

	"zonescript/internal/object"
)

// Resolve turns a command-line event value into a script value: `@name`
// is an online player, `#id` an entity, numbers, true, false and null
// are literals, anything else is a string.
func (s *Sim) Resolve(raw string) (object.Object, error) {
	switch {
	case strings.HasPrefix(raw, "@"):
		h, ok := s.Player(raw[1:])
		if !ok {
			return nil, fmt.Errorf("unknown player %q", raw[1:])
		}
		return h, nil
	case strings.HasPrefix(raw, "#"):
		id := raw[1:]
		s.mu.RLock()
		_, ok := s.entities[id]
		s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("unknown entity %q", id)
		}
		return &object.Handle{Kind: object.EntityHandle, Ref: entityRef{sim: s, id: id}}, nil
	case raw == "true":
		return object.TRUE, nil
	case raw == "false":
		return object.FALSE, nil
	case raw == "null":
		return object.NULL, nil
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return &object.Number{Value: v}, nil
	}
	return &object.String{Value: raw}, nil
}

// ResolveAll parses `key=value` pairs into an event context.
func (s *Sim) ResolveAll(pairs []string) (map[string]object.Object, error) {
	vars := make(map[string]object.Object, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid event variable %q, expected key=value", pair)
		}
		obj, err := s.Resolve(value)
		if err != nil {
			return nil, fmt.Errorf("event variable %s: %w", key, err)
		}
		vars[key] = obj
	}
	return vars, nil
}
