package policy

import (
	"fmt"
	"log/slog"

	"zonescript/internal/object"
)

// record is the serialized form shared by the stores.
type record struct {
	Name       string         `yaml:"name"`
	Owner      string         `yaml:"owner"`
	Boundaries []float64      `yaml:"boundaries"`
	World      string         `yaml:"world"`
	Mode       string         `yaml:"mode"`
	Functions  []string       `yaml:"functions"`
	Variables  map[string]any `yaml:"variables"`
}

func toRecord(p *Policy) record {
	vars := make(map[string]any, len(p.Variables))
	for k, v := range p.Variables {
		vars[k] = v
	}
	functions := p.Functions
	if functions == nil {
		functions = []string{}
	}
	return record{
		Name:       p.Name,
		Owner:      p.Owner,
		Boundaries: p.Bounds[:],
		World:      p.World,
		Mode:       string(p.Mode),
		Functions:  functions,
		Variables:  vars,
	}
}

// fromRecord validates a decoded record. Missing fields are errors, except
// world and mode which take defaults.
func fromRecord(r record, defaultWorld string, logger *slog.Logger) (*Policy, error) {
	if len(r.Boundaries) != 6 {
		return nil, fmt.Errorf("%w: %s: expected 6 boundaries, got %d", ErrMalformedPolicy, r.Name, len(r.Boundaries))
	}

	p := &Policy{
		Name:      r.Name,
		Owner:     r.Owner,
		World:     r.World,
		Mode:      ParseMode(r.Mode, logger),
		Functions: r.Functions,
		Variables: map[string]any{},
	}
	copy(p.Bounds[:], r.Boundaries)
	if p.World == "" {
		p.World = defaultWorld
	}
	if p.Functions == nil {
		p.Functions = []string{}
	}

	for k, v := range r.Variables {
		obj, err := object.FromPrimitive(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: variable %s: %v", ErrMalformedPolicy, r.Name, k, err)
		}
		p.Variables[k], _ = object.ToPrimitive(obj)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
