package object

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"zonescript/internal/ast"
	"zonescript/internal/region"
)

const (
	NULL_OBJ     = "NULL"
	BOOLEAN_OBJ  = "BOOLEAN"
	NUMBER_OBJ   = "NUMBER"
	STRING_OBJ   = "STRING"
	LIST_OBJ     = "LIST"
	FUNCTION_OBJ = "FUNCTION"
	NATIVE_OBJ   = "NATIVE"
	SCOPE_OBJ    = "SCOPE"
	REGION_OBJ   = "REGION"

	PLAYER_OBJ   = "PLAYER"
	LOCATION_OBJ = "LOCATION"
	ITEM_OBJ     = "ITEM"
	ENTITY_OBJ   = "ENTITY"
	WORLD_OBJ    = "WORLD"
)

var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

// EvaluatorContext is what a native function sees of the interpreter
// that is calling it.
type EvaluatorContext interface {
	CurrentEnv() *Environment
	Global() *Environment
	DefaultWorld() string
	Call(fn Object, args []Object) (Object, error)
	Logger() *slog.Logger
}

// NativeFunc validates its own arguments and returns an error carrying the
// expected signature on mismatch.
type NativeFunc func(ctx EvaluatorContext, args ...Object) (Object, error)

type ObjectType string

// Object is a closed sum type: only the variants in this package implement it.
type Object interface {
	Type() ObjectType
	Inspect() string
	object()
}

type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "null" }
func (n *Null) object()          {}

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }
func (b *Boolean) object()          {}

// Bool returns the shared TRUE or FALSE instance.
func Bool(value bool) *Boolean {
	if value {
		return TRUE
	}
	return FALSE
}

type Number struct {
	Value float64
}

func (n *Number) Type() ObjectType { return NUMBER_OBJ }
func (n *Number) Inspect() string  { return FormatNumber(n.Value) }
func (n *Number) object()          {}

// FormatNumber prints integral values without a fractional part.
func FormatNumber(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }
func (s *String) object()          {}

// List is mutable and compared by reference.
type List struct {
	Elements []Object
}

func (l *List) Type() ObjectType { return LIST_OBJ }
func (l *List) Inspect() string {
	var out bytes.Buffer

	elements := []string{}
	for _, e := range l.Elements {
		if s, ok := e.(*String); ok {
			elements = append(elements, strconv.Quote(s.Value))
			continue
		}
		elements = append(elements, e.Inspect())
	}

	out.WriteString("[")
	out.WriteString(strings.Join(elements, ", "))
	out.WriteString("]")

	return out.String()
}
func (l *List) object() {}

// Function is a closure over the environment it was declared in.
type Function struct {
	Name       string
	Parameters []*ast.Identifier
	Body       *ast.BlockStatement
	Env        *Environment
}

func (f *Function) Type() ObjectType { return FUNCTION_OBJ }
func (f *Function) Inspect() string {
	params := []string{}
	for _, p := range f.Parameters {
		params = append(params, p.String())
	}
	return "func " + f.Name + "(" + strings.Join(params, ", ") + ")"
}
func (f *Function) object() {}

// Native is a host-backed callable. Gated natives are checked against the
// script's policy before every call.
type Native struct {
	Name      string
	Signature string // e.g. "give(player, item, amount)"
	Fn        NativeFunc
	Gated     bool
}

func (n *Native) Type() ObjectType { return NATIVE_OBJ }
func (n *Native) Inspect() string  { return "native " + n.Signature }
func (n *Native) object()          {}

// HostRef is the opaque payload of a host handle. The core never mutates
// it, it only reads declared properties.
type HostRef interface {
	ID() string
	String() string
	Property(name string) (Object, bool)
}

// Positioned is implemented by host references that have a location.
type Positioned interface {
	Position() (world string, x, y, z float64)
}

type HandleKind string

const (
	PlayerHandle   HandleKind = PLAYER_OBJ
	LocationHandle HandleKind = LOCATION_OBJ
	ItemHandle     HandleKind = ITEM_OBJ
	EntityHandle   HandleKind = ENTITY_OBJ
	WorldHandle    HandleKind = WORLD_OBJ
)

// Handle is a reference to a host object: player, location, item, entity
// or world. Handles compare by kind and ID.
type Handle struct {
	Kind HandleKind
	Ref  HostRef
}

func (h *Handle) Type() ObjectType { return ObjectType(h.Kind) }
func (h *Handle) Inspect() string  { return h.Ref.String() }
func (h *Handle) object()          {}

// Key identifies the handle across separately constructed values.
func (h *Handle) Key() string {
	return string(h.Kind) + ":" + h.Ref.ID()
}

// ScopeRef is a script-visible reference to an Environment.
type ScopeRef struct {
	Env *Environment
}

func (s *ScopeRef) Type() ObjectType { return SCOPE_OBJ }
func (s *ScopeRef) Inspect() string  { return "<scope " + s.Env.Name + ">" }
func (s *ScopeRef) object()          {}

// RegionValue is a materialized copy of an environment's region.
type RegionValue struct {
	Region region.Region
}

func (r *RegionValue) Type() ObjectType { return REGION_OBJ }
func (r *RegionValue) Inspect() string  { return r.Region.String() }
func (r *RegionValue) object()          {}

// Property exposes the corners and the world of the region.
func (r *RegionValue) Property(name string) (Object, bool) {
	b := r.Region.Bounds()
	switch name {
	case "x1":
		return &Number{Value: b[0]}, true
	case "y1":
		return &Number{Value: b[1]}, true
	case "z1":
		return &Number{Value: b[2]}, true
	case "x2":
		return &Number{Value: b[3]}, true
	case "y2":
		return &Number{Value: b[4]}, true
	case "z2":
		return &Number{Value: b[5]}, true
	case "world":
		return &String{Value: r.Region.World}, true
	}
	return nil, false
}

// IsPrimitive reports whether obj can be persisted across reloads.
func IsPrimitive(obj Object) bool {
	switch obj.(type) {
	case *Null, *Boolean, *Number, *String:
		return true
	}
	return false
}

// ToPrimitive converts a persistable value to its Go form.
func ToPrimitive(obj Object) (any, bool) {
	switch o := obj.(type) {
	case *Null:
		return nil, true
	case *Boolean:
		return o.Value, true
	case *Number:
		return o.Value, true
	case *String:
		return o.Value, true
	}
	return nil, false
}

// FromPrimitive converts a decoded Go value back to a script value.
func FromPrimitive(v any) (Object, error) {
	switch val := v.(type) {
	case nil:
		return NULL, nil
	case bool:
		return Bool(val), nil
	case string:
		return &String{Value: val}, nil
	case float64:
		return &Number{Value: val}, nil
	case float32:
		return &Number{Value: float64(val)}, nil
	case int:
		return &Number{Value: float64(val)}, nil
	case int64:
		return &Number{Value: float64(val)}, nil
	case uint64:
		return &Number{Value: float64(val)}, nil
	case int32:
		return &Number{Value: float64(val)}, nil
	case uint32:
		return &Number{Value: float64(val)}, nil
	}
	return nil, fmt.Errorf("unsupported persistent value of type %T", v)
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
