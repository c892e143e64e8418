package native

import (
	"io"
	"os"
	"sort"

	"zonescript/internal/evaluator"
	"zonescript/internal/object"
)

// Builtins returns the ungated standard natives. print writes to out, or to
// stdout when out is nil.
func Builtins(out io.Writer) []*object.Native {
	if out == nil {
		out = os.Stdout
	}

	natives := map[string]*object.Native{
		"print":        fnPrint(out),
		"len":          fnLen(),
		"str":          fnStr(),
		"num":          fnNum(),
		"type":         fnType(),
		"append":       fnAppend(),
		"remove":       fnRemove(),
		"contains":     fnContains(),
		"range":        fnRange(),
		"sort":         fnSort(),
		"lower":        fnLower(),
		"upper":        fnUpper(),
		"split":        fnSplit(),
		"join":         fnJoin(),
		"floor":        fnFloor(),
		"abs":          fnAbs(),
		"random":       fnRandom(),
		"wait":         fnWait(),
		"addPlayer":    fnAddPlayer(),
		"removePlayer": fnRemovePlayer(),
		"hasPlayer":    fnHasPlayer(),
		"inRegion":     fnInRegion(),
	}

	names := make([]string, 0, len(natives))
	for name, n := range natives {
		n.Name = name
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]*object.Native, 0, len(names))
	for _, name := range names {
		list = append(list, natives[name])
	}
	return list
}

func arityError(signature string, got int) error {
	return evaluator.Errorf(evaluator.ErrArity,
		"wrong number of arguments to %s. got=%d", signature, got)
}

func argError(position int, fn string, want object.ObjectType, got object.Object) error {
	return evaluator.Errorf(evaluator.ErrTypeMismatch,
		"argument %d to `%s` must be a %s, got=%s", position, fn, want, got.Type())
}

func numberArg(fn string, args []object.Object, i int) (float64, error) {
	n, ok := args[i].(*object.Number)
	if !ok {
		return 0, argError(i+1, fn, object.NUMBER_OBJ, args[i])
	}
	return n.Value, nil
}

func stringArg(fn string, args []object.Object, i int) (string, error) {
	s, ok := args[i].(*object.String)
	if !ok {
		return "", argError(i+1, fn, object.STRING_OBJ, args[i])
	}
	return s.Value, nil
}

func listArg(fn string, args []object.Object, i int) (*object.List, error) {
	l, ok := args[i].(*object.List)
	if !ok {
		return nil, argError(i+1, fn, object.LIST_OBJ, args[i])
	}
	return l, nil
}

func scopeArg(fn string, args []object.Object, i int) (*object.ScopeRef, error) {
	s, ok := args[i].(*object.ScopeRef)
	if !ok {
		return nil, argError(i+1, fn, object.SCOPE_OBJ, args[i])
	}
	return s, nil
}

func playerArg(fn string, args []object.Object, i int) (*object.Handle, error) {
	h, ok := args[i].(*object.Handle)
	if !ok || h.Kind != object.PlayerHandle {
		return nil, argError(i+1, fn, object.PLAYER_OBJ, args[i])
	}
	return h, nil
}
