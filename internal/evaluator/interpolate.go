package evaluator

import (
	"strings"
	"unicode"

	"zonescript/internal/ast"
	"zonescript/internal/object"
)

// interpolate replaces {name} and {name.prop} markers with the string form
// of the value they resolve to in the current scope. Braces around anything
// that is not an identifier path are kept as written.
func (t *task) interpolate(node *ast.StringLiteral) (object.Object, error) {
	src := node.Value
	if !strings.Contains(src, "{") {
		return &object.String{Value: src}, nil
	}

	var out strings.Builder
	for {
		open := strings.IndexByte(src, '{')
		if open < 0 {
			out.WriteString(src)
			break
		}
		end := strings.IndexByte(src[open+1:], '}')
		if end < 0 {
			out.WriteString(src)
			break
		}
		end += open + 1

		path := src[open+1 : end]
		if !isIdentifierPath(path) {
			out.WriteString(src[:open+1])
			src = src[open+1:]
			continue
		}

		val, err := t.resolvePath(node, path)
		if err != nil {
			return nil, err
		}

		out.WriteString(src[:open])
		out.WriteString(val.Inspect())
		src = src[end+1:]
	}

	return &object.String{Value: out.String()}, nil
}

func (t *task) resolvePath(node *ast.StringLiteral, path string) (object.Object, error) {
	parts := strings.Split(path, ".")

	val, ok := t.CurrentEnv().Lookup(parts[0])
	if !ok {
		return nil, newRuntimeError(node.Token, object.ErrUndefinedVariable,
			"undefined variable '%s' in string interpolation", parts[0])
	}

	for _, prop := range parts[1:] {
		next, err := t.member(node.Token, val, prop)
		if err != nil {
			return nil, err
		}
		val = next
	}
	return val, nil
}

func isIdentifierPath(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if !isIdentifier(part) {
			return false
		}
	}
	return true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
