package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"zonescript/internal/source"
	"zonescript/internal/token"
)

// ParseError describes the first construct the parser could not accept.
type ParseError struct {
	Token    token.Token // offending token
	Expected string      // description of what the parser wanted
	Msg      string      // set instead of Expected for non-lookahead failures
	Line     int
	Column   int
	Source   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("[%3d:%2d] parse error: %s", e.Line, e.Column, e.Message())
}

// Message is the error text without the position prefix.
func (e *ParseError) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("expected %s, got %s", e.Expected, describeToken(e.Token))
}

// Snippet renders the offending source line with a caret under the column.
func (e *ParseError) Snippet() string {
	return source.Context(e.Source, e.Line, e.Column, 0)
}

// LogValue implements slog.LogValuer.
func (e *ParseError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("error", e.Message()),
		slog.String("token", e.Token.Literal),
		slog.Int("line", e.Line),
		slog.Int("column", e.Column),
	)
}

func describeToken(t token.Token) string {
	switch t.Type {
	case token.EOF:
		return "end of input"
	case token.IDENT, token.NUMBER:
		return fmt.Sprintf("%s %q", strings.ToLower(string(t.Type)), t.Literal)
	case token.STRING:
		return fmt.Sprintf("string %q", t.Literal)
	default:
		return fmt.Sprintf("%q", t.Literal)
	}
}
