package lexer

import (
	"fmt"
	"log/slog"
)

// LexError reports the first character sequence the lexer could not turn
// into a token.
type LexError struct {
	Msg      string
	Literal  string
	Position int
	Line     int
	Column   int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("[%3d:%2d] lex error: %s", e.Line, e.Column, e.Msg)
}

// LogValue implements slog.LogValuer.
func (e *LexError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("error", e.Msg),
		slog.Int("line", e.Line),
		slog.Int("column", e.Column),
	)
}
