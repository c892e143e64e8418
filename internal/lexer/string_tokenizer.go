package lexer

import (
	"strings"

	"zonescript/internal/token"
)

// StringTokenizer reads a double-quoted string literal. Interpolation markers
// such as {name} are kept verbatim; they are resolved by the evaluator.
type StringTokenizer struct {
	lexer *Lexer
	start mark
}

func NewStringTokenizer(lexer *Lexer, start mark) *StringTokenizer {
	return &StringTokenizer{lexer: lexer, start: start}
}

func (s *StringTokenizer) NextToken() token.Token {
	var result strings.Builder

	// Fall back to the general tokenizer mode after the string ends
	defer s.lexer.switchMode(NewGeneralTokenizer(s.lexer))

	// start reading the string right away, assume the opening `"` has already been read
	for {
		if s.lexer.eof {
			return s.lexer.illegalToken(s.start, `"`+result.String(), "unterminated string")
		}

		if s.lexer.ch == '"' {
			s.lexer.readChar() // Consume the closing `"`
			break
		}

		if s.lexer.ch == '\\' {
			// Handle escape sequences
			s.lexer.readChar() // Move to the escaped character
			if s.lexer.eof {
				continue
			}
			switch s.lexer.ch {
			case 'n':
				result.WriteRune('\n')
			case 't':
				result.WriteRune('\t')
			case 'r':
				result.WriteRune('\r')
			case '\\':
				result.WriteRune('\\')
			case '"':
				result.WriteRune('"')
			default:
				result.WriteRune('\\')
				result.WriteRune(s.lexer.ch)
			}
		} else {
			result.WriteRune(s.lexer.ch)
		}

		s.lexer.readChar()
	}

	return s.lexer.makeToken(token.STRING, result.String(), s.start)
}
