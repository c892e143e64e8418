package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"zonescript/internal/token"
)

type Lexer struct {
	input        string
	position     int       // current byte position in input (points to start of current rune)
	readPosition int       // next byte position in input (start of next rune)
	ch           rune      // current rune under examination; 0 at EOF
	eof          bool      // set once the input is exhausted; a NUL in the input is not EOF
	line         int       // line of ch, 1-based
	column       int       // column of ch, 1-based
	currentMode  Tokenizer // Current tokenizer strategy

	illegal string // description of the last ILLEGAL token
}

type Tokenizer interface {
	NextToken() token.Token
}

// mark captures where a token starts.
type mark struct {
	position int
	line     int
	column   int
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.switchMode(NewGeneralTokenizer(l))
	l.readChar()
	return l
}

// Tokenize scans the whole input. Lexing is all-or-nothing: the first
// illegal token aborts the pass and no tokens are returned.
func Tokenize(input string) ([]token.Token, error) {
	l := New(input)
	tokens := make([]token.Token, 0, len(input)/3+1)

	for {
		tok := l.NextToken()
		if tok.Type == token.ILLEGAL {
			return nil, &LexError{
				Msg:      l.illegal,
				Literal:  tok.Literal,
				Position: tok.Position,
				Line:     tok.Line,
				Column:   tok.Column,
			}
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) switchMode(mode Tokenizer) {
	l.currentMode = mode
}

func (l *Lexer) NextToken() token.Token {
	return l.currentMode.NextToken()
}

func (l *Lexer) mark() mark {
	return mark{position: l.position, line: l.line, column: l.column}
}

func (l *Lexer) makeToken(t token.TokenType, literal string, m mark) token.Token {
	return token.Token{
		Type:     t,
		Literal:  literal,
		Position: m.position,
		Line:     m.line,
		Column:   m.column,
	}
}

func (l *Lexer) illegalToken(m mark, literal string, format string, args ...any) token.Token {
	l.illegal = fmt.Sprintf(format, args...)
	return l.makeToken(token.ILLEGAL, literal, m)
}

func (l *Lexer) handleCompoundToken(
	t token.TokenType,
	ch1 rune,
	t1 token.TokenType,
) token.Token {
	m := l.mark()
	if l.peekChar() == ch1 {
		first := l.ch
		l.readChar()
		return l.makeToken(t1, string(first)+string(l.ch), m)
	}
	return l.makeToken(t, string(l.ch), m)
}

// skipWhitespace skips blanks and comments. It returns false when a block
// comment runs past the end of input.
func (l *Lexer) skipWhitespace() bool {
	for {
		switch l.ch {
		case ' ', '\t', '\r', '\n':
			l.readChar()
		case '#':
			l.skipToLineEnd()
		case '/':
			switch l.peekChar() {
			case '/':
				l.skipToLineEnd()
			case '*':
				if !l.skipBlockComment() {
					return false
				}
			default:
				return true
			}
		default:
			return true
		}
	}
}

func (l *Lexer) skipToLineEnd() {
	for l.ch != '\n' && !l.eof {
		l.readChar()
	}
}

func (l *Lexer) skipBlockComment() bool {
	l.readChar() // consume '/'
	l.readChar() // consume '*'
	for !l.eof {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return true
		}
		l.readChar()
	}
	return false
}

// readChar advances by one UTF-8 rune, updating byte positions
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.eof = true
		l.position = l.readPosition
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
}

// peekChar returns the next rune without advancing; returns 0 at EOF
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// readIdentifier returns the substring (bytes) covering the identifier runes
func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads an integer with an optional fractional part.
func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.position]
}

// Unicode-aware helpers
func isLetter(ch rune) bool {
	// Letters, underscore, and categories like Letter and Mark to support identifiers like café,变量
	return ch == '_' || unicode.IsLetter(ch) || unicode.Is(unicode.Mn, ch) || unicode.Is(unicode.Mc, ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
