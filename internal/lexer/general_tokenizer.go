package lexer

import (
	"zonescript/internal/token"
)

type GeneralTokenizer struct {
	lexer *Lexer
}

func NewGeneralTokenizer(lexer *Lexer) *GeneralTokenizer {
	return &GeneralTokenizer{lexer: lexer}
}

func (g *GeneralTokenizer) NextToken() token.Token {
	var tok token.Token

	if !g.lexer.skipWhitespace() {
		return g.lexer.illegalToken(g.lexer.mark(), "/*", "unterminated block comment")
	}

	start := g.lexer.mark() // Record the current position as the start of the token
	if g.lexer.eof {
		return g.lexer.makeToken(token.EOF, "", start)
	}

	switch g.lexer.ch {
	case '=':
		tok = g.lexer.handleCompoundToken(token.ASSIGN, '=', token.EQ)
	case '+':
		tok = g.lexer.makeToken(token.PLUS, "+", start)
	case '-':
		tok = g.lexer.makeToken(token.MINUS, "-", start)
	case '!':
		tok = g.lexer.handleCompoundToken(token.BANG, '=', token.NOT_EQ)
	case '/':
		tok = g.lexer.makeToken(token.SLASH, "/", start)
	case '*':
		tok = g.lexer.makeToken(token.ASTERISK, "*", start)
	case '%':
		tok = g.lexer.makeToken(token.PERCENT, "%", start)
	case '&':
		if g.lexer.peekChar() != '&' {
			tok = g.lexer.illegalToken(start, "&", "unexpected character '&', did you mean '&&'")
			break
		}
		tok = g.lexer.handleCompoundToken(token.ILLEGAL, '&', token.LOGICAL_AND)
	case '|':
		if g.lexer.peekChar() != '|' {
			tok = g.lexer.illegalToken(start, "|", "unexpected character '|', did you mean '||'")
			break
		}
		tok = g.lexer.handleCompoundToken(token.ILLEGAL, '|', token.LOGICAL_OR)
	case '<':
		tok = g.lexer.handleCompoundToken(token.LT, '=', token.LT_EQ)
	case '>':
		tok = g.lexer.handleCompoundToken(token.GT, '=', token.GT_EQ)
	case ';':
		tok = g.lexer.makeToken(token.SEMICOLON, ";", start)
	case ',':
		tok = g.lexer.makeToken(token.COMMA, ",", start)
	case '.':
		tok = g.lexer.makeToken(token.PERIOD, ".", start)
	case '{':
		tok = g.lexer.makeToken(token.LBRACE, "{", start)
	case '}':
		tok = g.lexer.makeToken(token.RBRACE, "}", start)
	case '(':
		tok = g.lexer.makeToken(token.LPAREN, "(", start)
	case ')':
		tok = g.lexer.makeToken(token.RPAREN, ")", start)
	case '[':
		tok = g.lexer.makeToken(token.LBRACKET, "[", start)
	case ']':
		tok = g.lexer.makeToken(token.RBRACKET, "]", start)
	case '"':
		g.lexer.readChar() // consume the opening "
		g.lexer.switchMode(NewStringTokenizer(g.lexer, start))
		return g.lexer.currentMode.NextToken()
	default:
		if isLetter(g.lexer.ch) {
			literal := g.lexer.readIdentifier()
			return g.lexer.makeToken(token.LookupIdent(literal), literal, start)
		} else if isDigit(g.lexer.ch) {
			return g.lexer.makeToken(token.NUMBER, g.lexer.readNumber(), start)
		}
		tok = g.lexer.illegalToken(start, string(g.lexer.ch), "unexpected character %q", g.lexer.ch)
	}

	g.lexer.readChar()
	return tok
}
