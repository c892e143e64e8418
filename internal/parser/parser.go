package parser

import (
	"fmt"
	"strconv"

	"zonescript/internal/ast"
	"zonescript/internal/lexer"
	"zonescript/internal/token"
)

const (
	_          int = iota
	LOWEST         // statement level
	ASSIGN         // =
	LOGICAL_OR     // ||
	LOGICAL_AND    // &&
	EQUALS         // == or !=
	COMPARISON     // > or <
	SUM            // +
	PRODUCT        // *
	PREFIX         // -X or !X
	CALL           // myFunction(X), obj.prop, list[index]
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:      ASSIGN,
	token.LOGICAL_OR:  LOGICAL_OR,
	token.LOGICAL_AND: LOGICAL_AND,
	token.EQ:          EQUALS,
	token.NOT_EQ:      EQUALS,
	token.LT:          COMPARISON,
	token.LT_EQ:       COMPARISON,
	token.GT:          COMPARISON,
	token.GT_EQ:       COMPARISON,
	token.PLUS:        SUM,
	token.MINUS:       SUM,
	token.SLASH:       PRODUCT,
	token.ASTERISK:    PRODUCT,
	token.PERCENT:     PRODUCT,
	token.LPAREN:      CALL,
	token.PERIOD:      CALL,
	token.LBRACKET:    CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	tokenizer lexer.Tokenizer
	src       string // source code here
	errors    []*ParseError

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

// Parse lexes and parses a whole script. It returns either a complete
// program or the first LexError/ParseError, never a partial tree.
func Parse(src string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}

	p := New(&tokenStream{tokens: tokens}, src)
	program := p.ParseProgram()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return program, nil
}

// tokenStream replays an already lexed token slice.
type tokenStream struct {
	tokens []token.Token
	pos    int
}

func (s *tokenStream) NextToken() token.Token {
	if s.pos >= len(s.tokens) {
		return s.tokens[len(s.tokens)-1]
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok
}

func New(l lexer.Tokenizer, source string) *Parser {
	p := &Parser{
		tokenizer: l,
		src:       source,
	}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBoolean)
	p.registerPrefix(token.FALSE, p.parseBoolean)
	p.registerPrefix(token.NULL, p.parseNull)
	p.registerPrefix(token.BANG, p.parseUnaryExpression)
	p.registerPrefix(token.MINUS, p.parseUnaryExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACKET, p.parseListLiteral)
	p.registerPrefix(token.SCOPE, p.parseScopeCreation)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	p.registerInfix(token.PLUS, p.parseBinaryExpression)
	p.registerInfix(token.MINUS, p.parseBinaryExpression)
	p.registerInfix(token.SLASH, p.parseBinaryExpression)
	p.registerInfix(token.ASTERISK, p.parseBinaryExpression)
	p.registerInfix(token.PERCENT, p.parseBinaryExpression)
	p.registerInfix(token.EQ, p.parseBinaryExpression)
	p.registerInfix(token.NOT_EQ, p.parseBinaryExpression)
	p.registerInfix(token.LOGICAL_AND, p.parseBinaryExpression)
	p.registerInfix(token.LOGICAL_OR, p.parseBinaryExpression)
	p.registerInfix(token.LT, p.parseBinaryExpression)
	p.registerInfix(token.LT_EQ, p.parseBinaryExpression)
	p.registerInfix(token.GT, p.parseBinaryExpression)
	p.registerInfix(token.GT_EQ, p.parseBinaryExpression)

	p.registerInfix(token.ASSIGN, p.parseAssignmentExpression)
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.PERIOD, p.parseMemberExpression)
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.tokenizer.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

func (p *Parser) errorAt(tok token.Token, expected string) {
	p.errors = append(p.errors, &ParseError{
		Token:    tok,
		Expected: expected,
		Line:     tok.Line,
		Column:   tok.Column,
		Source:   p.src,
	})
}

func (p *Parser) addError(tok token.Token, message string, args ...interface{}) {
	p.errors = append(p.errors, &ParseError{
		Token:  tok,
		Msg:    fmt.Sprintf(message, args...),
		Line:   tok.Line,
		Column: tok.Column,
		Source: p.src,
	})
}

func (p *Parser) peekError(expected string) {
	p.errorAt(p.peekToken, expected)
}

func (p *Parser) expectPeek(t token.TokenType, expected string) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(expected)
	return false
}

// Errors returns every error collected so far; parsing stops at the first.
func (p *Parser) Errors() []*ParseError {
	return p.errors
}

func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for !p.curTokenIs(token.EOF) && !p.failed() {
		stmt := p.parseStatement()
		if p.failed() {
			break
		}
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}

	return program
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.SEMICOLON:
		return nil
	case token.LET, token.CONST:
		return nilIfFailed(p, p.parseVariableDeclaration())
	case token.FUNCTION:
		return nilIfFailed(p, p.parseFunctionDeclaration())
	case token.RETURN:
		return nilIfFailed(p, p.parseReturnStatement())
	case token.IF:
		return nilIfFailed(p, p.parseIfStatement())
	case token.WHILE:
		return nilIfFailed(p, p.parseWhileStatement())
	case token.FOR:
		return nilIfFailed(p, p.parseForStatement())
	case token.BREAK:
		stmt := &ast.BreakStatement{Token: p.curToken}
		p.skipSemicolon()
		return stmt
	case token.CONTINUE:
		stmt := &ast.ContinueStatement{Token: p.curToken}
		p.skipSemicolon()
		return stmt
	case token.TRY:
		return nilIfFailed(p, p.parseTryStatement())
	case token.ON:
		return nilIfFailed(p, p.parseEventHandler())
	default:
		return nilIfFailed(p, p.parseExpressionStatement())
	}
}

// nilIfFailed keeps typed nil pointers out of the statement interface.
func nilIfFailed[T ast.Statement](p *Parser, stmt T) ast.Statement {
	if p.failed() {
		return nil
	}
	return stmt
}

func (p *Parser) skipSemicolon() {
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
}

func (p *Parser) parseVariableDeclaration() *ast.VariableDeclaration {
	stmt := &ast.VariableDeclaration{
		Token:    p.curToken,
		Constant: p.curTokenIs(token.CONST),
	}

	if !p.expectPeek(token.IDENT, "identifier after '"+p.curToken.Literal+"'") {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if !p.peekTokenIs(token.ASSIGN) {
		if stmt.Constant {
			p.peekError("'=' after constant name")
			return nil
		}
		p.skipSemicolon()
		return stmt
	}

	p.nextToken() // '='
	p.nextToken()

	stmt.Value = p.parseExpression(LOWEST)
	p.skipSemicolon()

	return stmt
}

func (p *Parser) parseFunctionDeclaration() *ast.FunctionDeclaration {
	decl := &ast.FunctionDeclaration{Token: p.curToken}

	if !p.expectPeek(token.IDENT, "function name") {
		return nil
	}
	decl.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if !p.expectPeek(token.LPAREN, "'(' after function name") {
		return nil
	}

	decl.Parameters = p.parseFunctionParameters()
	if p.failed() {
		return nil
	}

	if !p.expectPeek(token.LBRACE, "'{' to open function body") {
		return nil
	}

	decl.Body = p.parseBlockStatement()
	return decl
}

func (p *Parser) parseFunctionParameters() []*ast.Identifier {
	identifiers := []*ast.Identifier{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return identifiers
	}

	if !p.expectPeek(token.IDENT, "parameter name") {
		return nil
	}
	identifiers = append(identifiers, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if !p.expectPeek(token.IDENT, "parameter name") {
			return nil
		}
		identifiers = append(identifiers, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})
	}

	if !p.expectPeek(token.RPAREN, "')' after parameters") {
		return nil
	}

	return identifiers
}

func (p *Parser) parseReturnStatement() *ast.ReturnStatement {
	stmt := &ast.ReturnStatement{Token: p.curToken}

	if p.peekTokenIs(token.SEMICOLON) || p.peekTokenIs(token.RBRACE) || p.peekTokenIs(token.EOF) {
		p.skipSemicolon()
		return stmt
	}

	p.nextToken()
	stmt.ReturnValue = p.parseExpression(LOWEST)
	p.skipSemicolon()

	return stmt
}

func (p *Parser) parseIfStatement() *ast.IfStatement {
	stmt := &ast.IfStatement{Token: p.curToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if p.failed() {
		return nil
	}

	if !p.expectPeek(token.LBRACE, "'{' after if condition") {
		return nil
	}
	stmt.Consequence = p.parseBlockStatement()
	if p.failed() {
		return nil
	}

	if !p.peekTokenIs(token.ELSE) {
		return stmt
	}
	p.nextToken() // else

	if p.peekTokenIs(token.IF) {
		p.nextToken()
		alt := p.parseIfStatement()
		if alt == nil {
			return nil
		}
		stmt.Alternative = alt
		return stmt
	}

	if !p.expectPeek(token.LBRACE, "'{' or 'if' after 'else'") {
		return nil
	}
	stmt.Alternative = p.parseBlockStatement()

	return stmt
}

func (p *Parser) parseWhileStatement() *ast.WhileStatement {
	stmt := &ast.WhileStatement{Token: p.curToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if p.failed() {
		return nil
	}

	if !p.expectPeek(token.LBRACE, "'{' after while condition") {
		return nil
	}
	stmt.Body = p.parseBlockStatement()

	return stmt
}

// parseForStatement accepts both `for x in e {}` and `for (x in e) {}`.
func (p *Parser) parseForStatement() *ast.ForStatement {
	stmt := &ast.ForStatement{Token: p.curToken}

	parenthesized := false
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		parenthesized = true
	}

	if !p.expectPeek(token.IDENT, "loop variable") {
		return nil
	}
	stmt.Variable = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if !p.expectPeek(token.IN, "'in' after loop variable") {
		return nil
	}

	p.nextToken()
	stmt.Iterable = p.parseExpression(LOWEST)
	if p.failed() {
		return nil
	}

	if parenthesized && !p.expectPeek(token.RPAREN, "')' after loop header") {
		return nil
	}

	if !p.expectPeek(token.LBRACE, "'{' to open loop body") {
		return nil
	}
	stmt.Body = p.parseBlockStatement()

	return stmt
}

// parseTryStatement accepts `catch (e)`, `catch e` and a bare `catch`.
func (p *Parser) parseTryStatement() *ast.TryStatement {
	stmt := &ast.TryStatement{Token: p.curToken}

	if !p.expectPeek(token.LBRACE, "'{' after 'try'") {
		return nil
	}
	stmt.TryBlock = p.parseBlockStatement()
	if p.failed() {
		return nil
	}

	if !p.expectPeek(token.CATCH, "'catch' after try block") {
		return nil
	}

	switch {
	case p.peekTokenIs(token.LPAREN):
		p.nextToken()
		if !p.expectPeek(token.IDENT, "error variable name") {
			return nil
		}
		stmt.ErrorVariable = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
		if !p.expectPeek(token.RPAREN, "')' after error variable") {
			return nil
		}
	case p.peekTokenIs(token.IDENT):
		p.nextToken()
		stmt.ErrorVariable = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	}

	if !p.expectPeek(token.LBRACE, "'{' to open catch block") {
		return nil
	}
	stmt.CatchBlock = p.parseBlockStatement()

	return stmt
}

func (p *Parser) parseEventHandler() *ast.EventHandler {
	stmt := &ast.EventHandler{Token: p.curToken}

	if !p.expectPeek(token.IDENT, "event name after 'on'") {
		return nil
	}
	stmt.EventName = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if !p.expectPeek(token.LBRACE, "'{' to open event handler") {
		return nil
	}
	stmt.Body = p.parseBlockStatement()

	return stmt
}

func (p *Parser) parseExpressionStatement() *ast.ExpressionStatement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}

	stmt.Expression = p.parseExpression(LOWEST)
	p.skipSemicolon()

	return stmt
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	block.Statements = []ast.Statement{}

	p.nextToken()

	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.errorAt(p.curToken, "'}' to close block")
			return nil
		}
		stmt := p.parseStatement()
		if p.failed() {
			return nil
		}
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}

	return block
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorAt(p.curToken, "expression")
		return nil
	}
	leftExp := prefix()

	for !p.failed() && !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()

		leftExp = infix(leftExp)
	}

	if p.failed() {
		return nil
	}
	return leftExp
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}

	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}

	return LOWEST
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	lit := &ast.NumberLiteral{Token: p.curToken}

	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addError(p.curToken, "could not parse %q as number", p.curToken.Literal)
		return nil
	}

	lit.Value = value
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNull() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parseUnaryExpression() ast.Expression {
	expression := &ast.UnaryExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
	}

	p.nextToken()

	expression.Operand = p.parseExpression(PREFIX)

	return expression
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	expression := &ast.BinaryExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)

	return expression
}

// parseAssignmentExpression is right-associative and only accepts
// identifiers and member expressions as targets.
func (p *Parser) parseAssignmentExpression(left ast.Expression) ast.Expression {
	switch left.(type) {
	case *ast.Identifier, *ast.MemberExpression:
	default:
		p.addError(p.curToken, "invalid assignment target %s", left.String())
		return nil
	}

	expression := &ast.AssignmentExpression{
		Token:  p.curToken,
		Target: left,
	}

	p.nextToken()
	expression.Value = p.parseExpression(ASSIGN - 1)

	return expression
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()

	exp := p.parseExpression(LOWEST)
	if p.failed() {
		return nil
	}

	if !p.expectPeek(token.RPAREN, "')'") {
		return nil
	}

	return exp
}

func (p *Parser) parseListLiteral() ast.Expression {
	list := &ast.ListLiteral{Token: p.curToken}

	list.Elements = p.parseExpressionList(token.RBRACKET, "']' to close list")

	return list
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	exp := &ast.CallExpression{Token: p.curToken, Function: function}
	exp.Arguments = p.parseExpressionList(token.RPAREN, "')' to close arguments")
	return exp
}

func (p *Parser) parseMemberExpression(object ast.Expression) ast.Expression {
	exp := &ast.MemberExpression{Token: p.curToken, Object: object}

	// Reserved words are valid property names: s.scope, s.on, s.in.
	if token.IsKeyword(p.peekToken.Literal) {
		p.nextToken()
	} else if !p.expectPeek(token.IDENT, "property name after '.'") {
		return nil
	}
	exp.Property = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	return exp
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.IndexExpression{Token: p.curToken, Left: left}

	p.nextToken()
	exp.Index = p.parseExpression(LOWEST)
	if p.failed() {
		return nil
	}

	if !p.expectPeek(token.RBRACKET, "']' after index") {
		return nil
	}

	return exp
}

func (p *Parser) parseScopeCreation() ast.Expression {
	exp := &ast.ScopeCreation{Token: p.curToken}

	if !p.expectPeek(token.LPAREN, "'(' after 'scope'") {
		return nil
	}

	args := p.parseExpressionList(token.RPAREN, "')' to close scope arguments")
	if p.failed() {
		return nil
	}
	if len(args) != len(exp.Bounds) {
		p.addError(exp.Token, "scope expects 6 coordinates (x1, y1, z1, x2, y2, z2), got %d", len(args))
		return nil
	}
	copy(exp.Bounds[:], args)

	return exp
}

func (p *Parser) parseExpressionList(end token.TokenType, expected string) []ast.Expression {
	list := []ast.Expression{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))

	for !p.failed() && p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}

	if p.failed() {
		return nil
	}

	if !p.expectPeek(end, expected) {
		return nil
	}

	return list
}
