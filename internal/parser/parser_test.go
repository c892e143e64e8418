package parser

import (
	"errors"
	"strings"
	"testing"

	"zonescript/internal/ast"
	"zonescript/internal/lexer"
)

func mustParse(t *testing.T, input string) *ast.Program {
	t.Helper()
	program, err := Parse(input)
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	return program
}

func TestOperatorPrecedenceParsing(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"-a * b", "((-a) * b)"},
		{"!-a", "(!(-a))"},
		{"a + b * c", "(a + (b * c))"},
		{"a + b - c", "((a + b) - c)"},
		{"a % b / c", "((a % b) / c)"},
		{"(a + b) * c", "((a + b) * c)"},
		{"a < b == c > d", "((a < b) == (c > d))"},
		{"a >= b <= c", "((a >= b) <= c)"},
		{"a || b && c", "(a || (b && c))"},
		{"a == b && c != d", "((a == b) && (c != d))"},
		{"a = b = 1 + 2", "(a = (b = (1 + 2)))"},
		{"s.x = 3", "(s.x = 3)"},
		{"x = a || b", "(x = (a || b))"},
		{"add(a, b * c)[0]", "(add(a, (b * c))[0])"},
		{"-f(x)", "(-f(x))"},
		{"s.players.length", "s.players.length"},
		{"[1, 2 + 3]", "[1, (2 + 3)]"},
		{`"x" + 1`, `("x" + 1)`},
		{"scope(0, 0, 0, 1, 2, 3).players", "scope(0, 0, 0, 1, 2, 3).players"},
	}

	for _, tt := range tests {
		program := mustParse(t, tt.input)
		if len(program.Statements) != 1 {
			t.Fatalf("%q: expected 1 statement, got %d", tt.input, len(program.Statements))
		}
		if actual := program.String(); actual != tt.expected {
			t.Errorf("%q: expected=%q, got=%q", tt.input, tt.expected, actual)
		}
	}
}

func TestVariableDeclarations(t *testing.T) {
	program := mustParse(t, `let x = 5; const y = "a"
let z`)

	if len(program.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(program.Statements))
	}

	tests := []struct {
		name     string
		constant bool
		value    string
	}{
		{"x", false, "5"},
		{"y", true, `"a"`},
		{"z", false, ""},
	}

	for i, tt := range tests {
		decl, ok := program.Statements[i].(*ast.VariableDeclaration)
		if !ok {
			t.Fatalf("statement %d is %T, want *ast.VariableDeclaration", i, program.Statements[i])
		}
		if decl.Name.Value != tt.name {
			t.Errorf("statement %d: name %q, want %q", i, decl.Name.Value, tt.name)
		}
		if decl.Constant != tt.constant {
			t.Errorf("statement %d: constant %v, want %v", i, decl.Constant, tt.constant)
		}
		got := ""
		if decl.Value != nil {
			got = decl.Value.String()
		}
		if got != tt.value {
			t.Errorf("statement %d: value %q, want %q", i, got, tt.value)
		}
	}
}

func TestFunctionDeclaration(t *testing.T) {
	program := mustParse(t, `func add(a, b) { return a + b; }
func nothing() { return }`)

	add, ok := program.Statements[0].(*ast.FunctionDeclaration)
	if !ok {
		t.Fatalf("expected *ast.FunctionDeclaration, got %T", program.Statements[0])
	}
	if add.Name.Value != "add" || len(add.Parameters) != 2 {
		t.Fatalf("wrong declaration %s", add.String())
	}
	if add.Parameters[0].Value != "a" || add.Parameters[1].Value != "b" {
		t.Errorf("wrong parameters %v", add.Parameters)
	}
	ret, ok := add.Body.Statements[0].(*ast.ReturnStatement)
	if !ok {
		t.Fatalf("expected *ast.ReturnStatement, got %T", add.Body.Statements[0])
	}
	if ret.ReturnValue.String() != "(a + b)" {
		t.Errorf("wrong return value %q", ret.ReturnValue.String())
	}

	nothing := program.Statements[1].(*ast.FunctionDeclaration)
	if len(nothing.Parameters) != 0 {
		t.Errorf("expected no parameters, got %d", len(nothing.Parameters))
	}
	bare := nothing.Body.Statements[0].(*ast.ReturnStatement)
	if bare.ReturnValue != nil {
		t.Errorf("expected bare return, got %s", bare.ReturnValue.String())
	}
}

func TestIfElseChain(t *testing.T) {
	program := mustParse(t, `if (x < 1) { a } else if x < 2 { b } else { c }`)

	stmt, ok := program.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected *ast.IfStatement, got %T", program.Statements[0])
	}
	if stmt.Condition.String() != "(x < 1)" {
		t.Errorf("wrong condition %q", stmt.Condition.String())
	}

	elseIf, ok := stmt.Alternative.(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected else-if, got %T", stmt.Alternative)
	}
	if elseIf.Condition.String() != "(x < 2)" {
		t.Errorf("wrong else-if condition %q", elseIf.Condition.String())
	}

	last, ok := elseIf.Alternative.(*ast.BlockStatement)
	if !ok {
		t.Fatalf("expected final else block, got %T", elseIf.Alternative)
	}
	if last.String() != "{c}" {
		t.Errorf("wrong else block %q", last.String())
	}
}

func TestLoops(t *testing.T) {
	tests := []struct {
		input    string
		variable string
		iterable string
	}{
		{"for x in [1, 2] { continue; }", "x", "[1, 2]"},
		{"for (p in s.players) { break }", "p", "s.players"},
		{"for n in range(3) {}", "n", "range(3)"},
	}

	for _, tt := range tests {
		program := mustParse(t, tt.input)
		stmt, ok := program.Statements[0].(*ast.ForStatement)
		if !ok {
			t.Fatalf("%q: expected *ast.ForStatement, got %T", tt.input, program.Statements[0])
		}
		if stmt.Variable.Value != tt.variable {
			t.Errorf("%q: variable %q, want %q", tt.input, stmt.Variable.Value, tt.variable)
		}
		if stmt.Iterable.String() != tt.iterable {
			t.Errorf("%q: iterable %q, want %q", tt.input, stmt.Iterable.String(), tt.iterable)
		}
	}

	program := mustParse(t, "while i < 3 { i = i + 1 }")
	loop, ok := program.Statements[0].(*ast.WhileStatement)
	if !ok {
		t.Fatalf("expected *ast.WhileStatement, got %T", program.Statements[0])
	}
	if loop.Body.String() != "{(i = (i + 1))}" {
		t.Errorf("wrong body %q", loop.Body.String())
	}
}

func TestTryCatchForms(t *testing.T) {
	tests := []struct {
		input    string
		variable string
	}{
		{"try { x() } catch (e) { print(e) }", "e"},
		{"try { x() } catch err { print(err) }", "err"},
		{"try { x() } catch { }", ""},
	}

	for _, tt := range tests {
		program := mustParse(t, tt.input)
		stmt, ok := program.Statements[0].(*ast.TryStatement)
		if !ok {
			t.Fatalf("%q: expected *ast.TryStatement, got %T", tt.input, program.Statements[0])
		}
		got := ""
		if stmt.ErrorVariable != nil {
			got = stmt.ErrorVariable.Value
		}
		if got != tt.variable {
			t.Errorf("%q: error variable %q, want %q", tt.input, got, tt.variable)
		}
	}
}

func TestEventHandlerAndScope(t *testing.T) {
	program := mustParse(t, `let arena = scope(0, 0, 0, 10, 10, 10)
on PlayerJoin { arena.count = arena.count + 1 }`)

	decl := program.Statements[0].(*ast.VariableDeclaration)
	sc, ok := decl.Value.(*ast.ScopeCreation)
	if !ok {
		t.Fatalf("expected *ast.ScopeCreation, got %T", decl.Value)
	}
	if sc.Bounds[4].String() != "10" {
		t.Errorf("wrong bound %q", sc.Bounds[4].String())
	}

	handler, ok := program.Statements[1].(*ast.EventHandler)
	if !ok {
		t.Fatalf("expected *ast.EventHandler, got %T", program.Statements[1])
	}
	if handler.EventName.Value != "PlayerJoin" {
		t.Errorf("wrong event name %q", handler.EventName.Value)
	}
	if handler.Body.String() != "{(arena.count = (arena.count + 1))}" {
		t.Errorf("wrong handler body %q", handler.Body.String())
	}
}

func TestKeywordPropertyNames(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"s.scope", "s.scope"},
		{"s.on", "s.on"},
		{"s.in", "s.in"},
		{"s.on = 1", "(s.on = 1)"},
		{"s.scope.players", "s.scope.players"},
	}

	for _, tt := range tests {
		program := mustParse(t, tt.input)
		stmt, ok := program.Statements[0].(*ast.ExpressionStatement)
		if !ok {
			t.Fatalf("%q: expected *ast.ExpressionStatement, got %T", tt.input, program.Statements[0])
		}
		if actual := stmt.String(); actual != tt.expected {
			t.Errorf("%q: expected=%q, got=%q", tt.input, tt.expected, actual)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
		line    int
		column  int
	}{
		{"let = 5", `expected identifier after 'let', got "="`, 1, 5},
		{"1 + 2 = 3", "invalid assignment target (1 + 2)", 1, 7},
		{"f() = 3", "invalid assignment target f()", 1, 5},
		{"scope(1, 2, 3)", "scope expects 6 coordinates (x1, y1, z1, x2, y2, z2), got 3", 1, 1},
		{"func f( {", `expected parameter name, got "{"`, 1, 9},
		{"if x { let a = 1", "expected '}' to close block, got end of input", 1, 17},
		{"1 +", "expected expression, got end of input", 1, 4},
		{"on { }", `expected event name after 'on', got "{"`, 1, 4},
		{"[1, 2", "expected ']' to close list, got end of input", 1, 6},
		{"s.", "expected property name after '.', got end of input", 1, 3},
		{"let a = 1\ntry { } finally { }", `expected 'catch' after try block, got ident "finally"`, 2, 9},
	}

	for _, tt := range tests {
		program, err := Parse(tt.input)
		if program != nil {
			t.Errorf("%q: expected no program on failure", tt.input)
		}

		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("%q: expected *ParseError, got %T (%v)", tt.input, err, err)
		}
		if parseErr.Message() != tt.message {
			t.Errorf("%q: message %q, want %q", tt.input, parseErr.Message(), tt.message)
		}
		if parseErr.Line != tt.line || parseErr.Column != tt.column {
			t.Errorf("%q: error at %d:%d, want %d:%d",
				tt.input, parseErr.Line, parseErr.Column, tt.line, tt.column)
		}
	}
}

func TestParseErrorFormatting(t *testing.T) {
	_, err := Parse("let = 5")

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}

	if !strings.HasPrefix(err.Error(), "[  1: 5] parse error: ") {
		t.Errorf("unexpected error string %q", err.Error())
	}

	expected := "   1 | let = 5\n     |     ^"
	if parseErr.Snippet() != expected {
		t.Errorf("snippet:\n%s\nwant:\n%s", parseErr.Snippet(), expected)
	}
}

func TestParseSurfacesLexErrors(t *testing.T) {
	_, err := Parse(`let s = "abc`)

	var lexErr *lexer.LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected *lexer.LexError, got %T (%v)", err, err)
	}
}

func TestRenderASTAsText(t *testing.T) {
	program := mustParse(t, "func f(a) { if a { return 1 } else { return 2 } }")

	expected := "func f(a) {\n  if a {\n    return 1\n  } else {\n    return 2\n  }\n}"
	if actual := RenderASTAsText(program, 0); actual != expected {
		t.Errorf("text:\n%s\nwant:\n%s", actual, expected)
	}
}

func TestRenderASTAsJSON(t *testing.T) {
	program := mustParse(t, `on Tick { x = x + 1 }`)

	out, err := RenderASTAsJSON(program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`"type": "Program"`, `"type": "EventHandler"`, `"operator": "+"`} {
		if !strings.Contains(out, want) {
			t.Errorf("json output missing %s:\n%s", want, out)
		}
	}
}
