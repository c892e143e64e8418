package parser

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"zonescript/internal/ast"
)

// RenderASTAsText produces a human-centric, indented representation of the AST.
// It is optimized for debugging precedence and block structure.
func RenderASTAsText(node ast.Node, indent int) string {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return "nil"
	}

	sp := strings.Repeat("  ", indent)

	switch n := node.(type) {
	case *ast.Program:
		var sb strings.Builder
		for i, s := range n.Statements {
			if i > 0 {
				sb.WriteString("\n")
			}
			// Root level statements start at indent 0
			sb.WriteString(RenderASTAsText(s, 0))
		}
		return sb.String()

	case *ast.VariableDeclaration:
		keyword := "let"
		if n.Constant {
			keyword = "const"
		}
		if n.Value == nil {
			return fmt.Sprintf("%s%s %s", sp, keyword, n.Name.Value)
		}
		return fmt.Sprintf("%s%s %s = %s", sp, keyword, n.Name.Value, RenderASTAsText(n.Value, 0))

	case *ast.FunctionDeclaration:
		params := []string{}
		for _, p := range n.Parameters {
			params = append(params, p.Value)
		}
		// Body block aligns its closing brace with 'indent'
		return fmt.Sprintf("%sfunc %s(%s) %s", sp, n.Name.Value, strings.Join(params, ", "), RenderASTAsText(n.Body, indent))

	case *ast.ReturnStatement:
		if n.ReturnValue == nil {
			return sp + "return"
		}
		return fmt.Sprintf("%sreturn %s", sp, RenderASTAsText(n.ReturnValue, 0))

	case *ast.ExpressionStatement:
		// The statement handles the line's starting indentation
		return sp + RenderASTAsText(n.Expression, 0)

	case *ast.BlockStatement:
		var sb strings.Builder
		sb.WriteString("{\n")
		for _, s := range n.Statements {
			// Statements inside the block are indented +1
			sb.WriteString(RenderASTAsText(s, indent+1))
			sb.WriteString("\n")
		}
		// The closing brace aligns with the parent's indent
		sb.WriteString(sp + "}")
		return sb.String()

	case *ast.IfStatement:
		res := fmt.Sprintf("%sif %s %s", sp, RenderASTAsText(n.Condition, 0), RenderASTAsText(n.Consequence, indent))
		if n.Alternative != nil {
			// else-if chains continue on the same line
			res += " else " + strings.TrimLeft(RenderASTAsText(n.Alternative, indent), " ")
		}
		return res

	case *ast.WhileStatement:
		return fmt.Sprintf("%swhile %s %s", sp, RenderASTAsText(n.Condition, 0), RenderASTAsText(n.Body, indent))

	case *ast.ForStatement:
		return fmt.Sprintf("%sfor %s in %s %s", sp, n.Variable.Value, RenderASTAsText(n.Iterable, 0), RenderASTAsText(n.Body, indent))

	case *ast.BreakStatement:
		return sp + "break"

	case *ast.ContinueStatement:
		return sp + "continue"

	case *ast.TryStatement:
		catch := "catch"
		if n.ErrorVariable != nil {
			catch = fmt.Sprintf("catch (%s)", n.ErrorVariable.Value)
		}
		return fmt.Sprintf("%stry %s %s %s", sp, RenderASTAsText(n.TryBlock, indent), catch, RenderASTAsText(n.CatchBlock, indent))

	case *ast.EventHandler:
		return fmt.Sprintf("%son %s %s", sp, n.EventName.Value, RenderASTAsText(n.Body, indent))

	case *ast.Identifier:
		return n.Value

	case *ast.NumberLiteral:
		return n.Token.Literal

	case *ast.StringLiteral:
		return strconv.Quote(n.Value)

	case *ast.BooleanLiteral:
		return strconv.FormatBool(n.Value)

	case *ast.NullLiteral:
		return "null"

	case *ast.ListLiteral:
		return "[" + renderList(n.Elements) + "]"

	case *ast.UnaryExpression:
		return fmt.Sprintf("(%s%s)", n.Operator, RenderASTAsText(n.Operand, 0))

	case *ast.BinaryExpression:
		return fmt.Sprintf("(%s %s %s)", RenderASTAsText(n.Left, 0), n.Operator, RenderASTAsText(n.Right, 0))

	case *ast.AssignmentExpression:
		return fmt.Sprintf("%s = %s", RenderASTAsText(n.Target, 0), RenderASTAsText(n.Value, 0))

	case *ast.CallExpression:
		return fmt.Sprintf("%s(%s)", RenderASTAsText(n.Function, 0), renderList(n.Arguments))

	case *ast.MemberExpression:
		return fmt.Sprintf("%s.%s", RenderASTAsText(n.Object, 0), n.Property.Value)

	case *ast.IndexExpression:
		return fmt.Sprintf("%s[%s]", RenderASTAsText(n.Left, 0), RenderASTAsText(n.Index, 0))

	case *ast.ScopeCreation:
		return fmt.Sprintf("scope(%s)", renderList(n.Bounds[:]))

	default:
		return fmt.Sprintf("<unknown:%T>", n)
	}
}

func renderList(expressions []ast.Expression) string {
	parts := make([]string, 0, len(expressions))
	for _, e := range expressions {
		parts = append(parts, RenderASTAsText(e, 0))
	}
	return strings.Join(parts, ", ")
}
