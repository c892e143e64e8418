package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"zonescript/internal/ast"
)

// WalkAST recursively traverses an AST and serializes it into a machine-centric map structure.
// This output is designed for stability, canonical representation, and tool-chain consumption.
func WalkAST(node ast.Node) interface{} {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return nil
	}

	switch n := node.(type) {
	case *ast.Program:
		return map[string]interface{}{
			"type":       "Program",
			"statements": walkStatements(n.Statements),
		}

	case *ast.VariableDeclaration:
		return map[string]interface{}{
			"type":     "VariableDeclaration",
			"token":    n.TokenLiteral(),
			"line":     n.Token.Line,
			"constant": n.Constant,
			"name":     WalkAST(n.Name),
			"value":    WalkAST(n.Value),
		}

	case *ast.FunctionDeclaration:
		params := make([]interface{}, len(n.Parameters))
		for i, p := range n.Parameters {
			params[i] = WalkAST(p)
		}
		return map[string]interface{}{
			"type":       "FunctionDeclaration",
			"token":      n.TokenLiteral(),
			"line":       n.Token.Line,
			"name":       WalkAST(n.Name),
			"parameters": params,
			"body":       WalkAST(n.Body),
		}

	case *ast.ReturnStatement:
		return map[string]interface{}{
			"type":        "ReturnStatement",
			"token":       n.TokenLiteral(),
			"line":        n.Token.Line,
			"returnValue": WalkAST(n.ReturnValue),
		}

	case *ast.ExpressionStatement:
		return map[string]interface{}{
			"type":       "ExpressionStatement",
			"token":      n.TokenLiteral(),
			"line":       n.Token.Line,
			"expression": WalkAST(n.Expression),
		}

	case *ast.BlockStatement:
		return map[string]interface{}{
			"type":       "BlockStatement",
			"token":      n.TokenLiteral(),
			"statements": walkStatements(n.Statements),
		}

	case *ast.IfStatement:
		return map[string]interface{}{
			"type":        "IfStatement",
			"token":       n.TokenLiteral(),
			"line":        n.Token.Line,
			"condition":   WalkAST(n.Condition),
			"consequence": WalkAST(n.Consequence),
			"alternative": WalkAST(n.Alternative),
		}

	case *ast.WhileStatement:
		return map[string]interface{}{
			"type":      "WhileStatement",
			"token":     n.TokenLiteral(),
			"line":      n.Token.Line,
			"condition": WalkAST(n.Condition),
			"body":      WalkAST(n.Body),
		}

	case *ast.ForStatement:
		return map[string]interface{}{
			"type":     "ForStatement",
			"token":    n.TokenLiteral(),
			"line":     n.Token.Line,
			"variable": WalkAST(n.Variable),
			"iterable": WalkAST(n.Iterable),
			"body":     WalkAST(n.Body),
		}

	case *ast.BreakStatement:
		return map[string]interface{}{"type": "BreakStatement", "token": n.TokenLiteral(), "line": n.Token.Line}

	case *ast.ContinueStatement:
		return map[string]interface{}{"type": "ContinueStatement", "token": n.TokenLiteral(), "line": n.Token.Line}

	case *ast.TryStatement:
		return map[string]interface{}{
			"type":          "TryStatement",
			"token":         n.TokenLiteral(),
			"line":          n.Token.Line,
			"tryBlock":      WalkAST(n.TryBlock),
			"errorVariable": WalkAST(n.ErrorVariable),
			"catchBlock":    WalkAST(n.CatchBlock),
		}

	case *ast.EventHandler:
		return map[string]interface{}{
			"type":      "EventHandler",
			"token":     n.TokenLiteral(),
			"line":      n.Token.Line,
			"eventName": WalkAST(n.EventName),
			"body":      WalkAST(n.Body),
		}

	case *ast.Identifier:
		return map[string]interface{}{
			"type":  "Identifier",
			"token": safeTokenLiteral(n),
			"value": n.Value,
		}

	case *ast.NumberLiteral:
		return map[string]interface{}{
			"type":  "NumberLiteral",
			"token": safeTokenLiteral(n),
			"value": n.Value,
		}

	case *ast.StringLiteral:
		return map[string]interface{}{
			"type":  "StringLiteral",
			"token": n.TokenLiteral(),
			"value": n.Value,
		}

	case *ast.BooleanLiteral:
		return map[string]interface{}{
			"type":  "BooleanLiteral",
			"token": n.TokenLiteral(),
			"value": n.Value,
		}

	case *ast.NullLiteral:
		return map[string]interface{}{
			"type":  "NullLiteral",
			"token": n.TokenLiteral(),
		}

	case *ast.ListLiteral:
		return map[string]interface{}{
			"type":     "ListLiteral",
			"token":    n.TokenLiteral(),
			"elements": walkExpressions(n.Elements),
		}

	case *ast.UnaryExpression:
		return map[string]interface{}{
			"type":     "UnaryExpression",
			"operator": n.Operator,
			"operand":  WalkAST(n.Operand),
		}

	case *ast.BinaryExpression:
		return map[string]interface{}{
			"type":     "BinaryExpression",
			"operator": n.Operator,
			"left":     WalkAST(n.Left),
			"right":    WalkAST(n.Right),
		}

	case *ast.AssignmentExpression:
		return map[string]interface{}{
			"type":   "AssignmentExpression",
			"target": WalkAST(n.Target),
			"value":  WalkAST(n.Value),
		}

	case *ast.CallExpression:
		return map[string]interface{}{
			"type":      "CallExpression",
			"function":  WalkAST(n.Function),
			"arguments": walkExpressions(n.Arguments),
		}

	case *ast.MemberExpression:
		return map[string]interface{}{
			"type":     "MemberExpression",
			"object":   WalkAST(n.Object),
			"property": WalkAST(n.Property),
		}

	case *ast.IndexExpression:
		return map[string]interface{}{
			"type":  "IndexExpression",
			"left":  WalkAST(n.Left),
			"index": WalkAST(n.Index),
		}

	case *ast.ScopeCreation:
		return map[string]interface{}{
			"type":   "ScopeCreation",
			"token":  n.TokenLiteral(),
			"line":   n.Token.Line,
			"bounds": walkExpressions(n.Bounds[:]),
		}

	default:
		return map[string]interface{}{
			"type": "Unknown",
			"node": fmt.Sprintf("%T", n),
		}
	}
}

func walkStatements(statements []ast.Statement) []interface{} {
	result := make([]interface{}, len(statements))
	for i, s := range statements {
		result[i] = WalkAST(s)
	}
	return result
}

func walkExpressions(expressions []ast.Expression) []interface{} {
	result := make([]interface{}, len(expressions))
	for i, e := range expressions {
		result[i] = WalkAST(e)
	}
	return result
}

func safeTokenLiteral(node ast.Node) string {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return ""
	}
	return node.TokenLiteral()
}

func RenderASTAsJSON(node ast.Node) (string, error) {
	astMap := WalkAST(node)
	buf := new(bytes.Buffer)
	encoder := json.NewEncoder(buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(astMap); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %v", err)
	}
	return buf.String(), nil
}
