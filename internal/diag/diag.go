// Package diag renders errors and results for the terminal.
package diag

import (
	"errors"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"zonescript/internal/evaluator"
	"zonescript/internal/lexer"
	"zonescript/internal/parser"
	"zonescript/internal/source"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	contextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	resultStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

// contextLines is how many lines before the failing one are shown.
const contextLines = 2

// Position reports where in the script err was raised.
func Position(err error) (line, column int, ok bool) {
	var lexErr *lexer.LexError
	if errors.As(err, &lexErr) {
		return lexErr.Line, lexErr.Column, true
	}
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Line, parseErr.Column, true
	}
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) && rtErr.Line > 0 {
		return rtErr.Line, rtErr.Column, true
	}
	return 0, 0, false
}

// Error renders err and, when it carries a position inside src, the
// offending lines with a caret.
func Error(err error, src string) string {
	var b strings.Builder
	b.WriteString(errorStyle.Render("error:"))
	b.WriteString(" ")
	b.WriteString(err.Error())

	if line, column, ok := Position(err); ok {
		if snippet := source.Context(src, line, column, contextLines); snippet != "" {
			b.WriteString("\n")
			b.WriteString(contextStyle.Render(snippet))
		}
	}
	return b.String()
}

func Result(s string) string { return resultStyle.Render(s) }

func Notice(s string) string { return noticeStyle.Render(s) }
