// Package source renders positions in script text for diagnostics.
package source

import (
	"bytes"
	"fmt"
	"strings"
)

// Context renders the line at line:column with up to `before` preceding
// lines and a caret under the column. It returns "" when the position is
// outside the text.
func Context(src string, line, column, before int) string {
	if src == "" {
		return ""
	}
	lines := strings.Split(src, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}

	var result bytes.Buffer

	start := line - before
	if start < 1 {
		start = 1
	}
	for i := start; i <= line; i++ {
		result.WriteString(fmt.Sprintf("%4d | %s\n", i, strings.TrimRight(lines[i-1], "\r")))
	}

	errorLine := []rune(strings.TrimRight(lines[line-1], "\r"))
	prefix := column - 1
	if prefix > len(errorLine) {
		prefix = len(errorLine)
	}
	if prefix < 0 {
		prefix = 0
	}
	result.WriteString("     | ")
	result.WriteString(blank(string(errorLine[:prefix])))
	result.WriteString("^")

	return result.String()
}

// blank replaces every character with a space, keeping tabs so the caret
// lines up with the source.
func blank(s string) string {
	var buf bytes.Buffer
	for _, c := range s {
		if c == '\t' {
			buf.WriteRune('\t')
		} else {
			buf.WriteRune(' ')
		}
	}
	return buf.String()
}
