package diag

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"zonescript/internal/parser"
)

func TestPosition(t *testing.T) {
	_, err := parser.Parse("let a = 1\nlet = 2")
	if err == nil {
		t.Fatal("expected a parse error")
	}

	line, column, ok := Position(fmt.Errorf("loading: %w", err))
	if !ok || line != 2 || column != 5 {
		t.Errorf("got %d:%d %v", line, column, ok)
	}

	if _, _, ok := Position(errors.New("plain")); ok {
		t.Error("plain errors have no position")
	}
}

func TestError(t *testing.T) {
	src := "let a = 1\nlet = 2"
	_, err := parser.Parse(src)

	out := Error(err, src)
	for _, want := range []string{"error:", "parse error", "   2 | let = 2", "^"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}

	if out := Error(errors.New("boom"), src); strings.Contains(out, "|") {
		t.Errorf("unexpected snippet in %q", out)
	}
}
