package source

import "testing"

func TestContext(t *testing.T) {
	src := "let a = 1\nlet b = 2\n\tlet c = @\nlet d = 4"

	tests := []struct {
		line, column, before int
		expected             string
	}{
		{1, 5, 0, "   1 | let a = 1\n     |     ^"},
		{3, 10, 2, "   1 | let a = 1\n   2 | let b = 2\n   3 | \tlet c = @\n     | \t        ^"},
		{2, 1, 5, "   1 | let a = 1\n   2 | let b = 2\n     | ^"},
		// columns past the end clamp to the line
		{4, 40, 0, "   4 | let d = 4\n     |          ^"},
		{0, 1, 0, ""},
		{9, 1, 0, ""},
	}

	for _, tt := range tests {
		got := Context(src, tt.line, tt.column, tt.before)
		if got != tt.expected {
			t.Errorf("%d:%d: got\n%s\nwant\n%s", tt.line, tt.column, got, tt.expected)
		}
	}

	if Context("", 1, 1, 0) != "" {
		t.Error("expected empty context for empty source")
	}
}
