package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zonescript/internal/parser"
	"zonescript/internal/policy"
)

type harness struct {
	t    *testing.T
	dir  string
	base []string
}

func newHarness(t *testing.T) *harness {
	dir := t.TempDir()
	return &harness{
		t:   t,
		dir: dir,
		base: []string{
			"--config", filepath.Join(dir, "zonescript.toml"),
			"--log-level", "none",
			"--store-dir", filepath.Join(dir, "policies"),
		},
	}
}

func (h *harness) run(args ...string) (stdout, stderr string, err error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	exit := func(code int) { h.t.Fatalf("unexpected exit %d: %s", code, errOut.String()) }
	err = run(context.Background(), append(append([]string{}, h.base...), args...), &out, &errOut, exit)
	return out.String(), errOut.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, errOut, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%v: %v\n%s", args, err, errOut)
	}
	return out
}

func (h *harness) write(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		h.t.Fatal(err)
	}
	return path
}

func TestPolicyCommands(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"policy", "create", "arena", "alice", "--bounds", "0,0,0,100,64,100"}, "policy arena created for alice"},
		{[]string{"policy", "grant", "arena", "kill", "message"}, "kill granted to arena\nmessage granted to arena"},
		{[]string{"policy", "grant", "arena", "kill"}, "nothing changed"},
		{[]string{"policy", "check", "arena", "kill"}, "arena may call kill"},
		{[]string{"policy", "revoke", "arena", "kill"}, "kill revoked from arena"},
		{[]string{"policy", "check", "arena", "kill"}, "arena may not call kill"},
		{[]string{"policy", "mode", "arena", "blacklist"}, "policy arena is now in BLACKLIST mode"},
		{[]string{"policy", "check", "arena", "kill"}, "arena may call kill"},
		{[]string{"policy", "var-add", "arena", "score"}, "variable score of arena is now persistent"},
		{[]string{"policy", "var-rm", "arena", "level"}, "nothing changed"},
		{[]string{"policy", "list"}, "arena"},
	}

	for _, tt := range tests {
		out := h.mustRun(tt.args...)
		if !strings.Contains(out, tt.want) {
			t.Errorf("%v: output %q does not contain %q", tt.args, out, tt.want)
		}
	}

	show := h.mustRun("policy", "show", "arena")
	for _, want := range []string{"name: arena", "owner: alice", "mode: BLACKLIST", "- message", "score:"} {
		if !strings.Contains(show, want) {
			t.Errorf("show output missing %q:\n%s", want, show)
		}
	}

	if _, err := os.Stat(filepath.Join(h.dir, "policies", "arena.yml")); err != nil {
		t.Errorf("policy file not written: %v", err)
	}

	h.mustRun("policy", "delete", "arena")
	_, _, err := h.run("policy", "check", "arena", "kill")
	if !errors.Is(err, policy.ErrPolicyNotFound) {
		t.Errorf("expected ErrPolicyNotFound, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "policy arena does not exist") {
		t.Errorf("expected operator message, got %v", err)
	}
}

func TestCreateNeedsSixBounds(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("policy", "create", "arena", "alice", "--bounds", "0,0,0")
	if !errors.Is(err, policy.ErrMalformedPolicy) {
		t.Errorf("expected ErrMalformedPolicy, got %v", err)
	}
}

const worldState = `
worlds: [world]
players:
  - name: alice
    world: world
    position: [5, 5, 5]
    health: 20
`

func TestRunCommand(t *testing.T) {
	h := newHarness(t)
	h.mustRun("policy", "create", "arena", "alice", "--bounds", "0,0,0,100,64,100")
	h.mustRun("policy", "grant", "arena", "message", "player")
	h.mustRun("policy", "var-add", "arena", "hits")

	state := h.write("sim.yml", worldState)
	script := h.write("arena.zs", `
let hits = 0
print("loaded")
on Hit {
  hits = hits + 1
  message(player("alice"), "hit {hits}")
}
`)

	out := h.mustRun("run", script, "--world", state, "--event", "Hit", "--event", "Hit")
	for _, want := range []string{"loaded\n", "[alice] hit 1", "[alice] hit 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// hits was saved on exit and is restored on the next run
	out = h.mustRun("run", "arena="+script, "--world", state, "--event", "Hit")
	if !strings.Contains(out, "[alice] hit 3") {
		t.Errorf("persistent variable not restored:\n%s", out)
	}
}

func TestRunReportsErrors(t *testing.T) {
	h := newHarness(t)
	h.mustRun("policy", "create", "arena", "alice", "--bounds", "0,0,0,10,10,10")

	broken := h.write("arena.zs", "let a = 1\nlet = 2\n")
	_, errOut, err := h.run("run", broken)
	var parseErr *parser.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected a parse error, got %v", err)
	}
	if !strings.Contains(errOut, "   2 | let = 2") || !strings.Contains(errOut, "^") {
		t.Errorf("missing source excerpt:\n%s", errOut)
	}

	denied := h.write("arena.zs", "on Tick { kill(player(\"alice\")) }\n")
	out, errOut, err := h.run("run", denied, "--event", "Tick")
	if err != nil {
		t.Fatalf("handler errors do not fail the command: %v", err)
	}
	if !strings.Contains(errOut, "script arena is not allowed to call player") {
		t.Errorf("expected permission error, got %q %q", out, errOut)
	}
}

func TestTriggerCommand(t *testing.T) {
	h := newHarness(t)
	h.mustRun("policy", "create", "arena", "alice", "--bounds", "0,0,0,100,64,100")
	h.mustRun("policy", "create", "lobby", "bob", "--bounds", "200,0,0,300,64,100")
	h.mustRun("policy", "grant", "arena", "message")
	h.mustRun("policy", "grant", "lobby", "message")

	state := h.write("sim.yml", worldState)
	arena := h.write("arena.zs", `on Join { message(who, "arena welcomes {who.name}, level {level}") }`)
	lobby := h.write("lobby.zs", `on Join { message(who, "lobby") }`+"\non Quit { }")

	out := h.mustRun("trigger", "Join", "arena="+arena, "lobby="+lobby,
		"--world", state, "--var", "who=@alice", "--var", "level=3")
	for _, want := range []string{"event Join dispatched to 2 scripts", "[alice] arena welcomes alice, level 3", "[alice] lobby"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAstCommand(t *testing.T) {
	h := newHarness(t)
	script := h.write("a.zs", "let a = 1 + 2\n")

	text := h.mustRun("ast", script)
	if !strings.Contains(text, "a") || !strings.Contains(text, "+") {
		t.Errorf("unexpected text tree:\n%s", text)
	}

	js := h.mustRun("ast", "--format", "json", script)
	if !strings.HasPrefix(strings.TrimSpace(js), "{") {
		t.Errorf("expected JSON, got:\n%s", js)
	}
}

func TestConfigFile(t *testing.T) {
	h := newHarness(t)
	h.write("zonescript.toml", "locale = \"de\"\n")

	out := h.mustRun("policy", "create", "arena", "alice", "--bounds", "0,0,0,1,1,1")
	if !strings.Contains(out, "Richtlinie arena für alice angelegt") {
		t.Errorf("expected German output, got %q", out)
	}

	h.write("zonescript.toml", "bogus = 1\n")
	if _, _, err := h.run("policy", "list"); err == nil {
		t.Error("expected unknown config keys to fail")
	}
}

func TestParseScriptSources(t *testing.T) {
	sources, err := parseScriptSources([]string{"arena=scripts/a.zs", "dir/lobby.zs"})
	if err != nil {
		t.Fatal(err)
	}
	if sources[0] != (scriptSource{"arena", "scripts/a.zs"}) || sources[1] != (scriptSource{"lobby", "dir/lobby.zs"}) {
		t.Errorf("got %v", sources)
	}
	if _, err := parseScriptSources([]string{"=x"}); err == nil {
		t.Error("expected error for empty name")
	}
}
