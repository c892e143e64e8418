package runtime

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"zonescript/internal/evaluator"
	"zonescript/internal/host"
	"zonescript/internal/messages"
	"zonescript/internal/native"
	"zonescript/internal/object"
	"zonescript/internal/parser"
	"zonescript/internal/policy"
)

type fixture struct {
	rt       *Runtime
	registry *policy.Registry
	sim      *host.Sim
	out      *bytes.Buffer
}

func newFixture(t *testing.T, grants ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := policy.NewFileStore(t.TempDir(), "world", nil)
	if err != nil {
		t.Fatal(err)
	}
	registry := policy.NewRegistry(store, nil)

	p := policy.New("arena", "alice", [6]float64{0, 0, 0, 100, 100, 100}, "world")
	for _, fn := range grants {
		p.Grant(fn)
	}
	if err := registry.Create(ctx, p); err != nil {
		t.Fatal(err)
	}

	sim := host.NewSim(nil)
	sim.AddPlayer("alice", "world", 10, 10, 10)
	sim.AddPlayer("bob", "world", 20, 10, 10)

	out := &bytes.Buffer{}
	rt := New(Options{
		Policies:     registry,
		Catalog:      messages.New("en"),
		Natives:      append(native.Builtins(out), sim.Natives()...),
		DefaultWorld: "world",
		QueueSize:    4,
	})
	t.Cleanup(func() { rt.Close(context.Background()) })

	return &fixture{rt: rt, registry: registry, sim: sim, out: out}
}

func (f *fixture) player(t *testing.T, name string) object.Object {
	t.Helper()
	h, ok := f.sim.Player(name)
	if !ok {
		t.Fatalf("no player %s", name)
	}
	return h
}

func TestLoadAndTrigger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "message", "player")

	src := `
let greeting = "welcome"
on PlayerJoin { message(player, "{greeting} {player.name}") }
on Tick { }
`
	script, err := f.rt.Load(ctx, "arena", src)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(script.Handlers()) != 2 {
		t.Errorf("wrong handlers %v", script.Handlers())
	}

	n, err := f.rt.Trigger(ctx, "PlayerJoin", map[string]object.Object{"player": f.player(t, "alice")})
	if err != nil || n != 1 {
		t.Fatalf("trigger: %d %v", n, err)
	}
	if inbox := f.sim.Inbox("alice"); len(inbox) != 1 || inbox[0] != "welcome alice" {
		t.Errorf("wrong inbox %v", inbox)
	}

	// no handler, no dispatch
	n, err = f.rt.Trigger(ctx, "PlayerQuit", nil)
	if err != nil || n != 0 {
		t.Errorf("expected no dispatch, got %d %v", n, err)
	}
}

func TestPermissionDenied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "player")

	src := `on Smite { kill(player("bob")) }`
	if _, err := f.rt.Load(ctx, "arena", src); err != nil {
		t.Fatalf("load: %v", err)
	}

	err := f.rt.TriggerScript(ctx, "arena", "Smite", nil)
	if !errors.Is(err, evaluator.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	var handlerErr *HandlerError
	if !errors.As(err, &handlerErr) || handlerErr.Script != "arena" || handlerErr.Event != "Smite" {
		t.Errorf("expected HandlerError, got %v", err)
	}
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Message() != "script arena is not allowed to call kill" {
		t.Errorf("wrong runtime error %v", err)
	}

	// the script survives and sees grants immediately
	if _, ok := f.rt.Script("arena"); !ok {
		t.Fatal("script was unloaded by a handler error")
	}
	if _, err := f.registry.Grant(ctx, "arena", "kill"); err != nil {
		t.Fatal(err)
	}
	if err := f.rt.TriggerScript(ctx, "arena", "Smite", nil); err != nil {
		t.Fatalf("after grant: %v", err)
	}
}

func TestBlacklist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "kill")
	if _, err := f.registry.SetMode(ctx, "arena", policy.Blacklist); err != nil {
		t.Fatal(err)
	}

	src := `
let p = player("alice")
try { kill(p) } catch (e) { print(e) }
`
	if _, err := f.rt.Load(ctx, "arena", src); err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.out.String() != "script arena is not allowed to call kill\n" {
		t.Errorf("wrong output %q", f.out.String())
	}
}

func TestLoadIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name string
		src  string
		is   func(error) bool
	}{
		{"parse", "on Tick { \nlet = }", func(err error) bool {
			var parseErr *parser.ParseError
			return errors.As(err, &parseErr)
		}},
		{"runtime", "on Tick { }\nlet x = 1 / 0", func(err error) bool {
			return errors.Is(err, evaluator.ErrDivisionByZero)
		}},
		{"boundary", "let s = scope(0, 0, 0, 200, 10, 10)", func(err error) bool {
			return errors.Is(err, evaluator.ErrOutOfRange)
		}},
		{"flow", "break", func(err error) bool {
			return errors.Is(err, evaluator.ErrFlowEscape)
		}},
	}

	for _, tt := range tests {
		_, err := f.rt.Load(ctx, "arena", tt.src)
		if err == nil || !tt.is(err) {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if _, ok := f.rt.Script("arena"); ok {
			t.Fatalf("%s: failed load registered the script", tt.name)
		}
		if n, _ := f.rt.Trigger(ctx, "Tick", nil); n != 0 {
			t.Errorf("%s: handler of a failed load was dispatched", tt.name)
		}
	}

	if _, err := f.rt.Load(ctx, "arena", "on Tick { }"); err != nil {
		t.Fatalf("load after failures: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.rt.Load(ctx, "lobby", ""); !errors.Is(err, policy.ErrPolicyNotFound) {
		t.Errorf("expected ErrPolicyNotFound, got %v", err)
	}
	if _, err := f.rt.Load(ctx, "arena", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.rt.Load(ctx, "arena", ""); !errors.Is(err, ErrScriptLoaded) {
		t.Errorf("expected ErrScriptLoaded, got %v", err)
	}
	if err := f.rt.Unload(ctx, "lobby"); !errors.Is(err, ErrScriptNotLoaded) {
		t.Errorf("expected ErrScriptNotLoaded, got %v", err)
	}
	if _, err := f.rt.Eval(ctx, "lobby", "1"); !errors.Is(err, ErrScriptNotLoaded) {
		t.Errorf("expected ErrScriptNotLoaded, got %v", err)
	}
}

func TestPersistentVariables(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, v := range []string{"score", "title", "items"} {
		if _, err := f.registry.AddPersistentVar(ctx, "arena", v); err != nil {
			t.Fatal(err)
		}
	}

	src := `
let score = 0
let title = "open"
let items = []
on Hit { score = score + 1 }
`
	if _, err := f.rt.Load(ctx, "arena", src); err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := f.rt.TriggerScript(ctx, "arena", "Hit", nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.rt.Eval(ctx, "arena", `title = "closed"`); err != nil {
		t.Fatal(err)
	}
	if err := f.rt.Unload(ctx, "arena"); err != nil {
		t.Fatalf("unload: %v", err)
	}

	p, err := f.registry.Get(ctx, "arena")
	if err != nil {
		t.Fatal(err)
	}
	if p.Variables["score"] != 2.0 || p.Variables["title"] != "closed" {
		t.Errorf("wrong snapshot %v", p.Variables)
	}
	if v, ok := p.Variables["items"]; !ok || v != nil {
		t.Errorf("list value must not be stored, got %v", v)
	}

	if _, err := f.rt.Load(ctx, "arena", src); err != nil {
		t.Fatalf("reload: %v", err)
	}
	obj, err := f.rt.Eval(ctx, "arena", "[score, title, items]")
	if err != nil {
		t.Fatal(err)
	}
	if obj.Inspect() != `[2, "closed", []]` {
		t.Errorf("wrong restored values %s", obj.Inspect())
	}
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.rt.Reload(ctx, "arena", "let v = 1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.rt.Reload(ctx, "arena", "let v = 2"); err != nil {
		t.Fatal(err)
	}
	obj, err := f.rt.Eval(ctx, "arena", "v")
	if err != nil || obj.Inspect() != "2" {
		t.Errorf("got %v %v", obj, err)
	}
}

func TestDispatchIsSerialized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	src := `
let count = 0
on Tick {
  let before = count
  wait(1)
  count = before + 1
}
`
	if _, err := f.rt.Load(ctx, "arena", src); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.rt.Trigger(ctx, "Tick", nil); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	obj, err := f.rt.Eval(ctx, "arena", "count")
	if err != nil || obj.Inspect() != "50" {
		t.Errorf("got %v %v", obj, err)
	}
}

func TestTriggerJoinsErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if err := f.registry.Create(ctx, policy.New("lobby", "bob", [6]float64{0, 0, 0, 1, 1, 1}, "world")); err != nil {
		t.Fatal(err)
	}

	if _, err := f.rt.Load(ctx, "arena", "on Boom { let x = 1 / 0 }"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.rt.Load(ctx, "lobby", "let hits = 0\non Boom { hits = hits + 1 }"); err != nil {
		t.Fatal(err)
	}

	n, err := f.rt.Trigger(ctx, "Boom", nil)
	if n != 2 {
		t.Errorf("expected 2 dispatches, got %d", n)
	}
	if !errors.Is(err, evaluator.ErrDivisionByZero) {
		t.Errorf("expected division by zero, got %v", err)
	}

	obj, err := f.rt.Eval(ctx, "lobby", "hits")
	if err != nil || obj.Inspect() != "1" {
		t.Errorf("other script should still run: %v %v", obj, err)
	}
	if names := f.rt.Names(); len(names) != 2 {
		t.Errorf("wrong loaded scripts %v", names)
	}
}

func TestEventContextIsTransient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "player")

	src := `
let seen = ""
on Join { seen = seen + who.name + " " }
`
	if _, err := f.rt.Load(ctx, "arena", src); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"alice", "bob"} {
		vars := map[string]object.Object{"who": f.player(t, name)}
		if err := f.rt.TriggerScript(ctx, "arena", "Join", vars); err != nil {
			t.Fatal(err)
		}
	}

	obj, err := f.rt.Eval(ctx, "arena", "seen")
	if err != nil || obj.Inspect() != "alice bob " {
		t.Errorf("got %v %v", obj, err)
	}
	if _, err := f.rt.Eval(ctx, "arena", "who"); !errors.Is(err, object.ErrUndefinedVariable) {
		t.Errorf("event context leaked into the global scope: %v", err)
	}
}
