package object

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"zonescript/internal/region"
)

func num(v float64) *Number { return &Number{Value: v} }

func TestDefineThenGet(t *testing.T) {
	env := NewEnvironment("global")

	v := num(42)
	if err := env.Define("x", v); err != nil {
		t.Fatalf("define: %v", err)
	}

	got, err := env.Get("x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != v {
		t.Errorf("Get returned a different value: %v", got.Inspect())
	}

	if err := env.Define("x", num(1)); !errors.Is(err, ErrDuplicateDefinition) {
		t.Errorf("expected ErrDuplicateDefinition, got %v", err)
	}
}

func TestDefineLeavesDefaultLoggerQuiet(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	env := NewEnvironment("global")
	if err := env.Define("x", num(1)); err != nil {
		t.Fatalf("define: %v", err)
	}
	if err := env.DefineConst("y", num(2)); err != nil {
		t.Fatalf("define const: %v", err)
	}

	if buf.Len() != 0 {
		t.Errorf("expected no output on the default logger, got %q", buf.String())
	}
}

func TestChildMayShadow(t *testing.T) {
	parent := NewEnvironment("global")
	_ = parent.Define("x", num(1))

	child := NewEnclosedEnvironment(parent, "block")
	if err := child.Define("x", num(2)); err != nil {
		t.Fatalf("shadowing define failed: %v", err)
	}

	got, _ := child.Get("x")
	if got.Inspect() != "2" {
		t.Errorf("child sees %s, want 2", got.Inspect())
	}
	got, _ = parent.Get("x")
	if got.Inspect() != "1" {
		t.Errorf("parent sees %s, want 1", got.Inspect())
	}
}

func TestSetAutoVivifiesInInnermostScope(t *testing.T) {
	parent := NewEnvironment("global")
	child := NewEnclosedEnvironment(parent, "block")

	if err := child.Set("x", num(5)); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := child.Get("x")
	if err != nil || got.Inspect() != "5" {
		t.Fatalf("expected 5, got %v (%v)", got, err)
	}
	if _, ok := parent.GetLocal("x"); ok {
		t.Errorf("auto-vivified name leaked into the parent")
	}
}

func TestSetUpdatesNearestBinding(t *testing.T) {
	global := NewEnvironment("global")
	_ = global.Define("count", num(0))
	middle := NewEnclosedEnvironment(global, "fn")
	inner := NewEnclosedEnvironment(middle, "block")

	if err := inner.Set("count", num(3)); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, _ := global.GetLocal("count")
	if got.Inspect() != "3" {
		t.Errorf("global count = %s, want 3", got.Inspect())
	}
	if _, ok := inner.GetLocal("count"); ok {
		t.Errorf("set created a new binding instead of updating")
	}
}

func TestConstViolationAnywhereInChain(t *testing.T) {
	global := NewEnvironment("global")
	if err := global.DefineConst("limit", num(10)); err != nil {
		t.Fatalf("define const: %v", err)
	}

	for _, env := range []*Environment{
		global,
		NewEnclosedEnvironment(global, "a"),
		NewEnclosedEnvironment(NewEnclosedEnvironment(global, "a"), "b"),
	} {
		if err := env.Set("limit", num(11)); !errors.Is(err, ErrConstViolation) {
			t.Errorf("%s: expected ErrConstViolation, got %v", env.Name, err)
		}
	}

	got, _ := global.Get("limit")
	if got.Inspect() != "10" {
		t.Errorf("constant changed to %s", got.Inspect())
	}
	if !global.IsConst("limit") {
		t.Errorf("IsConst should report true")
	}
}

func TestGetUndefined(t *testing.T) {
	env := NewEnclosedEnvironment(NewEnvironment("global"), "block")
	if _, err := env.Get("missing"); !errors.Is(err, ErrUndefinedVariable) {
		t.Errorf("expected ErrUndefinedVariable, got %v", err)
	}
}

func TestRegionIsNotInherited(t *testing.T) {
	parent := NewEnvironment("global")
	parent.SetRegion(region.New(0, 0, 0, 10, 10, 10, "world"))
	child := NewEnclosedEnvironment(parent, "block")

	if _, ok := child.Region(); ok {
		t.Errorf("child must not report the parent's region")
	}
	r, ok := child.NearestRegion()
	if !ok || r.World != "world" {
		t.Errorf("NearestRegion should find the parent's region")
	}
}

func TestPlayerRoster(t *testing.T) {
	env := NewEnvironment("arena")
	alice := &Handle{Kind: PlayerHandle, Ref: fakeRef{id: "a", name: "alice"}}
	bob := &Handle{Kind: PlayerHandle, Ref: fakeRef{id: "b", name: "bob"}}
	aliceAgain := &Handle{Kind: PlayerHandle, Ref: fakeRef{id: "a", name: "alice"}}

	if !env.AddPlayer(alice) || !env.AddPlayer(bob) {
		t.Fatalf("adding new players should succeed")
	}
	if env.AddPlayer(aliceAgain) {
		t.Errorf("adding the same player twice should report false")
	}
	if !env.HasPlayer(aliceAgain) {
		t.Errorf("roster membership is by identity")
	}

	players := env.Players()
	if len(players) != 2 || players[0].Inspect() != "alice" || players[1].Inspect() != "bob" {
		t.Errorf("unexpected roster %v", players)
	}

	if !env.RemovePlayer(aliceAgain) || env.RemovePlayer(alice) {
		t.Errorf("remove should succeed once")
	}
	if len(env.Players()) != 1 {
		t.Errorf("expected one player left")
	}

	child := NewEnclosedEnvironment(env, "block")
	if len(child.Players()) != 0 {
		t.Errorf("roster must not be inherited")
	}
}

func TestConcurrentSet(t *testing.T) {
	global := NewEnvironment("global")
	_ = global.Define("hits", num(0))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			child := NewEnclosedEnvironment(global, "handler")
			_ = child.Set("hits", num(float64(i)))
			_, _ = child.Get("hits")
			_ = child.Set("local", num(1))
		}(i)
	}
	wg.Wait()

	if _, ok := global.GetLocal("local"); ok {
		t.Errorf("handler locals leaked into global")
	}
}
