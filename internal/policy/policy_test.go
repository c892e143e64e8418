package policy

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		mode      Mode
		functions []string
		function  string
		expected  bool
	}{
		{Whitelist, []string{"give"}, "give", true},
		{Whitelist, []string{"give"}, "kill", false},
		{Whitelist, nil, "give", false},
		{Blacklist, []string{"kill"}, "kill", false},
		{Blacklist, []string{"kill"}, "give", true},
		{Blacklist, nil, "kill", true},
	}

	for _, tt := range tests {
		p := New("arena", "alice", [6]float64{}, "world")
		p.Mode = tt.mode
		p.Functions = tt.functions
		if got := p.HasPermission(tt.function); got != tt.expected {
			t.Errorf("%s %v %s: got %t, want %t", tt.mode, tt.functions, tt.function, got, tt.expected)
		}
	}
}

func TestGrantRevoke(t *testing.T) {
	p := New("arena", "alice", [6]float64{}, "world")

	if !p.Grant("give") {
		t.Error("first grant should change the policy")
	}
	if p.Grant("give") {
		t.Error("second grant should be a no-op")
	}
	p.Grant("kill")
	if strings.Join(p.Functions, ",") != "give,kill" {
		t.Errorf("wrong functions %v", p.Functions)
	}
	if !p.Revoke("give") || p.Revoke("give") {
		t.Error("revoke should change the policy exactly once")
	}
	if strings.Join(p.Functions, ",") != "kill" {
		t.Errorf("wrong functions %v", p.Functions)
	}
}

func TestPersistentVars(t *testing.T) {
	p := New("arena", "alice", [6]float64{}, "world")

	if !p.AddPersistentVar("score") || p.AddPersistentVar("score") {
		t.Error("add should change the policy exactly once")
	}
	if v, ok := p.Variables["score"]; !ok || v != nil {
		t.Errorf("expected declared null variable, got %v %t", v, ok)
	}
	p.Variables["score"] = 3.0
	if p.AddPersistentVar("score") || p.Variables["score"] != 3.0 {
		t.Error("re-adding must keep the stored value")
	}
	if !p.RemovePersistentVar("score") || p.RemovePersistentVar("score") {
		t.Error("remove should change the policy exactly once")
	}
}

func TestParseMode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	tests := []struct {
		input    string
		expected Mode
		warns    bool
	}{
		{"WHITELIST", Whitelist, false},
		{"blacklist", Blacklist, false},
		{" Blacklist ", Blacklist, false},
		{"greylist", Whitelist, true},
		{"", Whitelist, true},
	}

	for _, tt := range tests {
		buf.Reset()
		if got := ParseMode(tt.input, logger); got != tt.expected {
			t.Errorf("%q: got %s, want %s", tt.input, got, tt.expected)
		}
		if warned := strings.Contains(buf.String(), "invalid policy mode"); warned != tt.warns {
			t.Errorf("%q: warned=%t, want %t", tt.input, warned, tt.warns)
		}
	}
}

func TestClone(t *testing.T) {
	p := New("arena", "alice", [6]float64{1, 2, 3, 4, 5, 6}, "world")
	p.Grant("give")
	p.AddPersistentVar("score")

	c := p.Clone()
	c.Grant("kill")
	c.Variables["score"] = "changed"

	if len(p.Functions) != 1 || p.Variables["score"] != nil {
		t.Errorf("clone shares state with original: %v %v", p.Functions, p.Variables)
	}
}

func TestRegion(t *testing.T) {
	p := New("arena", "alice", [6]float64{10, 0, 10, 0, 5, 0}, "nether")
	r := p.Region()
	if r.World != "nether" || !r.Contains("nether", 5, 5, 5) || r.Contains("world", 5, 5, 5) {
		t.Errorf("wrong region %s", r)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		mutate func(p *Policy)
		ok     bool
	}{
		{func(p *Policy) {}, true},
		{func(p *Policy) { p.Name = "" }, false},
		{func(p *Policy) { p.Name = "../etc" }, false},
		{func(p *Policy) { p.Owner = "" }, false},
		{func(p *Policy) { p.Mode = "GREYLIST" }, false},
		{func(p *Policy) { p.Variables["list"] = []any{1} }, false},
	}

	for i, tt := range tests {
		p := New("arena", "alice", [6]float64{}, "world")
		tt.mutate(p)
		err := p.Validate()
		if tt.ok && err != nil {
			t.Errorf("tests[%d]: unexpected error %v", i, err)
		}
		if !tt.ok && !errors.Is(err, ErrMalformedPolicy) {
			t.Errorf("tests[%d]: expected ErrMalformedPolicy, got %v", i, err)
		}
	}
}
