package netguard

import (
	"testing"

	"github.com/xssbench/xssbench"
)

func TestGuard_Apply_ScriptAttemptIsDistinctFromNonScript(t *testing.T) {
	g := &Guard{
		attempts: []xssbench.NetworkAttempt{
			{URL: "https://evil.example/a.js", ResourceType: "script", InitiatorIsScript: true},
			{URL: "https://evil.example/b.png", ResourceType: "image", InitiatorIsScript: false},
		},
	}

	var s xssbench.Signals
	g.Apply(&s)

	if !s.ExternalScriptAttempted {
		t.Error("ExternalScriptAttempted = false, want true")
	}
	if s.ExternalScriptURL != "https://evil.example/a.js" {
		t.Errorf("ExternalScriptURL = %q", s.ExternalScriptURL)
	}
	if !s.NonScriptExternalAttempt {
		t.Error("NonScriptExternalAttempt = false, want true")
	}
	if s.NonScriptURL != "https://evil.example/b.png" {
		t.Errorf("NonScriptURL = %q", s.NonScriptURL)
	}
	if len(s.NetworkAttempts) != 2 {
		t.Errorf("NetworkAttempts = %+v, want 2 entries", s.NetworkAttempts)
	}
}

func TestGuard_Apply_FirstURLWinsPerCategory(t *testing.T) {
	g := &Guard{
		attempts: []xssbench.NetworkAttempt{
			{URL: "https://evil.example/first.js", InitiatorIsScript: true},
			{URL: "https://evil.example/second.js", InitiatorIsScript: true},
		},
	}

	var s xssbench.Signals
	g.Apply(&s)

	if s.ExternalScriptURL != "https://evil.example/first.js" {
		t.Errorf("ExternalScriptURL = %q, want first URL recorded", s.ExternalScriptURL)
	}
}

func TestGuard_Apply_NoAttemptsLeavesSignalsUnset(t *testing.T) {
	g := &Guard{}
	var s xssbench.Signals
	g.Apply(&s)

	if s.ExternalScriptAttempted || s.NonScriptExternalAttempt {
		t.Errorf("Signals = %+v, want both false with no recorded attempts", s)
	}
	if len(s.NetworkAttempts) != 0 {
		t.Errorf("NetworkAttempts = %+v, want empty", s.NetworkAttempts)
	}
}

func TestGuard_Attempts_ReturnsSnapshotCopy(t *testing.T) {
	g := &Guard{attempts: []xssbench.NetworkAttempt{{URL: "https://evil.example/x"}}}

	snap := g.Attempts()
	snap[0].URL = "mutated"

	if g.attempts[0].URL == "mutated" {
		t.Error("Attempts() leaked internal slice, mutation should not affect guard state")
	}
}

func TestGuard_Detach_NilRouterIsNoop(t *testing.T) {
	g := &Guard{}
	if err := g.Detach(); err != nil {
		t.Errorf("Detach() with no router attached = %v, want nil", err)
	}
}
