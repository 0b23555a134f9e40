package prelude

import (
	"strings"
	"testing"
)

func TestScript_EmbedsNonEmptySource(t *testing.T) {
	s := Script()
	if s == "" {
		t.Fatal("Script() = \"\", want embedded prelude.js contents")
	}
	if !containsAll(s, "__xssbench", "alert", "confirm", "prompt") {
		t.Errorf("Script() missing expected instrumentation hooks: %s", s)
	}
}

func TestReadMarkerJS_ToleratesMissingPrelude(t *testing.T) {
	if ReadMarkerJS == "" {
		t.Fatal("ReadMarkerJS is empty")
	}
	if !containsAll(ReadMarkerJS, "__xssbench", "executed") {
		t.Errorf("ReadMarkerJS = %q, want a guard against a missing prelude", ReadMarkerJS)
	}
}

func TestCleanupJS_ToleratesMissingPrelude(t *testing.T) {
	if CleanupJS == "" {
		t.Fatal("CleanupJS is empty")
	}
	if !containsAll(CleanupJS, "__xssbench", "cleanup") {
		t.Errorf("CleanupJS = %q, want a guard against a missing prelude", CleanupJS)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
