// Package xssbench is an adversarial benchmark harness for HTML sanitizers.
//
// It drives a corpus of hostile HTML payloads (Vectors) through one or more
// Adapters, injects the sanitized output into an instrumented document,
// loads the document in a real headless browser, and classifies the result
// along three axes: script execution (xss), external network attempts
// (external), and structural fidelity (lossy). Every vector runs under
// identical instrumentation, timing, and network policy so that outcomes
// are comparable across sanitizers.
//
// The Scheduler (see scheduler.go) is the entry point for running a full
// matrix of vectors × sanitizers × browser engines; cmd/xssbench wraps it
// with a CLI.
package xssbench
