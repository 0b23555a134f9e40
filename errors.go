package xssbench

import "errors"

// Sentinel errors for the harness's failure taxonomy. Wrap with
// fmt.Errorf("...: %w", ErrX) and unwrap with errors.Is.
var (
	// ErrVectorSchema is returned by vector file loading when the JSON
	// does not match the v1 schema shape. Fatal at load.
	ErrVectorSchema = errors.New("xssbench: vector schema error")

	// ErrInvariantViolation is returned when a loaded Vector violates a
	// data-model invariant (e.g. expected_tags present for a js context).
	// Fatal at load.
	ErrInvariantViolation = errors.New("xssbench: invariant violation")

	// ErrSanitizerConfigUnsupported is surfaced by an Adapter when it
	// cannot represent the requested Policy. Maps to outcome Skip.
	ErrSanitizerConfigUnsupported = errors.New("xssbench: sanitizer config unsupported")

	// ErrSanitizerAdapter wraps any other unexpected adapter failure.
	// Maps to outcome Error.
	ErrSanitizerAdapter = errors.New("xssbench: sanitizer adapter error")

	// ErrPageTimeout marks a per-case navigation/probe timeout. Not
	// itself a failure — it truncates signal collection.
	ErrPageTimeout = errors.New("xssbench: page timeout")

	// ErrBrowserContextCrash marks a crashed browser context/page. The
	// Scheduler recycles the worker's runner and retries the case once on
	// the fresh one; a second crash on the same case maps to outcome Error.
	ErrBrowserContextCrash = errors.New("xssbench: browser context crash")
)
