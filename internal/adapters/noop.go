// Package adapters provides concrete xssbench.Adapter implementations:
// a pass-through baseline and wrappers around real sanitizer libraries.
package adapters

import (
	"context"

	"github.com/xssbench/xssbench"
)

// Noop is the baseline adapter: it returns its input unchanged, so every
// hostile vector reaches the page as written and many produce xss or
// external against Noop (a benign payload still passes) — it exists
// to prove the harness itself (browser, prelude, probes, network guard)
// actually detects what it claims to, independent of any real sanitizer.
type Noop struct{}

func (Noop) ID() string { return "noop" }

func (Noop) Sanitize(_ context.Context, html string, _ xssbench.Policy) xssbench.Result {
	return xssbench.Result{Status: xssbench.AdapterOK, HTML: html}
}
