// Package probes holds the in-page scripts run after a case's document
// loads: a dangerous-URL detector, an event synthesizer, and a form/ping
// activator. Each probe carries its own small wall-clock budget and is
// defensive: one probe failing does not abort the sweep.
package probes

import (
	"context"
	_ "embed"
	"time"

	"github.com/go-rod/rod"
	"github.com/xssbench/xssbench"
)

//go:embed detector.js
var detectorJS string

//go:embed events.js
var eventsJS string

//go:embed activate.js
var activateJS string

// DefaultBudget is the per-probe wall-clock budget when a case does not
// override it.
const DefaultBudget = 250 * time.Millisecond

// Detect runs the dangerous-URL detector against the given page and
// returns up to five dangerous
// URL hits. A probe timeout or eval failure yields a nil slice rather
// than an error: probes are defensive by design.
func Detect(ctx context.Context, page *rod.Page, budget time.Duration) []xssbench.URLHit {
	if budget <= 0 {
		budget = DefaultBudget
	}
	pctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	res, err := page.Context(pctx).Eval(detectorJS)
	if err != nil {
		return nil
	}

	var raw []struct {
		Tag   string `json:"tag"`
		Attr  string `json:"attr"`
		Value string `json:"value"`
	}
	if err := res.Value.Unmarshal(&raw); err != nil {
		return nil
	}

	hits := make([]xssbench.URLHit, 0, len(raw))
	for _, h := range raw {
		hits = append(hits, xssbench.URLHit{Tag: h.Tag, Attr: h.Attr, Value: h.Value})
	}
	return hits
}

// SynthesizeEvents runs the event synthesizer against the given page.
// Errors are swallowed:
// a probe that cannot run (e.g. the page navigated away) contributes no
// signals rather than failing the case.
func SynthesizeEvents(ctx context.Context, page *rod.Page, budget time.Duration) {
	if budget <= 0 {
		budget = DefaultBudget
	}
	pctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	_, _ = page.Context(pctx).Eval(eventsJS)
}

// Activate runs the form/ping activator against the given page, clicking
// ping links and
// submitting forms.
func Activate(ctx context.Context, page *rod.Page, budget time.Duration) {
	if budget <= 0 {
		budget = DefaultBudget
	}
	pctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	_, _ = page.Context(pctx).Eval(activateJS)
}

// Sweep runs the probes in order: detector, event synthesizer, activator,
// then the detector again to catch DOM mutations the synthetic events
// caused. The returned hits are the first pass's hits followed by the
// second pass's, each pass capped at 5, so at most 10; a hit found by
// both passes appears twice.
func Sweep(ctx context.Context, page *rod.Page, perProbeBudget time.Duration) []xssbench.URLHit {
	hits := Detect(ctx, page, perProbeBudget)
	SynthesizeEvents(ctx, page, perProbeBudget)
	Activate(ctx, page, perProbeBudget)
	hits = append(hits, Detect(ctx, page, perProbeBudget)...)
	return hits
}
