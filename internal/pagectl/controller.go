package pagectl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/xssbench/xssbench"
	"github.com/xssbench/xssbench/internal/netguard"
	"github.com/xssbench/xssbench/internal/prelude"
	"github.com/xssbench/xssbench/internal/probes"
)

// Controller owns one page in one browser context and runs cases against
// it one at a time. It is not safe for concurrent use — the Scheduler
// gives each worker goroutine its own Controller.
type Controller struct {
	page    *rod.Page
	stealth bool

	// casesSinceOpen counts cases run against the current page since it
	// was last (re)opened, so the Scheduler can refresh it every K cases.
	casesSinceOpen int
}

// Open creates a fresh page against the given browser. useStealth mirrors
// ManagerConfig.Stealth; it is threaded through per-controller rather
// than read from the Manager so a future per-engine override is free.
func Open(b *rod.Browser, useStealth bool) (*Controller, error) {
	var page *rod.Page
	var err error
	if useStealth {
		page, err = newStealthPage(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("pagectl: open page: %w", err)
	}
	return &Controller{page: page, stealth: useStealth}, nil
}

// Close closes the underlying page.
func (c *Controller) Close() error {
	if c.page == nil {
		return nil
	}
	return c.page.Close()
}

// CasesSinceOpen reports how many cases this controller's page has run
// since it was opened, for the Scheduler's page-refresh policy.
func (c *Controller) CasesSinceOpen() int {
	return c.casesSinceOpen
}

// RunOpts configures one case run.
type RunOpts struct {
	// DocumentHTML is the fully composed document (template + sanitized
	// payload). The prelude is installed separately via
	// EvalOnNewDocument, independent of this markup.
	DocumentHTML string

	// Context is the vector's PayloadContext, used to decide whether a
	// fidelity check applies.
	Context xssbench.PayloadContext

	// FragmentHTML is the sanitized fragment to run the Fidelity Checker
	// over; only meaningful for fragment contexts.
	FragmentHTML string
	ExpectedTags []xssbench.TagSpec

	// Timeout is the per-case navigation/probe wall-clock budget.
	Timeout time.Duration

	// ProbeBudget is the per-probe wall-clock budget within the sweep.
	ProbeBudget time.Duration
}

// Run executes the full case lifecycle against the controller's page and
// returns the collected signals plus lossy flag. adapterStatus comes from
// the caller, since sanitization happens upstream of the page controller,
// and Run copies it onto the returned Signals; Run itself never classifies.
func (c *Controller) Run(ctx context.Context, opts RunOpts, adapterStatus xssbench.AdapterStatus) (xssbench.Signals, bool, error) {
	signals := xssbench.Signals{AdapterStatus: adapterStatus}

	// 1. Reset: purge timers and clear last-case marker state.
	_, _ = c.page.Eval(prelude.CleanupJS)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 800 * time.Millisecond
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 2. The document itself is composed by the caller (template.go).
	// Install the prelude before this navigation. Each call adds one more
	// init-script registration to the page; the prelude's own guard makes
	// every copy after the first a no-op.
	if _, err := c.page.Context(runCtx).EvalOnNewDocument(prelude.Script()); err != nil {
		return signals, false, fmt.Errorf("pagectl: install prelude: %w", err)
	}

	// 3. Install network guard before navigation so early resources
	// (e.g. a <script src> in the initial HTML) are caught.
	guard, err := netguard.Attach(c.page)
	if err != nil {
		return signals, false, fmt.Errorf("pagectl: attach network guard: %w", err)
	}
	defer guard.Detach()

	// 4. Navigate to a data: URL containing the composed document. Wait
	// for load or until the per-case timeout; a timeout here truncates
	// signal collection rather than failing the case.
	dataURL := "data:text/html;charset=utf-8," + escapeDataURL(opts.DocumentHTML)
	p := c.page.Context(runCtx)
	if err := p.Navigate(dataURL); err != nil {
		return signals, false, wrapPageErr(err)
	}
	if err := p.WaitLoad(); err != nil {
		if !isTimeout(err) {
			return signals, false, wrapPageErr(err)
		}
		signals.TimedOut = true
	}

	// 5. Run probes: detect, synthesize events, activate, detect again.
	signals.DangerousURLHits = probes.Sweep(runCtx, c.page, opts.ProbeBudget)

	// 6. Collect remaining signals: dialog marker, network guard records,
	// and whether the top-level document navigated away from the
	// injected data: URL.
	c.readMarker(runCtx, &signals)
	guard.Apply(&signals)
	c.checkNavigated(runCtx, &signals)

	// 7. Fidelity check, fragment contexts only.
	lossy := c.fidelityIfApplicable(opts)

	c.casesSinceOpen++
	return signals, lossy, nil
}

func (c *Controller) readMarker(ctx context.Context, signals *xssbench.Signals) {
	res, err := c.page.Context(ctx).Eval(prelude.ReadMarkerJS)
	if err != nil {
		return
	}
	var m prelude.Marker
	if err := res.Value.Unmarshal(&m); err != nil {
		return
	}
	signals.DialogFired = m.Executed
	signals.DialogDetails = m.Details
}

func (c *Controller) checkNavigated(ctx context.Context, signals *xssbench.Signals) {
	res, err := c.page.Context(ctx).Eval(`() => location.href`)
	if err != nil {
		return
	}
	current := res.Value.Str()
	signals.NavigationOccurred = current != "" && !strings.HasPrefix(current, "data:")
}

func (c *Controller) fidelityIfApplicable(opts RunOpts) bool {
	if !fragmentContext(opts.Context) {
		return false
	}
	lossy, err := xssbench.CheckFidelity(opts.FragmentHTML, opts.ExpectedTags)
	if err != nil {
		return false
	}
	return lossy
}

func fragmentContext(ctx xssbench.PayloadContext) bool {
	switch ctx {
	case xssbench.ContextHTML, xssbench.ContextHTMLHead, xssbench.ContextHTMLOuter, xssbench.ContextOnerrorAttr:
		return true
	default:
		return false
	}
}

// escapeDataURL percent-encodes the two bytes that would otherwise
// truncate or corrupt a data: URL: '#' ends the URL early and '%' would
// be misread as the start of an escape sequence in the payload markup.
func escapeDataURL(html string) string {
	r := strings.NewReplacer("%", "%25", "#", "%23")
	return r.Replace(html)
}

func isTimeout(err error) bool {
	return err != nil && strings.Contains(err.Error(), "deadline exceeded")
}

func wrapPageErr(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w", xssbench.ErrPageTimeout, err)
	}
	return fmt.Errorf("%w: %w", xssbench.ErrBrowserContextCrash, err)
}
