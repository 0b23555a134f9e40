// Package netguard implements the network guard: a per-page request
// interceptor that permits only the synthetic document's own navigation
// and aborts every other request before any socket connects, recording
// what it blocked.
package netguard

import (
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/xssbench/xssbench"
)

// Guard records aborted network attempts for one case. A Guard is
// attached to exactly one page for exactly one case's lifetime; its
// record list is per-case and never shared across workers.
type Guard struct {
	router *rod.HijackRouter

	mu       sync.Mutex
	attempts []xssbench.NetworkAttempt
}

// scriptResourceTypes are resource types that, when blocked, contribute
// to external_script_attempted rather than non_script_external_attempt.
var scriptResourceTypes = map[proto.NetworkResourceType]bool{
	proto.NetworkResourceTypeScript: true,
}

// Attach installs the guard on page and starts its hijack loop. It must
// be called before the first navigation of a case so that early
// resources (e.g. a <script src> in the initial HTML) are caught. The
// synthetic document itself navigates via a data: URL, which Chrome
// never routes through the Fetch domain, so no explicit allowlist entry
// for "the document itself" is required.
func Attach(page *rod.Page) (*Guard, error) {
	g := &Guard{}

	router := page.HijackRequests()
	if err := router.Add("*", "", g.handle); err != nil {
		return nil, err
	}
	g.router = router

	go router.Run()
	return g, nil
}

func (g *Guard) handle(ctx *rod.Hijack) {
	resType := ctx.Request.Type()
	url := ctx.Request.URL().String()

	isScript := scriptResourceTypes[resType]

	g.mu.Lock()
	g.attempts = append(g.attempts, xssbench.NetworkAttempt{
		URL:               url,
		ResourceType:      strings.ToLower(string(resType)),
		InitiatorIsScript: isScript,
	})
	g.mu.Unlock()

	ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
}

// Attempts returns a snapshot of every request the guard has aborted so
// far this case.
func (g *Guard) Attempts() []xssbench.NetworkAttempt {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]xssbench.NetworkAttempt, len(g.attempts))
	copy(out, g.attempts)
	return out
}

// Apply folds the guard's recorded attempts into Signals, setting
// ExternalScriptAttempted/NonScriptExternalAttempt and their accompanying
// URL fields: script attempts are a distinct, stronger signal than any
// other resource type.
func (g *Guard) Apply(s *xssbench.Signals) {
	s.NetworkAttempts = g.Attempts()
	for _, a := range s.NetworkAttempts {
		if a.InitiatorIsScript {
			s.ExternalScriptAttempted = true
			if s.ExternalScriptURL == "" {
				s.ExternalScriptURL = a.URL
			}
		} else {
			s.NonScriptExternalAttempt = true
			if s.NonScriptURL == "" {
				s.NonScriptURL = a.URL
			}
		}
	}
}

// Detach stops the hijack router. It must be called before the page is
// reused for the next case, or reattaching a new Guard will race the old
// router's goroutine.
func (g *Guard) Detach() error {
	if g.router == nil {
		return nil
	}
	return g.router.Stop()
}
