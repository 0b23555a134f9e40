package xssbench

import (
	"context"
	"fmt"
	"strings"
)

// Policy describes an allowlist an Adapter should enforce: which tags may
// survive sanitization, and which attributes are allowed on each (the
// special tag key "*" names attributes allowed on every tag). An empty
// Policy means "use the adapter's own default policy" rather than "allow
// nothing" — adapters that cannot express a given Policy at all return
// ErrSanitizerConfigUnsupported rather than silently falling back to their
// default.
type Policy struct {
	AllowedTags  []string
	AllowedAttrs map[string][]string
}

// allows reports whether attr is permitted on tag by this Policy, either
// named directly under tag or under the global "*" key. Matching is
// case-insensitive. Used by checkAllowlistSanity to enforce that every
// attribute a corpus's expected_tags contracts reference is one the
// shared allowlist actually grants.
func (p Policy) allows(tag, attr string) bool {
	attr = strings.ToLower(attr)
	for _, a := range p.AllowedAttrs[strings.ToLower(tag)] {
		if strings.EqualFold(a, attr) {
			return true
		}
	}
	for _, a := range p.AllowedAttrs["*"] {
		if strings.EqualFold(a, attr) {
			return true
		}
	}
	return false
}

// DefaultPolicy is the harness's shared allowlist policy: the tags and
// attributes a vector corpus's expected_tags contracts are allowed to
// assume survive sanitization, and the baseline Policy handed to adapters
// that accept one. It is deliberately close to bluemonday.UGCPolicy()'s
// shape, the harness's reference "permissive but safe" allowlist.
func DefaultPolicy() Policy {
	return Policy{
		AllowedTags: []string{
			"p", "div", "span", "a", "b", "i", "strong", "em", "u",
			"ul", "ol", "li", "br", "hr",
			"img", "iframe", "table", "thead", "tbody", "tr", "td", "th",
			"blockquote", "code", "pre", "h1", "h2", "h3", "h4", "h5", "h6",
		},
		AllowedAttrs: map[string][]string{
			"*":      {"class", "id", "title", "style"},
			"a":      {"href", "target", "rel"},
			"img":    {"src", "alt", "width", "height"},
			"iframe": {"src", "srcdoc", "sandbox"},
		},
	}
}

// Result is the outcome of running one Adapter over one case's payload.
type Result struct {
	Status AdapterStatus
	HTML   string
	Err    error
}

// Adapter sanitizes one fragment of untrusted HTML under a Policy. A
// single Adapter instance is reused across many cases and must be safe
// for concurrent use — the Scheduler calls Sanitize from multiple
// worker goroutines at once.
//
// Adapter implementations never panic on malformed input; malformed HTML
// is a normal adversarial case, not a programming error. Only inputs the
// adapter genuinely cannot represent under the given Policy should
// produce an unsupported-config Result.
type Adapter interface {
	// ID is the adapter's stable identifier, used in CaseInput.SanitizerID
	// and report output. It must be unique within a run.
	ID() string

	// Sanitize runs the adapter over html under policy. ctx carries the
	// per-case timeout; implementations that shell out or otherwise block
	// must respect ctx.Done().
	Sanitize(ctx context.Context, html string, policy Policy) Result
}

// errResult builds an adapter_error Result, wrapping err in
// ErrSanitizerAdapter so callers can errors.Is against the taxonomy.
func errResult(err error) Result {
	return Result{Status: AdapterError, Err: fmt.Errorf("%w: %w", ErrSanitizerAdapter, err)}
}

// unsupportedResult builds an unsupported_config Result for a Policy the
// adapter cannot represent.
func unsupportedResult(reason string) Result {
	return Result{Status: AdapterUnsupportedConfig, Err: wrapUnsupported(reason)}
}

func wrapUnsupported(reason string) error {
	if reason == "" {
		return ErrSanitizerConfigUnsupported
	}
	return &unsupportedConfigError{reason: reason}
}

type unsupportedConfigError struct {
	reason string
}

func (e *unsupportedConfigError) Error() string {
	return "xssbench: sanitizer config unsupported: " + e.reason
}

func (e *unsupportedConfigError) Unwrap() error {
	return ErrSanitizerConfigUnsupported
}
