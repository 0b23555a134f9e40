package adapters

import (
	"context"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/xssbench/xssbench"
)

// BlueMonday wraps a *bluemonday.Policy. A fresh Policy is built from the
// xssbench.Policy on construction, so each BlueMonday instance is fixed to
// one allowlist for the lifetime of a run — bluemonday policies are safe
// for concurrent Sanitize calls once built.
type BlueMonday struct {
	id     string
	policy *bluemonday.Policy
}

// NewBlueMondayUGC builds the adapter around bluemonday's UGC baseline
// policy: a permissive-but-safe user-generated-content allowlist.
func NewBlueMondayUGC() *BlueMonday {
	return &BlueMonday{id: "bluemonday-ugc", policy: bluemonday.UGCPolicy()}
}

// NewBlueMondayStrict builds the adapter around bluemonday's strict
// policy, which strips every tag and returns plain text. It is the
// harness's lossy-by-construction baseline for the fidelity axis: any
// vector with a non-empty expected_tags list will, against this adapter,
// always fail fidelity.
func NewBlueMondayStrict() *BlueMonday {
	return &BlueMonday{id: "bluemonday-strict", policy: bluemonday.StrictPolicy()}
}

// NewBlueMondayFromPolicy builds the adapter around an explicit
// xssbench.Policy, translating AllowedTags/AllowedAttrs into bluemonday
// AllowElements/AllowAttrs().Globally()/OnElements() calls. An empty
// policy (no tags, no attrs) is rejected as unsupported_config rather
// than silently becoming StrictPolicy, since callers that meant "default"
// should use NewBlueMondayUGC instead.
func NewBlueMondayFromPolicy(id string, p xssbench.Policy) (*BlueMonday, error) {
	if len(p.AllowedTags) == 0 && len(p.AllowedAttrs) == 0 {
		return nil, fmt.Errorf("%w: empty policy for adapter %q", xssbench.ErrSanitizerConfigUnsupported, id)
	}
	bm := bluemonday.NewPolicy()
	if len(p.AllowedTags) > 0 {
		bm.AllowElements(p.AllowedTags...)
	}
	for tag, attrs := range p.AllowedAttrs {
		if len(attrs) == 0 {
			continue
		}
		if tag == "*" {
			bm.AllowAttrs(attrs...).Globally()
			continue
		}
		bm.AllowAttrs(attrs...).OnElements(tag)
	}
	return &BlueMonday{id: id, policy: bm}, nil
}

func (b *BlueMonday) ID() string { return b.id }

func (b *BlueMonday) Sanitize(_ context.Context, html string, _ xssbench.Policy) xssbench.Result {
	sanitized := b.policy.Sanitize(html)
	return xssbench.Result{Status: xssbench.AdapterOK, HTML: sanitized}
}
