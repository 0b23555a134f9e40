package adapters

import (
	"bytes"
	"context"
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/xssbench/xssbench"
)

// HTMLMarkdownRoundTrip sanitizes by demoting HTML to Markdown and back.
// The base plugin drops script, style, iframe, and event-attribute-bearing
// markup entirely on the way down, and the trip back through goldmark only
// ever emits the handful of elements CommonMark defines — so anything the
// original document expressed outside that vocabulary (custom attributes,
// <svg>, <form>, raw <script>) is structurally lost. It is the harness's
// reference "lossy but plausibly safe" adapter: useful for exercising the
// fidelity checker against a sanitizer that is aggressively honest about
// dropping structure rather than preserving it under an allowlist.
type HTMLMarkdownRoundTrip struct {
	id   string
	conv *converter.Converter
	md   goldmark.Markdown
}

func NewHTMLMarkdownRoundTrip() *HTMLMarkdownRoundTrip {
	return &HTMLMarkdownRoundTrip{
		id: "html-markdown-roundtrip",
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func (h *HTMLMarkdownRoundTrip) ID() string { return h.id }

func (h *HTMLMarkdownRoundTrip) Sanitize(_ context.Context, html string, _ xssbench.Policy) xssbench.Result {
	mdText, err := h.conv.ConvertString(html)
	if err != nil {
		return xssbench.Result{
			Status: xssbench.AdapterError,
			Err:    fmt.Errorf("%w: markdown conversion: %w", xssbench.ErrSanitizerAdapter, err),
		}
	}

	var buf bytes.Buffer
	if err := h.md.Convert([]byte(mdText), &buf); err != nil {
		return xssbench.Result{
			Status: xssbench.AdapterError,
			Err:    fmt.Errorf("%w: markdown render: %w", xssbench.ErrSanitizerAdapter, err),
		}
	}
	return xssbench.Result{Status: xssbench.AdapterOK, HTML: buf.String()}
}
