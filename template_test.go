package xssbench

import (
	"strings"
	"testing"
)

func TestBuildDocument_Contexts(t *testing.T) {
	tests := []struct {
		name    string
		ctx     PayloadContext
		payload string
		want    string // substring expected in the rendered document
	}{
		{"html into root", ContextHTML, "<b>x</b>", `<div id="root"><b>x</b></div>`},
		{"html_head into head", ContextHTMLHead, "<meta name=\"x\">", "<meta name=\"x\">\n</head>"},
		{"html_outer after head", ContextHTMLOuter, "<marquee>x</marquee>", "</head>\n<marquee>x</marquee>"},
		{"href wraps payload in anchor", ContextHref, "javascript:alert(1)", `href="javascript:alert(1)"`},
		{"onerror_attr builds img tag", ContextOnerrorAttr, "alert(1)", `onerror="alert(1)"`},
		{"js injects raw script body", ContextJS, "alert(1)", "<script>\nalert(1)\n</script>"},
		{"js_arg puts payload in the argument slot", ContextJSArg, "alert(1)", "setTimeout(fn, alert(1))"},
		{"js_string single-quoted", ContextJSString, "x", "var v = 'x';"},
		{"js_string_double double-quoted", ContextJSStringDouble, "x", `var v = "x";`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := BuildDocument(tt.ctx, tt.payload)
			if err != nil {
				t.Fatalf("BuildDocument() error: %v", err)
			}
			rendered := doc.Render("<script>PRELUDE</script>")
			if !strings.Contains(rendered, tt.want) {
				t.Errorf("BuildDocument(%v, %q) rendered = %q, want substring %q", tt.ctx, tt.payload, rendered, tt.want)
			}
		})
	}
}

func TestBuildDocument_AlwaysHasRootDiv(t *testing.T) {
	doc, err := BuildDocument(ContextHTML, "")
	if err != nil {
		t.Fatalf("BuildDocument() error: %v", err)
	}
	rendered := doc.Render("")
	if !strings.Contains(rendered, `<div id="root">`) {
		t.Errorf("rendered document missing root div: %s", rendered)
	}
}

func TestBuildDocument_UnknownContext(t *testing.T) {
	_, err := BuildDocument(PayloadContext("bogus"), "x")
	if err == nil {
		t.Fatal("BuildDocument() with unknown context should error")
	}
}

func TestBuildDocument_PreludePrecedesPayload(t *testing.T) {
	doc, err := BuildDocument(ContextHTML, "<script>alert(1)</script>")
	if err != nil {
		t.Fatalf("BuildDocument() error: %v", err)
	}
	rendered := doc.Render("<script>PRELUDE</script>")

	preludeIdx := strings.Index(rendered, "PRELUDE")
	payloadIdx := strings.Index(rendered, "alert(1)")
	if preludeIdx == -1 || payloadIdx == -1 {
		t.Fatalf("expected both prelude and payload in rendered document: %s", rendered)
	}
	if preludeIdx > payloadIdx {
		t.Errorf("prelude must precede the payload so it installs before any page script runs")
	}
}
