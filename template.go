package xssbench

import (
	"fmt"
	"strings"
)

// preludeSlot names the position in the document skeleton where the
// prelude tag goes. caseDoc.Render writes the caller's prelude tag at
// that position directly, so this marker never appears in a rendered
// document; template.go never touches the prelude's contents.
const preludeSlot = "<!--PRELUDE-->"

// caseDoc is a fully rendered, ready-to-navigate-to HTML document for one
// case. head and outer are optional injection fragments; root is always
// present (it is what the "root" div contains, even if empty).
type caseDoc struct {
	head  string // injected into <head>, after the prelude slot
	outer string // injected as a direct child of <html>, after </head>
	root  string // injected inside <div id="root">
}

// Render renders the case document to a complete HTML string, substituting
// the prelude script tag for the slot marker.
func (d caseDoc) Render(preludeScriptTag string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString(preludeScriptTag)
	b.WriteString("\n")
	// fn is the fixed no-op callback the js_arg template passes to
	// setTimeout; the payload occupies the delay/argument slot.
	b.WriteString("<script>function fn() {}</script>\n")
	if d.head != "" {
		b.WriteString(d.head)
		b.WriteString("\n")
	}
	b.WriteString("</head>\n")
	if d.outer != "" {
		b.WriteString(d.outer)
		b.WriteString("\n")
	}
	b.WriteString("<body>\n<div id=\"root\">")
	b.WriteString(d.root)
	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}

// BuildDocument resolves the injection template for one case: it places
// the (already sanitized) payload into the HTML skeleton slot dictated by
// the case's PayloadContext.
//
// sanitized is the adapter's output for contexts that run it through a
// sanitizer (html, html_head, html_outer, onerror_attr); href and the js*
// contexts carry the payload in a non-HTML slot (a URL or a script
// literal) and are never run through an HTML sanitizer adapter — callers
// pass the raw vector payload for those contexts.
func BuildDocument(ctx PayloadContext, payload string) (caseDoc, error) {
	switch ctx {
	case ContextHTML:
		return caseDoc{root: payload}, nil

	case ContextHTMLHead:
		return caseDoc{head: payload}, nil

	case ContextHTMLOuter:
		return caseDoc{outer: payload}, nil

	case ContextHref:
		return caseDoc{root: fmt.Sprintf(`<a id="vector-link" href="%s">click</a>`, payload)}, nil

	case ContextOnerrorAttr:
		return caseDoc{root: fmt.Sprintf(`<img src="x" onerror="%s">`, payload)}, nil

	case ContextJS:
		return caseDoc{root: fmt.Sprintf("<script>\n%s\n</script>", payload)}, nil

	case ContextJSArg:
		return caseDoc{root: fmt.Sprintf("<script>\nsetTimeout(fn, %s);\n</script>", payload)}, nil

	case ContextJSString:
		return caseDoc{root: fmt.Sprintf("<script>\nvar v = '%s';\n</script>", payload)}, nil

	case ContextJSStringDouble:
		return caseDoc{root: fmt.Sprintf("<script>\nvar v = \"%s\";\n</script>", payload)}, nil

	default:
		return caseDoc{}, fmt.Errorf("%w: unknown payload context %q", ErrInvariantViolation, ctx)
	}
}
