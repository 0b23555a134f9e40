package xssbench

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CheckFidelity decides whether sanitized output kept the structure a
// vector's contract expects: it parses a
// sanitized HTML fragment as HTML5 would parse it sitting inside the
// injection site ("div" context), walks the surviving elements in
// depth-first pre-order, and reports whether the sequence satisfies the
// vector's expected_tags contract. The checker is pure: identical input
// always yields identical verdict.
//
// CheckFidelity only makes sense for fragment contexts (html, html_head,
// html_outer, onerror_attr); callers must not invoke it for href/js*
// contexts, where expected_tags is forbidden and lossy is always false
// per the data model invariant.
func CheckFidelity(fragmentHTML string, expected []TagSpec) (lossy bool, err error) {
	elements, err := parseFragmentElements(fragmentHTML)
	if err != nil {
		return false, err
	}

	if len(expected) == 0 {
		return len(elements) != 0, nil
	}

	if len(elements) != len(expected) {
		return true, nil
	}

	for i, spec := range expected {
		if !elementMatches(elements[i], spec) {
			return true, nil
		}
	}
	return false, nil
}

// fragmentElement is one surviving element occurrence: its tag name and
// the set of attribute names it carries (values are irrelevant to the
// contract — presence of the name is all that is checked).
type fragmentElement struct {
	tag   string
	attrs map[string]struct{}
}

// fragmentRootID wraps the fragment in a synthetic container before
// parsing, mirroring the div#root injection site every case document
// uses, then lets goquery's cascadia-backed "*" selector walk every
// descendant element in document order (equivalent to depth-first
// pre-order, since that is the order the HTML5 tree builder produces).
const fragmentRootID = "xssbench-fragment-root"

// parseFragmentElements parses fragmentHTML as HTML5 would inside the
// injection site's container and returns the surviving elements in
// depth-first pre-order.
func parseFragmentElements(fragmentHTML string) ([]fragmentElement, error) {
	wrapped := `<div id="` + fragmentRootID + `">` + fragmentHTML + `</div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(wrapped))
	if err != nil {
		return nil, err
	}

	var out []fragmentElement
	doc.Find("#" + fragmentRootID + " *").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		attrs := make(map[string]struct{}, len(n.Attr))
		for _, a := range n.Attr {
			attrs[strings.ToLower(a.Key)] = struct{}{}
		}
		out = append(out, fragmentElement{tag: strings.ToLower(n.Data), attrs: attrs})
	})
	return out, nil
}

func elementMatches(el fragmentElement, spec TagSpec) bool {
	if !strings.EqualFold(el.tag, spec.Tag) {
		return false
	}
	for _, attr := range spec.Attrs {
		if _, ok := el.attrs[strings.ToLower(attr)]; !ok {
			return false
		}
	}
	return true
}
