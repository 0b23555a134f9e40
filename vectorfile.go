package xssbench

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const vectorFileSchema = "xssbench.vectorfile.v1"

// vectorFileDoc mirrors the v1 vector file's JSON shape before it is
// translated into Vector values and validated.
type vectorFileDoc struct {
	Schema string          `json:"schema"`
	Meta   vectorFileMeta  `json:"meta"`
	Vectors []vectorFileEntry `json:"vectors"`
}

type vectorFileMeta struct {
	License struct {
		File string `json:"file"`
	} `json:"license"`
}

type vectorFileEntry struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	PayloadHTML  string   `json:"payload_html"`
	// PayloadContext accepts either a bare string or a JSON array of
	// strings, since the data model allows "one context" or "an ordered
	// list of contexts meaning run once per listed context".
	PayloadContext json.RawMessage `json:"payload_context"`
	ExpectedTags   *[]string       `json:"expected_tags"`
	SanitizerAllowTags []string    `json:"sanitizer_allow_tags"`
}

// LoadVectorFile reads and validates one v1 vector file against policy,
// returning fully validated Vectors. A schema mismatch, any Vector.Validate
// failure, or an expected_tags attribute outside policy's allowlist is
// fatal: the run never starts with a corrupt corpus, per the error
// taxonomy's "abort before any case runs" recovery policy.
func LoadVectorFile(path string, policy Policy) ([]*Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrVectorSchema, path, err)
	}

	var doc vectorFileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrVectorSchema, path, err)
	}

	if doc.Schema != vectorFileSchema {
		return nil, fmt.Errorf("%w: %s declares schema %q, want %q", ErrVectorSchema, path, doc.Schema, vectorFileSchema)
	}

	vectors := make([]*Vector, 0, len(doc.Vectors))
	for _, entry := range doc.Vectors {
		v, err := entry.toVector()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrVectorSchema, path, err)
		}
		if err := v.Validate(); err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}

	if err := checkAllowlistSanity(vectors, policy); err != nil {
		return nil, err
	}

	return vectors, nil
}

func (e vectorFileEntry) toVector() (*Vector, error) {
	contexts, err := parseContexts(e.PayloadContext)
	if err != nil {
		return nil, fmt.Errorf("vector %q: %w", e.ID, err)
	}

	var expectedTags []TagSpec
	if e.ExpectedTags != nil {
		expectedTags = make([]TagSpec, 0, len(*e.ExpectedTags))
		for _, raw := range *e.ExpectedTags {
			expectedTags = append(expectedTags, parseTagSpec(raw))
		}
	}

	return &Vector{
		ID:                 e.ID,
		Description:        e.Description,
		PayloadHTML:        e.PayloadHTML,
		Contexts:           contexts,
		ExpectedTags:       expectedTags,
		SanitizerAllowTags: e.SanitizerAllowTags,
	}, nil
}

func parseContexts(raw json.RawMessage) ([]PayloadContext, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing payload_context")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []PayloadContext{PayloadContext(single)}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]PayloadContext, 0, len(list))
		for _, s := range list {
			out = append(out, PayloadContext(s))
		}
		return out, nil
	}

	return nil, fmt.Errorf("payload_context must be a string or array of strings")
}

// parseTagSpec parses the "tag[attr, attr]" shorthand into a TagSpec. A
// bare tag name (no brackets) produces a TagSpec with no required
// attributes.
func parseTagSpec(raw string) TagSpec {
	open := strings.Index(raw, "[")
	if open == -1 || !strings.HasSuffix(raw, "]") {
		return TagSpec{Tag: strings.TrimSpace(raw)}
	}

	tag := strings.TrimSpace(raw[:open])
	inner := raw[open+1 : len(raw)-1]
	parts := strings.Split(inner, ",")
	attrs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			attrs = append(attrs, p)
		}
	}
	return TagSpec{Tag: tag, Attrs: attrs}
}

// checkAllowlistSanity enforces a load-time corpus invariant: every
// attribute name referenced by any expected_tags entry
// must belong to the shared allowlist policy. A vector asserting that an
// attribute survives sanitization under an attribute the policy would
// never allow through in the first place is a corpus bug, not a sanitizer
// finding, so it aborts the run rather than quietly producing a
// false-lossy result at runtime.
func checkAllowlistSanity(vectors []*Vector, policy Policy) error {
	for _, v := range vectors {
		for _, spec := range v.ExpectedTags {
			if spec.Tag == "" {
				return fmt.Errorf("%w: vector %q: expected_tags entry with empty tag name", ErrInvariantViolation, v.ID)
			}
			for _, a := range spec.Attrs {
				if a == "" {
					return fmt.Errorf("%w: vector %q: expected_tags entry %q has empty attribute name", ErrInvariantViolation, v.ID, spec.Tag)
				}
				if !policy.allows(spec.Tag, a) {
					return fmt.Errorf("%w: vector %q: expected_tags entry %q references attribute %q, which the shared allowlist policy never allows", ErrInvariantViolation, v.ID, spec.Tag, a)
				}
			}
		}
	}
	return nil
}
