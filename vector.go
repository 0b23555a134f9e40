package xssbench

import (
	"encoding/json"
	"fmt"
)

// PayloadContext is the syntactic slot a vector's payload is injected into.
type PayloadContext string

const (
	ContextHTML            PayloadContext = "html"
	ContextHTMLHead        PayloadContext = "html_head"
	ContextHTMLOuter       PayloadContext = "html_outer"
	ContextHref            PayloadContext = "href"
	ContextOnerrorAttr     PayloadContext = "onerror_attr"
	ContextJS              PayloadContext = "js"
	ContextJSArg           PayloadContext = "js_arg"
	ContextJSString        PayloadContext = "js_string"
	ContextJSStringDouble  PayloadContext = "js_string_double"
)

// requiresExpectedTags reports whether a context is a fragment context
// (expected_tags required) as opposed to a URL/script context (forbidden).
func (c PayloadContext) requiresExpectedTags() bool {
	switch c {
	case ContextHTML, ContextHTMLHead, ContextHTMLOuter, ContextOnerrorAttr:
		return true
	default:
		return false
	}
}

func (c PayloadContext) valid() bool {
	switch c {
	case ContextHTML, ContextHTMLHead, ContextHTMLOuter, ContextHref,
		ContextOnerrorAttr, ContextJS, ContextJSArg, ContextJSString, ContextJSStringDouble:
		return true
	default:
		return false
	}
}

// TagSpec is one entry of a vector's expected_tags contract: a bare tag
// name, or a tag plus a set of attribute names that must be present
// (values are not checked — presence is the contract).
type TagSpec struct {
	Tag   string
	Attrs []string
}

// Vector is an immutable adversarial HTML payload plus its metadata.
// Vectors are loaded once at startup and never mutated.
type Vector struct {
	ID                string
	Description       string
	PayloadHTML       string
	Contexts          []PayloadContext // one entry per context this vector runs under
	ExpectedTags      []TagSpec        // only valid for fragment contexts
	SanitizerAllowTags []string        // only valid when a context is ContextHTML and resembles http_leak testing
}

// CaseInput is one concrete (vector, context, sanitizer) case to run.
type CaseInput struct {
	Vector     *Vector
	Context    PayloadContext
	SanitizerID string
}

// String formats a CaseInput for logs.
func (c CaseInput) String() string {
	return fmt.Sprintf("%s/%s/%s", c.SanitizerID, c.Vector.ID, c.Context)
}

// MarshalJSON renders a CaseInput by vector ID rather than embedding the
// full Vector, keeping run artifacts compact when many cases share a vector.
func (c CaseInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		VectorID    string         `json:"vector_id"`
		Context     PayloadContext `json:"context"`
		SanitizerID string         `json:"sanitizer_id"`
	}{
		VectorID:    c.Vector.ID,
		Context:     c.Context,
		SanitizerID: c.SanitizerID,
	})
}

// UnmarshalJSON restores a CaseInput from its compact artifact form. The
// full Vector is not recoverable from the artifact; a stub carrying only
// the ID is attached so readers of a saved run can still group cases by
// vector.
func (c *CaseInput) UnmarshalJSON(data []byte) error {
	var raw struct {
		VectorID    string         `json:"vector_id"`
		Context     PayloadContext `json:"context"`
		SanitizerID string         `json:"sanitizer_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Vector = &Vector{ID: raw.VectorID}
	c.Context = raw.Context
	c.SanitizerID = raw.SanitizerID
	return nil
}

// Validate checks the invariants from the data model: expected_tags is
// required for fragment contexts and forbidden otherwise, every declared
// context is a recognised enum value, and IDs are non-empty. A violation
// here is an InvariantViolation (fatal at load, per the error taxonomy).
func (v *Vector) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("%w: vector has empty id", ErrInvariantViolation)
	}
	if len(v.Contexts) == 0 {
		return fmt.Errorf("%w: vector %q declares no payload_context", ErrInvariantViolation, v.ID)
	}
	for _, ctx := range v.Contexts {
		if !ctx.valid() {
			return fmt.Errorf("%w: vector %q has unknown payload_context %q", ErrInvariantViolation, v.ID, ctx)
		}
		requires := ctx.requiresExpectedTags()
		hasTags := v.ExpectedTags != nil
		if requires && !hasTags {
			return fmt.Errorf("%w: vector %q: expected_tags is required for context %q", ErrInvariantViolation, v.ID, ctx)
		}
		if !requires && hasTags {
			return fmt.Errorf("%w: vector %q: expected_tags is forbidden for context %q", ErrInvariantViolation, v.ID, ctx)
		}
	}
	return nil
}

// Cases expands the vector into one CaseInput per declared context for the
// given sanitizer.
func (v *Vector) Cases(sanitizerID string) []CaseInput {
	cases := make([]CaseInput, 0, len(v.Contexts))
	for _, ctx := range v.Contexts {
		cases = append(cases, CaseInput{Vector: v, Context: ctx, SanitizerID: sanitizerID})
	}
	return cases
}
