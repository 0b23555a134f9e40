package xssbench

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeVectorFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectors.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writeVectorFile: %v", err)
	}
	return path
}

func TestLoadVectorFile_SingleContextString(t *testing.T) {
	path := writeVectorFile(t, `{
		"schema": "xssbench.vectorfile.v1",
		"meta": {"license": {"file": "LICENSE"}},
		"vectors": [
			{
				"id": "basic-img-onerror",
				"description": "classic onerror breakout",
				"payload_html": "<img src=x onerror=alert(1)>",
				"payload_context": "html",
				"expected_tags": ["img[src]"]
			}
		]
	}`)

	vectors, err := LoadVectorFile(path, DefaultPolicy())
	if err != nil {
		t.Fatalf("LoadVectorFile() error: %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("LoadVectorFile() returned %d vectors, want 1", len(vectors))
	}
	v := vectors[0]
	if v.ID != "basic-img-onerror" {
		t.Errorf("ID = %q", v.ID)
	}
	if len(v.Contexts) != 1 || v.Contexts[0] != ContextHTML {
		t.Errorf("Contexts = %+v, want [html]", v.Contexts)
	}
	if len(v.ExpectedTags) != 1 || v.ExpectedTags[0].Tag != "img" || len(v.ExpectedTags[0].Attrs) != 1 || v.ExpectedTags[0].Attrs[0] != "src" {
		t.Errorf("ExpectedTags = %+v", v.ExpectedTags)
	}
}

func TestLoadVectorFile_ContextArrayAndExplicitEmptyTags(t *testing.T) {
	path := writeVectorFile(t, `{
		"schema": "xssbench.vectorfile.v1",
		"vectors": [
			{
				"id": "multi-context",
				"payload_html": "<script>alert(1)</script>",
				"payload_context": ["html", "html_head"],
				"expected_tags": []
			}
		]
	}`)

	vectors, err := LoadVectorFile(path, DefaultPolicy())
	if err != nil {
		t.Fatalf("LoadVectorFile() error: %v", err)
	}
	v := vectors[0]
	if len(v.Contexts) != 2 || v.Contexts[0] != ContextHTML || v.Contexts[1] != ContextHTMLHead {
		t.Errorf("Contexts = %+v, want [html html_head]", v.Contexts)
	}
	if v.ExpectedTags == nil {
		t.Fatalf("ExpectedTags = nil, want non-nil empty slice for explicit []")
	}
	if len(v.ExpectedTags) != 0 {
		t.Errorf("ExpectedTags = %+v, want empty", v.ExpectedTags)
	}
}

func TestLoadVectorFile_OmittedExpectedTagsIsNil(t *testing.T) {
	path := writeVectorFile(t, `{
		"schema": "xssbench.vectorfile.v1",
		"vectors": [
			{
				"id": "js-context",
				"payload_html": "alert(1)",
				"payload_context": "js"
			}
		]
	}`)

	vectors, err := LoadVectorFile(path, DefaultPolicy())
	if err != nil {
		t.Fatalf("LoadVectorFile() error: %v", err)
	}
	if vectors[0].ExpectedTags != nil {
		t.Errorf("ExpectedTags = %+v, want nil when omitted", vectors[0].ExpectedTags)
	}
}

func TestLoadVectorFile_WrongSchemaRejected(t *testing.T) {
	path := writeVectorFile(t, `{"schema": "xssbench.vectorfile.v2", "vectors": []}`)
	_, err := LoadVectorFile(path, DefaultPolicy())
	if err == nil {
		t.Fatal("LoadVectorFile() with wrong schema should error")
	}
	if !errors.Is(err, ErrVectorSchema) {
		t.Errorf("error = %v, want wrapping ErrVectorSchema", err)
	}
}

func TestLoadVectorFile_InvalidVectorAbortsWholeFile(t *testing.T) {
	path := writeVectorFile(t, `{
		"schema": "xssbench.vectorfile.v1",
		"vectors": [
			{
				"id": "valid-one",
				"payload_html": "x",
				"payload_context": "js"
			},
			{
				"id": "missing-expected-tags",
				"payload_html": "<b>x</b>",
				"payload_context": "html"
			}
		]
	}`)

	_, err := LoadVectorFile(path, DefaultPolicy())
	if err == nil {
		t.Fatal("LoadVectorFile() with one invalid vector should error and abort the whole file")
	}
}

func TestLoadVectorFile_ExpectedTagsAttrOutsidePolicyRejected(t *testing.T) {
	path := writeVectorFile(t, `{
		"schema": "xssbench.vectorfile.v1",
		"vectors": [
			{
				"id": "bogus-allowlist-attr",
				"payload_html": "<a onclick=\"x\">x</a>",
				"payload_context": "html",
				"expected_tags": ["a[onclick]"]
			}
		]
	}`)

	_, err := LoadVectorFile(path, DefaultPolicy())
	if err == nil {
		t.Fatal("LoadVectorFile() with an expected_tags attr outside the policy allowlist should error")
	}
	if !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("error = %v, want wrapping ErrInvariantViolation", err)
	}
}

func TestLoadVectorFile_MissingFile(t *testing.T) {
	_, err := LoadVectorFile(filepath.Join(t.TempDir(), "does-not-exist.json"), DefaultPolicy())
	if err == nil {
		t.Fatal("LoadVectorFile() with missing file should error")
	}
	if !errors.Is(err, ErrVectorSchema) {
		t.Errorf("error = %v, want wrapping ErrVectorSchema", err)
	}
}

func TestParseTagSpec(t *testing.T) {
	tests := []struct {
		raw      string
		wantTag  string
		wantAttr []string
	}{
		{"img", "img", nil},
		{"a[href]", "a", []string{"href"}},
		{"a[href, style]", "a", []string{"href", "style"}},
		{"  p  ", "p", nil},
	}

	for _, tt := range tests {
		spec := parseTagSpec(tt.raw)
		if spec.Tag != tt.wantTag {
			t.Errorf("parseTagSpec(%q).Tag = %q, want %q", tt.raw, spec.Tag, tt.wantTag)
		}
		if len(spec.Attrs) != len(tt.wantAttr) {
			t.Errorf("parseTagSpec(%q).Attrs = %+v, want %+v", tt.raw, spec.Attrs, tt.wantAttr)
			continue
		}
		for i := range tt.wantAttr {
			if spec.Attrs[i] != tt.wantAttr[i] {
				t.Errorf("parseTagSpec(%q).Attrs[%d] = %q, want %q", tt.raw, i, spec.Attrs[i], tt.wantAttr[i])
			}
		}
	}
}
