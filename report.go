package xssbench

import (
	"encoding/json"
	"sync"

	"github.com/xssbench/xssbench/idgen"
)

// Totals is the per-sanitizer outcome tally for one run.
type Totals struct {
	Pass     int `json:"pass"`
	XSS      int `json:"xss"`
	External int `json:"external"`
	Skip     int `json:"skip"`
	Error    int `json:"error"`
	Lossy    int `json:"lossy"`
}

func (t *Totals) add(r CaseResult) {
	switch r.Outcome {
	case OutcomePass:
		t.Pass++
	case OutcomeXSS:
		t.XSS++
	case OutcomeExternal:
		t.External++
	case OutcomeSkip:
		t.Skip++
	case OutcomeError:
		t.Error++
	}
	if r.Lossy {
		t.Lossy++
	}
}

// RunReport is the serializable run artifact: engine identity, timing,
// per-sanitizer totals, and every individual case result.
type RunReport struct {
	RunID         string           `json:"run_id"`
	Engine        string           `json:"engine"`
	EngineVersion string           `json:"engine_version"`
	StartedAt     string           `json:"started_at"`
	FinishedAt    string           `json:"finished_at"`

	mu               sync.Mutex
	TotalsBySanitizer map[string]*Totals `json:"totals_by_sanitizer"`
	Cases             []CaseResult       `json:"cases"`
}

// NewRunReport creates an empty RunReport, stamped with a fresh UUIDv7 run
// ID (time-sortable, so reports can be listed in creation order without
// parsing StartedAt). Scheduler.Run creates its report with this and calls
// Finish once every worker has stopped; Engine, EngineVersion, StartedAt
// and FinishedAt are left empty for the caller to set on the returned
// report.
func NewRunReport() *RunReport {
	return &RunReport{
		RunID:             idgen.New(),
		TotalsBySanitizer: make(map[string]*Totals),
	}
}

// Add records one case result. Safe for concurrent use by multiple
// scheduler workers.
func (r *RunReport) Add(res CaseResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Cases = append(r.Cases, res)

	t, ok := r.TotalsBySanitizer[res.CaseInput.SanitizerID]
	if !ok {
		t = &Totals{}
		r.TotalsBySanitizer[res.CaseInput.SanitizerID] = t
	}
	t.add(res)
}

// Finish is a placeholder hook for any end-of-run bookkeeping beyond the
// timestamps callers set directly (kept symmetrical with NewRunReport so
// Scheduler.Run has one clear point to call into once workers drain).
func (r *RunReport) Finish() {}

// MarshalReport serializes a RunReport to JSON.
func MarshalReport(r *RunReport) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.MarshalIndent(r, "", "  ")
}

// UnmarshalReport deserializes a RunReport from JSON.
func UnmarshalReport(data []byte) (*RunReport, error) {
	var r RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.TotalsBySanitizer == nil {
		r.TotalsBySanitizer = make(map[string]*Totals)
	}
	return &r, nil
}
