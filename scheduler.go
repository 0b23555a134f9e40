package xssbench

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// PageRunner is the subset of the Page Controller the Scheduler depends
// on, kept narrow so the scheduler can be tested with a fake controller
// that never touches a real browser.
type PageRunner interface {
	Run(ctx context.Context, doc CaseDocument, adapterStatus AdapterStatus) (Signals, bool, error)
	CasesSinceOpen() int
	Close() error
}

// CaseDocument is the fully resolved, browser-ready shape of one case:
// the composed document, the fragment to fidelity-check (if any), and
// the timing budgets. It is the boundary type between the pure xssbench
// package and internal/pagectl, which only knows about plain strings and
// durations, never about Vector or Adapter.
type CaseDocument struct {
	HTML         string
	Context      PayloadContext
	FragmentHTML string
	ExpectedTags []TagSpec
	Timeout      time.Duration
	ProbeBudget  time.Duration
}

// WorkerFactory builds one PageRunner per worker. The Scheduler calls it
// once per worker at startup and again whenever a worker's controller is
// recycled after an error outcome or every RefreshEvery cases.
type WorkerFactory func(ctx context.Context) (PageRunner, error)

// SchedulerOption configures a Scheduler via functional options, matching
// the style the rest of the corpus uses for optional configuration.
type SchedulerOption func(*Scheduler)

// WithWorkers sets the worker pool size. Default 1.
func WithWorkers(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithRefreshEvery sets how many cases a worker's page runs before being
// closed and reopened, guaranteeing no hidden state carries over even if
// reset/navigation somehow fails to clear it. Default 100.
func WithRefreshEvery(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.refreshEvery = n
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOnCaseDone registers a callback invoked after every case completes,
// on the worker goroutine that ran it, before that worker takes its next
// case. Other workers may compose further cases of the same vector family
// in the meantime; calls from different workers can run concurrently. The CLI
// uses this to feed Signals.TimedOut back into the AdaptiveTimeout policy,
// since render() only sees the CaseInput for the case about to run, not
// the outcome of the previous case in the same vector family.
func WithOnCaseDone(fn func(CaseInput, CaseResult)) SchedulerOption {
	return func(s *Scheduler) {
		if fn != nil {
			s.onCaseDone = fn
		}
	}
}

// Scheduler is a worker pool draining a shared FIFO
// queue of cases, each resolved against a sanitizer Adapter and run
// through a PageRunner, aggregating CaseResults into a RunReport.
type Scheduler struct {
	workers      int
	refreshEvery int
	logger       *slog.Logger

	newRunner  WorkerFactory
	adapters   map[string]Adapter
	policy     Policy
	onCaseDone func(CaseInput, CaseResult)
}

// NewScheduler builds a Scheduler. adapters maps SanitizerID to the
// Adapter instance that produces its HTML; newRunner supplies a fresh
// PageRunner per worker (and per recycle).
func NewScheduler(adapters map[string]Adapter, policy Policy, newRunner WorkerFactory, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		workers:      1,
		refreshEvery: 100,
		logger:       slog.Default(),
		newRunner:    newRunner,
		adapters:     adapters,
		policy:       policy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drains cases, running each against its sanitizer and a worker's
// PageRunner, and returns the aggregated RunReport. Run blocks until the
// case channel is exhausted or ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, cases []CaseInput, render func(CaseInput, Result) (CaseDocument, error)) (*RunReport, error) {
	report := NewRunReport()

	queue := make(chan CaseInput, len(cases))
	for _, c := range cases {
		queue <- c
	}
	close(queue)

	// All runners are created up front so a factory failure aborts the
	// run before any worker has started draining the queue.
	runners := make([]PageRunner, 0, s.workers)
	for i := 0; i < s.workers; i++ {
		runner, err := s.newRunner(ctx)
		if err != nil {
			for _, r := range runners {
				_ = r.Close()
			}
			return nil, err
		}
		runners = append(runners, runner)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < s.workers; i++ {
		runner := runners[i]

		wg.Add(1)
		go func(workerID int, runner PageRunner) {
			defer wg.Done()
			defer runner.Close()

			for {
				select {
				case <-ctx.Done():
					return
				case c, ok := <-queue:
					if !ok {
						return
					}
					result := s.runOne(ctx, c, render, &runner, workerID)

					mu.Lock()
					report.Add(result)
					mu.Unlock()

					if s.onCaseDone != nil {
						s.onCaseDone(c, result)
					}
				}
			}
		}(i, runner)
	}

	wg.Wait()
	report.Finish()
	return report, nil
}

// runOne sanitizes, renders, and runs a single case. A runner crash
// recycles the worker's runner and retries the case once on the fresh
// one (a second crash maps to outcome error); independent of crashes,
// the runner is also recycled after any error outcome and every
// RefreshEvery cases so no hidden state carries over between cases.
func (s *Scheduler) runOne(ctx context.Context, c CaseInput, render func(CaseInput, Result) (CaseDocument, error), runner *PageRunner, workerID int) CaseResult {
	start := time.Now()

	adapter, ok := s.adapters[c.SanitizerID]
	if !ok {
		return CaseResult{
			CaseInput:  c,
			Outcome:    OutcomeError,
			Signals:    Signals{AdapterStatus: AdapterError},
			DurationMS: time.Since(start).Milliseconds(),
		}
	}

	sres := adapter.Sanitize(ctx, c.Vector.PayloadHTML, s.policy)

	doc, err := render(c, sres)
	if err != nil {
		s.logger.Error("scheduler: render failed", "case", c.String(), "error", err)
		return CaseResult{
			CaseInput:  c,
			Outcome:    OutcomeError,
			Signals:    Signals{AdapterStatus: AdapterError},
			DurationMS: time.Since(start).Milliseconds(),
		}
	}

	signals, lossy, runErr := (*runner).Run(ctx, doc, sres.Status)

	// A navigation timeout truncates signal collection; it is not a
	// crash and the partial signals are classified as-is.
	if runErr != nil && errors.Is(runErr, ErrPageTimeout) {
		signals.TimedOut = true
		runErr = nil
	}

	// Anything else from the runner is treated as a context crash: the
	// worker's runner is recycled and the case retried once on the fresh
	// one. A second crash maps the case to outcome error.
	if runErr != nil {
		s.logger.Warn("scheduler: runner crashed, recycling and retrying once",
			"worker", workerID, "case", c.String(), "error", runErr)
		s.recycle(ctx, runner)

		signals, lossy, runErr = (*runner).Run(ctx, doc, sres.Status)
		if runErr != nil && errors.Is(runErr, ErrPageTimeout) {
			signals.TimedOut = true
			runErr = nil
		}
		if runErr != nil {
			s.logger.Error("scheduler: runner crashed twice on one case",
				"worker", workerID, "case", c.String(), "error", runErr)
			s.recycle(ctx, runner)
			return CaseResult{
				CaseInput:  c,
				Outcome:    OutcomeError,
				Lossy:      lossy,
				Signals:    signals,
				DurationMS: time.Since(start).Milliseconds(),
			}
		}
	}

	outcome := Classify(signals)

	if outcome == OutcomeError {
		s.logger.Warn("scheduler: recycling worker runner after error outcome",
			"worker", workerID, "case", c.String())
		s.recycle(ctx, runner)
	} else if (*runner).CasesSinceOpen() >= s.refreshEvery {
		s.recycle(ctx, runner)
	}

	return CaseResult{
		CaseInput:  c,
		Outcome:    outcome,
		Lossy:      lossy,
		Signals:    signals,
		DurationMS: time.Since(start).Milliseconds(),
	}
}

// recycle closes the worker's current runner and replaces it with a fresh
// one. When the factory itself fails the old (closed) runner is kept; the
// next Run against it surfaces as a crash and flows back through here.
func (s *Scheduler) recycle(ctx context.Context, runner *PageRunner) {
	_ = (*runner).Close()
	if fresh, err := s.newRunner(ctx); err == nil {
		*runner = fresh
	} else {
		s.logger.Error("scheduler: runner recycle failed", "error", err)
	}
}
