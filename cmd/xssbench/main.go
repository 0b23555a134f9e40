// Command xssbench runs the adversarial sanitizer benchmark matrix.
//
// Usage:
//
//	xssbench -vectors corpus.json -sanitizers noop,bluemonday-ugc
//	xssbench -vectors corpus.json -workers 8 -json-out run.json
//	xssbench -list-sanitizers
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/xssbench/xssbench"
	"github.com/xssbench/xssbench/internal/adapters"
	"github.com/xssbench/xssbench/internal/pagectl"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML run-config file; CLI flags override its values")
	vectorsFlag := flag.String("vectors", "", "comma-separated vector file paths")
	sanitizersFlag := flag.String("sanitizers", "noop", "comma-separated sanitizer adapter ids")
	browserFlag := flag.String("browser", "chromium", "browser engine: chromium, firefox, webkit")
	remoteURL := flag.String("remote-url", "", "WebSocket URL of an externally managed CDP endpoint; required for non-chromium engines")
	workers := flag.Int("workers", 4, "worker pool size")
	timeoutMS := flag.Int("timeout-ms", 0, "per-case timeout override in milliseconds (0 = adaptive)")
	probeMS := flag.Int("probe-ms", 0, "per-probe budget override in milliseconds (0 = config/default)")
	jsonOut := flag.String("json-out", "", "path to write the run artifact (default: stdout)")
	stealth := flag.Bool("stealth", false, "enable go-rod/stealth anti-detection init script")
	listSanitizers := flag.Bool("list-sanitizers", false, "enumerate adapters importable in this environment and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	registry := defaultAdapterRegistry()

	if *listSanitizers {
		ids := make([]string, 0, len(registry))
		for id := range registry {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Println(id)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start from the config file's layer (when given), then let any flag
	// the user actually typed on the command line override it: CLI flags
	// win over the YAML run-config file.
	cfg := runConfig{
		vectorPaths: splitCSV(*vectorsFlag),
		sanitizers:  splitCSV(*sanitizersFlag),
		engine:      *browserFlag,
		remoteURL:   *remoteURL,
		workers:     *workers,
		timeoutMS:   *timeoutMS,
		probeMS:     *probeMS,
		stealth:     *stealth,
		jsonOut:     *jsonOut,
	}

	if *configPath != "" {
		fileCfg, err := xssbench.LoadConfigFile(*configPath)
		if err != nil {
			logger.Error("xssbench: load config", "error", err)
			os.Exit(1)
		}

		if len(fileCfg.Vectors) > 0 {
			cfg.vectorPaths = fileCfg.Vectors
		}
		cfg.sanitizers = fileCfg.Sanitizers
		if len(fileCfg.Engines) > 0 {
			cfg.engine = fileCfg.Engines[0]
		}
		if fileCfg.RemoteURL != "" {
			cfg.remoteURL = fileCfg.RemoteURL
		}
		cfg.workers = fileCfg.Workers
		cfg.refreshEvery = fileCfg.RefreshEvery
		cfg.timeoutMS = fileCfg.TimeoutMS
		cfg.probeMS = fileCfg.ProbeMS
		cfg.stealth = fileCfg.Stealth
		if fileCfg.JSONOut != "" {
			cfg.jsonOut = fileCfg.JSONOut
		}

		explicit := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

		if explicit["vectors"] {
			cfg.vectorPaths = splitCSV(*vectorsFlag)
		}
		if explicit["sanitizers"] {
			cfg.sanitizers = splitCSV(*sanitizersFlag)
		}
		if explicit["browser"] {
			cfg.engine = *browserFlag
		}
		if explicit["remote-url"] {
			cfg.remoteURL = *remoteURL
		}
		if explicit["workers"] {
			cfg.workers = *workers
		}
		if explicit["timeout-ms"] {
			cfg.timeoutMS = *timeoutMS
		}
		if explicit["probe-ms"] {
			cfg.probeMS = *probeMS
		}
		if explicit["stealth"] {
			cfg.stealth = *stealth
		}
		if explicit["json-out"] {
			cfg.jsonOut = *jsonOut
		}
	}

	if err := run(ctx, logger, registry, cfg); err != nil {
		logger.Error("xssbench: fatal", "error", err)
		os.Exit(1)
	}
}

type runConfig struct {
	vectorPaths  []string
	sanitizers   []string
	engine       string
	remoteURL    string
	workers      int
	refreshEvery int
	timeoutMS    int
	probeMS      int
	stealth      bool
	jsonOut      string
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultAdapterRegistry() map[string]xssbench.Adapter {
	return map[string]xssbench.Adapter{
		"noop":                   adapters.Noop{},
		"bluemonday-ugc":         adapters.NewBlueMondayUGC(),
		"bluemonday-strict":      adapters.NewBlueMondayStrict(),
		"html-markdown-roundtrip": adapters.NewHTMLMarkdownRoundTrip(),
	}
}

func run(ctx context.Context, logger *slog.Logger, registry map[string]xssbench.Adapter, cfg runConfig) error {
	if len(cfg.vectorPaths) == 0 {
		return fmt.Errorf("xssbench: -vectors is required")
	}

	policy := xssbench.DefaultPolicy()

	var vectors []*xssbench.Vector
	for _, path := range cfg.vectorPaths {
		vs, err := xssbench.LoadVectorFile(path, policy)
		if err != nil {
			return fmt.Errorf("load vectors: %w", err)
		}
		vectors = append(vectors, vs...)
	}

	selected := make(map[string]xssbench.Adapter, len(cfg.sanitizers))
	for _, id := range cfg.sanitizers {
		a, ok := registry[id]
		if !ok {
			return fmt.Errorf("xssbench: unknown sanitizer id %q (use -list-sanitizers)", id)
		}
		selected[id] = a
	}

	var cases []xssbench.CaseInput
	for _, v := range vectors {
		for sanitizerID := range selected {
			cases = append(cases, v.Cases(sanitizerID)...)
		}
	}

	if cfg.engine != string(pagectl.EngineChromium) && cfg.remoteURL == "" {
		return fmt.Errorf("xssbench: engine %q needs -remote-url pointing at a CDP-compatible endpoint; only chromium is launched locally", cfg.engine)
	}

	mgr := pagectl.NewManager(pagectl.ManagerConfig{
		Engine:    pagectl.Engine(cfg.engine),
		RemoteURL: cfg.remoteURL,
		Stealth:   cfg.stealth,
		Logger:    logger,
	})
	browser, err := mgr.Start(ctx)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer mgr.Close()

	adaptiveTimeout := xssbench.NewAdaptiveTimeout()
	timeoutTracker := newVectorTimeoutTracker()

	newRunner := func(ctx context.Context) (xssbench.PageRunner, error) {
		return newPageRunner(browser, cfg.stealth)
	}

	schedOpts := []xssbench.SchedulerOption{
		xssbench.WithWorkers(cfg.workers),
		xssbench.WithLogger(logger),
		xssbench.WithOnCaseDone(func(c xssbench.CaseInput, result xssbench.CaseResult) {
			timeoutTracker.record(c.Vector.ID, result.Signals.TimedOut)
		}),
	}
	if cfg.refreshEvery > 0 {
		schedOpts = append(schedOpts, xssbench.WithRefreshEvery(cfg.refreshEvery))
	}

	sched := xssbench.NewScheduler(selected, policy, newRunner, schedOpts...)

	render := func(c xssbench.CaseInput, sres xssbench.Result) (xssbench.CaseDocument, error) {
		return composeCase(c, sres, cfg, adaptiveTimeout, timeoutTracker)
	}

	startedAt := nowRFC3339()
	report, err := sched.Run(ctx, cases, render)
	if err != nil {
		return fmt.Errorf("scheduler run: %w", err)
	}
	report.Engine = cfg.engine
	if v, verr := browser.Version(); verr == nil {
		report.EngineVersion = v.Product
	}
	report.StartedAt = startedAt
	report.FinishedAt = nowRFC3339()

	data, err := xssbench.MarshalReport(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if cfg.jsonOut == "" {
		os.Stdout.Write(data)
		os.Stdout.Write([]byte("\n"))
		return nil
	}
	return os.WriteFile(cfg.jsonOut, data, 0o644)
}

// vectorTimeoutTracker remembers whether the most recently completed case
// for a given vector family timed out, so composeCase can feed that
// outcome into the AdaptiveTimeout policy for the next case in the same
// family. The Scheduler dispatches cases to workers off one shared queue,
// so "most recent" is eventually consistent across vector families rather
// than strictly ordered, which is fine for a heuristic timeout escalation.
type vectorTimeoutTracker struct {
	mu   sync.Mutex
	last map[string]bool
}

func newVectorTimeoutTracker() *vectorTimeoutTracker {
	return &vectorTimeoutTracker{last: make(map[string]bool)}
}

func (t *vectorTimeoutTracker) record(vectorID string, timedOut bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[vectorID] = timedOut
}

func (t *vectorTimeoutTracker) lastTimedOut(vectorID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last[vectorID]
}

func composeCase(c xssbench.CaseInput, sres xssbench.Result, cfg runConfig, adaptive *xssbench.AdaptiveTimeout, tracker *vectorTimeoutTracker) (xssbench.CaseDocument, error) {
	payload := c.Vector.PayloadHTML
	if usesSanitizer(c.Context) {
		if sres.Status != xssbench.AdapterOK {
			payload = ""
		} else {
			payload = sres.HTML
		}
	}

	doc, err := xssbench.BuildDocument(c.Context, payload)
	if err != nil {
		return xssbench.CaseDocument{}, err
	}

	timeout := time.Duration(cfg.timeoutMS) * time.Millisecond
	if cfg.timeoutMS <= 0 {
		timeout = adaptive.Next(c.Vector.ID, tracker.lastTimedOut(c.Vector.ID))
	}

	probeBudget := 250 * time.Millisecond
	if cfg.probeMS > 0 {
		probeBudget = time.Duration(cfg.probeMS) * time.Millisecond
	}

	return xssbench.CaseDocument{
		HTML:         doc.Render(preludeScriptTag()),
		Context:      c.Context,
		FragmentHTML: payload,
		ExpectedTags: c.Vector.ExpectedTags,
		Timeout:      timeout,
		ProbeBudget:  probeBudget,
	}, nil
}

func usesSanitizer(ctx xssbench.PayloadContext) bool {
	switch ctx {
	case xssbench.ContextHTML, xssbench.ContextHTMLHead, xssbench.ContextHTMLOuter, xssbench.ContextOnerrorAttr:
		return true
	default:
		return false
	}
}

// preludeScriptTag returns the placeholder written into the rendered
// document where the prelude would sit: an HTML comment, not the prelude
// source. The Page Controller installs the prelude as a real init script
// before every navigation, so the document itself carries no inline copy.
func preludeScriptTag() string {
	return "<!--prelude installed via CDP init script, not inline-->"
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
