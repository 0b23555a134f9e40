package xssbench

import (
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level harness configuration, loadable from a YAML
// file and overridable by CLI flags.
type Config struct {
	Vectors   []string `yaml:"vectors"`
	Sanitizers []string `yaml:"sanitizers"`
	Engines   []string `yaml:"engines"`
	RemoteURL string   `yaml:"remote_url"`

	Workers     int           `yaml:"workers"`
	RefreshEvery int          `yaml:"refresh_every"`
	TimeoutMS   int           `yaml:"timeout_ms"`
	ProbeMS     int           `yaml:"probe_ms"`

	Stealth bool   `yaml:"stealth"`
	JSONOut string `yaml:"json_out"`
}

// Timeout returns the per-case budget as a time.Duration, falling back
// to the adaptive default's starting point when unset.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 800 * time.Millisecond
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// ProbeBudget returns the per-probe budget.
func (c *Config) ProbeBudget() time.Duration {
	if c.ProbeMS <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(c.ProbeMS) * time.Millisecond
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RefreshEvery <= 0 {
		c.RefreshEvery = 100
	}
	if len(c.Engines) == 0 {
		c.Engines = []string{"chromium"}
	}
	if len(c.Sanitizers) == 0 {
		c.Sanitizers = []string{"noop"}
	}
}

// timeoutState is one vector family's escalation state.
type timeoutState struct {
	current             time.Duration
	consecutiveTimeouts int
}

// AdaptiveTimeout grows a vector family's per-case budget after repeated
// timeouts, capped at a hard ceiling. State is tracked
// per vector family rather than globally, since the Scheduler's worker
// pool calls Next concurrently for unrelated vectors — a single shared
// "current family" field would let one worker's vector reset another's
// escalation state out from under it.
type AdaptiveTimeout struct {
	base time.Duration
	max  time.Duration

	mu    sync.Mutex
	state map[string]*timeoutState
}

// NewAdaptiveTimeout builds an AdaptiveTimeout starting at 800ms and
// capped at 5s, multiplying by 1.5x after three consecutive timeouts
// within the same vector family.
func NewAdaptiveTimeout() *AdaptiveTimeout {
	return &AdaptiveTimeout{
		base:  800 * time.Millisecond,
		max:   5 * time.Second,
		state: make(map[string]*timeoutState),
	}
}

// Next returns the timeout to use for the given vector family, adjusting
// that family's state based on whether its previous case timed out. Safe
// for concurrent use across Scheduler workers.
func (a *AdaptiveTimeout) Next(vectorFamily string, previousTimedOut bool) time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.state[vectorFamily]
	if !ok {
		st = &timeoutState{current: a.base}
		a.state[vectorFamily] = st
	}

	if previousTimedOut {
		st.consecutiveTimeouts++
	} else {
		st.consecutiveTimeouts = 0
		st.current = a.base
	}

	if st.consecutiveTimeouts >= 3 {
		next := time.Duration(float64(st.current) * 1.5)
		if next > a.max {
			next = a.max
		}
		st.current = next
	}

	return st.current
}
