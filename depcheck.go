// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package depcheck runs dependency analysis over a set of scan roots: it
// discovers files, unpacks nested archives into new dependencies and runs the
// registered analyzers phase by phase.
package depcheck

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/config"
	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/discovery"
	"github.com/google/osv-depcheck/extraction"
	"github.com/google/osv-depcheck/log"
	"github.com/google/osv-depcheck/plugin"
	"github.com/google/osv-depcheck/stats"
	"github.com/google/osv-depcheck/tempfile"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrRootNotFound is returned when a scan root doesn't exist.
	ErrRootNotFound = discovery.ErrRootNotFound
	// ErrNoAnalyzers is returned when no analyzer is registered or none is
	// left enabled after initialization.
	ErrNoAnalyzers = errors.New("no analyzers enabled")
	// ErrAnalyzerInit is returned when a required analyzer can't be enabled.
	ErrAnalyzerInit = errors.New("required analyzer failed to initialize")
	// ErrScanStarted is returned when Scan is called more than once.
	ErrScanStarted = errors.New("scan already started")
	// ErrDuplicateAnalyzer is returned when two analyzers share a name.
	ErrDuplicateAnalyzer = errors.New("duplicate analyzer name")
	// ErrAnalyzerPanic is recorded on a dependency an analyzer panicked on.
	ErrAnalyzerPanic = errors.New("analyzer panicked")
)

// ExtractionName is the analyzer name extraction diagnostics are recorded under.
const ExtractionName = "extraction"

// State is the lifecycle state of an Engine.
type State int

// Engine states. A scan moves forward through them and ends in either
// StateFinalized or StateAborted.
const (
	StateCreated State = iota
	StateDiscovering
	StateExtracting
	StateAnalyzing
	StateFinalized
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateDiscovering:
		return "DISCOVERING"
	case StateExtracting:
		return "EXTRACTING"
	case StateAnalyzing:
		return "ANALYZING"
	case StateFinalized:
		return "FINALIZED"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithStats sets the metrics collector.
func WithStats(c stats.Collector) Option {
	return func(e *Engine) {
		if c != nil {
			e.stats = c
		}
	}
}

// WithCapabilities overrides the capabilities of the scanning environment,
// which are otherwise derived from config.Scan.Offline.
func WithCapabilities(c *plugin.Capabilities) Option {
	return func(e *Engine) { e.capabs = c }
}

// Result is the outcome of a scan.
type Result struct {
	// Dependencies lists discovered files followed by extracted files, level
	// by level. All of them are finalized.
	Dependencies []*dependency.Dependency
	// Statuses has one entry per registered analyzer, sorted by name.
	Statuses  []*plugin.Status
	Status    *plugin.ScanStatus
	StartTime time.Time
	EndTime   time.Time
}

// Engine runs a single scan. Extracted files live under a private temp
// directory until Close is called, so Dependency paths of extracted files
// are only valid until then.
type Engine struct {
	cfg       config.Config
	analyzers []analyzer.Analyzer
	stats     stats.Collector
	capabs    *plugin.Capabilities
	extractor *extraction.Extractor

	mu       sync.Mutex
	state    State
	tempRoot string
	closed   bool
}

// New validates cfg and returns an Engine running analyzers in registration
// order within each phase. A nil cfg selects config.Default().
func New(cfg *config.Config, analyzers []analyzer.Analyzer, opts ...Option) (*Engine, error) {
	c := config.Default()
	if cfg != nil {
		c = *cfg
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if len(analyzers) == 0 {
		return nil, ErrNoAnalyzers
	}
	names := map[string]bool{}
	for _, a := range analyzers {
		if names[a.Name()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAnalyzer, a.Name())
		}
		names[a.Name()] = true
	}
	for _, r := range c.Scan.RequiredAnalyzers {
		if !names[r] {
			return nil, fmt.Errorf("%w: %s is not registered", ErrAnalyzerInit, r)
		}
	}

	e := &Engine{
		cfg:       c,
		analyzers: slices.Clone(analyzers),
		stats:     stats.NoopCollector{},
		capabs:    &plugin.Capabilities{Network: plugin.NetworkOnline},
		extractor: extraction.New(c.Scan.MaxExtractedFileBytes),
	}
	if c.Scan.Offline {
		e.capabs = &plugin.Capabilities{Network: plugin.NetworkOffline}
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = s
}

// Scan discovers the files under roots and analyzes them. Errors returned
// here are fatal and leave the engine in StateAborted; problems with single
// dependencies are recorded on them instead.
func (e *Engine) Scan(ctx context.Context, roots ...string) (res *Result, err error) {
	e.mu.Lock()
	if e.state != StateCreated || e.closed {
		e.mu.Unlock()
		return nil, ErrScanStarted
	}
	e.state = StateDiscovering
	e.mu.Unlock()

	start := time.Now()
	defer func() {
		status := &plugin.ScanStatus{Status: plugin.ScanStatusFailed}
		if err != nil {
			e.setState(StateAborted)
			status.FailureReason = err.Error()
			log.Errorf("scan aborted: %v", err)
		} else {
			status = res.Status
		}
		e.stats.AfterScan(time.Since(start), status)
	}()

	files, err := e.discover(ctx, roots)
	if err != nil {
		return nil, err
	}
	active, statuses, err := e.initAnalyzers(ctx)
	if err != nil {
		return nil, err
	}

	tempRoot, err := os.MkdirTemp(e.cfg.Scan.TempDir, "depcheck-")
	if err != nil {
		return nil, fmt.Errorf("creating scan temp dir: %w", err)
	}
	e.mu.Lock()
	e.tempRoot = tempRoot
	e.mu.Unlock()
	input := &analyzer.ScanInput{TempDir: filepath.Join(tempRoot, "tmp")}
	if err := os.Mkdir(input.TempDir, 0700); err != nil {
		return nil, fmt.Errorf("creating scan temp dir: %w", err)
	}

	deps := make([]*dependency.Dependency, 0, len(files))
	for _, f := range files {
		deps = append(deps, dependency.New(f.Path))
	}

	e.setState(StateExtracting)
	if deps, err = e.extractAll(ctx, active, deps); err != nil {
		return nil, err
	}

	e.setState(StateAnalyzing)
	runStatuses, err := e.analyze(ctx, active, input, deps)
	if err != nil {
		return nil, err
	}
	statuses = append(statuses, runStatuses...)

	for _, d := range deps {
		d.Finalize()
	}
	e.setState(StateFinalized)

	slices.SortFunc(statuses, func(a, b *plugin.Status) int { return cmp.Compare(a.Name, b.Name) })
	return &Result{
		Dependencies: deps,
		Statuses:     statuses,
		Status:       overallStatus(statuses),
		StartTime:    start,
		EndTime:      time.Now(),
	}, nil
}

func overallStatus(statuses []*plugin.Status) *plugin.ScanStatus {
	for _, s := range statuses {
		if s.Status.Status == plugin.ScanStatusFailed || s.Status.Status == plugin.ScanStatusPartiallySucceeded {
			return &plugin.ScanStatus{
				Status:        plugin.ScanStatusPartiallySucceeded,
				FailureReason: "not all analyzers succeeded, see the analyzer statuses",
			}
		}
	}
	return &plugin.ScanStatus{Status: plugin.ScanStatusSucceeded}
}

func (e *Engine) discover(ctx context.Context, roots []string) ([]discovery.File, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: no scan root specified", ErrRootNotFound)
	}
	start := time.Now()
	w, err := discovery.New(discovery.Config{
		Include:      e.cfg.Scan.Include,
		Exclude:      e.cfg.Scan.Exclude,
		SymlinkDepth: e.cfg.Scan.SymlinkDepth,
	})
	if err != nil {
		return nil, err
	}
	res, err := w.Walk(ctx, roots...)
	if err != nil {
		return nil, err
	}
	e.stats.AfterDiscovery(&stats.DiscoveryStats{
		Roots:   roots,
		Files:   len(res.Files),
		Skipped: res.Skipped,
		Runtime: time.Since(start),
	})
	return res.Files, nil
}

// initAnalyzers returns the analyzers that will run, and Disabled statuses
// for the others.
func (e *Engine) initAnalyzers(ctx context.Context) ([]analyzer.Analyzer, []*plugin.Status, error) {
	required := toSet(e.cfg.Scan.RequiredAnalyzers)
	disabled := toSet(e.cfg.Scan.DisabledAnalyzers)

	var active []analyzer.Analyzer
	var statuses []*plugin.Status
	for _, a := range e.analyzers {
		reason := e.disabledReason(ctx, a, disabled[a.Name()])
		if reason == "" {
			active = append(active, a)
			continue
		}
		if required[a.Name()] {
			return nil, nil, fmt.Errorf("%w: %s: %s", ErrAnalyzerInit, a.Name(), reason)
		}
		log.Infof("analyzer %s disabled: %s", a.Name(), reason)
		statuses = append(statuses, plugin.DisabledStatus(a, reason))
	}
	if len(active) == 0 {
		return nil, nil, ErrNoAnalyzers
	}
	return active, statuses, nil
}

func (e *Engine) disabledReason(ctx context.Context, a analyzer.Analyzer, byConfig bool) string {
	if byConfig {
		return "disabled by configuration"
	}
	if err := plugin.ValidateRequirements(a, e.capabs); err != nil {
		return err.Error()
	}
	if !a.Enabled() {
		return "not enabled"
	}
	if in, ok := a.(analyzer.Initializer); ok {
		if err := in.Initialize(ctx); err != nil {
			return err.Error()
		}
		if !a.Enabled() {
			return "disabled during initialization"
		}
	}
	return ""
}

func toSet(s []string) map[string]bool {
	m := make(map[string]bool, len(s))
	for _, v := range s {
		m[v] = true
	}
	return m
}

type extractionJob struct {
	dep      *dependency.Dependency
	children []*dependency.Dependency
	dest     string
}

// extractAll unpacks containers breadth-first and returns deps followed by
// every extracted file.
func (e *Engine) extractAll(ctx context.Context, active []analyzer.Analyzer, deps []*dependency.Dependency) ([]*dependency.Dependency, error) {
	var recognizers []analyzer.ContainerRecognizer
	var filters []analyzer.FileFilter
	for _, a := range active {
		if r, ok := a.(analyzer.ContainerRecognizer); ok {
			recognizers = append(recognizers, r)
		}
		if f := a.FileFilter(); f != nil {
			filters = append(filters, f)
		}
	}
	if len(recognizers) == 0 {
		return deps, nil
	}
	isContainer := func(path string) bool {
		return slices.ContainsFunc(recognizers, func(r analyzer.ContainerRecognizer) bool { return r.IsContainer(path) })
	}
	accept := func(rel string) bool {
		return isContainer(rel) || slices.ContainsFunc(filters, func(f analyzer.FileFilter) bool { return f(rel) })
	}

	// Destination of the job each extracted dependency came from.
	dests := map[*dependency.Dependency]string{}
	all := deps
	level := deps
	for len(level) > 0 {
		var jobs []*extractionJob
		for _, d := range level {
			if isContainer(filepath.ToSlash(d.Path)) {
				jobs = append(jobs, &extractionJob{dep: d})
			}
		}

		var g errgroup.Group
		g.SetLimit(e.cfg.Parallelism(0))
		for _, j := range jobs {
			parent := dests[j.dep]
			if parent == "" {
				parent = e.tempRoot
			}
			g.Go(func() error {
				var err error
				j.children, j.dest, err = e.extractOne(ctx, j.dep, parent, accept)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		level = nil
		for _, j := range jobs {
			for _, c := range j.children {
				dests[c] = j.dest
			}
			level = append(level, j.children...)
		}
		all = append(all, level...)
	}
	return all, nil
}

// extractOne unpacks dep into a fresh directory under parentDest. Only
// context errors are returned; everything else is recorded on dep.
func (e *Engine) extractOne(ctx context.Context, dep *dependency.Dependency, parentDest string, accept extraction.AcceptFunc) ([]*dependency.Dependency, string, error) {
	maxDepth := e.cfg.Scan.MaxExtractionDepth
	if dep.Depth > maxDepth {
		dep.RecordAnalysisFailure(ExtractionName, dependency.LowSeverity(fmt.Errorf(
			"%w: %s is nested %d level(s) deep, limit is %d",
			extraction.ErrMaxExtractionDepthExceeded, dep.VirtualPath, dep.Depth, maxDepth)))
		return nil, "", nil
	}

	start := time.Now()
	dest, err := os.MkdirTemp(parentDest, "x-")
	if err != nil {
		dep.RecordAnalysisFailure(ExtractionName, fmt.Errorf("%w: %w", extraction.ErrDestinationUnwritable, err))
		return nil, "", nil
	}
	res, err := e.extractor.Extract(ctx, extraction.Job{
		Archive:     dep.Path,
		Destination: dest,
		Accept:      accept,
		Depth:       dep.Depth,
		MaxDepth:    maxDepth,
	})
	st := &stats.ExtractionStats{Archive: dep.Path, Depth: dep.Depth, Runtime: time.Since(start), Error: err}
	if res != nil {
		st.Files = len(res.Files)
		st.Rejected = len(res.Rejected)
	}
	e.stats.AfterExtraction(st)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, "", ctxErr
	}

	switch {
	case err == nil:
	case errors.Is(err, extraction.ErrArchiveUnreadable):
		log.Debugf("%s: analyzing as a flat file: %v", dep, err)
	default:
		dep.RecordAnalysisFailure(ExtractionName, err)
	}
	if res == nil {
		return nil, dest, nil
	}
	for _, r := range res.Rejected {
		dep.RecordAnalysisFailure(ExtractionName, dependency.LowSeverity(fmt.Errorf("%s: %w", r.Entry, r.Err)))
	}
	children := make([]*dependency.Dependency, 0, len(res.Files))
	for _, f := range res.Files {
		children = append(children, dependency.NewExtracted(f.Path, dep, f.Rel))
	}
	return children, dest, nil
}

// analyze runs the phases in order. Each analyzer fans out over its
// dependencies and is waited for before the next one starts.
func (e *Engine) analyze(ctx context.Context, active []analyzer.Analyzer, input *analyzer.ScanInput, deps []*dependency.Dependency) ([]*plugin.Status, error) {
	var statuses []*plugin.Status
	for _, phase := range analyzer.Phases {
		for _, a := range active {
			if a.Phase() != phase {
				continue
			}
			if !a.Enabled() {
				statuses = append(statuses, plugin.DisabledStatus(a, "disabled during scan"))
				continue
			}
			s, err := e.runAnalyzer(ctx, a, input, deps)
			if err != nil {
				return nil, err
			}
			statuses = append(statuses, s)
		}
	}
	return statuses, nil
}

func (e *Engine) runAnalyzer(ctx context.Context, a analyzer.Analyzer, input *analyzer.ScanInput, deps []*dependency.Dependency) (*plugin.Status, error) {
	start := time.Now()
	workers := e.cfg.Parallelism(0)
	if c, ok := a.(analyzer.Concurrent); ok {
		workers = e.cfg.Parallelism(c.MaxConcurrency())
	}

	var g errgroup.Group
	g.SetLimit(workers)
	var ran, failed atomic.Int32
	for _, d := range deps {
		if ctx.Err() != nil {
			break
		}
		if !analyzer.Supports(a, d) {
			continue
		}
		ran.Add(1)
		g.Go(func() error {
			if err := analyzeOne(ctx, a, input, d); err != nil {
				log.Debugf("%s: %s: %v", a.Name(), d, err)
				d.RecordAnalysisFailure(a.Name(), err)
				failed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.stats.AfterAnalyzerRun(a.Name(), &stats.AnalyzerStats{
		Dependencies: int(ran.Load()),
		Failures:     int(failed.Load()),
		Runtime:      time.Since(start),
	})
	return plugin.StatusFromErr(a, nil, int(failed.Load())), nil
}

func analyzeOne(ctx context.Context, a analyzer.Analyzer, input *analyzer.ScanInput, d *dependency.Dependency) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("analyzer %s panicked on %s: %v\n%s", a.Name(), d, r, debug.Stack())
			err = fmt.Errorf("%w: %v", ErrAnalyzerPanic, r)
		}
	}()
	return a.Analyze(ctx, input, d)
}

// Close releases the analyzers' resources and removes every file the scan
// created. It must not be called concurrently with Scan. Calling it more
// than once is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	root := e.tempRoot
	e.mu.Unlock()

	var errs error
	for _, a := range e.analyzers {
		if c, ok := a.(analyzer.Closer); ok {
			errs = multierr.Append(errs, c.Close())
		}
	}
	if root != "" {
		errs = multierr.Append(errs, os.RemoveAll(root))
	}
	return multierr.Append(errs, tempfile.Cleanup())
}
