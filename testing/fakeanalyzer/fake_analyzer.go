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

// Package fakeanalyzer provides an Analyzer implementation to be used in tests.
package fakeanalyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/plugin"
)

// Journal records analyzer calls across several fake analyzers, in call order.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *Journal) add(s string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

// Entries returns the recorded "<analyzer>:<file name>" entries.
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.entries)
}

// Config describes the behavior of a fake analyzer.
type Config struct {
	Name    string
	Version int
	Phase   analyzer.Phase
	Network plugin.Network
	// Extensions selects the supported files. Empty means every file.
	Extensions []string
	// Containers lists extensions the analyzer recognizes as archives.
	Containers []string
	Disabled   bool
	// InitErr is returned by Initialize, which then disables the analyzer.
	InitErr        error
	MaxConcurrency int
	// Errs maps file names to the error Analyze returns for them.
	Errs map[string]error
	// Panics lists file names Analyze panics on.
	Panics []string
	// Delay is slept in every Analyze call.
	Delay   time.Duration
	Journal *Journal
}

// Analyzer is a fake analyzer. For every supported file it records a
// product evidence named after the file, with the analyzer name as source.
type Analyzer struct {
	cfg      Config
	filter   analyzer.FileFilter
	enabled  atomic.Bool
	inFlight atomic.Int32
	peak     atomic.Int32
	inits    atomic.Int32
	closes   atomic.Int32

	mu   sync.Mutex
	seen []string
}

// New returns a fake analyzer.
func New(cfg Config) *Analyzer {
	a := &Analyzer{cfg: cfg}
	if len(cfg.Extensions) > 0 {
		a.filter = analyzer.ExtensionFilter(cfg.Extensions...)
	}
	a.enabled.Store(!cfg.Disabled)
	return a
}

// Name returns the analyzer's name.
func (a *Analyzer) Name() string { return a.cfg.Name }

// Version returns the analyzer's version.
func (a *Analyzer) Version() int { return a.cfg.Version }

// Requirements returns the analyzer's requirements.
func (a *Analyzer) Requirements() *plugin.Capabilities {
	return &plugin.Capabilities{Network: a.cfg.Network}
}

// Phase returns the configured phase.
func (a *Analyzer) Phase() analyzer.Phase { return a.cfg.Phase }

// Enabled reports whether the analyzer is enabled.
func (a *Analyzer) Enabled() bool { return a.enabled.Load() }

// FileFilter returns the extension filter, or nil.
func (a *Analyzer) FileFilter() analyzer.FileFilter { return a.filter }

// MaxConcurrency returns the configured worker count.
func (a *Analyzer) MaxConcurrency() int { return a.cfg.MaxConcurrency }

// IsContainer reports whether path has one of the container extensions.
func (a *Analyzer) IsContainer(path string) bool {
	if len(a.cfg.Containers) == 0 {
		return false
	}
	return analyzer.ExtensionFilter(a.cfg.Containers...)(path)
}

// Initialize returns InitErr.
func (a *Analyzer) Initialize(context.Context) error {
	a.inits.Add(1)
	if a.cfg.InitErr != nil {
		a.enabled.Store(false)
		return a.cfg.InitErr
	}
	return nil
}

// Close counts calls.
func (a *Analyzer) Close() error {
	a.closes.Add(1)
	return nil
}

// Analyze records the call and returns the configured outcome.
func (a *Analyzer) Analyze(ctx context.Context, _ *analyzer.ScanInput, dep *dependency.Dependency) error {
	n := a.inFlight.Add(1)
	defer a.inFlight.Add(-1)
	for {
		p := a.peak.Load()
		if n <= p || a.peak.CompareAndSwap(p, n) {
			break
		}
	}

	name := filepath.Base(dep.Path)
	a.mu.Lock()
	a.seen = append(a.seen, dep.VirtualPath)
	a.mu.Unlock()
	a.cfg.Journal.add(a.cfg.Name + ":" + name)

	if a.cfg.Delay > 0 {
		select {
		case <-time.After(a.cfg.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if slices.Contains(a.cfg.Panics, name) {
		panic(fmt.Sprintf("fake analyzer %s panics on %s", a.cfg.Name, name))
	}
	if err, ok := a.cfg.Errs[name]; ok {
		return err
	}
	dep.AddEvidence(dependency.KindProduct, "file", name, a.cfg.Name, dependency.ConfidenceHigh)
	return nil
}

// Seen returns the sorted virtual paths of the dependencies Analyze was called on.
func (a *Analyzer) Seen() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := slices.Clone(a.seen)
	slices.Sort(out)
	return out
}

// PeakConcurrency returns the highest number of concurrent Analyze calls.
func (a *Analyzer) PeakConcurrency() int { return int(a.peak.Load()) }

// InitCalls returns the number of Initialize calls.
func (a *Analyzer) InitCalls() int { return int(a.inits.Load()) }

// CloseCalls returns the number of Close calls.
func (a *Analyzer) CloseCalls() int { return int(a.closes.Load()) }

var (
	_ analyzer.Analyzer            = &Analyzer{}
	_ analyzer.Initializer         = &Analyzer{}
	_ analyzer.Closer              = &Analyzer{}
	_ analyzer.Concurrent          = &Analyzer{}
	_ analyzer.ContainerRecognizer = &Analyzer{}
)
