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

// Package analyzer defines the interface analyzers implement and the phases
// the engine runs them in.
package analyzer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/plugin"
)

var (
	// ErrPreflightFailed is returned by Initialize when a remote service is
	// unreachable or doesn't speak the expected protocol. The analyzer is
	// disabled for the rest of the run.
	ErrPreflightFailed = errors.New("preflight check failed")
	// ErrNotFound is returned by lookup clients when the digest is unknown.
	// Analyzers treat it as a silent outcome.
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalidInput is returned for malformed input such as a bad digest.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTransport is returned for connection failures, timeouts and
	// unexpected responses of remote services.
	ErrTransport = errors.New("transport failure")
)

// Phase is a stage of the analysis. All analyzers of a phase finish before
// the next phase starts.
type Phase int

// Phases, in execution order.
const (
	PhaseInitial Phase = iota
	PhasePreInformationCollection
	PhaseInformationCollection
	PhasePostInformationCollection
	PhasePreIdentifierAnalysis
	PhaseIdentifierAnalysis
	PhasePostIdentifierAnalysis
	PhasePreFindingAnalysis
	PhaseFindingAnalysis
	PhasePostFindingAnalysis
	PhaseFinal
)

// Phases lists every phase in execution order.
var Phases = []Phase{
	PhaseInitial,
	PhasePreInformationCollection,
	PhaseInformationCollection,
	PhasePostInformationCollection,
	PhasePreIdentifierAnalysis,
	PhaseIdentifierAnalysis,
	PhasePostIdentifierAnalysis,
	PhasePreFindingAnalysis,
	PhaseFindingAnalysis,
	PhasePostFindingAnalysis,
	PhaseFinal,
}

var phaseNames = map[Phase]string{
	PhaseInitial:                   "INITIAL",
	PhasePreInformationCollection:  "PRE_INFORMATION_COLLECTION",
	PhaseInformationCollection:     "INFORMATION_COLLECTION",
	PhasePostInformationCollection: "POST_INFORMATION_COLLECTION",
	PhasePreIdentifierAnalysis:     "PRE_IDENTIFIER_ANALYSIS",
	PhaseIdentifierAnalysis:        "IDENTIFIER_ANALYSIS",
	PhasePostIdentifierAnalysis:    "POST_IDENTIFIER_ANALYSIS",
	PhasePreFindingAnalysis:        "PRE_FINDING_ANALYSIS",
	PhaseFindingAnalysis:           "FINDING_ANALYSIS",
	PhasePostFindingAnalysis:       "POST_FINDING_ANALYSIS",
	PhaseFinal:                     "FINAL",
}

func (p Phase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return "UNKNOWN"
}

// FileFilter decides whether an analyzer is interested in a file, given its
// slash-separated path. The engine also uses the filters of all enabled
// analyzers to decide which archive entries to extract.
type FileFilter func(path string) bool

// ExtensionFilter returns a FileFilter matching file names with one of the
// given extensions (without the leading dot), case-insensitively.
func ExtensionFilter(exts ...string) FileFilter {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return func(path string) bool {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		return ext != "" && set[ext]
	}
}

// ScanInput holds the engine state an analyzer may use.
type ScanInput struct {
	// TempDir is a private directory for the duration of the scan. Files
	// created in it must have unique names.
	TempDir string
}

// Analyzer inspects dependencies and records what it learns about them.
type Analyzer interface {
	plugin.Plugin
	// Phase is the phase the analyzer runs in.
	Phase() Phase
	// Enabled reports whether the analyzer should run. It may turn false
	// after a failed Initialize.
	Enabled() bool
	// FileFilter returns the files this analyzer supports. nil means every
	// dependency; such analyzers have no say in what gets extracted.
	FileFilter() FileFilter
	// Analyze inspects a single dependency. Returned errors are recorded on
	// the dependency and never stop the scan. Analyze may be called
	// concurrently for different dependencies.
	Analyze(ctx context.Context, input *ScanInput, dep *dependency.Dependency) error
}

// Initializer is implemented by analyzers with a one-time setup such as a
// preflight check of a remote service.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Closer is implemented by analyzers holding resources.
type Closer interface {
	Close() error
}

// Concurrent is implemented by analyzers that want their own worker count.
type Concurrent interface {
	MaxConcurrency() int
}

// ContainerRecognizer is implemented by analyzers that know which files are
// archives worth extracting.
type ContainerRecognizer interface {
	IsContainer(path string) bool
}

// Supports reports whether a should run on dep.
func Supports(a Analyzer, dep *dependency.Dependency) bool {
	f := a.FileFilter()
	if f == nil {
		return true
	}
	return f(filepath.ToSlash(dep.Path))
}
