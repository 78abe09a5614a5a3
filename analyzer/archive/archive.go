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

// Package archive implements the analyzer that recognizes archives. The
// engine extracts every file it recognizes; the analyzer itself only records
// what kind of container a dependency is.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"strconv"

	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/extraction"
	"github.com/google/osv-depcheck/plugin"
)

const (
	// Name is the unique name of this analyzer.
	Name = "archive"
	// Kind is the auxiliary evidence kind recorded on archives.
	Kind dependency.Kind = "archive"
)

// Analyzer recognizes the containers supported by the extraction package.
type Analyzer struct{}

// New returns an archive analyzer.
func New() *Analyzer { return &Analyzer{} }

// Name of the analyzer.
func (Analyzer) Name() string { return Name }

// Version of the analyzer.
func (Analyzer) Version() int { return 0 }

// Requirements of the analyzer.
func (Analyzer) Requirements() *plugin.Capabilities { return &plugin.Capabilities{} }

// Phase of the analyzer.
func (Analyzer) Phase() analyzer.Phase { return analyzer.PhaseInitial }

// Enabled always returns true.
func (Analyzer) Enabled() bool { return true }

// FileFilter matches supported containers.
func (Analyzer) FileFilter() analyzer.FileFilter { return extraction.IsContainer }

// IsContainer implements analyzer.ContainerRecognizer.
func (Analyzer) IsContainer(path string) bool { return extraction.IsContainer(path) }

// Analyze records the container format and, for zip files, the number of
// entries in the central directory.
func (Analyzer) Analyze(_ context.Context, _ *analyzer.ScanInput, dep *dependency.Dependency) error {
	format := extraction.DetectFormat(dep.Path)
	if format == extraction.FormatUnknown {
		return nil
	}
	dep.AddEvidence(Kind, "format", format.String(), Name, dependency.ConfidenceHighest)
	if format != extraction.FormatZip {
		return nil
	}
	r, err := zip.OpenReader(dep.Path)
	if err != nil {
		return dependency.LowSeverity(fmt.Errorf("%w: %s is not a valid zip file: %w", analyzer.ErrInvalidInput, dep.DisplayName, err))
	}
	defer r.Close()
	dep.AddEvidence(Kind, "entries", strconv.Itoa(len(r.File)), Name, dependency.ConfidenceHighest)
	return nil
}
