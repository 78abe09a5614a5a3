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

// Package filename implements an analyzer that guesses names and versions
// from file names, e.g. guava-31.1-jre.jar.
package filename

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/plugin"
)

const (
	// Name is the unique name of this analyzer.
	Name = "filename"
	// Source is the evidence source of values guessed from the file name.
	Source = "file"
)

// Regexes to determine if a string is a version
var (
	digit           = regexp.MustCompile("^[0-9]")
	buildAndDigit   = regexp.MustCompile("^build[0-9]")
	releaseAndDigit = regexp.MustCompile("^rc?[0-9]+([^a-zA-Z]|$)")
	fullVersion     = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+`)
)

// Props are the coordinates guessed from a file name.
type Props struct {
	Name    string
	Version string
	// GroupID is set when the name is namespaced, e.g.
	// org.apache.felix.framework-1.2.3.jar.
	GroupID string
}

// Parse guesses the name, version and group ID from a file name. Version and
// GroupID are empty when they can't be determined.
func Parse(filePath string) Props {
	name, version := nameVersionFromFilename(filePath)
	p := Props{Name: name, Version: version}
	if version == "" {
		return p
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		p.GroupID = name[:i]
	}
	return p
}

func nameVersionFromFilename(filePath string) (string, string) {
	base := filepath.Base(filePath)
	filename := strings.TrimSuffix(base, filepath.Ext(base))
	filename = strings.TrimSuffix(filename, ".tar")
	if strings.Contains(filename, "-") {
		// Most archive names follow the convention "some-package-name-1.2.3"
		// There might be dashes in the version too, e.g. "guava-31.1-jre"
		for i, c := range filename {
			if c != '-' {
				continue
			}
			v := filename[i+1:]
			if isVersion(v) {
				return filename[:i], v
			}
		}
	}
	// Also try package_version and package.version
	for _, sep := range []string{"_", "."} {
		i := strings.Index(filename, sep)
		if i == -1 {
			continue
		}
		v := filename[i+1:]
		if isVersion(v) {
			return filename[:i], v
		}
	}
	return filename, ""
}

func isVersion(str string) bool {
	if digit.MatchString(str) {
		return true
	}
	if buildAndDigit.MatchString(str) {
		return true
	}
	return releaseAndDigit.MatchString(str)
}

// Analyzer records the name and version guessed from a dependency's file name.
type Analyzer struct{}

// New returns a filename analyzer.
func New() *Analyzer { return &Analyzer{} }

// Name of the analyzer.
func (Analyzer) Name() string { return Name }

// Version of the analyzer.
func (Analyzer) Version() int { return 0 }

// Requirements of the analyzer.
func (Analyzer) Requirements() *plugin.Capabilities { return &plugin.Capabilities{} }

// Phase of the analyzer.
func (Analyzer) Phase() analyzer.Phase { return analyzer.PhaseInformationCollection }

// Enabled always returns true.
func (Analyzer) Enabled() bool { return true }

// FileFilter returns nil: every dependency has a file name.
func (Analyzer) FileFilter() analyzer.FileFilter { return nil }

// Analyze adds product, vendor and version evidence. Versions with at least
// three numeric components are trusted more than short ones.
func (Analyzer) Analyze(_ context.Context, _ *analyzer.ScanInput, dep *dependency.Dependency) error {
	p := Parse(dep.Path)
	if p.Name == "" {
		return nil
	}
	dep.AddEvidence(dependency.KindProduct, "name", p.Name, Source, dependency.ConfidenceHigh)
	dep.AddEvidence(dependency.KindVendor, "name", p.Name, Source, dependency.ConfidenceMedium)
	if p.GroupID != "" {
		dep.AddEvidence(dependency.KindVendor, "groupid", p.GroupID, Source, dependency.ConfidenceMedium)
	}
	if p.Version != "" {
		conf := dependency.ConfidenceMedium
		if fullVersion.MatchString(p.Version) {
			conf = dependency.ConfidenceHigh
		}
		dep.AddEvidence(dependency.KindVersion, "version", p.Version, Source, conf)
	}
	return nil
}
