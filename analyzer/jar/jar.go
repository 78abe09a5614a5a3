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

// Package jar implements an analyzer that collects evidence from the metadata
// files inside Java archives.
package jar

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/analyzer/internal/pom"
	"github.com/google/osv-depcheck/config"
	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/log"
	"github.com/google/osv-depcheck/plugin"
	"go.uber.org/multierr"
)

const (
	// Name is the unique name of this analyzer.
	Name = "jar"

	// SourceManifest is the evidence source of MANIFEST.MF values.
	SourceManifest = "manifest"
	// SourceEmbeddedPOM is the evidence source of POMs that belong to
	// artifacts shaded into the archive rather than the archive itself.
	SourceEmbeddedPOM = "embedded-pom"

	defaultMaxPOMBytes = 10 << 20
	manifestPath       = "META-INF/MANIFEST.MF"
	mavenDir           = "META-INF/maven/"
)

// Extensions lists the Java archive types the analyzer inspects.
var Extensions = []string{"jar", "war", "ear", "sar", "aar", "hpi", "jpi", "nar", "par"}

// Analyzer reads MANIFEST.MF, pom.properties and pom.xml files of Java archives.
type Analyzer struct {
	cfg config.Jar
}

// New returns a jar analyzer.
func New(cfg config.Jar) *Analyzer {
	if cfg.MaxPOMBytes <= 0 {
		cfg.MaxPOMBytes = defaultMaxPOMBytes
	}
	return &Analyzer{cfg: cfg}
}

// Name of the analyzer.
func (Analyzer) Name() string { return Name }

// Version of the analyzer.
func (Analyzer) Version() int { return 0 }

// Requirements of the analyzer.
func (Analyzer) Requirements() *plugin.Capabilities { return &plugin.Capabilities{} }

// Phase of the analyzer.
func (Analyzer) Phase() analyzer.Phase { return analyzer.PhaseInformationCollection }

// Enabled reports whether the analyzer is turned on in the config.
func (a *Analyzer) Enabled() bool { return a.cfg.Enabled }

// FileFilter matches Java archives.
func (Analyzer) FileFilter() analyzer.FileFilter { return analyzer.ExtensionFilter(Extensions...) }

// mavenEntry groups the pom.properties and pom.xml of one artifact directory.
type mavenEntry struct {
	props *pomProps
	desc  *pom.Descriptor
}

func (e *mavenEntry) artifactID() string {
	if e.desc != nil && e.desc.ArtifactID != "" {
		return e.desc.ArtifactID
	}
	if e.props != nil {
		return e.props.ArtifactID
	}
	return ""
}

// descriptor merges both files; pom.properties wins for coordinates as it is
// written by the build with all properties resolved.
func (e *mavenEntry) descriptor() *pom.Descriptor {
	d := &pom.Descriptor{}
	if e.desc != nil {
		*d = *e.desc
	}
	if e.props != nil && e.props.valid() {
		d.GroupID = e.props.GroupID
		d.ArtifactID = e.props.ArtifactID
		d.Version = e.props.Version
	}
	return d
}

// Analyze opens the archive and records the evidence of its metadata files.
// Archives that can't be opened yield a low severity error.
func (a *Analyzer) Analyze(ctx context.Context, _ *analyzer.ScanInput, dep *dependency.Dependency) error {
	r, err := zip.OpenReader(dep.Path)
	if err != nil {
		return dependency.LowSeverity(fmt.Errorf("%w: opening %s as zip: %w", analyzer.ErrInvalidInput, dep.DisplayName, err))
	}
	defer r.Close()

	var errs error
	entries := map[string]*mavenEntry{}
	for _, f := range r.File {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := strings.ReplaceAll(f.Name, "\\", "/")
		switch {
		case strings.EqualFold(name, manifestPath):
			if err := a.readManifest(f, dep); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			}
		case strings.HasPrefix(name, mavenDir) && path.Base(name) == "pom.properties":
			p, err := readEntry(f, a.cfg.MaxPOMBytes, parsePomProps)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
				continue
			}
			entryFor(entries, name).props = &p
		case strings.HasPrefix(name, mavenDir) && path.Base(name) == "pom.xml":
			d, err := readEntry(f, a.cfg.MaxPOMBytes, pom.Parse)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
				continue
			}
			entryFor(entries, name).desc = d
		}
	}

	a.addMavenEvidence(dep, entries)

	if errs != nil {
		return dependency.LowSeverity(fmt.Errorf("%w: %w", analyzer.ErrInvalidInput, errs))
	}
	return nil
}

func entryFor(entries map[string]*mavenEntry, name string) *mavenEntry {
	dir := path.Dir(name)
	e, ok := entries[dir]
	if !ok {
		e = &mavenEntry{}
		entries[dir] = e
	}
	return e
}

// addMavenEvidence records the artifact's own POM at HIGHEST. When an archive
// embeds several artifacts, only the one matching the file name is its own;
// the rest are recorded at MEDIUM under a separate source.
func (a *Analyzer) addMavenEvidence(dep *dependency.Dependency, entries map[string]*mavenEntry) {
	if len(entries) == 0 {
		return
	}
	dirs := make([]string, 0, len(entries))
	for d := range entries {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	own := ""
	if len(dirs) == 1 {
		own = dirs[0]
	} else {
		base := strings.ToLower(strings.TrimSuffix(filepath.Base(dep.Path), filepath.Ext(dep.Path)))
		for _, d := range dirs {
			id := strings.ToLower(entries[d].artifactID())
			if id != "" && strings.HasPrefix(base, id) {
				own = d
				break
			}
		}
	}
	for _, d := range dirs {
		desc := entries[d].descriptor()
		if desc.ArtifactID == "" {
			continue
		}
		if d == own {
			desc.AddEvidence(dep, pom.Source, dependency.ConfidenceHighest)
			continue
		}
		log.Debugf("%s: embedded artifact %s:%s", dep.DisplayName, desc.EffectiveGroupID(), desc.ArtifactID)
		desc.AddEvidence(dep, SourceEmbeddedPOM, dependency.ConfidenceMedium)
	}
}

func (a *Analyzer) readManifest(f *zip.File, dep *dependency.Dependency) error {
	m, err := readEntry(f, a.cfg.MaxPOMBytes, parseManifest)
	if err != nil {
		return err
	}
	if m.GroupID != "" {
		dep.AddEvidence(dependency.KindVendor, "groupid", m.GroupID, SourceManifest, dependency.ConfidenceHigh)
	}
	if m.Vendor != "" {
		dep.AddEvidence(dependency.KindVendor, "implementation-vendor", m.Vendor, SourceManifest, dependency.ConfidenceHigh)
	}
	if m.ArtifactID != "" {
		dep.AddEvidence(dependency.KindProduct, "artifactid", m.ArtifactID, SourceManifest, dependency.ConfidenceHigh)
	}
	if m.Title != "" && m.Title != m.ArtifactID {
		dep.AddEvidence(dependency.KindProduct, "implementation-title", m.Title, SourceManifest, dependency.ConfidenceMedium)
	}
	if m.Version != "" {
		dep.AddEvidence(dependency.KindVersion, "version", m.Version, SourceManifest, dependency.ConfidenceHigh)
	}
	return nil
}

func readEntry[T any](f *zip.File, limit int64, parse func(io.Reader) (T, error)) (t T, err error) {
	rc, err := f.Open()
	if err != nil {
		return t, err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(rc))
	return parse(io.LimitReader(rc, limit))
}
