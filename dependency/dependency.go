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

// Package dependency defines the unit of analysis of a scan: one physical
// file, the evidence analyzers collected about it and the problems they hit.
package dependency

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/osv-depcheck/log"
)

// Algorithm is a content digest algorithm.
type Algorithm string

// Supported digest algorithms.
const (
	AlgorithmSHA1   Algorithm = "sha1"
	AlgorithmSHA256 Algorithm = "sha256"
)

// IdentifierTypePURL is the Identifier type of package URLs.
const IdentifierTypePURL = "purl"

// Identifier is a resolved identity of a dependency, e.g. a package URL
// returned by a remote repository lookup.
type Identifier struct {
	Type       string
	Value      string
	URL        string
	Confidence Confidence
}

// Dependency is one physical file under analysis. The identity fields are set
// at creation and must not be changed afterwards; everything else is only
// mutated through the methods below, which are safe for concurrent use.
type Dependency struct {
	// Path is the absolute path of the file on disk.
	Path string
	// DisplayName is a human readable name, by default the file's base name.
	DisplayName string
	// VirtualPath locates the file inside the archives it was extracted from,
	// e.g. "app.war!/WEB-INF/lib/x.jar". Equal to Path for discovered files.
	VirtualPath string
	// ParentPath is the Path of the archive the file was extracted from.
	ParentPath string
	// Depth is the archive nesting depth, 0 for discovered files.
	Depth int

	digestMu sync.Mutex
	digests  map[Algorithm]string

	mu          sync.Mutex
	evidence    map[Kind]*evidenceGroup
	identifiers []Identifier
	failures    []AnalysisFailure
	finalized   bool
}

// New returns a Dependency for a file found during discovery.
func New(path string) *Dependency {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return &Dependency{
		Path:        abs,
		DisplayName: filepath.Base(abs),
		VirtualPath: abs,
		evidence:    map[Kind]*evidenceGroup{},
	}
}

// NewExtracted returns a Dependency for a file extracted from parent. rel is
// the file's path relative to the extraction destination.
func NewExtracted(path string, parent *Dependency, rel string) *Dependency {
	d := New(path)
	d.ParentPath = parent.Path
	d.Depth = parent.Depth + 1
	d.VirtualPath = parent.VirtualPath + "!/" + filepath.ToSlash(rel)
	return d
}

func (d *Dependency) String() string {
	return d.VirtualPath
}

// AddEvidence adds an observation to the group of the given kind. Adding the
// same (name, value, source) twice is a no-op, unless the second call carries
// a higher confidence, in which case the stored entry is upgraded. It panics
// if confidence is not a defined Confidence value.
func (d *Dependency) AddEvidence(kind Kind, name, value, source string, confidence Confidence) {
	if !confidence.Valid() {
		panic(fmt.Sprintf("dependency: invalid confidence %d for %s evidence %q", int(confidence), kind, name))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.finalized {
		log.Warnf("%s: dropping %s evidence %q from %q added after finalization", d, kind, name, source)
		return
	}
	if d.evidence == nil {
		d.evidence = map[Kind]*evidenceGroup{}
	}
	g, ok := d.evidence[kind]
	if !ok {
		g = newEvidenceGroup()
		d.evidence[kind] = g
	}
	g.add(Evidence{Name: name, Value: value, Source: source, Confidence: confidence})
}

// Evidence returns a copy of the group of the given kind, strongest first.
func (d *Dependency) Evidence(kind Kind) []Evidence {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.evidence[kind]
	if !ok {
		return nil
	}
	return g.list()
}

// VendorEvidence returns the vendor evidence, strongest first.
func (d *Dependency) VendorEvidence() []Evidence { return d.Evidence(KindVendor) }

// ProductEvidence returns the product evidence, strongest first.
func (d *Dependency) ProductEvidence() []Evidence { return d.Evidence(KindProduct) }

// VersionEvidence returns the version evidence, strongest first.
func (d *Dependency) VersionEvidence() []Evidence { return d.Evidence(KindVersion) }

// Kinds returns the evidence kinds that hold at least one entry, sorted.
func (d *Dependency) Kinds() []Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	kinds := make([]Kind, 0, len(d.evidence))
	for k, g := range d.evidence {
		if len(g.entries) > 0 {
			kinds = append(kinds, k)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// HasEvidenceFromSource reports whether the group of the given kind holds an
// entry from source.
func (d *Dependency) HasEvidenceFromSource(kind Kind, source string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.evidence[kind]
	return ok && g.hasSource(source)
}

// AddIdentifier records a resolved identity. Duplicate (type, value) pairs
// keep the highest confidence.
func (d *Dependency) AddIdentifier(id Identifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.finalized {
		log.Warnf("%s: dropping identifier %q added after finalization", d, id.Value)
		return
	}
	for i, existing := range d.identifiers {
		if existing.Type == id.Type && existing.Value == id.Value {
			if id.Confidence > existing.Confidence {
				d.identifiers[i].Confidence = id.Confidence
			}
			if existing.URL == "" {
				d.identifiers[i].URL = id.URL
			}
			return
		}
	}
	d.identifiers = append(d.identifiers, id)
}

// Identifiers returns a copy of the recorded identifiers in insertion order.
func (d *Dependency) Identifiers() []Identifier {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Identifier(nil), d.identifiers...)
}

// RecordAnalysisFailure appends a diagnostic. It never fails; a nil cause is
// ignored. Causes wrapped with LowSeverity are recorded as SeverityLow.
func (d *Dependency) RecordAnalysisFailure(analyzer string, cause error) {
	if cause == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.finalized {
		log.Warnf("%s: dropping failure of %s recorded after finalization: %v", d, analyzer, cause)
		return
	}
	d.failures = append(d.failures, AnalysisFailure{
		Analyzer: analyzer,
		Err:      cause,
		Severity: severityOf(cause),
	})
}

// Failures returns a copy of the diagnostics in the order they were recorded.
func (d *Dependency) Failures() []AnalysisFailure {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]AnalysisFailure(nil), d.failures...)
}

// Finalize makes the dependency immutable.
func (d *Dependency) Finalize() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finalized = true
}

// Finalized reports whether Finalize was called.
func (d *Dependency) Finalized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finalized
}

// Digest returns the lowercase hex digest of the file's content. All supported
// digests are computed in a single read on the first call and cached; failed
// reads are not cached.
func (d *Dependency) Digest(alg Algorithm) (string, error) {
	if alg != AlgorithmSHA1 && alg != AlgorithmSHA256 {
		return "", fmt.Errorf("unsupported digest algorithm %q", alg)
	}
	d.digestMu.Lock()
	defer d.digestMu.Unlock()
	if d.digests == nil {
		digests, err := hashFile(d.Path)
		if err != nil {
			return "", err
		}
		d.digests = digests
	}
	return d.digests[alg], nil
}

// SHA1 is a shorthand for Digest(AlgorithmSHA1).
func (d *Dependency) SHA1() (string, error) { return d.Digest(AlgorithmSHA1) }

// SHA256 is a shorthand for Digest(AlgorithmSHA256).
func (d *Dependency) SHA256() (string, error) { return d.Digest(AlgorithmSHA256) }

func hashFile(path string) (map[Algorithm]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrIOReadingFile, path, err)
	}
	defer f.Close()

	h1 := sha1.New()
	h256 := sha256.New()
	if _, err := io.Copy(io.MultiWriter(h1, h256), f); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrIOReadingFile, path, err)
	}
	return map[Algorithm]string{
		AlgorithmSHA1:   hex.EncodeToString(h1.Sum(nil)),
		AlgorithmSHA256: hex.EncodeToString(h256.Sum(nil)),
	}, nil
}
