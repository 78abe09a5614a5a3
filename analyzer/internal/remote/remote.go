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

// Package remote implements the lookup flow shared by the analyzers that
// identify dependencies by asking a remote repository for their digest.
package remote

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/analyzer/internal/pom"
	"github.com/google/osv-depcheck/cache"
	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/log"
	"github.com/google/osv-depcheck/purl"
	"github.com/google/osv-depcheck/stats"
	"github.com/google/osv-depcheck/tempfile"
)

// Match is what a repository knows about a digest.
type Match struct {
	PURL        purl.PackageURL
	ArtifactURL string
	POMURL      string
}

// LookupFunc resolves a SHA-1. It reports unknown digests as
// analyzer.ErrNotFound and malformed ones as analyzer.ErrInvalidInput.
type LookupFunc func(ctx context.Context, sha1 string) (*Match, error)

// FetchFunc downloads the document at url into w, copying at most limit bytes.
type FetchFunc func(ctx context.Context, url string, w io.Writer, limit int64) error

// Identifier runs lookups for one analyzer.
type Identifier struct {
	// Name is the analyzer name used for stats and logs.
	Name string
	// Source is the evidence source of matches.
	Source string
	Lookup LookupFunc
	// FetchPOM downloads POMs of matches. nil disables the POM fetch.
	FetchPOM    FetchFunc
	MaxPOMBytes int64
	Cache       *cache.Lookup[Match]
	Stats       stats.Collector
}

func (id *Identifier) collector() stats.Collector {
	if id.Stats == nil {
		return stats.NoopCollector{}
	}
	return id.Stats
}

// Analyze looks dep up by its SHA-1 and records the match. Unknown digests are
// silent, malformed input is a low severity error, and transport failures are
// returned as is.
func (id *Identifier) Analyze(ctx context.Context, input *analyzer.ScanInput, dep *dependency.Dependency) error {
	sha1, err := dep.SHA1()
	if err != nil {
		return err
	}

	m, hit := id.Cache.Get(sha1)
	if hit {
		id.collector().AfterLookup(id.Name, resultOf(m), true)
	} else {
		m, err = id.Lookup(ctx, sha1)
		switch {
		case errors.Is(err, analyzer.ErrNotFound):
			log.Debugf("%s: %s not found in repository", id.Name, dep.DisplayName)
			id.collector().AfterLookup(id.Name, stats.LookupResultNotFound, false)
			id.Cache.Put(sha1, nil)
			return nil
		case errors.Is(err, analyzer.ErrInvalidInput):
			id.collector().AfterLookup(id.Name, stats.LookupResultError, false)
			return dependency.LowSeverity(err)
		case err != nil:
			id.collector().AfterLookup(id.Name, stats.LookupResultError, false)
			return err
		}
		id.collector().AfterLookup(id.Name, stats.LookupResultFound, false)
		id.Cache.Put(sha1, m)
	}
	if m == nil {
		return nil
	}

	id.addEvidence(dep, m)
	if id.FetchPOM != nil && m.POMURL != "" && !dep.HasEvidenceFromSource(dependency.KindVendor, pom.Source) {
		id.mergePOM(ctx, input, dep, m.POMURL)
	}
	return nil
}

func resultOf(m *Match) stats.LookupResult {
	if m == nil {
		return stats.LookupResultNotFound
	}
	return stats.LookupResultFound
}

func (id *Identifier) addEvidence(dep *dependency.Dependency, m *Match) {
	p := m.PURL
	vendorName, productName := "namespace", "name"
	if p.Type == purl.TypeMaven {
		vendorName, productName = "groupid", "artifactid"
	}
	if p.Namespace != "" {
		dep.AddEvidence(dependency.KindVendor, vendorName, p.Namespace, id.Source, dependency.ConfidenceHigh)
	}
	if p.Name != "" {
		dep.AddEvidence(dependency.KindProduct, productName, p.Name, id.Source, dependency.ConfidenceHigh)
	}
	if p.Version != "" {
		dep.AddEvidence(dependency.KindVersion, "version", p.Version, id.Source, dependency.ConfidenceHigh)
	}
	dep.AddIdentifier(dependency.Identifier{
		Type:       dependency.IdentifierTypePURL,
		Value:      p.String(),
		URL:        m.ArtifactURL,
		Confidence: dependency.ConfidenceHigh,
	})
}

// mergePOM downloads the POM into a uniquely named temp file and records its
// evidence. Failures are only logged; the temp file is removed on every path.
func (id *Identifier) mergePOM(ctx context.Context, input *analyzer.ScanInput, dep *dependency.Dependency, url string) {
	dir := os.TempDir()
	if input != nil && input.TempDir != "" {
		dir = input.TempDir
	}
	f, err := tempfile.Create(dir, ".pom")
	if err != nil {
		log.Warnf("%s: unable to fetch pom.xml for %s: %v", id.Name, dep.DisplayName, err)
		return
	}
	path := f.Name()
	defer tempfile.Remove(path)

	log.Debugf("%s: downloading %s", id.Name, url)
	err = id.FetchPOM(ctx, url, f, id.MaxPOMBytes)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Warnf("%s: unable to download pom.xml for %s; this could result in undetected vulnerabilities: %v", id.Name, dep.DisplayName, err)
		return
	}
	d, err := pom.ParseFile(path, id.MaxPOMBytes)
	if err != nil {
		log.Warnf("%s: unable to parse pom.xml of %s: %v", id.Name, dep.DisplayName, err)
		return
	}
	d.AddEvidence(dep, pom.Source, dependency.ConfidenceHighest)
}
