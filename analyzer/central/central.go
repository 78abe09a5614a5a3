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

// Package central implements an analyzer that identifies Java archives by
// searching Maven Central for their SHA-1.
package central

import (
	"context"
	"fmt"

	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/analyzer/internal/remote"
	"github.com/google/osv-depcheck/cache"
	"github.com/google/osv-depcheck/clients/central"
	"github.com/google/osv-depcheck/config"
	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/log"
	"github.com/google/osv-depcheck/plugin"
	"github.com/google/osv-depcheck/purl"
	"github.com/google/osv-depcheck/stats"
)

const (
	// Name is the unique name of this analyzer.
	Name = "central"
	// Source is the evidence source of Central matches.
	Source = "central"
)

// Analyzer looks up jar files on Maven Central. It stands in for the Nexus
// analyzer and only runs when no Nexus instance is configured.
type Analyzer struct {
	cfg     config.Central
	enabled bool
	cache   *cache.Cache
	stats   stats.Collector

	client *central.Client
	id     *remote.Identifier
}

// New returns a Central analyzer. nexusConfigured disables it in favour of
// the Nexus analyzer. c may be nil.
func New(cfg config.Central, nexusConfigured bool, c *cache.Cache, collector stats.Collector) *Analyzer {
	return &Analyzer{
		cfg:     cfg,
		enabled: cfg.Enabled && !nexusConfigured,
		cache:   c,
		stats:   collector,
	}
}

// Name of the analyzer.
func (Analyzer) Name() string { return Name }

// Version of the analyzer.
func (Analyzer) Version() int { return 0 }

// Requirements of the analyzer.
func (Analyzer) Requirements() *plugin.Capabilities {
	return &plugin.Capabilities{Network: plugin.NetworkOnline}
}

// Phase of the analyzer.
func (Analyzer) Phase() analyzer.Phase { return analyzer.PhaseInformationCollection }

// Enabled reports whether the analyzer runs.
func (a *Analyzer) Enabled() bool { return a.enabled }

// FileFilter matches jar files.
func (Analyzer) FileFilter() analyzer.FileFilter { return analyzer.ExtensionFilter("jar") }

// MaxConcurrency bounds the number of parallel requests to Central.
func (a *Analyzer) MaxConcurrency() int { return a.cfg.MaxConcurrency }

// Initialize builds the client. Invalid URLs disable the analyzer.
func (a *Analyzer) Initialize(context.Context) error {
	if !a.enabled {
		return nil
	}
	client, err := central.New(central.Config{
		SearchURL:     a.cfg.URL,
		RepositoryURL: a.cfg.RepositoryURL,
		UseProxy:      a.cfg.UseProxy,
		Timeout:       a.cfg.Timeout.Std(),
	})
	if err != nil {
		a.enabled = false
		log.WarnOnce("central-disabled", "Central analyzer disabled: %v", err)
		return fmt.Errorf("%w: %w", analyzer.ErrPreflightFailed, err)
	}
	a.client = client
	a.id = &remote.Identifier{
		Name:   Name,
		Source: Source,
		Lookup: a.lookup,
		Cache:  cache.NewLookup[remote.Match](a.cache, Name, struct{ URL, Repo string }{a.cfg.URL, a.cfg.RepositoryURL}),
		Stats:  a.stats,
	}
	if a.cfg.FetchPOM {
		a.id.FetchPOM = client.FetchPOM
	}
	return nil
}

func (a *Analyzer) lookup(ctx context.Context, sha1 string) (*remote.Match, error) {
	hits, err := a.client.SearchSHA1(ctx, sha1)
	if err != nil {
		return nil, err
	}
	if len(hits) > 1 {
		log.Debugf("central: %d artifacts share sha1 %s, using %s:%s", len(hits), sha1, hits[0].GroupID, hits[0].ArtifactID)
	}
	h := hits[0]
	return &remote.Match{
		PURL:        purl.Maven(h.GroupID, h.ArtifactID, h.Version),
		ArtifactURL: h.ArtifactURL,
		POMURL:      h.POMURL,
	}, nil
}

// Analyze looks dep up by its SHA-1.
func (a *Analyzer) Analyze(ctx context.Context, input *analyzer.ScanInput, dep *dependency.Dependency) error {
	if !a.enabled || a.id == nil {
		return nil
	}
	return a.id.Analyze(ctx, input, dep)
}
