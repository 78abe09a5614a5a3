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

// Package nexus implements an analyzer that identifies Java archives by
// looking up their SHA-1 in a Nexus repository manager.
package nexus

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/analyzer/internal/remote"
	"github.com/google/osv-depcheck/cache"
	"github.com/google/osv-depcheck/clients/nexus"
	"github.com/google/osv-depcheck/config"
	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/log"
	"github.com/google/osv-depcheck/plugin"
	"github.com/google/osv-depcheck/purl"
	"github.com/google/osv-depcheck/stats"
)

const (
	// Name is the unique name of this analyzer.
	Name = "nexus"
	// Source is the evidence source of Nexus matches.
	Source = "nexus"
)

// Analyzer looks up jar files in Nexus. It only runs when a Nexus instance
// other than the public default is configured; a failed preflight check
// disables it for the rest of the process.
type Analyzer struct {
	cfg     config.Nexus
	cache   *cache.Cache
	stats   stats.Collector
	enabled atomic.Bool

	client *nexus.Client
	id     *remote.Identifier
}

// New returns a Nexus analyzer. c may be nil.
func New(cfg config.Nexus, c *cache.Cache, collector stats.Collector) *Analyzer {
	a := &Analyzer{cfg: cfg, cache: c, stats: collector}
	if cfg.Configured() {
		log.Infof("Enabling Nexus analyzer")
		a.enabled.Store(true)
	} else {
		log.Debugf("Nexus analyzer disabled, using Central instead")
	}
	return a
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

// Enabled reports whether the analyzer is configured and passed its preflight check.
func (a *Analyzer) Enabled() bool { return a.enabled.Load() }

// FileFilter matches jar files.
func (Analyzer) FileFilter() analyzer.FileFilter { return analyzer.ExtensionFilter("jar") }

// MaxConcurrency bounds the number of parallel requests to the server.
func (a *Analyzer) MaxConcurrency() int { return a.cfg.MaxConcurrency }

// Initialize runs the preflight check. A malformed URL or a server that
// doesn't answer as Nexus disables the analyzer permanently.
func (a *Analyzer) Initialize(ctx context.Context) error {
	if !a.Enabled() {
		return nil
	}
	client, err := nexus.New(nexus.Config{
		URL:      a.cfg.URL,
		Username: a.cfg.Username,
		Password: a.cfg.Password,
		UseProxy: a.cfg.UseProxy,
		Timeout:  a.cfg.Timeout.Std(),
	})
	if err != nil {
		a.disable("Property nexus.url is not a valid URL. Nexus analyzer disabled: %v", err)
		return fmt.Errorf("%w: %w", analyzer.ErrPreflightFailed, err)
	}
	version, err := client.Status(ctx)
	if err != nil {
		a.disable("There was an issue getting Nexus status. Disabling analyzer: %v", err)
		return err
	}
	log.Debugf("Nexus analyzer: server version %s", version)

	a.client = client
	a.id = &remote.Identifier{
		Name:   Name,
		Source: Source,
		Lookup: a.lookup,
		Cache:  cache.NewLookup[remote.Match](a.cache, Name, struct{ URL string }{a.cfg.URL}),
		Stats:  a.stats,
	}
	if a.cfg.FetchPOM {
		a.id.FetchPOM = client.FetchPOM
	}
	return nil
}

func (a *Analyzer) disable(format string, args ...any) {
	a.enabled.Store(false)
	log.WarnOnce("nexus-disabled", format, args...)
}

func (a *Analyzer) lookup(ctx context.Context, sha1 string) (*remote.Match, error) {
	art, err := a.client.Identify(ctx, sha1)
	if err != nil {
		return nil, err
	}
	p := purl.Maven(art.GroupID, art.ArtifactID, art.Version)
	if art.Classifier != "" {
		p.Qualifiers = map[string]string{purl.Classifier: art.Classifier}
	}
	return &remote.Match{PURL: p, ArtifactURL: art.ArtifactURL, POMURL: art.POMURL}, nil
}

// Analyze looks dep up by its SHA-1.
func (a *Analyzer) Analyze(ctx context.Context, input *analyzer.ScanInput, dep *dependency.Dependency) error {
	if !a.Enabled() || a.id == nil {
		return nil
	}
	return a.id.Analyze(ctx, input, dep)
}
