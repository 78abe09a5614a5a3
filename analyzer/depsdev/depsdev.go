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

// Package depsdev implements an analyzer that identifies package archives by
// querying deps.dev for their SHA-1.
package depsdev

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	pb "deps.dev/api/v3"
	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/analyzer/internal/remote"
	"github.com/google/osv-depcheck/cache"
	depsdevclient "github.com/google/osv-depcheck/clients/depsdev"
	"github.com/google/osv-depcheck/config"
	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/plugin"
	"github.com/google/osv-depcheck/purl"
	"github.com/google/osv-depcheck/stats"
	"github.com/google/osv-depcheck/version"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// Name is the unique name of this analyzer.
	Name = "depsdev"
	// Source is the evidence source of deps.dev matches.
	Source = "depsdev"
)

// Extensions lists the package archive types deps.dev has hashes for.
var Extensions = []string{"jar", "tgz", "whl", "nupkg", "crate"}

var systemTypes = map[pb.System]string{
	pb.System_MAVEN: purl.TypeMaven,
	pb.System_NPM:   purl.TypeNPM,
	pb.System_PYPI:  purl.TypePyPi,
	pb.System_NUGET: purl.TypeNuget,
	pb.System_CARGO: purl.TypeCargo,
	pb.System_GO:    purl.TypeGolang,
}

// Analyzer looks dependencies up on deps.dev.
type Analyzer struct {
	cfg   config.DepsDev
	cache *cache.Cache
	stats stats.Collector

	client depsdevclient.Client
	closer func() error
	id     *remote.Identifier
	once   sync.Once
}

// New returns a deps.dev analyzer. If client is nil a gRPC client for
// cfg.Address is created by Initialize. c may be nil.
func New(cfg config.DepsDev, client depsdevclient.Client, c *cache.Cache, collector stats.Collector) *Analyzer {
	return &Analyzer{cfg: cfg, client: client, cache: c, stats: collector}
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

// Enabled reports whether the analyzer is turned on in the config.
func (a *Analyzer) Enabled() bool { return a.cfg.Enabled }

// FileFilter matches package archives.
func (Analyzer) FileFilter() analyzer.FileFilter { return analyzer.ExtensionFilter(Extensions...) }

// MaxConcurrency bounds the number of parallel queries.
func (a *Analyzer) MaxConcurrency() int { return a.cfg.MaxConcurrency }

// Initialize creates the gRPC client unless one was supplied.
func (a *Analyzer) Initialize(context.Context) error {
	if !a.cfg.Enabled {
		return nil
	}
	if a.client == nil {
		c, err := depsdevclient.New(&depsdevclient.Config{Address: a.cfg.Address, UserAgent: version.UserAgent})
		if err != nil {
			a.cfg.Enabled = false
			return fmt.Errorf("%w: %w", analyzer.ErrPreflightFailed, err)
		}
		a.client = c
		a.closer = c.Close
	}
	a.id = &remote.Identifier{
		Name:   Name,
		Source: Source,
		Lookup: a.lookup,
		Cache:  cache.NewLookup[remote.Match](a.cache, Name, nil),
		Stats:  a.stats,
	}
	return nil
}

// Close closes the gRPC connection if the analyzer created it.
func (a *Analyzer) Close() error {
	var err error
	a.once.Do(func() {
		if a.closer != nil {
			err = a.closer()
		}
	})
	return err
}

func (a *Analyzer) lookup(ctx context.Context, sha1 string) (*remote.Match, error) {
	raw, err := hex.DecodeString(sha1)
	if err != nil || len(raw) != 20 {
		return nil, fmt.Errorf("%w: %q is not a SHA-1 digest", analyzer.ErrInvalidInput, sha1)
	}
	t := a.cfg.Timeout.Std()
	if t <= 0 {
		t = config.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, t)
	defer cancel()
	resp, err := a.client.Query(ctx, &pb.QueryRequest{Hash: &pb.Hash{Type: pb.HashType_SHA1, Value: raw}})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: sha1 %s", analyzer.ErrNotFound, sha1)
		}
		return nil, fmt.Errorf("%w: deps.dev query: %w", analyzer.ErrTransport, err)
	}
	for _, r := range resp.GetResults() {
		vk := r.GetVersion().GetVersionKey()
		if p, ok := toPURL(vk); ok {
			return &remote.Match{PURL: p}, nil
		}
	}
	return nil, fmt.Errorf("%w: sha1 %s", analyzer.ErrNotFound, sha1)
}

func toPURL(vk *pb.VersionKey) (purl.PackageURL, bool) {
	t, ok := systemTypes[vk.GetSystem()]
	if !ok || vk.GetName() == "" {
		return purl.PackageURL{}, false
	}
	p := purl.PackageURL{Type: t, Name: vk.GetName(), Version: vk.GetVersion()}
	switch t {
	case purl.TypeMaven:
		g, n, found := strings.Cut(vk.GetName(), ":")
		if !found {
			return purl.PackageURL{}, false
		}
		p.Namespace, p.Name = g, n
	case purl.TypeNPM, purl.TypeGolang:
		if i := strings.LastIndex(p.Name, "/"); i > 0 {
			p.Namespace, p.Name = p.Name[:i], p.Name[i+1:]
		}
	}
	return p, true
}

// Analyze looks dep up by its SHA-1.
func (a *Analyzer) Analyze(ctx context.Context, input *analyzer.ScanInput, dep *dependency.Dependency) error {
	if !a.cfg.Enabled || a.id == nil {
		return nil
	}
	return a.id.Analyze(ctx, input, dep)
}
