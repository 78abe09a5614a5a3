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

// Package osvdev is a vulndb.Source backed by the OSV.dev API.
package osvdev

import (
	"context"
	"fmt"

	"github.com/google/osv-depcheck/identity"
	"github.com/google/osv-depcheck/vulndb"
	"github.com/ossf/osv-schema/bindings/go/osvschema"
	"golang.org/x/sync/errgroup"
	"osv.dev/bindings/go/osvdev"
	"osv.dev/bindings/go/osvdevexperimental"
)

// Name is the source name recorded on the returned records.
const Name = "osv.dev"

const maxConcurrentRequests = 100

// API is the part of OSV.dev the source uses.
type API interface {
	// QueryIDs returns the IDs of the vulnerabilities affecting a package version.
	QueryIDs(ctx context.Context, name, ecosystem, version string) ([]string, error)
	GetVulnByID(ctx context.Context, id string) (*osvschema.Vulnerability, error)
}

type client struct {
	c *osvdev.OSVClient
}

func (c client) QueryIDs(ctx context.Context, name, ecosystem, version string) ([]string, error) {
	queries := []*osvdev.Query{{
		Package: osvdev.Package{Name: name, Ecosystem: ecosystem},
		Version: version,
	}}
	resp, err := osvdevexperimental.BatchQueryPaging(ctx, c.c, queries)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, batch := range resp.Results {
		for _, v := range batch.Vulns {
			ids = append(ids, v.ID)
		}
	}
	return ids, nil
}

func (c client) GetVulnByID(ctx context.Context, id string) (*osvschema.Vulnerability, error) {
	return c.c.GetVulnByID(ctx, id)
}

// Source queries OSV.dev.
type Source struct {
	api API
}

var _ vulndb.Source = &Source{}

// New returns a Source using the default OSV.dev client.
func New(userAgent string) *Source {
	c := osvdev.DefaultClient()
	if userAgent != "" {
		c.Config.UserAgent = userAgent
	}
	return NewWithAPI(client{c: c})
}

// NewWithAPI returns a Source using api.
func NewWithAPI(api API) *Source {
	return &Source{api: api}
}

// Name returns the source name.
func (*Source) Name() string { return Name }

// Lookup queries the vulnerabilities of id and fetches their details.
// Identities without an OSV ecosystem or version yield no records.
func (s *Source) Lookup(ctx context.Context, id identity.Identity) ([]vulndb.Record, error) {
	eco := id.PURL.Ecosystem()
	if eco == "" || id.PURL.Version == "" {
		return nil, nil
	}
	ids, err := s.api.QueryIDs(ctx, id.PURL.PackageName(), eco, id.PURL.Version)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", id, err)
	}

	records := make([]vulndb.Record, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRequests)
	for i, vulnID := range ids {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil //nolint:nilerr // another request already failed
			}
			v, err := s.api.GetVulnByID(ctx, vulnID)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", vulnID, err)
			}
			records[i] = vulndb.RecordFromOSV(v, Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
