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

// Package vulndb looks up known vulnerabilities for identified dependencies.
// It runs after the scan is finalized and never modifies dependencies.
package vulndb

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/identity"
	"github.com/google/osv-depcheck/log"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Record is a known vulnerability of a package version.
type Record struct {
	ID      string
	Aliases []string
	Summary string
	// Severity is the CVSS vector, if known.
	Severity string
	// Score is the CVSS base score, -1 if unknown.
	Score  float64
	Rating string
	// Source is the name of the Source that reported the record.
	Source string
	// References are sorted with SortReferences.
	References []Reference
}

// Reference is an external link describing a vulnerability.
type Reference struct {
	Name string
	URL  string
	// Source is the database that published the link.
	Source string
}

// SortReferences orders refs by source, name and URL and drops duplicates.
func SortReferences(refs []Reference) []Reference {
	slices.SortFunc(refs, func(a, b Reference) int {
		return cmp.Or(cmp.Compare(a.Source, b.Source), cmp.Compare(a.Name, b.Name), cmp.Compare(a.URL, b.URL))
	})
	return slices.Compact(refs)
}

// Source is a vulnerability database.
type Source interface {
	Name() string
	// Lookup returns the vulnerabilities affecting the package version id
	// names. Unknown packages yield no records and no error.
	Lookup(ctx context.Context, id identity.Identity) ([]Record, error)
}

// Finding is a dependency with at least one known vulnerability.
type Finding struct {
	Dependency *dependency.Dependency
	Identity   identity.Identity
	// Records are sorted by ID and unique by ID across sources.
	Records []Record
}

// Match resolves the identity of every dependency and queries all sources
// for it, with at most parallelism dependencies in flight. Dependencies
// without a versioned identity are skipped. Failing lookups don't stop the
// others; their errors are returned together with the findings.
func Match(ctx context.Context, sources []Source, deps []*dependency.Dependency, parallelism int) ([]*Finding, error) {
	if parallelism <= 0 {
		parallelism = 1
	}
	results := make([]*Finding, len(deps))
	var mu sync.Mutex
	var errs error

	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, dep := range deps {
		id, ok := identity.Resolve(dep)
		if !ok || id.PURL.Version == "" {
			continue
		}
		g.Go(func() error {
			var records []Record
			for _, s := range sources {
				if ctx.Err() != nil {
					break
				}
				rs, err := s.Lookup(ctx, id)
				if err != nil {
					log.Warnf("%s: looking up %s: %v", s.Name(), id, err)
					mu.Lock()
					errs = multierr.Append(errs, err)
					mu.Unlock()
					continue
				}
				records = merge(records, rs)
			}
			if len(records) > 0 {
				results[i] = &Finding{Dependency: dep, Identity: id, Records: records}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		errs = multierr.Append(errs, err)
	}

	var findings []*Finding
	for _, f := range results {
		if f != nil {
			findings = append(findings, f)
		}
	}
	return findings, errs
}

// merge adds the records of add whose ID isn't in records yet and sorts the
// result by ID.
func merge(records, add []Record) []Record {
	for _, r := range add {
		if !slices.ContainsFunc(records, func(e Record) bool { return e.ID == r.ID }) {
			records = append(records, r)
		}
	}
	slices.SortFunc(records, func(a, b Record) int { return cmp.Compare(a.ID, b.ID) })
	return records
}
