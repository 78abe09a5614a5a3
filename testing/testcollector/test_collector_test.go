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

package testcollector_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/osv-depcheck/stats"
	"github.com/google/osv-depcheck/testing/testcollector"
)

func TestCollector(t *testing.T) {
	tests := []struct {
		name       string
		extraction *stats.ExtractionStats
		lookups    []stats.LookupResult
		cached     int
	}{
		{
			name:       "extraction stats",
			extraction: &stats.ExtractionStats{Archive: "testdata/app.war", Depth: 1, Files: 3},
		},
		{
			name:    "lookups",
			lookups: []stats.LookupResult{stats.LookupResultFound, stats.LookupResultFound, stats.LookupResultNotFound},
			cached:  1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := testcollector.New()
			if tc.extraction != nil {
				c.AfterExtraction(tc.extraction)
				if diff := cmp.Diff(tc.extraction, c.Extraction(tc.extraction.Archive)); diff != "" {
					t.Errorf("Extraction(%q) returned unexpected diff (-want +got):\n%s", tc.extraction.Archive, diff)
				}
			}
			for i, r := range tc.lookups {
				c.AfterLookup("nexus", r, i < tc.cached)
			}
			want := 0
			for _, r := range tc.lookups {
				if r == stats.LookupResultFound {
					want++
				}
			}
			if got := c.Lookups("nexus", stats.LookupResultFound); got != want {
				t.Errorf("Lookups(found) = %d, want %d", got, want)
			}
			if got := c.CachedLookups("nexus"); got != tc.cached {
				t.Errorf("CachedLookups() = %d, want %d", got, tc.cached)
			}
		})
	}
}
