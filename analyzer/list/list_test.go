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

package list_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/analyzer/list"
	"github.com/google/osv-depcheck/config"
	"github.com/google/osv-depcheck/plugin"
)

func deps() list.Deps {
	return list.Deps{Config: config.Default()}
}

func names(as []analyzer.Analyzer) []string {
	var result []string
	for _, a := range as {
		result = append(result, a.Name())
	}
	return result
}

func TestAnalyzerNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range list.All(deps()) {
		if seen[a.Name()] {
			t.Errorf("analyzer name %q used more than once", a.Name())
		}
		seen[a.Name()] = true
	}
}

func TestAnalyzersInPhaseOrder(t *testing.T) {
	prev := analyzer.Phase(-1)
	for _, a := range list.All(deps()) {
		if a.Phase() < prev {
			t.Errorf("analyzer %q in phase %v registered after an analyzer of phase %v", a.Name(), a.Phase(), prev)
		}
		prev = a.Phase()
	}
}

func TestFromNames(t *testing.T) {
	testCases := []struct {
		desc    string
		names   []string
		want    []string
		wantErr error
	}{
		{
			desc:  "default",
			names: []string{"default"},
			want:  list.Names(),
		},
		{
			desc:  "registration order and deduplication",
			names: []string{"jar", "archive", "jar"},
			want:  []string{"archive", "jar"},
		},
		{
			desc:  "offline",
			names: []string{"offline"},
			want:  []string{"archive", "filename", "jar"},
		},
		{
			desc:    "unknown",
			names:   []string{"jar", "nope"},
			wantErr: cmpopts.AnyError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := list.FromNames(tc.names, deps())
			if !cmp.Equal(err, tc.wantErr, cmpopts.EquateErrors()) {
				t.Fatalf("list.FromNames(%v) error: %v, want %v", tc.names, err, tc.wantErr)
			}
			if diff := cmp.Diff(tc.want, names(got)); diff != "" {
				t.Errorf("list.FromNames(%v) returned unexpected diff (-want +got):\n%s", tc.names, diff)
			}
		})
	}
}

func TestFromName(t *testing.T) {
	a, err := list.FromName("nexus", deps())
	if err != nil {
		t.Fatalf("list.FromName(nexus): %v", err)
	}
	if err := plugin.ValidateRequirements(a, &plugin.Capabilities{Network: plugin.NetworkOffline}); err == nil {
		t.Errorf("nexus analyzer accepted an offline scan")
	}
	if _, err := list.FromName("default", deps()); err == nil {
		t.Errorf("list.FromName(default) succeeded, want error")
	}
}
