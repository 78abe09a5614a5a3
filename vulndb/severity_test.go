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

package vulndb_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/osv-depcheck/vulndb"
	"github.com/ossf/osv-schema/bindings/go/osvschema"
)

func TestScoreVector(t *testing.T) {
	testCases := []struct {
		vector     string
		wantScore  float64
		wantRating string
		wantErr    bool
	}{
		{vector: "", wantScore: -1, wantRating: "UNKNOWN"},
		{vector: "AV:N/AC:L/Au:N/C:P/I:P/A:P", wantScore: 7.5, wantRating: "HIGH"},
		{vector: "CVSS:3.0/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", wantScore: 9.8, wantRating: "CRITICAL"},
		{vector: "CVSS:3.1/AV:N/AC:H/PR:N/UI:R/S:U/C:L/I:N/A:N", wantScore: 3.1, wantRating: "LOW"},
		{vector: "CVSS:4.0/AV:N/AC:L/AT:N/PR:N/UI:N/VC:H/VI:H/VA:H/SC:N/SI:N/SA:N", wantScore: 9.3, wantRating: "CRITICAL"},
		{vector: "CVSS:9.9/AV:N", wantScore: -1, wantErr: true},
		{vector: "garbage", wantScore: -1, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.vector, func(t *testing.T) {
			score, rating, err := vulndb.ScoreVector(tc.vector)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ScoreVector(%q) error: %v, want error: %v", tc.vector, err, tc.wantErr)
			}
			if math.Abs(score-tc.wantScore) > 0.01 || rating != tc.wantRating {
				t.Errorf("ScoreVector(%q) = %v, %q, want %v, %q", tc.vector, score, rating, tc.wantScore, tc.wantRating)
			}
		})
	}
}

func TestRecordFromOSV(t *testing.T) {
	v := &osvschema.Vulnerability{
		Id:      "GHSA-xxxx",
		Summary: "summary",
		Severity: []*osvschema.Severity{
			{Type: osvschema.Severity_CVSS_V2, Score: "AV:N/AC:L/Au:N/C:P/I:P/A:P"},
			{Type: osvschema.Severity_CVSS_V3, Score: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"},
			{Type: osvschema.Severity_CVSS_V3, Score: "not a vector"},
		},
	}
	v.References = []*osvschema.Reference{
		{Type: osvschema.Reference_WEB, Url: "https://github.com/apache/logging-log4j2/pull/608"},
		{Type: osvschema.Reference_ADVISORY, Url: "https://nvd.nist.gov/vuln/detail/CVE-2021-44228"},
		{Type: osvschema.Reference_WEB, Url: "https://github.com/apache/logging-log4j2/pull/608"},
		{Type: osvschema.Reference_WEB},
	}
	r := vulndb.RecordFromOSV(v, "osv.dev")
	if r.ID != "GHSA-xxxx" || r.Severity != "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H" || r.Rating != "CRITICAL" || r.Source != "osv.dev" {
		t.Errorf("RecordFromOSV() = %+v, want the CVSS 3.1 severity", r)
	}
	wantRefs := []vulndb.Reference{
		{Name: "ADVISORY", URL: "https://nvd.nist.gov/vuln/detail/CVE-2021-44228", Source: "osv.dev"},
		{Name: "WEB", URL: "https://github.com/apache/logging-log4j2/pull/608", Source: "osv.dev"},
	}
	if diff := cmp.Diff(wantRefs, r.References); diff != "" {
		t.Errorf("RecordFromOSV() references unexpected diff (-want +got):\n%s", diff)
	}
}

func TestSortReferences(t *testing.T) {
	testCases := []struct {
		desc string
		refs []vulndb.Reference
		want []vulndb.Reference
	}{
		{desc: "empty"},
		{
			desc: "source then name then url",
			refs: []vulndb.Reference{
				{Name: "b", URL: "u1", Source: "osv.dev"},
				{Name: "a", URL: "u2", Source: "osv.dev"},
				{Name: "a", URL: "u1", Source: "osv.dev"},
				{Name: "z", URL: "u0", Source: "GHSA"},
			},
			want: []vulndb.Reference{
				{Name: "z", URL: "u0", Source: "GHSA"},
				{Name: "a", URL: "u1", Source: "osv.dev"},
				{Name: "a", URL: "u2", Source: "osv.dev"},
				{Name: "b", URL: "u1", Source: "osv.dev"},
			},
		},
		{
			desc: "duplicates",
			refs: []vulndb.Reference{
				{Name: "a", URL: "u", Source: "s"},
				{Name: "a", URL: "u", Source: "s"},
			},
			want: []vulndb.Reference{{Name: "a", URL: "u", Source: "s"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got := vulndb.SortReferences(tc.refs)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("SortReferences() returned unexpected diff (-want +got):\n%s", diff)
			}
		})
	}
}
