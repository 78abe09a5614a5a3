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

package pom_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/osv-depcheck/analyzer/internal/pom"
	"github.com/google/osv-depcheck/dependency"
)

func TestParse(t *testing.T) {
	tests := []struct {
		desc    string
		xml     string
		want    *pom.Descriptor
		wantErr bool
	}{
		{
			desc: "plain",
			xml: `<project>
  <groupId>org.example</groupId>
  <artifactId>lib</artifactId>
  <version>1.2.3</version>
  <name>Example Lib</name>
  <description>Does things</description>
</project>`,
			want: &pom.Descriptor{GroupID: "org.example", ArtifactID: "lib", Version: "1.2.3", Name: "Example Lib", Description: "Does things"},
		},
		{
			desc: "inherits from parent",
			xml: `<project>
  <parent>
    <groupId>org.parent</groupId>
    <artifactId>parent</artifactId>
    <version>7</version>
  </parent>
  <artifactId>child</artifactId>
</project>`,
			want: &pom.Descriptor{ArtifactID: "child", ParentGroupID: "org.parent", ParentVersion: "7"},
		},
		{
			desc: "unresolved property is dropped",
			xml: `<project>
  <groupId>org.example</groupId>
  <artifactId>lib</artifactId>
  <version>${revision}</version>
</project>`,
			want: &pom.Descriptor{GroupID: "org.example", ArtifactID: "lib"},
		},
		{
			desc:    "not xml",
			xml:     "{}",
			wantErr: true,
		},
		{
			desc:    "no coordinates",
			xml:     "<project><name>x</name></project>",
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := pom.Parse(strings.NewReader(tc.xml))
			if tc.wantErr {
				if err == nil {
					t.Errorf("Parse() succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(): %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse() returned unexpected diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAddEvidence(t *testing.T) {
	d := &pom.Descriptor{GroupID: "org.example", ArtifactID: "lib", ParentVersion: "2"}
	dep := dependency.New("/tmp/lib.jar")
	d.AddEvidence(dep, pom.Source, dependency.ConfidenceHighest)

	wantVendor := []dependency.Evidence{
		{Name: "groupid", Value: "org.example", Source: "pom", Confidence: dependency.ConfidenceHighest},
		{Name: "artifactid", Value: "lib", Source: "pom", Confidence: dependency.ConfidenceLow},
	}
	if diff := cmp.Diff(wantVendor, dep.VendorEvidence()); diff != "" {
		t.Errorf("VendorEvidence() returned unexpected diff (-want +got):\n%s", diff)
	}
	wantVersion := []dependency.Evidence{
		{Name: "parent-version", Value: "2", Source: "pom", Confidence: dependency.ConfidenceHigh},
	}
	if diff := cmp.Diff(wantVersion, dep.VersionEvidence()); diff != "" {
		t.Errorf("VersionEvidence() returned unexpected diff (-want +got):\n%s", diff)
	}
	if got, want := d.EffectiveVersion(), "2"; got != want {
		t.Errorf("EffectiveVersion() = %q, want %q", got, want)
	}
}
