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

package osvdev_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/osv-depcheck/identity"
	"github.com/google/osv-depcheck/purl"
	"github.com/google/osv-depcheck/vulndb"
	"github.com/google/osv-depcheck/vulndb/osvdev"
	"github.com/ossf/osv-schema/bindings/go/osvschema"
)

type fakeAPI struct {
	// ids maps "ecosystem/name@version" to vulnerability IDs.
	ids   map[string][]string
	vulns map[string]*osvschema.Vulnerability
	err   error
}

func (f *fakeAPI) QueryIDs(_ context.Context, name, ecosystem, version string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ids[fmt.Sprintf("%s/%s@%s", ecosystem, name, version)], nil
}

func (f *fakeAPI) GetVulnByID(_ context.Context, id string) (*osvschema.Vulnerability, error) {
	v, ok := f.vulns[id]
	if !ok {
		return nil, fmt.Errorf("vuln %q not found", id)
	}
	return v, nil
}

func TestLookup(t *testing.T) {
	errDown := errors.New("service down")
	api := &fakeAPI{
		ids: map[string][]string{
			"Maven/org.apache.logging.log4j:log4j-core@2.14.1": {"GHSA-jfh8-c2jp-5v3q"},
			"Maven/com.example:dangling@1.0":                   {"GHSA-missing"},
		},
		vulns: map[string]*osvschema.Vulnerability{
			"GHSA-jfh8-c2jp-5v3q": {
				Id:      "GHSA-jfh8-c2jp-5v3q",
				Aliases: []string{"CVE-2021-44228"},
				Summary: "Remote code injection in Log4j",
				Severity: []*osvschema.Severity{{
					Type:  osvschema.Severity_CVSS_V3,
					Score: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H",
				}},
			},
		},
	}

	testCases := []struct {
		desc    string
		api     *fakeAPI
		id      identity.Identity
		want    []vulndb.Record
		wantErr error
	}{
		{
			desc: "vulnerable",
			api:  api,
			id:   identity.Identity{PURL: purl.Maven("org.apache.logging.log4j", "log4j-core", "2.14.1")},
			want: []vulndb.Record{{
				ID:       "GHSA-jfh8-c2jp-5v3q",
				Aliases:  []string{"CVE-2021-44228"},
				Summary:  "Remote code injection in Log4j",
				Severity: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H",
				Score:    10.0,
				Rating:   "CRITICAL",
				Source:   osvdev.Name,
			}},
		},
		{
			desc: "not vulnerable",
			api:  api,
			id:   identity.Identity{PURL: purl.Maven("org.apache.logging.log4j", "log4j-core", "2.17.1")},
			want: []vulndb.Record{},
		},
		{
			desc: "no ecosystem",
			api:  api,
			id:   identity.Identity{PURL: purl.PackageURL{Type: purl.TypeGeneric, Name: "jquery", Version: "3.7"}},
		},
		{
			desc: "no version",
			api:  api,
			id:   identity.Identity{PURL: purl.Maven("org.apache.logging.log4j", "log4j-core", "")},
		},
		{
			desc:    "query failure",
			api:     &fakeAPI{err: errDown},
			id:      identity.Identity{PURL: purl.Maven("org.apache.logging.log4j", "log4j-core", "2.14.1")},
			wantErr: errDown,
		},
		{
			desc:    "details failure",
			api:     api,
			id:      identity.Identity{PURL: purl.Maven("com.example", "dangling", "1.0")},
			wantErr: cmpopts.AnyError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := osvdev.NewWithAPI(tc.api).Lookup(context.Background(), tc.id)
			if !cmp.Equal(err, tc.wantErr, cmpopts.EquateErrors()) {
				t.Fatalf("Lookup() error: %v, want %v", err, tc.wantErr)
			}
			if diff := cmp.Diff(tc.want, got, cmpopts.EquateApprox(0, 0.01)); diff != "" {
				t.Errorf("Lookup() returned unexpected diff (-want +got):\n%s", diff)
			}
		})
	}
}
