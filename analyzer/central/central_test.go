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

package central_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/analyzer/central"
	"github.com/google/osv-depcheck/cache"
	"github.com/google/osv-depcheck/config"
	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/testing/testcollector"
)

func TestEnabled(t *testing.T) {
	cfg := config.Default().Central
	if !central.New(cfg, false, nil, nil).Enabled() {
		t.Errorf("Enabled() = false without Nexus, want true")
	}
	if central.New(cfg, true, nil, nil).Enabled() {
		t.Errorf("Enabled() = true with Nexus configured, want false")
	}
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	var deps []*dependency.Dependency
	for _, n := range []string{"a.jar", "copy-of-a.jar"} {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("same"), 0o644); err != nil {
			t.Fatal(err)
		}
		deps = append(deps, dependency.New(p))
	}
	sha1, err := deps[0].SHA1()
	if err != nil {
		t.Fatal(err)
	}

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Query().Get("q") != fmt.Sprintf("1:%q", sha1) {
			fmt.Fprint(w, `{"response":{"numFound":0,"docs":[]}}`)
			return
		}
		fmt.Fprint(w, `{"response":{"numFound":1,"docs":[{"g":"org.example","a":"a","v":"2.0","p":"jar","ec":[".jar"]}]}}`)
	}))
	defer srv.Close()

	cfg := config.Default().Central
	cfg.URL = srv.URL + "/solrsearch/select"
	cfg.RepositoryURL = srv.URL + "/maven2/"
	c, err := cache.New(16, "")
	if err != nil {
		t.Fatal(err)
	}
	coll := testcollector.New()
	a := central.New(cfg, false, c, coll)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize(): %v", err)
	}
	for _, dep := range deps {
		if err := a.Analyze(context.Background(), &analyzer.ScanInput{TempDir: t.TempDir()}, dep); err != nil {
			t.Fatalf("Analyze(%s): %v", dep, err)
		}
	}

	if got := requests.Load(); got != 1 {
		t.Errorf("server got %d requests, want 1", got)
	}
	want := []dependency.Evidence{
		{Name: "version", Value: "2.0", Source: "central", Confidence: dependency.ConfidenceHigh},
	}
	for _, dep := range deps {
		if diff := cmp.Diff(want, dep.VersionEvidence()); diff != "" {
			t.Errorf("%s: VersionEvidence() returned unexpected diff (-want +got):\n%s", dep, diff)
		}
	}
	if got := coll.CachedLookups(central.Name); got != 1 {
		t.Errorf("CachedLookups() = %d, want 1", got)
	}
}
