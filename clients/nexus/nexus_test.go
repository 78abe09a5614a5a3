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

package nexus_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/clients/nexus"
)

const knownSHA1 = "da39a3ee5e6b4b0d3255bfef95601890afd80709"

func newServer(t *testing.T, appName string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/service/local/status", func(w http.ResponseWriter, r *http.Request) {
		if u, p, ok := r.BasicAuth(); !ok || u != "user" || p != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, "<status><data><appName>%s</appName><version>2.15.1</version></data></status>", appName)
	})
	mux.HandleFunc("/service/local/identify/sha1/"+knownSHA1, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<artifact-resolution><data>
  <groupId>org.example</groupId>
  <artifactId>lib</artifactId>
  <version>1.0</version>
  <extension>jar</extension>
  <artifactLink>http://repo/org/example/lib/1.0/lib-1.0.jar</artifactLink>
</data></artifact-resolution>`)
	})
	mux.HandleFunc("/service/local/identify/sha1/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/pom", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<project/>")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, url string) *nexus.Client {
	t.Helper()
	c, err := nexus.New(nexus.Config{URL: url, Username: "user", Password: "secret", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("nexus.New(%q): %v", url, err)
	}
	return c
}

func TestNewMalformedURL(t *testing.T) {
	for _, u := range []string{"", "::", "ftp://host/", "http://"} {
		if _, err := nexus.New(nexus.Config{URL: u}); !errors.Is(err, nexus.ErrMalformedURL) {
			t.Errorf("nexus.New(%q) error = %v, want %v", u, err, nexus.ErrMalformedURL)
		}
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		desc    string
		appName string
		path    string
		wantErr error
	}{
		{desc: "nexus", appName: "Nexus Repository Manager", path: "/service/local/"},
		{desc: "missing trailing slash", appName: "Nexus Repository Manager", path: "/service/local"},
		{desc: "not nexus", appName: "Artifactory", path: "/service/local/", wantErr: analyzer.ErrPreflightFailed},
		{desc: "wrong path", appName: "Nexus", path: "/elsewhere/", wantErr: analyzer.ErrPreflightFailed},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			srv := newServer(t, tc.appName)
			_, err := newClient(t, srv.URL+tc.path).Status(context.Background())
			if !cmp.Equal(err, tc.wantErr, cmpopts.EquateErrors()) {
				t.Errorf("Status() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestStatusUnreachable(t *testing.T) {
	srv := newServer(t, "Nexus")
	c := newClient(t, srv.URL+"/service/local/")
	srv.Close()
	if _, err := c.Status(context.Background()); !errors.Is(err, analyzer.ErrPreflightFailed) || !errors.Is(err, analyzer.ErrTransport) {
		t.Errorf("Status() error = %v, want %v wrapping %v", err, analyzer.ErrPreflightFailed, analyzer.ErrTransport)
	}
}

func TestIdentify(t *testing.T) {
	srv := newServer(t, "Nexus")
	c := newClient(t, srv.URL+"/service/local/")
	tests := []struct {
		desc    string
		sha1    string
		want    *nexus.Artifact
		wantErr error
	}{
		{
			desc: "found",
			sha1: knownSHA1,
			want: &nexus.Artifact{
				GroupID:     "org.example",
				ArtifactID:  "lib",
				Version:     "1.0",
				Extension:   "jar",
				ArtifactURL: "http://repo/org/example/lib/1.0/lib-1.0.jar",
				POMURL:      "http://repo/org/example/lib/1.0/lib-1.0.pom",
			},
		},
		{desc: "upper case digest", sha1: "DA39A3EE5E6B4B0D3255BFEF95601890AFD80709", want: &nexus.Artifact{
			GroupID:     "org.example",
			ArtifactID:  "lib",
			Version:     "1.0",
			Extension:   "jar",
			ArtifactURL: "http://repo/org/example/lib/1.0/lib-1.0.jar",
			POMURL:      "http://repo/org/example/lib/1.0/lib-1.0.pom",
		}},
		{desc: "not found", sha1: "0000000000000000000000000000000000000000", wantErr: analyzer.ErrNotFound},
		{desc: "malformed", sha1: "xyz", wantErr: analyzer.ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := c.Identify(context.Background(), tc.sha1)
			if !cmp.Equal(err, tc.wantErr, cmpopts.EquateErrors()) {
				t.Fatalf("Identify(%q) error = %v, want %v", tc.sha1, err, tc.wantErr)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Identify(%q) returned unexpected diff (-want +got):\n%s", tc.sha1, diff)
			}
		})
	}
}

func TestIdentifyTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c, err := nexus.New(nexus.Config{URL: srv.URL + "/", Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Identify(context.Background(), knownSHA1); !errors.Is(err, analyzer.ErrTransport) {
		t.Errorf("Identify() error = %v, want %v", err, analyzer.ErrTransport)
	}
}

func TestFetchPOM(t *testing.T) {
	srv := newServer(t, "Nexus")
	c := newClient(t, srv.URL+"/service/local/")
	var buf bytes.Buffer
	if err := c.FetchPOM(context.Background(), srv.URL+"/pom", &buf, 0); err != nil {
		t.Fatalf("FetchPOM(): %v", err)
	}
	if got, want := buf.String(), "<project/>"; got != want {
		t.Errorf("FetchPOM() wrote %q, want %q", got, want)
	}
}
