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

package archive_test

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/analyzer/archive"
	"github.com/google/osv-depcheck/dependency"
)

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "app.war")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	for _, n := range []string{"WEB-INF/lib/a.jar", "index.html"} {
		if _, err := w.Create(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	broken := filepath.Join(dir, "broken.zip")
	if err := os.WriteFile(broken, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		desc    string
		path    string
		want    []dependency.Evidence
		wantErr error
	}{
		{
			desc: "zip",
			path: zipPath,
			want: []dependency.Evidence{
				{Name: "format", Value: "zip", Source: "archive", Confidence: dependency.ConfidenceHighest},
				{Name: "entries", Value: "2", Source: "archive", Confidence: dependency.ConfidenceHighest},
			},
		},
		{
			desc: "tarball is not opened",
			path: filepath.Join(dir, "missing.tar.gz"),
			want: []dependency.Evidence{
				{Name: "format", Value: "tar.gz", Source: "archive", Confidence: dependency.ConfidenceHighest},
			},
		},
		{
			desc: "broken zip",
			path: broken,
			want: []dependency.Evidence{
				{Name: "format", Value: "zip", Source: "archive", Confidence: dependency.ConfidenceHighest},
			},
			wantErr: analyzer.ErrInvalidInput,
		},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			a := archive.New()
			dep := dependency.New(tc.path)
			if !analyzer.Supports(a, dep) {
				t.Fatalf("Supports(%q) = false, want true", tc.path)
			}
			err := a.Analyze(context.Background(), &analyzer.ScanInput{}, dep)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Analyze() error = %v, want %v", err, tc.wantErr)
			}
			if diff := cmp.Diff(tc.want, dep.Evidence(archive.Kind)); diff != "" {
				t.Errorf("Evidence(archive) returned unexpected diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsContainer(t *testing.T) {
	a := archive.New()
	for path, want := range map[string]bool{
		"x.jar":     true,
		"x.tgz":     true,
		"x.tar.zst": true,
		"x.class":   false,
	} {
		if got := a.IsContainer(path); got != want {
			t.Errorf("IsContainer(%q) = %v, want %v", path, got, want)
		}
	}
	var _ analyzer.ContainerRecognizer = a
}
