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

package extraction_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/osv-depcheck/extraction"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

type testEntry struct {
	name    string
	content string
	symlink string
	dir     bool
}

func writeZip(t *testing.T, path string, entries []testEntry) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for _, e := range entries {
		if e.dir {
			if _, err := w.Create(e.name + "/"); err != nil {
				t.Fatalf("zip.Create(%q): %v", e.name, err)
			}
			continue
		}
		fw, err := w.Create(e.name)
		if err != nil {
			t.Fatalf("zip.Create(%q): %v", e.name, err)
		}
		if _, err := fw.Write([]byte(e.content)); err != nil {
			t.Fatalf("zip write %q: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip.Close(): %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("os.WriteFile(%q): %v", path, err)
	}
}

func tarBytes(t *testing.T, entries []testEntry) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	w := tar.NewWriter(buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0644, Size: int64(len(e.content)), Typeflag: tar.TypeReg}
		switch {
		case e.dir:
			hdr = &tar.Header{Name: e.name + "/", Mode: 0755, Typeflag: tar.TypeDir}
		case e.symlink != "":
			hdr = &tar.Header{Name: e.name, Linkname: e.symlink, Typeflag: tar.TypeSymlink}
		}
		if err := w.WriteHeader(hdr); err != nil {
			t.Fatalf("tar.WriteHeader(%q): %v", e.name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := w.Write([]byte(e.content)); err != nil {
				t.Fatalf("tar write %q: %v", e.name, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("tar.Close(): %v", err)
	}
	return buf.Bytes()
}

func compress(t *testing.T, format extraction.Format, data []byte) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	var w io.WriteCloser
	var err error
	switch format {
	case extraction.FormatTar:
		return data
	case extraction.FormatTarGzip:
		w = gzip.NewWriter(buf)
	case extraction.FormatTarZstd:
		w, err = zstd.NewWriter(buf)
	case extraction.FormatTarXz:
		w, err = xz.NewWriter(buf)
	default:
		t.Fatalf("unsupported test format %v", format)
	}
	if err != nil {
		t.Fatalf("creating %v writer: %v", format, err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("compressing: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing compressor: %v", err)
	}
	return buf.Bytes()
}

func rels(res *extraction.Result) []string {
	out := []string{}
	for _, f := range res.Files {
		out = append(out, f.Rel)
	}
	sort.Strings(out)
	return out
}

func TestSafeJoin(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "dest")
	tests := []struct {
		entry   string
		wantRel string
		wantErr bool
	}{
		{entry: "a/b.txt", wantRel: "a/b.txt"},
		{entry: "./a/./b.txt", wantRel: "a/b.txt"},
		{entry: "a//b.txt", wantRel: "a/b.txt"},
		{entry: "a\\b.txt", wantRel: "a/b.txt"},
		{entry: "../../evil.sh", wantErr: true},
		{entry: "a/../../evil.sh", wantErr: true},
		{entry: "a/../b.txt", wantErr: true},
		{entry: "..", wantErr: true},
		{entry: "/etc/passwd", wantErr: true},
		{entry: "..\\..\\evil.bat", wantErr: true},
		{entry: "C:\\Windows\\evil.dll", wantErr: true},
		{entry: "c:evil.dll", wantErr: true},
		{entry: "\\\\server\\share\\evil", wantErr: true},
		{entry: "", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.entry, func(t *testing.T) {
			target, rel, err := extraction.SafeJoin(dest, tc.entry)
			if tc.wantErr {
				if !errors.Is(err, extraction.ErrPathTraversalRejected) {
					t.Errorf("SafeJoin(%q) error = %v, want %v", tc.entry, err, extraction.ErrPathTraversalRejected)
				}
				return
			}
			if err != nil {
				t.Fatalf("SafeJoin(%q): %v", tc.entry, err)
			}
			if rel != tc.wantRel {
				t.Errorf("SafeJoin(%q) rel = %q, want %q", tc.entry, rel, tc.wantRel)
			}
			if want := filepath.Join(dest, filepath.FromSlash(tc.wantRel)); target != want {
				t.Errorf("SafeJoin(%q) target = %q, want %q", tc.entry, target, want)
			}
		})
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	archive := filepath.Join(root, "evil.zip")
	writeZip(t, archive, []testEntry{
		{name: "../../evil.sh", content: "rm -rf /"},
		{name: "docs/readme.txt", content: "hello"},
		{name: "/abs.txt", content: "x"},
		{name: "..\\win.txt", content: "x"},
		{name: "lib/payload.jar", content: "jar"},
	})
	dest := filepath.Join(root, "out", "dest")

	res, err := extraction.New(0).Extract(context.Background(), extraction.Job{Archive: archive, Destination: dest, MaxDepth: 1})
	if err != nil {
		t.Fatalf("Extract(): %v", err)
	}
	if diff := cmp.Diff([]string{"docs/readme.txt", "lib/payload.jar"}, rels(res)); diff != "" {
		t.Errorf("Extract() files returned unexpected diff (-want +got):\n%s", diff)
	}
	if got := len(res.Rejected); got != 3 {
		t.Errorf("len(Rejected) = %d, want 3: %v", got, res.Rejected)
	}
	for _, r := range res.Rejected {
		if !errors.Is(r.Err, extraction.ErrPathTraversalRejected) {
			t.Errorf("Rejected[%q] = %v, want %v", r.Entry, r.Err, extraction.ErrPathTraversalRejected)
		}
	}
	// Nothing may be written next to the destination.
	for _, p := range []string{filepath.Join(root, "evil.sh"), filepath.Join(root, "out", "evil.sh"), filepath.Join(root, "win.txt")} {
		if _, err := os.Stat(p); err == nil {
			t.Errorf("%s was written outside the destination", p)
		}
	}
	outEntries, err := os.ReadDir(filepath.Join(root, "out"))
	if err != nil {
		t.Fatalf("os.ReadDir(): %v", err)
	}
	if len(outEntries) != 1 {
		t.Errorf("out dir has %d entries, want only the destination", len(outEntries))
	}
}

func TestExtractNameConflictSkipsOnlyThatEntry(t *testing.T) {
	root := t.TempDir()
	zipArchive := filepath.Join(root, "clash.zip")
	entries := []testEntry{
		{name: "a", content: "file"},
		{name: "a/inner.jar", content: "jar"},
		{name: "a/sub", dir: true},
		{name: "z/good.jar", content: "good"},
	}
	writeZip(t, zipArchive, entries)
	tarArchive := filepath.Join(root, "clash.tar")
	if err := os.WriteFile(tarArchive, tarBytes(t, entries), 0644); err != nil {
		t.Fatalf("os.WriteFile(): %v", err)
	}

	for _, archive := range []string{zipArchive, tarArchive} {
		t.Run(filepath.Base(archive), func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "d")
			res, err := extraction.New(0).Extract(context.Background(), extraction.Job{Archive: archive, Destination: dest, MaxDepth: 1})
			if err != nil {
				t.Fatalf("Extract(): %v", err)
			}
			if diff := cmp.Diff([]string{"a", "z/good.jar"}, rels(res)); diff != "" {
				t.Errorf("Extract() files returned unexpected diff (-want +got):\n%s", diff)
			}
			var rejected []string
			for _, r := range res.Rejected {
				rejected = append(rejected, r.Entry)
				if !errors.Is(r.Err, extraction.ErrEntryConflict) {
					t.Errorf("Rejected[%q] = %v, want %v", r.Entry, r.Err, extraction.ErrEntryConflict)
				}
			}
			sort.Strings(rejected)
			if diff := cmp.Diff([]string{"a/inner.jar", "a/sub/"}, rejected); diff != "" {
				t.Errorf("Extract() rejected entries returned unexpected diff (-want +got):\n%s", diff)
			}
		})
	}
}

func readTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	tree := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		tree[filepath.ToSlash(rel)] = string(content)
		return nil
	})
	if err != nil {
		t.Fatalf("walking %s: %v", dir, err)
	}
	return tree
}

func TestExtractTwiceIsIdentical(t *testing.T) {
	root := t.TempDir()
	archive := filepath.Join(root, "app.war")
	writeZip(t, archive, []testEntry{
		{name: "WEB-INF", dir: true},
		{name: "WEB-INF/lib/a.jar", content: "aaa"},
		{name: "WEB-INF/web.xml", content: "<web-app/>"},
		{name: "index.html", content: "<html/>"},
	})
	e := extraction.New(0)
	var trees []map[string]string
	for _, d := range []string{"one", "two"} {
		dest := filepath.Join(root, d)
		if _, err := e.Extract(context.Background(), extraction.Job{Archive: archive, Destination: dest}); err != nil {
			t.Fatalf("Extract(%s): %v", d, err)
		}
		trees = append(trees, readTree(t, dest))
	}
	if diff := cmp.Diff(trees[0], trees[1]); diff != "" {
		t.Errorf("extracted trees differ (-first +second):\n%s", diff)
	}
	if len(trees[0]) != 3 {
		t.Errorf("extracted %d files, want 3", len(trees[0]))
	}
}

func TestExtractAcceptFilter(t *testing.T) {
	root := t.TempDir()
	archive := filepath.Join(root, "a.zip")
	writeZip(t, archive, []testEntry{
		{name: "b.zip", content: "zip"},
		{name: "readme.txt", content: "txt"},
		{name: "Foo.class", content: "class"},
	})
	accept := func(rel string) bool { return filepath.Ext(rel) != ".class" }
	res, err := extraction.New(0).Extract(context.Background(), extraction.Job{
		Archive: archive, Destination: filepath.Join(root, "d"), Accept: accept,
	})
	if err != nil {
		t.Fatalf("Extract(): %v", err)
	}
	if diff := cmp.Diff([]string{"b.zip", "readme.txt"}, rels(res)); diff != "" {
		t.Errorf("Extract() files returned unexpected diff (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(root, "d", "Foo.class")); err == nil {
		t.Errorf("rejected entry Foo.class was written")
	}
	if res.Entries != 3 {
		t.Errorf("Entries = %d, want 3", res.Entries)
	}
}

func TestExtractEmptyArchive(t *testing.T) {
	root := t.TempDir()
	archive := filepath.Join(root, "empty.jar")
	writeZip(t, archive, nil)
	res, err := extraction.New(0).Extract(context.Background(), extraction.Job{Archive: archive, Destination: filepath.Join(root, "d")})
	if err != nil {
		t.Fatalf("Extract(): %v", err)
	}
	if len(res.Files) != 0 || len(res.Rejected) != 0 {
		t.Errorf("Extract() = %+v, want empty result", res)
	}
}

func TestExtractErrors(t *testing.T) {
	root := t.TempDir()
	notZip := filepath.Join(root, "broken.jar")
	if err := os.WriteFile(notZip, []byte("definitely not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	notTar := filepath.Join(root, "broken.tgz")
	if err := os.WriteFile(notTar, []byte("definitely not gzip"), 0644); err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(root, "good.zip")
	writeZip(t, good, []testEntry{{name: "a.txt", content: "a"}})
	blocker := filepath.Join(root, "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		desc    string
		job     extraction.Job
		wantErr error
	}{
		{
			desc:    "not a zip",
			job:     extraction.Job{Archive: notZip, Destination: filepath.Join(root, "d1")},
			wantErr: extraction.ErrArchiveUnreadable,
		},
		{
			desc:    "not gzip",
			job:     extraction.Job{Archive: notTar, Destination: filepath.Join(root, "d2")},
			wantErr: extraction.ErrArchiveUnreadable,
		},
		{
			desc:    "unknown format",
			job:     extraction.Job{Archive: filepath.Join(root, "x.txt"), Destination: filepath.Join(root, "d3")},
			wantErr: extraction.ErrArchiveUnreadable,
		},
		{
			desc:    "too deep",
			job:     extraction.Job{Archive: good, Destination: filepath.Join(root, "d4"), Depth: 3, MaxDepth: 2},
			wantErr: extraction.ErrMaxExtractionDepthExceeded,
		},
		{
			desc:    "destination below a file",
			job:     extraction.Job{Archive: good, Destination: filepath.Join(blocker, "d5")},
			wantErr: extraction.ErrDestinationUnwritable,
		},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := extraction.New(0).Extract(context.Background(), tc.job)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Extract() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestExtractDepthNotExceededDoesNotWrite(t *testing.T) {
	root := t.TempDir()
	archive := filepath.Join(root, "a.zip")
	writeZip(t, archive, []testEntry{{name: "x.txt", content: "x"}})
	dest := filepath.Join(root, "d")
	_, err := extraction.New(0).Extract(context.Background(), extraction.Job{Archive: archive, Destination: dest, Depth: 2, MaxDepth: 1})
	if !errors.Is(err, extraction.ErrMaxExtractionDepthExceeded) {
		t.Fatalf("Extract() error = %v, want %v", err, extraction.ErrMaxExtractionDepthExceeded)
	}
	if _, err := os.Stat(dest); err == nil {
		t.Errorf("destination %s was created for an over-deep job", dest)
	}
}

func TestExtractEntryTooLarge(t *testing.T) {
	root := t.TempDir()
	archive := filepath.Join(root, "bomb.zip")
	writeZip(t, archive, []testEntry{
		{name: "big.bin", content: string(bytes.Repeat([]byte("A"), 100))},
		{name: "small.txt", content: "ok"},
	})
	res, err := extraction.New(10).Extract(context.Background(), extraction.Job{Archive: archive, Destination: filepath.Join(root, "d")})
	if err != nil {
		t.Fatalf("Extract(): %v", err)
	}
	if diff := cmp.Diff([]string{"small.txt"}, rels(res)); diff != "" {
		t.Errorf("Extract() files returned unexpected diff (-want +got):\n%s", diff)
	}
	if len(res.Rejected) != 1 || !errors.Is(res.Rejected[0].Err, extraction.ErrEntryTooLarge) {
		t.Errorf("Rejected = %v, want one %v", res.Rejected, extraction.ErrEntryTooLarge)
	}
	if _, err := os.Stat(filepath.Join(root, "d", "big.bin")); err == nil {
		t.Errorf("oversized entry was left on disk")
	}
}

func TestExtractTarFormats(t *testing.T) {
	entries := []testEntry{
		{name: "pkg", dir: true},
		{name: "pkg/lib.jar", content: "jar"},
		{name: "pkg/link", symlink: "/etc/passwd"},
		{name: "../escape.txt", content: "x"},
		{name: "pkg/README", content: "readme"},
	}
	tests := []struct {
		name   string
		format extraction.Format
	}{
		{"layer.tar", extraction.FormatTar},
		{"layer.tar.gz", extraction.FormatTarGzip},
		{"layer.tgz", extraction.FormatTarGzip},
		{"layer.tar.xz", extraction.FormatTarXz},
		{"layer.tar.zst", extraction.FormatTarZstd},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			archive := filepath.Join(root, tc.name)
			if err := os.WriteFile(archive, compress(t, tc.format, tarBytes(t, entries)), 0644); err != nil {
				t.Fatal(err)
			}
			dest := filepath.Join(root, "d")
			res, err := extraction.New(0).Extract(context.Background(), extraction.Job{Archive: archive, Destination: dest})
			if err != nil {
				t.Fatalf("Extract(): %v", err)
			}
			if diff := cmp.Diff([]string{"pkg/README", "pkg/lib.jar"}, rels(res)); diff != "" {
				t.Errorf("Extract() files returned unexpected diff (-want +got):\n%s", diff)
			}
			if len(res.Rejected) != 1 {
				t.Errorf("len(Rejected) = %d, want 1", len(res.Rejected))
			}
			if _, err := os.Lstat(filepath.Join(dest, "pkg", "link")); err == nil {
				t.Errorf("symlink entry was materialized")
			}
			got, err := os.ReadFile(filepath.Join(dest, "pkg", "README"))
			if err != nil || string(got) != "readme" {
				t.Errorf("pkg/README = %q, %v, want %q", got, err, "readme")
			}
		})
	}
}

func TestExtractCancelled(t *testing.T) {
	root := t.TempDir()
	archive := filepath.Join(root, "a.zip")
	writeZip(t, archive, []testEntry{{name: "x.txt", content: "x"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := extraction.New(0).Extract(ctx, extraction.Job{Archive: archive, Destination: filepath.Join(root, "d")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Extract() error = %v, want %v", err, context.Canceled)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want extraction.Format
	}{
		{"/a/b/lib.jar", extraction.FormatZip},
		{"APP.WAR", extraction.FormatZip},
		{"x.nupkg", extraction.FormatZip},
		{"x.tar", extraction.FormatTar},
		{"x.tar.gz", extraction.FormatTarGzip},
		{"x.TGZ", extraction.FormatTarGzip},
		{"x.txz", extraction.FormatTarXz},
		{"x.tar.zst", extraction.FormatTarZstd},
		{"x.tar.bz2", extraction.FormatTarBzip2},
		{"x.gz", extraction.FormatUnknown},
		{"readme.txt", extraction.FormatUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if got := extraction.DetectFormat(tc.path); got != tc.want {
				t.Errorf("DetectFormat(%q) = %v, want %v", tc.path, got, tc.want)
			}
			if got, want := extraction.IsContainer(tc.path), tc.want != extraction.FormatUnknown; got != want {
				t.Errorf("IsContainer(%q) = %v, want %v", tc.path, got, want)
			}
		})
	}
}
