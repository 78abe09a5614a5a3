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

package cache_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/osv-depcheck/cache"
)

type artifact struct {
	GroupID, ArtifactID, Version string
}

func TestLookup(t *testing.T) {
	c, err := cache.New(8, "")
	if err != nil {
		t.Fatalf("cache.New(): %v", err)
	}
	l := cache.NewLookup[artifact](c, "nexus", nil)

	if _, hit := l.Get("abc"); hit {
		t.Errorf("Get() on empty cache hit")
	}
	want := &artifact{"org.example", "lib", "1.0"}
	l.Put("abc", want)
	l.Put("def", nil)

	got, hit := l.Get("abc")
	if !hit {
		t.Fatalf("Get(abc) missed")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get(abc) returned unexpected diff (-want +got):\n%s", diff)
	}
	got, hit = l.Get("def")
	if !hit || got != nil {
		t.Errorf("Get(def) = %v, %v, want cached not found", got, hit)
	}
}

func TestNilCache(t *testing.T) {
	var c *cache.Cache
	l := cache.NewLookup[artifact](c, "nexus", nil)
	l.Put("abc", &artifact{})
	if _, hit := l.Get("abc"); hit {
		t.Errorf("Get() on nil cache hit")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil cache: %v", err)
	}
}

func TestSettingsChangeBucket(t *testing.T) {
	type settings struct{ URL string }
	a := cache.NewLookup[artifact](nil, "nexus", settings{URL: "https://a/"})
	b := cache.NewLookup[artifact](nil, "nexus", settings{URL: "https://b/"})
	a2 := cache.NewLookup[artifact](nil, "nexus", settings{URL: "https://a/"})
	if a.Bucket() == b.Bucket() {
		t.Errorf("different settings share bucket %q", a.Bucket())
	}
	if a.Bucket() != a2.Bucket() {
		t.Errorf("equal settings got buckets %q and %q", a.Bucket(), a2.Bucket())
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookups.db")
	c, err := cache.New(8, path)
	if err != nil {
		t.Fatalf("cache.New(): %v", err)
	}
	cache.NewLookup[artifact](c, "central", nil).Put("abc", &artifact{"g", "a", "1"})
	cache.NewLookup[artifact](c, "central", nil).Put("nope", nil)
	if err := c.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}

	c, err = cache.New(8, path)
	if err != nil {
		t.Fatalf("cache.New() reopen: %v", err)
	}
	defer c.Close()
	l := cache.NewLookup[artifact](c, "central", nil)
	got, hit := l.Get("abc")
	if !hit {
		t.Fatalf("Get(abc) after reopen missed")
	}
	if diff := cmp.Diff(&artifact{"g", "a", "1"}, got); diff != "" {
		t.Errorf("Get(abc) returned unexpected diff (-want +got):\n%s", diff)
	}
	if got, hit := l.Get("nope"); !hit || got != nil {
		t.Errorf("Get(nope) = %v, %v, want cached not found", got, hit)
	}
}
