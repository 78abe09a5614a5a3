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

// Package central provides a client for the Maven Central search API.
package central

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/clients/internal/httpclient"
	"github.com/google/osv-depcheck/version"
	"github.com/tidwall/gjson"
)

var sha1Pattern = regexp.MustCompile("^[0-9a-fA-F]{40}$")

// Config is the configuration of the client.
type Config struct {
	// SearchURL is the solrsearch select endpoint.
	SearchURL string
	// RepositoryURL is the root of the Maven repository POMs and artifacts
	// are downloaded from.
	RepositoryURL string
	UseProxy      bool
	Timeout       time.Duration
}

// Artifact is a search hit.
type Artifact struct {
	GroupID     string
	ArtifactID  string
	Version     string
	Packaging   string
	ArtifactURL string
	POMURL      string
}

// Client queries Maven Central.
type Client struct {
	search *url.URL
	repo   *url.URL
	hc     *httpclient.Client
}

// New returns a client.
func New(cfg Config) (*Client, error) {
	s, err := url.Parse(cfg.SearchURL)
	if err != nil || s.Host == "" {
		return nil, fmt.Errorf("invalid Central search URL %q", cfg.SearchURL)
	}
	r, err := url.Parse(cfg.RepositoryURL)
	if err != nil || r.Host == "" {
		return nil, fmt.Errorf("invalid Central repository URL %q", cfg.RepositoryURL)
	}
	return &Client{
		search: s,
		repo:   r,
		hc:     httpclient.New(httpclient.Config{Timeout: cfg.Timeout, UseProxy: cfg.UseProxy, UserAgent: version.UserAgent}),
	}, nil
}

// SearchSHA1 returns the artifacts with the given SHA-1. No hits is reported
// as analyzer.ErrNotFound, a malformed digest as analyzer.ErrInvalidInput.
func (c *Client) SearchSHA1(ctx context.Context, sha1 string) ([]Artifact, error) {
	if !sha1Pattern.MatchString(sha1) {
		return nil, fmt.Errorf("%w: %q is not a SHA-1 digest", analyzer.ErrInvalidInput, sha1)
	}
	u := *c.search
	q := u.Query()
	q.Set("q", fmt.Sprintf("1:%q", strings.ToLower(sha1)))
	q.Set("wt", "json")
	u.RawQuery = q.Encode()

	body, err := c.hc.GetBytes(ctx, u.String(), "application/json", 0)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s returned invalid JSON", analyzer.ErrTransport, u.String())
	}
	resp := gjson.GetBytes(body, "response")
	if !resp.Exists() {
		return nil, fmt.Errorf("%w: %s returned no response object", analyzer.ErrTransport, u.String())
	}
	if resp.Get("numFound").Int() == 0 {
		return nil, fmt.Errorf("%w: sha1 %s", analyzer.ErrNotFound, sha1)
	}

	var out []Artifact
	resp.Get("docs").ForEach(func(_, doc gjson.Result) bool {
		a := Artifact{
			GroupID:    doc.Get("g").String(),
			ArtifactID: doc.Get("a").String(),
			Version:    doc.Get("v").String(),
			Packaging:  doc.Get("p").String(),
		}
		if a.GroupID == "" || a.ArtifactID == "" || a.Version == "" {
			return true
		}
		var classifiers []string
		for _, ec := range doc.Get("ec").Array() {
			classifiers = append(classifiers, ec.String())
		}
		if slices.Contains(classifiers, ".pom") {
			a.POMURL = c.fileURL(a, "pom")
		}
		if a.Packaging != "" && slices.Contains(classifiers, "."+a.Packaging) {
			a.ArtifactURL = c.fileURL(a, a.Packaging)
		}
		out = append(out, a)
		return true
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: sha1 %s", analyzer.ErrNotFound, sha1)
	}
	return out, nil
}

func (c *Client) fileURL(a Artifact, ext string) string {
	parts := append(strings.Split(a.GroupID, "."), a.ArtifactID, a.Version, a.ArtifactID+"-"+a.Version+"."+ext)
	return c.repo.JoinPath(parts...).String()
}

// FetchPOM downloads the POM at u into w.
func (c *Client) FetchPOM(ctx context.Context, u string, w io.Writer, limit int64) error {
	return c.hc.Download(ctx, u, w, limit)
}
