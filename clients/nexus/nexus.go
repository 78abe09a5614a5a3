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

// Package nexus provides a client for the REST API of a Nexus 2 repository
// manager: the status endpoint used as a preflight check and the SHA-1
// identify endpoint.
package nexus

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/clients/internal/httpclient"
	"github.com/google/osv-depcheck/version"
	"golang.org/x/net/html/charset"
)

// ErrMalformedURL is returned by New for URLs that can't address a Nexus
// instance.
var ErrMalformedURL = errors.New("malformed Nexus URL")

var sha1Pattern = regexp.MustCompile("^[0-9a-fA-F]{40}$")

// Config is the configuration of the client.
type Config struct {
	// URL is the base of the REST API, e.g.
	// https://nexus.example.com/service/local/
	URL      string
	Username string
	Password string
	UseProxy bool
	Timeout  time.Duration
}

// Artifact is an artifact identified by Nexus.
type Artifact struct {
	GroupID     string
	ArtifactID  string
	Version     string
	Extension   string
	Classifier  string
	ArtifactURL string
	POMURL      string
}

// Client talks to one Nexus instance.
type Client struct {
	base *url.URL
	hc   *httpclient.Client
}

// New returns a client for the Nexus instance at cfg.URL.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrMalformedURL, cfg.URL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedURL, cfg.URL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Client{
		base: u,
		hc: httpclient.New(httpclient.Config{
			Timeout:   cfg.Timeout,
			UseProxy:  cfg.UseProxy,
			Username:  cfg.Username,
			Password:  cfg.Password,
			UserAgent: version.UserAgent,
		}),
	}, nil
}

type statusResponse struct {
	Data struct {
		AppName string `xml:"appName"`
		Version string `xml:"version"`
	} `xml:"data"`
}

// Status checks that the server is a Nexus instance. Any failure is reported
// as analyzer.ErrPreflightFailed.
func (c *Client) Status(ctx context.Context) (version string, err error) {
	u := c.base.JoinPath("status").String()
	body, err := c.hc.GetBytes(ctx, u, "application/xml", 0)
	if err != nil {
		return "", fmt.Errorf("%w: %w", analyzer.ErrPreflightFailed, err)
	}
	var s statusResponse
	if err := newDecoder(bytes.NewReader(body)).Decode(&s); err != nil {
		return "", fmt.Errorf("%w: decoding status of %s: %w", analyzer.ErrPreflightFailed, u, err)
	}
	if !strings.Contains(s.Data.AppName, "Nexus") {
		return "", fmt.Errorf("%w: %s is not a Nexus server (appName %q)", analyzer.ErrPreflightFailed, u, s.Data.AppName)
	}
	return s.Data.Version, nil
}

type identifyResponse struct {
	Data struct {
		GroupID      string `xml:"groupId"`
		ArtifactID   string `xml:"artifactId"`
		Version      string `xml:"version"`
		Extension    string `xml:"extension"`
		Classifier   string `xml:"classifier"`
		ArtifactLink string `xml:"artifactLink"`
		PomLink      string `xml:"pomLink"`
	} `xml:"data"`
}

// Identify looks up the artifact with the given SHA-1. Unknown digests are
// reported as analyzer.ErrNotFound, malformed ones as analyzer.ErrInvalidInput.
func (c *Client) Identify(ctx context.Context, sha1 string) (*Artifact, error) {
	if !sha1Pattern.MatchString(sha1) {
		return nil, fmt.Errorf("%w: %q is not a SHA-1 digest", analyzer.ErrInvalidInput, sha1)
	}
	u := c.base.JoinPath("identify", "sha1", strings.ToLower(sha1)).String()
	body, err := c.hc.GetBytes(ctx, u, "application/xml", 0)
	if err != nil {
		return nil, err
	}
	var r identifyResponse
	if err := newDecoder(bytes.NewReader(body)).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", analyzer.ErrTransport, u, err)
	}
	d := r.Data
	if d.GroupID == "" || d.ArtifactID == "" || d.Version == "" {
		return nil, fmt.Errorf("%w: %s returned no coordinates", analyzer.ErrNotFound, u)
	}
	a := &Artifact{
		GroupID:     d.GroupID,
		ArtifactID:  d.ArtifactID,
		Version:     d.Version,
		Extension:   d.Extension,
		Classifier:  d.Classifier,
		ArtifactURL: d.ArtifactLink,
		POMURL:      d.PomLink,
	}
	if a.POMURL == "" && a.Extension != "" && strings.HasSuffix(a.ArtifactURL, "."+a.Extension) {
		a.POMURL = strings.TrimSuffix(a.ArtifactURL, a.Extension) + "pom"
	}
	return a, nil
}

func newDecoder(r io.Reader) *xml.Decoder {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel
	decoder.Entity = xml.HTMLEntity
	return decoder
}

// FetchPOM downloads the POM at u into w.
func (c *Client) FetchPOM(ctx context.Context, u string, w io.Writer, limit int64) error {
	return c.hc.Download(ctx, u, w, limit)
}
