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

// Package httpclient holds the HTTP plumbing shared by the repository
// clients: timeouts, proxy selection, basic auth and the mapping of HTTP
// outcomes onto the analyzer error taxonomy.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/log"
)

// DefaultMaxBodyBytes caps responses read into memory.
const DefaultMaxBodyBytes = 16 << 20

// ErrBodyTooLarge is returned when a response exceeds the byte limit.
var ErrBodyTooLarge = errors.New("response body too large")

// DefaultTimeout is used when Config.Timeout is not positive.
const DefaultTimeout = 10 * time.Second

// Config configures a Client.
type Config struct {
	// Timeout bounds every request including reading the body. Values <= 0
	// select DefaultTimeout.
	Timeout time.Duration
	// UseProxy routes requests through the proxy from the environment.
	UseProxy  bool
	Username  string
	Password  string
	UserAgent string
}

// Client issues GET requests against a repository.
type Client struct {
	cfg  Config
	http *http.Client
}

// New returns a Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.UseProxy {
		tr.Proxy = http.ProxyFromEnvironment
	} else {
		tr.Proxy = nil
	}
	return &Client{cfg: cfg, http: &http.Client{Transport: tr, Timeout: cfg.Timeout}}
}

// Get fetches u and hands the body of a 200 response to read. A 404 is
// reported as analyzer.ErrNotFound; connection failures, timeouts and any
// other status as analyzer.ErrTransport.
func (c *Client) Get(ctx context.Context, u, accept string, read func(io.Reader) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: building request for %s: %w", analyzer.ErrInvalidInput, u, err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.Username != "" || c.cfg.Password != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	log.Debugf("GET %s", u)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", analyzer.ErrTransport, u, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: %s", analyzer.ErrNotFound, u)
	default:
		return fmt.Errorf("%w: GET %s: status %d", analyzer.ErrTransport, u, resp.StatusCode)
	}
	if err := read(resp.Body); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return fmt.Errorf("%w: reading %s: %w", analyzer.ErrTransport, u, err)
		}
		return err
	}
	return nil
}

// GetBytes returns the body of u, reading at most limit bytes (0 selects
// DefaultMaxBodyBytes).
func (c *Client) GetBytes(ctx context.Context, u, accept string, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	var body []byte
	err := c.Get(ctx, u, accept, func(r io.Reader) error {
		b, err := io.ReadAll(io.LimitReader(r, limit+1))
		if err != nil {
			return fmt.Errorf("%w: reading %s: %w", analyzer.ErrTransport, u, err)
		}
		if int64(len(b)) > limit {
			return fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, u, limit)
		}
		body = b
		return nil
	})
	return body, err
}

// Download streams the body of u into w, copying at most limit bytes (0
// selects DefaultMaxBodyBytes).
func (c *Client) Download(ctx context.Context, u string, w io.Writer, limit int64) error {
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	return c.Get(ctx, u, "", func(r io.Reader) error {
		n, err := io.Copy(w, io.LimitReader(r, limit+1))
		if err != nil {
			return fmt.Errorf("%w: downloading %s: %w", analyzer.ErrTransport, u, err)
		}
		if n > limit {
			return fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, u, limit)
		}
		return nil
	})
}
