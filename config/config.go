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

// Package config holds the settings of a scan. A Config is built once, from
// Default and optionally a config file, and then handed out by value: each
// analyzer only receives the section it needs.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DefaultNexusURL is the public Sonatype service. Pointing the Nexus analyzer
// at it is treated as "not configured" and the Central analyzer is used
// instead.
const DefaultNexusURL = "https://repository.sonatype.org/service/local/"

// DefaultCentralURL is the Maven Central search endpoint.
const DefaultCentralURL = "https://search.maven.org/solrsearch/select"

// DefaultCentralRepositoryURL is where POMs of Central search hits are
// downloaded from.
const DefaultCentralRepositoryURL = "https://repo1.maven.org/maven2/"

// DefaultDepsDevAddress is the deps.dev gRPC endpoint.
const DefaultDepsDevAddress = "api.deps.dev:443"

// DefaultTimeout bounds each remote call.
const DefaultTimeout = 10 * time.Second

// maxConfigBytes caps the size of config files.
const maxConfigBytes = 1 << 20

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete configuration of a scan.
type Config struct {
	Scan    Scan    `yaml:"scan" toml:"scan" json:"scan"`
	Nexus   Nexus   `yaml:"nexus" toml:"nexus" json:"nexus"`
	Central Central `yaml:"central" toml:"central" json:"central"`
	DepsDev DepsDev `yaml:"depsdev" toml:"depsdev" json:"depsdev"`
	Jar     Jar     `yaml:"jar" toml:"jar" json:"jar"`
	Cache   Cache   `yaml:"cache" toml:"cache" json:"cache"`
	OSV     OSV     `yaml:"osv" toml:"osv" json:"osv"`
	LocalDB LocalDB `yaml:"localdb" toml:"localdb" json:"localdb"`
}

// Scan configures discovery, extraction and the engine.
type Scan struct {
	// Include and Exclude are glob patterns matched against slash-separated
	// paths relative to the scan root. An empty Include matches everything.
	Include []string `yaml:"include" toml:"include" json:"include"`
	Exclude []string `yaml:"exclude" toml:"exclude" json:"exclude"`
	// SymlinkDepth is how many directory symlinks may be followed in a row.
	// 0 doesn't follow symlinks.
	SymlinkDepth int `yaml:"symlink_depth" toml:"symlink_depth" json:"symlink_depth"`
	// MaxExtractionDepth is the deepest archive nesting level still unpacked.
	MaxExtractionDepth int `yaml:"max_extraction_depth" toml:"max_extraction_depth" json:"max_extraction_depth"`
	// MaxExtractedFileBytes caps the size of a single extracted entry.
	MaxExtractedFileBytes int64 `yaml:"max_extracted_file_bytes" toml:"max_extracted_file_bytes" json:"max_extracted_file_bytes"`
	// TempDir is the parent of the scan's private working directory. Empty
	// selects os.TempDir().
	TempDir string `yaml:"temp_dir" toml:"temp_dir" json:"temp_dir"`
	// Parallelism is the default worker count per analyzer.
	Parallelism int `yaml:"parallelism" toml:"parallelism" json:"parallelism"`
	// RequiredAnalyzers must initialize successfully or the scan is aborted.
	RequiredAnalyzers []string `yaml:"required_analyzers" toml:"required_analyzers" json:"required_analyzers"`
	// DisabledAnalyzers are skipped entirely.
	DisabledAnalyzers []string `yaml:"disabled_analyzers" toml:"disabled_analyzers" json:"disabled_analyzers"`
	// Offline disables every analyzer that needs network access.
	Offline bool `yaml:"offline" toml:"offline" json:"offline"`
}

// Nexus configures the Nexus repository analyzer.
type Nexus struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	URL     string `yaml:"url" toml:"url" json:"url"`
	// Username and Password enable basic authentication.
	Username string `yaml:"username" toml:"username" json:"username"`
	Password string `yaml:"password" toml:"password" json:"password"`
	// UseProxy routes requests through the environment's HTTP proxy.
	UseProxy       bool     `yaml:"use_proxy" toml:"use_proxy" json:"use_proxy"`
	FetchPOM       bool     `yaml:"fetch_pom" toml:"fetch_pom" json:"fetch_pom"`
	Timeout        Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
	MaxConcurrency int      `yaml:"max_concurrency" toml:"max_concurrency" json:"max_concurrency"`
}

// Configured reports whether a Nexus instance other than the public default
// was configured and enabled.
func (n Nexus) Configured() bool {
	return n.Enabled && n.URL != "" && n.URL != DefaultNexusURL
}

// Central configures the Maven Central search analyzer.
type Central struct {
	Enabled        bool     `yaml:"enabled" toml:"enabled" json:"enabled"`
	URL            string   `yaml:"url" toml:"url" json:"url"`
	RepositoryURL  string   `yaml:"repository_url" toml:"repository_url" json:"repository_url"`
	UseProxy       bool     `yaml:"use_proxy" toml:"use_proxy" json:"use_proxy"`
	FetchPOM       bool     `yaml:"fetch_pom" toml:"fetch_pom" json:"fetch_pom"`
	Timeout        Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
	MaxConcurrency int      `yaml:"max_concurrency" toml:"max_concurrency" json:"max_concurrency"`
}

// DepsDev configures the deps.dev hash lookup analyzer.
type DepsDev struct {
	Enabled        bool     `yaml:"enabled" toml:"enabled" json:"enabled"`
	Address        string   `yaml:"address" toml:"address" json:"address"`
	Timeout        Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
	MaxConcurrency int      `yaml:"max_concurrency" toml:"max_concurrency" json:"max_concurrency"`
}

// Jar configures the local Java archive analyzer.
type Jar struct {
	Enabled bool `yaml:"enabled" toml:"enabled" json:"enabled"`
	// MaxPOMBytes caps the size of embedded pom.xml files that are parsed.
	MaxPOMBytes int64 `yaml:"max_pom_bytes" toml:"max_pom_bytes" json:"max_pom_bytes"`
}

// Cache configures the remote lookup cache.
type Cache struct {
	Size int `yaml:"size" toml:"size" json:"size"`
	// Path of a bbolt database persisting lookups across runs. Empty keeps
	// the cache in memory.
	Path string `yaml:"path" toml:"path" json:"path"`
}

// OSV configures the OSV.dev vulnerability source.
type OSV struct {
	Enabled        bool `yaml:"enabled" toml:"enabled" json:"enabled"`
	MaxConcurrency int  `yaml:"max_concurrency" toml:"max_concurrency" json:"max_concurrency"`
}

// LocalDB configures the local SQLite vulnerability source.
type LocalDB struct {
	Path string `yaml:"path" toml:"path" json:"path"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Scan: Scan{
			MaxExtractionDepth:    16,
			MaxExtractedFileBytes: 1 << 30,
			Parallelism:           8,
		},
		Nexus: Nexus{
			Enabled:        true,
			URL:            DefaultNexusURL,
			FetchPOM:       true,
			Timeout:        Duration(DefaultTimeout),
			MaxConcurrency: 4,
		},
		Central: Central{
			Enabled:        true,
			URL:            DefaultCentralURL,
			RepositoryURL:  DefaultCentralRepositoryURL,
			FetchPOM:       true,
			Timeout:        Duration(DefaultTimeout),
			MaxConcurrency: 4,
		},
		DepsDev: DepsDev{
			Enabled:        false,
			Address:        DefaultDepsDevAddress,
			Timeout:        Duration(DefaultTimeout),
			MaxConcurrency: 8,
		},
		Jar: Jar{
			Enabled:     true,
			MaxPOMBytes: 4 << 20,
		},
		Cache: Cache{Size: 4096},
		OSV:   OSV{Enabled: true, MaxConcurrency: 8},
	}
}

// Load reads the config file at path on top of Default. The format is chosen
// by extension: .yaml/.yml, .toml, or .json/.jsonc (comments allowed).
func Load(path string) (Config, error) {
	cfg := Default()
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.Size() > maxConfigBytes {
		return Config{}, fmt.Errorf("config file too large: %s (%d bytes, max 1 MB)", path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		_, err = toml.Decode(string(data), &cfg)
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), &cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values no component can work with.
// A malformed Nexus URL is not an error here: the Nexus analyzer disables
// itself at initialization instead.
func (c Config) Validate() error {
	var errs []string
	if c.Scan.SymlinkDepth < 0 {
		errs = append(errs, "scan.symlink_depth must be >= 0")
	}
	if c.Scan.MaxExtractionDepth < 0 {
		errs = append(errs, "scan.max_extraction_depth must be >= 0")
	}
	if c.Scan.MaxExtractedFileBytes < 0 {
		errs = append(errs, "scan.max_extracted_file_bytes must be >= 0")
	}
	if c.Scan.Parallelism < 0 {
		errs = append(errs, "scan.parallelism must be >= 0")
	}
	for _, d := range []struct {
		name string
		v    Duration
	}{
		{"nexus.timeout", c.Nexus.Timeout},
		{"central.timeout", c.Central.Timeout},
		{"depsdev.timeout", c.DepsDev.Timeout},
	} {
		if d.v <= 0 {
			errs = append(errs, d.name+" must be > 0")
		}
	}
	if c.Central.Enabled {
		if _, err := url.Parse(c.Central.URL); err != nil || c.Central.URL == "" {
			errs = append(errs, fmt.Sprintf("central.url %q is not a valid URL", c.Central.URL))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
}

// Parallelism returns the worker count for an analyzer: its own setting if
// positive, else the scan default, else 1.
func (c Config) Parallelism(own int) int {
	if own > 0 {
		return own
	}
	if c.Scan.Parallelism > 0 {
		return c.Scan.Parallelism
	}
	return 1
}
