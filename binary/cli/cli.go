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

// Package cli defines the structures to store the CLI flags used by the depcheck binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	depcheck "github.com/google/osv-depcheck"
	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/analyzer/list"
	"github.com/google/osv-depcheck/binary/cdx"
	"github.com/google/osv-depcheck/binary/proto"
	"github.com/google/osv-depcheck/binary/spdx"
	"github.com/google/osv-depcheck/cache"
	"github.com/google/osv-depcheck/config"
	"github.com/google/osv-depcheck/converter"
	spdxconv "github.com/google/osv-depcheck/converter/spdx"
	"github.com/google/osv-depcheck/log"
	"github.com/google/osv-depcheck/stats"
	"github.com/google/osv-depcheck/version"
	"github.com/google/osv-depcheck/vulndb"
	"github.com/google/osv-depcheck/vulndb/localdb"
	"github.com/google/osv-depcheck/vulndb/osvdev"
	"github.com/spdx/tools-golang/spdx/v2/common"
	"go.uber.org/multierr"
)

// Array is a type to be passed to flag.Var that supports arrays passed as repeated flags,
// e.g. ./depcheck -o json=out.json -o spdx23-json=out.spdx.json
type Array []string

func (i *Array) String() string {
	return strings.Join(*i, ",")
}

// Set gets called whenever a new instance of a flag is read during CLI arg parsing.
// For example, in the case of -o foo -o bar the library will call arr.Set("foo") then arr.Set("bar").
func (i *Array) Set(value string) error {
	*i = append(*i, strings.TrimSpace(value))
	return nil
}

// Get returns the underlying []string value stored by this flag struct.
func (i *Array) Get() any {
	return i
}

// StringListFlag is a type to be passed to flag.Var that supports list flags passed as repeated
// flags, e.g. ./depcheck --analyzers a --analyzers b,c the library will call Set("a") then Set("b,c").
type StringListFlag struct {
	set          bool
	value        []string
	defaultValue []string
}

// NewStringListFlag creates a new StringListFlag with the given default value.
func NewStringListFlag(defaultValue []string) StringListFlag {
	return StringListFlag{defaultValue: defaultValue}
}

// Set gets called whenever a new instance of a flag is read during CLI arg parsing.
func (s *StringListFlag) Set(x string) error {
	s.value = append(s.value, strings.Split(x, ",")...)
	s.set = true
	return nil
}

// Get returns the underlying []string value stored by this flag struct.
func (s *StringListFlag) Get() any {
	return s.GetSlice()
}

// GetSlice returns the underlying []string value stored by this flag struct.
func (s *StringListFlag) GetSlice() []string {
	if s.set {
		return s.value
	}
	return s.defaultValue
}

func (s *StringListFlag) String() string {
	if len(s.value) == 0 {
		return ""
	}
	return fmt.Sprint(s.value)
}

// Flags contains a field for all the cli flags that can be set.
type Flags struct {
	PrintVersion       bool
	ConfigFile         string
	Roots              []string
	ResultFile         string
	Output             Array
	AnalyzersToRun     []string
	RequiredAnalyzers  []string
	DisabledAnalyzers  []string
	Include            []string
	Exclude            []string
	MaxExtractionDepth int
	Parallelism        int
	TempDir            string
	Offline            bool
	NexusURL           string
	CacheFile          string
	LocalDBPath        string
	SkipVulnLookup     bool
	// FailOnCVSS makes the scan fail if a finding scores at least this
	// value. Negative values disable the check.
	FailOnCVSS            float64
	SPDXDocumentName      string
	SPDXDocumentNamespace string
	SPDXCreators          string
	CDXComponentName      string
	CDXComponentVersion   string
	CDXAuthors            string
	Verbose               bool
}

var supportedOutputFormats = []string{
	"textproto", "binproto", "json", "spdx23-tag-value", "spdx23-json", "spdx23-yaml", "cdx-json", "cdx-xml",
}

// ValidateFlags validates the passed command line flags.
func ValidateFlags(flags *Flags) error {
	if flags.PrintVersion {
		return nil
	}
	if len(flags.ResultFile) == 0 && len(flags.Output) == 0 {
		return errors.New("either --result or --o needs to be set")
	}
	if len(flags.Roots) == 0 {
		return errors.New("no paths to scan were given")
	}
	if err := validateResultPath(flags.ResultFile); err != nil {
		return fmt.Errorf("--result %w", err)
	}
	if err := validateOutput(flags.Output); err != nil {
		return fmt.Errorf("--o %w", err)
	}
	for _, l := range []struct {
		flag string
		arg  []string
	}{
		{"--analyzers", flags.AnalyzersToRun},
		{"--required-analyzers", flags.RequiredAnalyzers},
		{"--disabled-analyzers", flags.DisabledAnalyzers},
		{"--include", flags.Include},
		{"--exclude", flags.Exclude},
	} {
		if err := validateMultiStringArg(l.arg); err != nil {
			return fmt.Errorf("%s: %w", l.flag, err)
		}
	}
	for _, g := range append(slices.Clone(flags.Include), flags.Exclude...) {
		if err := validateGlob(g); err != nil {
			return fmt.Errorf("glob %q: %w", g, err)
		}
	}
	if _, err := list.FromNames(flags.AnalyzersToRun, list.Deps{Config: config.Default()}); err != nil {
		return fmt.Errorf("--analyzers: %w", err)
	}
	if err := validateSPDXCreators(flags.SPDXCreators); err != nil {
		return fmt.Errorf("--spdx-creators: %w", err)
	}
	return nil
}

func validateResultPath(filePath string) error {
	if len(filePath) == 0 {
		return nil
	}
	return proto.ValidExtension(filePath)
}

func validateOutput(output []string) error {
	for _, item := range output {
		o := strings.Split(item, "=")
		if len(o) != 2 {
			return errors.New("invalid output format, should follow a format like -o json=result.json -o cdx-json=result.cdx.json")
		}
		oFormat := o[0]
		if !slices.Contains(supportedOutputFormats, oFormat) {
			return fmt.Errorf("output format %q not recognized, supported formats are %v", oFormat, supportedOutputFormats)
		}
	}
	return nil
}

func validateMultiStringArg(arg []string) error {
	for _, item := range arg {
		if len(item) == 0 {
			return errors.New("list item cannot be left empty")
		}
	}
	return nil
}

func validateGlob(arg string) error {
	_, err := glob.Compile(arg, '/')
	return err
}

func validateSPDXCreators(creators string) error {
	if creators == "" {
		return nil
	}
	for _, item := range strings.Split(creators, ",") {
		if c := strings.Split(item, ":"); len(c) != 2 || c[0] == "" || c[1] == "" {
			return fmt.Errorf("invalid creator %q, should follow a format like Tool:depcheck", item)
		}
	}
	return nil
}

// GetConfig returns the scan configuration: the config file, or the
// defaults, overridden by the flags that were set.
func (f *Flags) GetConfig() (config.Config, error) {
	cfg := config.Default()
	if f.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(f.ConfigFile); err != nil {
			return config.Config{}, err
		}
	}
	cfg.Scan.Include = append(cfg.Scan.Include, f.Include...)
	cfg.Scan.Exclude = append(cfg.Scan.Exclude, f.Exclude...)
	cfg.Scan.RequiredAnalyzers = append(cfg.Scan.RequiredAnalyzers, f.RequiredAnalyzers...)
	cfg.Scan.DisabledAnalyzers = append(cfg.Scan.DisabledAnalyzers, f.DisabledAnalyzers...)
	if f.MaxExtractionDepth >= 0 {
		cfg.Scan.MaxExtractionDepth = f.MaxExtractionDepth
	}
	if f.Parallelism > 0 {
		cfg.Scan.Parallelism = f.Parallelism
	}
	if f.TempDir != "" {
		cfg.Scan.TempDir = f.TempDir
	}
	if f.Offline {
		cfg.Scan.Offline = true
	}
	if f.NexusURL != "" {
		cfg.Nexus.URL = f.NexusURL
		cfg.Nexus.Enabled = true
	}
	if f.CacheFile != "" {
		cfg.Cache.Path = f.CacheFile
	}
	if f.LocalDBPath != "" {
		cfg.LocalDB.Path = f.LocalDBPath
	}
	if f.SkipVulnLookup {
		cfg.OSV.Enabled = false
		cfg.LocalDB.Path = ""
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// GetAnalyzers creates the analyzers selected by --analyzers.
func (f *Flags) GetAnalyzers(cfg config.Config, c *cache.Cache, collector stats.Collector) ([]analyzer.Analyzer, error) {
	return list.FromNames(f.AnalyzersToRun, list.Deps{Config: cfg, Cache: c, Stats: collector})
}

// GetVulnSources opens the vulnerability databases enabled in cfg. The
// returned function closes them.
func GetVulnSources(ctx context.Context, cfg config.Config) ([]vulndb.Source, func() error, error) {
	var sources []vulndb.Source
	closeAll := func() error { return nil }
	if cfg.LocalDB.Path != "" {
		db, err := localdb.Open(ctx, cfg.LocalDB.Path)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, db)
		closeAll = db.Close
	}
	if cfg.OSV.Enabled {
		if cfg.Scan.Offline {
			log.Infof("Offline scan, not querying %s", osvdev.Name)
		} else {
			sources = append(sources, osvdev.New(version.UserAgent))
		}
	}
	return sources, closeAll, nil
}

// GetSPDXConfig creates an SPDX Config struct based on the CLI flags.
func (f *Flags) GetSPDXConfig() spdxconv.Config {
	creators := []common.Creator{}
	if len(f.SPDXCreators) > 0 {
		for _, item := range strings.Split(f.SPDXCreators, ",") {
			c := strings.Split(item, ":")
			creators = append(creators, common.Creator{
				CreatorType: c[0],
				Creator:     c[1],
			})
		}
	}
	return spdxconv.Config{
		DocumentName:      f.SPDXDocumentName,
		DocumentNamespace: f.SPDXDocumentNamespace,
		Creators:          creators,
	}
}

// GetCDXConfig creates a CDXConfig struct based on the CLI flags.
func (f *Flags) GetCDXConfig() converter.CDXConfig {
	var authors []string
	if f.CDXAuthors != "" {
		authors = strings.Split(f.CDXAuthors, ",")
	}
	return converter.CDXConfig{
		ComponentName:    f.CDXComponentName,
		ComponentVersion: f.CDXComponentVersion,
		Authors:          authors,
	}
}

// WriteScanResults writes the scan results to files specified by the CLI flags.
func (f *Flags) WriteScanResults(result *depcheck.Result, findings []*vulndb.Finding) error {
	var pkgs []*converter.Package
	packages := func() []*converter.Package {
		if pkgs == nil {
			pkgs = converter.Packages(result.Dependencies)
		}
		return pkgs
	}

	var errs error
	if len(f.ResultFile) > 0 {
		log.Infof("Writing scan results to %s", f.ResultFile)
		report, err := proto.ScanResultToProto(result, findings)
		if err != nil {
			return err
		}
		errs = multierr.Append(errs, proto.Write(f.ResultFile, report))
	}
	for _, item := range f.Output {
		o := strings.Split(item, "=")
		oFormat := o[0]
		oPath := o[1]
		log.Infof("Writing scan results to %s", oPath)
		switch {
		case strings.Contains(oFormat, "proto") || oFormat == "json":
			report, err := proto.ScanResultToProto(result, findings)
			if err != nil {
				return err
			}
			errs = multierr.Append(errs, proto.WriteWithFormat(oPath, report, proto.Format(oFormat)))
		case strings.HasPrefix(oFormat, "spdx23"):
			doc := spdxconv.ToSPDX23(packages(), f.GetSPDXConfig())
			errs = multierr.Append(errs, spdx.Write23(doc, oPath, oFormat))
		case strings.HasPrefix(oFormat, "cdx"):
			doc := converter.ToCDX(packages(), findings, f.GetCDXConfig())
			errs = multierr.Append(errs, cdx.Write(doc, oPath, oFormat))
		}
	}
	return errs
}

// ExceedsCVSS returns the findings with a record scoring at least threshold.
// A negative threshold matches nothing.
func ExceedsCVSS(findings []*vulndb.Finding, threshold float64) []*vulndb.Finding {
	if threshold < 0 {
		return nil
	}
	var result []*vulndb.Finding
	for _, f := range findings {
		if slices.ContainsFunc(f.Records, func(r vulndb.Record) bool { return r.Score >= threshold }) {
			result = append(result, f)
		}
	}
	return result
}
