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

// Package scanrunner provides the main function for running a scan with the depcheck binary.
package scanrunner

import (
	"context"

	depcheck "github.com/google/osv-depcheck"
	"github.com/google/osv-depcheck/binary/cli"
	"github.com/google/osv-depcheck/cache"
	"github.com/google/osv-depcheck/config"
	"github.com/google/osv-depcheck/log"
	"github.com/google/osv-depcheck/plugin"
	"github.com/google/osv-depcheck/stats"
	"github.com/google/osv-depcheck/version"
	"github.com/google/osv-depcheck/vulndb"
)

// RunScan executes the scan with the given CLI flags
// and returns the exit code passed to os.Exit() in the main binary.
func RunScan(flags *cli.Flags) int {
	return RunScanWithCollector(context.Background(), flags, stats.NoopCollector{})
}

// RunScanWithCollector is RunScan reporting scan metrics to collector.
func RunScanWithCollector(ctx context.Context, flags *cli.Flags, collector stats.Collector) int {
	if flags.PrintVersion {
		log.Infof("osv-depcheck v%s", version.ScannerVersion)
		return 0
	}

	if flags.Verbose {
		log.SetLogger(&log.DefaultLogger{Verbose: true})
	}

	cfg, err := flags.GetConfig()
	if err != nil {
		log.Errorf("%v.GetConfig(): %v", flags, err)
		return 1
	}

	c, err := cache.New(cfg.Cache.Size, cfg.Cache.Path)
	if err != nil {
		log.Errorf("Failed to open the lookup cache: %v", err)
		return 1
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warnf("Failed to close the lookup cache: %v", err)
		}
	}()

	analyzers, err := flags.GetAnalyzers(cfg, c, collector)
	if err != nil {
		log.Errorf("%v.GetAnalyzers(): %v", flags, err)
		return 1
	}
	engine, err := depcheck.New(&cfg, analyzers, depcheck.WithStats(collector))
	if err != nil {
		log.Errorf("Failed to set up the scan: %v", err)
		return 1
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Warnf("Failed to clean up after the scan: %v", err)
		}
	}()

	log.Infof("Running scan with %d analyzers", len(analyzers))
	log.Infof("Scan roots: %s", flags.Roots)
	result, err := engine.Scan(ctx, flags.Roots...)
	if err != nil {
		log.Errorf("Scan failed: %v", err)
		return 1
	}

	log.Infof("Scan status: %v", result.Status)
	for _, p := range result.Statuses {
		switch p.Status.Status {
		case plugin.ScanStatusSucceeded:
		case plugin.ScanStatusDisabled:
			log.Infof("Analyzer '%s' was disabled: %s", p.Name, p.Status.FailureReason)
		default:
			log.Warnf("Analyzer '%s' did not succeed. Status: %v", p.Name, p.Status)
		}
	}

	findings, err := lookupVulns(ctx, cfg, result)
	if err != nil {
		// Lookups that worked are still reported.
		log.Warnf("Vulnerability lookup incomplete: %v", err)
	}
	log.Infof("Found %d dependencies, %d of them with known vulnerabilities", len(result.Dependencies), len(findings))

	if err := flags.WriteScanResults(result, findings); err != nil {
		log.Errorf("Error writing scan results: %v", err)
		return 1
	}

	if failing := cli.ExceedsCVSS(findings, flags.FailOnCVSS); len(failing) > 0 {
		for _, f := range failing {
			log.Errorf("%s has vulnerabilities scoring %.1f or more", f.Identity, flags.FailOnCVSS)
		}
		return 1
	}

	if result.Status.Status != plugin.ScanStatusSucceeded {
		log.Errorf("Scan wasn't successful: %s", result.Status.FailureReason)
		return 1
	}

	return 0
}

func lookupVulns(ctx context.Context, cfg config.Config, result *depcheck.Result) ([]*vulndb.Finding, error) {
	sources, closeSources, err := cli.GetVulnSources(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := closeSources(); err != nil {
			log.Warnf("Failed to close vulnerability sources: %v", err)
		}
	}()
	if len(sources) == 0 {
		log.Infof("No vulnerability sources enabled")
		return nil, nil
	}
	return vulndb.Match(ctx, sources, result.Dependencies, cfg.Parallelism(cfg.OSV.MaxConcurrency))
}
