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

// Package stats contains interfaces and utilities relating to the collection of
// statistics from a dependency scan.
package stats

import (
	"time"

	"github.com/google/osv-depcheck/plugin"
)

// Collector is a component which is notified when certain events occur. It can be implemented with
// different metric backends to enable monitoring of the engine.
type Collector interface {
	// AfterDiscovery is called once the scan roots were walked.
	AfterDiscovery(stats *DiscoveryStats)
	// AfterExtraction is called for every extraction job, successful or not.
	AfterExtraction(stats *ExtractionStats)
	// AfterAnalyzerRun is called when an analyzer finished processing all
	// dependencies of its phase.
	AfterAnalyzerRun(name string, stats *AnalyzerStats)
	AfterScan(runtime time.Duration, status *plugin.ScanStatus)

	// AfterLookup may be called by remote analyzers after every remote call.
	// cached reports whether the answer came from the lookup cache.
	AfterLookup(analyzer string, result LookupResult, cached bool)
}

// NoopCollector implements Collector by doing nothing.
type NoopCollector struct{}

// AfterDiscovery implements Collector by doing nothing.
func (c NoopCollector) AfterDiscovery(stats *DiscoveryStats) {}

// AfterExtraction implements Collector by doing nothing.
func (c NoopCollector) AfterExtraction(stats *ExtractionStats) {}

// AfterAnalyzerRun implements Collector by doing nothing.
func (c NoopCollector) AfterAnalyzerRun(name string, stats *AnalyzerStats) {}

// AfterScan implements Collector by doing nothing.
func (c NoopCollector) AfterScan(runtime time.Duration, status *plugin.ScanStatus) {}

// AfterLookup implements Collector by doing nothing.
func (c NoopCollector) AfterLookup(analyzer string, result LookupResult, cached bool) {}
