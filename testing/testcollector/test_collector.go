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

// Package testcollector provides an implementation of stats.Collector that
// stores recorded metrics for verification in tests.
package testcollector

import (
	"sync"

	"github.com/google/osv-depcheck/stats"
)

// Collector implements the stats.Collector interface and simply stores metrics
// by archive path and analyzer name.
type Collector struct {
	stats.NoopCollector

	mu              sync.Mutex
	discovery       []*stats.DiscoveryStats
	extractionStats map[string]*stats.ExtractionStats
	analyzerStats   map[string][]*stats.AnalyzerStats
	lookups         map[string]map[stats.LookupResult]int
	cachedLookups   map[string]int
}

// New returns a new test Collector with maps initialized.
func New() *Collector {
	return &Collector{
		extractionStats: make(map[string]*stats.ExtractionStats),
		analyzerStats:   make(map[string][]*stats.AnalyzerStats),
		lookups:         make(map[string]map[stats.LookupResult]int),
		cachedLookups:   make(map[string]int),
	}
}

// AfterDiscovery stores the discovery metrics.
func (c *Collector) AfterDiscovery(s *stats.DiscoveryStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discovery = append(c.discovery, s)
}

// AfterExtraction stores the metrics of an extraction job.
func (c *Collector) AfterExtraction(s *stats.ExtractionStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extractionStats[s.Archive] = s
}

// AfterAnalyzerRun stores the metrics of an analyzer run.
func (c *Collector) AfterAnalyzerRun(name string, s *stats.AnalyzerStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.analyzerStats[name] = append(c.analyzerStats[name], s)
}

// AfterLookup counts remote lookups per analyzer and result.
func (c *Collector) AfterLookup(analyzer string, result stats.LookupResult, cached bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lookups[analyzer] == nil {
		c.lookups[analyzer] = make(map[stats.LookupResult]int)
	}
	c.lookups[analyzer][result]++
	if cached {
		c.cachedLookups[analyzer]++
	}
}

// DiscoveredFiles returns the number of files reported by the last discovery.
func (c *Collector) DiscoveredFiles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.discovery) == 0 {
		return 0
	}
	return c.discovery[len(c.discovery)-1].Files
}

// Extraction returns the metrics recorded for a given archive, or nil.
func (c *Collector) Extraction(archive string) *stats.ExtractionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extractionStats[archive]
}

// AnalyzerRuns returns the number of times the given analyzer reported a run.
func (c *Collector) AnalyzerRuns(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.analyzerStats[name])
}

// Lookups returns how many lookups with the given result an analyzer reported.
func (c *Collector) Lookups(analyzer string, result stats.LookupResult) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups[analyzer][result]
}

// CachedLookups returns how many lookups of an analyzer were served from cache.
func (c *Collector) CachedLookups(analyzer string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cachedLookups[analyzer]
}
