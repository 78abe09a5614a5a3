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

// Package list provides the analyzers known to depcheck, addressable by name.
package list

import (
	"fmt"
	"slices"

	"github.com/google/osv-depcheck/analyzer"
	"github.com/google/osv-depcheck/analyzer/archive"
	"github.com/google/osv-depcheck/analyzer/central"
	"github.com/google/osv-depcheck/analyzer/depsdev"
	"github.com/google/osv-depcheck/analyzer/filename"
	"github.com/google/osv-depcheck/analyzer/jar"
	"github.com/google/osv-depcheck/analyzer/nexus"
	"github.com/google/osv-depcheck/cache"
	"github.com/google/osv-depcheck/config"
	"github.com/google/osv-depcheck/plugin"
	"github.com/google/osv-depcheck/stats"
)

// Deps are the shared services analyzers are constructed with.
type Deps struct {
	Config config.Config
	// Cache may be nil.
	Cache *cache.Cache
	// Stats may be nil.
	Stats stats.Collector
}

// InitFn is the analyzer initializer function.
type InitFn func(d Deps) analyzer.Analyzer

type entry struct {
	name string
	init InitFn
}

// all lists every analyzer in registration order. Within a phase the engine
// runs analyzers in this order, so it also decides the order of evidence.
var all = []entry{
	{archive.Name, func(Deps) analyzer.Analyzer { return archive.New() }},
	{filename.Name, func(Deps) analyzer.Analyzer { return filename.New() }},
	{jar.Name, func(d Deps) analyzer.Analyzer { return jar.New(d.Config.Jar) }},
	{nexus.Name, func(d Deps) analyzer.Analyzer { return nexus.New(d.Config.Nexus, d.Cache, d.Stats) }},
	{central.Name, func(d Deps) analyzer.Analyzer {
		return central.New(d.Config.Central, d.Config.Nexus.Configured(), d.Cache, d.Stats)
	}},
	{depsdev.Name, func(d Deps) analyzer.Analyzer { return depsdev.New(d.Config.DepsDev, nil, d.Cache, d.Stats) }},
}

// Special names expanding to several analyzers.
const (
	NameDefault = "default"
	NameAll     = "all"
	NameOffline = "offline"
)

// Names returns the names of all analyzers in registration order.
func Names() []string {
	names := make([]string, 0, len(all))
	for _, e := range all {
		names = append(names, e.name)
	}
	return names
}

// All returns a new instance of every analyzer.
func All(d Deps) []analyzer.Analyzer {
	result := make([]analyzer.Analyzer, 0, len(all))
	for _, e := range all {
		result = append(result, e.init(d))
	}
	return result
}

// FromCapabilities returns all analyzers that can run under the specified
// capabilities of the scanning environment.
func FromCapabilities(d Deps, capabs *plugin.Capabilities) []analyzer.Analyzer {
	return plugin.FilterByCapabilities(All(d), capabs)
}

// FromNames returns a deduplicated list of analyzers from a list of names, in
// registration order. "default" and "all" select every analyzer (each one
// still honors its Enabled switch), "offline" the ones without network
// requirements.
func FromNames(names []string, d Deps) ([]analyzer.Analyzer, error) {
	selected := map[string]bool{}
	for _, name := range names {
		switch name {
		case NameDefault, NameAll:
			for _, e := range all {
				selected[e.name] = true
			}
		case NameOffline:
			for _, a := range FromCapabilities(d, &plugin.Capabilities{Network: plugin.NetworkOffline}) {
				selected[a.Name()] = true
			}
		default:
			if !slices.Contains(Names(), name) {
				return nil, fmt.Errorf("unknown analyzer %q", name)
			}
			selected[name] = true
		}
	}

	var result []analyzer.Analyzer
	for _, e := range all {
		if selected[e.name] {
			result = append(result, e.init(d))
		}
	}
	return result, nil
}

// FromName returns a single analyzer based on its exact name.
func FromName(name string, d Deps) (analyzer.Analyzer, error) {
	as, err := FromNames([]string{name}, d)
	if err != nil {
		return nil, err
	}
	if len(as) != 1 {
		return nil, fmt.Errorf("not an exact name for an analyzer: %q", name)
	}
	return as[0], nil
}
