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

package dependency

import (
	"fmt"
	"sort"
)

// Confidence ranks how much an Evidence entry can be trusted.
type Confidence int

// Confidence values, ordered from weakest to strongest.
const (
	ConfidenceLow Confidence = iota + 1
	ConfidenceMedium
	ConfidenceHigh
	ConfidenceHighest
)

// Valid reports whether c is one of the defined confidence levels.
func (c Confidence) Valid() bool {
	return c >= ConfidenceLow && c <= ConfidenceHighest
}

func (c Confidence) String() string {
	switch c {
	case ConfidenceLow:
		return "LOW"
	case ConfidenceMedium:
		return "MEDIUM"
	case ConfidenceHigh:
		return "HIGH"
	case ConfidenceHighest:
		return "HIGHEST"
	default:
		return fmt.Sprintf("Confidence(%d)", int(c))
	}
}

// Kind names an evidence group.
type Kind string

// The three identity kinds. Any other string is an auxiliary kind.
const (
	KindVendor  Kind = "vendor"
	KindProduct Kind = "product"
	KindVersion Kind = "version"
)

// Evidence is a single observation about the identity of a dependency.
type Evidence struct {
	Name       string
	Value      string
	Source     string
	Confidence Confidence
}

type evidenceKey struct {
	name, value, source string
}

type rankedEvidence struct {
	Evidence
	seq int
}

// evidenceGroup is a set of Evidence keyed by (name, value, source), kept
// sorted by confidence descending and insertion order ascending.
type evidenceGroup struct {
	entries []*rankedEvidence
	index   map[evidenceKey]*rankedEvidence
	nextSeq int
}

func newEvidenceGroup() *evidenceGroup {
	return &evidenceGroup{index: map[evidenceKey]*rankedEvidence{}}
}

// add inserts e and reports whether the group changed.
func (g *evidenceGroup) add(e Evidence) bool {
	k := evidenceKey{e.Name, e.Value, e.Source}
	if existing, ok := g.index[k]; ok {
		if e.Confidence <= existing.Confidence {
			return false
		}
		existing.Confidence = e.Confidence
		g.sort()
		return true
	}
	r := &rankedEvidence{Evidence: e, seq: g.nextSeq}
	g.nextSeq++
	g.index[k] = r
	// Appending keeps the slice sorted for everything inserted at or below the
	// current minimum, which is the common case.
	g.entries = append(g.entries, r)
	if n := len(g.entries); n > 1 && g.entries[n-2].Confidence < r.Confidence {
		g.sort()
	}
	return true
}

func (g *evidenceGroup) sort() {
	sort.SliceStable(g.entries, func(i, j int) bool {
		a, b := g.entries[i], g.entries[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.seq < b.seq
	})
}

func (g *evidenceGroup) list() []Evidence {
	out := make([]Evidence, 0, len(g.entries))
	for _, r := range g.entries {
		out = append(out, r.Evidence)
	}
	return out
}

func (g *evidenceGroup) hasSource(source string) bool {
	for _, r := range g.entries {
		if r.Source == source {
			return true
		}
	}
	return false
}
