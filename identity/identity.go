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

// Package identity derives the package coordinates of a finalized dependency
// from its identifiers and evidence. Vulnerability sources are queried with
// the result.
package identity

import (
	"strings"

	"deps.dev/util/semver"
	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/log"
	"github.com/google/osv-depcheck/purl"
)

// Where an Identity came from.
const (
	SourceIdentifier = "identifier"
	SourceEvidence   = "evidence"
)

// Identity is the best guess at which package a dependency is.
type Identity struct {
	PURL purl.PackageURL
	// Confidence is the lowest confidence among the values the identity
	// was built from.
	Confidence dependency.Confidence
	Source     string
}

func (i Identity) String() string { return i.PURL.String() }

// Resolve returns the identity of dep. Package URL identifiers recorded by
// the remote analyzers win over evidence. The second return value is false
// if dep carries nothing to build an identity from.
func Resolve(dep *dependency.Dependency) (Identity, bool) {
	if id, ok := fromIdentifiers(dep.Identifiers()); ok {
		return id, true
	}
	return fromEvidence(dep)
}

func fromIdentifiers(ids []dependency.Identifier) (Identity, bool) {
	var best Identity
	found := false
	for _, id := range ids {
		if id.Type != dependency.IdentifierTypePURL {
			continue
		}
		p, err := purl.FromString(id.Value)
		if err != nil {
			log.Debugf("ignoring identifier %q: %v", id.Value, err)
			continue
		}
		if !found || id.Confidence > best.Confidence {
			best = Identity{PURL: p, Confidence: id.Confidence, Source: SourceIdentifier}
			found = true
		}
	}
	return best, found
}

func fromEvidence(dep *dependency.Dependency) (Identity, bool) {
	var p purl.PackageURL
	var conf dependency.Confidence
	group, groupConf, hasGroup := top(dep.VendorEvidence(), "groupid")
	artifact, artifactConf, hasArtifact := top(dep.ProductEvidence(), "artifactid")
	if hasGroup && hasArtifact {
		p = purl.Maven(group, artifact, "")
		conf = min(groupConf, artifactConf)
	} else {
		name, nameConf, ok := top(dep.ProductEvidence(), "")
		if !ok {
			return Identity{}, false
		}
		p = purl.PackageURL{Type: purl.TypeGeneric, Name: name}
		conf = nameConf
	}
	if v, vConf, ok := BestVersion(p.Type, dep.VersionEvidence()); ok {
		p.Version = v
		conf = min(conf, vConf)
	}
	return Identity{PURL: p, Confidence: conf, Source: SourceEvidence}, true
}

// top returns the strongest evidence value with the given name, or with any
// name if name is empty. ev must be ordered by confidence.
func top(ev []dependency.Evidence, name string) (string, dependency.Confidence, bool) {
	for _, e := range ev {
		if name == "" || e.Name == name {
			return e.Value, e.Confidence, true
		}
	}
	return "", 0, false
}

func system(purlType string) semver.System {
	switch strings.ToLower(purlType) {
	case purl.TypeMaven:
		return semver.Maven
	case purl.TypePyPi:
		return semver.PyPI
	default:
		return semver.NPM
	}
}

// BestVersion picks a version for a package of the given purl type out of
// version evidence ordered by confidence. Only the highest confidence level
// is considered. Within it, values the ecosystem can parse beat values it
// can't, then the value reported by more sources wins, then the higher
// version.
func BestVersion(purlType string, ev []dependency.Evidence) (string, dependency.Confidence, bool) {
	if len(ev) == 0 {
		return "", 0, false
	}
	sys := system(purlType)
	topConf := ev[0].Confidence
	counts := map[string]int{}
	var values []string
	for _, e := range ev {
		if e.Confidence != topConf {
			break
		}
		if counts[e.Value] == 0 {
			values = append(values, e.Value)
		}
		counts[e.Value]++
	}

	best := values[0]
	for _, v := range values[1:] {
		if better(sys, v, best, counts) {
			best = v
		}
	}
	return best, topConf, true
}

func better(sys semver.System, a, b string, counts map[string]int) bool {
	aOK, bOK := parses(sys, a), parses(sys, b)
	if aOK != bOK {
		return aOK
	}
	if counts[a] != counts[b] {
		return counts[a] > counts[b]
	}
	return aOK && sys.Compare(a, b) > 0
}

func parses(sys semver.System, v string) bool {
	_, err := sys.Parse(v)
	return err == nil
}
