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

// Package converter provides utility functions for converting depcheck's scan
// results to standardized SBOM formats.
package converter

import (
	"strings"
	"time"

	"bitbucket.org/creachadair/stringset"
	"github.com/CycloneDX/cyclonedx-go"
	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/identity"
	"github.com/google/osv-depcheck/log"
	"github.com/google/osv-depcheck/vulndb"
	"github.com/google/uuid"
)

// ToolName is the tool reported in generated documents.
const ToolName = "osv-depcheck"

// ToolURL is the website reported for ToolName.
const ToolURL = "https://github.com/google/osv-depcheck"

// Package is one identified package and every place it was found at. Several
// dependencies resolving to the same package URL share a Package.
type Package struct {
	Identity identity.Identity
	// Locations are the sorted virtual paths of the dependencies.
	Locations []string
	// Sources are the sorted names of the analyzers that produced evidence.
	Sources []string
	// Hashes of the first dependency seen, keyed by algorithm.
	Hashes map[dependency.Algorithm]string
}

// Packages groups deps by their resolved package URL, in the order the
// packages are first seen. Dependencies without an identity are skipped.
func Packages(deps []*dependency.Dependency) []*Package {
	var pkgs []*Package
	byPURL := map[string]*Package{}
	locations := map[string]stringset.Set{}
	sources := map[string]stringset.Set{}
	for _, dep := range deps {
		id, ok := identity.Resolve(dep)
		if !ok {
			log.Debugf("%s has no identity, leaving it out of the SBOM", dep.VirtualPath)
			continue
		}
		key := id.String()
		p, ok := byPURL[key]
		if !ok {
			p = &Package{Identity: id, Hashes: hashes(dep)}
			byPURL[key] = p
			pkgs = append(pkgs, p)
			locations[key] = stringset.New()
			sources[key] = stringset.New()
		} else if id.Confidence > p.Identity.Confidence {
			p.Identity = id
		}
		locs, srcs := locations[key], sources[key]
		locs.Add(dep.VirtualPath)
		for _, k := range dep.Kinds() {
			for _, e := range dep.Evidence(k) {
				srcs.Add(e.Source)
			}
		}
	}
	for _, p := range pkgs {
		key := p.Identity.String()
		p.Locations = locations[key].Elements()
		p.Sources = sources[key].Elements()
	}
	return pkgs
}

func hashes(dep *dependency.Dependency) map[dependency.Algorithm]string {
	h := map[dependency.Algorithm]string{}
	for _, alg := range []dependency.Algorithm{dependency.AlgorithmSHA1, dependency.AlgorithmSHA256} {
		d, err := dep.Digest(alg)
		if err != nil {
			log.Debugf("no %s digest for %s: %v", alg, dep.VirtualPath, err)
			continue
		}
		h[alg] = d
	}
	return h
}

// CDXConfig describes custom settings that should be applied to the generated CDX file.
type CDXConfig struct {
	ComponentName    string
	ComponentType    string
	ComponentVersion string
	Authors          []string
}

// ToCDX converts the packages and vulnerability findings of a scan into a
// CycloneDX document. Findings whose package isn't among pkgs are dropped.
func ToCDX(pkgs []*Package, findings []*vulndb.Finding, c CDXConfig) *cyclonedx.BOM {
	bom := cyclonedx.NewBOM()
	bom.Metadata = &cyclonedx.Metadata{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		Component: &cyclonedx.Component{
			Name:    c.ComponentName,
			Type:    cyclonedx.ComponentType(c.ComponentType),
			Version: c.ComponentVersion,
			BOMRef:  uuid.New().String(),
		},
		Tools: &cyclonedx.ToolsChoice{
			Components: &[]cyclonedx.Component{
				{
					Type: cyclonedx.ComponentTypeApplication,
					Name: ToolName,
					ExternalReferences: &[]cyclonedx.ExternalReference{
						{
							URL:  ToolURL,
							Type: cyclonedx.ERTypeWebsite,
						},
					},
				},
			},
		},
	}
	if len(c.Authors) > 0 {
		authors := make([]cyclonedx.OrganizationalContact, 0, len(c.Authors))
		for _, author := range c.Authors {
			authors = append(authors, cyclonedx.OrganizationalContact{
				Name: author,
			})
		}
		bom.Metadata.Authors = &authors
	}

	refs := map[string]string{}
	comps := make([]cyclonedx.Component, 0, len(pkgs))
	for _, p := range pkgs {
		comp := toComponent(p)
		refs[p.Identity.String()] = comp.BOMRef
		comps = append(comps, comp)
	}
	bom.Components = &comps

	if vulns := toVulnerabilities(findings, refs); len(vulns) > 0 {
		bom.Vulnerabilities = &vulns
	}
	return bom
}

func toComponent(p *Package) cyclonedx.Component {
	comp := cyclonedx.Component{
		BOMRef:     uuid.New().String(),
		Type:       cyclonedx.ComponentTypeLibrary,
		Group:      p.Identity.PURL.Namespace,
		Name:       p.Identity.PURL.Name,
		Version:    p.Identity.PURL.Version,
		PackageURL: p.Identity.String(),
	}
	var hs []cyclonedx.Hash
	if d, ok := p.Hashes[dependency.AlgorithmSHA1]; ok {
		hs = append(hs, cyclonedx.Hash{Algorithm: cyclonedx.HashAlgoSHA1, Value: d})
	}
	if d, ok := p.Hashes[dependency.AlgorithmSHA256]; ok {
		hs = append(hs, cyclonedx.Hash{Algorithm: cyclonedx.HashAlgoSHA256, Value: d})
	}
	if len(hs) > 0 {
		comp.Hashes = &hs
	}
	if len(p.Locations) > 0 {
		occ := make([]cyclonedx.EvidenceOccurrence, 0, len(p.Locations))
		for _, loc := range p.Locations {
			occ = append(occ, cyclonedx.EvidenceOccurrence{
				Location: loc,
			})
		}
		comp.Evidence = &cyclonedx.Evidence{
			Occurrences: &occ,
		}
	}
	return comp
}

// toVulnerabilities returns one entry per vulnerability ID, affecting every
// component it was found in.
func toVulnerabilities(findings []*vulndb.Finding, refs map[string]string) []cyclonedx.Vulnerability {
	var vulns []cyclonedx.Vulnerability
	byID := map[string]int{}
	seen := map[string]bool{}
	for _, f := range findings {
		ref, ok := refs[f.Identity.String()]
		if !ok {
			log.Warnf("finding for %s has no component, skipping", f.Identity)
			continue
		}
		for _, r := range f.Records {
			i, ok := byID[r.ID]
			if !ok {
				i = len(vulns)
				byID[r.ID] = i
				vulns = append(vulns, newVulnerability(r))
			}
			if seen[r.ID+"\x00"+ref] {
				continue
			}
			seen[r.ID+"\x00"+ref] = true
			affects := append(*vulns[i].Affects, cyclonedx.Affects{Ref: ref})
			vulns[i].Affects = &affects
		}
	}
	return vulns
}

func newVulnerability(r vulndb.Record) cyclonedx.Vulnerability {
	v := cyclonedx.Vulnerability{
		BOMRef:      r.ID,
		ID:          r.ID,
		Source:      &cyclonedx.Source{Name: r.Source},
		Description: r.Summary,
		Affects:     &[]cyclonedx.Affects{},
	}
	if len(r.Aliases) > 0 {
		aliases := make([]cyclonedx.VulnerabilityReference, 0, len(r.Aliases))
		for _, a := range r.Aliases {
			aliases = append(aliases, cyclonedx.VulnerabilityReference{ID: a})
		}
		v.References = &aliases
	}
	if len(r.References) > 0 {
		advisories := make([]cyclonedx.Advisory, 0, len(r.References))
		for _, ref := range r.References {
			advisories = append(advisories, cyclonedx.Advisory{Title: ref.Name, URL: ref.URL})
		}
		v.Advisories = &advisories
	}
	if r.Severity != "" {
		rating := cyclonedx.VulnerabilityRating{
			Severity: severity(r.Rating),
			Method:   scoringMethod(r.Severity),
			Vector:   r.Severity,
		}
		if r.Score >= 0 {
			score := r.Score
			rating.Score = &score
		}
		v.Ratings = &[]cyclonedx.VulnerabilityRating{rating}
	}
	return v
}

func severity(rating string) cyclonedx.Severity {
	switch strings.ToUpper(rating) {
	case "CRITICAL":
		return cyclonedx.SeverityCritical
	case "HIGH":
		return cyclonedx.SeverityHigh
	case "MEDIUM":
		return cyclonedx.SeverityMedium
	case "LOW":
		return cyclonedx.SeverityLow
	case "NONE":
		return cyclonedx.SeverityNone
	default:
		return cyclonedx.SeverityUnknown
	}
}

func scoringMethod(vector string) cyclonedx.ScoringMethod {
	switch {
	case strings.HasPrefix(vector, "CVSS:4.0/"):
		return cyclonedx.ScoringMethodCVSSv4
	case strings.HasPrefix(vector, "CVSS:3.1/"):
		return cyclonedx.ScoringMethodCVSSv31
	case strings.HasPrefix(vector, "CVSS:3.0/"):
		return cyclonedx.ScoringMethodCVSSv3
	case strings.HasPrefix(vector, "CVSS:"):
		return cyclonedx.ScoringMethodOther
	default:
		return cyclonedx.ScoringMethodCVSSv2
	}
}
