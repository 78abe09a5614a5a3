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

// Package pom parses Maven project descriptors and turns them into evidence.
package pom

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"deps.dev/util/maven"
	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/log"
	"golang.org/x/net/html/charset"
)

// Source is the evidence source of values read from a POM.
const Source = "pom"

// KindDescription is the auxiliary evidence kind holding POM descriptions.
const KindDescription dependency.Kind = "description"

// Descriptor is the identity information of a POM.
type Descriptor struct {
	GroupID       string
	ArtifactID    string
	Version       string
	Name          string
	Description   string
	ParentGroupID string
	ParentVersion string
}

// NewDecoder returns an xml decoder with CharsetReader and Entity set.
func NewDecoder(r io.Reader) *xml.Decoder {
	decoder := xml.NewDecoder(r)
	// Set charset reader for conversion from non-UTF-8 charset into UTF-8.
	decoder.CharsetReader = charset.NewReaderLabel
	// Set HTML entity map for translation between non-standard entity names
	// and string replacements.
	decoder.Entity = xml.HTMLEntity
	return decoder
}

// Parse decodes a POM. Property references are interpolated where possible;
// values that still reference a property afterwards are dropped.
func Parse(r io.Reader) (*Descriptor, error) {
	var proj maven.Project
	if err := NewDecoder(r).Decode(&proj); err != nil {
		return nil, fmt.Errorf("decoding pom: %w", err)
	}
	if err := proj.Interpolate(); err != nil {
		log.Debugf("pom %s:%s: interpolation failed: %v", proj.GroupID, proj.ArtifactID, err)
	}
	d := &Descriptor{
		GroupID:       clean(proj.GroupID),
		ArtifactID:    clean(proj.ArtifactID),
		Version:       clean(proj.Version),
		Name:          clean(proj.Name),
		Description:   clean(proj.Description),
		ParentGroupID: clean(proj.Parent.GroupID),
		ParentVersion: clean(proj.Parent.Version),
	}
	if d.GroupID == "" && d.ArtifactID == "" && d.ParentGroupID == "" {
		return nil, fmt.Errorf("pom has no coordinates")
	}
	return d, nil
}

// ParseFile decodes the POM at path, reading at most maxBytes (0: no limit).
func ParseFile(path string, maxBytes int64) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes)
	}
	return Parse(r)
}

func clean(s maven.String) string {
	v := strings.TrimSpace(string(s))
	if strings.Contains(v, "${") {
		return ""
	}
	return v
}

// EffectiveGroupID returns the groupId, falling back to the parent's.
func (d *Descriptor) EffectiveGroupID() string {
	if d.GroupID != "" {
		return d.GroupID
	}
	return d.ParentGroupID
}

// EffectiveVersion returns the version, falling back to the parent's.
func (d *Descriptor) EffectiveVersion() string {
	if d.Version != "" {
		return d.Version
	}
	return d.ParentVersion
}

// AddEvidence records the descriptor on dep. Coordinates are added at conf,
// inherited and cross-kind values at lower confidence.
func (d *Descriptor) AddEvidence(dep *dependency.Dependency, source string, conf dependency.Confidence) {
	lower := conf - 1
	if !lower.Valid() {
		lower = dependency.ConfidenceLow
	}
	if d.GroupID != "" {
		dep.AddEvidence(dependency.KindVendor, "groupid", d.GroupID, source, conf)
		dep.AddEvidence(dependency.KindProduct, "groupid", d.GroupID, source, dependency.ConfidenceLow)
	} else if d.ParentGroupID != "" {
		dep.AddEvidence(dependency.KindVendor, "parent-groupid", d.ParentGroupID, source, lower)
		dep.AddEvidence(dependency.KindProduct, "parent-groupid", d.ParentGroupID, source, dependency.ConfidenceLow)
	}
	if d.ArtifactID != "" {
		dep.AddEvidence(dependency.KindProduct, "artifactid", d.ArtifactID, source, conf)
		dep.AddEvidence(dependency.KindVendor, "artifactid", d.ArtifactID, source, dependency.ConfidenceLow)
	}
	if d.Version != "" {
		dep.AddEvidence(dependency.KindVersion, "version", d.Version, source, conf)
	} else if d.ParentVersion != "" {
		dep.AddEvidence(dependency.KindVersion, "parent-version", d.ParentVersion, source, lower)
	}
	if d.Name != "" {
		dep.AddEvidence(dependency.KindProduct, "name", d.Name, source, lower)
		dep.AddEvidence(dependency.KindVendor, "name", d.Name, source, dependency.ConfidenceLow)
	}
	if d.Description != "" {
		dep.AddEvidence(KindDescription, "description", d.Description, source, dependency.ConfidenceLow)
	}
}
