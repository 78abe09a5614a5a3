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

// Package purl builds and parses the package URLs used as dependency
// identifiers: https://github.com/package-url/purl-spec
// It is a thin layer over packageurl-go restricted to the ecosystems the
// analyzers can identify.
package purl

import (
	"fmt"
	"strings"

	"github.com/package-url/packageurl-go"
)

// Known purl types.
const (
	// TypeCargo is a pkg:cargo purl.
	TypeCargo = "cargo"
	// TypeGeneric is a pkg:generic purl.
	TypeGeneric = "generic"
	// TypeGolang is a pkg:golang purl.
	TypeGolang = "golang"
	// TypeMaven is a pkg:maven purl.
	TypeMaven = "maven"
	// TypeNPM is a pkg:npm purl.
	TypeNPM = "npm"
	// TypeNuget is a pkg:nuget purl.
	TypeNuget = "nuget"
	// TypePyPi is a pkg:pypi purl.
	TypePyPi = "pypi"
)

// ecosystems maps purl types to OSV ecosystem names.
var ecosystems = map[string]string{
	TypeCargo:  "crates.io",
	TypeGolang: "Go",
	TypeMaven:  "Maven",
	TypeNPM:    "npm",
	TypeNuget:  "NuGet",
	TypePyPi:   "PyPI",
}

// Qualifier names.
const (
	Classifier = "classifier" // Maven specific qualifier
	Type       = "type"       // Maven specific qualifier
)

// PackageURL is the struct representation of the parts that make a package url.
type PackageURL struct {
	Type       string
	Namespace  string
	Name       string
	Version    string
	Qualifiers map[string]string
}

// Maven returns the purl of a Maven artifact.
func Maven(groupID, artifactID, version string) PackageURL {
	return PackageURL{Type: TypeMaven, Namespace: groupID, Name: artifactID, Version: version}
}

func (p PackageURL) String() string {
	qs := map[string]string{}
	for k, v := range p.Qualifiers {
		// Empty values are invalid qualifiers.
		if v != "" {
			qs[k] = v
		}
	}
	purl := packageurl.NewPackageURL(p.Type, p.Namespace, p.Name, p.Version, packageurl.QualifiersFromMap(qs), "")
	return purl.ToString()
}

// Ecosystem returns the OSV ecosystem of the purl, or "" if it has none.
func (p PackageURL) Ecosystem() string {
	return ecosystems[strings.ToLower(p.Type)]
}

// PackageName returns the name under which the ecosystem knows the package,
// e.g. "group:artifact" for Maven.
func (p PackageURL) PackageName() string {
	if p.Namespace == "" {
		return p.Name
	}
	if strings.ToLower(p.Type) == TypeMaven {
		return p.Namespace + ":" + p.Name
	}
	return p.Namespace + "/" + p.Name
}

// FromString parses a package url string of a known type.
func FromString(s string) (PackageURL, error) {
	p, err := packageurl.FromString(s)
	if err != nil {
		return PackageURL{}, fmt.Errorf("failed to decode PURL string %q: %w", s, err)
	}
	t := strings.ToLower(p.Type)
	if _, ok := ecosystems[t]; !ok && t != TypeGeneric {
		return PackageURL{}, fmt.Errorf("unsupported PURL type %q", p.Type)
	}
	var qs map[string]string
	if len(p.Qualifiers) > 0 {
		qs = p.Qualifiers.Map()
	}
	return PackageURL{
		Type:       t,
		Namespace:  p.Namespace,
		Name:       p.Name,
		Version:    p.Version,
		Qualifiers: qs,
	}, nil
}
