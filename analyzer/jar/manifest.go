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

package jar

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strings"

	"github.com/google/osv-depcheck/log"
)

// manifest holds the coordinates guessed from META-INF/MANIFEST.MF.
type manifest struct {
	GroupID    string
	ArtifactID string
	Version    string
	// Vendor and Title are the raw Implementation-* attributes.
	Vendor string
	Title  string
}

func parseManifest(r io.Reader) (manifest, error) {
	rd := textproto.NewReader(bufio.NewReader(r))
	h, err := rd.ReadMIMEHeader()
	// MIME header require \n\n in the end, while MANIFEST.mf might not have this. Headers before are
	// parsed correctly anyway, so skip the error and continue.
	if err != nil && !errors.Is(err, io.EOF) {
		return manifest{}, fmt.Errorf("failed to read MIME header: %w", err)
	}

	return manifest{
		GroupID:    groupID(h),
		ArtifactID: artifactID(h),
		Version:    firstNonEmpty(h, "Implementation-Version", "Specification-Version", "Plugin-Version", "Bundle-Version"),
		Vendor:     firstNonEmpty(h, "Implementation-Vendor", "Specification-Vendor", "Bundle-Vendor"),
		Title:      firstNonEmpty(h, "Implementation-Title", "Specification-Title", "Bundle-Name"),
	}, nil
}

func groupID(h textproto.MIMEHeader) string {
	keys := []string{
		"Bundle-SymbolicName",
		"Extension-Name",
		"Specification-Vendor",
		"Implementation-Vendor",
		"Implementation-Vendor-Id",
		"Implementation-Title",
		"Bundle-Activator",
		"Automatic-Module-Name",
		"Main-Class",
		"Package",
	}
	for _, k := range keys {
		v := h.Get(k)
		if v == "" || strings.Contains(v, " ") {
			continue
		}
		g, _, _ := strings.Cut(v, ";")
		log.Debugf("manifest group id from %s: %s", k, g)
		return g
	}
	return ""
}

func artifactID(h textproto.MIMEHeader) string {
	// For the Apache Maven Bundle Plugin the artifact is the last part of
	// Bundle-SymbolicName, e.g. com.google.guava.failureaccess.
	if h.Get("Created-By") == "Apache Maven Bundle Plugin" {
		if sn := h.Get("Bundle-SymbolicName"); sn != "" {
			parts := strings.Split(sn, ".")
			if id := parts[len(parts)-1]; validArtifactID(id) {
				return id
			}
		}
	}
	for _, k := range []string{"Name", "Implementation-Title", "Specification-Title", "Bundle-Name", "Short-Name", "Extension-Name"} {
		if v := h.Get(k); validArtifactID(v) {
			return v
		}
	}
	return ""
}

func validArtifactID(name string) bool {
	if name == "" || strings.Contains(name, " ") {
		return false
	}
	// Unexpanded build placeholders, e.g. "${bundleName}" or "%pluginName".
	return !strings.HasPrefix(name, "$") && !strings.HasPrefix(name, "%")
}

func firstNonEmpty(h textproto.MIMEHeader, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(h.Get(n)); v != "" {
			return v
		}
	}
	return ""
}
