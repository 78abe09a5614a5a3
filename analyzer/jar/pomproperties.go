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
	"fmt"
	"io"
	"strings"
)

// pomProps are the coordinates from a META-INF/maven/**/pom.properties file.
type pomProps struct {
	GroupID    string
	ArtifactID string
	Version    string
}

func (p pomProps) valid() bool {
	return p.GroupID != "" && !strings.Contains(p.GroupID, " ") &&
		p.ArtifactID != "" && !strings.Contains(p.ArtifactID, " ") &&
		p.Version != "" && !strings.Contains(p.Version, " ")
}

func parsePomProps(r io.Reader) (pomProps, error) {
	p := pomProps{}
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		attribute, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(attribute) {
		case "groupId":
			p.GroupID = strings.TrimSpace(value)
		case "artifactId":
			p.ArtifactID = strings.TrimSpace(value)
		case "version":
			p.Version = strings.TrimSpace(value)
		}
	}
	if s.Err() != nil {
		return p, fmt.Errorf("error while scanning pom properties: %w", s.Err())
	}
	return p, nil
}
