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

// Package proto converts depcheck scan results into protobuf reports and
// writes them to disk.
package proto

import (
	"fmt"
	"time"

	depcheck "github.com/google/osv-depcheck"
	"github.com/google/osv-depcheck/dependency"
	"github.com/google/osv-depcheck/identity"
	"github.com/google/osv-depcheck/log"
	"github.com/google/osv-depcheck/plugin"
	"github.com/google/osv-depcheck/vulndb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ScanResultToProto converts a scan result and its vulnerability findings
// into a protobuf Struct. Field names are snake_case, as in the config file.
func ScanResultToProto(r *depcheck.Result, findings []*vulndb.Finding) (*structpb.Struct, error) {
	report := map[string]any{
		"status":       statusToMap(r.Status),
		"start_time":   r.StartTime.UTC().Format(time.RFC3339),
		"end_time":     r.EndTime.UTC().Format(time.RFC3339),
		"analyzers":    analyzersToList(r.Statuses),
		"dependencies": dependenciesToList(r.Dependencies),
		"findings":     findingsToList(findings),
	}
	s, err := structpb.NewStruct(report)
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}
	return s, nil
}

func statusToMap(s *plugin.ScanStatus) map[string]any {
	if s == nil {
		return map[string]any{"status": "UNSPECIFIED"}
	}
	m := map[string]any{"status": statusName(s.Status)}
	if s.FailureReason != "" {
		m["failure_reason"] = s.FailureReason
	}
	if s.FailedDependencies > 0 {
		m["failed_dependencies"] = s.FailedDependencies
	}
	return m
}

func statusName(s plugin.ScanStatusEnum) string {
	switch s {
	case plugin.ScanStatusSucceeded:
		return "SUCCEEDED"
	case plugin.ScanStatusPartiallySucceeded:
		return "PARTIALLY_SUCCEEDED"
	case plugin.ScanStatusFailed:
		return "FAILED"
	case plugin.ScanStatusDisabled:
		return "DISABLED"
	default:
		return "UNSPECIFIED"
	}
}

func analyzersToList(statuses []*plugin.Status) []any {
	result := make([]any, 0, len(statuses))
	for _, s := range statuses {
		m := statusToMap(s.Status)
		m["name"] = s.Name
		m["version"] = s.Version
		result = append(result, m)
	}
	return result
}

func dependenciesToList(deps []*dependency.Dependency) []any {
	result := make([]any, 0, len(deps))
	for _, d := range deps {
		m := map[string]any{
			"path":         d.Path,
			"virtual_path": d.VirtualPath,
			"display_name": d.DisplayName,
			"depth":        d.Depth,
		}
		if d.ParentPath != "" {
			m["parent_path"] = d.ParentPath
		}
		if sha1, err := d.SHA1(); err == nil {
			m["sha1"] = sha1
		} else {
			log.Debugf("report: no digest for %s: %v", d.VirtualPath, err)
		}
		if sha256, err := d.SHA256(); err == nil {
			m["sha256"] = sha256
		}
		if id, ok := identity.Resolve(d); ok {
			m["identity"] = map[string]any{
				"purl":       id.String(),
				"confidence": id.Confidence.String(),
				"source":     id.Source,
			}
		}
		if ev := evidenceToMap(d); len(ev) > 0 {
			m["evidence"] = ev
		}
		if ids := d.Identifiers(); len(ids) > 0 {
			l := make([]any, 0, len(ids))
			for _, id := range ids {
				l = append(l, map[string]any{
					"type":       id.Type,
					"value":      id.Value,
					"url":        id.URL,
					"confidence": id.Confidence.String(),
				})
			}
			m["identifiers"] = l
		}
		if fs := d.Failures(); len(fs) > 0 {
			l := make([]any, 0, len(fs))
			for _, f := range fs {
				l = append(l, map[string]any{
					"analyzer": f.Analyzer,
					"severity": f.Severity.String(),
					"error":    f.Err.Error(),
				})
			}
			m["diagnostics"] = l
		}
		result = append(result, m)
	}
	return result
}

func evidenceToMap(d *dependency.Dependency) map[string]any {
	result := map[string]any{}
	for _, k := range d.Kinds() {
		ev := d.Evidence(k)
		l := make([]any, 0, len(ev))
		for _, e := range ev {
			l = append(l, map[string]any{
				"name":       e.Name,
				"value":      e.Value,
				"source":     e.Source,
				"confidence": e.Confidence.String(),
			})
		}
		result[string(k)] = l
	}
	return result
}

func findingsToList(findings []*vulndb.Finding) []any {
	result := make([]any, 0, len(findings))
	for _, f := range findings {
		vulns := make([]any, 0, len(f.Records))
		for _, r := range f.Records {
			v := map[string]any{
				"id":     r.ID,
				"source": r.Source,
				"rating": r.Rating,
			}
			if len(r.Aliases) > 0 {
				aliases := make([]any, 0, len(r.Aliases))
				for _, a := range r.Aliases {
					aliases = append(aliases, a)
				}
				v["aliases"] = aliases
			}
			if len(r.References) > 0 {
				refs := make([]any, 0, len(r.References))
				for _, ref := range r.References {
					refs = append(refs, map[string]any{"name": ref.Name, "url": ref.URL, "source": ref.Source})
				}
				v["references"] = refs
			}
			if r.Summary != "" {
				v["summary"] = r.Summary
			}
			if r.Severity != "" {
				v["severity"] = r.Severity
			}
			if r.Score >= 0 {
				v["score"] = r.Score
			}
			vulns = append(vulns, v)
		}
		m := map[string]any{
			"purl":            f.Identity.String(),
			"vulnerabilities": vulns,
		}
		if f.Dependency != nil {
			m["virtual_path"] = f.Dependency.VirtualPath
		}
		result = append(result, m)
	}
	return result
}
