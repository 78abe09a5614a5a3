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

package vulndb

import (
	"fmt"
	"strings"

	osvpb "github.com/ossf/osv-schema/bindings/go/osvschema"
	gocvss20 "github.com/pandatix/go-cvss/20"
	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
	gocvss40 "github.com/pandatix/go-cvss/40"
)

// RatingUnknown is the rating of records without a usable severity.
const RatingUnknown = "UNKNOWN"

// CalculateScoreAndRating returns the CVSS score (0.0 - 10.0) and rating
// (e.g. "CRITICAL") of an OSV severity entry.
//
// returns (-1.0, "UNKNOWN", nil) if the severity is empty.
// returns (-1.0, "", error) if the severity type or score is invalid.
func CalculateScoreAndRating(severity *osvpb.Severity) (float64, string, error) {
	if severity == nil || severity.GetScore() == "" {
		return -1.0, RatingUnknown, nil
	}
	switch severity.GetType() {
	case osvpb.Severity_CVSS_V2:
		return scoreV2(severity.GetScore())
	case osvpb.Severity_CVSS_V3, osvpb.Severity_CVSS_V4:
		return ScoreVector(severity.GetScore())
	default:
		return -1.0, "", fmt.Errorf("unsupported severity type: %s", severity.GetType())
	}
}

// ScoreVector scores a CVSS vector string. The version is taken from the
// "CVSS:x.y/" prefix; vectors without one are read as CVSS 2.0.
func ScoreVector(vector string) (float64, string, error) {
	switch {
	case vector == "":
		return -1.0, RatingUnknown, nil
	case strings.HasPrefix(vector, "CVSS:4.0/"):
		vec, err := gocvss40.ParseVector(vector)
		if err != nil {
			return -1.0, "", err
		}
		score := vec.Score()
		return score, rating(gocvss40.Rating(score)), nil
	case strings.HasPrefix(vector, "CVSS:3.1/"):
		vec, err := gocvss31.ParseVector(vector)
		if err != nil {
			return -1.0, "", err
		}
		score := vec.BaseScore()
		return score, rating(gocvss31.Rating(score)), nil
	case strings.HasPrefix(vector, "CVSS:3.0/"):
		vec, err := gocvss30.ParseVector(vector)
		if err != nil {
			return -1.0, "", err
		}
		score := vec.BaseScore()
		return score, rating(gocvss30.Rating(score)), nil
	case strings.HasPrefix(vector, "CVSS:"):
		return -1.0, "", fmt.Errorf("unsupported CVSS version: %s", vector)
	default:
		return scoreV2(vector)
	}
}

func scoreV2(vector string) (float64, string, error) {
	vec, err := gocvss20.ParseVector(vector)
	if err != nil {
		return -1.0, "", err
	}
	score := vec.BaseScore()
	// CVSS 2.0 has no rating; the CVSS 3.0 scale is used instead.
	return score, rating(gocvss30.Rating(score)), nil
}

func rating(r string, err error) string {
	if err != nil {
		return RatingUnknown
	}
	return r
}

// RecordFromOSV converts an OSV vulnerability. The strongest parseable
// severity entry is kept.
func RecordFromOSV(v *osvpb.Vulnerability, source string) Record {
	r := Record{
		ID:      v.GetId(),
		Aliases: v.GetAliases(),
		Summary: v.GetSummary(),
		Score:   -1.0,
		Rating:  RatingUnknown,
		Source:  source,
	}
	for _, s := range v.GetSeverity() {
		score, rat, err := CalculateScoreAndRating(s)
		if err != nil || score <= r.Score {
			continue
		}
		r.Severity, r.Score, r.Rating = s.GetScore(), score, rat
	}
	for _, ref := range v.GetReferences() {
		if ref.GetUrl() == "" {
			continue
		}
		r.References = append(r.References, Reference{Name: ref.GetType().String(), URL: ref.GetUrl(), Source: source})
	}
	r.References = SortReferences(r.References)
	return r
}
