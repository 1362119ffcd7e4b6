/*
NaiveSystems Analyze - A tool for static code analysis
Copyright (C) 2023  Naive Systems Ltd.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

type Severity string

const (
	SeverityUnspecified Severity = "UNSPECIFIED"
	SeverityStyle       Severity = "STYLE"
	SeverityLow         Severity = "LOW"
	SeverityMedium      Severity = "MEDIUM"
	SeverityHigh        Severity = "HIGH"
	SeverityCritical    Severity = "CRITICAL"
)

var Severities = []Severity{
	SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityStyle, SeverityUnspecified,
}

// HashType tells how a report hash was computed.
type HashType string

const (
	// HashContext hashes are built from the source around the report.
	HashContext HashType = "context"
	// HashLine hashes fall back to line numbers because the source could
	// not be read.
	HashLine HashType = "line"
)

type BugPathEvent struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
	Step    int    `json:"step"`
}

type Report struct {
	ID       string         `json:"id,omitempty"`
	Analyzer string         `json:"analyzer,omitempty"`
	Checker  string         `json:"checker"`
	Severity Severity       `json:"severity"`
	File     string         `json:"file"`
	Line     int            `json:"line"`
	Column   int            `json:"column"`
	Message  string         `json:"message"`
	BugPath  []BugPathEvent `json:"bug_path,omitempty"`
	Hash     string         `json:"hash,omitempty"`
	HashType HashType       `json:"hash_type,omitempty"`
}

// ReadFile reads a JSON array of reports.
func ReadFile(path string) ([]Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %v", err)
	}
	reports := []Report{}
	if len(content) == 0 {
		return reports, nil
	}
	if err := json.Unmarshal(content, &reports); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %v", err)
	}
	return reports, nil
}

// AddID gives every report without one a random id.
func AddID(reports []Report) {
	for i := range reports {
		if reports[i].ID != "" {
			continue
		}
		id, err := uuid.NewRandom()
		if err != nil {
			// stores generate the id again when it is missing
			glog.Warningf("uuid.NewRandom: %v", err)
			continue
		}
		reports[i].ID = id.String()
	}
}

// Unique drops every report whose hash was already seen, keeping the first
// occurrence. Reports without a hash are kept.
func Unique(reports []Report) []Report {
	seen := make(map[string]bool)
	unique := make([]Report, 0, len(reports))
	for _, r := range reports {
		if r.Hash != "" {
			if seen[r.Hash] {
				continue
			}
			seen[r.Hash] = true
		}
		unique = append(unique, r)
	}
	return unique
}

// Sort orders reports by path, line, column and checker.
func Sort(reports []Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		a, b := reports[i], reports[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Checker < b.Checker
	})
}

// ByHash indexes reports by hash. Later duplicates are ignored.
func ByHash(reports []Report) map[string]Report {
	m := make(map[string]Report, len(reports))
	for _, r := range reports {
		if _, exist := m[r.Hash]; !exist {
			m[r.Hash] = r
		}
	}
	return m
}
