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

// Package detection compares the reports of two analyses of the same run.
package detection

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"naive.systems/ccreport/report"
)

type CompareMode int

const (
	CompareNew CompareMode = iota
	CompareResolved
	CompareUnresolved
)

func (m CompareMode) String() string {
	switch m {
	case CompareNew:
		return "new"
	case CompareResolved:
		return "resolved"
	case CompareUnresolved:
		return "unresolved"
	}
	return fmt.Sprintf("CompareMode(%d)", int(m))
}

func ParseCompareMode(s string) (CompareMode, error) {
	for _, m := range []CompareMode{CompareNew, CompareResolved, CompareUnresolved} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown compare mode %q", s)
}

// Result partitions two report sets by hash. Unresolved holds the reports
// of the new set. Every set keeps the order of the input it came from and
// holds one report per hash.
type Result struct {
	New        []report.Report
	Resolved   []report.Report
	Unresolved []report.Report
}

// Classify compares base with newReports. Nil inputs are empty sets.
func Classify(base, newReports []report.Report) Result {
	baseHashes := report.ByHash(base)
	newHashes := report.ByHash(newReports)
	var result Result
	for _, r := range report.Unique(newReports) {
		if _, exist := baseHashes[r.Hash]; exist {
			result.Unresolved = append(result.Unresolved, r)
		} else {
			result.New = append(result.New, r)
		}
	}
	for _, r := range report.Unique(base) {
		if _, exist := newHashes[r.Hash]; !exist {
			result.Resolved = append(result.Resolved, r)
		}
	}
	return result
}

func (r Result) Filter(mode CompareMode) []report.Report {
	switch mode {
	case CompareNew:
		return r.New
	case CompareResolved:
		return r.Resolved
	case CompareUnresolved:
		return r.Unresolved
	}
	return nil
}

// Hashes returns the sorted hashes of reports.
func Hashes(reports []report.Report) []string {
	hashes := maps.Keys(report.ByHash(reports))
	slices.Sort(hashes)
	return hashes
}
