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

package detection

import (
	"naive.systems/ccreport/report"
)

type Status string

const (
	StatusNew         Status = "new"
	StatusUnresolved  Status = "unresolved"
	StatusReopened    Status = "reopened"
	StatusResolved    Status = "resolved"
	StatusOff         Status = "off"
	StatusUnavailable Status = "unavailable"
)

var Statuses = []Status{
	StatusNew, StatusUnresolved, StatusReopened, StatusResolved, StatusOff, StatusUnavailable,
}

// Registry tells which checkers exist and which are enabled for a run.
type Registry interface {
	Known(checker string) bool
	Enabled(checker string) bool
}

// History holds the statuses a hash had in earlier snapshots of a run,
// oldest first.
type History map[string][]Status

// Last returns the most recent status recorded for hash.
func (h History) Last(hash string) (Status, bool) {
	statuses := h[hash]
	if len(statuses) == 0 {
		return "", false
	}
	return statuses[len(statuses)-1], true
}

type Detected struct {
	report.Report
	Status Status `json:"detection_status"`
}

// Detect assigns a status to every report of base and newReports. A report that
// looks new but whose hash was last recorded as resolved is reopened. With
// a registry, reports of unknown checkers are unavailable and reports of
// disabled checkers are off, whatever their presence says. history and
// registry may be nil.
func Detect(base, newReports []report.Report, history History, registry Registry) []Detected {
	result := Classify(base, newReports)
	detected := make([]Detected, 0, len(result.New)+len(result.Unresolved)+len(result.Resolved))
	for _, r := range result.New {
		status := StatusNew
		if last, ok := history.Last(r.Hash); ok && last == StatusResolved {
			status = StatusReopened
		}
		detected = append(detected, Detected{r, status})
	}
	for _, r := range result.Unresolved {
		detected = append(detected, Detected{r, StatusUnresolved})
	}
	for _, r := range result.Resolved {
		detected = append(detected, Detected{r, StatusResolved})
	}
	if registry == nil {
		return detected
	}
	for i := range detected {
		checker := detected[i].Checker
		if !registry.Known(checker) {
			detected[i].Status = StatusUnavailable
		} else if !registry.Enabled(checker) {
			detected[i].Status = StatusOff
		}
	}
	return detected
}

// FilterStatus keeps the reports with one of statuses.
func FilterStatus(detected []Detected, statuses ...Status) []Detected {
	want := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var kept []Detected
	for _, d := range detected {
		if want[d.Status] {
			kept = append(kept, d)
		}
	}
	return kept
}
