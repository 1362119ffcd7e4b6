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
	"strings"
)

// gccLocation and gccDiagnostic mirror the output of
// -fdiagnostics-format=json.
type gccLocation struct {
	Caret struct {
		File   string `json:"file"`
		Line   int    `json:"line"`
		Column int    `json:"column"`
	} `json:"caret"`
}

type gccDiagnostic struct {
	Kind      string          `json:"kind"`
	Message   string          `json:"message"`
	Option    string          `json:"option"`
	Locations []gccLocation   `json:"locations"`
	Children  []gccDiagnostic `json:"children"`
}

func gccSeverity(kind string) Severity {
	switch kind {
	case "fatal error", "error":
		return SeverityHigh
	case "warning":
		return SeverityMedium
	case "note":
		return SeverityLow
	}
	return SeverityUnspecified
}

// gccChecker names the checker after the warning option, e.g.
// -Wunused-variable becomes gcc-unused-variable.
func gccChecker(d gccDiagnostic) string {
	if option := strings.TrimPrefix(d.Option, "-W"); option != "" {
		return "gcc-" + option
	}
	return "gcc-" + strings.ReplaceAll(d.Kind, " ", "-")
}

// ParseGccDiagnostics converts GCC JSON diagnostics to reports. Notes
// attached to a diagnostic become its bug path, after the diagnostic
// itself. Diagnostics without a location are skipped.
func ParseGccDiagnostics(content []byte) ([]Report, error) {
	var diagnostics []gccDiagnostic
	if err := json.Unmarshal(content, &diagnostics); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %v", err)
	}
	reports := make([]Report, 0, len(diagnostics))
	for _, d := range diagnostics {
		if len(d.Locations) == 0 {
			continue
		}
		caret := d.Locations[0].Caret
		r := Report{
			Analyzer: "gcc",
			Checker:  gccChecker(d),
			Severity: gccSeverity(d.Kind),
			File:     caret.File,
			Line:     caret.Line,
			Column:   caret.Column,
			Message:  d.Message,
		}
		r.BugPath = append(r.BugPath, BugPathEvent{
			File: caret.File, Line: caret.Line, Column: caret.Column, Message: d.Message,
		})
		for _, child := range d.Children {
			if len(child.Locations) == 0 {
				continue
			}
			c := child.Locations[0].Caret
			r.BugPath = append(r.BugPath, BugPathEvent{
				File: c.File, Line: c.Line, Column: c.Column, Message: child.Message, Step: len(r.BugPath),
			})
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func ReadGccDiagnostics(path string) ([]Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %v", err)
	}
	return ParseGccDiagnostics(content)
}
