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

package stats

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/hhatto/gocloc"
	"naive.systems/ccreport/atomic"
	"naive.systems/ccreport/compilecommand"
	"naive.systems/ccreport/detection"
	"naive.systems/ccreport/filter"
	"naive.systems/ccreport/report"
)

// gocloc names of the languages a compilation database can hold.
var DefaultCountLangs = []string{"C", "C Header", "C++", "C++ Header", "Objective-C", "Objective-C++", "Java"}

type SeverityCount struct {
	Critical    int `json:"critical"`
	High        int `json:"high"`
	Medium      int `json:"medium"`
	Low         int `json:"low"`
	Style       int `json:"style"`
	Unspecified int `json:"unspecified"`
}

type StatusCount struct {
	New         int `json:"new"`
	Unresolved  int `json:"unresolved"`
	Reopened    int `json:"reopened"`
	Resolved    int `json:"resolved"`
	Off         int `json:"off"`
	Unavailable int `json:"unavailable"`
}

type Summary struct {
	Severity SeverityCount `json:"severity"`
	Status   StatusCount   `json:"status"`
	LOC      int           `json:"loc"`
}

func AccumulateBySeverity(cnt *SeverityCount, r *report.Report) {
	switch r.Severity {
	case report.SeverityCritical:
		cnt.Critical++
	case report.SeverityHigh:
		cnt.High++
	case report.SeverityMedium:
		cnt.Medium++
	case report.SeverityLow:
		cnt.Low++
	case report.SeverityStyle:
		cnt.Style++
	case report.SeverityUnspecified, "":
		cnt.Unspecified++
	default:
		glog.Warningf("undefined severity %s of report %s", r.Severity, r.ID)
		cnt.Unspecified++
	}
}

func CountSeverity(reports []report.Report) SeverityCount {
	var cnt SeverityCount
	for i := range reports {
		AccumulateBySeverity(&cnt, &reports[i])
	}
	return cnt
}

func CountStatus(detected []detection.Detected) StatusCount {
	var cnt StatusCount
	for _, d := range detected {
		switch d.Status {
		case detection.StatusNew:
			cnt.New++
		case detection.StatusUnresolved:
			cnt.Unresolved++
		case detection.StatusReopened:
			cnt.Reopened++
		case detection.StatusResolved:
			cnt.Resolved++
		case detection.StatusOff:
			cnt.Off++
		case detection.StatusUnavailable:
			cnt.Unavailable++
		default:
			glog.Warningf("undefined status %s of report %s", d.Status, d.ID)
		}
	}
	return cnt
}

// Summarize counts the severities of the reports still present, that is
// all but the resolved ones, and the statuses of all.
func Summarize(detected []detection.Detected) Summary {
	var s Summary
	for i := range detected {
		if detected[i].Status != detection.StatusResolved {
			AccumulateBySeverity(&s.Severity, &detected[i].Report)
		}
	}
	s.Status = CountStatus(detected)
	return s
}

// WriteSummary writes summary.json into dir.
func WriteSummary(dir string, s Summary) error {
	content, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("json.MarshalIndent: %v", err)
	}
	return atomic.Write(filepath.Join(dir, "summary.json"), content)
}

// CountLines counts the code lines of the source files of commands that
// are in one of countLangs and match none of ignoreDirPatterns.
func CountLines(commands []compilecommand.CompileCommand, countLangs []string, ignoreDirPatterns []string) (int, error) {
	var files []string
	seen := make(map[string]bool)
	for _, command := range commands {
		file := command.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(command.Directory, file)
		}
		matched, err := filter.MatchIgnoreDirPatterns(ignoreDirPatterns, file)
		if err != nil {
			glog.Error(err)
			continue
		}
		if !matched && !seen[file] {
			seen[file] = true
			files = append(files, file)
		}
	}
	if len(files) == 0 {
		return 0, nil
	}

	clocOpts := gocloc.NewClocOptions()
	languages := gocloc.NewDefinedLanguages()
	for _, lang := range countLangs {
		if _, exists := languages.Langs[lang]; exists {
			clocOpts.IncludeLangs[lang] = struct{}{}
		}
	}
	processor := gocloc.NewProcessor(languages, clocOpts)
	result, err := processor.Analyze(files)
	if err != nil {
		glog.Errorf("gocloc fail: %v", err)
		return 0, err
	}
	sum := 0
	for _, file := range result.Files {
		sum += int(file.Code)
	}
	return sum, nil
}
