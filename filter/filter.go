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

/*
This package should not import the logger or the detection engine to
avoid recursive import.
*/
package filter

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/golang/glog"
	"naive.systems/ccreport/report"
)

// MatchIgnoreDirPatterns reports whether filePath matches any of the
// doublestar patterns.
func MatchIgnoreDirPatterns(ignoreDirPatterns []string, filePath string) (bool, error) {
	for _, ignoreDirPattern := range ignoreDirPatterns {
		matched, err := doublestar.Match(ignoreDirPattern, filePath)
		if err != nil {
			return false, fmt.Errorf("malformed ignore_dir pattern %s", ignoreDirPattern)
		}
		if matched {
			glog.Infof("Source file %s ignored due to pattern %s", filePath, ignoreDirPattern)
			return true, nil
		}
	}
	return false, nil
}

// IgnoreReports drops the reports whose file matches one of the patterns.
// A malformed pattern is logged and skipped.
func IgnoreReports(reports []report.Report, ignoreDirPatterns []string) []report.Report {
	for _, ignoreDirPattern := range ignoreDirPatterns {
		if !doublestar.ValidatePattern(ignoreDirPattern) {
			glog.Error("malformed ignore_dir pattern ", ignoreDirPattern)
			continue
		}
		kept := []report.Report{}
		for _, r := range reports {
			// the pattern is valid, so Match cannot fail
			matched, _ := doublestar.Match(ignoreDirPattern, r.File)
			if matched {
				glog.Infof("Report in path %s ignored due to pattern %s", r.File, ignoreDirPattern)
				continue
			}
			kept = append(kept, r)
		}
		reports = kept
	}
	return reports
}

// DeleteReportsWithSuffixes drops the reports whose file extension, dot
// included, is one of suffixes.
func DeleteReportsWithSuffixes(reports []report.Report, suffixes []string) []report.Report {
	set := make(map[string]struct{})
	for _, s := range suffixes {
		set[s] = struct{}{}
	}
	kept := make([]report.Report, 0, len(reports))
	for _, r := range reports {
		if _, ok := set[filepath.Ext(r.File)]; !ok {
			kept = append(kept, r)
		}
	}
	return kept
}

// DeleteExceedReports keeps at most limits[checker] reports of every
// checker listed in limits, in input order. Checkers without a limit are
// not capped.
func DeleteExceedReports(reports []report.Report, limits map[string]int) []report.Report {
	seen := make(map[string]int)
	kept := make([]report.Report, 0, len(reports))
	for _, r := range reports {
		limit, exist := limits[r.Checker]
		if !exist {
			kept = append(kept, r)
			continue
		}
		if seen[r.Checker] < limit {
			kept = append(kept, r)
		}
		seen[r.Checker]++
	}
	return kept
}
