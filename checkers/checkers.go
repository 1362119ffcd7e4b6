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

// Package checkers loads the checker registry of a run: which checkers the
// analyzers provide and which of them are enabled.
package checkers

import (
	"fmt"
	"os"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v2"
	"naive.systems/ccreport/report"
)

type Checker struct {
	Name     string `yaml:"name"`
	Analyzer string `yaml:"analyzer,omitempty"`
	Severity string `yaml:"severity,omitempty"`
	// Enabled defaults to true
	Enabled      *bool `yaml:"enabled,omitempty"`
	MaxReportNum *int  `yaml:"max-report-num,omitempty"`
}

type file struct {
	Checkers []Checker `yaml:"checkers"`
}

type Registry struct {
	checkers map[string]Checker
}

// Parse reads a registry like
//
//	checkers:
//	  - name: core.DivideZero
//	    analyzer: clangsa
//	    severity: HIGH
//	  - name: gcc-unused-variable
//	    enabled: false
//	    max-report-num: 100
func Parse(content []byte) (*Registry, error) {
	var f file
	if err := yaml.UnmarshalStrict(content, &f); err != nil {
		return nil, fmt.Errorf("yaml.UnmarshalStrict: %v", err)
	}
	r := &Registry{checkers: make(map[string]Checker, len(f.Checkers))}
	for i, c := range f.Checkers {
		if c.Name == "" {
			return nil, fmt.Errorf("checker %d has no name", i)
		}
		if _, exist := r.checkers[c.Name]; exist {
			return nil, fmt.Errorf("duplicated checker %s", c.Name)
		}
		if c.Severity != "" && !slices.Contains(report.Severities, report.Severity(c.Severity)) {
			return nil, fmt.Errorf("invalid severity %s of checker %s", c.Severity, c.Name)
		}
		r.checkers[c.Name] = c
	}
	return r, nil
}

func Load(path string) (*Registry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %v", err)
	}
	return Parse(content)
}

func (r *Registry) Known(checker string) bool {
	_, ok := r.checkers[checker]
	return ok
}

func (r *Registry) Enabled(checker string) bool {
	c, ok := r.checkers[checker]
	return ok && (c.Enabled == nil || *c.Enabled)
}

// Severity returns the configured severity of checker, if any.
func (r *Registry) Severity(checker string) (report.Severity, bool) {
	c, ok := r.checkers[checker]
	if !ok || c.Severity == "" {
		return "", false
	}
	return report.Severity(c.Severity), true
}

// Limits returns the report caps of the checkers that have one.
func (r *Registry) Limits() map[string]int {
	limits := make(map[string]int)
	for name, c := range r.checkers {
		if c.MaxReportNum != nil {
			limits[name] = *c.MaxReportNum
		}
	}
	return limits
}

// Names returns the sorted names of all checkers.
func (r *Registry) Names() []string {
	names := maps.Keys(r.checkers)
	slices.Sort(names)
	return names
}

// ApplySeverity overrides the severity of reports whose checker has one
// configured.
func (r *Registry) ApplySeverity(reports []report.Report) {
	for i := range reports {
		if severity, ok := r.Severity(reports[i].Checker); ok {
			reports[i].Severity = severity
		}
	}
}
