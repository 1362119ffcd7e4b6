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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"naive.systems/ccreport/report"
)

func reports(hashes ...string) []report.Report {
	var rs []report.Report
	for _, h := range hashes {
		rs = append(rs, report.Report{Checker: "checker-" + h, Hash: h})
	}
	return rs
}

func TestClassify(t *testing.T) {
	result := Classify(reports("h1", "h2"), reports("h2", "h3"))
	assert.Equal(t, []string{"h3"}, Hashes(result.New))
	assert.Equal(t, []string{"h1"}, Hashes(result.Resolved))
	assert.Equal(t, []string{"h2"}, Hashes(result.Unresolved))

	assert.Equal(t, result.New, result.Filter(CompareNew))
	assert.Equal(t, result.Resolved, result.Filter(CompareResolved))
	assert.Equal(t, result.Unresolved, result.Filter(CompareUnresolved))
}

func TestClassifyIdempotent(t *testing.T) {
	for _, rs := range [][]report.Report{
		nil,
		reports("h1"),
		reports("h1", "h2", "h3"),
		reports("h1", "h1", "h2"),
	} {
		result := Classify(rs, rs)
		assert.Empty(t, result.New)
		assert.Empty(t, result.Resolved)
		assert.Equal(t, Hashes(rs), Hashes(result.Unresolved))
	}
}

func TestClassifyEmptySets(t *testing.T) {
	result := Classify(nil, reports("h1"))
	assert.Equal(t, []string{"h1"}, Hashes(result.New))
	assert.Empty(t, result.Resolved)

	result = Classify(reports("h1"), nil)
	assert.Equal(t, []string{"h1"}, Hashes(result.Resolved))
	assert.Empty(t, result.New)
}

func TestClassifyKeepsNewVersion(t *testing.T) {
	base := []report.Report{{Hash: "h", Line: 10}}
	head := []report.Report{{Hash: "h", Line: 12}}
	result := Classify(base, head)
	require.Len(t, result.Unresolved, 1)
	assert.Equal(t, 12, result.Unresolved[0].Line)
}

func TestParseCompareMode(t *testing.T) {
	for _, mode := range []CompareMode{CompareNew, CompareResolved, CompareUnresolved} {
		got, err := ParseCompareMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}
	_, err := ParseCompareMode("all")
	assert.Error(t, err)
}

type fakeRegistry struct {
	known    map[string]bool
	disabled map[string]bool
}

func (r fakeRegistry) Known(checker string) bool   { return r.known[checker] }
func (r fakeRegistry) Enabled(checker string) bool { return !r.disabled[checker] }

func statuses(detected []Detected) map[string]Status {
	m := make(map[string]Status)
	for _, d := range detected {
		m[d.Hash] = d.Status
	}
	return m
}

func TestDetect(t *testing.T) {
	history := History{
		"h4": {StatusNew, StatusResolved},
		"h5": {StatusResolved, StatusReopened},
	}
	detected := Detect(reports("h1", "h2"), reports("h2", "h3", "h4", "h5"), history, nil)
	assert.Equal(t, map[string]Status{
		"h1": StatusResolved,
		"h2": StatusUnresolved,
		"h3": StatusNew,
		"h4": StatusReopened,
		"h5": StatusNew,
	}, statuses(detected))
}

func TestDetectWithRegistry(t *testing.T) {
	registry := fakeRegistry{
		known:    map[string]bool{"checker-h1": true, "checker-h2": true, "checker-h3": true},
		disabled: map[string]bool{"checker-h2": true},
	}
	detected := Detect(reports("h1", "h2"), reports("h1", "h3", "h4"), nil, registry)
	assert.Equal(t, map[string]Status{
		"h1": StatusUnresolved,
		"h2": StatusOff,
		"h3": StatusNew,
		"h4": StatusUnavailable,
	}, statuses(detected))

	assert.Len(t, FilterStatus(detected, StatusOff, StatusUnavailable), 2)
	assert.Empty(t, FilterStatus(detected, StatusReopened))
}
