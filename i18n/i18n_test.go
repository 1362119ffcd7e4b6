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

package i18n

import (
	"bytes"
	"strings"
	"testing"
)

func TestGetPrinter(t *testing.T) {
	testCases := []struct {
		lang     string
		expected string
	}{
		{"en", "Lines of code: 12"},
		{"zh", "代码行数: 12"},
		{"fr", "Lines of code: 12"},
		{"", "Lines of code: 12"},
	}
	for _, tc := range testCases {
		got := GetPrinter(tc.lang).Sprintf(MsgLinesOfCode, 12)
		if got != tc.expected {
			t.Errorf("unexpected result for %v. got: %v. expected: %v.", tc.lang, got, tc.expected)
		}
	}
}

func TestEveryMessageTranslated(t *testing.T) {
	keys := []string{
		MsgNoSnapshot, MsgComparing, MsgCompareResult, MsgSnapshotSaved, MsgArchived,
		MsgLinesOfCode, MsgReportsWritten, MsgActionsRecorded, MsgSeverityCount, MsgStatusCount,
	}
	for _, key := range keys {
		if _, ok := zh[key]; !ok {
			t.Errorf("no translation for %q", key)
		}
	}
}

func TestFprintfWithTimeStamp(t *testing.T) {
	var buf bytes.Buffer
	FprintfWithTimeStamp(&buf, GetPrinter("en"), MsgReportsWritten, 3, "out.json")
	got := buf.String()
	if !strings.HasSuffix(got, " Wrote 3 reports to out.json\n") {
		t.Errorf("unexpected output %q", got)
	}
	// 2006-01-02 15:04:05
	if len(got) < 20 || got[4] != '-' || got[13] != ':' {
		t.Errorf("missing time stamp in %q", got)
	}
}
