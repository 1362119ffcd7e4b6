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
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var languageMap = map[string]language.Tag{"en": language.English, "zh": language.Chinese}

// Message keys printed by ccreport. Every key has a Chinese translation.
const (
	MsgNoSnapshot      = "No previous snapshot for run %s"
	MsgComparing       = "Comparing %d baseline reports against %d new reports"
	MsgCompareResult   = "New: %d, Resolved: %d, Unresolved: %d"
	MsgSnapshotSaved   = "Snapshot %s saved for run %s"
	MsgArchived        = "Archived %s"
	MsgLinesOfCode     = "Lines of code: %d"
	MsgReportsWritten  = "Wrote %d reports to %s"
	MsgActionsRecorded = "Recorded %d compile commands to %s"
	MsgSeverityCount   = "Severity: critical %d, high %d, medium %d, low %d, style %d, unspecified %d"
	MsgStatusCount     = "Status: new %d, unresolved %d, reopened %d, resolved %d, off %d, unavailable %d"
)

var zh = map[string]string{
	MsgNoSnapshot:      "运行 %s 没有历史快照",
	MsgComparing:       "正在比较 %d 个基线报告与 %d 个新报告",
	MsgCompareResult:   "新增: %d, 已解决: %d, 未解决: %d",
	MsgSnapshotSaved:   "快照 %s 已保存到运行 %s",
	MsgArchived:        "已归档 %s",
	MsgLinesOfCode:     "代码行数: %d",
	MsgReportsWritten:  "已将 %d 个报告写入 %s",
	MsgActionsRecorded: "已将 %d 条编译命令记录到 %s",
	MsgSeverityCount:   "严重程度: 严重 %d, 高 %d, 中 %d, 低 %d, 风格 %d, 未指定 %d",
	MsgStatusCount:     "状态: 新增 %d, 未解决 %d, 重新打开 %d, 已解决 %d, 已关闭 %d, 不可用 %d",
}

func init() {
	for key, msg := range zh {
		if err := message.SetString(language.Chinese, key, msg); err != nil {
			glog.Errorf("message.SetString(%s): %v", key, err)
		}
	}
}

// GetPrinter returns the printer of lang, English when lang is unknown.
func GetPrinter(lang string) *message.Printer {
	langTag, exist := languageMap[lang]
	if !exist {
		langTag = languageMap["en"]
	}
	return message.NewPrinter(langTag)
}

// FprintfWithTimeStamp localizes format and writes it to w behind a time
// stamp. The line goes to the info log too.
func FprintfWithTimeStamp(w io.Writer, p *message.Printer, format string, arg ...any) {
	prefix := fmt.Sprintf("%v ", time.Now().Format("2006-01-02 15:04:05"))
	line := prefix + p.Sprintf(format, arg...)
	fmt.Fprintln(w, line)
	glog.Info(line)
}
