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

package logger

import (
	"strings"

	"naive.systems/ccreport/compilecommand"
	"naive.systems/ccreport/pathutil"
)

type Language int

const (
	UnknownLanguage Language = iota
	C
	CPlusPlus
	ObjC
	Java
)

func (l Language) String() string {
	switch l {
	case C:
		return "c"
	case CPlusPlus:
		return "c++"
	case ObjC:
		return "objective-c"
	case Java:
		return "java"
	}
	return "unknown"
}

// Action is one compiler invocation reduced to what an analyzer needs.
type Action struct {
	ToolName   string
	Executable string
	Language   Language
	// Arguments excludes the program itself.
	Arguments []string
	Sources   []string
	Output    string
	Directory string
}

// CommandLine renders the action for display with every token shell escaped.
func (a *Action) CommandLine() string {
	tokens := make([]string, 0, len(a.Arguments)+1)
	tokens = append(tokens, pathutil.ShellEscape(a.Executable))
	for _, arg := range a.Arguments {
		tokens = append(tokens, pathutil.ShellEscape(arg))
	}
	return strings.Join(tokens, " ")
}

// Entries converts the action to compilation database entries, one per
// source file.
func (a *Action) Entries() []compilecommand.CompileCommand {
	entries := make([]compilecommand.CompileCommand, 0, len(a.Sources))
	for _, source := range a.Sources {
		arguments := make([]string, 0, len(a.Arguments)+1)
		arguments = append(arguments, a.Executable)
		arguments = append(arguments, a.Arguments...)
		entries = append(entries, compilecommand.CompileCommand{
			Arguments: arguments,
			File:      source,
			Directory: a.Directory,
			Output:    a.Output,
		})
	}
	return entries
}
