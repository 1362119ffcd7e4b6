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

	"naive.systems/ccreport/pathutil"
	"naive.systems/ccreport/vector"
)

var javacPathListFlags = map[string]bool{
	"-cp": true, "-classpath": true, "--class-path": true,
	"-sourcepath": true, "--source-path": true,
}

func absolutizePathList(list string) string {
	entries := strings.Split(list, ":")
	for i, entry := range entries {
		if entry != "" {
			entries[i] = pathutil.MakeAbsoluteOrKeep(entry, true)
		}
	}
	return strings.Join(entries, ":")
}

// ParseJavac parses a javac command line. Sources are the .java files, the
// output is the class directory given by -d.
func ParseJavac(argv []string, cfg *Config) (*Action, bool) {
	if len(argv) == 0 {
		return nil, false
	}
	args := vector.New[string](len(argv), nil)
	sources := vector.New[string](0, nil)
	output := ""
	tokens := expandResponseFiles(argv[1:])
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		hasNext := i+1 < len(tokens)
		switch {
		case token == "-d" && hasNext:
			output = pathutil.MakeAbsoluteOrKeep(tokens[i+1], false)
			args.Add(token)
			args.Add(output)
			i++
		case javacPathListFlags[token] && hasNext:
			args.Add(token)
			args.Add(absolutizePathList(tokens[i+1]))
			i++
		case strings.HasSuffix(strings.ToLower(token), ".java"):
			if abs, err := pathutil.MakeAbsolute(token, true); err == nil {
				sources.AddUnique(abs, equalStrings)
				args.Add(abs)
				continue
			}
			args.Add(token)
		default:
			args.Add(token)
		}
	}
	dropIgnored(sources, cfg.IgnorePatterns)
	if sources.Len() == 0 {
		return nil, false
	}
	return &Action{
		ToolName:   argv[0],
		Executable: pathutil.ResolveExecutable(argv[0]),
		Language:   Java,
		Arguments:  append([]string(nil), args.Items()...),
		Sources:    append([]string(nil), sources.Items()...),
		Output:     output,
		Directory:  workingDir(),
	}, true
}
