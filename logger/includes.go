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
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/golang/glog"
	"naive.systems/ccreport/pathutil"
)

// Markers delimit the include search list printed by "cc -E -v". The exact
// wording differs between compilers and versions, so both can be
// overridden from the environment.
type Markers struct {
	Start string
	End   string
}

func DefaultMarkers() Markers {
	return Markers{
		Start: "#include <...> search starts here:",
		End:   "End of search list.",
	}
}

// PathsFromEnvVar splits a colon separated include path list. Empty entries
// stand for the current directory. When flag is not empty it precedes every
// path as a separate element.
func PathsFromEnvVar(value, flag string) []string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	var paths []string
	for _, dir := range strings.Split(value, ":") {
		if dir == "" {
			dir = cwd
		} else {
			dir = pathutil.MakeAbsoluteOrKeep(dir, false)
		}
		if flag != "" {
			paths = append(paths, flag)
		}
		paths = append(paths, dir)
	}
	return paths
}

// ParseIncludeBanner extracts the directories listed between the start and
// end markers. ok is false unless both markers were seen.
func ParseIncludeBanner(output string, markers Markers) (dirs []string, ok bool) {
	inside, hasStart := false, false
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !inside {
			if strings.HasPrefix(line, markers.Start) {
				inside, hasStart = true, true
			}
			continue
		}
		if strings.HasPrefix(line, markers.End) {
			return dirs, hasStart
		}
		line = strings.TrimSpace(strings.TrimSuffix(line, "(framework directory)"))
		if line != "" {
			dirs = append(dirs, line)
		}
	}
	return dirs, false
}

// isCompilerInternal reports the private header directories of gcc, which
// only that compiler can use.
func isCompilerInternal(dir string) bool {
	return strings.Contains(dir, "/lib/gcc") && strings.Contains(dir, "include")
}

// QueryDefaultIncludeDirs asks compiler for its implicit include search
// path by preprocessing an empty C++ input in verbose mode.
func QueryDefaultIncludeDirs(compiler string, markers Markers) ([]string, error) {
	cmd := exec.Command(compiler, "-xc++", "-E", "-v", "-")
	cmd.Stdin = strings.NewReader("")
	stdoutStderr, err := cmd.CombinedOutput()
	if err != nil {
		// The banner goes to stderr and some drivers exit non-zero here.
		glog.Infof("To get the stderr, this is not an error. cmd.CombinedOutput: %v", err)
	}
	dirs, ok := ParseIncludeBanner(string(stdoutStderr), markers)
	if !ok {
		glog.Errorf("Retrieving default includes by executing: %s", cmd.String())
		return nil, fmt.Errorf("no include search list in the output of %s", compiler)
	}
	var result []string
	for _, dir := range dirs {
		dir = pathutil.MakeAbsoluteOrKeep(dir, false)
		if isCompilerInternal(dir) {
			continue
		}
		result = append(result, dir)
	}
	return result, nil
}
