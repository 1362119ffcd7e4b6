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
Package pathutil holds the path and token helpers shared by the build logger.
They are pure string operations except MakeAbsolute and ResolveExecutable,
which consult the file system.
*/
package pathutil

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("path cannot be resolved")

// MakeAbsolute returns the absolute, symlink-free form of path. Relative paths
// are taken relative to the current working directory.
//
// When path does not exist and mustExist is false, trailing components are
// stripped until an existing ancestor is found. The ancestor is resolved and
// the stripped components are appended again, so an output file which is not
// yet created still gets a canonical location.
func MakeAbsolute(path string, mustExist bool) (string, error) {
	if path == "" {
		return "", ErrNotFound
	}
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", ErrNotFound
		}
		path = filepath.Join(cwd, path)
	} else {
		path = filepath.Clean(path)
	}
	if mustExist {
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return "", ErrNotFound
		}
		return real, nil
	}
	real, ok := resolveAncestor(path)
	if !ok {
		return "", ErrNotFound
	}
	return real, nil
}

func resolveAncestor(path string) (string, bool) {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real, true
	}
	dir, base := filepath.Split(path)
	if base == "" || base == "." || base == ".." {
		return "", false
	}
	dir = filepath.Clean(dir)
	if dir == path {
		// reached the root without success
		return "", false
	}
	parent, ok := resolveAncestor(dir)
	if !ok {
		return "", false
	}
	return filepath.Join(parent, base), true
}

// MakeAbsoluteOrKeep is the lenient variant used by the argument parser: the
// original string is returned when it cannot be resolved.
func MakeAbsoluteOrKeep(path string, mustExist bool) string {
	abs, err := MakeAbsolute(path, mustExist)
	if err != nil {
		return path
	}
	return abs
}

// ShellEscape quotes s for display as part of a recovered command line. The
// result is wrapped in double quotes only when s contains a space.
func ShellEscape(s string) string {
	var b strings.Builder
	quote := strings.ContainsRune(s, ' ')
	if quote {
		b.WriteByte('"')
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(c)
		}
	}
	if quote {
		b.WriteByte('"')
	}
	return b.String()
}

func lastSegment(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx != -1 {
		return path[idx+1:]
	}
	return path
}

// FileExtension returns the part of the last path segment after its last dot.
// The boolean is false when the segment has no dot.
func FileExtension(path string, toLower bool) (string, bool) {
	name := lastSegment(path)
	idx := strings.LastIndexByte(name, '.')
	if idx == -1 {
		return "", false
	}
	ext := name[idx+1:]
	if toLower {
		ext = strings.ToLower(ext)
	}
	return ext, true
}

func FileNameWithoutExt(path string) string {
	name := lastSegment(path)
	if idx := strings.LastIndexByte(name, '.'); idx != -1 {
		return name[:idx]
	}
	return name
}

// FileDirectory returns everything before the last slash. "/" is its own
// directory and a bare file name has an empty directory.
func FileDirectory(path string) string {
	idx := strings.LastIndexByte(path, '/')
	switch {
	case idx == -1:
		return ""
	case idx == 0:
		return "/"
	}
	return path[:idx]
}

func PathWithoutExtension(path string) string {
	slash := strings.LastIndexByte(path, '/')
	dot := strings.LastIndexByte(path, '.')
	if dot == -1 || dot < slash {
		return path
	}
	return path[:dot]
}

// ResolveExecutable finds the real location of a program the same way a
// shell would: names with a slash are resolved against the working
// directory, bare names are searched in $PATH. The name itself is returned
// when neither works.
func ResolveExecutable(name string) string {
	if strings.ContainsRune(name, filepath.Separator) {
		return MakeAbsoluteOrKeep(name, true)
	}
	found, err := exec.LookPath(name)
	if err != nil {
		return name
	}
	return MakeAbsoluteOrKeep(found, true)
}
