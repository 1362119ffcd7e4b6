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

package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Hunk is the header of one change block. Positions are 1-based; a hunk
// with no old lines inserts after OldPos.
type Hunk struct {
	OldPos, OldLines, NewPos, NewLines int
}

// File is the change of one file. OldName is empty for an added file and
// NewName is empty for a deleted one.
type File struct {
	NewName string
	OldName string
	Hunks   []*Hunk
}

type Patch struct {
	Files []*File
}

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// parseName returns the file name of a "--- " or "+++ " line without the
// git prefix and without the timestamp plain "diff -u" appends after a tab.
// /dev/null gives "".
func parseName(line, marker, prefix string) (string, error) {
	name := strings.TrimPrefix(line, marker)
	if i := strings.IndexByte(name, '\t'); i >= 0 {
		name = name[:i]
	}
	switch name {
	case "":
		return "", fmt.Errorf("no file name in '%s'", line)
	case "/dev/null":
		return "", nil
	}
	return strings.TrimPrefix(name, prefix), nil
}

// count parses the optional line count of a hunk range, 1 when omitted.
func count(s string) (int, error) {
	if s == "" {
		return 1, nil
	}
	return strconv.Atoi(s)
}

func parseHunkHeader(line string) (*Hunk, error) {
	m := hunkHeader.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("could not extract hunk info from line '%s'", line)
	}
	var h Hunk
	var err error
	if h.OldPos, err = strconv.Atoi(m[1]); err != nil {
		return nil, fmt.Errorf("old position in '%s': %v", line, err)
	}
	if h.OldLines, err = count(m[2]); err != nil {
		return nil, fmt.Errorf("old line count in '%s': %v", line, err)
	}
	if h.NewPos, err = strconv.Atoi(m[3]); err != nil {
		return nil, fmt.Errorf("new position in '%s': %v", line, err)
	}
	if h.NewLines, err = count(m[4]); err != nil {
		return nil, fmt.Errorf("new line count in '%s': %v", line, err)
	}
	return &h, nil
}

/*
Parse reads a unified diff as written by "git diff" or "diff -u". Only the
"--- ", "+++ " and "@@ -" lines matter, the hunk bodies are skipped:

	diff --git a/src/parse.c b/src/parse.c
	--- a/src/parse.c
	+++ b/src/parse.c
	@@ -12 +12,2 @@ int parse(const char *s) {
	-	int n;
	+	int n = 0;
	+	assert(s);

Added files have "--- /dev/null", deleted files "+++ /dev/null".
*/
func Parse(diff string) (*Patch, error) {
	var p Patch
	var f *File
	for i, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "--- "):
			name, err := parseName(line, "--- ", "a/")
			if err != nil {
				return nil, fmt.Errorf("line %d: %v", i, err)
			}
			f = &File{OldName: name}
			p.Files = append(p.Files, f)
		case strings.HasPrefix(line, "+++ "):
			if f == nil || len(f.Hunks) > 0 {
				return nil, fmt.Errorf("unexpected line %d '%s'", i, line)
			}
			name, err := parseName(line, "+++ ", "b/")
			if err != nil {
				return nil, fmt.Errorf("line %d: %v", i, err)
			}
			f.NewName = name
		case strings.HasPrefix(line, "@@ -"):
			if f == nil {
				return nil, fmt.Errorf("hunk before any file at line %d '%s'", i, line)
			}
			h, err := parseHunkHeader(line)
			if err != nil {
				return nil, err
			}
			f.Hunks = append(f.Hunks, h)
		}
	}
	return &p, nil
}

// FindFile returns the file whose old name is path or a suffix of path on a
// path component boundary, so that absolute report paths find the entries
// of a diff taken at the repository root.
func (p *Patch) FindFile(path string) *File {
	for _, f := range p.Files {
		name := f.OldName
		if name == "" {
			continue
		}
		if path == name || strings.HasSuffix(path, "/"+name) {
			return f
		}
	}
	return nil
}

// MapLine maps a line of the old version of path to the new version. ok is
// false when the line was changed or the file was deleted. Lines of files
// the patch does not touch are returned unchanged.
func (p *Patch) MapLine(path string, line int) (int, bool) {
	f := p.FindFile(path)
	if f == nil {
		return line, true
	}
	if f.NewName == "" {
		return 0, false
	}
	return f.MapLine(line)
}

// MapLine expects hunks without context lines, in old line order, as
// produced by "git diff -U0".
func (f *File) MapLine(line int) (int, bool) {
	offset := 0
	for _, h := range f.Hunks {
		if aboveHunk(line, h.OldPos, h.OldLines) {
			break
		}
		if inHunk(line, h.OldPos, h.OldLines) {
			return 0, false
		}
		offset += h.NewLines - h.OldLines
	}
	return line + offset, true
}

func inHunk(line, start, lines int) bool {
	return line >= start && line < start+lines
}

// A hunk without old lines inserts after line start.
func aboveHunk(line, start, lines int) bool {
	if lines == 0 {
		return line <= start
	}
	return line < start
}
