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

package report

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/exp/slices"
	"naive.systems/ccreport/runner"
)

// Hasher computes report identities. A hash covers the checker, the
// message, the file name, the text of the reported line and of every bug
// path event, the column relative to the indentation and the signature of
// the enclosing function. Repeats of the reported line within that
// function are told apart by their ordinal. Line numbers are left out so
// that edits above a report do not change it. When the source cannot be
// read the line number is used instead of the line text.
type Hasher struct {
	sources *sourceCache
}

const defaultCacheSize = 256

func NewHasher() (*Hasher, error) {
	return NewHasherWithCharset("")
}

// NewHasherWithCharset reads the sources in the named encoding, such as
// GBK, and hashes their text as UTF-8.
func NewHasherWithCharset(charset string) (*Hasher, error) {
	sources, err := newSourceCache(defaultCacheSize, charset)
	if err != nil {
		return nil, fmt.Errorf("newSourceCache: %v", err)
	}
	return &Hasher{sources: sources}, nil
}

type fieldWriter struct {
	buf []byte
}

// write length prefixes every field so that adjacent fields cannot run
// into each other.
func (w *fieldWriter) write(field string) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(len(field)))
	w.buf = append(w.buf, field...)
}

func (w *fieldWriter) sum() string {
	digest := sha256.Sum256(w.buf)
	return hex.EncodeToString(digest[:16])
}

// indentation is the number of leading white space characters.
func indentation(line string) int {
	return len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
}

func relativeColumn(line string, column int) int {
	col := column - indentation(line)
	if col < 0 {
		return 0
	}
	return col
}

// Hash returns the hash of r and the way it was computed.
func (h *Hasher) Hash(r *Report) (string, HashType) {
	src := h.sources.get(r.File)
	if src == nil {
		return LineHash(r), HashLine
	}
	text, ok := src.line(r.Line)
	if !ok {
		return LineHash(r), HashLine
	}
	w := &fieldWriter{}
	w.write(string(HashContext))
	w.write(filepath.Base(r.File))
	w.write(r.Checker)
	w.write(r.Message)
	w.write(collapseSpaces(text))
	w.write(strconv.Itoa(relativeColumn(text, r.Column)))
	signature, start := src.enclosingFunction(r.Line)
	w.write(signature)
	w.write(strconv.Itoa(src.occurrence(start, r.Line)))
	for _, e := range r.BugPath {
		w.write(filepath.Base(e.File))
		w.write(e.Message)
		if esrc := h.sources.get(e.File); esrc != nil {
			if etext, ok := esrc.line(e.Line); ok {
				w.write(collapseSpaces(etext))
				continue
			}
		}
		w.write(strconv.Itoa(e.Line))
	}
	return w.sum(), HashContext
}

// LineHash is the hash of a report whose source is not available.
func LineHash(r *Report) string {
	w := &fieldWriter{}
	w.write(string(HashLine))
	w.write(filepath.Base(r.File))
	w.write(r.Checker)
	w.write(r.Message)
	w.write(strconv.Itoa(r.Line))
	w.write(strconv.Itoa(r.Column))
	for _, e := range r.BugPath {
		w.write(filepath.Base(e.File))
		w.write(e.Message)
		w.write(strconv.Itoa(e.Line))
	}
	return w.sum()
}

// HashAll sets Hash and HashType of every report.
func (h *Hasher) HashAll(reports []Report) {
	for i := range reports {
		reports[i].Hash, reports[i].HashType = h.Hash(&reports[i])
	}
}

// HashAllParallel is HashAll with the files spread over numWorkers
// workers. All reports of a file are hashed by the same worker.
func (h *Hasher) HashAllParallel(ctx context.Context, reports []Report, numWorkers int) error {
	byFile := make(map[string][]int)
	for i := range reports {
		byFile[reports[i].File] = append(byFile[reports[i].File], i)
	}
	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	slices.Sort(files)
	tasks := make([]runner.Task[struct{}], len(files))
	for id, file := range files {
		indexes := byFile[file]
		tasks[id] = runner.Task[struct{}]{ID: id, Name: file, Run: func(ctx context.Context) (struct{}, error) {
			for _, i := range indexes {
				reports[i].Hash, reports[i].HashType = h.Hash(&reports[i])
			}
			return struct{}{}, nil
		}}
	}
	_, err := runner.Run(ctx, numWorkers, tasks, runner.NewProgress(len(tasks), nil))
	return err
}
