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
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/golang/glog"
	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

type sourceFile struct {
	content []byte
	lines   []string
	// nil when the file is not C or C++ or could not be parsed
	tree *sitter.Tree
	// guards walks of tree, the binding caches nodes per tree
	mu sync.Mutex
}

// line returns the 1-based line n, ok is false when out of range.
func (f *sourceFile) line(n int) (string, bool) {
	if n < 1 || n > len(f.lines) {
		return "", false
	}
	return f.lines[n-1], true
}

func grammarFor(path string) *sitter.Language {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return nil
	}
	switch strings.ToLower(path[i+1:]) {
	case "c":
		return c.GetLanguage()
	case "cc", "cpp", "cxx", "c++", "h", "hh", "hpp", "hxx":
		return cpp.GetLanguage()
	}
	return nil
}

// sourceCache keeps recently hashed files, reports come sorted by file
// most of the time.
type sourceCache struct {
	files *lru.Cache[string, *sourceFile]
	// MIME name of the source encoding, "" for UTF-8
	charset string
}

func newSourceCache(size int, charset string) (*sourceCache, error) {
	files, err := lru.New[string, *sourceFile](size)
	if err != nil {
		return nil, err
	}
	return &sourceCache{files: files, charset: charset}, nil
}

// get returns nil when path cannot be read. Failures are cached as well.
func (s *sourceCache) get(path string) *sourceFile {
	if f, ok := s.files.Get(path); ok {
		return f
	}
	f := loadSource(path, s.charset)
	s.files.Add(path, f)
	return f
}

// convertCharset decodes b from charset to UTF-8. b is returned as is when
// the charset is unknown or b does not decode.
func convertCharset(b []byte, charset string) []byte {
	e, err := ianaindex.MIME.Encoding(charset)
	if err != nil || e == nil {
		glog.Warningf("unknown charset %q, the source is considered as UTF-8", charset)
		return b
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(b), e.NewDecoder()))
	if err != nil {
		glog.Warningf("decoding from %s: %v, the source is considered as UTF-8", charset, err)
		return b
	}
	return decoded
}

func isUTF8(charset string) bool {
	switch strings.ToLower(charset) {
	case "", "utf8", "utf-8":
		return true
	}
	return false
}

func loadSource(path, charset string) *sourceFile {
	content, err := os.ReadFile(path)
	if err != nil {
		glog.Warningf("os.ReadFile: %v", err)
		return nil
	}
	if !isUTF8(charset) {
		content = convertCharset(content, charset)
	}
	f := &sourceFile{
		content: content,
		lines:   strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n"),
	}
	if lang := grammarFor(path); lang != nil {
		parser := sitter.NewParser()
		parser.SetLanguage(lang)
		tree, err := parser.ParseCtx(context.Background(), nil, content)
		if err != nil {
			glog.Warningf("parser.ParseCtx(%s): %v", path, err)
		} else {
			f.tree = tree
		}
	}
	return f
}

// enclosingFunction returns the declarator of the innermost function
// definition spanning the 1-based line and the line the definition starts
// on. At file scope it returns "" and 1.
func (f *sourceFile) enclosingFunction(line int) (string, int) {
	if f.tree == nil {
		return "", 1
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row := uint32(line - 1)
	var fn *sitter.Node
	node := f.tree.RootNode()
	for node != nil {
		if node.Type() == "function_definition" {
			fn = node
		}
		var next *sitter.Node
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.StartPoint().Row <= row && row <= child.EndPoint().Row {
				next = child
				break
			}
		}
		node = next
	}
	if fn == nil {
		return "", 1
	}
	start := int(fn.StartPoint().Row) + 1
	declarator := fn.ChildByFieldName("declarator")
	if declarator == nil {
		return "", start
	}
	return collapseSpaces(declarator.Content(f.content)), start
}

// occurrence counts the lines from start up to and including line whose
// text equals the text of line once spaces are collapsed.
func (f *sourceFile) occurrence(start, line int) int {
	text, ok := f.line(line)
	if !ok {
		return 0
	}
	text = collapseSpaces(text)
	n := 0
	for i := start; i <= line; i++ {
		if other, _ := f.line(i); collapseSpaces(other) == text {
			n++
		}
	}
	return n
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
