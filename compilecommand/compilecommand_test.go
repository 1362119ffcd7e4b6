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

package compilecommand

import (
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func TestArgs(t *testing.T) {
	for _, testCase := range [...]struct {
		cc       CompileCommand
		expected []string
	}{
		{
			cc:       CompileCommand{Arguments: []string{"gcc", "-c", "a.c"}, Command: "ignored"},
			expected: []string{"gcc", "-c", "a.c"},
		},
		{
			cc:       CompileCommand{Command: `gcc -DNAME="a b" -c 'my file.c'`},
			expected: []string{"gcc", "-DNAME=a b", "-c", "my file.c"},
		},
	} {
		got, err := testCase.cc.Args()
		if err != nil {
			t.Fatalf("Args: %v", err)
		}
		if !reflect.DeepEqual(got, testCase.expected) {
			t.Errorf("unexpected result for %v. got: %v. expected: %v.", testCase.cc, got, testCase.expected)
		}
	}
	if _, err := (CompileCommand{Command: `gcc "unterminated`}).Args(); err == nil {
		t.Error("Args should fail on an unterminated quote")
	}
}

func TestParse(t *testing.T) {
	for _, content := range []string{"", "  \n", "[]"} {
		commands, err := Parse([]byte(content))
		if err != nil {
			t.Fatalf("Parse(%q): %v", content, err)
		}
		if len(commands) != 0 {
			t.Errorf("Parse(%q) = %v", content, commands)
		}
	}
	if _, err := Parse([]byte("{")); err == nil {
		t.Error("Parse should fail on invalid json")
	}
}

func entry(file string, args ...string) CompileCommand {
	return CompileCommand{Arguments: append([]string{"gcc"}, args...), File: file, Directory: "/src"}
}

func TestMerge(t *testing.T) {
	commands := []CompileCommand{entry("/src/a.c", "-c", "/src/a.c")}
	merged := Merge(commands, []CompileCommand{
		entry("/src/a.c", "-c", "/src/a.c"),
		entry("/src/a.c", "-O2", "-c", "/src/a.c"),
		entry("/src/b.c", "-c", "/src/b.c"),
		entry("/src/b.c", "-c", "/src/b.c"),
	})
	expected := []CompileCommand{
		entry("/src/a.c", "-c", "/src/a.c"),
		entry("/src/a.c", "-O2", "-c", "/src/a.c"),
		entry("/src/b.c", "-c", "/src/b.c"),
	}
	if !reflect.DeepEqual(merged, expected) {
		t.Errorf("unexpected result. got: %v. expected: %v.", merged, expected)
	}
	// the command form and the arguments form of one entry are equal
	merged = Merge(expected, []CompileCommand{{Command: "gcc -c /src/b.c", File: "/src/b.c", Directory: "/src"}})
	if len(merged) != len(expected) {
		t.Errorf("command form was added again: %v", merged)
	}
}

func TestAppendFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compile_commands.json")
	var wg sync.WaitGroup
	for _, file := range []string{"a.c", "b.c", "c.c", "d.c", "a.c"} {
		wg.Add(1)
		go func(file string) {
			defer wg.Done()
			if err := AppendFile(path, []CompileCommand{entry("/src/"+file, "-c", "/src/"+file)}); err != nil {
				t.Errorf("AppendFile: %v", err)
			}
		}(file)
	}
	wg.Wait()
	commands, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	files := Files(commands)
	expected := []string{"/src/a.c", "/src/b.c", "/src/c.c", "/src/d.c"}
	if !reflect.DeepEqual(files, expected) {
		t.Errorf("unexpected result. got: %v. expected: %v.", files, expected)
	}
	if len(commands) != 4 {
		t.Errorf("duplicated entries in %v", commands)
	}
}

func TestAppendFileKeepsBrokenDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compile_commands.json")
	if err := os.WriteFile(path, []byte("[{"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := AppendFile(path, []CompileCommand{entry("/src/a.c")}); err != nil {
		t.Fatalf("AppendFile: %v", err)
	}
	commands, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(commands) != 1 {
		t.Errorf("unexpected result %v", commands)
	}
	broken, err := filepath.Glob(path + ".broken-*")
	if err != nil || len(broken) != 1 {
		t.Fatalf("broken database not kept: %v %v", broken, err)
	}
	content, err := os.ReadFile(broken[0])
	if err != nil || string(content) != "[{" {
		t.Errorf("unexpected content %q of %s: %v", content, broken[0], err)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compile_commands.json")
	if err := WriteFile(path, nil); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "[]\n" {
		t.Errorf("unexpected content %q", content)
	}
}
