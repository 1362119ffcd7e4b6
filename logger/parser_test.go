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
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// workspace creates the files under a fresh directory and changes into it.
// Names ending with a slash are created as directories.
func workspace(t *testing.T, files ...string) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("filepath.EvalSymlinks: %v", err)
	}
	for _, f := range files {
		path := filepath.Join(dir, f)
		if strings.HasSuffix(f, "/") {
			err = os.MkdirAll(path, os.ModePerm)
		} else {
			err = os.WriteFile(path, nil, 0644)
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("os.Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("os.Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
	return dir
}

func mustParse(t *testing.T, argv []string, cfg *Config) *Action {
	t.Helper()
	action, ok := Parse(argv, cfg)
	if !ok {
		t.Fatalf("Parse(%v) dropped the command", argv)
	}
	return action
}

func TestParseCompileCommand(t *testing.T) {
	dir := workspace(t, "main.cpp", "include/")
	action := mustParse(t, []string{"g++", "-Wall", "-Iinclude", "-o", "out.o", "main.cpp"}, ConfigFromMap(nil))

	expectedArgs := []string{"-Wall", "-I" + filepath.Join(dir, "include"), "-o", filepath.Join(dir, "out.o"), filepath.Join(dir, "main.cpp")}
	if !reflect.DeepEqual(action.Arguments, expectedArgs) {
		t.Errorf("unexpected arguments. got: %v. expected: %v.", action.Arguments, expectedArgs)
	}
	expectedSources := []string{filepath.Join(dir, "main.cpp")}
	if !reflect.DeepEqual(action.Sources, expectedSources) {
		t.Errorf("unexpected sources. got: %v. expected: %v.", action.Sources, expectedSources)
	}
	if action.Output != filepath.Join(dir, "out.o") {
		t.Errorf("unexpected output %s", action.Output)
	}
	if action.Language != CPlusPlus {
		t.Errorf("unexpected language %v", action.Language)
	}
	if action.ToolName != "g++" || action.Directory != dir {
		t.Errorf("unexpected action %+v", action)
	}
}

func TestParseDropsLinkStep(t *testing.T) {
	dir := workspace(t, "a.o", "b.o", "libc.a")
	argv := []string{"gcc", "a.o", "b.o", "libc.a", "-o", "app"}
	if action, ok := Parse(argv, ConfigFromMap(nil)); ok {
		t.Errorf("link step was logged: %+v", action)
	}

	action := mustParse(t, argv, ConfigFromMap(map[string]string{EnvKeepLink: "1"}))
	expected := []string{filepath.Join(dir, "a.o"), filepath.Join(dir, "b.o"), filepath.Join(dir, "libc.a")}
	if !reflect.DeepEqual(action.Sources, expected) {
		t.Errorf("unexpected sources. got: %v. expected: %v.", action.Sources, expected)
	}
}

func TestParseOutputIsNotSource(t *testing.T) {
	dir := workspace(t, "a.c", "a.o")
	action := mustParse(t, []string{"gcc", "-c", "a.c", "-MT", "a.o", "-o", "a.o"},
		ConfigFromMap(map[string]string{EnvKeepLink: "1"}))
	expected := []string{filepath.Join(dir, "a.c")}
	if !reflect.DeepEqual(action.Sources, expected) {
		t.Errorf("unexpected sources. got: %v. expected: %v.", action.Sources, expected)
	}
}

func TestParseFlagsAreNeverSources(t *testing.T) {
	// files named like the flags exist, so only the flag handling keeps
	// them out
	dir := workspace(t, "-DFOO=bar.cpp", "-Wl,x.c", "-Wp,y.c", "-MFdeps.c", "a.c")
	action := mustParse(t, []string{"gcc", "-DFOO=bar.cpp", "-Wl,x.c", "-Wp,y.c", "-MFdeps.c", "a.c"}, ConfigFromMap(nil))
	expected := []string{filepath.Join(dir, "a.c")}
	if !reflect.DeepEqual(action.Sources, expected) {
		t.Errorf("unexpected sources. got: %v. expected: %v.", action.Sources, expected)
	}
	expectedArgs := []string{"-DFOO=bar.cpp", "-Wl,x.c", "-Wp,y.c", "-MFdeps.c", filepath.Join(dir, "a.c")}
	if !reflect.DeepEqual(action.Arguments, expectedArgs) {
		t.Errorf("unexpected arguments. got: %v. expected: %v.", action.Arguments, expectedArgs)
	}
}

func TestParseDeduplicatesSources(t *testing.T) {
	dir := workspace(t, "a.c", "src/")
	action := mustParse(t, []string{"cc", "a.c", "src/../a.c", "a.c"}, ConfigFromMap(nil))
	expected := []string{filepath.Join(dir, "a.c")}
	if !reflect.DeepEqual(action.Sources, expected) {
		t.Errorf("unexpected sources. got: %v. expected: %v.", action.Sources, expected)
	}
	if len(action.Arguments) != 3 {
		t.Errorf("arguments must keep every token: %v", action.Arguments)
	}
}

func TestParseLanguage(t *testing.T) {
	workspace(t, "a.c", "b.cpp", "c.m")
	for _, testCase := range [...]struct {
		argv     []string
		expected Language
	}{
		{[]string{"gcc", "-c", "a.c"}, C},
		{[]string{"clang", "-c", "b.cpp"}, C},
		{[]string{"clang++", "-c", "a.c"}, CPlusPlus},
		{[]string{"/usr/bin/x86_64-linux-gnu-g++-12", "-c", "a.c"}, CPlusPlus},
		{[]string{"gcc", "-x", "c++", "a.c"}, CPlusPlus},
		{[]string{"g++", "-xc", "b.cpp"}, C},
		{[]string{"g++", "-x", "c-header", "b.cpp"}, C},
		{[]string{"gcc", "-x", "objective-c", "c.m"}, ObjC},
		{[]string{"gcc", "-x", "assembler", "a.c"}, C},
	} {
		action := mustParse(t, testCase.argv, ConfigFromMap(nil))
		if action.Language != testCase.expected {
			t.Errorf("unexpected result for %v. got: %v. expected: %v.", testCase.argv, action.Language, testCase.expected)
		}
	}
}

func TestLanguageFromSources(t *testing.T) {
	if got := languageFromSources([]string{"/a.o", "/b.cc"}); got != CPlusPlus {
		t.Errorf("got %v", got)
	}
	if got := languageFromSources([]string{"/a.mm"}); got != ObjC {
		t.Errorf("got %v", got)
	}
	if got := languageFromSources(nil); got != UnknownLanguage {
		t.Errorf("got %v", got)
	}
}

func TestParseCPath(t *testing.T) {
	dir := workspace(t, "a.c", "inc/", "lib/")
	cfg := ConfigFromMap(map[string]string{EnvCPath: filepath.Join(dir, "inc") + "::rel"})

	action := mustParse(t, []string{"gcc", "-c", "a.c"}, cfg)
	expected := []string{"-I", filepath.Join(dir, "inc"), "-I", dir, "-I", filepath.Join(dir, "rel"), "-c", filepath.Join(dir, "a.c")}
	if !reflect.DeepEqual(action.Arguments, expected) {
		t.Errorf("unexpected arguments. got: %v. expected: %v.", action.Arguments, expected)
	}

	action = mustParse(t, []string{"gcc", "-Ilib", "-c", "-Ilib", "a.c"}, cfg)
	expected = []string{"-I" + filepath.Join(dir, "lib"), "-c", "-I" + filepath.Join(dir, "lib"),
		"-I", filepath.Join(dir, "inc"), "-I", dir, "-I", filepath.Join(dir, "rel"), filepath.Join(dir, "a.c")}
	if !reflect.DeepEqual(action.Arguments, expected) {
		t.Errorf("unexpected arguments. got: %v. expected: %v.", action.Arguments, expected)
	}
}

func TestParseSystemIncludePath(t *testing.T) {
	dir := workspace(t, "a.c", "b.cpp", "inc/", "sys/", "cinc/", "cxxinc/")
	env := map[string]string{
		EnvCIncludePath:     filepath.Join(dir, "cinc"),
		EnvCPlusIncludePath: filepath.Join(dir, "cxxinc"),
	}
	for _, testCase := range [...]struct {
		name     string
		argv     []string
		env      map[string]string
		expected []string
	}{
		{
			name: "c after last isystem",
			argv: []string{"gcc", "-isystem", "sys", "-Iinc", "a.c"},
			env:  env,
			expected: []string{"-isystem", "sys", "-isystem", filepath.Join(dir, "cinc"),
				"-I" + filepath.Join(dir, "inc"), filepath.Join(dir, "a.c")},
		},
		{
			name: "c++ joined isystem",
			argv: []string{"g++", "-Iinc", "-isystemsys", "b.cpp"},
			env:  env,
			expected: []string{"-I" + filepath.Join(dir, "inc"), "-isystemsys", "-isystem", filepath.Join(dir, "cxxinc"),
				filepath.Join(dir, "b.cpp")},
		},
		{
			name: "cpath shifts isystem position",
			argv: []string{"gcc", "-Iinc", "-isystem", "sys", "a.c"},
			env:  map[string]string{EnvCPath: filepath.Join(dir, "inc"), EnvCIncludePath: filepath.Join(dir, "cinc")},
			expected: []string{"-I" + filepath.Join(dir, "inc"), "-I", filepath.Join(dir, "inc"),
				"-isystem", "sys", "-isystem", filepath.Join(dir, "cinc"), filepath.Join(dir, "a.c")},
		},
		{
			name:     "no isystem inserts first",
			argv:     []string{"gcc", "a.c"},
			env:      env,
			expected: []string{"-isystem", filepath.Join(dir, "cinc"), filepath.Join(dir, "a.c")},
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			action := mustParse(t, testCase.argv, ConfigFromMap(testCase.env))
			if !reflect.DeepEqual(action.Arguments, testCase.expected) {
				t.Errorf("unexpected result for %v. got: %v. expected: %v.", testCase.argv, action.Arguments, testCase.expected)
			}
		})
	}
}

func TestParseDefaultIncludeDirs(t *testing.T) {
	dir := workspace(t, "a.c", "inc/")
	cfg := ConfigFromMap(map[string]string{EnvDefDirs: "yes"})
	var queried string
	cfg.QueryIncludes = func(compiler string) ([]string, error) {
		queried = compiler
		return []string{"/opt/include", "/usr/lib/gcc/x86_64-linux-gnu/12/include"}, nil
	}
	action := mustParse(t, []string{"gcc", "-Iinc", "-c", "a.c"}, cfg)
	expected := []string{"-I" + filepath.Join(dir, "inc"), "-I", "/opt/include", "-c", filepath.Join(dir, "a.c")}
	if !reflect.DeepEqual(action.Arguments, expected) {
		t.Errorf("unexpected arguments. got: %v. expected: %v.", action.Arguments, expected)
	}
	if queried != action.Executable {
		t.Errorf("queried %s instead of %s", queried, action.Executable)
	}

	cfg = ConfigFromMap(map[string]string{EnvDefDirs: "0"})
	cfg.QueryIncludes = func(string) ([]string, error) {
		t.Error("QueryIncludes called although CC_LOGGER_DEF_DIRS is off")
		return nil, nil
	}
	mustParse(t, []string{"gcc", "-c", "a.c"}, cfg)
}

func TestParseAbsPath(t *testing.T) {
	dir := workspace(t, "a.c", "inc/", "sys/", "q/", "root/")
	argv := []string{"gcc", "-I", "inc", "-isystem", "sys", "-iquote", "q", "--sysroot=root", "-Lmissing", "a.c"}

	action := mustParse(t, argv, ConfigFromMap(map[string]string{EnvAbsPath: "true"}))
	expected := []string{"-I", filepath.Join(dir, "inc"), "-isystem", filepath.Join(dir, "sys"),
		"-iquote", filepath.Join(dir, "q"), "--sysroot=" + filepath.Join(dir, "root"), "-Lmissing", filepath.Join(dir, "a.c")}
	if !reflect.DeepEqual(action.Arguments, expected) {
		t.Errorf("unexpected arguments. got: %v. expected: %v.", action.Arguments, expected)
	}

	action = mustParse(t, argv, ConfigFromMap(nil))
	expected = []string{"-I", "inc", "-isystem", "sys", "-iquote", "q", "--sysroot=root", "-Lmissing", filepath.Join(dir, "a.c")}
	if !reflect.DeepEqual(action.Arguments, expected) {
		t.Errorf("unexpected arguments. got: %v. expected: %v.", action.Arguments, expected)
	}
}

func TestParsePathFlagValuesAreNotSources(t *testing.T) {
	dir := workspace(t, "main.c", "config.h", "defs.h", "inc/")
	argv := []string{"gcc", "-include", "config.h", "--include", "defs.h", "-imacros", "defs.h", "-I", "inc", "-c", "main.c"}
	expected := []string{filepath.Join(dir, "main.c")}
	for _, env := range []map[string]string{nil, {EnvAbsPath: "1"}} {
		action := mustParse(t, argv, ConfigFromMap(env))
		if !reflect.DeepEqual(action.Sources, expected) {
			t.Errorf("unexpected sources for %v. got: %v. expected: %v.", env, action.Sources, expected)
		}
	}

	action := mustParse(t, argv, ConfigFromMap(nil))
	if action.Arguments[1] != "config.h" || action.Arguments[3] != "defs.h" {
		t.Errorf("include values were rewritten: %v", action.Arguments)
	}
	action = mustParse(t, argv, ConfigFromMap(map[string]string{EnvAbsPath: "1"}))
	if action.Arguments[1] != filepath.Join(dir, "config.h") {
		t.Errorf("include value is not absolute: %v", action.Arguments)
	}
}

func TestParseIgnorePatterns(t *testing.T) {
	dir := workspace(t, "third_party/", "third_party/z.c", "a.c")
	cfg := ConfigFromMap(map[string]string{EnvIgnore: filepath.Join(dir, "third_party") + "/**"})
	if action, ok := Parse([]string{"gcc", "-c", "third_party/z.c"}, cfg); ok {
		t.Errorf("ignored source was logged: %+v", action)
	}
	action := mustParse(t, []string{"gcc", "third_party/z.c", "a.c"}, cfg)
	expected := []string{filepath.Join(dir, "a.c")}
	if !reflect.DeepEqual(action.Sources, expected) {
		t.Errorf("unexpected sources. got: %v. expected: %v.", action.Sources, expected)
	}
}

func TestParseLauncherAndResponseFile(t *testing.T) {
	dir := workspace(t, "a.c", "b.c")
	if err := os.WriteFile(filepath.Join(dir, "args.rsp"), []byte("-DNAME='a b'\n-c b.c"), 0644); err != nil {
		t.Fatal(err)
	}
	action := mustParse(t, []string{"ccache", "gcc", "a.c", "@args.rsp", "@missing.rsp"}, ConfigFromMap(nil))
	if action.ToolName != "gcc" {
		t.Errorf("unexpected tool %s", action.ToolName)
	}
	expected := []string{filepath.Join(dir, "a.c"), "-DNAME=a b", "-c", filepath.Join(dir, "b.c"), "@missing.rsp"}
	if !reflect.DeepEqual(action.Arguments, expected) {
		t.Errorf("unexpected arguments. got: %v. expected: %v.", action.Arguments, expected)
	}
}

func TestParseNotCompiler(t *testing.T) {
	workspace(t, "a.c")
	for _, argv := range [][]string{
		nil,
		{"ld", "a.c"},
		{"ccache"},
		{"gcc", "-c", "missing.c"},
		{"gcc", "--version"},
	} {
		if action, ok := Parse(argv, ConfigFromMap(nil)); ok {
			t.Errorf("Parse(%v) = %+v", argv, action)
		}
	}
}

func TestParseJavac(t *testing.T) {
	dir := workspace(t, "Main.java", "Util.JAVA", "lib/")
	action := mustParse(t, []string{"javac", "-d", "classes", "-cp", "lib:other.jar", "Main.java", "Util.JAVA", "Main.java"}, ConfigFromMap(nil))
	expected := []string{"-d", filepath.Join(dir, "classes"), "-cp", filepath.Join(dir, "lib") + ":other.jar",
		filepath.Join(dir, "Main.java"), filepath.Join(dir, "Util.JAVA"), filepath.Join(dir, "Main.java")}
	if !reflect.DeepEqual(action.Arguments, expected) {
		t.Errorf("unexpected arguments. got: %v. expected: %v.", action.Arguments, expected)
	}
	expectedSources := []string{filepath.Join(dir, "Main.java"), filepath.Join(dir, "Util.JAVA")}
	if !reflect.DeepEqual(action.Sources, expectedSources) {
		t.Errorf("unexpected sources. got: %v. expected: %v.", action.Sources, expectedSources)
	}
	if action.Output != filepath.Join(dir, "classes") || action.Language != Java {
		t.Errorf("unexpected action %+v", action)
	}

	if _, ok := Parse([]string{"javac", "-version"}, ConfigFromMap(nil)); ok {
		t.Error("javac without sources was logged")
	}
}

func TestActionEntries(t *testing.T) {
	action := &Action{
		ToolName:   "gcc",
		Executable: "/usr/bin/gcc",
		Arguments:  []string{"-DMSG=hello world", "-c", "/src/a.c", "/src/b.c"},
		Sources:    []string{"/src/a.c", "/src/b.c"},
		Output:     "/src/out.o",
		Directory:  "/src",
	}
	entries := action.Entries()
	if len(entries) != 2 {
		t.Fatalf("unexpected entries %v", entries)
	}
	for i, source := range action.Sources {
		if entries[i].File != source || entries[i].Directory != "/src" || entries[i].Output != "/src/out.o" {
			t.Errorf("unexpected entry %+v", entries[i])
		}
		expected := append([]string{"/usr/bin/gcc"}, action.Arguments...)
		if !reflect.DeepEqual(entries[i].Arguments, expected) {
			t.Errorf("unexpected result. got: %v. expected: %v.", entries[i].Arguments, expected)
		}
	}
	expectedLine := `/usr/bin/gcc "-DMSG=hello world" -c /src/a.c /src/b.c`
	if got := action.CommandLine(); got != expectedLine {
		t.Errorf("unexpected result. got: %s. expected: %s.", got, expectedLine)
	}
}
