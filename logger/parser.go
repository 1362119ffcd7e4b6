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
	"strings"

	"github.com/golang/glog"
	"github.com/google/shlex"
	"naive.systems/ccreport/filter"
	"naive.systems/ccreport/pathutil"
	"naive.systems/ccreport/vector"
)

// The parser never rejects a command. Tokens it does not understand are
// kept as they are; a build must not fail because it could not be logged.

type parseState int

const (
	stateNormal parseState = iota
	// the previous token was -o
	stateOutputArg
	// the previous token was a flag taking a path
	statePathArg
)

var sourceExtensions = map[string]bool{
	"c": true, "cc": true, "cpp": true, "cxx": true,
	"h": true, "hh": true, "hxx": true, "hpp": true,
	"m": true, "mm": true,
	"o": true, "so": true, "a": true,
}

var linkExtensions = map[string]bool{"o": true, "so": true, "a": true}

var cppExtensions = map[string]bool{"cc": true, "cpp": true, "cxx": true, "hh": true, "hxx": true, "hpp": true}

// Flags whose value is the next token and names a path. The value is never
// a source, whatever it is called.
var pathValueFlags = map[string]bool{
	"-L": true, "-iquote": true, "-idirafter": true, "-include": true,
	"--include": true, "-imacros": true, "--sysroot": true, "-isysroot": true,
}

// Joined forms of path valued flags, rewritten when CC_LOGGER_ABS_PATH is set.
var joinedPathFlags = []string{"-iquote", "-idirafter", "--sysroot=", "-isysroot"}

func equalStrings(a, b string) bool {
	return a == b
}

func hasExtension(path string, exts map[string]bool) bool {
	ext, ok := pathutil.FileExtension(path, true)
	return ok && exts[ext]
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// insertPoints are the argument indexes injected include flags go to: right
// after the last user supplied -I and -isystem respectively.
type insertPoints struct {
	include int
	system  int
}

func injectIncludes(args *vector.Vector[string], pts insertPoints, paths []string) insertPoints {
	if len(paths) == 0 {
		return pts
	}
	args.AddFrom(vector.From(paths, nil), pts.include, nil)
	if pts.system >= pts.include {
		pts.system += len(paths)
	}
	pts.include += len(paths)
	return pts
}

func injectSystemIncludes(args *vector.Vector[string], pts insertPoints, paths []string) insertPoints {
	if len(paths) == 0 {
		return pts
	}
	args.AddFrom(vector.From(paths, nil), pts.system, nil)
	if pts.include > pts.system {
		pts.include += len(paths)
	}
	pts.system += len(paths)
	return pts
}

type gccParser struct {
	cfg     *Config
	state   parseState
	args    *vector.Vector[string]
	sources *vector.Vector[string]
	output  string
	lang    Language
	points  insertPoints
}

// Parse builds the action of one intercepted command. ok is false when the
// program is not a known compiler or the command compiles nothing.
func Parse(argv []string, cfg *Config) (*Action, bool) {
	argv = stripLauncher(argv)
	if len(argv) == 0 {
		return nil, false
	}
	switch cfg.Match(argv[0]) {
	case GccLike:
		return ParseGcc(argv, cfg)
	case JavacLike:
		return ParseJavac(argv, cfg)
	}
	return nil, false
}

// stripLauncher drops a leading ccache so the real compiler is logged.
func stripLauncher(argv []string) []string {
	if len(argv) > 1 && filepath.Base(argv[0]) == "ccache" {
		return argv[1:]
	}
	return argv
}

// expandResponseFiles replaces every readable @file token by the options
// stored in that file.
func expandResponseFiles(tokens []string) []string {
	expanded := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !strings.HasPrefix(token, "@") || len(token) == 1 {
			expanded = append(expanded, token)
			continue
		}
		content, err := os.ReadFile(token[1:])
		if err != nil {
			expanded = append(expanded, token)
			continue
		}
		options, err := shlex.Split(string(content))
		if err != nil {
			glog.Warningf("shlex.Split: %v", err)
			expanded = append(expanded, token)
			continue
		}
		expanded = append(expanded, options...)
	}
	return expanded
}

func workingDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		glog.Warningf("os.Getwd: %v", err)
		return ""
	}
	return cwd
}

func languageFromName(program string) Language {
	base := filepath.Base(program)
	switch {
	case hasAnyFragment(base, "g++", "c++", "clang++"):
		return CPlusPlus
	case hasAnyFragment(base, "gcc", "cc", "clang"):
		return C
	}
	return UnknownLanguage
}

func hasAnyFragment(s string, fragments ...string) bool {
	for _, fragment := range fragments {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	return false
}

func languageFromFlag(value string) Language {
	switch value {
	case "c", "c-header":
		return C
	case "c++", "c++-header":
		return CPlusPlus
	case "objective-c", "objective-c-header", "objective-c++", "objective-c++-header":
		return ObjC
	}
	return UnknownLanguage
}

func languageFromSources(sources []string) Language {
	for _, source := range sources {
		ext, _ := pathutil.FileExtension(source, true)
		switch {
		case cppExtensions[ext]:
			return CPlusPlus
		case ext == "c":
			return C
		case ext == "m" || ext == "mm":
			return ObjC
		}
	}
	return UnknownLanguage
}

// ParseGcc parses a gcc or clang command line.
func ParseGcc(argv []string, cfg *Config) (*Action, bool) {
	if len(argv) == 0 {
		return nil, false
	}
	p := &gccParser{
		cfg:     cfg,
		args:    vector.New[string](len(argv), nil),
		sources: vector.New[string](0, nil),
	}
	tokens := expandResponseFiles(argv[1:])
	for i := 0; i < len(tokens); i++ {
		if p.consume(tokens, i) {
			i++
		}
	}

	action := &Action{
		ToolName:   argv[0],
		Executable: pathutil.ResolveExecutable(argv[0]),
		Directory:  workingDir(),
	}
	action.Language = p.lang
	if action.Language == UnknownLanguage {
		action.Language = languageFromName(argv[0])
	}
	if action.Language == UnknownLanguage {
		action.Language = languageFromSources(p.sources.Items())
	}

	pts := p.points
	if cfg.DefDirs && cfg.QueryIncludes != nil {
		dirs, err := cfg.QueryIncludes(action.Executable)
		if err != nil {
			glog.Warningf("QueryIncludes(%s): %v", action.Executable, err)
		}
		var paths []string
		for _, dir := range dirs {
			if !isCompilerInternal(dir) {
				paths = append(paths, "-I", dir)
			}
		}
		pts = injectIncludes(p.args, pts, paths)
	}
	if value, ok := cfg.Lookup(EnvCPath); ok {
		pts = injectIncludes(p.args, pts, PathsFromEnvVar(value, "-I"))
	}
	systemVar := ""
	switch action.Language {
	case CPlusPlus:
		systemVar = EnvCPlusIncludePath
	case C:
		systemVar = EnvCIncludePath
	}
	if systemVar != "" {
		if value, ok := cfg.Lookup(systemVar); ok {
			injectSystemIncludes(p.args, pts, PathsFromEnvVar(value, "-isystem"))
		}
	}

	p.pruneSources()
	if p.sources.Len() == 0 {
		return nil, false
	}
	action.Arguments = append([]string(nil), p.args.Items()...)
	action.Sources = append([]string(nil), p.sources.Items()...)
	action.Output = p.output
	return action, true
}

func (p *gccParser) pruneSources() {
	if p.output != "" {
		p.sources.EraseIf(func(source string) bool { return source == p.output })
	}
	if !p.cfg.KeepLink {
		p.sources.EraseIf(func(source string) bool { return hasExtension(source, linkExtensions) })
	}
	dropIgnored(p.sources, p.cfg.IgnorePatterns)
}

func dropIgnored(sources *vector.Vector[string], patterns []string) {
	if len(patterns) == 0 {
		return
	}
	sources.EraseIf(func(source string) bool {
		matched, err := filter.MatchIgnoreDirPatterns(patterns, source)
		if err != nil {
			glog.Warning(err)
		}
		return matched
	})
}

// consume handles tokens[i]. It returns true when tokens[i+1] was consumed
// as well.
func (p *gccParser) consume(tokens []string, i int) bool {
	token := tokens[i]
	switch p.state {
	case stateOutputArg:
		p.output = pathutil.MakeAbsoluteOrKeep(token, false)
		p.args.Add(p.output)
		p.state = stateNormal
		return false
	case statePathArg:
		if p.cfg.AbsPath {
			token = pathutil.MakeAbsoluteOrKeep(token, true)
		}
		p.args.Add(token)
		p.state = stateNormal
		return false
	}

	switch {
	case token == "-o":
		p.args.Add(token)
		p.state = stateOutputArg
	case token == "-x":
		p.args.Add(token)
		if i+1 < len(tokens) {
			p.setLanguage(tokens[i+1])
			p.args.Add(tokens[i+1])
			return true
		}
	case strings.HasPrefix(token, "-x"):
		p.setLanguage(token[2:])
		p.args.Add(token)
	case hasAnyPrefix(token, "-Wl", "-Wp", "-M", "-D"):
		p.args.Add(token)
	case token == "-I":
		p.args.Add(token)
		// the directory follows
		p.points.include = p.args.Len() + 1
		p.state = statePathArg
	case hasAnyPrefix(token, "-I", "-L") && len(token) > 2:
		p.args.Add(token[:2] + pathutil.MakeAbsoluteOrKeep(token[2:], true))
		if token[:2] == "-I" {
			p.points.include = p.args.Len()
		}
	case token == "-isystem":
		p.args.Add(token)
		p.points.system = p.args.Len() + 1
		p.state = statePathArg
	case strings.HasPrefix(token, "-isystem"):
		if p.cfg.AbsPath {
			token = "-isystem" + pathutil.MakeAbsoluteOrKeep(token[len("-isystem"):], true)
		}
		p.args.Add(token)
		p.points.system = p.args.Len()
	case pathValueFlags[token]:
		p.args.Add(token)
		p.state = statePathArg
	case p.cfg.AbsPath && hasAnyPrefix(token, joinedPathFlags...):
		p.args.Add(absolutizeJoined(token))
	default:
		p.addGeneral(token)
	}
	return false
}

func absolutizeJoined(token string) string {
	for _, flag := range joinedPathFlags {
		if strings.HasPrefix(token, flag) && len(token) > len(flag) {
			return flag + pathutil.MakeAbsoluteOrKeep(token[len(flag):], true)
		}
	}
	return token
}

func (p *gccParser) setLanguage(value string) {
	if lang := languageFromFlag(value); lang != UnknownLanguage {
		p.lang = lang
	}
}

func (p *gccParser) addGeneral(token string) {
	abs, err := pathutil.MakeAbsolute(token, true)
	if err == nil && hasExtension(abs, sourceExtensions) {
		p.sources.AddUnique(abs, equalStrings)
		p.args.Add(abs)
		return
	}
	p.args.Add(token)
}
