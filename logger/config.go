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
	"regexp"
	"strings"
)

// Environment variables understood by the logger.
const (
	EnvGccLike          = "CC_LOGGER_GCC_LIKE"
	EnvJavacLike        = "CC_LOGGER_JAVAC_LIKE"
	EnvKeepLink         = "CC_LOGGER_KEEP_LINK"
	EnvDefDirs          = "CC_LOGGER_DEF_DIRS"
	EnvAbsPath          = "CC_LOGGER_ABS_PATH"
	EnvFile             = "CC_LOGGER_FILE"
	EnvIgnore           = "CC_LOGGER_IGNORE"
	EnvIncludeStart     = "CC_LOGGER_INCLUDE_START"
	EnvIncludeEnd       = "CC_LOGGER_INCLUDE_END"
	EnvCPath            = "CPATH"
	EnvCIncludePath     = "C_INCLUDE_PATH"
	EnvCPlusIncludePath = "CPLUS_INCLUDE_PATH"
)

const (
	defaultGccLike   = "gcc:g++:cc:c++:clang:clang++"
	defaultJavacLike = "javac"
)

type ToolKind int

const (
	NotCompiler ToolKind = iota
	GccLike
	JavacLike
)

type Config struct {
	GccLike   []string
	JavacLike []string
	KeepLink  bool
	DefDirs   bool
	AbsPath   bool
	// OutputFile is the compilation database actions are appended to.
	OutputFile string
	// IgnorePatterns are doublestar patterns; matching sources are not logged.
	IgnorePatterns []string
	Markers        Markers
	// QueryIncludes returns the implicit include directories of a compiler.
	// It is only called when DefDirs is set.
	QueryIncludes func(compiler string) ([]string, error)

	lookup func(string) (string, bool)
}

// ConfigFromEnv reads the configuration from the process environment.
func ConfigFromEnv() *Config {
	return newConfig(os.LookupEnv)
}

// ConfigFromMap reads the configuration from env instead of the process
// environment.
func ConfigFromMap(env map[string]string) *Config {
	return newConfig(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
}

func newConfig(lookup func(string) (string, bool)) *Config {
	cfg := &Config{lookup: lookup}
	cfg.GccLike = splitList(cfg.getenv(EnvGccLike, defaultGccLike))
	cfg.JavacLike = splitList(cfg.getenv(EnvJavacLike, defaultJavacLike))
	cfg.KeepLink = cfg.truthy(EnvKeepLink)
	cfg.DefDirs = cfg.truthy(EnvDefDirs)
	cfg.AbsPath = cfg.truthy(EnvAbsPath)
	cfg.OutputFile = cfg.getenv(EnvFile, "")
	cfg.IgnorePatterns = splitList(cfg.getenv(EnvIgnore, ""))
	cfg.Markers = DefaultMarkers()
	if start := cfg.getenv(EnvIncludeStart, ""); start != "" {
		cfg.Markers.Start = start
	}
	if end := cfg.getenv(EnvIncludeEnd, ""); end != "" {
		cfg.Markers.End = end
	}
	cfg.QueryIncludes = func(compiler string) ([]string, error) {
		return QueryDefaultIncludeDirs(compiler, cfg.Markers)
	}
	return cfg
}

func (cfg *Config) Lookup(key string) (string, bool) {
	if cfg.lookup == nil {
		return "", false
	}
	return cfg.lookup(key)
}

func (cfg *Config) getenv(key, fallback string) string {
	if v, ok := cfg.Lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func (cfg *Config) truthy(key string) bool {
	v, ok := cfg.Lookup(key)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ":") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

var versionSuffix = regexp.MustCompile(`^-[0-9][0-9.]*$`)

// matchProgram accepts name itself, cross compilers such as
// arm-none-eabi-gcc and versioned drivers such as clang++-15.
func matchProgram(base string, names []string) bool {
	for _, name := range names {
		idx := strings.LastIndex(base, name)
		if idx < 0 {
			continue
		}
		if idx > 0 && base[idx-1] != '-' {
			continue
		}
		rest := base[idx+len(name):]
		if rest == "" || versionSuffix.MatchString(rest) {
			return true
		}
	}
	return false
}

// Match tells which parser handles program, judged by its base name.
func (cfg *Config) Match(program string) ToolKind {
	base := filepath.Base(program)
	if matchProgram(base, cfg.JavacLike) {
		return JavacLike
	}
	if matchProgram(base, cfg.GccLike) {
		return GccLike
	}
	return NotCompiler
}
