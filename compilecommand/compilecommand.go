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

// Package compilecommand reads and writes JSON compilation databases.
package compilecommand

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/shlex"
	"golang.org/x/exp/slices"
	"naive.systems/ccreport/atomic"
)

type CompileCommand struct {
	Command   string   `json:"command,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
	File      string   `json:"file"`
	Directory string   `json:"directory"`
	Output    string   `json:"output,omitempty"`
}

// Args returns the command line of the entry, splitting Command when the
// entry has no Arguments.
func (cc CompileCommand) Args() ([]string, error) {
	if len(cc.Arguments) > 0 {
		return cc.Arguments, nil
	}
	args, err := shlex.Split(cc.Command)
	if err != nil {
		return nil, fmt.Errorf("shlex.Split: %v", err)
	}
	return args, nil
}

func (cc CompileCommand) key() string {
	args, err := cc.Args()
	if err != nil {
		args = []string{cc.Command}
	}
	return strings.Join(append([]string{cc.Directory, cc.File, cc.Output}, args...), "\x00")
}

// Parse decodes a compilation database. Empty content is an empty
// database.
func Parse(content []byte) ([]CompileCommand, error) {
	commands := []CompileCommand{}
	if len(strings.TrimSpace(string(content))) == 0 {
		return commands, nil
	}
	if err := json.Unmarshal(content, &commands); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %v", err)
	}
	return commands, nil
}

func ReadFile(path string) ([]CompileCommand, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		glog.Error(err)
		return nil, err
	}
	return Parse(content)
}

func marshal(commands []CompileCommand) ([]byte, error) {
	if commands == nil {
		commands = []CompileCommand{}
	}
	data, err := json.MarshalIndent(commands, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json.MarshalIndent: %v", err)
	}
	return append(data, '\n'), nil
}

func WriteFile(path string, commands []CompileCommand) error {
	data, err := marshal(commands)
	if err != nil {
		return err
	}
	return atomic.Write(path, data)
}

// Merge appends the entries of added that are not in commands yet.
// Entries are equal when directory, file, output and arguments are.
func Merge(commands, added []CompileCommand) []CompileCommand {
	seen := make(map[string]bool, len(commands)+len(added))
	for _, cc := range commands {
		seen[cc.key()] = true
	}
	for _, cc := range added {
		k := cc.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		commands = append(commands, cc)
	}
	return commands
}

// AppendFile merges entries into the database at path under a file lock,
// creating the database when needed. A database that does not parse is
// moved aside to path.broken-<time> and a new one is started.
func AppendFile(path string, entries []CompileCommand) error {
	if len(entries) == 0 {
		return nil
	}
	return atomic.UpdateLocked(path, func(current []byte) ([]byte, error) {
		commands, err := Parse(current)
		if err != nil {
			glog.Errorf("Parse(%s): %v", path, err)
			broken := fmt.Sprintf("%s.broken-%d", path, time.Now().UnixNano())
			if err := atomic.Write(broken, current); err != nil {
				return nil, fmt.Errorf("atomic.Write: %v", err)
			}
			glog.Warningf("the broken database was kept as %s", broken)
			commands = nil
		}
		return marshal(Merge(commands, entries))
	})
}

// Files returns the sorted distinct source files of commands.
func Files(commands []CompileCommand) []string {
	var files []string
	for _, cc := range commands {
		if !slices.Contains(files, cc.File) {
			files = append(files, cc.File)
		}
	}
	slices.Sort(files)
	return files
}
