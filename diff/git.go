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
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// HeadCommitHash returns the commit checked out in workingDir.
func HeadCommitHash(ctx context.Context, workingDir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = workingDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// GitDiff parses the changes between the commit from and to, or the work
// tree when to is empty. Hunks come without context lines as MapLine
// expects.
func GitDiff(ctx context.Context, workingDir, from, to string) (*Patch, error) {
	args := []string{"diff", "--no-color", "--no-ext-diff", "--no-renames", "-U0", from}
	if to != "" {
		args = append(args, to)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workingDir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("git diff: %v: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("git diff: %v", err)
	}
	return Parse(string(out))
}
