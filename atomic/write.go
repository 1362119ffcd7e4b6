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

// Package atomic replaces files so that readers never see a partial write,
// and serializes read-modify-write cycles of concurrent processes.
package atomic

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/golang/glog"
)

// Write replaces name with data through a temporary file in the same
// directory.
func Write(name string, data []byte) error {
	pattern := "tmp-*-" + filepath.Base(name)
	f, err := os.CreateTemp(filepath.Dir(name), pattern)
	if err != nil {
		return fmt.Errorf("os.CreateTemp: %v", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()
	// Explicitly set the permissions of the temporary file to 0644
	if err := f.Chmod(0644); err != nil {
		return fmt.Errorf("f.Chmod: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write to file %s: %v", f.Name(), err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("f.Sync: %v", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("f.Close: %v", err)
	}
	if err := os.Rename(f.Name(), name); err != nil {
		return fmt.Errorf("failed to rename file %s to %s: %v", f.Name(), name, err)
	}
	return nil
}

// UpdateLocked rewrites name with update(current content) while holding an
// exclusive lock on name + ".lock". current is nil when name does not
// exist. Parallel builds run many wrappers that append to one compilation
// database; the lock makes each update see the result of the previous one.
func UpdateLocked(name string, update func(current []byte) ([]byte, error)) error {
	lock, err := os.OpenFile(name+".lock", os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("os.OpenFile: %v", err)
	}
	defer lock.Close()
	if err := syscall.Flock(int(lock.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("syscall.Flock: %v", err)
	}
	defer func() {
		if err := syscall.Flock(int(lock.Fd()), syscall.LOCK_UN); err != nil {
			glog.Warningf("syscall.Flock: %v", err)
		}
	}()

	current, err := os.ReadFile(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("os.ReadFile: %v", err)
		}
		current = nil
	}
	data, err := update(current)
	if err != nil {
		return err
	}
	return Write(name, data)
}
