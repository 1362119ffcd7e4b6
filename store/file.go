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

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"naive.systems/ccreport/atomic"
	"naive.systems/ccreport/detection"
)

// FileStore keeps every run in its own directory: one JSON file per
// snapshot and index.json listing the snapshot ids in save order.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("os.MkdirAll: %v", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) runDir(run string) string {
	name := url.PathEscape(run)
	if name == "." || name == ".." {
		name = strings.ReplaceAll(name, ".", "%2E")
	}
	return filepath.Join(f.dir, name)
}

func (f *FileStore) readIndex(run string) ([]string, error) {
	content, err := os.ReadFile(filepath.Join(f.runDir(run), "index.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %v", err)
	}
	var ids []string
	if err := json.Unmarshal(content, &ids); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %v", err)
	}
	return ids, nil
}

func (f *FileStore) readSnapshot(run, id string) (*Snapshot, error) {
	content, err := os.ReadFile(filepath.Join(f.runDir(run), id+".json"))
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %v", err)
	}
	var s Snapshot
	if err := json.Unmarshal(content, &s); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %v", err)
	}
	return &s, nil
}

func (f *FileStore) SaveSnapshot(ctx context.Context, s *Snapshot) error {
	if err := prepare(s); err != nil {
		return err
	}
	dir := f.runDir(s.Run)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("os.MkdirAll: %v", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("json.Marshal: %v", err)
	}
	if err := atomic.Write(filepath.Join(dir, s.ID+".json"), data); err != nil {
		return err
	}
	return atomic.UpdateLocked(filepath.Join(dir, "index.json"), func(current []byte) ([]byte, error) {
		var ids []string
		if current != nil {
			if err := json.Unmarshal(current, &ids); err != nil {
				return nil, fmt.Errorf("json.Unmarshal: %v", err)
			}
		}
		return json.Marshal(append(ids, s.ID))
	})
}

func (f *FileStore) LatestSnapshot(ctx context.Context, run string) (*Snapshot, error) {
	ids, err := f.readIndex(run)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoSnapshot
	}
	return f.readSnapshot(run, ids[len(ids)-1])
}

func (f *FileStore) History(ctx context.Context, run string) (detection.History, error) {
	ids, err := f.readIndex(run)
	if err != nil {
		return nil, err
	}
	history := detection.History{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := f.readSnapshot(run, id)
		if err != nil {
			return nil, err
		}
		appendHistory(history, s)
	}
	return history, nil
}

func (f *FileStore) Close() error {
	return nil
}
