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

// Package store persists analysis snapshots of runs. A run is a named
// series of analyses of one project; every analysis stored for it is a
// snapshot holding the reports with their detection status.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"naive.systems/ccreport/detection"
)

var ErrNoSnapshot = errors.New("no snapshot stored for run")

type Snapshot struct {
	ID        string               `json:"id"`
	Run       string               `json:"run"`
	Tag       string               `json:"tag,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	Reports   []detection.Detected `json:"reports"`
}

type Store interface {
	// SaveSnapshot stores s, filling in ID and CreatedAt when empty.
	SaveSnapshot(ctx context.Context, s *Snapshot) error
	// LatestSnapshot returns ErrNoSnapshot when the run has none.
	LatestSnapshot(ctx context.Context, run string) (*Snapshot, error)
	// History returns the statuses every hash had in the snapshots of run,
	// oldest first.
	History(ctx context.Context, run string) (detection.History, error)
	Close() error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*Postgres)(nil)
)

// Open returns the Postgres store when dsn is set and the file store
// under dir otherwise.
func Open(dsn, dir string) (Store, error) {
	if dsn = strings.TrimSpace(dsn); dsn != "" {
		return OpenPostgres(dsn)
	}
	return NewFileStore(dir)
}

func prepare(s *Snapshot) error {
	if s.Run == "" {
		return errors.New("snapshot without run name")
	}
	if s.ID == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			return err
		}
		s.ID = id.String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return nil
}

func appendHistory(history detection.History, s *Snapshot) {
	for _, r := range s.Reports {
		if r.Hash == "" {
			glog.Warningf("report %s of snapshot %s has no hash", r.ID, s.ID)
			continue
		}
		history[r.Hash] = append(history[r.Hash], r.Status)
	}
}
