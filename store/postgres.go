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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	"naive.systems/ccreport/detection"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
  id TEXT PRIMARY KEY,
  run TEXT NOT NULL,
  tag TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE NOT NULL,
  seq BIGSERIAL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_run ON snapshots (run, seq);

CREATE TABLE IF NOT EXISTS reports (
  snapshot_id TEXT NOT NULL REFERENCES snapshots (id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  hash TEXT NOT NULL,
  status TEXT NOT NULL,
  body JSONB NOT NULL,
  PRIMARY KEY (snapshot_id, position)
);
CREATE INDEX IF NOT EXISTS idx_reports_hash ON reports (hash);
`

const (
	insertSnapshotSQL = `INSERT INTO snapshots (id, run, tag, created_at) VALUES ($1, $2, $3, $4)`
	insertReportSQL   = `INSERT INTO reports (snapshot_id, position, hash, status, body) VALUES ($1, $2, $3, $4, $5)`
	latestSnapshotSQL = `SELECT id, run, tag, created_at FROM snapshots WHERE run = $1 ORDER BY seq DESC LIMIT 1`
	snapshotReportSQL = `SELECT body, status FROM reports WHERE snapshot_id = $1 ORDER BY position`
	historySQL        = `SELECT r.hash, r.status FROM reports r JOIN snapshots s ON s.id = r.snapshot_id
WHERE s.run = $1 ORDER BY s.seq, r.position`
)

// Postgres stores snapshots in two tables; report bodies are kept as JSON.
type Postgres struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %v", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %v", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	p.schemaOnce.Do(func() {
		_, p.schemaErr = p.db.ExecContext(ctx, schema)
	})
	return p.schemaErr
}

func (p *Postgres) SaveSnapshot(ctx context.Context, s *Snapshot) error {
	if err := prepare(s); err != nil {
		return err
	}
	if err := p.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensureSchema: %v", err)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertSnapshotSQL, s.ID, s.Run, s.Tag, s.CreatedAt); err != nil {
		return fmt.Errorf("insert snapshot: %v", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertReportSQL)
	if err != nil {
		return fmt.Errorf("tx.PrepareContext: %v", err)
	}
	defer stmt.Close()
	for i, r := range s.Reports {
		body, err := json.Marshal(r.Report)
		if err != nil {
			return fmt.Errorf("json.Marshal: %v", err)
		}
		if _, err := stmt.ExecContext(ctx, s.ID, i, r.Hash, string(r.Status), body); err != nil {
			return fmt.Errorf("insert report: %v", err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) LatestSnapshot(ctx context.Context, run string) (*Snapshot, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensureSchema: %v", err)
	}
	var s Snapshot
	err := p.db.QueryRowContext(ctx, latestSnapshotSQL, run).Scan(&s.ID, &s.Run, &s.Tag, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %v", err)
	}
	rows, err := p.db.QueryContext(ctx, snapshotReportSQL, s.ID)
	if err != nil {
		return nil, fmt.Errorf("query reports: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			body   []byte
			status string
			d      detection.Detected
		)
		if err := rows.Scan(&body, &status); err != nil {
			return nil, fmt.Errorf("rows.Scan: %v", err)
		}
		if err := json.Unmarshal(body, &d.Report); err != nil {
			return nil, fmt.Errorf("json.Unmarshal: %v", err)
		}
		d.Status = detection.Status(status)
		s.Reports = append(s.Reports, d)
	}
	return &s, rows.Err()
}

func (p *Postgres) History(ctx context.Context, run string) (detection.History, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensureSchema: %v", err)
	}
	rows, err := p.db.QueryContext(ctx, historySQL, run)
	if err != nil {
		return nil, fmt.Errorf("query history: %v", err)
	}
	defer rows.Close()
	history := detection.History{}
	for rows.Next() {
		var hash, status string
		if err := rows.Scan(&hash, &status); err != nil {
			return nil, fmt.Errorf("rows.Scan: %v", err)
		}
		history[hash] = append(history[hash], detection.Status(status))
	}
	return history, rows.Err()
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
