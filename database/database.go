package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lucsky/cuid"
	"github.com/sonarmark/sonarmark/database/db"
	"github.com/sonarmark/sonarmark/model"
)

type Database struct {
	connString string
	pool       *pgxpool.Pool
}

func NewDatabase(connString string) *Database {
	return &Database{
		connString: connString,
	}
}

func (d *Database) Connect(ctx context.Context) error {
	var err error
	d.pool, err = pgxpool.New(ctx, d.connString)
	if err != nil {
		return err
	}
	return nil
}

func (d *Database) Disconnect() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// EnsureSchema creates the history table if it does not exist yet.
func (d *Database) EnsureSchema(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS analysis_run (
		id                  TEXT PRIMARY KEY,
		server_url          TEXT NOT NULL,
		project_key         TEXT NOT NULL,
		branch              TEXT NOT NULL,
		quality_gate_status TEXT NOT NULL,
		condition_count     INTEGER NOT NULL,
		issue_count         INTEGER NOT NULL,
		hotspot_count       INTEGER NOT NULL,
		recorded            TIMESTAMPTZ NOT NULL
	)`)
	return err
}

// RecordRun inserts one history row and returns its id. Rows are never read back by the tool.
func (d *Database) RecordRun(ctx context.Context, run model.AnalysisRun) (string, error) {
	row := db.AnalysisRun{
		ID:                cuid.New(),
		ServerURL:         run.ServerURL,
		ProjectKey:        run.ProjectKey,
		Branch:            run.Branch,
		QualityGateStatus: run.QualityGateStatus,
		ConditionCount:    run.ConditionCount,
		IssueCount:        run.IssueCount,
		HotSpotCount:      run.HotSpotCount,
		Recorded:          time.Now().UTC(), // the DB stores timezones and assumes UTC
	}
	_, err := d.pool.Exec(
		ctx,
		`INSERT INTO analysis_run (id, server_url, project_key, branch, quality_gate_status, condition_count, issue_count, hotspot_count, recorded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		row.ID,
		row.ServerURL,
		row.ProjectKey,
		row.Branch,
		row.QualityGateStatus,
		row.ConditionCount,
		row.IssueCount,
		row.HotSpotCount,
		row.Recorded,
	)
	if err != nil {
		return "", err
	}
	return row.ID, nil
}
