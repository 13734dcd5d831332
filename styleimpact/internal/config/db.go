// CLAUDE:SUMMARY Loads and saves impact_jobs rows in SQLite.
package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/styleimpact/dbopen"
)

// Schema for the impact_jobs table.
const Schema = `
CREATE TABLE IF NOT EXISTS impact_jobs (
	id                   TEXT PRIMARY KEY,
	url                  TEXT DEFAULT '',
	html                 TEXT DEFAULT '',
	stylesheets          TEXT DEFAULT '{}',
	sources              TEXT DEFAULT '[]',
	rule_properties_only INTEGER DEFAULT 0,
	itemized             INTEGER DEFAULT 0,
	scope                TEXT DEFAULT '*',
	breakpoints          TEXT DEFAULT '[]',
	counter_css          INTEGER DEFAULT 0,
	restore              INTEGER DEFAULT 0,
	status               TEXT DEFAULT 'active',
	updated_at           INTEGER NOT NULL
);
`

// LoadJobs reads all active jobs, ordered by id.
func LoadJobs(ctx context.Context, db *sql.DB) ([]JobConfig, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, url, html, stylesheets, sources, rule_properties_only,
		       itemized, scope, breakpoints, counter_css, restore
		FROM impact_jobs
		WHERE status = 'active'
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("config: load jobs: %w", err)
	}
	defer rows.Close()

	var jobs []JobConfig
	for rows.Next() {
		var j JobConfig
		var sheetsJSON, sourcesJSON, bpJSON string
		var ruleProps, itemized, counter, restore int

		if err := rows.Scan(&j.ID, &j.URL, &j.HTML, &sheetsJSON, &sourcesJSON,
			&ruleProps, &itemized, &j.Scope, &bpJSON, &counter, &restore); err != nil {
			return nil, fmt.Errorf("config: scan job: %w", err)
		}
		if err := json.Unmarshal([]byte(sheetsJSON), &j.Stylesheets); err != nil {
			return nil, fmt.Errorf("config: job %s: stylesheets: %w", j.ID, err)
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &j.Sources); err != nil {
			return nil, fmt.Errorf("config: job %s: sources: %w", j.ID, err)
		}
		if err := json.Unmarshal([]byte(bpJSON), &j.Breakpoints); err != nil {
			return nil, fmt.Errorf("config: job %s: breakpoints: %w", j.ID, err)
		}
		j.RulePropertiesOnly = ruleProps != 0
		j.Itemized = itemized != 0
		j.CounterCSS = counter != 0
		j.Restore = restore != 0
		if j.Scope == "" {
			j.Scope = "*"
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// SaveJob inserts or replaces a job and marks it active.
func SaveJob(ctx context.Context, db *sql.DB, j JobConfig) error {
	if err := j.Validate(); err != nil {
		return err
	}
	sheets, _ := json.Marshal(nonNilMap(j.Stylesheets))
	sources, _ := json.Marshal(j.Sources)
	bps, _ := json.Marshal(nonNilInts(j.Breakpoints))

	_, err := dbopen.Exec(ctx, db, `
		INSERT INTO impact_jobs (id, url, html, stylesheets, sources, rule_properties_only,
		                         itemized, scope, breakpoints, counter_css, restore, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'active', ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url, html = excluded.html, stylesheets = excluded.stylesheets,
			sources = excluded.sources, rule_properties_only = excluded.rule_properties_only,
			itemized = excluded.itemized, scope = excluded.scope, breakpoints = excluded.breakpoints,
			counter_css = excluded.counter_css, restore = excluded.restore,
			status = 'active', updated_at = excluded.updated_at
	`, j.ID, j.URL, j.HTML, string(sheets), string(sources), boolInt(j.RulePropertiesOnly),
		boolInt(j.Itemized), j.Scope, string(bps), boolInt(j.CounterCSS), boolInt(j.Restore),
		time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("config: save job %s: %w", j.ID, err)
	}
	return nil
}

// DisableJob marks a job inactive; LoadJobs skips it.
func DisableJob(ctx context.Context, db *sql.DB, id string) error {
	_, err := dbopen.Exec(ctx, db,
		`UPDATE impact_jobs SET status = 'disabled', updated_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("config: disable job %s: %w", id, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
