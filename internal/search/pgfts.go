package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search queries requests using plainto_tsquery and ts_rank, with
// ts_headline for message snippets. The 'simple' configuration matches
// the generated fts column.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := "fts @@ plainto_tsquery('simple', $1)"
	args := []any{q.Text}
	if q.Department != "" {
		where += " AND department = $2"
		args = append(args, q.Department)
	}

	countSQL := "SELECT count(*) FROM requests WHERE " + where

	dataSQL := fmt.Sprintf(`
		SELECT id, name, address,
			ts_headline('simple', coalesce(message, ''), plainto_tsquery('simple', $1), 'MaxFragments=1,MaxWords=30') AS snippet,
			department, status
		FROM requests
		WHERE %s
		ORDER BY ts_rank(fts, plainto_tsquery('simple', $1)) DESC
		LIMIT %d OFFSET %d`, where, limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Name, &r.Address, &r.Snippet, &r.Department, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all complaints for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ComplaintRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, address, message, department, status
		FROM requests
	`)
	if err != nil {
		return nil, fmt.Errorf("load complaints: %w", err)
	}
	defer rows.Close()

	records := make([]ComplaintRecord, 0)
	for rows.Next() {
		var rec ComplaintRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Address, &rec.Message, &rec.Department, &rec.Status); err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate complaints: %w", err)
	}

	return records, nil
}
