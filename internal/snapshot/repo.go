package snapshot

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// SaveRun stores a validation result as the newest run and prunes history
// beyond keepRuns. Everything happens in one transaction so readers always
// see a complete run.
func (s *Store) SaveRun(res *models.Result) (int64, error) {
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return 0, fmt.Errorf("snapshot: marshal result: %w", err)
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	out, err := tx.Exec(`
		INSERT INTO runs (corpus_digest, documents, links, broken, orphans, result_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, res.CorpusDigest, res.Metrics.Documents, res.Metrics.Links, res.Metrics.Broken, res.Metrics.Orphans, string(resultJSON))
	if err != nil {
		return 0, fmt.Errorf("snapshot: insert run: %w", err)
	}
	runID, err := out.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot: run id: %w", err)
	}

	docStmt, err := tx.Prepare(`
		INSERT INTO documents (run_id, doc_id, title, path, category, relates_to, aliases, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("snapshot: prepare document insert: %w", err)
	}
	defer docStmt.Close()
	for _, d := range res.Documents {
		aliases, _ := json.Marshal(d.Aliases)
		tags, _ := json.Marshal(d.Tags)
		if _, err := docStmt.Exec(runID, d.ID, d.Title, d.Path, string(d.Category), d.RelatesTo, string(aliases), string(tags)); err != nil {
			return 0, fmt.Errorf("snapshot: insert document %s: %w", d.ID, err)
		}
	}

	linkStmt, err := tx.Prepare(`
		INSERT INTO links (run_id, source_id, raw_target, target_id, link_type, status, line, col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("snapshot: prepare link insert: %w", err)
	}
	defer linkStmt.Close()
	for _, l := range res.Links {
		if _, err := linkStmt.Exec(runID, l.SourceID, l.RawTarget, l.TargetID, string(l.Type), string(l.Status), l.Line, l.Column); err != nil {
			return 0, fmt.Errorf("snapshot: insert link: %w", err)
		}
	}

	_, err = tx.Exec(`
		DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)
	`, keepRuns)
	if err != nil {
		return 0, fmt.Errorf("snapshot: prune history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("snapshot: commit: %w", err)
	}
	return runID, nil
}

// LatestResult returns the full result of the most recent run.
func (s *Store) LatestResult() (*models.Result, error) {
	var raw string
	err := s.conn.QueryRow(`SELECT result_json FROM runs ORDER BY id DESC LIMIT 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot: no runs recorded: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: latest run: %w", err)
	}
	var res models.Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("snapshot: decode result: %w", err)
	}
	return &res, nil
}

const documentColumns = `doc_id, title, path, category, relates_to, aliases, tags`

// Documents returns the latest run's document records in id order. An empty
// database yields an empty list, not an error.
func (s *Store) Documents() ([]models.DocumentRecord, error) {
	rows, err := s.conn.Query(`
		SELECT ` + documentColumns + `
		FROM documents
		WHERE run_id = (SELECT MAX(id) FROM runs)
		ORDER BY doc_id
	`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: documents: %w", err)
	}
	defer rows.Close()

	var out []models.DocumentRecord
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Document returns one document record from the latest run.
func (s *Store) Document(id string) (models.DocumentRecord, error) {
	row := s.conn.QueryRow(`
		SELECT `+documentColumns+`
		FROM documents
		WHERE run_id = (SELECT MAX(id) FROM runs) AND doc_id = ?
	`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DocumentRecord{}, fmt.Errorf("snapshot: document %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.DocumentRecord{}, fmt.Errorf("snapshot: document %s: %w", id, err)
	}
	return d, nil
}

// Backlinks returns the ids of documents whose valid links target id in the
// latest run, deduplicated and sorted.
func (s *Store) Backlinks(id string) ([]string, error) {
	rows, err := s.conn.Query(`
		SELECT DISTINCT source_id FROM links
		WHERE run_id = (SELECT MAX(id) FROM runs) AND target_id = ? AND status = 'valid'
		ORDER BY source_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("snapshot: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (models.DocumentRecord, error) {
	var (
		d        models.DocumentRecord
		category string
		aliases  string
		tags     string
	)
	if err := row.Scan(&d.ID, &d.Title, &d.Path, &category, &d.RelatesTo, &aliases, &tags); err != nil {
		return models.DocumentRecord{}, err
	}
	d.Category = models.DocCategory(category)
	if err := json.Unmarshal([]byte(aliases), &d.Aliases); err != nil {
		return models.DocumentRecord{}, fmt.Errorf("snapshot: decode aliases: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
		return models.DocumentRecord{}, fmt.Errorf("snapshot: decode tags: %w", err)
	}
	return d, nil
}
