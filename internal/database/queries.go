package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zombar/biasradar/internal/models"
)

// timeLayout is fixed width so stored timestamps sort chronologically as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const selectComparison = `
	SELECT id, article1, article2, result1, result2, neutral_summary,
		comparative_insight, complements, contradictions, created_at
	FROM comparisons`

// SaveComparison archives a completed comparison together with the
// emotional terms found in each article
func (db *DB) SaveComparison(ctx context.Context, c *models.Comparison) error {
	result1, err := json.Marshal(c.Result1)
	if err != nil {
		return fmt.Errorf("failed to marshal result1: %w", err)
	}
	result2, err := json.Marshal(c.Result2)
	if err != nil {
		return fmt.Errorf("failed to marshal result2: %w", err)
	}
	complements, err := json.Marshal(c.Complements)
	if err != nil {
		return fmt.Errorf("failed to marshal complements: %w", err)
	}
	contradictions, err := json.Marshal(c.Contradictions)
	if err != nil {
		return fmt.Errorf("failed to marshal contradictions: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, db.rebind(`
		INSERT INTO comparisons (id, article1, article2, result1, result2, neutral_summary,
			comparative_insight, complements, contradictions, created_at, bias_score1, bias_score2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), c.ID, c.Article1, c.Article2, string(result1), string(result2), c.NeutralSummary,
		c.ComparativeInsight, string(complements), string(contradictions),
		c.CreatedAt.UTC().Format(timeLayout), c.Result1.BiasScore, c.Result2.BiasScore)
	if err != nil {
		return fmt.Errorf("failed to insert comparison: %w", err)
	}

	for article, terms := range [][]string{c.Result1.EmotionalLanguage, c.Result2.EmotionalLanguage} {
		for _, term := range terms {
			_, err = tx.ExecContext(ctx, db.rebind(`
				INSERT INTO emotional_terms (comparison_id, article, term)
				VALUES (?, ?, ?)
			`), c.ID, article+1, term)
			if err != nil {
				return fmt.Errorf("failed to insert emotional term: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetComparison retrieves a comparison by ID
func (db *DB) GetComparison(ctx context.Context, id string) (*models.Comparison, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(selectComparison+" WHERE id = ?"), id)

	c, err := scanComparison(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comparison: %w", err)
	}
	return c, nil
}

// ListComparisons returns archived comparisons, newest first
func (db *DB) ListComparisons(ctx context.Context, limit, offset int) ([]*models.Comparison, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(selectComparison+`
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparisons: %w", err)
	}
	return collectComparisons(rows)
}

// SearchByEmotionalTerm returns comparisons where either article used term,
// newest first
func (db *DB) SearchByEmotionalTerm(ctx context.Context, term string) ([]*models.Comparison, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(selectComparison+`
		WHERE id IN (SELECT comparison_id FROM emotional_terms WHERE term = ?)
		ORDER BY created_at DESC
	`), strings.ToLower(strings.TrimSpace(term)))
	if err != nil {
		return nil, fmt.Errorf("failed to query comparisons by term: %w", err)
	}
	return collectComparisons(rows)
}

// CountComparisons returns the number of archived comparisons
func (db *DB) CountComparisons(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM comparisons").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count comparisons: %w", err)
	}
	return n, nil
}

// DeleteComparison deletes a comparison and its terms by ID
func (db *DB) DeleteComparison(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, db.rebind("DELETE FROM comparisons WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete comparison: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComparison(s scanner) (*models.Comparison, error) {
	var (
		c                           models.Comparison
		result1, result2            string
		complements, contradictions string
		createdAt                   string
	)

	err := s.Scan(&c.ID, &c.Article1, &c.Article2, &result1, &result2, &c.NeutralSummary,
		&c.ComparativeInsight, &complements, &contradictions, &createdAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(result1), &c.Result1); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result1: %w", err)
	}
	if err := json.Unmarshal([]byte(result2), &c.Result2); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result2: %w", err)
	}
	if err := json.Unmarshal([]byte(complements), &c.Complements); err != nil {
		return nil, fmt.Errorf("failed to unmarshal complements: %w", err)
	}
	if err := json.Unmarshal([]byte(contradictions), &c.Contradictions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contradictions: %w", err)
	}
	if c.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return &c, nil
}

func collectComparisons(rows *sql.Rows) ([]*models.Comparison, error) {
	defer rows.Close()

	comparisons := []*models.Comparison{}
	for rows.Next() {
		c, err := scanComparison(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		comparisons = append(comparisons, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return comparisons, nil
}
