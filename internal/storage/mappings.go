package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/recyclerie/bascule/internal/model"
)

// GetMapping looks up a resolution-cache entry. The lookup key is the
// normalized form of sourceName; a miss returns (nil, nil).
func (s *SQLiteStorage) GetMapping(ctx context.Context, sourceName string) (*model.CategoryMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sourceName, "sourceName"); err != nil {
		return nil, err
	}
	return s.getMappingTx(ctx, s.db, sourceName)
}

func (s *SQLiteStorage) getMappingTx(ctx context.Context, q queryable, sourceName string) (*model.CategoryMapping, error) {
	var m model.CategoryMapping

	err := q.QueryRowContext(ctx, `
		SELECT cm.source_name_normalized, cm.category_id, c.name, cm.provider, cm.confidence, cm.last_resolved
		FROM category_mappings cm
		JOIN categories c ON c.id = cm.category_id
		WHERE cm.source_name_normalized = ? AND c.is_active = 1
	`, model.NormalizeName(sourceName)).Scan(
		&m.SourceNormalized,
		&m.CategoryID,
		&m.CategoryName,
		&m.Provider,
		&m.Confidence,
		&m.LastResolved,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not cached
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}

	return &m, nil
}

// SaveMapping upserts a resolution-cache entry. Re-resolving the same
// normalized name overwrites the previous entry (last writer wins).
func (s *SQLiteStorage) SaveMapping(ctx context.Context, mapping *model.CategoryMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMapping(mapping); err != nil {
		return err
	}
	return s.saveMappingTx(ctx, s.db, mapping)
}

func (s *SQLiteStorage) saveMappingTx(ctx context.Context, q queryable, mapping *model.CategoryMapping) error {
	if mapping.LastResolved.IsZero() {
		mapping.LastResolved = time.Now()
	}
	mapping.Confidence = model.ClampConfidence(mapping.Confidence)

	_, err := q.ExecContext(ctx, `
		INSERT INTO category_mappings (source_name_normalized, category_id, provider, confidence, last_resolved)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_name_normalized) DO UPDATE SET
			category_id = excluded.category_id,
			provider = excluded.provider,
			confidence = excluded.confidence,
			last_resolved = excluded.last_resolved
	`,
		model.NormalizeName(mapping.SourceNormalized),
		mapping.CategoryID,
		mapping.Provider,
		mapping.Confidence,
		mapping.LastResolved,
	)
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	slog.Debug("saved category mapping",
		"source", mapping.SourceNormalized,
		"category_id", mapping.CategoryID,
		"provider", mapping.Provider,
		"confidence", mapping.Confidence)
	return nil
}

// GetAllMappings returns every resolution-cache entry, ordered by source name.
func (s *SQLiteStorage) GetAllMappings(ctx context.Context) ([]model.CategoryMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getAllMappingsTx(ctx, s.db)
}

func (s *SQLiteStorage) getAllMappingsTx(ctx context.Context, q queryable) ([]model.CategoryMapping, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT cm.source_name_normalized, cm.category_id, c.name, cm.provider, cm.confidence, cm.last_resolved
		FROM category_mappings cm
		JOIN categories c ON c.id = cm.category_id
		ORDER BY cm.source_name_normalized
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.CategoryMapping
	for rows.Next() {
		var m model.CategoryMapping
		if err := rows.Scan(&m.SourceNormalized, &m.CategoryID, &m.CategoryName, &m.Provider, &m.Confidence, &m.LastResolved); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mappings: %w", err)
	}

	return mappings, nil
}
