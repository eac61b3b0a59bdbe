package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/business-cards/internal/model"
	"github.com/sakif/business-cards/internal/repository"
)

var _ repository.ConversionRepository = (*DB)(nil)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Record inserts a conversion attempt. ID and CreatedAt are filled in when
// the caller left them empty.
func (db *DB) Record(ctx context.Context, c *model.Conversion) error {
	if c.ID == "" {
		c.ID = xid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO conversions (id, card_id, converter, status, bytes, duration_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.CardID,
		c.Converter,
		c.Status,
		c.Bytes,
		c.Duration.Milliseconds(),
		c.Error,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording conversion: %w", err)
	}
	return nil
}

// List returns conversions, newest first, optionally narrowed to one card.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Conversion, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := max(opts.Offset, 0)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, card_id, converter, status, bytes, duration_ms, error, created_at
		 FROM conversions
		 WHERE (? = '' OR card_id = ?)
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		opts.CardID,
		opts.CardID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing conversions: %w", err)
	}
	defer rows.Close()

	conversions := make([]model.Conversion, 0, limit)
	for rows.Next() {
		var (
			c          model.Conversion
			durationMS int64
		)
		if err := rows.Scan(
			&c.ID, &c.CardID, &c.Converter, &c.Status,
			&c.Bytes, &durationMS, &c.Error, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning conversion row: %w", err)
		}
		c.Duration = time.Duration(durationMS) * time.Millisecond
		conversions = append(conversions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating conversions: %w", err)
	}

	return conversions, nil
}
