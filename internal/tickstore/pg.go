package tickstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloudwall/serenity-mdrecorder/internal/model"
)

// Schema is the DDL for the tickstore tables.
const Schema = `
CREATE TABLE IF NOT EXISTS tick_versions (
	id         BIGSERIAL PRIMARY KEY,
	dataset    TEXT        NOT NULL,
	symbol     TEXT        NOT NULL,
	as_at      DATE        NOT NULL,
	version    INT         NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	deleted    BOOLEAN     NOT NULL DEFAULT FALSE,
	UNIQUE (dataset, symbol, as_at, version)
);

CREATE TABLE IF NOT EXISTS ticks (
	version_id BIGINT      NOT NULL REFERENCES tick_versions(id),
	ts         TIMESTAMPTZ NOT NULL,
	sequence   BIGINT      NOT NULL DEFAULT 0,
	trade_id   BIGINT      NOT NULL DEFAULT 0,
	side       SMALLINT    NOT NULL DEFAULT 0,
	size       FLOAT8      NOT NULL,
	price      FLOAT8      NOT NULL,
	bid        FLOAT8      NOT NULL DEFAULT 0,
	ask        FLOAT8      NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS ticks_version_ts_idx ON ticks (version_id, ts);
`

// PgStore is a Tickstore backed by Postgres.
type PgStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewPgStore creates a Postgres-backed tickstore.
func NewPgStore(db *pgxpool.Pool, logger *slog.Logger) *PgStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PgStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// EnsureSchema creates the tickstore tables if they do not exist.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("tickstore: ensure schema: %w", err)
	}
	return nil
}

// Insert writes rows as a new version of the (dataset, symbol, as-at)
// partition.
func (s *PgStore) Insert(ctx context.Context, dataset, symbol string, ts BiTimestamp, rows []TickRow) error {
	return s.writeVersion(ctx, dataset, symbol, ts, rows, false)
}

// Delete writes a tombstone version with no rows.
func (s *PgStore) Delete(ctx context.Context, dataset, symbol string, ts BiTimestamp) error {
	return s.writeVersion(ctx, dataset, symbol, ts, nil, true)
}

func (s *PgStore) writeVersion(ctx context.Context, dataset, symbol string, ts BiTimestamp, rows []TickRow, deleted bool) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tickstore: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var versionID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO tick_versions (dataset, symbol, as_at, version, created_at, deleted)
		SELECT $1, $2, $3,
		       COALESCE(MAX(version), 0) + 1,
		       $4, $5
		FROM tick_versions
		WHERE dataset = $1 AND symbol = $2 AND as_at = $3
		RETURNING id
	`, dataset, symbol, DateOf(ts.AsAt), s.now().UTC(), deleted).Scan(&versionID)
	if err != nil {
		return fmt.Errorf("tickstore: insert version: %w", err)
	}

	if len(rows) > 0 {
		batch := &pgx.Batch{}
		for _, r := range rows {
			batch.Queue(`
				INSERT INTO ticks (version_id, ts, sequence, trade_id, side, size, price, bid, ask)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, versionID, r.Time.UTC(), r.Sequence, r.TradeID, int16(r.Side), r.Size, r.Price, r.Bid, r.Ask)
		}

		results := tx.SendBatch(ctx, batch)
		for range rows {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("tickstore: insert rows: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("tickstore: close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tickstore: commit: %w", err)
	}

	s.logger.Debug("tickstore version written",
		"dataset", dataset,
		"symbol", symbol,
		"as_at", DateOf(ts.AsAt).Format("2006-01-02"),
		"rows", len(rows),
		"deleted", deleted,
	)
	return nil
}

// Query returns rows with Time in [start, end) from the newest version of
// each daily partition created at or before asOf.
func (s *PgStore) Query(ctx context.Context, dataset, symbol string, start, end, asOf time.Time) ([]TickRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT t.ts, t.sequence, t.trade_id, t.side, t.size, t.price, t.bid, t.ask
		FROM ticks t
		JOIN tick_versions v ON v.id = t.version_id
		WHERE v.dataset = $1
		  AND v.symbol = $2
		  AND NOT v.deleted
		  AND v.created_at <= $5
		  AND v.version = (
			SELECT MAX(v2.version)
			FROM tick_versions v2
			WHERE v2.dataset = v.dataset
			  AND v2.symbol = v.symbol
			  AND v2.as_at = v.as_at
			  AND v2.created_at <= $5
		  )
		  AND t.ts >= $3 AND t.ts < $4
		ORDER BY t.ts, t.sequence
	`, dataset, symbol, start.UTC(), end.UTC(), asOf.UTC())
	if err != nil {
		return nil, fmt.Errorf("tickstore: query: %w", err)
	}
	defer rows.Close()

	var out []TickRow
	for rows.Next() {
		var r TickRow
		var side int16
		if err := rows.Scan(&r.Time, &r.Sequence, &r.TradeID, &side, &r.Size, &r.Price, &r.Bid, &r.Ask); err != nil {
			return nil, fmt.Errorf("tickstore: scan: %w", err)
		}
		r.Side = model.Side(side)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tickstore: rows: %w", err)
	}
	return out, nil
}
