// Package postgres implements the ledger store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rebateLedger/internal/model"
	"rebateLedger/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store provides Postgres persistence for ledger records and window metrics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies embedded migrations in name order, recording each in
// schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		var applied bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename=$1)`, name).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied {
			continue
		}
		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(data)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// Atomic runs fn inside a database transaction. Rows read through the
// transaction are locked FOR UPDATE until it ends.
func (s *Store) Atomic(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// TradeRecords lists a pool's receipts with trade_ts < before (0 = all), oldest first.
func (s *Store) TradeRecords(ctx context.Context, poolID model.ID, before int64) ([]model.TradeRecord, error) {
	query := `
		SELECT record_id, pool_id, participant_id, trade_ts, trade_amount, fee, rebate
		FROM trade_records
		WHERE pool_id=$1 AND ($2::bigint = 0 OR trade_ts < $2::bigint)
		ORDER BY trade_ts, record_id
	`
	rows, err := s.pool.Query(ctx, query, idText(poolID), before)
	if err != nil {
		return nil, fmt.Errorf("query trade records: %w", err)
	}
	defer rows.Close()

	out := make([]model.TradeRecord, 0)
	for rows.Next() {
		var (
			record             model.TradeRecord
			poolText, userText string
		)
		if err := rows.Scan(
			&record.ID,
			&poolText,
			&userText,
			&record.Time,
			scanUint64(&record.TradeAmount),
			scanUint64(&record.Fee),
			scanUint64(&record.Rebate),
		); err != nil {
			return nil, fmt.Errorf("scan trade record: %w", err)
		}
		if record.PoolID, err = model.ParseID(poolText); err != nil {
			return nil, err
		}
		if record.ParticipantID, err = model.ParseID(userText); err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade records: %w", err)
	}
	return out, nil
}

// PruneTradeRecords deletes a pool's receipts with trade_ts < before.
func (s *Store) PruneTradeRecords(ctx context.Context, poolID model.ID, before int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trade_records WHERE pool_id=$1 AND trade_ts < $2`, idText(poolID), before)
	if err != nil {
		return 0, fmt.Errorf("prune trade records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool_id, window_size_seconds, window_start_ts, window_end_ts,
				trade_count, participants, volume, fees, rebates, fee_rate, rebate_share,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
			ON CONFLICT (pool_id, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				trade_count = EXCLUDED.trade_count,
				participants = EXCLUDED.participants,
				volume = EXCLUDED.volume,
				fees = EXCLUDED.fees,
				rebates = EXCLUDED.rebates,
				fee_rate = EXCLUDED.fee_rate,
				rebate_share = EXCLUDED.rebate_share,
				updated_at = now()
		`,
			idText(m.PoolID),
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.TradeCount),
			int64(m.Participants),
			m.Volume,
			m.Fees,
			m.Rebates,
			m.FeeRate,
			m.RebateShare,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func notFound(kind, key string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, key, storage.ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", kind, key, err)
}

// LoadReportState returns last_processed_ts for a report name.
func (s *Store) LoadReportState(ctx context.Context, name string) (int64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM report_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return ts, true, nil
}

// SaveReportState upserts last_processed_ts for a report name.
func (s *Store) SaveReportState(ctx context.Context, name string, ts int64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO report_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, ts)
	return err
}
