package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityCore/internal/event"
)

// Store provides Postgres persistence for venue event records.
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
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InsertEvents inserts a batch of event records, skipping already-seen
// sequence numbers so replays are idempotent.
func (s *Store) InsertEvents(ctx context.Context, runID string, records []event.Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO venue_events (
				run_id, seq, event_type, pool_address, actor, recipient,
				amount0, amount1, amount0_in, amount1_in, amount0_out, amount1_out,
				reserve0, reserve1, owner_account, spender, from_account, to_account,
				value, event_ts, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,now())
			ON CONFLICT (run_id, seq) DO NOTHING
		`,
			runID,
			int64(r.Seq),
			string(r.Type),
			r.Pool,
			r.Actor,
			r.Recipient,
			r.Amount0,
			r.Amount1,
			r.Amount0In,
			r.Amount1In,
			r.Amount0Out,
			r.Amount1Out,
			r.Reserve0,
			r.Reserve1,
			r.Owner,
			r.Spender,
			r.From,
			r.To,
			r.Value,
			int64(r.Timestamp),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
