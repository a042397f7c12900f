package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"rebateLedger/internal/model"
	"rebateLedger/internal/storage"
)

var (
	_ storage.Store = (*Store)(nil)
	_ storage.Tx    = (*pgTx)(nil)
)

// querier is the part of pgx.Tx the ledger statements use.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgTx struct {
	tx querier
}

func (t *pgTx) Pool(ctx context.Context, id model.ID) (model.PoolState, error) {
	var (
		pool           model.PoolState
		assetA, assetB string
	)
	row := t.tx.QueryRow(ctx, `
		SELECT fee_rate, liquidity, staked_liquidity, asset_a, asset_b
		FROM pools WHERE pool_id=$1 FOR UPDATE
	`, idText(id))
	err := row.Scan(
		scanUint64(&pool.FeeRate),
		scanUint64(&pool.Liquidity),
		scanUint64(&pool.StakedLiquidity),
		&assetA,
		&assetB,
	)
	if err != nil {
		return model.PoolState{}, notFound("pool", id.Hex(), err)
	}
	pool.ID = id
	if pool.AssetA, err = model.ParseID(assetA); err != nil {
		return model.PoolState{}, err
	}
	if pool.AssetB, err = model.ParseID(assetB); err != nil {
		return model.PoolState{}, err
	}
	return pool, nil
}

func (t *pgTx) CreatePool(ctx context.Context, pool model.PoolState) error {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO pools (pool_id, fee_rate, liquidity, staked_liquidity, asset_a, asset_b, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (pool_id) DO NOTHING
	`,
		idText(pool.ID),
		numeric(pool.FeeRate),
		numeric(pool.Liquidity),
		numeric(pool.StakedLiquidity),
		idText(pool.AssetA),
		idText(pool.AssetB),
	)
	if err != nil {
		return fmt.Errorf("insert pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pool %s: %w", pool.ID.Hex(), storage.ErrAlreadyExists)
	}
	return nil
}

func (t *pgTx) PutPool(ctx context.Context, pool model.PoolState) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE pools SET fee_rate=$2, liquidity=$3, staked_liquidity=$4, updated_at=now()
		WHERE pool_id=$1
	`,
		idText(pool.ID),
		numeric(pool.FeeRate),
		numeric(pool.Liquidity),
		numeric(pool.StakedLiquidity),
	)
	if err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pool %s: %w", pool.ID.Hex(), storage.ErrNotFound)
	}
	return nil
}

func (t *pgTx) Participant(ctx context.Context, poolID, id model.ID) (model.ParticipantState, error) {
	participant := model.ParticipantState{ID: id, PoolID: poolID}
	row := t.tx.QueryRow(ctx, `
		SELECT balance_a, balance_b, rebates_earned, last_trade_time, trade_volume
		FROM participants WHERE pool_id=$1 AND participant_id=$2 FOR UPDATE
	`, idText(poolID), idText(id))
	err := row.Scan(
		scanUint64(&participant.BalanceA),
		scanUint64(&participant.BalanceB),
		scanUint64(&participant.RebatesEarned),
		&participant.LastTradeTime,
		scanUint64(&participant.TradeVolume),
	)
	if err != nil {
		return model.ParticipantState{}, notFound("participant", id.Hex(), err)
	}
	return participant, nil
}

func (t *pgTx) CreateParticipant(ctx context.Context, participant model.ParticipantState) error {
	var poolExists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pools WHERE pool_id=$1)`, idText(participant.PoolID)).Scan(&poolExists); err != nil {
		return fmt.Errorf("check pool: %w", err)
	}
	if !poolExists {
		return fmt.Errorf("pool %s: %w", participant.PoolID.Hex(), storage.ErrNotFound)
	}

	tag, err := t.tx.Exec(ctx, `
		INSERT INTO participants (
			pool_id, participant_id, balance_a, balance_b, rebates_earned, last_trade_time, trade_volume, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (pool_id, participant_id) DO NOTHING
	`,
		idText(participant.PoolID),
		idText(participant.ID),
		numeric(participant.BalanceA),
		numeric(participant.BalanceB),
		numeric(participant.RebatesEarned),
		participant.LastTradeTime,
		numeric(participant.TradeVolume),
	)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("participant %s: %w", participant.ID.Hex(), storage.ErrAlreadyExists)
	}
	return nil
}

func (t *pgTx) PutParticipant(ctx context.Context, participant model.ParticipantState) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE participants SET
			balance_a=$3, balance_b=$4, rebates_earned=$5, last_trade_time=$6, trade_volume=$7, updated_at=now()
		WHERE pool_id=$1 AND participant_id=$2
	`,
		idText(participant.PoolID),
		idText(participant.ID),
		numeric(participant.BalanceA),
		numeric(participant.BalanceB),
		numeric(participant.RebatesEarned),
		participant.LastTradeTime,
		numeric(participant.TradeVolume),
	)
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("participant %s: %w", participant.ID.Hex(), storage.ErrNotFound)
	}
	return nil
}

const positionColumns = `position_id, pool_id, participant_id, amount, lock_until, pending_reward, created_ts`

func scanPosition(row pgx.Row) (model.StakePosition, error) {
	var (
		position           model.StakePosition
		poolText, userText string
	)
	err := row.Scan(
		&position.ID,
		&poolText,
		&userText,
		scanUint64(&position.Amount),
		&position.LockUntil,
		scanUint64(&position.PendingReward),
		&position.CreatedAt,
	)
	if err != nil {
		return model.StakePosition{}, err
	}
	if position.PoolID, err = model.ParseID(poolText); err != nil {
		return model.StakePosition{}, err
	}
	if position.ParticipantID, err = model.ParseID(userText); err != nil {
		return model.StakePosition{}, err
	}
	return position, nil
}

func (t *pgTx) StakePosition(ctx context.Context, id string) (model.StakePosition, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+positionColumns+` FROM stake_positions WHERE position_id=$1 FOR UPDATE`, id)
	position, err := scanPosition(row)
	if err != nil {
		return model.StakePosition{}, notFound("stake position", id, err)
	}
	return position, nil
}

func (t *pgTx) StakePositions(ctx context.Context, poolID, participantID model.ID) ([]model.StakePosition, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+positionColumns+` FROM stake_positions
		WHERE pool_id=$1 AND participant_id=$2
		ORDER BY created_ts, position_id
	`, idText(poolID), idText(participantID))
	if err != nil {
		return nil, fmt.Errorf("query stake positions: %w", err)
	}
	defer rows.Close()

	out := make([]model.StakePosition, 0)
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stake position: %w", err)
		}
		out = append(out, position)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stake positions: %w", err)
	}
	return out, nil
}

func (t *pgTx) PutStakePosition(ctx context.Context, position model.StakePosition) error {
	if position.ID == "" {
		return fmt.Errorf("stake position id required")
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO stake_positions (`+positionColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (position_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			lock_until = EXCLUDED.lock_until,
			pending_reward = EXCLUDED.pending_reward,
			updated_at = now()
	`,
		position.ID,
		idText(position.PoolID),
		idText(position.ParticipantID),
		numeric(position.Amount),
		position.LockUntil,
		numeric(position.PendingReward),
		position.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert stake position: %w", err)
	}
	return nil
}

func (t *pgTx) AppendTradeRecord(ctx context.Context, record model.TradeRecord) error {
	if record.ID == "" {
		return fmt.Errorf("trade record id required")
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO trade_records (record_id, pool_id, participant_id, trade_ts, trade_amount, fee, rebate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		record.ID,
		idText(record.PoolID),
		idText(record.ParticipantID),
		record.Time,
		numeric(record.TradeAmount),
		numeric(record.Fee),
		numeric(record.Rebate),
	)
	if err != nil {
		return fmt.Errorf("insert trade record: %w", err)
	}
	return nil
}
