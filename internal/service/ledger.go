// Package service runs ledger operations against a store: each mutating call
// loads the records in one transaction, applies the core operation, writes
// the results back and, once committed, publishes the notification.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rebateLedger/internal/events"
	"rebateLedger/internal/ledger"
	"rebateLedger/internal/model"
	"rebateLedger/internal/storage"
)

// Ledger is the host for the core engine.
type Ledger struct {
	store  storage.Store
	engine *ledger.Engine
	sink   events.Sink
	logger *zap.Logger
	newID  func() string
}

func New(store storage.Store, engine *ledger.Engine, sink events.Sink, logger *zap.Logger) *Ledger {
	if sink == nil {
		sink = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		store:  store,
		engine: engine,
		sink:   sink,
		logger: logger,
		newID:  uuid.NewString,
	}
}

func (l *Ledger) InitializePool(ctx context.Context, id model.ID, feeRate uint64, assetA, assetB model.ID) (model.PoolState, error) {
	pool, err := ledger.NewPool(id, feeRate, assetA, assetB)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("initialize pool: %w", err)
	}
	err = l.store.Atomic(ctx, func(tx storage.Tx) error {
		return tx.CreatePool(ctx, pool)
	})
	if err != nil {
		return model.PoolState{}, fmt.Errorf("initialize pool: %w", err)
	}
	l.logger.Info("pool initialized",
		zap.String("pool", id.Hex()),
		zap.Uint64("fee_rate", feeRate),
		zap.String("asset_a", assetA.Hex()),
		zap.String("asset_b", assetB.Hex()),
	)
	return pool, nil
}

func (l *Ledger) InitializeParticipant(ctx context.Context, poolID, id model.ID, initialBalance uint64) (model.ParticipantState, error) {
	participant := ledger.NewParticipant(poolID, id, initialBalance)
	err := l.store.Atomic(ctx, func(tx storage.Tx) error {
		return tx.CreateParticipant(ctx, participant)
	})
	if err != nil {
		return model.ParticipantState{}, fmt.Errorf("initialize participant: %w", err)
	}
	l.logger.Info("participant initialized",
		zap.String("pool", poolID.Hex()),
		zap.String("participant", id.Hex()),
		zap.Uint64("balance_a", initialBalance),
	)
	return participant, nil
}

func (l *Ledger) ProvideLiquidity(ctx context.Context, poolID, participantID model.ID, amount uint64) (model.LiquidityEvent, error) {
	var event model.LiquidityEvent
	err := l.store.Atomic(ctx, func(tx storage.Tx) error {
		pool, participant, err := loadPair(ctx, tx, poolID, participantID)
		if err != nil {
			return err
		}
		event, err = l.engine.ProvideLiquidity(&pool, &participant, amount)
		if err != nil {
			return err
		}
		return putPair(ctx, tx, pool, participant)
	})
	if err != nil {
		return model.LiquidityEvent{}, fmt.Errorf("provide liquidity: %w", err)
	}
	l.logger.Info("liquidity provided",
		zap.String("pool", poolID.Hex()),
		zap.String("participant", participantID.Hex()),
		zap.Uint64("amount", amount),
		zap.Uint64("liquidity", event.Liquidity),
	)
	l.publish(ctx, poolID, event)
	return event, nil
}

func (l *Ledger) StakeWithLock(ctx context.Context, poolID, participantID model.ID, amount uint64, lockSeconds int64) (model.StakePosition, model.StakingEvent, error) {
	var (
		position = model.StakePosition{ID: l.newID()}
		event    model.StakingEvent
	)
	err := l.store.Atomic(ctx, func(tx storage.Tx) error {
		pool, participant, err := loadPair(ctx, tx, poolID, participantID)
		if err != nil {
			return err
		}
		event, err = l.engine.StakeWithLock(&pool, &participant, &position, amount, lockSeconds)
		if err != nil {
			return err
		}
		if err := putPair(ctx, tx, pool, participant); err != nil {
			return err
		}
		return tx.PutStakePosition(ctx, position)
	})
	if err != nil {
		return model.StakePosition{}, model.StakingEvent{}, fmt.Errorf("stake: %w", err)
	}
	l.logger.Info("stake locked",
		zap.String("pool", poolID.Hex()),
		zap.String("participant", participantID.Hex()),
		zap.String("position", position.ID),
		zap.Uint64("amount", amount),
		zap.Int64("lock_until", position.LockUntil),
		zap.Uint64("reward", event.Reward),
	)
	l.publish(ctx, poolID, event)
	return position, event, nil
}

func (l *Ledger) TradeWithSlippage(ctx context.Context, poolID, participantID model.ID, tradeAmount uint64) (model.TradeRecord, model.TradeEvent, error) {
	var (
		record = model.TradeRecord{ID: l.newID()}
		event  model.TradeEvent
	)
	err := l.store.Atomic(ctx, func(tx storage.Tx) error {
		pool, participant, err := loadPair(ctx, tx, poolID, participantID)
		if err != nil {
			return err
		}
		event, err = l.engine.TradeWithSlippage(&pool, &participant, &record, tradeAmount)
		if err != nil {
			return err
		}
		if err := putPair(ctx, tx, pool, participant); err != nil {
			return err
		}
		return tx.AppendTradeRecord(ctx, record)
	})
	if err != nil {
		return model.TradeRecord{}, model.TradeEvent{}, fmt.Errorf("trade: %w", err)
	}
	l.logger.Info("trade executed",
		zap.String("pool", poolID.Hex()),
		zap.String("participant", participantID.Hex()),
		zap.String("record", record.ID),
		zap.Uint64("amount", tradeAmount),
		zap.Uint64("fee", event.Fee),
		zap.Uint64("rebate", event.Rebate),
		zap.Uint64("volume_bonus", event.VolumeBonus),
	)
	l.publish(ctx, poolID, event)
	return record, event, nil
}

func (l *Ledger) Unstake(ctx context.Context, poolID, participantID model.ID, positionID string, amount uint64) (model.UnstakingEvent, error) {
	var event model.UnstakingEvent
	err := l.store.Atomic(ctx, func(tx storage.Tx) error {
		pool, participant, err := loadPair(ctx, tx, poolID, participantID)
		if err != nil {
			return err
		}
		position, err := tx.StakePosition(ctx, positionID)
		if err != nil {
			return err
		}
		event, err = l.engine.Unstake(&position, &participant, &pool, amount)
		if err != nil {
			return err
		}
		if err := putPair(ctx, tx, pool, participant); err != nil {
			return err
		}
		return tx.PutStakePosition(ctx, position)
	})
	if err != nil {
		return model.UnstakingEvent{}, fmt.Errorf("unstake: %w", err)
	}
	l.logger.Info("stake withdrawn",
		zap.String("pool", poolID.Hex()),
		zap.String("participant", participantID.Hex()),
		zap.String("position", positionID),
		zap.Uint64("amount", amount),
		zap.Uint64("penalty", event.Penalty),
		zap.Uint64("reward", event.Reward),
	)
	l.publish(ctx, poolID, event)
	return event, nil
}

// AdjustFeeRate runs the fee-rate controller. The bool is false when the pool
// has no liquidity and nothing changed.
func (l *Ledger) AdjustFeeRate(ctx context.Context, poolID model.ID) (model.FeeRateEvent, bool, error) {
	var (
		event   model.FeeRateEvent
		changed bool
	)
	err := l.store.Atomic(ctx, func(tx storage.Tx) error {
		pool, err := tx.Pool(ctx, poolID)
		if err != nil {
			return err
		}
		event, changed = l.engine.AdjustFeeRate(&pool)
		if !changed {
			return nil
		}
		return tx.PutPool(ctx, pool)
	})
	if err != nil {
		return model.FeeRateEvent{}, false, fmt.Errorf("adjust fee rate: %w", err)
	}
	if !changed {
		l.logger.Debug("fee rate unchanged, pool empty", zap.String("pool", poolID.Hex()))
		return model.FeeRateEvent{}, false, nil
	}
	l.logger.Info("fee rate adjusted",
		zap.String("pool", poolID.Hex()),
		zap.Uint64("old_fee_rate", event.OldFeeRate),
		zap.Uint64("new_fee_rate", event.NewFeeRate),
		zap.Uint64("utilization_bps", event.UtilizationBps),
	)
	l.publish(ctx, poolID, event)
	return event, true, nil
}

// Quote prices a trade against the pool's current state without executing it.
func (l *Ledger) Quote(ctx context.Context, poolID model.ID, tradeAmount uint64) (ledger.TradeQuote, error) {
	pool, err := l.Pool(ctx, poolID)
	if err != nil {
		return ledger.TradeQuote{}, err
	}
	quote, err := l.engine.Quote(pool, tradeAmount)
	if err != nil {
		return ledger.TradeQuote{}, fmt.Errorf("quote: %w", err)
	}
	return quote, nil
}

func (l *Ledger) Pool(ctx context.Context, poolID model.ID) (model.PoolState, error) {
	var pool model.PoolState
	err := l.store.Atomic(ctx, func(tx storage.Tx) error {
		var err error
		pool, err = tx.Pool(ctx, poolID)
		return err
	})
	if err != nil {
		return model.PoolState{}, fmt.Errorf("load pool: %w", err)
	}
	return pool, nil
}

func (l *Ledger) Participant(ctx context.Context, poolID, participantID model.ID) (model.ParticipantState, error) {
	var participant model.ParticipantState
	err := l.store.Atomic(ctx, func(tx storage.Tx) error {
		var err error
		participant, err = tx.Participant(ctx, poolID, participantID)
		return err
	})
	if err != nil {
		return model.ParticipantState{}, fmt.Errorf("load participant: %w", err)
	}
	return participant, nil
}

func (l *Ledger) StakePositions(ctx context.Context, poolID, participantID model.ID) ([]model.StakePosition, error) {
	var positions []model.StakePosition
	err := l.store.Atomic(ctx, func(tx storage.Tx) error {
		var err error
		positions, err = tx.StakePositions(ctx, poolID, participantID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load stake positions: %w", err)
	}
	return positions, nil
}

func (l *Ledger) TradeRecords(ctx context.Context, poolID model.ID, before int64) ([]model.TradeRecord, error) {
	records, err := l.store.TradeRecords(ctx, poolID, before)
	if err != nil {
		return nil, fmt.Errorf("load trade records: %w", err)
	}
	return records, nil
}

// publish hands the event to the sink, stamped with the time the operation
// ran under. Delivery failures are logged only; the operation has already
// committed.
func (l *Ledger) publish(ctx context.Context, poolID model.ID, event model.Event) {
	env, err := model.NewEnvelope(poolID, event.EventTime(), event)
	if err != nil {
		l.logger.Warn("encode event failed", zap.String("name", event.EventName()), zap.Error(err))
		return
	}
	if err := l.sink.Emit(ctx, env); err != nil {
		l.logger.Warn("emit event failed", zap.String("name", env.Name), zap.String("pool", poolID.Hex()), zap.Error(err))
	}
}

func loadPair(ctx context.Context, tx storage.Tx, poolID, participantID model.ID) (model.PoolState, model.ParticipantState, error) {
	pool, err := tx.Pool(ctx, poolID)
	if err != nil {
		return model.PoolState{}, model.ParticipantState{}, err
	}
	participant, err := tx.Participant(ctx, poolID, participantID)
	if err != nil {
		return model.PoolState{}, model.ParticipantState{}, err
	}
	return pool, participant, nil
}

func putPair(ctx context.Context, tx storage.Tx, pool model.PoolState, participant model.ParticipantState) error {
	if err := tx.PutPool(ctx, pool); err != nil {
		return err
	}
	return tx.PutParticipant(ctx, participant)
}
