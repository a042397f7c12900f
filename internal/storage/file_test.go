package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"rebateLedger/internal/model"
)

var (
	poolID = model.ID{0x11}
	userID = model.ID{0x22}
)

func seed(t *testing.T, store *FileStore) {
	t.Helper()
	err := store.Atomic(context.Background(), func(tx Tx) error {
		if err := tx.CreatePool(context.Background(), model.PoolState{ID: poolID, FeeRate: 100, AssetA: model.ID{0xaa}, AssetB: model.ID{0xbb}}); err != nil {
			return err
		}
		return tx.CreateParticipant(context.Background(), model.ParticipantState{ID: userID, PoolID: poolID, BalanceA: 1000})
	})
	require.NoError(t, err)
}

func TestFileStoreRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store, err := OpenFile("")
	require.NoError(t, err)
	seed(t, store)

	boom := errors.New("boom")
	err = store.Atomic(ctx, func(tx Tx) error {
		pool, err := tx.Pool(ctx, poolID)
		require.NoError(t, err)
		pool.Liquidity = 500
		require.NoError(t, tx.PutPool(ctx, pool))
		require.NoError(t, tx.AppendTradeRecord(ctx, model.TradeRecord{ID: "t1", PoolID: poolID, Time: 1}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = store.Atomic(ctx, func(tx Tx) error {
		pool, err := tx.Pool(ctx, poolID)
		require.NoError(t, err)
		require.Zero(t, pool.Liquidity)
		return nil
	})
	require.NoError(t, err)

	records, err := store.TradeRecords(ctx, poolID, 0)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestFileStoreRejectsDuplicatesAndMissing(t *testing.T) {
	ctx := context.Background()
	store, err := OpenFile("")
	require.NoError(t, err)
	seed(t, store)

	err = store.Atomic(ctx, func(tx Tx) error {
		return tx.CreatePool(ctx, model.PoolState{ID: poolID})
	})
	require.ErrorIs(t, err, ErrAlreadyExists)

	err = store.Atomic(ctx, func(tx Tx) error {
		_, err := tx.Participant(ctx, poolID, model.ID{0x33})
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)

	err = store.Atomic(ctx, func(tx Tx) error {
		return tx.CreateParticipant(ctx, model.ParticipantState{ID: userID, PoolID: model.ID{0x44}})
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreReloadsSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "ledger.json")
	store, err := OpenFile(path)
	require.NoError(t, err)
	seed(t, store)

	err = store.Atomic(ctx, func(tx Tx) error {
		if err := tx.PutStakePosition(ctx, model.StakePosition{ID: "p1", PoolID: poolID, ParticipantID: userID, Amount: 100, LockUntil: 50}); err != nil {
			return err
		}
		return tx.AppendTradeRecord(ctx, model.TradeRecord{ID: "t1", PoolID: poolID, ParticipantID: userID, Time: 10, TradeAmount: 1010, Fee: 10, Rebate: 5})
	})
	require.NoError(t, err)

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	err = reopened.Atomic(ctx, func(tx Tx) error {
		participant, err := tx.Participant(ctx, poolID, userID)
		require.NoError(t, err)
		require.Equal(t, uint64(1000), participant.BalanceA)

		positions, err := tx.StakePositions(ctx, poolID, userID)
		require.NoError(t, err)
		require.Len(t, positions, 1)
		require.Equal(t, uint64(100), positions[0].Amount)
		return nil
	})
	require.NoError(t, err)

	records, err := reopened.TradeRecords(ctx, poolID, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, uint64(10), records[0].Fee)
}

func TestFileStorePrunesByTime(t *testing.T) {
	ctx := context.Background()
	store, err := OpenFile(filepath.Join(t.TempDir(), "ledger.json"))
	require.NoError(t, err)
	seed(t, store)

	err = store.Atomic(ctx, func(tx Tx) error {
		for i, ts := range []int64{10, 20, 30} {
			record := model.TradeRecord{ID: string(rune('a' + i)), PoolID: poolID, ParticipantID: userID, Time: ts}
			if err := tx.AppendTradeRecord(ctx, record); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	before, err := store.TradeRecords(ctx, poolID, 30)
	require.NoError(t, err)
	require.Len(t, before, 2)

	pruned, err := store.PruneTradeRecords(ctx, poolID, 30)
	require.NoError(t, err)
	require.Equal(t, int64(2), pruned)

	left, err := store.TradeRecords(ctx, poolID, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, int64(30), left[0].Time)
}

func TestFileStoreSharedPathKeepsBothWriters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")
	first, err := OpenFile(path)
	require.NoError(t, err)
	second, err := OpenFile(path)
	require.NoError(t, err)
	seed(t, first)

	require.NoError(t, first.Atomic(ctx, func(tx Tx) error {
		return tx.AppendTradeRecord(ctx, model.TradeRecord{ID: "from-first", PoolID: poolID, Time: 1})
	}))
	require.NoError(t, second.Atomic(ctx, func(tx Tx) error {
		return tx.AppendTradeRecord(ctx, model.TradeRecord{ID: "from-second", PoolID: poolID, Time: 2})
	}))

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	records, err := reopened.TradeRecords(ctx, poolID, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "from-first", records[0].ID)
	require.Equal(t, "from-second", records[1].ID)

	// the first store sees the second store's commit without reopening
	records, err = first.TradeRecords(ctx, poolID, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestFileStoreConcurrentStoresSerialize(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")
	first, err := OpenFile(path)
	require.NoError(t, err)
	second, err := OpenFile(path)
	require.NoError(t, err)
	seed(t, first)

	const perStore = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*perStore)
	for _, store := range []*FileStore{first, second} {
		wg.Add(1)
		go func(store *FileStore) {
			defer wg.Done()
			for i := 0; i < perStore; i++ {
				errs <- store.Atomic(ctx, func(tx Tx) error {
					pool, err := tx.Pool(ctx, poolID)
					if err != nil {
						return err
					}
					pool.Liquidity++
					return tx.PutPool(ctx, pool)
				})
			}
		}(store)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, reopened.Atomic(ctx, func(tx Tx) error {
		pool, err := tx.Pool(ctx, poolID)
		require.NoError(t, err)
		require.Equal(t, uint64(2*perStore), pool.Liquidity)
		return nil
	}))
}

func TestFileStoreReadOnlyTxLeavesSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")
	store, err := OpenFile(path)
	require.NoError(t, err)
	seed(t, store)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, store.Atomic(ctx, func(tx Tx) error {
		_, err := tx.Pool(ctx, poolID)
		if err != nil {
			return err
		}
		_, err = tx.StakePositions(ctx, poolID, userID)
		return err
	}))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))

	fresh := filepath.Join(t.TempDir(), "empty.json")
	empty, err := OpenFile(fresh)
	require.NoError(t, err)
	err = empty.Atomic(ctx, func(tx Tx) error {
		_, err := tx.Pool(ctx, poolID)
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = os.Stat(fresh)
	require.True(t, os.IsNotExist(err))
}
