package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rebateLedger/internal/model"
	"rebateLedger/internal/storage"
)

var (
	poolID = model.ID{0xab}
	userID = model.ID{0x22}
)

type fakeWriter struct {
	paths []string
	data  [][]byte
	err   error
}

func (w *fakeWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.paths = append(w.paths, path)
	w.data = append(w.data, body)
	return nil
}

func (w *fakeWriter) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	return w.Put(ctx, path, data, "")
}

func seededStore(t *testing.T) *storage.FileStore {
	t.Helper()
	ctx := context.Background()
	store, err := storage.OpenFile("")
	require.NoError(t, err)
	err = store.Atomic(ctx, func(tx storage.Tx) error {
		if err := tx.CreatePool(ctx, model.PoolState{ID: poolID, AssetA: model.ID{1}, AssetB: model.ID{2}}); err != nil {
			return err
		}
		for i, ts := range []int64{100, 200, 300} {
			record := model.TradeRecord{ID: string(rune('a' + i)), PoolID: poolID, ParticipantID: userID, Time: ts, TradeAmount: 10, Fee: 1}
			if err := tx.AppendTradeRecord(ctx, record); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return store
}

func newTestArchiver(writer BlobWriter, store TradeStore) *Archiver {
	a := NewArchiver(writer, store, nil)
	a.now = func() time.Time { return time.Unix(1_000, 0) }
	return a
}

func TestArchivePoolUploadsAndPrunes(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	writer := &fakeWriter{}

	result, err := newTestArchiver(writer, store).ArchivePool(ctx, poolID, 300, true)
	require.NoError(t, err)
	require.Equal(t, int64(2), result.Archived)
	require.Equal(t, int64(2), result.Pruned)
	require.Equal(t, []string{"trades/0xab00000000000000000000000000000000000000/300.jsonl"}, writer.paths)

	var lines []model.TradeRecord
	scanner := bufio.NewScanner(bytes.NewReader(writer.data[0]))
	for scanner.Scan() {
		var record model.TradeRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		lines = append(lines, record)
	}
	require.Len(t, lines, 2)
	require.Equal(t, int64(100), lines[0].Time)

	left, err := store.TradeRecords(ctx, poolID, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
}

func TestArchivePoolKeepsReceiptsWithoutPrune(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)

	result, err := newTestArchiver(&fakeWriter{}, store).ArchivePool(ctx, poolID, 1_000, false)
	require.NoError(t, err)
	require.Equal(t, int64(3), result.Archived)
	require.Zero(t, result.Pruned)

	left, err := store.TradeRecords(ctx, poolID, 0)
	require.NoError(t, err)
	require.Len(t, left, 3)
}

func TestArchivePoolEmptyIsNoop(t *testing.T) {
	writer := &fakeWriter{}
	result, err := newTestArchiver(writer, seededStore(t)).ArchivePool(context.Background(), poolID, 50, true)
	require.NoError(t, err)
	require.Equal(t, Result{}, result)
	require.Empty(t, writer.paths)
}

func TestArchivePoolUploadFailureSkipsPrune(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	boom := errors.New("upload failed")

	_, err := newTestArchiver(&fakeWriter{err: boom}, store).ArchivePool(ctx, poolID, 300, true)
	require.ErrorIs(t, err, boom)

	left, err := store.TradeRecords(ctx, poolID, 0)
	require.NoError(t, err)
	require.Len(t, left, 3)
}

func TestArchivePoolRejectsFutureCutoffWhenPruning(t *testing.T) {
	_, err := newTestArchiver(&fakeWriter{}, seededStore(t)).ArchivePool(context.Background(), poolID, 5_000, true)
	require.Error(t, err)
}
