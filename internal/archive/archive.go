// Package archive moves old trade receipts to object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"rebateLedger/internal/model"
)

const contentType = "application/x-ndjson"

// multipartThreshold switches uploads to the multipart path.
const multipartThreshold = 64 * 1024 * 1024

// BlobWriter uploads objects.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// TradeStore lists and prunes trade receipts.
type TradeStore interface {
	TradeRecords(ctx context.Context, poolID model.ID, before int64) ([]model.TradeRecord, error)
	PruneTradeRecords(ctx context.Context, poolID model.ID, before int64) (int64, error)
}

// Result describes one archive run.
type Result struct {
	Path     string `json:"path,omitempty"`
	Archived int64  `json:"archived"`
	Pruned   int64  `json:"pruned"`
}

// Archiver exports receipts older than a cutoff as JSONL.
type Archiver struct {
	writer BlobWriter
	store  TradeStore
	logger *zap.Logger
	now    func() time.Time
}

func NewArchiver(writer BlobWriter, store TradeStore, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{writer: writer, store: store, logger: logger, now: time.Now}
}

// ArchivePool uploads the pool's receipts with time < before to
// trades/<pool>/<before>.jsonl and, when prune is set, deletes them from the
// store after the upload succeeded. An empty set uploads nothing.
func (a *Archiver) ArchivePool(ctx context.Context, poolID model.ID, before int64, prune bool) (Result, error) {
	if before <= 0 {
		return Result{}, fmt.Errorf("archive cutoff must be > 0")
	}
	if prune && before > a.now().Unix() {
		return Result{}, fmt.Errorf("archive cutoff %d is in the future, refusing to prune", before)
	}

	records, err := a.store.TradeRecords(ctx, poolID, before)
	if err != nil {
		return Result{}, fmt.Errorf("archive query: %w", err)
	}
	if len(records) == 0 {
		a.logger.Info("archive skipped, no receipts", zap.String("pool", poolID.Hex()), zap.Int64("before", before))
		return Result{}, nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return Result{}, fmt.Errorf("archive marshal: %w", err)
	}

	path := archivePath(poolID, before)
	if len(buf) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), 0)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), contentType)
	}
	if err != nil {
		return Result{}, fmt.Errorf("archive upload: %w", err)
	}

	result := Result{Path: path, Archived: int64(len(records))}
	if prune {
		pruned, err := a.store.PruneTradeRecords(ctx, poolID, before)
		if err != nil {
			return result, fmt.Errorf("archive prune: %w", err)
		}
		result.Pruned = pruned
	}

	a.logger.Info("archive complete",
		zap.String("pool", poolID.Hex()),
		zap.String("path", path),
		zap.Int64("archived", result.Archived),
		zap.Int64("pruned", result.Pruned),
	)
	return result, nil
}

func archivePath(poolID model.ID, before int64) string {
	return fmt.Sprintf("trades/%s/%d.jsonl", strings.ToLower(poolID.Hex()), before)
}

func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
