package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"rebateLedger/internal/model"
)

// FileStore keeps the whole ledger in memory and persists a JSON snapshot
// after every committed transaction. An empty path keeps it memory-only.
// Processes sharing a path serialize on <path>.lock and re-read the snapshot
// once they hold it.
type FileStore struct {
	path  string
	lock  *flock.Flock
	mu    sync.Mutex
	state *snapshot
}

type snapshot struct {
	Pools        map[string]model.PoolState        `json:"pools"`
	Participants map[string]model.ParticipantState `json:"participants"`
	Positions    map[string]model.StakePosition    `json:"positions"`
	Trades       []model.TradeRecord               `json:"trades"`
	UpdatedAt    string                            `json:"updated_at"`
}

const lockRetryDelay = 10 * time.Millisecond

func newSnapshot() *snapshot {
	return &snapshot{
		Pools:        make(map[string]model.PoolState),
		Participants: make(map[string]model.ParticipantState),
		Positions:    make(map[string]model.StakePosition),
	}
}

func (s *snapshot) clone() *snapshot {
	out := &snapshot{
		Pools:        make(map[string]model.PoolState, len(s.Pools)),
		Participants: make(map[string]model.ParticipantState, len(s.Participants)),
		Positions:    make(map[string]model.StakePosition, len(s.Positions)),
		Trades:       append([]model.TradeRecord(nil), s.Trades...),
		UpdatedAt:    s.UpdatedAt,
	}
	for k, v := range s.Pools {
		out.Pools[k] = v
	}
	for k, v := range s.Participants {
		out.Participants[k] = v
	}
	for k, v := range s.Positions {
		out.Positions[k] = v
	}
	return out
}

// OpenFile loads the snapshot at path, starting empty when it does not exist.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path, state: newSnapshot()}
	if path == "" {
		return s, nil
	}

	stat, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat state: %w", err)
	}
	if err == nil && stat.IsDir() {
		return nil, fmt.Errorf("state path is a directory")
	}
	s.lock = flock.New(path + ".lock")

	release, err := s.acquire(context.Background(), false)
	if err != nil {
		return nil, err
	}
	defer release()
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Atomic runs fn against a private copy of the latest snapshot and swaps it
// in only on success. The snapshot is rewritten only when fn wrote something.
func (s *FileStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	release, err := s.acquire(ctx, true)
	if err != nil {
		return err
	}
	defer release()
	if err := s.reload(); err != nil {
		return err
	}

	tx := &fileTx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if !tx.dirty {
		return nil
	}
	if err := s.persist(tx.state); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *FileStore) TradeRecords(ctx context.Context, poolID model.ID, before int64) ([]model.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, err := s.acquire(ctx, false)
	if err != nil {
		return nil, err
	}
	defer release()
	if err := s.reload(); err != nil {
		return nil, err
	}

	out := make([]model.TradeRecord, 0)
	for _, record := range s.state.Trades {
		if record.PoolID != poolID {
			continue
		}
		if before > 0 && record.Time >= before {
			continue
		}
		out = append(out, record)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (s *FileStore) PruneTradeRecords(ctx context.Context, poolID model.ID, before int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, err := s.acquire(ctx, true)
	if err != nil {
		return 0, err
	}
	defer release()
	if err := s.reload(); err != nil {
		return 0, err
	}

	work := s.state.clone()
	kept := work.Trades[:0]
	var pruned int64
	for _, record := range work.Trades {
		if record.PoolID == poolID && record.Time < before {
			pruned++
			continue
		}
		kept = append(kept, record)
	}
	if pruned == 0 {
		return 0, nil
	}
	work.Trades = kept
	if err := s.persist(work); err != nil {
		return 0, err
	}
	s.state = work
	return pruned, nil
}

func (s *FileStore) Close() {}

// acquire takes the snapshot's lock file, exclusive for writers and shared
// for readers. The returned func releases it.
func (s *FileStore) acquire(ctx context.Context, exclusive bool) (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}
	if err := ensureDir(s.path); err != nil {
		return nil, err
	}

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = s.lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = s.lock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("lock state: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock state: %s is busy", s.lock.Path())
	}
	return func() { _ = s.lock.Unlock() }, nil
}

// reload replaces the in-memory state with the snapshot on disk. Callers hold the lock.
func (s *FileStore) reload() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.state = newSnapshot()
			return nil
		}
		return fmt.Errorf("read state: %w", err)
	}
	loaded := newSnapshot()
	if err := json.Unmarshal(data, loaded); err != nil {
		return fmt.Errorf("parse state: %w", err)
	}
	s.state = loaded.clone()
	return nil
}

func (s *FileStore) persist(state *snapshot) error {
	if s.path == "" {
		return nil
	}
	if err := ensureDir(s.path); err != nil {
		return err
	}

	state.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)

type fileTx struct {
	state *snapshot
	dirty bool
}

func idKey(id model.ID) string {
	return strings.ToLower(id.Hex())
}

func participantKey(poolID, id model.ID) string {
	return idKey(poolID) + "/" + idKey(id)
}

func (tx *fileTx) Pool(ctx context.Context, id model.ID) (model.PoolState, error) {
	pool, ok := tx.state.Pools[idKey(id)]
	if !ok {
		return model.PoolState{}, fmt.Errorf("pool %s: %w", id.Hex(), ErrNotFound)
	}
	return pool, nil
}

func (tx *fileTx) CreatePool(ctx context.Context, pool model.PoolState) error {
	key := idKey(pool.ID)
	if _, ok := tx.state.Pools[key]; ok {
		return fmt.Errorf("pool %s: %w", pool.ID.Hex(), ErrAlreadyExists)
	}
	tx.state.Pools[key] = pool
	tx.dirty = true
	return nil
}

func (tx *fileTx) PutPool(ctx context.Context, pool model.PoolState) error {
	key := idKey(pool.ID)
	if _, ok := tx.state.Pools[key]; !ok {
		return fmt.Errorf("pool %s: %w", pool.ID.Hex(), ErrNotFound)
	}
	tx.state.Pools[key] = pool
	tx.dirty = true
	return nil
}

func (tx *fileTx) Participant(ctx context.Context, poolID, id model.ID) (model.ParticipantState, error) {
	participant, ok := tx.state.Participants[participantKey(poolID, id)]
	if !ok {
		return model.ParticipantState{}, fmt.Errorf("participant %s: %w", id.Hex(), ErrNotFound)
	}
	return participant, nil
}

func (tx *fileTx) CreateParticipant(ctx context.Context, participant model.ParticipantState) error {
	if _, ok := tx.state.Pools[idKey(participant.PoolID)]; !ok {
		return fmt.Errorf("pool %s: %w", participant.PoolID.Hex(), ErrNotFound)
	}
	key := participantKey(participant.PoolID, participant.ID)
	if _, ok := tx.state.Participants[key]; ok {
		return fmt.Errorf("participant %s: %w", participant.ID.Hex(), ErrAlreadyExists)
	}
	tx.state.Participants[key] = participant
	tx.dirty = true
	return nil
}

func (tx *fileTx) PutParticipant(ctx context.Context, participant model.ParticipantState) error {
	key := participantKey(participant.PoolID, participant.ID)
	if _, ok := tx.state.Participants[key]; !ok {
		return fmt.Errorf("participant %s: %w", participant.ID.Hex(), ErrNotFound)
	}
	tx.state.Participants[key] = participant
	tx.dirty = true
	return nil
}

func (tx *fileTx) StakePosition(ctx context.Context, id string) (model.StakePosition, error) {
	position, ok := tx.state.Positions[id]
	if !ok {
		return model.StakePosition{}, fmt.Errorf("stake position %s: %w", id, ErrNotFound)
	}
	return position, nil
}

func (tx *fileTx) StakePositions(ctx context.Context, poolID, participantID model.ID) ([]model.StakePosition, error) {
	out := make([]model.StakePosition, 0)
	for _, position := range tx.state.Positions {
		if position.PoolID == poolID && position.ParticipantID == participantID {
			out = append(out, position)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (tx *fileTx) PutStakePosition(ctx context.Context, position model.StakePosition) error {
	if position.ID == "" {
		return fmt.Errorf("stake position id required")
	}
	tx.state.Positions[position.ID] = position
	tx.dirty = true
	return nil
}

func (tx *fileTx) AppendTradeRecord(ctx context.Context, record model.TradeRecord) error {
	if record.ID == "" {
		return fmt.Errorf("trade record id required")
	}
	tx.state.Trades = append(tx.state.Trades, record)
	tx.dirty = true
	return nil
}
