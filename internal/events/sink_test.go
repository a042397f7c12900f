package events

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"rebateLedger/internal/model"
)

func testEnvelope(t *testing.T) model.Envelope {
	t.Helper()
	env, err := model.NewEnvelope(model.ID{0x11}, 1_700_000_000, model.LiquidityEvent{
		Participant: model.ID{0x22},
		Amount:      100,
		Liquidity:   100,
	})
	require.NoError(t, err)
	return env
}

type recordingSink struct {
	got  []model.Envelope
	errs []error
}

func (s *recordingSink) Emit(ctx context.Context, env model.Envelope) error {
	s.got = append(s.got, env)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return err
	}
	return nil
}

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := &recordingSink{}
	failing := &recordingSink{errs: []error{boom}}

	err := Multi{ok, nil, failing}.Emit(context.Background(), testEnvelope(t))
	require.ErrorIs(t, err, boom)
	require.Len(t, ok.got, 1)
	require.Len(t, failing.got, 1)

	require.NoError(t, Multi{ok}.Emit(context.Background(), testEnvelope(t)))
	require.NoError(t, Nop{}.Emit(context.Background(), testEnvelope(t)))
}

func TestJSONLSinkAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	sink := NewJSONLSink(path)
	env := testEnvelope(t)

	require.NoError(t, sink.Emit(context.Background(), env))
	require.NoError(t, sink.EmitBatch(context.Background(), []model.Envelope{env, env}))
	require.NoError(t, sink.EmitBatch(context.Background(), nil))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	lines := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var decoded model.Envelope
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &decoded))
		require.Equal(t, model.EventLiquidity, decoded.Name)
		require.Equal(t, env.PoolID, decoded.PoolID)
		lines++
	}
	require.NoError(t, scanner.Err())
	require.Equal(t, 3, lines)
}

func TestLogSinkWritesInfoLine(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLogSink(zap.New(core))

	require.NoError(t, sink.Emit(context.Background(), testEnvelope(t)))
	entries := logs.FilterMessage("ledger event").All()
	require.Len(t, entries, 1)
	require.Equal(t, model.EventLiquidity, entries[0].ContextMap()["name"])
}

type fakeRedis struct {
	xadds     []*redis.XAddArgs
	published map[string][]interface{}
	xaddErr   error
}

func (f *fakeRedis) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.xadds = append(f.xadds, a)
	return redis.NewStringResult("1-0", f.xaddErr)
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	if f.published == nil {
		f.published = make(map[string][]interface{})
	}
	f.published[channel] = append(f.published[channel], message)
	return redis.NewIntResult(1, nil)
}

func TestRedisSinkStreamsAndPublishes(t *testing.T) {
	fake := &fakeRedis{}
	sink := newRedisSink(fake, "ledger:events", "ledger:live")

	require.NoError(t, sink.Emit(context.Background(), testEnvelope(t)))
	require.Len(t, fake.xadds, 1)
	require.Equal(t, "ledger:events", fake.xadds[0].Stream)
	require.True(t, fake.xadds[0].Approx)
	require.Equal(t, streamMaxLen, fake.xadds[0].MaxLen)
	require.Len(t, fake.published["ledger:live"], 1)
	require.NoError(t, sink.Close())
}

func TestRedisSinkSkipsEmptyTargets(t *testing.T) {
	fake := &fakeRedis{xaddErr: errors.New("down")}
	sink := newRedisSink(fake, "", "live")

	require.NoError(t, sink.Emit(context.Background(), testEnvelope(t)))
	require.Empty(t, fake.xadds)

	sink = newRedisSink(fake, "events", "")
	require.Error(t, sink.Emit(context.Background(), testEnvelope(t)))
}

func TestRetryingRecoversAfterFailures(t *testing.T) {
	inner := &recordingSink{errs: []error{errors.New("a"), errors.New("b")}}
	sink := NewRetrying(inner, 3, time.Millisecond, nil)

	require.NoError(t, sink.Emit(context.Background(), testEnvelope(t)))
	require.Len(t, inner.got, 3)
}

func TestRetryingGivesUp(t *testing.T) {
	boom := errors.New("boom")
	inner := &recordingSink{errs: []error{boom, boom, boom}}
	sink := NewRetrying(inner, 1, time.Millisecond, nil)

	require.ErrorIs(t, sink.Emit(context.Background(), testEnvelope(t)), boom)
	require.Len(t, inner.got, 2)
}

func TestRetryingStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inner := &recordingSink{errs: []error{errors.New("x")}}
	sink := NewRetrying(inner, 5, time.Hour, nil)

	require.ErrorIs(t, sink.Emit(ctx, testEnvelope(t)), context.Canceled)
}
