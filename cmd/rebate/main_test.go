package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"rebateLedger/internal/model"
)

const (
	testPool   = "0x1111111111111111111111111111111111111111"
	testUser   = "0x2222222222222222222222222222222222222222"
	testAssetA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testAssetB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestCommandsRunAgainstSnapshotFile(t *testing.T) {
	dir := t.TempDir()
	state := "--state-file=" + filepath.Join(dir, "ledger.json")
	events := "--events-out=" + filepath.Join(dir, "events.jsonl")
	quiet := "--log-level=error"

	execute(t, "pool", "init", state, quiet, "--pool="+testPool, "--fee-rate=100", "--asset-a="+testAssetA, "--asset-b="+testAssetB)
	execute(t, "participant", "init", state, quiet, "--pool="+testPool, "--participant="+testUser, "--balance=112010")
	execute(t, "provide", state, quiet, events, "--pool="+testPool, "--participant="+testUser, "--amount=102010")

	out := execute(t, "trade", state, quiet, events, "--pool="+testPool, "--participant="+testUser, "--amount=1010")
	var trade struct {
		Record model.TradeRecord `json:"record"`
		Event  model.TradeEvent  `json:"event"`
	}
	if err := json.Unmarshal([]byte(out), &trade); err != nil {
		t.Fatalf("decode trade output: %v\n%s", err, out)
	}
	if trade.Event.Fee != 10 || trade.Event.Rebate != 5 || trade.Event.BalanceB != 990 {
		t.Fatalf("unexpected trade: %+v", trade.Event)
	}

	out = execute(t, "show", state, quiet, "--pool="+testPool, "--participant="+testUser)
	var shown struct {
		Pool        model.PoolState        `json:"pool"`
		Participant model.ParticipantState `json:"participant"`
	}
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("decode show output: %v\n%s", err, out)
	}
	if shown.Pool.Liquidity != 102020 || shown.Participant.RebatesEarned != 5 {
		t.Fatalf("unexpected state: %+v", shown)
	}
}

func TestTradeRejectsMissingParticipantFlag(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"trade", "--pool=" + testPool, "--amount=1"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error without participant")
	}
}
