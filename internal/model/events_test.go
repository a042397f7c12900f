package model

import (
	"encoding/json"
	"testing"
)

func TestNewEnvelopeCarriesPayload(t *testing.T) {
	pool, err := ParseID("0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("parse pool: %v", err)
	}
	user, err := ParseID("0x2222222222222222222222222222222222222222")
	if err != nil {
		t.Fatalf("parse user: %v", err)
	}

	env, err := NewEnvelope(pool, 1700000000, TradeEvent{
		Participant: user,
		TradeAmount: 1010,
		Fee:         10,
		Rebate:      5,
		BalanceA:    8990,
		BalanceB:    990,
	})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if env.Name != EventTrade {
		t.Fatalf("name mismatch: %s", env.Name)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(env.Payload, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded["fee"].(float64) != 10 || decoded["rebate"].(float64) != 5 {
		t.Fatalf("payload mismatch: %v", decoded)
	}
	if decoded["participant"].(string) != user.Hex() {
		t.Fatalf("participant mismatch: %v", decoded["participant"])
	}
}

func TestParseIDsSkipsBlanks(t *testing.T) {
	ids, err := ParseIDs([]string{" 0x1111111111111111111111111111111111111111", "", "  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 id, got %d", len(ids))
	}
	if _, err := ParseIDs([]string{"not-an-address"}); err == nil {
		t.Fatalf("expected error for invalid id")
	}
}
