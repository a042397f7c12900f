package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ID identifies pools, participants and assets. It is a 20-byte account
// address rendered as 0x-prefixed hex.
type ID = common.Address

// ParseID converts a hex string into an ID.
func ParseID(input string) (ID, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return ID{}, fmt.Errorf("invalid id: %q", input)
	}
	return common.HexToAddress(input), nil
}

// ParseIDs converts hex strings into IDs, skipping blanks.
func ParseIDs(inputs []string) ([]ID, error) {
	ids := make([]ID, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input) == "" {
			continue
		}
		id, err := ParseID(input)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
