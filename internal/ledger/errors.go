package ledger

import "errors"

var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrCooldownNotElapsed  = errors.New("cooldown period has not elapsed")
	ErrPoolEmpty           = errors.New("pool has no liquidity")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
	ErrArithmeticUnderflow = errors.New("arithmetic underflow")
	ErrSlippageExceeded    = errors.New("slippage exceeds maximum")
	ErrInvalidLockDuration = errors.New("invalid lock duration")
	ErrInvalidFeeRate      = errors.New("invalid fee rate")
	ErrInvalidAsset        = errors.New("invalid asset pair")
	ErrRecordMismatch      = errors.New("records do not belong together")
	ErrInvalidPolicy       = errors.New("invalid policy")
)
