package blockchain

import "errors"

// Sentinel errors forming the error-kind union described in spec §7.
// Callers use errors.Is against these; CLI code turns them into a
// single printed "Error: <text>" line.
var (
	// ErrStorage wraps persistent-store I/O or decode failures.
	ErrStorage = errors.New("blockchain: storage error")
	// ErrNotFound covers an uninitialized chain, a missing block, or a
	// missing transaction.
	ErrNotFound = errors.New("blockchain: not found")
	// ErrChainNotInitialized is returned by OpenBlockchain when no chain
	// exists yet.
	ErrChainNotInitialized = errors.New("blockchain: chain not initialized")
	// ErrInsufficientFunds is returned by NewUTXOTransaction.
	ErrInsufficientFunds = errors.New("blockchain: insufficient funds")
	// ErrInvalidReference is returned when signing/verifying a
	// transaction whose input references an unknown previous transaction.
	ErrInvalidReference = errors.New("blockchain: invalid previous transaction reference")
	// ErrInvalidTransaction is returned by MineBlock when a candidate
	// transaction fails verification.
	ErrInvalidTransaction = errors.New("blockchain: invalid transaction")
)
