package bundle

import (
	"fmt"
	"strings"
)

// SizeError reports a transaction that serialized over the wire-size
// ceiling. Always a planning defect: the chunk must shrink, the
// transaction is never submitted.
type SizeError struct {
	BundleIndex int
	ChunkIndex  int
	Size        int
	Limit       int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("transaction %d/%d serialized to %d bytes, limit %d",
		e.BundleIndex, e.ChunkIndex, e.Size, e.Limit)
}

// CompileError reports an operation that could not be turned into
// instructions, usually a missing or underivable per-wallet account.
type CompileError struct {
	BundleIndex int
	ChunkIndex  int
	Wallet      string
	Err         error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile operation for %s in chunk %d/%d: %v",
		e.Wallet, e.BundleIndex, e.ChunkIndex, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// SimulationError reports a transaction that failed dry-run
// simulation. Logs are carried verbatim from the RPC node.
type SimulationError struct {
	BundleIndex int
	ChunkIndex  int
	SimErr      interface{}
	Logs        []string
}

func (e *SimulationError) Error() string {
	msg := fmt.Sprintf("simulation failed for transaction %d/%d: %v",
		e.BundleIndex, e.ChunkIndex, e.SimErr)
	if len(e.Logs) > 0 {
		msg += "\n" + strings.Join(e.Logs, "\n")
	}
	return msg
}

// SlippageExceededError wraps an on-chain revert caused by the minOut
// threshold. Indicates outside trades moved the price between pricing
// and landing.
type SlippageExceededError struct {
	OriginalError error
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("slippage tolerance exceeded: %v", e.OriginalError)
}

func (e *SlippageExceededError) Unwrap() error {
	return e.OriginalError
}

// slippageMarkers are log fragments the curve and pool programs emit
// when the minOut check reverts.
var slippageMarkers = []string{
	"TooLittleSolReceived",
	"TooMuchSolRequired",
	"ExceededSlippage",
	"slippage",
}

// IsSlippageError inspects simulation or transaction logs for a
// slippage revert.
func IsSlippageError(logs []string) bool {
	for _, log := range logs {
		for _, marker := range slippageMarkers {
			if strings.Contains(log, marker) {
				return true
			}
		}
	}
	return false
}
