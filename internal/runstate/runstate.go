// Package runstate persists the durable context of a bundling run: the
// mint, the venue it trades on, the lookup table, and what each wallet
// was planned to do. Later sell runs and audits read it back.
package runstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// WalletPlan records the planned and reconciled amounts for one wallet
// in one run.
type WalletPlan struct {
	Wallet        string `json:"wallet"`
	Direction     string `json:"direction"`
	AmountIn      uint64 `json:"amount_in"`
	ExpectedOut   uint64 `json:"expected_out"`
	MinOut        uint64 `json:"min_out"`
	Confirmed     bool   `json:"confirmed"`
	TxSignature   string `json:"tx_signature,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// BundleRecord is the submission outcome of one bundle within a run.
type BundleRecord struct {
	BundleID   string   `json:"bundle_id"`
	Signatures []string `json:"signatures"`
	Landed     bool     `json:"landed"`
}

// RunContext is everything a run needs to be resumed or audited.
type RunContext struct {
	RunID       string         `json:"run_id"`
	CreatedAt   time.Time      `json:"created_at"`
	Mint        string         `json:"mint"`
	VenueKind   string         `json:"venue_kind"`
	Pool        string         `json:"pool,omitempty"`
	LookupTable string         `json:"lookup_table,omitempty"`
	Creator     string         `json:"creator,omitempty"`
	Plans       []WalletPlan   `json:"plans"`
	Bundles     []BundleRecord `json:"bundles,omitempty"`
}

// NewRunContext creates a run context with a fresh run ID.
func NewRunContext(mint, venueKind string) *RunContext {
	return &RunContext{
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Mint:      mint,
		VenueKind: venueKind,
	}
}

// Load reads a run context from disk.
func Load(path string) (*RunContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run state: %w", err)
	}
	var rc RunContext
	if err := json.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("failed to parse run state %s: %w", path, err)
	}
	if rc.Mint == "" {
		return nil, fmt.Errorf("run state %s missing mint", path)
	}
	return &rc, nil
}

// Save atomically rewrites the run context: write to a temp file in
// the same directory, then rename over the target. A crash mid-write
// never leaves a truncated state file.
func (rc *RunContext) Save(path string) error {
	data, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".runstate-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write run state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close run state: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace run state: %w", err)
	}
	return nil
}

// PlanFor returns the plan entry for a wallet, or nil.
func (rc *RunContext) PlanFor(wallet string) *WalletPlan {
	for i := range rc.Plans {
		if rc.Plans[i].Wallet == wallet {
			return &rc.Plans[i]
		}
	}
	return nil
}
