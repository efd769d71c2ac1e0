package bundle

import (
	"context"

	"go.uber.org/zap"
)

// SimulationGate dry-runs assembled transactions before anything is
// submitted. A failure anywhere aborts the whole run: bundles are
// atomic, so shipping a transaction that is known to revert just burns
// the tip.
//
// Each transaction is simulated in isolation against current chain
// state. Transactions whose validity depends on an earlier transaction
// in the same bundle landing first (a creation, or a buy funding a
// later sell) cannot be covered and are skipped rather than falsely
// failed.
type SimulationGate struct {
	client ChainClient
	logger *zap.Logger
}

// NewSimulationGate creates a gate over the given RPC client.
func NewSimulationGate(client ChainClient, logger *zap.Logger) *SimulationGate {
	return &SimulationGate{client: client, logger: logger.Named("simgate")}
}

// Check simulates every eligible transaction and returns the first
// failure as a SimulationError carrying the node's logs verbatim.
func (g *SimulationGate) Check(ctx context.Context, bundles []*AssembledBundle) error {
	dependent := false
	for _, b := range bundles {
		for _, at := range b.Txs {
			if dependent {
				g.logger.Debug("skipping simulation of state-dependent transaction",
					zap.Int("bundle", at.Chunk.BundleIndex),
					zap.Int("chunk", at.Chunk.Index))
				continue
			}

			result, err := g.client.SimulateTransaction(ctx, at.Tx)
			if err != nil {
				return err
			}
			if result.Failed() {
				return &SimulationError{
					BundleIndex: at.Chunk.BundleIndex,
					ChunkIndex:  at.Chunk.Index,
					SimErr:      result.Err,
					Logs:        result.Logs,
				}
			}
			g.logger.Debug("simulation passed",
				zap.Int("bundle", at.Chunk.BundleIndex),
				zap.Int("chunk", at.Chunk.Index),
				zap.Uint64("units_consumed", result.UnitsConsumed))

			// Everything after a creation depends on state the creation
			// transaction introduces.
			if at.Chunk.Creation != nil {
				dependent = true
			}
		}
	}
	return nil
}
