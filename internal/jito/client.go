// Package jito submits transaction bundles to the Jito block engine
// and polls their landing status. A bundle is atomic: the relay either
// lands every transaction in order or none of them.
package jito

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	jitorpc "github.com/jito-labs/jito-go-rpc"
	"go.uber.org/zap"
)

// MaxBundleTransactions is the relay's hard cap on transactions per
// bundle.
const MaxBundleTransactions = 5

// ErrRateLimited marks relay rejections that are worth retrying after
// a delay. Callers classify with errors.Is.
var ErrRateLimited = errors.New("relay rate limited")

// MainnetBlockEngines are the public block engine endpoints. Rotating
// across them spreads rate limits.
var MainnetBlockEngines = []string{
	"https://mainnet.block-engine.jito.wtf/api/v1",
	"https://amsterdam.mainnet.block-engine.jito.wtf/api/v1",
	"https://frankfurt.mainnet.block-engine.jito.wtf/api/v1",
	"https://ny.mainnet.block-engine.jito.wtf/api/v1",
	"https://tokyo.mainnet.block-engine.jito.wtf/api/v1",
}

// MainnetTipAccounts are the static mainnet tip accounts. Using the
// static list avoids a getTipAccounts round trip per run.
var MainnetTipAccounts = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
	solana.MustPublicKeyFromBase58("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	solana.MustPublicKeyFromBase58("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	solana.MustPublicKeyFromBase58("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	solana.MustPublicKeyFromBase58("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	solana.MustPublicKeyFromBase58("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
}

// RandomTipAccount picks a tip account from the static list.
func RandomTipAccount() solana.PublicKey {
	return MainnetTipAccounts[rand.Intn(len(MainnetTipAccounts))]
}

// TipInstruction builds the validator tip transfer that makes a bundle
// eligible for inclusion.
func TipInstruction(from, tipAccount solana.PublicKey, lamports uint64) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, tipAccount).Build()
}

// Client is a multi-endpoint relay client. Endpoints rotate
// round-robin and rate-limited calls fail over to the next one.
type Client struct {
	endpoints    []string
	uuid         string
	currentIndex uint32
	maxRetries   int
	retryDelay   time.Duration
	logger       *zap.Logger
}

// NewClient creates a relay client over the given endpoints. uuid is
// the optional Jito auth UUID; empty means unauthenticated.
func NewClient(endpoints []string, uuid string, logger *zap.Logger) *Client {
	if len(endpoints) == 0 {
		endpoints = MainnetBlockEngines
	}
	return &Client{
		endpoints:  endpoints,
		uuid:       uuid,
		maxRetries: len(endpoints) + 2,
		retryDelay: 100 * time.Millisecond,
		logger:     logger.Named("jito"),
	}
}

// WithRetries overrides the retry count and delay between attempts.
func (c *Client) WithRetries(maxRetries int, retryDelay time.Duration) *Client {
	c.maxRetries = maxRetries
	c.retryDelay = retryDelay
	return c
}

func (c *Client) getNextClient() *jitorpc.JitoJsonRpcClient {
	idx := atomic.AddUint32(&c.currentIndex, 1)
	endpoint := c.endpoints[int(idx)%len(c.endpoints)]
	return jitorpc.NewJitoJsonRpcClient(endpoint, c.uuid)
}

// IsRateLimitError reports whether the relay rejected the request for
// transient reasons (rate limits, congestion, no leader slot in reach)
// rather than rejecting the bundle itself.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "congested") ||
		strings.Contains(errStr, "no leader") ||
		strings.Contains(errStr, "429")
}

// SendBundle submits fully signed transactions as one atomic bundle
// and returns the relay's bundle ID. Rate-limited attempts rotate to
// the next endpoint; after exhausting retries the error wraps
// ErrRateLimited so callers can classify it.
func (c *Client) SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	if len(txs) == 0 {
		return "", fmt.Errorf("bundle requires at least one transaction")
	}
	if len(txs) > MaxBundleTransactions {
		return "", fmt.Errorf("bundle of %d transactions exceeds relay limit of %d", len(txs), MaxBundleTransactions)
	}

	txStrings := make([]string, 0, len(txs))
	for _, tx := range txs {
		txBytes, err := tx.MarshalBinary()
		if err != nil {
			return "", fmt.Errorf("marshal transaction: %w", err)
		}
		txStrings = append(txStrings, base64.StdEncoding.EncodeToString(txBytes))
	}

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		client := c.getNextClient()
		rawResp, err := client.SendBundle([][]string{txStrings})
		if err != nil {
			lastErr = err
			if IsRateLimitError(err) {
				c.logger.Debug("relay rate limited, rotating endpoint",
					zap.Int("attempt", i+1),
					zap.Error(err))
				time.Sleep(c.retryDelay)
				continue
			}
			return "", fmt.Errorf("jito send bundle: %w", err)
		}

		var bundleID string
		if err := json.Unmarshal(rawResp, &bundleID); err != nil {
			return "", fmt.Errorf("unmarshal bundle response: %w", err)
		}
		c.logger.Info("bundle accepted by relay",
			zap.String("bundle_id", bundleID),
			zap.Int("transactions", len(txs)))
		return bundleID, nil
	}
	return "", fmt.Errorf("jito send bundle failed after %d retries: %w: %w", c.maxRetries, ErrRateLimited, lastErr)
}

// GetBundleStatuses returns the relay-side status of submitted
// bundles.
func (c *Client) GetBundleStatuses(ctx context.Context, bundleIDs []string) (*jitorpc.BundleStatusResponse, error) {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		client := c.getNextClient()
		statuses, err := client.GetBundleStatuses(bundleIDs)
		if err != nil {
			lastErr = err
			if IsRateLimitError(err) {
				time.Sleep(c.retryDelay)
				continue
			}
			return nil, fmt.Errorf("get bundle statuses: %w", err)
		}
		return statuses, nil
	}
	return nil, fmt.Errorf("get bundle statuses failed after %d retries: %w", c.maxRetries, lastErr)
}
