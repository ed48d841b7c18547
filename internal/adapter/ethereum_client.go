package adapter

import (
	"context"
	"encoding/hex"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	apperrors "github.com/agent-diff/internal/errors"
	"github.com/agent-diff/internal/logging"
	"github.com/agent-diff/internal/retry"
	"github.com/agent-diff/internal/types"
)

// EthClient defines the Ethereum client operations the chain client needs.
// This interface allows for easier testing and mocking.
type EthClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*ethtypes.Block, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Ensure ethclient.Client implements EthClient
var _ EthClient = (*ethclient.Client)(nil)

var addressPattern = regexp.MustCompile("^0x[a-fA-F0-9]{40}$")

// defaultRequestTimeout bounds a single RPC attempt when no explicit
// timeout is configured.
const defaultRequestTimeout = 30 * time.Second

// ValidateAddress checks whether the string is a well-formed EVM address:
// 0x followed by 40 hex characters.
func ValidateAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// DialFunc opens an EthClient for an RPC URL. Swappable in tests.
type DialFunc func(url string) (EthClient, error)

func ethDial(url string) (EthClient, error) {
	return ethclient.Dial(url)
}

// ChainClient fetches raw transaction activity for an address with a
// sequential block-by-block scan, and answers contract-code queries.
// All outgoing RPC calls share one rate limiter and retry policy; on
// repeated failure the client fails over to the secondary endpoint once
// before reporting the opaque data-unavailable condition.
type ChainClient struct {
	mu             sync.Mutex
	client         EthClient
	provider       DataProvider
	dial           DialFunc
	limiter        *rate.Limiter
	retryCfg       *retry.Config
	requestTimeout time.Duration
	logger         *logging.Logger
	now            func() time.Time
}

// ChainClientConfig holds configuration for creating a ChainClient.
type ChainClientConfig struct {
	// Provider supplies RPC endpoint URLs. Required.
	Provider DataProvider

	// RequestsPerSecond throttles outgoing RPC calls. Required, positive.
	RequestsPerSecond int

	// Retry overrides the default backoff policy. Optional.
	Retry *retry.Config

	// RequestTimeout bounds each RPC attempt, including time spent waiting
	// on the rate limiter. Optional; defaults to 30s.
	RequestTimeout time.Duration

	// Logger is an optional structured logger.
	Logger *logging.Logger
}

// NewChainClient dials the provider's primary endpoint and returns a client.
func NewChainClient(cfg *ChainClientConfig) (*ChainClient, error) {
	return newChainClient(cfg, ethDial)
}

// newChainClient is the dial-injectable constructor used by tests.
func newChainClient(cfg *ChainClientConfig, dial DialFunc) (*ChainClient, error) {
	if cfg == nil || cfg.Provider == nil {
		return nil, apperrors.NewInternalError("chain client requires a provider", nil)
	}

	url, err := cfg.Provider.GetPrimaryURL()
	if err != nil {
		return nil, err
	}

	client, err := dial(url)
	if err != nil {
		return nil, apperrors.NewDataUnavailableError(err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &ChainClient{
		client:         client,
		provider:       cfg.Provider,
		dial:           dial,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond),
		retryCfg:       cfg.Retry,
		requestTimeout: timeout,
		logger:         logger,
		now:            time.Now,
	}, nil
}

// Close closes the underlying client connection when it supports closing.
func (c *ChainClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if closer, ok := c.client.(interface{ Close() }); ok {
		closer.Close()
	}
}

// call runs an RPC operation under the shared rate limiter with retry, and
// attempts a single endpoint failover before giving up.
func (c *ChainClient) call(ctx context.Context, fn func(ctx context.Context, client EthClient) error) error {
	run := func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()

		if err := c.limiter.Wait(callCtx); err != nil {
			return err
		}
		c.mu.Lock()
		client := c.client
		c.mu.Unlock()
		return fn(callCtx, client)
	}

	err := retry.Do(ctx, c.retryCfg, run)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	if failErr := c.failover(); failErr != nil {
		return err
	}
	return run(ctx)
}

// failover switches the provider to its alternate endpoint and re-dials.
func (c *ChainClient) failover() error {
	if err := c.provider.Failover(); err != nil {
		return err
	}

	url, err := c.provider.GetCurrentURL()
	if err != nil {
		return err
	}

	client, err := c.dial(url)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	c.logger.WithField("url", url).Warn("Failed over to alternate RPC endpoint")
	return nil
}

// FetchTransactions scans blocks backwards from the head until the lookback
// cutoff or the transaction cap, collecting transactions that touch the
// address together with their receipt logs. Any provider error surfaces as
// the single opaque data-unavailable failure.
func (c *ChainClient) FetchTransactions(ctx context.Context, address string, lookback types.Lookback) ([]types.RawTransaction, error) {
	if !ValidateAddress(address) {
		return nil, apperrors.NewInvalidAddressError(address)
	}

	normalized := strings.ToLower(address)
	cutoff := c.now().Unix() - int64(lookback.MaxDays)*24*60*60

	var head uint64
	err := c.call(ctx, func(ctx context.Context, client EthClient) error {
		var err error
		head, err = client.BlockNumber(ctx)
		return err
	})
	if err != nil {
		return nil, apperrors.NewDataUnavailableError(err)
	}

	collected := []types.RawTransaction{}
	for blockNum := int64(head); blockNum >= 0 && len(collected) < lookback.MaxTransactions; blockNum-- {
		var block *ethtypes.Block
		err := c.call(ctx, func(ctx context.Context, client EthClient) error {
			var err error
			block, err = client.BlockByNumber(ctx, big.NewInt(blockNum))
			return err
		})
		if err != nil {
			return nil, apperrors.NewDataUnavailableError(err)
		}
		if block == nil {
			break
		}

		if int64(block.Time()) < cutoff {
			break
		}

		for _, tx := range block.Transactions() {
			if len(collected) >= lookback.MaxTransactions {
				break
			}
			raw, matched, err := c.matchTransaction(ctx, tx, block, normalized)
			if err != nil {
				return nil, err
			}
			if matched {
				collected = append(collected, *raw)
			}
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"address": normalized,
		"count":   len(collected),
	}).Debug("Fetched transactions from chain")

	return collected, nil
}

// matchTransaction checks whether the transaction touches the monitored
// address and, when it does, builds the raw record from its receipt.
func (c *ChainClient) matchTransaction(ctx context.Context, tx *ethtypes.Transaction, block *ethtypes.Block, normalized string) (*types.RawTransaction, bool, error) {
	to := ""
	if tx.To() != nil {
		to = tx.To().Hex()
	}

	from, err := senderAddress(tx)
	if err != nil {
		// cannot derive the sender for exotic signature schemes; skip
		return nil, false, nil
	}

	fromMatches := strings.ToLower(from) == normalized
	toMatches := to != "" && strings.ToLower(to) == normalized
	if !fromMatches && !toMatches {
		return nil, false, nil
	}

	var receipt *ethtypes.Receipt
	callErr := c.call(ctx, func(ctx context.Context, client EthClient) error {
		var err error
		receipt, err = client.TransactionReceipt(ctx, tx.Hash())
		return err
	})
	if callErr != nil {
		if isNotFound(callErr) {
			return nil, false, nil
		}
		return nil, false, apperrors.NewDataUnavailableError(callErr)
	}
	if receipt == nil {
		return nil, false, nil
	}

	raw := &types.RawTransaction{
		Hash:      tx.Hash().Hex(),
		To:        to,
		From:      from,
		Value:     tx.Value().String(),
		GasUsed:   strconv.FormatUint(receipt.GasUsed, 10),
		Timestamp: int64(block.Time()),
		Logs:      convertLogs(receipt.Logs),
	}
	return raw, true, nil
}

// IsContract reports whether the address carries contract code at the
// latest block. Implements analyzer.ContractChecker.
func (c *ChainClient) IsContract(ctx context.Context, address string) (bool, error) {
	if !ValidateAddress(address) {
		return false, apperrors.NewInvalidAddressError(address)
	}

	var code []byte
	err := c.call(ctx, func(ctx context.Context, client EthClient) error {
		var err error
		code, err = client.CodeAt(ctx, common.HexToAddress(address), nil)
		return err
	})
	if err != nil {
		return false, apperrors.NewDataUnavailableError(err)
	}

	return len(code) > 0, nil
}

// senderAddress recovers the from address. Legacy transactions with a zero
// chain ID fall back to mainnet's signer, matching how pre-EIP-155
// transactions are handled elsewhere.
func senderAddress(tx *ethtypes.Transaction) (string, error) {
	chainID := tx.ChainId()
	if chainID == nil || chainID.Sign() == 0 {
		chainID = big.NewInt(1)
	}
	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(chainID), tx)
	if err != nil {
		return "", err
	}
	return sender.Hex(), nil
}

// convertLogs maps receipt logs into the provider-neutral raw form.
func convertLogs(logs []*ethtypes.Log) []types.RawLog {
	if len(logs) == 0 {
		return nil
	}

	raw := make([]types.RawLog, 0, len(logs))
	for _, l := range logs {
		topics := make([]string, 0, len(l.Topics))
		for _, t := range l.Topics {
			topics = append(topics, t.Hex())
		}
		raw = append(raw, types.RawLog{
			Address: l.Address.Hex(),
			Topics:  topics,
			Data:    "0x" + hex.EncodeToString(l.Data),
		})
	}
	return raw
}

// isNotFound matches the not-found error go-ethereum returns for missing
// receipts, without tying the adapter to the concrete client type.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}
