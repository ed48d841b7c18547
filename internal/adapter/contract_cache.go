package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agent-diff/internal/logging"
)

// ContractChecker mirrors analyzer.ContractChecker; declared here so the
// adapter package does not depend on the analyzer.
type ContractChecker interface {
	IsContract(ctx context.Context, address string) (bool, error)
}

const contractKeyPrefix = "contract:"

// CachedContractChecker layers a cross-run Redis cache under a contract-code
// lookup. Whether an address carries code is effectively immutable, so
// cached classifications are safe to reuse across runs; the analyzer still
// keeps its own per-run memo table on top. Cache errors degrade to a direct
// lookup and are never surfaced.
type CachedContractChecker struct {
	underlying ContractChecker
	redis      *redis.Client
	ttl        time.Duration
	logger     *logging.Logger
}

// NewCachedContractChecker wraps checker with a Redis-backed cache.
func NewCachedContractChecker(checker ContractChecker, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedContractChecker {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &CachedContractChecker{
		underlying: checker,
		redis:      client,
		ttl:        ttl,
		logger:     logger,
	}
}

// IsContract consults the cache first and falls back to the underlying
// checker, storing the result on a miss.
func (c *CachedContractChecker) IsContract(ctx context.Context, address string) (bool, error) {
	key := contractKeyPrefix + strings.ToLower(address)

	cached, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		return cached == "1", nil
	case err != redis.Nil:
		c.logger.WithError(err).Warn("Contract cache read failed, falling back to RPC")
	}

	isContract, err := c.underlying.IsContract(ctx, address)
	if err != nil {
		return false, err
	}

	value := "0"
	if isContract {
		value = "1"
	}
	if err := c.redis.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Contract cache write failed")
	}

	return isContract, nil
}
