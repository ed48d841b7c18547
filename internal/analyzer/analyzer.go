// Package analyzer turns raw transaction and log records into an aggregate
// behavioral summary: contract counterparties, decoded ERC-20 approvals,
// per-day transaction volume, and gas usage.
package analyzer

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/agent-diff/internal/types"
)

// erc20ApprovalTopic is the keccak256 signature of Approval(address,address,uint256).
const erc20ApprovalTopic = "0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"

// Gas usage pattern thresholds (average gas used per transaction).
const (
	gasPatternLowMax    = 100_000
	gasPatternMediumMax = 500_000
)

// ContractChecker reports whether an address has contract code. One lookup
// is an RPC-equivalent call; implementations may cache across runs.
type ContractChecker interface {
	IsContract(ctx context.Context, address string) (bool, error)
}

// Analyzer classifies counterparties and aggregates transaction activity.
type Analyzer struct {
	checker ContractChecker
}

// New creates an analyzer using the given contract-code lookup.
func New(checker ContractChecker) *Analyzer {
	return &Analyzer{checker: checker}
}

// Analyze consumes raw transactions and produces the aggregate summary.
// Contract-code lookups are memoized per call, so each distinct recipient
// costs at most one checker call per run.
func (a *Analyzer) Analyze(ctx context.Context, transactions []types.RawTransaction) (*types.AnalyzedTransactions, error) {
	var contractInteractions []string
	seenContracts := make(map[string]bool)
	approvalEvents := []types.ApprovalEvent{}
	dailyVolume := make(map[string]int)

	// Per-run memo table for contract-code lookups. Fresh on every call.
	contractCache := make(map[string]bool)

	gasSum := new(big.Int)
	gasCount := 0

	for _, tx := range transactions {
		if tx.To != "" {
			toAddress := strings.ToLower(tx.To)
			isContract, cached := contractCache[toAddress]
			if !cached {
				var err error
				isContract, err = a.checker.IsContract(ctx, toAddress)
				if err != nil {
					return nil, fmt.Errorf("contract lookup for %s: %w", toAddress, err)
				}
				contractCache[toAddress] = isContract
			}
			if isContract && !seenContracts[toAddress] {
				seenContracts[toAddress] = true
				contractInteractions = append(contractInteractions, toAddress)
			}
		}

		approvalEvents = append(approvalEvents, parseApprovalEvents(tx.Logs, tx.Hash, tx.Timestamp)...)

		day := time.Unix(tx.Timestamp, 0).UTC().Format("2006-01-02")
		dailyVolume[day]++

		gasUsed, ok := new(big.Int).SetString(tx.GasUsed, 10)
		if !ok {
			return nil, fmt.Errorf("invalid gas used %q in transaction %s", tx.GasUsed, tx.Hash)
		}
		gasSum.Add(gasSum, gasUsed)
		gasCount++
	}

	averageGasUsed := new(big.Int)
	if gasCount > 0 {
		averageGasUsed.Div(gasSum, big.NewInt(int64(gasCount)))
	}

	if contractInteractions == nil {
		contractInteractions = []string{}
	}

	return &types.AnalyzedTransactions{
		ContractInteractions:   contractInteractions,
		ApprovalEvents:         approvalEvents,
		DailyTransactionVolume: dailyVolume,
		GasUsage: types.GasUsage{
			AverageGasUsed: averageGasUsed.String(),
			Pattern:        gasUsagePattern(averageGasUsed),
		},
	}, nil
}

// parseApprovalEvents decodes ERC-20 Approval events from a transaction's
// logs. A log qualifies iff it has exactly 3 topics and topic[0] is the
// Approval signature. Malformed logs are skipped individually; a bad log
// never fails the transaction or the run.
func parseApprovalEvents(logs []types.RawLog, transactionHash string, timestamp int64) []types.ApprovalEvent {
	var approvals []types.ApprovalEvent

	for _, log := range logs {
		if len(log.Topics) != 3 {
			continue
		}
		if strings.ToLower(log.Topics[0]) != erc20ApprovalTopic {
			continue
		}
		if !strings.HasPrefix(log.Data, "0x") {
			continue
		}

		owner, ok := topicToAddress(log.Topics[1])
		if !ok {
			continue
		}
		spender, ok := topicToAddress(log.Topics[2])
		if !ok {
			continue
		}
		value, ok := parseHexAmount(log.Data)
		if !ok {
			continue
		}

		approvals = append(approvals, types.ApprovalEvent{
			TokenAddress:    strings.ToLower(log.Address),
			Owner:           owner,
			Spender:         spender,
			Value:           value,
			TransactionHash: transactionHash,
			Timestamp:       timestamp,
		})
	}

	return approvals
}

// topicToAddress extracts the address from a 32-byte left-padded log topic.
// The topic must be exactly 66 characters including the 0x prefix.
func topicToAddress(topic string) (string, bool) {
	normalized := strings.ToLower(topic)
	if !strings.HasPrefix(normalized, "0x") || len(normalized) != 66 {
		return "", false
	}
	return "0x" + normalized[26:], true
}

// parseHexAmount parses a 0x-prefixed hex quantity into a decimal string.
func parseHexAmount(data string) (string, bool) {
	hexDigits := strings.TrimPrefix(data, "0x")
	if hexDigits == "" {
		return "", false
	}
	value, ok := new(big.Int).SetString(hexDigits, 16)
	if !ok {
		return "", false
	}
	return value.String(), true
}

// gasUsagePattern classifies an average gas figure into low/medium/high.
func gasUsagePattern(averageGasUsed *big.Int) types.GasUsagePattern {
	if averageGasUsed.Cmp(big.NewInt(gasPatternLowMax)) <= 0 {
		return types.GasPatternLow
	}
	if averageGasUsed.Cmp(big.NewInt(gasPatternMediumMax)) <= 0 {
		return types.GasPatternMedium
	}
	return types.GasPatternHigh
}
