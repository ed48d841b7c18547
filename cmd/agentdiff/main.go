// Package main provides the agent-diff CLI: generate an on-chain behavior
// diff for a single address.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/agent-diff/internal/adapter"
	"github.com/agent-diff/internal/config"
	apperrors "github.com/agent-diff/internal/errors"
	"github.com/agent-diff/internal/logging"
	"github.com/agent-diff/internal/report"
	"github.com/agent-diff/internal/service"
)

func main() {
	if len(os.Args) < 3 || os.Args[1] != "check" {
		fmt.Fprintln(os.Stderr, "Usage: agentdiff check <address>")
		os.Exit(1)
	}
	address := os.Args[2]

	if !adapter.ValidateAddress(address) {
		fmt.Fprintln(os.Stderr, "Invalid address")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()

	diffService, cleanup, err := service.Bootstrap(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize pipeline")
		fmt.Fprintln(os.Stderr, "Unable to generate diff")
		os.Exit(1)
	}
	defer cleanup()

	diff, err := diffService.Check(context.Background(), address)
	if err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
		os.Exit(1)
	}

	fmt.Println(report.NewFormatter().Format(diff))
}

// userMessage maps pipeline error categories onto the CLI's fixed messages.
func userMessage(err error) string {
	switch {
	case apperrors.IsInvalidAddress(err):
		return "Invalid address"
	case apperrors.IsDataUnavailable(err):
		return "Data unavailable. Try again later."
	case apperrors.IsInsufficientData(err):
		return "Insufficient data for baseline"
	default:
		return "Unable to generate diff"
	}
}
