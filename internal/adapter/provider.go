// Package adapter implements the chain data provider boundary: RPC endpoint
// management, the block-scan transaction fetcher, and contract-code lookups.
package adapter

import (
	"fmt"
	"sync"
)

// DataProvider supplies RPC endpoint URLs and supports failing over to a
// secondary endpoint when the active one misbehaves.
type DataProvider interface {
	// GetPrimaryURL returns the primary RPC endpoint URL
	GetPrimaryURL() (string, error)

	// GetCurrentURL returns the currently active RPC endpoint URL
	GetCurrentURL() (string, error)

	// Failover switches to the next available endpoint.
	// Returns an error if no alternative endpoint is configured.
	Failover() error

	// Reset resets the provider to use the primary endpoint
	Reset()
}

// RPCProvider implements DataProvider over a primary and optional secondary URL.
type RPCProvider struct {
	mu sync.RWMutex

	primaryURL   string
	secondaryURL string
	currentURL   string
}

// NewRPCProvider creates a provider with a primary and optional secondary URL.
func NewRPCProvider(primaryURL, secondaryURL string) (*RPCProvider, error) {
	if primaryURL == "" {
		return nil, fmt.Errorf("primary URL cannot be empty")
	}

	return &RPCProvider{
		primaryURL:   primaryURL,
		secondaryURL: secondaryURL,
		currentURL:   primaryURL,
	}, nil
}

// GetPrimaryURL returns the primary RPC endpoint URL
func (p *RPCProvider) GetPrimaryURL() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.primaryURL == "" {
		return "", fmt.Errorf("primary URL not configured")
	}
	return p.primaryURL, nil
}

// GetCurrentURL returns the currently active RPC endpoint URL
func (p *RPCProvider) GetCurrentURL() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.currentURL == "" {
		return "", fmt.Errorf("no active URL configured")
	}
	return p.currentURL, nil
}

// Failover switches between the primary and secondary endpoints.
func (p *RPCProvider) Failover() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.currentURL == p.primaryURL {
		if p.secondaryURL == "" {
			return fmt.Errorf("no secondary provider configured")
		}
		p.currentURL = p.secondaryURL
		return nil
	}

	p.currentURL = p.primaryURL
	return nil
}

// Reset resets the provider to use the primary endpoint
func (p *RPCProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.currentURL = p.primaryURL
}
