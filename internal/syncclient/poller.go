package syncclient

import (
	"context"

	"golang.org/x/time/rate"
)

// Poller drives periodic reconciliation of a Client.
//
// The cadence is a rate limit rather than a ticker: each cycle waits
// for the limiter, so refreshes can never exceed the configured rate
// even if one returns instantly.
type Poller struct {
	client  *Client
	limiter *rate.Limiter
}

// NewPoller creates a poller refreshing the client at the given rate,
// e.g. rate.Every(5 * time.Second) for one refresh per five seconds.
func NewPoller(client *Client, limit rate.Limit) *Poller {
	return &Poller{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Run refreshes the client until the context is cancelled. Refresh
// failures are non-fatal; the next cycle retries naturally.
func (p *Poller) Run(ctx context.Context) {
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}

		if err := p.client.Refresh(ctx); err != nil {
			p.client.logger.Warn("refresh failed", "error", err)
		}
	}
}
