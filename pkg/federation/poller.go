package federation

import (
	"context"
	"time"
)

// Refresher is the part of Gateway the Poller drives.
type Refresher interface {
	RefreshSchema(ctx context.Context, force bool) (*FederatedSchema, error)
}

// Poller periodically recomposes the supergraph. Failed refreshes are left to the Gateway
// to report; the previously published schema keeps being served.
type Poller struct {
	refresher Refresher
	interval  time.Duration
}

func NewPoller(refresher Refresher, interval time.Duration) *Poller {
	return &Poller{
		refresher: refresher,
		interval:  interval,
	}
}

// Run refreshes once and then on every tick until ctx is done.
// With a zero interval it refreshes once and waits for ctx.
func (p *Poller) Run(ctx context.Context) {
	p.refresh(ctx)

	if p.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, _ = p.refresher.RefreshSchema(ctx, false)
}
