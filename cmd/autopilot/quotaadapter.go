package main

import (
	"context"

	"github.com/haasonsaas/outreach-autopilot/internal/coordinator"
	"github.com/haasonsaas/outreach-autopilot/internal/quotastore"
)

// quotaAdapter bridges internal/quotastore.Store's ConsumeResult to
// coordinator.QuotaStore's mirrored ConsumeResult, so the coordinator
// package does not need to import quotastore directly.
type quotaAdapter struct {
	store *quotastore.Store
}

func newQuotaAdapter(store *quotastore.Store) *quotaAdapter {
	return &quotaAdapter{store: store}
}

func (a *quotaAdapter) TryConsume(ctx context.Context) (coordinator.ConsumeResult, error) {
	res, err := a.store.TryConsume(ctx)
	return coordinator.ConsumeResult{Allowed: res.Allowed, Counters: res.Counters}, err
}

func (a *quotaAdapter) Refund(ctx context.Context) error {
	return a.store.Refund(ctx)
}
