package cron

import (
	"context"
	"errors"
	"time"

	"github.com/tunnelpay/tunnelpay-backend/internal/activation"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

// SubscriptionExpiryJob clears the active flag on subscriptions whose end
// date passed. Reads treat such rows as expired either way; the sweep keeps
// the table honest for counting and reporting.
type SubscriptionExpiryJob struct {
	subs activation.Repository
	logg *logger.Logger
}

// NewSubscriptionExpiryJob builds the sweep job.
func NewSubscriptionExpiryJob(subs activation.Repository, logg *logger.Logger) (*SubscriptionExpiryJob, error) {
	if subs == nil {
		return nil, errors.New("subscriptions repo is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &SubscriptionExpiryJob{subs: subs, logg: logg}, nil
}

// Name implements Job.
func (j *SubscriptionExpiryJob) Name() string { return "subscription-expiry" }

// Run implements Job.
func (j *SubscriptionExpiryJob) Run(ctx context.Context) error {
	swept, err := j.subs.DeactivateExpired(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if swept > 0 {
		j.logg.Info(j.logg.WithField(ctx, "count", swept), "expired subscriptions deactivated")
	}
	return nil
}
