package cron

import (
	"context"
	"errors"
	"time"

	"github.com/tunnelpay/tunnelpay-backend/internal/payments"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

// IntentExpiryJob sweeps pending payment intents past their deadline.
// Expiry is also applied lazily on verification; the sweep keeps intents
// nobody polls again from lingering as pending forever.
type IntentExpiryJob struct {
	intents payments.Repository
	logg    *logger.Logger
}

// NewIntentExpiryJob builds the sweep job.
func NewIntentExpiryJob(intents payments.Repository, logg *logger.Logger) (*IntentExpiryJob, error) {
	if intents == nil {
		return nil, errors.New("intents repo is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &IntentExpiryJob{intents: intents, logg: logg}, nil
}

// Name implements Job.
func (j *IntentExpiryJob) Name() string { return "intent-expiry" }

// Run implements Job.
func (j *IntentExpiryJob) Run(ctx context.Context) error {
	swept, err := j.intents.ExpireStale(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if swept > 0 {
		j.logg.Info(j.logg.WithField(ctx, "count", swept), "stale intents expired")
	}
	return nil
}
