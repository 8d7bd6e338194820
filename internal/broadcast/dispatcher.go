package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tunnelpay/tunnelpay-backend/internal/notify"
	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
	"github.com/tunnelpay/tunnelpay-backend/pkg/metrics"
)

// Report is a snapshot of delivery counters. Total counts the full recipient
// list; Sent and Failed cover only attempted recipients.
type Report struct {
	Sent   int  `json:"sent"`
	Failed int  `json:"failed"`
	Total  int  `json:"total"`
	Done   bool `json:"done"`
}

// Run is one in-flight broadcast.
type Run struct {
	ID uuid.UUID

	mu     sync.Mutex
	report Report

	cancel context.CancelFunc
	done   chan struct{}
}

// Progress returns the current counter snapshot.
func (r *Run) Progress() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report
}

// Cancel stops the run between sends. Already attempted sends stand.
func (r *Run) Cancel() {
	r.cancel()
}

// Done closes once the run finishes or is cancelled.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

func (r *Run) record(sent bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sent {
		r.report.Sent++
	} else {
		r.report.Failed++
	}
}

func (r *Run) finish() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Done = true
	return r.report
}

// DispatcherParams groups dependencies for the broadcast dispatcher.
type DispatcherParams struct {
	Notifier notify.Notifier
	Config   config.BroadcastConfig
	Metrics  *metrics.BroadcastMetrics
	Logger   *logger.Logger
}

// Dispatcher runs admin broadcasts sequentially in the background, pacing
// sends so the chat platform's rate limits are respected.
type Dispatcher struct {
	notifier notify.Notifier
	cfg      config.BroadcastConfig
	metrics  *metrics.BroadcastMetrics
	logg     *logger.Logger

	mu      sync.Mutex
	current *Run
}

// NewDispatcher builds a broadcast dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Config.PacingDelay < 0 {
		params.Config.PacingDelay = 0
	}
	if params.Config.ProgressInterval <= 0 {
		params.Config.ProgressInterval = 50
	}
	return &Dispatcher{
		notifier: params.Notifier,
		cfg:      params.Config,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Params describes one broadcast request.
type Params struct {
	Message    notify.Message
	Recipients []int64
}

// Start launches the broadcast in a background goroutine. Only one run may be
// in flight at a time.
func (d *Dispatcher) Start(ctx context.Context, params Params) (*Run, error) {
	if params.Message.Text == "" && params.Message.Document == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "broadcast message is empty")
	}
	if len(params.Recipients) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "broadcast has no recipients")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil {
		select {
		case <-d.current.done:
		default:
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a broadcast is already running")
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	run := &Run{
		ID:     uuid.New(),
		report: Report{Total: len(params.Recipients)},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	d.current = run

	go d.deliver(runCtx, run, params)
	return run, nil
}

// Current returns the latest run, which may already be finished.
func (d *Dispatcher) Current() *Run {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func (d *Dispatcher) deliver(ctx context.Context, run *Run, params Params) {
	defer close(run.done)

	ctx = d.logg.WithField(ctx, "broadcast_id", run.ID.String())
	d.logg.Info(d.logg.WithField(ctx, "recipients", len(params.Recipients)), "broadcast started")

	outcome := "completed"
	for i, recipient := range params.Recipients {
		if ctx.Err() != nil {
			outcome = "cancelled"
			break
		}

		if err := d.notifier.Send(ctx, recipient, params.Message); err != nil {
			run.record(false)
			if d.metrics != nil {
				d.metrics.IncFailed()
			}
			d.logg.Warn(d.logg.WithField(ctx, "recipient", recipient), "broadcast send failed")
		} else {
			run.record(true)
			if d.metrics != nil {
				d.metrics.IncSent()
			}
		}

		attempted := i + 1
		if attempted%d.cfg.ProgressInterval == 0 {
			report := run.Progress()
			d.logg.Info(d.logg.WithFields(ctx, map[string]any{
				"sent":   report.Sent,
				"failed": report.Failed,
				"total":  report.Total,
			}), "broadcast progress")
		}

		if attempted < len(params.Recipients) && d.cfg.PacingDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d.cfg.PacingDelay):
			}
		}
	}

	report := run.finish()
	if d.metrics != nil {
		d.metrics.IncRun(outcome)
	}
	d.logg.Info(d.logg.WithFields(ctx, map[string]any{
		"sent":    report.Sent,
		"failed":  report.Failed,
		"total":   report.Total,
		"outcome": outcome,
	}), "broadcast finished")
}
