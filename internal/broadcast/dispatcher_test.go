package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tunnelpay/tunnelpay-backend/internal/notify"
	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

type scriptedNotifier struct {
	mu       sync.Mutex
	sent     []int64
	failEach int
	block    chan struct{}
}

func (s *scriptedNotifier) Send(ctx context.Context, recipientID int64, msg notify.Message) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.sent = append(s.sent, recipientID)
	attempt := len(s.sent)
	s.mu.Unlock()
	if s.failEach > 0 && attempt%s.failEach == 0 {
		return pkgerrors.New(pkgerrors.CodeDependency, "delivery failed")
	}
	return nil
}

func (s *scriptedNotifier) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func newTestDispatcher(t *testing.T, notifier notify.Notifier, pacing time.Duration) *Dispatcher {
	t.Helper()
	dispatcher, err := NewDispatcher(DispatcherParams{
		Notifier: notifier,
		Config:   config.BroadcastConfig{PacingDelay: pacing, ProgressInterval: 50},
		Logger:   logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel}),
	})
	if err != nil {
		t.Fatalf("building dispatcher: %v", err)
	}
	return dispatcher
}

func recipients(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

func TestBroadcastCountsFailuresWithoutStopping(t *testing.T) {
	notifier := &scriptedNotifier{failEach: 10}
	dispatcher := newTestDispatcher(t, notifier, 0)

	run, err := dispatcher.Start(context.Background(), Params{
		Message:    notify.Message{Text: "maintenance tonight"},
		Recipients: recipients(100),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast did not finish")
	}

	report := run.Progress()
	if report.Sent != 90 || report.Failed != 10 || report.Total != 100 {
		t.Fatalf("unexpected report %+v", report)
	}
	if !report.Done {
		t.Fatal("expected report to be marked done")
	}
	if notifier.attempts() != 100 {
		t.Fatalf("every recipient must be attempted, got %d", notifier.attempts())
	}
}

func TestBroadcastCancellationStopsBetweenSends(t *testing.T) {
	block := make(chan struct{})
	notifier := &scriptedNotifier{block: block}
	dispatcher := newTestDispatcher(t, notifier, 0)

	run, err := dispatcher.Start(context.Background(), Params{
		Message:    notify.Message{Text: "hello"},
		Recipients: recipients(1000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Let a handful of sends through, then cancel.
	for i := 0; i < 5; i++ {
		block <- struct{}{}
	}
	run.Cancel()
	close(block)

	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast did not stop after cancel")
	}

	report := run.Progress()
	if report.Sent+report.Failed >= 1000 {
		t.Fatalf("expected a partial run, got %+v", report)
	}
	if report.Total != 1000 {
		t.Fatalf("total must cover the full list, got %d", report.Total)
	}
	if !report.Done {
		t.Fatal("expected report to be marked done")
	}
}

func TestBroadcastRejectsConcurrentRuns(t *testing.T) {
	block := make(chan struct{})
	notifier := &scriptedNotifier{block: block}
	dispatcher := newTestDispatcher(t, notifier, 0)

	run, err := dispatcher.Start(context.Background(), Params{
		Message:    notify.Message{Text: "first"},
		Recipients: recipients(10),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = dispatcher.Start(context.Background(), Params{
		Message:    notify.Message{Text: "second"},
		Recipients: recipients(10),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	close(block)
	<-run.Done()

	// After the first run finishes a new one may start.
	second, err := dispatcher.Start(context.Background(), Params{
		Message:    notify.Message{Text: "second"},
		Recipients: recipients(1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-second.Done()
}

func TestBroadcastValidation(t *testing.T) {
	dispatcher := newTestDispatcher(t, &scriptedNotifier{}, 0)

	_, err := dispatcher.Start(context.Background(), Params{Recipients: recipients(5)})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty message, got %v", err)
	}

	_, err = dispatcher.Start(context.Background(), Params{Message: notify.Message{Text: "hi"}})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty recipients, got %v", err)
	}
}

func TestBroadcastPacingDelays(t *testing.T) {
	notifier := &scriptedNotifier{}
	dispatcher := newTestDispatcher(t, notifier, 5*time.Millisecond)

	start := time.Now()
	run, err := dispatcher.Start(context.Background(), Params{
		Message:    notify.Message{Text: "hi"},
		Recipients: recipients(10),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-run.Done()

	// 9 gaps of 5ms between 10 sends.
	if elapsed := time.Since(start); elapsed < 45*time.Millisecond {
		t.Fatalf("expected pacing between sends, finished in %s", elapsed)
	}
}
