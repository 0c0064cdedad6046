package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fcl-miniapp/internal/infrastructure/metrics"
	"github.com/fcl-miniapp/internal/pkg/id"
)

// DefaultTimeout bounds a single outbound send when none is configured.
const DefaultTimeout = 10 * time.Second

// Sender delivers a text message to a chat user.
type Sender interface {
	Send(ctx context.Context, recipientID int64, text string) error
}

type recorder interface {
	IncrementNotification(result string)
}

type noopRecorder struct{}

func (noopRecorder) IncrementNotification(string) {}

// Notifier dispatches confirmation messages in the background. Failures are
// logged and counted, never retried and never returned to the caller.
type Notifier struct {
	sender  Sender
	timeout time.Duration
	logger  *slog.Logger
	metrics recorder
	wg      sync.WaitGroup
}

func NewNotifier(sender Sender, timeout time.Duration, logger *slog.Logger, rec recorder) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if rec == nil {
		rec = noopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sender: sender, timeout: timeout, logger: logger, metrics: rec}
}

// Notify schedules delivery of text to recipientID and returns immediately.
func (n *Notifier) Notify(recipientID int64, text string) {
	dispatchID := id.New()
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.dispatch(dispatchID, recipientID, text)
	}()
}

// Wait blocks until all scheduled deliveries have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) dispatch(dispatchID string, recipientID int64, text string) {
	log := n.logger.With("dispatch_id", dispatchID, "recipient_id", recipientID)
	defer func() {
		if r := recover(); r != nil {
			n.metrics.IncrementNotification(metrics.ResultFailed)
			log.Error("notification sender panicked", "panic", r)
		}
	}()

	// Detached from the request: the response has already been written.
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.sender.Send(ctx, recipientID, text); err != nil {
		n.metrics.IncrementNotification(metrics.ResultFailed)
		log.Warn("notification not delivered", "err", err)
		return
	}
	n.metrics.IncrementNotification(metrics.ResultSent)
	log.Info("notification delivered")
}

// LogSender writes messages to the logger instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, recipientID int64, text string) error {
	s.logger.Info("notification", "recipient_id", recipientID, "text", text)
	return nil
}
