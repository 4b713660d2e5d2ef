package notification

import (
	"context"
	"sync"
	"time"

	"credit-acceleration/internal/domain/apperr"
	"credit-acceleration/internal/domain/loan"
	domain "credit-acceleration/internal/domain/notification"
	"credit-acceleration/internal/domain/uow"
	"credit-acceleration/internal/infrastructure/metrics"
	"credit-acceleration/pkg/clock"
	"credit-acceleration/pkg/id"

	"go.uber.org/zap"
)

// Sink receives committed notifications. Publish errors are logged, never
// returned to the operation that produced the notification.
type Sink interface {
	Name() string
	Publish(ctx context.Context, n domain.Notification) error
}

type Config struct {
	// QueueSize bounds batches waiting for fan-out (default: 1024)
	QueueSize int
	// MaxWait is how long Publish blocks on a full queue before dropping (default: 10ms)
	MaxWait time.Duration
	// SinkTimeout bounds a single sink call (default: 2s)
	SinkTimeout time.Duration
}

// Dispatcher numbers notifications inside the aggregate transaction and fans
// them out after commit. A single worker drains the queue so batches leave in
// the order they were committed, which keeps each loan's sequence ordered.
type Dispatcher struct {
	uow     uow.UnitOfWork
	sinks   []Sink
	clock   clock.Clock
	log     *zap.Logger
	metrics metrics.Collector
	cfg     Config

	queue     chan []domain.Notification
	done      chan struct{}
	closeOnce sync.Once
}

func NewDispatcher(u uow.UnitOfWork, sinks []Sink, clk clock.Clock, log *zap.Logger, m metrics.Collector, cfg Config) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 10 * time.Millisecond
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		uow:     u,
		sinks:   sinks,
		clock:   clk,
		log:     log.Named("notifications"),
		metrics: metrics.OrNoOp(m),
		cfg:     cfg,
		queue:   make(chan []domain.Notification, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	go d.worker()
	return d
}

// Record stores d as the loan's next notification. It must run inside the
// loan's transaction; the caller persists the bumped l.NotificationSeq.
func (d *Dispatcher) Record(ctx context.Context, r domain.Repository, l *loan.Loan, draft domain.Draft) (*domain.Notification, error) {
	if draft.Priority == "" {
		draft.Priority = domain.PriorityMedium
	}
	l.NotificationSeq++
	n := &domain.Notification{
		NotificationID: id.NewID32(),
		LoanID:         l.ID,
		LoanPublicID:   l.LoanID,
		Seq:            l.NotificationSeq,
		Type:           draft.Type,
		Title:          draft.Title,
		Message:        draft.Message,
		Priority:       draft.Priority,
		ActionRequired: draft.ActionRequired,
		CreatedAt:      d.clock.Now(),
	}
	if err := r.Create(ctx, n); err != nil {
		l.NotificationSeq--
		return nil, err
	}
	return n, nil
}

// Publish enqueues a committed batch. It never blocks longer than MaxWait.
func (d *Dispatcher) Publish(batch []domain.Notification) {
	if len(batch) == 0 || len(d.sinks) == 0 {
		return
	}
	select {
	case d.queue <- batch:
		return
	default:
	}
	t := time.NewTimer(d.cfg.MaxWait)
	defer t.Stop()
	select {
	case d.queue <- batch:
	case <-t.C:
		d.log.Warn("notification queue full, dropping batch",
			zap.String("loan_id", batch[0].LoanPublicID),
			zap.Uint64("first_seq", batch[0].Seq),
			zap.Int("size", len(batch)),
		)
	}
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for batch := range d.queue {
		for _, n := range batch {
			for _, s := range d.sinks {
				ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SinkTimeout)
				err := s.Publish(ctx, n)
				cancel()
				d.metrics.RecordPublish(s.Name(), err == nil)
				if err != nil {
					d.log.Warn("publish notification",
						zap.String("sink", s.Name()),
						zap.String("loan_id", n.LoanPublicID),
						zap.Uint64("seq", n.Seq),
						zap.Error(err),
					)
				}
			}
		}
	}
}

// Close drains queued batches and stops the worker. Publish must not be
// called after Close.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.queue) })
	<-d.done
}

// MarkNotificationRead stamps read_at once; later calls return the first stamp.
func (d *Dispatcher) MarkNotificationRead(ctx context.Context, notificationID string) (*domain.Notification, error) {
	if notificationID == "" {
		return nil, apperr.Validation("notification_id is required")
	}
	r := d.uow.Repos()
	if _, err := r.Notifications.MarkRead(ctx, notificationID, d.clock.Now()); err != nil {
		return nil, err
	}
	return r.Notifications.GetByNotificationID(ctx, notificationID)
}

func (d *Dispatcher) ListNotifications(ctx context.Context, loanID string, unreadOnly bool) ([]domain.Notification, error) {
	r := d.uow.Repos()
	l, err := r.Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return r.Notifications.ListByLoanID(ctx, l.ID, unreadOnly)
}
