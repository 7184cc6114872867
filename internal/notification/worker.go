// Package notification delivers best-effort web push notices to students.
// Delivery runs on a worker pool off the request path; a failed or dropped
// notice never affects the transaction that triggered it.
package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shubhayu-dev/Sanrakshan/internal/model"
)

// Kind selects the notice template.
type Kind string

const (
	// KindStored is sent when a storage entry is created; it carries the code.
	KindStored Kind = "stored"
	// KindClaimed is sent when staff release the items.
	KindClaimed Kind = "claimed"
)

// Job identifies one notice to deliver.
type Job struct {
	EntryRef int64
	Kind     Kind
}

// Sender sends a single web push message.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the production Sender backed by the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans notification jobs out to a fixed set of workers.
type WorkerPool struct {
	size    int
	jobs    chan Job
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
	logger  *zap.Logger
}

// NewWorkerPool creates a pool of the given size.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size*4),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("notification worker started", zap.Int("worker", id))
	for {
		select {
		case job := <-wp.jobs:
			wp.deliver(ctx, job)
		case <-ctx.Done():
			wp.logger.Debug("notification worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch enqueues a job without blocking. When the queue is full the job
// is dropped; a lost notice is acceptable, a stalled request is not.
func (wp *WorkerPool) Dispatch(job Job) {
	select {
	case wp.jobs <- job:
	default:
		wp.logger.Warn("notification queue full, dropping job",
			zap.Int64("entry_ref", job.EntryRef), zap.String("kind", string(job.Kind)))
	}
}

// NotifyClaimed enqueues a claimed notice.
func (wp *WorkerPool) NotifyClaimed(entryRef int64) {
	wp.Dispatch(Job{EntryRef: entryRef, Kind: KindClaimed})
}

// NotifyStored enqueues a stored notice.
func (wp *WorkerPool) NotifyStored(entryRef int64) {
	wp.Dispatch(Job{EntryRef: entryRef, Kind: KindStored})
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

func (wp *WorkerPool) deliver(ctx context.Context, job Job) {
	var entry model.StorageEntry
	err := wp.db.WithContext(ctx).
		Preload("Student").
		First(&entry, job.EntryRef).Error
	if err != nil {
		wp.logger.Warn("failed to load entry for notification",
			zap.Int64("entry_ref", job.EntryRef), zap.Error(err))
		return
	}

	var subscriptions []model.PushSubscription
	err = wp.db.WithContext(ctx).
		Where("principal_id = ?", entry.Student.PrincipalID).
		Find(&subscriptions).Error
	if err != nil {
		wp.logger.Warn("failed to fetch subscriptions",
			zap.String("principal_id", entry.Student.PrincipalID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	message := wp.message(ctx, job.Kind, &entry)
	for _, sub := range subscriptions {
		wp.send(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) message(ctx context.Context, kind Kind, entry *model.StorageEntry) string {
	switch kind {
	case KindStored:
		var code model.UniqueCode
		err := wp.db.WithContext(ctx).Where("entry_ref = ?", entry.ID).First(&code).Error
		if err != nil {
			return "Your items are in storage. Your verification code is available in the app."
		}
		return fmt.Sprintf("Your items are in storage. Verification code: %s", code.Code)
	case KindClaimed:
		return "Your stored items have been claimed and released."
	default:
		return "Storage update for your items."
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("failed to send notification",
			zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Prune expired subscriptions.
	if resp.StatusCode == http.StatusGone {
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.logger.Warn("failed to delete expired subscription",
				zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
