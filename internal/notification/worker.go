package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"appliance-billing-backend/internal/metrics"
	"appliance-billing-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool sends "appliance available" notifications for released
// endpoint/appliance states.
type WorkerPool struct {
	size    int
	jobs    chan int64
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size*16),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	logger := log.With().Int("worker", id).Logger()
	logger.Debug().Msg("notification worker started")
	for {
		select {
		case stateID := <-wp.jobs:
			logger.Debug().Int64("state_id", stateID).Msg("processing notification job")
			wp.notifyState(ctx, stateID)
		case <-ctx.Done():
			logger.Debug().Msg("notification worker shutting down")
			return
		}
	}
}

// Dispatch queues a notification for a state that has just been released.
// It never blocks the caller; when the queue is full the job is dropped.
func (wp *WorkerPool) Dispatch(stateID int64) {
	select {
	case wp.jobs <- stateID:
	default:
		log.Warn().Int64("state_id", stateID).Msg("notification queue full; dropping job")
	}
}

type stateLabel struct {
	Name       string
	EndpointID int64
}

func (wp *WorkerPool) notifyState(ctx context.Context, stateID int64) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_state_mapping ssm ON ssm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("ssm.endpoint_appliance_state_id = ?", stateID).
		Find(&subscriptions).Error
	if err != nil {
		log.Error().Err(err).Int64("state_id", stateID).Msg("failed to fetch subscriptions")
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	message := fmt.Sprintf("Appliance slot %d is available", stateID)
	var label stateLabel
	if err := wp.db.WithContext(ctx).
		Table("endpoint_appliance_states").
		Select("appliances.name, endpoint_appliance_states.endpoint_id").
		Joins("JOIN appliances ON appliances.id = endpoint_appliance_states.appliance_id").
		Where("endpoint_appliance_states.id = ?", stateID).
		Take(&label).Error; err != nil {
		log.Warn().Err(err).Int64("state_id", stateID).Msg("failed to load appliance label")
	} else {
		message = fmt.Sprintf("%s on endpoint %d is available", label.Name, label.EndpointID)
	}

	log.Info().Int64("state_id", stateID).Int("subscribers", len(subscriptions)).Msg("sending availability notifications")
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		metrics.PushSentTotal.WithLabelValues(metrics.ResultFailure).Inc()
		log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to send notification")
		return
	}
	defer resp.Body.Close()
	metrics.PushSentTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	if resp.StatusCode == http.StatusGone {
		log.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired; deleting")
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to delete expired subscription")
		}
	}
}
