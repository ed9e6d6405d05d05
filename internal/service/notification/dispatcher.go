package notification

import (
	"context"
	"time"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/pkg/logger"
	"github.com/slotwise/booking-api/pkg/messaging"
)

// Channel is the broker channel the worker subscribes to.
const Channel = "notifications"

// Dispatcher hands a notification message off for asynchronous delivery.
// Dispatch returns once the message is accepted, not once it is delivered.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *model.NotificationMessage) error
}

// BrokerDispatcher publishes messages for an out-of-process worker.
type BrokerDispatcher struct {
	broker  messaging.Broker
	channel string
}

func NewBrokerDispatcher(broker messaging.Broker) *BrokerDispatcher {
	return &BrokerDispatcher{broker: broker, channel: Channel}
}

func (d *BrokerDispatcher) Dispatch(ctx context.Context, msg *model.NotificationMessage) error {
	// The broker handles serialization.
	return d.broker.Publish(ctx, d.channel, msg)
}

// DirectDispatcher delivers in-process on a background goroutine for
// deployments without a broker. The request context is deliberately not
// reused: delivery outlives the request.
type DirectDispatcher struct {
	svc     *Service
	logger  *logger.Logger
	timeout time.Duration
}

func NewDirectDispatcher(svc *Service, log *logger.Logger) *DirectDispatcher {
	return &DirectDispatcher{svc: svc, logger: log, timeout: 60 * time.Second}
}

func (d *DirectDispatcher) Dispatch(_ context.Context, msg *model.NotificationMessage) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.svc.Process(ctx, msg); err != nil {
			d.logger.Error(err, "notification delivery failed",
				"notification_id", msg.ID.String(),
				"type", string(msg.Type),
			)
		}
	}()
	return nil
}
