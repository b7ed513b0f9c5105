package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aashamedix/booking-platform/internal/events"
	"github.com/aashamedix/booking-platform/pkg/logging"
)

// Publisher turns committed status-change events into notification jobs
// and hands them to the queue. It implements events.DeliveryHandler, so the
// outbox deliverer drives it.
type Publisher struct {
	queue          queueClient
	logger         *logging.Logger
	webhookEnabled bool
}

// NewPublisher creates a publisher over the given queue.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("notify: queue required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, logger: logger}
}

// WithWebhookChannel adds the CRM webhook to every published job.
func (p *Publisher) WithWebhookChannel() *Publisher {
	p.webhookEnabled = true
	return p
}

// Handle converts one outbox entry into a queued notification job.
func (p *Publisher) Handle(ctx context.Context, entry events.OutboxEntry) error {
	var evt events.BookingStatusChangedV1
	if err := json.Unmarshal(entry.Payload, &evt); err != nil {
		return fmt.Errorf("notify: decode status-change event: %w", err)
	}

	job := JobFromEvent(evt)
	if p.webhookEnabled {
		job.Channels = append(job.Channels, ChannelWebhook)
	}

	body, err := encodeJob(job)
	if err != nil {
		return err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("notify: publish job: %w", err)
	}

	p.logger.Debug("notification job published",
		"booking_id", job.BookingID, "event", job.Event, "channels", len(job.Channels))
	return nil
}

// JobFromEvent renders templates and builds the fan-out job for an event.
// All patient channels are always requested; the dispatcher skips the ones
// the recipient cannot receive.
func JobFromEvent(evt events.BookingStatusChangedV1) Job {
	return Job{
		BookingID:       evt.BookingID,
		ReferenceNumber: evt.ReferenceNumber,
		Event:           evt.NewStatus,
		Channels:        []Channel{ChannelEmail, ChannelSMS, ChannelPush},
		Recipient: Recipient{
			Name:   evt.PatientName,
			Phone:  evt.PatientPhone,
			Email:  evt.PatientEmail,
			UserID: evt.PatientUserID,
		},
		Message: RenderMessage(evt),
		Payload: map[string]string{
			"booking_type": evt.BookingType,
			"old_status":   evt.OldStatus,
			"actor_id":     evt.ActorID,
		},
		CreatedAt: time.Now().UTC(),
	}
}

var _ events.DeliveryHandler = (*Publisher)(nil)
