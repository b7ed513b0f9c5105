package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aashamedix/booking-platform/internal/observability/metrics"
	"github.com/aashamedix/booking-platform/pkg/logging"
)

var dispatchTracer = otel.Tracer("aashamedix.internal.notify")

// Dispatcher fans one job out to its channels. Channels run concurrently
// and fail independently; a dead SMS provider never blocks email. Channel
// failures are recorded and counted but never escalated to the caller,
// since the booking transition that produced the job has already committed.
type Dispatcher struct {
	email   EmailSender
	sms     SMSSender
	inapp   *InAppStore
	webhook *WebhookSender

	maxAttempts int
	baseDelay   time.Duration
	logger      *logging.Logger
	metrics     *metrics.NotifyMetrics
	recorder    DeliveryRecorder
}

// DeliveryRecorder persists per-channel attempt records for observability.
type DeliveryRecorder interface {
	Record(ctx context.Context, attempt DeliveryAttempt) error
}

// DispatcherOption configures optional dispatcher behavior.
type DispatcherOption func(*Dispatcher)

// WithRetryPolicy overrides attempts and backoff base; tests shrink these.
func WithRetryPolicy(maxAttempts int, baseDelay time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if maxAttempts > 0 {
			d.maxAttempts = maxAttempts
		}
		if baseDelay > 0 {
			d.baseDelay = baseDelay
		}
	}
}

// WithMetrics attaches Prometheus counters.
func WithMetrics(m *metrics.NotifyMetrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithRecorder attaches a delivery-attempt recorder.
func WithRecorder(r DeliveryRecorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithWebhook attaches the CRM webhook channel.
func WithWebhook(w *WebhookSender) DispatcherOption {
	return func(d *Dispatcher) { d.webhook = w }
}

// NewDispatcher creates a dispatcher over the given channel transports.
// Nil transports disable the corresponding channel (attempts are skipped).
func NewDispatcher(email EmailSender, sms SMSSender, inapp *InAppStore, logger *logging.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	d := &Dispatcher{
		email:       email,
		sms:         sms,
		inapp:       inapp,
		maxAttempts: 3,
		baseDelay:   time.Second,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers the job on every requested channel and returns one
// attempt record per channel. It blocks until all channels reach a terminal
// outcome or ctx is cancelled; in-flight attempts are abandoned on
// cancellation, which is acceptable: notifications are best-effort.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) []DeliveryAttempt {
	ctx, span := dispatchTracer.Start(ctx, "notify.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.id", job.BookingID),
		attribute.String("notify.event", job.Event),
		attribute.Int("notify.channels", len(job.Channels)),
	)

	results := make([]DeliveryAttempt, len(job.Channels))
	var wg sync.WaitGroup
	for i, ch := range job.Channels {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()
			results[i] = d.deliverChannel(ctx, job, ch)
		}(i, ch)
	}
	wg.Wait()

	for _, attempt := range results {
		d.observe(ctx, attempt)
	}
	return results
}

func (d *Dispatcher) deliverChannel(ctx context.Context, job Job, ch Channel) DeliveryAttempt {
	attempt := DeliveryAttempt{
		BookingID: job.BookingID,
		Event:     job.Event,
		Channel:   ch,
	}

	send, reason := d.senderFor(job, ch)
	if send == nil {
		attempt.Outcome = OutcomeSkipped
		attempt.LastError = reason
		attempt.CompletedAt = time.Now().UTC()
		return attempt
	}

	var lastErr error
	for n := 1; n <= d.maxAttempts; n++ {
		attempt.Attempts = n
		lastErr = send(ctx)
		if lastErr == nil {
			attempt.Outcome = OutcomeDelivered
			attempt.CompletedAt = time.Now().UTC()
			return attempt
		}
		d.logger.Warn("notification attempt failed",
			"booking_id", job.BookingID,
			"event", job.Event,
			"channel", ch,
			"attempt", n,
			"error", lastErr,
		)
		if n == d.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			attempt.Outcome = OutcomeFailed
			attempt.LastError = ctx.Err().Error()
			attempt.CompletedAt = time.Now().UTC()
			return attempt
		case <-time.After(d.backoff(n)):
		}
	}

	attempt.Outcome = OutcomeFailed
	attempt.LastError = lastErr.Error()
	attempt.CompletedAt = time.Now().UTC()
	return attempt
}

// senderFor returns a closure delivering the job on one channel, or nil
// with a reason when the channel must be skipped.
func (d *Dispatcher) senderFor(job Job, ch Channel) (func(context.Context) error, string) {
	key := job.IdempotencyKey(ch)
	switch ch {
	case ChannelEmail:
		if d.email == nil {
			return nil, "email transport not configured"
		}
		if job.Recipient.Email == "" {
			return nil, "recipient has no email address"
		}
		return func(ctx context.Context) error {
			return d.email.Send(ctx, EmailMessage{
				To:             job.Recipient.Email,
				ToName:         job.Recipient.Name,
				Subject:        job.Message.Subject,
				Body:           job.Message.Body,
				HTML:           job.Message.HTML,
				IdempotencyKey: key,
			})
		}, ""
	case ChannelSMS:
		if d.sms == nil {
			return nil, "sms transport not configured"
		}
		if job.Recipient.Phone == "" {
			return nil, "recipient has no phone number"
		}
		body := job.Message.SMS
		if body == "" {
			body = job.Message.Body
		}
		return func(ctx context.Context) error {
			return d.sms.SendSMS(ctx, job.Recipient.Phone, body, key)
		}, ""
	case ChannelPush:
		if d.inapp == nil {
			return nil, "push store not configured"
		}
		if job.Recipient.UserID == "" {
			return nil, "recipient has no user account"
		}
		return func(ctx context.Context) error {
			return d.inapp.Push(ctx, job.Recipient.UserID, Notification{
				BookingID: job.BookingID,
				Event:     job.Event,
				Title:     job.Message.Subject,
				Body:      job.Message.Body,
			}, key)
		}, ""
	case ChannelWebhook:
		if d.webhook == nil {
			return nil, "webhook not configured"
		}
		return func(ctx context.Context) error {
			return d.webhook.Send(ctx, job, key)
		}, ""
	default:
		return nil, fmt.Sprintf("unknown channel %q", ch)
	}
}

// backoff grows 1s, 4s, 16s with the default base.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 4
	}
	return delay
}

func (d *Dispatcher) observe(ctx context.Context, attempt DeliveryAttempt) {
	switch attempt.Outcome {
	case OutcomeDelivered:
		d.logger.Info("notification delivered",
			"booking_id", attempt.BookingID, "event", attempt.Event,
			"channel", attempt.Channel, "attempts", attempt.Attempts)
	case OutcomeFailed:
		d.logger.Error("notification failed permanently",
			"booking_id", attempt.BookingID, "event", attempt.Event,
			"channel", attempt.Channel, "attempts", attempt.Attempts,
			"error", attempt.LastError)
	case OutcomeSkipped:
		d.logger.Debug("notification skipped",
			"booking_id", attempt.BookingID, "event", attempt.Event,
			"channel", attempt.Channel, "reason", attempt.LastError)
	}
	if d.metrics != nil {
		d.metrics.ObserveDelivery(string(attempt.Channel), string(attempt.Outcome))
	}
	if d.recorder != nil {
		if err := d.recorder.Record(ctx, attempt); err != nil {
			d.logger.Error("failed to record delivery attempt", "error", err)
		}
	}
}
