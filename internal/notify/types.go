package notify

import "time"

// Channel is an independent delivery mechanism for patient notifications.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelPush    Channel = "push"
	ChannelWebhook Channel = "webhook"
)

// Outcome is the terminal result of one channel's delivery attempt(s).
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Recipient is who a job notifies and how each channel can reach them. A
// channel with no usable address is skipped, not failed.
type Recipient struct {
	Name   string
	Phone  string
	Email  string
	UserID string
}

// Message is the rendered content of a notification.
type Message struct {
	Subject string
	Body    string
	HTML    string
	SMS     string
}

// Job is one logical notification fanned out to N channels. Owned by the
// dispatcher for its lifetime; never persisted beyond the retry window.
type Job struct {
	BookingID       string            `json:"booking_id"`
	ReferenceNumber string            `json:"reference_number"`
	Event           string            `json:"event"`
	Channels        []Channel         `json:"channels"`
	Recipient       Recipient         `json:"recipient"`
	Message         Message           `json:"message"`
	Payload         map[string]string `json:"payload,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// IdempotencyKey derives the per-channel dedupe key passed to transports.
func (j Job) IdempotencyKey(ch Channel) string {
	return j.BookingID + ":" + j.Event + ":" + string(ch)
}

// DeliveryAttempt is the per-channel record of a dispatched job.
type DeliveryAttempt struct {
	BookingID   string
	Event       string
	Channel     Channel
	Outcome     Outcome
	Attempts    int
	LastError   string
	CompletedAt time.Time
}
