package events

import "time"

// BookingStatusChangedV1 is emitted once per committed lifecycle transition.
// It carries everything the notification channels need so dispatch does not
// have to read the booking back.
type BookingStatusChangedV1 struct {
	EventID         string     `json:"event_id"`
	BookingID       string     `json:"booking_id"`
	ReferenceNumber string     `json:"reference_number"`
	BookingType     string     `json:"booking_type"`
	OldStatus       string     `json:"old_status"`
	NewStatus       string     `json:"new_status"`
	ActorID         string     `json:"actor_id"`
	Reason          string     `json:"reason,omitempty"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	PatientName     string     `json:"patient_name"`
	PatientPhone    string     `json:"patient_phone"`
	PatientEmail    string     `json:"patient_email,omitempty"`
	PatientUserID   string     `json:"patient_user_id,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}
