package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/aashamedix/booking-platform/internal/events"
)

const smsSignature = "AASHA MEDIX"

var bookingTypeLabels = map[string]string{
	"test":     "diagnostic test",
	"doctor":   "doctor consultation",
	"medicine": "medicine order",
}

// RenderMessage builds the per-channel content for a status-change event.
// Copy stays short for SMS; email gets the longer form plus a simple HTML
// rendering.
func RenderMessage(evt events.BookingStatusChangedV1) Message {
	label := bookingTypeLabels[evt.BookingType]
	if label == "" {
		label = "booking"
	}
	when := formatSchedule(evt.ScheduledAt)

	var subject, body, sms string
	switch evt.NewStatus {
	case "paid":
		subject = fmt.Sprintf("Payment received — %s", evt.ReferenceNumber)
		body = fmt.Sprintf("Dear %s,\n\nWe have received your payment for your %s (Ref: %s). Our staff will review and confirm your booking shortly.\n\n— %s", evt.PatientName, label, evt.ReferenceNumber, smsSignature)
		sms = fmt.Sprintf("%s: Payment received for your %s. Ref: %s. We'll confirm your booking soon.", smsSignature, label, evt.ReferenceNumber)
	case "approved":
		subject = fmt.Sprintf("Booking confirmed — %s", evt.ReferenceNumber)
		body = fmt.Sprintf("Dear %s,\n\nYour %s is confirmed%s.\nReference: %s\n\nSee you soon!\n\n— %s", evt.PatientName, label, when, evt.ReferenceNumber, smsSignature)
		sms = fmt.Sprintf("%s: Your %s is confirmed%s. Ref: %s. See you soon!", smsSignature, label, when, evt.ReferenceNumber)
	case "rejected":
		subject = fmt.Sprintf("Booking update — %s", evt.ReferenceNumber)
		body = fmt.Sprintf("Dear %s,\n\nYour %s (%s) could not be processed.\nReason: %s\n\nPlease contact us at 1800-AASHA-1 for alternatives.\n\n— %s", evt.PatientName, label, evt.ReferenceNumber, evt.Reason, smsSignature)
		sms = fmt.Sprintf("%s: Your %s (%s) could not be processed. Reason: %s. Please call 1800-AASHA-1 for alternatives.", smsSignature, label, evt.ReferenceNumber, evt.Reason)
	case "rescheduled":
		subject = fmt.Sprintf("Appointment rescheduled — %s", evt.ReferenceNumber)
		body = fmt.Sprintf("Dear %s,\n\nYour appointment has been rescheduled%s.\nReference: %s\n\nThank you for your patience!\n\n— %s", evt.PatientName, when, evt.ReferenceNumber, smsSignature)
		sms = fmt.Sprintf("%s: Your appointment has been rescheduled%s. Ref: %s. Thank you for your patience!", smsSignature, when, evt.ReferenceNumber)
	case "completed":
		subject = fmt.Sprintf("Thank you — %s", evt.ReferenceNumber)
		body = fmt.Sprintf("Dear %s,\n\nYour %s (Ref: %s) is complete. Thank you for choosing us; reports or follow-ups will reach you separately if applicable.\n\n— %s", evt.PatientName, label, evt.ReferenceNumber, smsSignature)
		sms = fmt.Sprintf("%s: Your %s (Ref: %s) is complete. Thank you for choosing us!", smsSignature, label, evt.ReferenceNumber)
	case "cancelled":
		subject = fmt.Sprintf("Booking cancelled — %s", evt.ReferenceNumber)
		body = fmt.Sprintf("Dear %s,\n\nYour %s (Ref: %s) has been cancelled. If this was not you, please call 1800-AASHA-1.\n\n— %s", evt.PatientName, label, evt.ReferenceNumber, smsSignature)
		sms = fmt.Sprintf("%s: Your %s (Ref: %s) has been cancelled. Questions? Call 1800-AASHA-1.", smsSignature, label, evt.ReferenceNumber)
	default:
		subject = fmt.Sprintf("Booking update — %s", evt.ReferenceNumber)
		body = fmt.Sprintf("Dear %s,\n\nYour %s (Ref: %s) status is now: %s.\n\n— %s", evt.PatientName, label, evt.ReferenceNumber, statusLabel(evt.NewStatus), smsSignature)
		sms = fmt.Sprintf("%s: Your %s (Ref: %s) status is now %s.", smsSignature, label, evt.ReferenceNumber, statusLabel(evt.NewStatus))
	}

	return Message{
		Subject: subject,
		Body:    body,
		HTML:    renderHTML(subject, body),
		SMS:     sms,
	}
}

func formatSchedule(t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmt.Sprintf(" for %s", t.Format("Monday, 2 January at 3:04 PM"))
}

func statusLabel(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}

func renderHTML(subject, body string) string {
	paragraphs := strings.Split(body, "\n\n")
	var b strings.Builder
	b.WriteString(`<div style="font-family: sans-serif; max-width: 600px;">`)
	fmt.Fprintf(&b, `<h2 style="color: #00A86B;">%s</h2>`, subject)
	for _, p := range paragraphs {
		fmt.Fprintf(&b, `<p>%s</p>`, strings.ReplaceAll(p, "\n", "<br>"))
	}
	b.WriteString(`</div>`)
	return b.String()
}
