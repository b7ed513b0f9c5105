package booking

import (
	"time"

	"github.com/google/uuid"
)

// BookingType identifies which kind of service a booking is for.
type BookingType string

const (
	TypeTest     BookingType = "test"
	TypeDoctor   BookingType = "doctor"
	TypeMedicine BookingType = "medicine"
)

// ReferencePrefix returns the reference-number prefix for the type.
func (t BookingType) ReferencePrefix() string {
	switch t {
	case TypeDoctor:
		return "DR"
	case TypeMedicine:
		return "MED"
	default:
		return "BK"
	}
}

// Valid reports whether t is a known booking type.
func (t BookingType) Valid() bool {
	switch t {
	case TypeTest, TypeDoctor, TypeMedicine:
		return true
	}
	return false
}

// Details carries the type-specific payload of a booking. Exactly one
// concrete type exists per BookingType.
type Details interface {
	BookingType() BookingType
}

// TestItem is a single diagnostic test in a test booking.
type TestItem struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	AmountPaise int64  `json:"amount_paise"`
}

// TestDetails is the payload of a diagnostic-test booking.
type TestDetails struct {
	Items []TestItem `json:"items"`
}

func (TestDetails) BookingType() BookingType { return TypeTest }

// DoctorDetails is the payload of a doctor-consultation booking.
type DoctorDetails struct {
	DoctorName string `json:"doctor_name"`
	Specialty  string `json:"specialty,omitempty"`
	FeePaise   int64  `json:"fee_paise"`
}

func (DoctorDetails) BookingType() BookingType { return TypeDoctor }

// MedicineDetails is the payload of a medicine order. Total may be unknown
// until fulfillment, and a prescription attachment may stand in for an
// itemized list.
type MedicineDetails struct {
	Items           []string `json:"items,omitempty"`
	PrescriptionRef string   `json:"prescription_ref,omitempty"`
}

func (MedicineDetails) BookingType() BookingType { return TypeMedicine }

// PatientContact holds how to reach the patient. Email is optional; a
// channel without a usable address is skipped at dispatch time.
type PatientContact struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

// HistoryEntry is one append-only audit record of a status change.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	ActorID   string    `json:"actor_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Booking is the central entity tracked through the status lifecycle.
type Booking struct {
	ID              uuid.UUID
	ReferenceNumber string
	Type            BookingType
	Status          Status
	Patient         PatientContact
	Details         Details
	ScheduledAt     *time.Time
	TotalPaise      *int64
	Notes           string
	History         []HistoryEntry
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LastHistory returns the most recent history entry, or nil for a booking
// with no recorded transitions.
func (b *Booking) LastHistory() *HistoryEntry {
	if len(b.History) == 0 {
		return nil
	}
	return &b.History[len(b.History)-1]
}

// Filter narrows queue reads by type and/or status.
type Filter struct {
	Type     BookingType
	Statuses []Status
	Limit    int
}

// Matches reports whether b satisfies the filter.
func (f Filter) Matches(b *Booking) bool {
	if f.Type != "" && b.Type != f.Type {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if b.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
