package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StatusPatch is the mutation applied by a conditional update. The history
// append is atomic with the status change from the caller's perspective.
type StatusPatch struct {
	Target      Status
	ActorID     string
	Reason      string
	ScheduledAt *time.Time
}

// Store is the durable record of bookings. ConditionalUpdate is the single
// serialization point of the subsystem: it applies the patch only if the
// stored status still equals expected, returning *ConflictError with the
// actual status otherwise.
type Store interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByReference(ctx context.Context, ref string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, error)
	ConditionalUpdate(ctx context.Context, id uuid.UUID, expected Status, patch StatusPatch) (*Booking, error)
}

// DecodeDetails decodes a details payload according to the booking type.
func DecodeDetails(t BookingType, raw []byte) (Details, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch t {
	case TypeTest:
		var d TestDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("booking: decode test details: %w", err)
		}
		return d, nil
	case TypeDoctor:
		var d DoctorDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("booking: decode doctor details: %w", err)
		}
		return d, nil
	case TypeMedicine:
		var d MedicineDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("booking: decode medicine details: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("booking: unknown booking type %q", t)
	}
}

func EncodeDetails(d Details) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("booking: encode details: %w", err)
	}
	return data, nil
}
