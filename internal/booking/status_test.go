package booking

import "testing"

func TestTransitionGraphEdgesAreValidStatuses(t *testing.T) {
	for from, edges := range transitions {
		if !from.Valid() {
			t.Fatalf("source status %q not valid", from)
		}
		for _, to := range edges {
			if !to.Valid() {
				t.Fatalf("edge %s -> %s targets unknown status", from, to)
			}
		}
	}
}

func TestTerminalStatusesHaveNoOutgoingEdges(t *testing.T) {
	for _, s := range []Status{StatusRejected, StatusCompleted, StatusCancelled} {
		if !s.Terminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
		for _, target := range []Status{
			StatusPaymentPending, StatusPaid, StatusPendingApproval,
			StatusApproved, StatusRejected, StatusRescheduled, StatusCompleted, StatusCancelled,
		} {
			if CanTransition(s, target) {
				t.Fatalf("terminal status %s must not transition to %s", s, target)
			}
		}
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPaymentPending, StatusPaid, true},
		{StatusPaid, StatusApproved, true},
		{StatusPaid, StatusRejected, true},
		{StatusPendingApproval, StatusApproved, true},
		{StatusApproved, StatusCompleted, true},
		{StatusApproved, StatusRescheduled, true},
		{StatusRescheduled, StatusApproved, true},
		{StatusRescheduled, StatusCancelled, true},
		{StatusPaymentPending, StatusCompleted, false},
		{StatusPaid, StatusCompleted, false},
		{StatusRescheduled, StatusCompleted, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusApproved, StatusPaid, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	if Status("shipped").Valid() {
		t.Fatalf("unknown status must not be valid")
	}
	if !StatusPendingApproval.Valid() {
		t.Fatalf("pending_approval must be a known status")
	}
}

func TestInitialStatus(t *testing.T) {
	if got := InitialStatus(TypeMedicine); got != StatusPaid {
		t.Fatalf("medicine orders must start paid, got %s", got)
	}
	if got := InitialStatus(TypeTest); got != StatusPaymentPending {
		t.Fatalf("test bookings must start payment_pending, got %s", got)
	}
	if got := InitialStatus(TypeDoctor); got != StatusPaymentPending {
		t.Fatalf("doctor bookings must start payment_pending, got %s", got)
	}
}
