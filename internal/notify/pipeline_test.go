package notify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aashamedix/booking-platform/internal/events"
)

// Exercises the full in-process path: outbox entry, deliverer poll,
// publisher, queue, worker, dispatcher.
func TestNotificationPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outbox := events.NewMemoryOutbox()
	queue := NewMemoryQueue(8)
	publisher := NewPublisher(queue, nil)

	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	log := NewMemoryDeliveryLog()
	dispatcher := NewDispatcher(email, sms, nil, nil,
		WithRetryPolicy(1, time.Millisecond),
		WithRecorder(log),
	)

	deliverer := events.NewDeliverer(outbox, publisher, nil).
		WithBatchSize(8).
		WithInterval(5 * time.Millisecond)
	go deliverer.Start(ctx)

	worker := NewWorker(queue, dispatcher, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	evt := events.BookingStatusChangedV1{
		EventID:         "evt-1",
		BookingID:       "b-1",
		ReferenceNumber: "BK-20260829-ABCDEFGH23",
		BookingType:     "test",
		OldStatus:       "paid",
		NewStatus:       "approved",
		ActorID:         "staff-a",
		PatientName:     "Sunil",
		PatientPhone:    "+919800000030",
		PatientEmail:    "sunil@example.com",
		OccurredAt:      time.Now().UTC(),
	}
	if _, err := outbox.Insert(ctx, "b-1:approved:2", "booking.status_changed.v1", evt); err != nil {
		t.Fatalf("insert: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		attempts := log.Attempts()
		if len(attempts) >= 3 {
			byChannel := outcomeByChannel(attempts)
			if byChannel[ChannelEmail].Outcome != OutcomeDelivered {
				t.Fatalf("email: expected delivered, got %s", byChannel[ChannelEmail].Outcome)
			}
			if byChannel[ChannelSMS].Outcome != OutcomeDelivered {
				t.Fatalf("sms: expected delivered, got %s", byChannel[ChannelSMS].Outcome)
			}
			if byChannel[ChannelPush].Outcome != OutcomeSkipped {
				t.Fatalf("push: expected skipped without user account, got %s", byChannel[ChannelPush].Outcome)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("pipeline did not deliver in time; %d attempts recorded", len(attempts))
		case <-time.After(10 * time.Millisecond):
		}
	}

	pending, err := outbox.FetchPending(ctx, 10)
	if err != nil {
		t.Fatalf("fetch pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected outbox entry marked delivered, %d pending", len(pending))
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

func TestPublisherAddsWebhookChannel(t *testing.T) {
	queue := NewMemoryQueue(1)
	publisher := NewPublisher(queue, nil).WithWebhookChannel()

	entry := events.OutboxEntry{
		Payload: []byte(`{"booking_id":"b-1","reference_number":"BK-1","booking_type":"test","new_status":"approved","patient_name":"Sunil"}`),
	}
	if err := publisher.Handle(context.Background(), entry); err != nil {
		t.Fatalf("handle: %v", err)
	}

	msgs, err := queue.Receive(context.Background(), 1, 0)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("receive: msgs=%d err=%v", len(msgs), err)
	}
	job, err := decodeJob(msgs[0].Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, ch := range job.Channels {
		if ch == ChannelWebhook {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected webhook channel in %v", job.Channels)
	}
}

func TestPublisherRejectsMalformedPayload(t *testing.T) {
	queue := NewMemoryQueue(1)
	publisher := NewPublisher(queue, nil)

	err := publisher.Handle(context.Background(), events.OutboxEntry{Payload: []byte("not json")})
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestWorkerDropsPoisonMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := NewMemoryQueue(2)
	if err := queue.Send(ctx, "not json"); err != nil {
		t.Fatalf("send poison: %v", err)
	}

	job := testJob()
	job.Channels = []Channel{ChannelEmail}
	body, err := encodeJob(job)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := queue.Send(ctx, body); err != nil {
		t.Fatalf("send job: %v", err)
	}

	email := &fakeEmailSender{}
	dispatcher := NewDispatcher(email, nil, nil, nil, WithRetryPolicy(1, time.Millisecond))
	worker := NewWorker(queue, dispatcher, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	deadline := time.After(5 * time.Second)
	for atomic.LoadInt32(&email.calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("worker never dispatched the valid job after the poison message")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}
