package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// queueClient is the transport the publisher and worker share. Backed by
// SQS in production and by an in-memory channel in dev and tests.
type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

func encodeJob(job Job) (string, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("notify: encode job: %w", err)
	}
	return string(body), nil
}

func decodeJob(body string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return Job{}, fmt.Errorf("notify: decode job: %w", err)
	}
	return job, nil
}
