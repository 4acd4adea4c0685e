package publish

import (
	"context"
	"sync"

	"github.com/goodtune/screentime/internal/usage"
)

// FakePublisher records published reports for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// Topics contains the topic of every published message.
	Topics []string

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	topic string
}

// NewFakePublisher creates a FakePublisher publishing under topic.
func NewFakePublisher(topic string) *FakePublisher {
	return &FakePublisher{topic: topic}
}

// Publish records the payload.
func (f *FakePublisher) Publish(_ context.Context, userID string, report *usage.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(userID, report)
	if err != nil {
		return err
	}
	f.Topics = append(f.Topics, Topic(f.topic, userID))
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// Close marks the publisher closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Count returns the number of published messages.
func (f *FakePublisher) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Payloads)
}
