package mqtt

import (
	"github.com/sweeney/edge-sensors/internal/logic"
)

// FakePublisher records what would be sent to the broker.
// Readings, Topics and Payloads stay index-aligned.
type FakePublisher struct {
	Readings []logic.Reading
	Topics   []string // topic under DefaultTopic each reading would go to
	Payloads [][]byte

	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// Errors returned instead of recording.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool // returned by IsConnected
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the reading with its topic and payload.
func (f *FakePublisher) Publish(r logic.Reading) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(r)
	if err != nil {
		return err
	}
	f.Readings = append(f.Readings, r)
	f.Topics = append(f.Topics, ReadingTopic(DefaultTopic, r.Sensor))
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// ReadingsFor returns the recorded readings from one sensor, in order.
func (f *FakePublisher) ReadingsFor(s logic.Sensor) []logic.Reading {
	var out []logic.Reading
	for _, r := range f.Readings {
		if r.Sensor == s {
			out = append(out, r)
		}
	}
	return out
}

// PublishSystem records the system event and its payload.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset returns the fake to its initial state.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}
