package mqtt

import "github.com/sweeney/edge-sensors/internal/logic"

// NopPublisher discards everything. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(logic.Reading) error     { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }
