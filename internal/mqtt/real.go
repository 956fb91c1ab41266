package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/edge-sensors/internal/logic"
)

// DefaultBufferSize is how many messages are held while disconnected.
const DefaultBufferSize = 256

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Topic      string // base topic
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	topic  string

	mu      sync.Mutex
	pending *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. A broker that
// is not reachable yet is not an error: the client keeps retrying in the
// background and messages are buffered meanwhile.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.Topic == "" {
		o.Topic = DefaultTopic
	}
	if o.ClientID == "" {
		o.ClientID = "edge-sensors"
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}

	p := &RealPublisher{
		topic:   o.Topic,
		pending: newRingBuffer(o.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(SystemTopic(o.Topic), string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// Publish sends a reading to <topic>/<sensor>.
func (p *RealPublisher) Publish(r logic.Reading) error {
	payload, err := FormatPayload(r)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.publish(pendingMsg{topic: ReadingTopic(p.topic, r.Sensor), payload: payload})
}

// PublishSystem sends a system lifecycle event to <topic>/system.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.publish(pendingMsg{topic: SystemTopic(p.topic), payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg pendingMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.pending.push(msg)
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// onConnect replays buffered messages. It must not wait on tokens.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	dropped := p.pending.dropped
	msgs := p.pending.drainAll()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	log.Printf("mqtt: connected, replaying %d buffered messages (%d dropped)", len(msgs), dropped)
	for _, m := range msgs {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
