package mqtt

import "log"

// pendingMsg is a serialized message held for replay after reconnection.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO of messages published while
// disconnected. When full, the oldest message is overwritten.
// Not safe for concurrent use; caller must synchronize.
type ringBuffer struct {
	buf     []pendingMsg
	head    int // next write position
	count   int
	dropped int // messages overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{buf: make([]pendingMsg, capacity)}
}

func (r *ringBuffer) push(msg pendingMsg) {
	if r.count == len(r.buf) {
		if r.dropped == 0 {
			log.Printf("mqtt: offline buffer full (%d messages), dropping oldest", len(r.buf))
		}
		r.dropped++
	} else {
		r.count++
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % len(r.buf)
}

// drainAll returns buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []pendingMsg {
	if r.count == 0 {
		return nil
	}

	out := make([]pendingMsg, r.count)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := range out {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}

	clear(r.buf)
	r.count = 0
	r.head = 0
	r.dropped = 0
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
