package mqttsink

import (
	"encoding/binary"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// fakeToken completes immediately.
type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

// fakeClient records published messages. The embedded interface covers the
// methods the sink never calls.
type fakeClient struct {
	mqtt.Client
	connected bool
	topics    []string
	payloads  [][]byte
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, append([]byte(nil), payload.([]byte)...))
	return &fakeToken{}
}

func rgbaFrame(w, h int, fill byte) []byte {
	p := make([]byte, w*h*4)
	for i := range p {
		p[i] = fill
	}
	return p
}

func TestSinkPublishesFrames(t *testing.T) {
	client := &fakeClient{connected: true}
	s := New(client, "display/stream")

	if err := s.Present(rgbaFrame(4, 2, 9), 4, 2, 16); err != nil {
		t.Fatal(err)
	}
	if err := s.Present(rgbaFrame(4, 2, 7), 4, 2, 16); err != nil {
		t.Fatal(err)
	}

	if len(client.payloads) != 2 {
		t.Fatalf("published %d messages, want 2", len(client.payloads))
	}
	if client.topics[0] != "display/stream" {
		t.Errorf("topic = %q", client.topics[0])
	}

	msg := client.payloads[0]
	if len(msg) != headerSize+4*2*4 {
		t.Fatalf("message length = %d", len(msg))
	}
	if seq := binary.BigEndian.Uint32(msg[0:4]); seq != 0 {
		t.Errorf("first frame seq = %d", seq)
	}
	if w := binary.BigEndian.Uint32(msg[4:8]); w != 4 {
		t.Errorf("width = %d", w)
	}
	if h := binary.BigEndian.Uint32(msg[8:12]); h != 2 {
		t.Errorf("height = %d", h)
	}
	if msg[headerSize] != 9 {
		t.Errorf("pixel byte = %d, want 9", msg[headerSize])
	}

	// Sequence numbers advance per frame.
	if seq := binary.BigEndian.Uint32(client.payloads[1][0:4]); seq != 1 {
		t.Errorf("second frame seq = %d", seq)
	}
}

func TestSinkScalesToDeviceResolution(t *testing.T) {
	client := &fakeClient{connected: true}
	s := New(client, "display/stream", WithScale(2, 2))

	if err := s.Present(rgbaFrame(8, 8, 0x40), 8, 8, 32); err != nil {
		t.Fatal(err)
	}
	msg := client.payloads[0]
	if len(msg) != headerSize+2*2*4 {
		t.Fatalf("message length = %d, want scaled payload", len(msg))
	}
	if w := binary.BigEndian.Uint32(msg[4:8]); w != 2 {
		t.Errorf("width = %d, want 2", w)
	}
}

func TestSinkRequiresConnection(t *testing.T) {
	s := New(&fakeClient{connected: false}, "display/stream")
	if err := s.Present(rgbaFrame(2, 2, 0), 2, 2, 8); err == nil {
		t.Fatal("Present succeeded without a connection")
	}
}
