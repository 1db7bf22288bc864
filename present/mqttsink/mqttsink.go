// Package mqttsink provides a presenter that streams frames to an MQTT
// broker as binary messages, suitable for driving a remote display such as
// an LED matrix.
//
// Each message is a 12-byte big-endian header (frame counter, width,
// height as uint32) followed by the RGBA pixel bytes, downscaled to the
// device resolution when one is configured.
package mqttsink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	xdraw "golang.org/x/image/draw"
)

// ErrPublishTimeout is returned when the broker does not acknowledge a
// frame within the publish timeout.
var ErrPublishTimeout = errors.New("mqttsink: publish timed out")

const headerSize = 12

// Sink publishes presented frames to a single MQTT topic.
//
// Sink is not safe for concurrent use; the pipeline presents frames from a
// single goroutine.
type Sink struct {
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration

	outW   int
	outH   int
	scaler xdraw.Scaler
	dst    *image.RGBA
	seq    uint32
}

// Option configures a Sink.
type Option func(*Sink)

// WithQOS sets the MQTT quality-of-service level (default 0: a dropped
// frame is cheaper than a late one).
func WithQOS(qos byte) Option {
	return func(s *Sink) { s.qos = qos }
}

// WithPublishTimeout bounds how long Present waits for the broker
// (default one second).
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithScale downscales every frame to the device resolution before
// publishing.
func WithScale(width, height int) Option {
	return func(s *Sink) {
		if width > 0 && height > 0 {
			s.outW = width
			s.outH = height
		}
	}
}

// New creates a sink publishing to topic on an already connected client.
func New(client mqtt.Client, topic string, opts ...Option) *Sink {
	s := &Sink{
		client:  client,
		topic:   topic,
		timeout: time.Second,
		scaler:  xdraw.ApproxBiLinear,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Present encodes the frame and publishes it.
func (s *Sink) Present(pixels []byte, width, height, stride int) error {
	if !s.client.IsConnected() {
		return errors.New("mqttsink: client not connected")
	}

	outW, outH := width, height
	if s.outW > 0 && (s.outW != width || s.outH != height) {
		src := &image.RGBA{Pix: pixels, Stride: stride, Rect: image.Rect(0, 0, width, height)}
		if s.dst == nil || s.dst.Rect.Dx() != s.outW || s.dst.Rect.Dy() != s.outH {
			s.dst = image.NewRGBA(image.Rect(0, 0, s.outW, s.outH))
		}
		s.scaler.Scale(s.dst, s.dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
		pixels = s.dst.Pix
		outW, outH = s.outW, s.outH
	}

	// A fresh buffer per frame: the client may still reference the
	// message after Publish returns.
	msg := make([]byte, headerSize+len(pixels))
	binary.BigEndian.PutUint32(msg[0:4], s.seq)
	binary.BigEndian.PutUint32(msg[4:8], uint32(outW))
	binary.BigEndian.PutUint32(msg[8:12], uint32(outH))
	copy(msg[headerSize:], pixels)
	s.seq++

	token := s.client.Publish(s.topic, s.qos, false, msg)
	if !token.WaitTimeout(s.timeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttsink: publish: %w", err)
	}
	return nil
}
