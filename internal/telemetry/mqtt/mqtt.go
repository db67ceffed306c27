// Package mqtt implements a report.Observer that publishes each completed
// sweep as a retained MQTT message.
//
// The teacher's go.mod carries github.com/eclipse/paho.mqtt.golang as a
// direct dependency but never calls into it from any .go file in the
// repository; this sink gives that dependency the home the teacher's own
// tree never built for it. The publish-with-a-bounded-wait shape mirrors
// reporting.go's http.Client{Timeout: ...} pattern: both wrap a
// potentially slow external call in a hard deadline so one unreachable
// broker (or site) can't stall the reporting path indefinitely.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/gr-butler/ivtracer/internal/report"
)

// PublishTimeout bounds how long a single publish may block waiting for
// broker acknowledgement.
const PublishTimeout = 5 * time.Second

// Sink publishes each report to a fixed topic with QoS 1, retained, so a
// client subscribing after a sweep still sees the last result.
type Sink struct {
	client paho.Client
	topic  string
}

// NewSink connects to brokerURL (e.g. "tcp://localhost:1883") and returns
// a Sink publishing to topic.
func NewSink(brokerURL, clientID, topic string) (*Sink, error) {
	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(PublishTimeout).
		SetAutoReconnect(true)

	client := paho.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(PublishTimeout) && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connecting to %s: %w", brokerURL, token.Error())
	}

	return &Sink{client: client, topic: topic}, nil
}

// Observe satisfies report.Observer by publishing the report's line-
// oriented rendering (report.Lines) as the message payload, newline-
// joined exactly as the host protocol would have sent it.
func (s *Sink) Observe(r report.SweepReport) error {
	payload := joinLines(report.Lines(r))
	token := s.client.Publish(s.topic, 1, true, payload)
	if !token.WaitTimeout(PublishTimeout) {
		return fmt.Errorf("mqtt: publish to %s timed out", s.topic)
	}
	return token.Error()
}

// Close disconnects the underlying client, waiting up to 250ms to flush.
func (s *Sink) Close() {
	s.client.Disconnect(250)
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
