package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

const (
	// DrainSubject carries drain requests.
	DrainSubject = "f2dhis2.drain"
	// StreamName is the JetStream stream holding drain requests.
	StreamName = "F2DHIS2"
	// ConsumerName is the durable consumer shared by every instance.
	ConsumerName = "f2dhis2-drainer"
)

// JetStream is the part of nats.JetStreamContext the dispatcher uses.
type JetStream interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
	Subscribe(subj string, cb nats.MsgHandler, opts ...nats.SubOpt) (*nats.Subscription, error)
}

// DrainRequest is the message published on DrainSubject.
type DrainRequest struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// NATSDispatcher publishes drain requests to JetStream and, once started,
// consumes them with a durable consumer so exactly one instance drains per
// request.
type NATSDispatcher struct {
	js      JetStream
	drainer Drainer
	timeout time.Duration
	sub     *nats.Subscription
}

// NewNATSDispatcher creates a dispatcher. drainer may be nil for a
// publish-only instance.
func NewNATSDispatcher(js JetStream, drainer Drainer, timeout time.Duration) *NATSDispatcher {
	return &NATSDispatcher{js: js, drainer: drainer, timeout: timeout}
}

// EnsureStream creates the stream when it does not exist yet.
func (d *NATSDispatcher) EnsureStream() error {
	if _, err := d.js.StreamInfo(StreamName); err == nil {
		return nil
	}
	log.Printf("Stream %s not found, attempting to create it for subject %s...", StreamName, DrainSubject)
	_, err := d.js.AddStream(&nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{DrainSubject},
		Storage:   nats.FileStorage,
		Retention: nats.WorkQueuePolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create NATS stream %s: %w", StreamName, err)
	}
	log.Printf("Successfully created NATS stream %s", StreamName)
	return nil
}

// Trigger publishes a drain request.
func (d *NATSDispatcher) Trigger(_ context.Context, reason string) error {
	data, err := json.Marshal(DrainRequest{Reason: reason, RequestedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode drain request: %w", err)
	}
	if _, err := d.js.Publish(DrainSubject, data); err != nil {
		return fmt.Errorf("failed to publish drain request: %w", err)
	}
	return nil
}

// Start subscribes the durable consumer.
func (d *NATSDispatcher) Start(ctx context.Context) error {
	if d.drainer == nil {
		return errors.New("nats dispatcher has no drainer")
	}
	if err := d.EnsureStream(); err != nil {
		return err
	}

	ackWait := d.timeout + 30*time.Second
	sub, err := d.js.Subscribe(DrainSubject, func(msg *nats.Msg) {
		err := d.handle(ctx, msg.Data)
		switch {
		case errors.Is(err, errMalformedRequest):
			if termErr := msg.Term(); termErr != nil {
				log.Printf("Error terminating malformed drain request: %v", termErr)
			}
		case err != nil:
			if nakErr := msg.Nak(); nakErr != nil {
				log.Printf("Error Nacking drain request: %v", nakErr)
			}
		default:
			if ackErr := msg.Ack(); ackErr != nil {
				log.Printf("Error Acknowledging drain request: %v", ackErr)
			}
		}
	}, nats.Durable(ConsumerName), nats.AckWait(ackWait), nats.ManualAck(), nats.MaxAckPending(1))
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", DrainSubject, err)
	}
	d.sub = sub
	log.Printf("Consuming drain requests from subject '%s', stream '%s', consumer '%s'", DrainSubject, StreamName, ConsumerName)
	return nil
}

// Stop removes the subscription interest; the durable consumer survives.
func (d *NATSDispatcher) Stop() error {
	if d.sub == nil {
		return nil
	}
	return d.sub.Drain()
}

var errMalformedRequest = errors.New("malformed drain request")

func (d *NATSDispatcher) handle(ctx context.Context, data []byte) error {
	var req DrainRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("Error unmarshalling drain request: %v. Message will be terminated.", err)
		return errMalformedRequest
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	n, err := d.drainer.Drain(ctx)
	if err != nil {
		log.Printf("Drain (%s, requested %s) failed: %v", req.Reason, req.RequestedAt.Format(time.RFC3339), err)
		return err
	}
	log.Printf("Drain (%s) finished: %d items processed", req.Reason, n)
	return nil
}
