package broadcast

import (
	"context"
	"encoding/json"

	"github.com/juju/errors"
	"github.com/nats-io/nats.go"
)

// NATSPublisher mirrors progress events to a NATS subject per user.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to connect to nats at %s", url)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Annotatef(err, "failed to marshal event for %s", subject)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return errors.Annotatef(err, "failed to publish to %s", subject)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
