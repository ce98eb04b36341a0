package broadcast

import "context"

// Publisher mirrors progress events to an external bus so other services
// can observe generation progress without holding an HTTP stream open.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
	Close() error
}

// NoopPublisher discards events. Used when no bus is configured.
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, subject string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
