package messaging

import "context"

// Broker publishes application events to interested consumers. Publishing
// is best-effort: callers log failures and move on, they never block a
// user-facing operation on the broker.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}

// NoopBroker is used when event publishing is disabled.
type NoopBroker struct{}

func (NoopBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	return nil
}

func (NoopBroker) Close() error { return nil }
