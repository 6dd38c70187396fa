package eventstream

import "context"

// Publisher publishes learned-entry events to an event stream backend.
type Publisher interface {
	PublishEntry(ctx context.Context, event *EntryLearnedEvent) error
	Close() error
}
