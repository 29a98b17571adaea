package notification

import (
	"context"
	"fmt"
)

// Destination identifies a chat target. TopicID is zero for plain groups
// and the forum topic id otherwise.
type Destination struct {
	GroupID int64
	TopicID int
}

func (d Destination) Key() string {
	return fmt.Sprintf("%d:%d", d.GroupID, d.TopicID)
}

// Notifier delivers formatted signal updates. Send returns the provider
// message id so a later update can replace it.
type Notifier interface {
	Send(ctx context.Context, dest Destination, text string) (messageID string, err error)
	Delete(ctx context.Context, dest Destination, messageID string) error
	Pin(ctx context.Context, dest Destination, messageID string) error
}
