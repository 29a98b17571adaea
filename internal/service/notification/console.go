package notification

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
)

var _ Notifier = (*ConsoleNotifier)(nil)

// ConsoleNotifier logs messages instead of delivering them. It is the
// fallback when no telegram token is configured, so the engine can run
// end to end in a dry environment.
type ConsoleNotifier struct {
	seq atomic.Int64
}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (n *ConsoleNotifier) Send(ctx context.Context, dest Destination, text string) (string, error) {
	id := n.seq.Add(1)
	slog.Info("notify", slog.String("dest", dest.Key()), slog.Int64("message_id", id), slog.String("text", text))
	return strconv.FormatInt(id, 10), nil
}

func (n *ConsoleNotifier) Delete(ctx context.Context, dest Destination, messageID string) error {
	slog.Debug("notify delete", slog.String("dest", dest.Key()), slog.String("message_id", messageID))
	return nil
}

func (n *ConsoleNotifier) Pin(ctx context.Context, dest Destination, messageID string) error {
	slog.Debug("notify pin", slog.String("dest", dest.Key()), slog.String("message_id", messageID))
	return nil
}
