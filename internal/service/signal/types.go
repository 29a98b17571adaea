// Package signal implements the lifecycle engine: the Scanner that turns
// market candidates into active signals and the Monitor that walks active
// signals to completion.
package signal

import (
	"context"
	"strconv"

	"github.com/quantline/signal-engine/internal/entity"
	"github.com/quantline/signal-engine/internal/service/notification"
	"github.com/quantline/signal-engine/internal/service/oracle"
	"github.com/quantline/signal-engine/internal/service/pricing"
)

// PriceService is the slice of the price aggregator the engine consumes.
type PriceService interface {
	FetchPrice(ctx context.Context, symbol string) (pricing.Quote, error)
}

// SentimentService supplies a one-line market-mood summary for a symbol.
// Implementations never fail; they degrade to a neutral reading.
type SentimentService interface {
	Headline(ctx context.Context, symbol string) string
}

// OracleService is the analysis boundary the scanner and monitor talk to.
type OracleService interface {
	Ready() bool
	Evaluate(ctx context.Context, req oracle.EvaluateRequest) (oracle.Evaluation, error)
	Commentary(ctx context.Context, req oracle.CommentaryRequest) (string, error)
}

// Universe lists the scannable symbols of one market.
type Universe interface {
	Symbols(ctx context.Context) ([]string, error)
}

// bindingDestination maps a stored binding to a notifier destination.
// Bindings are stored with string ids so provider-agnostic callers can
// create them; a malformed id disqualifies the binding.
func bindingDestination(b entity.GroupBinding) (notification.Destination, error) {
	groupID, err := strconv.ParseInt(b.GroupID, 10, 64)
	if err != nil {
		return notification.Destination{}, err
	}
	topicID := 0
	if b.TopicID != "" {
		topicID, err = strconv.Atoi(b.TopicID)
		if err != nil {
			return notification.Destination{}, err
		}
	}
	return notification.Destination{GroupID: groupID, TopicID: topicID}, nil
}
