// Package oracle wraps the free-text analysis model behind a typed
// boundary: it builds prompts, caches responses, and extracts the bias
// keyword plus optional Entry/TP/SL levels the engine acts on.
package oracle

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quantline/signal-engine/internal/entity"
	"github.com/quantline/signal-engine/internal/service/indicator"
	"github.com/quantline/signal-engine/internal/service/llm"
	"github.com/shopspring/decimal"
)

type EvaluateRequest struct {
	Symbol    string
	Market    entity.Market
	Price     decimal.Decimal
	Sentiment string
	Snapshot  indicator.Snapshot
}

type Evaluation struct {
	Text       string
	Bias       entity.Bias
	Neutral    bool
	Entry      *string
	TakeProfit *string
	StopLoss   *string
}

type CommentaryRequest struct {
	Symbol string
	Status string
	Price  decimal.Decimal
	Entry  decimal.Decimal
}

type cachedResponse struct {
	text      string
	fetchedAt time.Time
}

// Oracle is safe for concurrent use. A nil llm service is tolerated: the
// engine keeps running and Evaluate reports the oracle as unavailable.
type Oracle struct {
	svc llm.Service

	mu     sync.Mutex
	cache  map[string]cachedResponse
	ttl    time.Duration
	now    func() time.Time
	warned bool
}

type Option func(o *Oracle)

func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Oracle) {
		o.ttl = ttl
	}
}

func WithOracleClock(now func() time.Time) Option {
	return func(o *Oracle) {
		o.now = now
	}
}

func New(svc llm.Service, opts ...Option) *Oracle {
	o := &Oracle{
		svc:   svc,
		cache: make(map[string]cachedResponse),
		ttl:   10 * time.Minute,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ready reports whether an oracle backend is configured at all.
func (o *Oracle) Ready() bool {
	return o.svc != nil
}

func (o *Oracle) Evaluate(ctx context.Context, req EvaluateRequest) (Evaluation, error) {
	if !o.Ready() {
		o.warnUnconfigured()
		return Evaluation{}, fmt.Errorf("oracle: no model credentials configured")
	}

	user := scanUserPrompt(req.Symbol, req.Market, req.Price.String(), req.Sentiment, req.Snapshot)
	text, err := o.ask(ctx, scanSystemPrompt, user)
	if err != nil {
		return Evaluation{}, err
	}

	eval := Evaluation{Text: text}
	bias, ok := ParseBias(text)
	if !ok {
		eval.Neutral = true
		return eval, nil
	}
	eval.Bias = bias
	eval.Entry, eval.TakeProfit, eval.StopLoss = ExtractLevels(text)
	return eval, nil
}

// Commentary produces the short enrichment blurb for monitor updates.
func (o *Oracle) Commentary(ctx context.Context, req CommentaryRequest) (string, error) {
	if !o.Ready() {
		return "", fmt.Errorf("oracle: no model credentials configured")
	}
	user := updateUserPrompt(req.Symbol, req.Status, req.Price.String(), req.Entry.String())
	return o.ask(ctx, updateSystemPrompt, user)
}

func (o *Oracle) ask(ctx context.Context, system, user string) (string, error) {
	key := responseKey(system, user)

	o.mu.Lock()
	if c, ok := o.cache[key]; ok && o.now().Sub(c.fetchedAt) < o.ttl {
		o.mu.Unlock()
		return c.text, nil
	}
	o.mu.Unlock()

	answer, err := o.svc.AskOnce(ctx, llm.Question{System: system, Content: user})
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	o.cache[key] = cachedResponse{text: answer.Content, fetchedAt: o.now()}
	o.mu.Unlock()
	return answer.Content, nil
}

func (o *Oracle) warnUnconfigured() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.warned {
		return
	}
	o.warned = true
	slog.Warn("analysis oracle has no credentials configured, no signals will be produced")
}

func responseKey(system, user string) string {
	h := sha1.Sum([]byte(system + "\x00" + user))
	return hex.EncodeToString(h[:])
}
