package signal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

const neutralSentiment = "Neutral"

var _ SentimentService = (NeutralSentiment{})

// NeutralSentiment is the stand-in when no news source is configured.
type NeutralSentiment struct{}

func (NeutralSentiment) Headline(ctx context.Context, symbol string) string {
	return neutralSentiment
}

type sentimentEntry struct {
	text      string
	fetchedAt time.Time
}

var _ SentimentService = (*CryptoPanicSentiment)(nil)

// CryptoPanicSentiment summarizes recent news headlines for a coin. Any
// failure degrades to a neutral reading; the scanner never blocks on news.
type CryptoPanicSentiment struct {
	cli   *http.Client
	token string

	mu    sync.Mutex
	cache map[string]sentimentEntry
	ttl   time.Duration
	now   func() time.Time
}

type SentimentOption func(s *CryptoPanicSentiment)

func WithSentimentTTL(ttl time.Duration) SentimentOption {
	return func(s *CryptoPanicSentiment) {
		s.ttl = ttl
	}
}

func WithSentimentClock(now func() time.Time) SentimentOption {
	return func(s *CryptoPanicSentiment) {
		s.now = now
	}
}

func NewCryptoPanicSentiment(cli *http.Client, token string, opts ...SentimentOption) *CryptoPanicSentiment {
	s := &CryptoPanicSentiment{
		cli:   cli,
		token: token,
		cache: make(map[string]sentimentEntry),
		ttl:   30 * time.Minute,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CryptoPanicSentiment) Headline(ctx context.Context, symbol string) string {
	base, _, _ := strings.Cut(strings.ToUpper(symbol), "/")

	s.mu.Lock()
	if e, ok := s.cache[base]; ok && s.now().Sub(e.fetchedAt) < s.ttl {
		s.mu.Unlock()
		return e.text
	}
	s.mu.Unlock()

	text, err := s.fetch(ctx, base)
	if err != nil {
		slog.Debug("sentiment lookup failed", "symbol", base, "error", err)
		return neutralSentiment
	}

	s.mu.Lock()
	s.cache[base] = sentimentEntry{text: text, fetchedAt: s.now()}
	s.mu.Unlock()
	return text
}

func (s *CryptoPanicSentiment) fetch(ctx context.Context, base string) (string, error) {
	q := url.Values{}
	q.Set("auth_token", s.token)
	q.Set("currencies", base)
	q.Set("public", "true")
	q.Set("kind", "news")
	rawURL := "https://cryptopanic.com/api/v1/posts/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.cli.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d from cryptopanic", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	titles := lo.FilterMap(gjson.GetBytes(body, "results.#.title").Array(), func(r gjson.Result, _ int) (string, bool) {
		t := strings.TrimSpace(r.String())
		return t, t != ""
	})
	if len(titles) == 0 {
		return neutralSentiment, nil
	}
	return strings.Join(lo.Slice(titles, 0, 3), "; "), nil
}
