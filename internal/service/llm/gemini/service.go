package gemini

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/quantline/signal-engine/internal/service/llm"
)

type Service struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewService(client *genai.Client, opts ...Option) llm.Service {
	svc := &Service{
		client: client,
		model:  client.GenerativeModel("gemini-2.0-flash"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type Option func(service *Service)

func WithTemperature(temp float32) Option {
	return func(service *Service) {
		service.model.SetTemperature(temp)
	}
}

func WithModel(name string) Option {
	return func(service *Service) {
		service.model = service.client.GenerativeModel(name)
	}
}

// requestModel prepares a per-call copy of the model. Callers run
// concurrently with different system prompts, so the shared model must
// never be written to.
func (s *Service) requestModel(q llm.Question) genai.GenerativeModel {
	model := *s.model
	if q.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(q.System)},
		}
	}
	return model
}

func (s *Service) AskOnce(ctx context.Context, q llm.Question) (llm.Answer, error) {
	model := s.requestModel(q)
	resp, err := model.GenerateContent(ctx, genai.Text(q.Content))
	if err != nil {
		return llm.Answer{}, err
	}
	return llm.Answer{
		Content: parseResponse(resp),
	}, nil
}

func parseResponse(resp *genai.GenerateContentResponse) string {
	var res strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for i, part := range resp.Candidates[0].Content.Parts {
			if part == nil {
				continue
			}
			if text, ok := part.(genai.Text); ok {
				if i > 0 {
					res.WriteString("\n")
				}
				res.WriteString(string(text))
			}
		}
	}
	return res.String()
}
