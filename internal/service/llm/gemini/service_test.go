package gemini

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/quantline/signal-engine/internal/service/llm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cli, err := genai.NewClient(context.Background(), option.WithAPIKey("test-key"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })
	return NewService(cli).(*Service)
}

func TestRequestModelLeavesSharedModelUntouched(t *testing.T) {
	svc := newTestService(t)

	m := svc.requestModel(llm.Question{System: "you are a market analyst", Content: "BTC"})
	require.NotNil(t, m.SystemInstruction)
	assert.Equal(t, genai.Text("you are a market analyst"), m.SystemInstruction.Parts[0])
	assert.Nil(t, svc.model.SystemInstruction)

	m = svc.requestModel(llm.Question{Content: "BTC"})
	assert.Nil(t, m.SystemInstruction)
}

func TestRequestModelConcurrentPromptsDoNotBleed(t *testing.T) {
	svc := newTestService(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			system := fmt.Sprintf("instruction-%d", i)
			m := svc.requestModel(llm.Question{System: system, Content: "x"})
			if assert.NotNil(t, m.SystemInstruction) {
				assert.Equal(t, genai.Text(system), m.SystemInstruction.Parts[0])
			}
		}(i)
	}
	wg.Wait()

	assert.Nil(t, svc.model.SystemInstruction)
}
