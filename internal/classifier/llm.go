package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var _ Classifier = &LLM{}

const DefaultSystemPrompt = `You are a strict but fair meeting facilitator.
You receive a single sentence that was spoken during a meeting.
Decide whether the sentence derails the meeting, meaning it is off-topic, digresses or wastes the participants' time.
Respond with a JSON object only, of the form {"cleave": <true|false>, "reason": "<short justification in the language of the sentence>"}.
The reason must be empty when cleave is false.`

type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// LLM classifies sentences using an OpenAI-compatible chat completion API.
type LLM struct {
	ServerURL    string
	APIKey       string
	Model        string
	Temperature  float64
	SystemPrompt string
	HTTPClient   HTTPDoer

	mutex     sync.Mutex
	llm       *openai.LLM
	idCounter atomic.Int64
}

type llmVerdict struct {
	Cleave *bool  `json:"cleave"`
	Reason string `json:"reason"`
}

func (c *LLM) Classify(ctx context.Context, sentence string) (Result, error) {
	llm, err := c.client()
	if err != nil {
		return Result{}, err
	}

	systemPrompt := c.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, sentence),
	}

	resp, err := llm.GenerateContent(ctx, messages,
		llms.WithJSONMode(),
		llms.WithTemperature(c.Temperature),
	)
	if err != nil {
		return Result{}, classifyLLMError(err)
	}

	if len(resp.Choices) == 0 {
		return Result{}, &DecodeError{errors.New("chat completion returned no choices")}
	}

	content := strings.TrimSpace(resp.Choices[0].Content)

	slog.Debug(fmt.Sprintf("llm verdict for %q: %s", sentence, content))

	var verdict llmVerdict

	err = json.Unmarshal([]byte(stripCodeFence(content)), &verdict)
	if err != nil {
		return Result{}, &DecodeError{fmt.Errorf("unmarshal llm verdict: %w", err)}
	}

	if verdict.Cleave == nil {
		return Result{}, &DecodeError{fmt.Errorf("llm verdict is missing the cleave field: %s", content)}
	}

	return Result{
		ID:       c.idCounter.Add(1),
		Sentence: sentence,
		Cleave:   *verdict.Cleave,
		Reason:   verdict.Reason,
	}, nil
}

func (c *LLM) client() (*openai.LLM, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.llm != nil {
		return c.llm, nil
	}

	apiKey := c.APIKey
	if apiKey == "" {
		// OpenAI-compatible servers like LocalAI accept any token.
		apiKey = "none"
	}

	opts := []openai.Option{
		openai.WithBaseURL(strings.TrimSuffix(c.ServerURL, "/") + "/v1"),
		openai.WithToken(apiKey),
		openai.WithModel(c.Model),
	}

	if c.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(c.HTTPClient))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	c.llm = llm

	return llm, nil
}

func classifyLLMError(err error) error {
	var urlErr *url.Error

	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &NetworkError{fmt.Errorf("chat completion: %w", err)}
	}

	return &ServerError{Err: fmt.Errorf("chat completion: %w", err)}
}

// stripCodeFence removes a markdown code block some models wrap JSON responses in.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}
