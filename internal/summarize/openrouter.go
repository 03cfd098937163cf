package summarize

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/errors"
)

// Options configures a text-generation backend.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

func (o *Options) defaults(model string) {
	if o.Model == "" {
		o.Model = model
	}
	if o.Temperature == 0 {
		o.Temperature = constants.SummaryTemperature
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = constants.SummaryMaxTokens
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
}

// OpenRouter calls an OpenAI-compatible chat completions API.
type OpenRouter struct {
	http *resty.Client
	opts Options
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenRouter creates an OpenRouter backend. The API key is required.
func NewOpenRouter(opts Options) (*OpenRouter, error) {
	if opts.APIKey == "" {
		return nil, errors.NewConfigError(BackendOpenRouter, "OPENROUTER_API_KEY is not set", errors.ErrAPIKeyRequired)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = constants.DefaultOpenRouterURL
	}
	opts.defaults(constants.DefaultSummaryModel)

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetAuthToken(opts.APIKey).
		SetHeader("Content-Type", "application/json")

	return &OpenRouter{http: client, opts: opts}, nil
}

// Name returns the backend name.
func (o *OpenRouter) Name() string { return BackendOpenRouter }

// Generate sends one chat completion request.
func (o *OpenRouter) Generate(ctx context.Context, system, prompt string) (string, error) {
	var out chatResponse
	resp, err := o.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: o.opts.Model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: prompt},
			},
			Temperature: o.opts.Temperature,
			MaxTokens:   o.opts.MaxTokens,
		}).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.NewUpstreamError(BackendOpenRouter, 0, 0, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return "", errors.NewRateLimitError(BackendOpenRouter, 0, retryAfter(resp.Header().Get("Retry-After")))
	default:
		return "", errors.NewUpstreamError(BackendOpenRouter, 0, resp.StatusCode(), nil)
	}

	// errors may also arrive inside a 200 body
	if out.Error != nil {
		if out.Error.Code == http.StatusTooManyRequests {
			return "", errors.NewRateLimitError(BackendOpenRouter, 0, 0)
		}
		return "", &errors.UpstreamError{
			Service:    BackendOpenRouter,
			StatusCode: out.Error.Code,
			Message:    out.Error.Message,
		}
	}
	if len(out.Choices) == 0 {
		return "", errors.NewUpstreamError(BackendOpenRouter, 0, resp.StatusCode(), errors.New("response has no choices"))
	}
	return out.Choices[0].Message.Content, nil
}

func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

var _ Generator = (*OpenRouter)(nil)
