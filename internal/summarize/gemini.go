package summarize

import (
	"context"
	stderrors "errors"
	"net/http"

	"google.golang.org/genai"

	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/errors"
)

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
	opts   Options
}

// NewGemini creates a Gemini backend. The API key is required.
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.NewConfigError(BackendGemini, "GEMINI_API_KEY is not set", errors.ErrAPIKeyRequired)
	}
	opts.defaults(constants.DefaultGeminiModel)

	client, err := NewGenAIClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, opts: opts}, nil
}

// NewGenAIClient creates a Gemini API client for opts. It is shared with the
// embedding backend.
func NewGenAIClient(ctx context.Context, opts Options) (*genai.Client, error) {
	config := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  opts.APIKey,
	}
	if opts.BaseURL != "" {
		config.HTTPOptions.BaseURL = opts.BaseURL
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, errors.NewConfigError(BackendGemini, "creating genai client", err)
	}
	return client, nil
}

// Name returns the backend name.
func (g *Gemini) Name() string { return BackendGemini }

// Generate sends one generateContent request.
func (g *Gemini) Generate(ctx context.Context, system, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(g.opts.Temperature),
		MaxOutputTokens:   int32(g.opts.MaxTokens),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model, genai.Text(prompt), config)
	if err != nil {
		return "", MapGenAIError(ctx, BackendGemini, 0, err)
	}
	return resp.Text(), nil
}

// MapGenAIError converts a genai failure to an UpstreamError or a
// RateLimitError.
func MapGenAIError(ctx context.Context, service string, id int64, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case stderrors.As(err, &apiErr):
		code = apiErr.Code
	case stderrors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	if code == http.StatusTooManyRequests {
		return errors.NewRateLimitError(service, id, 0)
	}
	return errors.NewUpstreamError(service, id, code, err)
}

var _ Generator = (*Gemini)(nil)
