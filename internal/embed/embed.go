// Package embed attaches a semantic vector to each game record.
package embed

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/agentstation/gamesync/internal/storefront"
	"github.com/agentstation/gamesync/internal/summarize"
	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/enhancer"
	"github.com/agentstation/gamesync/pkg/errors"
)

// VectorField is the field the vector is stored under.
const VectorField = "vector_embedding"

const service = "gemini-embed"

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BuildText returns the text embedded for a game record: its title, up to
// five genres, up to ten categories and the long description.
func BuildText(rec *catalog.Record) string {
	name := rec.String("name")
	if name == "" {
		name = "Sin Nombre"
	}
	return fmt.Sprintf("Title: %s. Genres: %s. Tags: %s. Details: %s",
		name,
		strings.Join(head(rec.Strings("genres"), 5), ", "),
		strings.Join(head(rec.Strings("categories"), 10), ", "),
		storefront.CleanHTML(rec.String("detailed_description")),
	)
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Enhancer copies each input record and appends its vector.
type Enhancer struct {
	embedder Embedder
}

// NewEnhancer creates an Enhancer.
func NewEnhancer(embedder Embedder) *Enhancer {
	return &Enhancer{embedder: embedder}
}

// Name returns the enhancer name
func (e *Enhancer) Name() string { return "embed" }

// CanEnhance requires an input record.
func (e *Enhancer) CanEnhance(task enhancer.Task) bool { return task.Input != nil }

// Enhance embeds the record text. The output keeps every input field, with
// the description cleaned of markup and the vector last.
func (e *Enhancer) Enhance(ctx context.Context, task enhancer.Task) (*catalog.Record, error) {
	vec, err := e.embedder.Embed(ctx, BuildText(task.Input))
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, &errors.UpstreamError{Service: service, ID: task.ID, Message: "empty embedding", Err: errors.ErrUnavailable}
	}

	out := task.Input.Clone()
	if out.Has("detailed_description") {
		if err := out.Set("detailed_description", storefront.CleanHTML(out.String("detailed_description"))); err != nil {
			return nil, err
		}
	}
	out.Delete(VectorField)
	if err := out.Set(VectorField, vec); err != nil {
		return nil, err
	}
	return out, nil
}

// Gemini embeds text with the Gemini embedding API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini embedder. The API key is required.
func NewGemini(ctx context.Context, opts summarize.Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.NewConfigError(service, "GEMINI_API_KEY is not set", errors.ErrAPIKeyRequired)
	}
	if opts.Model == "" {
		opts.Model = constants.DefaultEmbeddingModel
	}
	client, err := summarize.NewGenAIClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: opts.Model}, nil
}

// Embed returns the embedding of text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), nil)
	if err != nil {
		return nil, summarize.MapGenAIError(ctx, service, 0, err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, nil
	}
	return resp.Embeddings[0].Values, nil
}

var (
	_ enhancer.Enhancer = (*Enhancer)(nil)
	_ Embedder          = (*Gemini)(nil)
)
