// Package summarize generates the short Spanish catalog summaries used by
// semantic search. Two text-generation backends are supported: an
// OpenAI-compatible chat completions API (OpenRouter) and Google Gemini.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/enhancer"
	"github.com/agentstation/gamesync/pkg/errors"
)

// Backend names accepted by New.
const (
	BackendOpenRouter = "openrouter"
	BackendGemini     = "gemini"
)

// SystemPrompt is the system message sent with every request.
const SystemPrompt = "Eres un asistente de resumen de datos."

// Generator produces text for a prompt.
type Generator interface {
	// Name identifies the backend in logs and errors.
	Name() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// BuildPrompt returns the summary prompt for one game.
func BuildPrompt(name, description string) string {
	var b strings.Builder
	b.WriteString("Actúa como un experto en catalogación de videojuegos.\n")
	b.WriteString("Tu tarea es generar un resumen técnico y denso en ESPAÑOL (Castellano) para ser usado en un motor de búsqueda semántico.\n\n")
	b.WriteString("INPUT:\n")
	fmt.Fprintf(&b, "- Juego: %s\n", name)
	fmt.Fprintf(&b, "- Texto original: %s\n\n", description)
	b.WriteString("INSTRUCCIONES DE SALIDA:\n")
	b.WriteString("1. Escribe un párrafo de máximo 3 o 4 líneas.\n")
	b.WriteString("2. Céntrate OBLIGATORIAMENTE en: Género, Ambientación, Mecánicas principales y Tono.\n")
	b.WriteString("3. Usa palabras clave específicas.\n")
	b.WriteString("4. NO uses frases de marketing ni premios. Ve al grano.\n")
	b.WriteString("5. Traduce todo al español si el original está en otro idioma.\n")
	b.WriteString("6. Si detectas que es un paquete de mejora o DLC, indícalo claramente al inicio del resumen.\n")
	b.WriteString("7. Si detectas que es un juego para adultos, indícalo claramente al final del resumen.\n\n")
	b.WriteString("RESUMEN:\n")
	return b.String()
}

// Document is one line of the summaries store.
type Document struct {
	SteamID int64  `json:"steam_id"`
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// Enhancer turns a description record into a summary record.
type Enhancer struct {
	gen              Generator
	nameField        string
	descriptionField string
}

// NewEnhancer creates an Enhancer reading name and detailed_description
// from each input record.
func NewEnhancer(gen Generator) *Enhancer {
	return &Enhancer{gen: gen, nameField: "name", descriptionField: "detailed_description"}
}

// Name returns the enhancer name
func (e *Enhancer) Name() string { return "summarize:" + e.gen.Name() }

// CanEnhance requires an input record with a name and a description.
func (e *Enhancer) CanEnhance(task enhancer.Task) bool {
	if task.Input == nil {
		return false
	}
	return strings.TrimSpace(task.Input.String(e.nameField)) != "" &&
		strings.TrimSpace(task.Input.String(e.descriptionField)) != ""
}

// Enhance asks the generator for a summary. An empty answer is treated as
// no data for the id.
func (e *Enhancer) Enhance(ctx context.Context, task enhancer.Task) (*catalog.Record, error) {
	name := strings.TrimSpace(task.Input.String(e.nameField))
	desc := strings.TrimSpace(task.Input.String(e.descriptionField))

	text, err := e.gen.Generate(ctx, SystemPrompt, BuildPrompt(name, desc))
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &errors.UpstreamError{
			Service: e.gen.Name(),
			ID:      task.ID,
			Message: "empty summary",
			Err:     errors.ErrUnavailable,
		}
	}
	return catalog.FromValue(&Document{SteamID: task.ID, Name: name, Summary: text})
}

var _ enhancer.Enhancer = (*Enhancer)(nil)
