package reflection

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/desertthunder/bowlstone/internal/shared"
)

var _ Generator = (*Gemini)(nil)

// DefaultModel is used when the configuration names none.
const DefaultModel = "gemini-2.0-flash"

// Gemini generates reflections with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a generator from cfg. A nil httpClient uses the SDK default.
func NewGemini(ctx context.Context, cfg shared.ReflectionConfig, httpClient *http.Client) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: reflection api key", shared.ErrMissingCredentials)
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions.BaseURL = cfg.Endpoint
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := strings.TrimPrefix(cfg.Model, "models/")
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{client: client, model: model}, nil
}

// Model returns the model requests are sent to.
func (g *Gemini) Model() string { return g.model }

// Generate sends [Prompt] and returns the first candidate's text.
func (g *Gemini) Generate(ctx context.Context) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			return text, nil
		}
	}
	return "", ErrEmpty
}
