package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiGenerator implements TextGenerator using the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a generator for the given model.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate sends the prompt plus inline images and returns the response text
// with usage accounting.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, images []Image) (string, Usage, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, img := range images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MediaType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", Usage{}, err
	}

	var usage Usage
	if meta := resp.UsageMetadata; meta != nil {
		usage.InputTokens = int(meta.PromptTokenCount)
		usage.OutputTokens = int(meta.CandidatesTokenCount)
		usage.ReasoningTokens = int(meta.ThoughtsTokenCount)
		usage.CostUSD = Cost(g.model, usage.InputTokens, usage.OutputTokens)
	}
	return resp.Text(), usage, nil
}
