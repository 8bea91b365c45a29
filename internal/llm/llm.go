// Package llm isolates text generation behind a narrow interface: prompt in,
// text plus token-usage accounting out. The core report pipeline never
// depends on a concrete provider.
package llm

import "context"

// Image is an inline image attachment for a generation call.
type Image struct {
	Name      string
	MediaType string
	Data      []byte
}

// Usage is token usage and cost for one generation call.
type Usage struct {
	InputTokens     int
	OutputTokens    int
	ReasoningTokens int
	CostUSD         float64
}

// Add returns the field-wise sum of two usages.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:     u.InputTokens + other.InputTokens,
		OutputTokens:    u.OutputTokens + other.OutputTokens,
		ReasoningTokens: u.ReasoningTokens + other.ReasoningTokens,
		CostUSD:         u.CostUSD + other.CostUSD,
	}
}

// TextGenerator produces text from a prompt and optional images.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, images []Image) (string, Usage, error)
}

type pricing struct {
	input  float64 // USD per million input tokens
	output float64 // USD per million output tokens
}

var modelPricing = map[string]pricing{
	"gemini-2.5-pro":   {input: 1.25, output: 10.00},
	"gemini-2.5-flash": {input: 0.30, output: 2.50},
	"gemini-2.0-flash": {input: 0.10, output: 0.40},
}

// Cost computes the USD cost of a call; unknown models cost zero.
func Cost(model string, inputTokens, outputTokens int) float64 {
	p, ok := modelPricing[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1e6*p.input + float64(outputTokens)/1e6*p.output
}
