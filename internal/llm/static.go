package llm

import "context"

// StaticGenerator returns a canned response. Used in tests and dry runs.
type StaticGenerator struct {
	Response string
	Usage    Usage
	Err      error

	// Prompts records every prompt seen, in call order.
	Prompts []string
}

func (s *StaticGenerator) Generate(_ context.Context, prompt string, _ []Image) (string, Usage, error) {
	s.Prompts = append(s.Prompts, prompt)
	if s.Err != nil {
		return "", Usage{}, s.Err
	}
	return s.Response, s.Usage, nil
}
