// Package prompts holds the embedded prompt templates. Templates use {name}
// placeholders; double braces escape a literal brace.
package prompts

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed templates/*.md
var templateFS embed.FS

// Load returns a prompt template by name (without extension).
func Load(name string) (string, error) {
	raw, err := templateFS.ReadFile("templates/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("prompt %q not found: %w", name, err)
	}
	return string(raw), nil
}

// Format loads a template and substitutes {key} placeholders.
func Format(name string, vars map[string]string) (string, error) {
	template, err := Load(name)
	if err != nil {
		return "", err
	}

	// Protect escaped braces before substitution.
	const openSentinel, closeSentinel = "\x00OPEN\x00", "\x00CLOSE\x00"
	out := strings.ReplaceAll(template, "{{", openSentinel)
	out = strings.ReplaceAll(out, "}}", closeSentinel)
	for key, value := range vars {
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	out = strings.ReplaceAll(out, openSentinel, "{")
	out = strings.ReplaceAll(out, closeSentinel, "}")
	return out, nil
}
