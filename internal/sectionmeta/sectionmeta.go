// Package sectionmeta parses and serializes REPORT_SECTION_META HTML
// comments, the sidecar that carries integration hints between the
// integrator and section-level generation.
package sectionmeta

import (
	"encoding/json"
	"regexp"
	"strings"
)

// IntegrationNote records one integration action taken on a section.
type IntegrationNote struct {
	Type        string         `json:"type"`
	SemanticKey string         `json:"semantic_key,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Replacement map[string]any `json:"replacement,omitempty"`
}

// IntegrationHints tells a section which figures exist elsewhere and what
// the integrator changed.
type IntegrationHints struct {
	AvoidFigures     []string         `json:"avoid_figures"`
	CanonicalFigures []map[string]any `json:"canonical_figures"`
	Notes            []IntegrationNote `json:"notes"`
}

// Meta is a parsed REPORT_SECTION_META comment.
type Meta struct {
	SectionID        string            `json:"section_id"`
	Version          int               `json:"version"`
	IntegrationHints *IntegrationHints `json:"integration_hints,omitempty"`
}

var metaPattern = regexp.MustCompile(`(?s)<!--\s*REPORT_SECTION_META\s*\n(.*?)\n\s*-->`)

// Parse extracts and decodes the first REPORT_SECTION_META comment from a
// section body. Returns false when no comment is present, the JSON is
// invalid, or the required section_id/version keys are missing.
func Parse(content string) (Meta, bool) {
	m := metaPattern.FindStringSubmatch(content)
	if m == nil {
		return Meta{}, false
	}

	var probe map[string]json.RawMessage
	jsonStr := strings.TrimSpace(m[1])
	if err := json.Unmarshal([]byte(jsonStr), &probe); err != nil {
		return Meta{}, false
	}
	if _, ok := probe["section_id"]; !ok {
		return Meta{}, false
	}
	if _, ok := probe["version"]; !ok {
		return Meta{}, false
	}

	var meta Meta
	if err := json.Unmarshal([]byte(jsonStr), &meta); err != nil {
		return Meta{}, false
	}
	return meta, true
}

// ExtractMetaAndBody parses the meta comment and returns it alongside the
// content with every meta comment stripped.
func ExtractMetaAndBody(content string) (Meta, bool, string) {
	meta, ok := Parse(content)
	body := strings.TrimSpace(metaPattern.ReplaceAllString(content, ""))
	return meta, ok, body
}

// Serialize renders the meta as its HTML-comment form.
func Serialize(meta Meta) string {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		data = []byte("{}")
	}
	return "<!-- REPORT_SECTION_META\n" + string(data) + "\n-->"
}

// Inject places the meta comment at the top of the content, replacing any
// existing one.
func Inject(content string, meta Meta) string {
	_, _, body := ExtractMetaAndBody(content)
	metaStr := Serialize(meta)
	if body == "" {
		return metaStr
	}
	return metaStr + "\n\n" + body
}
