// Package outline parses markdown report outlines into typed sections.
//
// An outline is a plain markdown file whose ATX headings define the report
// structure. HTML comments directly under a heading act as a structured
// sidecar: `<!-- Section instructions: ... -->` carries drafting instructions
// and `<!-- Review comments: ... -->` carries reviewer feedback. The comment
// grammar is shared with existing outline files on disk and must not change.
package outline

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Section is one heading-delimited block of the outline.
type Section struct {
	ID             string
	Title          string
	Level          int
	Instructions   string
	ReviewComments string
	ReviewAuthor   string
	ReviewRatings  map[string]int
	ReviewNotes    string
	ParentID       string // empty for top-level sections
	Content        string
}

var (
	headingRe     = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+?)\s*$`)
	instructionRe = regexp.MustCompile(`(?s)<!--\s*Section instructions:\s*(.*?)\s*-->`)
	reviewRe      = regexp.MustCompile(`(?s)<!--\s*Review comments:\s*(.*?)\s*-->`)

	slugStripRe   = regexp.MustCompile(`[^\w\s-]`)
	slugHyphenRe  = regexp.MustCompile(`[\s_]+`)
	slugCollapse  = regexp.MustCompile(`-+`)
)

// Slugify derives a section ID from a heading title: lowercase, drop
// characters outside word/space/hyphen, collapse whitespace and underscore
// runs to single hyphens, collapse repeated hyphens, trim the ends.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugStripRe.ReplaceAllString(slug, "")
	slug = slugHyphenRe.ReplaceAllString(slug, "-")
	slug = slugCollapse.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// ParseReviewBlock parses the body of a review comment into
// (author, ratings, notes). Malformed lines are dropped, never rejected.
// A line starting with the "[EXAMPLE - LLM IGNORE:" sentinel terminates
// parsing so example blocks are not mistaken for real feedback.
func ParseReviewBlock(text string) (string, map[string]int, string) {
	ratings := map[string]int{}
	if strings.TrimSpace(text) == "" {
		return "", ratings, ""
	}

	author := ""
	notesStarted := false
	var notesLines []string

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		stripped := strings.TrimSpace(line)

		if strings.HasPrefix(stripped, "[EXAMPLE - LLM IGNORE:") {
			break
		}

		switch {
		case strings.HasPrefix(stripped, "AUTHOR:"):
			author = strings.TrimSpace(stripped[len("AUTHOR:"):])
		case strings.HasPrefix(stripped, "RATING:"):
			ratingPart := strings.TrimSpace(stripped[len("RATING:"):])
			for _, pair := range strings.Split(ratingPart, ",") {
				pair = strings.TrimSpace(pair)
				key, value, found := strings.Cut(pair, "=")
				if !found {
					continue
				}
				value = strings.TrimSpace(value)
				if value == "" {
					continue
				}
				if n, err := strconv.Atoi(value); err == nil {
					ratings[strings.TrimSpace(key)] = n
				}
			}
		case strings.HasPrefix(stripped, "NOTES:"):
			notesStarted = true
			if content := strings.TrimSpace(stripped[len("NOTES:"):]); content != "" {
				notesLines = append(notesLines, content)
			}
		default:
			if notesStarted {
				notesLines = append(notesLines, stripped)
			}
		}
	}

	notes := strings.TrimSpace(strings.Join(notesLines, "\n"))
	return author, ratings, notes
}

// ParseOutline reads a markdown outline and returns its sections in document
// order. Parent links are derived from heading depth with a stack of open
// ancestors. Malformed comment blocks never fail the parse; missing pieces
// default to empty values.
func ParseOutline(path string) ([]Section, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseOutlineContent(string(raw)), nil
}

// ParseOutlineContent parses outline markdown already held in memory.
func ParseOutlineContent(content string) []Section {
	var sections []Section

	type stackEntry struct {
		level int
		id    string
	}
	var parentStack []stackEntry

	headings := headingRe.FindAllStringSubmatchIndex(content, -1)

	for idx, match := range headings {
		level := match[3] - match[2]
		title := strings.TrimSpace(content[match[4]:match[5]])
		sectionID := Slugify(title)

		for len(parentStack) > 0 && parentStack[len(parentStack)-1].level >= level {
			parentStack = parentStack[:len(parentStack)-1]
		}
		parentID := ""
		if len(parentStack) > 0 {
			parentID = parentStack[len(parentStack)-1].id
		}
		parentStack = append(parentStack, stackEntry{level: level, id: sectionID})

		start := match[1]
		end := len(content)
		if idx+1 < len(headings) {
			end = headings[idx+1][0]
		}
		sectionText := content[start:end]

		instructions := ""
		if m := instructionRe.FindStringSubmatch(sectionText); m != nil {
			instructions = strings.TrimSpace(m[1])
		}

		reviewComments := ""
		if m := reviewRe.FindStringSubmatch(sectionText); m != nil {
			reviewComments = strings.TrimSpace(m[1])
		}

		reviewAuthor, reviewRatings, reviewNotes := ParseReviewBlock(reviewComments)

		body := instructionRe.ReplaceAllString(sectionText, "")
		body = reviewRe.ReplaceAllString(body, "")
		body = strings.TrimSpace(body)

		sections = append(sections, Section{
			ID:             sectionID,
			Title:          title,
			Level:          level,
			Instructions:   instructions,
			ReviewComments: reviewComments,
			ReviewAuthor:   reviewAuthor,
			ReviewRatings:  reviewRatings,
			ReviewNotes:    reviewNotes,
			ParentID:       parentID,
			Content:        body,
		})
	}

	return sections
}
