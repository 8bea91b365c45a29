// Package journal logs every CLI operation to _report_log/ before any side
// effect lands, so commits and postmortems can reference a full operation
// history.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry records one CLI operation.
type Entry struct {
	ID               string            `json:"id"`
	Timestamp        string            `json:"timestamp"`
	Command          string            `json:"command"`
	Arguments        map[string]string `json:"arguments"`
	Model            string            `json:"model,omitempty"`
	ThinkingLevel    string            `json:"thinking_level,omitempty"`
	CostUSD          *float64          `json:"cost_usd,omitempty"`
	SectionsAffected []string          `json:"sections_affected"`
	ReviewNotes      string            `json:"review_notes,omitempty"`
	ReviewAuthor     string            `json:"review_author,omitempty"`
	Success          bool              `json:"success"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	DurationSeconds  *float64          `json:"duration_seconds,omitempty"`
}

// Dir returns the journal directory under the output root, creating it.
func Dir(outputRoot string) (string, error) {
	dir := filepath.Join(outputRoot, "_report_log")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// NewEntry creates an entry with a fresh UUID and UTC timestamp.
func NewEntry(command string, arguments map[string]string) *Entry {
	if arguments == nil {
		arguments = map[string]string{}
	}
	return &Entry{
		ID:               uuid.NewString(),
		Timestamp:        time.Now().UTC().Format(time.RFC3339Nano),
		Command:          command,
		Arguments:        arguments,
		SectionsAffected: []string{},
		Success:          true,
	}
}

// Save writes the entry as JSON under the journal directory. The filename is
// YYYYMMDD_HHMMSS_<command>_<uuid8>.json so lexical order is time order.
func Save(outputRoot string, entry *Entry) (string, error) {
	dir, err := Dir(outputRoot)
	if err != nil {
		return "", err
	}

	ts, err := time.Parse(time.RFC3339Nano, entry.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}
	shortID := entry.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	filename := fmt.Sprintf("%s_%s_%s.json", ts.Format("20060102_150405"), entry.Command, shortID)

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Update records completion status on an existing entry and re-saves it.
func Update(outputRoot string, entry *Entry, success bool, errorMessage string, costUSD, durationSeconds *float64) error {
	entry.Success = success
	entry.ErrorMessage = errorMessage
	if costUSD != nil {
		entry.CostUSD = costUSD
	}
	if durationSeconds != nil {
		entry.DurationSeconds = durationSeconds
	}
	_, err := Save(outputRoot, entry)
	return err
}

// LoadEntry reads one entry file.
func LoadEntry(path string) (*Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns up to limit recent entries, newest first. Undecodable files
// are skipped.
func List(outputRoot string, limit int) ([]*Entry, error) {
	dir, err := Dir(outputRoot)
	if err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	var entries []*Entry
	for _, path := range files {
		if len(entries) >= limit {
			break
		}
		entry, err := LoadEntry(path)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// FormatForCommit renders the entry as a readable commit message body.
func FormatForCommit(entry *Entry) string {
	var lines []string

	lines = append(lines, "Command: "+entry.Command)
	if ts, err := time.Parse(time.RFC3339Nano, entry.Timestamp); err == nil {
		lines = append(lines, "Timestamp: "+ts.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	lines = append(lines, "Journal ID: "+entry.ID)

	if len(entry.SectionsAffected) > 0 {
		lines = append(lines, "Sections: "+strings.Join(entry.SectionsAffected, ", "))
	}
	if entry.Model != "" {
		lines = append(lines, "Model: "+entry.Model)
	}
	if entry.ThinkingLevel != "" {
		lines = append(lines, "Thinking: "+entry.ThinkingLevel)
	}
	if entry.ReviewNotes != "" {
		notes := entry.ReviewNotes
		if len(notes) > 200 {
			notes = notes[:197] + "..."
		}
		lines = append(lines, "Review notes: "+notes)
	}
	if entry.ReviewAuthor != "" {
		lines = append(lines, "Reviewer: "+entry.ReviewAuthor)
	}
	if entry.CostUSD != nil {
		lines = append(lines, fmt.Sprintf("Cost: $%.4f", *entry.CostUSD))
	}
	if entry.DurationSeconds != nil {
		lines = append(lines, fmt.Sprintf("Duration: %.1fs", *entry.DurationSeconds))
	}
	if !entry.Success {
		lines = append(lines, "Status: FAILED")
		if entry.ErrorMessage != "" {
			lines = append(lines, "Error: "+entry.ErrorMessage)
		}
	}

	return strings.Join(lines, "\n")
}
