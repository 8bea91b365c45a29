// Package git provides git integration for report projects. Every report
// project is its own repository with a .report-writer.json metadata file;
// generation commands auto-commit their outputs.
package git

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// MetaFilename marks a directory as a report project.
const MetaFilename = ".report-writer.json"

// DefaultOrg is the GitHub organization new report repositories are created
// under.
const DefaultOrg = "austimes"

// ReportMeta is the project metadata stored in .report-writer.json.
type ReportMeta struct {
	ReportName string `json:"report_name"`
	Slug       string `json:"slug"`
	GitHubRepo string `json:"github_repo"`
	CreatedAt  string `json:"created_at"`
	Private    bool   `json:"private"`
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug converts a report name to a repository slug.
func Slug(name string) string {
	slug := strings.ToLower(name)
	slug = slugRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "report"
	}
	return slug
}

func requireExecutable(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("required executable %q not found on PATH", name)
	}
	return nil
}

func runGit(dir string, desc string, args ...string) (string, error) {
	if err := requireExecutable("git"); err != nil {
		return "", err
	}
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git operation failed: %s\ncommand: git %s\noutput: %s",
			desc, strings.Join(args, " "), strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

func runGH(dir string, desc string, args ...string) (string, error) {
	if err := requireExecutable("gh"); err != nil {
		return "", err
	}
	cmd := exec.Command("gh", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("gh operation failed: %s\ncommand: gh %s\noutput: %s",
			desc, strings.Join(args, " "), strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// LoadReportMeta reads .report-writer.json from the project root.
func LoadReportMeta(outputRoot string) (*ReportMeta, error) {
	metaPath := filepath.Join(outputRoot, MetaFilename)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("report metadata not found at %s; run init-report first", metaPath)
	}
	var meta ReportMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", metaPath, err)
	}
	return &meta, nil
}

// EnsureReportProject validates that outputRoot is a report project: it must
// exist, carry its own .git directory (no parent discovery), and have valid
// metadata.
func EnsureReportProject(outputRoot string) (*ReportMeta, error) {
	info, err := os.Stat(outputRoot)
	if err != nil {
		return nil, fmt.Errorf("report directory does not exist: %s; run init-report first", outputRoot)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("report path is not a directory: %s", outputRoot)
	}
	if _, err := os.Stat(filepath.Join(outputRoot, ".git")); err != nil {
		return nil, fmt.Errorf("not a git repository: %s; each report project must be its own repository", outputRoot)
	}
	return LoadReportMeta(outputRoot)
}

// AutoCommit stages all files, commits with the given message, and pushes to
// origin main. All steps must succeed.
func AutoCommit(outputRoot, commitMessage string) error {
	if _, err := EnsureReportProject(outputRoot); err != nil {
		return err
	}
	if _, err := runGit(outputRoot, "staging all files", "add", "-A"); err != nil {
		return err
	}
	if _, err := runGit(outputRoot, "committing changes", "commit", "--allow-empty", "-m", commitMessage); err != nil {
		return err
	}
	if _, err := runGit(outputRoot, "pushing to origin", "push", "origin", "main"); err != nil {
		return err
	}
	return nil
}

// InitRepo initializes a new report repository: git init on main, metadata
// file, initial commit, and a GitHub repository created via gh. Nesting
// inside an existing repository is rejected.
func InitRepo(outputRoot, reportName string, private bool) (*ReportMeta, error) {
	if err := requireExecutable("git"); err != nil {
		return nil, err
	}
	if err := requireExecutable("gh"); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(filepath.Join(absRoot, ".git")); err == nil {
		return nil, fmt.Errorf("directory is already a git repository: %s", absRoot)
	}
	if enclosing := findEnclosingRepo(filepath.Dir(absRoot)); enclosing != "" {
		return nil, fmt.Errorf("cannot initialize report inside existing git repository at %s; each report must be its own repository", enclosing)
	}

	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, err
	}
	if _, err := runGit(absRoot, "initializing repository", "init", "-b", "main"); err != nil {
		return nil, err
	}

	gitignore := "_llm_calls/\n_report_log/\n"
	if err := os.WriteFile(filepath.Join(absRoot, ".gitignore"), []byte(gitignore), 0644); err != nil {
		return nil, err
	}

	slug := Slug(reportName)
	meta := &ReportMeta{
		ReportName: reportName,
		Slug:       slug,
		GitHubRepo: DefaultOrg + "/" + slug,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		Private:    private,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(absRoot, MetaFilename), append(data, '\n'), 0644); err != nil {
		return nil, err
	}

	if _, err := runGit(absRoot, "staging initial files", "add", "-A"); err != nil {
		return nil, err
	}
	if _, err := runGit(absRoot, "creating initial commit", "commit", "-m", "Initial commit: "+reportName); err != nil {
		return nil, err
	}

	visibility := "--public"
	if private {
		visibility = "--private"
	}
	if _, err := runGH(absRoot, "creating GitHub repository "+meta.GitHubRepo,
		"repo", "create", meta.GitHubRepo, visibility, "--source", ".", "--push"); err != nil {
		return nil, err
	}

	return meta, nil
}

// findEnclosingRepo walks up from dir looking for a .git directory.
func findEnclosingRepo(dir string) string {
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
