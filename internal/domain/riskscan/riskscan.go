// Package riskscan implements the fixed-pattern install-time risk scan
// over skill script bodies and an optional readme.
package riskscan

import "strings"

// Category classifies a RiskFinding.
type Category string

const (
	CategoryShell   Category = "shell"
	CategoryNetwork Category = "network"
	CategorySecret  Category = "secret"
	CategoryDelete  Category = "delete"
)

// Finding is one (category, pattern) match recorded during a scan.
type Finding struct {
	Category Category `json:"category"`
	Pattern  string   `json:"pattern"`
}

var shellPatterns = []string{"curl | sh", "| sh", "| bash", "bash -c", "sh -c"}

var networkPatterns = []string{
	"curl ", "wget ", "invoke-webrequest", "invoke-restmethod",
	"requests.", "http.client", "reqwest::", "net/http", "axios.", "fetch(",
}

var secretPatterns = []string{"aws_secret", "secret_key", "api_key", "token=", "password="}

var deletePatterns = []string{"rm -rf", "del /f", "shred "}

// ScanSkillContent scans a set of script texts plus an optional readme,
// each lowercased, against the fixed pattern lists. A finding is recorded
// per (category, pattern) on first match; duplicates are deduplicated
// globally across all inputs.
func ScanSkillContent(scripts []string, readme string) []Finding {
	var findings []Finding
	for _, script := range scripts {
		findings = scanText(script, findings)
	}
	if readme != "" {
		findings = scanText(readme, findings)
	}
	return findings
}

func scanText(text string, findings []Finding) []Finding {
	normalized := strings.ToLower(text)
	findings = collectMatches(normalized, shellPatterns, CategoryShell, findings)
	findings = collectMatches(normalized, networkPatterns, CategoryNetwork, findings)
	findings = collectMatches(normalized, secretPatterns, CategorySecret, findings)
	findings = collectMatches(normalized, deletePatterns, CategoryDelete, findings)
	return findings
}

func collectMatches(haystack string, patterns []string, category Category, findings []Finding) []Finding {
	for _, pattern := range patterns {
		if !strings.Contains(haystack, pattern) {
			continue
		}
		if hasFinding(findings, category, pattern) {
			continue
		}
		findings = append(findings, Finding{Category: category, Pattern: pattern})
	}
	return findings
}

func hasFinding(findings []Finding, category Category, pattern string) bool {
	for _, f := range findings {
		if f.Category == category && f.Pattern == pattern {
			return true
		}
	}
	return false
}

// HasCategory reports whether any finding belongs to category.
func HasCategory(findings []Finding, category Category) bool {
	for _, f := range findings {
		if f.Category == category {
			return true
		}
	}
	return false
}
