// Package riskreport renders an install-time risk scan as a SARIF 2.1.0
// log for CI annotation, over riskscan.Finding.
package riskreport

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"

	"github.com/odin-run/odin/internal/domain/riskscan"
)

const toolName = "odin-riskscan"
const toolURI = "https://odin.run/riskscan"

// Formatter writes a risk scan as a SARIF log for the named skill.
type Formatter struct {
	writer io.Writer
}

// NewFormatter returns a Formatter writing to w.
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{writer: w}
}

// Format writes one SARIF run covering skillName's findings: one rule per
// distinct (category, pattern) pair and one result per finding.
func (f *Formatter) Format(skillName string, findings []riskscan.Finding) error {
	report := sarif.NewReport()
	run := sarif.NewRunWithInformationURI(toolName, toolURI)

	seenRules := make(map[string]bool, len(findings))
	for _, finding := range findings {
		ruleID := string(finding.Category) + ":" + finding.Pattern
		if seenRules[ruleID] {
			continue
		}
		seenRules[ruleID] = true

		description := fmt.Sprintf("%s risk pattern %q matched in skill %s", finding.Category, finding.Pattern, skillName)
		rule := sarif.NewReportingDescriptor().WithID(ruleID)
		rule.WithShortDescription(&sarif.MultiformatMessageString{Text: &description})
		rule.WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: severityLevel(finding.Category)})
		run.Tool.Driver.AddRule(rule)
	}

	for _, finding := range findings {
		ruleID := string(finding.Category) + ":" + finding.Pattern
		message := fmt.Sprintf("skill %s matched %s pattern %q", skillName, finding.Category, finding.Pattern)
		result := sarif.NewRuleResult(ruleID)
		result.Message = sarif.NewTextMessage(message)
		run.AddResult(result)
	}

	report.AddRun(run)
	if err := report.Write(f.writer); err != nil {
		return fmt.Errorf("failed to write SARIF risk report: %w", err)
	}
	_, err := f.writer.Write([]byte("\n"))
	return err
}

func severityLevel(category riskscan.Category) string {
	switch category {
	case riskscan.CategorySecret, riskscan.CategoryDelete:
		return "error"
	case riskscan.CategoryShell, riskscan.CategoryNetwork:
		return "warning"
	default:
		return "note"
	}
}
