// Package skills implements skill resolution precedence and the
// install-time risk gate: a candidate skill is scanned for risk-pattern
// matches, and any of untrusted trust level, script presence, or a
// secret-category finding forces a human acknowledgment before the import
// is allowed to proceed.
package skills

import (
	"strings"

	"github.com/odin-run/odin/internal/application/apperrors"
	"github.com/odin-run/odin/internal/domain/protocol"
	"github.com/odin-run/odin/internal/domain/riskscan"
)

// InstallStatus is the terminal state of an install Plan.
type InstallStatus string

const (
	// StatusAllowed means the import may proceed without acknowledgment.
	StatusAllowed InstallStatus = "allowed"
	// StatusBlockedAckRequired means the import is blocked until the
	// caller supplies a non-nil Acknowledgment.
	StatusBlockedAckRequired InstallStatus = "blocked_ack_required"
)

// Acknowledgment is the human sign-off a caller attaches to an install
// request once they've reviewed the reasons and findings.
type Acknowledgment struct {
	ApprovedBy string
	Note       string
}

// Candidate is the payload evaluate_install inspects: the skill record
// being imported plus the script bodies and optional readme backing it.
type Candidate struct {
	Skill   protocol.SkillRecord
	Scripts []string
	Readme  string
}

// HasScript reports whether the candidate carries any script body.
func (c Candidate) HasScript() bool {
	for _, s := range c.Scripts {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// Plan is the result of EvaluateInstall: a status plus the reasons and
// risk-scan findings that produced it. Findings and reasons are always
// populated, even when the status is Allowed.
type Plan struct {
	Status   InstallStatus      `json:"status"`
	Reasons  []string           `json:"reasons"`
	Findings []riskscan.Finding `json:"findings"`
}

// EvaluateInstall runs the install gate over candidate. ack is the human
// acknowledgment already on file for this import, or nil if none has been
// given yet.
func EvaluateInstall(candidate Candidate, ack *Acknowledgment) (Plan, error) {
	if strings.TrimSpace(candidate.Skill.Name) == "" {
		return Plan{}, apperrors.InvalidInput("install candidate skill name is required")
	}

	findings := riskscan.ScanSkillContentEnriched(candidate.Scripts, candidate.Readme)

	var reasons []string
	if candidate.Skill.TrustLevel == protocol.TrustUntrusted {
		reasons = append(reasons, "untrusted_skill")
	}
	if candidate.HasScript() {
		reasons = append(reasons, "script_present")
	}
	if riskscan.HasCategory(findings, riskscan.CategorySecret) {
		reasons = append(reasons, "secret_touching_risk")
	}

	status := StatusAllowed
	if len(reasons) > 0 && ack == nil {
		status = StatusBlockedAckRequired
	}

	return Plan{Status: status, Reasons: reasons, Findings: findings}, nil
}
