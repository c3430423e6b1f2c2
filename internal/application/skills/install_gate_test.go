package skills_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odin-run/odin/internal/application/skills"
	"github.com/odin-run/odin/internal/domain/protocol"
)

func TestEvaluateInstall_TrustedNoScriptNoFindingsAllowed(t *testing.T) {
	candidate := skills.Candidate{
		Skill: protocol.SkillRecord{Name: "clean-skill", TrustLevel: protocol.TrustTrusted},
	}

	plan, err := skills.EvaluateInstall(candidate, nil)
	require.NoError(t, err)
	assert.Equal(t, skills.StatusAllowed, plan.Status)
	assert.Empty(t, plan.Reasons)
}

func TestEvaluateInstall_UntrustedRequiresAck(t *testing.T) {
	candidate := skills.Candidate{
		Skill: protocol.SkillRecord{Name: "risky-skill", TrustLevel: protocol.TrustUntrusted},
	}

	plan, err := skills.EvaluateInstall(candidate, nil)
	require.NoError(t, err)
	assert.Equal(t, skills.StatusBlockedAckRequired, plan.Status)
	assert.Contains(t, plan.Reasons, "untrusted_skill")
}

func TestEvaluateInstall_ScriptPresenceRequiresAck(t *testing.T) {
	candidate := skills.Candidate{
		Skill:   protocol.SkillRecord{Name: "scripted-skill", TrustLevel: protocol.TrustTrusted},
		Scripts: []string{"echo hello"},
	}

	plan, err := skills.EvaluateInstall(candidate, nil)
	require.NoError(t, err)
	assert.Equal(t, skills.StatusBlockedAckRequired, plan.Status)
	assert.Contains(t, plan.Reasons, "script_present")
}

func TestEvaluateInstall_AcknowledgmentUnblocks(t *testing.T) {
	candidate := skills.Candidate{
		Skill:   protocol.SkillRecord{Name: "scripted-skill", TrustLevel: protocol.TrustTrusted},
		Scripts: []string{"echo hello"},
	}
	ack := &skills.Acknowledgment{ApprovedBy: "reviewer", Note: "looked fine"}

	plan, err := skills.EvaluateInstall(candidate, ack)
	require.NoError(t, err)
	assert.Equal(t, skills.StatusAllowed, plan.Status)
	assert.Contains(t, plan.Reasons, "script_present")
}

func TestEvaluateInstall_RejectsEmptyName(t *testing.T) {
	_, err := skills.EvaluateInstall(skills.Candidate{}, nil)
	require.Error(t, err)
}

func TestCandidate_HasScript(t *testing.T) {
	assert.False(t, skills.Candidate{}.HasScript())
	assert.False(t, skills.Candidate{Scripts: []string{"   "}}.HasScript())
	assert.True(t, skills.Candidate{Scripts: []string{"", "rm -rf /"}}.HasScript())
}
