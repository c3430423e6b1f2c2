// Package policy implements the static capability grant table: a fixed
// (plugin, project-or-"*", capability) allow set plus a destructive-tier
// approval flag.
package policy

import (
	"strings"

	"github.com/odin-run/odin/internal/application/apperrors"
	"github.com/odin-run/odin/internal/domain/protocol"
)

// wildcardProject is the project value that matches any project.
const wildcardProject = "*"

type grantKey struct {
	plugin     string
	project    string
	capability string
}

// Engine decides allow/deny/require-approval for an ActionRequest.
type Engine interface {
	Decide(request protocol.ActionRequest) (protocol.PolicyDecision, error)
}

// StaticEngine is the baseline Engine: a static grant set checked exactly
// or against a "*" project wildcard, with one opt-in approval gate for
// destructive-tier actions.
type StaticEngine struct {
	allowed                       map[grantKey]struct{}
	RequireApprovalForDestructive bool
}

// NewStaticEngine returns an empty-grant engine.
func NewStaticEngine() *StaticEngine {
	return &StaticEngine{allowed: make(map[grantKey]struct{})}
}

// AllowCapability grants (plugin, project, capability). Pass "*" as project
// to grant across all projects.
func (e *StaticEngine) AllowCapability(plugin, project, capability string) {
	e.allowed[grantKey{plugin, project, capability}] = struct{}{}
}

func (e *StaticEngine) isAllowed(plugin, project, capability string) bool {
	if _, ok := e.allowed[grantKey{plugin, project, capability}]; ok {
		return true
	}
	_, ok := e.allowed[grantKey{plugin, wildcardProject, capability}]
	return ok
}

// Decide implements Engine.
func (e *StaticEngine) Decide(request protocol.ActionRequest) (protocol.PolicyDecision, error) {
	cap := request.Capability
	if strings.TrimSpace(cap.Plugin) == "" || strings.TrimSpace(cap.Capability) == "" {
		return protocol.PolicyDecision{}, apperrors.InvalidInput("plugin and capability are required")
	}

	if !e.isAllowed(cap.Plugin, cap.Project, cap.Capability) {
		return protocol.Deny("capability_not_granted"), nil
	}

	if request.RiskTier == protocol.RiskDestructive && e.RequireApprovalForDestructive {
		return protocol.RequireApproval("destructive_requires_approval", protocol.RiskDestructive), nil
	}

	return protocol.Allow("capability_granted"), nil
}
