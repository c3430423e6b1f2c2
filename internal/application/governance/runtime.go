// Package governance implements the orchestrator core: it evaluates an
// ActionRequest against a policy.Engine, drives the executor on Allow,
// records every decision to an audit.Sink, and routes watchdog-triggered
// plugin events through a PluginEventRunner into follow-up ActionRequests.
package governance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/odin-run/odin/internal/application/apperrors"
	"github.com/odin-run/odin/internal/domain/protocol"
	"github.com/odin-run/odin/internal/infrastructure/audit"
)

// ActionExecutor performs the side effect a granted ActionRequest describes.
// A returned error is not converted into a Blocked/Failed outcome: it
// propagates to the caller unchanged, the same way a policy or audit
// failure does.
type ActionExecutor interface {
	Execute(ctx context.Context, request protocol.ActionRequest) (json.RawMessage, error)
}

// TaskIngress accepts a freshly enqueued follow-up task payload.
type TaskIngress interface {
	WriteTaskPayload(ctx context.Context, payload string) error
}

// PluginEventRunner dispatches an EventEnvelope to a plugin and returns the
// directives it emitted.
type PluginEventRunner interface {
	DispatchEvent(ctx context.Context, plugin string, event protocol.EventEnvelope) ([]protocol.PluginDirective, error)
}

// DryRunExecutor is the default ActionExecutor: it performs no side effect
// and reports what it would have executed.
type DryRunExecutor struct{}

// Execute implements ActionExecutor.
func (DryRunExecutor) Execute(_ context.Context, request protocol.ActionRequest) (json.RawMessage, error) {
	out, err := json.Marshal(map[string]string{
		"request_id": request.RequestID,
		"result":     "dry_run",
		"capability": request.Capability.Capability,
		"plugin":     request.Capability.Plugin,
	})
	if err != nil {
		return nil, apperrors.Execution("failed to marshal dry run result", err)
	}
	return out, nil
}

// PolicyEngine is the subset of policy.Engine the orchestrator depends on
// (kept local to avoid an import cycle between governance and policy
// tests that construct fakes).
type PolicyEngine interface {
	Decide(request protocol.ActionRequest) (protocol.PolicyDecision, error)
}

// Orchestrator wires a PolicyEngine, an audit.Sink, and an ActionExecutor
// into the governance decision loop described by handle_action,
// handle_action_with_manifest, and handle_watchdog_task.
type Orchestrator struct {
	Policy   PolicyEngine
	Audit    audit.Sink
	Executor ActionExecutor
}

// New returns an Orchestrator. executor may be nil, in which case
// DryRunExecutor is used.
func New(policyEngine PolicyEngine, sink audit.Sink, executor ActionExecutor) *Orchestrator {
	if executor == nil {
		executor = DryRunExecutor{}
	}
	return &Orchestrator{Policy: policyEngine, Audit: sink, Executor: executor}
}

func validateCapability(request protocol.ActionRequest) error {
	cap := request.Capability
	if strings.TrimSpace(cap.Plugin) == "" || strings.TrimSpace(cap.Capability) == "" {
		return apperrors.InvalidInput("plugin and capability are required")
	}
	return nil
}

func decisionTag(decision protocol.PolicyDecision) string {
	switch decision.Kind {
	case protocol.DecisionAllow:
		return "allow"
	case protocol.DecisionDeny:
		return "deny"
	case protocol.DecisionRequireApproval:
		return "require_approval"
	default:
		return string(decision.Kind)
	}
}

func mustJSON(v any) json.RawMessage {
	out, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return out
}

// evaluatePolicy validates the request, runs it through the policy engine,
// and records a policy.decision audit entry.
func (o *Orchestrator) evaluatePolicy(ctx context.Context, request protocol.ActionRequest) (protocol.PolicyDecision, error) {
	if err := validateCapability(request); err != nil {
		return protocol.PolicyDecision{}, err
	}

	decision, err := o.Policy.Decide(request)
	if err != nil {
		return protocol.PolicyDecision{}, apperrors.Policy("policy evaluation failed", err)
	}

	if err := o.record(ctx, "policy.decision", request.RequestID, "", request.Capability.Project, map[string]string{
		"plugin":     request.Capability.Plugin,
		"capability": request.Capability.Capability,
		"decision":   decisionTag(decision),
	}); err != nil {
		return protocol.PolicyDecision{}, err
	}

	return decision, nil
}

// HandleAction evaluates request against policy, executes it on Allow, and
// records the outcome to the audit trail.
func (o *Orchestrator) HandleAction(ctx context.Context, request protocol.ActionRequest) (protocol.ActionOutcome, error) {
	decision, err := o.evaluatePolicy(ctx, request)
	if err != nil {
		return protocol.ActionOutcome{}, err
	}

	switch decision.Kind {
	case protocol.DecisionDeny:
		return protocol.ActionOutcome{RequestID: request.RequestID, Status: protocol.StatusBlocked, Detail: decision.ReasonCode}, nil
	case protocol.DecisionRequireApproval:
		return protocol.ActionOutcome{RequestID: request.RequestID, Status: protocol.StatusApprovalPending, Detail: decision.ReasonCode}, nil
	}

	output, err := o.Executor.Execute(ctx, request)
	if err != nil {
		return protocol.ActionOutcome{}, err
	}

	if err := o.record(ctx, "action.executed", request.RequestID, "", request.Capability.Project, map[string]string{
		"plugin":     request.Capability.Plugin,
		"capability": request.Capability.Capability,
	}); err != nil {
		return protocol.ActionOutcome{}, err
	}

	return protocol.ActionOutcome{RequestID: request.RequestID, Status: protocol.StatusExecuted, Detail: "executed", Output: output}, nil
}

func (o *Orchestrator) record(ctx context.Context, eventType, requestID, taskID, project string, metadata any) error {
	record := audit.Record{
		ID:        audit.NewID(),
		TsUnix:    time.Now().Unix(),
		EventType: eventType,
		RequestID: requestID,
		TaskID:    taskID,
		Project:   project,
		Metadata:  mustJSON(metadata),
	}
	if err := o.Audit.Record(ctx, record); err != nil {
		return apperrors.Audit(fmt.Sprintf("failed to record %s", eventType), err)
	}
	return nil
}
