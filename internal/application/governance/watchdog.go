package governance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/odin-run/odin/internal/application/apperrors"
	"github.com/odin-run/odin/internal/domain/protocol"
)

// ParseWatchdogTask decodes and validates a raw watchdog task payload.
func ParseWatchdogTask(raw []byte) (protocol.WatchdogTaskEnvelope, error) {
	var task protocol.WatchdogTaskEnvelope
	if err := json.Unmarshal(raw, &task); err != nil {
		return protocol.WatchdogTaskEnvelope{}, apperrors.InvalidInputf("invalid watchdog task payload: %v", err)
	}
	if task.SchemaVersion != 1 {
		return protocol.WatchdogTaskEnvelope{}, apperrors.InvalidInput("watchdog task schema_version must be 1")
	}
	if task.TaskKind != "watchdog_poll" {
		return protocol.WatchdogTaskEnvelope{}, apperrors.InvalidInputf("watchdog task type must be watchdog_poll, got %q", task.TaskKind)
	}
	if strings.TrimSpace(task.Payload.Plugin) == "" ||
		strings.TrimSpace(task.Payload.Project) == "" ||
		strings.TrimSpace(task.Payload.TaskType) == "" {
		return protocol.WatchdogTaskEnvelope{}, apperrors.InvalidInput("watchdog task payload plugin, project, and task_type are required")
	}
	return task, nil
}

// HandleWatchdogTask parses rawTask, dispatches the resulting event to the
// task's plugin through runner, and routes each returned PluginDirective:
// RequestCapability directives run the full HandleAction pipeline,
// EnqueueTask directives run the policy step only and, on Allow, hand a
// follow-up task payload to ingress, and Noop directives only emit an
// audit record.
func (o *Orchestrator) HandleWatchdogTask(ctx context.Context, rawTask []byte, runner PluginEventRunner, ingress TaskIngress) ([]protocol.ActionOutcome, error) {
	task, err := ParseWatchdogTask(rawTask)
	if err != nil {
		return nil, err
	}

	event := protocol.EventEnvelope{
		EventID:   fmt.Sprintf("evt-%s-%d", task.TaskID, time.Now().Unix()),
		EventType: "task.received",
		TaskID:    task.TaskID,
		Project:   task.Payload.Project,
		Payload: mustJSON(map[string]string{
			"task_type":  task.Payload.TaskType,
			"source_key": task.Payload.SourceKey,
			"trigger":    task.Payload.Trigger,
		}),
	}

	directives, err := runner.DispatchEvent(ctx, task.Payload.Plugin, event)
	if err != nil {
		return nil, err
	}

	var outcomes []protocol.ActionOutcome
	for idx, directive := range directives {
		switch directive.Action {
		case protocol.DirectiveRequestCapability:
			outcome, err := o.handleRequestCapabilityDirective(ctx, task, idx, directive)
			if err != nil {
				return outcomes, err
			}
			outcomes = append(outcomes, outcome)

		case protocol.DirectiveEnqueueTask:
			outcome, err := o.handleEnqueueTaskDirective(ctx, task, idx, directive, ingress)
			if err != nil {
				return outcomes, err
			}
			outcomes = append(outcomes, outcome)

		case protocol.DirectiveNoop:
			if err := o.record(ctx, "plugin.noop", "", task.TaskID, task.Payload.Project, map[string]string{
				"task_id": task.TaskID,
				"plugin":  task.Payload.Plugin,
			}); err != nil {
				return outcomes, err
			}
		}
	}

	return outcomes, nil
}

func (o *Orchestrator) handleRequestCapabilityDirective(ctx context.Context, task protocol.WatchdogTaskEnvelope, idx int, directive protocol.PluginDirective) (protocol.ActionOutcome, error) {
	project := directive.Capability.Project
	if project == "" {
		project = task.Payload.Project
	}

	reason := strings.TrimSpace(directive.Reason)
	if reason == "" {
		reason = "plugin requested capability"
	}

	request := protocol.ActionRequest{
		RequestID: fmt.Sprintf("%s-%d-cap", task.TaskID, idx),
		RiskTier:  riskTierOrDefault(directive.RiskTier),
		Capability: protocol.CapabilityRequest{
			Plugin:     task.Payload.Plugin,
			Project:    project,
			Capability: directive.Capability.ID,
			Scope:      []string{"project"},
			Reason:     reason,
		},
		Input: directive.Input,
	}

	return o.HandleAction(ctx, request)
}

func (o *Orchestrator) handleEnqueueTaskDirective(ctx context.Context, task protocol.WatchdogTaskEnvelope, idx int, directive protocol.PluginDirective, ingress TaskIngress) (protocol.ActionOutcome, error) {
	taskType := strings.TrimSpace(directive.TaskType)
	if taskType == "" {
		return protocol.ActionOutcome{}, apperrors.InvalidInput("enqueue_task directive requires a task_type")
	}

	project := directive.Project
	if project == "" {
		project = task.Payload.Project
	}

	reason := directive.Reason
	if reason == "" {
		reason = fmt.Sprintf("plugin enqueue request for %s", taskType)
	}

	request := protocol.ActionRequest{
		RequestID: fmt.Sprintf("%s-%d-enqueue", task.TaskID, idx),
		RiskTier:  protocol.RiskSensitive,
		Capability: protocol.CapabilityRequest{
			Plugin:     task.Payload.Plugin,
			Project:    project,
			Capability: "task.enqueue",
			Scope:      []string{"project"},
			Reason:     reason,
		},
		Input: mustJSON(map[string]string{"task_type": taskType, "origin_task_id": task.TaskID}),
	}

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

	enqueuedAt := time.Now().Unix()
	followup := map[string]any{
		"schema_version":  1,
		"task_id":         fmt.Sprintf("%s-followup-%d-%d", task.TaskID, idx, enqueuedAt),
		"type":            taskType,
		"source":          "plugin",
		"created_at_unix": enqueuedAt,
		"payload": map[string]any{
			"project":        project,
			"plugin":         task.Payload.Plugin,
			"task_type":      taskType,
			"origin_task_id": task.TaskID,
			"data":           directive.Payload,
		},
	}
	payloadJSON, err := json.Marshal(followup)
	if err != nil {
		return protocol.ActionOutcome{}, apperrors.Execution("failed to marshal follow-up task payload", err)
	}

	if err := ingress.WriteTaskPayload(ctx, string(payloadJSON)); err != nil {
		return protocol.ActionOutcome{}, apperrors.Execution("failed to write follow-up task payload", err)
	}

	if err := o.record(ctx, "task.enqueued", request.RequestID, task.TaskID, project, map[string]string{
		"plugin":         task.Payload.Plugin,
		"task_type":      taskType,
		"origin_task_id": task.TaskID,
	}); err != nil {
		return protocol.ActionOutcome{}, err
	}

	return protocol.ActionOutcome{
		RequestID: request.RequestID,
		Status:    protocol.StatusExecuted,
		Detail:    "task_enqueued",
		Output:    mustJSON(map[string]string{"task_type": taskType, "project": project}),
	}, nil
}

func riskTierOrDefault(tier *protocol.RiskTier) protocol.RiskTier {
	if tier == nil {
		return protocol.RiskSafe
	}
	return *tier
}
