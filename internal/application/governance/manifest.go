package governance

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/odin-run/odin/internal/domain/protocol"
	"github.com/odin-run/odin/internal/domain/stagehand"
)

// HandleActionWithManifest enforces a plugin's declared CapabilityManifest
// before delegating to HandleAction: the manifest must be schema_version 1,
// name the requesting plugin, grant the requested capability with a scope
// that covers the request, and — for stagehand capabilities specifically —
// pass the stagehand sandbox policy built from the manifest's own grants.
func (o *Orchestrator) HandleActionWithManifest(ctx context.Context, request protocol.ActionRequest, manifest protocol.CapabilityManifest) (protocol.ActionOutcome, error) {
	if err := validateCapability(request); err != nil {
		return protocol.ActionOutcome{}, err
	}

	var denial string
	if manifest.SchemaVersion != 1 {
		denial = "manifest_schema_version_unsupported"
	} else {
		denial = manifestDenialReason(request, manifest)
	}

	if denial != "" {
		if err := o.record(ctx, "governance.manifest.denied", request.RequestID, "", request.Capability.Project, map[string]string{
			"plugin":          request.Capability.Plugin,
			"manifest_plugin": manifest.Plugin,
			"capability":      request.Capability.Capability,
			"reason_code":     denial,
		}); err != nil {
			return protocol.ActionOutcome{}, err
		}
		return protocol.ActionOutcome{RequestID: request.RequestID, Status: protocol.StatusBlocked, Detail: denial}, nil
	}

	if err := o.record(ctx, "governance.manifest.validated", request.RequestID, "", request.Capability.Project, map[string]string{
		"plugin":          request.Capability.Plugin,
		"manifest_plugin": manifest.Plugin,
		"capability":      request.Capability.Capability,
	}); err != nil {
		return protocol.ActionOutcome{}, err
	}

	outcome, err := o.HandleAction(ctx, request)
	if err != nil {
		return outcome, err
	}

	if outcome.Status == protocol.StatusExecuted {
		if err := o.record(ctx, "governance.capability.used", request.RequestID, "", request.Capability.Project, map[string]string{
			"plugin":     request.Capability.Plugin,
			"capability": request.Capability.Capability,
		}); err != nil {
			return outcome, err
		}
	}

	return outcome, nil
}

// manifestDenialReason returns the first manifest-enforcement rule request
// fails against manifest, or "" if it passes every rule.
func manifestDenialReason(request protocol.ActionRequest, manifest protocol.CapabilityManifest) string {
	cap := request.Capability

	if manifest.Plugin != cap.Plugin {
		return "manifest_plugin_mismatch"
	}

	var granted []protocol.DelegationCapability
	for _, c := range manifest.Capabilities {
		if c.ID == cap.Capability {
			granted = append(granted, c)
		}
	}
	if len(granted) == 0 {
		return "manifest_capability_not_granted"
	}

	scopeGranted := false
	for _, c := range granted {
		if manifestScopePermits(cap.Scope, c.Scope) {
			scopeGranted = true
			break
		}
	}
	if !scopeGranted {
		return "manifest_scope_not_granted"
	}

	if protocol.IsStagehandCapability(cap.Capability) && cap.Plugin != "stagehand" {
		return "plugin_permission_denied"
	}

	return stagehandPermissionDenial(cap.Capability, request.Input, manifest)
}

// manifestScopePermits reports whether requested is covered by granted: an
// empty request only passes against an empty grant; a non-empty request
// requires every requested entry to appear in granted.
func manifestScopePermits(requested, granted []string) bool {
	if len(requested) == 0 {
		return len(granted) == 0
	}
	if len(granted) == 0 {
		return false
	}
	grantedSet := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		grantedSet[g] = struct{}{}
	}
	for _, r := range requested {
		if _, ok := grantedSet[r]; !ok {
			return false
		}
	}
	return true
}

// stagehandPermissionDenial evaluates capability/input against the
// stagehand sandbox policy built from manifest's own grants. It only
// applies when manifest.Plugin == "stagehand"; every other manifest passes
// through untouched (manifestDenialReason already blocked cross-plugin use
// of a stagehand capability above).
func stagehandPermissionDenial(capability string, input json.RawMessage, manifest protocol.CapabilityManifest) string {
	if manifest.Plugin != "stagehand" {
		return ""
	}

	action, ok := stagehandActionFromCapability(capability, input)
	if !ok {
		if strings.HasPrefix(capability, "stagehand.") {
			return "manifest_stagehand_capability_unknown"
		}
		return ""
	}

	envelope := protocol.PluginPermissionEnvelope{
		Plugin:      manifest.Plugin,
		TrustLevel:  protocol.TrustCaution,
		Permissions: manifest.Capabilities,
	}
	policy := stagehand.FromEnvelope(envelope)
	decision := policy.Evaluate(action)
	if decision.Allowed {
		return ""
	}
	return decision.ReasonCode
}

// stagehandActionFromCapability maps a capability id plus its JSON input to
// the stagehand.Action it represents. The input key read depends on the
// capability: "url" for a direct observe, "domain" for a domain-scoped
// observe (synthesized into an https URL so it can run through the same
// host-matching rules a concrete URL would), "workspace" for a read, and
// "command" for a run.
func stagehandActionFromCapability(capability string, input json.RawMessage) (stagehand.Action, bool) {
	switch capability {
	case "browser.observe", "stagehand.observe_url":
		return stagehand.ObserveURL(inputString(input, "url")), true
	case "stagehand.observe_domain":
		domain := strings.TrimSpace(inputString(input, "domain"))
		if domain == "" {
			return stagehand.ObserveURL(""), true
		}
		return stagehand.ObserveURL("https://" + domain), true
	case "workspace.read", "stagehand.workspace.read":
		return stagehand.ReadWorkspace(inputString(input, "workspace")), true
	case "command.run", "stagehand.command.run":
		return stagehand.RunCommand(inputString(input, "command")), true
	case "stagehand.login":
		return stagehand.Login(), true
	case "stagehand.payment":
		return stagehand.Payment(), true
	case "stagehand.pii_submit":
		return stagehand.PiiSubmit(), true
	case "stagehand.file_upload":
		return stagehand.FileUpload(), true
	default:
		return stagehand.Action{}, false
	}
}

func inputString(input json.RawMessage, key string) string {
	if len(input) == 0 {
		return ""
	}
	var fields map[string]any
	if err := json.Unmarshal(input, &fields); err != nil {
		return ""
	}
	value, ok := fields[key]
	if !ok {
		return ""
	}
	str, ok := value.(string)
	if !ok {
		return ""
	}
	return str
}
