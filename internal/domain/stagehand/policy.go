// Package stagehand implements the sandbox policy for the observe-only
// browser plugin: a domain allowlist with optional wildcard subdomains, a
// workspace containment check, and a command allowlist with shell-safety
// and path-containment rules. Decisions are always allow/deny, never an
// error; unknown sensitive inputs default to deny (fail-closed).
package stagehand

import (
	"path/filepath"
	"strings"

	"github.com/odin-run/odin/internal/domain/pathsafe"
	"github.com/odin-run/odin/internal/domain/protocol"
)

// ActionKind discriminates an Action.
type ActionKind int

const (
	ActionObserveURL ActionKind = iota
	ActionReadWorkspace
	ActionRunCommand
	ActionLogin
	ActionPayment
	ActionPiiSubmit
	ActionFileUpload
)

// Action is the input to Policy.Evaluate.
type Action struct {
	Kind  ActionKind
	Value string
}

func ObserveURL(url string) Action      { return Action{Kind: ActionObserveURL, Value: url} }
func ReadWorkspace(path string) Action  { return Action{Kind: ActionReadWorkspace, Value: path} }
func RunCommand(command string) Action  { return Action{Kind: ActionRunCommand, Value: command} }
func Login() Action                     { return Action{Kind: ActionLogin} }
func Payment() Action                   { return Action{Kind: ActionPayment} }
func PiiSubmit() Action                 { return Action{Kind: ActionPiiSubmit} }
func FileUpload() Action                { return Action{Kind: ActionFileUpload} }

// Decision is the outcome of evaluating an Action against a Policy.
type Decision struct {
	Allowed    bool
	ReasonCode string
}

func allow(reasonCode string) Decision { return Decision{Allowed: true, ReasonCode: reasonCode} }
func deny(reasonCode string) Decision  { return Decision{Allowed: false, ReasonCode: reasonCode} }

// DomainRule is one entry of the domain allowlist.
type DomainRule struct {
	Host            string
	AllowSubdomains bool
}

// Policy is the stagehand sandbox: observe-only mode, domain allowlist,
// workspace allowlist, command allowlist.
type Policy struct {
	enabled           bool
	allowedDomains    map[DomainRule]struct{}
	allowedWorkspaces map[string]struct{}
	allowedCommands   map[string]struct{}
}

// New returns the default, disabled policy.
func New() *Policy {
	return &Policy{
		allowedDomains:    make(map[DomainRule]struct{}),
		allowedWorkspaces: make(map[string]struct{}),
		allowedCommands:   make(map[string]struct{}),
	}
}

// Enabled reports whether the sandbox is switched on.
func (p *Policy) Enabled() bool {
	return p.enabled
}

// WithEnabled sets the enabled flag.
func (p *Policy) WithEnabled(enabled bool) *Policy {
	p.enabled = enabled
	return p
}

// WithDomains registers domain allowlist entries, normalizing each.
func (p *Policy) WithDomains(domains ...string) *Policy {
	for _, d := range domains {
		if rule, ok := normalizeDomain(d); ok {
			p.allowedDomains[rule] = struct{}{}
		}
	}
	return p
}

// WithWorkspaces registers workspace allowlist entries, normalizing each.
func (p *Policy) WithWorkspaces(workspaces ...string) *Policy {
	for _, w := range workspaces {
		if norm, ok := normalizeWorkspace(w); ok {
			p.allowedWorkspaces[norm] = struct{}{}
		}
	}
	return p
}

// WithCommands registers command allowlist entries (single-token names).
func (p *Policy) WithCommands(commands ...string) *Policy {
	for _, c := range commands {
		if norm, ok := normalizeCommandScopeEntry(c); ok {
			p.allowedCommands[norm] = struct{}{}
		}
	}
	return p
}

// FromEnvelope builds a Policy from a PluginPermissionEnvelope. If
// envelope.Plugin != "stagehand" the default (disabled) policy is
// returned.
func FromEnvelope(envelope protocol.PluginPermissionEnvelope) *Policy {
	policy := New()
	if envelope.Plugin != "stagehand" {
		return policy
	}

	for _, permission := range envelope.Permissions {
		switch permission.ID {
		case "browser.observe", "stagehand.observe_url", "stagehand.observe_domain":
			policy.WithDomains(permission.Scope...)
		case "workspace.read", "stagehand.workspace.read":
			policy.WithWorkspaces(permission.Scope...)
		case "command.run", "stagehand.command.run":
			policy.WithCommands(permission.Scope...)
		case "stagehand.enabled":
			if envelope.TrustLevel != protocol.TrustUntrusted {
				policy.enabled = true
			}
		}
	}

	return policy
}

// Evaluate decides whether action is permitted under p.
func (p *Policy) Evaluate(action Action) Decision {
	switch action.Kind {
	case ActionLogin:
		return deny("action_login_disallowed")
	case ActionPayment:
		return deny("action_payment_disallowed")
	case ActionPiiSubmit:
		return deny("action_pii_submit_disallowed")
	case ActionFileUpload:
		return deny("action_file_upload_disallowed")
	}

	if !p.enabled {
		return deny("plugin_disabled")
	}

	switch action.Kind {
	case ActionObserveURL:
		return p.evaluateObserveURL(action.Value)
	case ActionReadWorkspace:
		return p.evaluateWorkspace(action.Value)
	case ActionRunCommand:
		return p.evaluateCommand(action.Value)
	default:
		return deny("plugin_disabled")
	}
}

func (p *Policy) evaluateObserveURL(url string) Decision {
	host, ok := extractHost(url)
	if !ok {
		return deny("invalid_url")
	}
	if len(p.allowedDomains) == 0 {
		return deny("domain_not_allowlisted")
	}
	for rule := range p.allowedDomains {
		if domainMatches(host, rule) {
			return allow("domain_allowlisted")
		}
	}
	return deny("domain_not_allowlisted")
}

func (p *Policy) evaluateWorkspace(workspace string) Decision {
	normalized, ok := normalizeWorkspace(workspace)
	if !ok {
		return deny("workspace_not_allowlisted")
	}
	if p.isWorkspaceAllowlisted(normalized) {
		return allow("workspace_allowlisted")
	}
	return deny("workspace_not_allowlisted")
}

func (p *Policy) isWorkspaceAllowlisted(workspace string) bool {
	for allowed := range p.allowedWorkspaces {
		if pathsafe.IsWithinOrEqual(workspace, allowed) {
			return true
		}
	}
	return false
}

const shellMetacharacters = ";|&><`$()\n\r'\""

func (p *Policy) evaluateCommand(command string) Decision {
	if strings.ContainsAny(command, shellMetacharacters) {
		return deny("command_unsafe_shell_syntax")
	}

	tokens := strings.Fields(command)
	if len(tokens) == 0 {
		return deny("command_not_allowlisted")
	}

	commandName, ok := normalizeCommandScopeEntry(tokens[0])
	if !ok {
		return deny("command_not_allowlisted")
	}
	if _, known := p.allowedCommands[commandName]; !known {
		return deny("command_not_allowlisted")
	}

	if len(p.allowedWorkspaces) == 0 {
		return deny("command_workspace_policy_missing")
	}

	pathValues := extractPathValues(tokens[1:])

	for _, value := range pathValues {
		if !filepath.IsAbs(value) && strings.Contains(value, "..") {
			return deny("command_relative_path_traversal")
		}
	}
	for _, value := range pathValues {
		if !filepath.IsAbs(value) {
			return deny("command_relative_path_unscoped")
		}
	}
	for _, value := range pathValues {
		canonical, err := canonicalizeExisting(value)
		if err != nil {
			return deny("command_path_outside_allowlisted_workspace")
		}
		if !p.isWorkspaceAllowlisted(canonical) {
			return deny("command_path_outside_allowlisted_workspace")
		}
	}

	return allow("command_allowlisted")
}
