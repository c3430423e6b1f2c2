// Package skillregistry implements the strict scoped skill-registry loader:
// deny-unknown-fields at both the registry and the record level, a required
// schema_version of 1, a scope that must match the caller's expectation,
// and per-record name/trust/source validation.
package skillregistry

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/odin-run/odin/internal/application/apperrors"
	"github.com/odin-run/odin/internal/domain/protocol"
	"github.com/odin-run/odin/internal/domain/schema"
)

// wireRegistry and wireSkill mirror the on-disk shape exactly so
// yaml.DisallowUnknownField can reject any field the schema doesn't name.
type wireRegistry struct {
	SchemaVersion uint32      `yaml:"schema_version"`
	Scope         string      `yaml:"scope"`
	Skills        []wireSkill `yaml:"skills"`
}

type wireSkill struct {
	Name          string           `yaml:"name"`
	TrustLevel    string           `yaml:"trust_level"`
	Source        string           `yaml:"source"`
	PinnedVersion string           `yaml:"pinned_version"`
	Capabilities  []wireCapability `yaml:"capabilities"`
}

type wireCapability struct {
	ID    string   `yaml:"id"`
	Scope []string `yaml:"scope"`
}

var sourcePrefixes = []string{"global:", "project:", "user:"}

// ParseScopedRegistry decodes raw as a scoped skill registry, enforcing a
// strict schema: unknown fields at any level are rejected, schema_version
// must be 1, scope must lowercase-match expectedScope, and every record
// must carry a unique trimmed name, a valid trust level, and a non-empty
// source (with its global:/project:/user: prefix, if present, lowercased).
// When compiler is non-nil, the decoded document is additionally validated
// against the compiled skill_registry JSON Schema, the same backstop
// pluginmanifest.Parse runs against odin.plugin.yaml.
func ParseScopedRegistry(raw []byte, expectedScope protocol.SkillScope, compiler *schema.Compiler) (protocol.SkillRegistry, error) {
	var wire wireRegistry
	if err := yaml.UnmarshalWithOptions(raw, &wire, yaml.DisallowUnknownField()); err != nil {
		return protocol.SkillRegistry{}, apperrors.InvalidInputf("skill registry: %v", err)
	}

	if compiler != nil {
		asJSON, err := yaml.YAMLToJSON(raw)
		if err != nil {
			return protocol.SkillRegistry{}, apperrors.InvalidInputf("skill registry: failed to normalize for validation: %v", err)
		}
		if err := compiler.ValidateJSON(schema.SkillRegistry, asJSON); err != nil {
			return protocol.SkillRegistry{}, apperrors.InvalidInputf("skill registry failed schema validation: %v", err)
		}
	}

	if wire.SchemaVersion != 1 {
		return protocol.SkillRegistry{}, apperrors.InvalidInput("skill registry schema_version must be 1")
	}

	scope := protocol.SkillScope(strings.ToLower(strings.TrimSpace(wire.Scope)))
	if scope != expectedScope {
		return protocol.SkillRegistry{}, apperrors.InvalidInputf("skill registry scope %q does not match expected scope %q", wire.Scope, expectedScope)
	}

	seen := make(map[string]struct{}, len(wire.Skills))
	records := make([]protocol.SkillRecord, 0, len(wire.Skills))
	for i, skill := range wire.Skills {
		record, err := parseSkillRecord(skill)
		if err != nil {
			return protocol.SkillRegistry{}, apperrors.InvalidInputf("skill registry: entry %d: %v", i, err)
		}
		if _, dup := seen[record.Name]; dup {
			return protocol.SkillRegistry{}, apperrors.InvalidInputf("skill registry: duplicate skill name %q", record.Name)
		}
		seen[record.Name] = struct{}{}
		records = append(records, record)
	}

	return protocol.SkillRegistry{SchemaVersion: 1, Scope: scope, Skills: records}, nil
}

func parseSkillRecord(skill wireSkill) (protocol.SkillRecord, error) {
	name := strings.TrimSpace(skill.Name)
	if name == "" {
		return protocol.SkillRecord{}, apperrors.InvalidInput("skill name is required")
	}

	trust := protocol.TrustLevel(strings.TrimSpace(skill.TrustLevel))
	switch trust {
	case protocol.TrustTrusted, protocol.TrustCaution, protocol.TrustUntrusted:
	default:
		return protocol.SkillRecord{}, apperrors.InvalidInputf("skill %q: trust_level %q is invalid", name, skill.TrustLevel)
	}

	source := strings.TrimSpace(skill.Source)
	if source == "" {
		return protocol.SkillRecord{}, apperrors.InvalidInputf("skill %q: source is required", name)
	}
	source = normalizeSourcePrefix(source)

	capabilities := make([]protocol.DelegationCapability, 0, len(skill.Capabilities))
	for _, c := range skill.Capabilities {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return protocol.SkillRecord{}, apperrors.InvalidInputf("skill %q: capability id is required", name)
		}
		capabilities = append(capabilities, protocol.DelegationCapability{ID: id, Scope: c.Scope})
	}

	return protocol.SkillRecord{
		Name:          name,
		TrustLevel:    trust,
		Source:        source,
		PinnedVersion: strings.TrimSpace(skill.PinnedVersion),
		Capabilities:  capabilities,
	}, nil
}

// normalizeSourcePrefix lowercases a leading global:/project:/user: prefix
// (case-insensitive) and keeps the remainder byte-for-byte; any other
// source string is returned unchanged.
func normalizeSourcePrefix(source string) string {
	lower := strings.ToLower(source)
	for _, prefix := range sourcePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return prefix + source[len(prefix):]
		}
	}
	return source
}

// Resolve looks up name by precedence user -> project -> global, trimming
// the query name before comparison. Each non-nil registry passed must
// already carry the scope its position implies; Resolve itself performs no
// re-validation beyond that check.
func Resolve(name string, user, project, global *protocol.SkillRegistry) (protocol.SkillRecord, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return protocol.SkillRecord{}, apperrors.InvalidInput("skill name is required")
	}

	for _, candidate := range []struct {
		registry *protocol.SkillRegistry
		scope    protocol.SkillScope
	}{
		{user, protocol.ScopeUser},
		{project, protocol.ScopeProject},
		{global, protocol.ScopeGlobal},
	} {
		if candidate.registry == nil {
			continue
		}
		if candidate.registry.Scope != candidate.scope {
			return protocol.SkillRecord{}, apperrors.InvalidInputf("skill registry scope mismatch: expected %q, got %q", candidate.scope, candidate.registry.Scope)
		}
		for _, record := range candidate.registry.Skills {
			if record.Name == trimmed {
				cloned := record
				cloned.Capabilities = append([]protocol.DelegationCapability(nil), record.Capabilities...)
				return cloned, nil
			}
		}
	}

	return protocol.SkillRecord{}, fmt.Errorf("skill %q not found in any registry", trimmed)
}
