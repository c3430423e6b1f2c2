package skills

import (
	"github.com/odin-run/odin/internal/domain/protocol"
	"github.com/odin-run/odin/internal/infrastructure/skillregistry"
)

// Resolve looks up name across the precedence order user -> project ->
// global, delegating to skillregistry.Resolve. Any of the three registries
// may be nil when that scope has nothing loaded.
func Resolve(name string, user, project, global *protocol.SkillRegistry) (protocol.SkillRecord, error) {
	return skillregistry.Resolve(name, user, project, global)
}
