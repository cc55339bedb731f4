// Package access implements the Access Filter (spec §4.2): projecting the
// Tool Registry's full surface to the subset of tools a caller's
// AccessContext may see and invoke. Grounded on the role-intersection
// visibility check in original_source's discovery_service.py
// (_check_tool_access), generalized from a Cosmos-DB-backed RBAC config
// lookup to a role-set comparison against each ToolSchema's AllowedRoles.
package access

import (
	"sort"

	"github.com/agentoven/agentoven/toolcore/pkg/models"
)

// Filter projects a registry surface down to what an AccessContext may see.
type Filter struct {
	devMode bool
}

// New builds an Access Filter. devMode, when true, disables filtering
// globally per §6.3's DEV_MODE semantics (rule 4.2.c).
func New(devMode bool) *Filter {
	return &Filter{devMode: devMode}
}

// Surface is a filtered, deterministically ordered view of the registry,
// plus the reverse lookup used by the Tool Invoker.
type Surface struct {
	Descriptors    []models.ToolDescriptor
	Schemas        map[string]models.ToolSchema
	ToolToProvider map[string]string
}

// Visible reports whether a tool is visible to ctx, per rule 4.2: visible iff
// allowed_roles intersects the context's roles, or the context carries the
// synthetic admin role, or dev-mode is globally enabled. A tool that declares
// no allowed_roles is therefore visible only to admin callers or in dev mode.
func (f *Filter) Visible(schema models.ToolSchema, ctx models.AccessContext) bool {
	if f.devMode || ctx.IsAdmin() {
		return true
	}
	for _, allowed := range schema.AllowedRoles {
		if ctx.HasRole(allowed) {
			return true
		}
	}
	return false
}

// Project filters all schemas down to the Surface visible to ctx, ordered
// alphabetically by name so reasoning-model outputs stay reproducible across
// warm starts (spec §4.2).
func (f *Filter) Project(all []models.ToolSchema, ctx models.AccessContext) Surface {
	visible := make([]models.ToolSchema, 0, len(all))
	for _, s := range all {
		if f.Visible(s, ctx) {
			visible = append(visible, s)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i].Name < visible[j].Name })

	descriptors := make([]models.ToolDescriptor, 0, len(visible))
	schemas := make(map[string]models.ToolSchema, len(visible))
	toolToProvider := make(map[string]string, len(visible))
	for _, s := range visible {
		descriptors = append(descriptors, models.ToolDescriptor{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Parameters,
		})
		schemas[s.Name] = s
		toolToProvider[s.Name] = s.ProviderID
	}

	return Surface{Descriptors: descriptors, Schemas: schemas, ToolToProvider: toolToProvider}
}
