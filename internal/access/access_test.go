package access

import (
	"testing"

	"github.com/agentoven/agentoven/toolcore/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schema(name string, roles ...string) models.ToolSchema {
	return models.ToolSchema{Name: name, ProviderID: "p1", AllowedRoles: roles}
}

func TestVisible_RoleIntersection(t *testing.T) {
	f := New(false)
	ctx := models.AccessContext{UserID: "u1", Roles: []string{"analyst"}}

	assert.True(t, f.Visible(schema("search", "analyst", "admin"), ctx))
	assert.False(t, f.Visible(schema("delete", "admin"), ctx))
}

func TestVisible_NoRolesMeansHiddenFromNonAdmin(t *testing.T) {
	f := New(false)
	ctx := models.AccessContext{UserID: "u1", Roles: []string{"analyst"}}
	assert.False(t, f.Visible(schema("ping"), ctx))
}

func TestVisible_AdminBypassesRoles(t *testing.T) {
	f := New(false)
	ctx := models.AccessContext{UserID: "dev", Roles: []string{"admin"}}
	assert.True(t, f.Visible(schema("delete", "owner"), ctx))
}

func TestVisible_DevModeBypassesEverything(t *testing.T) {
	f := New(true)
	ctx := models.AccessContext{UserID: "anon"}
	assert.True(t, f.Visible(schema("delete", "owner"), ctx))
}

func TestProject_OrdersAlphabeticallyAndBuildsLookup(t *testing.T) {
	f := New(false)
	ctx := models.AccessContext{UserID: "u1", Roles: []string{"analyst"}}
	all := []models.ToolSchema{
		schema("zeta", "analyst"),
		schema("alpha", "analyst"),
		schema("secret", "admin"),
	}

	surface := f.Project(all, ctx)

	require.Len(t, surface.Descriptors, 2)
	assert.Equal(t, "alpha", surface.Descriptors[0].Name)
	assert.Equal(t, "zeta", surface.Descriptors[1].Name)
	assert.Equal(t, "p1", surface.ToolToProvider["alpha"])
	_, hasSecret := surface.Schemas["secret"]
	assert.False(t, hasSecret)
}
