package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPermissionsTable(t *testing.T) {
	t.Parallel()
	perms := NewPermissions()

	for _, action := range []Action{ActionSetRole, ActionListUsers} {
		require.True(t, perms.Has(RoleAdmin, action), "admin should hold %s", action)
		require.False(t, perms.Has(RoleUser, action), "user should not hold %s", action)
	}

	require.False(t, perms.Has(Role("SUPERUSER"), ActionSetRole))
	require.False(t, perms.Has(RoleAdmin, Action("made:up")))
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	role, ok := ParseRole("ADMIN")
	require.True(t, ok)
	require.Equal(t, RoleAdmin, role)

	role, ok = ParseRole("USER")
	require.True(t, ok)
	require.Equal(t, RoleUser, role)

	for _, s := range []string{"", "admin", "root", "User"} {
		_, ok := ParseRole(s)
		require.False(t, ok, "%q should not parse", s)
	}
}
