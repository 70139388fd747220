package authz

import (
	"context"
	"testing"

	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actor(role identity.Role) Actor {
	return Actor{OrganizationID: uuid.New(), UserID: uuid.New(), Role: role}
}

func TestActor_Require(t *testing.T) {
	tests := []struct {
		role   identity.Role
		admin  bool
		writer bool
		staff  bool
	}{
		{identity.RoleAdmin, true, true, true},
		{identity.RoleManager, false, true, true},
		{identity.RoleViewer, false, false, true},
		{identity.RoleCustomer, false, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			a := actor(tt.role)
			assert.Equal(t, tt.admin, a.RequireAdmin() == nil)
			assert.Equal(t, tt.writer, a.RequireWriter() == nil)
			assert.Equal(t, tt.staff, a.RequireStaff() == nil)
		})
	}

	t.Run("forbidden carries the role", func(t *testing.T) {
		err := actor(identity.RoleViewer).RequireAdmin()
		assert.Equal(t, "FORBIDDEN", shared.ErrorCode(err))
		assert.Contains(t, err.Error(), "VIEWER")
	})

	t.Run("missing organization is unauthorized", func(t *testing.T) {
		err := Actor{Role: identity.RoleAdmin}.RequireAdmin()
		assert.Equal(t, "UNAUTHORIZED", shared.ErrorCode(err))
	})
}

func TestActor_CustomerScope(t *testing.T) {
	own := uuid.New()
	other := uuid.New()
	portal := actor(identity.RoleCustomer)
	portal.CustomerID = &own

	t.Run("staff see everyone", func(t *testing.T) {
		a := actor(identity.RoleViewer)
		assert.True(t, a.CanSeeCustomer(other))
		scoped, err := a.ScopeCustomer(nil)
		require.NoError(t, err)
		assert.Nil(t, scoped)
	})

	t.Run("portal user sees only their customer", func(t *testing.T) {
		assert.True(t, portal.CanSeeCustomer(own))
		assert.False(t, portal.CanSeeCustomer(other))
		assert.True(t, shared.IsNotFound(portal.RequireCustomerAccess(other)))

		scoped, err := portal.ScopeCustomer(nil)
		require.NoError(t, err)
		assert.Equal(t, own, *scoped)

		_, err = portal.ScopeCustomer(&other)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("unlinked portal user is forbidden", func(t *testing.T) {
		_, err := actor(identity.RoleCustomer).ScopeCustomer(nil)
		assert.Equal(t, "FORBIDDEN", shared.ErrorCode(err))
	})
}

func TestActorContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	a := actor(identity.RoleManager)
	got, ok := FromContext(WithActor(context.Background(), a))
	require.True(t, ok)
	assert.Equal(t, a.UserID, got.UserID)

	sys := System(a.OrganizationID)
	assert.True(t, sys.IsSystem())
	assert.Nil(t, sys.UserPtr())
	assert.Equal(t, a.UserID, *a.UserPtr())
}
