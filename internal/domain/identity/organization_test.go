package identity

import (
	"testing"

	"github.com/arflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrganization(t *testing.T) {
	t.Run("creates active organization with defaults", func(t *testing.T) {
		org, err := NewOrganization("  Acme Corp ", "Acme-Corp")

		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", org.Name)
		assert.Equal(t, "acme-corp", org.Slug)
		assert.Equal(t, "USD", org.Currency)
		assert.Equal(t, "UTC", org.Timezone)
		assert.True(t, org.IsActive())
	})

	t.Run("rejects bad slug", func(t *testing.T) {
		_, err := NewOrganization("Acme", "a")
		assert.Equal(t, "INVALID_SLUG", shared.ErrorCode(err))

		_, err = NewOrganization("Acme", "acme_corp")
		assert.Equal(t, "INVALID_SLUG", shared.ErrorCode(err))
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewOrganization(" ", "acme")
		assert.Equal(t, "INVALID_NAME", shared.ErrorCode(err))
	})
}

func TestOrganization_Update(t *testing.T) {
	org, err := NewOrganization("Acme", "acme")
	require.NoError(t, err)

	t.Run("updates profile and keeps blank fields", func(t *testing.T) {
		require.NoError(t, org.Update("Acme Inc", "AR@Acme.com", "", ""))
		assert.Equal(t, "Acme Inc", org.Name)
		assert.Equal(t, "ar@acme.com", org.ContactEmail)
		assert.Equal(t, "USD", org.Currency)
		assert.Equal(t, "UTC", org.Timezone)
		assert.Equal(t, 2, org.Version)
	})

	t.Run("normalizes currency", func(t *testing.T) {
		require.NoError(t, org.Update("Acme Inc", "", "eur", "Europe/Berlin"))
		assert.Equal(t, "EUR", org.Currency)
		assert.Equal(t, "Europe/Berlin", org.Timezone)
	})

	t.Run("rejects invalid currency and email", func(t *testing.T) {
		assert.Equal(t, "INVALID_CURRENCY", shared.ErrorCode(org.Update("Acme", "", "EURO", "")))
		assert.Equal(t, "INVALID_EMAIL", shared.ErrorCode(org.Update("Acme", "bad", "", "")))
	})
}

func TestOrganization_SuspendActivate(t *testing.T) {
	org, err := NewOrganization("Acme", "acme")
	require.NoError(t, err)

	require.NoError(t, org.Suspend())
	assert.False(t, org.IsActive())
	assert.Error(t, org.Suspend())
	require.NoError(t, org.Activate())
	assert.Error(t, org.Activate())
}

func TestRole(t *testing.T) {
	assert.True(t, RoleAdmin.CanAdminister())
	assert.False(t, RoleManager.CanAdminister())
	assert.True(t, RoleManager.CanWrite())
	assert.False(t, RoleViewer.CanWrite())
	assert.True(t, RoleViewer.IsStaff())
	assert.False(t, RoleCustomer.IsStaff())
	assert.False(t, Role("ROOT").IsValid())
	assert.True(t, RoleViewer.In(RoleAdmin, RoleViewer))
}
