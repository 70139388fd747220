package audit

import (
	"testing"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLog(t *testing.T) {
	orgID := uuid.New()

	t.Run("drops nil ids", func(t *testing.T) {
		nilID := uuid.Nil
		log, err := NewLog(orgID, &nilID, ActionLoginFailed, "User", &nilID)
		require.NoError(t, err)
		assert.Nil(t, log.UserID)
		assert.Nil(t, log.EntityID)
	})

	t.Run("requires action and organization", func(t *testing.T) {
		_, err := NewLog(orgID, nil, " ", "", nil)
		assert.Equal(t, "INVALID_ACTION", shared.ErrorCode(err))

		_, err = NewLog(uuid.Nil, nil, ActionLoginSucceeded, "", nil)
		assert.Equal(t, "INVALID_ORGANIZATION", shared.ErrorCode(err))
	})

	t.Run("request details and metadata", func(t *testing.T) {
		log, err := NewLog(orgID, nil, ActionSyncTriggered, "SyncLog", nil)
		require.NoError(t, err)
		log.WithRequest("10.0.0.1", "curl/8").With("entity", "DOCUMENTS")
		assert.Equal(t, "10.0.0.1", log.IPAddress)
		assert.Equal(t, "DOCUMENTS", log.Metadata["entity"])
	})
}

func TestNewLogFromEvent(t *testing.T) {
	payment, err := finance.NewManualPayment(uuid.New(), finance.NewPaymentParams{
		CustomerID: uuid.New(),
		Amount:     decimal.RequireFromString("42.50"),
		Method:     finance.PaymentMethodACH,
	})
	require.NoError(t, err)
	event := payment.GetDomainEvents()[0]

	log, err := NewLogFromEvent(event)

	require.NoError(t, err)
	assert.Equal(t, finance.EventTypePaymentCreated, log.Action)
	assert.Equal(t, finance.AggregateTypePayment, log.EntityType)
	assert.Equal(t, payment.ID, *log.EntityID)
	assert.Equal(t, payment.OrganizationID, log.OrganizationID)
	assert.Equal(t, payment.PaymentNumber, log.Metadata["payment_number"])
	assert.Equal(t, "42.5", log.Metadata["amount"])
	assert.NotContains(t, log.Metadata, "organization_id")
}
