package finance

import (
	"context"
	"errors"
	"testing"

	"github.com/arflow/backend/internal/domain/customer"
	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReceiptHandler_Handle(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*paymentFixture, *MockReceiptSender, *ReceiptHandler, *MockOrganizationRepository) {
		f := newPaymentFixture(t)
		sender := new(MockReceiptSender)
		orgs := new(MockOrganizationRepository)
		org, err := identity.NewOrganization("Northwind Traders", "northwind")
		require.NoError(t, err)
		org.ID = f.orgID
		orgs.On("FindByID", mock.Anything, f.orgID).Return(org, nil).Maybe()
		h := NewReceiptHandler(f.payments, f.docs, f.customers, orgs, sender, zap.NewNop())
		return f, sender, h, orgs
	}

	t.Run("subscribes to completed payments", func(t *testing.T) {
		_, _, h, _ := setup(t)
		assert.Equal(t, []string{finance.EventTypePaymentCreated}, h.EventTypes())
	})

	t.Run("sends a receipt listing the paid documents", func(t *testing.T) {
		f, sender, h, _ := setup(t)
		sender.On("SendPaymentReceipt", mock.Anything, mock.Anything).Return(nil)
		payment := f.storedCompletedPayment(t, "150.00", "100.00")

		require.NoError(t, h.Handle(ctx, finance.NewPaymentCreatedEvent(payment)))

		receipt := sender.Calls[0].Arguments.Get(1).(PaymentReceipt)
		assert.Equal(t, "Northwind Traders", receipt.OrganizationName)
		assert.Equal(t, "ap@c-001.test", receipt.Email)
		assert.Equal(t, payment.PaymentNumber, receipt.PaymentNumber)
		assert.True(t, dec("50").Equal(receipt.Unapplied))
		require.Len(t, receipt.Lines, 1)
		assert.Equal(t, "INV-1", receipt.Lines[0].DocumentNumber)
		assert.True(t, dec("100").Equal(receipt.Lines[0].Amount))
	})

	t.Run("customers without email get nothing", func(t *testing.T) {
		f, sender, h, _ := setup(t)
		silent, err := customer.NewCustomer(f.orgID, "C-010", customer.Details{CompanyName: "Quiet Co"})
		require.NoError(t, err)
		f.customers.On("FindByIDForOrg", mock.Anything, f.orgID, silent.ID).Return(silent, nil)

		resp, err := f.svc.CreateManualPayment(ctx, staffActor(f.orgID, identity.RoleManager), CreateManualPaymentRequest{
			CustomerID: silent.ID,
			Amount:     dec("5.00"),
			Method:     "CASH",
		})
		require.NoError(t, err)
		payment := f.payments.get(resp.ID)

		require.NoError(t, h.Handle(ctx, finance.NewPaymentCreatedEvent(&payment)))
		sender.AssertNotCalled(t, "SendPaymentReceipt", mock.Anything, mock.Anything)
	})

	t.Run("delivery errors are returned to the bus", func(t *testing.T) {
		f, sender, h, _ := setup(t)
		sender.On("SendPaymentReceipt", mock.Anything, mock.Anything).Return(errors.New("resend: 503"))
		payment := f.storedCompletedPayment(t, "10.00", "10.00")

		err := h.Handle(ctx, finance.NewPaymentCreatedEvent(payment))
		assert.ErrorContains(t, err, "resend: 503")
	})
}
