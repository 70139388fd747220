package payment

import (
	"testing"

	"github.com/arflow/backend/internal/domain/finance"
	"github.com/arflow/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGatewayFactory_New(t *testing.T) {
	f := NewGatewayFactory(zap.NewNop())

	gw, err := f.New(integration.ProviderStripe, integration.Config{}, integration.Credentials{SecretKey: "sk_test_1"})
	require.NoError(t, err)
	assert.Equal(t, finance.GatewayTypeStripe, gw.GatewayType())

	gw, err = f.New(integration.ProviderAuthorizeNet, integration.Config{Sandbox: true},
		integration.Credentials{APILoginID: "login", TransactionKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, finance.GatewayTypeAuthorizeNet, gw.GatewayType())

	_, err = f.New(integration.ProviderStripe, integration.Config{}, integration.Credentials{})
	assert.ErrorIs(t, err, ErrStripeMissingSecretKey)

	_, err = f.New(integration.ProviderAcumatica, integration.Config{}, integration.Credentials{})
	assert.ErrorIs(t, err, finance.ErrGatewayNotConfigured)
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"125.50", "USD", 12550},
		{"0.005", "USD", 1},
		{"19.994", "eur", 1999},
		{"1500", "JPY", 1500},
		{"1500.6", "jpy", 1501},
	}
	for _, tt := range tests {
		t.Run(tt.amount+tt.currency, func(t *testing.T) {
			assert.Equal(t, tt.want, toMinorUnits(decimal.RequireFromString(tt.amount), tt.currency))
		})
	}
}
