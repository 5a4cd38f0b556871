package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "user=hallmail password= dbname=hallmail host=localhost port=5432 sslmode=disable", cfg.Postgres.GetDSN())
}

func TestValidateRejectsMissingSections(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Auth.Provider = "firebase"
	assert.Error(t, cfg.Validate())

	cfg = GetDefaultConfig()
	cfg.Billing.PollInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestStripeMissingKeys(t *testing.T) {
	tests := []struct {
		name string
		cfg  StripeConfig
		want []string
	}{
		{
			name: "nothing configured",
			want: []string{"stripe.secret_key", "stripe.base_price_id", "stripe.additional_account_price_id"},
		},
		{
			name: "only prices missing",
			cfg:  StripeConfig{SecretKey: "sk_test_123"},
			want: []string{"stripe.base_price_id", "stripe.additional_account_price_id"},
		},
		{
			name: "complete",
			cfg: StripeConfig{
				SecretKey:                "sk_test_123",
				BasePriceID:              "price_base",
				AdditionalAccountPriceID: "price_additional",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.MissingKeys())
		})
	}
}
