package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreEmbedded(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	schema := migrations[0].SQL
	for _, table := range []string{
		"stripe_customers",
		"stripe_user_subscriptions",
		"stripe_invoices",
		"email_configurations",
		"support_tickets",
	} {
		assert.True(t, strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table), table)
	}
	assert.Contains(t, schema, "subscription_id TEXT NOT NULL UNIQUE")
	assert.Contains(t, schema, "parent_subscription_id TEXT")
}
