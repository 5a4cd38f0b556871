package internal

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// ResyncCustomers reconciles every stored Stripe customer. CONCURRENCY
// bounds the parallel Stripe calls (default 4).
func ResyncCustomers() error {
	concurrency := 4
	if v := os.Getenv("CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid CONCURRENCY %q", v)
		}
		concurrency = n
	}

	deps, err := newSyncDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize script: %w", err)
	}
	defer deps.db.Close()

	start := time.Now()
	result, err := deps.sync.SyncAll(deps.syncContext(), concurrency)
	if err != nil {
		return fmt.Errorf("failed to resync customers: %w", err)
	}

	log.Printf("Resynced %d/%d customers in %s\n", result.Synced, result.Total, time.Since(start).Round(time.Millisecond))
	for customerID, err := range result.Failed {
		log.Printf("  %s: %v\n", customerID, err)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d customers failed to resync", len(result.Failed))
	}
	return nil
}

// ResyncUser reconciles the subscriptions and invoices of USER_ID
func ResyncUser() error {
	userID := os.Getenv("USER_ID")
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}

	deps, err := newSyncDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize script: %w", err)
	}
	defer deps.db.Close()

	ctx := deps.syncContext()
	result, err := deps.sync.SyncUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resync user: %w", err)
	}
	invoices, err := deps.sync.SyncInvoices(ctx, result.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to resync invoices: %w", err)
	}

	log.Printf("Customer %s: %d subscription rows, %d slots created, %d slots retired, %d invoices\n",
		result.CustomerID, len(result.Records), result.SlotsCreated, result.SlotsRetired, invoices)
	for _, rec := range result.Records {
		log.Printf("  %-32s %-10s %-12s\n", rec.SubscriptionID, rec.SubscriptionType, rec.Status)
	}
	return nil
}
