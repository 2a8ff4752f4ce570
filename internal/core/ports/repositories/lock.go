package repositories

import (
	"context"
	"time"
)

// PaymentLocker provides per-invoice mutual exclusion for charge attempts.
// Acquire returns false without error when the lock is already held; the TTL
// bounds how long a crashed holder can block an invoice.
type PaymentLocker interface {
	AcquireInvoiceLock(ctx context.Context, invoiceID string, ttl time.Duration) (bool, error)
	ReleaseInvoiceLock(ctx context.Context, invoiceID string) error
}
