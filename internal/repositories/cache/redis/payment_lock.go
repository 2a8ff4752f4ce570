package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	portsrepo "github.com/openretail/pos_backoffice/internal/core/ports/repositories"
)

// LockStore implements per-invoice charge mutual exclusion on top of redis
// SET NX with a TTL. The TTL bounds how long a crashed holder can block an
// invoice; the DB partial unique index remains the durable backstop.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

var _ portsrepo.PaymentLocker = (*LockStore)(nil)

// AcquireInvoiceLock attempts to acquire the charge lock for an invoice.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireInvoiceLock(ctx context.Context, invoiceID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:invoice:%s", invoiceID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseInvoiceLock releases the charge lock for an invoice.
func (s *LockStore) ReleaseInvoiceLock(ctx context.Context, invoiceID string) error {
	key := fmt.Sprintf("lock:invoice:%s", invoiceID)

	return s.client.Del(ctx, key).Err()
}
