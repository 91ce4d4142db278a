// Package memory provides in-process storage used when no database is
// configured.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/xenking/molino-storefront/internal/domain/checkout"
	"github.com/xenking/molino-storefront/internal/storage"
)

type blobKey struct {
	namespace string
	session   string
}

type blob struct {
	data      []byte
	updatedAt time.Time
}

// Blobs is a storage.Blobs held in a map. Entries idle longer than the TTL
// are evicted by Sweep.
type Blobs struct {
	mu   sync.RWMutex
	data map[blobKey]blob
	ttl  time.Duration
	now  func() time.Time
}

var _ storage.Blobs = (*Blobs)(nil)

// NewBlobs creates Blobs. A ttl of zero keeps entries forever.
func NewBlobs(ttl time.Duration) *Blobs {
	return &Blobs{
		data: make(map[blobKey]blob),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (b *Blobs) Get(_ context.Context, namespace, session string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.data[blobKey{namespace, session}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return slices.Clone(v.data), nil
}

func (b *Blobs) Put(_ context.Context, namespace, session string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[blobKey{namespace, session}] = blob{data: slices.Clone(data), updatedAt: b.now()}
	return nil
}

// Sweep evicts expired entries and returns how many were removed.
func (b *Blobs) Sweep() int {
	if b.ttl <= 0 {
		return 0
	}
	cutoff := b.now().Add(-b.ttl)

	b.mu.Lock()
	defer b.mu.Unlock()

	var n int
	for k, v := range b.data {
		if v.updatedAt.Before(cutoff) {
			delete(b.data, k)
			n++
		}
	}
	return n
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (b *Blobs) StartSweeper(ctx context.Context, interval time.Duration) {
	if b.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.Sweep()
			}
		}
	}()
}

// DefaultLedgerLimit bounds a Ledger created without an explicit limit.
const DefaultLedgerLimit = 10_000

// Ledger keeps the most recent checkout entries in memory. Once the limit
// is reached the oldest entry is dropped for each new one.
type Ledger struct {
	mu      sync.Mutex
	limit   int
	entries []checkout.Entry
}

var _ checkout.Ledger = (*Ledger)(nil)

// NewLedger creates a Ledger holding at most limit entries. A limit of zero
// or less uses DefaultLedgerLimit.
func NewLedger(limit int) *Ledger {
	return &Ledger{limit: limit}
}

func (l *Ledger) Record(_ context.Context, e checkout.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := l.limit
	if limit <= 0 {
		limit = DefaultLedgerLimit
	}
	if over := len(l.entries) + 1 - limit; over > 0 {
		l.entries = slices.Delete(l.entries, 0, over)
	}
	l.entries = append(l.entries, e)
	return nil
}

// Entries returns recorded entries for orderID, or all entries when orderID
// is empty.
func (l *Ledger) Entries(orderID string) []checkout.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if orderID == "" {
		return slices.Clone(l.entries)
	}
	var out []checkout.Entry
	for _, e := range l.entries {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out
}
