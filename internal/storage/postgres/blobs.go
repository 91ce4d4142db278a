package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/molino-storefront/internal/storage"
)

const (
	getBlobSQL = `SELECT payload FROM session_state WHERE namespace = $1 AND session_id = $2`

	putBlobSQL = `
INSERT INTO session_state (namespace, session_id, payload, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, session_id)
DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`

	sweepBlobsSQL = `DELETE FROM session_state WHERE updated_at < $1`
)

var _ storage.Blobs = (*Blobs)(nil)

// Blobs implements storage.Blobs on the session_state table.
type Blobs struct {
	pool *pgxpool.Pool
}

// NewBlobs returns Blobs backed by pool.
func NewBlobs(pool *pgxpool.Pool) *Blobs {
	return &Blobs{pool: pool}
}

// Get returns the payload for (namespace, session), or storage.ErrNotFound.
func (b *Blobs) Get(ctx context.Context, namespace, session string) ([]byte, error) {
	var payload []byte
	err := b.pool.QueryRow(ctx, getBlobSQL, namespace, session).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s/%s", namespace, session)
	}
	return payload, nil
}

// Put upserts the payload for (namespace, session).
func (b *Blobs) Put(ctx context.Context, namespace, session string, data []byte) error {
	if _, err := b.pool.Exec(ctx, putBlobSQL, namespace, session, data); err != nil {
		return errors.Wrapf(err, "put %s/%s", namespace, session)
	}
	return nil
}

// Sweep deletes state not updated since before.
func (b *Blobs) Sweep(ctx context.Context, before time.Time) (int64, error) {
	tag, err := b.pool.Exec(ctx, sweepBlobsSQL, before)
	if err != nil {
		return 0, errors.Wrap(err, "sweep session state")
	}
	return tag.RowsAffected(), nil
}
