package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/molino-storefront/pkg/keylock"
)

// Repository persists cart rows per session.
type Repository interface {
	// Load returns the rows for session, or nil when none are stored. Data
	// that cannot be decoded yields an error matching ErrCorruptState.
	Load(ctx context.Context, session string) ([]Item, error)
	// Save replaces the rows for session.
	Save(ctx context.Context, session string, items []Item) error
}

// Store applies cart operations to persisted per-session carts. Operations on
// one session are serialized within the process.
type Store struct {
	repo  Repository
	locks keylock.Striped
}

// NewStore creates a Store over repo.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// Get returns the cart for session.
func (s *Store) Get(ctx context.Context, session string) (Snapshot, error) {
	unlock := s.locks.Lock(session)
	defer unlock()

	c, err := s.load(ctx, session)
	if err != nil {
		return Snapshot{}, err
	}
	return c.Snapshot(), nil
}

// Add merges item into the cart for session.
func (s *Store) Add(ctx context.Context, session string, item Item) (Snapshot, error) {
	return s.update(ctx, session, func(c *Cart) error {
		return c.Add(item)
	})
}

// Remove drops id from the cart for session.
func (s *Store) Remove(ctx context.Context, session, id string) (Snapshot, error) {
	return s.update(ctx, session, func(c *Cart) error {
		c.Remove(id)
		return nil
	})
}

// SetQuantity sets the quantity of id; zero or less removes the row.
func (s *Store) SetQuantity(ctx context.Context, session, id string, qty int) (Snapshot, error) {
	return s.update(ctx, session, func(c *Cart) error {
		c.SetQuantity(id, qty)
		return nil
	})
}

// Clear empties the cart for session.
func (s *Store) Clear(ctx context.Context, session string) (Snapshot, error) {
	return s.update(ctx, session, func(c *Cart) error {
		c.Clear()
		return nil
	})
}

func (s *Store) update(ctx context.Context, session string, fn func(*Cart) error) (Snapshot, error) {
	unlock := s.locks.Lock(session)
	defer unlock()

	c, err := s.load(ctx, session)
	if err != nil {
		return Snapshot{}, err
	}
	if err := fn(c); err != nil {
		return Snapshot{}, err
	}
	if err := s.repo.Save(ctx, session, c.Items()); err != nil {
		return Snapshot{}, errors.Wrap(err, "save cart")
	}
	return c.Snapshot(), nil
}

// load reads the cart, starting over with an empty one when the stored state
// is corrupt.
func (s *Store) load(ctx context.Context, session string) (*Cart, error) {
	items, err := s.repo.Load(ctx, session)
	switch {
	case errors.Is(err, ErrCorruptState):
		zctx.From(ctx).Warn("Discarding corrupt cart state",
			zap.String("session", session),
			zap.Error(err),
		)
		return &Cart{}, nil
	case err != nil:
		return nil, errors.Wrap(err, "load cart")
	}
	return New(items), nil
}
