// Package storage adapts per-session cart and chat state to a blob store.
package storage

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/molino-storefront/internal/domain/cart"
	"github.com/xenking/molino-storefront/internal/domain/chat"
)

// ErrNotFound is returned by Blobs.Get for a missing key.
var ErrNotFound = errors.New("blob not found")

// Namespaces partition session state by kind.
const (
	NamespaceCart = "cart"
	NamespaceChat = "chat"
)

// Blobs stores opaque payloads keyed by namespace and session.
type Blobs interface {
	Get(ctx context.Context, namespace, session string) ([]byte, error)
	Put(ctx context.Context, namespace, session string, data []byte) error
}

// CartRepository implements cart.Repository over Blobs.
type CartRepository struct {
	blobs Blobs
}

var _ cart.Repository = (*CartRepository)(nil)

// NewCartRepository creates a CartRepository.
func NewCartRepository(blobs Blobs) *CartRepository {
	return &CartRepository{blobs: blobs}
}

func (r *CartRepository) Load(ctx context.Context, session string) ([]cart.Item, error) {
	data, err := r.blobs.Get(ctx, NamespaceCart, session)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return cart.Unmarshal(data)
}

func (r *CartRepository) Save(ctx context.Context, session string, items []cart.Item) error {
	if err := r.blobs.Put(ctx, NamespaceCart, session, cart.Marshal(items)); err != nil {
		return errors.Wrap(err, "put cart")
	}
	return nil
}

// ChatRepository implements chat.Repository over Blobs.
type ChatRepository struct {
	blobs Blobs
}

var _ chat.Repository = (*ChatRepository)(nil)

// NewChatRepository creates a ChatRepository.
func NewChatRepository(blobs Blobs) *ChatRepository {
	return &ChatRepository{blobs: blobs}
}

func (r *ChatRepository) Load(ctx context.Context, session string) (*chat.State, error) {
	data, err := r.blobs.Get(ctx, NamespaceChat, session)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get chat")
	}
	st, err := chat.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *ChatRepository) Save(ctx context.Context, session string, st chat.State) error {
	if err := r.blobs.Put(ctx, NamespaceChat, session, chat.Marshal(st)); err != nil {
		return errors.Wrap(err, "put chat")
	}
	return nil
}
