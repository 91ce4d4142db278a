//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go/modules/compose"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/molino-storefront/internal/domain/cart"
	"github.com/xenking/molino-storefront/internal/domain/chat"
	"github.com/xenking/molino-storefront/internal/domain/checkout"
	"github.com/xenking/molino-storefront/internal/domain/money"
	"github.com/xenking/molino-storefront/internal/storage"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dc, err := tc.NewDockerCompose("testdata/docker-compose.yml")
	if err != nil {
		log.Fatalf("compose init: %v", err)
	}
	defer func() {
		if err := dc.Down(context.Background(), tc.RemoveOrphans(true), tc.RemoveVolumes(true)); err != nil {
			log.Printf("compose down: %v", err)
		}
	}()

	err = dc.
		WaitForService("postgres", wait.ForLog("database system is ready to accept connections").WithOccurrence(2)).
		Up(ctx, tc.Wait(true))
	if err != nil {
		log.Fatalf("compose up: %v", err)
	}

	pg, err := dc.ServiceContainer(ctx, "postgres")
	if err != nil {
		log.Fatalf("postgres container: %v", err)
	}
	host, err := pg.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://molino:molino@%s:%s/molino?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn, PoolConfig{MaxConns: 4})
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	// Migrations are idempotent.
	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("second migration run: %v", err)
	}

	return m.Run()
}

func TestBlobs_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewBlobs(testPool)

	_, err := b.Get(ctx, "cart", "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, b.Put(ctx, "cart", "s1", []byte(`[1]`)))
	require.NoError(t, b.Put(ctx, "cart", "s1", []byte(`[2]`)))
	require.NoError(t, b.Put(ctx, "chat", "s1", []byte(`{}`)))

	got, err := b.Get(ctx, "cart", "s1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[2]`), got)

	got, err = b.Get(ctx, "chat", "s1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), got)
}

func TestBlobs_Sweep(t *testing.T) {
	ctx := context.Background()
	b := NewBlobs(testPool)

	require.NoError(t, b.Put(ctx, "cart", "sweep-me", []byte(`[]`)))
	n, err := b.Sweep(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	_, err = b.Get(ctx, "cart", "sweep-me")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRepositories_OverPostgres(t *testing.T) {
	ctx := context.Background()
	blobs := NewBlobs(testPool)

	carts := cart.NewStore(storage.NewCartRepository(blobs))
	snap, err := carts.Add(ctx, "pg-session", cart.Item{
		ID: "v1", Name: "Tamal", Price: money.New(350, "USD"), Quantity: 3,
	})
	require.NoError(t, err)
	assert.True(t, snap.Subtotal.Equal(money.New(1050, "USD")))

	snap, err = carts.Get(ctx, "pg-session")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.ItemCount)

	// Corrupt rows fall back to an empty cart.
	require.NoError(t, blobs.Put(ctx, storage.NamespaceCart, "pg-session", []byte(`{not json`)))
	snap, err = carts.Get(ctx, "pg-session")
	require.NoError(t, err)
	assert.Zero(t, snap.ItemCount)

	chats := storage.NewChatRepository(blobs)
	st := chat.InitialState()
	st.ConversationID = "conv-1"
	require.NoError(t, chats.Save(ctx, "pg-session", st))
	loaded, err := chats.Load(ctx, "pg-session")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, st, *loaded)
}

func TestLedger(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(testPool)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Record(ctx, checkout.Entry{
		Type: checkout.EventOrderCreated, OrderID: "o-ledger", Amount: money.New(2500, "USD"), At: at,
	}))
	require.NoError(t, l.Record(ctx, checkout.Entry{
		Type: checkout.EventPaid, OrderID: "o-ledger", PaymentID: "p1", Amount: money.New(2500, "USD"), At: at.Add(time.Second),
	}))

	entries, err := l.Entries(ctx, "o-ledger")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, checkout.EventOrderCreated, entries[0].Type)
	assert.Equal(t, checkout.EventPaid, entries[1].Type)
	assert.Equal(t, "p1", entries[1].PaymentID)
	assert.True(t, entries[1].Amount.Equal(money.New(2500, "USD")))
	assert.True(t, entries[1].At.Equal(at.Add(time.Second)))
}
