package cart

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/molino-storefront/internal/domain/failure"
	"github.com/xenking/molino-storefront/internal/domain/money"
)

func item(id string, cents int64, qty int) Item {
	return Item{ID: id, Name: "Item " + id, Price: money.New(cents, "USD"), Quantity: qty}
}

func TestAdd_MergesByID(t *testing.T) {
	var c Cart
	require.NoError(t, c.Add(item("a", 350, 2)))
	require.NoError(t, c.Add(item("b", 100, 1)))
	require.NoError(t, c.Add(item("a", 350, 3)))

	s := c.Snapshot()
	require.Len(t, s.Items, 2)
	assert.Equal(t, "a", s.Items[0].ID)
	assert.Equal(t, 5, s.Items[0].Quantity)
	assert.Equal(t, 6, s.ItemCount)
	assert.True(t, s.Subtotal.Equal(money.New(1850, "USD")))
}

func TestAdd_Validation(t *testing.T) {
	tests := []struct {
		name  string
		item  Item
		field string
	}{
		{name: "missing id", item: item("", 100, 1), field: "id"},
		{name: "zero quantity", item: item("a", 100, 0), field: "quantity"},
		{name: "negative quantity", item: item("a", 100, -1), field: "quantity"},
		{name: "negative price", item: item("a", -1, 1), field: "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Cart
			err := c.Add(tt.item)
			var vErr *failure.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Empty(t, c.Snapshot().Items)
		})
	}
}

func TestAdd_RejectsMixedCurrency(t *testing.T) {
	var c Cart
	require.NoError(t, c.Add(item("a", 100, 1)))
	err := c.Add(Item{ID: "b", Price: money.New(100, "EUR"), Quantity: 1})
	var vErr *failure.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestAdd_MergeRequiresSamePrice(t *testing.T) {
	tests := []struct {
		name  string
		price money.Money
	}{
		{name: "different amount", price: money.New(400, "USD")},
		{name: "different currency", price: money.New(350, "EUR")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Cart
			require.NoError(t, c.Add(item("a", 350, 2)))

			err := c.Add(Item{ID: "a", Price: tt.price, Quantity: 1})
			var vErr *failure.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "price", vErr.Field)

			s := c.Snapshot()
			require.Len(t, s.Items, 1)
			assert.Equal(t, 2, s.Items[0].Quantity)
			assert.True(t, s.Subtotal.Equal(money.New(700, "USD")))
		})
	}
}

func TestSetQuantityZeroEqualsRemove(t *testing.T) {
	build := func() *Cart {
		c := &Cart{}
		require.NoError(t, c.Add(item("a", 100, 1)))
		require.NoError(t, c.Add(item("b", 250, 2)))
		return c
	}

	for _, qty := range []int{0, -3} {
		viaSet := build()
		viaSet.SetQuantity("a", qty)
		viaRemove := build()
		viaRemove.Remove("a")
		assert.Equal(t, viaRemove.Snapshot(), viaSet.Snapshot())
	}
}

func TestSetQuantityAndRemove_MissingIDIgnored(t *testing.T) {
	c := New([]Item{item("a", 100, 1)})
	c.SetQuantity("missing", 4)
	c.Remove("missing")
	assert.Equal(t, 1, c.Snapshot().ItemCount)

	c.SetQuantity("a", 4)
	assert.Equal(t, 4, c.Snapshot().ItemCount)

	c.Clear()
	s := c.Snapshot()
	assert.Empty(t, s.Items)
	assert.NotNil(t, s.Items)
	assert.True(t, s.Subtotal.IsZero())
}

// Property: after any sequence of operations the subtotal is the sum of
// price times quantity over the remaining rows.
func TestSubtotalInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	ids := []string{"a", "b", "c", "d"}
	prices := map[string]int64{"a": 199, "b": 1250, "c": 5, "d": 99999}

	for range 200 {
		var c Cart
		for range 30 {
			id := ids[rng.IntN(len(ids))]
			switch rng.IntN(4) {
			case 0, 1:
				_ = c.Add(item(id, prices[id], rng.IntN(5)+1))
			case 2:
				c.SetQuantity(id, rng.IntN(6)-1)
			case 3:
				c.Remove(id)
			}
		}

		s := c.Snapshot()
		want := decimal.Zero
		count := 0
		for _, it := range s.Items {
			require.Positive(t, it.Quantity)
			want = want.Add(decimal.NewFromInt(prices[it.ID] * int64(it.Quantity)))
			count += it.Quantity
		}
		require.True(t, want.Equal(s.Subtotal.Amount), "want %s got %s", want, s.Subtotal.Amount)
		require.Equal(t, count, s.ItemCount)
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	items := []Item{
		{ID: "a", Name: "Taco", VariationName: "Single", Price: money.New(350, "USD"), Quantity: 2, ImageURL: "/a.jpg"},
		item("b", 100, 1),
	}
	got, err := Unmarshal(Marshal(items))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Single", got[0].VariationName)
	assert.True(t, got[0].Price.Equal(items[0].Price))
	assert.Equal(t, "/a.jpg", got[0].ImageURL)
}

func TestCodec_Corrupt(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"id":"a"}`,
		`[{"id":"a","quantity":0,"price":{"amount":1}}]`,
		`[{"id":"a","quantity":"two"}]`,
		`[{"id":"a","quantity":1,"price":{"amount":1.5}}]`,
	} {
		_, err := Unmarshal([]byte(raw))
		require.ErrorIs(t, err, ErrCorruptState, raw)
	}

	got, err := Unmarshal([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

// --- Store ---

type mockRepo struct {
	mu      sync.Mutex
	data    map[string][]Item
	loadErr error
	saveErr error
	saves   int
}

func newMockRepo() *mockRepo {
	return &mockRepo{data: map[string][]Item{}}
}

func (m *mockRepo) Load(_ context.Context, session string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]Item(nil), m.data[session]...), nil
}

func (m *mockRepo) Save(_ context.Context, session string, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[session] = items
	return nil
}

func TestStore_Operations(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo()
	s := NewStore(repo)

	snap, err := s.Add(ctx, "s1", item("a", 350, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ItemCount)

	snap, err = s.SetQuantity(ctx, "s1", "a", 3)
	require.NoError(t, err)
	assert.True(t, snap.Subtotal.Equal(money.New(1050, "USD")))

	other, err := s.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other.Items)

	snap, err = s.Remove(ctx, "s1", "a")
	require.NoError(t, err)
	assert.Empty(t, snap.Items)

	_, err = s.Add(ctx, "s1", item("b", 100, 2))
	require.NoError(t, err)
	snap, err = s.Clear(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, snap.ItemCount)
	assert.Empty(t, repo.data["s1"])
}

func TestStore_CorruptStateFallsBackToEmpty(t *testing.T) {
	repo := newMockRepo()
	repo.loadErr = errors.Wrap(ErrCorruptState, "bad json")
	s := NewStore(repo)

	snap, err := s.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, snap.Items)

	repo.loadErr = errors.Wrap(ErrCorruptState, "bad json")
	snap, err = s.Add(context.Background(), "s1", item("a", 100, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ItemCount)
}

func TestStore_PropagatesErrors(t *testing.T) {
	boom := errors.New("db down")

	repo := newMockRepo()
	repo.loadErr = boom
	_, err := NewStore(repo).Get(context.Background(), "s1")
	require.ErrorIs(t, err, boom)

	repo = newMockRepo()
	repo.saveErr = boom
	_, err = NewStore(repo).Add(context.Background(), "s1", item("a", 1, 1))
	require.ErrorIs(t, err, boom)

	repo = newMockRepo()
	_, err = NewStore(repo).Add(context.Background(), "s1", item("a", 1, 0))
	var vErr *failure.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Zero(t, repo.saves, "invalid input is not persisted")
}

func TestStore_ConcurrentAddsAreSerialized(t *testing.T) {
	repo := newMockRepo()
	s := NewStore(repo)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(context.Background(), "s1", item("a", 100, 1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := s.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 50, snap.ItemCount)
}
