package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-console/internal/kv"
)

type shop struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	Status    string    `json:"status"`
	Revenue   float64   `json:"revenue"`
	CreatedAt time.Time `json:"created_at"`
}

type shopSummary struct {
	Total   int
	Open    int
	Revenue float64
}

func shopKind() Kind[shop, shopSummary] {
	return Kind[shop, shopSummary]{
		Name:          "shops",
		Statuses:      []string{"pending", "open", "closed"},
		DefaultStatus: "pending",
		Actions:       map[string]string{"approve": "open", "close": "closed"},
		ID:            func(s shop) string { return s.ID },
		SetID:         func(s *shop, id string) { s.ID = id },
		Status:        func(s shop) string { return s.Status },
		SetStatus:     func(s *shop, st string) { s.Status = st },
		Stamp:         func(s *shop, t time.Time) { s.CreatedAt = t },
		CreatedAt:     func(s shop) time.Time { return s.CreatedAt },
		Validate: func(s shop) error {
			if strings.TrimSpace(s.Name) == "" {
				return errors.New("name is required")
			}
			if s.Revenue < 0 {
				return errors.New("revenue must be non-negative")
			}
			return nil
		},
		SearchText: func(s shop) string { return s.Name + " " + s.Owner },
		Summarize: func(items []shop) shopSummary {
			var sum shopSummary
			for _, s := range items {
				sum.Total++
				sum.Revenue += s.Revenue
				if s.Status == "open" {
					sum.Open++
				}
			}
			return sum
		},
	}
}

func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newShopStore(t *testing.T, store kv.Store, opts ...Option[shop, shopSummary]) *Store[shop, shopSummary] {
	t.Helper()
	s := New(shopKind(), store, "test", zap.NewNop(), opts...)
	require.NoError(t, s.Load(context.Background()))
	return s
}

// failingKV отказывает в записи, пока fail=true
type failingKV struct {
	*kv.Memory
	fail bool
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.Set(ctx, key, value)
}

func TestCreateBlankNameLeavesCollectionUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newShopStore(t, kv.NewMemory())
	_, err := s.Create(ctx, shop{Name: "Corner"})
	require.NoError(t, err)

	for _, name := range []string{"", "   ", "\t"} {
		_, err := s.Create(ctx, shop{Name: name, Revenue: 10})
		assert.ErrorIs(t, err, ErrInvalid)
	}
	assert.Equal(t, 1, s.Len())
}

func TestCreateNegativeNumberRejected(t *testing.T) {
	s := newShopStore(t, kv.NewMemory())
	_, err := s.Create(context.Background(), shop{Name: "Corner", Revenue: -1})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, 0, s.Len())
}

func TestCreateAssignsUniqueIDAndDefaultStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	s := newShopStore(t, kv.NewMemory(), WithClock[shop, shopSummary](func() time.Time { return now }))

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		before := s.Len()
		created, err := s.Create(ctx, shop{ID: "client-supplied", Name: fmt.Sprintf("shop %d", i), Status: "open"})
		require.NoError(t, err)

		assert.Equal(t, before+1, s.Len())
		assert.NotEqual(t, "client-supplied", created.ID)
		assert.False(t, seen[created.ID], "duplicate id %s", created.ID)
		assert.Equal(t, "pending", created.Status)
		assert.Equal(t, now, created.CreatedAt)
		seen[created.ID] = true
	}
}

func TestCreateRedrawsCollidingID(t *testing.T) {
	ctx := context.Background()
	ids := []string{"a", "a", "a", "b"}
	gen := func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	s := newShopStore(t, kv.NewMemory(), WithIDGenerator[shop, shopSummary](gen))

	first, err := s.Create(ctx, shop{Name: "one"})
	require.NoError(t, err)
	second, err := s.Create(ctx, shop{Name: "two"})
	require.NoError(t, err)

	assert.Equal(t, "a", first.ID)
	assert.Equal(t, "b", second.ID)
}

func TestListPreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newShopStore(t, kv.NewMemory(), WithIDGenerator[shop, shopSummary](sequence()))
	for _, name := range []string{"c", "a", "b"} {
		_, err := s.Create(ctx, shop{Name: name})
		require.NoError(t, err)
	}

	var names []string
	for _, item := range s.List() {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestListReturnsCopy(t *testing.T) {
	s := newShopStore(t, kv.NewMemory())
	_, err := s.Create(context.Background(), shop{Name: "Corner"})
	require.NoError(t, err)

	list := s.List()
	list[0].Name = "mutated"
	assert.Equal(t, "Corner", s.List()[0].Name)
}

func TestUpdateStatusInvalidValueLeavesEntityUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newShopStore(t, kv.NewMemory())
	created, err := s.Create(ctx, shop{Name: "Corner"})
	require.NoError(t, err)

	for _, status := range []string{"", "OPEN", "archived"} {
		_, err := s.UpdateStatus(ctx, created.ID, status)
		assert.ErrorIs(t, err, ErrInvalidStatus)
	}
	got, ok := s.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, created, got)
}

func TestUpdateStatusUnknownID(t *testing.T) {
	ctx := context.Background()
	s := newShopStore(t, kv.NewMemory())
	_, err := s.Create(ctx, shop{Name: "Corner"})
	require.NoError(t, err)
	before := s.List()

	_, err = s.UpdateStatus(ctx, "missing", "open")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, s.List())
}

func TestApplyActions(t *testing.T) {
	ctx := context.Background()
	s := newShopStore(t, kv.NewMemory())
	created, err := s.Create(ctx, shop{Name: "Corner"})
	require.NoError(t, err)

	approved, err := s.Apply(ctx, created.ID, "approve")
	require.NoError(t, err)
	assert.Equal(t, "open", approved.Status)

	_, err = s.Apply(ctx, created.ID, "explode")
	assert.ErrorIs(t, err, ErrUnknownAction)

	got, _ := s.Get(created.ID)
	assert.Equal(t, "open", got.Status)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newShopStore(t, kv.NewMemory())
	a, err := s.Create(ctx, shop{Name: "a"})
	require.NoError(t, err)
	_, err = s.Create(ctx, shop{Name: "b"})
	require.NoError(t, err)

	removed, err := s.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	after := s.List()

	removed, err = s.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, after, s.List())
	assert.Len(t, after, 1)
}

func TestAggregateIsNeverStale(t *testing.T) {
	ctx := context.Background()
	s := newShopStore(t, kv.NewMemory())

	check := func() {
		var want float64
		for _, item := range s.List() {
			want += item.Revenue
		}
		assert.InDelta(t, want, s.Aggregate().Revenue, 1e-9)
		assert.Equal(t, s.Len(), s.Aggregate().Total)
	}

	check()
	a, err := s.Create(ctx, shop{Name: "a", Revenue: 100.5})
	require.NoError(t, err)
	check()
	b, err := s.Create(ctx, shop{Name: "b", Revenue: 49.5})
	require.NoError(t, err)
	check()
	_, err = s.Update(ctx, b.ID, func(item *shop) error {
		item.Revenue = 1000
		return nil
	})
	require.NoError(t, err)
	check()
	_, err = s.Apply(ctx, a.ID, "approve")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Aggregate().Open)
	_, err = s.Delete(ctx, a.ID)
	require.NoError(t, err)
	check()
	assert.InDelta(t, 1000, s.Aggregate().Revenue, 1e-9)
}

func TestUpdatePreservesIdentityAndStatus(t *testing.T) {
	ctx := context.Background()
	s := newShopStore(t, kv.NewMemory())
	created, err := s.Create(ctx, shop{Name: "Corner"})
	require.NoError(t, err)

	updated, err := s.Update(ctx, created.ID, func(item *shop) error {
		item.ID = "hijack"
		item.Status = "closed"
		item.Name = "Corner Store"
		item.CreatedAt = time.Time{}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "pending", updated.Status)
	assert.Equal(t, "Corner Store", updated.Name)

	_, err = s.Update(ctx, created.ID, func(item *shop) error {
		item.Name = ""
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalid)
	got, _ := s.Get(created.ID)
	assert.Equal(t, "Corner Store", got.Name)
}

func TestReplaceChecksStatus(t *testing.T) {
	ctx := context.Background()
	s := newShopStore(t, kv.NewMemory())
	created, err := s.Create(ctx, shop{Name: "Corner"})
	require.NoError(t, err)

	_, err = s.Replace(ctx, created.ID, func(item *shop) error {
		item.Status = "bogus"
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	got, err := s.Replace(ctx, created.ID, func(item *shop) error {
		item.Status = "closed"
		item.Revenue = 5
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "closed", got.Status)
}

func TestFindByStatusAndQuery(t *testing.T) {
	ctx := context.Background()
	s := newShopStore(t, kv.NewMemory())
	mk := func(name, owner string) shop {
		created, err := s.Create(ctx, shop{Name: name, Owner: owner})
		require.NoError(t, err)
		return created
	}
	bakery := mk("Bakery", "Anna")
	mk("Books", "Oleg")
	mk("Flowers", "anna k.")
	_, err := s.Apply(ctx, bakery.ID, "approve")
	require.NoError(t, err)

	assert.Len(t, s.Find(Filter{}), 3)
	assert.Len(t, s.Find(Filter{Status: "pending"}), 2)
	assert.Len(t, s.Find(Filter{Query: "ANNA"}), 2)
	assert.Len(t, s.Find(Filter{Status: "open", Query: "anna"}), 1)
	assert.Empty(t, s.Find(Filter{Status: "closed", Query: "anna"}))
}

func TestFailedPersistLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &failingKV{Memory: kv.NewMemory()}
	s := newShopStore(t, store)
	created, err := s.Create(ctx, shop{Name: "Corner"})
	require.NoError(t, err)
	before := s.List()

	store.fail = true
	_, err = s.Create(ctx, shop{Name: "another"})
	assert.Error(t, err)
	_, err = s.UpdateStatus(ctx, created.ID, "open")
	assert.Error(t, err)
	removed, err := s.Delete(ctx, created.ID)
	assert.Error(t, err)
	assert.False(t, removed)

	assert.Equal(t, before, s.List())
}

func TestLoadSeedsOnceAndPersists(t *testing.T) {
	ctx := context.Background()
	kind := shopKind()
	kind.Seed = func() []shop {
		return []shop{{ID: "s1", Name: "Seeded", Status: "open", Revenue: 7}}
	}
	store := kv.NewMemory()

	first := New(kind, store, "test", zap.NewNop())
	require.NoError(t, first.Load(ctx))
	require.Len(t, first.List(), 1)
	_, err := first.Delete(ctx, "s1")
	require.NoError(t, err)

	// Ключ уже существует (пустой список) - seed повторно не применяется
	second := New(kind, store, "test", zap.NewNop())
	require.NoError(t, second.Load(ctx))
	assert.Empty(t, second.List())
}

func TestReloadSeesOtherWriter(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	a := newShopStore(t, store)
	b := newShopStore(t, store)

	created, err := a.Create(ctx, shop{Name: "shared"})
	require.NoError(t, err)
	_, ok := b.Get(created.ID)
	assert.False(t, ok)

	require.NoError(t, b.Reload(ctx))
	got, ok := b.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "shared", got.Name)
	assert.Equal(t, "pending", got.Status)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestLoadCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, "test:shops", []byte("{not json")))

	s := New(shopKind(), store, "test", zap.NewNop())
	assert.Error(t, s.Load(ctx))
}

func TestUpdateKeepsPreservedFields(t *testing.T) {
	ctx := context.Background()
	kind := shopKind()
	kind.Preserve = func(dst *shop, orig shop) { dst.Revenue = orig.Revenue }
	s := New(kind, kv.NewMemory(), "test", zap.NewNop(), WithIDGenerator[shop, shopSummary](sequence()))
	require.NoError(t, s.Load(ctx))

	created, err := s.Create(ctx, shop{Name: "Corner"})
	require.NoError(t, err)
	_, err = s.Replace(ctx, created.ID, func(item *shop) error {
		item.Revenue = 42
		return nil
	})
	require.NoError(t, err)

	got, err := s.Update(ctx, created.ID, func(item *shop) error {
		*item = shop{Name: "Corner Store", Revenue: 1}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Corner Store", got.Name)
	assert.Equal(t, 42.0, got.Revenue)
}

func TestLoadRejectsInvalidSnapshot(t *testing.T) {
	cases := map[string]string{
		"duplicate id":   `[{"id":"x","name":"a","status":"open"},{"id":"x","name":"b","status":"open"}]`,
		"unknown status": `[{"id":"x","name":"a","status":"bogus"}]`,
		"negative":       `[{"id":"x","name":"a","status":"open","revenue":-5}]`,
		"blank name":     `[{"id":"x","name":"","status":"open"}]`,
		"empty id":       `[{"id":"","name":"a","status":"open"}]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := kv.NewMemory()
			require.NoError(t, store.Set(ctx, "test:shops", []byte(raw)))

			s := New(shopKind(), store, "test", zap.NewNop())
			assert.ErrorIs(t, s.Load(ctx), ErrInvalid)
			assert.ErrorIs(t, s.Reload(ctx), ErrInvalid)
			assert.Zero(t, s.Len())
		})
	}
}
