package cache

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-coupons/internal/domain/coupon"
)

// --- Mock implementations ---

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttl    map[string]time.Duration
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte), ttl: make(map[string]time.Duration)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	s.ttl[key] = ttl
	return nil
}

func (s *memStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _ := strconv.ParseInt(string(s.data[key]), 10, 64)
	n++
	s.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (s *memStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

type countingRepo struct {
	coupons  []coupon.Coupon
	lists    int
	writeErr error

	// onList runs after the snapshot is taken, before List returns.
	onList func()
}

func (r *countingRepo) List(context.Context) ([]coupon.Coupon, error) {
	r.lists++
	snapshot := append([]coupon.Coupon(nil), r.coupons...)
	if r.onList != nil {
		hook := r.onList
		r.onList = nil
		hook()
	}
	return snapshot, nil
}

func (r *countingRepo) Get(_ context.Context, id int64) (*coupon.Coupon, error) {
	for _, c := range r.coupons {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, coupon.ErrNotFound
}

func (r *countingRepo) Create(_ context.Context, c *coupon.Coupon) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	c.ID = int64(len(r.coupons) + 1)
	r.coupons = append(r.coupons, *c)
	return nil
}

func (r *countingRepo) Update(context.Context, *coupon.Coupon) error { return r.writeErr }
func (r *countingRepo) Delete(context.Context, int64) error          { return r.writeErr }
func (r *countingRepo) Upsert(context.Context, *coupon.Coupon) error { return r.writeErr }

// --- Helpers ---

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func sampleCoupons() []coupon.Coupon {
	ts := time.Date(2025, 3, 1, 10, 30, 0, 123456000, time.UTC)
	return []coupon.Coupon{
		{ID: 1, Type: coupon.TypeCartWise, Details: coupon.CartWiseDetails{Threshold: 100, Discount: 10}, CreatedAt: ts, UpdatedAt: ts},
		{ID: 2, Type: coupon.TypeProductWise, Details: coupon.ProductWiseDetails{ProductID: intp(1), Discount: floatp(20)}, CreatedAt: ts, UpdatedAt: ts},
		{ID: 3, Type: coupon.TypeBxGy, Details: coupon.BxGyDetails{
			BuyProducts:     []coupon.BxGyProduct{{ProductID: 1, Quantity: 3}},
			GetProducts:     []coupon.BxGyProduct{{ProductID: 3, Quantity: 1}},
			RepetitionLimit: 2,
		}, CreatedAt: ts, UpdatedAt: ts},
	}
}

// --- Tests ---

func TestCodecRoundTrip(t *testing.T) {
	list := sampleCoupons()
	got, err := decodeList(encodeList(list))
	require.NoError(t, err)
	assert.Equal(t, list, got)

	empty, err := decodeList(encodeList(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestList_ReadThrough(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{coupons: sampleCoupons()}
	store := newMemStore()
	r := NewCouponRepository(repo, store, time.Minute)

	first, err := r.List(ctx)
	require.NoError(t, err)
	second, err := r.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.lists)
	assert.Equal(t, first, second)
	assert.Equal(t, time.Minute, store.ttl[listKey(0)])
}

func TestWritesInvalidate(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{coupons: sampleCoupons()}
	store := newMemStore()
	r := NewCouponRepository(repo, store, time.Minute)

	_, err := r.List(ctx)
	require.NoError(t, err)
	require.True(t, store.has(listKey(0)))

	require.NoError(t, r.Create(ctx, &coupon.Coupon{Type: coupon.TypeCartWise, Details: coupon.CartWiseDetails{Threshold: 1, Discount: 1}}))
	assert.Equal(t, []byte("1"), store.data[generationKey])

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 4)
	assert.Equal(t, 2, repo.lists)
	assert.True(t, store.has(listKey(1)))

	gen := int64(1)
	for _, tt := range []struct {
		name  string
		write func() error
	}{
		{"update", func() error { return r.Update(ctx, &coupon.Coupon{ID: 1}) }},
		{"delete", func() error { return r.Delete(ctx, 1) }},
		{"upsert", func() error { return r.Upsert(ctx, &coupon.Coupon{ID: 9}) }},
	} {
		lists := repo.lists
		_, err := r.List(ctx)
		require.NoError(t, err)
		require.NoError(t, tt.write(), tt.name)
		gen++
		assert.Equal(t, []byte(strconv.FormatInt(gen, 10)), store.data[generationKey], tt.name)

		_, err = r.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, lists+1, repo.lists, tt.name)
	}
}

func TestWriteDuringFillIsNotShadowed(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{coupons: sampleCoupons()}
	store := newMemStore()
	r := NewCouponRepository(repo, store, time.Minute)

	// A write lands after the miss has read the database but before the
	// stale snapshot is stored.
	repo.onList = func() {
		require.NoError(t, r.Create(ctx, &coupon.Coupon{Type: coupon.TypeCartWise, Details: coupon.CartWiseDetails{Threshold: 1, Discount: 1}}))
	}

	stale, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stale, 3)

	fresh, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 4)
	assert.Equal(t, 2, repo.lists)
}

func TestFailedWriteKeepsCache(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{coupons: sampleCoupons(), writeErr: errors.New("db down")}
	store := newMemStore()
	r := NewCouponRepository(repo, store, time.Minute)

	_, err := r.List(ctx)
	require.NoError(t, err)

	assert.Error(t, r.Delete(ctx, 1))
	assert.NotContains(t, store.data, generationKey)

	_, err = r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lists)
}

func TestStoreFailuresFallBack(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{coupons: sampleCoupons()}
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	r := NewCouponRepository(repo, store, time.Minute)

	for range 2 {
		list, err := r.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 3)
	}
	assert.Equal(t, 2, repo.lists)
}

func TestCorruptEntryIsReplaced(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{coupons: sampleCoupons()}
	store := newMemStore()
	store.data[listKey(0)] = []byte(`[{"id":1,"type":"mystery","details":{}}]`)
	r := NewCouponRepository(repo, store, time.Minute)

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, 1, repo.lists)

	cached, err := decodeList(store.data[listKey(0)])
	require.NoError(t, err)
	assert.Len(t, cached, 3)
}

func TestGetDelegates(t *testing.T) {
	r := NewCouponRepository(&countingRepo{coupons: sampleCoupons()}, newMemStore(), time.Minute)

	c, err := r.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, coupon.TypeProductWise, c.Type)

	_, err = r.Get(context.Background(), 42)
	assert.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestUnreadableGenerationBypassesCache(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{coupons: sampleCoupons()}
	store := newMemStore()
	store.data[generationKey] = []byte("not-a-number")
	r := NewCouponRepository(repo, store, time.Minute)

	for range 2 {
		list, err := r.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 3)
	}
	assert.Equal(t, 2, repo.lists)
	assert.False(t, store.has(listKey(0)))
}
