package receipt

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Valiantic/purehealth-api/internal/store"
)

type stubCounter struct {
	count int64
	calls int32
	err   error
}

func (s *stubCounter) CountByReceiptNo(ctx context.Context, arg store.CountByReceiptNoParams) (int64, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.count, s.err
}

func newTestChecker(t *testing.T, q Querier) (*Checker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Checker{Q: q, Redis: client, TTL: time.Minute}, mr
}

func TestAvailableProbesAndCaches(t *testing.T) {
	stub := &stubCounter{count: 0}
	checker, _ := newTestChecker(t, stub)

	ok, err := checker.Available(context.Background(), "OR-1001", uuid.NullUUID{})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = checker.Available(context.Background(), "OR-1001", uuid.NullUUID{})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(1), atomic.LoadInt32(&stub.calls))
}

func TestAvailableReportsTaken(t *testing.T) {
	checker, _ := newTestChecker(t, &stubCounter{count: 1})

	ok, err := checker.Available(context.Background(), "OR-1002", uuid.NullUUID{})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAvailableExcludeKeyedSeparately(t *testing.T) {
	stub := &stubCounter{count: 0}
	checker, _ := newTestChecker(t, stub)
	exclude := uuid.NullUUID{UUID: uuid.New(), Valid: true}

	_, err := checker.Available(context.Background(), "OR-1003", uuid.NullUUID{})
	require.NoError(t, err)
	_, err = checker.Available(context.Background(), "OR-1003", exclude)
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&stub.calls))
}

func TestAvailableRejectsEmpty(t *testing.T) {
	checker, _ := newTestChecker(t, &stubCounter{})
	_, err := checker.Available(context.Background(), "  ", uuid.NullUUID{})
	require.ErrorIs(t, err, ErrEmptyReceiptNo)
}

func TestInvalidateDropsCachedKeys(t *testing.T) {
	stub := &stubCounter{count: 0}
	checker, _ := newTestChecker(t, stub)

	_, err := checker.Available(context.Background(), "OR-1004", uuid.NullUUID{})
	require.NoError(t, err)

	checker.Invalidate("OR-1004")

	_, err = checker.Available(context.Background(), "OR-1004", uuid.NullUUID{})
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&stub.calls))
}

func TestDebouncerCoalescesTriggers(t *testing.T) {
	d := &Debouncer{Delay: 20 * time.Millisecond}
	defer d.Stop()

	var fired int32
	for i := 0; i < 5; i++ {
		d.Trigger("key", func() { atomic.AddInt32(&fired, 1) })
	}
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	d := &Debouncer{Delay: 10 * time.Millisecond}
	defer d.Stop()

	var fired int32
	d.Trigger("a", func() { atomic.AddInt32(&fired, 1) })
	d.Trigger("b", func() { atomic.AddInt32(&fired, 1) })
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	d := &Debouncer{Delay: 20 * time.Millisecond}

	var fired int32
	d.Trigger("key", func() { atomic.AddInt32(&fired, 1) })
	d.Stop()

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&fired))
}
