package distlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLock_ExclusiveUntilReleased(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	locker := NewLocker(client, nil, time.Minute)

	first := locker.For("campaign-dispatch:c1")
	second := locker.For("campaign-dispatch:c1")

	ok, err := first.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first Acquire = %v, %v", ok, err)
	}
	if !mr.Exists("lock:campaign-dispatch:c1") {
		t.Fatal("expected lock key in redis")
	}
	if ttl := mr.TTL("lock:campaign-dispatch:c1"); ttl != time.Minute {
		t.Errorf("expected 1m TTL, got %v", ttl)
	}

	ok, err = second.Acquire(ctx)
	if err != nil || ok {
		t.Fatalf("second Acquire should fail while held, got %v, %v", ok, err)
	}

	// A non-owner release must not free the lock.
	if err := second.Release(ctx); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	if !mr.Exists("lock:campaign-dispatch:c1") {
		t.Fatal("non-owner release removed the lock")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("Acquire after release = %v, %v", ok, err)
	}
}

func TestRedisLock_ExpiresAfterTTL(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	locker := NewLocker(client, nil, time.Second)

	if ok, _ := locker.For("k").Acquire(ctx); !ok {
		t.Fatal("expected first acquire to succeed")
	}
	mr.FastForward(2 * time.Second)
	if ok, _ := locker.For("k").Acquire(ctx); !ok {
		t.Fatal("expected acquire to succeed after TTL")
	}
}

func TestRedisLock_ServerDown(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()

	_, err := NewLocker(client, nil, time.Minute).For("k").Acquire(context.Background())
	if err == nil {
		t.Fatal("expected error when redis is unreachable")
	}
}

func TestPGAdvisoryLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	lock := NewLocker(nil, db, time.Minute).For("campaign-dispatch:c1")
	if _, ok := lock.(*PGAdvisoryLock); !ok {
		t.Fatalf("expected PG fallback without redis, got %T", lock)
	}

	mock.ExpectQuery(`SELECT pg_try_advisory_lock\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(`SELECT pg_advisory_unlock\(\$1\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("Acquire = %v, %v", ok, err)
	}
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPGAdvisoryLock_NotAcquired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	mock.ExpectQuery(`SELECT pg_try_advisory_lock`).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	lock := NewPGAdvisoryLock(db, "k")
	ok, err := lock.Acquire(ctx)
	if err != nil || ok {
		t.Fatalf("Acquire = %v, %v; want false, nil", ok, err)
	}
	// Releasing a lock that was never taken is a no-op.
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}

	mock.ExpectQuery(`SELECT pg_try_advisory_lock`).WillReturnError(errors.New("conn reset"))
	if _, err := lock.Acquire(ctx); err == nil {
		t.Fatal("expected query error to surface")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
