package locker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

var (
	ErrLockTimeout = errors.New("timed out waiting for symbol lock")
	// ErrLeaseExpired is the cause of a lease context cancelled because the
	// lease ran past its TTL and the key was handed on.
	ErrLeaseExpired = errors.New("symbol lock lease expired")
)

type keyLock struct {
	sem   *semaphore.Weighted
	gen   uint64
	held  bool
	refs  int
	timer *time.Timer
}

// SymbolLocker serialises work per key, typically one (user, strategy, symbol)
// scope. Waiting is bounded by the caller's context; holding is bounded by the
// lease TTL, after which the lock is released on the holder's behalf.
// The lock is process-local.
type SymbolLocker struct {
	mu       sync.Mutex
	locks    map[string]*keyLock
	leaseTTL time.Duration
	log      *logger.Entry
}

// Lease is one hold of a key.
type Lease struct {
	l       *SymbolLocker
	key     string
	kl      *keyLock
	gen     uint64
	expired chan struct{}
	once    sync.Once
}

// New returns a locker whose leases expire after leaseTTL; zero disables expiry.
func New(leaseTTL time.Duration, log *logger.Entry) *SymbolLocker {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &SymbolLocker{
		locks:    make(map[string]*keyLock),
		leaseTTL: leaseTTL,
		log:      log.WithField("component", "SymbolLocker"),
	}
}

// entry returns the lock of key and counts the caller in until unref.
func (l *SymbolLocker) entry(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: semaphore.NewWeighted(1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

// unref drops the entry of key once nobody holds or waits for it.
func (l *SymbolLocker) unref(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 && !kl.held && l.locks[key] == kl {
		delete(l.locks, key)
	}
}

// Acquire blocks until the key is free or ctx is done.
func (l *SymbolLocker) Acquire(ctx context.Context, key string) (*Lease, error) {
	kl := l.entry(key)
	if err := kl.sem.Acquire(ctx, 1); err != nil {
		l.unref(key, kl)
		return nil, fmt.Errorf("%w: key=%s: %v", ErrLockTimeout, key, err)
	}

	l.mu.Lock()
	kl.gen++
	lease := &Lease{l: l, key: key, kl: kl, gen: kl.gen, expired: make(chan struct{})}
	kl.held = true
	if l.leaseTTL > 0 {
		kl.timer = time.AfterFunc(l.leaseTTL, func() {
			l.release(kl, lease.gen, func() {
				close(lease.expired)
				l.log.WithFields(logger.Fields{
					"key":       key,
					"lease_ttl": l.leaseTTL.String(),
				}).Warn("lock lease expired, released on behalf of holder")
			})
		})
	}
	l.mu.Unlock()

	return lease, nil
}

// Release frees the lease. It is idempotent and never frees a lease that
// already expired and was handed to another holder.
func (ls *Lease) Release() {
	ls.once.Do(func() {
		ls.l.release(ls.kl, ls.gen, nil)
		ls.l.unref(ls.key, ls.kl)
	})
}

// Valid reports whether the lease still holds its key.
func (ls *Lease) Valid() bool {
	ls.l.mu.Lock()
	defer ls.l.mu.Unlock()
	return ls.kl.held && ls.kl.gen == ls.gen
}

// Expired is closed when the lease runs past its TTL.
func (ls *Lease) Expired() <-chan struct{} {
	return ls.expired
}

// Context returns a child of parent that is cancelled with ErrLeaseExpired as
// its cause when the lease expires.
func (ls *Lease) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	go func() {
		select {
		case <-ls.Expired():
			cancel(ErrLeaseExpired)
		case <-ctx.Done():
		}
	}()
	return ctx, func() { cancel(context.Canceled) }
}

// release frees the lease gen if it is still the current one. beforeRelease
// runs under the lock, before a waiter can get in.
func (l *SymbolLocker) release(kl *keyLock, gen uint64, beforeRelease func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !kl.held || kl.gen != gen {
		return false
	}
	kl.held = false
	if kl.timer != nil {
		kl.timer.Stop()
		kl.timer = nil
	}
	if beforeRelease != nil {
		beforeRelease()
	}
	kl.sem.Release(1)
	return true
}

// WithLock runs fn while holding key. The ctx given to fn is cancelled if the
// lease expires before fn returns.
func (l *SymbolLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lease, err := l.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer lease.Release()

	leaseCtx, cancel := lease.Context(ctx)
	defer cancel()
	return fn(leaseCtx)
}

// Held reports whether key is currently locked.
func (l *SymbolLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	return ok && kl.held
}

