package rooms

import (
	"context"
	"sync"
)

// roomLocks serializes appends per room. Waiters give up when their context ends.
type roomLocks struct {
	mu   sync.Mutex
	held map[int64]*roomLock
}

type roomLock struct {
	slot chan struct{}
	refs int
}

func (l *roomLocks) acquire(ctx context.Context, roomID int64) (func(), error) {
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[int64]*roomLock)
	}
	lock, ok := l.held[roomID]
	if !ok {
		lock = &roomLock{slot: make(chan struct{}, 1)}
		l.held[roomID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.slot <- struct{}{}:
		return func() {
			<-lock.slot
			l.release(roomID, lock)
		}, nil
	case <-ctx.Done():
		l.release(roomID, lock)
		return nil, ctx.Err()
	}
}

func (l *roomLocks) release(roomID int64, lock *roomLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.held, roomID)
	}
}

func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
