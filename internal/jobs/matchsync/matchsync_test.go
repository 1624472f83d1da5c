package matchsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zelkovascum/Photudio/internal/domain/model"
)

type pairSourceStub struct {
	pairs     []model.MutualPair
	err       error
	lastLimit int
}

func (s *pairSourceStub) ListMutualWithoutRoom(_ context.Context, limit int) ([]model.MutualPair, error) {
	s.lastLimit = limit
	return s.pairs, s.err
}

type provisionerStub struct {
	mu     sync.Mutex
	calls  []model.MutualPair
	failOn int64
}

func (p *provisionerStub) OnMutualReaction(_ context.Context, a, b int64) (model.Room, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, model.MutualPair{UserAID: a, UserBID: b})
	if a == p.failOn {
		return model.Room{}, errors.New("provisioning failed")
	}
	return model.Room{ID: int64(len(p.calls)), UserAID: a, UserBID: b}, nil
}

func TestRunProvisionsEveryPairAndSkipsFailures(t *testing.T) {
	source := &pairSourceStub{pairs: []model.MutualPair{{UserAID: 1, UserBID: 2}, {UserAID: 3, UserBID: 4}, {UserAID: 5, UserBID: 6}}}
	provisioner := &provisionerStub{failOn: 3}
	job := New(source, provisioner, time.Minute, 10, nil)

	repaired, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if repaired != 2 {
		t.Fatalf("expected 2 repaired rooms, got %d", repaired)
	}
	if len(provisioner.calls) != 3 {
		t.Fatalf("expected every pair to be attempted, got %d", len(provisioner.calls))
	}
	if source.lastLimit != 10 {
		t.Fatalf("expected batch limit 10, got %d", source.lastLimit)
	}
}

func TestRunReturnsSourceError(t *testing.T) {
	sourceErr := errors.New("db down")
	job := New(&pairSourceStub{err: sourceErr}, &provisionerStub{}, 0, 0, nil)

	if _, err := job.Run(context.Background()); !errors.Is(err, sourceErr) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	source := &pairSourceStub{}
	job := New(source, &provisionerStub{}, 10*time.Millisecond, 5, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Loop(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("loop did not stop after cancel")
	}
}
