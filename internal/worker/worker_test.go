package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipshare/internal/queue"
)

type fakeRepairer struct {
	mu          sync.Mutex
	calls       []string
	rootIDs     []int64
	postIDs     []int64
	followUsers []int64
	sweepErr    error
}

func (f *fakeRepairer) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRepairer) SweepOrphans(_ context.Context, limit int) (int, error) {
	f.record("sweep")
	return 0, f.sweepErr
}

func (f *fakeRepairer) ReconcileRoot(_ context.Context, rootID int64) (bool, error) {
	f.record("root")
	f.mu.Lock()
	f.rootIDs = append(f.rootIDs, rootID)
	f.mu.Unlock()
	return true, nil
}

func (f *fakeRepairer) ReconcilePostCommentCount(_ context.Context, postID int64) error {
	f.record("post")
	f.mu.Lock()
	f.postIDs = append(f.postIDs, postID)
	f.mu.Unlock()
	return nil
}

func (f *fakeRepairer) ReconcileFollowCounts(_ context.Context, userIDs ...int64) error {
	f.record("follow")
	f.mu.Lock()
	f.followUsers = append(f.followUsers, userIDs...)
	f.mu.Unlock()
	return nil
}

func (f *fakeRepairer) ReconcileRoots(context.Context, int) (int, error) {
	f.record("roots")
	return 0, nil
}

func (f *fakeRepairer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestHandler_Routing(t *testing.T) {
	ctx := context.Background()
	root := int64(3)

	tests := []struct {
		name  string
		event queue.Event
		want  []string
	}{
		{"reply subtree", queue.NewCommentSubtreeDeletedEvent(1, 2, &root), []string{"sweep", "root"}},
		{"top-level subtree", queue.NewCommentSubtreeDeletedEvent(1, 2, nil), []string{"sweep", "post"}},
		{"follow change", queue.NewFollowChangedEvent(4, 5), []string{"follow"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repair := &fakeRepairer{}
			require.NoError(t, NewHandler(repair, nil).HandleEvent(ctx, tt.event))
			assert.Equal(t, tt.want, repair.Calls())
		})
	}
}

func TestHandler_Arguments(t *testing.T) {
	ctx := context.Background()
	repair := &fakeRepairer{}
	h := NewHandler(repair, nil)
	root := int64(3)

	require.NoError(t, h.HandleEvent(ctx, queue.NewCommentSubtreeDeletedEvent(1, 2, &root)))
	require.NoError(t, h.HandleEvent(ctx, queue.NewCommentSubtreeDeletedEvent(8, 9, nil)))
	require.NoError(t, h.HandleEvent(ctx, queue.NewFollowChangedEvent(4, 5)))

	assert.Equal(t, []int64{3}, repair.rootIDs)
	assert.Equal(t, []int64{8}, repair.postIDs)
	assert.Equal(t, []int64{4, 5}, repair.followUsers)
}

func TestHandler_Errors(t *testing.T) {
	ctx := context.Background()
	repair := &fakeRepairer{sweepErr: errors.New("db down")}
	h := NewHandler(repair, nil)

	err := h.HandleEvent(ctx, queue.NewCommentSubtreeDeletedEvent(1, 2, nil))
	assert.ErrorContains(t, err, "db down")
	assert.Equal(t, []string{"sweep"}, repair.Calls(), "the counter fix waits for a clean sweep")

	assert.Error(t, h.HandleEvent(ctx, queue.Event{Type: "mystery"}))
}

// fakeConsumer serves a fixed set of messages and records acks.
type fakeConsumer struct {
	mu      sync.Mutex
	pending []queue.Message
	fresh   []queue.Message
	acked   []string
	groups  int
}

func (f *fakeConsumer) EnsureGroup(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups++
	return nil
}

func (f *fakeConsumer) Read(ctx context.Context, _, _, _ string, _ int64, block time.Duration) ([]queue.Message, error) {
	f.mu.Lock()
	msgs := f.fresh
	f.fresh = nil
	f.mu.Unlock()
	if len(msgs) == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(block):
		}
	}
	return msgs, nil
}

func (f *fakeConsumer) ReadPending(context.Context, string, string, string, int64) ([]queue.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.pending
	f.pending = nil
	return msgs, nil
}

func (f *fakeConsumer) Ack(_ context.Context, _, _ string, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	return nil
}

func (f *fakeConsumer) Pending(context.Context, string, string) (int64, error) {
	return 0, nil
}

func (f *fakeConsumer) Acked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

type fakePurger struct{ calls int }

func (p *fakePurger) PurgeExpiredTokens(context.Context) (int64, error) {
	p.calls++
	return 2, nil
}

func TestManager_DrainsPendingThenReadsAndAcksEverything(t *testing.T) {
	consumer := &fakeConsumer{
		pending: []queue.Message{{ID: "1-0", Event: queue.NewFollowChangedEvent(1, 2)}},
		fresh: []queue.Message{
			{ID: "2-0", Event: queue.Event{Type: "mystery"}},
			{ID: "3-0", Event: queue.NewCommentSubtreeDeletedEvent(1, 2, nil)},
		},
	}
	repair := &fakeRepairer{}
	cfg := ManagerConfig{WorkerCount: 1, BlockTimeout: 5 * time.Millisecond, SweepInterval: time.Hour}
	m := NewManager(consumer, NewHandler(repair, nil), repair, nil, cfg, nil)

	require.NoError(t, m.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(consumer.Acked()) == 3 }, time.Second, 5*time.Millisecond)
	m.Stop()

	assert.Equal(t, []string{"1-0", "2-0", "3-0"}, consumer.Acked(), "failed events are acked too")
	assert.Equal(t, 1, consumer.groups)
	assert.Equal(t, []string{"follow", "sweep", "post"}, repair.Calls())
}

func TestManager_WithoutConsumerRunsSweepsOnly(t *testing.T) {
	repair := &fakeRepairer{}
	purger := &fakePurger{}
	cfg := ManagerConfig{SweepInterval: 10 * time.Millisecond}
	m := NewManager(nil, NewHandler(repair, nil), repair, purger, cfg, nil)

	require.NoError(t, m.Start(context.Background()))
	assert.Eventually(t, func() bool {
		calls := repair.Calls()
		return len(calls) >= 2 && calls[0] == "sweep" && calls[1] == "roots"
	}, time.Second, 5*time.Millisecond)
	m.Stop()
}

func TestManager_RunSweeps(t *testing.T) {
	repair := &fakeRepairer{}
	purger := &fakePurger{}
	m := NewManager(nil, NewHandler(repair, nil), repair, purger, DefaultManagerConfig(), nil)

	require.NoError(t, m.RunSweeps(context.Background()))
	assert.Equal(t, []string{"sweep", "roots"}, repair.Calls())
	assert.Equal(t, 1, purger.calls)

	repair.sweepErr = errors.New("boom")
	assert.ErrorContains(t, m.RunSweeps(context.Background()), "sweep orphans")
}

func TestConsumerName(t *testing.T) {
	assert.Equal(t, "worker-3", consumerName(3))
}
