package sessions

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndDeregister(t *testing.T) {
	r := New()

	id := r.Register(Record{ItemID: "item1", ItemName: "Blade Runner"})
	require.NotEmpty(t, id)
	assert.Equal(t, int64(1), r.TotalStreams())

	rec, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, "item1", rec.ItemID)
	assert.False(t, rec.StartedAt.IsZero())

	active := r.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, id, active[0].ID)

	r.Deregister(id)
	assert.Empty(t, r.ListActive())
	// Counter is monotonic, not tied to active count.
	assert.Equal(t, int64(1), r.TotalStreams())

	// Deregistering twice is a no-op.
	r.Deregister(id)
}

func TestTouchCounters(t *testing.T) {
	r := New()
	id := r.Register(Record{ItemID: "item1"})

	r.Touch(id, 1000)
	r.Touch(id, 500)

	rec, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, int64(1500), rec.Bytes)
	assert.Equal(t, int64(1500), r.TotalBytes())

	// Bytes for a swept record still count globally.
	r.Deregister(id)
	r.Touch(id, 250)
	assert.Equal(t, int64(1750), r.TotalBytes())
}

func TestTouchConcurrent(t *testing.T) {
	r := New()
	id := r.Register(Record{ItemID: "item1"})

	const workers = 8
	const perWorker = 200
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				r.Touch(id, 10)
			}
		}()
	}
	wg.Wait()

	rec, _ := r.Get(id)
	assert.Equal(t, int64(workers*perWorker*10), rec.Bytes)
	assert.Equal(t, int64(workers*perWorker*10), r.TotalBytes())
}

func TestSweepStale(t *testing.T) {
	r := New()

	fresh := r.Register(Record{ItemID: "fresh"})
	stale := r.Register(Record{ItemID: "stale", StartedAt: time.Now().UTC().Add(-2 * time.Hour)})

	// Nothing past the threshold: no-op.
	assert.Zero(t, r.SweepStale(3*time.Hour))
	assert.Len(t, r.ListActive(), 2)

	assert.Equal(t, 1, r.SweepStale(time.Hour))
	_, ok := r.Get(stale)
	assert.False(t, ok)
	_, ok = r.Get(fresh)
	assert.True(t, ok)

	// Sweeping again removes nothing further.
	assert.Zero(t, r.SweepStale(time.Hour))
}

func TestSweepAllStale(t *testing.T) {
	r := New()
	old := time.Now().UTC().Add(-time.Hour)
	r.Register(Record{ItemID: "a", StartedAt: old})
	r.Register(Record{ItemID: "b", StartedAt: old})
	r.Register(Record{ItemID: "c", StartedAt: old})

	assert.Equal(t, 3, r.SweepStale(time.Minute))
	assert.Empty(t, r.ListActive())
	assert.Zero(t, r.SweepStale(time.Minute))
}

func TestSubscribeNotifications(t *testing.T) {
	r := New()
	ch := r.Subscribe()
	defer r.Unsubscribe(ch)

	id := r.Register(Record{ItemID: "item1"})

	select {
	case snapshot := <-ch:
		require.Len(t, snapshot, 1)
		assert.Equal(t, id, snapshot[0].ID)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after register")
	}

	r.Deregister(id)
	select {
	case snapshot := <-ch:
		assert.Empty(t, snapshot)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after deregister")
	}
}

func TestSubscribeSlowConsumerDoesNotBlock(t *testing.T) {
	r := New()
	ch := r.Subscribe()
	defer r.Unsubscribe(ch)

	// Fill the buffer well past capacity; Register must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			r.Register(Record{ItemID: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("register blocked on slow subscriber")
	}
}
