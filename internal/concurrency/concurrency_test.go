package concurrency

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeGoRecoversPanic(t *testing.T) {
	recovered := make(chan any, 1)

	SafeGo("test", func() {
		panic("boom")
	}, func(r any) {
		recovered <- r
	})

	select {
	case r := <-recovered:
		assert.Equal(t, "boom", r)
	case <-time.After(time.Second):
		t.Fatal("panic was not recovered")
	}
}

func TestSequencerRejectsStaleTickets(t *testing.T) {
	s := NewSequencer()

	first := s.Next("missions")
	second := s.Next("missions")
	require.Greater(t, second, first)

	assert.True(t, s.Commit("missions", second))
	assert.False(t, s.Commit("missions", first), "older ticket must not apply after a newer one")
	assert.False(t, s.Commit("missions", second), "a ticket applies once")

	other := s.Next("teams")
	assert.True(t, s.Commit("teams", other), "keys are independent")
	assert.Equal(t, second, s.Latest("missions"))
}

func TestSequencerConcurrentNext(t *testing.T) {
	s := NewSequencer()
	var wg sync.WaitGroup
	seen := sync.Map{}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket := s.Next("k")
			_, dup := seen.LoadOrStore(ticket, true)
			assert.False(t, dup)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), s.Latest("k"))
}
