package server

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	s := &Session{username: "alice"}

	req.True(r.Register("alice", s))

	got, ok := r.Lookup("alice")
	req.True(ok)
	req.Same(s, got)
	req.Equal(1, r.Count())
}

func TestRegistry_RefusesDuplicateUsername(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	first := &Session{username: "alice"}
	second := &Session{username: "alice"}

	req.True(r.Register("alice", first))
	req.False(r.Register("alice", second))

	got, ok := r.Lookup("alice")
	req.True(ok)
	req.Same(first, got)
}

func TestRegistry_UnregisterByIdentity(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	stale := &Session{username: "alice"}
	fresh := &Session{username: "alice"}

	req.True(r.Register("alice", stale))
	r.Unregister(stale)
	req.True(r.Register("alice", fresh))

	// A late close of the stale session must not evict the fresh one.
	r.Unregister(stale)

	got, ok := r.Lookup("alice")
	req.True(ok)
	req.Same(fresh, got)
}

func TestRegistry_Snapshot(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	a := &Session{username: "a"}
	b := &Session{username: "b"}
	r.Register("a", a)
	r.Register("b", b)

	snap := r.Snapshot()
	req.Len(snap, 2)
	req.ElementsMatch([]*Session{a, b}, snap)

	// Mutations after the snapshot do not affect it.
	r.Unregister(a)
	req.Len(snap, 2)
	req.Equal(1, r.Count())
}

func TestRegistry_ConcurrentSameUsername(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan *Session, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := &Session{username: "alice"}
			if r.Register("alice", s) {
				wins <- s
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []*Session
	for s := range wins {
		winners = append(winners, s)
	}
	req.Len(winners, 1)

	got, ok := r.Lookup("alice")
	req.True(ok)
	req.Same(winners[0], got)
}
