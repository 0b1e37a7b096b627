package onchain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedHeads devuelve las alturas en orden y repite la última al terminar.
type scriptedHeads struct {
	mu    sync.Mutex
	heads []uint64
	errs  map[int]error
	i     int
}

func (s *scriptedHeads) BlockNumber(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.i
	if s.i < len(s.heads)-1 {
		s.i++
	}
	if err, ok := s.errs[i]; ok {
		delete(s.errs, i)
		return 0, err
	}
	return s.heads[i], nil
}

func collect(t *testing.T, ch <-chan domain.BlockEvent, n int) []uint64 {
	t.Helper()
	var got []uint64
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case ev, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, ev.Number)
		case <-timeout:
			t.Fatalf("timeout waiting for blocks, got %v", got)
		}
	}
	return got
}

func TestBlockPoller_EmitsNewHeadsOnly(t *testing.T) {
	reader := &scriptedHeads{
		heads: []uint64{10, 10, 11, 13, 13, 14},
		errs:  map[int]error{4: errors.New("timeout")},
	}
	p := NewBlockPoller(reader, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Blocks(ctx)
	require.NoError(t, err)

	assert.Equal(t, []uint64{11, 13, 14}, collect(t, ch, 3))
}

func TestBlockPoller_InitialErrorFails(t *testing.T) {
	reader := &scriptedHeads{heads: []uint64{0}, errs: map[int]error{0: errors.New("dial failed")}}
	p := NewBlockPoller(reader, time.Millisecond)

	_, err := p.Blocks(context.Background())
	assert.Error(t, err)
}

func TestBlockPoller_ClosesOnCancel(t *testing.T) {
	p := NewBlockPoller(&scriptedHeads{heads: []uint64{5}}, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := p.Blocks(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestBlockPoller_SimulatedHeads(t *testing.T) {
	p := NewBlockPoller(NewSimulatedHeads(100), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := p.Blocks(ctx)
	require.NoError(t, err)

	assert.Equal(t, []uint64{102, 103}, collect(t, ch, 2))
}
