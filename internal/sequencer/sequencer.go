// Package sequencer hands out gapless, per-channel message sequence numbers.
//
// Within one process writers for the same channel are serialized by a lock
// table keyed by channel id. The unique (channel_id, sequence) index is the
// backstop when several processes share a database: a writer that loses the
// race re-reads the maximum and tries again.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"helpdesk/internal/repository"
)

// DefaultMaxAttempts bounds the re-read loop after a sequence conflict
const DefaultMaxAttempts = 5

// ErrExhausted means every attempt collided with another writer
var ErrExhausted = errors.New("sequencer: no free sequence after retries")

// Store reads the highest sequence currently persisted for a channel
type Store interface {
	MaxSequence(ctx context.Context, channelID string) (int64, error)
}

// WriteFunc persists a message at seq and returns repository.ErrDuplicateSequence if it is taken
type WriteFunc func(ctx context.Context, seq int64) error

type lockEntry struct {
	sem  chan struct{}
	refs int
}

type Sequencer struct {
	store       Store
	maxAttempts int

	mu    sync.Mutex
	locks map[string]*lockEntry
}

func New(store Store) *Sequencer {
	return &Sequencer{
		store:       store,
		maxAttempts: DefaultMaxAttempts,
		locks:       make(map[string]*lockEntry),
	}
}

// Next returns max+1, or 1 when the channel has no messages. It does not
// check that the channel exists.
func (s *Sequencer) Next(ctx context.Context, channelID string) (int64, error) {
	max, err := s.store.MaxSequence(ctx, channelID)
	if err != nil {
		return 0, fmt.Errorf("read max sequence: %w", err)
	}
	return max + 1, nil
}

// Acquire blocks until the caller owns channelID or ctx is done. The returned
// release func is safe to call more than once.
func (s *Sequencer) Acquire(ctx context.Context, channelID string) (func(), error) {
	s.mu.Lock()
	e, ok := s.locks[channelID]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		s.locks[channelID] = e
	}
	e.refs++
	s.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		s.drop(channelID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			s.drop(channelID, e)
		})
	}, nil
}

func (s *Sequencer) drop(channelID string, e *lockEntry) {
	s.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(s.locks, channelID)
	}
	s.mu.Unlock()
}

// Reserve writes at the next free sequence and returns the number used.
// Callers are expected to hold the channel lock.
func (s *Sequencer) Reserve(ctx context.Context, channelID string, write WriteFunc) (int64, error) {
	return s.ReserveAt(ctx, channelID, 0, write)
}

// ReserveAt tries seq first (when > 0) and falls back to re-reading the
// maximum if another writer already took it.
func (s *Sequencer) ReserveAt(ctx context.Context, channelID string, seq int64, write WriteFunc) (int64, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if seq <= 0 || attempt > 0 {
			next, err := s.Next(ctx, channelID)
			if err != nil {
				return 0, err
			}
			seq = next
		}

		err := write(ctx, seq)
		if err == nil {
			return seq, nil
		}
		if !errors.Is(err, repository.ErrDuplicateSequence) {
			return 0, err
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
	return 0, ErrExhausted
}

// Held reports how many callers currently hold or wait for channel locks
func (s *Sequencer) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
