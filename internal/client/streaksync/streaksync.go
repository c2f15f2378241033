// Package streaksync maintains the daily streak for the current identity.
// Authenticated users are backed by the server; guests keep only a local
// last-active date and always display the baseline.
package streaksync

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/localstore"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/session"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/streak"
)

// Remote is the server side of the streak.
type Remote interface {
	GetStreak(ctx context.Context, id session.Identity) (streak.State, error)
	TouchStreak(ctx context.Context, id session.Identity, day string) (streak.State, error)
	ResetStreak(ctx context.Context, id session.Identity) (streak.State, error)
}

type Synchronizer struct {
	identity session.Identity
	store    *localstore.Store
	remote   Remote
	log      *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	current streak.State
}

func New(id session.Identity, store *localstore.Store, remote Remote, log *slog.Logger) *Synchronizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synchronizer{
		identity: id,
		store:    store,
		remote:   remote,
		log:      log.With("component", "streaksync"),
		now:      time.Now,
		current:  streak.Missing(),
	}
}

// WithClock overrides the time source.
func (s *Synchronizer) WithClock(now func() time.Time) *Synchronizer {
	s.now = now
	return s
}

// Current returns the last known state.
func (s *Synchronizer) Current() streak.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Load reads the streak. A failed remote read yields a zero streak rather
// than an error so the caller can still render something.
func (s *Synchronizer) Load(ctx context.Context) streak.State {
	if s.identity.IsGuest() {
		return s.set(s.guestState())
	}
	st, err := s.remote.GetStreak(ctx, s.identity)
	if err != nil {
		s.log.Warn("streak read failed", "identity", s.identity.String(), "error", err)
		return s.set(streak.State{Count: 0})
	}
	return s.set(st)
}

// Touch records activity for day, or today when day is empty or malformed.
// Authenticated touches are sent at most once per identity per day; repeats
// only re-read the server value.
func (s *Synchronizer) Touch(ctx context.Context, day string) (streak.State, error) {
	day = streak.ResolveDate(day, s.now())

	if s.identity.IsGuest() {
		st := s.guestState()
		d := day
		st.LastActive = &d
		s.saveGuest(st)
		return s.set(st), nil
	}

	marker := localstore.TouchMarkerKey(s.identity)
	if last, ok := s.store.Get(marker); ok && string(last) == day {
		st, err := s.remote.GetStreak(ctx, s.identity)
		if err == nil {
			st.Count = streak.Display(st.Count)
			return s.set(st), nil
		}
		s.log.Warn("streak refresh failed; touching instead", "error", err)
	}

	st, err := s.remote.TouchStreak(ctx, s.identity, day)
	if err != nil {
		return s.Current(), err
	}
	if err := s.store.Set(marker, []byte(day)); err != nil {
		s.log.Warn("touch marker write failed", "error", err)
	}
	return s.set(st), nil
}

// Reset clears the streak.
func (s *Synchronizer) Reset(ctx context.Context) (streak.State, error) {
	if s.identity.IsGuest() {
		st := streak.State{Count: streak.Baseline}
		s.saveGuest(st)
		return s.set(st), nil
	}
	st, err := s.remote.ResetStreak(ctx, s.identity)
	if err != nil {
		return s.Current(), err
	}
	s.store.Remove(localstore.TouchMarkerKey(s.identity))
	return s.set(st), nil
}

func (s *Synchronizer) set(st streak.State) streak.State {
	s.mu.Lock()
	s.current = st
	s.mu.Unlock()
	return st
}

// guestState reads the locally stored guest streak, pinned to the baseline.
func (s *Synchronizer) guestState() streak.State {
	st := streak.State{Count: streak.Baseline}
	raw, ok := s.store.Get(localstore.GuestStreakKey)
	if !ok {
		return st
	}
	var stored streak.State
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.log.Warn("guest streak unreadable", "error", err)
		return st
	}
	st.LastActive = stored.LastActive
	return st
}

func (s *Synchronizer) saveGuest(st streak.State) {
	raw, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := s.store.Set(localstore.GuestStreakKey, raw); err != nil {
		s.log.Warn("guest streak write failed", "error", err)
	}
}
