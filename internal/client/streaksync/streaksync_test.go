package streaksync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/localstore"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/session"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/streak"
	"github.com/spf13/afero"
)

type fakeRemote struct {
	state   streak.State
	touches int
	gets    int
	fail    bool
}

func (f *fakeRemote) GetStreak(context.Context, session.Identity) (streak.State, error) {
	f.gets++
	if f.fail {
		return streak.State{}, errors.New("down")
	}
	return f.state, nil
}

func (f *fakeRemote) TouchStreak(_ context.Context, _ session.Identity, day string) (streak.State, error) {
	f.touches++
	if f.fail {
		return streak.State{}, errors.New("down")
	}
	f.state = streak.Touch(f.state, day)
	return f.state, nil
}

func (f *fakeRemote) ResetStreak(context.Context, session.Identity) (streak.State, error) {
	if f.fail {
		return streak.State{}, errors.New("down")
	}
	f.state = streak.Reset()
	return f.state, nil
}

func newSync(id session.Identity, r Remote) (*Synchronizer, *localstore.Store) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := localstore.New(afero.NewMemMapFs(), "/m", localstore.WithLogger(log))
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	return New(id, store, r, log).WithClock(func() time.Time { return now }), store
}

func TestTouchSentOncePerDay(t *testing.T) {
	r := &fakeRemote{}
	s, _ := newSync(session.Identity{Email: "a@b.co"}, r)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		st, err := s.Touch(ctx, "2026-06-10")
		if err != nil {
			t.Fatal(err)
		}
		if st.Count != 1 {
			t.Errorf("touch %d count = %d", i, st.Count)
		}
	}
	if r.touches != 1 {
		t.Errorf("remote touches = %d, want 1", r.touches)
	}
	if r.gets != 2 {
		t.Errorf("remote reads = %d, want 2", r.gets)
	}

	st, err := s.Touch(ctx, "2026-06-11")
	if err != nil || st.Count != 2 || r.touches != 2 {
		t.Errorf("next day = %#v, %v, touches=%d", st, err, r.touches)
	}
}

func TestTouchDefaultsToToday(t *testing.T) {
	r := &fakeRemote{}
	s, _ := newSync(session.Identity{Email: "a@b.co"}, r)
	st, err := s.Touch(context.Background(), "not-a-date")
	if err != nil || st.LastActive == nil || *st.LastActive != "2026-06-10" {
		t.Errorf("touch = %#v, %v", st, err)
	}
}

func TestFailedTouchDoesNotMarkDay(t *testing.T) {
	r := &fakeRemote{fail: true}
	s, store := newSync(session.Identity{Email: "a@b.co"}, r)
	if _, err := s.Touch(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := store.Get(localstore.TouchMarkerKey(session.Identity{Email: "a@b.co"})); ok {
		t.Error("marker written for a failed touch")
	}
	if st := s.Load(context.Background()); st.Count != 0 {
		t.Errorf("failed load = %#v", st)
	}
}

func TestResetAllowsNewTouch(t *testing.T) {
	r := &fakeRemote{}
	s, _ := newSync(session.Identity{Email: "a@b.co"}, r)
	ctx := context.Background()
	s.Touch(ctx, "2026-06-10")
	if st, err := s.Reset(ctx); err != nil || st.Count != 0 || st.LastActive != nil {
		t.Fatalf("reset = %#v, %v", st, err)
	}
	s.Touch(ctx, "2026-06-10")
	if r.touches != 2 {
		t.Errorf("touches after reset = %d", r.touches)
	}
}

func TestGuestPinnedToBaseline(t *testing.T) {
	r := &fakeRemote{}
	s, _ := newSync(session.Guest(), r)
	ctx := context.Background()

	s.Touch(ctx, "2026-06-09")
	st, _ := s.Touch(ctx, "2026-06-10")
	if st.Count != streak.Baseline || *st.LastActive != "2026-06-10" {
		t.Errorf("guest touch = %#v", st)
	}
	if loaded := s.Load(ctx); loaded.Count != streak.Baseline || *loaded.LastActive != "2026-06-10" {
		t.Errorf("guest load = %#v", loaded)
	}
	st, _ = s.Reset(ctx)
	if st.Count != streak.Baseline || st.LastActive != nil {
		t.Errorf("guest reset = %#v", st)
	}
	if r.touches+r.gets != 0 {
		t.Error("guest reached the remote")
	}
}
