package roadmapsync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/localstore"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/notify"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/remote"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/session"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/roadmap"
	"github.com/spf13/afero"
)

var alice = session.Identity{Email: "alice@example.com"}

// fakeRemote mimics the server: creates upsert on (user, clientId).
type fakeRemote struct {
	mu         sync.Mutex
	rows       []roadmap.Roadmap
	seq        int
	down       bool
	failList   bool
	failCreate map[string]bool
	creates    int
	lists      int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{failCreate: map[string]bool{}}
}

func (f *fakeRemote) ListRoadmaps(_ context.Context, id session.Identity) ([]roadmap.Roadmap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.down || f.failList {
		return nil, remote.ErrNetwork
	}
	var out []roadmap.Roadmap
	for _, r := range f.rows {
		if r.UserEmail == id.Email {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (f *fakeRemote) CreateRoadmap(_ context.Context, id session.Identity, r roadmap.Roadmap) (roadmap.Roadmap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.down || f.failCreate[r.ID] {
		return roadmap.Roadmap{}, remote.ErrNetwork
	}
	for i, row := range f.rows {
		if row.UserEmail == id.Email && row.ClientID == r.ID {
			row.Name, row.Skills, row.Payload = r.Name, r.Skills, r.Payload
			f.rows[i] = row
			return row.Clone(), nil
		}
	}
	f.seq++
	row := r.Clone()
	row.ClientID = r.ID
	row.ID = fmt.Sprintf("srv-%d", f.seq)
	row.UserEmail = id.Email
	f.rows = append(f.rows, row)
	return row.Clone(), nil
}

func (f *fakeRemote) UpdateRoadmap(_ context.Context, id session.Identity, roadmapID string, r roadmap.Roadmap) (roadmap.Roadmap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return roadmap.Roadmap{}, remote.ErrNetwork
	}
	for i, row := range f.rows {
		if row.UserEmail == id.Email && (row.ID == roadmapID || row.ClientID == roadmapID) {
			row.Payload = r.Payload
			f.rows[i] = row
			return row.Clone(), nil
		}
	}
	return roadmap.Roadmap{}, remote.ErrNotFound
}

func (f *fakeRemote) DeleteRoadmap(_ context.Context, id session.Identity, roadmapID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return remote.ErrNetwork
	}
	for i, row := range f.rows {
		if row.UserEmail == id.Email && (row.ID == roadmapID || row.ClientID == roadmapID) {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return remote.ErrNotFound
}

func (f *fakeRemote) setDown(v bool) {
	f.mu.Lock()
	f.down = v
	f.mu.Unlock()
}

func (f *fakeRemote) setFailList(v bool) {
	f.mu.Lock()
	f.failList = v
	f.mu.Unlock()
}

func (f *fakeRemote) rowsFor(email string) []roadmap.Roadmap {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []roadmap.Roadmap
	for _, r := range f.rows {
		if r.UserEmail == email {
			out = append(out, r.Clone())
		}
	}
	return out
}

func (f *fakeRemote) countByClientID(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rows {
		if r.ClientID == id {
			n++
		}
	}
	return n
}

type harness struct {
	fs     afero.Fs
	hub    *notify.Hub
	remote *fakeRemote
	clock  time.Time
	ids    int
}

func newHarness() *harness {
	return &harness{
		fs:     afero.NewMemMapFs(),
		hub:    notify.NewHub(),
		remote: newFakeRemote(),
		clock:  time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tab builds one engine with its own store handle and notifier tab, all
// sharing the harness filesystem.
func (h *harness) tab(id session.Identity) (*Engine, *localstore.Store) {
	t := h.hub.Tab()
	store := localstore.New(h.fs, "/mirror", localstore.WithLogger(quiet()), localstore.WithWriteHook(t.Record))
	e := New(Config{
		Identity: id,
		Store:    store,
		Remote:   h.remote,
		Notifier: t,
		Logger:   quiet(),
		Now: func() time.Time {
			h.clock = h.clock.Add(time.Second)
			return h.clock
		},
		NewID: func() string {
			h.ids++
			return fmt.Sprintf("tmp-%d", h.ids)
		},
	})
	e.Start()
	return e, store
}

func ids(items []roadmap.Roadmap) []string {
	out := make([]string, len(items))
	for i, r := range items {
		out[i] = r.ID
	}
	return out
}

func TestGuestAddStaysLocal(t *testing.T) {
	h := newHarness()
	e, store := h.tab(session.Guest())
	ctx := context.Background()

	first := e.Add(ctx, Draft{Name: "First"})
	second := e.Add(ctx, Draft{})

	got := e.Roadmaps()
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Fatalf("order = %v", ids(got))
	}
	if second.Name != roadmap.DefaultName {
		t.Errorf("default name = %q", second.Name)
	}
	if _, ok := second.Payload["resources"]; !ok {
		t.Errorf("default payload = %#v", second.Payload)
	}
	if mirrored := store.LoadRoadmaps(localstore.GuestKey); len(mirrored) != 2 {
		t.Errorf("guest mirror = %v", ids(mirrored))
	}
	if h.remote.creates != 0 {
		t.Errorf("guest add hit remote %d times", h.remote.creates)
	}
}

func TestAddUploadsAndAdoptsServerCopy(t *testing.T) {
	h := newHarness()
	e, store := h.tab(alice)

	saved := e.Add(context.Background(), Draft{Name: "Backend", Skills: []string{"go"}})
	if saved.ID != "srv-1" || saved.ClientID != "tmp-1" {
		t.Fatalf("saved = %#v", saved)
	}
	got := e.Roadmaps()
	if len(got) != 1 || got[0].ID != "srv-1" {
		t.Errorf("in-memory = %v", ids(got))
	}
	mirrored := store.LoadRoadmaps(localstore.KeyFor(alice))
	if len(mirrored) != 1 || mirrored[0].ID != "srv-1" {
		t.Errorf("mirror = %v", ids(mirrored))
	}
}

func TestRemoteOutageKeepsLocalState(t *testing.T) {
	h := newHarness()
	h.remote.setDown(true)
	e, store := h.tab(alice)
	ctx := context.Background()

	a := e.Add(ctx, Draft{Name: "A"})
	b := e.Add(ctx, Draft{Name: "B"})
	if a.ID != "tmp-1" {
		t.Fatalf("offline add returned %#v", a)
	}

	updated, ok := e.UpdateProgress(ctx, a.ID, map[string]any{"n1": map[string]any{"mcq": 50}})
	if !ok {
		t.Fatal("update reported missing entry")
	}
	if updated.Payload["progress"].(map[string]any)["n1"] == nil {
		t.Errorf("progress not merged: %#v", updated.Payload)
	}
	e.Delete(ctx, b.ID)

	mirrored := store.LoadRoadmaps(localstore.KeyFor(alice))
	if len(mirrored) != 1 || mirrored[0].ID != a.ID {
		t.Fatalf("mirror = %v", ids(mirrored))
	}
	if mirrored[0].Payload["progress"] == nil {
		t.Error("progress not persisted")
	}

	e.Load(ctx)
	if got := e.Roadmaps(); len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("after offline load = %v", ids(got))
	}
}

func TestUpdateProgressUnknownIDHasNoEffect(t *testing.T) {
	h := newHarness()
	e, store := h.tab(alice)

	if _, ok := e.UpdateProgress(context.Background(), "missing", map[string]any{"x": 1}); ok {
		t.Fatal("expected miss")
	}
	if _, exists := store.Get(localstore.KeyFor(alice)); exists {
		t.Error("miss wrote to the mirror")
	}
}

func TestLoadShowsMirrorThenRemote(t *testing.T) {
	h := newHarness()
	e, store := h.tab(alice)
	store.SaveRoadmaps(localstore.KeyFor(alice), []roadmap.Roadmap{{ID: "cached", CreatedAt: "2025-01-01T00:00:00.000Z"}})
	h.remote.rows = []roadmap.Roadmap{{ID: "srv-9", UserEmail: alice.Email, CreatedAt: "2025-01-02T00:00:00.000Z"}}

	var seen [][]string
	e.OnChange(func(items []roadmap.Roadmap) { seen = append(seen, ids(items)) })
	e.Load(context.Background())

	if len(seen) < 2 || seen[0][0] != "cached" || seen[len(seen)-1][0] != "srv-9" {
		t.Fatalf("sequence = %v", seen)
	}
	if e.Loading() {
		t.Error("still loading")
	}
	if mirrored := store.LoadRoadmaps(localstore.KeyFor(alice)); mirrored[0].ID != "srv-9" {
		t.Errorf("mirror not refreshed: %v", ids(mirrored))
	}
}

func TestGuestMigrationIsIdempotent(t *testing.T) {
	h := newHarness()
	guest, guestStore := h.tab(session.Guest())
	ctx := context.Background()
	g1 := guest.Add(ctx, Draft{Name: "G1"})
	g2 := guest.Add(ctx, Draft{Name: "G2"})

	h.remote.failCreate[g2.ID] = true
	user, _ := h.tab(alice)
	user.Load(ctx)

	if h.remote.countByClientID(g1.ID) != 1 || h.remote.countByClientID(g2.ID) != 0 {
		t.Fatalf("after partial migration: g1=%d g2=%d", h.remote.countByClientID(g1.ID), h.remote.countByClientID(g2.ID))
	}
	left := guestStore.LoadRoadmaps(localstore.GuestKey)
	if len(left) != 1 || left[0].ID != g2.ID {
		t.Fatalf("guest mirror after partial failure = %v", ids(left))
	}

	delete(h.remote.failCreate, g2.ID)
	user.Load(ctx)
	user.Load(ctx)

	if h.remote.countByClientID(g1.ID) != 1 || h.remote.countByClientID(g2.ID) != 1 {
		t.Errorf("duplicates after retries: g1=%d g2=%d", h.remote.countByClientID(g1.ID), h.remote.countByClientID(g2.ID))
	}
	if left := guestStore.LoadRoadmaps(localstore.GuestKey); len(left) != 0 {
		t.Errorf("guest mirror not cleared: %v", ids(left))
	}
	if got := user.Roadmaps(); len(got) != 2 {
		t.Errorf("user sees %v", ids(got))
	}
}

func TestMigrationReplayAfterCrashDoesNotDuplicate(t *testing.T) {
	h := newHarness()
	_, store := h.tab(session.Guest())
	pending := []roadmap.Roadmap{{ID: "g-1", Name: "G", CreatedAt: "2025-01-01T00:00:00.000Z"}}
	store.SaveRoadmaps(localstore.GuestKey, pending)

	user, _ := h.tab(alice)
	ctx := context.Background()
	user.Load(ctx)

	// Simulate a crash between upload and clearing the guest mirror.
	store.SaveRoadmaps(localstore.GuestKey, pending)
	user.Load(ctx)

	if n := h.remote.countByClientID("g-1"); n != 1 {
		t.Errorf("remote holds %d copies", n)
	}
}

func TestCrossContextPropagation(t *testing.T) {
	h := newHarness()
	a, _ := h.tab(alice)
	b, _ := h.tab(alice)
	h.remote.setDown(true)

	added := a.Add(context.Background(), Draft{Name: "Shared"})

	got := b.Roadmaps()
	if len(got) != 1 || got[0].ID != added.ID {
		t.Fatalf("peer sees %v", ids(got))
	}

	a.Delete(context.Background(), added.ID)
	if got := b.Roadmaps(); len(got) != 0 {
		t.Errorf("peer still sees %v after ping", ids(got))
	}
}

func TestHandleChangeFiltering(t *testing.T) {
	h := newHarness()
	e, _ := h.tab(alice)
	e.HandleChange(notify.Change{Key: localstore.KeyFor(alice), NewValue: []byte(`[{"id":"x","createdAt":"2025-01-02T00:00:00.000Z"}]`)})

	cases := []notify.Change{
		{Key: localstore.KeyFor(alice), NewValue: []byte(`{"id":"y"}`)},
		{Key: localstore.KeyFor(alice), NewValue: []byte(`garbage`)},
		{Key: localstore.KeyFor(alice), Removed: true},
		{Key: "careerforge_roadmaps_bob@example.com", NewValue: []byte(`[{"id":"bob"}]`)},
		{Key: "unrelated", NewValue: []byte(`[{"id":"z"}]`)},
		{Key: localstore.LegacyKey, NewValue: []byte(`[{"id":"b2","userEmail":"bob@example.com"}]`)},
	}
	for _, c := range cases {
		e.HandleChange(c)
		if got := ids(e.Roadmaps()); len(got) != 1 || got[0] != "x" {
			t.Errorf("after %s/%s: %v", c.Key, c.NewValue, got)
		}
	}

	e.HandleChange(notify.Change{Key: localstore.LegacyKey, NewValue: []byte(`[{"id":"w","createdAt":"2025-01-01T00:00:00.000Z"}]`)})
	if got := ids(e.Roadmaps()); len(got) != 2 || got[0] != "w" {
		t.Errorf("legacy merge = %v", got)
	}
}

func TestCloseStopsListening(t *testing.T) {
	h := newHarness()
	h.remote.setDown(true)
	a, _ := h.tab(alice)
	b, _ := h.tab(alice)
	b.Close()

	a.Add(context.Background(), Draft{Name: "Solo"})
	if got := b.Roadmaps(); len(got) != 0 {
		t.Errorf("closed engine received %v", ids(got))
	}
}

func TestAccountEntriesNeverReachAnotherAccount(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	// One guest tab is open while alice writes; the other starts afterwards.
	idle, _ := h.tab(session.Guest())

	h.remote.setDown(true)
	a, _ := h.tab(alice)
	private := a.Add(ctx, Draft{Name: "alice-private"})
	if private.UserEmail != alice.Email {
		t.Fatalf("optimistic entry owner = %q", private.UserEmail)
	}
	if got := idle.Roadmaps(); len(got) != 0 {
		t.Fatalf("open guest tab merged account data: %v", ids(got))
	}

	guest, _ := h.tab(session.Guest())
	guest.Load(ctx)
	if got := guest.Roadmaps(); len(got) != 0 {
		t.Fatalf("guest sees account data: %v", ids(got))
	}
	own := guest.Add(ctx, Draft{Name: "guest-own"})

	h.remote.setDown(false)
	bob := session.Identity{Email: "bob@example.com"}
	b, _ := h.tab(bob)
	b.Load(ctx)

	for _, r := range h.remote.rowsFor(bob.Email) {
		if r.Name == "alice-private" || r.ClientID == private.ID {
			t.Fatalf("bob owns alice's roadmap: %#v", r)
		}
	}
	got := b.Roadmaps()
	if len(got) != 1 || got[0].ClientID != own.ID {
		t.Errorf("bob sees %v", ids(got))
	}
}

// stallNotifier holds every broadcast until release is closed.
type stallNotifier struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (n *stallNotifier) Broadcast(string) {
	n.once.Do(func() { close(n.entered) })
	<-n.release
}

func (n *stallNotifier) Record(string, []byte) {}

func (n *stallNotifier) Subscribe(func(notify.Change)) func() { return func() {} }

func TestSlowBroadcastDoesNotBlockReaders(t *testing.T) {
	n := &stallNotifier{entered: make(chan struct{}), release: make(chan struct{})}
	store := localstore.New(afero.NewMemMapFs(), "/mirror", localstore.WithLogger(quiet()))
	e := New(Config{Identity: session.Guest(), Store: store, Notifier: n, Logger: quiet()})
	ctx := context.Background()

	added := make(chan roadmap.Roadmap, 1)
	go func() { added <- e.Add(ctx, Draft{Name: "Slow"}) }()

	select {
	case <-n.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never happened")
	}

	read := make(chan []roadmap.Roadmap, 1)
	go func() { read <- e.Roadmaps() }()
	select {
	case got := <-read:
		if len(got) != 1 || got[0].Name != "Slow" {
			t.Errorf("read during broadcast = %v", ids(got))
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Roadmaps blocked behind a pending broadcast")
	}
	if mirrored := store.LoadRoadmaps(localstore.GuestKey); len(mirrored) != 1 {
		t.Errorf("mirror written after broadcast: %v", ids(mirrored))
	}

	close(n.release)
	select {
	case <-added:
	case <-time.After(2 * time.Second):
		t.Fatal("Add did not finish after release")
	}
}

func TestStaleSnapshotDoesNotOverwriteMirror(t *testing.T) {
	h := newHarness()
	e, store := h.tab(alice)
	key := localstore.KeyFor(alice)

	e.mu.Lock()
	e.items = []roadmap.Roadmap{{ID: "old"}}
	older := e.stageLocked()
	e.items = []roadmap.Roadmap{{ID: "new"}}
	newer := e.stageLocked()
	e.mu.Unlock()

	e.persist(newer)
	e.persist(older)

	if mirrored := store.LoadRoadmaps(key); len(mirrored) != 1 || mirrored[0].ID != "new" {
		t.Errorf("mirror = %v", ids(mirrored))
	}
}

func TestMigrationRunsWhenListFails(t *testing.T) {
	h := newHarness()
	guest, guestStore := h.tab(session.Guest())
	ctx := context.Background()
	g := guest.Add(ctx, Draft{Name: "Offline list"})

	h.remote.setFailList(true)
	user, _ := h.tab(alice)
	user.Load(ctx)

	if n := h.remote.countByClientID(g.ID); n != 1 {
		t.Fatalf("uploaded %d copies", n)
	}
	if left := guestStore.LoadRoadmaps(localstore.GuestKey); len(left) != 0 {
		t.Fatalf("guest mirror not cleared: %v", ids(left))
	}

	// A replay while the list is still failing must upsert, not duplicate.
	guestStore.SaveRoadmaps(localstore.GuestKey, []roadmap.Roadmap{g})
	user.Load(ctx)
	h.remote.setFailList(false)
	user.Load(ctx)

	if n := h.remote.countByClientID(g.ID); n != 1 {
		t.Errorf("remote holds %d copies", n)
	}
	if got := user.Roadmaps(); len(got) != 1 || got[0].ClientID != g.ID {
		t.Errorf("user sees %v", ids(got))
	}
}

func TestAddDerivesSkillsFromPayload(t *testing.T) {
	h := newHarness()
	e, _ := h.tab(session.Guest())
	ctx := context.Background()
	payload := map[string]any{"roadmap": []any{
		map[string]any{"skills": []any{"sql", "go"}},
		map[string]any{"milestones": []any{"deploy"}},
	}}

	derived := e.Add(ctx, Draft{Name: "Generated", Payload: payload})
	if got := fmt.Sprint(derived.Skills); got != "[sql go deploy]" {
		t.Errorf("derived skills = %s", got)
	}

	explicit := e.Add(ctx, Draft{Name: "Empty", Payload: payload, Skills: []string{}})
	if len(explicit.Skills) != 0 {
		t.Errorf("explicit empty skills = %v", explicit.Skills)
	}
}
