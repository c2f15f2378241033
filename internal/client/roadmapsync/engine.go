// Package roadmapsync keeps a user's roadmap collection consistent across
// the in-memory view, the local mirror, the remote store and every other
// context sharing the mirror.
//
// Local mutations are applied and persisted before any network call and the
// engine never waits on the network while holding its lock, so the view stays
// responsive when the remote is slow or down. Remote failures are logged and
// leave local state untouched.
package roadmapsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/localstore"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/notify"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/session"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/roadmap"
	"github.com/google/uuid"
)

// RemoteStore is the authoritative per-user roadmap store.
type RemoteStore interface {
	ListRoadmaps(ctx context.Context, id session.Identity) ([]roadmap.Roadmap, error)
	CreateRoadmap(ctx context.Context, id session.Identity, r roadmap.Roadmap) (roadmap.Roadmap, error)
	UpdateRoadmap(ctx context.Context, id session.Identity, roadmapID string, r roadmap.Roadmap) (roadmap.Roadmap, error)
	DeleteRoadmap(ctx context.Context, id session.Identity, roadmapID string) error
}

// Draft is the caller-supplied part of a new roadmap.
type Draft struct {
	Name    string
	Skills  []string
	Payload map[string]any
}

type Config struct {
	Identity session.Identity
	Store    *localstore.Store
	Remote   RemoteStore
	Notifier notify.Notifier
	Logger   *slog.Logger
	Now      func() time.Time
	NewID    func() string
}

type Engine struct {
	store    *localstore.Store
	remote   RemoteStore
	notifier notify.Notifier
	log      *slog.Logger
	now      func() time.Time
	newID    func() string

	mu       sync.Mutex
	identity session.Identity
	items    []roadmap.Roadmap
	loading  bool

	// pmu orders mirror writes. seq numbers snapshots under mu; a snapshot
	// older than the last one written to the same key is dropped.
	pmu       sync.Mutex
	seq       uint64
	persisted map[string]uint64

	lmu       sync.RWMutex
	nextSub   int
	listeners map[int]func([]roadmap.Roadmap)

	unsubscribe func()
}

func New(cfg Config) *Engine {
	e := &Engine{
		store:     cfg.Store,
		remote:    cfg.Remote,
		notifier:  cfg.Notifier,
		log:       cfg.Logger,
		now:       cfg.Now,
		newID:     cfg.NewID,
		identity:  cfg.Identity,
		items:     []roadmap.Roadmap{},
		listeners: make(map[int]func([]roadmap.Roadmap)),
		persisted: make(map[string]uint64),
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	e.log = e.log.With("component", "roadmapsync")
	return e
}

// Identity returns the identity the engine currently serves.
func (e *Engine) Identity() session.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity
}

// Roadmaps returns a copy of the current collection.
func (e *Engine) Roadmaps() []roadmap.Roadmap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return roadmap.CloneAll(e.items)
}

// Loading reports whether a load is in flight.
func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// OnChange registers fn to receive a copy of the collection after every
// update. The returned func unregisters it.
func (e *Engine) OnChange(fn func([]roadmap.Roadmap)) func() {
	e.lmu.Lock()
	id := e.nextSub
	e.nextSub++
	e.listeners[id] = fn
	e.lmu.Unlock()
	return func() {
		e.lmu.Lock()
		delete(e.listeners, id)
		e.lmu.Unlock()
	}
}

// Start begins listening for changes made by other contexts.
func (e *Engine) Start() {
	if e.notifier == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unsubscribe != nil {
		return
	}
	e.unsubscribe = e.notifier.Subscribe(e.HandleChange)
}

// Close stops listening for foreign changes.
func (e *Engine) Close() {
	e.mu.Lock()
	unsub := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// SwitchIdentity points the engine at another identity and reloads.
func (e *Engine) SwitchIdentity(ctx context.Context, id session.Identity) {
	e.mu.Lock()
	e.identity = id
	e.items = []roadmap.Roadmap{}
	snapshot := roadmap.CloneAll(e.items)
	e.mu.Unlock()
	e.emit(snapshot)
	e.Load(ctx)
}

// Load shows the local mirror first, then replaces it with the remote list
// when reachable, then migrates any guest-created roadmaps into the
// authenticated account.
func (e *Engine) Load(ctx context.Context) {
	e.mu.Lock()
	e.loading = true
	id := e.identity
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.loading = false
		e.mu.Unlock()
	}()

	if local := e.store.LoadRoadmaps(localstore.KeyFor(id)); len(local) > 0 {
		e.replace(id, local, false)
	}
	if id.IsGuest() || e.remote == nil {
		return
	}

	// Migration still runs when the list fails; the server upserts by
	// clientId, so an entry it already holds is updated, not duplicated.
	remoteItems, err := e.remote.ListRoadmaps(ctx, id)
	if err != nil {
		e.log.Warn("remote list failed; keeping local mirror", "identity", id.String(), "error", err)
	} else {
		e.replace(id, remoteItems, true)
	}

	guest := e.store.LoadRoadmaps(localstore.GuestKey)
	if len(guest) == 0 {
		return
	}
	if !e.migrate(ctx, id, guest, remoteItems) {
		return
	}

	refreshed, err := e.remote.ListRoadmaps(ctx, id)
	if err != nil {
		e.log.Warn("remote re-fetch after migration failed", "identity", id.String(), "error", err)
		return
	}
	e.replace(id, refreshed, true)
}

// migrate uploads guest roadmaps. Entries owned by an account are skipped,
// as are entries existing already holds by id or client id; existing is nil
// when the remote list could not be read. The guest mirror is cleared only
// when every upload succeeds; otherwise the failed entries are written back
// so the next load retries them. It reports whether the remote list may have
// changed.
func (e *Engine) migrate(ctx context.Context, id session.Identity, guest, existing []roadmap.Roadmap) bool {
	known := make(map[string]bool, len(existing)*2)
	for _, r := range existing {
		known[r.ID] = true
		if r.ClientID != "" {
			known[r.ClientID] = true
		}
	}

	var failed []roadmap.Roadmap
	uploaded := 0
	for _, g := range guest {
		if known[g.ID] || g.UserEmail != "" {
			continue
		}
		if _, err := e.remote.CreateRoadmap(ctx, id, g); err != nil {
			e.log.Warn("guest roadmap migration failed", "roadmap_id", g.ID, "error", err)
			failed = append(failed, g)
			continue
		}
		uploaded++
	}

	if len(failed) == 0 {
		e.store.ClearGuest()
	} else {
		e.store.SaveRoadmaps(localstore.GuestKey, failed)
	}
	e.log.Info("guest roadmaps migrated", "identity", id.String(), "uploaded", uploaded, "failed", len(failed))
	return uploaded > 0
}

// Add prepends a new roadmap, persists it locally and, for authenticated
// users, uploads it. The returned value is the server copy when the upload
// succeeded and the local draft otherwise.
func (e *Engine) Add(ctx context.Context, d Draft) roadmap.Roadmap {
	item := roadmap.Roadmap{
		ID:        e.newID(),
		Name:      d.Name,
		Skills:    append([]string{}, d.Skills...),
		Payload:   d.Payload,
		CreatedAt: roadmap.FormatTimestamp(e.now()),
	}
	if item.Name == "" {
		item.Name = roadmap.DefaultName
	}
	if item.Payload == nil {
		item.Payload = roadmap.DefaultPayload()
	}
	if d.Skills == nil {
		item.Skills = roadmap.FlattenSkills(item.Payload)
	}

	e.mu.Lock()
	id := e.identity
	// An account's optimistic entry carries its owner so it can never be
	// taken for guest data if it reaches the legacy key before the upload.
	item.UserEmail = id.Email
	item = item.Clone()
	e.items = append([]roadmap.Roadmap{item.Clone()}, e.items...)
	p := e.stageLocked()
	e.mu.Unlock()
	e.persist(p)

	if id.IsGuest() || e.remote == nil {
		return item
	}

	saved, err := e.remote.CreateRoadmap(ctx, id, item)
	if err != nil {
		e.log.Warn("remote create failed; kept local copy", "roadmap_id", item.ID, "error", err)
		return item
	}
	saved = saved.Normalized(e.now())
	e.replaceOne(id, item.ID, saved)
	return saved
}

// Delete removes id locally and, for authenticated users, remotely.
func (e *Engine) Delete(ctx context.Context, roadmapID string) {
	e.mu.Lock()
	id := e.identity
	kept := e.items[:0:0]
	for _, r := range e.items {
		if r.ID != roadmapID {
			kept = append(kept, r)
		}
	}
	e.items = kept
	p := e.stageLocked()
	e.mu.Unlock()
	e.persist(p)

	if id.IsGuest() || e.remote == nil {
		return
	}
	if err := e.remote.DeleteRoadmap(ctx, id, roadmapID); err != nil {
		e.log.Warn("remote delete failed", "roadmap_id", roadmapID, "error", err)
	}
}

// UpdateProgress merges patch into the roadmap's progress. ok is false, with
// no side effects, when roadmapID is unknown.
func (e *Engine) UpdateProgress(ctx context.Context, roadmapID string, patch map[string]any) (roadmap.Roadmap, bool) {
	e.mu.Lock()
	id := e.identity
	idx := -1
	for i, r := range e.items {
		if r.ID == roadmapID {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return roadmap.Roadmap{}, false
	}
	updated := roadmap.MergeProgress(e.items[idx], patch)
	e.items[idx] = updated.Clone()
	p := e.stageLocked()
	e.mu.Unlock()
	e.persist(p)

	if id.IsGuest() || e.remote == nil {
		return updated, true
	}
	saved, err := e.remote.UpdateRoadmap(ctx, id, roadmapID, updated)
	if err != nil {
		e.log.Warn("remote progress update failed; kept local copy", "roadmap_id", roadmapID, "error", err)
		return updated, true
	}
	saved = saved.Normalized(e.now())
	e.replaceOne(id, roadmapID, saved)
	return saved, true
}

// Refresh is Load under another name for callers that want to re-sync.
func (e *Engine) Refresh(ctx context.Context) {
	e.Load(ctx)
}

// HandleChange applies a change observed in another context. Pings reload
// the collection from the local mirror; data changes on watched keys are
// merged by id, skipping entries owned by a different account. Anything
// else, including values that are not JSON arrays, is ignored.
func (e *Engine) HandleChange(c notify.Change) {
	e.mu.Lock()
	id := e.identity
	e.mu.Unlock()

	own := localstore.KeyFor(id)
	switch c.Key {
	case localstore.SyncPingKey:
		items := e.store.LoadRoadmaps(own)
		e.replace(id, items, false)
		return
	case own, localstore.GuestKey, localstore.LegacyKey:
	default:
		return
	}

	incoming := []roadmap.Roadmap{}
	if !c.Removed && c.NewValue != nil {
		parsed, err := roadmap.FromJSON(c.NewValue, e.now())
		if err != nil {
			e.log.Debug("ignoring unreadable change", "key", c.Key, "error", err)
			return
		}
		// Shared keys can carry another account's entries; keep only
		// unowned ones and our own.
		for _, r := range parsed {
			if r.UserEmail == "" || r.UserEmail == id.Email {
				incoming = append(incoming, r)
			}
		}
	}

	e.mu.Lock()
	if e.identity != id {
		e.mu.Unlock()
		return
	}
	e.items = roadmap.MergeByID(e.items, incoming)
	snapshot := roadmap.CloneAll(e.items)
	e.mu.Unlock()
	e.emit(snapshot)
}

// replace swaps the whole collection if id is still current, optionally
// persisting it.
func (e *Engine) replace(id session.Identity, items []roadmap.Roadmap, persist bool) {
	normalized := make([]roadmap.Roadmap, len(items))
	now := e.now()
	for i, r := range items {
		normalized[i] = r.Normalized(now)
	}

	e.mu.Lock()
	if e.identity != id {
		e.mu.Unlock()
		return
	}
	e.items = normalized
	if !persist {
		snapshot := roadmap.CloneAll(e.items)
		e.mu.Unlock()
		e.emit(snapshot)
		return
	}
	p := e.stageLocked()
	e.mu.Unlock()
	e.persist(p)
}

// replaceOne swaps the entry whose id is oldID for r. It reports whether a
// matching entry was found.
func (e *Engine) replaceOne(id session.Identity, oldID string, r roadmap.Roadmap) bool {
	e.mu.Lock()
	if e.identity != id {
		e.mu.Unlock()
		return false
	}
	found := false
	for i := range e.items {
		if e.items[i].ID == oldID {
			e.items[i] = r.Clone()
			found = true
			break
		}
	}
	if !found {
		e.mu.Unlock()
		return false
	}
	p := e.stageLocked()
	e.mu.Unlock()
	e.persist(p)
	return true
}

// staged is a numbered copy of the collection waiting to be written.
type staged struct {
	seq   uint64
	key   string
	items []roadmap.Roadmap
}

// stageLocked copies the collection for persist. Caller holds e.mu.
func (e *Engine) stageLocked() staged {
	e.seq++
	return staged{seq: e.seq, key: localstore.KeyFor(e.identity), items: roadmap.CloneAll(e.items)}
}

// persist writes the snapshot to the local mirror, pings other contexts and
// notifies listeners. It runs without e.mu: the mirror's write hooks and the
// notifier may do network I/O.
func (e *Engine) persist(p staged) {
	e.pmu.Lock()
	stale := p.seq <= e.persisted[p.key]
	if !stale {
		e.store.SaveRoadmaps(p.key, p.items)
		e.persisted[p.key] = p.seq
	}
	e.pmu.Unlock()

	if !stale && e.notifier != nil {
		e.notifier.Broadcast(localstore.SyncPingKey)
	}
	e.emit(p.items)
}

func (e *Engine) emit(snapshot []roadmap.Roadmap) {
	e.lmu.RLock()
	fns := make([]func([]roadmap.Roadmap), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.lmu.RUnlock()
	for _, fn := range fns {
		fn(roadmap.CloneAll(snapshot))
	}
}
