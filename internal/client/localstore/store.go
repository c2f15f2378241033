// Package localstore is the per-device mirror of roadmap collections. Every
// key is one JSON file under a data directory. Reads never fail: missing or
// malformed data reads as an empty collection and is logged.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/session"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/roadmap"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	GuestKey    = "careerforge_roadmaps_guest"
	LegacyKey   = "careerforge_roadmaps"
	KeyPrefix   = "careerforge_roadmaps_"
	SyncPingKey = "__careerforge_sync"

	GuestStreakKey    = "careerforge_streak_guest"
	TouchMarkerPrefix = "careerforge_touch_date_"

	fileSuffix = ".json"
)

// KeyFor maps an identity to its mirror key.
func KeyFor(id session.Identity) string {
	if id.IsGuest() {
		return GuestKey
	}
	return KeyPrefix + id.Email
}

// TouchMarkerKey is the per-identity key holding the last day a streak
// touch was sent.
func TouchMarkerKey(id session.Identity) string {
	return TouchMarkerPrefix + id.String()
}

// WriteHook observes every write or removal just before it becomes visible
// on disk, so an observer can recognize its own change when the filesystem
// reports it. value is nil for removals.
type WriteHook func(key string, value []byte)

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithWriteHook(h WriteHook) Option {
	return func(s *Store) { s.hooks = append(s.hooks, h) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type Store struct {
	fs    afero.Fs
	dir   string
	log   *slog.Logger
	hooks []WriteHook
	now   func() time.Time
}

func New(fs afero.Fs, dir string, opts ...Option) *Store {
	s := &Store{fs: fs, dir: dir, log: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir is the directory holding the key files.
func (s *Store) Dir() string { return s.dir }

// Path returns the file backing key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+fileSuffix)
}

// KeyForPath reverses Path. ok is false for files that are not key files,
// such as in-flight temporaries.
func KeyForPath(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, fileSuffix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(base, fileSuffix))
	if err != nil {
		return "", false
	}
	return key, true
}

// Get returns the raw bytes stored under key.
func (s *Store) Get(key string) ([]byte, bool) {
	data, err := afero.ReadFile(s.fs, s.Path(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("local read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

// Set replaces the value under key. The write goes through a temporary file
// and a rename so concurrent readers never observe a partial value.
func (s *Store) Set(key string, value []byte) error {
	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	tmp := filepath.Join(s.dir, ".tmp-"+uuid.NewString())
	if err := afero.WriteFile(s.fs, tmp, value, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	s.fire(key, value)
	if err := s.fs.Rename(tmp, s.Path(key)); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Missing keys are not an error.
func (s *Store) Remove(key string) {
	path := s.Path(key)
	if _, err := s.fs.Stat(path); err != nil {
		return
	}
	s.fire(key, nil)
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("local remove failed", "key", key, "error", err)
	}
}

// LoadRoadmaps reads and normalizes the collection under key. The guest key
// falls back to the legacy key only when it has never been written, which
// is the case for data stored before per-identity keys existed; only legacy
// entries not owned by an account are taken.
func (s *Store) LoadRoadmaps(key string) []roadmap.Roadmap {
	data, ok := s.Get(key)
	legacy := false
	if !ok && key == GuestKey {
		data, ok = s.Get(LegacyKey)
		legacy = true
	}
	if !ok {
		return []roadmap.Roadmap{}
	}
	items, err := roadmap.FromJSON(data, s.now())
	if err != nil {
		s.log.Warn("local roadmaps unreadable", "key", key, "error", err)
		return []roadmap.Roadmap{}
	}
	if legacy {
		unowned := items[:0]
		for _, r := range items {
			if r.UserEmail == "" {
				unowned = append(unowned, r)
			}
		}
		items = unowned
	}
	return items
}

// SaveRoadmaps writes the collection under key and mirrors it to the legacy
// key. Failures are logged, never returned.
func (s *Store) SaveRoadmaps(key string, items []roadmap.Roadmap) {
	if items == nil {
		items = []roadmap.Roadmap{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		s.log.Warn("encode local roadmaps", "key", key, "error", err)
		return
	}
	if err := s.Set(key, data); err != nil {
		s.log.Warn("local write failed", "key", key, "error", err)
		return
	}
	if key != LegacyKey {
		if err := s.Set(LegacyKey, data); err != nil {
			s.log.Warn("legacy mirror write failed", "error", err)
		}
	}
}

// ClearGuest empties the guest mirror and drops the legacy key. The guest
// key is written as an empty list rather than removed so later guest reads
// never fall back to the legacy key, which every account's writes refresh.
func (s *Store) ClearGuest() {
	if err := s.Set(GuestKey, []byte("[]")); err != nil {
		s.log.Warn("guest clear failed", "error", err)
	}
	s.Remove(LegacyKey)
}

// Ping records a change marker other processes can observe.
func (s *Store) Ping() {
	stamp := []byte(fmt.Sprintf("%d", s.now().UnixNano()))
	if err := s.Set(SyncPingKey, stamp); err != nil {
		s.log.Warn("sync ping failed", "error", err)
	}
}

func (s *Store) fire(key string, value []byte) {
	for _, h := range s.hooks {
		h(key, value)
	}
}
