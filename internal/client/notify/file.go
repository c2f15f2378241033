package notify

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/localstore"
	"github.com/fsnotify/fsnotify"
)

// FileNotifier watches the mirror directory of a localstore.Store so that
// separate processes on one machine see each other's writes. Its Record
// method must be installed as the store's write hook; that is how it tells
// its own writes apart from foreign ones.
type FileNotifier struct {
	store   *localstore.Store
	log     *slog.Logger
	watcher *fsnotify.Watcher
	subs    listeners

	mu      sync.Mutex
	own     map[string][sha256.Size]byte
	removed map[string]bool
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewFileNotifier(store *localstore.Store, log *slog.Logger) (*FileNotifier, error) {
	if log == nil {
		log = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &FileNotifier{
		store:   store,
		log:     log,
		watcher: w,
		own:     make(map[string][sha256.Size]byte),
		removed: make(map[string]bool),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the store directory, creating it if needed.
func (f *FileNotifier) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return fmt.Errorf("notifier already running")
	}
	if err := os.MkdirAll(f.store.Dir(), 0o700); err != nil {
		return fmt.Errorf("create mirror dir: %w", err)
	}
	if err := f.watcher.Add(f.store.Dir()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", f.store.Dir(), err)
	}
	f.running = true
	f.wg.Add(1)
	go f.loop()
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (f *FileNotifier) Stop() error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = false
	f.mu.Unlock()

	close(f.done)
	err := f.watcher.Close()
	f.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (f *FileNotifier) Broadcast(key string) {
	stamp := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
	if err := f.store.Set(key, stamp); err != nil {
		f.log.Warn("broadcast failed", "key", key, "error", err)
	}
}

func (f *FileNotifier) Record(key string, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value == nil {
		delete(f.own, key)
		f.removed[key] = true
		return
	}
	delete(f.removed, key)
	f.own[key] = sha256.Sum256(value)
}

func (f *FileNotifier) Subscribe(fn func(Change)) func() {
	return f.subs.add(fn)
}

func (f *FileNotifier) loop() {
	defer f.wg.Done()
	for {
		select {
		case <-f.done:
			return
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if c, ok := f.convert(ev); ok {
				f.subs.emit(c)
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.log.Warn("mirror watch error", "error", err)
		}
	}
}

func (f *FileNotifier) convert(ev fsnotify.Event) (Change, bool) {
	key, ok := localstore.KeyForPath(ev.Name)
	if !ok {
		return Change{}, false
	}

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		if _, exists := f.store.Get(key); exists {
			return Change{}, false
		}
		f.mu.Lock()
		self := f.removed[key]
		delete(f.removed, key)
		f.mu.Unlock()
		if self {
			return Change{}, false
		}
		return Change{Key: key, Removed: true, Origin: "file"}, true
	}

	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return Change{}, false
	}
	value, exists := f.store.Get(key)
	if !exists {
		return Change{}, false
	}
	sum := sha256.Sum256(value)
	f.mu.Lock()
	mine, marked := f.own[key]
	f.mu.Unlock()
	if marked && mine == sum {
		return Change{}, false
	}
	return Change{Key: key, NewValue: value, Origin: "file"}, true
}
