package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/localstore"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/notify"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/remote"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/roadmapsync"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/session"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/streaksync"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/logging"
	"github.com/spf13/afero"
)

const (
	logFileName = "careerforge.log"
	mirrorDir   = "mirror"
)

// clientEnv is everything a command needs: the session, the local mirror,
// the remote client and the change notifier, all rooted in the data dir.
type clientEnv struct {
	dataDir  string
	log      *slog.Logger
	sessions *session.Store
	sess     *session.Session
	remote   *remote.Client
	store    *localstore.Store
	notifier notify.Notifier

	closers []func()
}

// openEnv builds the environment. An expired access token is refreshed
// before any command runs; a failed refresh leaves the session in place so
// local work continues.
func openEnv(ctx context.Context) (*clientEnv, error) {
	fs := afero.NewOsFs()
	dir := settings.GetString("data-dir")
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	var mirror io.Writer
	if settings.GetBool("verbose") {
		mirror = os.Stderr
	}
	log, logCloser, err := logging.NewFileLogger(filepath.Join(dir, logFileName), logging.ParseLevel(settings.GetString("log-level")), mirror)
	if err != nil {
		return nil, err
	}

	env := &clientEnv{
		dataDir:  dir,
		log:      log,
		sessions: session.NewStore(fs, dir),
		closers:  []func(){func() { logCloser.Close() }},
	}

	sess, err := env.sessions.Load()
	switch {
	case errors.Is(err, session.ErrNoSession):
	case err != nil:
		log.Warn("session unreadable; continuing as guest", "error", err)
	default:
		env.sess = sess
	}
	env.remote = remote.New(settings.GetString("server"), session.NewTokens(env.sess))
	env.refreshSession(ctx)

	// The hook is installed before the notifier exists so the notifier can
	// tell its own writes apart from other processes'.
	var (
		hookMu sync.RWMutex
		record func(string, []byte)
	)
	env.store = localstore.New(fs, filepath.Join(dir, mirrorDir),
		localstore.WithLogger(log),
		localstore.WithWriteHook(func(key string, value []byte) {
			hookMu.RLock()
			defer hookMu.RUnlock()
			if record != nil {
				record(key, value)
			}
		}),
	)

	switch settings.GetString("notifier") {
	case "file":
		fn, err := notify.NewFileNotifier(env.store, log)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.notifier = fn
		hookMu.Lock()
		record = fn.Record
		hookMu.Unlock()
	case "redis":
		rdb, err := notify.DialRedis(ctx, settings.GetString("redis-addr"))
		if err != nil {
			env.Close()
			return nil, err
		}
		rn := notify.NewRedisNotifier(rdb, settings.GetString("redis-channel"), log)
		env.notifier = rn
		hookMu.Lock()
		record = rn.Record
		hookMu.Unlock()
		env.closers = append(env.closers, func() { rdb.Close() })
	}
	return env, nil
}

func (e *clientEnv) refreshSession(ctx context.Context) {
	if e.sess == nil || !e.sess.AccessExpired(time.Now()) {
		return
	}
	resp, err := e.remote.Refresh(ctx, e.sess.RefreshToken)
	if err != nil {
		e.log.Warn("token refresh failed", "identity", e.sess.Email, "error", err)
		return
	}
	e.sess.AccessToken = resp.AccessToken
	e.sess.RefreshToken = resp.RefreshToken
	e.sess.SavedAt = time.Now().UTC()
	if err := e.sessions.Save(e.sess); err != nil {
		e.log.Warn("session save failed", "error", err)
	}
}

func (e *clientEnv) identity() session.Identity {
	return e.sess.Identity()
}

func (e *clientEnv) engine() *roadmapsync.Engine {
	return roadmapsync.New(roadmapsync.Config{
		Identity: e.identity(),
		Store:    e.store,
		Remote:   e.remote,
		Notifier: e.notifier,
		Logger:   e.log,
	})
}

func (e *clientEnv) streak() *streaksync.Synchronizer {
	return streaksync.New(e.identity(), e.store, e.remote, e.log)
}

// listen starts delivering changes made by other terminals.
func (e *clientEnv) listen(ctx context.Context) error {
	switch n := e.notifier.(type) {
	case *notify.FileNotifier:
		if err := n.Start(); err != nil {
			return err
		}
		e.closers = append(e.closers, func() { n.Stop() })
	case *notify.RedisNotifier:
		if err := n.Start(ctx); err != nil {
			return err
		}
		e.closers = append(e.closers, n.Stop)
	case nil:
		return errors.New("change notifications are disabled (--notifier=none)")
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (e *clientEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}
