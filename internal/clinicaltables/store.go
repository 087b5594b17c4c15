package clinicaltables

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Reload outcomes reported to the OnReload hook.
const (
	ReloadApplied  = "applied"
	ReloadRejected = "rejected"
)

// Store hands out the active tables. It is safe for concurrent use.
type Store struct {
	current atomic.Pointer[Tables]
	path    string
	logger  zerolog.Logger

	// OnReload, when set, is called after every reload attempt.
	OnReload func(outcome string)
}

// NewStore loads the tables at path (or the embedded defaults when path is
// empty).
func NewStore(path string, logger zerolog.Logger) (*Store, error) {
	t, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, logger: logger}
	s.current.Store(t)
	return s, nil
}

// StaticStore wraps fixed tables; it never reloads.
func StaticStore(t *Tables) *Store {
	s := &Store{logger: zerolog.Nop()}
	s.current.Store(t)
	return s
}

// Get returns the active tables.
func (s *Store) Get() *Tables {
	return s.current.Load()
}

// Reload re-reads the backing file. On failure the active tables are kept.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	t, err := Load(s.path)
	if err != nil {
		s.report(ReloadRejected)
		return err
	}
	s.current.Store(t)
	s.report(ReloadApplied)
	return nil
}

func (s *Store) report(outcome string) {
	if s.OnReload != nil {
		s.OnReload(outcome)
	}
}

// Watch reloads the tables whenever the backing file is written or replaced
// until ctx is cancelled. The parent directory is watched so that editors
// which save by rename are picked up.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	abs, err := filepath.Abs(s.path)
	if err != nil {
		w.Close()
		return fmt.Errorf("resolve %s: %w", s.path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.Reload(); err != nil {
					s.logger.Error().Err(err).Str("file", s.path).Msg("clinical tables reload rejected; keeping previous tables")
					continue
				}
				s.logger.Info().Str("file", s.path).Msg("clinical tables reloaded")
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn().Err(err).Msg("clinical tables watcher error")
			}
		}
	}()
	return nil
}
