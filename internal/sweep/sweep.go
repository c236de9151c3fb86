// Package sweep periodically deletes stale files from the working
// directories. It is the catch-all behind per-request cleanup: any
// path a handler failed to remove is reclaimed once it ages past the
// retention window.
package sweep

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper removes files older than the retention window from a fixed
// set of directories on a cron schedule.
type Sweeper struct {
	logger    *slog.Logger
	dirs      []string
	retention time.Duration
	spec      string
	cron      *cron.Cron
}

// New creates a sweeper over dirs with the given retention window and
// cron spec (for example "@hourly").
func New(log *slog.Logger, dirs []string, retention time.Duration, spec string) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if spec == "" {
		spec = "@hourly"
	}
	return &Sweeper{
		logger:    log.With(slog.String("service", "sweep")),
		dirs:      dirs,
		retention: retention,
		spec:      spec,
		cron:      cron.New(),
	}
}

// Start schedules the sweep and begins running it.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		removed := s.SweepOnce(time.Now())
		if removed > 0 {
			s.logger.Info("sweep removed stale files", slog.Int("count", removed))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("sweep scheduled",
		slog.String("spec", s.spec),
		slog.Duration("retention", s.retention))
	return nil
}

// Stop halts the schedule. A sweep already in flight finishes.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// SweepOnce removes every regular file older than the retention window
// as of now. A file deleted concurrently by a request's own cleanup is
// skipped silently.
func (s *Sweeper) SweepOnce(now time.Time) int {
	removed := 0
	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("sweep cannot read directory",
					slog.String("dir", dir),
					slog.Any("error", err))
			}
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if now.Sub(info.ModTime()) <= s.retention {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					s.logger.Warn("sweep cannot remove file",
						slog.String("path", path),
						slog.Any("error", err))
				}
				continue
			}
			s.logger.Debug("swept stale file", slog.String("path", path))
			removed++
		}
	}
	return removed
}
