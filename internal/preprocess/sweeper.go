package preprocess

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sweeper removes workspaces orphaned by a crash or a killed request.
type Sweeper struct {
	dir      string
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
}

type SweeperOption func(*Sweeper)

func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithMaxAge(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

func NewSweeper(dir string, logger *slog.Logger, opts ...SweeperOption) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = os.TempDir()
	}
	s := &Sweeper{
		dir:      dir,
		interval: 5 * time.Minute,
		maxAge:   15 * time.Minute,
		logger:   logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("workspace sweeper started", "dir", s.dir, "interval", s.interval, "max_age", s.maxAge)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepOnce(time.Now())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("workspace sweeper stopped")
			return nil
		case now := <-ticker.C:
			s.SweepOnce(now)
		}
	}
}

// SweepOnce removes workspaces last modified before now-maxAge and returns how
// many it removed.
func (s *Sweeper) SweepOnce(now time.Time) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("workspace sweep failed", "dir", s.dir, "error", err)
		return 0
	}
	cutoff := now.Add(-s.maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), WorkspacePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		p := filepath.Join(s.dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			s.logger.Warn("failed to remove orphaned workspace", "dir", p, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("orphaned workspaces removed", "count", removed)
	}
	return removed
}
