package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"carbon-filing/internal/config"
	"carbon-filing/internal/service"
)

// Sweeper periodically deletes orphaned evidence files: rows that never got
// associated with an entry and whose blobs would otherwise linger forever.
type Sweeper struct {
	files service.FileRepo
	store service.BlobStore
	cfg   *config.SweeperConfig

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewSweeper creates a new sweeper
func NewSweeper(files service.FileRepo, store service.BlobStore, cfg *config.SweeperConfig) *Sweeper {
	return &Sweeper{files: files, store: store, cfg: cfg}
}

// Start launches the background sweep loop
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || !s.cfg.Enabled {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx)
	slog.Info("Orphan sweeper started", "interval", s.cfg.Interval, "grace_period", s.cfg.GracePeriod)
}

// Stop terminates the sweep loop and waits for it to finish
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.running = false
	s.mu.Unlock()

	<-done
	slog.Info("Orphan sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				slog.Warn("Orphan sweep failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single sweep immediately
func (s *Sweeper) RunOnce() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	return s.sweep(ctx)
}

func (s *Sweeper) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.cfg.GracePeriod)
	orphans, err := s.files.ListOrphans(cutoff, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		return nil
	}

	var removed int
	for i := range orphans {
		if ctx.Err() != nil {
			break
		}
		if err := s.store.Remove(ctx, orphans[i].FilePath); err != nil {
			slog.Warn("Failed to remove orphan blob", "file_id", orphans[i].ID, "error", err)
			continue
		}
		if err := s.files.Delete(orphans[i].ID); err != nil {
			slog.Warn("Failed to delete orphan row", "file_id", orphans[i].ID, "error", err)
			continue
		}
		removed++
	}

	slog.Info("Orphan sweep completed", "candidates", len(orphans), "removed", removed)
	return nil
}
