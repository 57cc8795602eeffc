package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/timik232/dataset-bot/pkg/logger"
	"github.com/timik232/dataset-bot/pkg/metrics"
)

// Sweeper copies the dataset file into a backup directory whenever it
// changes, keeping only the newest copies. It never mutates the dataset.
type Sweeper struct {
	path     string
	dir      string
	keep     int
	debounce time.Duration
	logger   *logger.Logger
}

// NewSweeper creates a sweeper for the dataset at path.
func NewSweeper(path, dir string, keep int, debounce time.Duration, log *logger.Logger) *Sweeper {
	if keep <= 0 {
		keep = 5
	}
	if debounce <= 0 {
		debounce = 30 * time.Second
	}
	return &Sweeper{path: path, dir: dir, keep: keep, debounce: debounce, logger: log}
}

// Run watches the dataset file until the context is cancelled. Change bursts
// are coalesced by the debounce window. Saves replace the file via rename,
// so the watch is on the containing directory.
func (s *Sweeper) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch dataset dir: %w", err)
	}

	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(s.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			if err := s.backup(); err != nil {
				metrics.BackupsTotal.WithLabelValues("error").Inc()
				s.logger.Error("backup failed", zap.Error(err))
				continue
			}
			metrics.BackupsTotal.WithLabelValues("ok").Inc()
		}
	}
}

func (s *Sweeper) backupName(now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	return fmt.Sprintf("%s_backup_%s.json", base, now.Format("20060102_150405"))
}

// backup snapshots the current dataset file and prunes old copies.
func (s *Sweeper) backup() error {
	target := filepath.Join(s.dir, s.backupName(time.Now()))
	if err := copyFile(s.path, target); err != nil {
		return err
	}
	s.logger.Info("backup created", zap.String("file", target))
	return s.prune()
}

// prune drops the oldest backups beyond the retention count. Backup names
// embed their timestamp, so lexicographic order is chronological.
func (s *Sweeper) prune() error {
	base := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	var backups []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), base+"_backup_") {
			backups = append(backups, entry.Name())
		}
	}
	sort.Strings(backups)
	for len(backups) > s.keep {
		victim := backups[0]
		backups = backups[1:]
		if err := os.Remove(filepath.Join(s.dir, victim)); err != nil {
			return err
		}
		s.logger.Info("old backup removed", zap.String("file", victim))
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
