package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timik232/dataset-bot/pkg/logger"
)

func TestBackupName(t *testing.T) {
	s := NewSweeper("/data/dataset.json", "/backups", 5, time.Second,
		&logger.Logger{Logger: zap.NewNop()})

	now := time.Date(2026, 8, 29, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "dataset_backup_20260829_150405.json", s.backupName(now))
}

func TestBackupAndPrune(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.json")
	backupDir := filepath.Join(dir, "backups")
	require.NoError(t, os.WriteFile(path, []byte(`{"system":"s","examples":{}}`), 0o644))
	require.NoError(t, os.MkdirAll(backupDir, 0o755))

	s := NewSweeper(path, backupDir, 2, time.Second, &logger.Logger{Logger: zap.NewNop()})

	// Seed stale backups older than anything backup() will create.
	for _, name := range []string{
		"dataset_backup_20200101_000000.json",
		"dataset_backup_20200102_000000.json",
		"unrelated.json",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(backupDir, name), []byte("x"), 0o644))
	}

	require.NoError(t, s.backup())

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	// Two newest backups kept, the oldest pruned, unrelated files untouched.
	assert.Len(t, names, 3)
	assert.Contains(t, names, "unrelated.json")
	assert.NotContains(t, names, "dataset_backup_20200101_000000.json")
	assert.Contains(t, names, "dataset_backup_20200102_000000.json")
}
