package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"tagfs/internal/logging"
)

var (
	logger = logging.GetLogger().WithPrefix("state")
)

// DefaultBackupCount is the number of backups kept when none is configured.
const DefaultBackupCount = 5

// Manager writes snapshots to disk, keeping timestamped backups of the file
// it overwrites.
type Manager struct {
	backupDir   string
	backupCount int
	mu          sync.Mutex
}

// NewManager creates a manager that stores backups in backupDir. A
// backupCount below one falls back to DefaultBackupCount.
func NewManager(backupDir string, backupCount int) (*Manager, error) {
	if backupCount < 1 {
		backupCount = DefaultBackupCount
	}
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory %s: %w", backupDir, err)
	}
	logger.Debug("State manager using backup directory %s (keep %d)", backupDir, backupCount)
	return &Manager{
		backupDir:   backupDir,
		backupCount: backupCount,
	}, nil
}

// Load reads a snapshot from path.
func (m *Manager) Load(path string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("snapshot file %s is empty", path)
	}

	logger.Debug("Parsing snapshot %s (%d bytes)", path, len(data))
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if snap.Version > CurrentVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", snap.Version, CurrentVersion)
	}
	if snap.Files == nil {
		snap.Files = []FileEntry{}
	}
	return &snap, nil
}

// Save writes snap to path. An existing file at path is backed up first.
func (m *Manager) Save(path string, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.createBackup(path); err != nil {
		logger.Warn("Failed to create backup: %v", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Write to a sibling temp file and rename so readers never see a torn file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	logger.Info("Saved snapshot of %d files to %s", len(snap.Files), path)
	return nil
}

// createBackup copies the current file at path into the backup directory.
func (m *Manager) createBackup(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	timestamp := time.Now().Format("20060102-150405.000000000")
	backupPath := filepath.Join(m.backupDir, fmt.Sprintf("snapshot-%s.json", timestamp))

	logger.Debug("Creating backup: %s", backupPath)
	if err := os.WriteFile(backupPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	return m.cleanupOldBackups()
}

// Backups returns the backup files, newest first.
func (m *Manager) Backups() ([]string, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			names = append(names, entry.Name())
		}
	}

	// Timestamped names sort chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	out := make([]string, len(names))
	for i, name := range names {
		out[i] = filepath.Join(m.backupDir, name)
	}
	return out, nil
}

// cleanupOldBackups removes old backup files, keeping only the most recent ones
func (m *Manager) cleanupOldBackups() error {
	backups, err := m.Backups()
	if err != nil {
		return err
	}

	for i := m.backupCount; i < len(backups); i++ {
		logger.Debug("Removing old backup: %s", backups[i])
		if err := os.Remove(backups[i]); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i], err)
		}
	}
	return nil
}
