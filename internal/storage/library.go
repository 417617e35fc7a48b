package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"videofetch/pkg/models"
)

var (
	ErrEntryNotFound = errors.New("library entry not found")
	ErrInvalidName   = errors.New("invalid file name")
)

// Library indexes the downloaded files in the output directory
type Library struct {
	mu           sync.RWMutex
	dir          string
	entries      map[string]*models.LibraryEntry
	maxSizeBytes int64
}

// NewLibrary creates the output directory if needed and indexes its contents.
// A maxSizeGB of 0 disables eviction.
func NewLibrary(dir string, maxSizeGB float64) (*Library, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	l := &Library{
		dir:          dir,
		entries:      make(map[string]*models.LibraryEntry),
		maxSizeBytes: int64(maxSizeGB * 1024 * 1024 * 1024),
	}

	if err := l.Scan(); err != nil {
		return nil, err
	}

	return l, nil
}

// Dir returns the output directory path
func (l *Library) Dir() string {
	return l.dir
}

// AddEntry indexes a file that already exists in the output directory
func (l *Library) AddEntry(filename string) (*models.LibraryEntry, error) {
	if !isIndexable(filename) || filepath.Base(filename) != filename {
		return nil, ErrInvalidName
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := os.Stat(filepath.Join(l.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	entry := &models.LibraryEntry{
		ID:         filename,
		FileName:   filename,
		Size:       info.Size(),
		LastAccess: time.Now(),
		Created:    info.ModTime(),
	}
	l.entries[filename] = entry

	l.evictIfNeeded(filename)

	entryCopy := *entry
	return &entryCopy, nil
}

// GetEntry retrieves an entry by file name
func (l *Library) GetEntry(id string) (*models.LibraryEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}

	entryCopy := *entry
	return &entryCopy, nil
}

// ListEntries returns all entries, most recently accessed first
func (l *Library) ListEntries() []*models.LibraryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]*models.LibraryEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		entryCopy := *entry
		entries = append(entries, &entryCopy)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccess.After(entries[j].LastAccess)
	})

	return entries
}

// GetSize returns the total size of all indexed files
func (l *Library) GetSize() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total int64
	for _, entry := range l.entries {
		total += entry.Size
	}
	return total
}

// Scan rebuilds the index from the output directory
func (l *Library) Scan() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	dirEntries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}

	entries := make(map[string]*models.LibraryEntry, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !isIndexable(de.Name()) {
			continue
		}

		info, err := de.Info()
		if err != nil {
			continue
		}

		entries[de.Name()] = &models.LibraryEntry{
			ID:         de.Name(),
			FileName:   de.Name(),
			Size:       info.Size(),
			LastAccess: info.ModTime(),
			Created:    info.ModTime(),
		}
	}
	l.entries = entries

	l.evictIfNeeded("")
	return nil
}

// UpdateLastAccess marks an entry as recently used
func (l *Library) UpdateLastAccess(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		return ErrEntryNotFound
	}

	now := time.Now()
	entry.LastAccess = now
	_ = os.Chtimes(filepath.Join(l.dir, entry.FileName), now, now)

	return nil
}

// evictIfNeeded removes least recently accessed files until the library fits
// its size cap. keep is never evicted. Must be called with lock held.
func (l *Library) evictIfNeeded(keep string) {
	if l.maxSizeBytes <= 0 {
		return
	}

	var currentSize int64
	for _, entry := range l.entries {
		currentSize += entry.Size
	}
	if currentSize <= l.maxSizeBytes {
		return
	}

	entries := make([]*models.LibraryEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		if entry.ID != keep {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccess.Before(entries[j].LastAccess)
	})

	for _, entry := range entries {
		if currentSize <= l.maxSizeBytes {
			break
		}

		os.Remove(filepath.Join(l.dir, entry.FileName))
		delete(l.entries, entry.ID)
		currentSize -= entry.Size
	}
}

// isIndexable reports whether name is a finished, visible download
func isIndexable(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext != ".part" && ext != ".ytdl" && ext != ".tmp"
}
