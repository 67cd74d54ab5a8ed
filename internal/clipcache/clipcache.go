package clipcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/singleflight"
	"golang.org/x/sys/unix"

	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/services"
	"clipforge/internal/textutil"
)

const (
	indexFileName = "index.json"
	lockFileName  = ".lock"
	clipsDirName  = "clips"

	// freeSpaceFloor is the minimum free-space ratio allowed before pruning
	// kicks in regardless of the configured size budget.
	freeSpaceFloor = 0.20
)

var clipFilePattern = regexp.MustCompile(`^[0-9a-f]{64}\.mp4$`)

// Entry describes one cached clip. Path is resolved against the cache root
// at load time and is not persisted.
type Entry struct {
	Key             string    `json:"key"`
	Query           string    `json:"query"`
	Filename        string    `json:"filename"`
	SizeBytes       int64     `json:"size_bytes"`
	DurationSeconds float64   `json:"duration_seconds"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	Source          string    `json:"source,omitempty"`
	CachedAt        time.Time `json:"cached_at"`
	LastUsedAt      time.Time `json:"last_used_at"`

	Path string `json:"-"`
}

// Stats describes current cache usage.
type Stats struct {
	Entries      int     `json:"entries"`
	TotalBytes   int64   `json:"total_bytes"`
	MaxBytes     int64   `json:"max_bytes"`
	FreeBytes    uint64  `json:"free_bytes"`
	TotalFSBytes uint64  `json:"total_fs_bytes"`
	FreeRatio    float64 `json:"free_ratio"`
}

// FetchResult carries clip metadata the fetcher learned while downloading.
type FetchResult struct {
	DurationSeconds float64
	Width           int
	Height          int
	Source          string
}

// FetchFunc downloads a clip to destPath. The file must exist at destPath
// when the call returns nil.
type FetchFunc func(ctx context.Context, destPath string) (FetchResult, error)

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Store provides thread-safe access to the clip cache.
type Store struct {
	root      string
	clipsDir  string
	indexPath string
	maxBytes  int64
	logger    *slog.Logger
	statfs    statfsFunc
	now       func() time.Time
	lock      *flock.Flock

	mu      sync.RWMutex
	entries map[string]Entry
	group   singleflight.Group
}

// Key derives the cache key for a search query. Queries differing only in
// case, spacing, or Unicode composition share a key.
func Key(query string) string {
	sum := sha256.Sum256([]byte(textutil.NormalizeQuery(query)))
	return hex.EncodeToString(sum[:])
}

// Open loads the cache rooted at root for read and fetch access. maxBytes
// caps the payload size; zero or negative disables the size budget.
func Open(root string, maxBytes int64, logger *slog.Logger) (*Store, error) {
	return open(root, maxBytes, logger, false)
}

// OpenExclusive opens the cache and takes the cross-process lock, failing
// when another process holds it. Mutating commands and the workflow manager
// use this so prune and clear never race a running fetch.
func OpenExclusive(root string, maxBytes int64, logger *slog.Logger) (*Store, error) {
	return open(root, maxBytes, logger, true)
}

func open(root string, maxBytes int64, logger *slog.Logger, exclusive bool) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "cache", "open", "cache directory is not configured", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Store{
		root:      root,
		clipsDir:  filepath.Join(root, clipsDirName),
		indexPath: filepath.Join(root, indexFileName),
		maxBytes:  maxBytes,
		logger:    logging.NewComponentLogger(logger, "clipcache"),
		statfs:    realStatfs,
		now:       time.Now,
		entries:   make(map[string]Entry),
	}

	if err := os.MkdirAll(s.clipsDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrCacheWrite, "cache", "open", "creating cache directories", err)
	}

	if exclusive {
		lock := flock.New(filepath.Join(root, lockFileName))
		ok, err := lock.TryLock()
		if err != nil {
			return nil, services.Wrap(services.ErrCacheWrite, "cache", "open", "acquiring cache lock", err)
		}
		if !ok {
			return nil, services.Wrap(services.ErrTransient, "cache", "open", "clip cache is in use by another process", nil)
		}
		s.lock = lock
	}

	if err := s.load(); err != nil {
		s.releaseLock()
		return nil, err
	}
	s.reconcile()
	return s, nil
}

// Close releases the cache lock when one is held.
func (s *Store) Close() error {
	return s.releaseLock()
}

func (s *Store) releaseLock() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.Unlock()
	s.lock = nil
	return err
}

// Resolve returns the cached clip for query when present and marks it used.
func (s *Store) Resolve(query string) (Entry, bool) {
	key := Key(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, found := s.entries[key]
	if !found {
		return Entry{}, false
	}
	entry.LastUsedAt = s.now()
	s.entries[key] = entry
	if err := s.save(); err != nil {
		s.logger.Warn("failed to persist cache index after hit",
			logging.String("key", key),
			logging.Error(err))
	}
	return entry, true
}

// Fetch returns the cached clip for query, downloading it through fn on a
// miss. Concurrent fetches for the same key share one download; a waiter
// whose context ends detaches without aborting the shared download, so the
// clip still lands in the cache for the next job.
func (s *Store) Fetch(ctx context.Context, query string, fn FetchFunc) (Entry, error) {
	if fn == nil {
		return Entry{}, services.Wrap(services.ErrValidation, "cache", "fetch", "fetch function is nil", nil)
	}
	if entry, ok := s.Resolve(query); ok {
		s.logger.Debug("clip cache hit", logging.String("key", entry.Key))
		return entry, nil
	}

	key := Key(query)
	ch := s.group.DoChan(key, func() (any, error) {
		return s.fetchAndStore(context.WithoutCancel(ctx), key, query, fn)
	})

	select {
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Entry{}, res.Err
		}
		return res.Val.(Entry), nil
	}
}

func (s *Store) fetchAndStore(ctx context.Context, key, query string, fn FetchFunc) (Entry, error) {
	// A flight that queued behind a completed download finds the entry here.
	s.mu.RLock()
	entry, found := s.entries[key]
	s.mu.RUnlock()
	if found {
		return entry, nil
	}

	destPath := filepath.Join(s.clipsDir, key+".mp4")
	result, err := fn(ctx, destPath)
	if err != nil {
		return Entry{}, err
	}
	info, err := os.Stat(destPath)
	if err != nil {
		return Entry{}, services.Wrap(services.ErrCacheWrite, "cache", "store",
			fmt.Sprintf("fetch for %q produced no file", query), err)
	}
	if info.Size() == 0 {
		return Entry{}, services.Wrap(services.ErrCacheWrite, "cache", "store",
			fmt.Sprintf("fetch for %q produced an empty file", query), nil)
	}

	now := s.now()
	entry = Entry{
		Key:             key,
		Query:           strings.TrimSpace(query),
		Filename:        key + ".mp4",
		SizeBytes:       info.Size(),
		DurationSeconds: result.DurationSeconds,
		Width:           result.Width,
		Height:          result.Height,
		Source:          result.Source,
		CachedAt:        now,
		LastUsedAt:      now,
		Path:            destPath,
	}

	s.mu.Lock()
	s.entries[key] = entry
	err = s.save()
	s.mu.Unlock()
	if err != nil {
		return Entry{}, services.Wrap(services.ErrCacheWrite, "cache", "store", "persisting cache index", err)
	}

	if err := s.prune(ctx, key); err != nil {
		return Entry{}, err
	}
	s.logger.Info("cached clip",
		logging.String("key", key),
		logging.String("query", entry.Query),
		logging.Int64("size_bytes", entry.SizeBytes))
	return entry, nil
}

// Entries returns all cached clips, most recently used first.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastUsedAt.After(entries[j].LastUsedAt)
	})
	return entries
}

// Stats returns cache usage and filesystem free-space info.
func (s *Store) Stats() (Stats, error) {
	s.mu.RLock()
	count := len(s.entries)
	var total int64
	for _, entry := range s.entries {
		total += entry.SizeBytes
	}
	s.mu.RUnlock()

	totalFS, freeFS, err := s.statfs(s.root)
	if err != nil {
		return Stats{}, services.Wrap(services.ErrTransient, "cache", "stats", "statfs", err)
	}
	ratio := 1.0
	if totalFS > 0 {
		ratio = float64(freeFS) / float64(totalFS)
	}
	return Stats{
		Entries:      count,
		TotalBytes:   total,
		MaxBytes:     s.maxBytes,
		FreeBytes:    freeFS,
		TotalFSBytes: totalFS,
		FreeRatio:    ratio,
	}, nil
}

// Prune removes least recently used clips until the size budget and the
// free-space floor are both satisfied.
func (s *Store) Prune(ctx context.Context) error {
	return s.prune(ctx, "")
}

func (s *Store) prune(ctx context.Context, keepKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, len(s.entries))
	var total int64
	for _, entry := range s.entries {
		entries = append(entries, entry)
		total += entry.SizeBytes
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastUsedAt.Before(entries[j].LastUsedAt)
	})

	removed := false
	for len(entries) > 0 {
		freeOK, err := s.freeSpaceOK()
		if err != nil {
			return err
		}
		if (s.maxBytes <= 0 || total <= s.maxBytes) && freeOK {
			break
		}
		oldest := entries[0]
		if oldest.Key == keepKey {
			if len(entries) == 1 {
				return services.Wrap(services.ErrConfiguration, "cache", "prune",
					fmt.Sprintf("cache over limits and active clip %s cannot be pruned, raise cache.max_gib", oldest.Key), nil)
			}
			entries = entries[1:]
			continue
		}
		if err := os.Remove(oldest.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrCacheWrite, "cache", "prune", oldest.Filename, err)
		}
		delete(s.entries, oldest.Key)
		s.logger.Info("pruned clip",
			logging.String("key", oldest.Key),
			logging.String("query", oldest.Query),
			logging.Int64("size_bytes", oldest.SizeBytes))
		total -= oldest.SizeBytes
		entries = entries[1:]
		removed = true
	}

	if removed {
		if err := s.save(); err != nil {
			return services.Wrap(services.ErrCacheWrite, "cache", "prune", "persisting cache index", err)
		}
	}
	return nil
}

// Clear removes every cached clip and resets the index.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.entries {
		if err := os.Remove(entry.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrCacheWrite, "cache", "clear", entry.Filename, err)
		}
		delete(s.entries, key)
	}
	if err := s.save(); err != nil {
		return services.Wrap(services.ErrCacheWrite, "cache", "clear", "persisting cache index", err)
	}
	s.logger.Info("cleared clip cache", logging.String("cache_dir", s.root))
	return nil
}

// load reads the index from disk into memory.
func (s *Store) load() error {
	data, err := os.ReadFile(s.indexPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return services.Wrap(services.ErrCacheWrite, "cache", "open", "reading cache index", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		// Reconcile rebuilds the index from the clip files.
		s.logger.Warn("cache index is corrupt, rebuilding from disk",
			logging.String("path", s.indexPath),
			logging.Error(err))
		return nil
	}
	for _, entry := range entries {
		if entry.Key == "" || entry.Filename == "" {
			continue
		}
		entry.Path = filepath.Join(s.clipsDir, entry.Filename)
		s.entries[entry.Key] = entry
	}
	return nil
}

// reconcile aligns the in-memory index with the clips directory. Entries
// whose payload vanished are dropped; payload files missing from the index
// are adopted with their on-disk size and times.
func (s *Store) reconcile() {
	changed := false

	for key, entry := range s.entries {
		info, err := os.Stat(entry.Path)
		if err != nil {
			delete(s.entries, key)
			changed = true
			s.logger.Debug("dropped stale index entry",
				logging.String("key", key),
				logging.String("query", entry.Query))
			continue
		}
		if info.Size() != entry.SizeBytes {
			entry.SizeBytes = info.Size()
			s.entries[key] = entry
			changed = true
		}
	}

	files, err := os.ReadDir(s.clipsDir)
	if err != nil {
		s.logger.Warn("failed to scan clips directory", logging.Error(err))
		return
	}
	for _, file := range files {
		if file.IsDir() || !clipFilePattern.MatchString(file.Name()) {
			continue
		}
		key := strings.TrimSuffix(file.Name(), ".mp4")
		if _, found := s.entries[key]; found {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		s.entries[key] = Entry{
			Key:        key,
			Filename:   file.Name(),
			SizeBytes:  info.Size(),
			CachedAt:   info.ModTime(),
			LastUsedAt: info.ModTime(),
			Path:       filepath.Join(s.clipsDir, file.Name()),
		}
		changed = true
		s.logger.Debug("adopted orphan clip", logging.String("key", key))
	}

	if changed {
		if err := s.save(); err != nil {
			s.logger.Warn("failed to persist reconciled index", logging.Error(err))
		}
	}
}

// save writes the index to disk atomically. Callers hold s.mu.
func (s *Store) save() error {
	entries := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	return fileutil.WriteFileAtomic(s.indexPath, data, 0o644)
}

func (s *Store) freeSpaceOK() (bool, error) {
	total, free, err := s.statfs(s.root)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "cache", "prune", "statfs", err)
	}
	if total == 0 {
		return true, nil
	}
	return float64(free)/float64(total) >= freeSpaceFloor, nil
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
