package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileEntry struct {
	Name     string        `json:"name"`
	Value    string        `json:"value"`
	Path     string        `json:"path"`
	Expires  time.Time     `json:"expires"`
	Secure   bool          `json:"secure,omitempty"`
	SameSite http.SameSite `json:"same_site,omitempty"`
}

type fileDocument struct {
	Entries map[string]fileEntry `json:"entries"`
}

// FileStorage keeps session entries in a JSON document on disk (mode 0600). Every write
// replaces the file through a temp file and rename, so a crash never leaves a torn file.
type FileStorage struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileStorage returns a storage backed by the file at path. The file is created on
// first write; its directory must be writable.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path, now: time.Now}
}

// Path returns the backing file location.
func (f *FileStorage) Path() string { return f.path }

func (f *FileStorage) Get(_ context.Context, name, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return "", err
	}
	e, ok := doc.Entries[memoryKey(name, path)]
	if !ok || !f.now().Before(e.Expires) {
		return "", ErrEntryNotFound
	}
	return e.Value, nil
}

func (f *FileStorage) Set(_ context.Context, entries ...*http.Cookie) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	now := f.now()
	for _, c := range entries {
		if c == nil {
			continue
		}
		key := memoryKey(c.Name, c.Path)
		ttl := entryTTL(c, now)
		if ttl <= 0 {
			delete(doc.Entries, key)
			continue
		}
		doc.Entries[key] = fileEntry{
			Name:     c.Name,
			Value:    c.Value,
			Path:     normalizePath(c.Path),
			Expires:  now.Add(ttl).UTC(),
			Secure:   c.Secure,
			SameSite: c.SameSite,
		}
	}
	return f.store(doc)
}

func (f *FileStorage) Remove(_ context.Context, path string, names ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	for _, name := range names {
		delete(doc.Entries, memoryKey(name, path))
	}
	return f.store(doc)
}

func (f *FileStorage) load() (*fileDocument, error) {
	doc := &fileDocument{Entries: make(map[string]fileEntry)}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		// A corrupt document is treated as empty; the next write replaces it.
		return &fileDocument{Entries: make(map[string]fileEntry)}, nil
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]fileEntry)
	}

	now := f.now()
	for k, e := range doc.Entries {
		if !now.Before(e.Expires) {
			delete(doc.Entries, k)
		}
	}
	return doc, nil
}

func (f *FileStorage) store(doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".godesk-session-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
