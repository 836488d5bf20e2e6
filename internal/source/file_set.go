package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ErrFileNotFound is wrapped by load errors for missing files, next to
// os.ErrNotExist.
var ErrFileNotFound = errors.New("file not found")

// LineLoader returns the lines of an external source in order.
type LineLoader interface {
	LoadLines(path string) ([]string, error)
}

// FileSet caches decoded files. A file is read again only when its size or
// modification time changes, so a batch that includes the same file in many
// jobs reads it once. Safe for concurrent use.
type FileSet struct {
	mu    sync.Mutex
	files map[string]*File
	reads int
}

func NewFileSet() *FileSet {
	return &FileSet{files: make(map[string]*File)}
}

// Load returns the decoded file at path.
func (s *FileSet) Load(path string) (*File, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(key)
	if err != nil {
		return nil, notFound(err)
	}

	s.mu.Lock()
	cached, ok := s.files[key]
	s.mu.Unlock()
	if ok && cached.Size == info.Size() && cached.ModTime.Equal(info.ModTime()) {
		return cached, nil
	}

	// #nosec G304 -- path is provided by the caller
	raw, err := os.ReadFile(key)
	if err != nil {
		return nil, notFound(err)
	}
	content, flags, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f := &File{Path: key, Content: content, Flags: flags, Size: info.Size(), ModTime: info.ModTime()}

	s.mu.Lock()
	s.files[key] = f
	s.reads++
	s.mu.Unlock()
	return f, nil
}

func notFound(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrFileNotFound, err)
	}
	return err
}

// LoadLines implements LineLoader.
func (s *FileSet) LoadLines(path string) ([]string, error) {
	f, err := s.Load(path)
	if err != nil {
		return nil, err
	}
	return splitLines(string(f.Content)), nil
}

// Reads reports how many times a file was read from disk.
func (s *FileSet) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Paths lists the cached files, sorted.
func (s *FileSet) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// File is one decoded source file.
type File struct {
	Path    string // absolute
	Content []byte
	Flags   FileFlags
	Size    int64 // on disk, before decoding
	ModTime time.Time
}
