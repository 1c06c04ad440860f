package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/cozmogo/cozmogo/internal/logger"
	"github.com/cozmogo/cozmogo/internal/transcript"
	"github.com/google/uuid"
)

// FileStore persists entries as JSON lines in a single history file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the given path. The file is
// created on first append.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Append writes one entry as a JSON line.
func (s *FileStore) Append(ctx context.Context, e transcript.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(toRecord(uuid.NewString(), e))
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write history record: %w", err)
	}
	return nil
}

// ReadAll returns every stored entry in append order. Malformed lines are
// skipped with a warning rather than failing the whole read.
func (s *FileStore) ReadAll(ctx context.Context) ([]transcript.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	var entries []transcript.Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			logger.Warn("skipping malformed history line: %v", err)
			continue
		}
		entries = append(entries, toEntry(rec))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}
	return entries, nil
}

// Truncate erases the stored history.
func (s *FileStore) Truncate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
