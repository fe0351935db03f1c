package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// SnapshotFile persists a single JSON document on disk with atomic replace
// semantics. It backs the in-memory store when the server runs without
// Firestore.
type SnapshotFile struct {
	mu   sync.Mutex
	path string
}

func NewSnapshotFile(dataDir, filename string) (*SnapshotFile, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return &SnapshotFile{path: filepath.Join(dataDir, filename)}, nil
}

// Load decodes the snapshot into v. A missing file is not an error.
func (s *SnapshotFile) Load(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(v)
}

// Save encodes v to a temp file and renames it over the snapshot so readers
// never observe a partial write.
func (s *SnapshotFile) Save(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, s.path)
}
