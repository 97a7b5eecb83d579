package cart

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"storefront/internal/core"
)

// FileStore persists the cart as one JSON document, written atomically via
// a temp file + rename.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed snapshot store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes the full snapshot.
func (s *FileStore) Save(items []core.CartItem) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Load reads the last snapshot. A missing file is an empty cart; a corrupt
// file is reported as an error so the caller can fall back to empty.
func (s *FileStore) Load() ([]core.CartItem, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var items []core.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("corrupt cart snapshot: %w", err)
	}
	return items, nil
}
