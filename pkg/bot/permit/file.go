package permit

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"
)

// document is the on-disk shape of the allow-list. The whole file is read
// and rewritten as one JSON document.
type document struct {
	Allowed []string `json:"allowed"`
}

// FileStore keeps the allow-list in a single JSON file. Reads are never
// cached, so external edits to the file take effect on the next check.
// A missing or corrupt file is treated as an empty list.
type FileStore struct {
	path string
	mu   sync.Mutex // serializes the read-modify-write cycle in Grant
}

// NewFileStore creates a store backed by the JSON document at path. The
// file is not created until the first Grant.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// IsApproved reports whether the conversation is on the allow-list. Read
// failures fail closed.
func (s *FileStore) IsApproved(conversationID string) bool {
	doc, err := s.read()
	if err != nil {
		return false
	}
	return slices.Contains(doc.Allowed, conversationID)
}

// Grant appends the conversation to the allow-list and persists it before
// returning. Granting an already-approved conversation is a no-op.
func (s *FileStore) Grant(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		// Start from an empty list rather than refusing to promote.
		doc = document{}
	}
	if slices.Contains(doc.Allowed, conversationID) {
		return nil
	}
	doc.Allowed = append(doc.Allowed, conversationID)

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write permissions %q: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) read() (document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return document{}, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("decode permissions %q: %w", s.path, err)
	}
	return doc, nil
}
