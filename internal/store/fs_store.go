package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// FSStore keeps one JSON file per run under <baseDir>/runs/<id>.json.
// Writes go through a temp file and rename, so readers never observe a
// partially written record and no locking is needed.
type FSStore struct {
	baseDir string
	log     *zap.Logger
}

// NewFSStore creates the store, creating baseDir if needed.
func NewFSStore(baseDir string, log *zap.Logger) (*FSStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "runs"), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FSStore{baseDir: baseDir, log: log}, nil
}

func (s *FSStore) recordPath(id string) string {
	return filepath.Join(s.baseDir, "runs", id+".json")
}

// Save atomically writes the record, overwriting any previous version.
func (s *FSStore) Save(rec *Record) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record must carry an id")
	}
	if strings.ContainsAny(rec.ID, `/\`) {
		return fmt.Errorf("record id %q contains path separators", rec.ID)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize record: %w", err)
	}

	final := s.recordPath(rec.ID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit record: %w", err)
	}

	s.log.Debug("run record saved", zap.String("id", rec.ID), zap.String("path", final))
	return nil
}

// Load reads a record by id.
func (s *FSStore) Load(id string) (*Record, error) {
	data, err := os.ReadFile(s.recordPath(id))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("deserialize record %s: %w", id, err)
	}
	return &rec, nil
}

// List returns metadata for all readable records, newest first. Corrupted
// files are logged and skipped.
func (s *FSStore) List() ([]Info, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, "runs"))
	if os.IsNotExist(err) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan store directory: %w", err)
	}

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		rec, err := s.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			s.log.Warn("skipping unreadable run record", zap.String("file", name), zap.Error(err))
			continue
		}
		infos = append(infos, rec.ToInfo())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

// Delete removes a record.
func (s *FSStore) Delete(id string) error {
	err := os.Remove(s.recordPath(id))
	if os.IsNotExist(err) {
		return &NotFoundError{ID: id}
	}
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}
