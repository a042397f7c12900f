package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StateStore persists the timestamp up to which windows are final.
type StateStore interface {
	Load(ctx context.Context) (int64, bool, error)
	Save(ctx context.Context, ts int64) error
}

// FileStateStore keeps report progress for named reports in a local JSON file.
type FileStateStore struct {
	Path string
	Name string
}

type reportProgress struct {
	LastProcessed int64  `json:"last_processed_ts"`
	UpdatedAt     string `json:"updated_at"`
}

func (s *FileStateStore) Load(ctx context.Context) (int64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	reports, err := s.read()
	if err != nil {
		return 0, false, err
	}
	progress, ok := reports[s.Name]
	if !ok {
		return 0, false, nil
	}
	return progress.LastProcessed, true, nil
}

func (s *FileStateStore) Save(ctx context.Context, ts int64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	reports, err := s.read()
	if err != nil {
		return err
	}
	reports[s.Name] = reportProgress{
		LastProcessed: ts,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}

	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report state dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report state: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename report state: %w", err)
	}
	return nil
}

func (s *FileStateStore) read() (map[string]reportProgress, error) {
	reports := make(map[string]reportProgress)
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return reports, nil
		}
		return nil, fmt.Errorf("read report state: %w", err)
	}
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("parse report state: %w", err)
	}
	return reports, nil
}
