package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileExporter writes each record to one JSON file, replacing the previous one.
type FileExporter struct {
	path string
}

// NewFileExporter creates an exporter writing to path.
func NewFileExporter(path string) *FileExporter {
	return &FileExporter{path: path}
}

// Export writes rec to a temporary file next to the target and renames it
// into place, so readers never see a partial snapshot.
func (e *FileExporter) Export(_ context.Context, rec Record) error {
	data, err := encode(rec)
	if err != nil {
		return err
	}

	dir := filepath.Dir(e.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("export: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("export: create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("export: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), e.path); err != nil {
		return fmt.Errorf("export: rename snapshot: %w", err)
	}
	return nil
}

// Close is a no-op.
func (e *FileExporter) Close() error { return nil }

// ReadFile loads a record written by FileExporter.
func ReadFile(path string) (Record, error) {
	var rec Record
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("export: read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("export: decode snapshot: %w", err)
	}
	return rec, nil
}
