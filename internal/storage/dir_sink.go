package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"clausegen/internal/generator"
)

// DirSink writes every artifact to <dir>/<request_id>/attempt-<n>.json.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir}
}

func (d *DirSink) path(requestID string, attempt int) (string, error) {
	if requestID == "" || strings.ContainsAny(requestID, `/\`) || requestID == "." || requestID == ".." {
		return "", fmt.Errorf("invalid request id %q", requestID)
	}
	return filepath.Join(d.dir, requestID, fmt.Sprintf("attempt-%d.json", attempt)), nil
}

func (d *DirSink) Record(_ context.Context, a generator.Artifact) error {
	path, err := d.path(a.RequestID, a.Attempt)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func (d *DirSink) Lookup(_ context.Context, requestID string) ([]generator.Artifact, error) {
	probe, err := d.path(requestID, 0)
	if err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(filepath.Dir(probe), "attempt-*.json"))
	if err != nil {
		return nil, err
	}

	out := make([]generator.Artifact, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		var a generator.Artifact
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", f, err)
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Attempt < out[j].Attempt })
	return out, nil
}
