package content

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Dir is the derived-file store: one flat directory of <slug>.md files,
// owned exclusively by the reconciler.
type Dir struct {
	path   string
	logger *slog.Logger
}

func NewDir(path string, logger *slog.Logger) *Dir {
	return &Dir{
		path:   path,
		logger: logger.With("dir", path),
	}
}

// List returns the names of the markdown files currently on disk. A read
// failure is returned as-is and must abort the caller's run: an empty
// result here is indistinguishable from "no files", and acting on it would
// delete the whole derived set.
func (d *Dir) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read content dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		names = append(names, e.Name())
	}

	d.logger.Debug("listed content files", "count", len(names))
	return names, nil
}

// Write creates or overwrites one derived file.
func (d *Dir) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}

	path := filepath.Join(d.path, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Remove deletes one derived file.
func (d *Dir) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(d.path, name)); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}
