package filestore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// LocalStore saves files into a directory.
type LocalStore struct {
	dir    string
	logger *slog.Logger
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("local file store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewSaveError("local", "", fmt.Errorf("failed to create directory: %w", err))
	}
	return &LocalStore{
		dir:    dir,
		logger: slog.Default().With("component", "filestore.local"),
	}, nil
}

// Save writes the file to a hidden temporary name and renames it into
// place, so a partially written file is never visible under name.
func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader, contentType string) (*Reference, error) {
	if err := validateName(name); err != nil {
		return nil, NewSaveError("local", name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, NewSaveError("local", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return nil, NewSaveError("local", name, err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, NewSaveError("local", name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, NewSaveError("local", name, err)
	}

	target := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return nil, NewSaveError("local", name, err)
	}

	s.logger.Info("file saved", "name", name, "size", size)
	return &Reference{
		Name:        name,
		Location:    target,
		Size:        size,
		ContentType: contentType,
		Backend:     "local",
	}, nil
}

// Ping checks that the directory exists.
func (s *LocalStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}
