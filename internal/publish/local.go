package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Local writes files into the directory the board serves
type Local struct {
	Dir string
}

// NewLocal returns a publisher for dir, creating it if needed
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create publish directory: %w", err)
	}
	return &Local{Dir: dir}, nil
}

// Name identifies the target in logs
func (l *Local) Name() string {
	return "local:" + l.Dir
}

// Publish replaces each file atomically so readers never see a partial write
func (l *Local) Publish(ctx context.Context, files []File) error {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeAtomic(filepath.Join(l.Dir, f.Name), f.Data); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"file": f.Name,
			"dir":  l.Dir,
		}).Info("Published file")
	}
	return nil
}

// CurrentNumber reads the published number file
func (l *Local) CurrentNumber(_ context.Context, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(l.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotPublished
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
