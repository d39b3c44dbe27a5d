// Package watcher detects new work order spreadsheets in the configured
// folders and their subfolders.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"workorder-board/internal/state"
	"workorder-board/internal/types"
	"workorder-board/internal/websocket"
	"workorder-board/internal/workorder"
)

// DefaultSettle is how long a new file must stay unchanged before it is handed on
const DefaultSettle = time.Second

// Watcher reports spreadsheets created under its folders
type Watcher struct {
	folders []string
	settle  time.Duration
	onFile  func(path, folder string)
}

// New returns a watcher calling onFile for every new spreadsheet
func New(folders []string, onFile func(path, folder string)) *Watcher {
	return &Watcher{
		folders: folders,
		settle:  DefaultSettle,
		onFile:  onFile,
	}
}

// SetSettle changes the quiet period required after the last write
func (w *Watcher) SetSettle(d time.Duration) {
	w.settle = d
}

// Run watches until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		setStatus("error", "Nadzor mapa nije uspio", nil)
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	for _, folder := range w.folders {
		if err := addTree(fsw, folder); err != nil {
			setStatus("error", fmt.Sprintf("Mapa %s nije dostupna", folder), nil)
			return err
		}
		logrus.WithField("folder", folder).Info("Watching folder")
	}
	setStatus("watching", "Nadzor mapa aktivan", w.folders)
	defer setStatus("stopped", "Nadzor mapa zaustavljen", nil)

	settle := newSettler(w.settle)
	defer settle.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case f := <-settle.ready:
			if !settle.take(f) {
				continue
			}
			path := f.path
			if _, err := os.Stat(path); err != nil {
				continue
			}
			logrus.WithField("file", path).Info("New Excel file detected")
			w.onFile(path, w.folderOf(path))

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Has(fsnotify.Create):
				info, err := os.Stat(event.Name)
				if err != nil {
					continue
				}
				if info.IsDir() {
					if err := addTree(fsw, event.Name); err != nil {
						logrus.WithError(err).WithField("folder", event.Name).Warn("Failed to watch new folder")
					}
					continue
				}
				if workorder.IsSpreadsheet(event.Name) {
					settle.touch(event.Name)
				}
			case event.Has(fsnotify.Write):
				if settle.has(event.Name) {
					settle.touch(event.Name)
				}
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				settle.forget(event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logrus.WithError(err).Warn("Watcher error")
		}
	}
}

// folderOf returns the configured folder containing path
func (w *Watcher) folderOf(path string) string {
	best := ""
	for _, folder := range w.folders {
		rel, err := filepath.Rel(folder, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if len(folder) > len(best) {
			best = folder
		}
	}
	return best
}

// addTree watches root and every directory below it
func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("failed to watch %s: %w", root, err)
			}
			if errors.Is(err, fs.ErrPermission) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func setStatus(status, message string, folders []string) {
	state.SetWatcherStatus(status, message, folders)
	websocket.BroadcastToAll(types.WSMessage{
		Type:     "watcher",
		Message:  message,
		Watching: state.GetWatching(),
	})
}
