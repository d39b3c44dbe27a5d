package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"workorder-board/internal/types"
	"workorder-board/web"
)

// JobQueue is the part of the processing queue the HTTP API drives
type JobQueue interface {
	Retry(id string) error
	Cancel(id string) error
	Clear() int
}

// HistoryReader lists processed work orders
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]types.ProcessedOrder, error)
}

// HomeHandler serves the board page
func HomeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(web.IndexHTML)
}

// PublishedFileHandler serves one published resource from dir. The query
// string only defeats caches and is ignored.
func PublishedFileHandler(w http.ResponseWriter, r *http.Request, dir, name, contentType string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		sendError(w, "Metoda nije dozvoljena", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("file", name).Error("Failed to read published file")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// sendError sends an error response
func sendError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(types.Response{
		Success: false,
		Message: message,
	})
}

// sendSuccess sends a success response
func sendSuccess(w http.ResponseWriter, message string, file string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.Response{
		Success: true,
		Message: message,
		File:    file,
	})
}

// sendJSON writes v as JSON
func sendJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}
