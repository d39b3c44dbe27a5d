package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"workorder-board/internal/processor"
)

// CancelHandler cancels a queued or running job
func CancelHandler(w http.ResponseWriter, r *http.Request, queue JobQueue) {
	if r.Method != http.MethodPost {
		sendError(w, "Metoda nije dozvoljena", http.StatusMethodNotAllowed)
		return
	}

	// Extract jobID from URL path (/cancel/:jobID)
	jobID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/cancel/"))
	if jobID == "" {
		sendError(w, "Nedostaje ID posla", http.StatusBadRequest)
		return
	}

	logrus.WithField("jobID", jobID).Info("Cancel request received")

	switch err := queue.Cancel(jobID); {
	case err == nil:
		sendSuccess(w, "Obrada otkazana", jobID)
	case errors.Is(err, processor.ErrJobNotFound):
		sendError(w, "Posao nije pronađen", http.StatusNotFound)
	case errors.Is(err, processor.ErrNotCancelable):
		sendError(w, "Otkazati se mogu samo poslovi u redu ili u obradi", http.StatusConflict)
	default:
		sendError(w, err.Error(), http.StatusInternalServerError)
	}
}
