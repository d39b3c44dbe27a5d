package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"workorder-board/internal/processor"
)

// RetryHandler puts a failed job back on the queue
func RetryHandler(w http.ResponseWriter, r *http.Request, queue JobQueue) {
	if r.Method != http.MethodPost {
		sendError(w, "Metoda nije dozvoljena", http.StatusMethodNotAllowed)
		return
	}

	// Extract jobID from URL path (/retry/:jobID)
	jobID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/retry/"))
	if jobID == "" {
		sendError(w, "Nedostaje ID posla", http.StatusBadRequest)
		return
	}

	logrus.WithField("jobID", jobID).Info("Retry request received")

	switch err := queue.Retry(jobID); {
	case err == nil:
		sendSuccess(w, "Obrada ponovno pokrenuta", jobID)
	case errors.Is(err, processor.ErrJobNotFound):
		sendError(w, "Posao nije pronađen", http.StatusNotFound)
	case errors.Is(err, processor.ErrNotRetryable):
		sendError(w, "Ponoviti se mogu samo neuspjeli ili završeni poslovi", http.StatusConflict)
	case errors.Is(err, processor.ErrQueueFull):
		sendError(w, "Red je pun, pokušajte kasnije", http.StatusServiceUnavailable)
	default:
		sendError(w, err.Error(), http.StatusInternalServerError)
	}
}
