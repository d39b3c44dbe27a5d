package handlers

import (
	"fmt"
	"net/http"

	"workorder-board/pkg/config"
)

// QueueStatusHandler returns the current processing queue
func QueueStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, "Metoda nije dozvoljena", http.StatusMethodNotAllowed)
		return
	}
	sendJSON(w, config.GetJobStatuses())
}

// ClearQueueHandler removes completed and failed jobs from the queue
func ClearQueueHandler(w http.ResponseWriter, r *http.Request, queue JobQueue) {
	if r.Method != http.MethodPost {
		sendError(w, "Metoda nije dozvoljena", http.StatusMethodNotAllowed)
		return
	}
	removed := queue.Clear()
	sendSuccess(w, fmt.Sprintf("Red očišćen (%d)", removed), "")
}
