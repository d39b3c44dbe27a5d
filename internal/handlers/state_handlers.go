package handlers

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
	"workorder-board/internal/display"
	"workorder-board/internal/state"
)

// ServerStateHandler returns the global server state
func ServerStateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, "Metoda nije dozvoljena", http.StatusMethodNotAllowed)
		return
	}
	sendJSON(w, state.GetServerState())
}

// DisplayHandler loads both resources the way the board page does and
// returns what the page would show
func DisplayHandler(w http.ResponseWriter, r *http.Request, loader *display.Loader) {
	if r.Method != http.MethodGet {
		sendError(w, "Metoda nije dozvoljena", http.StatusMethodNotAllowed)
		return
	}
	loader.Load(r.Context())
	sendJSON(w, loader.Page().Snapshot())
}

// HistoryHandler lists recently processed work orders, newest first
func HistoryHandler(w http.ResponseWriter, r *http.Request, history HistoryReader) {
	if r.Method != http.MethodGet {
		sendError(w, "Metoda nije dozvoljena", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			sendError(w, "Neispravan limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	orders, err := history.Recent(r.Context(), limit)
	if err != nil {
		logrus.WithError(err).Error("Failed to read history")
		sendError(w, "Povijest nije dostupna", http.StatusInternalServerError)
		return
	}
	sendJSON(w, orders)
}
