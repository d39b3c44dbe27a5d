package websocket

import (
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"workorder-board/internal/state"
	"workorder-board/internal/types"
	"workorder-board/pkg/config"
)

// WSHandler handles WebSocket connections from board pages
func WSHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := config.GetUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	client := &types.WSClient{
		Conn: conn,
		Mu:   sync.Mutex{},
	}

	// Add client to global map
	config.AddWSClient(client)
	defer config.RemoveWSClient(client)

	logrus.Info("New WebSocket client connected")

	// Send watcher state to the new client
	_, watcherMessage, _ := state.GetWatcherStatus()
	client.Mu.Lock()
	client.Conn.WriteJSON(types.WSMessage{
		Type:     "watcher",
		Message:  watcherMessage,
		Watching: state.GetWatching(),
	})
	client.Mu.Unlock()

	// Handle client messages
	for {
		var msg types.WSClientMessage
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Error("WebSocket error")
			}
			break
		}

		logrus.WithField("action", msg.Action).Debug("WebSocket message received")

		switch msg.Action {
		case "queueStatus":
			client.Mu.Lock()
			client.Conn.WriteJSON(QueueStatusMessage())
			client.Mu.Unlock()
		}
	}

	logrus.Info("WebSocket client disconnected")
}

// BroadcastToAll sends a message to all WebSocket clients
func BroadcastToAll(msg types.WSMessage) {
	clients := config.GetWSClients()

	logrus.WithFields(logrus.Fields{
		"message_type": msg.Type,
		"client_count": len(clients),
	}).Debug("Broadcasting message to WebSocket clients")

	if len(clients) == 0 {
		return
	}

	var wg sync.WaitGroup
	for client := range clients {
		wg.Add(1)
		go func(c *types.WSClient) {
			defer wg.Done()
			c.Mu.Lock()
			defer c.Mu.Unlock()
			if err := c.Conn.WriteJSON(msg); err != nil {
				logrus.WithError(err).Warn("Failed to send WebSocket message to client")
			}
		}(client)
	}
	wg.Wait()
}

// QueueStatusMessage builds a queue snapshot, oldest job first
func QueueStatusMessage() types.WSMessage {
	var statuses []types.JobStatus
	for _, status := range config.GetJobStatuses() {
		statuses = append(statuses, *status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Job == nil || statuses[j].Job == nil {
			return statuses[j].Job != nil
		}
		return statuses[i].Job.CreatedAt.Before(statuses[j].Job.CreatedAt)
	})

	return types.WSMessage{
		Type:  "queueStatus",
		Queue: statuses,
	}
}

// BroadcastQueueStatus broadcasts the current queue status to all clients
func BroadcastQueueStatus() {
	BroadcastToAll(QueueStatusMessage())
}

// BroadcastRefresh tells board pages to reload both published resources
func BroadcastRefresh(number string) {
	logrus.WithField("number", number).Info("Broadcasting refresh to board pages")
	BroadcastToAll(types.WSMessage{
		Type:   "refresh",
		Number: number,
	})
}
