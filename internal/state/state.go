package state

import (
	"sync"
	"time"

	"workorder-board/internal/types"
)

// ServerState holds the global server state
type ServerState struct {
	WatcherStatus    string
	WatcherMessage   string
	WatcherUpdatedAt time.Time
	Watching         []string
	LastOrder        *types.ProcessedOrder
	mutex            sync.RWMutex
}

var globalState = &ServerState{
	WatcherStatus:    "stopped",
	WatcherMessage:   "Nadzor mapa nije pokrenut",
	WatcherUpdatedAt: time.Now(),
}

// GetWatcherStatus returns the current folder watcher status
func GetWatcherStatus() (string, string, time.Time) {
	globalState.mutex.RLock()
	defer globalState.mutex.RUnlock()
	return globalState.WatcherStatus, globalState.WatcherMessage, globalState.WatcherUpdatedAt
}

// SetWatcherStatus updates the folder watcher status
func SetWatcherStatus(status, message string, folders []string) {
	globalState.mutex.Lock()
	defer globalState.mutex.Unlock()
	globalState.WatcherStatus = status
	globalState.WatcherMessage = message
	globalState.WatcherUpdatedAt = time.Now()
	if folders != nil {
		globalState.Watching = append([]string(nil), folders...)
	}
}

// GetWatching returns the watched folders
func GetWatching() []string {
	globalState.mutex.RLock()
	defer globalState.mutex.RUnlock()
	return append([]string(nil), globalState.Watching...)
}

// SetLastOrder records the most recently published order
func SetLastOrder(order types.ProcessedOrder) {
	globalState.mutex.Lock()
	defer globalState.mutex.Unlock()
	globalState.LastOrder = &order
}

// GetLastOrder returns the most recently published order, if any
func GetLastOrder() (types.ProcessedOrder, bool) {
	globalState.mutex.RLock()
	defer globalState.mutex.RUnlock()
	if globalState.LastOrder == nil {
		return types.ProcessedOrder{}, false
	}
	return *globalState.LastOrder, true
}

// GetServerState returns the full server state
func GetServerState() map[string]interface{} {
	globalState.mutex.RLock()
	defer globalState.mutex.RUnlock()

	result := map[string]interface{}{
		"watcher": map[string]interface{}{
			"status":    globalState.WatcherStatus,
			"message":   globalState.WatcherMessage,
			"updatedAt": globalState.WatcherUpdatedAt,
			"folders":   append([]string{}, globalState.Watching...),
		},
	}
	if globalState.LastOrder != nil {
		result["lastOrder"] = *globalState.LastOrder
	}
	return result
}
