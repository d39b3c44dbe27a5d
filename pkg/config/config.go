package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"workorder-board/internal/types"
)

// Constants
const (
	DataFile    = "data.txt"
	DetailsFile = "work_order_details.html"
	EnvFile     = "config.env"
	FoldersFile = "config.json"
)

// Config is the runtime configuration read from the environment
type Config struct {
	Port            string        `env:"PORT"             envDefault:"8080"`
	PublishDir      string        `env:"PUBLISH_DIR"      envDefault:"./public"`
	BotToken        string        `env:"BOT_TOKEN"`
	ChatID          string        `env:"CHAT_ID"`
	FTPHost         string        `env:"FTP_HOST"`
	FTPUser         string        `env:"FTP_USER"`
	FTPPass         string        `env:"FTP_PASS"`
	RemoteDir       string        `env:"REMOTE_DIR"`
	MaxWorkers      int           `env:"MAX_WORKERS"      envDefault:"4"`
	LogLevel        string        `env:"LOG_LEVEL"        envDefault:"info"`
	LogDir          string        `env:"LOG_DIR"          envDefault:"./logs"`
	HistoryDB       string        `env:"HISTORY_DB"       envDefault:"./history.db"`
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"0s"`
}

// FTPEnabled reports whether an FTP target is configured
func (c Config) FTPEnabled() bool {
	return c.FTPHost != "" && c.FTPUser != "" && c.FTPPass != ""
}

// TelegramEnabled reports whether Telegram notifications are configured
func (c Config) TelegramEnabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

// Load reads the optional env file into the process environment and parses it
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	return cfg, nil
}

// Global variables for the application
var (
	// Processing job management
	jobStatuses      = make(map[string]*types.JobStatus) // jobId -> status
	jobStatusesMutex sync.RWMutex

	// WebSocket management
	wsClients      = make(map[*types.WSClient]bool)
	wsClientsMutex sync.RWMutex
	upgrader       = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Display screens connect from the LAN
		},
	}
)

// GetJobStatuses returns a copy of the job statuses (thread-safe)
func GetJobStatuses() map[string]*types.JobStatus {
	jobStatusesMutex.RLock()
	defer jobStatusesMutex.RUnlock()

	statuses := make(map[string]*types.JobStatus)
	for k, v := range jobStatuses {
		cp := *v
		statuses[k] = &cp
	}
	return statuses
}

// SetJobStatus sets a job status in the global map (thread-safe)
func SetJobStatus(id string, status *types.JobStatus) {
	jobStatusesMutex.Lock()
	jobStatuses[id] = status
	jobStatusesMutex.Unlock()
}

// UpdateJobStatus changes status and progress of a known job (thread-safe)
func UpdateJobStatus(id, status, progress string) {
	jobStatusesMutex.Lock()
	defer jobStatusesMutex.Unlock()

	if js, ok := jobStatuses[id]; ok {
		js.Status = status
		if progress != "" {
			js.Progress = progress
		}
	}
}

// ModifyJobStatus applies fn to a known job under the lock
func ModifyJobStatus(id string, fn func(*types.JobStatus)) bool {
	jobStatusesMutex.Lock()
	defer jobStatusesMutex.Unlock()

	js, ok := jobStatuses[id]
	if ok {
		fn(js)
	}
	return ok
}

// DeleteJobStatusIf removes a job when match reports true, under one lock
func DeleteJobStatusIf(id string, match func(types.JobStatus) bool) bool {
	jobStatusesMutex.Lock()
	defer jobStatusesMutex.Unlock()

	js, ok := jobStatuses[id]
	if !ok || !match(*js) {
		return false
	}
	delete(jobStatuses, id)
	return true
}

// DeleteJobStatus removes a job status from the global map (thread-safe)
func DeleteJobStatus(id string) {
	jobStatusesMutex.Lock()
	delete(jobStatuses, id)
	jobStatusesMutex.Unlock()
}

// GetWSClients returns the WebSocket clients map
func GetWSClients() map[*types.WSClient]bool {
	wsClientsMutex.RLock()
	defer wsClientsMutex.RUnlock()

	clients := make(map[*types.WSClient]bool)
	for k, v := range wsClients {
		clients[k] = v
	}
	return clients
}

// AddWSClient adds a WebSocket client to the global map (thread-safe)
func AddWSClient(client *types.WSClient) {
	wsClientsMutex.Lock()
	wsClients[client] = true
	wsClientsMutex.Unlock()
}

// RemoveWSClient removes a WebSocket client from the global map (thread-safe)
func RemoveWSClient(client *types.WSClient) {
	wsClientsMutex.Lock()
	delete(wsClients, client)
	wsClientsMutex.Unlock()
}

// GetUpgrader returns the WebSocket upgrader
func GetUpgrader() websocket.Upgrader {
	return upgrader
}
