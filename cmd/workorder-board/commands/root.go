package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"workorder-board/internal/history"
	"workorder-board/internal/notify"
	"workorder-board/internal/processor"
	"workorder-board/internal/publish"
	"workorder-board/pkg/config"
)

var (
	envFile     string
	foldersFile string
	cfg         config.Config
	logFile     io.Closer
)

const appLogFile = "app.log"

func Execute() error {
	root := &cobra.Command{
		Use:           "workorder-board",
		Short:         "Publish work orders from Excel files to a display board",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(envFile)
			if err != nil {
				return err
			}
			logFile, err = setupLogging(cfg)
			return err
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env", config.EnvFile, "environment file")
	root.PersistentFlags().StringVar(&foldersFile, "folders", config.FoldersFile, "watched folders file")

	root.AddCommand(serveCmd(), processCmd(), fetchCmd())
	err := root.Execute()
	if err != nil {
		logrus.WithError(err).Error("Command failed")
	}
	if logFile != nil {
		logFile.Close()
	}
	return err
}

// setupLogging applies LOG_LEVEL and mirrors the log to LOG_DIR/app.log
func setupLogging(c config.Config) (io.Closer, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	logrus.SetLevel(level)

	if err := os.MkdirAll(c.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.LogDir, appLogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	return f, nil
}

// pipeline holds what processing needs, built from cfg
type pipeline struct {
	publisher publish.Publisher
	notifier  *notify.Telegram
	history   *history.Store
}

func newPipeline() (*pipeline, error) {
	local, err := publish.NewLocal(cfg.PublishDir)
	if err != nil {
		return nil, err
	}
	targets := publish.Multi{local}
	if cfg.FTPEnabled() {
		targets = append(targets, publish.NewFTP(publish.FTPConfig{
			Host:      cfg.FTPHost,
			User:      cfg.FTPUser,
			Password:  cfg.FTPPass,
			RemoteDir: cfg.RemoteDir,
		}))
	} else {
		logrus.Info("FTP not configured, publishing locally only")
	}

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return nil, err
	}

	if !cfg.TelegramEnabled() {
		logrus.Info("Telegram not configured, notifications disabled")
	}

	return &pipeline{
		publisher: targets,
		notifier:  notify.NewTelegram(cfg.BotToken, cfg.ChatID),
		history:   store,
	}, nil
}

func (p *pipeline) processor(opts ...processor.Option) *processor.Processor {
	opts = append([]processor.Option{
		processor.WithNotifier(p.notifier),
		processor.WithRecorder(p.history),
		processor.WithLedger(processor.NewLedger(cfg.LogDir)),
	}, opts...)
	return processor.New(p.publisher, opts...)
}

func (p *pipeline) Close() error {
	return p.history.Close()
}
