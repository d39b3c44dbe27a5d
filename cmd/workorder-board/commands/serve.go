package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"workorder-board/internal/display"
	"workorder-board/internal/handlers"
	"workorder-board/internal/history"
	"workorder-board/internal/processor"
	"workorder-board/internal/state"
	"workorder-board/internal/types"
	"workorder-board/internal/watcher"
	"workorder-board/internal/websocket"
	"workorder-board/pkg/config"
	"workorder-board/web"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Watch folders for work orders and serve the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logrus.SetFormatter(&logrus.JSONFormatter{})

			folders, err := watchedFolders()
			if err != nil {
				return err
			}

			p, err := newPipeline()
			if err != nil {
				return err
			}
			defer p.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, p, folders)
		},
	}
}

// watchedFolders loads the folder list, asking for it on first start
func watchedFolders() ([]string, error) {
	folders, err := config.LoadFolders(foldersFile)
	if err != nil {
		return nil, err
	}
	if len(folders) == 0 {
		folders, err = config.PromptFolders(os.Stdin, os.Stdout)
		if err != nil {
			return nil, err
		}
		if len(folders) == 0 {
			return nil, errors.New("no folders to watch")
		}
		if err := config.SaveFolders(foldersFile, folders); err != nil {
			return nil, err
		}
	}

	if missing := config.MissingFolders(folders); len(missing) > 0 {
		return nil, fmt.Errorf("folders do not exist: %s", strings.Join(missing, ", "))
	}
	return folders, nil
}

func serve(ctx context.Context, p *pipeline, folders []string) error {
	proc := p.processor(processor.OnPublished(func(order types.ProcessedOrder) {
		state.SetLastOrder(order)
		websocket.BroadcastRefresh(order.Number)
	}))
	queue := processor.NewQueue(proc, 100, cfg.MaxWorkers, websocket.BroadcastQueueStatus)

	w := watcher.New(folders, func(path, folder string) {
		if _, err := queue.Enqueue(path, folder); err != nil {
			logrus.WithError(err).WithField("file", path).Error("Failed to queue file")
			p.notifier.Failure(ctx, path, err)
		}
	})

	loader, err := display.NewLoader("http://localhost:"+cfg.Port+"/", display.NewPage())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: routes(queue, p.history, loader),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return queue.Run(ctx)
	})
	g.Go(func() error {
		return w.Run(ctx)
	})
	g.Go(func() error {
		logrus.Infof("Server started on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	p.notifier.Info(ctx, fmt.Sprintf("🚀 Nadzor pokrenut: %s", strings.Join(folders, ", ")))
	err = g.Wait()
	logrus.Info("Server stopped")
	return err
}

func routes(queue *processor.Queue, store *history.Store, loader *display.Loader) *http.ServeMux {
	mux := http.NewServeMux()

	// Serve static files (CSS, JS, etc.) from embedded filesystem
	mux.Handle("/static/", http.FileServer(http.FS(web.Static)))

	// Published resources, read by the board page with a cache-busting query
	mux.HandleFunc("/"+config.DataFile, func(w http.ResponseWriter, r *http.Request) {
		handlers.PublishedFileHandler(w, r, cfg.PublishDir, config.DataFile, "text/plain; charset=utf-8")
	})
	mux.HandleFunc("/"+config.DetailsFile, func(w http.ResponseWriter, r *http.Request) {
		handlers.PublishedFileHandler(w, r, cfg.PublishDir, config.DetailsFile, "text/html; charset=utf-8")
	})

	// API endpoints (must be before the catch-all "/" handler)
	mux.HandleFunc("/api/state", handlers.ServerStateHandler)
	mux.HandleFunc("/api/display", func(w http.ResponseWriter, r *http.Request) {
		handlers.DisplayHandler(w, r, loader)
	})
	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		handlers.HistoryHandler(w, r, store)
	})
	mux.HandleFunc("/queue", handlers.QueueStatusHandler)
	mux.HandleFunc("/queue/clear", func(w http.ResponseWriter, r *http.Request) {
		handlers.ClearQueueHandler(w, r, queue)
	})
	mux.HandleFunc("/retry/", func(w http.ResponseWriter, r *http.Request) {
		handlers.RetryHandler(w, r, queue)
	})
	mux.HandleFunc("/cancel/", func(w http.ResponseWriter, r *http.Request) {
		handlers.CancelHandler(w, r, queue)
	})
	mux.HandleFunc("/ws", websocket.WSHandler)

	// Catch-all handler for the main page (must be last)
	mux.HandleFunc("/", handlers.HomeHandler)
	return mux
}
