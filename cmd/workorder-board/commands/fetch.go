package commands

import (
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"workorder-board/internal/display"
	"workorder-board/internal/types"
)

func fetchCmd() *cobra.Command {
	var (
		interval time.Duration
		sanitize bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <page-url>",
		Short: "Load the board resources the way the page does and print them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = cfg.RefreshInterval
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			loader, err := display.NewLoader(args[0], display.NewPage(),
				display.WithSanitize(sanitize),
				display.WithOnLoad(func(s types.Snapshot) {
					if err := enc.Encode(s); err != nil {
						logrus.WithError(err).Warn("Failed to print snapshot")
					}
				}),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			loader.Run(ctx, interval)
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "reload period, 0 loads once (default REFRESH_INTERVAL)")
	cmd.Flags().BoolVar(&sanitize, "sanitize", false, "strip scripts and event handlers from the details")
	return cmd
}
