package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <file.xlsx>...",
		Short: "Process work order files once and publish the last one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			defer p.Close()

			proc := p.processor()
			var errs []error
			for _, path := range args {
				order, err := proc.Process(cmd.Context(), path)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), order.NumberLine)
			}
			return errors.Join(errs...)
		},
	}
}
