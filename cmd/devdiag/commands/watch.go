package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newWatchCmd(o *rootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream one JSON line per completed scan until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(o.cfg, true)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			if err := a.scanner.Start(ctx); err != nil {
				return err
			}
			defer a.scanner.Stop()

			enc := json.NewEncoder(cmd.OutOrStdout())
			for n := 0; count <= 0 || n < count; n++ {
				select {
				case <-ctx.Done():
					return nil
				case snap := <-a.scanner.Updates():
					if err := enc.Encode(snap); err != nil {
						return fmt.Errorf("write snapshot: %w", err)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after this many scans (0 = forever)")
	return cmd
}
